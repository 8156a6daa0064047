package msc

import "fmt"

// Direction is the bulk event presented to the engine.
type Direction uint8

// Engine inputs.
const (
	Out             Direction = iota // OUT packet received on bulk OUT
	In                               // IN packet sent on bulk IN
	OutStallCleared                  // Host cleared ENDPOINT_HALT on bulk OUT
	InStallCleared                   // Host cleared ENDPOINT_HALT on bulk IN
)

// String returns a short direction name.
func (d Direction) String() string {
	switch d {
	case Out:
		return "out"
	case In:
		return "in"
	case OutStallCleared:
		return "out-halt-cleared"
	case InStallCleared:
		return "in-halt-cleared"
	default:
		return fmt.Sprintf("direction(%d)", uint8(d))
	}
}

// OutcomeKind tags an Outcome.
type OutcomeKind uint8

// Outcome kinds.
const (
	OutcomeNoData OutcomeKind = iota // Nothing to send right now
	OutcomeSend                      // Stage N bytes and arm bulk IN
	OutcomeStall                     // Place bulk IN in STALL
)

// Outcome is the action the caller must apply to the bulk banks.
type Outcome struct {
	Kind OutcomeKind
	N    int
}

// Send returns the outcome staging n bytes of the IN buffer.
func Send(n int) Outcome { return Outcome{Kind: OutcomeSend, N: n} }

// NoData and RequestStall are the two outcomes without a byte count.
var (
	NoData       = Outcome{Kind: OutcomeNoData}
	RequestStall = Outcome{Kind: OutcomeStall}
)

// String returns "Send(n)", "NoData" or "RequestStall".
func (o Outcome) String() string {
	switch o.Kind {
	case OutcomeSend:
		return fmt.Sprintf("Send(%d)", o.N)
	case OutcomeStall:
		return "RequestStall"
	default:
		return "NoData"
	}
}

// FlowState is the BOT command cycle position.
type FlowState uint8

// Command cycle states.
const (
	ExpectingCBW     FlowState = iota // Idle, bulk OUT waits for a CBW
	DataInPending                     // Data stage armed on bulk IN
	ExpectingDataOut                  // Waiting for host data; no command enters it
	CSWPending                        // CSW armed on bulk IN
	Stalled                           // Bulk IN stalled; CSW sent once the host clears it
	Error                             // Phase error; left only through Reset
)

// String returns the state name.
func (s FlowState) String() string {
	switch s {
	case ExpectingCBW:
		return "ExpectingCBW"
	case DataInPending:
		return "DataInPending"
	case ExpectingDataOut:
		return "ExpectingDataOut"
	case CSWPending:
		return "CSWPending"
	case Stalled:
		return "Stalled"
	case Error:
		return "Error"
	default:
		return fmt.Sprintf("FlowState(%d)", uint8(s))
	}
}

// State is the per-LUN engine state. Remaining never exceeds
// CBW.DataTransferLength and CSW.Tag always equals CBW.Tag.
type State struct {
	CBW       CommandBlockWrapper
	CSW       CommandStatusWrapper
	Current   FlowState
	Remaining uint32
}

// Config describes the logical unit answered by the engine.
type Config struct {
	VendorID   string // INQUIRY vendor, up to 8 characters
	ProductID  string // INQUIRY product, up to 16 characters
	Revision   string // INQUIRY revision, up to 4 characters
	Removable  bool   // INQUIRY RMB bit
	BlockCount uint32 // READ CAPACITY returns BlockCount-1; must be non-zero
	BlockSize  uint32 // READ CAPACITY block length

	// AcceptAnySignature disables the "USBC" check on incoming CBWs.
	AcceptAnySignature bool
}

// DefaultConfig returns a removable 1 MiB disk.
func DefaultConfig() Config {
	return Config{
		VendorID:   "softmsc",
		ProductID:  "mass storage",
		Revision:   "0001",
		Removable:  true,
		BlockCount: DefaultBlockCount,
		BlockSize:  DefaultBlockSize,
	}
}

// Engine is the SCSI Bulk-Only Transport state machine for one logical
// unit. Handle is a pure transition function over the engine state: it
// performs no I/O, never blocks, and leaves arming and stalling the bulk
// banks to the caller.
type Engine struct {
	cfg      Config
	state    State
	inquiry  [InquiryStandardSize]byte
	capacity [ReadCapacity10Size]byte
}

// NewEngine returns an engine in ExpectingCBW.
func NewEngine(cfg Config) *Engine {
	e := &Engine{cfg: cfg}

	NewInquiryResponse(DeviceTypeDisk, cfg.Removable,
		cfg.VendorID, cfg.ProductID, cfg.Revision).MarshalTo(e.inquiry[:])

	last := cfg.BlockCount
	if last > 0 {
		last--
	}
	(&ReadCapacity10Response{LastLBA: last, BlockLength: cfg.BlockSize}).MarshalTo(e.capacity[:])

	e.Reset()
	return e
}

// Reset returns the engine to ExpectingCBW and forgets the current
// command. It is the only way out of Error.
func (e *Engine) Reset() {
	e.state = State{Current: ExpectingCBW}
}

// State returns a copy of the engine state.
func (e *Engine) State() State { return e.state }

// Config returns the logical unit configuration.
func (e *Engine) Config() Config { return e.cfg }

// Handle advances the engine by one bulk event. out holds the received
// packet for Out and is ignored otherwise. Response bytes are written to
// the head of in, which must hold at least one packet (64 bytes).
func (e *Engine) Handle(dir Direction, out, in []byte) Outcome {
	switch e.state.Current {
	case ExpectingCBW:
		switch dir {
		case Out:
			return e.command(out, in)
		default:
			// No bank is armed on bulk IN, so a stray completion is ignored.
			return NoData
		}

	case DataInPending:
		switch dir {
		case In:
			return e.status(in)
		case Out:
			return e.fail()
		default:
			return NoData
		}

	case ExpectingDataOut:
		switch dir {
		case Out:
			return e.status(in)
		case In:
			return e.fail()
		default:
			return NoData
		}

	case CSWPending:
		switch dir {
		case In:
			e.state.Current = ExpectingCBW
			return NoData
		case Out:
			return e.fail()
		default:
			return NoData
		}

	case Stalled:
		switch dir {
		case InStallCleared:
			return e.status(in)
		case Out:
			return e.fail()
		default:
			return NoData
		}

	default:
		return RequestStall
	}
}

// command latches a CBW and dispatches on its opcode.
func (e *Engine) command(out, in []byte) Outcome {
	var cbw CommandBlockWrapper
	if err := ParseCBW(out, &cbw); err != nil {
		return e.fail()
	}
	if !cbw.Valid() && !e.cfg.AcceptAnySignature {
		return e.fail()
	}

	e.state.CBW = cbw
	e.state.Remaining = cbw.DataTransferLength
	e.state.CSW = CommandStatusWrapper{
		Signature: CSWSignature,
		Tag:       cbw.Tag,
		Status:    CSWStatusGood,
	}

	switch cbw.Opcode() {
	case SCSIInquiry:
		return e.dataIn(e.inquiry[:], in)
	case SCSIReadCapacity10:
		return e.dataIn(e.capacity[:], in)
	case SCSITestUnitReady:
		return e.status(in)
	default:
		e.state.CSW.Status = CSWStatusFailed
		e.state.Current = Stalled
		return RequestStall
	}
}

// dataIn stages min(Remaining, len(payload)) bytes. A zero-length data
// stage goes straight to the CSW.
func (e *Engine) dataIn(payload, in []byte) Outcome {
	n := uint32(len(payload))
	if e.state.Remaining < n {
		n = e.state.Remaining
	}
	if n == 0 {
		return e.status(in)
	}
	copy(in, payload[:n])
	e.state.Remaining -= n
	e.state.Current = DataInPending
	return Send(int(n))
}

// status stages the CSW with the current residue.
func (e *Engine) status(in []byte) Outcome {
	e.state.CSW.DataResidue = e.state.Remaining
	n := e.state.CSW.MarshalTo(in)
	e.state.Current = CSWPending
	return Send(n)
}

func (e *Engine) fail() Outcome {
	e.state.Current = Error
	return RequestStall
}
