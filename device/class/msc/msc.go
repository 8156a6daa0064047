package msc

import (
	"log/slog"

	"github.com/ardnew/softmsc/device"
	"github.com/ardnew/softmsc/device/hal"
	"github.com/ardnew/softmsc/pkg"
)

// Function is the mass-storage class driver bound to the device's single
// interface. It owns the bulk packet buffers, feeds bulk events to the
// Engine and applies each Outcome to the bulk banks.
type Function struct {
	engine *Engine
	banks  *device.Banks
	active bool

	maxLUN uint8

	inBuf  [PacketSize]byte
	outBuf [PacketSize]byte

	stats Stats
}

// Stats counts command cycles since power-on.
type Stats struct {
	Commands uint32 // CBWs accepted
	Stalls   uint32 // Bulk IN stalls requested
	Errors   uint32 // Entries into Error
	Resets   uint32 // Bulk-Only Mass Storage Resets
}

// New returns a mass-storage function answering for one logical unit.
func New(cfg Config) *Function {
	return &Function{engine: NewEngine(cfg)}
}

// Configure implements device.ClassDriver.
func (f *Function) Configure(banks *device.Banks, active bool) {
	if !active {
		if f.banks != nil {
			f.banks.Disable(device.BulkInEndpoint, hal.In)
			f.banks.Disable(device.BulkOutEndpoint, hal.Out)
		}
		f.active = false
		return
	}

	f.banks = banks
	banks.Configure(device.BulkInEndpoint, hal.In, hal.TransferBulk, f.inBuf[:], PacketSize)
	banks.Configure(device.BulkOutEndpoint, hal.Out, hal.TransferBulk, f.outBuf[:], PacketSize)
	f.engine.Reset()
	f.active = true

	pkg.LogDebug(pkg.ComponentSCSI, "function configured",
		"bulkIn", BulkInAddress,
		"bulkOut", BulkOutAddress)
}

// HandleSetup implements device.ClassDriver. It answers GET_MAX_LUN and
// Bulk-Only Mass Storage Reset addressed to the interface.
func (f *Function) HandleSetup(setup *hal.SetupPacket, in []byte) (int, bool) {
	if !setup.IsClass() || setup.Recipient() != hal.RequestRecipientInterface {
		return 0, false
	}

	switch setup.Request {
	case RequestGetMaxLUN:
		if !setup.IsDeviceToHost() || len(in) < 1 {
			return 0, false
		}
		in[0] = f.maxLUN
		return 1, true

	case RequestBulkOnlyMassStorageReset:
		if setup.IsDeviceToHost() {
			return 0, false
		}
		f.resetRecovery()
		return 0, true

	default:
		return 0, false
	}
}

// resetRecovery returns the engine to ExpectingCBW. Endpoint stalls are
// preserved; the host clears them with CLEAR_FEATURE afterwards.
func (f *Function) resetRecovery() {
	f.stats.Resets++
	f.engine.Reset()
	if f.active {
		f.banks.CancelSend(device.BulkInEndpoint)
		f.banks.ReleaseOut(device.BulkOutEndpoint)
	}
	pkg.LogInfo(pkg.ComponentSCSI, "bulk-only reset")
}

// HandleEvent implements device.ClassDriver.
func (f *Function) HandleEvent(ev hal.Event) {
	if !f.active {
		return
	}

	switch {
	case ev.Kind == hal.EventTransferOut && ev.Endpoint == device.BulkOutEndpoint:
		before := f.engine.State().Current
		o := f.handle(Out, f.banks.Received(device.BulkOutEndpoint))
		f.banks.ReleaseOut(device.BulkOutEndpoint)
		if before == ExpectingCBW && f.engine.State().Current != Error {
			f.stats.Commands++
			if pkg.Enabled(slog.LevelDebug) {
				st := f.engine.State()
				pkg.LogDebug(pkg.ComponentSCSI, "command",
					"tag", st.CBW.Tag,
					"opcode", st.CBW.Opcode(),
					"length", st.CBW.DataTransferLength,
					"outcome", o.String())
			}
		}
		f.apply(o)

	case ev.Kind == hal.EventTransferIn && ev.Endpoint == device.BulkInEndpoint:
		f.apply(f.handle(In, nil))

	case ev.Kind == hal.EventStallIn, ev.Kind == hal.EventStallOut:
		pkg.LogDebug(pkg.ComponentSCSI, "stall sent", "event", ev.String())
	}
}

// ClearHalt implements device.ClassDriver. The engine regenerates its
// pending output, typically the CSW of a command that was stalled.
func (f *Function) ClearHalt(addr uint8) {
	if !f.active {
		return
	}

	switch addr {
	case BulkInAddress:
		f.apply(f.handle(InStallCleared, nil))
	case BulkOutAddress:
		f.apply(f.handle(OutStallCleared, nil))
	}
}

// Reset implements device.ClassDriver. The stack has already disabled
// the bulk banks.
func (f *Function) Reset() {
	f.engine.Reset()
	f.active = false
	f.banks = nil
}

func (f *Function) handle(dir Direction, out []byte) Outcome {
	before := f.engine.State().Current
	o := f.engine.Handle(dir, out, f.inBuf[:])
	if before != Error && f.engine.State().Current == Error {
		f.stats.Errors++
		pkg.LogWarn(pkg.ComponentSCSI, "phase error, waiting for reset recovery",
			"event", dir.String(),
			"from", before.String())
	}
	return o
}

// apply arms or stalls the bulk banks. In Error both pipes stay stalled.
func (f *Function) apply(o Outcome) {
	switch o.Kind {
	case OutcomeSend:
		f.banks.ArmSend(device.BulkInEndpoint, o.N)
	case OutcomeStall:
		f.stats.Stalls++
		f.banks.Stall(device.BulkInEndpoint, hal.In)
		if f.engine.State().Current == Error {
			f.banks.Stall(device.BulkOutEndpoint, hal.Out)
		}
	}
}

// State returns the engine state. Mainline callers read it inside
// device.Stack.Inspect.
func (f *Function) State() State { return f.engine.State() }

// Stats returns the command counters. Mainline callers read them inside
// device.Stack.Inspect.
func (f *Function) Stats() Stats { return f.stats }

// Active reports whether the function's endpoints are configured.
func (f *Function) Active() bool { return f.active }

var _ device.ClassDriver = (*Function)(nil)
