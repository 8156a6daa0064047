package sim

import (
	"fmt"
	"sync"

	"github.com/ardnew/softmsc/device/hal"
	"github.com/ardnew/softmsc/pkg"
	"github.com/ardnew/softmsc/pkg/irq"
)

// Handler receives controller events. device.Stack implements it.
type Handler interface {
	HandleEvent(ev hal.Event)
}

// Op identifies an entry in the controller trace.
type Op uint8

// Trace operations. Host operations are recorded when the packet is
// exchanged; device operations when the core calls the controller.
const (
	OpBusReset     Op = iota // Host drove a bus reset
	OpSetup                  // Host sent SETUP on the endpoint
	OpIn                     // Host received an IN packet
	OpOut                    // Host sent an OUT packet
	OpStall                  // Host saw a STALL handshake
	OpNAK                    // Host saw a NAK handshake
	OpConfigure              // Core configured a bank
	OpSetReady               // Core set a bank ready
	OpClearReady             // Core cleared a bank ready flag
	OpStallRequest           // Core stalled a bank
	OpClearStall             // Core cleared a bank stall
	OpSetAddress             // Core wrote the address register
)

// String returns a short operation name.
func (o Op) String() string {
	switch o {
	case OpBusReset:
		return "bus-reset"
	case OpSetup:
		return "setup"
	case OpIn:
		return "in"
	case OpOut:
		return "out"
	case OpStall:
		return "stall"
	case OpNAK:
		return "nak"
	case OpConfigure:
		return "configure"
	case OpSetReady:
		return "set-ready"
	case OpClearReady:
		return "clear-ready"
	case OpStallRequest:
		return "stall-request"
	case OpClearStall:
		return "clear-stall"
	case OpSetAddress:
		return "set-address"
	default:
		return fmt.Sprintf("op(%d)", uint8(o))
	}
}

// Record is one trace entry. Data holds the packet for host operations
// and is nil otherwise; Value holds the byte count, transfer type or
// address depending on Op.
type Record struct {
	Op       Op
	Endpoint uint8
	Dir      hal.Direction
	Value    int
	Data     []byte
}

// String returns a compact description of the record.
func (r Record) String() string {
	switch r.Op {
	case OpBusReset:
		return r.Op.String()
	case OpSetAddress:
		return fmt.Sprintf("%s %#02x", r.Op, r.Value)
	case OpSetup, OpIn, OpOut:
		return fmt.Sprintf("%s ep%d [% X]", r.Op, r.Endpoint, r.Data)
	default:
		return fmt.Sprintf("%s ep%d %s", r.Op, r.Endpoint, r.Dir)
	}
}

type bank struct {
	desc    *hal.BankDescriptor
	typ     hal.TransferType
	stalled bool
}

// Controller is an in-memory USB device controller. Host operations run
// the matching hardware effect and deliver the resulting event to the
// handler while holding the controller lock, which plays the role of the
// USB interrupt. The controller is also the irq.Masker for that
// interrupt: mainline code that enters a guard on it excludes delivery.
type Controller struct {
	mu      sync.Mutex
	handler Handler

	banks [hal.MaxEndpoints][2]bank
	dadd  uint8

	trace   []Record
	tracing bool
}

// New returns a controller with tracing enabled. Attach a handler before
// driving host operations.
func New() *Controller {
	return &Controller{tracing: true}
}

// Attach sets the event handler.
func (c *Controller) Attach(h Handler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handler = h
}

// SetTracing enables or disables trace recording.
func (c *Controller) SetTracing(on bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tracing = on
}

// Trace returns a copy of the recorded operations.
func (c *Controller) Trace() []Record {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Record, len(c.trace))
	copy(out, c.trace)
	return out
}

// ClearTrace discards the recorded operations.
func (c *Controller) ClearTrace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.trace = c.trace[:0]
}

// Address returns the enabled device address, or 0 when ADDEN is clear.
func (c *Controller) Address() uint8 {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dadd&0x80 == 0 {
		return 0
	}
	return c.dadd & 0x7F
}

// Stalled reports whether the core has a STALL requested on the bank.
func (c *Controller) Stalled(ep uint8, dir hal.Direction) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.banks[ep][dir].stalled
}

// Disable implements irq.Masker.
func (c *Controller) Disable() irq.State {
	c.mu.Lock()
	return 0
}

// Restore implements irq.Masker.
func (c *Controller) Restore(irq.State) {
	c.mu.Unlock()
}

// Host side. Each operation is one bus transaction.

// Reset drives a bus reset.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.dadd = 0
	for ep := range c.banks {
		for dir := range c.banks[ep] {
			c.banks[ep][dir].stalled = false
		}
	}
	c.record(Record{Op: OpBusReset})
	c.deliver(hal.Event{Kind: hal.EventBusReset})
}

// Setup sends a SETUP packet to the endpoint. SETUP is always accepted
// by a configured control bank, regardless of its ready flag or stall.
func (c *Controller) Setup(ep uint8, p hal.SetupPacket) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.bank(ep, hal.Out)
	if err != nil {
		return err
	}
	if b.typ != hal.TransferControl {
		return fmt.Errorf("setup on ep%d: %w", ep, pkg.ErrInvalidEndpoint)
	}
	if len(b.desc.Buffer) < hal.SetupPacketSize {
		return fmt.Errorf("setup on ep%d: %w", ep, pkg.ErrBufferTooSmall)
	}

	n := p.MarshalTo(b.desc.Buffer)
	b.desc.ByteCount = uint16(n)
	b.desc.Ready = true
	c.record(Record{Op: OpSetup, Endpoint: ep, Dir: hal.Out, Value: n, Data: clone(b.desc.Buffer[:n])})
	c.deliver(hal.Event{Kind: hal.EventSetup, Endpoint: ep})
	return nil
}

// In issues an IN token and returns the packet the device sent.
func (c *Controller) In(ep uint8) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.bank(ep, hal.In)
	if err != nil {
		return nil, err
	}
	if b.stalled {
		c.record(Record{Op: OpStall, Endpoint: ep, Dir: hal.In})
		c.deliver(hal.Event{Kind: hal.EventStallIn, Endpoint: ep})
		return nil, fmt.Errorf("in ep%d: %w", ep, pkg.ErrStall)
	}
	if !b.desc.Ready {
		c.record(Record{Op: OpNAK, Endpoint: ep, Dir: hal.In})
		return nil, fmt.Errorf("in ep%d: %w", ep, pkg.ErrNAK)
	}

	data := clone(b.desc.Payload())
	b.desc.Ready = false
	c.record(Record{Op: OpIn, Endpoint: ep, Dir: hal.In, Value: len(data), Data: data})
	c.deliver(hal.Event{Kind: hal.EventTransferIn, Endpoint: ep})
	return data, nil
}

// Out sends one OUT packet to the endpoint.
func (c *Controller) Out(ep uint8, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	b, err := c.bank(ep, hal.Out)
	if err != nil {
		return err
	}
	if b.stalled {
		c.record(Record{Op: OpStall, Endpoint: ep, Dir: hal.Out})
		c.deliver(hal.Event{Kind: hal.EventStallOut, Endpoint: ep})
		return fmt.Errorf("out ep%d: %w", ep, pkg.ErrStall)
	}
	if b.desc.Ready {
		c.record(Record{Op: OpNAK, Endpoint: ep, Dir: hal.Out})
		return fmt.Errorf("out ep%d: %w", ep, pkg.ErrNAK)
	}
	if len(data) > len(b.desc.Buffer) || len(data) > int(b.desc.MaxPacketSize()) {
		return fmt.Errorf("out ep%d: %d bytes: %w", ep, len(data), pkg.ErrBufferTooSmall)
	}

	n := copy(b.desc.Buffer, data)
	b.desc.ByteCount = uint16(n)
	b.desc.Ready = true
	c.record(Record{Op: OpOut, Endpoint: ep, Dir: hal.Out, Value: n, Data: clone(data)})
	c.deliver(hal.Event{Kind: hal.EventTransferOut, Endpoint: ep})
	return nil
}

// Device side: hal.Controller. These run with the lock already held by
// the host operation that delivered the event.

// ConfigureBank implements hal.Controller.
func (c *Controller) ConfigureBank(ep uint8, dir hal.Direction, typ hal.TransferType, desc *hal.BankDescriptor) {
	c.banks[ep][dir] = bank{desc: desc, typ: typ}
	if desc == nil {
		return
	}
	c.record(Record{Op: OpConfigure, Endpoint: ep, Dir: dir, Value: int(typ)})
}

// SetReady implements hal.Controller.
func (c *Controller) SetReady(ep uint8, dir hal.Direction) {
	if d := c.banks[ep][dir].desc; d != nil {
		d.Ready = true
		c.record(Record{Op: OpSetReady, Endpoint: ep, Dir: dir, Value: int(d.ByteCount)})
	}
}

// ClearReady implements hal.Controller.
func (c *Controller) ClearReady(ep uint8, dir hal.Direction) {
	if d := c.banks[ep][dir].desc; d != nil {
		d.Ready = false
		c.record(Record{Op: OpClearReady, Endpoint: ep, Dir: dir})
	}
}

// Stall implements hal.Controller.
func (c *Controller) Stall(ep uint8, dir hal.Direction) {
	c.banks[ep][dir].stalled = true
	c.record(Record{Op: OpStallRequest, Endpoint: ep, Dir: dir})
}

// ClearStall implements hal.Controller.
func (c *Controller) ClearStall(ep uint8, dir hal.Direction) {
	c.banks[ep][dir].stalled = false
	c.record(Record{Op: OpClearStall, Endpoint: ep, Dir: dir})
}

// SetAddress implements hal.Controller.
func (c *Controller) SetAddress(dadd uint8) {
	c.dadd = dadd
	c.record(Record{Op: OpSetAddress, Value: int(dadd)})
}

func (c *Controller) bank(ep uint8, dir hal.Direction) (*bank, error) {
	if ep >= hal.MaxEndpoints {
		return nil, fmt.Errorf("ep%d: %w", ep, pkg.ErrInvalidEndpoint)
	}
	b := &c.banks[ep][dir]
	if b.desc == nil {
		return nil, fmt.Errorf("ep%d %s not configured: %w", ep, dir, pkg.ErrNotConfigured)
	}
	return b, nil
}

func (c *Controller) deliver(ev hal.Event) {
	if c.handler == nil {
		return
	}
	pkg.LogDebug(pkg.ComponentSim, "deliver", "event", ev.String())
	c.handler.HandleEvent(ev)
}

func (c *Controller) record(r Record) {
	if c.tracing {
		c.trace = append(c.trace, r)
	}
}

func clone(p []byte) []byte {
	out := make([]byte, len(p))
	copy(out, p)
	return out
}

var (
	_ hal.Controller = (*Controller)(nil)
	_ irq.Masker     = (*Controller)(nil)
)
