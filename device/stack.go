package device

import (
	"github.com/ardnew/softmsc/device/hal"
	"github.com/ardnew/softmsc/pkg"
	"github.com/ardnew/softmsc/pkg/irq"
)

// Stack is the device context object. It owns the bank table, the
// descriptor table, the control engine and the class driver, and is the
// single entry point for controller events.
type Stack struct {
	config Config
	ctrl   hal.Controller
	masker irq.Masker
	driver ClassDriver

	banks   *Banks
	table   *DescriptorTable
	control *Control

	resets uint32
	events uint32
}

// Snapshot is a consistent copy of the stack state for mainline code.
type Snapshot struct {
	State          State
	Stage          Stage
	Address        uint8
	PendingAddress uint8
	AddressPending bool
	Configuration  uint8
	Setup          hal.SetupPacket
	Resets         uint32
	Events         uint32
}

// NewStack creates a stack driving ctrl and configures the EP0 banks.
func NewStack(ctrl hal.Controller, opts ...Option) *Stack {
	s := &Stack{
		config: DefaultConfig(),
		ctrl:   ctrl,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.banks = NewBanks(ctrl)
	s.table = NewDescriptorTable(s.config)
	s.control = NewControl(s.banks, s.table, s.driver)
	s.reset()

	pkg.LogDebug(pkg.ComponentStack, "device stack created",
		"vid", s.config.VendorID,
		"pid", s.config.ProductID)
	return s
}

// HandleEvent dispatches one controller event. It runs in the USB
// interrupt context and returns without blocking.
func (s *Stack) HandleEvent(ev hal.Event) {
	s.events++

	switch {
	case ev.Kind == hal.EventBusReset:
		s.resets++
		pkg.LogInfo(pkg.ComponentStack, "bus reset", "count", s.resets)
		s.reset()
	case ev.Endpoint == ControlEndpoint:
		s.control.HandleEvent(ev)
	case s.driver != nil:
		s.driver.HandleEvent(ev)
	default:
		pkg.LogDebug(pkg.ComponentStack, "event ignored", "event", ev.String())
	}
}

func (s *Stack) reset() {
	s.banks.Reset()
	s.control.Reset()
	if s.driver != nil {
		s.driver.Reset()
	}
}

// Snapshot reads the engine state inside a critical section.
func (s *Stack) Snapshot() Snapshot {
	g := irq.Enter(s.masker)
	defer g.Exit()

	pending, ok := s.control.PendingAddress()
	return Snapshot{
		State:          s.control.State(),
		Stage:          s.control.Stage(),
		Address:        s.control.Address(),
		PendingAddress: pending,
		AddressPending: ok,
		Configuration:  s.control.Configuration(),
		Setup:          s.control.Setup(),
		Resets:         s.resets,
		Events:         s.events,
	}
}

// Inspect runs fn inside the stack's critical section. Mainline code uses
// it to read class driver state.
func (s *Stack) Inspect(fn func()) {
	irq.Do(s.masker, fn)
}

// Config returns the device identity.
func (s *Stack) Config() Config { return s.config }

// Banks returns the endpoint bank table.
func (s *Stack) Banks() *Banks { return s.banks }

// Descriptors returns the descriptor table.
func (s *Stack) Descriptors() *DescriptorTable { return s.table }
