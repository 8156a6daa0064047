package device

import (
	"github.com/ardnew/softmsc/device/hal"
	"github.com/ardnew/softmsc/pkg/irq"
)

// Config holds the device identity advertised in the device and
// configuration descriptors.
type Config struct {
	VendorID      uint16 // idVendor
	ProductID     uint16 // idProduct
	DeviceVersion uint16 // bcdDevice
	MaxPower      uint8  // bMaxPower in 2 mA units
	Attributes    uint8  // bmAttributes of the configuration
}

// DefaultConfig returns the pid.codes test identity drawing 100 mA from
// the bus.
func DefaultConfig() Config {
	return Config{
		VendorID:      0x1209,
		ProductID:     0x0001,
		DeviceVersion: 0x0100,
		MaxPower:      50,
		Attributes:    ConfigAttrBusPowered,
	}
}

// Option configures a Stack.
type Option func(*Stack)

// WithConfig sets the device identity.
func WithConfig(cfg Config) Option {
	return func(s *Stack) {
		s.config = cfg
	}
}

// WithClassDriver attaches the function behind the single interface.
func WithClassDriver(d ClassDriver) Option {
	return func(s *Stack) {
		s.driver = d
	}
}

// WithMasker sets the interrupt mask guarding mainline reads of engine
// state. Without it the stack assumes a single execution context.
func WithMasker(m irq.Masker) Option {
	return func(s *Stack) {
		s.masker = m
	}
}

// ClassDriver is the function bound to the device's single interface. All
// methods run in the USB event context and must not block.
type ClassDriver interface {
	// Configure activates (true) or deactivates (false) the function's
	// endpoints on SET_CONFIGURATION.
	Configure(banks *Banks, active bool)

	// HandleSetup answers a class or interface request. For device-to-host
	// requests it writes the response into in and returns its length. ok is
	// false when the request is unsupported and EP0 must stall.
	HandleSetup(setup *hal.SetupPacket, in []byte) (n int, ok bool)

	// HandleEvent processes a bulk endpoint event.
	HandleEvent(ev hal.Event)

	// ClearHalt is called after the core cleared ENDPOINT_HALT on one of
	// the function's endpoints, so the function can regenerate the output
	// that was withheld by the STALL.
	ClearHalt(addr uint8)

	// Reset returns the function to its power-on state after a bus reset.
	Reset()
}
