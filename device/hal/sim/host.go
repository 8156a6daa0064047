package sim

import (
	"errors"
	"fmt"

	"github.com/ardnew/softmsc/device/hal"
	"github.com/ardnew/softmsc/pkg"
)

// Host drives control and bulk transfers against a Controller the way a
// host controller driver would, one packet at a time.
type Host struct {
	c *Controller
}

// NewHost returns a host attached to c.
func NewHost(c *Controller) *Host {
	return &Host{c: c}
}

// Controller returns the simulated device controller.
func (h *Host) Controller() *Controller { return h.c }

// Reset drives a bus reset.
func (h *Host) Reset() { h.c.Reset() }

// ControlIn runs a device-to-host control transfer and returns the data
// stage. The data stage is a single packet.
func (h *Host) ControlIn(setup hal.SetupPacket) ([]byte, error) {
	if err := h.c.Setup(0, setup); err != nil {
		return nil, err
	}
	data, err := h.c.In(0)
	if err != nil {
		return nil, fmt.Errorf("control in data: %w", err)
	}
	if err := h.c.Out(0, nil); err != nil {
		return data, fmt.Errorf("control in status: %w", err)
	}
	return data, nil
}

// ControlOut runs a host-to-device control transfer with an optional
// single-packet data stage.
func (h *Host) ControlOut(setup hal.SetupPacket, data []byte) error {
	if err := h.c.Setup(0, setup); err != nil {
		return err
	}
	if setup.Length > 0 {
		if err := h.c.Out(0, data); err != nil {
			return fmt.Errorf("control out data: %w", err)
		}
	}
	status, err := h.c.In(0)
	if err != nil {
		return fmt.Errorf("control out status: %w", err)
	}
	if len(status) != 0 {
		return fmt.Errorf("control out status: %d bytes: %w", len(status), pkg.ErrProtocol)
	}
	return nil
}

// GetDescriptor reads a descriptor of the given type with wLength set to
// length.
func (h *Host) GetDescriptor(descType uint8, length uint16) ([]byte, error) {
	return h.ControlIn(hal.SetupPacket{
		RequestType: hal.RequestDirectionDeviceToHost | hal.RequestTypeStandard | hal.RequestRecipientDevice,
		Request:     0x06,
		Value:       uint16(descType) << 8,
		Length:      length,
	})
}

// SetAddress assigns the device address.
func (h *Host) SetAddress(addr uint8) error {
	return h.ControlOut(hal.SetupPacket{
		RequestType: hal.RequestDirectionHostToDevice | hal.RequestTypeStandard | hal.RequestRecipientDevice,
		Request:     0x05,
		Value:       uint16(addr),
	}, nil)
}

// SetConfiguration selects a configuration.
func (h *Host) SetConfiguration(value uint8) error {
	return h.ControlOut(hal.SetupPacket{
		RequestType: hal.RequestDirectionHostToDevice | hal.RequestTypeStandard | hal.RequestRecipientDevice,
		Request:     0x09,
		Value:       uint16(value),
	}, nil)
}

// ClearHalt sends CLEAR_FEATURE(ENDPOINT_HALT) for addr.
func (h *Host) ClearHalt(addr uint8) error {
	return h.ControlOut(hal.SetupPacket{
		RequestType: hal.RequestDirectionHostToDevice | hal.RequestTypeStandard | hal.RequestRecipientEndpoint,
		Request:     0x01,
		Value:       0x00,
		Index:       uint16(addr),
	}, nil)
}

// Enumerate performs the usual host sequence: bus reset, device
// descriptor, SET_ADDRESS, configuration descriptor, SET_CONFIGURATION.
// It returns the device and configuration descriptors.
func (h *Host) Enumerate(addr uint8) (dev, config []byte, err error) {
	h.Reset()
	if dev, err = h.GetDescriptor(0x01, 18); err != nil {
		return nil, nil, fmt.Errorf("device descriptor: %w", err)
	}
	if err = h.SetAddress(addr); err != nil {
		return nil, nil, fmt.Errorf("set address: %w", err)
	}
	if config, err = h.GetDescriptor(0x02, 0xFF); err != nil {
		return nil, nil, fmt.Errorf("configuration descriptor: %w", err)
	}
	if err = h.SetConfiguration(1); err != nil {
		return nil, nil, fmt.Errorf("set configuration: %w", err)
	}
	return dev, config, nil
}

// BulkPipe is a pair of bulk endpoints seen from the host. It satisfies
// msc.Pipe.
type BulkPipe struct {
	host *Host
	in   uint8
	out  uint8
}

// Bulk returns the pipe for IN endpoint in and OUT endpoint out, given as
// endpoint numbers.
func (h *Host) Bulk(in, out uint8) *BulkPipe {
	return &BulkPipe{host: h, in: in, out: out}
}

// Read receives packets into p until p is full or a short packet ends
// the transfer.
func (p *BulkPipe) Read(buf []byte) (int, error) {
	n := 0
	for {
		pkt, err := p.host.c.In(p.in)
		if err != nil {
			return n, err
		}
		if len(pkt) > len(buf)-n {
			return n, fmt.Errorf("bulk in: %d byte packet overruns %d byte buffer: %w",
				len(pkt), len(buf)-n, pkg.ErrProtocol)
		}
		n += copy(buf[n:], pkt)
		if len(pkt) < hal.MaxPacketSize || n == len(buf) {
			return n, nil
		}
	}
}

// Write sends data as one or more packets.
func (p *BulkPipe) Write(data []byte) (int, error) {
	n := 0
	for {
		end := n + hal.MaxPacketSize
		if end > len(data) {
			end = len(data)
		}
		if err := p.host.c.Out(p.out, data[n:end]); err != nil {
			return n, err
		}
		n = end
		if n == len(data) {
			return n, nil
		}
	}
}

// ClearHalt clears ENDPOINT_HALT on the IN endpoint.
func (p *BulkPipe) ClearHalt() error {
	return p.host.ClearHalt(hal.EndpointAddress(p.in, hal.In))
}

// IsStall reports whether err is a STALL handshake.
func IsStall(err error) bool {
	return errors.Is(err, pkg.ErrStall)
}
