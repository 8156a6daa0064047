package device

import (
	"github.com/ardnew/softmsc/device/hal"
	"github.com/ardnew/softmsc/pkg"
)

// Control is the endpoint 0 state machine.
//
// Every SETUP ends in exactly one terminal action: an armed IN data
// packet, a zero-length status packet, or a STALL of both EP0 banks. A
// SET_ADDRESS is latched and only written to the address register once
// its status stage has completed, so the device still answers at the old
// address during that stage.
type Control struct {
	banks  *Banks
	table  *DescriptorTable
	driver ClassDriver

	setup hal.SetupPacket
	stage Stage
	state State

	address        uint8
	pendingAddress uint8
	addressPending bool
	configuration  uint8

	outBuf [MaxControlPacketSize]byte
	inBuf  [MaxControlPacketSize]byte
}

// NewControl returns an engine in ExpectSetup. Call Reset to configure
// the EP0 banks before the first event.
func NewControl(banks *Banks, table *DescriptorTable, driver ClassDriver) *Control {
	return &Control{
		banks:  banks,
		table:  table,
		driver: driver,
		state:  StateDefault,
	}
}

// Reset returns the engine to its post-bus-reset state and reconfigures
// the EP0 banks.
func (c *Control) Reset() {
	c.stage = StageExpectSetup
	c.state = StateDefault
	c.address = 0
	c.pendingAddress = 0
	c.addressPending = false
	c.configuration = 0

	c.banks.Configure(ControlEndpoint, hal.Out, hal.TransferControl, c.outBuf[:], MaxControlPacketSize)
	c.banks.Configure(ControlEndpoint, hal.In, hal.TransferControl, c.inBuf[:], MaxControlPacketSize)
}

// HandleEvent processes one endpoint 0 event.
func (c *Control) HandleEvent(ev hal.Event) {
	switch ev.Kind {
	case hal.EventSetup:
		c.handleSetup()
	case hal.EventTransferIn:
		c.handleInComplete()
	case hal.EventTransferOut:
		c.handleOutComplete()
	case hal.EventStallIn, hal.EventStallOut:
		pkg.LogDebug(pkg.ComponentControl, "stall sent", "event", ev.Kind.String())
	}
}

func (c *Control) handleSetup() {
	err := hal.ParseSetupPacket(c.banks.Received(ControlEndpoint), &c.setup)
	c.banks.ReleaseOut(ControlEndpoint)
	if err != nil {
		pkg.LogWarn(pkg.ComponentControl, "bad setup packet",
			"n", c.banks.BytesReceived(ControlEndpoint),
			"error", err)
		c.stall()
		return
	}

	pkg.LogDebug(pkg.ComponentControl, "setup received",
		"request", c.setup.String())

	// A new SETUP abandons whatever the previous transaction left behind.
	c.addressPending = false
	if c.banks.Stalled(ControlEndpoint, hal.In) {
		c.banks.ClearStall(ControlEndpoint, hal.In)
	}
	if c.banks.Stalled(ControlEndpoint, hal.Out) {
		c.banks.ClearStall(ControlEndpoint, hal.Out)
	}

	switch {
	case c.setup.IsDeviceToHost():
		c.handleDeviceToHost()
	case c.setup.Length > 0:
		// The OUT bank is already released for the data packet.
		c.stage = StageDataOut
	default:
		c.handleNoData()
	}
}

func (c *Control) handleDeviceToHost() {
	var (
		n  int
		ok bool
	)

	switch {
	case c.setup.IsStandard() && c.setup.Request == RequestGetDescriptor:
		var data []byte
		data, ok = c.table.Resolve(c.setup.DescriptorType(), c.setup.Length)
		n = copy(c.inBuf[:], data)
	case c.setup.IsClass() && c.driver != nil:
		n, ok = c.driver.HandleSetup(&c.setup, c.inBuf[:])
	}

	if !ok {
		pkg.LogDebug(pkg.ComponentControl, "unsupported request",
			"request", c.setup.String())
		c.stall()
		return
	}

	if n > int(c.setup.Length) {
		n = int(c.setup.Length)
	}
	if n > len(c.inBuf) {
		n = len(c.inBuf)
	}
	c.stage = StageDataIn
	c.banks.ArmSend(ControlEndpoint, n)
}

func (c *Control) handleNoData() {
	switch {
	case c.setup.IsStandard():
		switch c.setup.Request {
		case RequestSetAddress:
			c.pendingAddress = uint8(c.setup.Value & 0x7F)
			c.addressPending = true
		case RequestSetConfiguration:
			c.setConfiguration(uint8(c.setup.Value))
		case RequestClearFeature:
			if c.setup.Recipient() == hal.RequestRecipientEndpoint &&
				c.setup.Value == FeatureEndpointHalt {
				if !c.clearHalt(c.setup.EndpointAddress()) {
					c.stall()
					return
				}
			}
		}
	case c.setup.IsClass():
		if c.driver == nil {
			c.stall()
			return
		}
		if _, ok := c.driver.HandleSetup(&c.setup, nil); !ok {
			c.stall()
			return
		}
	}
	c.ack()
}

func (c *Control) setConfiguration(value uint8) {
	if c.driver != nil {
		c.driver.Configure(c.banks, value != 0)
	}
	c.configuration = value
	if value != 0 {
		c.state = StateConfigured
	} else if c.address != 0 {
		c.state = StateAddress
	}
	pkg.LogInfo(pkg.ComponentControl, "set configuration",
		"value", value,
		"state", c.state.String())
}

// clearHalt clears ENDPOINT_HALT on addr and hands the endpoint back to
// the class driver. It reports false for an endpoint outside the table.
func (c *Control) clearHalt(addr uint8) bool {
	ep, dir := hal.SplitAddress(addr)
	if ep >= hal.MaxEndpoints {
		return false
	}
	c.banks.ClearStall(ep, dir)
	if ep != ControlEndpoint && c.driver != nil {
		c.driver.ClearHalt(addr)
	}
	return true
}

func (c *Control) handleInComplete() {
	switch c.stage {
	case StageNoDataStatus:
		if c.addressPending {
			c.applyAddress()
		}
		c.stage = StageExpectSetup
	case StageDataIn:
		// The host's zero-length OUT status lands in the released bank.
		c.stage = StageExpectSetup
	default:
		pkg.LogDebug(pkg.ComponentControl, "unexpected IN completion",
			"stage", c.stage.String())
	}
}

func (c *Control) applyAddress() {
	c.addressPending = false
	c.address = c.pendingAddress
	c.banks.SetAddress(c.address)
	switch {
	case c.address == 0:
		c.state = StateDefault
	case c.state == StateDefault:
		c.state = StateAddress
	}
	pkg.LogInfo(pkg.ComponentControl, "address applied",
		"address", c.address,
		"state", c.state.String())
}

func (c *Control) handleOutComplete() {
	n := c.banks.BytesReceived(ControlEndpoint)
	c.banks.ReleaseOut(ControlEndpoint)

	if c.stage != StageDataOut {
		// Status-stage ZLP of an IN transfer.
		return
	}
	pkg.LogDebug(pkg.ComponentControl, "data stage discarded", "n", n)
	c.ack()
}

func (c *Control) ack() {
	c.stage = StageNoDataStatus
	c.banks.ArmSend(ControlEndpoint, 0)
}

func (c *Control) stall() {
	c.stage = StageExpectSetup
	c.banks.Stall(ControlEndpoint, hal.In)
	c.banks.Stall(ControlEndpoint, hal.Out)
}

// Stage returns the current control transfer stage.
func (c *Control) Stage() Stage { return c.stage }

// State returns the USB device state.
func (c *Control) State() State { return c.state }

// Address returns the address currently written to the hardware.
func (c *Control) Address() uint8 { return c.address }

// PendingAddress returns the latched SET_ADDRESS value, if any.
func (c *Control) PendingAddress() (uint8, bool) {
	return c.pendingAddress, c.addressPending
}

// Configuration returns the value of the last SET_CONFIGURATION.
func (c *Control) Configuration() uint8 { return c.configuration }

// Setup returns the latched SETUP packet.
func (c *Control) Setup() hal.SetupPacket { return c.setup }
