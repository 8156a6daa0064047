package device

import "fmt"

// Endpoint numbers used by the mass-storage function.
const (
	ControlEndpoint = 0 // EP0
	BulkInEndpoint  = 1 // EP1 IN (0x81)
	BulkOutEndpoint = 2 // EP2 OUT (0x02)
)

// MaxControlPacketSize is the EP0 packet size. Control data stages are
// limited to a single packet.
const MaxControlPacketSize = 64

// Device states (USB 2.0 section 9.1) reachable from the first bus
// reset. Suspend is not tracked.
const (
	StateDefault    State = iota // Reset, answering at address 0
	StateAddress                 // Address applied, not configured
	StateConfigured              // Non-zero configuration selected
)

// State is the USB device state.
type State uint8

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDefault:
		return "Default"
	case StateAddress:
		return "Address"
	case StateConfigured:
		return "Configured"
	default:
		return fmt.Sprintf("Unknown State (%d)", s)
	}
}

// Control transfer stages of endpoint 0.
const (
	StageExpectSetup  Stage = 0 // Idle, waiting for SETUP
	StageDataIn       Stage = 1 // IN data armed, waiting for completion
	StageDataOut      Stage = 2 // Waiting for the single OUT data packet
	StageNoDataStatus Stage = 3 // ZLP status armed, waiting for completion
)

// Stage is the state of the control transfer engine.
type Stage uint8

// String returns a human-readable stage name.
func (s Stage) String() string {
	switch s {
	case StageExpectSetup:
		return "ExpectSetup"
	case StageDataIn:
		return "DataStageIn"
	case StageDataOut:
		return "DataStageOut"
	case StageNoDataStatus:
		return "NoDataStatus"
	default:
		return fmt.Sprintf("Unknown Stage (%d)", s)
	}
}
