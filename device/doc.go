// Package device implements the USB device core of a mass-storage
// firmware: the endpoint bank table, the descriptor table and the
// endpoint 0 control transfer engine.
//
// It is platform-agnostic and reaches the hardware only through the
// [hal.Controller] interface defined in the
// [github.com/ardnew/softmsc/device/hal] package.
//
// # Architecture
//
//   - [Banks] wraps the per-endpoint bank descriptors behind named
//     operations (configure, arm, release, stall) with no protocol
//     knowledge
//   - [DescriptorTable] holds the serialized device and configuration
//     descriptors and truncates them to the requested length
//   - [Control] is the endpoint 0 state machine
//   - [Stack] owns all of the above plus the [ClassDriver] and dispatches
//     controller events
//
// # Event Flow
//
// The controller's interrupt handler calls [Stack.HandleEvent] for every
// bus event. Endpoint 0 events go to the control engine; bulk events go to
// the class driver. Both run to completion without blocking and arm or
// stall banks before returning.
//
// # Control Transfers
//
// The control engine moves through these stages per transaction:
//
//	ExpectSetup → DataStageIn | DataStageOut | NoDataStatus → ExpectSetup
//
// It answers GET_DESCRIPTOR for the device and configuration descriptors,
// latches SET_ADDRESS until the status stage completes, accepts
// SET_CONFIGURATION, and on CLEAR_FEATURE(ENDPOINT_HALT) clears the stall
// and lets the class driver regenerate its pending output. Other standard
// requests are acknowledged; class requests go to the class driver.
// Data stages are limited to one 64-byte packet.
//
// # Device States
//
//	Default → Address → Configured
//
// # Zero-Allocation Design
//
// Buffers are fixed arrays owned by the engines. Descriptors are
// serialized once with AppendTo; the event path allocates nothing beyond
// what debug logging needs when enabled.
//
// # Example
//
//	ctrl := sim.New()
//	fn := msc.New(msc.DefaultConfig())
//	stack := device.NewStack(ctrl,
//	    device.WithClassDriver(fn),
//	    device.WithMasker(ctrl))
//	ctrl.Attach(stack)
package device
