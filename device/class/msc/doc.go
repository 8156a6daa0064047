// Package msc is a USB mass-storage function speaking Bulk-Only
// Transport with the SCSI transparent command set.
//
// Every command is a cycle on the two bulk pipes: a 31-byte Command Block
// Wrapper arrives on bulk OUT, an optional data stage goes out on bulk
// IN, and a 13-byte Command Status Wrapper closes the cycle. The engine
// only implements device-to-host data stages.
//
// # Engine
//
// [Engine] is the command state machine. [Engine.Handle] takes one bulk
// event (OUT packet, IN completion, or a halt cleared by the host) and
// returns an [Outcome]: Send(n), NoData or RequestStall. It performs no
// I/O, so it runs unchanged in an interrupt handler and in tests.
//
//	ExpectingCBW --INQUIRY/READ CAPACITY--> DataInPending --IN--> CSWPending
//	ExpectingCBW --TEST UNIT READY--------------------------------> CSWPending
//	ExpectingCBW --other opcode--> Stalled --IN halt cleared-----> CSWPending
//	CSWPending   --IN--> ExpectingCBW
//
// A malformed CBW or a packet in the wrong direction moves the engine to
// Error, where every event answers RequestStall until the host performs
// reset recovery (Bulk-Only Mass Storage Reset) or resets the bus.
//
// # Commands
//
// TEST UNIT READY answers with status alone. INQUIRY returns 36 bytes of
// standard data and READ CAPACITY (10) the last LBA and block length.
// Every other opcode fails with CSW status 1 after a bulk IN STALL.
//
// # Function
//
// [Function] is the device.ClassDriver that owns the 64-byte bulk buffers
// on EP1 IN and EP2 OUT, routes bulk events to the engine, and applies
// each outcome to the banks:
//
//	fn := msc.New(msc.DefaultConfig())
//	stack := device.NewStack(ctrl, device.WithClassDriver(fn))
//
// # Host Side
//
// [Client] runs command cycles over any [Pipe], including the STALL
// recovery a host driver performs. The simulator and the gousb probe both
// use it.
//
// See USB Mass Storage Class Bulk-Only Transport 1.0 and SPC-2.
package msc
