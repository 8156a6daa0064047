// Package hal defines the hardware abstraction consumed by the USB device
// core.
//
// The core never touches controller registers directly. Instead it sees:
//
//   - [BankDescriptor], one per endpoint per direction, describing the
//     packet buffer, the PCKSIZE word and the bank-ready flag
//   - [Controller], the register operations the core needs: configure a
//     bank, set or clear its ready flag, stall it, and write the device
//     address register
//   - [Event], the notifications a controller raises from its interrupt
//     handler: bus reset, SETUP received, transfer complete, STALL sent
//   - [SetupPacket], the 8-byte SETUP wire format
//
// # Event Model
//
// A controller delivers events one at a time to the device stack's
// HandleEvent method and never reenters it. Everything the core does in
// response, including bank arming and stalling, runs to completion inside
// that call. Nothing blocks.
//
// # Bank Ownership
//
// Bank descriptors are owned by the device stack. A controller keeps the
// pointer passed to ConfigureBank and, before raising EventSetup or
// EventTransferOut, stores the received byte count and sets Ready on the
// OUT descriptor, as the SAMD USB DMA engine does with its SRAM table.
//
// # Implementations
//
// A simulated controller driven by a scripted host lives in
// [github.com/ardnew/softmsc/device/hal/sim]. The SAMD21 implementation is
// in examples/tinygo-device/msc/atsamd21.
package hal
