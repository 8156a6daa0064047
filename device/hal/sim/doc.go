// Package sim provides an in-memory USB device controller and a scripted
// host for exercising the device core without hardware.
//
// [Controller] implements [hal.Controller] on the device side and exposes
// packet-level host operations (Reset, Setup, In, Out). Each host
// operation updates the bank descriptors the way the USB DMA engine would
// and delivers the resulting event to the attached handler before
// returning. Every operation is recorded in a trace, which tests use to
// check ordering, for example that the address register is written only
// after the SET_ADDRESS status stage completes.
//
// [Host] layers control and bulk transfers on top:
//
//	ctrl := sim.New()
//	stack := device.NewStack(ctrl, device.WithMasker(ctrl))
//	ctrl.Attach(stack)
//	host := sim.NewHost(ctrl)
//	dev, config, err := host.Enumerate(5)
package sim
