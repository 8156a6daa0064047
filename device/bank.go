package device

import (
	"github.com/ardnew/softmsc/device/hal"
	"github.com/ardnew/softmsc/pkg"
)

// Banks owns the endpoint bank descriptor table and is the only code that
// arms, releases or stalls a bank.
//
// Endpoint numbers must be below hal.MaxEndpoints. Byte counts passed to
// ArmSend must not exceed the bank's buffer; all packet buffers in this
// firmware are 64 bytes. Neither precondition is checked.
type Banks struct {
	ctrl    hal.Controller
	table   [hal.MaxEndpoints][2]hal.BankDescriptor
	stalled [hal.MaxEndpoints][2]bool
}

// NewBanks returns an empty bank table driving ctrl.
func NewBanks(ctrl hal.Controller) *Banks {
	return &Banks{ctrl: ctrl}
}

// Configure points a bank at buf and enables it with the given transfer
// type. An OUT bank is left empty and able to receive.
func (b *Banks) Configure(ep uint8, dir hal.Direction, typ hal.TransferType, buf []byte, maxPacketSize uint16) {
	d := &b.table[ep][dir]
	*d = hal.BankDescriptor{
		Buffer:   buf,
		SizeCode: hal.SizeCode(maxPacketSize),
	}
	b.stalled[ep][dir] = false
	b.ctrl.ConfigureBank(ep, dir, typ, d)
	if dir == hal.Out {
		b.ctrl.ClearReady(ep, hal.Out)
	}
	pkg.LogDebug(pkg.ComponentBank, "configure",
		"ep", ep,
		"dir", dir.String(),
		"type", typ.String(),
		"maxPacket", maxPacketSize)
}

// Disable detaches a bank from its buffer.
func (b *Banks) Disable(ep uint8, dir hal.Direction) {
	b.table[ep][dir] = hal.BankDescriptor{}
	b.stalled[ep][dir] = false
	b.ctrl.ConfigureBank(ep, dir, hal.TransferControl, nil)
}

// ArmSend marks the IN bank ready with the first n bytes of its buffer
// staged for transmission. n == 0 sends a zero-length packet.
func (b *Banks) ArmSend(ep uint8, n int) {
	d := &b.table[ep][hal.In]
	d.ByteCount = uint16(n)
	d.MultiPacketSize = 0
	d.Ready = true
	b.ctrl.SetReady(ep, hal.In)
	pkg.LogDebug(pkg.ComponentBank, "arm send", "ep", ep, "n", n)
}

// CancelSend withdraws data staged on the IN bank.
func (b *Banks) CancelSend(ep uint8) {
	d := &b.table[ep][hal.In]
	d.Ready = false
	b.ctrl.ClearReady(ep, hal.In)
}

// BytesReceived returns the byte count of the last packet received on
// the OUT bank.
func (b *Banks) BytesReceived(ep uint8) uint32 {
	return uint32(b.table[ep][hal.Out].ByteCount)
}

// Received returns the payload of the last packet received on the OUT
// bank. It aliases the bank buffer and is valid until ReleaseOut.
func (b *Banks) Received(ep uint8) []byte {
	return b.table[ep][hal.Out].Payload()
}

// ReleaseOut frees the OUT bank for the next packet.
func (b *Banks) ReleaseOut(ep uint8) {
	d := &b.table[ep][hal.Out]
	d.Ready = false
	b.ctrl.ClearReady(ep, hal.Out)
}

// Stall places a STALL on one bank of the endpoint.
func (b *Banks) Stall(ep uint8, dir hal.Direction) {
	b.stalled[ep][dir] = true
	b.ctrl.Stall(ep, dir)
	pkg.LogDebug(pkg.ComponentBank, "stall", "ep", ep, "dir", dir.String())
}

// ClearStall removes the STALL from one bank of the endpoint.
func (b *Banks) ClearStall(ep uint8, dir hal.Direction) {
	b.stalled[ep][dir] = false
	b.ctrl.ClearStall(ep, dir)
	pkg.LogDebug(pkg.ComponentBank, "clear stall", "ep", ep, "dir", dir.String())
}

// Stalled reports whether a STALL was requested on the bank and not yet
// cleared.
func (b *Banks) Stalled(ep uint8, dir hal.Direction) bool {
	return b.stalled[ep][dir]
}

// Buffer returns the packet buffer of a bank.
func (b *Banks) Buffer(ep uint8, dir hal.Direction) []byte {
	return b.table[ep][dir].Buffer
}

// Descriptor returns the bank descriptor. Callers outside this package
// only read it.
func (b *Banks) Descriptor(ep uint8, dir hal.Direction) *hal.BankDescriptor {
	return &b.table[ep][dir]
}

// SetAddress writes the device address register with ADDEN set.
func (b *Banks) SetAddress(addr uint8) {
	b.ctrl.SetAddress(addr&0x7F | AddressEnable)
}

// Reset disables every bank.
func (b *Banks) Reset() {
	for ep := uint8(0); ep < hal.MaxEndpoints; ep++ {
		for _, dir := range [...]hal.Direction{hal.Out, hal.In} {
			if b.table[ep][dir].Buffer != nil {
				b.Disable(ep, dir)
			}
		}
	}
}
