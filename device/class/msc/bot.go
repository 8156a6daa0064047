package msc

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/softmsc/pkg"
)

// Offsets shared by both wrappers.
const (
	offSignature = 0
	offTag       = 4
	offLength    = 8 // dCBWDataTransferLength or dCSWDataResidue
)

// CommandBlockWrapper is the 31-byte command packet received on bulk OUT.
type CommandBlockWrapper struct {
	Signature          uint32
	Tag                uint32
	DataTransferLength uint32 // bytes the host expects to move
	Flags              uint8
	LUN                uint8 // low nibble only
	CBLength           uint8 // low five bits only
	CB                 [16]byte
}

// NewCBW builds a wrapper around cb with a valid signature.
func NewCBW(tag, length uint32, dataIn bool, cb []byte) *CommandBlockWrapper {
	w := &CommandBlockWrapper{Signature: CBWSignature, Tag: tag, DataTransferLength: length}
	if dataIn {
		w.Flags |= CBWFlagDataIn
	}
	w.CBLength = uint8(copy(w.CB[:], cb))
	return w
}

// ParseCBW decodes exactly CBWSize bytes into out. Any other length is
// rejected; the signature is left for Valid so the caller decides.
func ParseCBW(data []byte, out *CommandBlockWrapper) error {
	if len(data) != CBWSize {
		return fmt.Errorf("cbw length %d: %w", len(data), pkg.ErrInvalidCBW)
	}
	le := binary.LittleEndian
	*out = CommandBlockWrapper{
		Signature:          le.Uint32(data[offSignature:]),
		Tag:                le.Uint32(data[offTag:]),
		DataTransferLength: le.Uint32(data[offLength:]),
		Flags:              data[12],
		LUN:                data[13] & 0x0F,
		CBLength:           data[14] & 0x1F,
	}
	copy(out.CB[:], data[15:])
	return nil
}

// MarshalTo encodes the wrapper into buf and returns CBWSize, or 0 when
// buf is short.
func (w *CommandBlockWrapper) MarshalTo(buf []byte) int {
	if len(buf) < CBWSize {
		return 0
	}
	le := binary.LittleEndian
	le.PutUint32(buf[offSignature:], w.Signature)
	le.PutUint32(buf[offTag:], w.Tag)
	le.PutUint32(buf[offLength:], w.DataTransferLength)
	buf[12], buf[13], buf[14] = w.Flags, w.LUN&0x0F, w.CBLength&0x1F
	copy(buf[15:CBWSize], w.CB[:])
	return CBWSize
}

// Valid reports whether the signature reads "USBC".
func (w *CommandBlockWrapper) Valid() bool { return w.Signature == CBWSignature }

// Opcode is the first byte of the command block.
func (w *CommandBlockWrapper) Opcode() uint8 { return w.CB[0] }

// IsDataIn reports a device-to-host data stage.
func (w *CommandBlockWrapper) IsDataIn() bool { return w.Flags&CBWFlagDataIn != 0 }

// IsDataOut reports a host-to-device data stage, or no data at all.
func (w *CommandBlockWrapper) IsDataOut() bool { return !w.IsDataIn() }

// CommandStatusWrapper is the 13-byte status packet sent on bulk IN.
type CommandStatusWrapper struct {
	Signature   uint32
	Tag         uint32 // copied from the CBW
	DataResidue uint32 // expected minus transferred
	Status      uint8
}

// NewCSW builds a status wrapper with a valid signature.
func NewCSW(tag, residue uint32, status uint8) *CommandStatusWrapper {
	return &CommandStatusWrapper{CSWSignature, tag, residue, status}
}

// MarshalTo encodes the wrapper into buf and returns CSWSize, or 0 when
// buf is short.
func (s *CommandStatusWrapper) MarshalTo(buf []byte) int {
	if len(buf) < CSWSize {
		return 0
	}
	le := binary.LittleEndian
	le.PutUint32(buf[offSignature:], s.Signature)
	le.PutUint32(buf[offTag:], s.Tag)
	le.PutUint32(buf[offLength:], s.DataResidue)
	buf[12] = s.Status
	return CSWSize
}

// ParseCSW decodes exactly CSWSize bytes and rejects a bad signature.
func ParseCSW(data []byte, out *CommandStatusWrapper) error {
	if len(data) != CSWSize {
		return fmt.Errorf("csw length %d: %w", len(data), pkg.ErrInvalidCSW)
	}
	le := binary.LittleEndian
	sig := le.Uint32(data[offSignature:])
	if sig != CSWSignature {
		return fmt.Errorf("csw signature %#08x: %w", sig, pkg.ErrInvalidCSW)
	}
	*out = CommandStatusWrapper{
		Signature:   sig,
		Tag:         le.Uint32(data[offTag:]),
		DataResidue: le.Uint32(data[offLength:]),
		Status:      data[12],
	}
	return nil
}
