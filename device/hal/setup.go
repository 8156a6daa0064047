package hal

import (
	"encoding/binary"
	"fmt"

	"github.com/ardnew/softmsc/pkg"
)

// SetupPacketSize is the length of the SETUP stage payload.
const SetupPacketSize = 8

// bmRequestType fields (USB 2.0 Table 9-2).
const (
	RequestTypeDirectionMask = 0x80
	RequestTypeTypeMask      = 0x60
	RequestTypeRecipientMask = 0x1F

	RequestDirectionHostToDevice = 0x00
	RequestDirectionDeviceToHost = 0x80

	RequestTypeStandard = 0x00
	RequestTypeClass    = 0x20
	RequestTypeVendor   = 0x40

	RequestRecipientDevice    = 0x00
	RequestRecipientInterface = 0x01
	RequestRecipientEndpoint  = 0x02
	RequestRecipientOther     = 0x03
)

// SetupPacket is a decoded SETUP stage. The control pipe latches one per
// transaction and treats it as read-only until the next SETUP.
type SetupPacket struct {
	RequestType uint8 // bmRequestType
	Request     uint8
	Value       uint16
	Index       uint16
	Length      uint16 // wLength, the most the host will move
}

// ParseSetupPacket decodes the first SetupPacketSize bytes of data.
func ParseSetupPacket(data []byte, out *SetupPacket) error {
	if len(data) < SetupPacketSize {
		return fmt.Errorf("%d bytes: %w", len(data), pkg.ErrSetupPacketTooShort)
	}
	le := binary.LittleEndian
	*out = SetupPacket{
		RequestType: data[0],
		Request:     data[1],
		Value:       le.Uint16(data[2:]),
		Index:       le.Uint16(data[4:]),
		Length:      le.Uint16(data[6:]),
	}
	return nil
}

// MarshalTo encodes s into buf and returns SetupPacketSize, or 0 when buf
// is short.
func (s *SetupPacket) MarshalTo(buf []byte) int {
	if len(buf) < SetupPacketSize {
		return 0
	}
	b := append(buf[:0], s.RequestType, s.Request)
	b = binary.LittleEndian.AppendUint16(b, s.Value)
	b = binary.LittleEndian.AppendUint16(b, s.Index)
	b = binary.LittleEndian.AppendUint16(b, s.Length)
	return len(b)
}

// IsDeviceToHost reports an IN data stage. With wLength 0 it only
// describes the request.
func (s *SetupPacket) IsDeviceToHost() bool {
	return s.RequestType&RequestTypeDirectionMask == RequestDirectionDeviceToHost
}

func (s *SetupPacket) Type() uint8      { return s.RequestType & RequestTypeTypeMask }
func (s *SetupPacket) Recipient() uint8 { return s.RequestType & RequestTypeRecipientMask }
func (s *SetupPacket) IsStandard() bool { return s.Type() == RequestTypeStandard }
func (s *SetupPacket) IsClass() bool    { return s.Type() == RequestTypeClass }

// DescriptorType and DescriptorIndex split wValue of GET_DESCRIPTOR.
func (s *SetupPacket) DescriptorType() uint8  { return uint8(s.Value >> 8) }
func (s *SetupPacket) DescriptorIndex() uint8 { return uint8(s.Value) }

// EndpointAddress is wIndex of an endpoint-recipient request.
func (s *SetupPacket) EndpointAddress() uint8 { return uint8(s.Index) }

var (
	requestTypeNames = [...]string{"std", "class", "vendor", "rsvd"}
	recipientNames   = [...]string{"device", "interface", "endpoint", "other"}
)

// String formats the packet for logs, e.g.
// "IN std device req=0x06 val=0x0100 idx=0x0000 len=18".
func (s *SetupPacket) String() string {
	dir := Direction(s.RequestType >> 7)
	recip := "rsvd"
	if r := s.Recipient(); int(r) < len(recipientNames) {
		recip = recipientNames[r]
	}
	return fmt.Sprintf("%s %s %s req=0x%02x val=0x%04x idx=0x%04x len=%d",
		dir, requestTypeNames[s.Type()>>5], recip, s.Request, s.Value, s.Index, s.Length)
}
