package hal

import "fmt"

// MaxEndpoints is the number of endpoint numbers backed by a bank table.
const MaxEndpoints = 8

// MaxPacketSize is the size of every packet buffer used by the core.
const MaxPacketSize = 64

// Direction selects one of the two banks of an endpoint. Its value is the
// bank index: OUT uses bank 0 and IN uses bank 1.
type Direction uint8

// Bank directions.
const (
	Out Direction = 0 // Host to device (bank 0)
	In  Direction = 1 // Device to host (bank 1)
)

// String returns "OUT" or "IN".
func (d Direction) String() string {
	if d == In {
		return "IN"
	}
	return "OUT"
}

// EndpointAddress combines an endpoint number and direction into the
// address form used on the wire (bit 7 set for IN).
func EndpointAddress(ep uint8, dir Direction) uint8 {
	if dir == In {
		return ep&0x0F | 0x80
	}
	return ep & 0x0F
}

// SplitAddress returns the endpoint number and direction of a wire address.
func SplitAddress(addr uint8) (ep uint8, dir Direction) {
	if addr&0x80 != 0 {
		return addr & 0x0F, In
	}
	return addr & 0x0F, Out
}

// TransferType is the endpoint transfer type (USB 2.0 Table 9-13).
type TransferType uint8

// Transfer types.
const (
	TransferControl     TransferType = 0x00
	TransferIsochronous TransferType = 0x01
	TransferBulk        TransferType = 0x02
	TransferInterrupt   TransferType = 0x03
)

// String returns a human-readable transfer type name.
func (t TransferType) String() string {
	switch t {
	case TransferControl:
		return "control"
	case TransferIsochronous:
		return "isochronous"
	case TransferBulk:
		return "bulk"
	case TransferInterrupt:
		return "interrupt"
	default:
		return fmt.Sprintf("transfer(%d)", uint8(t))
	}
}

// BankDescriptor is one direction-specific buffer slot of an endpoint.
//
// It mirrors the SAMD-family endpoint descriptor: the buffer address, the
// PCKSIZE word (byte count, multi-packet size, size code, auto-ZLP) and the
// bank-ready flag. The core mutates it through device.Banks only; a
// Controller writes ByteCount and Ready for received packets the way the
// USB DMA engine does.
type BankDescriptor struct {
	Buffer          []byte // Packet buffer; outlives the descriptor
	SizeCode        uint8  // Max packet size code (see SizeCode)
	ByteCount       uint16 // Bytes staged (IN) or received (OUT)
	MultiPacketSize uint16 // Multi-packet transfer size; unused by the core
	AutoZLP         bool   // Append a ZLP to multi-packet IN transfers
	Ready           bool   // BKnRDY: IN staged for sending, OUT holds data
}

// PCKSIZE field layout.
const (
	PckSizeByteCountMask = 0x3FFF
	PckSizeMultiShift    = 14
	PckSizeMultiMask     = 0x3FFF
	PckSizeSizeShift     = 28
	PckSizeSizeMask      = 0x7
	PckSizeAutoZLP       = 1 << 31
)

// SizeCode returns the smallest PCKSIZE.SIZE code whose packet size holds
// maxPacketSize. Code 7 (1023 bytes) covers everything above 512.
func SizeCode(maxPacketSize uint16) uint8 {
	var code uint8
	for code < 7 && PacketSize(code) < maxPacketSize {
		code++
	}
	return code
}

// PacketSize decodes a SIZE code back into bytes.
func PacketSize(code uint8) uint16 {
	if code&PckSizeSizeMask == 7 {
		return 1023
	}
	return 8 << (code & PckSizeSizeMask)
}

// MaxPacketSize returns the decoded max packet size of the bank.
func (b *BankDescriptor) MaxPacketSize() uint16 {
	return PacketSize(b.SizeCode)
}

// PckSize encodes the descriptor's PCKSIZE word.
func (b *BankDescriptor) PckSize() uint32 {
	v := uint32(b.ByteCount)&PckSizeByteCountMask |
		(uint32(b.MultiPacketSize)&PckSizeMultiMask)<<PckSizeMultiShift |
		(uint32(b.SizeCode)&PckSizeSizeMask)<<PckSizeSizeShift
	if b.AutoZLP {
		v |= PckSizeAutoZLP
	}
	return v
}

// SetPckSize decodes a PCKSIZE word into the descriptor.
func (b *BankDescriptor) SetPckSize(v uint32) {
	b.ByteCount = uint16(v & PckSizeByteCountMask)
	b.MultiPacketSize = uint16((v >> PckSizeMultiShift) & PckSizeMultiMask)
	b.SizeCode = uint8((v >> PckSizeSizeShift) & PckSizeSizeMask)
	b.AutoZLP = v&PckSizeAutoZLP != 0
}

// Payload returns the ByteCount bytes at the head of the buffer.
func (b *BankDescriptor) Payload() []byte {
	n := int(b.ByteCount)
	if n > len(b.Buffer) {
		n = len(b.Buffer)
	}
	return b.Buffer[:n]
}

// Controller is the register-level USB device peripheral consumed by the
// core. Every method completes in bounded time and is called from the USB
// event context.
type Controller interface {
	// ConfigureBank sets the endpoint type of one bank and points the
	// hardware at desc. A nil desc disables the bank. Either way the bank
	// leaves with no STALL request and its data toggle at DATA0.
	ConfigureBank(ep uint8, dir Direction, typ TransferType, desc *BankDescriptor)

	// SetReady sets BKnRDY. For IN it starts transmission of
	// desc.ByteCount bytes; for OUT it marks the bank full so no packet
	// is accepted.
	SetReady(ep uint8, dir Direction)

	// ClearReady clears BKnRDY. For OUT it frees the bank for the next
	// packet; for IN it withdraws staged data.
	ClearReady(ep uint8, dir Direction)

	// Stall requests a STALL handshake on the bank.
	Stall(ep uint8, dir Direction)

	// ClearStall removes a STALL request and resets the data toggle.
	ClearStall(ep uint8, dir Direction)

	// SetAddress writes the device address register (DADD) verbatim.
	// Bit 7 (ADDEN) enables the address.
	SetAddress(dadd uint8)
}

// EventKind identifies a USB bus event.
type EventKind uint8

// Event kinds raised by a Controller.
const (
	EventBusReset    EventKind = iota // End of bus reset
	EventSetup                        // SETUP received on the endpoint
	EventTransferIn                   // IN transfer complete
	EventTransferOut                  // OUT transfer complete
	EventStallIn                      // STALL handshake sent on IN bank
	EventStallOut                     // STALL handshake sent on OUT bank
)

// String returns a human-readable event kind.
func (k EventKind) String() string {
	switch k {
	case EventBusReset:
		return "bus-reset"
	case EventSetup:
		return "setup"
	case EventTransferIn:
		return "transfer-in"
	case EventTransferOut:
		return "transfer-out"
	case EventStallIn:
		return "stall-in"
	case EventStallOut:
		return "stall-out"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

// Event is one interrupt-level notification from the controller.
// Endpoint is ignored for EventBusReset.
type Event struct {
	Kind     EventKind
	Endpoint uint8
}

// String returns a compact description of the event.
func (e Event) String() string {
	if e.Kind == EventBusReset {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s ep%d", e.Kind, e.Endpoint)
}
