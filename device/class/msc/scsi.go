package msc

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/ardnew/softmsc/pkg"
)

// InquiryResponse is the 36-byte standard INQUIRY data. The ASCII fields
// are space padded on the wire.
type InquiryResponse struct {
	DeviceType       uint8
	RMB              uint8
	Version          uint8
	ResponseFormat   uint8
	AdditionalLength uint8
	Flags            [3]uint8
	VendorID         [8]byte
	ProductID        [16]byte
	ProductRev       [4]byte
}

// NewInquiryResponse fills an SPC-2 response. Identification strings
// longer than their field are cut.
func NewInquiryResponse(deviceType uint8, removable bool, vendor, product, revision string) *InquiryResponse {
	r := &InquiryResponse{
		DeviceType:       deviceType,
		Version:          InquiryVersionSPC2,
		ResponseFormat:   InquiryResponseFormatSPC,
		AdditionalLength: InquiryStandardSize - 4,
	}
	if removable {
		r.RMB = InquiryRMB
	}
	fill(r.VendorID[:], vendor)
	fill(r.ProductID[:], product)
	fill(r.ProductRev[:], revision)
	return r
}

// MarshalTo returns InquiryStandardSize, or 0 if buf cannot hold it.
func (r *InquiryResponse) MarshalTo(buf []byte) int {
	if len(buf) < InquiryStandardSize {
		return 0
	}
	hdr := [...]byte{r.DeviceType, r.RMB, r.Version, r.ResponseFormat, r.AdditionalLength}
	b := append(buf[:0], hdr[:]...)
	b = append(b, r.Flags[:]...)
	b = append(b, r.VendorID[:]...)
	b = append(b, r.ProductID[:]...)
	b = append(b, r.ProductRev[:]...)
	return len(b)
}

// ParseInquiryResponse decodes at least InquiryStandardSize bytes.
func ParseInquiryResponse(data []byte, out *InquiryResponse) error {
	if len(data) < InquiryStandardSize {
		return fmt.Errorf("inquiry length %d: %w", len(data), pkg.ErrProtocol)
	}
	*out = InquiryResponse{
		DeviceType:       data[0],
		RMB:              data[1],
		Version:          data[2],
		ResponseFormat:   data[3],
		AdditionalLength: data[4],
	}
	rest := data[5:]
	rest = rest[copy(out.Flags[:], rest):]
	rest = rest[copy(out.VendorID[:], rest):]
	rest = rest[copy(out.ProductID[:], rest):]
	copy(out.ProductRev[:], rest)
	return nil
}

func (r *InquiryResponse) Vendor() string   { return trim(r.VendorID[:]) }
func (r *InquiryResponse) Product() string  { return trim(r.ProductID[:]) }
func (r *InquiryResponse) Revision() string { return trim(r.ProductRev[:]) }

// ReadCapacity10Response is the big-endian READ CAPACITY (10) payload.
type ReadCapacity10Response struct {
	LastLBA     uint32 // address of the final block, not the count
	BlockLength uint32
}

// MarshalTo returns ReadCapacity10Size, or 0 if buf cannot hold it.
func (r *ReadCapacity10Response) MarshalTo(buf []byte) int {
	if len(buf) < ReadCapacity10Size {
		return 0
	}
	b := binary.BigEndian.AppendUint32(buf[:0], r.LastLBA)
	b = binary.BigEndian.AppendUint32(b, r.BlockLength)
	return len(b)
}

// ParseReadCapacity10 decodes at least ReadCapacity10Size bytes.
func ParseReadCapacity10(data []byte, out *ReadCapacity10Response) error {
	if len(data) < ReadCapacity10Size {
		return fmt.Errorf("read capacity length %d: %w", len(data), pkg.ErrProtocol)
	}
	out.LastLBA = binary.BigEndian.Uint32(data)
	out.BlockLength = binary.BigEndian.Uint32(data[4:])
	return nil
}

// Blocks is the block count, LastLBA+1.
func (r *ReadCapacity10Response) Blocks() uint64 { return uint64(r.LastLBA) + 1 }

func fill(dst []byte, s string) {
	for i := copy(dst, s); i < len(dst); i++ {
		dst[i] = ' '
	}
}

func trim(b []byte) string { return string(bytes.TrimRight(b, " ")) }
