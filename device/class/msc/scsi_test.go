package msc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ardnew/softmsc/pkg"
)

func TestInquiryResponse(t *testing.T) {
	var buf [InquiryStandardSize]byte
	r := NewInquiryResponse(DeviceTypeDisk, true, "j mamish", "mass storage", "0001")
	if n := r.MarshalTo(buf[:]); n != InquiryStandardSize {
		t.Fatalf("MarshalTo() = %d, want %d", n, InquiryStandardSize)
	}

	want := []byte{
		0x00, 0x80, 0x04, 0x02, 0x20, 0x00, 0x00, 0x00,
		'j', ' ', 'm', 'a', 'm', 'i', 's', 'h',
		'm', 'a', 's', 's', ' ', 's', 't', 'o', 'r', 'a', 'g', 'e', ' ', ' ', ' ', ' ',
		'0', '0', '0', '1',
	}
	if !bytes.Equal(buf[:], want) {
		t.Errorf("INQUIRY =\n% X\nwant\n% X", buf[:], want)
	}

	var parsed InquiryResponse
	if err := ParseInquiryResponse(buf[:], &parsed); err != nil {
		t.Fatalf("ParseInquiryResponse() error = %v", err)
	}
	if parsed.Vendor() != "j mamish" || parsed.Product() != "mass storage" || parsed.Revision() != "0001" {
		t.Errorf("identity = %q %q %q", parsed.Vendor(), parsed.Product(), parsed.Revision())
	}
}

func TestInquiryResponse_Truncates(t *testing.T) {
	r := NewInquiryResponse(deviceTypeUnknown, false, "a very long vendor", "p", "12345")
	if r.Vendor() != "a very l" {
		t.Errorf("Vendor() = %q", r.Vendor())
	}
	if r.Revision() != "1234" {
		t.Errorf("Revision() = %q", r.Revision())
	}
	if r.RMB != 0 || r.DeviceType != deviceTypeUnknown {
		t.Errorf("RMB %#02x type %#02x", r.RMB, r.DeviceType)
	}
}

func TestParseInquiryResponse_Short(t *testing.T) {
	var r InquiryResponse
	if err := ParseInquiryResponse(make([]byte, 35), &r); !errors.Is(err, pkg.ErrProtocol) {
		t.Errorf("err = %v, want ErrProtocol", err)
	}
}

func TestReadCapacity10(t *testing.T) {
	var buf [ReadCapacity10Size]byte
	r := ReadCapacity10Response{LastLBA: DefaultBlockCount - 1, BlockLength: DefaultBlockSize}
	if n := r.MarshalTo(buf[:]); n != ReadCapacity10Size {
		t.Fatalf("MarshalTo() = %d", n)
	}

	want := []byte{0x00, 0x00, 0x07, 0xFF, 0x00, 0x00, 0x02, 0x00}
	if !bytes.Equal(buf[:], want) {
		t.Errorf("READ CAPACITY = % X, want % X", buf[:], want)
	}

	var parsed ReadCapacity10Response
	if err := ParseReadCapacity10(buf[:], &parsed); err != nil {
		t.Fatalf("ParseReadCapacity10() error = %v", err)
	}
	if parsed.Blocks() != DefaultBlockCount || parsed.BlockLength != DefaultBlockSize {
		t.Errorf("blocks %d length %d", parsed.Blocks(), parsed.BlockLength)
	}
	if err := ParseReadCapacity10(buf[:7], &parsed); !errors.Is(err, pkg.ErrProtocol) {
		t.Errorf("short response err = %v", err)
	}
}

const deviceTypeUnknown = 0x1F
