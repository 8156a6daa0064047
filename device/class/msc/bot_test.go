package msc

import (
	"bytes"
	"errors"
	"testing"

	"github.com/ardnew/softmsc/pkg"
)

func TestCBW_MarshalTo(t *testing.T) {
	cbw := NewCBW(0x11223344, 36, true, []byte{SCSIInquiry, 0, 0, 0, 36, 0})

	var buf [CBWSize]byte
	if n := cbw.MarshalTo(buf[:]); n != CBWSize {
		t.Fatalf("MarshalTo() = %d, want %d", n, CBWSize)
	}

	want := []byte{
		0x55, 0x53, 0x42, 0x43, // USBC
		0x44, 0x33, 0x22, 0x11, // tag
		0x24, 0x00, 0x00, 0x00, // data transfer length
		0x80, // flags: IN
		0x00, // LUN
		0x06, // CB length
		0x12, 0x00, 0x00, 0x00, 0x24, 0x00,
		0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	}
	if !bytes.Equal(buf[:], want) {
		t.Errorf("CBW =\n% X\nwant\n% X", buf[:], want)
	}
}

func TestParseCBW(t *testing.T) {
	var buf [CBWSize]byte
	NewCBW(7, 8, true, []byte{SCSIReadCapacity10, 0, 0, 0, 0, 0, 0, 0, 0, 0}).MarshalTo(buf[:])

	var cbw CommandBlockWrapper
	if err := ParseCBW(buf[:], &cbw); err != nil {
		t.Fatalf("ParseCBW() error = %v", err)
	}
	if !cbw.Valid() || cbw.Tag != 7 || cbw.DataTransferLength != 8 {
		t.Errorf("cbw = %+v", cbw)
	}
	if !cbw.IsDataIn() || cbw.IsDataOut() {
		t.Error("direction not IN")
	}
	if cbw.Opcode() != SCSIReadCapacity10 || cbw.CBLength != 10 {
		t.Errorf("opcode %#02x length %d", cbw.Opcode(), cbw.CBLength)
	}
}

func TestParseCBW_Length(t *testing.T) {
	for _, n := range []int{0, 13, 30, 32, 64} {
		var cbw CommandBlockWrapper
		if err := ParseCBW(make([]byte, n), &cbw); !errors.Is(err, pkg.ErrInvalidCBW) {
			t.Errorf("ParseCBW(%d bytes) err = %v, want ErrInvalidCBW", n, err)
		}
	}
}

func TestParseCBW_SignatureNotChecked(t *testing.T) {
	buf := make([]byte, CBWSize)
	copy(buf, "XXXX")

	var cbw CommandBlockWrapper
	if err := ParseCBW(buf, &cbw); err != nil {
		t.Fatalf("ParseCBW() error = %v", err)
	}
	if cbw.Valid() {
		t.Error("Valid() = true for a bad signature")
	}
}

func TestCSW_MarshalTo(t *testing.T) {
	var buf [CSWSize]byte
	if n := NewCSW(0x11223344, 28, CSWStatusFailed).MarshalTo(buf[:]); n != CSWSize {
		t.Fatalf("MarshalTo() = %d, want %d", n, CSWSize)
	}

	want := []byte{
		0x55, 0x53, 0x42, 0x53, // USBS
		0x44, 0x33, 0x22, 0x11,
		0x1C, 0x00, 0x00, 0x00,
		0x01,
	}
	if !bytes.Equal(buf[:], want) {
		t.Errorf("CSW = % X, want % X", buf[:], want)
	}
	if n := NewCSW(1, 0, 0).MarshalTo(buf[:12]); n != 0 {
		t.Errorf("MarshalTo(12 bytes) = %d, want 0", n)
	}
}

func TestParseCSW(t *testing.T) {
	var buf [CSWSize]byte
	NewCSW(42, 3, CSWStatusGood).MarshalTo(buf[:])

	var csw CommandStatusWrapper
	if err := ParseCSW(buf[:], &csw); err != nil {
		t.Fatalf("ParseCSW() error = %v", err)
	}
	if csw.Tag != 42 || csw.DataResidue != 3 || csw.Status != CSWStatusGood {
		t.Errorf("csw = %+v", csw)
	}

	if err := ParseCSW(buf[:12], &csw); !errors.Is(err, pkg.ErrInvalidCSW) {
		t.Errorf("short CSW err = %v", err)
	}
	buf[3] = 'X'
	if err := ParseCSW(buf[:], &csw); !errors.Is(err, pkg.ErrInvalidCSW) {
		t.Errorf("bad signature err = %v", err)
	}
}
