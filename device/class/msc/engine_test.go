package msc

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// cbwBytes returns a serialized CBW for cb.
func cbwBytes(tag, length uint32, dataIn bool, cb ...byte) []byte {
	buf := make([]byte, CBWSize)
	NewCBW(tag, length, dataIn, cb).MarshalTo(buf)
	return buf
}

// checkCSW decodes the CSW staged at the head of in.
func checkCSW(t *testing.T, in []byte, tag, residue uint32, status uint8) {
	t.Helper()
	var csw CommandStatusWrapper
	if err := ParseCSW(in[:CSWSize], &csw); err != nil {
		t.Fatalf("staged CSW: %v", err)
	}
	if csw.Tag != tag || csw.DataResidue != residue || csw.Status != status {
		t.Errorf("CSW tag %#08x residue %d status %d, want %#08x %d %d",
			csw.Tag, csw.DataResidue, csw.Status, tag, residue, status)
	}
}

func expect(t *testing.T, got, want Outcome) {
	t.Helper()
	if got != want {
		t.Fatalf("outcome = %v, want %v", got, want)
	}
}

func expectState(t *testing.T, e *Engine, want FlowState) {
	t.Helper()
	if got := e.State().Current; got != want {
		t.Fatalf("state = %v, want %v", got, want)
	}
}

func TestEngineInquiry(t *testing.T) {
	e := NewEngine(DefaultConfig())
	var in [PacketSize]byte

	o := e.Handle(Out, cbwBytes(0x11223344, 36, true, SCSIInquiry, 0, 0, 0, 36, 0), in[:])
	expect(t, o, Send(36))
	expectState(t, e, DataInPending)

	var inq InquiryResponse
	if err := ParseInquiryResponse(in[:36], &inq); err != nil {
		t.Fatal(err)
	}
	if inq.Vendor() != "softmsc" || inq.RMB != InquiryRMB || inq.AdditionalLength != 0x20 {
		t.Errorf("inquiry = %+v", inq)
	}

	expect(t, e.Handle(In, nil, in[:]), Send(CSWSize))
	checkCSW(t, in[:], 0x11223344, 0, CSWStatusGood)
	expectState(t, e, CSWPending)

	expect(t, e.Handle(In, nil, in[:]), NoData)
	expectState(t, e, ExpectingCBW)
}

func TestEngineInquiryLengths(t *testing.T) {
	tests := []struct {
		name    string
		length  uint32
		send    int
		residue uint32
	}{
		{"short", 5, 5, 0},
		{"exact", 36, 36, 0},
		{"long", 64, 36, 28},
		{"huge", 255, 36, 219},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(DefaultConfig())
			var in [PacketSize]byte

			expect(t, e.Handle(Out, cbwBytes(9, tt.length, true, SCSIInquiry), in[:]), Send(tt.send))
			if st := e.State(); st.Remaining != tt.length-uint32(tt.send) {
				t.Errorf("Remaining = %d", st.Remaining)
			}
			expect(t, e.Handle(In, nil, in[:]), Send(CSWSize))
			checkCSW(t, in[:], 9, tt.residue, CSWStatusGood)
		})
	}
}

func TestEngineZeroLengthDataStage(t *testing.T) {
	e := NewEngine(DefaultConfig())
	var in [PacketSize]byte

	expect(t, e.Handle(Out, cbwBytes(3, 0, true, SCSIInquiry), in[:]), Send(CSWSize))
	expectState(t, e, CSWPending)
	checkCSW(t, in[:], 3, 0, CSWStatusGood)
}

func TestEngineTestUnitReady(t *testing.T) {
	e := NewEngine(DefaultConfig())
	var in [PacketSize]byte

	expect(t, e.Handle(Out, cbwBytes(0xAA, 0, false, SCSITestUnitReady), in[:]), Send(CSWSize))
	checkCSW(t, in[:], 0xAA, 0, CSWStatusGood)
	expect(t, e.Handle(In, nil, in[:]), NoData)
	expectState(t, e, ExpectingCBW)
}

func TestEngineReadCapacity(t *testing.T) {
	e := NewEngine(DefaultConfig())
	var in [PacketSize]byte

	expect(t, e.Handle(Out, cbwBytes(1, 8, true, SCSIReadCapacity10), in[:]), Send(8))
	want := []byte{0x00, 0x00, 0x07, 0xFF, 0x00, 0x00, 0x02, 0x00}
	if !bytes.Equal(in[:8], want) {
		t.Errorf("READ CAPACITY = % X, want % X", in[:8], want)
	}
	expect(t, e.Handle(In, nil, in[:]), Send(CSWSize))
	checkCSW(t, in[:], 1, 0, CSWStatusGood)
}

func TestEngineReadCapacityConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BlockCount = 0x10000
	cfg.BlockSize = 4096
	e := NewEngine(cfg)
	var in [PacketSize]byte

	expect(t, e.Handle(Out, cbwBytes(1, 8, true, SCSIReadCapacity10), in[:]), Send(8))
	if got := binary.BigEndian.Uint32(in[0:4]); got != 0xFFFF {
		t.Errorf("last LBA = %#x, want 0xffff", got)
	}
	if got := binary.BigEndian.Uint32(in[4:8]); got != 4096 {
		t.Errorf("block length = %d, want 4096", got)
	}
}

func TestEngineUnsupportedCommand(t *testing.T) {
	for _, op := range []byte{SCSIModeSense6, SCSIRequestSense, SCSIRead10, SCSIWrite10, 0xFF} {
		e := NewEngine(DefaultConfig())
		var in [PacketSize]byte

		expect(t, e.Handle(Out, cbwBytes(5, 192, true, op), in[:]), RequestStall)
		expectState(t, e, Stalled)

		// STALL handshakes do not advance the cycle.
		expect(t, e.Handle(In, nil, in[:]), NoData)
		expectState(t, e, Stalled)

		expect(t, e.Handle(InStallCleared, nil, in[:]), Send(CSWSize))
		checkCSW(t, in[:], 5, 192, CSWStatusFailed)
		expect(t, e.Handle(In, nil, in[:]), NoData)
		expectState(t, e, ExpectingCBW)
	}
}

func TestEnginePhaseErrors(t *testing.T) {
	var in [PacketSize]byte
	tests := []struct {
		name  string
		setup func(e *Engine)
		dir   Direction
		out   []byte
	}{
		{"short cbw", func(*Engine) {}, Out, make([]byte, 30)},
		{"long cbw", func(*Engine) {}, Out, make([]byte, 32)},
		{"bad signature", func(*Engine) {}, Out, make([]byte, CBWSize)},
		{"out during data in", func(e *Engine) {
			e.Handle(Out, cbwBytes(1, 36, true, SCSIInquiry), in[:])
		}, Out, cbwBytes(2, 0, false, SCSITestUnitReady)},
		{"out during csw", func(e *Engine) {
			e.Handle(Out, cbwBytes(1, 0, false, SCSITestUnitReady), in[:])
		}, Out, cbwBytes(2, 0, false, SCSITestUnitReady)},
		{"out while stalled", func(e *Engine) {
			e.Handle(Out, cbwBytes(1, 0, false, SCSIModeSense6), in[:])
		}, Out, cbwBytes(2, 0, false, SCSITestUnitReady)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(DefaultConfig())
			tt.setup(e)
			expect(t, e.Handle(tt.dir, tt.out, in[:]), RequestStall)
			expectState(t, e, Error)

			// Error is sticky until Reset.
			for _, dir := range []Direction{Out, In, InStallCleared, OutStallCleared} {
				expect(t, e.Handle(dir, cbwBytes(3, 0, false, SCSITestUnitReady), in[:]), RequestStall)
			}
			e.Reset()
			expectState(t, e, ExpectingCBW)
			expect(t, e.Handle(Out, cbwBytes(4, 0, false, SCSITestUnitReady), in[:]), Send(CSWSize))
		})
	}
}

func TestEngineAcceptAnySignature(t *testing.T) {
	cfg := DefaultConfig()
	cfg.AcceptAnySignature = true
	e := NewEngine(cfg)
	var in [PacketSize]byte

	raw := cbwBytes(0x55, 0, false, SCSITestUnitReady)
	copy(raw, "JUNK")
	expect(t, e.Handle(Out, raw, in[:]), Send(CSWSize))
	checkCSW(t, in[:], 0x55, 0, CSWStatusGood)
}

func TestEngineIgnoresIdleIn(t *testing.T) {
	e := NewEngine(DefaultConfig())
	var in [PacketSize]byte

	for _, dir := range []Direction{In, InStallCleared, OutStallCleared} {
		expect(t, e.Handle(dir, nil, in[:]), NoData)
		expectState(t, e, ExpectingCBW)
	}
}

func TestEngineStateTagsMatch(t *testing.T) {
	e := NewEngine(DefaultConfig())
	var in [PacketSize]byte

	e.Handle(Out, cbwBytes(0xDEADBEEF, 36, true, SCSIInquiry), in[:])
	st := e.State()
	if st.CSW.Tag != st.CBW.Tag {
		t.Errorf("CSW tag %#x, CBW tag %#x", st.CSW.Tag, st.CBW.Tag)
	}
	if st.Remaining > st.CBW.DataTransferLength {
		t.Errorf("Remaining %d exceeds %d", st.Remaining, st.CBW.DataTransferLength)
	}
}

func TestOutcomeString(t *testing.T) {
	tests := []struct {
		o    Outcome
		want string
	}{
		{Send(13), "Send(13)"},
		{NoData, "NoData"},
		{RequestStall, "RequestStall"},
	}
	for _, tt := range tests {
		if got := tt.o.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
	if got := Error.String(); got != "Error" {
		t.Errorf("Error.String() = %q", got)
	}
	if got := InStallCleared.String(); got != "in-halt-cleared" {
		t.Errorf("InStallCleared.String() = %q", got)
	}
}
