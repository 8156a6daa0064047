package device

import (
	"bytes"
	"testing"

	"github.com/ardnew/softmsc/device/hal"
	"github.com/ardnew/softmsc/device/hal/sim"
)

func TestControlSetAddressDeferred(t *testing.T) {
	s, ctrl, host, _ := newTestStack(t)
	host.Reset()

	var p hal.SetupPacket
	GetSetAddressSetup(&p, 0x2A)
	if err := ctrl.Setup(ControlEndpoint, p); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}

	snap := s.Snapshot()
	if !snap.AddressPending || snap.PendingAddress != 0x2A {
		t.Errorf("pending = %v %#x, want true 0x2a", snap.AddressPending, snap.PendingAddress)
	}
	if snap.Stage != StageNoDataStatus {
		t.Errorf("Stage = %v, want NoDataStatus", snap.Stage)
	}
	if snap.Address != 0 || ctrl.Address() != 0 {
		t.Errorf("address applied before status stage: %d / %d", snap.Address, ctrl.Address())
	}

	status, err := ctrl.In(ControlEndpoint)
	if err != nil {
		t.Fatalf("status In() error = %v", err)
	}
	if len(status) != 0 {
		t.Errorf("status stage = % X, want ZLP", status)
	}

	snap = s.Snapshot()
	if snap.Address != 0x2A || ctrl.Address() != 0x2A {
		t.Errorf("address = %d / %d, want 42", snap.Address, ctrl.Address())
	}
	if snap.AddressPending {
		t.Error("address still pending after status stage")
	}
	if snap.State != StateAddress {
		t.Errorf("State = %v, want Address", snap.State)
	}
	if snap.Stage != StageExpectSetup {
		t.Errorf("Stage = %v, want ExpectSetup", snap.Stage)
	}
}

func TestControlSetAddressTraceOrder(t *testing.T) {
	_, ctrl, host, _ := newTestStack(t)
	host.Reset()
	ctrl.ClearTrace()

	if err := host.SetAddress(5); err != nil {
		t.Fatalf("SetAddress() error = %v", err)
	}

	statusAt, writeAt, writes := -1, -1, 0
	for i, r := range ctrl.Trace() {
		switch {
		case r.Op == sim.OpIn && r.Endpoint == ControlEndpoint:
			statusAt = i
		case r.Op == sim.OpSetAddress:
			writeAt = i
			writes++
			if r.Value != 0x85 {
				t.Errorf("DADD written %#02x, want 0x85", r.Value)
			}
		}
	}
	if writes != 1 {
		t.Fatalf("DADD written %d times, want 1", writes)
	}
	if statusAt < 0 || writeAt < statusAt {
		t.Errorf("DADD write at %d, status IN at %d; write must follow status", writeAt, statusAt)
	}
}

func TestControlNewSetupDropsPendingAddress(t *testing.T) {
	s, ctrl, host, _ := newTestStack(t)
	host.Reset()

	var p hal.SetupPacket
	GetSetAddressSetup(&p, 9)
	if err := ctrl.Setup(ControlEndpoint, p); err != nil {
		t.Fatalf("Setup() error = %v", err)
	}
	// The host abandons the transfer and starts another.
	if _, err := host.GetDescriptor(DescriptorTypeDevice, 18); err != nil {
		t.Fatalf("GetDescriptor() error = %v", err)
	}

	snap := s.Snapshot()
	if snap.AddressPending || snap.Address != 0 || ctrl.Address() != 0 {
		t.Errorf("abandoned SET_ADDRESS applied: pending %v address %d", snap.AddressPending, snap.Address)
	}
}

func TestControlGetDescriptorLengths(t *testing.T) {
	s, _, host, _ := newTestStack(t)
	host.Reset()

	tests := []struct {
		name     string
		descType uint8
		length   uint16
		want     int
	}{
		{"device header", DescriptorTypeDevice, 8, 8},
		{"device exact", DescriptorTypeDevice, 18, 18},
		{"device long", DescriptorTypeDevice, 64, 18},
		{"config header", DescriptorTypeConfiguration, 9, 9},
		{"config exact", DescriptorTypeConfiguration, 32, 32},
		{"config 255", DescriptorTypeConfiguration, 255, 32},
		{"config one byte", DescriptorTypeConfiguration, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := host.GetDescriptor(tt.descType, tt.length)
			if err != nil {
				t.Fatalf("GetDescriptor() error = %v", err)
			}
			if len(data) != tt.want {
				t.Fatalf("len = %d, want %d", len(data), tt.want)
			}
			full, _ := s.Descriptors().Resolve(tt.descType, 0xFFFF)
			if !bytes.Equal(data, full[:tt.want]) {
				t.Errorf("data = % X, want % X", data, full[:tt.want])
			}
		})
	}
}

func TestControlUnsupportedDescriptorStalls(t *testing.T) {
	s, ctrl, host, _ := newTestStack(t)
	host.Reset()

	for _, descType := range []uint8{DescriptorTypeString, DescriptorTypeDeviceQualifier, 0x22} {
		_, err := host.GetDescriptor(descType, 64)
		if !sim.IsStall(err) {
			t.Errorf("GetDescriptor(%#02x) err = %v, want stall", descType, err)
		}
		if !ctrl.Stalled(ControlEndpoint, hal.In) || !ctrl.Stalled(ControlEndpoint, hal.Out) {
			t.Errorf("GetDescriptor(%#02x) did not stall both EP0 banks", descType)
		}
		if st := s.Snapshot().Stage; st != StageExpectSetup {
			t.Errorf("Stage = %v, want ExpectSetup", st)
		}
	}

	// The next SETUP clears the stall.
	if _, err := host.GetDescriptor(DescriptorTypeDevice, 18); err != nil {
		t.Errorf("GetDescriptor after stall: %v", err)
	}
	if ctrl.Stalled(ControlEndpoint, hal.In) {
		t.Error("EP0 IN still stalled")
	}
}

func TestControlGetStatusStalls(t *testing.T) {
	_, _, host, _ := newTestStack(t)
	host.Reset()

	var p hal.SetupPacket
	GetStatusSetup(&p, hal.RequestRecipientDevice, 0)
	if _, err := host.ControlIn(p); !sim.IsStall(err) {
		t.Errorf("GET_STATUS err = %v, want stall", err)
	}
}

func TestControlClearHalt(t *testing.T) {
	s, ctrl, host, drv := newTestStack(t)
	if _, _, err := host.Enumerate(4); err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}

	s.Inspect(func() { s.Banks().Stall(BulkInEndpoint, hal.In) })
	if !ctrl.Stalled(BulkInEndpoint, hal.In) {
		t.Fatal("bulk IN not stalled")
	}

	if err := host.ClearHalt(0x81); err != nil {
		t.Fatalf("ClearHalt() error = %v", err)
	}
	if ctrl.Stalled(BulkInEndpoint, hal.In) {
		t.Error("bulk IN still stalled")
	}
	var stalled bool
	s.Inspect(func() { stalled = s.Banks().Stalled(BulkInEndpoint, hal.In) })
	if stalled {
		t.Error("bank table still records the stall")
	}
	if len(drv.clearHalts) != 1 || drv.clearHalts[0] != 0x81 {
		t.Errorf("driver ClearHalt calls = %v, want [0x81]", drv.clearHalts)
	}
}

func TestControlClearHaltInvalidEndpoint(t *testing.T) {
	_, _, host, drv := newTestStack(t)
	if _, _, err := host.Enumerate(4); err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}

	if err := host.ClearHalt(0x8F); !sim.IsStall(err) {
		t.Errorf("ClearHalt(0x8f) err = %v, want stall", err)
	}
	if len(drv.clearHalts) != 0 {
		t.Errorf("driver ClearHalt called: %v", drv.clearHalts)
	}
}

func TestControlClassRequests(t *testing.T) {
	_, _, host, drv := newTestStack(t)
	if _, _, err := host.Enumerate(2); err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}

	in := hal.SetupPacket{
		RequestType: hal.RequestDirectionDeviceToHost | hal.RequestTypeClass | hal.RequestRecipientInterface,
		Request:     0xFE,
		Length:      1,
	}
	out := hal.SetupPacket{
		RequestType: hal.RequestDirectionHostToDevice | hal.RequestTypeClass | hal.RequestRecipientInterface,
		Request:     0xFF,
	}

	drv.response = []byte{0x00, 0xAA}
	data, err := host.ControlIn(in)
	if err != nil {
		t.Fatalf("ControlIn() error = %v", err)
	}
	if !bytes.Equal(data, []byte{0x00}) {
		t.Errorf("data = % X, want 00 (clamped to wLength)", data)
	}
	if err := host.ControlOut(out, nil); err != nil {
		t.Errorf("ControlOut() error = %v", err)
	}
	if len(drv.setups) != 2 {
		t.Errorf("driver saw %d setups, want 2", len(drv.setups))
	}

	drv.accept = false
	if _, err := host.ControlIn(in); !sim.IsStall(err) {
		t.Errorf("rejected class IN err = %v, want stall", err)
	}
	if err := host.ControlOut(out, nil); !sim.IsStall(err) {
		t.Errorf("rejected class OUT err = %v, want stall", err)
	}
}

func TestControlDataOutStage(t *testing.T) {
	s, _, host, _ := newTestStack(t)
	host.Reset()

	p := hal.SetupPacket{
		RequestType: hal.RequestDirectionHostToDevice | hal.RequestTypeVendor | hal.RequestRecipientDevice,
		Request:     0x42,
		Length:      4,
	}
	if err := host.ControlOut(p, []byte{1, 2, 3, 4}); err != nil {
		t.Fatalf("ControlOut() error = %v", err)
	}
	if st := s.Snapshot().Stage; st != StageExpectSetup {
		t.Errorf("Stage = %v, want ExpectSetup", st)
	}
}

func TestControlSetConfigurationZero(t *testing.T) {
	s, _, host, drv := newTestStack(t)
	if _, _, err := host.Enumerate(6); err != nil {
		t.Fatalf("Enumerate() error = %v", err)
	}

	if err := host.SetConfiguration(0); err != nil {
		t.Fatalf("SetConfiguration(0) error = %v", err)
	}
	snap := s.Snapshot()
	if snap.State != StateAddress || snap.Configuration != 0 {
		t.Errorf("state %v configuration %d, want Address 0", snap.State, snap.Configuration)
	}
	if drv.active {
		t.Error("driver still active")
	}
	if got := drv.configures; len(got) != 2 || !got[0] || got[1] {
		t.Errorf("Configure calls = %v, want [true false]", got)
	}
}
