package device

import "github.com/ardnew/softmsc/device/hal"

// Standard request codes (USB 2.0 Table 9-4). Only GET_DESCRIPTOR,
// SET_ADDRESS, SET_CONFIGURATION and CLEAR_FEATURE are acted on.
const (
	RequestGetStatus        = 0x00
	RequestClearFeature     = 0x01
	RequestSetFeature       = 0x03
	RequestSetAddress       = 0x05
	RequestGetDescriptor    = 0x06
	RequestGetConfiguration = 0x08
	RequestSetConfiguration = 0x09
	RequestSetInterface     = 0x0B
)

// FeatureEndpointHalt is the ENDPOINT_HALT feature selector.
const FeatureEndpointHalt = 0x00

// AddressEnable is the ADDEN bit of the device address register.
const AddressEnable = 0x80

// The builders below fill a SETUP packet for the host side of a
// transaction: the simulator scripts, the probe tool and tests.

func standardSetup(out *hal.SetupPacket, in bool, recipient, request uint8, value, index, length uint16) {
	dir := uint8(hal.RequestDirectionHostToDevice)
	if in {
		dir = hal.RequestDirectionDeviceToHost
	}
	*out = hal.SetupPacket{
		RequestType: dir | hal.RequestTypeStandard | recipient,
		Request:     request,
		Value:       value,
		Index:       index,
		Length:      length,
	}
}

// GetDescriptorSetup fills out as GET_DESCRIPTOR for descType/descIndex.
func GetDescriptorSetup(out *hal.SetupPacket, descType, descIndex uint8, length uint16) {
	standardSetup(out, true, hal.RequestRecipientDevice, RequestGetDescriptor,
		uint16(descType)<<8|uint16(descIndex), 0, length)
}

// GetSetAddressSetup fills out as SET_ADDRESS.
func GetSetAddressSetup(out *hal.SetupPacket, address uint8) {
	standardSetup(out, false, hal.RequestRecipientDevice, RequestSetAddress, uint16(address), 0, 0)
}

// GetSetConfigurationSetup fills out as SET_CONFIGURATION.
func GetSetConfigurationSetup(out *hal.SetupPacket, config uint8) {
	standardSetup(out, false, hal.RequestRecipientDevice, RequestSetConfiguration, uint16(config), 0, 0)
}

// GetClearFeatureSetup fills out as CLEAR_FEATURE. For ENDPOINT_HALT the
// recipient is hal.RequestRecipientEndpoint and index the endpoint
// address.
func GetClearFeatureSetup(out *hal.SetupPacket, recipient uint8, feature uint16, index uint16) {
	standardSetup(out, false, recipient, RequestClearFeature, feature, index, 0)
}

// GetStatusSetup fills out as GET_STATUS. The device STALLs it.
func GetStatusSetup(out *hal.SetupPacket, recipient uint8, index uint16) {
	standardSetup(out, true, recipient, RequestGetStatus, 0, index, 2)
}
