package device

// ConfigurationBundleSize is the wTotalLength of the configuration:
// configuration, interface and two endpoint descriptors.
const ConfigurationBundleSize = ConfigurationDescriptorSize +
	InterfaceDescriptorSize + 2*EndpointDescriptorSize

// DescriptorTable holds the serialized descriptors returned by
// GET_DESCRIPTOR. It is built once and never modified.
type DescriptorTable struct {
	device [DeviceDescriptorSize]byte
	config [ConfigurationBundleSize]byte
}

// NewDescriptorTable serializes the mass-storage device described by cfg.
func NewDescriptorTable(cfg Config) *DescriptorTable {
	t := &DescriptorTable{}

	dev := DeviceDescriptor{
		USBVersion:        0x0200,
		DeviceClass:       ClassPerInterface,
		MaxPacketSize0:    MaxControlPacketSize,
		VendorID:          cfg.VendorID,
		ProductID:         cfg.ProductID,
		DeviceVersion:     cfg.DeviceVersion,
		NumConfigurations: 1,
	}
	dev.AppendTo(t.device[:0])

	conf := ConfigurationDescriptor{
		TotalLength:        ConfigurationBundleSize,
		NumInterfaces:      1,
		ConfigurationValue: 1,
		Attributes:         cfg.Attributes | ConfigAttrBusPowered,
		MaxPower:           cfg.MaxPower,
	}
	iface := InterfaceDescriptor{
		NumEndpoints:      2,
		InterfaceClass:    ClassMassStorage,
		InterfaceSubClass: SubClassSCSI,
		InterfaceProtocol: ProtocolBulkOnly,
	}
	in := EndpointDescriptor{
		EndpointAddress: EndpointDirectionIn | BulkInEndpoint,
		Attributes:      EndpointTypeBulk,
		MaxPacketSize:   64,
	}
	out := EndpointDescriptor{
		EndpointAddress: EndpointDirectionOut | BulkOutEndpoint,
		Attributes:      EndpointTypeBulk,
		MaxPacketSize:   64,
	}

	// Appending within capacity writes through to the backing array.
	b := conf.AppendTo(t.config[:0])
	b = iface.AppendTo(b)
	b = in.AppendTo(b)
	out.AppendTo(b)

	return t
}

// Resolve returns the first min(requested, length) bytes of the descriptor
// of the given type. ok is false for any type other than device or
// configuration. The returned slice aliases the table and must not be
// modified.
func (t *DescriptorTable) Resolve(descType uint8, requested uint16) (data []byte, ok bool) {
	switch descType {
	case DescriptorTypeDevice:
		data = t.device[:]
	case DescriptorTypeConfiguration:
		data = t.config[:]
	default:
		return nil, false
	}
	if int(requested) < len(data) {
		data = data[:requested]
	}
	return data, true
}

// Device returns the full device descriptor.
func (t *DescriptorTable) Device() []byte { return t.device[:] }

// Configuration returns the full configuration bundle.
func (t *DescriptorTable) Configuration() []byte { return t.config[:] }
