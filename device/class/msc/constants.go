package msc

// Class-specific requests on the interface.
const (
	RequestBulkOnlyMassStorageReset = 0xFF
	RequestGetMaxLUN                = 0xFE
)

// Command Block Wrapper framing.
const (
	CBWSignature  = 0x43425355 // "USBC", little-endian
	CBWSize       = 31
	CBWFlagDataIn = 0x80 // bmCBWFlags bit 7; clear means host-to-device
)

// Command Status Wrapper framing and bCSWStatus values.
const (
	CSWSignature    = 0x53425355 // "USBS"
	CSWSize         = 13
	CSWStatusGood   = 0x00
	CSWStatusFailed = 0x01
)

// SCSI operation codes. The engine executes TEST UNIT READY, INQUIRY and
// READ CAPACITY (10); every other opcode fails with a stalled data stage.
const (
	SCSITestUnitReady        = 0x00
	SCSIRequestSense         = 0x03
	SCSIInquiry              = 0x12
	SCSIModeSense6           = 0x1A
	SCSIPreventAllowRemoval  = 0x1E
	SCSIReadFormatCapacities = 0x23
	SCSIReadCapacity10       = 0x25
	SCSIRead10               = 0x28
	SCSIWrite10              = 0x2A
)

// DeviceTypeDisk is the direct-access peripheral device type.
const DeviceTypeDisk = 0x00

// Standard INQUIRY data.
const (
	InquiryStandardSize      = 36
	InquiryVersionSPC2       = 0x04
	InquiryResponseFormatSPC = 0x02
	InquiryRMB               = 0x80 // removable medium
)

const ReadCapacity10Size = 8

// Geometry used by DefaultConfig: 1 MiB.
const (
	DefaultBlockCount = 2048
	DefaultBlockSize  = 512
)

// PacketSize is the full-speed bulk max packet size, which is also the
// length of each bulk bank buffer.
const PacketSize = 64

// Endpoint addresses advertised in the configuration bundle.
const (
	BulkInAddress  = 0x81
	BulkOutAddress = 0x02
)
