package pkg

import "errors"

// Bus-level errors reported by controllers and host-side pipes.
var (
	// ErrStall is a STALL handshake on the endpoint.
	ErrStall = errors.New("endpoint stalled")

	// ErrNAK means the endpoint had nothing ready for the transaction.
	ErrNAK = errors.New("NAK received")

	// ErrNotConfigured is a transaction on a bank with no buffer.
	ErrNotConfigured = errors.New("device not configured")

	// ErrInvalidEndpoint is an endpoint number outside the bank table.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrBufferTooSmall is a packet larger than the receiving buffer.
	ErrBufferTooSmall = errors.New("buffer too small")

	// ErrProtocol is a transfer that violates the expected framing.
	ErrProtocol = errors.New("protocol error")

	// ErrInvalidRequest is a request or argument the callee rejects.
	ErrInvalidRequest = errors.New("invalid request")
)

// Wire format errors.
var (
	ErrSetupPacketTooShort    = errors.New("setup packet too short")
	ErrDescriptorTooShort     = errors.New("descriptor too short")
	ErrDescriptorTypeMismatch = errors.New("descriptor type mismatch")
	ErrInvalidCBW             = errors.New("invalid command block wrapper")
	ErrInvalidCSW             = errors.New("invalid command status wrapper")
)

// Bulk-Only Transport errors seen by the host side.
var (
	// ErrTagMismatch is a CSW whose tag differs from the CBW sent.
	ErrTagMismatch = errors.New("CSW tag mismatch")

	// ErrCommandFailed is a CSW with a non-zero status.
	ErrCommandFailed = errors.New("command failed")
)
