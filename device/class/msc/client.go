package msc

import (
	"errors"
	"fmt"

	"github.com/ardnew/softmsc/pkg"
)

// Pipe is the host side of a Bulk-Only Transport pipe pair. Read and
// Write transfer on the bulk IN and bulk OUT endpoints; a STALL handshake
// is reported as an error wrapping pkg.ErrStall. ClearHalt sends
// CLEAR_FEATURE(ENDPOINT_HALT) for the bulk IN endpoint.
type Pipe interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ClearHalt() error
}

// Result is the outcome of one command cycle seen from the host.
type Result struct {
	Tag     uint32               // Tag sent in the CBW
	N       int                  // Data stage bytes received
	CSW     CommandStatusWrapper // Status returned by the device
	Stalled bool                 // Bulk IN stalled during the cycle
}

// Client issues SCSI commands over a Pipe.
type Client struct {
	pipe Pipe
	tag  uint32

	cbwBuf [CBWSize]byte
	cswBuf [CSWSize]byte
}

// NewClient returns a client whose first command carries tag.
func NewClient(pipe Pipe, tag uint32) *Client {
	return &Client{pipe: pipe, tag: tag}
}

// Command runs one CBW, data-in, CSW cycle. data receives the data stage
// and its length is the CBW data transfer length; pass nil for commands
// without data. A STALL on bulk IN is cleared once and the CSW read
// again, per the Bulk-Only Transport recovery rules.
func (c *Client) Command(cb []byte, data []byte) (Result, error) {
	res := Result{Tag: c.tag}
	c.tag++

	cbw := NewCBW(res.Tag, uint32(len(data)), len(data) > 0, cb)
	cbw.MarshalTo(c.cbwBuf[:])
	if _, err := c.pipe.Write(c.cbwBuf[:]); err != nil {
		return res, fmt.Errorf("send cbw: %w", err)
	}

	if len(data) > 0 {
		n, err := c.pipe.Read(data)
		res.N = n
		switch {
		case errors.Is(err, pkg.ErrStall):
			res.Stalled = true
			if err := c.pipe.ClearHalt(); err != nil {
				return res, fmt.Errorf("clear halt after data stall: %w", err)
			}
		case err != nil:
			return res, fmt.Errorf("data stage: %w", err)
		}
	}

	if err := c.readCSW(&res); err != nil {
		return res, err
	}
	if res.CSW.Tag != res.Tag {
		return res, fmt.Errorf("csw tag %#08x, sent %#08x: %w", res.CSW.Tag, res.Tag, pkg.ErrTagMismatch)
	}
	return res, nil
}

func (c *Client) readCSW(res *Result) error {
	for attempt := 0; ; attempt++ {
		n, err := c.pipe.Read(c.cswBuf[:])
		if errors.Is(err, pkg.ErrStall) && attempt == 0 {
			res.Stalled = true
			if err := c.pipe.ClearHalt(); err != nil {
				return fmt.Errorf("clear halt before csw: %w", err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("read csw: %w", err)
		}
		return ParseCSW(c.cswBuf[:n], &res.CSW)
	}
}

// TestUnitReady issues TEST UNIT READY.
func (c *Client) TestUnitReady() (Result, error) {
	var cb [6]byte
	cb[0] = SCSITestUnitReady
	return c.Command(cb[:], nil)
}

// Inquiry issues a standard INQUIRY and decodes the response.
func (c *Client) Inquiry(out *InquiryResponse) (Result, error) {
	var (
		cb   [6]byte
		data [InquiryStandardSize]byte
	)
	cb[0] = SCSIInquiry
	cb[4] = InquiryStandardSize
	res, err := c.Command(cb[:], data[:])
	if err != nil {
		return res, err
	}
	if res.CSW.Status != CSWStatusGood {
		return res, fmt.Errorf("inquiry status %d: %w", res.CSW.Status, pkg.ErrCommandFailed)
	}
	return res, ParseInquiryResponse(data[:res.N], out)
}

// ReadCapacity issues READ CAPACITY (10) and decodes the response.
func (c *Client) ReadCapacity(out *ReadCapacity10Response) (Result, error) {
	var (
		cb   [10]byte
		data [ReadCapacity10Size]byte
	)
	cb[0] = SCSIReadCapacity10
	res, err := c.Command(cb[:], data[:])
	if err != nil {
		return res, err
	}
	if res.CSW.Status != CSWStatusGood {
		return res, fmt.Errorf("read capacity status %d: %w", res.CSW.Status, pkg.ErrCommandFailed)
	}
	return res, ParseReadCapacity10(data[:res.N], out)
}
