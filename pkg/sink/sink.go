// Package sink implements the one-way debug log path used by the firmware.
//
// A [Sink] queues bytes in a bounded ring and hands them to a
// [Transmitter] one at a time from its transmit-ready interrupt. Emit never
// blocks: when the ring is full the remaining bytes are dropped and
// counted. Loss of log output never affects the USB protocol.
//
// Without a Transmitter the sink works in pull mode and mainline code
// empties it with [Sink.Drain].
package sink

import (
	"io"

	"github.com/ardnew/softmsc/pkg/irq"
	"github.com/ardnew/softmsc/pkg/ring"
)

// Transmitter is a byte-at-a-time output with a transmit-ready interrupt,
// such as a UART data register.
type Transmitter interface {
	// Busy reports whether the transmit-ready interrupt is enabled,
	// meaning a byte is in flight and the interrupt will ask for more.
	Busy() bool

	// Start writes c to the data register and enables the transmit-ready
	// interrupt.
	Start(c byte)

	// Stop disables the transmit-ready interrupt.
	Stop()
}

// Sink is a best-effort byte sink.
type Sink struct {
	buf     ring.Buffer
	mask    irq.Masker
	tx      Transmitter
	dropped uint64
}

// New returns a Sink queueing into space. mask guards the ring against
// the transmit-ready interrupt; tx may be nil for pull mode.
func New(space []byte, mask irq.Masker, tx Transmitter) *Sink {
	s := &Sink{mask: mask, tx: tx}
	s.buf.Init(space)
	return s
}

// Emit queues p and returns the number of bytes accepted.
func (s *Sink) Emit(p []byte) int {
	g := irq.Enter(s.mask)
	defer g.Exit()

	n := 0
	for _, c := range p {
		if s.tx != nil && !s.tx.Busy() {
			s.tx.Start(c)
			n++
			continue
		}
		if !s.buf.Put(c) {
			s.dropped += uint64(len(p) - n)
			break
		}
		n++
	}
	return n
}

// Write implements io.Writer for use as a slog handler output. It always
// reports the full length so that handlers never see an error.
func (s *Sink) Write(p []byte) (int, error) {
	s.Emit(p)
	return len(p), nil
}

// Service feeds the transmitter from its transmit-ready interrupt.
func (s *Sink) Service() {
	if s.tx == nil {
		return
	}
	c, ok := s.buf.Get()
	if !ok {
		s.tx.Stop()
		return
	}
	s.tx.Start(c)
}

// Drain moves all queued bytes to w. It is the pull-mode consumer.
func (s *Sink) Drain(w io.Writer) (int, error) {
	var chunk [64]byte
	total := 0
	for {
		n := s.take(chunk[:])
		if n == 0 {
			return total, nil
		}
		m, err := w.Write(chunk[:n])
		total += m
		if err != nil {
			return total, err
		}
	}
}

// take copies up to len(p) queued bytes into p under the guard.
func (s *Sink) take(p []byte) int {
	g := irq.Enter(s.mask)
	defer g.Exit()

	n := 0
	for n < len(p) {
		c, ok := s.buf.Get()
		if !ok {
			break
		}
		p[n] = c
		n++
	}
	return n
}

// Pending returns the number of queued bytes.
func (s *Sink) Pending() int {
	g := irq.Enter(s.mask)
	defer g.Exit()
	return s.buf.Len()
}

// Dropped returns the number of bytes discarded because the ring was full.
func (s *Sink) Dropped() uint64 {
	g := irq.Enter(s.mask)
	defer g.Exit()
	return s.dropped
}
