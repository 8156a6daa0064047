// Package ring implements a fixed-capacity byte FIFO backed by caller
// storage.
//
// One slot is always kept empty so that head == tail unambiguously means
// empty: a buffer over n bytes of storage holds at most n-1 bytes.
// Buffer itself is not synchronized. A single producer and a single
// consumer running in different interrupt contexts must serialize the
// producer side with an [github.com/ardnew/softmsc/pkg/irq] guard.
package ring

// Buffer is a byte FIFO over a fixed backing array.
type Buffer struct {
	data []byte
	head uint32
	tail uint32
}

// New returns a Buffer using space as its storage.
func New(space []byte) *Buffer {
	b := &Buffer{}
	b.Init(space)
	return b
}

// Init resets b to empty and points it at space.
func (b *Buffer) Init(space []byte) {
	b.data = space
	b.head = 0
	b.tail = 0
}

// Cap returns the number of bytes the buffer can hold.
func (b *Buffer) Cap() int {
	if len(b.data) == 0 {
		return 0
	}
	return len(b.data) - 1
}

// Len returns the number of bytes queued.
func (b *Buffer) Len() int {
	if b.head >= b.tail {
		return int(b.head - b.tail)
	}
	return len(b.data) - int(b.tail) + int(b.head)
}

// IsEmpty reports whether head == tail.
func (b *Buffer) IsEmpty() bool {
	return b.head == b.tail
}

// IsFull reports whether another Put would fail.
func (b *Buffer) IsFull() bool {
	return len(b.data) == 0 || b.next(b.head) == b.tail
}

// Put appends c. It returns false, leaving the buffer unchanged, when the
// buffer already holds Cap() bytes.
func (b *Buffer) Put(c byte) bool {
	if len(b.data) == 0 {
		return false
	}
	head := b.next(b.head)
	if head == b.tail {
		return false
	}
	b.data[b.head] = c
	b.head = head
	return true
}

// Get removes and returns the oldest byte.
func (b *Buffer) Get() (byte, bool) {
	if b.IsEmpty() {
		return 0, false
	}
	c := b.data[b.tail]
	b.tail = b.next(b.tail)
	return c, true
}

// Write queues as much of p as fits and returns the count queued. It
// never returns an error; bytes that do not fit are dropped.
func (b *Buffer) Write(p []byte) (int, error) {
	for i, c := range p {
		if !b.Put(c) {
			return i, nil
		}
	}
	return len(p), nil
}

func (b *Buffer) next(i uint32) uint32 {
	if i+1 == uint32(len(b.data)) {
		return 0
	}
	return i + 1
}
