// Package ring provides a fixed-capacity circular byte queue.
package ring

import (
	"errors"
	"sync"
)

var (
	// ErrFull indicates the buffer has no room for another byte.
	// The byte being inserted is rejected, buffered bytes are kept.
	ErrFull = errors.New("ring buffer full")
	// ErrEmpty indicates there is no byte to remove.
	ErrEmpty = errors.New("ring buffer empty")
)

// DefaultCapacity is used when a non-positive capacity is requested.
const DefaultCapacity = 64

// Buffer is a fixed-capacity circular byte queue.
// It is safe for one producer and one consumer running concurrently.
type Buffer struct {
	data  []byte
	head  int
	count int
	lock  sync.Mutex
}

// New creates a Buffer.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{data: make([]byte, capacity)}
}

// Cap returns the capacity.
func (b *Buffer) Cap() int {
	return len(b.data)
}

// Count returns the number of buffered bytes.
func (b *Buffer) Count() int {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.count
}

// IsEmpty indicates no byte is buffered.
func (b *Buffer) IsEmpty() bool {
	return b.Count() == 0
}

// Insert appends a byte at the tail.
func (b *Buffer) Insert(c byte) error {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.count >= len(b.data) {
		return ErrFull
	}
	b.data[(b.head+b.count)%len(b.data)] = c
	b.count++
	return nil
}

// Remove takes the byte at the head.
func (b *Buffer) Remove() (byte, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	if b.count == 0 {
		return 0, ErrEmpty
	}
	c := b.data[b.head]
	b.head = (b.head + 1) % len(b.data)
	b.count--
	return c, nil
}

// Reset drops all buffered bytes.
func (b *Buffer) Reset() {
	b.lock.Lock()
	b.head, b.count = 0, 0
	b.lock.Unlock()
}
