package netdial

import (
	"bytes"

	protoerrors "github.com/AndreLaranjeira/ProxyGate/pkg/errors"
)

// HTTPBufferSize is the fixed capacity of a connection buffer. It mirrors
// the original proxy's fixed-size read buffer: once a message (headers
// plus body) would overflow it, the connection is aborted rather than
// growing without bound.
const HTTPBufferSize = 1<<20 + 1

// Buffer is a fixed-capacity byte accumulator. Unlike a growable
// bytes.Buffer, writing past its capacity returns a BufferFull error
// instead of silently reallocating, which is what gives the engine and
// explorer a hard ceiling on a single connection's memory footprint.
type Buffer struct {
	buf bytes.Buffer
	cap int
}

// NewBuffer returns an empty Buffer capped at HTTPBufferSize.
func NewBuffer() *Buffer {
	return NewBufferSize(HTTPBufferSize)
}

// NewBufferSize returns an empty Buffer capped at the given size.
func NewBufferSize(capacity int) *Buffer {
	return &Buffer{cap: capacity}
}

// Write appends p, returning a BufferFull error (via pkg/errors) if doing
// so would exceed the buffer's capacity. On overflow nothing is appended.
func (b *Buffer) Write(p []byte) (int, error) {
	if b.buf.Len()+len(p) > b.cap {
		return 0, protoerrors.NewBufferFullError("write")
	}
	return b.buf.Write(p)
}

// Bytes returns the accumulated bytes. The slice is invalidated by the
// next Write or Reset.
func (b *Buffer) Bytes() []byte {
	return b.buf.Bytes()
}

// Len returns the number of bytes currently held.
func (b *Buffer) Len() int {
	return b.buf.Len()
}

// Cap returns the buffer's fixed capacity.
func (b *Buffer) Cap() int {
	return b.cap
}

// Reset discards all accumulated bytes, keeping the same capacity.
func (b *Buffer) Reset() {
	b.buf.Reset()
}
