package bus

import "sync/atomic"

// Buffer is an immutable, refcounted byte payload. It is allocated by an
// internal/bufpool.Pool and shared by reference as it flows through
// sinks; the last Release returns it to the pool it came from.
type Buffer struct {
	data     []byte
	refs     atomic.Int32
	onRelease func(*Buffer)
}

// NewBuffer wraps data with an initial refcount of 1. onRelease, if
// non-nil, is invoked once the refcount reaches zero so a pool can
// reclaim the backing array.
func NewBuffer(data []byte, onRelease func(*Buffer)) *Buffer {
	b := &Buffer{data: data, onRelease: onRelease}
	b.refs.Store(1)
	return b
}

// Bytes returns the immutable payload. Callers must not mutate it.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Len returns the payload length.
func (b *Buffer) Len() int {
	return len(b.data)
}

// Retain increments the refcount; call once per new owner a reference is
// handed to (e.g. a passthrough clone sharing the same backing bytes).
func (b *Buffer) Retain() *Buffer {
	b.refs.Add(1)
	return b
}

// Release decrements the refcount and, on reaching zero, hands the
// buffer to its release callback.
func (b *Buffer) Release() {
	if b.refs.Add(-1) == 0 && b.onRelease != nil {
		b.onRelease(b)
	}
}

// RefCount reports the current refcount, for tests and diagnostics.
func (b *Buffer) RefCount() int32 {
	return b.refs.Load()
}
