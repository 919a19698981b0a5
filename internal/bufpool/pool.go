// Package bufpool allocates refcounted packet payloads (bus.Buffer)
// from a size-classed sync.Pool, so the transcoder pipeline's hot path
// of decode/encode scratch allocation does not hit the garbage
// collector per packet.
package bufpool

import (
	"sync"

	"github.com/opendvr/tvcore/internal/bus"
)

// sizeClasses mirrors common elementary-stream unit sizes: a demuxed
// audio frame, a video access unit, and a full MPEG-TS block.
var sizeClasses = []int{4 * 1024, 64 * 1024, 256 * 1024}

// Pool hands out *bus.Buffer backed by pooled byte slices. The zero
// value is not usable; construct with New.
type Pool struct {
	pools []*sync.Pool
}

// New builds a Pool with the default size classes.
func New() *Pool {
	p := &Pool{pools: make([]*sync.Pool, len(sizeClasses))}
	for i, sz := range sizeClasses {
		sz := sz
		p.pools[i] = &sync.Pool{
			New: func() any {
				return make([]byte, 0, sz)
			},
		}
	}
	return p
}

func (p *Pool) classFor(n int) int {
	for i, sz := range sizeClasses {
		if n <= sz {
			return i
		}
	}
	return -1
}

// Get returns a buffer with capacity for at least n bytes and length n,
// refcount 1. Payloads that exceed the largest size class are allocated
// directly and skip the pool on release.
func (p *Pool) Get(n int) *bus.Buffer {
	class := p.classFor(n)
	if class < 0 {
		return bus.NewBuffer(make([]byte, n), nil)
	}
	buf := p.pools[class].Get().([]byte)
	if cap(buf) < n {
		buf = make([]byte, n, sizeClasses[class])
	} else {
		buf = buf[:n]
	}
	release := func(b *bus.Buffer) {
		p.pools[class].Put(b.Bytes()[:0])
	}
	return bus.NewBuffer(buf, release)
}

// Put returns data to the appropriate pool directly, for callers that
// build their own []byte without going through Get (e.g. a copy made
// for a passthrough clone).
func (p *Pool) Put(data []byte) {
	class := p.classFor(cap(data))
	if class < 0 {
		return
	}
	p.pools[class].Put(data[:0])
}
