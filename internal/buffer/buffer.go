// Package buffer provides pooled byte buffers, which hold the decoded
// pictures copied out of the shared memory.
package buffer

import (
	"math/bits"
	"sync"
)

// PageSize is the capacity of the smallest buffers.
const PageSize = 4096

// buffers larger than the last class are not pooled
const numClasses = 20

type Buffer struct{ Data []byte }

func (buf *Buffer) Len() int {
	return len(buf.Data)
}

// Pool recycles buffers in power of two size classes, so a stream of
// pictures of the same dimensions keeps reusing the same memory. The zero
// value is ready to use.
type Pool struct{ classes [numClasses]sync.Pool }

// Get returns a buffer of length size.
func (p *Pool) Get(size int) *Buffer {
	c := class(size)
	if c >= numClasses {
		return &Buffer{Data: make([]byte, size)}
	}
	b, _ := p.classes[c].Get().(*Buffer)
	if b == nil {
		b = &Buffer{Data: make([]byte, 0, PageSize<<c)}
	}
	b.Data = b.Data[:size]
	return b
}

// Put returns b to the pool. Buffers which were not obtained from Get are
// dropped.
func (p *Pool) Put(b *Buffer) {
	if b == nil {
		return
	}
	c := class(cap(b.Data))
	if c >= numClasses || cap(b.Data) != PageSize<<c {
		return
	}
	b.Data = b.Data[:0]
	p.classes[c].Put(b)
}

// Release puts *buf back in the pool and clears it.
func Release(buf **Buffer, pool *Pool) {
	if b := *buf; b != nil {
		*buf = nil
		pool.Put(b)
	}
}

func class(size int) int {
	if size <= PageSize {
		return 0
	}
	return bits.Len(uint(size-1) / PageSize)
}
