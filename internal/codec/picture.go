package codec

import (
	"sync"

	"github.com/stealthrocket/brillcodec/internal/arena"
	"github.com/stealthrocket/brillcodec/internal/buffer"
)

// Picture is a decoded picture handed off to the caller.
//
// When the device had more buffers available after producing the picture,
// the picture is a view of the shared memory and the buffer stays reserved
// until Release is called. When the device signaled that it used its last
// buffer, the picture is copied to a buffer of the session pool and the
// shared memory is released right away so the device can keep decoding.
//
// Either way the caller must call Release once done with the picture.
type Picture struct {
	lock sync.Locker
	slot *arena.Slot
	pool *buffer.Pool
	buf  *buffer.Buffer
	data []byte
}

func (s *Session) handoff(slot *arena.Slot, data []byte, last bool) (*Picture, error) {
	p := &Picture{lock: &s.mutex, pool: s.pool}
	if last {
		p.buf = s.pool.Get(len(data))
		copy(p.buf.Data, data)
		p.data = p.buf.Data
		s.logger.Debug("picture copied out of shared memory", "size", len(data))
	} else {
		p.slot = slot.Move()
		p.data = data
	}
	return p, nil
}

// Bytes returns the picture data. The slice must not be used after Release.
func (p *Picture) Bytes() []byte {
	return p.data
}

// Len returns the size of the picture in bytes.
func (p *Picture) Len() int {
	return len(p.data)
}

// ZeroCopy reports whether the picture is a view of the shared memory.
func (p *Picture) ZeroCopy() bool {
	return p.slot != nil
}

// Release returns the picture memory to the device or to the buffer pool.
// Calling it more than once is a no-op.
func (p *Picture) Release() error {
	p.data = nil
	if p.slot != nil {
		p.lock.Lock()
		defer p.lock.Unlock()
		return p.slot.Release()
	}
	buffer.Release(&p.buf, p.pool)
	return nil
}
