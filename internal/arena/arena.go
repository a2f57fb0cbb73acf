// Package arena manages reservations in the memory region shared with the
// codec device.
//
// The device owns the allocation policy: it decides at which offset a buffer
// is reserved and when it is freed. The arena tracks the reservations held by
// the client as Slot values, which give bounds checked views of the shared
// memory and guarantee that every reservation is released exactly once.
package arena

import (
	"errors"
	"fmt"
	"sync"
)

// Allocator is implemented by the protocol layers which know how to ask the
// device to secure and release buffers.
type Allocator interface {
	// SecureBuffer reserves size bytes for the context and returns the
	// offset of the reservation. A size of zero asks for the small buffer
	// size of the protocol. The call blocks until memory is available.
	SecureBuffer(ctxIndex int32, size uint32) (offset uint32, err error)
	// TrySecureBuffer is like SecureBuffer but fails instead of blocking
	// when the device has no memory available.
	TrySecureBuffer(ctxIndex int32, size uint32) (offset uint32, err error)
	// ReleaseBuffer frees the reservation at offset.
	ReleaseBuffer(offset uint32) error
}

var (
	// ErrUnavailable is returned when the device refused to secure a buffer.
	ErrUnavailable = errors.New("buffer unavailable")
	// ErrOutOfRange is returned when the device grants an offset which does
	// not fit in the shared memory region.
	ErrOutOfRange = errors.New("offset out of range")
	// ErrOverlap is returned when the device grants an offset which is
	// already held by the client.
	ErrOverlap = errors.New("offset already in use")
)

// Stats are counters of the arena activity.
type Stats struct {
	Secured     uint64 `json:"secured"     yaml:"secured"`
	Adopted     uint64 `json:"adopted"     yaml:"adopted"`
	Released    uint64 `json:"released"    yaml:"released"`
	Forgotten   uint64 `json:"forgotten"   yaml:"forgotten"`
	Outstanding int    `json:"outstanding" yaml:"outstanding"`
}

// Arena tracks the reservations of the client in the shared memory region.
//
// The arena is safe to use concurrently, but it does not serialize the
// exchanges with the device: callers must hold their own lock across
// secure, invoke and release sequences when the device requires it.
type Arena struct {
	alloc  Allocator
	memory []byte
	small  uint32

	mutex sync.Mutex
	slots map[uint32]*Slot
	stats Stats
}

// New constructs an arena over memory. The small buffer size is the size of
// the reservations made when asking for zero bytes.
func New(alloc Allocator, memory []byte, small uint32) *Arena {
	return &Arena{
		alloc:  alloc,
		memory: memory,
		small:  small,
		slots:  make(map[uint32]*Slot),
	}
}

// Size returns the size of the shared memory region.
func (a *Arena) Size() int {
	return len(a.memory)
}

// Stats returns a snapshot of the arena counters.
func (a *Arena) Stats() Stats {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	return a.stats
}

// Secure reserves size bytes for the context.
func (a *Arena) Secure(ctxIndex int32, size uint32) (*Slot, error) {
	return a.secure(ctxIndex, size, a.alloc.SecureBuffer)
}

// TrySecure reserves size bytes for the context, failing with
// ErrUnavailable if the device has no memory left.
func (a *Arena) TrySecure(ctxIndex int32, size uint32) (*Slot, error) {
	return a.secure(ctxIndex, size, a.alloc.TrySecureBuffer)
}

func (a *Arena) secure(ctxIndex int32, size uint32, secure func(int32, uint32) (uint32, error)) (*Slot, error) {
	offset, err := secure(ctxIndex, size)
	if err != nil {
		return nil, fmt.Errorf("%w: securing %d bytes for context %d: %w", ErrUnavailable, size, ctxIndex, err)
	}
	if size == 0 {
		size = a.small
	}
	slot, err := a.track(offset, size)
	if err != nil {
		return nil, err
	}
	a.mutex.Lock()
	a.stats.Secured++
	a.mutex.Unlock()
	return slot, nil
}

// Adopt takes ownership of a buffer that the device reserved on behalf of the
// client, typically to hold a response. The slot spans from offset to the end
// of the shared memory region; the message decoders bound the reads.
//
// If the offset is not valid, the reservation is released immediately and an
// error is returned.
func (a *Arena) Adopt(offset uint32) (*Slot, error) {
	if uint64(offset) >= uint64(len(a.memory)) {
		err := fmt.Errorf("adopting buffer at offset %d of %d bytes region: %w", offset, len(a.memory), ErrOutOfRange)
		if e := a.alloc.ReleaseBuffer(offset); e != nil {
			err = errors.Join(err, e)
		}
		return nil, err
	}
	slot, err := a.track(offset, uint32(len(a.memory))-offset)
	if err != nil {
		return nil, err
	}
	a.mutex.Lock()
	a.stats.Adopted++
	a.mutex.Unlock()
	return slot, nil
}

func (a *Arena) track(offset, size uint32) (*Slot, error) {
	end := uint64(offset) + uint64(size)
	if end > uint64(len(a.memory)) {
		err := fmt.Errorf("buffer [%d:%d] exceeds %d bytes region: %w", offset, end, len(a.memory), ErrOutOfRange)
		if e := a.alloc.ReleaseBuffer(offset); e != nil {
			err = errors.Join(err, e)
		}
		return nil, err
	}

	a.mutex.Lock()
	defer a.mutex.Unlock()

	if _, held := a.slots[offset]; held {
		return nil, fmt.Errorf("buffer at offset %d: %w", offset, ErrOverlap)
	}
	slot := &Slot{arena: a, offset: offset, size: size}
	a.slots[offset] = slot
	a.stats.Outstanding++
	return slot, nil
}

func (a *Arena) untrack(slot *Slot) {
	delete(a.slots, slot.offset)
	a.stats.Outstanding--
}
