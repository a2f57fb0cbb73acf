package arena

import "fmt"

type slotState uint8

const (
	owned slotState = iota
	released
	forgotten
	moved
)

// Slot is a reservation held by the client in the shared memory region.
//
// A slot must be released exactly once; Release may be deferred right after
// the slot is obtained since calls after the first one (or after Forget or
// Move) do nothing.
type Slot struct {
	arena  *Arena
	offset uint32
	size   uint32
	state  slotState
}

// Offset returns the position of the slot in the shared memory region.
func (s *Slot) Offset() uint32 {
	return s.offset
}

// Size returns the size of the slot.
func (s *Slot) Size() uint32 {
	return s.size
}

// Owned reports whether the slot still holds its reservation.
func (s *Slot) Owned() bool {
	return s != nil && s.state == owned
}

// Bytes returns a view of the shared memory covered by the slot, or nil if
// the slot no longer holds its reservation. The view must not be retained
// after the slot is released.
func (s *Slot) Bytes() []byte {
	if !s.Owned() {
		return nil
	}
	end := s.offset + s.size
	return s.arena.memory[s.offset:end:end]
}

// Release frees the reservation on the device. Only the first call on an
// owned slot reaches the device.
func (s *Slot) Release() error {
	if s == nil || !s.detach(released) {
		return nil
	}
	if err := s.arena.alloc.ReleaseBuffer(s.offset); err != nil {
		return fmt.Errorf("releasing buffer at offset %d: %w", s.offset, err)
	}
	return nil
}

// Forget drops the reservation without releasing it, for calls where the
// device frees the buffer itself.
func (s *Slot) Forget() {
	if s != nil {
		s.detach(forgotten)
	}
}

// Move transfers the reservation to a new slot value; s no longer holds it
// and releasing s does nothing. The zero-copy handoff of decoded pictures
// uses it to extend the lifetime of a response buffer past the call that
// received it.
func (s *Slot) Move() *Slot {
	if s == nil {
		return nil
	}
	a := s.arena
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if s.state != owned {
		return nil
	}
	m := &Slot{arena: a, offset: s.offset, size: s.size}
	s.state = moved
	a.slots[m.offset] = m
	return m
}

func (s *Slot) detach(state slotState) bool {
	a := s.arena
	a.mutex.Lock()
	defer a.mutex.Unlock()

	if s.state != owned {
		return false
	}
	s.state = state
	a.untrack(s)
	switch state {
	case released:
		a.stats.Released++
	case forgotten:
		a.stats.Forgotten++
	}
	return true
}

func (s *Slot) String() string {
	return fmt.Sprintf("[%d:%d]", s.offset, uint64(s.offset)+uint64(s.size))
}
