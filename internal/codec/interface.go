package codec

import (
	"errors"
	"fmt"

	"github.com/stealthrocket/brillcodec/internal/arena"
	"github.com/stealthrocket/brillcodec/internal/device"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

// Protocol is a generation of the device protocol.
type Protocol int

const (
	V2 Protocol = 2
	V3 Protocol = 3
)

// ProtocolOf returns the protocol spoken by devices reporting the given
// version.
func ProtocolOf(version int32) (Protocol, error) {
	switch {
	case version >= 0 && version < 3:
		return V2, nil
	case version >= 3 && version < 4:
		return V3, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrIncompatibleVersion, version)
	}
}

// MemorySize returns the default size of the shared memory region.
func (p Protocol) MemorySize() int {
	if p == V2 {
		return 4 << 10
	}
	return 32 << 20
}

func (p Protocol) String() string {
	return fmt.Sprintf("v%d", int(p))
}

// Interface is the set of device calls of one generation of the protocol.
//
// The two generations differ in how the calls are encoded and in how the
// response of a codec function is retrieved; the messages written in the
// shared memory are produced by the wire.Codec of the generation.
//
// Implementations are not safe for concurrent use, the Session serializes
// the calls.
type Interface interface {
	arena.Allocator
	// Protocol returns the generation of the protocol.
	Protocol() Protocol
	// Codec returns the encoding of the messages exchanged in the arena.
	Codec() wire.Codec
	// ContextIndex asks the device for a new context index.
	ContextIndex() (int32, error)
	// Elements returns the raw capability catalog of the device.
	Elements(a *arena.Arena) ([]byte, error)
	// ProfileStatus returns the profiling status of the device.
	ProfileStatus() (int32, error)
	// Invoke runs a codec function on the device. The request slot, if any,
	// is consumed by the device when the call succeeds. When response is
	// true, Invoke returns the offset of the response buffer reserved by the
	// device and whether it was the last buffer available.
	Invoke(api wire.API, ctx int32, req *arena.Slot, hint int32, response bool) (offset uint32, last bool, err error)
}

// NewInterface returns the Interface of protocol p over dev.
func NewInterface(p Protocol, dev device.Device) Interface {
	if p == V2 {
		return &v2{dev: dev}
	}
	return &v3{dev: dev}
}

func ioctl(dev device.Device, cmd wire.Command, api wire.API, arg []byte) (int, error) {
	ret, err := dev.Ioctl(uint32(cmd), arg)
	if err == nil && ret < 0 {
		err = fmt.Errorf("return value %d", ret)
	}
	if err != nil {
		return ret, &CallError{Command: cmd, API: api, Err: err}
	}
	return ret, nil
}

func checkOffset(cmd wire.Command, api wire.API, offset int32) (uint32, error) {
	if offset < 0 {
		return 0, &CallError{Command: cmd, API: api, Err: fmt.Errorf("negative memory offset %d", offset)}
	}
	return uint32(offset), nil
}

// secureError strips the device call failure from the error of a refused
// buffer reservation, which the arena reports as ErrBufferUnavailable.
func secureError(err error) error {
	var call *CallError
	if errors.As(err, &call) {
		return fmt.Errorf("%s: %w", call.Command, call.Err)
	}
	return err
}

var errProfileStatus = fmt.Errorf("profile status: %w", errors.ErrUnsupported)
