package codec

import (
	"errors"
	"fmt"

	"github.com/stealthrocket/brillcodec/internal/arena"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

var (
	// ErrDeviceUnavailable is returned when the device cannot be opened or
	// its shared memory cannot be mapped.
	ErrDeviceUnavailable = errors.New("codec device unavailable")
	// ErrIncompatibleVersion is returned when the device reports a version
	// of the protocol that is not supported.
	ErrIncompatibleVersion = errors.New("incompatible codec device version")
	// ErrContextAllocationFailed is returned when the device could not
	// assign a context index.
	ErrContextAllocationFailed = errors.New("codec context allocation failed")
	// ErrBufferUnavailable is returned when the device refused to secure a
	// buffer in the shared memory.
	ErrBufferUnavailable = arena.ErrUnavailable
	// ErrDeviceCallFailed is returned when an ioctl failed or when the
	// device answered with an error status.
	ErrDeviceCallFailed = errors.New("codec device call failed")
	// ErrAacStreamDecodeFailed is returned when an aac decoder failed to
	// decode an audio frame.
	ErrAacStreamDecodeFailed = errors.New("aac stream decode failed")

	ErrContextClosed       = errors.New("codec context closed")
	ErrContextNotOpen      = errors.New("codec context not open")
	ErrContextAlreadyOpen  = errors.New("codec context already open")
	ErrContextsOpen        = errors.New("codec contexts still open")
	ErrPicturesOutstanding = errors.New("decoded pictures still held in shared memory")
	ErrSessionClosed       = errors.New("codec session closed")
)

// noAPI is the API of calls which do not invoke a codec function.
const noAPI wire.API = -1

// CallError is the error returned when an ioctl fails. It matches both
// ErrDeviceCallFailed and the underlying error (usually a unix.Errno) with
// errors.Is.
type CallError struct {
	Command wire.Command
	API     wire.API
	Err     error
}

func (e *CallError) Error() string {
	if e.API == noAPI {
		return fmt.Sprintf("%s: %s", e.Command, e.Err)
	}
	return fmt.Sprintf("%s(%s): %s", e.Command, e.API, e.Err)
}

func (e *CallError) Unwrap() []error {
	return []error{ErrDeviceCallFailed, e.Err}
}

// StatusError is returned when the device answers a codec function with a
// non-zero status.
type StatusError struct {
	API    wire.API
	Status int32
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: device answered with status %d", e.API, e.Status)
}

func (e *StatusError) Unwrap() error {
	return ErrDeviceCallFailed
}
