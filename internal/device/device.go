// Package device gives access to the brillcodec device file.
//
// The package only moves bytes: it issues ioctl calls with arguments encoded
// by the caller and maps the shared memory region of the device. The meaning
// of the calls is defined by the wire package.
package device

import (
	"errors"
	"fmt"
)

// DefaultPath is the location of the codec device node.
const DefaultPath = "/dev/brillcodec"

// Device is the interface of codec devices.
type Device interface {
	// Ioctl issues the request code req with arg as argument; the device
	// may write results back into arg. The returned value is the non
	// negative result of the call; failures return -1 and the error
	// reported by the device.
	Ioctl(req uint32, arg []byte) (int, error)

	// Mmap maps the shared memory region of the device. It must be called
	// at most once; the mapping remains valid until Close.
	Mmap(size int) ([]byte, error)

	// Close unmaps the shared memory region and releases the device.
	Close() error
}

var (
	// ErrMapped is returned by Mmap when the device memory is already
	// mapped.
	ErrMapped = errors.New("device memory already mapped")
	// ErrClosed is returned when using a device after it was closed.
	ErrClosed = errors.New("device closed")
)

// Error records a failed operation on a device file.
type Error struct {
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
