//go:build unix

package device

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"
)

// File is a Device backed by a device node.
type File struct {
	path string

	mutex  sync.Mutex
	fd     int
	memory []byte
}

// Open opens the device node at path for reading and writing.
func Open(path string) (*File, error) {
	fd, err := ignoreEINTR2(func() (int, error) {
		return unix.Open(path, unix.O_RDWR|unix.O_CLOEXEC, 0)
	})
	if err != nil {
		return nil, &Error{Op: "open", Path: path, Err: err}
	}
	return &File{path: path, fd: fd}, nil
}

// Path returns the path the device was opened from.
func (f *File) Path() string {
	return f.path
}

func (f *File) Ioctl(req uint32, arg []byte) (int, error) {
	f.mutex.Lock()
	fd := f.fd
	f.mutex.Unlock()
	if fd < 0 {
		return -1, ErrClosed
	}

	var ptr unsafe.Pointer
	if len(arg) != 0 {
		ptr = unsafe.Pointer(&arg[0])
	}
	for {
		r, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(ptr))
		switch errno {
		case 0:
			return int(int32(r)), nil
		case unix.EINTR:
			continue
		default:
			return -1, errno
		}
	}
}

func (f *File) Mmap(size int) ([]byte, error) {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.fd < 0 {
		return nil, ErrClosed
	}
	if f.memory != nil {
		return nil, ErrMapped
	}
	memory, err := unix.Mmap(f.fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, &Error{Op: "mmap", Path: f.path, Err: err}
	}
	f.memory = memory
	return memory, nil
}

func (f *File) Close() error {
	f.mutex.Lock()
	defer f.mutex.Unlock()

	if f.fd < 0 {
		return nil
	}
	var err error
	if f.memory != nil {
		if e := unix.Munmap(f.memory); e != nil {
			err = &Error{Op: "munmap", Path: f.path, Err: e}
		}
		f.memory = nil
	}
	if e := unix.Close(f.fd); e != nil && err == nil {
		err = &Error{Op: "close", Path: f.path, Err: e}
	}
	f.fd = -1
	return err
}

func ignoreEINTR2[F func() (R, error), R any](f F) (R, error) {
	for {
		v, err := f()
		if err != unix.EINTR {
			return v, err
		}
	}
}

var _ Device = (*File)(nil)
