// Package stream is a library of generic types designed to work on streams of
// values, such as the frames fed to a codec and the records printed for them.
package stream

import (
	"errors"
	"io"
)

// Reader is an interface implemented by types that produce a stream of values
// of type T.
type Reader[T any] interface {
	// Reads values from the stream, returning the number of values read and any
	// error that occurred.
	//
	// The error is io.EOF when the end of the stream has been reached.
	Read(values []T) (int, error)
}

// Writer is an interface implemented by types that consume a stream of values
// of type T.
type Writer[T any] interface {
	Write(values []T) (int, error)
}

// WriteCloser is a Writer which must be closed to flush its output.
type WriteCloser[T any] interface {
	Writer[T]
	io.Closer
}

// NewReader constructs a Reader from a sequence of values.
func NewReader[T any](values ...T) Reader[T] {
	return &reader[T]{values: append([]T{}, values...)}
}

type reader[T any] struct{ values []T }

func (r *reader[T]) Read(values []T) (n int, err error) {
	n = copy(values, r.values)
	r.values = r.values[n:]
	if len(r.values) == 0 {
		err = io.EOF
	}
	return n, err
}

// ReadAll reads all values from r and returns them as a slice, along with any
// error that occurred (other than io.EOF).
func ReadAll[T any](r Reader[T]) ([]T, error) {
	values := make([]T, 0, 1)
	for {
		if len(values) == cap(values) {
			values = append(values, make([]T, 2*len(values))...)[:len(values)]
		}
		n, err := r.Read(values[len(values):cap(values)])
		values = values[:len(values)+n]
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			return values, err
		}
	}
}

// Copy writes the values read from r to w until r is exhausted, returning
// the number of values copied.
func Copy[T any](w Writer[T], r Reader[T]) (int64, error) {
	var buf [16]T
	var count int64
	for {
		n, err := r.Read(buf[:])
		if n > 0 {
			wn, werr := w.Write(buf[:n])
			count += int64(wn)
			if werr != nil {
				return count, werr
			}
		}
		if err != nil {
			if err == io.EOF {
				err = nil
			}
			return count, err
		}
		if n == 0 {
			return count, io.ErrNoProgress
		}
	}
}

// ConvertWriter returns a Writer which converts the values with conv before
// writing them to base.
func ConvertWriter[To, From any](base Writer[To], conv func(From) (To, error)) Writer[From] {
	return &convertWriter[To, From]{base: base, conv: conv}
}

type convertWriter[To, From any] struct {
	base Writer[To]
	to   []To
	conv func(From) (To, error)
}

func (w *convertWriter[To, From]) Write(values []From) (int, error) {
	defer func() { w.to = w.to[:0] }()

	for _, from := range values {
		to, err := w.conv(from)
		if err != nil {
			return 0, err
		}
		w.to = append(w.to, to)
	}
	return w.base.Write(w.to)
}

// Chunks returns a Reader which splits the content of r into chunks of the
// given size; the last chunk may be shorter.
func Chunks(r io.Reader, size int) Reader[[]byte] {
	return &chunkReader{input: r, size: size}
}

type chunkReader struct {
	input io.Reader
	size  int
	done  bool
}

func (c *chunkReader) Read(values [][]byte) (n int, err error) {
	for n < len(values) && !c.done {
		chunk := make([]byte, c.size)
		rn, err := io.ReadFull(c.input, chunk)
		if rn > 0 {
			values[n] = chunk[:rn]
			n++
		}
		switch {
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			c.done = true
		case err != nil:
			return n, err
		}
	}
	if c.done {
		return n, io.EOF
	}
	return n, nil
}
