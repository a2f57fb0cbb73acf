package textprint

import (
	"bufio"
	"fmt"
	"io"

	"github.com/stealthrocket/brillcodec/internal/stream"
)

type WriterOption[T any] func(*writer[T])

// Format sets the fmt format of each value, "%v" by default.
func Format[T any](format string) WriterOption[T] {
	return func(w *writer[T]) { w.format = format }
}

// Separator sets the text written between two values, a blank line by
// default.
func Separator[T any](separator string) WriterOption[T] {
	return func(w *writer[T]) { w.separator = separator }
}

// NewWriter returns a writer printing values with fmt, for types which lay
// out their own text such as the device properties shown by probe.
func NewWriter[T any](w io.Writer, opts ...WriterOption[T]) stream.WriteCloser[T] {
	pw := &writer[T]{
		output:    bufio.NewWriter(w),
		format:    "%v",
		separator: "\n",
	}
	for _, opt := range opts {
		opt(pw)
	}
	return pw
}

type writer[T any] struct {
	output    *bufio.Writer
	format    string
	separator string
	started   bool
}

func (w *writer[T]) Write(values []T) (int, error) {
	for n, v := range values {
		if w.started {
			w.output.WriteString(w.separator)
		}
		w.started = true
		fmt.Fprintf(w.output, w.format, v)
		if err := w.output.Flush(); err != nil {
			return n, err
		}
	}
	return len(values), nil
}

func (w *writer[T]) Close() error {
	return w.output.Flush()
}
