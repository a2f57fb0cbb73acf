// Package jsonprint writes streams of values as JSON: one indented document
// per value by default, or one compact value per line for long streams of
// records such as the frames of a decode.
package jsonprint

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/stealthrocket/brillcodec/internal/stream"
)

type WriterOption[T any] func(*writer[T])

// Lines writes each value compacted on its own line, in the JSON lines
// format.
func Lines[T any](enable bool) WriterOption[T] {
	return func(w *writer[T]) { w.lines = enable }
}

func NewWriter[T any](w io.Writer, opts ...WriterOption[T]) stream.WriteCloser[T] {
	jw := &writer[T]{output: bufio.NewWriter(w)}
	for _, opt := range opts {
		opt(jw)
	}
	jw.encoder = json.NewEncoder(jw.output)
	jw.encoder.SetEscapeHTML(false)
	if !jw.lines {
		jw.encoder.SetIndent("", "  ")
	}
	return jw
}

type writer[T any] struct {
	output  *bufio.Writer
	encoder *json.Encoder
	lines   bool
}

// Write flushes after every batch so a consumer reading the output follows
// the stream as values are produced.
func (w *writer[T]) Write(values []T) (int, error) {
	for n := range values {
		if err := w.encoder.Encode(values[n]); err != nil {
			return n, err
		}
	}
	return len(values), w.output.Flush()
}

func (w *writer[T]) Close() error {
	return w.output.Flush()
}
