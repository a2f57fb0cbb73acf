// Package yamlprint writes streams of values as YAML documents.
package yamlprint

import (
	"io"

	"gopkg.in/yaml.v3"

	"github.com/stealthrocket/brillcodec/internal/stream"
)

type WriterOption[T any] func(*writer[T])

// Sequence writes all the values as the items of a single sequence document
// instead of one document per value. The values are held until Close.
func Sequence[T any](enable bool) WriterOption[T] {
	return func(w *writer[T]) { w.sequence = enable }
}

func NewWriter[T any](w io.Writer, opts ...WriterOption[T]) stream.WriteCloser[T] {
	yw := &writer[T]{encoder: yaml.NewEncoder(w)}
	yw.encoder.SetIndent(2)
	for _, opt := range opts {
		opt(yw)
	}
	return yw
}

type writer[T any] struct {
	encoder  *yaml.Encoder
	sequence bool
	values   []T
}

func (w *writer[T]) Write(values []T) (int, error) {
	if w.sequence {
		w.values = append(w.values, values...)
		return len(values), nil
	}
	for i := range values {
		if err := w.encoder.Encode(values[i]); err != nil {
			return i, err
		}
	}
	return len(values), nil
}

func (w *writer[T]) Close() error {
	if w.sequence && len(w.values) != 0 {
		values := w.values
		w.values = nil
		if err := w.encoder.Encode(values); err != nil {
			return err
		}
	}
	err := w.encoder.Close()
	if err != nil {
		// nothing was written
		if s := err.Error(); s == `yaml: expected STREAM-START` {
			err = nil
		}
	}
	return err
}
