package textprint

import (
	"io"
	"reflect"
	"strings"
	"text/tabwriter"

	"golang.org/x/exp/slices"

	"github.com/stealthrocket/brillcodec/internal/stream"
)

type TableOption[T any] func(*tableWriter[T])

// Header enables or disables the line of column names.
func Header[T any](enable bool) TableOption[T] {
	return func(t *tableWriter[T]) { t.header = enable }
}

// List limits the table to its first column.
func List[T any](enable bool) TableOption[T] {
	return func(t *tableWriter[T]) { t.list = enable }
}

// OrderBy sorts the rows before they are printed.
func OrderBy[T any](less func(T, T) bool) TableOption[T] {
	return func(t *tableWriter[T]) { t.orderBy = less }
}

// NewTableWriter returns a writer which prints struct values, or pointers to
// struct values, as the rows of a table. The columns are the exported
// fields, named after their "text" tag; fields tagged "-" are omitted. Rows
// are buffered until Close so the columns can be aligned.
func NewTableWriter[T any](w io.Writer, opts ...TableOption[T]) stream.WriteCloser[T] {
	t := &tableWriter[T]{
		output: w,
		header: true,
	}
	for _, opt := range opts {
		opt(t)
	}

	rowType := reflect.TypeOf((*T)(nil)).Elem()
	if rowType.Kind() == reflect.Pointer {
		rowType = rowType.Elem()
		t.indirect = true
	}
	t.columns = columnsOf(rowType)
	if t.list && len(t.columns) > 1 {
		t.columns = t.columns[:1]
	}
	return t
}

type tableWriter[T any] struct {
	output   io.Writer
	columns  []column
	indirect bool
	rows     []T
	header   bool
	list     bool
	orderBy  func(T, T) bool
}

func (t *tableWriter[T]) Write(rows []T) (int, error) {
	t.rows = append(t.rows, rows...)
	return len(rows), nil
}

func (t *tableWriter[T]) Close() error {
	if t.orderBy != nil {
		slices.SortStableFunc(t.rows, t.orderBy)
	}

	tw := tabwriter.NewWriter(t.output, 0, 4, 2, ' ', 0)
	line := new(strings.Builder)

	if t.header {
		for i, c := range t.columns {
			if i != 0 {
				line.WriteByte('\t')
			}
			line.WriteString(c.name)
		}
		line.WriteByte('\n')
	}

	for i := range t.rows {
		row := reflect.ValueOf(&t.rows[i]).Elem()
		if t.indirect {
			row = row.Elem()
		}
		for j, c := range t.columns {
			if j != 0 {
				line.WriteByte('\t')
			}
			c.cell(line, row.FieldByIndex(c.index))
		}
		line.WriteByte('\n')
	}

	if _, err := io.WriteString(tw, line.String()); err != nil {
		return err
	}
	return tw.Flush()
}
