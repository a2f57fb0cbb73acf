// Package textprint renders values as human readable text: tables of struct
// rows for listings, and fmt formatted values for everything else.
package textprint

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// column is a table column rendering one field of the row structs.
type column struct {
	name  string
	index []int
	cell  cellFunc
}

type cellFunc func(*strings.Builder, reflect.Value)

var (
	formatterType = reflect.TypeOf((*fmt.Formatter)(nil)).Elem()
	stringerType  = reflect.TypeOf((*fmt.Stringer)(nil)).Elem()
)

// columnsOf returns the columns of the row type t, which must be a struct.
// Columns are named after the "text" tag of exported fields; fields tagged
// "-" are skipped.
func columnsOf(t reflect.Type) []column {
	var columns []column
	for _, f := range reflect.VisibleFields(t) {
		if !f.IsExported() || f.Anonymous {
			continue
		}
		name, ok := f.Tag.Lookup("text")
		if !ok {
			name = f.Name
		}
		if name == "-" {
			continue
		}
		columns = append(columns, column{
			name:  name,
			index: f.Index,
			cell:  cellFuncOf(f.Type),
		})
	}
	return columns
}

func cellFuncOf(t reflect.Type) cellFunc {
	if t.Implements(formatterType) || t.Implements(stringerType) {
		return func(b *strings.Builder, v reflect.Value) {
			fmt.Fprintf(b, "%v", v.Interface())
		}
	}
	switch t.Kind() {
	case reflect.Bool:
		return func(b *strings.Builder, v reflect.Value) {
			b.WriteString(strconv.FormatBool(v.Bool()))
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return func(b *strings.Builder, v reflect.Value) {
			b.WriteString(strconv.FormatInt(v.Int(), 10))
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return func(b *strings.Builder, v reflect.Value) {
			b.WriteString(strconv.FormatUint(v.Uint(), 10))
		}
	case reflect.Float32, reflect.Float64:
		return func(b *strings.Builder, v reflect.Value) {
			b.WriteString(strconv.FormatFloat(v.Float(), 'g', -1, 64))
		}
	case reflect.String:
		return func(b *strings.Builder, v reflect.Value) {
			b.WriteString(v.String())
		}
	case reflect.Pointer:
		elem := cellFuncOf(t.Elem())
		return func(b *strings.Builder, v reflect.Value) {
			if v.IsNil() {
				b.WriteString("(none)")
			} else {
				elem(b, v.Elem())
			}
		}
	case reflect.Slice, reflect.Array:
		elem := cellFuncOf(t.Elem())
		return func(b *strings.Builder, v reflect.Value) {
			for i, n := 0, v.Len(); i < n; i++ {
				if i != 0 {
					b.WriteString(", ")
				}
				elem(b, v.Index(i))
			}
		}
	default:
		panic("cannot print values of type " + t.String())
	}
}
