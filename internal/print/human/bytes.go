package human

import (
	"encoding"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"strconv"
	"strings"

	yaml "gopkg.in/yaml.v3"
)

// Bytes is a size in bytes, such as the size of the memory shared with the
// codec device or the length of a chunk of input.
//
// Values parse from forms like:
//
//	4096
//	32 MiB
//	1.5Ki
//	2MB
//
// KB, MB and GB are factors of 1000; KiB, MiB and GiB (or Ki, Mi, Gi) are
// factors of 1024. Units are case insensitive. Sizes always print with
// factors of 1024 since the device hands out memory in pages.
type Bytes uint64

const (
	B Bytes = 1

	KB Bytes = 1000 * B
	MB Bytes = 1000 * KB
	GB Bytes = 1000 * MB

	KiB Bytes = 1024 * B
	MiB Bytes = 1024 * KiB
	GiB Bytes = 1024 * MiB
)

var byteUnits = map[string]Bytes{
	"":    B,
	"b":   B,
	"k":   KB,
	"kb":  KB,
	"m":   MB,
	"mb":  MB,
	"g":   GB,
	"gb":  GB,
	"ki":  KiB,
	"kib": KiB,
	"mi":  MiB,
	"mib": MiB,
	"gi":  GiB,
	"gib": GiB,
}

// printed from the largest to the smallest
var binaryUnits = [...]struct {
	scale Bytes
	name  string
}{
	{GiB, "GiB"},
	{MiB, "MiB"},
	{KiB, "KiB"},
}

func ParseBytes(s string) (Bytes, error) {
	head, unit := parseUnit(strings.TrimSpace(s))

	scale, ok := byteUnits[strings.ToLower(unit)]
	if !ok {
		return 0, fmt.Errorf("malformed bytes representation: %q", s)
	}
	f, err := strconv.ParseFloat(head, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed bytes representation: %q: %w", s, err)
	}
	if f < 0 {
		return 0, fmt.Errorf("invalid negative byte count: %q", s)
	}
	return Bytes(math.Floor(f * float64(scale))), nil
}

func (b Bytes) String() string {
	for _, u := range binaryUnits {
		if b >= u.scale {
			return ftoa(float64(b)/float64(u.scale)) + " " + u.name
		}
	}
	return strconv.FormatUint(uint64(b), 10)
}

func (b Bytes) GoString() string {
	return fmt.Sprintf("human.Bytes(%d)", uint64(b))
}

// Format satisfies the fmt.Formatter interface. The %d verb prints the raw
// count, %s and %v print the value with a unit, %#v prints the Go value.
func (b Bytes) Format(w fmt.State, v rune) {
	switch {
	case v == 'd':
		fmt.Fprint(w, uint64(b))
	case v == 'v' && w.Flag('#'):
		fmt.Fprint(w, b.GoString())
	case v == 's' || v == 'v':
		fmt.Fprint(w, b.String())
	default:
		fmt.Fprintf(w, "%%!%c(human.Bytes=%d)", v, uint64(b))
	}
}

func (b *Bytes) Set(s string) error {
	p, err := ParseBytes(s)
	if err != nil {
		return err
	}
	*b = p
	return nil
}

func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(uint64(b))
}

// UnmarshalJSON accepts both numbers and strings with a unit.
func (b *Bytes) UnmarshalJSON(j []byte) error {
	var s string
	if err := json.Unmarshal(j, &s); err == nil {
		return b.Set(s)
	}
	return json.Unmarshal(j, (*uint64)(b))
}

func (b Bytes) MarshalYAML() (any, error) {
	return b.String(), nil
}

func (b *Bytes) UnmarshalYAML(y *yaml.Node) error {
	return b.Set(y.Value)
}

func (b Bytes) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

func (b *Bytes) UnmarshalText(t []byte) error {
	return b.Set(string(t))
}

var (
	_ fmt.Formatter  = Bytes(0)
	_ fmt.GoStringer = Bytes(0)
	_ fmt.Stringer   = Bytes(0)

	_ json.Marshaler   = Bytes(0)
	_ json.Unmarshaler = (*Bytes)(nil)

	_ yaml.Marshaler   = Bytes(0)
	_ yaml.Unmarshaler = (*Bytes)(nil)

	_ encoding.TextMarshaler   = Bytes(0)
	_ encoding.TextUnmarshaler = (*Bytes)(nil)

	_ flag.Value = (*Bytes)(nil)
)
