package human

import "testing"

func TestParseUnit(t *testing.T) {
	for _, test := range []struct {
		in   string
		head string
		unit string
	}{
		{in: "", head: "", unit: ""},
		{in: "42", head: "42", unit: ""},
		{in: "42B", head: "42", unit: "B"},
		{in: "1.5 MiB", head: "1.5", unit: "MiB"},
		{in: "KiB", head: "KiB", unit: ""},
	} {
		t.Run(test.in, func(t *testing.T) {
			head, unit := parseUnit(test.in)
			if head != test.head {
				t.Errorf("head mismatch: %q != %q", head, test.head)
			}
			if unit != test.unit {
				t.Errorf("unit mismatch: %q != %q", unit, test.unit)
			}
		})
	}
}

func TestFtoa(t *testing.T) {
	for _, test := range []struct {
		value float64
		out   string
	}{
		{0, "0"},
		{3, "3"},
		{1.5, "1.5"},
		{1.953125, "1.95"},
		{-2, "-2"},
		{12.34, "12.3"},
		{117.7, "118"},
	} {
		if s := ftoa(test.value); s != test.out {
			t.Errorf("ftoa(%g): %q != %q", test.value, s, test.out)
		}
	}
}
