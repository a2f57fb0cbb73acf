// Package human provides types that support parsing and formatting
// human-friendly representations of sizes and paths, which appear in the
// brillcodec configuration and in the output of the command line program.
package human

import (
	"strconv"
	"strings"
	"unicode"
)

// parseUnit splits s into its numeric head and trailing unit, for example
// "1.5 MiB" is split into "1.5" and "MiB". A string made only of letters
// has no unit.
func parseUnit(s string) (head, unit string) {
	head = strings.TrimRightFunc(s, unicode.IsLetter)
	if head == "" {
		return s, ""
	}
	return strings.TrimRightFunc(head, unicode.IsSpace), s[len(head):]
}

// ftoa formats a scaled value with three significant digits at most,
// dropping trailing zeros.
func ftoa(value float64) string {
	prec := 2
	switch {
	case value >= 100 || value <= -100:
		prec = 0
	case value >= 10 || value <= -10:
		prec = 1
	}
	s := strconv.FormatFloat(value, 'f', prec, 64)
	if strings.IndexByte(s, '.') >= 0 {
		s = strings.TrimSuffix(strings.TrimRight(s, "0"), ".")
	}
	return s
}
