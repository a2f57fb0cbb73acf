//go:build !unix

package device

import "errors"

var errUnsupported = errors.New("codec devices are not supported on this platform")

// Open always fails on platforms without device files.
func Open(path string) (Device, error) {
	return nil, &Error{Op: "open", Path: path, Err: errUnsupported}
}
