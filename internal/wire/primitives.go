package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// All fields exchanged with the device are little endian, matching the byte
// order of the guest the device was built for.

func appendI32(buffer []byte, v int32) []byte {
	return binary.LittleEndian.AppendUint32(buffer, uint32(v))
}

func readI32(buffer []byte) (int32, []byte, error) {
	if len(buffer) < 4 {
		return 0, buffer, io.ErrShortBuffer
	}
	return int32(binary.LittleEndian.Uint32(buffer)), buffer[4:], nil
}

func appendU32(buffer []byte, v uint32) []byte {
	return binary.LittleEndian.AppendUint32(buffer, v)
}

func readU32(buffer []byte) (uint32, []byte, error) {
	if len(buffer) < 4 {
		return 0, buffer, io.ErrShortBuffer
	}
	return binary.LittleEndian.Uint32(buffer), buffer[4:], nil
}

func appendI64(buffer []byte, v int64) []byte {
	return binary.LittleEndian.AppendUint64(buffer, uint64(v))
}

func readI64(buffer []byte) (int64, []byte, error) {
	if len(buffer) < 8 {
		return 0, buffer, io.ErrShortBuffer
	}
	return int64(binary.LittleEndian.Uint64(buffer)), buffer[8:], nil
}

// appendName writes s as a NUL padded fixed size field, truncating it so the
// field always ends with at least one NUL byte.
func appendName(buffer []byte, s string, size int) []byte {
	if len(s) > size-1 {
		s = s[:size-1]
	}
	buffer = append(buffer, s...)
	for i := len(s); i < size; i++ {
		buffer = append(buffer, 0)
	}
	return buffer
}

func readName(buffer []byte, size int) (string, []byte, error) {
	if len(buffer) < size {
		return "", buffer, io.ErrShortBuffer
	}
	name := buffer[:size]
	for i, c := range name {
		if c == 0 {
			name = name[:i]
			break
		}
	}
	return string(name), buffer[size:], nil
}

// appendPayload writes the length prefix of b followed by its content.
func appendPayload(buffer []byte, b []byte) []byte {
	buffer = appendI32(buffer, int32(len(b)))
	return append(buffer, b...)
}

// readPayload reads a length prefixed payload. The returned slice aliases
// the input buffer.
func readPayload(buffer []byte) ([]byte, []byte, error) {
	n, buffer, err := readI32(buffer)
	if err != nil {
		return nil, buffer, err
	}
	return readBytes(buffer, n)
}

func readBytes(buffer []byte, n int32) ([]byte, []byte, error) {
	if n < 0 {
		return nil, buffer, fmt.Errorf("invalid payload size: %d", n)
	}
	if int64(len(buffer)) < int64(n) {
		return nil, buffer, io.ErrShortBuffer
	}
	return buffer[:n:n], buffer[n:], nil
}
