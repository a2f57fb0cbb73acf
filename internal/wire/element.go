package wire

// CodecElement describes one codec advertised by the device.
//
// Formats holds pixel formats for video codecs and sample formats for audio
// codecs; unused entries are -1.
type CodecElement struct {
	CodecType CodecType `json:"codecType" yaml:"codec_type"`
	MediaType MediaType `json:"mediaType" yaml:"media_type"`
	Name      string    `json:"name"      yaml:"name"`
	LongName  string    `json:"longName"  yaml:"long_name"`
	Formats   [4]int32  `json:"formats"   yaml:"formats,flow"`
}

// ElementSize is the size of a codec element record in the catalog blob.
const ElementSize = 4 + 4 + NameSize + LongNameSize + 4*4

// AppendElement appends the catalog record of e to buffer.
func AppendElement(buffer []byte, e *CodecElement) []byte {
	buffer = appendI32(buffer, int32(e.CodecType))
	buffer = appendI32(buffer, int32(e.MediaType))
	buffer = appendName(buffer, e.Name, NameSize)
	buffer = appendName(buffer, e.LongName, LongNameSize)
	for _, f := range e.Formats {
		buffer = appendI32(buffer, f)
	}
	return buffer
}

func readElement(buffer []byte) (e CodecElement, _ []byte, err error) {
	var v int32
	if v, buffer, err = readI32(buffer); err != nil {
		return
	}
	e.CodecType = CodecType(v)
	if v, buffer, err = readI32(buffer); err != nil {
		return
	}
	e.MediaType = MediaType(v)
	if e.Name, buffer, err = readName(buffer, NameSize); err != nil {
		return
	}
	if e.LongName, buffer, err = readName(buffer, LongNameSize); err != nil {
		return
	}
	for i := range e.Formats {
		if e.Formats[i], buffer, err = readI32(buffer); err != nil {
			return
		}
	}
	return e, buffer, nil
}

// ParseElements splits the catalog blob returned by the device into codec
// elements. The number of elements is the size of the blob divided by the
// record size; trailing bytes which do not form a full record are ignored.
func ParseElements(blob []byte) ([]CodecElement, error) {
	n := len(blob) / ElementSize
	elements := make([]CodecElement, n)
	for i := range elements {
		e, _, err := readElement(blob[i*ElementSize : (i+1)*ElementSize])
		if err != nil {
			return nil, err
		}
		elements[i] = e
	}
	return elements, nil
}
