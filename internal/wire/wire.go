// Package wire implements the binary protocol spoken with the brillcodec
// device: ioctl request codes and argument layouts, the capability catalog
// records, and the messages written to and read from the shared memory arena.
//
// Two generations of the protocol exist. They share the message layouts but
// differ in their ioctl request codes and in how requests are framed: the
// third generation prefixes every request with its total size.
package wire

import "fmt"

// CodecType distinguishes decoders from encoders.
type CodecType int32

const (
	Decoder CodecType = 0
	Encoder CodecType = 1
)

func (t CodecType) String() string {
	switch t {
	case Decoder:
		return "decoder"
	case Encoder:
		return "encoder"
	default:
		return fmt.Sprintf("CodecType(%d)", int32(t))
	}
}

// MediaType distinguishes video codecs from audio codecs.
type MediaType int32

const (
	Video MediaType = 0
	Audio MediaType = 1
)

func (t MediaType) String() string {
	switch t {
	case Video:
		return "video"
	case Audio:
		return "audio"
	default:
		return fmt.Sprintf("MediaType(%d)", int32(t))
	}
}

// API is the index of the codec function invoked on the device.
type API int32

const (
	Init API = iota
	DecodeVideo
	EncodeVideo
	DecodeAudio
	EncodeAudio
	PictureCopy
	Deinit
	FlushBuffers
	// DecodeVideoAndPictureCopy is only understood by the third generation
	// of the protocol.
	DecodeVideoAndPictureCopy
)

var apiNames = [...]string{
	Init:                      "init",
	DecodeVideo:               "decode_video",
	EncodeVideo:               "encode_video",
	DecodeAudio:               "decode_audio",
	EncodeAudio:               "encode_audio",
	PictureCopy:               "picture_copy",
	Deinit:                    "deinit",
	FlushBuffers:              "flush_buffers",
	DecodeVideoAndPictureCopy: "decode_video_and_picture_copy",
}

func (api API) String() string {
	if api >= 0 && int(api) < len(apiNames) {
		return apiNames[api]
	}
	return fmt.Sprintf("API(%d)", int32(api))
}

const (
	// NameSize is the size of the fixed codec name fields.
	NameSize = 32
	// LongNameSize is the size of the fixed codec description field.
	LongNameSize = 64

	// SmallBufferSize is the size of the buffer granted by the device when
	// a secure request asks for zero bytes.
	SmallBufferSize = 256

	// NoOffset is the memory offset passed to the device by calls which do
	// not carry a request message.
	NoOffset = -1
)
