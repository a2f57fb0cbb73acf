package wire

import "fmt"

// VideoData are the video stream parameters shared between the client and
// the device.
type VideoData struct {
	Width         int32 `json:"width"         yaml:"width"`
	Height        int32 `json:"height"        yaml:"height"`
	FpsN          int32 `json:"fpsN"          yaml:"fps_n"`
	FpsD          int32 `json:"fpsD"          yaml:"fps_d"`
	ParN          int32 `json:"parN"          yaml:"par_n"`
	ParD          int32 `json:"parD"          yaml:"par_d"`
	PixFmt        int32 `json:"pixFmt"        yaml:"pix_fmt"`
	Bpp           int32 `json:"bpp"           yaml:"bpp"`
	TicksPerFrame int32 `json:"ticksPerFrame" yaml:"ticks_per_frame"`
}

// VideoDataSize is the encoded size of VideoData.
const VideoDataSize = 9 * 4

// AudioData are the audio stream parameters shared between the client and
// the device.
type AudioData struct {
	Channels      int32 `json:"channels"      yaml:"channels"`
	SampleRate    int32 `json:"sampleRate"    yaml:"sample_rate"`
	BlockAlign    int32 `json:"blockAlign"    yaml:"block_align"`
	Depth         int32 `json:"depth"         yaml:"depth"`
	SampleFmt     int32 `json:"sampleFmt"     yaml:"sample_fmt"`
	FrameSize     int32 `json:"frameSize"     yaml:"frame_size"`
	BitsPerSample int32 `json:"bitsPerSample" yaml:"bits_per_sample"`
	ChannelLayout int64 `json:"channelLayout" yaml:"channel_layout"`
}

// AudioDataSize is the encoded size of AudioData: eight 32 bits fields (the
// last one reserved) followed by the 64 bits channel layout.
const AudioDataSize = 8*4 + 8

// Pixel formats, numbered like the device's codec library numbers them.
const (
	PixFmtYUV420P int32 = 0
	PixFmtYUYV422 int32 = 1
	PixFmtRGB24   int32 = 2
	PixFmtBGR24   int32 = 3
	PixFmtYUV422P int32 = 4
	PixFmtYUV444P int32 = 5
	PixFmtYUV410P int32 = 6
	PixFmtYUV411P int32 = 7
	PixFmtGray8   int32 = 8
)

// Sample formats, numbered like the device's codec library numbers them.
const (
	SampleFmtU8   int32 = 0
	SampleFmtS16  int32 = 1
	SampleFmtS32  int32 = 2
	SampleFmtFlt  int32 = 3
	SampleFmtDbl  int32 = 4
	SampleFmtU8P  int32 = 5
	SampleFmtS16P int32 = 6
	SampleFmtS32P int32 = 7
	SampleFmtFltP int32 = 8
	SampleFmtDblP int32 = 9
)

func roundUp(v, to int) int { return (v + (to - 1)) &^ (to - 1) }

// PictureSize returns the number of bytes of a decoded picture of the given
// format and dimensions, laid out the way the device copies pictures out:
// rows are padded to 4 bytes and chroma planes of subsampled formats are
// rounded up to even dimensions.
//
// Zero is returned for formats the device cannot copy out.
func PictureSize(pixFmt int32, width, height int32) int {
	w, h := int(width), int(height)
	if w <= 0 || h <= 0 {
		return 0
	}
	switch pixFmt {
	case PixFmtYUV420P:
		stride := roundUp(w, 4)
		chroma := roundUp(roundUp(w, 2)/2, 4)
		h2 := roundUp(h, 2)
		return stride*h2 + 2*chroma*(h2/2)
	case PixFmtYUV422P:
		stride := roundUp(w, 4)
		chroma := roundUp(roundUp(w, 2)/2, 4)
		return (stride + 2*chroma) * h
	case PixFmtYUV444P:
		return 3 * roundUp(w, 4) * h
	case PixFmtYUYV422:
		return roundUp(2*w, 4) * h
	case PixFmtRGB24, PixFmtBGR24:
		return roundUp(3*w, 4) * h
	case PixFmtGray8:
		return roundUp(w, 4) * h
	case PixFmtYUV410P:
		stride := roundUp(w, 4)
		chroma := roundUp(roundUp(w, 4)/4, 4)
		h4 := roundUp(h, 4)
		return stride*h4 + 2*chroma*(h4/4)
	case PixFmtYUV411P:
		stride := roundUp(w, 4)
		chroma := roundUp(roundUp(w, 4)/4, 4)
		return (stride + 2*chroma) * h
	default:
		return 0
	}
}

func appendVideoData(buffer []byte, v *VideoData) []byte {
	buffer = appendI32(buffer, v.Width)
	buffer = appendI32(buffer, v.Height)
	buffer = appendI32(buffer, v.FpsN)
	buffer = appendI32(buffer, v.FpsD)
	buffer = appendI32(buffer, v.ParN)
	buffer = appendI32(buffer, v.ParD)
	buffer = appendI32(buffer, v.PixFmt)
	buffer = appendI32(buffer, v.Bpp)
	return appendI32(buffer, v.TicksPerFrame)
}

func readVideoData(buffer []byte) (v VideoData, _ []byte, err error) {
	if v.Width, buffer, err = readI32(buffer); err != nil {
		return
	}
	if v.Height, buffer, err = readI32(buffer); err != nil {
		return
	}
	if v.FpsN, buffer, err = readI32(buffer); err != nil {
		return
	}
	if v.FpsD, buffer, err = readI32(buffer); err != nil {
		return
	}
	if v.ParN, buffer, err = readI32(buffer); err != nil {
		return
	}
	if v.ParD, buffer, err = readI32(buffer); err != nil {
		return
	}
	if v.PixFmt, buffer, err = readI32(buffer); err != nil {
		return
	}
	if v.Bpp, buffer, err = readI32(buffer); err != nil {
		return
	}
	v.TicksPerFrame, buffer, err = readI32(buffer)
	return v, buffer, err
}

func appendAudioData(buffer []byte, a *AudioData) []byte {
	buffer = appendI32(buffer, a.Channels)
	buffer = appendI32(buffer, a.SampleRate)
	buffer = appendI32(buffer, a.BlockAlign)
	buffer = appendI32(buffer, a.Depth)
	buffer = appendI32(buffer, a.SampleFmt)
	buffer = appendI32(buffer, a.FrameSize)
	buffer = appendI32(buffer, a.BitsPerSample)
	buffer = appendI32(buffer, 0) // reserved
	return appendI64(buffer, a.ChannelLayout)
}

func readAudioData(buffer []byte) (a AudioData, _ []byte, err error) {
	if a.Channels, buffer, err = readI32(buffer); err != nil {
		return
	}
	if a.SampleRate, buffer, err = readI32(buffer); err != nil {
		return
	}
	if a.BlockAlign, buffer, err = readI32(buffer); err != nil {
		return
	}
	if a.Depth, buffer, err = readI32(buffer); err != nil {
		return
	}
	if a.SampleFmt, buffer, err = readI32(buffer); err != nil {
		return
	}
	if a.FrameSize, buffer, err = readI32(buffer); err != nil {
		return
	}
	if a.BitsPerSample, buffer, err = readI32(buffer); err != nil {
		return
	}
	if _, buffer, err = readI32(buffer); err != nil {
		return
	}
	a.ChannelLayout, buffer, err = readI64(buffer)
	return a, buffer, err
}

var pixFmtNames = [...]string{
	PixFmtYUV420P: "yuv420p",
	PixFmtYUYV422: "yuyv422",
	PixFmtRGB24:   "rgb24",
	PixFmtBGR24:   "bgr24",
	PixFmtYUV422P: "yuv422p",
	PixFmtYUV444P: "yuv444p",
	PixFmtYUV410P: "yuv410p",
	PixFmtYUV411P: "yuv411p",
	PixFmtGray8:   "gray",
}

var sampleFmtNames = [...]string{
	SampleFmtU8:   "u8",
	SampleFmtS16:  "s16",
	SampleFmtS32:  "s32",
	SampleFmtFlt:  "flt",
	SampleFmtDbl:  "dbl",
	SampleFmtU8P:  "u8p",
	SampleFmtS16P: "s16p",
	SampleFmtS32P: "s32p",
	SampleFmtFltP: "fltp",
	SampleFmtDblP: "dblp",
}

func formatName(names []string, f int32) string {
	if f >= 0 && int(f) < len(names) {
		return names[f]
	}
	return fmt.Sprintf("%d", f)
}

func parseFormat(names []string, s string) (int32, bool) {
	for i, name := range names {
		if name == s {
			return int32(i), true
		}
	}
	return -1, false
}

// PixFmtName returns the name of a pixel format.
func PixFmtName(f int32) string { return formatName(pixFmtNames[:], f) }

// SampleFmtName returns the name of a sample format.
func SampleFmtName(f int32) string { return formatName(sampleFmtNames[:], f) }

// ParsePixFmt returns the pixel format of the given name.
func ParsePixFmt(s string) (int32, bool) { return parseFormat(pixFmtNames[:], s) }

// FormatNames returns the names of the formats listed by a codec element,
// skipping the unused entries.
func (e *CodecElement) FormatNames() []string {
	var names []string
	for _, f := range e.Formats {
		if f < 0 {
			continue
		}
		if e.MediaType == Audio {
			names = append(names, SampleFmtName(f))
		} else {
			names = append(names, PixFmtName(f))
		}
	}
	return names
}
