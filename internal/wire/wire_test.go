package wire_test

import (
	"testing"

	"github.com/stealthrocket/brillcodec/internal/assert"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

func TestParseElements(t *testing.T) {
	elements := []wire.CodecElement{
		{
			CodecType: wire.Decoder,
			MediaType: wire.Video,
			Name:      "h264",
			LongName:  "H.264 / AVC / MPEG-4 AVC / MPEG-4 part 10",
			Formats:   [4]int32{wire.PixFmtYUV420P, -1, -1, -1},
		},
		{
			CodecType: wire.Encoder,
			MediaType: wire.Audio,
			Name:      "aac",
			LongName:  "AAC (Advanced Audio Coding)",
			Formats:   [4]int32{wire.SampleFmtFltP, -1, -1, -1},
		},
	}

	var blob []byte
	for i := range elements {
		blob = wire.AppendElement(blob, &elements[i])
	}
	assert.Equal(t, len(blob), 2*wire.ElementSize)
	assert.Equal(t, wire.ElementSize, 120)

	// A partial trailing record is not an element.
	blob = append(blob, 1, 2, 3)

	got, err := wire.ParseElements(blob)
	assert.OK(t, err)
	assert.EqualAll(t, got, elements)
}

func TestParseEmptyCatalog(t *testing.T) {
	got, err := wire.ParseElements(nil)
	assert.OK(t, err)
	assert.Equal(t, len(got), 0)
}

func TestPictureSize(t *testing.T) {
	tests := []struct {
		pixFmt int32
		width  int32
		height int32
		size   int
	}{
		{wire.PixFmtYUV420P, 352, 288, 152064},
		{wire.PixFmtYUV420P, 15, 15, 16*16 + 2*8*8},
		{wire.PixFmtYUV422P, 16, 2, 16*2 + 2*8*2},
		{wire.PixFmtYUV444P, 4, 4, 48},
		{wire.PixFmtRGB24, 3, 2, 12 * 2},
		{wire.PixFmtYUYV422, 2, 2, 8},
		{wire.PixFmtGray8, 5, 1, 8},
		{wire.PixFmtYUV420P, 0, 288, 0},
		{-1, 352, 288, 0},
	}

	for _, test := range tests {
		assert.Equal(t, wire.PictureSize(test.pixFmt, test.width, test.height), test.size)
	}
}

func TestCommandNumbering(t *testing.T) {
	v2 := []wire.Command{
		wire.V2GetElement,
		wire.V2GetContextIndex,
		wire.V2GetElementData,
		wire.V2PutDataIntoBuffer,
		wire.V2SecureBuffer,
		wire.V2TrySecureBuffer,
		wire.V2ReleaseBuffer,
		wire.V2InvokeAPIAndReleaseBuffer,
	}
	v3 := []wire.Command{
		wire.V3GetElementsSize,
		wire.V3GetElements,
		wire.V3GetContextIndex,
		wire.V3SecureBuffer,
		wire.V3TrySecureBuffer,
		wire.V3ReleaseBuffer,
		wire.V3InvokeAPIAndGetData,
		wire.V3GetProfileStatus,
	}

	seen := map[wire.Command]bool{wire.GetVersion: true}
	for _, cmd := range append(v2, v3...) {
		assert.False(t, seen[cmd])
		seen[cmd] = true
	}
	for _, cmd := range v2 {
		assert.Equal(t, cmd.Version(), 2)
	}
	for _, cmd := range v3 {
		assert.Equal(t, cmd.Version(), 3)
		assert.Equal(t, cmd.Size(), wire.IoctlDataSize)
	}

	assert.Equal(t, wire.GetVersion.Version(), 0)
	assert.Equal(t, uint32(wire.GetVersion), uint32(0x80044301))
	assert.Equal(t, wire.V2InvokeAPIAndReleaseBuffer.Size(), wire.InvokeDataSize)
	assert.Equal(t, wire.Command(42).Version(), -1)
	assert.Equal(t, wire.V3SecureBuffer.String(), "v3:SECURE_BUFFER")
}

func TestIoctlData(t *testing.T) {
	arg := make([]byte, wire.IoctlDataSize)
	in := wire.IoctlData{
		APIIndex:   wire.DecodeVideoAndPictureCopy,
		CtxIndex:   4,
		MemOffset:  wire.NoOffset,
		BufferSize: 152064,
	}
	in.Marshal(arg)

	var out wire.IoctlData
	out.Unmarshal(arg)
	assert.Equal(t, out, in)

	id := wire.BufferID{Index: 1, Size: 1 << 20}
	id.Marshal(arg)
	var id2 wire.BufferID
	id2.Unmarshal(arg)
	assert.Equal(t, id2, id)
}

func TestAPIString(t *testing.T) {
	assert.Equal(t, wire.DecodeAudio.String(), "decode_audio")
	assert.Equal(t, wire.API(99).String(), "API(99)")
	assert.Equal(t, wire.Audio.String(), "audio")
	assert.Equal(t, wire.Encoder.String(), "encoder")
}

func TestFormatNames(t *testing.T) {
	video := wire.CodecElement{MediaType: wire.Video, Formats: [4]int32{wire.PixFmtYUV420P, wire.PixFmtRGB24, -1, -1}}
	assert.EqualAll(t, video.FormatNames(), []string{"yuv420p", "rgb24"})

	audio := wire.CodecElement{MediaType: wire.Audio, Formats: [4]int32{wire.SampleFmtFltP, -1, -1, -1}}
	assert.EqualAll(t, audio.FormatNames(), []string{"fltp"})

	assert.Equal(t, wire.PixFmtName(42), "42")

	f, ok := wire.ParsePixFmt("yuv422p")
	assert.True(t, ok)
	assert.Equal(t, f, wire.PixFmtYUV422P)
	_, ok = wire.ParsePixFmt("nv12")
	assert.False(t, ok)
}
