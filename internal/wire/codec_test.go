package wire_test

import (
	"encoding/binary"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/stealthrocket/brillcodec/internal/assert"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

var codecs = []struct {
	name  string
	codec wire.Codec
}{
	{"v2", wire.V2},
	{"v3", wire.V3},
}

var video = wire.VideoData{
	Width:         352,
	Height:        288,
	FpsN:          30,
	FpsD:          1,
	ParN:          1,
	ParD:          1,
	PixFmt:        wire.PixFmtYUV420P,
	Bpp:           12,
	TicksPerFrame: 1,
}

var audio = wire.AudioData{
	Channels:      2,
	SampleRate:    44100,
	BlockAlign:    4,
	Depth:         16,
	SampleFmt:     wire.SampleFmtS16,
	FrameSize:     1024,
	BitsPerSample: 16,
	ChannelLayout: 3,
}

// requests are compared with EquateEmpty because decoders return empty
// slices where the encoder was given nil ones.
var equateEmpty = cmpopts.EquateEmpty()

func checkSize(t *testing.T, c wire.Codec, b []byte, size int) {
	t.Helper()
	assert.Equal(t, len(b), size)
	if c.HeaderSize() != 0 {
		assert.Equal(t, int(binary.LittleEndian.Uint32(b)), size)
	}
}

func TestInitRoundTrip(t *testing.T) {
	requests := []wire.InitRequest{
		{
			CodecType: wire.Decoder,
			MediaType: wire.Video,
			Name:      "h264",
			Video:     video,
			Extradata: []byte{0, 0, 0, 1, 0x67, 0x42},
		},
		{
			CodecType: wire.Encoder,
			MediaType: wire.Audio,
			Name:      "aac",
			Audio:     audio,
			BitRate:   128000,
			CodecTag:  0xff,
		},
	}

	for _, test := range codecs {
		t.Run(test.name, func(t *testing.T) {
			for _, req := range requests {
				b := test.codec.EncodeInitRequest(nil, &req)
				checkSize(t, test.codec, b, test.codec.InitRequestSize(&req))

				got, err := test.codec.DecodeInitRequest(b)
				assert.OK(t, err)
				if diff := cmp.Diff(req, got, equateEmpty); diff != "" {
					t.Errorf("init request mismatch (-want +got):\n%s", diff)
				}

				res := wire.InitResponse{Status: 0, Index: 7}
				if req.MediaType == wire.Audio {
					res.SampleFmt = wire.SampleFmtFltP
					res.FrameSize = 1024
					res.BitsPerSample = 32
				}
				b = test.codec.EncodeInitResponse(nil, req.MediaType, &res)
				assert.Equal(t, len(b), test.codec.InitResponseSize(req.MediaType))

				r, err := test.codec.DecodeInitResponse(b, req.MediaType)
				assert.OK(t, err)
				assert.Equal(t, r, res)
			}
		})
	}
}

func TestInitRequestNameTruncation(t *testing.T) {
	req := wire.InitRequest{
		Name: "a-codec-name-which-is-far-too-long-for-the-field",
	}
	b := wire.V2.EncodeInitRequest(nil, &req)
	got, err := wire.V2.DecodeInitRequest(b)
	assert.OK(t, err)
	assert.Equal(t, got.Name, req.Name[:wire.NameSize-1])
}

func TestDecodeVideoRoundTrip(t *testing.T) {
	req := wire.DecodeVideoRequest{
		FrameIndex: 3,
		InOffset:   -1,
		Inbuf:      []byte("compressed frame"),
	}
	res := wire.DecodeVideoResponse{
		Len:        16,
		GotPicture: 1,
		Video:      video,
	}

	for _, test := range codecs {
		t.Run(test.name, func(t *testing.T) {
			b := test.codec.EncodeDecodeVideoRequest(nil, &req)
			checkSize(t, test.codec, b, test.codec.DecodeVideoRequestSize(&req))

			got, err := test.codec.DecodeDecodeVideoRequest(b)
			assert.OK(t, err)
			if diff := cmp.Diff(req, got); diff != "" {
				t.Errorf("decode video request mismatch (-want +got):\n%s", diff)
			}

			b = test.codec.EncodeDecodeVideoResponse(nil, &res)
			assert.Equal(t, len(b), wire.DecodeVideoResponseSize)

			r, err := test.codec.DecodeDecodeVideoResponse(b)
			assert.OK(t, err)
			assert.Equal(t, r, res)
		})
	}
}

func TestDecodeVideoPictureRoundTrip(t *testing.T) {
	res := wire.DecodeVideoResponse{Len: 10, GotPicture: 1, Video: video}
	picture := []byte{1, 2, 3, 4, 5, 6}

	b := wire.V3.EncodeDecodeVideoPictureResponse(nil, &res, picture)
	r, p, err := wire.V3.DecodeDecodeVideoPictureResponse(b, len(picture))
	assert.OK(t, err)
	assert.Equal(t, r, res)
	assert.EqualAll(t, p, picture)

	_, _, err = wire.V3.DecodeDecodeVideoPictureResponse(b, len(picture)+1)
	assert.Error(t, err, wire.ErrShortBuffer)

	res.GotPicture = 0
	b = wire.V3.EncodeDecodeVideoPictureResponse(nil, &res, nil)
	_, p, err = wire.V3.DecodeDecodeVideoPictureResponse(b, len(picture))
	assert.OK(t, err)
	assert.Equal(t, len(p), 0)
}

func TestDecodeAudioRoundTrip(t *testing.T) {
	req := wire.DecodeAudioRequest{Inbuf: []byte("adts frame")}
	res := wire.DecodeAudioResponse{
		SampleRate:    48000,
		Channels:      2,
		ChannelLayout: 3,
		Len:           10,
		Samples:       make([]byte, 4096),
	}

	for _, test := range codecs {
		t.Run(test.name, func(t *testing.T) {
			b := test.codec.EncodeDecodeAudioRequest(nil, &req)
			checkSize(t, test.codec, b, test.codec.DecodeAudioRequestSize(&req))

			got, err := test.codec.DecodeDecodeAudioRequest(b)
			assert.OK(t, err)
			if diff := cmp.Diff(req, got); diff != "" {
				t.Errorf("decode audio request mismatch (-want +got):\n%s", diff)
			}

			b = test.codec.EncodeDecodeAudioResponse(nil, &res)
			assert.Equal(t, len(b), test.codec.DecodeAudioResponseSize(&res))

			r, err := test.codec.DecodeDecodeAudioResponse(b)
			assert.OK(t, err)
			if diff := cmp.Diff(res, r); diff != "" {
				t.Errorf("decode audio response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeVideoRoundTrip(t *testing.T) {
	req := wire.EncodeVideoRequest{
		InTimestamp: 33366666,
		Inbuf:       make([]byte, wire.PictureSize(wire.PixFmtYUV420P, 16, 16)),
	}
	res := wire.EncodeVideoResponse{
		Len:        5,
		CodedFrame: 1,
		KeyFrame:   1,
		Data:       []byte{0, 0, 1, 0x65, 0x88},
	}

	for _, test := range codecs {
		t.Run(test.name, func(t *testing.T) {
			b := test.codec.EncodeEncodeVideoRequest(nil, &req)
			checkSize(t, test.codec, b, test.codec.EncodeVideoRequestSize(&req))

			got, err := test.codec.DecodeEncodeVideoRequest(b)
			assert.OK(t, err)
			if diff := cmp.Diff(req, got); diff != "" {
				t.Errorf("encode video request mismatch (-want +got):\n%s", diff)
			}

			b = test.codec.EncodeEncodeVideoResponse(nil, &res)
			assert.Equal(t, len(b), test.codec.EncodeVideoResponseSize(&res))

			r, err := test.codec.DecodeEncodeVideoResponse(b)
			assert.OK(t, err)
			if diff := cmp.Diff(res, r); diff != "" {
				t.Errorf("encode video response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeAudioRoundTrip(t *testing.T) {
	req := wire.EncodeAudioRequest{Inbuf: make([]byte, 4096)}
	res := wire.EncodeAudioResponse{Len: 3, Data: []byte{0xff, 0xf1, 0x50}}

	for _, test := range codecs {
		t.Run(test.name, func(t *testing.T) {
			b := test.codec.EncodeEncodeAudioRequest(nil, &req)
			checkSize(t, test.codec, b, test.codec.EncodeAudioRequestSize(&req))

			got, err := test.codec.DecodeEncodeAudioRequest(b)
			assert.OK(t, err)
			assert.Equal(t, len(got.Inbuf), len(req.Inbuf))

			b = test.codec.EncodeEncodeAudioResponse(nil, &res)
			r, err := test.codec.DecodeEncodeAudioResponse(b)
			assert.OK(t, err)
			if diff := cmp.Diff(res, r); diff != "" {
				t.Errorf("encode audio response mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestNegativeLengthCarriesNoData(t *testing.T) {
	b := wire.V3.EncodeEncodeAudioResponse(nil, &wire.EncodeAudioResponse{Len: -1})
	r, err := wire.V3.DecodeEncodeAudioResponse(b)
	assert.OK(t, err)
	assert.Equal(t, r.Len, int32(-1))
	assert.Equal(t, len(r.Data), 0)
}

func TestV3RejectsCorruptSizeHeader(t *testing.T) {
	req := wire.EncodeAudioRequest{Inbuf: []byte("pcm")}
	b := wire.V3.EncodeEncodeAudioRequest(nil, &req)
	binary.LittleEndian.PutUint32(b, uint32(len(b)+1))
	_, err := wire.V3.DecodeEncodeAudioRequest(b)
	assert.True(t, err != nil)
}

func TestV2AndV3Framing(t *testing.T) {
	req := wire.DecodeAudioRequest{Inbuf: []byte("frame")}
	v2 := wire.V2.EncodeDecodeAudioRequest(nil, &req)
	v3 := wire.V3.EncodeDecodeAudioRequest(nil, &req)
	assert.Equal(t, len(v3), len(v2)+4)
	assert.EqualAll(t, v3[4:], v2)
}

func TestEncodeAppendsToBuffer(t *testing.T) {
	prefix := []byte("prefix")
	req := wire.EncodeAudioRequest{Inbuf: []byte("pcm")}
	b := wire.V3.EncodeEncodeAudioRequest(append([]byte{}, prefix...), &req)
	assert.EqualAll(t, b[:len(prefix)], prefix)
	assert.Equal(t, int(binary.LittleEndian.Uint32(b[len(prefix):])), len(b)-len(prefix))
}
