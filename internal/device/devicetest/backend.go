package devicetest

import (
	"golang.org/x/sys/unix"

	"github.com/stealthrocket/brillcodec/internal/wire"
)

// stream is the state of an initialized codec context.
type stream struct {
	element wire.CodecElement
	video   wire.VideoData
	audio   wire.AudioData
	frames  int
	flushes int
}

func (d *Device) codec() wire.Codec {
	if d.Protocol() == 3 {
		return wire.V3
	}
	return wire.V2
}

// invoke runs a codec function. The request buffer is consumed only when the
// function succeeds; on error it is still owned by the client.
func (d *Device) invoke(api wire.API, ctx int32, memOffset int32, hint int32) ([]byte, error) {
	d.stats.Invoked++
	if err := d.FailInvoke[api]; err != nil {
		return nil, err
	}
	var request []byte
	if memOffset != wire.NoOffset {
		block, ok := d.block(memOffset)
		if !ok {
			d.violationf("%s invoked with buffer at offset %d which is not reserved", api, memOffset)
			return nil, unix.EFAULT
		}
		request = block
	}
	res, err := d.call(api, ctx, request, hint)
	if err != nil {
		return nil, err
	}
	if request != nil {
		delete(d.blocks, uint32(memOffset))
		d.stats.Consumed++
	}
	return res, nil
}

func (d *Device) call(api wire.API, ctx int32, request []byte, hint int32) ([]byte, error) {
	c := d.codec()
	if !d.indices[ctx] {
		return nil, unix.EINVAL
	}
	s := d.streams[ctx]

	switch api {
	case wire.Init:
		if s != nil {
			return nil, unix.EBUSY
		}
		req, err := c.DecodeInitRequest(request)
		if err != nil {
			return nil, unix.EINVAL
		}
		res := wire.InitResponse{Status: d.InitStatus, Index: ctx}
		element := d.lookup(req.CodecType, req.MediaType, req.Name)
		if element == nil {
			res.Status = -1
		}
		if res.Status == 0 {
			s = &stream{element: *element, video: req.Video, audio: req.Audio}
			if req.MediaType == wire.Audio {
				s.audio.SampleFmt = element.Formats[0]
				s.audio.FrameSize = 1024
				s.audio.BitsPerSample = 16
				res.SampleFmt = s.audio.SampleFmt
				res.FrameSize = s.audio.FrameSize
				res.BitsPerSample = s.audio.BitsPerSample
			}
			d.streams[ctx] = s
		}
		return c.EncodeInitResponse(nil, req.MediaType, &res), nil

	case wire.Deinit:
		delete(d.streams, ctx)
		delete(d.indices, ctx)
		delete(d.pending, ctx)
		return nil, nil
	}

	if s == nil {
		return nil, unix.EINVAL
	}

	switch api {
	case wire.DecodeVideo, wire.DecodeVideoAndPictureCopy:
		if api == wire.DecodeVideoAndPictureCopy && d.Protocol() < 3 {
			return nil, unix.EINVAL
		}
		req, err := c.DecodeDecodeVideoRequest(request)
		if err != nil {
			return nil, unix.EINVAL
		}
		res := wire.DecodeVideoResponse{Len: int32(len(req.Inbuf)), Video: s.video}
		if len(req.Inbuf) > 0 {
			s.frames++
			res.GotPicture = 1
		}
		if api == wire.DecodeVideo {
			return c.EncodeDecodeVideoResponse(nil, &res), nil
		}
		var picture []byte
		if res.GotPicture != 0 {
			picture = Picture(s.video, s.frames)
		}
		return c.EncodeDecodeVideoPictureResponse(nil, &res, picture), nil

	case wire.PictureCopy:
		picture := Picture(s.video, s.frames)
		if hint > 0 && int(hint) < len(picture) {
			return nil, unix.ENOSPC
		}
		return picture, nil

	case wire.DecodeAudio:
		req, err := c.DecodeDecodeAudioRequest(request)
		if err != nil {
			return nil, unix.EINVAL
		}
		res := wire.DecodeAudioResponse{
			SampleRate:    s.audio.SampleRate,
			Channels:      s.audio.Channels,
			ChannelLayout: s.audio.ChannelLayout,
			Len:           -1,
		}
		if len(req.Inbuf) > 0 {
			res.Len = int32(len(req.Inbuf))
			res.Samples = Samples(req.Inbuf)
		}
		return c.EncodeDecodeAudioResponse(nil, &res), nil

	case wire.EncodeVideo:
		req, err := c.DecodeEncodeVideoRequest(request)
		if err != nil {
			return nil, unix.EINVAL
		}
		res := wire.EncodeVideoResponse{}
		if len(req.Inbuf) > 0 {
			res.Data = Compress(req.Inbuf)
			res.Len = int32(len(res.Data))
			res.CodedFrame = 1
			if s.frames == 0 {
				res.KeyFrame = 1
			}
			s.frames++
		}
		return c.EncodeEncodeVideoResponse(nil, &res), nil

	case wire.EncodeAudio:
		req, err := c.DecodeEncodeAudioRequest(request)
		if err != nil {
			return nil, unix.EINVAL
		}
		res := wire.EncodeAudioResponse{}
		if len(req.Inbuf) > 0 {
			res.Data = Compress(req.Inbuf)
			res.Len = int32(len(res.Data))
		}
		return c.EncodeEncodeAudioResponse(nil, &res), nil

	case wire.FlushBuffers:
		s.flushes++
		return nil, nil
	}

	return nil, unix.EINVAL
}

func (d *Device) lookup(codecType wire.CodecType, media wire.MediaType, name string) *wire.CodecElement {
	for i, e := range d.Elements {
		if e.CodecType == codecType && e.MediaType == media && e.Name == name {
			return &d.Elements[i]
		}
	}
	return nil
}

// Initialized reports whether a codec was opened on the context index.
func (d *Device) Initialized(ctx int32) bool {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return d.streams[ctx] != nil
}

// Flushes returns the number of times the context was flushed.
func (d *Device) Flushes(ctx int32) int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if s := d.streams[ctx]; s != nil {
		return s.flushes
	}
	return 0
}

// Picture returns the picture the device produces for the given frame number
// of a video stream.
func Picture(video wire.VideoData, frame int) []byte {
	picture := make([]byte, wire.PictureSize(video.PixFmt, video.Width, video.Height))
	for i := range picture {
		picture[i] = byte(frame + i)
	}
	return picture
}

// Samples returns the samples the device decodes from an audio frame: every
// input byte followed by its complement.
func Samples(inbuf []byte) []byte {
	samples := make([]byte, 2*len(inbuf))
	for i, b := range inbuf {
		samples[2*i+0] = b
		samples[2*i+1] = ^b
	}
	return samples
}

// Compress returns the frame the device encodes from raw input: the first
// half of the input.
func Compress(inbuf []byte) []byte {
	return append([]byte(nil), inbuf[:(len(inbuf)+1)/2]...)
}
