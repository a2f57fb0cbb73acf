package codec

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/stealthrocket/brillcodec/internal/wire"
)

// State is the lifecycle state of a codec context.
type State int

const (
	StateUnopened State = iota
	StateInitializing
	StateOpen
	StateClosing
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateUnopened:
		return "unopened"
	case StateInitializing:
		return "initializing"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Params are the stream parameters of a codec context.
type Params struct {
	Video     wire.VideoData `json:"video"     yaml:"video"`
	Audio     wire.AudioData `json:"audio"     yaml:"audio"`
	BitRate   int32          `json:"bitRate"   yaml:"bit_rate"`
	CodecTag  int32          `json:"codecTag"  yaml:"codec_tag"`
	Extradata []byte         `json:"extradata" yaml:"extradata"`
}

// Context is a codec opened on the device.
//
// The context keeps a mirror of the stream parameters, updated from the
// answers of the device after successful calls only. Contexts are safe to
// use concurrently, the calls are serialized by the session.
type Context struct {
	session *Session
	index   int32
	logger  *slog.Logger

	// protected by the session mutex
	state   State
	element wire.CodecElement
	params  Params
}

// Index returns the index assigned to the context by the device.
func (c *Context) Index() int32 {
	return c.index
}

func (c *Context) State() State {
	c.session.mutex.Lock()
	defer c.session.mutex.Unlock()
	return c.state
}

// Codec returns the codec the context was initialized with.
func (c *Context) Codec() wire.CodecElement {
	c.session.mutex.Lock()
	defer c.session.mutex.Unlock()
	return c.element
}

// Params returns the mirrored stream parameters.
func (c *Context) Params() Params {
	c.session.mutex.Lock()
	defer c.session.mutex.Unlock()
	p := c.params
	p.Extradata = clone(p.Extradata)
	return p
}

func (c *Context) lock() func() {
	c.session.mutex.Lock()
	return c.session.mutex.Unlock
}

func (c *Context) errorf(op string, err error) error {
	c.logger.Warn(op+" failed", slog.Any("error", err))
	return fmt.Errorf("%s on codec context %d: %w", op, c.index, err)
}

// check verifies that codec functions can run on the context.
func (c *Context) check(op string) error {
	switch c.state {
	case StateOpen:
		return nil
	case StateClosing, StateClosed:
		return fmt.Errorf("%s on codec context %d: %w", op, c.index, ErrContextClosed)
	default:
		return fmt.Errorf("%s on codec context %d in state %s: %w", op, c.index, c.state, ErrContextNotOpen)
	}
}

// Init opens the codec element on the context with the given parameters.
//
// The context stays in the initializing state if the device rejects the
// codec; Init may then be retried, or the context deinitialized.
func (c *Context) Init(element wire.CodecElement, params Params) error {
	defer c.lock()()

	switch c.state {
	case StateClosing, StateClosed:
		return fmt.Errorf("init on codec context %d: %w", c.index, ErrContextClosed)
	case StateOpen:
		return fmt.Errorf("init on codec context %d: %w", c.index, ErrContextAlreadyOpen)
	}
	c.state = StateInitializing

	req := wire.InitRequest{
		CodecType: element.CodecType,
		MediaType: element.MediaType,
		Name:      element.Name,
		Video:     params.Video,
		Audio:     params.Audio,
		BitRate:   params.BitRate,
		CodecTag:  params.CodecTag,
		Extradata: params.Extradata,
	}
	res, err := c.session.endpoint.init(c.index, &req)
	switch {
	case err != nil:
	case res.Status != 0:
		err = &StatusError{API: wire.Init, Status: res.Status}
	case res.Index != c.index:
		err = fmt.Errorf("device answered for context %d: %w", res.Index, ErrDeviceCallFailed)
	}
	if err != nil {
		return c.errorf("init "+element.Name, err)
	}

	params.Extradata = clone(params.Extradata)
	if element.MediaType == wire.Audio {
		params.Audio.SampleFmt = res.SampleFmt
		params.Audio.FrameSize = res.FrameSize
		params.Audio.BitsPerSample = res.BitsPerSample
	}
	c.element, c.params, c.state = element, params, StateOpen
	c.logger.Debug("codec opened",
		slog.String("codec", element.Name),
		slog.String("type", element.CodecType.String()),
		slog.String("media", element.MediaType.String()))
	return nil
}

// Deinit closes the codec and gives the context index back to the device.
// Deinitializing a closed context is a no-op. The context is closed even if
// the device call fails.
func (c *Context) Deinit() error {
	defer c.lock()()

	switch c.state {
	case StateClosing, StateClosed:
		return nil
	}
	c.state = StateClosing
	err := c.session.endpoint.control(wire.Deinit, c.index)
	c.close()
	if err != nil {
		return c.errorf("deinit", err)
	}
	c.logger.Debug("codec closed")
	return nil
}

func (c *Context) close() {
	c.state = StateClosed
	delete(c.session.contexts, c.index)
}

// Flush drops the frames buffered by the codec.
func (c *Context) Flush() error {
	defer c.lock()()

	if err := c.check("flush"); err != nil {
		return err
	}
	if err := c.session.endpoint.control(wire.FlushBuffers, c.index); err != nil {
		return c.errorf("flush", err)
	}
	return nil
}

// DecodeVideo decodes one compressed video frame. The picture, if any, stays
// on the device until it is copied out with CopyPicture.
func (c *Context) DecodeVideo(frameIndex int32, inOffset int64, inbuf []byte) (wire.DecodeVideoResponse, error) {
	defer c.lock()()

	if err := c.check("decode video"); err != nil {
		return wire.DecodeVideoResponse{}, err
	}
	req := wire.DecodeVideoRequest{FrameIndex: frameIndex, InOffset: inOffset, Inbuf: inbuf}
	res, err := c.session.endpoint.decodeVideo(c.index, &req)
	if err != nil {
		return res, c.errorf("decode video", err)
	}
	c.params.Video = res.Video
	return res, nil
}

// DecodeVideoPicture decodes one compressed video frame and copies out the
// picture it produced. The picture is nil when the frame did not complete
// one.
//
// The third generation of the protocol does both in a single call, the
// second generation decodes then copies.
func (c *Context) DecodeVideoPicture(frameIndex int32, inOffset int64, inbuf []byte) (wire.DecodeVideoResponse, *Picture, error) {
	defer c.lock()()

	if err := c.check("decode video"); err != nil {
		return wire.DecodeVideoResponse{}, nil, err
	}
	req := wire.DecodeVideoRequest{FrameIndex: frameIndex, InOffset: inOffset, Inbuf: inbuf}
	e := &c.session.endpoint

	if e.iface.Protocol() == V2 {
		res, err := e.decodeVideo(c.index, &req)
		if err != nil {
			return res, nil, c.errorf("decode video", err)
		}
		c.params.Video = res.Video
		if res.GotPicture == 0 {
			return res, nil, nil
		}
		picture, err := c.copyPicture()
		return res, picture, err
	}

	hint, err := c.pictureHint(wire.PictureSize(c.params.Video.PixFmt, c.params.Video.Width, c.params.Video.Height))
	if err != nil {
		return wire.DecodeVideoResponse{}, nil, c.errorf("decode video", err)
	}
	res, picture, err := e.decodeVideoPicture(c.index, &req, hint, c.session.handoff)
	if err != nil {
		return res, nil, c.errorf("decode video", err)
	}
	c.params.Video = res.Video
	return res, picture, nil
}

// CopyPicture copies out the last picture decoded on the context.
func (c *Context) CopyPicture() (*Picture, error) {
	defer c.lock()()

	if err := c.check("copy picture"); err != nil {
		return nil, err
	}
	return c.copyPicture()
}

func (c *Context) copyPicture() (*Picture, error) {
	video := c.params.Video
	size := wire.PictureSize(video.PixFmt, video.Width, video.Height)
	if size == 0 {
		return nil, c.errorf("copy picture", fmt.Errorf("pixel format %d at %dx%d: %w", video.PixFmt, video.Width, video.Height, errors.ErrUnsupported))
	}
	if _, err := c.pictureHint(size); err != nil {
		return nil, c.errorf("copy picture", err)
	}
	picture, err := c.session.endpoint.pictureCopy(c.index, size, c.session.handoff)
	if err != nil {
		return nil, c.errorf("copy picture", err)
	}
	return picture, nil
}

// pictureHint returns the size hint sent to the device for a picture of the
// given size. Pictures larger than the shared memory are rejected before
// reaching the device.
func (c *Context) pictureHint(size int) (int32, error) {
	limit := min(c.session.endpoint.arena.Size(), math.MaxInt32)
	if size > limit {
		return 0, fmt.Errorf("picture of %d bytes exceeds the %d bytes of shared memory: %w", size, limit, ErrBufferUnavailable)
	}
	return int32(size), nil
}

// DecodeAudio decodes one compressed audio frame. A negative length in the
// response means the codec could not decode the frame; for aac decoders
// this is reported as ErrAacStreamDecodeFailed.
func (c *Context) DecodeAudio(inbuf []byte) (wire.DecodeAudioResponse, error) {
	defer c.lock()()

	if err := c.check("decode audio"); err != nil {
		return wire.DecodeAudioResponse{}, err
	}
	req := wire.DecodeAudioRequest{Inbuf: inbuf}
	res, err := c.session.endpoint.decodeAudio(c.index, &req)
	if err != nil {
		return res, c.errorf("decode audio", err)
	}
	if res.Len < 0 {
		if c.element.Name == "aac" {
			return res, c.errorf("decode audio", fmt.Errorf("%w: %w", ErrAacStreamDecodeFailed, ErrDeviceCallFailed))
		}
		return res, nil
	}
	c.params.Audio.SampleRate = res.SampleRate
	c.params.Audio.Channels = res.Channels
	c.params.Audio.ChannelLayout = res.ChannelLayout
	return res, nil
}

// EncodeVideo encodes one raw video picture.
func (c *Context) EncodeVideo(inTimestamp int64, inbuf []byte) (wire.EncodeVideoResponse, error) {
	defer c.lock()()

	if err := c.check("encode video"); err != nil {
		return wire.EncodeVideoResponse{}, err
	}
	req := wire.EncodeVideoRequest{InTimestamp: inTimestamp, Inbuf: inbuf}
	res, err := c.session.endpoint.encodeVideo(c.index, &req)
	if err != nil {
		return res, c.errorf("encode video", err)
	}
	return res, nil
}

// EncodeAudio encodes raw audio samples.
func (c *Context) EncodeAudio(inbuf []byte) (wire.EncodeAudioResponse, error) {
	defer c.lock()()

	if err := c.check("encode audio"); err != nil {
		return wire.EncodeAudioResponse{}, err
	}
	req := wire.EncodeAudioRequest{Inbuf: inbuf}
	res, err := c.session.endpoint.encodeAudio(c.index, &req)
	if err != nil {
		return res, c.errorf("encode audio", err)
	}
	return res, nil
}
