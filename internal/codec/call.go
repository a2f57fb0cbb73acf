package codec

import (
	"fmt"

	"github.com/stealthrocket/brillcodec/internal/arena"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

// endpoint pairs the protocol calls with the arena they operate on. Its
// methods run the secure, marshal, invoke, unmarshal and release sequence of
// each codec function; callers serialize them.
type endpoint struct {
	iface Interface
	arena *arena.Arena
	// request buffers are reserved with TrySecure
	nonBlocking bool
}

func release(slot *arena.Slot, err *error) {
	if e := slot.Release(); e != nil && *err == nil {
		*err = e
	}
}

// exchange sends a request of the given size, produced by encode, and
// returns the slot holding the response when one is expected. A nil encode
// function sends no request.
func (e *endpoint) exchange(api wire.API, ctx int32, size int, encode func([]byte) []byte, hint int32, response bool) (res *arena.Slot, last bool, err error) {
	var req *arena.Slot
	if encode != nil {
		if e.nonBlocking {
			req, err = e.arena.TrySecure(ctx, uint32(size))
		} else {
			req, err = e.arena.Secure(ctx, uint32(size))
		}
		if err != nil {
			return nil, false, err
		}
		defer release(req, &err)

		buf := req.Bytes()
		if b := encode(buf[:0]); len(b) > len(buf) {
			return nil, false, fmt.Errorf("%s request of %d bytes does not fit in %d bytes buffer: %w", api, len(b), len(buf), wire.ErrShortBuffer)
		}
	}

	offset, last, err := e.iface.Invoke(api, ctx, req, hint, response)
	if err != nil || !response {
		return nil, false, err
	}
	res, err = e.arena.Adopt(offset)
	return res, last, err
}

func decodeError(api wire.API, err error) error {
	return fmt.Errorf("decoding %s response: %w", api, err)
}

func (e *endpoint) init(ctx int32, req *wire.InitRequest) (res wire.InitResponse, err error) {
	c := e.iface.Codec()
	encode := func(b []byte) []byte { return c.EncodeInitRequest(b, req) }
	slot, _, err := e.exchange(wire.Init, ctx, c.InitRequestSize(req), encode, 0, true)
	if err != nil {
		return res, err
	}
	defer release(slot, &err)

	if res, err = c.DecodeInitResponse(slot.Bytes(), req.MediaType); err != nil {
		err = decodeError(wire.Init, err)
	}
	return res, err
}

// control invokes a codec function which carries no message.
func (e *endpoint) control(api wire.API, ctx int32) error {
	_, _, err := e.exchange(api, ctx, 0, nil, 0, false)
	return err
}

func (e *endpoint) decodeVideo(ctx int32, req *wire.DecodeVideoRequest) (res wire.DecodeVideoResponse, err error) {
	c := e.iface.Codec()
	encode := func(b []byte) []byte { return c.EncodeDecodeVideoRequest(b, req) }
	slot, _, err := e.exchange(wire.DecodeVideo, ctx, c.DecodeVideoRequestSize(req), encode, 0, true)
	if err != nil {
		return res, err
	}
	defer release(slot, &err)

	if res, err = c.DecodeDecodeVideoResponse(slot.Bytes()); err != nil {
		err = decodeError(wire.DecodeVideo, err)
	}
	return res, err
}

// decodeVideoPicture decodes a video frame and copies out the picture in the
// same call. The size of the picture is derived from the stream parameters
// answered by the device.
func (e *endpoint) decodeVideoPicture(ctx int32, req *wire.DecodeVideoRequest, hint int32, handoff func(*arena.Slot, []byte, bool) (*Picture, error)) (res wire.DecodeVideoResponse, picture *Picture, err error) {
	c := e.iface.Codec()
	encode := func(b []byte) []byte { return c.EncodeDecodeVideoRequest(b, req) }
	slot, last, err := e.exchange(wire.DecodeVideoAndPictureCopy, ctx, c.DecodeVideoRequestSize(req), encode, hint, true)
	if err != nil {
		return res, nil, err
	}
	defer release(slot, &err)

	if res, err = c.DecodeDecodeVideoResponse(slot.Bytes()); err != nil {
		return res, nil, decodeError(wire.DecodeVideoAndPictureCopy, err)
	}
	size := wire.PictureSize(res.Video.PixFmt, res.Video.Width, res.Video.Height)
	res, data, err := c.DecodeDecodeVideoPictureResponse(slot.Bytes(), size)
	if err != nil {
		return res, nil, decodeError(wire.DecodeVideoAndPictureCopy, err)
	}
	if res.GotPicture == 0 {
		return res, nil, nil
	}
	picture, err = handoff(slot, data, last)
	return res, picture, err
}

func (e *endpoint) pictureCopy(ctx int32, size int, handoff func(*arena.Slot, []byte, bool) (*Picture, error)) (picture *Picture, err error) {
	slot, last, err := e.exchange(wire.PictureCopy, ctx, 0, nil, int32(size), true)
	if err != nil {
		return nil, err
	}
	defer release(slot, &err)

	data := slot.Bytes()
	if len(data) < size {
		return nil, decodeError(wire.PictureCopy, fmt.Errorf("picture of %d bytes at offset %d exceeds the shared memory: %w", size, slot.Offset(), wire.ErrShortBuffer))
	}
	return handoff(slot, data[:size:size], last)
}

func (e *endpoint) decodeAudio(ctx int32, req *wire.DecodeAudioRequest) (res wire.DecodeAudioResponse, err error) {
	c := e.iface.Codec()
	encode := func(b []byte) []byte { return c.EncodeDecodeAudioRequest(b, req) }
	slot, _, err := e.exchange(wire.DecodeAudio, ctx, c.DecodeAudioRequestSize(req), encode, 0, true)
	if err != nil {
		return res, err
	}
	defer release(slot, &err)

	if res, err = c.DecodeDecodeAudioResponse(slot.Bytes()); err != nil {
		return res, decodeError(wire.DecodeAudio, err)
	}
	res.Samples = clone(res.Samples)
	return res, nil
}

func (e *endpoint) encodeVideo(ctx int32, req *wire.EncodeVideoRequest) (res wire.EncodeVideoResponse, err error) {
	c := e.iface.Codec()
	encode := func(b []byte) []byte { return c.EncodeEncodeVideoRequest(b, req) }
	slot, _, err := e.exchange(wire.EncodeVideo, ctx, c.EncodeVideoRequestSize(req), encode, 0, true)
	if err != nil {
		return res, err
	}
	defer release(slot, &err)

	if res, err = c.DecodeEncodeVideoResponse(slot.Bytes()); err != nil {
		return res, decodeError(wire.EncodeVideo, err)
	}
	res.Data = clone(res.Data)
	return res, nil
}

func (e *endpoint) encodeAudio(ctx int32, req *wire.EncodeAudioRequest) (res wire.EncodeAudioResponse, err error) {
	c := e.iface.Codec()
	encode := func(b []byte) []byte { return c.EncodeEncodeAudioRequest(b, req) }
	slot, _, err := e.exchange(wire.EncodeAudio, ctx, c.EncodeAudioRequestSize(req), encode, 0, true)
	if err != nil {
		return res, err
	}
	defer release(slot, &err)

	if res, err = c.DecodeEncodeAudioResponse(slot.Bytes()); err != nil {
		return res, decodeError(wire.EncodeAudio, err)
	}
	res.Data = clone(res.Data)
	return res, nil
}

// clone copies b out of the shared memory; empty slices become nil.
func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return append([]byte(nil), b...)
}
