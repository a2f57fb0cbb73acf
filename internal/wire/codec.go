package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Codec encodes and decodes the messages exchanged with the device through
// the shared memory arena.
//
// Requests are written by the client at the offset of a secured buffer and
// read by the device; responses are written by the device and read by the
// client. Each Encode method has the matching Decode method, which is what
// the device side (and the tests) use to read what the client wrote.
//
// Slices returned by Decode methods alias the input buffer. When the buffer
// is part of the arena they must be copied before the arena slot is
// released.
type Codec struct {
	sizeHeader bool
}

var (
	// V2 is the codec of the second generation of the protocol.
	V2 = Codec{}
	// V3 is the codec of the third generation of the protocol, which
	// prefixes every request with its total size.
	V3 = Codec{sizeHeader: true}
)

// HeaderSize returns the size of the request framing.
func (c Codec) HeaderSize() int {
	if c.sizeHeader {
		return 4
	}
	return 0
}

func (c Codec) String() string {
	if c.sizeHeader {
		return "v3"
	}
	return "v2"
}

func (c Codec) begin(buffer []byte) ([]byte, int) {
	start := len(buffer)
	if c.sizeHeader {
		buffer = appendU32(buffer, 0)
	}
	return buffer, start
}

func (c Codec) end(buffer []byte, start int) []byte {
	if c.sizeHeader {
		binary.LittleEndian.PutUint32(buffer[start:], uint32(len(buffer)-start))
	}
	return buffer
}

func (c Codec) header(buffer []byte) ([]byte, error) {
	if !c.sizeHeader {
		return buffer, nil
	}
	size, rest, err := readU32(buffer)
	if err != nil {
		return nil, err
	}
	if size < 4 || uint64(size) > uint64(len(buffer)) {
		return nil, fmt.Errorf("invalid request size header: %d (buffer is %d bytes)", size, len(buffer))
	}
	return rest[:size-4], nil
}

// InitRequest opens a codec on the device.
type InitRequest struct {
	CodecType CodecType
	MediaType MediaType
	Name      string
	// Only one of Video or Audio is transmitted, depending on MediaType.
	Video     VideoData
	Audio     AudioData
	BitRate   int32
	CodecTag  int32
	Extradata []byte
}

func (c Codec) InitRequestSize(req *InitRequest) int {
	size := c.HeaderSize() + 4 + 4 + NameSize + 4 + 4 + 4 + len(req.Extradata)
	if req.MediaType == Audio {
		return size + AudioDataSize
	}
	return size + VideoDataSize
}

func (c Codec) EncodeInitRequest(buffer []byte, req *InitRequest) []byte {
	buffer, start := c.begin(buffer)
	buffer = appendI32(buffer, int32(req.CodecType))
	buffer = appendI32(buffer, int32(req.MediaType))
	buffer = appendName(buffer, req.Name, NameSize)
	if req.MediaType == Audio {
		buffer = appendAudioData(buffer, &req.Audio)
	} else {
		buffer = appendVideoData(buffer, &req.Video)
	}
	buffer = appendI32(buffer, req.BitRate)
	buffer = appendI32(buffer, req.CodecTag)
	buffer = appendPayload(buffer, req.Extradata)
	return c.end(buffer, start)
}

func (c Codec) DecodeInitRequest(buffer []byte) (req InitRequest, err error) {
	if buffer, err = c.header(buffer); err != nil {
		return
	}
	var v int32
	if v, buffer, err = readI32(buffer); err != nil {
		return
	}
	req.CodecType = CodecType(v)
	if v, buffer, err = readI32(buffer); err != nil {
		return
	}
	req.MediaType = MediaType(v)
	if req.Name, buffer, err = readName(buffer, NameSize); err != nil {
		return
	}
	if req.MediaType == Audio {
		req.Audio, buffer, err = readAudioData(buffer)
	} else {
		req.Video, buffer, err = readVideoData(buffer)
	}
	if err != nil {
		return
	}
	if req.BitRate, buffer, err = readI32(buffer); err != nil {
		return
	}
	if req.CodecTag, buffer, err = readI32(buffer); err != nil {
		return
	}
	req.Extradata, _, err = readPayload(buffer)
	return
}

// InitResponse is the answer of the device to an InitRequest. The audio
// fields are only transmitted for audio codecs.
type InitResponse struct {
	Status        int32
	Index         int32
	SampleFmt     int32
	FrameSize     int32
	BitsPerSample int32
}

func (c Codec) InitResponseSize(media MediaType) int {
	if media == Audio {
		return 5 * 4
	}
	return 2 * 4
}

func (c Codec) EncodeInitResponse(buffer []byte, media MediaType, res *InitResponse) []byte {
	buffer = appendI32(buffer, res.Status)
	buffer = appendI32(buffer, res.Index)
	if media == Audio {
		buffer = appendI32(buffer, res.SampleFmt)
		buffer = appendI32(buffer, res.FrameSize)
		buffer = appendI32(buffer, res.BitsPerSample)
	}
	return buffer
}

func (c Codec) DecodeInitResponse(buffer []byte, media MediaType) (res InitResponse, err error) {
	if res.Status, buffer, err = readI32(buffer); err != nil {
		return
	}
	if res.Index, buffer, err = readI32(buffer); err != nil {
		return
	}
	if media == Audio {
		if res.SampleFmt, buffer, err = readI32(buffer); err != nil {
			return
		}
		if res.FrameSize, buffer, err = readI32(buffer); err != nil {
			return
		}
		res.BitsPerSample, _, err = readI32(buffer)
	}
	return
}

// DecodeVideoRequest carries one compressed video frame.
type DecodeVideoRequest struct {
	FrameIndex int32
	InOffset   int64
	Inbuf      []byte
}

func (c Codec) DecodeVideoRequestSize(req *DecodeVideoRequest) int {
	return c.HeaderSize() + 4 + 4 + 8 + len(req.Inbuf)
}

func (c Codec) EncodeDecodeVideoRequest(buffer []byte, req *DecodeVideoRequest) []byte {
	buffer, start := c.begin(buffer)
	buffer = appendI32(buffer, int32(len(req.Inbuf)))
	buffer = appendI32(buffer, req.FrameIndex)
	buffer = appendI64(buffer, req.InOffset)
	buffer = append(buffer, req.Inbuf...)
	return c.end(buffer, start)
}

func (c Codec) DecodeDecodeVideoRequest(buffer []byte) (req DecodeVideoRequest, err error) {
	if buffer, err = c.header(buffer); err != nil {
		return
	}
	var size int32
	if size, buffer, err = readI32(buffer); err != nil {
		return
	}
	if req.FrameIndex, buffer, err = readI32(buffer); err != nil {
		return
	}
	if req.InOffset, buffer, err = readI64(buffer); err != nil {
		return
	}
	req.Inbuf, _, err = readBytes(buffer, size)
	return
}

// DecodeVideoResponse reports the outcome of decoding one video frame and
// the stream parameters after the frame.
type DecodeVideoResponse struct {
	Len        int32
	GotPicture int32
	Video      VideoData
}

// DecodeVideoResponseSize is the size of an encoded DecodeVideoResponse.
const DecodeVideoResponseSize = 4 + 4 + VideoDataSize

func (c Codec) EncodeDecodeVideoResponse(buffer []byte, res *DecodeVideoResponse) []byte {
	buffer = appendI32(buffer, res.Len)
	buffer = appendI32(buffer, res.GotPicture)
	return appendVideoData(buffer, &res.Video)
}

func (c Codec) DecodeDecodeVideoResponse(buffer []byte) (res DecodeVideoResponse, err error) {
	res, _, err = c.decodeVideoResponse(buffer)
	return
}

func (c Codec) decodeVideoResponse(buffer []byte) (res DecodeVideoResponse, _ []byte, err error) {
	if res.Len, buffer, err = readI32(buffer); err != nil {
		return
	}
	if res.GotPicture, buffer, err = readI32(buffer); err != nil {
		return
	}
	res.Video, buffer, err = readVideoData(buffer)
	return res, buffer, err
}

// EncodeDecodeVideoPictureResponse encodes the answer to a combined decode
// and picture copy: the decode response immediately followed by the picture
// bytes when a picture was produced.
func (c Codec) EncodeDecodeVideoPictureResponse(buffer []byte, res *DecodeVideoResponse, picture []byte) []byte {
	buffer = c.EncodeDecodeVideoResponse(buffer, res)
	return append(buffer, picture...)
}

// DecodeDecodeVideoPictureResponse decodes the answer to a combined decode
// and picture copy. The picture is empty when the device did not produce one.
func (c Codec) DecodeDecodeVideoPictureResponse(buffer []byte, pictureSize int) (res DecodeVideoResponse, picture []byte, err error) {
	if res, buffer, err = c.decodeVideoResponse(buffer); err != nil {
		return
	}
	if res.GotPicture == 0 {
		return res, nil, nil
	}
	picture, _, err = readBytes(buffer, int32(pictureSize))
	return
}

// DecodeAudioRequest carries one compressed audio frame.
type DecodeAudioRequest struct {
	Inbuf []byte
}

func (c Codec) DecodeAudioRequestSize(req *DecodeAudioRequest) int {
	return c.HeaderSize() + 4 + len(req.Inbuf)
}

func (c Codec) EncodeDecodeAudioRequest(buffer []byte, req *DecodeAudioRequest) []byte {
	buffer, start := c.begin(buffer)
	buffer = appendPayload(buffer, req.Inbuf)
	return c.end(buffer, start)
}

func (c Codec) DecodeDecodeAudioRequest(buffer []byte) (req DecodeAudioRequest, err error) {
	if buffer, err = c.header(buffer); err != nil {
		return
	}
	req.Inbuf, _, err = readPayload(buffer)
	return
}

// DecodeAudioResponse carries the samples decoded from one audio frame. The
// frame_size field of the wire format is the byte length of Samples.
type DecodeAudioResponse struct {
	SampleRate    int32
	Channels      int32
	ChannelLayout int64
	Len           int32
	Samples       []byte
}

func (c Codec) DecodeAudioResponseSize(res *DecodeAudioResponse) int {
	return 4 + 4 + 8 + 4 + 4 + len(res.Samples)
}

func (c Codec) EncodeDecodeAudioResponse(buffer []byte, res *DecodeAudioResponse) []byte {
	buffer = appendI32(buffer, res.SampleRate)
	buffer = appendI32(buffer, res.Channels)
	buffer = appendI64(buffer, res.ChannelLayout)
	buffer = appendI32(buffer, res.Len)
	return appendPayload(buffer, res.Samples)
}

func (c Codec) DecodeDecodeAudioResponse(buffer []byte) (res DecodeAudioResponse, err error) {
	if res.SampleRate, buffer, err = readI32(buffer); err != nil {
		return
	}
	if res.Channels, buffer, err = readI32(buffer); err != nil {
		return
	}
	if res.ChannelLayout, buffer, err = readI64(buffer); err != nil {
		return
	}
	if res.Len, buffer, err = readI32(buffer); err != nil {
		return
	}
	res.Samples, _, err = readPayload(buffer)
	return
}

// EncodeVideoRequest carries one raw video picture.
type EncodeVideoRequest struct {
	InTimestamp int64
	Inbuf       []byte
}

func (c Codec) EncodeVideoRequestSize(req *EncodeVideoRequest) int {
	return c.HeaderSize() + 4 + 8 + len(req.Inbuf)
}

func (c Codec) EncodeEncodeVideoRequest(buffer []byte, req *EncodeVideoRequest) []byte {
	buffer, start := c.begin(buffer)
	buffer = appendI32(buffer, int32(len(req.Inbuf)))
	buffer = appendI64(buffer, req.InTimestamp)
	buffer = append(buffer, req.Inbuf...)
	return c.end(buffer, start)
}

func (c Codec) DecodeEncodeVideoRequest(buffer []byte) (req EncodeVideoRequest, err error) {
	if buffer, err = c.header(buffer); err != nil {
		return
	}
	var size int32
	if size, buffer, err = readI32(buffer); err != nil {
		return
	}
	if req.InTimestamp, buffer, err = readI64(buffer); err != nil {
		return
	}
	req.Inbuf, _, err = readBytes(buffer, size)
	return
}

// EncodeVideoResponse carries one compressed video frame. Data holds Len
// bytes when Len is positive.
type EncodeVideoResponse struct {
	Len        int32
	CodedFrame int32
	KeyFrame   int32
	Data       []byte
}

func (c Codec) EncodeVideoResponseSize(res *EncodeVideoResponse) int {
	return 4 + 4 + 4 + len(res.Data)
}

func (c Codec) EncodeEncodeVideoResponse(buffer []byte, res *EncodeVideoResponse) []byte {
	buffer = appendI32(buffer, res.Len)
	buffer = appendI32(buffer, res.CodedFrame)
	buffer = appendI32(buffer, res.KeyFrame)
	return append(buffer, res.Data...)
}

func (c Codec) DecodeEncodeVideoResponse(buffer []byte) (res EncodeVideoResponse, err error) {
	if res.Len, buffer, err = readI32(buffer); err != nil {
		return
	}
	if res.CodedFrame, buffer, err = readI32(buffer); err != nil {
		return
	}
	if res.KeyFrame, buffer, err = readI32(buffer); err != nil {
		return
	}
	if res.Len > 0 {
		res.Data, _, err = readBytes(buffer, res.Len)
	}
	return
}

// EncodeAudioRequest carries raw audio samples.
type EncodeAudioRequest struct {
	Inbuf []byte
}

func (c Codec) EncodeAudioRequestSize(req *EncodeAudioRequest) int {
	return c.HeaderSize() + 4 + len(req.Inbuf)
}

func (c Codec) EncodeEncodeAudioRequest(buffer []byte, req *EncodeAudioRequest) []byte {
	buffer, start := c.begin(buffer)
	buffer = appendPayload(buffer, req.Inbuf)
	return c.end(buffer, start)
}

func (c Codec) DecodeEncodeAudioRequest(buffer []byte) (req EncodeAudioRequest, err error) {
	if buffer, err = c.header(buffer); err != nil {
		return
	}
	req.Inbuf, _, err = readPayload(buffer)
	return
}

// EncodeAudioResponse carries one compressed audio frame. Data holds Len
// bytes when Len is positive.
type EncodeAudioResponse struct {
	Len  int32
	Data []byte
}

func (c Codec) EncodeAudioResponseSize(res *EncodeAudioResponse) int {
	return 4 + len(res.Data)
}

func (c Codec) EncodeEncodeAudioResponse(buffer []byte, res *EncodeAudioResponse) []byte {
	buffer = appendI32(buffer, res.Len)
	return append(buffer, res.Data...)
}

func (c Codec) DecodeEncodeAudioResponse(buffer []byte) (res EncodeAudioResponse, err error) {
	if res.Len, buffer, err = readI32(buffer); err != nil {
		return
	}
	if res.Len > 0 {
		res.Data, _, err = readBytes(buffer, res.Len)
	}
	return
}

// ErrShortBuffer is returned when a message does not fit in the buffer
// secured for it.
var ErrShortBuffer = io.ErrShortBuffer
