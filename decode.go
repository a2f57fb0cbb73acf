package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/stealthrocket/brillcodec/internal/codec"
	"github.com/stealthrocket/brillcodec/internal/print/human"
	"github.com/stealthrocket/brillcodec/internal/print/jsonprint"
	"github.com/stealthrocket/brillcodec/internal/print/textprint"
	"github.com/stealthrocket/brillcodec/internal/print/yamlprint"
	"github.com/stealthrocket/brillcodec/internal/stream"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

const decodeUsage = `
Usage:	brillcodec decode [options] <file>

   Decode the content of a file on the device. The file is cut in frames of
   the chunk size which are fed to the decoder in order; one line is printed
   for each frame. Use "-" to read from the standard input. Files compressed
   with zstd or gzip are decompressed first.

   With --streams, the frames are decoded concurrently by as many codec
   contexts, which share the device. With --rate, each stream submits at
   most that many frames per second, like a player would. With --no-wait,
   a frame which finds no free shared memory fails the stream instead of
   waiting for the other streams to release their buffers.

Example:

   $ brillcodec decode --codec h264 --width 352 --height 288 video.h264
   STREAM  FRAME  SIZE  CONSUMED  PICTURE  WIDTH  HEIGHT  OUTPUT  ZERO-COPY
   0       0      4096  4096      true     352    288     152064  true
   ...

Options:
   -c, --config path       Path to the brillcodec configuration file (overrides BRILLCODECCONFIG)
       --channels n        Number of audio channels (default 2)
       --chunk-size size   Size of the frames fed to the decoder (default 4 KiB)
       --codec name        Name of the decoder (default h264)
   -h, --help              Show usage information
       --height n          Height of the video pictures (default 288)
   -m, --media type        Media of the decoder, one of: video, audio (default video)
   -o, --output format     Output format, one of: text, json, yaml
       --no-wait           Fail instead of waiting when the shared memory is full
       --pix-fmt name      Pixel format of the video pictures (default yuv420p)
       --rate n            Maximum number of frames per second of each stream (default unlimited)
       --sample-rate n     Sample rate of the audio stream (default 44100)
       --streams n         Number of streams decoded concurrently (default 1)
       --width n           Width of the video pictures (default 352)
`

type frameRecord struct {
	Stream   int   `json:"stream"           yaml:"stream"           text:"STREAM"`
	Frame    int   `json:"frame"            yaml:"frame"            text:"FRAME"`
	Size     int   `json:"size"             yaml:"size"             text:"SIZE"`
	Consumed int32 `json:"consumed"         yaml:"consumed"         text:"CONSUMED"`
	Picture  bool  `json:"picture"          yaml:"picture"          text:"PICTURE"`
	Width    int32 `json:"width,omitempty"  yaml:"width,omitempty"  text:"WIDTH"`
	Height   int32 `json:"height,omitempty" yaml:"height,omitempty" text:"HEIGHT"`
	Output   int   `json:"output"           yaml:"output"           text:"OUTPUT"`
	ZeroCopy bool  `json:"zeroCopy"         yaml:"zero_copy"        text:"ZERO-COPY"`
}

type pixFmt string

func (p pixFmt) String() string {
	return string(p)
}

func (p *pixFmt) Set(value string) error {
	if _, ok := wire.ParsePixFmt(value); !ok {
		return fmt.Errorf("unsupported pixel format: %q", value)
	}
	*p = pixFmt(value)
	return nil
}

func decode(ctx context.Context, args []string) error {
	var (
		codecName  = "h264"
		media      = mediaType("video")
		format     = pixFmt("yuv420p")
		width      = 352
		height     = 288
		channels   = 2
		sampleRate = 44100
		chunkSize  = 4 * human.KiB
		streams    = 1
		fps        = 0
		noWait     = false
		output     = outputFormat("text")
	)

	flagSet := newFlagSet("brillcodec decode", decodeUsage)
	stringVar(flagSet, &codecName, "codec")
	customVar(flagSet, &media, "m", "media")
	customVar(flagSet, &format, "pix-fmt")
	intVar(flagSet, &width, "width")
	intVar(flagSet, &height, "height")
	intVar(flagSet, &channels, "channels")
	intVar(flagSet, &sampleRate, "sample-rate")
	customVar(flagSet, &chunkSize, "chunk-size")
	intVar(flagSet, &streams, "streams")
	intVar(flagSet, &fps, "rate")
	boolVar(flagSet, &noWait, "no-wait")
	customVar(flagSet, &output, "o", "output")

	args, err := parseFlags(flagSet, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return usageError("Expected exactly one input file as argument")
	}
	if streams < 1 {
		return usageError("The number of streams must be at least one")
	}
	if chunkSize == 0 {
		return usageError("The chunk size must not be zero")
	}
	if fps < 0 {
		return usageError("The frame rate must not be negative")
	}

	input, err := readInput(args[0])
	if err != nil {
		return err
	}
	frames, err := stream.ReadAll(stream.Chunks(bytes.NewReader(input), int(chunkSize)))
	if err != nil {
		return err
	}

	s, err := loadSession(codec.WithNonBlocking(noWait))
	if err != nil {
		return err
	}
	defer s.Close()

	catalog, err := s.Catalog()
	if err != nil {
		return err
	}
	element, ok := catalog.Lookup(wire.Decoder, mediaOf(media), codecName)
	if !ok {
		return fmt.Errorf("%s decoder not found: %s", media, codecName)
	}

	pix, _ := wire.ParsePixFmt(string(format))
	params := codec.Params{
		Video: wire.VideoData{
			Width:  int32(width),
			Height: int32(height),
			PixFmt: pix,
		},
		Audio: wire.AudioData{
			Channels:   int32(channels),
			SampleRate: int32(sampleRate),
		},
	}

	limit := rate.Inf
	if fps > 0 {
		limit = rate.Limit(fps)
	}

	records := make([][]frameRecord, streams)
	group, ctx := errgroup.WithContext(ctx)
	for i := range records {
		i := i
		limiter := rate.NewLimiter(limit, 1)
		group.Go(func() (err error) {
			records[i], err = decodeStream(ctx, s, element, params, i, frames, limiter)
			return err
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	w := newRecordWriter(stdout, output)
	for _, r := range records {
		if _, err := stream.Copy[frameRecord](w, stream.NewReader(r...)); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// newRecordWriter returns the writer of the frame records: one JSON line or
// one item of a YAML sequence per frame.
func newRecordWriter(w io.Writer, output outputFormat) stream.WriteCloser[frameRecord] {
	switch output {
	case "json":
		return jsonprint.NewWriter[frameRecord](w, jsonprint.Lines[frameRecord](true))
	case "yaml":
		return yamlprint.NewWriter[frameRecord](w, yamlprint.Sequence[frameRecord](true))
	default:
		return textprint.NewTableWriter[frameRecord](w)
	}
}

func mediaOf(m mediaType) wire.MediaType {
	if m == "audio" {
		return wire.Audio
	}
	return wire.Video
}

// decodeStream decodes the frames on a new codec context and returns one
// record per frame.
func decodeStream(ctx context.Context, s *codec.Session, element wire.CodecElement, params codec.Params, id int, frames [][]byte, limiter *rate.Limiter) (records []frameRecord, err error) {
	c, err := s.NewContext()
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := c.Deinit(); e != nil && err == nil {
			err = e
		}
	}()

	if err := c.Init(element, params); err != nil {
		return nil, err
	}

	var offset int64
	for i, frame := range frames {
		if err := limiter.Wait(ctx); err != nil {
			return records, err
		}
		r := frameRecord{Stream: id, Frame: i, Size: len(frame)}

		switch element.MediaType {
		case wire.Video:
			res, picture, err := c.DecodeVideoPicture(int32(i), offset, frame)
			if err != nil {
				return records, err
			}
			r.Consumed = res.Len
			r.Width, r.Height = res.Video.Width, res.Video.Height
			if picture != nil {
				r.Picture = true
				r.Output = picture.Len()
				r.ZeroCopy = picture.ZeroCopy()
				if err := picture.Release(); err != nil {
					return records, err
				}
			}
		default:
			res, err := c.DecodeAudio(frame)
			if err != nil {
				return records, err
			}
			r.Consumed = res.Len
			r.Output = len(res.Samples)
		}

		offset += int64(len(frame))
		records = append(records, r)
	}

	return records, c.Flush()
}

func readInput(path string) ([]byte, error) {
	var input []byte
	var err error
	if path == "-" {
		input, err = io.ReadAll(os.Stdin)
	} else {
		input, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}
	return decompress(input)
}

var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	gzipMagic = []byte{0x1F, 0x8B}
)

// decompress returns the content of zstd or gzip compressed input, and any
// other input unchanged.
func decompress(input []byte) ([]byte, error) {
	switch {
	case bytes.HasPrefix(input, zstdMagic):
		d, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, err
		}
		defer d.Close()
		output, err := d.DecodeAll(input, nil)
		if err != nil {
			return nil, fmt.Errorf("decompressing zstd input: %w", err)
		}
		return output, nil

	case bytes.HasPrefix(input, gzipMagic):
		r, err := gzip.NewReader(bytes.NewReader(input))
		if err != nil {
			return nil, fmt.Errorf("decompressing gzip input: %w", err)
		}
		defer r.Close()
		output, err := io.ReadAll(r)
		if err != nil {
			return nil, fmt.Errorf("decompressing gzip input: %w", err)
		}
		return output, nil

	default:
		return input, nil
	}
}
