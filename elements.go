package main

import (
	"context"
	"io"

	"github.com/stealthrocket/brillcodec/internal/print/textprint"
	"github.com/stealthrocket/brillcodec/internal/stream"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

const elementsUsage = `
Usage:	brillcodec elements [options]

   List the codecs offered by the device. The list can be narrowed to
   decoders or encoders, and to video or audio codecs.

Options:
   -c, --config path    Path to the brillcodec configuration file (overrides BRILLCODECCONFIG)
   -h, --help           Show usage information
   -m, --media type     Only list codecs of this media, one of: video, audio
   -o, --output format  Output format, one of: text, json, yaml
   -q, --quiet          Only display the codec names
   -t, --type type      Only list codecs of this type, one of: decoder, encoder
`

type elementRow struct {
	Name        string         `text:"CODEC"`
	Type        wire.CodecType `text:"TYPE"`
	Media       wire.MediaType `text:"MEDIA"`
	Formats     []string       `text:"FORMATS"`
	Description string         `text:"DESCRIPTION"`
}

func elements(ctx context.Context, args []string) error {
	var (
		media  mediaType
		kind   codecType
		output = outputFormat("text")
		quiet  = false
	)

	flagSet := newFlagSet("brillcodec elements", elementsUsage)
	customVar(flagSet, &media, "m", "media")
	customVar(flagSet, &kind, "t", "type")
	customVar(flagSet, &output, "o", "output")
	boolVar(flagSet, &quiet, "q", "quiet")

	if _, err := parseFlags(flagSet, args); err != nil {
		return err
	}

	s, err := loadSession()
	if err != nil {
		return err
	}
	defer s.Close()

	catalog, err := s.Catalog()
	if err != nil {
		return err
	}

	var list []wire.CodecElement
	for _, t := range []wire.CodecType{wire.Decoder, wire.Encoder} {
		if kind != "" && kind != codecType(t.String()) {
			continue
		}
		for _, m := range []wire.MediaType{wire.Video, wire.Audio} {
			if media != "" && media != mediaType(m.String()) {
				continue
			}
			list = append(list, catalog.Filter(t, m)...)
		}
	}

	w := newWriter(stdout, output, func(w io.Writer) stream.WriteCloser[wire.CodecElement] {
		table := textprint.NewTableWriter[elementRow](w,
			textprint.Header[elementRow](!quiet),
			textprint.List[elementRow](quiet),
		)
		return writeCloser[wire.CodecElement]{
			Writer: stream.ConvertWriter[elementRow](table, func(e wire.CodecElement) (elementRow, error) {
				return elementRow{
					Name:        e.Name,
					Type:        e.CodecType,
					Media:       e.MediaType,
					Formats:     e.FormatNames(),
					Description: e.LongName,
				}, nil
			}),
			Closer: table,
		}
	})
	if _, err := stream.Copy[wire.CodecElement](w, stream.NewReader(list...)); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

type writeCloser[T any] struct {
	stream.Writer[T]
	io.Closer
}
