package jsonprint_test

import (
	"bytes"
	"testing"

	"github.com/stealthrocket/brillcodec/internal/assert"
	"github.com/stealthrocket/brillcodec/internal/print/jsonprint"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

func TestWriteNothing(t *testing.T) {
	b := new(bytes.Buffer)
	w := jsonprint.NewWriter[wire.CodecElement](b)
	assert.OK(t, w.Close())
	assert.Equal(t, b.String(), "")
}

func TestWriteElements(t *testing.T) {
	b := new(bytes.Buffer)
	w := jsonprint.NewWriter[wire.CodecElement](b)
	_, err := w.Write([]wire.CodecElement{
		{
			CodecType: wire.Decoder,
			MediaType: wire.Video,
			Name:      "h264",
			LongName:  "H.264 & AVC",
			Formats:   [4]int32{0, -1, -1, -1},
		},
	})
	assert.OK(t, err)
	assert.OK(t, w.Close())
	assert.Equal(t, b.String(), `{
  "codecType": 0,
  "mediaType": 0,
  "name": "h264",
  "longName": "H.264 & AVC",
  "formats": [
    0,
    -1,
    -1,
    -1
  ]
}
`)
}

func TestWriteElementLines(t *testing.T) {
	b := new(bytes.Buffer)
	w := jsonprint.NewWriter[wire.CodecElement](b, jsonprint.Lines[wire.CodecElement](true))
	_, err := w.Write([]wire.CodecElement{
		{CodecType: wire.Decoder, MediaType: wire.Audio, Name: "aac", LongName: "AAC", Formats: [4]int32{8, -1, -1, -1}},
	})
	assert.OK(t, err)
	assert.Equal(t, b.String(), `{"codecType":0,"mediaType":1,"name":"aac","longName":"AAC","formats":[8,-1,-1,-1]}
`)

	_, err = w.Write([]wire.CodecElement{
		{CodecType: wire.Encoder, MediaType: wire.Video, Name: "h263", LongName: "H.263", Formats: [4]int32{0, -1, -1, -1}},
	})
	assert.OK(t, err)
	assert.OK(t, w.Close())
	assert.Equal(t, b.String(), `{"codecType":0,"mediaType":1,"name":"aac","longName":"AAC","formats":[8,-1,-1,-1]}
{"codecType":1,"mediaType":0,"name":"h263","longName":"H.263","formats":[0,-1,-1,-1]}
`)
}
