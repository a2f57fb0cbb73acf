package textprint_test

import (
	"bytes"
	"testing"

	"github.com/stealthrocket/brillcodec/internal/assert"
	"github.com/stealthrocket/brillcodec/internal/print/textprint"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

type codec struct {
	Name    string         `text:"NAME"`
	Type    wire.CodecType `text:"TYPE"`
	Media   wire.MediaType `text:"MEDIA"`
	Formats []int32        `text:"FORMATS"`
	Long    string         `text:"-"`
}

var codecs = []codec{
	{Name: "mp3", Type: wire.Decoder, Media: wire.Audio, Formats: []int32{6}},
	{Name: "h264", Type: wire.Decoder, Media: wire.Video, Formats: []int32{0, 2}},
	{Name: "ac3", Type: wire.Encoder, Media: wire.Audio, Long: "AC-3"},
}

func TestTableWriteNothing(t *testing.T) {
	b := new(bytes.Buffer)
	w := textprint.NewTableWriter[codec](b)
	assert.OK(t, w.Close())
	assert.Equal(t, b.String(), "NAME  TYPE  MEDIA  FORMATS\n")
}

func TestTableWriteValues(t *testing.T) {
	b := new(bytes.Buffer)
	w := textprint.NewTableWriter[codec](b)
	_, err := w.Write(codecs)
	assert.OK(t, err)
	assert.OK(t, w.Close())
	assert.Equal(t, b.String(), `NAME  TYPE     MEDIA  FORMATS
mp3   decoder  audio  6
h264  decoder  video  0, 2
ac3   encoder  audio  
`)
}

func TestTableOrderBy(t *testing.T) {
	b := new(bytes.Buffer)
	w := textprint.NewTableWriter[codec](b,
		textprint.Header[codec](false),
		textprint.List[codec](true),
		textprint.OrderBy(func(a, b codec) bool { return a.Name < b.Name }),
	)
	_, err := w.Write(codecs)
	assert.OK(t, err)
	assert.OK(t, w.Close())
	assert.Equal(t, b.String(), "ac3\nh264\nmp3\n")
}

type probe struct{ version int }

func (p probe) String() string { return "version " + string(rune('0'+p.version)) }

func TestWriter(t *testing.T) {
	b := new(bytes.Buffer)
	w := textprint.NewWriter[probe](b, textprint.Separator[probe]("--\n"), textprint.Format[probe]("%v\n"))
	_, err := w.Write([]probe{{2}, {3}})
	assert.OK(t, err)
	assert.OK(t, w.Close())
	assert.Equal(t, b.String(), "version 2\n--\nversion 3\n")
}
