package codec_test

import (
	"testing"

	"github.com/stealthrocket/brillcodec/internal/assert"
	"github.com/stealthrocket/brillcodec/internal/codec"
	"github.com/stealthrocket/brillcodec/internal/device/devicetest"
	"github.com/stealthrocket/brillcodec/internal/wire"
)

func TestCatalogLookup(t *testing.T) {
	catalog := codec.NewCatalog(devicetest.DefaultElements())
	assert.Equal(t, catalog.Len(), 6)

	e, ok := catalog.Lookup(wire.Decoder, wire.Audio, "aac")
	assert.True(t, ok)
	assert.Equal(t, e.Formats[0], wire.SampleFmtFltP)

	_, ok = catalog.Lookup(wire.Encoder, wire.Audio, "aac")
	assert.False(t, ok)
	_, ok = catalog.Lookup(wire.Decoder, wire.Video, "aac")
	assert.False(t, ok)
}

func TestCatalogFilter(t *testing.T) {
	catalog := codec.NewCatalog(devicetest.DefaultElements())

	var names []string
	for _, e := range catalog.Filter(wire.Decoder, wire.Video) {
		names = append(names, e.Name)
	}
	assert.EqualAll(t, names, []string{"h264", "mpeg4"})

	names = names[:0]
	for _, e := range catalog.Filter(wire.Decoder, wire.Audio) {
		names = append(names, e.Name)
	}
	assert.EqualAll(t, names, []string{"aac", "mp3"})
}

func TestCatalogIsACopy(t *testing.T) {
	elements := devicetest.DefaultElements()
	catalog := codec.NewCatalog(elements)
	elements[0].Name = "changed"

	got := catalog.Elements()
	assert.Equal(t, got[0].Name, "h264")
	got[0].Name = "changed"
	assert.Equal(t, catalog.Elements()[0].Name, "h264")
}
