package codec

import (
	"golang.org/x/exp/slices"

	"github.com/stealthrocket/brillcodec/internal/wire"
)

// Catalog is the set of codecs advertised by a device.
type Catalog struct {
	elements []wire.CodecElement
}

// NewCatalog constructs a catalog of the given elements, kept in the order of
// the device.
func NewCatalog(elements []wire.CodecElement) *Catalog {
	return &Catalog{elements: slices.Clone(elements)}
}

// Elements returns a copy of the catalog entries.
func (c *Catalog) Elements() []wire.CodecElement {
	return slices.Clone(c.elements)
}

func (c *Catalog) Len() int {
	return len(c.elements)
}

// Lookup returns the codec of the given kind, media and name.
func (c *Catalog) Lookup(codecType wire.CodecType, media wire.MediaType, name string) (wire.CodecElement, bool) {
	i := slices.IndexFunc(c.elements, func(e wire.CodecElement) bool {
		return e.CodecType == codecType && e.MediaType == media && e.Name == name
	})
	if i < 0 {
		return wire.CodecElement{}, false
	}
	return c.elements[i], true
}

// Filter returns the codecs of the given kind and media, sorted by name.
func (c *Catalog) Filter(codecType wire.CodecType, media wire.MediaType) []wire.CodecElement {
	var elements []wire.CodecElement
	for _, e := range c.elements {
		if e.CodecType == codecType && e.MediaType == media {
			elements = append(elements, e)
		}
	}
	slices.SortFunc(elements, func(a, b wire.CodecElement) bool {
		return a.Name < b.Name
	})
	return elements
}
