package cache

import (
	"encoding/binary"
	"hash/fnv"
	"math"
	"strconv"

	"github.com/gogpu/glyphtex/gpucore"
	"github.com/gogpu/glyphtex/text"
)

// Key identifies one cached glyph texture.
// Two keys are equal only when all three fields are equal.
type Key struct {
	// Rune is the character code point.
	Rune rune

	// FontID is the identity of the text.Font the glyph was rasterized from.
	FontID uint64

	// PixelSize is the font's pixel height.
	PixelSize float64
}

// KeyFor returns the cache key for r rendered with f.
func KeyFor(f *text.Font, r rune) Key {
	return Key{Rune: r, FontID: f.ID(), PixelSize: f.PixelHeight()}
}

// hash computes an FNV-1a hash of the key for shard selection.
func (k Key) hash() uint64 {
	var buf [20]byte
	binary.LittleEndian.PutUint32(buf[0:4], uint32(k.Rune)) //nolint:gosec // hash only
	binary.LittleEndian.PutUint64(buf[4:12], k.FontID)
	binary.LittleEndian.PutUint64(buf[12:20], math.Float64bits(k.PixelSize))
	h := fnv.New64a()
	_, _ = h.Write(buf[:]) // fnv.Write never returns an error
	return h.Sum64()
}

// flightKey is the in-flight request name for the key.
func (k Key) flightKey() string {
	b := make([]byte, 0, 48)
	b = strconv.AppendInt(b, int64(k.Rune), 16)
	b = append(b, '/')
	b = strconv.AppendUint(b, k.FontID, 16)
	b = append(b, '/')
	b = strconv.AppendUint(b, math.Float64bits(k.PixelSize), 16)
	return string(b)
}

// Entry is a cached glyph: its texture and the metrics needed to place it.
// Entries are never mutated after creation.
type Entry struct {
	Key Key

	// Texture is the glyph texture, or gpucore.InvalidTexture for a
	// zero-area glyph such as a space.
	Texture gpucore.TextureID

	// Width and Height are the texture dimensions in pixels.
	Width, Height int

	// XOffset and YOffset place the texture relative to the pen position
	// on the baseline.
	XOffset, YOffset int

	// Advance is the font's horizontal advance for the glyph in pixels.
	Advance float64
}

// Blank reports whether the entry has no texture to draw.
func (e Entry) Blank() bool {
	return e.Texture == gpucore.InvalidTexture || e.Width == 0 || e.Height == 0
}
