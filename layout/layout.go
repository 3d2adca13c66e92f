package layout

import (
	"iter"
	"math"
	"slices"

	"golang.org/x/text/unicode/norm"

	"github.com/gogpu/glyphtex"
	"github.com/gogpu/glyphtex/cache"
	"github.com/gogpu/glyphtex/gpucore"
	"github.com/gogpu/glyphtex/text"
)

// PositionedGlyph is one textured quad to draw.
type PositionedGlyph struct {
	// Char is the character the glyph was laid out for. Fallback glyphs
	// keep the character they replace.
	Char rune

	// Texture is the cached glyph texture.
	Texture gpucore.TextureID

	// X and Y are the top-left corner of the quad in target pixels.
	X, Y int

	// Width and Height are the quad size in pixels.
	Width, Height int
}

// Engine lays out strings into positioned glyph quads, populating a
// GlyphTextureCache as it goes.
//
// An Engine holds no per-call state and is safe for concurrent use as
// long as its cache is.
type Engine struct {
	cache     *cache.GlyphTextureCache
	config    Config
	rasterize text.Rasterizer
	notdef    func(*text.Font) (text.RasterizedGlyph, error)
}

// New creates a layout engine backed by c.
func New(c *cache.GlyphTextureCache, opts ...Option) *Engine {
	e := &Engine{
		cache:     c,
		config:    DefaultConfig(),
		rasterize: text.Rasterize,
		notdef:    text.RasterizeNotdef,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() Config {
	return e.config
}

// Cache returns the glyph texture cache the engine populates.
func (e *Engine) Cache() *cache.GlyphTextureCache {
	return e.cache
}

// Layout returns the positioned glyphs for s rendered with f.
//
// The sequence is lazy: each glyph is looked up (and on a miss rasterized
// and uploaded) when the consumer asks for it. It is finite and can be
// iterated again; a second pass yields the same glyphs at the same
// positions, served from the cache.
//
// The pen starts at Config.Origin, the top of the first line; glyphs sit
// on the baseline Font.Baseline() pixels below it. '\n' returns the pen
// to Origin.X and moves down one Font.LineHeight(). '\r' is ignored.
// Zero-area glyphs such as spaces advance the pen without being yielded.
//
// A character that cannot be rasterized is replaced by the font's missing
// glyph; if that fails too the character is skipped, but the pen still
// advances by the font's advance for it.
func (e *Engine) Layout(f *text.Font, s string) iter.Seq[PositionedGlyph] {
	return func(yield func(PositionedGlyph) bool) {
		in := s
		if e.config.Normalize {
			in = norm.NFC.String(s)
		}

		origin := e.config.Origin
		penX := float64(origin.X)
		line := 0
		baseline := origin.Y + f.Baseline()

		for _, r := range in {
			switch r {
			case '\n':
				penX = float64(origin.X)
				line++
				baseline = origin.Y + int(math.Round(float64(line)*f.LineHeight())) + f.Baseline()
				continue
			case '\r':
				continue
			}

			entry, ok := e.glyph(f, r)
			if !ok {
				penX += f.Advance(r)
				continue
			}

			if !entry.Blank() {
				g := PositionedGlyph{
					Char:    r,
					Texture: entry.Texture,
					X:       int(math.Round(penX)) + entry.XOffset,
					Y:       baseline + entry.YOffset,
					Width:   entry.Width,
					Height:  entry.Height,
				}
				if !yield(g) {
					return
				}
			}

			switch e.config.Advance {
			case AdvanceBitmapGap:
				penX += float64(entry.Width + e.config.Gap)
			default:
				penX += entry.Advance
			}
		}
	}
}

// Collect runs Layout to completion and returns the glyphs in order.
func (e *Engine) Collect(f *text.Font, s string) []PositionedGlyph {
	return slices.Collect(e.Layout(f, s))
}

// glyph resolves r through the cache, degrading to the missing glyph.
func (e *Engine) glyph(f *text.Font, r rune) (cache.Entry, bool) {
	entry, err := e.cache.LookupOrCreate(cache.KeyFor(f, r), func() (text.RasterizedGlyph, error) {
		return e.rasterize(f, r)
	})
	if err == nil {
		return entry, true
	}

	log := glyphtex.Logger()
	log.Warn("glyph unavailable, using missing glyph", "char", string(r), "err", err)

	entry, ferr := e.cache.LookupOrCreate(cache.KeyFor(f, text.NotdefRune), func() (text.RasterizedGlyph, error) {
		return e.notdef(f)
	})
	if ferr == nil {
		return entry, true
	}

	log.Warn("glyph skipped", "char", string(r), "err", ferr)
	return cache.Entry{}, false
}
