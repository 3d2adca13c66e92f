package layout

import (
	"image"

	"github.com/gogpu/glyphtex/text"
)

// AdvanceMode selects how the pen moves after each glyph.
type AdvanceMode int

const (
	// AdvanceFont moves the pen by the font's advance width for the glyph.
	AdvanceFont AdvanceMode = iota

	// AdvanceBitmapGap moves the pen by the glyph bitmap width plus
	// Config.Gap. It ignores side bearings and misrenders proportional
	// text; it exists for fixed-cell rendering and compatibility.
	AdvanceBitmapGap
)

// String returns the mode name.
func (m AdvanceMode) String() string {
	switch m {
	case AdvanceFont:
		return "font"
	case AdvanceBitmapGap:
		return "bitmap-gap"
	default:
		return "unknown"
	}
}

// Config holds layout configuration.
type Config struct {
	// Origin is the top-left corner of the first line in target pixels.
	// Default: (100, 100)
	Origin image.Point

	// Advance selects the pen advance rule.
	// Default: AdvanceFont
	Advance AdvanceMode

	// Gap is the extra spacing in pixels after each glyph in
	// AdvanceBitmapGap mode.
	// Default: 4
	Gap int

	// Normalize applies Unicode NFC normalization to the input before
	// layout, so precomposed and decomposed input share cache entries.
	// Default: false
	Normalize bool
}

// DefaultConfig returns the default layout configuration.
func DefaultConfig() Config {
	return Config{
		Origin:  image.Pt(100, 100),
		Advance: AdvanceFont,
		Gap:     4,
	}
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfig replaces the whole configuration.
func WithConfig(c Config) Option {
	return func(e *Engine) {
		e.config = c
	}
}

// WithOrigin sets the top-left corner of the first line.
func WithOrigin(x, y int) Option {
	return func(e *Engine) {
		e.config.Origin = image.Pt(x, y)
	}
}

// WithAdvance sets the pen advance rule.
func WithAdvance(m AdvanceMode) Option {
	return func(e *Engine) {
		e.config.Advance = m
	}
}

// WithGap sets the inter-glyph gap used by AdvanceBitmapGap.
func WithGap(px int) Option {
	return func(e *Engine) {
		e.config.Gap = px
	}
}

// WithNormalization enables or disables NFC normalization of input.
func WithNormalization(on bool) Option {
	return func(e *Engine) {
		e.config.Normalize = on
	}
}

// WithRasterizer replaces text.Rasterize as the glyph source on cache
// misses. The missing-glyph fallback still uses text.RasterizeNotdef.
func WithRasterizer(r text.Rasterizer) Option {
	return func(e *Engine) {
		if r != nil {
			e.rasterize = r
		}
	}
}
