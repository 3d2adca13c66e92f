package text

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"golang.org/x/image/vector"
)

// NotdefRune is the Char reported by RasterizeNotdef. It is not a valid
// Unicode code point, so it never collides with a real character key.
const NotdefRune rune = -1

// RasterizedGlyph is a single glyph's 8-bit coverage bitmap and metrics.
//
// The bitmap is transient: it is meant to be uploaded to a texture and
// dropped. Nothing in glyphtex retains it after the upload.
type RasterizedGlyph struct {
	// Char is the character the glyph was produced for.
	Char rune

	// Bitmap holds Width*Height alpha values, row-major, stride Width.
	// It is nil for zero-area glyphs.
	Bitmap []byte

	// Width and Height are the inked extent in pixels. Either may be zero
	// for whitespace.
	Width, Height int

	// XOffset is the bitmap's left edge relative to the pen.
	XOffset int

	// YOffset is the bitmap's top edge relative to the baseline.
	// Negative values are above the baseline.
	YOffset int

	// Advance is the horizontal pen advance in pixels.
	Advance float64
}

// Empty reports whether the glyph has no visible pixels.
func (g RasterizedGlyph) Empty() bool {
	return g.Width == 0 || g.Height == 0
}

// Rasterizer converts a character of a Font into a coverage bitmap.
// Rasterize is the default implementation.
type Rasterizer func(f *Font, r rune) (RasterizedGlyph, error)

// Rasterize renders r with f into a bitmap sized exactly to the glyph's
// inked extent. The result is a pure function of (f, r).
//
// Characters the font has no glyph for are rendered as the font's
// missing glyph (glyph 0). The only error sources are a closed font and
// a glyph outline the font data cannot produce.
func Rasterize(f *Font, r rune) (RasterizedGlyph, error) {
	parsed, err := f.parsedFont()
	if err != nil {
		return RasterizedGlyph{}, err
	}
	gid, _ := parsed.GlyphIndex(r)
	return rasterizeGlyph(f, parsed, r, gid)
}

// RasterizeNotdef renders the font's missing glyph. Layout uses it as
// the fallback when a character cannot be rasterized.
func RasterizeNotdef(f *Font) (RasterizedGlyph, error) {
	parsed, err := f.parsedFont()
	if err != nil {
		return RasterizedGlyph{}, err
	}
	return rasterizeGlyph(f, parsed, NotdefRune, 0)
}

func rasterizeGlyph(f *Font, parsed ParsedFont, r rune, gid uint16) (RasterizedGlyph, error) {
	g := RasterizedGlyph{
		Char:    r,
		Advance: parsed.GlyphAdvance(gid) * f.scale,
	}

	outline, err := parsed.GlyphOutline(gid)
	if err != nil {
		return RasterizedGlyph{}, fmt.Errorf("text: rasterize %q: %w", r, err)
	}
	if outline.IsEmpty() {
		return g, nil
	}

	// Pixel space is y-down with the pen at the origin on the baseline.
	s := float32(f.scale)
	minX, minY, maxX, maxY := outline.Bounds()
	left := int(math.Floor(float64(minX * s)))
	top := int(math.Floor(float64(-maxY * s)))
	right := int(math.Ceil(float64(maxX * s)))
	bottom := int(math.Ceil(float64(-minY * s)))
	if right <= left || bottom <= top {
		return g, nil
	}

	w, h := right-left, bottom-top
	dx, dy := float32(left), float32(top)
	px := func(p OutlinePoint) (float32, float32) {
		return p.X*s - dx, -p.Y*s - dy
	}

	z := vector.NewRasterizer(w, h)
	z.DrawOp = draw.Src
	started := false
	for _, seg := range outline.Segments {
		switch seg.Op {
		case OutlineOpMoveTo:
			if started {
				z.ClosePath()
			}
			z.MoveTo(px(seg.Points[0]))
			started = true
		case OutlineOpLineTo:
			z.LineTo(px(seg.Points[0]))
		case OutlineOpQuadTo:
			bx, by := px(seg.Points[0])
			cx, cy := px(seg.Points[1])
			z.QuadTo(bx, by, cx, cy)
		case OutlineOpCubicTo:
			bx, by := px(seg.Points[0])
			cx, cy := px(seg.Points[1])
			ex, ey := px(seg.Points[2])
			z.CubeTo(bx, by, cx, cy, ex, ey)
		}
	}
	if started {
		z.ClosePath()
	}

	mask := image.NewAlpha(image.Rect(0, 0, w, h))
	z.Draw(mask, mask.Bounds(), image.Opaque, image.Point{})

	g.Bitmap = mask.Pix
	g.Width = w
	g.Height = h
	g.XOffset = left
	g.YOffset = top
	return g, nil
}
