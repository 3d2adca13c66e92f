package text

import (
	"bytes"
	"fmt"
	"sync"

	"github.com/go-text/typesetting/font"
	ot "github.com/go-text/typesetting/font/opentype"
)

// gotextParser implements FontParser using github.com/go-text/typesetting.
// Select it with WithParser("gotext").
type gotextParser struct{}

// Parse implements FontParser.Parse.
func (p *gotextParser) Parse(data []byte) (ParsedFont, error) {
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("text: failed to parse font: %w", err)
	}
	if face.Upem() == 0 {
		return nil, fmt.Errorf("text: invalid units per em 0")
	}
	return &gotextParsedFont{face: face}, nil
}

// gotextParsedFont implements ParsedFont using font.Face.
// font.Face keeps internal lookup caches and must not be shared
// between goroutines without a lock.
type gotextParsedFont struct {
	mu   sync.Mutex
	face *font.Face
}

// Name implements ParsedFont.Name.
func (f *gotextParsedFont) Name() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.face.Describe().Family
}

// UnitsPerEm implements ParsedFont.UnitsPerEm.
func (f *gotextParsedFont) UnitsPerEm() int {
	return int(f.face.Upem())
}

// GlyphIndex implements ParsedFont.GlyphIndex.
func (f *gotextParsedFont) GlyphIndex(r rune) (uint16, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	gid, ok := f.face.NominalGlyph(r)
	if !ok || gid == 0 {
		return 0, false
	}
	return uint16(gid), true //nolint:gosec // TrueType glyph ids are 16-bit
}

// GlyphAdvance implements ParsedFont.GlyphAdvance.
func (f *gotextParsedFont) GlyphAdvance(gid uint16) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return float64(f.face.HorizontalAdvance(font.GID(gid)))
}

// GlyphOutline implements ParsedFont.GlyphOutline.
func (f *gotextParsedFont) GlyphOutline(gid uint16) (GlyphOutline, error) {
	f.mu.Lock()
	data := f.face.GlyphData(font.GID(gid))
	f.mu.Unlock()

	var src font.GlyphOutline
	switch g := data.(type) {
	case font.GlyphOutline:
		src = g
	case font.GlyphSVG:
		src = g.Outline
	case font.GlyphBitmap:
		if g.Outline != nil {
			src = *g.Outline
		}
	case nil:
		return GlyphOutline{}, fmt.Errorf("text: no glyph data for glyph %d", gid)
	}

	out := GlyphOutline{Segments: make([]OutlineSegment, 0, len(src.Segments))}
	for _, seg := range src.Segments {
		s := OutlineSegment{}
		switch seg.Op {
		case ot.SegmentOpMoveTo:
			s.Op = OutlineOpMoveTo
		case ot.SegmentOpLineTo:
			s.Op = OutlineOpLineTo
		case ot.SegmentOpQuadTo:
			s.Op = OutlineOpQuadTo
		case ot.SegmentOpCubeTo:
			s.Op = OutlineOpCubicTo
		default:
			continue
		}
		for i, p := range seg.Args {
			s.Points[i] = OutlinePoint{X: p.X, Y: p.Y}
		}
		out.Segments = append(out.Segments, s)
	}
	return out, nil
}

// Metrics implements ParsedFont.Metrics.
func (f *gotextParsedFont) Metrics() FontMetrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	ext, _ := f.face.FontHExtents()
	return FontMetrics{
		Ascent:  float64(ext.Ascender),
		Descent: float64(ext.Descender),
		LineGap: float64(ext.LineGap),
	}
}
