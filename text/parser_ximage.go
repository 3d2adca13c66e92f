package text

import (
	"fmt"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/font/sfnt"
	"golang.org/x/image/math/fixed"
)

// ximageParser implements FontParser using golang.org/x/image/font/sfnt.
type ximageParser struct{}

// Parse implements FontParser.Parse.
func (p *ximageParser) Parse(data []byte) (ParsedFont, error) {
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("text: failed to parse font: %w", err)
	}
	upem := int(f.UnitsPerEm())
	if upem <= 0 {
		return nil, fmt.Errorf("text: invalid units per em %d", upem)
	}
	return &ximageParsedFont{
		font: f,
		ppem: fixed.Int26_6(upem << 6),
		upem: upem,
	}, nil
}

// ximageParsedFont implements ParsedFont using sfnt.Font.
//
// Every query is made at ppem == unitsPerEm so the results come back in
// font units. The shared sfnt.Buffer is not goroutine safe, hence mu.
type ximageParsedFont struct {
	font *opentype.Font
	ppem fixed.Int26_6
	upem int

	mu  sync.Mutex
	buf sfnt.Buffer
}

// Name implements ParsedFont.Name.
func (f *ximageParsedFont) Name() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name, err := f.font.Name(&f.buf, sfnt.NameIDFamily); err == nil {
		return name
	}
	return ""
}

// UnitsPerEm implements ParsedFont.UnitsPerEm.
func (f *ximageParsedFont) UnitsPerEm() int {
	return f.upem
}

// GlyphIndex implements ParsedFont.GlyphIndex.
func (f *ximageParsedFont) GlyphIndex(r rune) (uint16, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	idx, err := f.font.GlyphIndex(&f.buf, r)
	if err != nil || idx == 0 {
		return 0, false
	}
	return uint16(idx), true
}

// GlyphAdvance implements ParsedFont.GlyphAdvance.
func (f *ximageParsedFont) GlyphAdvance(gid uint16) float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	advance, err := f.font.GlyphAdvance(&f.buf, sfnt.GlyphIndex(gid), f.ppem, font.HintingNone)
	if err != nil {
		return 0
	}
	return fixedToFloat64(advance)
}

// GlyphOutline implements ParsedFont.GlyphOutline.
func (f *ximageParsedFont) GlyphOutline(gid uint16) (GlyphOutline, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	segments, err := f.font.LoadGlyph(&f.buf, sfnt.GlyphIndex(gid), f.ppem, nil)
	if err != nil {
		return GlyphOutline{}, fmt.Errorf("text: load glyph %d: %w", gid, err)
	}

	out := GlyphOutline{Segments: make([]OutlineSegment, 0, len(segments))}
	for _, seg := range segments {
		s := OutlineSegment{}
		switch seg.Op {
		case sfnt.SegmentOpMoveTo:
			s.Op = OutlineOpMoveTo
		case sfnt.SegmentOpLineTo:
			s.Op = OutlineOpLineTo
		case sfnt.SegmentOpQuadTo:
			s.Op = OutlineOpQuadTo
		case sfnt.SegmentOpCubeTo:
			s.Op = OutlineOpCubicTo
		default:
			continue
		}
		// sfnt segments are y-down; outlines are y-up.
		for i, p := range seg.Args {
			s.Points[i] = OutlinePoint{X: float32(p.X) / 64, Y: -float32(p.Y) / 64}
		}
		out.Segments = append(out.Segments, s)
	}
	return out, nil
}

// Metrics implements ParsedFont.Metrics.
func (f *ximageParsedFont) Metrics() FontMetrics {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, err := f.font.Metrics(&f.buf, f.ppem, font.HintingNone)
	if err != nil {
		return FontMetrics{}
	}
	ascent := fixedToFloat64(m.Ascent)
	descent := fixedToFloat64(m.Descent)
	return FontMetrics{
		Ascent:  ascent,
		Descent: -descent,
		LineGap: fixedToFloat64(m.Height) - ascent - descent,
	}
}

// fixedToFloat64 converts fixed.Int26_6 to float64.
func fixedToFloat64(x fixed.Int26_6) float64 {
	return float64(x) / 64.0
}
