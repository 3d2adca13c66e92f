package text

import (
	"fmt"
	"math"
	"os"
	"sync"
	"sync/atomic"
)

// nextFontID hands out process-unique font identities. Zero is never used.
var nextFontID atomic.Uint64

// Font is a parsed font bound to one pixel height.
//
// A Font owns a private copy of the font bytes. It is immutable after
// construction and safe for concurrent use. Its ID is the font identity
// component of glyph cache keys; every cache entry keyed to a Font must
// be evicted before the Font is closed.
type Font struct {
	id          uint64
	pixelHeight float64
	scale       float64
	metrics     FontMetrics
	baseline    int
	name        string

	mu     sync.RWMutex
	data   []byte
	parsed ParsedFont
}

// Load reads the font file at path and binds it to pixelHeight.
//
// Any read failure (missing file, directory, permission denied) fails
// with ErrFileNotFound and keeps the underlying fs error in the chain, a
// zero-length file fails with ErrEmptyFile, and unparseable data with
// ErrMalformedFont. All file-level failures are reported as *LoadError
// carrying the path.
func Load(path string, pixelHeight float64, opts ...Option) (*Font, error) {
	// #nosec G304 -- font file path is provided by the caller
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Err: fmt.Errorf("%w: %w", ErrFileNotFound, err)}
	}
	if len(data) == 0 {
		return nil, &LoadError{Path: path, Err: ErrEmptyFile}
	}

	f, err := New(data, pixelHeight, opts...)
	if err != nil {
		return nil, &LoadError{Path: path, Err: err}
	}
	return f, nil
}

// New creates a Font from in-memory font data (TTF or OTF).
// The data slice is copied and can be reused after this call.
func New(data []byte, pixelHeight float64, opts ...Option) (*Font, error) {
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}
	if !(pixelHeight > 0) || math.IsInf(pixelHeight, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPixelHeight, pixelHeight)
	}

	config := defaultFontConfig()
	for _, opt := range opts {
		opt(&config)
	}

	blob := make([]byte, len(data))
	copy(blob, data)

	parsed, err := getParser(config.parserName).Parse(blob)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedFont, err)
	}

	metrics := parsed.Metrics()
	scale := pixelHeight / float64(parsed.UnitsPerEm())

	return &Font{
		id:          nextFontID.Add(1),
		pixelHeight: pixelHeight,
		scale:       scale,
		metrics:     metrics,
		baseline:    int(math.Round(metrics.Ascent * scale)),
		name:        parsed.Name(),
		data:        blob,
		parsed:      parsed,
	}, nil
}

// ID returns the font's process-unique identity.
func (f *Font) ID() uint64 { return f.id }

// PixelHeight returns the pixel height the font was loaded at.
func (f *Font) PixelHeight() float64 { return f.pixelHeight }

// Scale returns pixels per font unit.
func (f *Font) Scale() float64 { return f.scale }

// Ascent returns the font ascent in font units.
func (f *Font) Ascent() float64 { return f.metrics.Ascent }

// Baseline returns the distance in pixels from the top of a line to its
// baseline: round(ascent × scale).
func (f *Font) Baseline() int { return f.baseline }

// LineHeight returns the distance in pixels between consecutive baselines.
func (f *Font) LineHeight() float64 { return f.metrics.Height() * f.scale }

// Metrics returns the font-wide metrics in font units.
func (f *Font) Metrics() FontMetrics { return f.metrics }

// Name returns the font family name, or "" if the font has none.
func (f *Font) Name() string { return f.name }

// GlyphIndex returns the glyph index for r. ok is false when the font
// has no glyph for r, in which case gid is the missing glyph (0).
func (f *Font) GlyphIndex(r rune) (gid uint16, ok bool) {
	parsed, err := f.parsedFont()
	if err != nil {
		return 0, false
	}
	return parsed.GlyphIndex(r)
}

// Advance returns the horizontal advance of r in pixels. Runes without
// a glyph report the missing glyph's advance.
func (f *Font) Advance(r rune) float64 {
	parsed, err := f.parsedFont()
	if err != nil {
		return 0
	}
	gid, _ := parsed.GlyphIndex(r)
	return parsed.GlyphAdvance(gid) * f.scale
}

// Closed reports whether Close has been called.
func (f *Font) Closed() bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.parsed == nil
}

// Close releases the font data. Metrics stay readable; glyph queries and
// rasterization fail with ErrFontClosed afterwards. Closing twice is a no-op.
func (f *Font) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data = nil
	f.parsed = nil
	return nil
}

func (f *Font) parsedFont() (ParsedFont, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.parsed == nil {
		return nil, ErrFontClosed
	}
	return f.parsed, nil
}
