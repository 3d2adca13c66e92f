package glyphtex

import (
	"context"
	"log/slog"
	"sync/atomic"
)

// discardHandler drops every record. Enabled is always false, so glyph
// cache misses and layout fallbacks cost nothing until a logger is set.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }

var silent = slog.New(discardHandler{})

// current is shared by the cache, layout and backend packages.
var current atomic.Pointer[slog.Logger]

func init() {
	current.Store(silent)
}

// SetLogger routes glyphtex diagnostics to l. Passing nil silences them
// again, which is also the state before the first call.
//
// What each level carries:
//   - [slog.LevelDebug]: glyph cache misses (rune, font, pixel size, texture),
//     cache clears, the backend OpenDefault picked, native pipeline creation
//   - [slog.LevelWarn]: a rune replaced by the missing glyph or skipped
//     during layout, and WGSL passed through uncompiled when naga fails
//
// A host that wants to watch cache behaviour while rendering:
//
//	glyphtex.SetLogger(slog.New(slog.NewTextHandler(os.Stderr,
//	    &slog.HandlerOptions{Level: slog.LevelDebug})))
//	defer glyphtex.SetLogger(nil)
//
//	glyphs := cache.New(dev)
//	engine := layout.New(glyphs)
//	_ = engine.DrawString(dev, face, "Hello") // logs one miss per new rune
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = silent
	}
	current.Store(l)
}

// Logger returns the logger set by SetLogger. It never returns nil and
// may be called from any goroutine.
func Logger() *slog.Logger {
	return current.Load()
}
