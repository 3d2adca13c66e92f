// Package glyphtex renders text by rasterizing TrueType glyphs and caching
// each one as a GPU texture.
//
// The pipeline is split across sub-packages:
//
//   - text: font loading (Font), pluggable parsers, and the glyph rasterizer
//   - cache: GlyphTextureCache, which maps (rune, font, pixel size) to a
//     texture and uploads each distinct key exactly once
//   - layout: the layout engine that walks a string, consults the cache
//     and yields positioned glyph quads
//   - gpucore: the small device contract the cache and layout draw through
//   - backend: a registry of devices; backend/software and backend/native
//     are the CPU and wgpu HAL implementations
//
// # Example
//
//	font, err := text.Load("Go-Regular.ttf", 15)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dev := software.New(640, 480)
//	glyphs := cache.New(dev)
//	engine := layout.New(glyphs)
//
//	if err := engine.Draw(dev, engine.Collect(font, "Hello\nWorld")); err != nil {
//	    log.Fatal(err)
//	}
//
//	glyphs.EvictAllForFont(font)
//	font.Close()
//
// # Logging
//
// glyphtex is silent by default. Call [SetLogger] to route diagnostics
// (cache misses, fallbacks, backend lifecycle) to a [log/slog.Logger].
package glyphtex
