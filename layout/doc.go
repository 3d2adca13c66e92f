// Package layout positions cached glyph textures into lines of text.
//
// An Engine walks a string left to right, resolves every character
// through a cache.GlyphTextureCache (rasterizing and uploading on a miss)
// and yields one PositionedGlyph per visible glyph. Draw then replays the
// quads on a gpucore.Device.
//
//	engine := layout.New(glyphs, layout.WithOrigin(10, 10))
//	for g := range engine.Layout(font, "Hello\nWorld") {
//	    fmt.Println(g.Char, g.X, g.Y)
//	}
package layout
