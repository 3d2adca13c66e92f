// Package text loads TrueType/OpenType fonts and rasterizes single glyphs
// into 8-bit coverage bitmaps.
//
// A Font is one (font file, pixel height) pair:
//
//	font, err := text.Load("Go-Regular.ttf", 15)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer font.Close()
//
//	g, err := text.Rasterize(font, 'H')
//	// g.Bitmap is g.Width*g.Height alpha bytes, placed at
//	// (pen.X+g.XOffset, baseline+g.YOffset).
//
// # Pluggable Parser Backend
//
// Font parsing is abstracted through the FontParser interface. The default
// backend is golang.org/x/image/font/sfnt ("ximage"); the go-text
// typesetting backend is available as "gotext":
//
//	font, err := text.New(data, 15, text.WithParser("gotext"))
//
// Custom parsers can be registered with RegisterParser.
package text
