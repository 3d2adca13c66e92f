package layout

import (
	"fmt"

	"github.com/gogpu/glyphtex/gpucore"
	"github.com/gogpu/glyphtex/text"
)

// Draw binds each glyph's texture and draws its quad on dev, in order.
//
// glyphs is a snapshot: the texture IDs were resolved before drawing, so
// the cache is not touched here. Do not evict or clear the cache while a
// Draw is in progress.
func (e *Engine) Draw(dev gpucore.Device, glyphs []PositionedGlyph) error {
	for _, g := range glyphs {
		if err := dev.BindTexture(g.Texture); err != nil {
			return fmt.Errorf("layout: bind texture %d for %q: %w", g.Texture, g.Char, err)
		}
		if err := dev.DrawTexturedQuad(g.Texture, g.X, g.Y, g.Width, g.Height); err != nil {
			return fmt.Errorf("layout: draw %q: %w", g.Char, err)
		}
	}
	return nil
}

// DrawString lays out s with f and draws the result on dev.
// Layout completes before the first draw call.
func (e *Engine) DrawString(dev gpucore.Device, f *text.Font, s string) error {
	return e.Draw(dev, e.Collect(f, s))
}
