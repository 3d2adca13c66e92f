package main

import (
	"bytes"
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/glyphtex/layout"
)

// demoConfig is the glyphdemo configuration. It is read from an optional
// TOML file; command-line flags override file values.
type demoConfig struct {
	Font          string  `toml:"font"`
	Parser        string  `toml:"parser"`
	Size          float64 `toml:"size"`
	Text          string  `toml:"text"`
	Output        string  `toml:"output"`
	Width         int     `toml:"width"`
	Height        int     `toml:"height"`
	OriginX       int     `toml:"origin_x"`
	OriginY       int     `toml:"origin_y"`
	Advance       string  `toml:"advance"`
	Gap           int     `toml:"gap"`
	Normalize     bool    `toml:"normalize"`
	FrameLifetime int     `toml:"frame_lifetime"`
}

func defaultDemoConfig() demoConfig {
	lc := layout.DefaultConfig()
	return demoConfig{
		Size:    15,
		Text:    "Hello, World!",
		Output:  "glyphdemo.png",
		Width:   640,
		Height:  480,
		OriginX: lc.Origin.X,
		OriginY: lc.Origin.Y,
		Advance: lc.Advance.String(),
		Gap:     lc.Gap,
	}
}

// loadConfigFile decodes path over cfg. Unknown keys are rejected.
func loadConfigFile(path string, cfg *demoConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(cfg); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

// layoutConfig converts the demo settings to a layout.Config.
func (c demoConfig) layoutConfig() (layout.Config, error) {
	lc := layout.DefaultConfig()
	lc.Origin.X, lc.Origin.Y = c.OriginX, c.OriginY
	lc.Gap = c.Gap
	lc.Normalize = c.Normalize

	switch c.Advance {
	case layout.AdvanceFont.String(), "":
		lc.Advance = layout.AdvanceFont
	case layout.AdvanceBitmapGap.String():
		lc.Advance = layout.AdvanceBitmapGap
	default:
		return lc, fmt.Errorf("unknown advance mode %q (want %q or %q)",
			c.Advance, layout.AdvanceFont, layout.AdvanceBitmapGap)
	}
	return lc, nil
}
