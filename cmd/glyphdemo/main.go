// Command glyphdemo renders a string through the glyph texture cache with
// the software backend and saves the result as a PNG.
package main

import (
	"errors"
	"flag"
	"fmt"
	"image/color"
	"image/png"
	"io"
	"log"
	"log/slog"
	"os"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/glyphtex"
	"github.com/gogpu/glyphtex/backend"
	_ "github.com/gogpu/glyphtex/backend/native"
	"github.com/gogpu/glyphtex/backend/software"
	"github.com/gogpu/glyphtex/cache"
	"github.com/gogpu/glyphtex/layout"
	"github.com/gogpu/glyphtex/text"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatal(err)
	}
}

func run(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("glyphdemo", flag.ContinueOnError)
	fs.SetOutput(stderr)

	def := defaultDemoConfig()
	var (
		configPath = fs.String("config", "", "TOML config file")
		fontPath   = fs.String("font", def.Font, "TrueType/OpenType font file (default: Go Regular)")
		parser     = fs.String("parser", def.Parser, "font parser: ximage or gotext")
		size       = fs.Float64("size", def.Size, "pixel height")
		msg        = fs.String("text", def.Text, "text to render")
		output     = fs.String("o", def.Output, "output PNG file")
		width      = fs.Int("w", def.Width, "image width")
		height     = fs.Int("h", def.Height, "image height")
		advance    = fs.String("advance", def.Advance, "pen advance: font or bitmap-gap")
		gap        = fs.Int("gap", def.Gap, "gap in pixels for bitmap-gap advance")
		normalize  = fs.Bool("nfc", def.Normalize, "NFC-normalize the text")
		verbose    = fs.Bool("v", false, "debug logging")
	)
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg := def
	if *configPath != "" {
		if err := loadConfigFile(*configPath, &cfg); err != nil {
			return err
		}
	}

	// Flags given explicitly win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "font":
			cfg.Font = *fontPath
		case "parser":
			cfg.Parser = *parser
		case "size":
			cfg.Size = *size
		case "text":
			cfg.Text = *msg
		case "o":
			cfg.Output = *output
		case "w":
			cfg.Width = *width
		case "h":
			cfg.Height = *height
		case "advance":
			cfg.Advance = *advance
		case "gap":
			cfg.Gap = *gap
		case "nfc":
			cfg.Normalize = *normalize
		}
	})

	if *verbose {
		glyphtex.SetLogger(slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
		defer glyphtex.SetLogger(nil)
	}

	return render(cfg, log.New(stderr, "", 0))
}

func render(cfg demoConfig, logger *log.Logger) error {
	lc, err := cfg.layoutConfig()
	if err != nil {
		return err
	}

	var fontOpts []text.Option
	if cfg.Parser != "" {
		fontOpts = append(fontOpts, text.WithParser(cfg.Parser))
	}

	var face *text.Font
	if cfg.Font != "" {
		face, err = text.Load(cfg.Font, cfg.Size, fontOpts...)
	} else {
		face, err = text.New(goregular.TTF, cfg.Size, fontOpts...)
	}
	if err != nil {
		return err
	}
	defer face.Close()

	// No device provider is available to a command-line tool, so the
	// registry falls back to the software backend.
	opened, name, err := backend.OpenDefault(backend.Params{Width: cfg.Width, Height: cfg.Height})
	if err != nil {
		return err
	}
	dev, ok := opened.(*software.Device)
	if !ok {
		return fmt.Errorf("backend %s cannot write images", name)
	}
	dev.Reset(color.White)

	glyphs := cache.NewWithConfig(dev, cache.Config{FrameLifetime: cfg.FrameLifetime})
	// Runs before face.Close, on every return path.
	defer func() {
		glyphs.Clear()
		logger.Printf("released glyph textures (%d live)", dev.LiveTextures())
	}()
	engine := layout.New(glyphs, layout.WithConfig(lc))

	// First pass populates the cache, the second must be served from it.
	first := engine.Collect(face, cfg.Text)
	missesAfterFirst := glyphs.Stats().Misses
	if err := engine.DrawString(dev, face, cfg.Text); err != nil {
		return err
	}

	stats := glyphs.Stats()
	logger.Printf("backend: %s", name)
	logger.Printf("font %q at %gpx: %d glyphs, %d textures", face.Name(), face.PixelHeight(), len(first), glyphs.Len())
	logger.Printf("cache: %d misses, %d hits (second pass misses: %d)",
		stats.Misses, stats.Hits, stats.Misses-missesAfterFirst)

	if err := savePNG(cfg.Output, dev); err != nil {
		return err
	}
	logger.Printf("saved %s (%dx%d)", cfg.Output, cfg.Width, cfg.Height)
	return nil
}

func savePNG(path string, dev *software.Device) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create output: %w", err)
	}
	if err := png.Encode(f, dev.Target()); err != nil {
		_ = f.Close()
		return fmt.Errorf("encode png: %w", err)
	}
	return f.Close()
}
