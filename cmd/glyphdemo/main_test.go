package main

import (
	"bytes"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/gogpu/glyphtex/layout"
)

func TestRunWritesPNG(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.png")
	var stderr bytes.Buffer

	err := run([]string{"-text", "Hi", "-o", out, "-w", "200", "-h", "150"}, &stderr)
	if err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}

	f, err := os.Open(out)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 200 || b.Dy() != 150 {
		t.Errorf("image size = %v, want 200x150", b)
	}
	if !strings.Contains(stderr.String(), "second pass misses: 0") {
		t.Errorf("second pass should be served from cache, log:\n%s", stderr.String())
	}
	if !strings.Contains(stderr.String(), "(0 live)") {
		t.Errorf("glyph textures not released, log:\n%s", stderr.String())
	}
}

func TestRunReleasesTexturesOnError(t *testing.T) {
	out := filepath.Join(t.TempDir(), "missing-dir", "out.png")
	var stderr bytes.Buffer

	if err := run([]string{"-text", "Hi", "-o", out}, &stderr); err == nil {
		t.Fatal("run with an unwritable output must fail")
	}
	if !strings.Contains(stderr.String(), "released glyph textures (0 live)") {
		t.Errorf("glyph textures not released on the error path, log:\n%s", stderr.String())
	}
}

func TestRunConfigFile(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "cfg.png")
	cfgPath := filepath.Join(dir, "demo.toml")
	cfg := "text = \"Go\"\nwidth = 64\nheight = 32\norigin_x = 2\norigin_y = 2\noutput = \"" +
		filepath.ToSlash(out) + "\"\nadvance = \"bitmap-gap\"\n"
	if err := os.WriteFile(cfgPath, []byte(cfg), 0o600); err != nil {
		t.Fatal(err)
	}

	var stderr bytes.Buffer
	// -w overrides the file's width.
	if err := run([]string{"-config", cfgPath, "-w", "80"}, &stderr); err != nil {
		t.Fatalf("run: %v\n%s", err, stderr.String())
	}
	if !strings.Contains(stderr.String(), "(80x32)") {
		t.Errorf("flag should override config width, log:\n%s", stderr.String())
	}
}

func TestLoadConfigFileUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("colour = \"red\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg := defaultDemoConfig()
	if err := loadConfigFile(path, &cfg); err == nil {
		t.Error("unknown key must be rejected")
	}
}

func TestLayoutConfig(t *testing.T) {
	tests := []struct {
		advance string
		want    layout.AdvanceMode
		wantErr bool
	}{
		{"font", layout.AdvanceFont, false},
		{"", layout.AdvanceFont, false},
		{"bitmap-gap", layout.AdvanceBitmapGap, false},
		{"kerned", 0, true},
	}
	for _, tt := range tests {
		c := defaultDemoConfig()
		c.Advance = tt.advance
		lc, err := c.layoutConfig()
		if (err != nil) != tt.wantErr {
			t.Errorf("%q: err = %v, wantErr %v", tt.advance, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && lc.Advance != tt.want {
			t.Errorf("%q: Advance = %v, want %v", tt.advance, lc.Advance, tt.want)
		}
	}
}

func TestDefaultDemoConfig(t *testing.T) {
	want := demoConfig{
		Size: 15, Text: "Hello, World!", Output: "glyphdemo.png",
		Width: 640, Height: 480, OriginX: 100, OriginY: 100,
		Advance: "font", Gap: 4,
	}
	if diff := cmp.Diff(want, defaultDemoConfig()); diff != "" {
		t.Errorf("defaults mismatch (-want +got):\n%s", diff)
	}
}

func TestRunMissingFont(t *testing.T) {
	var stderr bytes.Buffer
	err := run([]string{"-font", filepath.Join(t.TempDir(), "nope.ttf")}, &stderr)
	if err == nil {
		t.Fatal("missing font must fail")
	}
}
