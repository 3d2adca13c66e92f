// Package software provides a CPU implementation of gpucore.Device.
//
// Textures are kept as image.Alpha masks in memory and textured quads are
// composited onto an image.RGBA target with a solid fill color. It is
// used by the demo CLI and wherever glyph rendering is needed without a
// GPU.
package software

import (
	"fmt"
	"image"
	"image/color"
	"sync"

	"golang.org/x/image/draw"

	"github.com/gogpu/glyphtex/gpucore"
)

// Option configures a Device.
type Option func(*Device)

// WithColor sets the fill color glyph masks are drawn with.
// Default: opaque black.
func WithColor(c color.Color) Option {
	return func(d *Device) {
		d.fill = image.NewUniform(c)
	}
}

// WithMaxTextures caps the number of live textures. CreateTexture fails
// with gpucore.ErrGPUResourceExhausted once the cap is reached.
// Zero means unlimited.
func WithMaxTextures(n int) Option {
	return func(d *Device) {
		d.maxTextures = n
	}
}

// texture is a CPU-side texture.
type texture struct {
	desc gpucore.TextureDescriptor
	mask *image.Alpha
}

// Device is a CPU gpucore.Device drawing onto an image.RGBA.
//
// Device is safe for concurrent use.
type Device struct {
	mu sync.Mutex

	target *image.RGBA
	fill   image.Image

	nextID   gpucore.TextureID
	textures map[gpucore.TextureID]*texture
	bound    gpucore.TextureID

	maxTextures int

	created int
	deleted int
	draws   int
}

// New creates a Device with a transparent width×height target.
func New(width, height int, opts ...Option) *Device {
	return NewWithTarget(image.NewRGBA(image.Rect(0, 0, width, height)), opts...)
}

// NewWithTarget creates a Device drawing onto dst.
func NewWithTarget(dst *image.RGBA, opts ...Option) *Device {
	d := &Device{
		target:   dst,
		fill:     image.NewUniform(color.Black),
		textures: make(map[gpucore.TextureID]*texture),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc gpucore.TextureDescriptor) (gpucore.TextureID, error) {
	if err := desc.Validate(); err != nil {
		return gpucore.InvalidTexture, fmt.Errorf("software: create texture %dx%d: %w", desc.Width, desc.Height, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.maxTextures > 0 && len(d.textures) >= d.maxTextures {
		return gpucore.InvalidTexture, fmt.Errorf("software: %d live textures: %w", len(d.textures), gpucore.ErrGPUResourceExhausted)
	}

	d.nextID++
	d.textures[d.nextID] = &texture{
		desc: desc,
		mask: image.NewAlpha(image.Rect(0, 0, desc.Width, desc.Height)),
	}
	d.created++
	return d.nextID, nil
}

// UploadAlpha implements gpucore.Device.
func (d *Device) UploadAlpha(id gpucore.TextureID, width, height int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("software: upload to %d: %w", id, gpucore.ErrUnknownTexture)
	}
	if width != tex.desc.Width || height != tex.desc.Height || len(data) != width*height {
		return fmt.Errorf("software: upload %dx%d (%d bytes) into %dx%d texture: %w",
			width, height, len(data), tex.desc.Width, tex.desc.Height, gpucore.ErrInvalidSize)
	}
	copy(tex.mask.Pix, data)
	return nil
}

// BindTexture implements gpucore.Device.
func (d *Device) BindTexture(id gpucore.TextureID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.textures[id]; !ok {
		return fmt.Errorf("software: bind %d: %w", id, gpucore.ErrUnknownTexture)
	}
	d.bound = id
	return nil
}

// DrawTexturedQuad implements gpucore.Device. The mask is scaled with
// bilinear filtering when the quad size differs from the texture size.
func (d *Device) DrawTexturedQuad(id gpucore.TextureID, x, y, width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("software: draw %d: %w", id, gpucore.ErrUnknownTexture)
	}
	if width <= 0 || height <= 0 {
		return nil
	}

	var mask image.Image = tex.mask
	if width != tex.desc.Width || height != tex.desc.Height {
		scaled := image.NewAlpha(image.Rect(0, 0, width, height))
		draw.BiLinear.Scale(scaled, scaled.Bounds(), tex.mask, tex.mask.Bounds(), draw.Src, nil)
		mask = scaled
	}

	r := image.Rect(x, y, x+width, y+height)
	draw.DrawMask(d.target, r, d.fill, image.Point{}, mask, image.Point{}, draw.Over)
	d.draws++
	return nil
}

// DeleteTexture implements gpucore.Device.
func (d *Device) DeleteTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.textures[id]; !ok {
		return
	}
	delete(d.textures, id)
	if d.bound == id {
		d.bound = gpucore.InvalidTexture
	}
	d.deleted++
}

// Target returns the image the device draws onto.
func (d *Device) Target() *image.RGBA {
	return d.target
}

// Reset fills the target with c.
func (d *Device) Reset(c color.Color) {
	d.mu.Lock()
	defer d.mu.Unlock()
	draw.Draw(d.target, d.target.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Mask returns a copy of the texture's alpha contents.
func (d *Device) Mask(id gpucore.TextureID) (*image.Alpha, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	tex, ok := d.textures[id]
	if !ok {
		return nil, false
	}
	out := image.NewAlpha(tex.mask.Rect)
	copy(out.Pix, tex.mask.Pix)
	return out, true
}

// Bound returns the currently bound texture.
func (d *Device) Bound() gpucore.TextureID {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bound
}

// LiveTextures returns the number of textures not yet deleted.
func (d *Device) LiveTextures() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.textures)
}

// Created returns the total number of textures created.
func (d *Device) Created() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.created
}

// Deleted returns the total number of textures deleted.
func (d *Device) Deleted() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.deleted
}

// Draws returns the number of quads drawn.
func (d *Device) Draws() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.draws
}

var _ gpucore.Device = (*Device)(nil)
