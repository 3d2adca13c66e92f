package gpucore

import (
	"errors"

	"github.com/gogpu/gputypes"
)

// TextureID is an opaque handle to a GPU texture.
//
// Each Device implementation maintains a mapping between IDs and actual
// backend resources. IDs are never reused within one Device.
type TextureID uint64

// InvalidTexture is the zero value, representing no texture.
const InvalidTexture TextureID = 0

// Backend errors.
var (
	// ErrGPUResourceExhausted is returned when a texture cannot be allocated.
	ErrGPUResourceExhausted = errors.New("gpucore: GPU resources exhausted")

	// ErrUnknownTexture is returned when an ID does not name a live texture.
	ErrUnknownTexture = errors.New("gpucore: unknown texture")

	// ErrInvalidSize is returned for non-positive texture dimensions or a
	// pixel buffer that does not match them.
	ErrInvalidSize = errors.New("gpucore: invalid texture size")

	// ErrDeviceClosed is returned for calls on a device that was closed.
	ErrDeviceClosed = errors.New("gpucore: device closed")
)

// TextureDescriptor describes a texture to create.
type TextureDescriptor struct {
	// Label is a debug label for the texture.
	Label string

	// Width and Height are the texture dimensions in pixels.
	Width, Height int

	// Format is the pixel format. Glyph textures are single-channel.
	Format gputypes.TextureFormat

	// Filter is used for both minification and magnification.
	Filter gputypes.FilterMode

	// AddressMode applies to both U and V.
	AddressMode gputypes.AddressMode
}

// GlyphTextureDescriptor returns the descriptor used for glyph textures:
// one 8-bit alpha channel, linear filtering, clamp-to-edge addressing.
func GlyphTextureDescriptor(width, height int) TextureDescriptor {
	return TextureDescriptor{
		Label:       "glyph",
		Width:       width,
		Height:      height,
		Format:      gputypes.TextureFormatR8Unorm,
		Filter:      gputypes.FilterModeLinear,
		AddressMode: gputypes.AddressModeClampToEdge,
	}
}

// Validate checks the descriptor dimensions.
func (d TextureDescriptor) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return ErrInvalidSize
	}
	return nil
}

// Device is the set of GPU primitives glyph rendering depends on.
//
// Implementations need not be safe for concurrent use; the glyph cache
// serializes its own calls.
type Device interface {
	// CreateTexture allocates a texture and returns its ID.
	// Allocation failure should wrap ErrGPUResourceExhausted.
	CreateTexture(desc TextureDescriptor) (TextureID, error)

	// UploadAlpha replaces the texture contents with width*height alpha
	// bytes, row-major with stride width.
	UploadAlpha(id TextureID, width, height int, data []byte) error

	// BindTexture makes id the current texture for subsequent draws.
	BindTexture(id TextureID) error

	// DrawTexturedQuad draws texture id stretched over the rectangle
	// (x, y, width, height) in target pixels, y down.
	DrawTexturedQuad(id TextureID, x, y, width, height int) error

	// DeleteTexture releases the texture. Unknown IDs are ignored.
	DeleteTexture(id TextureID)
}
