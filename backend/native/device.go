package native

import (
	"errors"
	"fmt"
	"image/color"
	"sync"

	"github.com/gogpu/gpucontext"
	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/glyphtex"
	"github.com/gogpu/glyphtex/gpucore"
)

// Device errors.
var (
	// ErrNilDevice is returned when New is given a nil device or queue.
	ErrNilDevice = errors.New("native: nil hal device or queue")

	// ErrNoHALDevice is returned when a provider does not expose HAL types.
	ErrNoHALDevice = errors.New("native: provider does not expose HAL device")

	// ErrClosed is returned for calls on a closed device.
	// It matches gpucore.ErrDeviceClosed.
	ErrClosed = fmt.Errorf("native: %w", gpucore.ErrDeviceClosed)
)

// rowAlignment is the required BytesPerRow alignment for texture writes.
const rowAlignment = 256

type config struct {
	surfaceFormat gputypes.TextureFormat
	sampleCount   uint32
	viewportW     int
	viewportH     int
	color         [4]float32
	maxTextures   int
}

func defaultConfig() config {
	return config{
		surfaceFormat: gputypes.TextureFormatBGRA8Unorm,
		sampleCount:   1,
		viewportW:     800,
		viewportH:     600,
		color:         [4]float32{0, 0, 0, 1},
	}
}

// Option configures a Device.
type Option func(*config)

// WithSurfaceFormat sets the color target format of the render pipeline.
// Default: BGRA8Unorm. TextureFormatUndefined is ignored.
func WithSurfaceFormat(f gputypes.TextureFormat) Option {
	return func(c *config) {
		if f != gputypes.TextureFormatUndefined {
			c.surfaceFormat = f
		}
	}
}

// WithSampleCount sets the MSAA sample count of the render pipeline.
// Default: 1.
func WithSampleCount(n uint32) Option {
	return func(c *config) {
		if n > 0 {
			c.sampleCount = n
		}
	}
}

// WithViewport sets the render target size in pixels. Default: 800×600.
func WithViewport(width, height int) Option {
	return func(c *config) {
		c.viewportW, c.viewportH = width, height
	}
}

// WithColor sets the glyph fill color. Default: opaque black.
func WithColor(col color.Color) Option {
	return func(c *config) {
		n := color.NRGBAModel.Convert(col).(color.NRGBA)
		c.color = [4]float32{
			float32(n.R) / 255, float32(n.G) / 255, float32(n.B) / 255, float32(n.A) / 255,
		}
	}
}

// WithMaxTextures caps the number of live glyph textures. Zero means
// unlimited.
func WithMaxTextures(n int) Option {
	return func(c *config) {
		c.maxTextures = n
	}
}

// texture groups the HAL objects backing one glyph texture.
type texture struct {
	tex       hal.Texture
	view      hal.TextureView
	bindGroup hal.BindGroup
	width     int
	height    int
}

// Device is a gpucore.Device backed by a hal.Device and hal.Queue.
//
// Device is safe for concurrent use. It does not own the HAL device:
// Close releases only the resources Device created.
type Device struct {
	mu sync.Mutex

	device hal.Device
	queue  hal.Queue
	config config
	pipe   *pipeline

	nextID   gpucore.TextureID
	textures map[gpucore.TextureID]*texture
	bound    gpucore.TextureID

	pending []quad
	frame   *frameResources

	closed bool
}

// New creates a Device on the given HAL device and queue and builds the
// glyph render pipeline.
func New(device hal.Device, queue hal.Queue, opts ...Option) (*Device, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	pipe, err := createPipeline(device, cfg)
	if err != nil {
		return nil, fmt.Errorf("native: %w", err)
	}

	glyphtex.Logger().Debug("native: glyph pipeline created",
		"format", cfg.surfaceFormat, "samples", cfg.sampleCount)

	return &Device{
		device:   device,
		queue:    queue,
		config:   cfg,
		pipe:     pipe,
		textures: make(map[gpucore.TextureID]*texture),
	}, nil
}

// NewFromProvider creates a Device on a host application's shared GPU
// device. The provider must implement HalDevice() any and HalQueue() any
// returning hal.Device and hal.Queue. The provider's surface format is
// used unless overridden by opts.
func NewFromProvider(provider gpucontext.DeviceProvider, opts ...Option) (*Device, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALDevice)
	}

	opts = append([]Option{WithSurfaceFormat(provider.SurfaceFormat())}, opts...)
	return New(device, queue, opts...)
}

// CreateTexture implements gpucore.Device.
func (d *Device) CreateTexture(desc gpucore.TextureDescriptor) (gpucore.TextureID, error) {
	if err := desc.Validate(); err != nil {
		return gpucore.InvalidTexture, fmt.Errorf("native: create texture %dx%d: %w", desc.Width, desc.Height, err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return gpucore.InvalidTexture, ErrClosed
	}
	if d.config.maxTextures > 0 && len(d.textures) >= d.config.maxTextures {
		return gpucore.InvalidTexture, fmt.Errorf("native: %d live textures: %w", len(d.textures), gpucore.ErrGPUResourceExhausted)
	}

	id := d.nextID + 1
	label := fmt.Sprintf("%s_%d", desc.Label, id)
	format := desc.Format
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatR8Unorm
	}

	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label:         label,
		Size:          hal.Extent3D{Width: uint32(desc.Width), Height: uint32(desc.Height), DepthOrArrayLayers: 1}, //nolint:gosec // validated positive
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        format,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return gpucore.InvalidTexture, fmt.Errorf("native: create texture %s: %w: %w", label, gpucore.ErrGPUResourceExhausted, err)
	}

	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label:         label + "_view",
		Format:        format,
		Dimension:     gputypes.TextureViewDimension2D,
		Aspect:        gputypes.TextureAspectAll,
		MipLevelCount: 1,
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return gpucore.InvalidTexture, fmt.Errorf("native: create texture view %s: %w: %w", label, gpucore.ErrGPUResourceExhausted, err)
	}

	bindGroup, err := d.pipe.createBindGroup(label+"_bind", view)
	if err != nil {
		d.device.DestroyTextureView(view)
		d.device.DestroyTexture(tex)
		return gpucore.InvalidTexture, fmt.Errorf("native: create bind group %s: %w: %w", label, gpucore.ErrGPUResourceExhausted, err)
	}

	d.nextID = id
	d.textures[id] = &texture{
		tex:       tex,
		view:      view,
		bindGroup: bindGroup,
		width:     desc.Width,
		height:    desc.Height,
	}
	return id, nil
}

// UploadAlpha implements gpucore.Device. Rows are repacked to the
// 256-byte stride texture writes require.
func (d *Device) UploadAlpha(id gpucore.TextureID, width, height int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	t, ok := d.textures[id]
	if !ok {
		return fmt.Errorf("native: upload to %d: %w", id, gpucore.ErrUnknownTexture)
	}
	if width != t.width || height != t.height || len(data) != width*height {
		return fmt.Errorf("native: upload %dx%d (%d bytes) into %dx%d texture: %w",
			width, height, len(data), t.width, t.height, gpucore.ErrInvalidSize)
	}

	stride := alignedStride(width)
	padded := padRows(data, width, height, stride)

	err := d.queue.WriteTexture(
		&hal.ImageCopyTexture{
			Texture:  t.tex,
			MipLevel: 0,
		},
		padded,
		&hal.ImageDataLayout{
			Offset:       0,
			BytesPerRow:  uint32(stride), //nolint:gosec // stride is bounded by texture width
			RowsPerImage: uint32(height), //nolint:gosec // validated positive
		},
		&hal.Extent3D{Width: uint32(width), Height: uint32(height), DepthOrArrayLayers: 1}, //nolint:gosec // validated positive
	)
	if err != nil {
		return fmt.Errorf("native: write texture %d: %w", id, err)
	}
	return nil
}

// BindTexture implements gpucore.Device.
func (d *Device) BindTexture(id gpucore.TextureID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.textures[id]; !ok {
		return fmt.Errorf("native: bind %d: %w", id, gpucore.ErrUnknownTexture)
	}
	d.bound = id
	return nil
}

// DrawTexturedQuad implements gpucore.Device. The quad is queued until
// the next RecordDraws.
func (d *Device) DrawTexturedQuad(id gpucore.TextureID, x, y, width, height int) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.textures[id]; !ok {
		return fmt.Errorf("native: draw %d: %w", id, gpucore.ErrUnknownTexture)
	}
	if width <= 0 || height <= 0 {
		return nil
	}
	if len(d.pending) >= maxQuads {
		return ErrQuadBufferOverflow
	}
	d.pending = append(d.pending, quad{texture: id, x: x, y: y, w: width, h: height})
	return nil
}

// DeleteTexture implements gpucore.Device. Queued quads that reference
// the texture are dropped.
func (d *Device) DeleteTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	t, ok := d.textures[id]
	if !ok {
		return
	}
	delete(d.textures, id)
	if d.bound == id {
		d.bound = gpucore.InvalidTexture
	}
	d.pending = dropQuads(d.pending, id)
	d.destroyTexture(t)
}

// destroyTexture releases t in reverse creation order.
func (d *Device) destroyTexture(t *texture) {
	d.device.DestroyBindGroup(t.bindGroup)
	d.device.DestroyTextureView(t.view)
	d.device.DestroyTexture(t.tex)
}

// SetViewport updates the render target size used to map quads to clip
// space.
func (d *Device) SetViewport(width, height int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.config.viewportW, d.config.viewportH = width, height
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

// Pending returns the number of quads queued for the next RecordDraws.
func (d *Device) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Close releases all textures, frame buffers and the pipeline. The HAL
// device itself is left to its owner. Close is idempotent.
func (d *Device) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return
	}
	d.closed = true

	for id, t := range d.textures {
		d.destroyTexture(t)
		delete(d.textures, id)
	}
	d.pending = nil
	d.releaseFrame()
	d.pipe.destroy()
}

// alignedStride rounds width up to the texture row alignment.
func alignedStride(width int) int {
	return (width + rowAlignment - 1) / rowAlignment * rowAlignment
}

// padRows copies width-byte rows into a buffer with the given stride.
func padRows(data []byte, width, height, stride int) []byte {
	if stride == width {
		return data
	}
	out := make([]byte, stride*height)
	for y := range height {
		copy(out[y*stride:y*stride+width], data[y*width:(y+1)*width])
	}
	return out
}

var _ gpucore.Device = (*Device)(nil)
