package cache

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"

	"github.com/gogpu/glyphtex"
	"github.com/gogpu/glyphtex/gpucore"
	"github.com/gogpu/glyphtex/text"
)

// Cache errors.
var (
	// ErrNilRasterizer is returned when LookupOrCreate misses and has no
	// rasterize function to populate the entry with.
	ErrNilRasterizer = errors.New("cache: nil rasterize function")

	// ErrBitmapSize is returned when a rasterized bitmap does not hold
	// exactly Width*Height bytes.
	ErrBitmapSize = errors.New("cache: bitmap size does not match glyph dimensions")
)

// Config holds configuration for GlyphTextureCache.
type Config struct {
	// FrameLifetime is the number of Maintain calls an entry may go
	// unused before Maintain evicts it. Zero disables frame-based
	// eviction: entries then live until evicted or cleared.
	// Default: 0
	FrameLifetime int
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{}
}

// numShards is the number of cache shards for reduced lock contention.
// Must be a power of 2.
const numShards = 16

// entry is the stored form of an Entry.
type entry struct {
	Entry

	// lastAccessFrame is the frame number of the most recent hit.
	lastAccessFrame atomic.Uint64
}

// shard is a single shard of the cache.
type shard struct {
	mu sync.RWMutex

	// entries holds textured glyphs.
	entries map[Key]*entry

	// blanks holds zero-area glyphs, which own no texture.
	blanks map[Key]Entry
}

// Stats holds a snapshot of cache statistics.
type Stats struct {
	// Hits counts lookups served from the cache.
	Hits uint64

	// Misses counts lookups that rasterized and populated an entry.
	Misses uint64

	// Evictions counts textured entries removed by Evict,
	// EvictAllForFont or Maintain.
	Evictions uint64

	// Insertions counts textured entries added.
	Insertions uint64
}

// GlyphTextureCache maps glyph keys to GPU textures on one Device.
//
// Each distinct key is rasterized and uploaded at most once for the life
// of the cache, including when several goroutines request it at the same
// time: one performs the work and the others wait for its result. A failed
// rasterization or upload leaves no entry behind.
//
// The cache exclusively owns its textures. Every texture it creates is
// deleted exactly once, by Evict, EvictAllForFont, Maintain or Clear.
// Clear must run before the device is torn down.
//
// GlyphTextureCache is safe for concurrent use. Device calls are
// serialized internally.
type GlyphTextureCache struct {
	shards [numShards]*shard
	config Config

	devMu sync.Mutex
	dev   gpucore.Device

	flight singleflight.Group

	currentFrame atomic.Uint64

	hits       atomic.Uint64
	misses     atomic.Uint64
	evictions  atomic.Uint64
	insertions atomic.Uint64
}

// New creates a glyph texture cache on dev with default configuration.
func New(dev gpucore.Device) *GlyphTextureCache {
	return NewWithConfig(dev, DefaultConfig())
}

// NewWithConfig creates a glyph texture cache on dev with the given
// configuration.
func NewWithConfig(dev gpucore.Device, config Config) *GlyphTextureCache {
	if config.FrameLifetime < 0 {
		config.FrameLifetime = 0
	}
	c := &GlyphTextureCache{
		config: config,
		dev:    dev,
	}
	for i := range c.shards {
		c.shards[i] = &shard{
			entries: make(map[Key]*entry),
			blanks:  make(map[Key]Entry),
		}
	}
	return c
}

// Lookup returns the entry for key without populating it.
// A successful Lookup counts as a hit.
func (c *GlyphTextureCache) Lookup(key Key) (Entry, bool) {
	e, ok := c.get(key)
	if ok {
		c.hits.Add(1)
	}
	return e, ok
}

// LookupOrCreate returns the entry for key. On a miss it calls rasterize,
// uploads the bitmap to a new texture (single-channel, linear filtering,
// clamp-to-edge) and stores the entry. The bitmap is not retained.
//
// Concurrent calls for the same unresolved key perform one rasterize and
// one upload; every caller observes the same entry.
//
// On failure nothing is inserted. A texture allocation failure wraps
// gpucore.ErrGPUResourceExhausted unless the backend already reported
// one of the gpucore errors (invalid size, closed device), which is
// passed through as is.
func (c *GlyphTextureCache) LookupOrCreate(key Key, rasterize func() (text.RasterizedGlyph, error)) (Entry, error) {
	if e, ok := c.get(key); ok {
		c.hits.Add(1)
		return e, nil
	}
	if rasterize == nil {
		return Entry{}, ErrNilRasterizer
	}

	populated := false
	v, err, _ := c.flight.Do(key.flightKey(), func() (any, error) {
		// A previous flight may have finished between get and Do.
		if e, ok := c.get(key); ok {
			return e, nil
		}
		populated = true
		return c.populate(key, rasterize)
	})
	if err != nil {
		return Entry{}, err
	}
	if !populated {
		c.hits.Add(1)
	}
	return v.(Entry), nil
}

// get looks key up in both maps and marks textured entries as used.
func (c *GlyphTextureCache) get(key Key) (Entry, bool) {
	s := c.getShard(key)
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entries[key]; ok {
		e.lastAccessFrame.Store(c.currentFrame.Load())
		return e.Entry, true
	}
	if e, ok := s.blanks[key]; ok {
		return e, true
	}
	return Entry{}, false
}

// populate rasterizes, uploads and stores one glyph.
func (c *GlyphTextureCache) populate(key Key, rasterize func() (text.RasterizedGlyph, error)) (Entry, error) {
	g, err := rasterize()
	if err != nil {
		return Entry{}, fmt.Errorf("cache: rasterize %q: %w", key.Rune, err)
	}

	e := Entry{
		Key:     key,
		Width:   g.Width,
		Height:  g.Height,
		XOffset: g.XOffset,
		YOffset: g.YOffset,
		Advance: g.Advance,
	}

	if g.Empty() {
		e.Width, e.Height = 0, 0
		s := c.getShard(key)
		s.mu.Lock()
		s.blanks[key] = e
		s.mu.Unlock()
		c.misses.Add(1)
		return e, nil
	}

	if len(g.Bitmap) != g.Width*g.Height {
		return Entry{}, fmt.Errorf("%w: %d bytes for %dx%d", ErrBitmapSize, len(g.Bitmap), g.Width, g.Height)
	}

	id, err := c.upload(key, g)
	if err != nil {
		return Entry{}, err
	}
	e.Texture = id

	stored := &entry{Entry: e}
	stored.lastAccessFrame.Store(c.currentFrame.Load())

	s := c.getShard(key)
	s.mu.Lock()
	s.entries[key] = stored
	s.mu.Unlock()

	n := c.misses.Add(1)
	c.insertions.Add(1)
	glyphtex.Logger().Debug("glyph cache miss",
		"n", n,
		"texture", uint64(id),
		"char", string(key.Rune),
		"font", key.FontID,
		"size", key.PixelSize)
	return e, nil
}

// upload creates a texture for g and fills it. The texture is deleted
// again if the upload fails.
func (c *GlyphTextureCache) upload(key Key, g text.RasterizedGlyph) (gpucore.TextureID, error) {
	desc := gpucore.GlyphTextureDescriptor(g.Width, g.Height)
	desc.Label = fmt.Sprintf("glyph_%U_%d", key.Rune, key.FontID)

	c.devMu.Lock()
	defer c.devMu.Unlock()

	id, err := c.dev.CreateTexture(desc)
	if err != nil {
		if !classified(err) {
			err = fmt.Errorf("%w: %w", gpucore.ErrGPUResourceExhausted, err)
		}
		return gpucore.InvalidTexture, fmt.Errorf("cache: create texture for %q: %w", key.Rune, err)
	}
	if err := c.dev.UploadAlpha(id, g.Width, g.Height, g.Bitmap); err != nil {
		c.dev.DeleteTexture(id)
		return gpucore.InvalidTexture, fmt.Errorf("cache: upload %q: %w", key.Rune, err)
	}
	return id, nil
}

// deleteTextures releases the textures of removed entries.
func (c *GlyphTextureCache) deleteTextures(ids []gpucore.TextureID) {
	if len(ids) == 0 {
		return
	}
	c.devMu.Lock()
	defer c.devMu.Unlock()
	for _, id := range ids {
		c.dev.DeleteTexture(id)
	}
}

// Evict removes the entry for key and deletes its texture.
// It reports whether an entry was present.
func (c *GlyphTextureCache) Evict(key Key) bool {
	s := c.getShard(key)
	s.mu.Lock()
	e, ok := s.entries[key]
	if ok {
		delete(s.entries, key)
	}
	_, blank := s.blanks[key]
	if blank {
		delete(s.blanks, key)
	}
	s.mu.Unlock()

	if ok {
		c.deleteTextures([]gpucore.TextureID{e.Texture})
		c.evictions.Add(1)
	}
	return ok || blank
}

// EvictAllForFont removes every entry keyed to f and returns the number
// of entries removed. Call it before closing f.
//
// The sweep does not wait for lookups that are still populating an entry
// for f; such an entry is inserted after the sweep and outlives it. Stop
// all lookups for f (for example by waiting for the goroutines that lay
// out text with it) before evicting.
func (c *GlyphTextureCache) EvictAllForFont(f *text.Font) int {
	return c.EvictFontID(f.ID())
}

// EvictFontID removes every entry whose key carries fontID.
// The same quiescence rule as EvictAllForFont applies.
func (c *GlyphTextureCache) EvictFontID(fontID uint64) int {
	var ids []gpucore.TextureID
	removed := 0
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if k.FontID == fontID {
				ids = append(ids, e.Texture)
				delete(s.entries, k)
			}
		}
		for k := range s.blanks {
			if k.FontID == fontID {
				delete(s.blanks, k)
				removed++
			}
		}
		s.mu.Unlock()
	}

	c.deleteTextures(ids)
	c.evictions.Add(uint64(len(ids)))
	return removed + len(ids)
}

// Clear removes all entries and deletes their textures.
// The cache remains usable afterwards.
func (c *GlyphTextureCache) Clear() {
	var ids []gpucore.TextureID
	for _, s := range c.shards {
		s.mu.Lock()
		for _, e := range s.entries {
			ids = append(ids, e.Texture)
		}
		s.entries = make(map[Key]*entry)
		s.blanks = make(map[Key]Entry)
		s.mu.Unlock()
	}
	c.deleteTextures(ids)
	if len(ids) > 0 {
		glyphtex.Logger().Debug("glyph cache cleared", "textures", len(ids))
	}
}

// Maintain advances the frame counter. When FrameLifetime is positive,
// it also evicts entries that have not been looked up for FrameLifetime
// frames. Call it once per frame, outside of any render pass.
func (c *GlyphTextureCache) Maintain() {
	frame := c.currentFrame.Add(1)
	if c.config.FrameLifetime <= 0 {
		return
	}
	lifetime := uint64(c.config.FrameLifetime) //nolint:gosec // validated > 0 above
	if frame < lifetime {
		return
	}
	threshold := frame - lifetime

	var ids []gpucore.TextureID
	for _, s := range c.shards {
		s.mu.Lock()
		for k, e := range s.entries {
			if e.lastAccessFrame.Load() < threshold {
				ids = append(ids, e.Texture)
				delete(s.entries, k)
			}
		}
		s.mu.Unlock()
	}
	c.deleteTextures(ids)
	c.evictions.Add(uint64(len(ids)))
}

// Len returns the number of cached entries that own a texture.
// It always equals the number of live textures the cache has created.
func (c *GlyphTextureCache) Len() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

// BlankLen returns the number of cached zero-area glyphs.
func (c *GlyphTextureCache) BlankLen() int {
	total := 0
	for _, s := range c.shards {
		s.mu.RLock()
		total += len(s.blanks)
		s.mu.RUnlock()
	}
	return total
}

// Stats returns cache statistics.
func (c *GlyphTextureCache) Stats() Stats {
	return Stats{
		Hits:       c.hits.Load(),
		Misses:     c.misses.Load(),
		Evictions:  c.evictions.Load(),
		Insertions: c.insertions.Load(),
	}
}

// HitRate returns the cache hit rate as a percentage.
// Returns 0 if there are no accesses.
func (c *GlyphTextureCache) HitRate() float64 {
	hits := c.hits.Load()
	total := hits + c.misses.Load()
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}

// ResetStats resets the cache statistics.
func (c *GlyphTextureCache) ResetStats() {
	c.hits.Store(0)
	c.misses.Store(0)
	c.evictions.Store(0)
	c.insertions.Store(0)
}

// CurrentFrame returns the current frame number.
func (c *GlyphTextureCache) CurrentFrame() uint64 {
	return c.currentFrame.Load()
}

// getShard returns the shard for the given key.
func (c *GlyphTextureCache) getShard(key Key) *shard {
	return c.shards[key.hash()&(numShards-1)]
}

// classified reports whether err already carries a gpucore error class.
func classified(err error) bool {
	return errors.Is(err, gpucore.ErrGPUResourceExhausted) ||
		errors.Is(err, gpucore.ErrInvalidSize) ||
		errors.Is(err, gpucore.ErrUnknownTexture) ||
		errors.Is(err, gpucore.ErrDeviceClosed)
}
