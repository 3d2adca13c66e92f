package cache

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/goregular"

	"github.com/gogpu/glyphtex"
	"github.com/gogpu/glyphtex/gpucore"
	"github.com/gogpu/glyphtex/text"
)

// fakeDevice records texture lifecycle calls.
type fakeDevice struct {
	mu      sync.Mutex
	next    gpucore.TextureID
	live    map[gpucore.TextureID][]byte
	descs   []gpucore.TextureDescriptor
	created int
	deleted int

	// doubleFrees counts deletions of IDs that are not live.
	doubleFrees int

	failCreate error
	failUpload error
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{live: make(map[gpucore.TextureID][]byte)}
}

func (d *fakeDevice) CreateTexture(desc gpucore.TextureDescriptor) (gpucore.TextureID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failCreate != nil {
		return gpucore.InvalidTexture, d.failCreate
	}
	d.next++
	d.live[d.next] = nil
	d.descs = append(d.descs, desc)
	d.created++
	return d.next, nil
}

func (d *fakeDevice) UploadAlpha(id gpucore.TextureID, width, height int, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failUpload != nil {
		return d.failUpload
	}
	if _, ok := d.live[id]; !ok {
		return gpucore.ErrUnknownTexture
	}
	d.live[id] = append([]byte(nil), data...)
	return nil
}

func (d *fakeDevice) BindTexture(gpucore.TextureID) error { return nil }

func (d *fakeDevice) DrawTexturedQuad(gpucore.TextureID, int, int, int, int) error { return nil }

func (d *fakeDevice) DeleteTexture(id gpucore.TextureID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.live[id]; !ok {
		d.doubleFrees++
		return
	}
	delete(d.live, id)
	d.deleted++
}

func (d *fakeDevice) liveCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.live)
}

// solid returns a rasterize function producing a w×h glyph for r.
func solid(r rune, w, h int) func() (text.RasterizedGlyph, error) {
	return func() (text.RasterizedGlyph, error) {
		bm := bytes.Repeat([]byte{0xff}, w*h)
		if w*h == 0 {
			bm = nil
		}
		return text.RasterizedGlyph{
			Char: r, Bitmap: bm, Width: w, Height: h,
			XOffset: 1, YOffset: -h, Advance: float64(w + 2),
		}, nil
	}
}

func key(r rune) Key {
	return Key{Rune: r, FontID: 1, PixelSize: 15}
}

func TestKeyDiscrimination(t *testing.T) {
	base := Key{Rune: 'A', FontID: 1, PixelSize: 15}

	tests := []struct {
		name  string
		other Key
		equal bool
	}{
		{"identical", Key{Rune: 'A', FontID: 1, PixelSize: 15}, true},
		{"different rune", Key{Rune: 'B', FontID: 1, PixelSize: 15}, false},
		{"different font", Key{Rune: 'A', FontID: 2, PixelSize: 15}, false},
		{"different size", Key{Rune: 'A', FontID: 1, PixelSize: 16}, false},
		// A single-byte key would collide these two.
		{"same low byte", Key{Rune: 'A' + 256, FontID: 1, PixelSize: 15}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base == tt.other; got != tt.equal {
				t.Errorf("(%+v == %+v) = %v, want %v", base, tt.other, got, tt.equal)
			}
			if got := base.flightKey() == tt.other.flightKey(); got != tt.equal {
				t.Errorf("flightKey equality = %v, want %v", got, tt.equal)
			}
			if tt.equal && base.hash() != tt.other.hash() {
				t.Error("equal keys must hash equally")
			}
		})
	}
}

func TestKeyFor(t *testing.T) {
	a, err := text.New(goregular.TTF, 15)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := text.New(goregular.TTF, 24)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	ka := KeyFor(a, 'x')
	if ka.Rune != 'x' || ka.FontID != a.ID() || ka.PixelSize != 15 {
		t.Errorf("KeyFor(a, 'x') = %+v", ka)
	}
	if ka == KeyFor(b, 'x') {
		t.Error("keys for different fonts must differ")
	}
	if ka != KeyFor(a, 'x') {
		t.Error("KeyFor must be deterministic")
	}
}

func TestLookupOrCreateMissThenHit(t *testing.T) {
	dev := newFakeDevice()
	c := New(dev)

	var calls int
	rasterize := func() (text.RasterizedGlyph, error) {
		calls++
		return solid('A', 10, 12)()
	}

	first, err := c.LookupOrCreate(key('A'), rasterize)
	if err != nil {
		t.Fatalf("LookupOrCreate() error = %v", err)
	}
	second, err := c.LookupOrCreate(key('A'), rasterize)
	if err != nil {
		t.Fatalf("LookupOrCreate() error = %v", err)
	}

	if first != second {
		t.Errorf("entries differ: %+v vs %+v", first, second)
	}
	if calls != 1 {
		t.Errorf("rasterize calls = %d, want 1", calls)
	}
	if dev.created != 1 {
		t.Errorf("textures created = %d, want 1", dev.created)
	}
	if first.Width != 10 || first.Height != 12 || first.XOffset != 1 || first.YOffset != -12 || first.Advance != 12 {
		t.Errorf("entry metrics = %+v", first)
	}
	if got := len(dev.live[first.Texture]); got != 120 {
		t.Errorf("uploaded %d bytes, want 120", got)
	}

	d := dev.descs[0]
	if d.Format != gpucore.GlyphTextureDescriptor(1, 1).Format || d.Width != 10 || d.Height != 12 {
		t.Errorf("descriptor = %+v", d)
	}

	st := c.Stats()
	if st.Hits != 1 || st.Misses != 1 || st.Insertions != 1 {
		t.Errorf("Stats() = %+v, want 1 hit, 1 miss, 1 insertion", st)
	}
	if got := c.HitRate(); got != 50 {
		t.Errorf("HitRate() = %v, want 50", got)
	}
}

func TestLookupOrCreateConcurrentSingleUpload(t *testing.T) {
	dev := newFakeDevice()
	c := New(dev)

	const callers = 64
	var rasterizeCalls atomic.Int32
	rasterize := func() (text.RasterizedGlyph, error) {
		rasterizeCalls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return solid('Q', 4, 4)()
	}

	start := make(chan struct{})
	results := make([]Entry, callers)
	errs := make([]error, callers)
	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			results[i], errs[i] = c.LookupOrCreate(key('Q'), rasterize)
		}()
	}
	close(start)
	wg.Wait()

	for i := range callers {
		if errs[i] != nil {
			t.Fatalf("caller %d: %v", i, errs[i])
		}
		if results[i].Texture != results[0].Texture {
			t.Errorf("caller %d texture = %d, want %d", i, results[i].Texture, results[0].Texture)
		}
	}
	if got := rasterizeCalls.Load(); got != 1 {
		t.Errorf("rasterize calls = %d, want 1", got)
	}
	if dev.created != 1 {
		t.Errorf("textures created = %d, want 1", dev.created)
	}
	st := c.Stats()
	if st.Misses != 1 || st.Hits != callers-1 {
		t.Errorf("Stats() = %+v, want 1 miss and %d hits", st, callers-1)
	}
}

func TestLookupOrCreateConcurrentDistinctKeys(t *testing.T) {
	dev := newFakeDevice()
	c := New(dev)

	var wg sync.WaitGroup
	for i := range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r := rune('a' + i%26)
			if _, err := c.LookupOrCreate(key(r), solid(r, 3, 3)); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if c.Len() != 26 || dev.created != 26 {
		t.Errorf("Len() = %d, created = %d, want 26 each", c.Len(), dev.created)
	}
}

func TestBlankGlyph(t *testing.T) {
	dev := newFakeDevice()
	c := New(dev)

	e, err := c.LookupOrCreate(key(' '), solid(' ', 0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if !e.Blank() || e.Texture != gpucore.InvalidTexture {
		t.Errorf("space entry = %+v, want blank", e)
	}
	if e.Advance != 2 {
		t.Errorf("space Advance = %v, want 2", e.Advance)
	}
	if dev.created != 0 {
		t.Errorf("textures created = %d, want 0 for a blank glyph", dev.created)
	}
	if c.Len() != 0 || c.BlankLen() != 1 {
		t.Errorf("Len() = %d, BlankLen() = %d, want 0 and 1", c.Len(), c.BlankLen())
	}

	// Width without height is still blank.
	if e, _ := c.LookupOrCreate(key('_'), solid('_', 5, 0)); !e.Blank() {
		t.Error("5x0 glyph should be blank")
	}

	if _, err := c.LookupOrCreate(key(' '), nil); err != nil {
		t.Errorf("hit on blank entry with nil rasterizer: %v", err)
	}
}

func TestLookupOrCreateFailures(t *testing.T) {
	errBoom := errors.New("boom")

	tests := []struct {
		name      string
		setup     func(*fakeDevice)
		rasterize func() (text.RasterizedGlyph, error)
		want      error
		notWant   error
	}{
		{
			name:      "rasterize",
			rasterize: func() (text.RasterizedGlyph, error) { return text.RasterizedGlyph{}, errBoom },
			want:      errBoom,
		},
		{
			name:      "nil rasterizer",
			rasterize: nil,
			want:      ErrNilRasterizer,
		},
		{
			name: "bitmap size",
			rasterize: func() (text.RasterizedGlyph, error) {
				return text.RasterizedGlyph{Width: 4, Height: 4, Bitmap: make([]byte, 3)}, nil
			},
			want: ErrBitmapSize,
		},
		{
			name:      "create",
			setup:     func(d *fakeDevice) { d.failCreate = errBoom },
			rasterize: solid('A', 2, 2),
			want:      gpucore.ErrGPUResourceExhausted,
		},
		{
			name:      "create invalid size",
			setup:     func(d *fakeDevice) { d.failCreate = gpucore.ErrInvalidSize },
			rasterize: solid('A', 2, 2),
			want:      gpucore.ErrInvalidSize,
			notWant:   gpucore.ErrGPUResourceExhausted,
		},
		{
			name:      "create closed device",
			setup:     func(d *fakeDevice) { d.failCreate = fmt.Errorf("fake: %w", gpucore.ErrDeviceClosed) },
			rasterize: solid('A', 2, 2),
			want:      gpucore.ErrDeviceClosed,
			notWant:   gpucore.ErrGPUResourceExhausted,
		},
		{
			name:      "upload",
			setup:     func(d *fakeDevice) { d.failUpload = errBoom },
			rasterize: solid('A', 2, 2),
			want:      errBoom,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dev := newFakeDevice()
			if tt.setup != nil {
				tt.setup(dev)
			}
			c := New(dev)

			_, err := c.LookupOrCreate(key('A'), tt.rasterize)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if tt.notWant != nil && errors.Is(err, tt.notWant) {
				t.Errorf("error = %v, should not match %v", err, tt.notWant)
			}
			if c.Len() != 0 || c.BlankLen() != 0 {
				t.Errorf("failed population left an entry: Len=%d BlankLen=%d", c.Len(), c.BlankLen())
			}
			if _, ok := c.Lookup(key('A')); ok {
				t.Error("Lookup found an entry after a failed population")
			}
			if dev.liveCount() != 0 {
				t.Errorf("live textures = %d, want 0", dev.liveCount())
			}
			if dev.doubleFrees != 0 {
				t.Errorf("double frees = %d", dev.doubleFrees)
			}

			// The key can be populated once the cause goes away.
			dev.failCreate, dev.failUpload = nil, nil
			if _, err := c.LookupOrCreate(key('A'), solid('A', 2, 2)); err != nil {
				t.Errorf("retry error = %v", err)
			}
			if c.Len() != 1 {
				t.Errorf("Len() after retry = %d, want 1", c.Len())
			}
		})
	}
}

func TestEvict(t *testing.T) {
	dev := newFakeDevice()
	c := New(dev)

	e, _ := c.LookupOrCreate(key('A'), solid('A', 3, 3))
	_, _ = c.LookupOrCreate(key(' '), solid(' ', 0, 0))

	if !c.Evict(key('A')) {
		t.Error("Evict(present) = false")
	}
	if c.Evict(key('A')) {
		t.Error("second Evict = true, want false")
	}
	if c.Evict(key('Z')) {
		t.Error("Evict(absent) = true, want false")
	}
	if !c.Evict(key(' ')) {
		t.Error("Evict(blank) = false")
	}

	if _, ok := dev.live[e.Texture]; ok {
		t.Error("evicted texture still live")
	}
	if dev.deleted != 1 || dev.doubleFrees != 0 {
		t.Errorf("deleted = %d, double frees = %d, want 1 and 0", dev.deleted, dev.doubleFrees)
	}
	if st := c.Stats(); st.Evictions != 1 {
		t.Errorf("Evictions = %d, want 1", st.Evictions)
	}

	// A fresh miss is needed to bring it back.
	again, _ := c.LookupOrCreate(key('A'), solid('A', 3, 3))
	if again.Texture == e.Texture {
		t.Error("re-created entry reused an evicted texture ID")
	}
	if dev.created != 2 {
		t.Errorf("created = %d, want 2", dev.created)
	}
}

func TestEvictAllForFont(t *testing.T) {
	dev := newFakeDevice()
	c := New(dev)

	a, err := text.New(goregular.TTF, 15)
	if err != nil {
		t.Fatal(err)
	}
	b, err := text.New(goregular.TTF, 15)
	if err != nil {
		t.Fatal(err)
	}

	for _, r := range "abc " {
		w := 3
		if r == ' ' {
			w = 0
		}
		_, _ = c.LookupOrCreate(KeyFor(a, r), solid(r, w, w))
		_, _ = c.LookupOrCreate(KeyFor(b, r), solid(r, w, w))
	}
	if c.Len() != 6 {
		t.Fatalf("Len() = %d, want 6", c.Len())
	}

	if n := c.EvictAllForFont(a); n != 4 {
		t.Errorf("EvictAllForFont(a) = %d, want 4", n)
	}
	_ = a.Close()

	if c.Len() != 3 || c.BlankLen() != 1 {
		t.Errorf("Len() = %d, BlankLen() = %d, want 3 and 1", c.Len(), c.BlankLen())
	}
	for _, r := range "abc" {
		if _, ok := c.Lookup(KeyFor(b, r)); !ok {
			t.Errorf("entry for font b %q was evicted", r)
		}
	}
	if dev.liveCount() != c.Len() {
		t.Errorf("live textures = %d, Len() = %d", dev.liveCount(), c.Len())
	}
	if n := c.EvictAllForFont(a); n != 0 {
		t.Errorf("second EvictAllForFont = %d, want 0", n)
	}
	_ = b.Close()
}

func TestEvictAllForFontAfterQuiescedLookups(t *testing.T) {
	dev := newFakeDevice()
	c := New(dev)

	f, err := text.New(goregular.TTF, 15)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, r := range "abcdef" {
				if _, err := c.LookupOrCreate(KeyFor(f, r), solid(r, 3, 3)); err != nil {
					t.Errorf("LookupOrCreate(%q) error = %v", r, err)
				}
			}
		}()
	}
	wg.Wait()

	if n := c.EvictAllForFont(f); n != 6 {
		t.Errorf("EvictAllForFont = %d, want 6", n)
	}
	if c.Len() != 0 || dev.liveCount() != 0 {
		t.Errorf("Len() = %d, live textures = %d, want 0 and 0", c.Len(), dev.liveCount())
	}
	for _, r := range "abcdef" {
		if _, ok := c.Lookup(KeyFor(f, r)); ok {
			t.Errorf("entry %q survived eviction", r)
		}
	}
}

func TestClear(t *testing.T) {
	dev := newFakeDevice()
	c := New(dev)

	for _, r := range "hello world" {
		w := 2
		if r == ' ' {
			w = 0
		}
		_, _ = c.LookupOrCreate(key(r), solid(r, w, w))
	}
	c.Clear()

	if c.Len() != 0 || c.BlankLen() != 0 {
		t.Errorf("after Clear: Len=%d BlankLen=%d", c.Len(), c.BlankLen())
	}
	if dev.liveCount() != 0 {
		t.Errorf("live textures after Clear = %d", dev.liveCount())
	}
	if dev.created != dev.deleted || dev.doubleFrees != 0 {
		t.Errorf("created %d, deleted %d, double frees %d", dev.created, dev.deleted, dev.doubleFrees)
	}

	c.Clear()
	if dev.doubleFrees != 0 {
		t.Error("second Clear double-freed")
	}
	if _, err := c.LookupOrCreate(key('h'), solid('h', 2, 2)); err != nil {
		t.Errorf("cache unusable after Clear: %v", err)
	}
}

func TestLiveTexturesMatchLen(t *testing.T) {
	dev := newFakeDevice()
	c := New(dev)

	ops := []func(){
		func() { _, _ = c.LookupOrCreate(key('a'), solid('a', 2, 2)) },
		func() { _, _ = c.LookupOrCreate(key('b'), solid('b', 2, 2)) },
		func() { _, _ = c.LookupOrCreate(key('a'), solid('a', 2, 2)) },
		func() { c.Evict(key('a')) },
		func() { c.Evict(key('a')) },
		func() { _, _ = c.LookupOrCreate(key(' '), solid(' ', 0, 0)) },
		func() { _, _ = c.LookupOrCreate(key('a'), solid('a', 2, 2)) },
		func() { c.EvictFontID(2) },
		func() { c.Clear() },
		func() { _, _ = c.LookupOrCreate(key('c'), solid('c', 2, 2)) },
		func() { c.EvictFontID(1) },
	}

	for i, op := range ops {
		op()
		if dev.liveCount() != c.Len() {
			t.Fatalf("after op %d: live textures = %d, Len() = %d", i, dev.liveCount(), c.Len())
		}
	}
	if dev.doubleFrees != 0 {
		t.Errorf("double frees = %d", dev.doubleFrees)
	}
	if dev.created != dev.deleted {
		t.Errorf("created %d, deleted %d", dev.created, dev.deleted)
	}
}

func TestMaintain(t *testing.T) {
	t.Run("disabled by default", func(t *testing.T) {
		c := New(newFakeDevice())
		_, _ = c.LookupOrCreate(key('a'), solid('a', 2, 2))
		for range 1000 {
			c.Maintain()
		}
		if c.Len() != 1 {
			t.Errorf("Len() = %d, want 1", c.Len())
		}
		if c.CurrentFrame() != 1000 {
			t.Errorf("CurrentFrame() = %d, want 1000", c.CurrentFrame())
		}
	})

	t.Run("frame lifetime", func(t *testing.T) {
		dev := newFakeDevice()
		c := NewWithConfig(dev, Config{FrameLifetime: 2})

		_, _ = c.LookupOrCreate(key('a'), solid('a', 2, 2))
		_, _ = c.LookupOrCreate(key('b'), solid('b', 2, 2))

		c.Maintain() // frame 1
		c.Maintain() // frame 2
		if _, ok := c.Lookup(key('b')); !ok {
			t.Fatal("'b' evicted too early")
		}
		c.Maintain() // frame 3: 'a' unused since frame 0

		if _, ok := c.Lookup(key('a')); ok {
			t.Error("stale 'a' survived Maintain")
		}
		if _, ok := c.Lookup(key('b')); !ok {
			t.Error("recently used 'b' was evicted")
		}
		if dev.liveCount() != c.Len() {
			t.Errorf("live textures = %d, Len() = %d", dev.liveCount(), c.Len())
		}
		if st := c.Stats(); st.Evictions != 1 {
			t.Errorf("Evictions = %d, want 1", st.Evictions)
		}
	})
}

func TestResetStats(t *testing.T) {
	c := New(newFakeDevice())
	_, _ = c.LookupOrCreate(key('a'), solid('a', 2, 2))
	_, _ = c.LookupOrCreate(key('a'), nil)
	c.ResetStats()
	if st := c.Stats(); st != (Stats{}) {
		t.Errorf("Stats() after reset = %+v", st)
	}
	if c.HitRate() != 0 {
		t.Errorf("HitRate() = %v, want 0", c.HitRate())
	}
}

func TestMissIsLogged(t *testing.T) {
	orig := glyphtex.Logger()
	t.Cleanup(func() { glyphtex.SetLogger(orig) })

	var buf bytes.Buffer
	glyphtex.SetLogger(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))

	c := New(newFakeDevice())
	_, _ = c.LookupOrCreate(key('H'), solid('H', 2, 2))
	_, _ = c.LookupOrCreate(key('H'), solid('H', 2, 2))

	out := buf.String()
	if strings.Count(out, "glyph cache miss") != 1 {
		t.Errorf("log = %q, want exactly one miss record", out)
	}
	if !strings.Contains(out, "char=H") {
		t.Errorf("log = %q, want the character", out)
	}
}
