package native

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/glyphtex/gpucore"
)

// maxQuads is the number of quads addressable with uint16 indices.
const maxQuads = 65536 / 4

// ErrQuadBufferOverflow is returned when more quads are queued than one
// frame can index.
var ErrQuadBufferOverflow = errors.New("native: quad buffer overflow")

// quad is a queued DrawTexturedQuad call.
type quad struct {
	texture    gpucore.TextureID
	x, y, w, h int
}

// drawRun is a sequence of consecutive quads sharing a texture.
type drawRun struct {
	bindGroup  hal.BindGroup
	firstIndex uint32
	indexCount uint32
}

// frameResources holds the buffers of the last recorded frame.
type frameResources struct {
	vertBuf hal.Buffer
	idxBuf  hal.Buffer
	runs    []drawRun
}

// dropQuads removes quads referencing id, keeping order.
func dropQuads(quads []quad, id gpucore.TextureID) []quad {
	out := quads[:0]
	for _, q := range quads {
		if q.texture != id {
			out = append(out, q)
		}
	}
	return out
}

// buildVertexData emits four vertices per quad: top-left, top-right,
// bottom-right, bottom-left.
func buildVertexData(quads []quad) []byte {
	buf := make([]byte, len(quads)*4*quadVertexStride)
	off := 0
	for _, q := range quads {
		x0, y0 := float32(q.x), float32(q.y)
		x1, y1 := float32(q.x+q.w), float32(q.y+q.h)
		writeVertex(buf[off:], x0, y0, 0, 0)
		writeVertex(buf[off+16:], x1, y0, 1, 0)
		writeVertex(buf[off+32:], x1, y1, 1, 1)
		writeVertex(buf[off+48:], x0, y1, 0, 1)
		off += 4 * quadVertexStride
	}
	return buf
}

func writeVertex(buf []byte, x, y, u, v float32) {
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(x))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(y))
	binary.LittleEndian.PutUint32(buf[8:], math.Float32bits(u))
	binary.LittleEndian.PutUint32(buf[12:], math.Float32bits(v))
}

// buildIndexData emits two triangles per quad.
func buildIndexData(numQuads int) []byte {
	buf := make([]byte, numQuads*6*2)
	for i := range numQuads {
		base := uint16(i * 4) //nolint:gosec // numQuads <= maxQuads
		off := i * 12
		for j, idx := range [6]uint16{0, 1, 2, 0, 2, 3} {
			binary.LittleEndian.PutUint16(buf[off+j*2:], base+idx)
		}
	}
	return buf
}

// makeUniform encodes the Uniforms struct of glyph_quad.wgsl.
func makeUniform(viewportW, viewportH int, col [4]float32) []byte {
	buf := make([]byte, uniformSize)
	binary.LittleEndian.PutUint32(buf[0:], math.Float32bits(float32(viewportW)))
	binary.LittleEndian.PutUint32(buf[4:], math.Float32bits(float32(viewportH)))
	for i, c := range col {
		binary.LittleEndian.PutUint32(buf[16+i*4:], math.Float32bits(c))
	}
	return buf
}

// groupRuns splits quads into runs of consecutive quads with the same
// texture.
func groupRuns(quads []quad, textures map[gpucore.TextureID]*texture) []drawRun {
	var runs []drawRun
	var last gpucore.TextureID
	for i, q := range quads {
		if i > 0 && q.texture == last {
			runs[len(runs)-1].indexCount += 6
			continue
		}
		runs = append(runs, drawRun{
			bindGroup:  textures[q.texture].bindGroup,
			firstIndex: uint32(i * 6), //nolint:gosec // i < maxQuads
			indexCount: 6,
		})
		last = q.texture
	}
	return runs
}

// RecordDraws uploads the queued quads and records them into rp, one
// DrawIndexed per run of quads sharing a texture. The queue is cleared.
// Buffers from the previous call are released; the caller must have
// submitted that frame.
func (d *Device) RecordDraws(rp hal.RenderPassEncoder) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrClosed
	}
	d.releaseFrame()

	quads := d.pending
	d.pending = nil
	if len(quads) == 0 {
		return nil
	}

	if err := d.queue.WriteBuffer(d.pipe.uniformBuffer, 0,
		makeUniform(d.config.viewportW, d.config.viewportH, d.config.color)); err != nil {
		return fmt.Errorf("native: write uniforms: %w", err)
	}

	vertBuf, err := d.createAndUploadBuffer("glyph_quad_verts", buildVertexData(quads),
		gputypes.BufferUsageVertex|gputypes.BufferUsageCopyDst)
	if err != nil {
		return err
	}
	idxBuf, err := d.createAndUploadBuffer("glyph_quad_indices", buildIndexData(len(quads)),
		gputypes.BufferUsageIndex|gputypes.BufferUsageCopyDst)
	if err != nil {
		d.device.DestroyBuffer(vertBuf)
		return err
	}

	d.frame = &frameResources{
		vertBuf: vertBuf,
		idxBuf:  idxBuf,
		runs:    groupRuns(quads, d.textures),
	}

	rp.SetPipeline(d.pipe.renderPipe)
	rp.SetVertexBuffer(0, vertBuf, 0)
	rp.SetIndexBuffer(idxBuf, gputypes.IndexFormatUint16, 0)
	for _, r := range d.frame.runs {
		rp.SetBindGroup(0, r.bindGroup, nil)
		rp.DrawIndexed(r.indexCount, 1, r.firstIndex, 0, 0)
	}
	return nil
}

func (d *Device) createAndUploadBuffer(label string, data []byte, usage gputypes.BufferUsage) (hal.Buffer, error) {
	buf, err := d.device.CreateBuffer(&hal.BufferDescriptor{
		Label: label,
		Size:  uint64(len(data)),
		Usage: usage,
	})
	if err != nil {
		return nil, fmt.Errorf("native: create %s: %w", label, err)
	}
	if err := d.queue.WriteBuffer(buf, 0, data); err != nil {
		d.device.DestroyBuffer(buf)
		return nil, fmt.Errorf("native: write %s: %w", label, err)
	}
	return buf, nil
}

// releaseFrame destroys the previous frame's buffers.
func (d *Device) releaseFrame() {
	if d.frame == nil {
		return
	}
	d.device.DestroyBuffer(d.frame.idxBuf)
	d.device.DestroyBuffer(d.frame.vertBuf)
	d.frame = nil
}
