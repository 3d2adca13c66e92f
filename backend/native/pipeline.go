package native

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/glyphtex"
)

// Embedded glyph quad shader source.
//
//go:embed shaders/glyph_quad.wgsl
var glyphQuadShaderSource string

// quadVertexStride is the byte stride per vertex.
// Layout per vertex:
//
//	position  (vec2<f32>) = 8 bytes  (location 0)
//	tex_coord (vec2<f32>) = 8 bytes  (location 1)
const quadVertexStride = 16

// uniformSize is the size of the Uniforms struct in glyph_quad.wgsl:
// viewport vec2 + padding vec2 + color vec4.
const uniformSize = 32

// pipeline owns the shader, layouts, sampler and render pipeline shared
// by every glyph texture.
type pipeline struct {
	device hal.Device

	shader        hal.ShaderModule
	bindLayout    hal.BindGroupLayout
	pipeLayout    hal.PipelineLayout
	renderPipe    hal.RenderPipeline
	sampler       hal.Sampler
	uniformBuffer hal.Buffer
}

// compileShader compiles WGSL to SPIR-V words.
func compileShader(src string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(src)
	if err != nil {
		return nil, fmt.Errorf("compile shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}

// shaderSource returns SPIR-V when naga can compile the shader and the
// WGSL text otherwise.
func shaderSource(src string) hal.ShaderSource {
	words, err := compileShader(src)
	if err != nil {
		glyphtex.Logger().Warn("native: naga compile failed, passing WGSL to backend", "err", err)
		return hal.ShaderSource{WGSL: src}
	}
	return hal.ShaderSource{SPIRV: words}
}

// createPipeline builds all shared GPU objects. On error everything
// created so far is destroyed.
func createPipeline(device hal.Device, cfg config) (_ *pipeline, err error) {
	p := &pipeline{device: device}
	defer func() {
		if err != nil {
			p.destroy()
		}
	}()

	p.shader, err = device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label:  "glyph_quad_shader",
		Source: shaderSource(glyphQuadShaderSource),
	})
	if err != nil {
		return nil, fmt.Errorf("create glyph_quad shader: %w", err)
	}

	// Bind group layout:
	//   Binding 0: Uniforms (uniform buffer, vertex+fragment)
	//   Binding 1: glyph texture (texture_2d, fragment)
	//   Binding 2: sampler (fragment)
	p.bindLayout, err = device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label: "glyph_quad_bind_layout",
		Entries: []gputypes.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
				Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
			},
			{
				Binding:    1,
				Visibility: gputypes.ShaderStageFragment,
				Texture: &gputypes.TextureBindingLayout{
					SampleType:    gputypes.TextureSampleTypeFloat,
					ViewDimension: gputypes.TextureViewDimension2D,
				},
			},
			{
				Binding:    2,
				Visibility: gputypes.ShaderStageFragment,
				Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create glyph_quad bind group layout: %w", err)
	}

	p.pipeLayout, err = device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "glyph_quad_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.bindLayout},
	})
	if err != nil {
		return nil, fmt.Errorf("create glyph_quad pipeline layout: %w", err)
	}

	p.sampler, err = device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "glyph_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeLinear,
		MinFilter:    gputypes.FilterModeLinear,
		MipmapFilter: gputypes.FilterModeLinear,
	})
	if err != nil {
		return nil, fmt.Errorf("create glyph sampler: %w", err)
	}

	p.uniformBuffer, err = device.CreateBuffer(&hal.BufferDescriptor{
		Label: "glyph_quad_uniform",
		Size:  uniformSize,
		Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create glyph_quad uniform buffer: %w", err)
	}

	premulBlend := gputypes.BlendStatePremultiplied()
	p.renderPipe, err = device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "glyph_quad_pipeline",
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.shader,
			EntryPoint: "vs_main",
			Buffers:    quadVertexLayout(),
		},
		Fragment: &hal.FragmentState{
			Module:     p.shader,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    cfg.surfaceFormat,
					Blend:     &premulBlend,
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: cfg.sampleCount,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create glyph_quad pipeline: %w", err)
	}

	return p, nil
}

// createBindGroup binds the shared uniform buffer and sampler with view.
func (p *pipeline) createBindGroup(label string, view hal.TextureView) (hal.BindGroup, error) {
	return p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:  label,
		Layout: p.bindLayout,
		Entries: []gputypes.BindGroupEntry{
			{Binding: 0, Resource: gputypes.BufferBinding{
				Buffer: p.uniformBuffer.NativeHandle(), Offset: 0, Size: uniformSize,
			}},
			{Binding: 1, Resource: gputypes.TextureViewBinding{TextureView: view.NativeHandle()}},
			{Binding: 2, Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()}},
		},
	})
}

// destroy releases all pipeline resources in reverse creation order.
// Safe to call on a partially created pipeline.
func (p *pipeline) destroy() {
	if p.device == nil {
		return
	}
	if p.renderPipe != nil {
		p.device.DestroyRenderPipeline(p.renderPipe)
		p.renderPipe = nil
	}
	if p.uniformBuffer != nil {
		p.device.DestroyBuffer(p.uniformBuffer)
		p.uniformBuffer = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.bindLayout != nil {
		p.device.DestroyBindGroupLayout(p.bindLayout)
		p.bindLayout = nil
	}
	if p.shader != nil {
		p.device.DestroyShaderModule(p.shader)
		p.shader = nil
	}
}

// quadVertexLayout matches VertexInput in glyph_quad.wgsl.
func quadVertexLayout() []gputypes.VertexBufferLayout {
	return []gputypes.VertexBufferLayout{
		{
			ArrayStride: quadVertexStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0}, // position
				{Format: gputypes.VertexFormatFloat32x2, Offset: 8, ShaderLocation: 1}, // tex_coord
			},
		},
	}
}
