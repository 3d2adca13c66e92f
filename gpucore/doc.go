// Package gpucore defines the GPU device contract used by the glyph
// texture cache and the layout engine.
//
// A [Device] creates single-channel textures, uploads alpha bitmaps into
// them, and draws textured quads. Concrete devices live in
// backend/software (CPU, image.RGBA target) and backend/native (wgpu HAL).
// Texture formats and sampler modes use the WebGPU enums from
// github.com/gogpu/gputypes so a descriptor maps directly onto a HAL
// texture.
package gpucore
