// Package cache provides GlyphTextureCache, which turns (rune, font,
// pixel size) keys into GPU textures on a gpucore.Device, rasterizing and
// uploading each distinct key once.
package cache
