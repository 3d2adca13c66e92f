// Package native implements gpucore.Device on top of the wgpu HAL.
//
// Each glyph texture is an R8Unorm hal.Texture with its own view and bind
// group. DrawTexturedQuad only queues a quad; the queued quads are turned
// into vertex and index buffers and recorded into a render pass by
// RecordDraws, one DrawIndexed per run of quads sharing a texture.
//
// The device is usually obtained from the host application:
//
//	dev, err := native.NewFromProvider(provider)
//	if err != nil {
//		return err
//	}
//	defer dev.Close()
//
//	c := cache.New(dev)
//	engine := layout.New(c)
//	engine.DrawString(dev, face, "Hello")
//	dev.RecordDraws(renderPass)
package native
