// Package backend is a registry of gpucore.Device implementations.
//
// Backend packages register a Factory from init(), so importing them is
// enough to make them selectable:
//
//	import (
//		_ "github.com/gogpu/glyphtex/backend/native"
//		_ "github.com/gogpu/glyphtex/backend/software"
//	)
//
//	dev, name, err := backend.OpenDefault(backend.Params{
//		Width: 800, Height: 600, Provider: provider,
//	})
//
// OpenDefault prefers the native GPU backend when a device provider is
// given and falls back to the software backend otherwise.
package backend
