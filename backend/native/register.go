package native

import (
	"github.com/gogpu/glyphtex/backend"
	"github.com/gogpu/glyphtex/gpucore"
)

func init() {
	backend.Register(backend.BackendNative, func(p backend.Params) (gpucore.Device, error) {
		if p.Provider == nil {
			return nil, backend.ErrBackendNotAvailable
		}
		dev, err := NewFromProvider(p.Provider, WithViewport(p.Width, p.Height))
		if err != nil {
			return nil, err
		}
		return dev, nil
	})
}
