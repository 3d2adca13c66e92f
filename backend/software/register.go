package software

import (
	"fmt"

	"github.com/gogpu/glyphtex/backend"
	"github.com/gogpu/glyphtex/gpucore"
)

func init() {
	backend.Register(backend.BackendSoftware, func(p backend.Params) (gpucore.Device, error) {
		if p.Width <= 0 || p.Height <= 0 {
			return nil, fmt.Errorf("software: target %dx%d: %w", p.Width, p.Height, gpucore.ErrInvalidSize)
		}
		return New(p.Width, p.Height), nil
	})
}
