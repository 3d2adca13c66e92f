package backend

import (
	"errors"

	"github.com/gogpu/gpucontext"

	"github.com/gogpu/glyphtex/gpucore"
)

// Backend names.
const (
	// BackendNative is the wgpu HAL backend (package backend/native).
	BackendNative = "native"

	// BackendSoftware is the CPU backend (package backend/software).
	BackendSoftware = "software"
)

// Common backend errors.
var (
	// ErrBackendNotAvailable is returned when a requested backend is not
	// registered or cannot run with the given Params.
	ErrBackendNotAvailable = errors.New("backend: not available")
)

// Params are the inputs a Factory may use to open a device.
type Params struct {
	// Width and Height are the render target size in pixels.
	Width, Height int

	// Provider supplies a shared GPU device. GPU backends return
	// ErrBackendNotAvailable when it is nil.
	Provider gpucontext.DeviceProvider
}

// Factory opens a device for the given params.
type Factory func(Params) (gpucore.Device, error)
