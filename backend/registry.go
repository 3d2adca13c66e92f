package backend

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/gogpu/glyphtex"
	"github.com/gogpu/glyphtex/gpucore"
)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first that opens wins).
	backendPriority = []string{BackendNative, BackendSoftware}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names, sorted.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Open opens the named backend.
func Open(name string, p Params) (gpucore.Device, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q not registered", ErrBackendNotAvailable, name)
	}
	dev, err := factory(p)
	if err != nil {
		return nil, fmt.Errorf("backend %s: %w", name, err)
	}
	return dev, nil
}

// OpenDefault opens the best available backend. Backends are tried in
// priority order (native, then software, then any other registered
// backend by name); a backend that reports ErrBackendNotAvailable is
// skipped, any other error is returned.
func OpenDefault(p Params) (gpucore.Device, string, error) {
	order := slices.Clone(backendPriority)
	for _, name := range Available() {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}

	for _, name := range order {
		if !IsRegistered(name) {
			continue
		}
		dev, err := Open(name, p)
		if err == nil {
			glyphtex.Logger().Debug("backend selected", "name", name)
			return dev, name, nil
		}
		if !errors.Is(err, ErrBackendNotAvailable) {
			return nil, "", err
		}
	}
	return nil, "", ErrBackendNotAvailable
}
