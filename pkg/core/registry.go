package core

import (
	"fmt"
	"sync"
)

// Global registry for backend self-registration
var globalRegistry = &Registry{
	prototypes: make(map[string]Prototype),
	backends:   make(map[string]Backend),
}

type Registry struct {
	prototypes map[string]Prototype
	backends   map[string]Backend
	mu         sync.RWMutex
}

func NewRegistry() *Registry {
	return &Registry{
		prototypes: make(map[string]Prototype),
		backends:   make(map[string]Backend),
	}
}

// RegisterBackendPrototype allows backend packages to register themselves
// during init()
func RegisterBackendPrototype(backendType string, prototype Prototype) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()
	globalRegistry.prototypes[backendType] = prototype
}

// GetGlobalRegistry returns a registry pre-populated with all prototypes
// registered at init time. Instances created on it do not leak into other
// callers.
func GetGlobalRegistry() *Registry {
	globalRegistry.mu.RLock()
	defer globalRegistry.mu.RUnlock()

	registry := NewRegistry()
	for backendType, prototype := range globalRegistry.prototypes {
		registry.prototypes[backendType] = prototype
	}
	return registry
}

func (r *Registry) RegisterPrototype(backendType string, prototype Prototype) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.prototypes[backendType]; exists {
		return fmt.Errorf("backend prototype %s already registered", backendType)
	}

	r.prototypes[backendType] = prototype
	return nil
}

// CreateBackend instantiates a backend of the given type under the given
// instance name, replacing (and closing) any previous instance with that
// name.
func (r *Registry) CreateBackend(instanceName string, backendType string, config interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	prototype, exists := r.prototypes[backendType]
	if !exists {
		return fmt.Errorf("backend prototype %s not found", backendType)
	}

	if validator, ok := config.(interface{ Validate() error }); ok {
		if err := validator.Validate(); err != nil {
			return fmt.Errorf("invalid config for backend %s: %w", instanceName, err)
		}
	}

	backend, err := prototype.Factory(instanceName, config)
	if err != nil {
		return fmt.Errorf("creating backend %s: %w", instanceName, err)
	}

	if existing, exists := r.backends[instanceName]; exists {
		if err := existing.Close(); err != nil {
			return fmt.Errorf("closing existing backend %s: %w", instanceName, err)
		}
	}

	r.backends[instanceName] = backend
	return nil
}

func (r *Registry) GetBackend(name string) (Backend, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	backend, exists := r.backends[name]
	if !exists {
		return nil, fmt.Errorf("backend %s not found", name)
	}

	return backend, nil
}

func (r *Registry) GetAllBackends() map[string]Backend {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make(map[string]Backend)
	for name, backend := range r.backends {
		result[name] = backend
	}
	return result
}

// GetPrototype returns the registered prototype for a backend type,
// typically to obtain its ConfigType before instantiation.
func (r *Registry) GetPrototype(backendType string) (Prototype, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prototype, exists := r.prototypes[backendType]
	if !exists {
		return nil, fmt.Errorf("backend prototype %s not found", backendType)
	}
	return prototype, nil
}

// ListPrototypes returns the registered backend type identifiers.
func (r *Registry) ListPrototypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.prototypes))
	for backendType := range r.prototypes {
		types = append(types, backendType)
	}
	return types
}

func (r *Registry) RemoveBackend(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	backend, exists := r.backends[name]
	if !exists {
		return fmt.Errorf("backend %s not found", name)
	}

	if err := backend.Close(); err != nil {
		return fmt.Errorf("closing backend %s: %w", name, err)
	}

	delete(r.backends, name)
	return nil
}

func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for name, backend := range r.backends {
		if err := backend.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing backend %s: %w", name, err))
		}
	}

	r.backends = make(map[string]Backend)

	if len(errs) > 0 {
		return fmt.Errorf("errors closing backends: %v", errs)
	}

	return nil
}
