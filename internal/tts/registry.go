package tts

import (
	"errors"
	"fmt"
	"slices"
	"sync"
)

var (
	// ErrEngineNotFound is returned when an engine is not registered.
	ErrEngineNotFound = errors.New("TTS engine not found")
	// ErrEngineExists is returned when trying to register a duplicate engine.
	ErrEngineExists = errors.New("TTS engine already registered")
)

// FallbackOrder is the order engines are tried in when the preferred one is
// not registered. Local engines come before the network one.
var FallbackOrder = []string{"espeak", "piper", "command", "edge"}

// Registry holds the available engines and resolves which one renders.
//
// The preferred engine is used whenever it is registered, no matter when it
// was registered. Otherwise the first registered name in the fallback list
// wins, then the alphabetically first registered engine.
type Registry struct {
	preferred string
	fallbacks []string

	mu      sync.RWMutex
	engines map[string]Engine
}

// NewRegistry creates an empty registry that prefers the named engine.
// An empty preferred name leaves the choice to the fallback order.
func NewRegistry(preferred string, fallbacks ...string) *Registry {
	return &Registry{
		engines:   make(map[string]Engine),
		preferred: preferred,
		fallbacks: fallbacks,
	}
}

// Register adds an engine under its Name.
func (r *Registry) Register(engine Engine) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := engine.Name()
	if _, ok := r.engines[name]; ok {
		return fmt.Errorf("%w: %s", ErrEngineExists, name)
	}
	r.engines[name] = engine
	return nil
}

// Get retrieves an engine by name.
func (r *Registry) Get(name string) (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	engine, ok := r.engines[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEngineNotFound, name)
	}
	return engine, nil
}

// Preferred returns the name of the engine the registry was asked to use.
func (r *Registry) Preferred() string {
	return r.preferred
}

// Default returns the engine used for rendering.
func (r *Registry) Default() (Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if engine, ok := r.engines[r.preferred]; ok {
		return engine, nil
	}
	for _, name := range r.fallbacks {
		if engine, ok := r.engines[name]; ok {
			return engine, nil
		}
	}
	if len(r.engines) == 0 {
		if r.preferred == "" {
			return nil, fmt.Errorf("%w: none registered", ErrEngineNotFound)
		}
		return nil, fmt.Errorf("%w: %s", ErrEngineNotFound, r.preferred)
	}
	return r.engines[slices.Min(r.names())], nil
}

// List returns the registered engine names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := r.names()
	slices.Sort(names)
	return names
}

func (r *Registry) names() []string {
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	return names
}
