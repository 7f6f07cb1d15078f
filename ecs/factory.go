package ecs

import (
	"slices"
	"sync"

	"github.com/rotisserie/eris"
)

// SystemConstructor creates a fresh, unattached system.
type SystemConstructor func() System

// SystemFactory creates systems by name so a world can be assembled from configuration.
type SystemFactory struct {
	mu           sync.RWMutex
	constructors map[string]SystemConstructor
}

// NewSystemFactory creates an empty factory.
func NewSystemFactory() *SystemFactory {
	return &SystemFactory{constructors: make(map[string]SystemConstructor)}
}

// DefaultFactory is the process-wide factory used by RegisterSystem.
var DefaultFactory = NewSystemFactory()

// Register adds a constructor under name. Registering a name twice is an error.
func (f *SystemFactory) Register(name string, ctor SystemConstructor) error {
	if name == "" {
		return eris.New("system name must not be empty")
	}
	if ctor == nil {
		return eris.Errorf("system %q has a nil constructor", name)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.constructors[name]; exists {
		return eris.Wrapf(ErrDuplicateSystem, "system %q already registered", name)
	}
	f.constructors[name] = ctor
	return nil
}

// MustRegister is Register that panics on error, for use from init functions.
func (f *SystemFactory) MustRegister(name string, ctor SystemConstructor) {
	if err := f.Register(name, ctor); err != nil {
		panic(err)
	}
}

// Create returns a new system for name.
func (f *SystemFactory) Create(name string) (System, error) {
	f.mu.RLock()
	ctor, ok := f.constructors[name]
	f.mu.RUnlock()
	if !ok {
		return nil, eris.Wrapf(ErrUnknownSystem, "system %q", name)
	}

	sys := ctor()
	if sys == nil {
		return nil, eris.Errorf("constructor for system %q returned nil", name)
	}
	return sys, nil
}

// Has reports whether a constructor is registered under name.
func (f *SystemFactory) Has(name string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.constructors[name]
	return ok
}

// Names returns the registered names in sorted order.
func (f *SystemFactory) Names() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	names := make([]string, 0, len(f.constructors))
	for name := range f.constructors {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RegisterSystem registers S with DefaultFactory under name. S must be a struct embedding
// SystemBase; a new *S is created for every world.
//
//	func init() { ecs.RegisterSystem[MovementSystem]("movement") }
func RegisterSystem[S any, PS interface {
	*S
	System
}](name string) {
	DefaultFactory.MustRegister(name, func() System {
		return PS(new(S))
	})
}
