package ecs

import (
	"reflect"
	"sync"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rotisserie/eris"
	"github.com/rs/zerolog"
)

// API is the bundle of platform services handed to systems. Logger and Metrics are always set;
// anything else (audio, input, asset loaders) is provided by type with ProvideService.
type API struct {
	Logger  zerolog.Logger
	Metrics statsd.ClientInterface

	mu       sync.RWMutex
	services map[reflect.Type]any
}

// NewAPI creates a service bundle. A nil metrics client is replaced by a no-op client.
func NewAPI(logger zerolog.Logger, metrics statsd.ClientInterface) *API {
	if metrics == nil {
		metrics = &statsd.NoOpClient{}
	}
	return &API{
		Logger:   logger,
		Metrics:  metrics,
		services: make(map[reflect.Type]any),
	}
}

// ProvideService registers a service under its static type T, replacing any previous one.
func ProvideService[T any](api *API, service T) {
	api.mu.Lock()
	defer api.mu.Unlock()
	if api.services == nil {
		api.services = make(map[reflect.Type]any)
	}
	api.services[reflect.TypeFor[T]()] = service
}

// Service looks up the service registered under type T.
func Service[T any](api *API) (T, bool) {
	api.mu.RLock()
	defer api.mu.RUnlock()
	service, ok := api.services[reflect.TypeFor[T]()]
	if !ok {
		var zero T
		return zero, false
	}
	return service.(T), true
}

// MustService is Service that panics when T was never provided.
func MustService[T any](api *API) T {
	service, ok := Service[T](api)
	if !ok {
		panic(eris.Errorf("service %s not provided", reflect.TypeFor[T]()))
	}
	return service
}

// singletonField is implemented by system struct fields that are resolved against the world's
// services when the system is added.
type singletonField interface {
	initSingleton(w *World)
}

var _ singletonField = &Singleton[int]{}

// Singleton provides access to a single value of type T shared by every system of a world and not
// associated with any entity. Use this for global game state or configuration. Singleton fields on
// a system are resolved by World.AddSystem.
type Singleton[T any] struct {
	value *T
}

// NewSingleton returns the world's singleton of type T. If it does not exist yet it is created
// from initializer, or as a zero value.
func NewSingleton[T any](w *World, initializer ...T) *Singleton[T] {
	s := &Singleton[T]{}
	s.resolve(w, initializer...)
	return s
}

func (s *Singleton[T]) resolve(w *World, initializer ...T) {
	api := w.api
	api.mu.Lock()
	defer api.mu.Unlock()

	key := reflect.TypeFor[*T]()
	if existing, ok := api.services[key]; ok {
		s.value = existing.(*T)
		return
	}

	if api.services == nil {
		api.services = make(map[reflect.Type]any)
	}
	value := new(T)
	if len(initializer) > 0 {
		*value = initializer[0]
	}
	api.services[key] = value
	s.value = value
}

func (s *Singleton[T]) initSingleton(w *World) {
	s.resolve(w)
}

// Get returns a pointer to the singleton value, or nil before the singleton was resolved.
func (s *Singleton[T]) Get() *T {
	return s.value
}

// Exists reports whether the singleton was resolved.
func (s *Singleton[T]) Exists() bool {
	return s.value != nil
}
