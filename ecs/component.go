package ecs

import (
	"reflect"
	"strconv"

	"github.com/rotisserie/eris"
)

// ComponentID is a dense identifier assigned to a component type at registration. It is the bit
// index of the type in a ComponentMask.
type ComponentID = uint32

// Named can be implemented by a component type to choose the name it is registered under. Names
// are how the scene bridge refers to components.
type Named interface {
	Name() string
}

type componentInfo struct {
	id      ComponentID
	name    string
	typ     reflect.Type
	newPool func() componentPool
}

// ComponentRegistry manages component type registration for a World.
// Worlds created from the same registry agree on component ids; each World still owns its pools.
type ComponentRegistry struct {
	byType map[reflect.Type]ComponentID
	byName map[string]ComponentID
	infos  []componentInfo
}

// NewComponentRegistry creates an empty component registry.
func NewComponentRegistry() *ComponentRegistry {
	return &ComponentRegistry{
		byType: make(map[reflect.Type]ComponentID),
		byName: make(map[string]ComponentID),
		infos:  make([]componentInfo, 0),
	}
}

// RegisterComponent registers T with the registry and returns its id. Registering the same type
// twice returns the existing id. Component types must be value types: pointers, maps, channels and
// functions are rejected, as is a name already taken by another type.
func RegisterComponent[T any](r *ComponentRegistry) ComponentID {
	t := reflect.TypeFor[T]()
	if id, ok := r.byType[t]; ok {
		return id
	}

	switch t.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface:
		panic(eris.Errorf("component %s cannot be a pointer, map, channel, function or interface", t))
	default:
	}

	name := t.Name()
	var zero T
	if named, ok := any(zero).(Named); ok {
		name = named.Name()
	}
	if name == "" {
		name = t.String()
	}
	if other, taken := r.byName[name]; taken {
		panic(eris.Errorf("component name %q already used by %s", name, r.infos[other].typ))
	}

	id := ComponentID(len(r.infos))
	r.infos = append(r.infos, componentInfo{
		id:   id,
		name: name,
		typ:  t,
		newPool: func() componentPool {
			return &typedPool[T]{}
		},
	})
	r.byType[t] = id
	r.byName[name] = id
	return id
}

// ID returns the id registered for the type.
func (r *ComponentRegistry) ID(t reflect.Type) (ComponentID, bool) {
	id, ok := r.byType[t]
	return id, ok
}

// IDByName returns the id registered under the component name.
func (r *ComponentRegistry) IDByName(name string) (ComponentID, bool) {
	id, ok := r.byName[name]
	return id, ok
}

// Name returns the registered name of a component id.
func (r *ComponentRegistry) Name(id ComponentID) string {
	if int(id) >= len(r.infos) {
		return componentIDString(id)
	}
	return r.infos[id].name
}

// Type returns the Go type registered for a component id.
func (r *ComponentRegistry) Type(id ComponentID) reflect.Type {
	if int(id) >= len(r.infos) {
		return nil
	}
	return r.infos[id].typ
}

// Len returns the number of registered component types.
func (r *ComponentRegistry) Len() int {
	return len(r.infos)
}

// Names returns every registered component name in id order.
func (r *ComponentRegistry) Names() []string {
	names := make([]string, len(r.infos))
	for i, info := range r.infos {
		names[i] = info.name
	}
	return names
}

// mustID resolves a type or panics with ErrComponentNotRegistered.
func (r *ComponentRegistry) mustID(t reflect.Type) ComponentID {
	id, ok := r.byType[t]
	if !ok {
		panic(eris.Wrapf(ErrComponentNotRegistered, "component %s", t))
	}
	return id
}

func componentIDString(id ComponentID) string {
	return "#" + strconv.FormatUint(uint64(id), 10)
}
