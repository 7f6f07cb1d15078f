package ecs

import (
	"iter"
	"reflect"
	"unsafe"

	"github.com/rotisserie/eris"
)

// familyField is implemented by system struct fields that the World resolves when the system is
// added, see World.AddSystem.
type familyField interface {
	bind(w *World) (FamilyType, error)
	unbind()
}

var _ familyField = &Family[struct{ *int }]{}

var entityIdType = reflect.TypeFor[EntityId]()

// Family is a typed view over a FamilyBinding. The type T must be a struct whose fields are
// pointers to registered component types, embedded or named. One field of type EntityId may be
// added to receive the entity id. A field tagged `ecs:"read"` is only read by the system; every
// other component field is considered written.
//
//	type MovementSystem struct {
//	    ecs.SystemBase
//	    Movers ecs.Family[struct {
//	        *Position
//	        *Velocity `ecs:"read"`
//	    }]
//	}
//
// Families declared as system fields are bound by World.AddSystem. Families used outside systems
// are created with NewFamily.
type Family[T any] struct {
	world       *World
	binding     *FamilyBinding
	familyType  FamilyType
	fieldOffset []uintptr
	fieldColumn []int
	idOffset    uintptr
	hasID       bool
}

// NewFamily binds a standalone family to the world. Call Close once it is no longer needed so the
// binding can be dropped when nothing else shares it.
func NewFamily[T any](w *World) (*Family[T], error) {
	f := &Family[T]{}
	if _, err := f.bind(w); err != nil {
		return nil, err
	}
	return f, nil
}

// MustFamily is NewFamily that panics on an invalid declaration.
func MustFamily[T any](w *World) *Family[T] {
	f, err := NewFamily[T](w)
	if err != nil {
		panic(err)
	}
	return f
}

// bind parses T, resolves the shared binding and caches field offsets.
func (f *Family[T]) bind(w *World) (FamilyType, error) {
	if f.binding != nil {
		return FamilyType{}, eris.Wrap(ErrInvalidFamily, "family already bound")
	}
	if w.phase != phaseIdle {
		return FamilyType{}, eris.Wrapf(ErrReconcileDuringPass, "cannot bind a family during %s", w.phase)
	}

	structType := reflect.TypeFor[T]()
	if structType.Kind() != reflect.Struct {
		return FamilyType{}, eris.Wrapf(ErrInvalidFamily, "family type %s must be a struct", structType)
	}

	var (
		mask    ComponentMask
		writes  ComponentMask
		ids     = make([]ComponentID, 0, structType.NumField())
		offsets = make([]uintptr, 0, structType.NumField())
	)

	for i := 0; i < structType.NumField(); i++ {
		field := structType.Field(i)

		if field.Type == entityIdType {
			if f.hasID {
				return FamilyType{}, eris.Wrapf(ErrInvalidFamily, "family %s has more than one EntityId field", structType)
			}
			f.hasID = true
			f.idOffset = field.Offset
			continue
		}

		if field.Type.Kind() != reflect.Ptr {
			return FamilyType{}, eris.Wrapf(ErrInvalidFamily, "family field %s must be a pointer to a component", field.Name)
		}

		componentType := field.Type.Elem()
		id, ok := w.registry.ID(componentType)
		if !ok {
			return FamilyType{}, eris.Wrapf(ErrComponentNotRegistered, "family field %s: component %s", field.Name, componentType)
		}
		if mask.Has(id) {
			return FamilyType{}, eris.Wrapf(ErrInvalidFamily, "family %s lists component %s twice", structType, componentType)
		}

		switch tag := field.Tag.Get("ecs"); tag {
		case "":
			writes.Set(id)
		case "read":
		default:
			return FamilyType{}, eris.Wrapf(ErrInvalidFamily, "invalid ecs tag value %q on field %s (only \"read\" is supported)", tag, field.Name)
		}

		mask.Set(id)
		ids = append(ids, id)
		offsets = append(offsets, field.Offset)
	}

	if mask.IsEmpty() {
		return FamilyType{}, eris.Wrapf(ErrInvalidFamily, "family %s requires no components", structType)
	}

	binding := w.acquireBinding(mask)

	f.world = w
	f.binding = binding
	f.fieldOffset = offsets
	f.fieldColumn = make([]int, len(ids))
	for i, id := range ids {
		f.fieldColumn[i] = binding.column(id)
	}
	f.familyType = FamilyType{
		Mask:       binding.mask,
		Components: binding.components,
		Writes:     writes,
	}
	return f.familyType, nil
}

func (f *Family[T]) unbind() {
	if f.binding == nil {
		return
	}
	f.world.releaseBinding(f.binding)
	f.binding = nil
	f.world = nil
}

// Close releases a family created with NewFamily.
func (f *Family[T]) Close() {
	f.unbind()
}

// Binding returns the shared binding behind this family.
func (f *Family[T]) Binding() *FamilyBinding {
	return f.binding
}

// Type returns the resolved family signature.
func (f *Family[T]) Type() FamilyType {
	return f.familyType
}

// Mask returns the family mask.
func (f *Family[T]) Mask() ComponentMask {
	return f.binding.mask
}

// Len returns the number of entities in the family as of the last reconciliation. Entities
// destroyed since then are still counted but are skipped by iteration.
func (f *Family[T]) Len() int {
	return f.binding.Len()
}

// Contains reports whether the entity was a member at the last reconciliation.
func (f *Family[T]) Contains(id EntityId) bool {
	return f.binding.Contains(id)
}

func (f *Family[T]) fill(dst unsafe.Pointer, id EntityId, row []unsafe.Pointer) {
	for i, column := range f.fieldColumn {
		*(*unsafe.Pointer)(unsafe.Add(dst, f.fieldOffset[i])) = row[column]
	}
	if f.hasID {
		*(*EntityId)(unsafe.Add(dst, f.idOffset)) = id
	}
}

// At returns the entity id and view at row i. A row whose entity has been destroyed since the
// last reconciliation yields a zero id and a zero view.
func (f *Family[T]) At(i int) (EntityId, T) {
	var result T
	b := f.binding
	id := b.entities[i]
	if id == 0 || !f.world.Alive(id) {
		return 0, result
	}
	f.fill(unsafe.Pointer(&result), id, b.row(i))
	return id, result
}

// Get returns the view for a member entity.
func (f *Family[T]) Get(id EntityId) (T, bool) {
	var result T
	b := f.binding
	row, ok := b.rows.Get(id)
	if !ok || !f.world.Alive(id) {
		return result, false
	}
	f.fill(unsafe.Pointer(&result), id, b.row(row))
	return result, true
}

// Iter returns an iterator over the live members of the family in row order.
// Entities destroyed during the current pass are skipped.
func (f *Family[T]) Iter() iter.Seq2[EntityId, T] {
	return func(yield func(EntityId, T) bool) {
		b := f.binding
		b.iterating.Add(1)
		defer b.iterating.Add(-1)

		var result T
		resultPtr := unsafe.Pointer(&result)

		for i, id := range b.entities {
			if id == 0 || !f.world.Alive(id) {
				continue
			}
			f.fill(resultPtr, id, b.row(i))
			if !yield(id, result) {
				return
			}
		}
	}
}

// Values returns an iterator over just the view structs.
func (f *Family[T]) Values() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, value := range f.Iter() {
			if !yield(value) {
				return
			}
		}
	}
}

// Each calls fn for every live member view in row order.
func (f *Family[T]) Each(fn func(T)) {
	for _, value := range f.Iter() {
		fn(value)
	}
}

// InvokeIndividual applies fn to every member view of the family, passing p through unchanged.
func InvokeIndividual[P any, T any](p P, fam *Family[T], fn func(P, T)) {
	for _, value := range fam.Iter() {
		fn(p, value)
	}
}
