package ecs

import (
	"slices"
	"sync/atomic"
	"unsafe"

	"github.com/kamstrup/intmap"
	"github.com/plus3/famecs/ecs/internal/assert"
)

// FamilyType is the resolved signature of a family: the required components in ascending id order
// and which of them are written by the declaring system.
type FamilyType struct {
	Mask       ComponentMask
	Components []ComponentID
	Writes     ComponentMask
}

// FamilyBinding is the live collection of entities whose mask contains the family mask. Bindings
// are shared by every family declaration with the same mask and are only modified by World
// reconciliation, never during a system pass.
//
// Each row caches a pointer to every required component so iteration never goes back to the
// entity's slot table.
type FamilyBinding struct {
	key        string
	mask       ComponentMask
	components []ComponentID
	entities   []EntityId
	rows       *intmap.Map[EntityId, int]
	ptrs       []unsafe.Pointer
	refs       int
	removed    int
	iterating  atomic.Int32
}

func newFamilyBinding(mask ComponentMask) *FamilyBinding {
	return &FamilyBinding{
		key:        mask.Key(),
		mask:       mask.Clone(),
		components: mask.IDs(),
		entities:   make([]EntityId, 0),
		rows:       intmap.New[EntityId, int](64),
		ptrs:       make([]unsafe.Pointer, 0),
	}
}

// Mask returns the family mask.
func (b *FamilyBinding) Mask() ComponentMask {
	return b.mask
}

// Components returns the required component ids in column order.
func (b *FamilyBinding) Components() []ComponentID {
	return b.components
}

// Matches reports whether an entity with the given mask belongs in this family.
func (b *FamilyBinding) Matches(entityMask ComponentMask) bool {
	return entityMask.Contains(b.mask)
}

// Len returns the number of member rows.
func (b *FamilyBinding) Len() int {
	return len(b.entities) - b.removed
}

// Contains reports whether the entity is currently a member.
func (b *FamilyBinding) Contains(id EntityId) bool {
	_, ok := b.rows.Get(id)
	return ok
}

// Entities returns a copy of the member entity ids in iteration order.
func (b *FamilyBinding) Entities() []EntityId {
	out := make([]EntityId, 0, b.Len())
	for _, id := range b.entities {
		if id != 0 {
			out = append(out, id)
		}
	}
	return out
}

// Iterating reports whether an iteration over the binding is in progress.
func (b *FamilyBinding) Iterating() bool {
	return b.iterating.Load() > 0
}

// Refs returns how many family declarations share this binding.
func (b *FamilyBinding) Refs() int {
	return b.refs
}

func (b *FamilyBinding) stride() int {
	return len(b.components)
}

// row returns the cached component pointers of a row.
func (b *FamilyBinding) row(index int) []unsafe.Pointer {
	s := b.stride()
	return b.ptrs[index*s : (index+1)*s : (index+1)*s]
}

// reconcile adds or removes an entity. Additions append to the end; removals leave a tombstone
// that compact squeezes out, so untouched rows keep their relative order.
func (b *FamilyBinding) reconcile(w *World, e *entityRecord, added bool) {
	if added {
		assert.That(!b.Contains(e.id), "entity %d already in family %s", e.id, b.mask)
		b.rows.Put(e.id, len(b.entities))
		b.entities = append(b.entities, e.id)
		for _, cid := range b.components {
			b.ptrs = append(b.ptrs, w.componentPointer(e, cid))
		}
		return
	}

	row, ok := b.rows.Get(e.id)
	assert.That(ok, "entity %d not in family %s", e.id, b.mask)
	b.rows.Del(e.id)
	b.entities[row] = 0
	clear(b.row(row))
	b.removed++
}

// refresh re-resolves the cached pointers of a member whose component slots changed.
func (b *FamilyBinding) refresh(w *World, e *entityRecord) {
	row, ok := b.rows.Get(e.id)
	assert.That(ok, "entity %d not in family %s", e.id, b.mask)
	cached := b.row(row)
	for i, cid := range b.components {
		cached[i] = w.componentPointer(e, cid)
	}
}

// compact removes tombstones left by reconcile while preserving the order of remaining rows.
func (b *FamilyBinding) compact() {
	if b.removed == 0 {
		return
	}

	s := b.stride()
	write := 0
	for read, id := range b.entities {
		if id == 0 {
			continue
		}
		if write != read {
			b.entities[write] = id
			copy(b.ptrs[write*s:(write+1)*s], b.ptrs[read*s:(read+1)*s])
			b.rows.Put(id, write)
		}
		write++
	}

	clear(b.entities[write:])
	clear(b.ptrs[write*s:])
	b.entities = b.entities[:write]
	b.ptrs = b.ptrs[:write*s]
	b.removed = 0
}

// column returns the position of a component id within the binding's rows.
func (b *FamilyBinding) column(id ComponentID) int {
	idx, ok := slices.BinarySearch(b.components, id)
	if !ok {
		return -1
	}
	return idx
}
