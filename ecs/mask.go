package ecs

import (
	"encoding/binary"
	"strings"

	"github.com/kelindar/bitmap"
)

// ComponentMask is the set of component types an entity owns, or a family requires.
// Bit i is set iff component type i is present.
type ComponentMask struct {
	bits bitmap.Bitmap
}

// NewComponentMask builds a mask with the given component ids set.
func NewComponentMask(ids ...ComponentID) ComponentMask {
	var m ComponentMask
	for _, id := range ids {
		m.bits.Set(id)
	}
	return m
}

// Set adds a component id to the mask.
func (m *ComponentMask) Set(id ComponentID) {
	m.bits.Set(id)
}

// Clear removes a component id from the mask.
func (m *ComponentMask) Clear(id ComponentID) {
	m.bits.Remove(id)
}

// Has reports whether the component id is in the mask.
func (m ComponentMask) Has(id ComponentID) bool {
	return m.bits.Contains(id)
}

// Contains reports whether every bit of other is also set in m (m & other == other).
func (m ComponentMask) Contains(other ComponentMask) bool {
	for i, word := range other.bits {
		if word == 0 {
			continue
		}
		if i >= len(m.bits) || m.bits[i]&word != word {
			return false
		}
	}
	return true
}

// Intersects reports whether m and other share at least one component.
func (m ComponentMask) Intersects(other ComponentMask) bool {
	n := min(len(m.bits), len(other.bits))
	for i := 0; i < n; i++ {
		if m.bits[i]&other.bits[i] != 0 {
			return true
		}
	}
	return false
}

// Equal reports whether both masks hold exactly the same components.
func (m ComponentMask) Equal(other ComponentMask) bool {
	return m.Contains(other) && other.Contains(m)
}

// Count returns the number of components in the mask.
func (m ComponentMask) Count() int {
	return m.bits.Count()
}

// IsEmpty reports whether no component is set.
func (m ComponentMask) IsEmpty() bool {
	for _, word := range m.bits {
		if word != 0 {
			return false
		}
	}
	return true
}

// IDs returns the component ids in ascending order.
func (m ComponentMask) IDs() []ComponentID {
	ids := make([]ComponentID, 0, m.bits.Count())
	m.bits.Range(func(x uint32) {
		ids = append(ids, x)
	})
	return ids
}

// Clone returns an independent copy of the mask.
func (m ComponentMask) Clone() ComponentMask {
	return ComponentMask{bits: m.bits.Clone(nil)}
}

// Key returns a canonical string for the mask. Masks with the same components always produce the
// same key regardless of how many trailing words their bitmaps carry.
func (m ComponentMask) Key() string {
	last := len(m.bits) - 1
	for last >= 0 && m.bits[last] == 0 {
		last--
	}

	buf := make([]byte, 8*(last+1))
	for i := 0; i <= last; i++ {
		binary.LittleEndian.PutUint64(buf[i*8:], m.bits[i])
	}
	return string(buf)
}

// String formats the mask using component names from the registry, or ids when the registry is nil.
func (m ComponentMask) String() string {
	return m.Format(nil)
}

// Format renders the mask as {A, B, C}.
func (m ComponentMask) Format(registry *ComponentRegistry) string {
	var sb strings.Builder
	sb.WriteByte('{')
	for i, id := range m.IDs() {
		if i > 0 {
			sb.WriteString(", ")
		}
		if registry != nil {
			sb.WriteString(registry.Name(id))
		} else {
			sb.WriteString(componentIDString(id))
		}
	}
	sb.WriteByte('}')
	return sb.String()
}
