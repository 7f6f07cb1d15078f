package ecs

import (
	"reflect"
	"unsafe"
)

// componentPool is a type-erased store of one component type. Slots are addressed by index and
// their memory never moves while the slot is in use.
type componentPool interface {
	appendValue(item any) int
	release(index int)
	get(index int) any
	pointer(index int) unsafe.Pointer
	setValue(index int, item any) bool
	live() int
}

const (
	poolBlockSize = 64
)

type poolBlock[T any] struct {
	items  [poolBlockSize]T
	filled [poolBlockSize]bool
}

// typedPool stores components of type T in fixed-size blocks held by pointer, so growing the pool
// never relocates existing components.
type typedPool[T any] struct {
	blocks    []*poolBlock[T]
	freeSlots []int
	nextIndex int
	count     int
}

// put stores item and returns its slot index.
func (p *typedPool[T]) put(item T) int {
	var index int
	if len(p.freeSlots) > 0 {
		index = p.freeSlots[len(p.freeSlots)-1]
		p.freeSlots = p.freeSlots[:len(p.freeSlots)-1]
	} else {
		index = p.nextIndex
		p.nextIndex++
		if index/poolBlockSize >= len(p.blocks) {
			p.blocks = append(p.blocks, &poolBlock[T]{})
		}
	}

	block := p.blocks[index/poolBlockSize]
	block.items[index%poolBlockSize] = item
	block.filled[index%poolBlockSize] = true
	p.count++
	return index
}

// at returns a pointer to the component at index, or nil if the slot is empty.
func (p *typedPool[T]) at(index int) *T {
	if index < 0 || index >= p.nextIndex {
		return nil
	}
	block := p.blocks[index/poolBlockSize]
	if !block.filled[index%poolBlockSize] {
		return nil
	}
	return &block.items[index%poolBlockSize]
}

func (p *typedPool[T]) appendValue(item any) int {
	switch v := item.(type) {
	case T:
		return p.put(v)
	case *T:
		return p.put(*v)
	default:
		return -1
	}
}

// release zeroes the slot and returns it to the free list.
func (p *typedPool[T]) release(index int) {
	if index < 0 || index >= p.nextIndex {
		return
	}
	block := p.blocks[index/poolBlockSize]
	slot := index % poolBlockSize
	if !block.filled[slot] {
		return
	}

	var zero T
	block.items[slot] = zero
	block.filled[slot] = false
	p.freeSlots = append(p.freeSlots, index)
	p.count--
}

func (p *typedPool[T]) get(index int) any {
	ptr := p.at(index)
	if ptr == nil {
		return nil
	}
	return ptr
}

func (p *typedPool[T]) pointer(index int) unsafe.Pointer {
	return unsafe.Pointer(p.at(index))
}

// setValue overwrites an occupied slot. Returns false on a type mismatch or an empty slot.
func (p *typedPool[T]) setValue(index int, item any) bool {
	ptr := p.at(index)
	if ptr == nil {
		return false
	}
	switch v := item.(type) {
	case T:
		*ptr = v
	case *T:
		*ptr = *v
	default:
		return false
	}
	return true
}

func (p *typedPool[T]) live() int {
	return p.count
}

// valueType returns the component type of a value, dereferencing one level of pointer.
func valueType(component any) reflect.Type {
	t := reflect.TypeOf(component)
	if t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t
}
