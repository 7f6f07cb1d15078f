package ecs

import "reflect"

// Commands provides a buffer for deferred world operations. Every system owns one, and the world
// has its own; all of them are flushed when the world reconciles, system buffers first in
// registration order. During a parallel update pass this is the only way for a system to change
// the world.
type Commands struct {
	spawns  []spawnCommand
	deletes []EntityId
	adds    []addComponentCommand
	removes []removeComponentCommand
	defers  []deferCommand
}

func newCommands() *Commands {
	return &Commands{}
}

type deferCommand struct {
	fn func()
}

type spawnCommand struct {
	components []any
	then       func(EntityId)
}

type addComponentCommand struct {
	entity    EntityId
	component any
}

type removeComponentCommand struct {
	entity   EntityId
	compType reflect.Type
}

// Defer queues a function to run after all other queued operations of the buffer.
func (c *Commands) Defer(fn func()) {
	c.defers = append(c.defers, deferCommand{fn: fn})
}

// Spawn queues an entity spawn operation with the given components.
func (c *Commands) Spawn(components ...any) {
	c.spawns = append(c.spawns, spawnCommand{components: components})
}

// SpawnThen queues a spawn and calls fn with the new entity id once it exists.
func (c *Commands) SpawnThen(fn func(EntityId), components ...any) {
	c.spawns = append(c.spawns, spawnCommand{components: components, then: fn})
}

// Delete queues an entity deletion operation.
func (c *Commands) Delete(entity EntityId) {
	c.deletes = append(c.deletes, entity)
}

// AddComponent queues a component addition. A component of the same type already on the entity is
// overwritten.
func (c *Commands) AddComponent(entity EntityId, component any) {
	c.adds = append(c.adds, addComponentCommand{
		entity:    entity,
		component: component,
	})
}

// RemoveComponent queues a component removal operation.
func (c *Commands) RemoveComponent(entity EntityId, compType reflect.Type) {
	c.removes = append(c.removes, removeComponentCommand{
		entity:   entity,
		compType: compType,
	})
}

// QueueRemove queues the removal of the component of type T.
func QueueRemove[T any](c *Commands, entity EntityId) {
	c.RemoveComponent(entity, reflect.TypeFor[T]())
}

// Len returns the number of queued operations.
func (c *Commands) Len() int {
	return len(c.spawns) + len(c.deletes) + len(c.adds) + len(c.removes) + len(c.defers)
}

// Flush applies all queued operations to the world and resets the buffer. Deletes run first, then
// removals, additions, spawns and finally deferred functions. Operations on entities that are no
// longer alive and removals of absent components are skipped.
func (c *Commands) Flush(w *World) {
	for _, cmd := range c.deletes {
		w.DestroyEntity(cmd)
	}

	for _, cmd := range c.removes {
		if !w.Alive(cmd.entity) {
			continue
		}
		cid, ok := w.registry.ID(cmd.compType)
		if !ok || !w.record(cmd.entity).mask.Has(cid) {
			continue
		}
		w.RemoveComponentType(cmd.entity, cmd.compType)
	}

	for _, cmd := range c.adds {
		if w.Alive(cmd.entity) {
			w.SetComponentValue(cmd.entity, cmd.component)
		}
	}

	for _, cmd := range c.spawns {
		id := w.Spawn(cmd.components...)
		if cmd.then != nil {
			cmd.then(id)
		}
	}

	for _, df := range c.defers {
		df.fn()
	}

	clear(c.spawns)
	clear(c.adds)
	clear(c.defers)
	c.spawns = c.spawns[:0]
	c.deletes = c.deletes[:0]
	c.adds = c.adds[:0]
	c.removes = c.removes[:0]
	c.defers = c.defers[:0]
}
