package ecs_test

import (
	"reflect"
	"testing"

	"github.com/plus3/famecs/ecs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testSpawnSystem struct {
	ecs.SystemBase
}

func (s *testSpawnSystem) UpdateBase(dt float64) {
	s.Commands().Spawn(Position{X: 1, Y: 2}, Velocity{DX: 0.5, DY: 0.5})
	s.Commands().Spawn(Position{X: 3, Y: 4})
}

type testMixedSystem struct {
	ecs.SystemBase
	entity ecs.EntityId
}

func (s *testMixedSystem) UpdateBase(dt float64) {
	s.Commands().Spawn(Position{X: 10, Y: 20})
	s.Commands().AddComponent(s.entity, Velocity{DX: 1, DY: 1})
	s.Commands().Delete(s.entity)
	s.Commands().Spawn(Health{Current: 100, Max: 100})
}

func TestCommandsSpawn(t *testing.T) {
	w := newTestWorld()
	w.MustAddSystem(&testSpawnSystem{})
	positions := ecs.MustFamily[struct{ *Position }](w)
	defer positions.Close()

	w.Update(0.016)

	assert.Equal(t, 2, w.EntityCount())
	assert.Equal(t, 2, positions.Len(), "spawned entities are reconciled at the end of the update")
}

func TestCommandsDeleteWinsOverAdd(t *testing.T) {
	w := newTestWorld()
	id := w.Spawn(Position{})
	w.MustAddSystem(&testMixedSystem{entity: id})

	w.Update(0.016)

	assert.False(t, w.Alive(id))
	assert.Equal(t, 2, w.EntityCount())
}

func TestCommandsAddReplacesExisting(t *testing.T) {
	w := newTestWorld()
	id := spawn(w, Velocity{DX: 1})

	w.Commands().AddComponent(id, Velocity{DX: 5, DY: 10})
	w.Commands().AddComponent(id, &Health{Current: 7})
	w.Reconcile()

	assert.Equal(t, Velocity{DX: 5, DY: 10}, *ecs.GetComponent[Velocity](w, id))
	assert.Equal(t, 7, ecs.GetComponent[Health](w, id).Current)
}

func TestCommandsRemove(t *testing.T) {
	w := newTestWorld()
	id := spawn(w, Position{}, Velocity{})

	w.Commands().RemoveComponent(id, reflect.TypeFor[Velocity]())
	ecs.QueueRemove[Health](w.Commands(), id)
	assert.Equal(t, 2, w.Commands().Len())
	assert.NotPanics(t, w.Reconcile, "removing an absent component is skipped")

	assert.False(t, ecs.HasComponent[Velocity](w, id))
	assert.True(t, ecs.HasComponent[Position](w, id))
	assert.Equal(t, 0, w.Commands().Len())
}

func TestCommandsSkipDeadEntities(t *testing.T) {
	w := newTestWorld()
	id := spawn(w, Position{})
	w.DestroyEntity(id)

	w.Commands().AddComponent(id, Velocity{})
	w.Commands().RemoveComponent(id, reflect.TypeFor[Position]())
	w.Commands().Delete(id)
	assert.NotPanics(t, w.Reconcile)
	assert.Equal(t, 0, w.EntityCount())
}

func TestCommandsDeferAndSpawnThen(t *testing.T) {
	w := newTestWorld()

	var order []string
	var spawned ecs.EntityId
	w.Commands().Defer(func() { order = append(order, "defer") })
	w.Commands().SpawnThen(func(id ecs.EntityId) {
		spawned = id
		order = append(order, "spawn")
	}, Name{Value: "late"})
	w.Reconcile()

	assert.Equal(t, []string{"spawn", "defer"}, order)
	require.True(t, w.Alive(spawned))
	assert.Equal(t, "late", ecs.GetComponent[Name](w, spawned).Value)
}

func TestCommandsFlushOrderAcrossSystems(t *testing.T) {
	w := newTestWorld()
	var order []string
	for _, name := range []string{"first", "second"} {
		w.MustAddSystem(&funcSystem{fn: func(s *funcSystem, dt float64) {
			s.Commands().Defer(func() { order = append(order, s.Name()) })
		}}, name)
	}
	w.Commands().Defer(func() { order = append(order, "world") })

	w.Update(0)

	assert.Equal(t, []string{"world", "first", "second"}, order,
		"the world buffer filled before the frame flushes at the first reconciliation")
}
