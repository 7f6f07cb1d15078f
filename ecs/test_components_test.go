package ecs_test

import "github.com/plus3/famecs/ecs"

// Common test component types
type Position struct {
	X, Y float32
}

type Velocity struct {
	DX, DY float32
}

type Name struct {
	Value string
}

type Health struct {
	Current int
	Max     int
}

type PlayerController struct{}

type AI struct {
	State int
}

// Custom primitive types for testing non-struct components
type Score int32
type Tag string

type Inventory struct {
	Items []string
}

// Renamed reports a custom component name.
type Renamed struct {
	Value int
}

func (Renamed) Name() string { return "renamed" }

// Unregistered is never added to the test registry.
type Unregistered struct{}

func newTestRegistry() *ecs.ComponentRegistry {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Name](registry)
	ecs.RegisterComponent[Health](registry)
	ecs.RegisterComponent[PlayerController](registry)
	ecs.RegisterComponent[AI](registry)
	ecs.RegisterComponent[Score](registry)
	ecs.RegisterComponent[Tag](registry)
	ecs.RegisterComponent[Inventory](registry)
	ecs.RegisterComponent[Renamed](registry)
	return registry
}

func newTestWorld(opts ...ecs.WorldOption) *ecs.World {
	return ecs.NewWorld(newTestRegistry(), opts...)
}

// spawn creates an entity with components and reconciles so families see it.
func spawn(w *ecs.World, components ...any) ecs.EntityId {
	id := w.Spawn(components...)
	w.Reconcile()
	return id
}

// MovementSystem integrates velocity into position.
type MovementSystem struct {
	ecs.SystemBase
	Movers ecs.Family[struct {
		*Position
		*Velocity `ecs:"read"`
	}]
	Updates int
}

func (s *MovementSystem) UpdateBase(dt float64) {
	s.Updates++
	for _, m := range s.Movers.Iter() {
		m.Position.X += m.Velocity.DX * float32(dt)
		m.Position.Y += m.Velocity.DY * float32(dt)
	}
}

// PositionSystem records which entities own a position each update.
type PositionSystem struct {
	ecs.SystemBase
	Positions ecs.Family[struct {
		ecs.EntityId
		*Position
	}]
	Seen [][]ecs.EntityId
}

func (s *PositionSystem) UpdateBase(dt float64) {
	var ids []ecs.EntityId
	for id := range s.Positions.Iter() {
		ids = append(ids, id)
	}
	s.Seen = append(s.Seen, ids)
}

// recorder appends its name to a shared log on update and render.
type recorder struct {
	ecs.SystemBase
	label string
	log   *[]string
}

func (r *recorder) UpdateBase(dt float64) {
	*r.log = append(*r.log, "update:"+r.label)
}

func (r *recorder) RenderBase(p ecs.Painter) {
	*r.log = append(*r.log, "render:"+r.label)
}

// funcSystem runs arbitrary test code during update.
type funcSystem struct {
	ecs.SystemBase
	fn func(s *funcSystem, dt float64)
}

func (s *funcSystem) UpdateBase(dt float64) {
	if s.fn != nil {
		s.fn(s, dt)
	}
}
