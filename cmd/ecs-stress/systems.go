package main

import (
	"math/rand/v2"

	"github.com/plus3/famecs/ecs"
)

type Position struct {
	X, Y float64
}

type Velocity struct {
	DX, DY float64
}

type Lifetime struct {
	Remaining float64
}

type Energy struct {
	Value float64
}

func registerComponents(registry *ecs.ComponentRegistry) {
	ecs.RegisterComponent[Position](registry)
	ecs.RegisterComponent[Velocity](registry)
	ecs.RegisterComponent[Lifetime](registry)
	ecs.RegisterComponent[Energy](registry)
}

// MovementSystem integrates velocities.
type MovementSystem struct {
	ecs.SystemBase
	Movers ecs.Family[struct {
		*Position
		*Velocity `ecs:"read"`
	}]
}

func (s *MovementSystem) UpdateBase(dt float64) {
	for m := range s.Movers.Values() {
		m.Position.X += m.Velocity.DX * dt
		m.Position.Y += m.Velocity.DY * dt
	}
}

// DecaySystem drains lifetimes and energy.
type DecaySystem struct {
	ecs.SystemBase
	Mortal  ecs.Family[struct{ *Lifetime }]
	Charged ecs.Family[struct{ *Energy }]
}

func (s *DecaySystem) UpdateBase(dt float64) {
	for m := range s.Mortal.Values() {
		m.Lifetime.Remaining -= dt
	}
	for c := range s.Charged.Values() {
		c.Energy.Value *= 0.99
	}
}

// ReaperSystem deletes entities whose lifetime ran out.
type ReaperSystem struct {
	ecs.SystemBase
	Mortal ecs.Family[struct {
		ID ecs.EntityId
		*Lifetime `ecs:"read"`
	}]
	Reaped int
}

func (s *ReaperSystem) UpdateBase(dt float64) {
	for id, m := range s.Mortal.Iter() {
		if m.Lifetime.Remaining <= 0 {
			s.Commands().Delete(id)
			s.Reaped++
		}
	}
}

// SpawnerSystem keeps the population near its target by spawning replacements.
type SpawnerSystem struct {
	ecs.SystemBase
	Mortal  ecs.Family[struct{ *Lifetime `ecs:"read"` }]
	Target  int
	Spawned int
	rng     *rand.Rand
}

func (s *SpawnerSystem) OnAddedToWorld(w *ecs.World) {
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(1, 2))
	}
}

func (s *SpawnerSystem) UpdateBase(dt float64) {
	for missing := s.Target - s.Mortal.Len(); missing > 0; missing-- {
		s.Commands().Spawn(randomComponents(s.rng, 4)...)
		s.Spawned++
	}
}

// EnergyTransferSystem pushes energy along velocity.
type EnergyTransferSystem struct {
	ecs.SystemBase
	Carriers ecs.Family[struct {
		*Energy
		*Velocity `ecs:"read"`
	}]
}

func (s *EnergyTransferSystem) UpdateBase(dt float64) {
	for c := range s.Carriers.Values() {
		c.Energy.Value += (c.Velocity.DX*c.Velocity.DX + c.Velocity.DY*c.Velocity.DY) * dt
	}
}

func newSystemFactory(target int, seed uint64) *ecs.SystemFactory {
	factory := ecs.NewSystemFactory()
	factory.MustRegister("movement", func() ecs.System { return &MovementSystem{} })
	factory.MustRegister("decay", func() ecs.System { return &DecaySystem{} })
	factory.MustRegister("reaper", func() ecs.System { return &ReaperSystem{} })
	factory.MustRegister("energy", func() ecs.System { return &EnergyTransferSystem{} })
	factory.MustRegister("spawner", func() ecs.System {
		return &SpawnerSystem{Target: target, rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
	})
	return factory
}

// randomComponents returns a Lifetime plus up to maxExtra other components.
func randomComponents(rng *rand.Rand, maxExtra int) []any {
	components := []any{Lifetime{Remaining: 0.05 + rng.Float64()*0.5}}
	for range rng.IntN(maxExtra + 1) {
		switch rng.IntN(3) {
		case 0:
			components = append(components, Position{X: rng.Float64() * 100, Y: rng.Float64() * 100})
		case 1:
			components = append(components, Velocity{DX: rng.NormFloat64(), DY: rng.NormFloat64()})
		default:
			components = append(components, Energy{Value: rng.Float64()})
		}
	}
	return dedupe(components)
}

// dedupe keeps the first component of each type.
func dedupe(components []any) []any {
	seen := make(map[string]bool, len(components))
	out := components[:0]
	for _, c := range components {
		var key string
		switch c.(type) {
		case Position:
			key = "p"
		case Velocity:
			key = "v"
		case Energy:
			key = "e"
		default:
			key = "l"
		}
		if !seen[key] {
			seen[key] = true
			out = append(out, c)
		}
	}
	return out
}
