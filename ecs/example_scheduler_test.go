package ecs_test

import (
	"context"
	"fmt"
	"time"

	"github.com/plus3/famecs/ecs"
)

type Transform struct {
	X, Y float32
}

type Speed struct {
	DX, DY float32
}

type Hitpoints struct {
	Current, Max int
}

type PhysicsSystem struct {
	ecs.SystemBase
	Entities ecs.Family[struct {
		*Transform
		*Speed `ecs:"read"`
	}]
}

func (s *PhysicsSystem) UpdateBase(dt float64) {
	for entity := range s.Entities.Values() {
		entity.Transform.X += entity.Speed.DX * float32(dt)
		entity.Transform.Y += entity.Speed.DY * float32(dt)
	}
}

type HealingSystem struct {
	ecs.SystemBase
	Entities  ecs.Family[struct{ *Hitpoints }]
	RegenRate float32
}

func (s *HealingSystem) UpdateBase(dt float64) {
	for entity := range s.Entities.Values() {
		if entity.Hitpoints.Current < entity.Hitpoints.Max {
			entity.Hitpoints.Current += int(s.RegenRate * float32(dt))
			if entity.Hitpoints.Current > entity.Hitpoints.Max {
				entity.Hitpoints.Current = entity.Hitpoints.Max
			}
		}
	}
}

// ExampleWorld demonstrates building a game loop with multiple systems.
// The World binds Family fields when a system is added, runs systems in
// registration order and reconciles structural changes around every update.
func ExampleWorld() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Transform](registry)
	ecs.RegisterComponent[Speed](registry)
	ecs.RegisterComponent[Hitpoints](registry)
	world := ecs.NewWorld(registry)

	world.Spawn(
		Transform{X: 0, Y: 0},
		Speed{DX: 10, DY: 5},
		Hitpoints{Current: 80, Max: 100},
	)
	world.Spawn(
		Transform{X: 100, Y: 100},
		Speed{DX: -5, DY: -5},
		Hitpoints{Current: 50, Max: 100},
	)

	world.MustAddSystem(&PhysicsSystem{})
	world.MustAddSystem(&HealingSystem{RegenRate: 10})

	world.Update(1.0)

	view := ecs.MustFamily[struct {
		*Transform
		*Hitpoints
	}](world)
	defer view.Close()

	fmt.Println("After one frame:")
	for item := range view.Values() {
		fmt.Printf("Position: (%.0f, %.0f), Health: %d/%d\n",
			item.Transform.X, item.Transform.Y,
			item.Hitpoints.Current, item.Hitpoints.Max)
	}

	// Output:
	// After one frame:
	// Position: (10, 5), Health: 90/100
	// Position: (95, 95), Health: 60/100
}

// ExampleWorld_Run demonstrates running a continuous game loop.
// Run blocks and steps the world at a fixed interval until the context is
// cancelled.
func ExampleWorld_Run() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Transform](registry)
	ecs.RegisterComponent[Speed](registry)
	world := ecs.NewWorld(registry)

	world.Spawn(Transform{X: 0, Y: 0}, Speed{DX: 1, DY: 1})
	world.MustAddSystem(&PhysicsSystem{})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	world.Run(ctx, 16*time.Millisecond, nil)

	fmt.Println("World stopped")
	// Output:
	// World stopped
}

type GameTime struct {
	TotalFrames int
	TotalTime   float64
}

type TimeTracker struct {
	ecs.SystemBase
	GameTime ecs.Singleton[GameTime]
}

func (s *TimeTracker) UpdateBase(dt float64) {
	gameTime := s.GameTime.Get()
	gameTime.TotalFrames++
	gameTime.TotalTime += dt
}

type ScoreTracker struct {
	Points int
}

type ScoreSystem struct {
	ecs.SystemBase
	Entities ecs.Family[struct{ *Transform }]
	Score    ecs.Singleton[ScoreTracker]
}

func (s *ScoreSystem) UpdateBase(dt float64) {
	s.Score.Get().Points += s.Entities.Len() * 10
}

// ExampleWorld_withSingletons demonstrates using singletons in systems.
// Singleton fields are resolved by AddSystem, just like Family fields.
func ExampleWorld_withSingletons() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Transform](registry)
	world := ecs.NewWorld(registry)

	world.Spawn(Transform{X: 0, Y: 0})
	world.Spawn(Transform{X: 10, Y: 10})
	world.Spawn(Transform{X: 20, Y: 20})

	world.MustAddSystem(&TimeTracker{})
	world.MustAddSystem(&ScoreSystem{})

	world.Update(0.016)
	world.Update(0.016)
	world.Update(0.016)

	gameTime := ecs.NewSingleton[GameTime](world).Get()
	fmt.Printf("Frames: %d, Time: %.3f\n", gameTime.TotalFrames, gameTime.TotalTime)

	score := ecs.NewSingleton[ScoreTracker](world).Get()
	fmt.Printf("Score: %d points\n", score.Points)

	// Output:
	// Frames: 3, Time: 0.048
	// Score: 90 points
}

type Label struct {
	Text string
}

type LabelPrinter struct {
	ecs.SystemBase
	Labels ecs.Family[struct {
		*Label `ecs:"read"`
	}]
}

func (s *LabelPrinter) RenderBase(painter ecs.Painter) {
	prefix := painter.(string)
	for item := range s.Labels.Values() {
		fmt.Println(prefix + item.Label.Text)
	}
}

// ExampleWorld_Step shows the update and render phases of one frame. The painter is
// passed to every Renderer unchanged.
func ExampleWorld_Step() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Label](registry)
	world := ecs.NewWorld(registry)

	world.MustAddSystem(&LabelPrinter{})
	world.Spawn(Label{Text: "hello"})
	world.Spawn(Label{Text: "world"})

	world.Step(0.016, "> ")
	fmt.Println("frames:", world.Frame())

	// Output:
	// > hello
	// > world
	// frames: 1
}
