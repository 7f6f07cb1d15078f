package ecs_test

import (
	"fmt"

	"github.com/plus3/famecs/ecs"
	"github.com/rs/zerolog"
)

type GameConfig struct {
	MaxPlayers int
	Difficulty string
}

// ExampleNewSingleton demonstrates creating and accessing singletons.
// Singletons are world-wide values not associated with any entity, useful for
// game state or configuration.
func ExampleNewSingleton() {
	world := ecs.NewWorld(ecs.NewComponentRegistry())

	config := ecs.NewSingleton(world, GameConfig{
		MaxPlayers: 4,
		Difficulty: "Normal",
	})

	fmt.Printf("Config: %d players, %s difficulty\n", config.Get().MaxPlayers, config.Get().Difficulty)

	config.Get().Difficulty = "Hard"

	sameConfig := ecs.NewSingleton[GameConfig](world)
	fmt.Printf("Same config: %s difficulty\n", sameConfig.Get().Difficulty)

	// Output:
	// Config: 4 players, Normal difficulty
	// Same config: Hard difficulty
}

type Greeter interface {
	Greet(name string) string
}

type englishGreeter struct{}

func (englishGreeter) Greet(name string) string { return "hello " + name }

type GreetingSystem struct {
	ecs.SystemBase
}

func (s *GreetingSystem) OnAddedToWorld(w *ecs.World) {
	fmt.Println(ecs.MustService[Greeter](s.API()).Greet(s.Name()))
}

// ExampleProvideService shows platform services reaching systems through the
// world's API bundle.
func ExampleProvideService() {
	api := ecs.NewAPI(zerolog.Nop(), nil)
	ecs.ProvideService[Greeter](api, englishGreeter{})

	world := ecs.NewWorld(ecs.NewComponentRegistry(), ecs.WithAPI(api))
	world.MustAddSystem(&GreetingSystem{}, "greeter")

	// Output:
	// hello greeter
}
