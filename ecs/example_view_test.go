package ecs_test

import (
	"fmt"

	"github.com/plus3/famecs/ecs"
)

// ExampleFamily shows a standalone family. Fields are pointers into component
// storage, so writes through a view update the entity directly.
func ExampleFamily() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Transform](registry)
	ecs.RegisterComponent[Speed](registry)
	world := ecs.NewWorld(registry)

	world.Spawn(Transform{X: 1, Y: 1}, Speed{DX: 1})
	world.Spawn(Transform{X: 2, Y: 2})
	world.Reconcile()

	moving := ecs.MustFamily[struct {
		ID ecs.EntityId
		*Transform
		*Speed
	}](world)
	defer moving.Close()

	for item := range moving.Values() {
		item.Transform.X += item.Speed.DX
		fmt.Printf("entity %d at (%.0f, %.0f)\n", item.ID.Index(), item.Transform.X, item.Transform.Y)
	}
	fmt.Println("members:", moving.Len())

	// Output:
	// entity 0 at (2, 1)
	// members: 1
}

// ExampleInvokeIndividual applies a function to every member of a family with a
// shared argument.
func ExampleInvokeIndividual() {
	registry := ecs.NewComponentRegistry()
	ecs.RegisterComponent[Label](registry)
	world := ecs.NewWorld(registry)

	world.Spawn(Label{Text: "a"})
	world.Spawn(Label{Text: "b"})
	world.Reconcile()

	labels := ecs.MustFamily[struct{ *Label }](world)
	defer labels.Close()

	ecs.InvokeIndividual("label:", labels, func(prefix string, item struct{ *Label }) {
		fmt.Println(prefix, item.Label.Text)
	})

	// Output:
	// label: a
	// label: b
}
