package ecs_test

import (
	"testing"

	"github.com/plus3/famecs/ecs"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFamilyViews(t *testing.T) {
	w := newTestWorld()
	fam := ecs.MustFamily[struct {
		ID     ecs.EntityId
		Pos    *Position
		Health *Health `ecs:"read"`
	}](w)
	defer fam.Close()

	a := spawn(w, Position{X: 1}, Health{Current: 10})
	b := spawn(w, Position{X: 2}, Health{Current: 20}, Name{Value: "b"})
	spawn(w, Position{X: 3})

	assert.Equal(t, 2, fam.Len())

	var ids []ecs.EntityId
	for id, view := range fam.Iter() {
		assert.Equal(t, id, view.ID)
		ids = append(ids, id)
		view.Pos.X *= 10
	}
	assert.Equal(t, []ecs.EntityId{a, b}, ids)
	assert.Equal(t, float32(10), ecs.GetComponent[Position](w, a).X, "views alias component storage")

	view, ok := fam.Get(b)
	require.True(t, ok)
	assert.Equal(t, 20, view.Health.Current)

	total := 0
	fam.Each(func(v struct {
		ID     ecs.EntityId
		Pos    *Position
		Health *Health `ecs:"read"`
	}) {
		total += v.Health.Current
	})
	assert.Equal(t, 30, total)

	typ := fam.Type()
	assert.Len(t, typ.Components, 2)
	posID, _ := w.Registry().IDByName("Position")
	healthID, _ := w.Registry().IDByName("Health")
	assert.True(t, typ.Writes.Has(posID))
	assert.False(t, typ.Writes.Has(healthID))
	assert.True(t, fam.Mask().Equal(ecs.NewComponentMask(posID, healthID)))
}

func TestFamilyIterationStopsEarly(t *testing.T) {
	w := newTestWorld()
	fam := ecs.MustFamily[struct{ *Position }](w)
	defer fam.Close()
	for i := 0; i < 5; i++ {
		w.Spawn(Position{X: float32(i)})
	}
	w.Reconcile()

	count := 0
	for range fam.Values() {
		count++
		if count == 2 {
			break
		}
	}
	assert.Equal(t, 2, count)
	assert.False(t, fam.Binding().Iterating(), "breaking out of the loop ends the iteration")
}

func TestFamilySkipsDestroyedEntities(t *testing.T) {
	w := newTestWorld()
	fam := ecs.MustFamily[struct{ *Position }](w)
	defer fam.Close()

	a := spawn(w, Position{})
	b := spawn(w, Position{})
	w.DestroyEntity(a)

	assert.True(t, fam.Contains(a), "still a member until reconciliation")
	_, ok := fam.Get(a)
	assert.False(t, ok)
	id, _ := fam.At(0)
	assert.Zero(t, id)

	var seen []ecs.EntityId
	for id := range fam.Iter() {
		seen = append(seen, id)
	}
	assert.Equal(t, []ecs.EntityId{b}, seen)
}

func TestFamilyCreatedAfterEntities(t *testing.T) {
	w := newTestWorld()
	a := spawn(w, Position{}, Velocity{})
	spawn(w, Velocity{})

	fam := ecs.MustFamily[struct {
		*Position
		*Velocity
	}](w)
	defer fam.Close()

	assert.Equal(t, []ecs.EntityId{a}, fam.Binding().Entities())
}

func TestNewFamilyErrors(t *testing.T) {
	w := newTestWorld()

	_, err := ecs.NewFamily[int](w)
	assert.True(t, eris.Is(err, ecs.ErrInvalidFamily))

	_, err = ecs.NewFamily[struct {
		A ecs.EntityId
		B ecs.EntityId
		*Position
	}](w)
	assert.True(t, eris.Is(err, ecs.ErrInvalidFamily))

	_, err = ecs.NewFamily[struct{ *Unregistered }](w)
	assert.True(t, eris.Is(err, ecs.ErrComponentNotRegistered))

	assert.Panics(t, func() { ecs.MustFamily[struct{}](w) })
	assert.Empty(t, w.Bindings())
}

type invokeState struct {
	scale float32
	calls int
}

func TestInvokeIndividual(t *testing.T) {
	w := newTestWorld()
	fam := ecs.MustFamily[struct{ *Position }](w)
	defer fam.Close()
	spawn(w, Position{X: 1})
	spawn(w, Position{X: 2})

	ctx := &invokeState{scale: 3}
	ecs.InvokeIndividual(ctx, fam, func(c *invokeState, v struct{ *Position }) {
		c.calls++
		v.Position.X *= c.scale
	})

	assert.Equal(t, 2, ctx.calls)
	var xs []float32
	for v := range fam.Values() {
		xs = append(xs, v.Position.X)
	}
	assert.Equal(t, []float32{3, 6}, xs)
}

type privateFamilySystem struct {
	ecs.SystemBase
	movers ecs.Family[struct {
		*Position
		*Velocity
	}]
}

func TestUnexportedFamilyFieldsAreBound(t *testing.T) {
	w := newTestWorld()
	sys := &privateFamilySystem{}
	require.NoError(t, w.AddSystem(sys))
	require.NotNil(t, sys.movers.Binding())

	id := spawn(w, Position{}, Velocity{})
	assert.True(t, sys.movers.Contains(id))
}
