package ecs

import (
	"slices"

	"github.com/plus3/famecs/ecs/internal/assert"
	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// ConflictGraph orders systems for a parallel update pass. There is an edge from system A to a
// later-registered system B when one of them writes a component the other reads or writes. Systems
// in the same tier share no edge and may run concurrently; tiers run in sequence.
//
// A system without families may touch anything, so it conflicts with every other system.
type ConflictGraph struct {
	names []string
	edges map[int][]int
	tiers [][]int
}

type systemAccess struct {
	reads  ComponentMask
	writes ComponentMask
	global bool
}

func accessOf(base *SystemBase) systemAccess {
	var access systemAccess
	if len(base.types) == 0 {
		access.global = true
		return access
	}
	for _, t := range base.types {
		for _, id := range t.Components {
			access.reads.Set(id)
		}
		for _, id := range t.Writes.IDs() {
			access.writes.Set(id)
		}
	}
	return access
}

func (a systemAccess) conflicts(b systemAccess) bool {
	if a.global || b.global {
		return true
	}
	return a.writes.Intersects(b.reads) || b.writes.Intersects(a.reads)
}

// buildConflictGraph creates the graph for systems in registration order.
func buildConflictGraph(systems []System) *ConflictGraph {
	g := &ConflictGraph{
		names: make([]string, len(systems)),
		edges: make(map[int][]int, len(systems)),
	}

	access := make([]systemAccess, len(systems))
	for i, sys := range systems {
		base := sys.systemBase()
		g.names[i] = base.name
		access[i] = accessOf(base)
	}

	level := make([]int, len(systems))
	for b := range systems {
		for a := range b {
			if access[a].conflicts(access[b]) {
				g.edges[a] = append(g.edges[a], b)
				level[b] = max(level[b], level[a]+1)
			}
		}
	}

	for i, l := range level {
		for len(g.tiers) <= l {
			g.tiers = append(g.tiers, nil)
		}
		g.tiers[l] = append(g.tiers[l], i)
	}
	return g
}

// Tiers returns the system names grouped by tier.
func (g *ConflictGraph) Tiers() [][]string {
	out := make([][]string, len(g.tiers))
	for i, tier := range g.tiers {
		for _, idx := range tier {
			out[i] = append(out[i], g.names[idx])
		}
	}
	return out
}

// Conflicts reports whether the two named systems may not run concurrently.
func (g *ConflictGraph) Conflicts(a, b string) bool {
	ia, ib := slices.Index(g.names, a), slices.Index(g.names, b)
	if ia < 0 || ib < 0 {
		return false
	}
	if ia > ib {
		ia, ib = ib, ia
	}
	return slices.Contains(g.edges[ia], ib)
}

// ConflictGraph returns the graph used by parallel updates, building it if needed.
func (w *World) ConflictGraph() *ConflictGraph {
	if w.conflicts == nil {
		w.conflicts = buildConflictGraph(w.systems)
	}
	return w.conflicts
}

// updateParallel runs the update hooks tier by tier. Systems inside a tier run on their own
// goroutines. A panicking system is reported once the whole tier has finished.
func (w *World) updateParallel(dt float64) {
	graph := w.ConflictGraph()
	systems := w.systems

	assert.That(w.phase == phaseIdle, "cannot start %s during %s", phaseParallel, w.phase)

	var failure error
	func() {
		w.phase = phaseParallel
		defer func() { w.phase = phaseIdle }()

		for _, tier := range graph.tiers {
			if len(tier) == 1 {
				systems[tier[0]].systemBase().doUpdate(dt)
				continue
			}

			var g errgroup.Group
			for _, idx := range tier {
				base := systems[idx].systemBase()
				g.Go(func() (err error) {
					defer func() {
						if r := recover(); r != nil {
							err = recoveredError(r, base.name)
						}
					}()
					base.doUpdate(dt)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				failure = err
				return
			}
		}
	}()

	if failure != nil {
		panic(failure)
	}
}

func recoveredError(r any, system string) error {
	if err, ok := r.(error); ok {
		return eris.Wrapf(err, "system %s panicked", system)
	}
	return eris.Errorf("system %s panicked: %v", system, r)
}
