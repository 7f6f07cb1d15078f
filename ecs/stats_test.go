package ecs

import (
	"testing"
	"time"
)

func TestTimingStats(t *testing.T) {
	stats := newTimingStats()

	if snap := stats.snapshot(); snap != (TimingStats{}) {
		t.Errorf("expected empty snapshot before any execution, got %+v", snap)
	}

	stats.record(3 * time.Millisecond)
	stats.record(1 * time.Millisecond)
	stats.record(5 * time.Millisecond)

	snap := stats.snapshot()
	if snap.ExecutionCount != 3 {
		t.Errorf("expected 3 executions, got %d", snap.ExecutionCount)
	}
	if snap.MinDuration != time.Millisecond {
		t.Errorf("expected min 1ms, got %v", snap.MinDuration)
	}
	if snap.MaxDuration != 5*time.Millisecond {
		t.Errorf("expected max 5ms, got %v", snap.MaxDuration)
	}
	if snap.AvgDuration != 3*time.Millisecond {
		t.Errorf("expected avg 3ms, got %v", snap.AvgDuration)
	}
	if snap.LastDuration != 5*time.Millisecond {
		t.Errorf("expected last 5ms, got %v", snap.LastDuration)
	}
	if snap.TotalDuration != 9*time.Millisecond {
		t.Errorf("expected total 9ms, got %v", snap.TotalDuration)
	}
}

func TestPoolPointersAreStable(t *testing.T) {
	pool := &typedPool[int]{}

	first := pool.at(pool.put(1))
	for i := 0; i < poolBlockSize*4; i++ {
		pool.put(i)
	}
	if *first != 1 {
		t.Errorf("expected pointer to survive pool growth, got %d", *first)
	}
	if pool.live() != poolBlockSize*4+1 {
		t.Errorf("expected %d live slots, got %d", poolBlockSize*4+1, pool.live())
	}
}

func TestPoolReusesReleasedSlots(t *testing.T) {
	pool := &typedPool[string]{}
	a := pool.put("a")
	b := pool.put("b")

	pool.release(a)
	if pool.at(a) != nil {
		t.Errorf("expected released slot to be empty")
	}
	pool.release(a)
	if pool.live() != 1 {
		t.Errorf("expected double release to be ignored, got %d live", pool.live())
	}

	c := pool.put("c")
	if c != a {
		t.Errorf("expected slot %d to be reused, got %d", a, c)
	}
	if *pool.at(b) != "b" || *pool.at(c) != "c" {
		t.Errorf("unexpected pool contents")
	}

	if pool.appendValue(42) != -1 {
		t.Errorf("expected type mismatch to be rejected")
	}
	if !pool.setValue(b, "bb") || *pool.at(b) != "bb" {
		t.Errorf("expected setValue to overwrite slot")
	}
}

func TestWorldStatsTracksPendingChanges(t *testing.T) {
	registry := NewComponentRegistry()
	RegisterComponent[int](registry)
	w := NewWorld(registry)

	id := w.CreateEntity()
	AddComponent(w, id, 5)
	if pending := w.Stats().PendingChanges; pending != 2 {
		t.Errorf("expected 2 pending changes, got %d", pending)
	}
	if len(w.dirty) != 1 {
		t.Errorf("expected the entity to be queued once, got %d", len(w.dirty))
	}

	w.Reconcile()
	if pending := w.Stats().PendingChanges; pending != 0 {
		t.Errorf("expected pending log to be drained, got %d", pending)
	}
	if w.entities[id.Index()].dirty {
		t.Errorf("expected dirty flag to be cleared")
	}
}
