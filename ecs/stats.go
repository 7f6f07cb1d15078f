package ecs

import (
	"math"
	"time"
)

// WorldStats provides a snapshot of world state and system execution.
type WorldStats struct {
	Frame          uint64
	EntityCount    int
	PendingChanges int
	Families       []FamilyStats
	Systems        []SystemStats
}

// FamilyStats describes one shared family binding.
type FamilyStats struct {
	Mask       ComponentMask
	Components []string
	Size       int
	Refs       int
}

// SystemStats provides execution statistics for a single system. NsTaken covers the current frame
// only; Update and Render accumulate over the system's lifetime.
type SystemStats struct {
	Name    string
	NsTaken time.Duration
	Update  TimingStats
	Render  TimingStats
}

// TimingStats aggregates the durations of one hook.
type TimingStats struct {
	ExecutionCount int64
	MinDuration    time.Duration
	MaxDuration    time.Duration
	AvgDuration    time.Duration
	LastDuration   time.Duration
	TotalDuration  time.Duration
}

type timingStats struct {
	executionCount int64
	minDuration    time.Duration
	maxDuration    time.Duration
	totalDuration  time.Duration
	lastDuration   time.Duration
}

func newTimingStats() timingStats {
	return timingStats{minDuration: time.Duration(math.MaxInt64)}
}

func (s *timingStats) record(d time.Duration) {
	s.executionCount++
	s.lastDuration = d
	s.totalDuration += d
	if d < s.minDuration {
		s.minDuration = d
	}
	if d > s.maxDuration {
		s.maxDuration = d
	}
}

func (s *timingStats) snapshot() TimingStats {
	if s.executionCount == 0 {
		return TimingStats{}
	}
	return TimingStats{
		ExecutionCount: s.executionCount,
		MinDuration:    s.minDuration,
		MaxDuration:    s.maxDuration,
		AvgDuration:    s.totalDuration / time.Duration(s.executionCount),
		LastDuration:   s.lastDuration,
		TotalDuration:  s.totalDuration,
	}
}

// Stats returns statistics about the world and its systems.
func (w *World) Stats() WorldStats {
	stats := WorldStats{
		Frame:          w.frame,
		EntityCount:    w.liveCount,
		PendingChanges: len(w.pending),
		Families:       make([]FamilyStats, 0, len(w.bindingOrder)),
		Systems:        make([]SystemStats, 0, len(w.systems)),
	}

	for _, b := range w.bindingOrder {
		names := make([]string, len(b.components))
		for i, id := range b.components {
			names[i] = w.registry.Name(id)
		}
		stats.Families = append(stats.Families, FamilyStats{
			Mask:       b.mask,
			Components: names,
			Size:       b.Len(),
			Refs:       b.refs,
		})
	}

	for _, sys := range w.systems {
		stats.Systems = append(stats.Systems, sys.systemBase().Stats())
	}
	return stats
}
