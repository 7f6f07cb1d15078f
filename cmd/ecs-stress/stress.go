package main

import (
	"context"
	"math/rand/v2"
	"runtime"
	"time"

	"github.com/plus3/famecs/ecs"
	"github.com/plus3/famecs/telemetry"
	"github.com/rotisserie/eris"
)

type stressOptions struct {
	Duration  time.Duration
	MaxFrames int
	Entities  int
	Seed      uint64
	// Fixed frame delta; zero uses wall-clock time between frames.
	Delta          float64
	GCPauseMetrics bool
}

// buildWorld creates the stress world from the runtime configuration. An empty system list runs
// every registered system.
func buildWorld(rt *telemetry.Runtime, opts stressOptions) (*ecs.World, error) {
	registry := ecs.NewComponentRegistry()
	registerComponents(registry)

	factory := newSystemFactory(opts.Entities, opts.Seed)
	if len(rt.Config.Systems) == 0 {
		rt.Config.Systems = []string{"spawner", "movement", "energy", "decay", "reaper"}
	}
	w, err := rt.NewWorld(registry, factory)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewPCG(opts.Seed, opts.Seed+1))
	for range opts.Entities {
		w.Spawn(randomComponents(rng, 4)...)
	}
	w.Reconcile()
	return w, nil
}

// runStress steps w until ctx ends, the duration elapses or MaxFrames frames ran.
func runStress(ctx context.Context, w *ecs.World, opts stressOptions) (*Report, error) {
	if opts.Duration <= 0 && opts.MaxFrames <= 0 {
		return nil, eris.New("either a duration or a frame limit is required")
	}
	if opts.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Duration)
		defer cancel()
	}

	report := &Report{
		Duration:       opts.Duration,
		Entities:       opts.Entities,
		GCPauseMetrics: opts.GCPauseMetrics,
	}
	for _, sys := range w.Systems() {
		report.Systems = append(report.Systems, sys.Name())
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	startTime := time.Now()
	lastFrameTime := startTime

Loop:
	for opts.MaxFrames <= 0 || report.TotalUpdates < int64(opts.MaxFrames) {
		select {
		case <-ctx.Done():
			break Loop
		default:
		}

		dt := opts.Delta
		if dt <= 0 {
			dt = time.Since(lastFrameTime).Seconds()
		}
		lastFrameTime = time.Now()

		updateStart := time.Now()
		w.Update(dt)
		report.UpdateTime.Samples = append(report.UpdateTime.Samples, time.Since(updateStart))
		report.TotalUpdates++
	}

	report.TotalTime = time.Since(startTime)
	report.UpdateTime.Finalize()
	runtime.ReadMemStats(&report.MemStatsEnd)
	report.World = w.Stats()
	report.FinalEntities = w.EntityCount()
	return report, nil
}
