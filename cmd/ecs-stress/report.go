package main

import (
	"fmt"
	"io"
	"runtime"
	"slices"
	"text/template"
	"time"

	"github.com/goccy/go-json"
	"github.com/plus3/famecs/ecs"
	"github.com/rotisserie/eris"
)

type Report struct {
	// Configuration
	Duration time.Duration
	Entities int
	Systems  []string

	// Results
	TotalUpdates   int64
	TotalTime      time.Duration
	UpdateTime     Stats
	FinalEntities  int
	World          ecs.WorldStats
	GCPauseMetrics bool
	MemStatsStart  runtime.MemStats
	MemStatsEnd    runtime.MemStats
}

type Stats struct {
	Min     time.Duration
	Max     time.Duration
	Avg     time.Duration
	P99     time.Duration
	Samples []time.Duration
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = s.Samples[0]
	s.Max = s.Samples[0]

	for _, sample := range s.Samples {
		s.Min = min(s.Min, sample)
		s.Max = max(s.Max, sample)
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))
	s.P99 = percentile(s.Samples, 0.99)
}

func percentile(samples []time.Duration, p float64) time.Duration {
	sorted := slices.Clone(samples)
	slices.Sort(sorted)
	index := int(float64(len(sorted)-1) * p)
	return sorted[index]
}

const reportTemplate = `
# ECS Stress Test Report

## Test Configuration
- **Run Duration:** {{.Duration}}
- **Initial Entities:** {{.Entities}}
- **Systems:** {{join .Systems}}

## Performance Results
- **Total Updates:** {{.TotalUpdates}}
- **Total Test Time:** {{.TotalTime}}
- **Final Entities:** {{.FinalEntities}}
- **Update Time (Frame):**
  - **Avg:** {{.UpdateTime.Avg}}
  - **Min:** {{.UpdateTime.Min}}
  - **Max:** {{.UpdateTime.Max}}
  - **P99:** {{.UpdateTime.P99}}

## Systems
{{range .World.Systems}}- {{.Name}}: {{.Update.ExecutionCount}} updates, avg {{.Update.AvgDuration}}, max {{.Update.MaxDuration}}
{{end}}
## Families
{{range .World.Families}}- {{join .Components}}: {{.Size}} entities, {{.Refs}} systems
{{end}}
## Memory Usage (Raw Bytes)
- Heap Alloc:     {{.MemStatsStart.HeapAlloc}} (start) -> {{.MemStatsEnd.HeapAlloc}} (end) -> delta: {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc}}
- Total Alloc:    {{.MemStatsStart.TotalAlloc}} (start) -> {{.MemStatsEnd.TotalAlloc}} (end) -> delta: {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc}}
- Sys Memory:     {{.MemStatsStart.Sys}} (start) -> {{.MemStatsEnd.Sys}} (end) -> delta: {{bsub .MemStatsEnd.Sys .MemStatsStart.Sys}}
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}
{{if .GCPauseMetrics}}
## GC Pause Durations
- **Total GC Pause:** {{.MemStatsEnd.PauseTotalNs | ns}}
- **Num GC Cycles:** {{ usub .MemStatsEnd.NumGC .MemStatsStart.NumGC }}
{{end}}`

var reportFuncs = template.FuncMap{
	"bsub": func(a, b uint64) int64 {
		return int64(a) - int64(b)
	},
	"usub": func(a, b uint32) uint32 {
		return a - b
	},
	"ns": func(ns uint64) string {
		return time.Duration(ns).String()
	},
	"join": func(items []string) string {
		return fmt.Sprintf("%v", items)
	},
}

func (r *Report) Generate(w io.Writer) error {
	tmpl, err := template.New("report").Funcs(reportFuncs).Parse(reportTemplate)
	if err != nil {
		return eris.Wrap(err, "failed to parse report template")
	}
	if err := tmpl.Execute(w, r); err != nil {
		return eris.Wrap(err, "failed to render report")
	}
	return nil
}

type jsonSystem struct {
	Name      string `json:"name"`
	Updates   int64  `json:"updates"`
	AvgUpdate string `json:"avg_update"`
	MaxUpdate string `json:"max_update"`
}

type jsonFamily struct {
	Components []string `json:"components"`
	Size       int      `json:"size"`
	Refs       int      `json:"refs"`
}

type jsonReport struct {
	Duration      string       `json:"duration"`
	Entities      int          `json:"entities"`
	FinalEntities int          `json:"final_entities"`
	TotalUpdates  int64        `json:"total_updates"`
	TotalTime     string       `json:"total_time"`
	AvgUpdate     string       `json:"avg_update"`
	MinUpdate     string       `json:"min_update"`
	MaxUpdate     string       `json:"max_update"`
	P99Update     string       `json:"p99_update"`
	HeapDelta     int64        `json:"heap_delta_bytes"`
	NumGC         uint32       `json:"num_gc"`
	Systems       []jsonSystem `json:"systems"`
	Families      []jsonFamily `json:"families"`
}

// GenerateJSON writes a machine readable summary of the report.
func (r *Report) GenerateJSON(w io.Writer) error {
	out := jsonReport{
		Duration:      r.Duration.String(),
		Entities:      r.Entities,
		FinalEntities: r.FinalEntities,
		TotalUpdates:  r.TotalUpdates,
		TotalTime:     r.TotalTime.String(),
		AvgUpdate:     r.UpdateTime.Avg.String(),
		MinUpdate:     r.UpdateTime.Min.String(),
		MaxUpdate:     r.UpdateTime.Max.String(),
		P99Update:     r.UpdateTime.P99.String(),
		HeapDelta:     int64(r.MemStatsEnd.HeapAlloc) - int64(r.MemStatsStart.HeapAlloc),
		NumGC:         r.MemStatsEnd.NumGC - r.MemStatsStart.NumGC,
		Systems:       make([]jsonSystem, 0, len(r.World.Systems)),
		Families:      make([]jsonFamily, 0, len(r.World.Families)),
	}
	for _, sys := range r.World.Systems {
		out.Systems = append(out.Systems, jsonSystem{
			Name:      sys.Name,
			Updates:   sys.Update.ExecutionCount,
			AvgUpdate: sys.Update.AvgDuration.String(),
			MaxUpdate: sys.Update.MaxDuration.String(),
		})
	}
	for _, family := range r.World.Families {
		out.Families = append(out.Families, jsonFamily{
			Components: family.Components,
			Size:       family.Size,
			Refs:       family.Refs,
		})
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return eris.Wrap(err, "failed to encode report")
	}
	return nil
}
