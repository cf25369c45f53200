package main

import (
	"fmt"
	"io"
	"runtime"
	"text/template"
	"time"

	"github.com/plus3/entitydb/ecs"
)

type Report struct {
	// Configuration
	Entities int    `json:"entities"`
	Passes   int    `json:"passes"`
	Workers  int    `json:"workers"`
	Seed     uint64 `json:"seed"`

	// Results
	Archetypes   int               `json:"archetypes"`
	Chunks       int               `json:"chunks"`
	RecordTime   time.Duration     `json:"record_time_ns"`
	PlaybackTime time.Duration     `json:"playback_time_ns"`
	TotalTime    time.Duration     `json:"total_time_ns"`
	PassTime     Stats             `json:"pass_time"`
	Systems      []ecs.SystemStats `json:"systems"`
	Mismatches   int               `json:"mismatches"`

	MemStatsStart runtime.MemStats `json:"-"`
	MemStatsEnd   runtime.MemStats `json:"-"`
}

type Stats struct {
	Min     time.Duration   `json:"min_ns"`
	Max     time.Duration   `json:"max_ns"`
	Avg     time.Duration   `json:"avg_ns"`
	Samples []time.Duration `json:"-"`
}

func (s *Stats) Finalize() {
	if len(s.Samples) == 0 {
		return
	}

	var total time.Duration
	s.Min = s.Samples[0]
	s.Max = s.Samples[0]

	for _, sample := range s.Samples {
		if sample < s.Min {
			s.Min = sample
		}
		if sample > s.Max {
			s.Max = sample
		}
		total += sample
	}
	s.Avg = total / time.Duration(len(s.Samples))
}

func (r *Report) Generate(w io.Writer) error {
	const reportTemplate = `
# Entity Store Stress Report

## Test Configuration
- **Entities:** {{.Entities}}
- **Increment Passes:** {{.Passes}}
- **Workers:** {{.Workers}}
- **Seed:** {{.Seed}}

## Storage
- **Archetypes:** {{.Archetypes}}
- **Chunks:** {{.Chunks}}
- **Record Time:** {{.RecordTime}}
- **Playback Time:** {{.PlaybackTime}}

## Increment Passes
- **Total Time:** {{.TotalTime}}
- **Pass Time:**
  - **Avg:** {{.PassTime.Avg}}
  - **Min:** {{.PassTime.Min}}
  - **Max:** {{.PassTime.Max}}
{{range .Systems}}- **{{.Name}}:** {{.ExecutionCount}} runs, avg {{.AvgDuration}}
{{end}}
## Verification
{{if eq .Mismatches 0}}- All entities verified.{{else}}- **Mismatches:** {{.Mismatches}}{{end}}

## Memory Usage
- Heap Alloc:     {{mb .MemStatsStart.HeapAlloc}} MB (start) -> {{mb .MemStatsEnd.HeapAlloc}} MB (end) -> delta: {{bsub .MemStatsEnd.HeapAlloc .MemStatsStart.HeapAlloc}}
- Total Alloc:    {{mb .MemStatsStart.TotalAlloc}} MB (start) -> {{mb .MemStatsEnd.TotalAlloc}} MB (end) -> delta: {{bsub .MemStatsEnd.TotalAlloc .MemStatsStart.TotalAlloc}}
- Num GC:         {{.MemStatsStart.NumGC}} (start) -> {{.MemStatsEnd.NumGC}} (end) -> delta: {{usub .MemStatsEnd.NumGC .MemStatsStart.NumGC}}
- Total GC Pause: {{ns .MemStatsEnd.PauseTotalNs}}
`

	fm := template.FuncMap{
		"mb": func(v uint64) string {
			return fmt.Sprintf("%.2f", float64(v)/1024/1024)
		},
		"bsub": func(a, b uint64) int64 {
			return int64(a) - int64(b)
		},
		"usub": func(a, b uint32) uint32 {
			return a - b
		},
		"ns": func(ns uint64) string {
			return time.Duration(ns).String()
		},
	}

	tmpl, err := template.New("report").Funcs(fm).Parse(reportTemplate)
	if err != nil {
		return err
	}

	return tmpl.Execute(w, r)
}

// ExitCode is 2 when any entity failed verification, 0 otherwise.
func (r *Report) ExitCode() int {
	if r.Mismatches > 0 {
		return 2
	}
	return 0
}
