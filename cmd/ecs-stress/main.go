package main

import (
	"flag"
	"fmt"
	"math/rand/v2"
	"os"
	"runtime"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/profile"
	"go.uber.org/zap"

	"github.com/plus3/entitydb/ecs"
)

func main() {
	os.Exit(stress())
}

// stress runs the harness and returns the process exit code, so deferred
// profile and logger flushes run before exit.
func stress() int {
	configPath := flag.String("config", "", "Path to a .toml or .yaml engine config.")
	entityCount := flag.Int("entities", 1_000_000, "The number of entities to create.")
	passes := flag.Int("passes", 128, "The number of parallel increment passes.")
	workers := flag.Int("workers", 0, "Worker count, 0 uses the config value.")
	seed := flag.Uint64("seed", 1, "Seed for the component subset of each entity.")
	profileMode := flag.String("profile", "", "Write a cpu or mem profile to the working directory.")
	jsonOut := flag.Bool("json", false, "Print the report as JSON.")
	flag.Parse()

	cfg := ecs.DefaultConfig()
	if *configPath != "" {
		loaded, err := ecs.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			return 1
		}
		cfg = loaded
	}
	if *workers > 0 {
		cfg.Workers = *workers
	}

	logger, err := ecs.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		return 1
	}
	defer logger.Sync()

	switch *profileMode {
	case "":
	case "cpu":
		defer profile.Start(profile.CPUProfile, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	case "mem":
		defer profile.Start(profile.MemProfileAllocs, profile.ProfilePath("."), profile.NoShutdownHook).Stop()
	default:
		logger.Error("unknown profile mode", zap.String("profile", *profileMode))
		return 1
	}

	report := run(logger, cfg, *entityCount, *passes, *seed)

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			logger.Error("encode report", zap.Error(err))
			return 1
		}
	} else {
		fmt.Println("\n\n--- Stress Test Report ---")
		if err := report.Generate(os.Stdout); err != nil {
			logger.Error("generate report", zap.Error(err))
			return 1
		}
		fmt.Println("--- End of Report ---")
	}

	return report.ExitCode()
}

func run(logger *zap.Logger, cfg ecs.Config, entityCount, passes int, seed uint64) *Report {
	registry := ecs.NewComponentRegistry()
	c := registerComponents(registry)
	world := ecs.NewWorld(registry, ecs.WithConfig(cfg), ecs.WithLogger(logger))

	report := &Report{
		Entities: entityCount,
		Passes:   passes,
		Workers:  cfg.Workers,
		Seed:     seed,
		PassTime: Stats{Samples: make([]time.Duration, 0, passes)},
	}
	if report.Workers <= 0 {
		report.Workers = runtime.GOMAXPROCS(0)
	}
	runtime.ReadMemStats(&report.MemStatsStart)

	logger.Info("populating world", zap.Int("entities", entityCount), zap.Uint64("seed", seed))
	start := time.Now()
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	cb := world.NewCommandBuffer()
	masks := make([]uint8, entityCount)
	pending := make([]ecs.BufferedEntity, entityCount)
	for i := range entityCount {
		mask := uint8(rng.IntN(31) + 1)
		masks[i] = mask
		b := cb.Create()
		if mask&1 != 0 {
			b.Set(Int32{})
		}
		if mask&2 != 0 {
			b.Set(Int64{V: seedInt64(i)})
		}
		if mask&4 != 0 {
			b.Set(Uint16{V: seedUint16(i)})
		}
		if mask&8 != 0 {
			b.Set(Float32{V: seedFloat32(i)})
		}
		if mask&16 != 0 {
			b.Set(Float64{V: seedFloat64(i)})
		}
		pending[i] = b
	}
	report.RecordTime = time.Since(start)

	start = time.Now()
	resolver := cb.Playback()
	report.PlaybackTime = time.Since(start)

	scheduler := ecs.NewScheduler(world)
	scheduler.Register(&incrementSystem{c: c})

	logger.Info("running increment passes", zap.Int("passes", passes), zap.Int("workers", report.Workers))
	startTime := time.Now()
	for range passes {
		passStart := time.Now()
		scheduler.Once(0)
		report.PassTime.Samples = append(report.PassTime.Samples, time.Since(passStart))
	}
	report.TotalTime = time.Since(startTime)
	report.PassTime.Finalize()

	for i, b := range pending {
		if !verify(c, resolver.Resolve(b), masks[i], i, passes) {
			report.Mismatches++
		}
	}
	runtime.ReadMemStats(&report.MemStatsEnd)

	stats := world.CollectStats()
	report.Archetypes = stats.ArchetypeCount
	report.Chunks = stats.ChunkCount
	report.Systems = scheduler.GetStats().Systems

	if report.Mismatches > 0 {
		logger.Error("verification failed", zap.Int("mismatches", report.Mismatches))
	} else {
		logger.Info("verification passed", zap.Int("entities", entityCount))
	}
	return report
}

// verify checks that Int32 was incremented exactly passes times and that the
// other components kept their seeded values.
func verify(c components, e ecs.Entity, mask uint8, i, passes int) bool {
	for bit, id := range []ecs.ComponentID{c.i32.ID(), c.i64.ID(), c.u16.ID(), c.f32.ID(), c.f64.ID()} {
		if e.HasComponent(id) != (mask&(1<<bit) != 0) {
			return false
		}
	}
	if mask&1 != 0 && c.i32.Get(e).V != int32(passes) {
		return false
	}
	if mask&2 != 0 && c.i64.Get(e).V != seedInt64(i) {
		return false
	}
	if mask&4 != 0 && c.u16.Get(e).V != seedUint16(i) {
		return false
	}
	if mask&8 != 0 && c.f32.Get(e).V != seedFloat32(i) {
		return false
	}
	if mask&16 != 0 && c.f64.Get(e).V != seedFloat64(i) {
		return false
	}
	return true
}
