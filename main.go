package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/pkg/profile"

	"github.com/pthm-cable/lasercool/config"
	"github.com/pthm-cable/lasercool/sim"
	"github.com/pthm-cable/lasercool/species"
	"github.com/pthm-cable/lasercool/systems"
	"github.com/pthm-cable/lasercool/telemetry"
)

// runner builds and runs a simulation for one concrete transition.
type runner func(ctx context.Context, cfg *config.Config, om *telemetry.OutputManager, logger *slog.Logger) error

var runners = map[string]runner{
	species.Rubidium87_780D2{}.Name(): run[species.Rubidium87_780D2],
	species.Strontium88_461{}.Name():  run[species.Strontium88_461],
	species.Strontium88_689{}.Name():  run[species.Strontium88_689],
	species.Lithium7_671D2{}.Name():   run[species.Lithium7_671D2],
	species.Erbium167_583{}.Name():    run[species.Erbium167_583],
}

var profileModes = map[string]func(*profile.Profile){
	"cpu":       profile.CPUProfile,
	"mem":       profile.MemProfile,
	"block":     profile.BlockProfile,
	"mutex":     profile.MutexProfile,
	"goroutine": profile.GoroutineProfile,
	"trace":     profile.TraceProfile,
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = use config)")
	inputPath := flag.String("input", "", "CSV of initial positions and velocities (empty = use config)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs and config snapshot")
	seed := flag.Int64("seed", 0, "RNG seed for generated atoms (0 = use config)")
	profileMode := flag.String("profile", "", "pprof profile: cpu, mem, block, mutex, goroutine, trace")

	flag.Parse()

	// Set up slog (JSON to stdout for structured logging)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	// CLI overrides
	if *maxTicks > 0 {
		cfg.Simulation.Steps = *maxTicks
	}
	if *inputPath != "" {
		cfg.Input.Path = *inputPath
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}
	if *profileMode != "" {
		cfg.Profile.Mode = *profileMode
	}

	if err := execute(cfg, logger); err != nil {
		slog.Error("simulation failed", "error", err)
		os.Exit(1)
	}
}

func execute(cfg *config.Config, logger *slog.Logger) error {
	if cfg.Profile.Mode != "" {
		mode, ok := profileModes[cfg.Profile.Mode]
		if !ok {
			return fmt.Errorf("unknown profile mode %q", cfg.Profile.Mode)
		}
		defer profile.Start(mode, profile.ProfilePath(cfg.Profile.Dir), profile.NoShutdownHook, profile.Quiet).Stop()
	}

	om, err := telemetry.NewOutputManager(cfg.Output.Dir)
	if err != nil {
		return err
	}
	defer om.Close()
	if err := om.WriteConfig(cfg); err != nil {
		return err
	}

	simulate, ok := runners[cfg.Atoms.Species]
	if !ok {
		return fmt.Errorf("no runner for species %q", cfg.Atoms.Species)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return simulate(ctx, cfg, om, logger)
}

func run[T species.Transition](ctx context.Context, cfg *config.Config, om *telemetry.OutputManager, logger *slog.Logger) error {
	perf := telemetry.NewPerfCollector(cfg.Telemetry.PerfWindow)
	b := sim.NewBuilder(sim.Options{
		Workers:         cfg.Simulation.Workers,
		Timestep:        cfg.Simulation.Timestep,
		ConsoleInterval: cfg.Console.Interval,
		Logger:          logger,
		Observer:        perf,
	})

	plugins := []sim.Plugin{systems.AtomPlugin{}}
	if cfg.Gravity.Enabled {
		plugins = append(plugins, systems.GravityPlugin{G: cfg.Gravity.G})
	}
	plugins = append(plugins, systems.DestroyAtomsPlugin{})
	if cfg.Atoms.Lifetime > 0 {
		plugins = append(plugins, systems.LifetimePlugin{})
	}
	plugins = append(plugins,
		systems.TwoLevelPlugin[T]{},
		telemetry.TrajectoryPlugin{Interval: cfg.Output.Interval, Output: om},
		telemetry.PopulationStatsPlugin[T]{Interval: cfg.Telemetry.StatsInterval, Output: om, Logger: logger},
	)
	for _, p := range plugins {
		if err := b.AddPlugin(p); err != nil {
			return err
		}
	}

	n, err := seedAtoms[T](b.Store(), cfg)
	if err != nil {
		return err
	}

	simulation, err := b.Build()
	if err != nil {
		return err
	}
	defer simulation.Close()

	var t T
	logger.Info("starting simulation",
		"species", t.Name(),
		"atoms", n,
		"steps", cfg.Simulation.Steps,
		"timestep", cfg.Simulation.Timestep,
		"active_rate", cfg.Derived.ActiveRate,
		"stages", simulation.Dispatcher().Stages(),
	)

	start := time.Now()
	window := max(cfg.Telemetry.PerfWindow, 1)
	for done := 0; done < cfg.Simulation.Steps; done += window {
		chunk := min(window, cfg.Simulation.Steps-done)
		if err := simulation.Run(ctx, chunk); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			return err
		}

		stats := perf.Stats()
		logger.Info("perf", "step", simulation.StepCount(), "stats", stats)
		if err := om.WritePerf(stats, simulation.StepCount()); err != nil {
			return err
		}
	}

	logger.Info("simulation complete",
		"steps", simulation.StepCount(),
		"atoms", simulation.Store().Len(),
		"elapsed", time.Since(start).String(),
	)
	return nil
}
