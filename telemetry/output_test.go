package telemetry

import (
	"context"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/lasercool/components"
	"github.com/pthm-cable/lasercool/config"
	"github.com/pthm-cable/lasercool/sim"
	"github.com/pthm-cable/lasercool/species"
	"github.com/pthm-cable/lasercool/systems"
)

func TestNilOutputManager(t *testing.T) {
	om, err := NewOutputManager("")
	if err != nil || om != nil {
		t.Fatalf("NewOutputManager(\"\") = %v, %v; want nil, nil", om, err)
	}
	if err := om.WritePopulation(PopulationStats{}); err != nil {
		t.Error(err)
	}
	if err := om.WriteTrajectory([]TrajectoryRecord{{}}); err != nil {
		t.Error(err)
	}
	if err := om.Close(); err != nil {
		t.Error(err)
	}
}

func TestWritePerfHeaderOnce(t *testing.T) {
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}
	pc := NewPerfCollector(2)
	runTick(pc, 0, map[string]time.Duration{"clear": time.Microsecond}, 2*time.Microsecond)
	for step := uint64(0); step < 3; step++ {
		if err := om.WritePerf(pc.Stats(), step); err != nil {
			t.Fatal(err)
		}
	}
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	if err := om.WriteConfig(cfg); err != nil {
		t.Fatal(err)
	}
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "perf.csv"))
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "step,system"); n != 1 {
		t.Errorf("header written %d times", n)
	}
	if lines := strings.Count(string(data), "\n"); lines != 1+3*2 {
		t.Errorf("perf.csv has %d lines, want 7", lines)
	}
	if _, err := os.Stat(filepath.Join(dir, "config.yaml")); err != nil {
		t.Errorf("config.yaml: %v", err)
	}
}

func TestOutputPlugins(t *testing.T) {
	type rb = species.Rubidium87_780D2
	dir := t.TempDir()
	om, err := NewOutputManager(dir)
	if err != nil {
		t.Fatal(err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	b := sim.NewBuilder(sim.Options{Workers: 2, Logger: logger})
	stats := PopulationStatsPlugin[rb]{Interval: 1, Output: om, Logger: logger}
	for _, p := range []sim.Plugin{
		systems.AtomPlugin{},
		systems.TwoLevelPlugin[rb]{},
		TrajectoryPlugin{Interval: 1, Output: om},
		stats,
	} {
		if err := b.AddPlugin(p); err != nil {
			t.Fatal(err)
		}
	}

	s := b.Store()
	masks, _ := components.ActiveLanes(2)
	for i := 0; i < 3; i++ {
		e, err := systems.SpawnAtom(s, systems.AtomSpec{
			Position: r3.Vec{X: float64(i)},
			Velocity: r3.Vec{Y: 1},
			Mass:     87,
		})
		if err != nil {
			t.Fatal(err)
		}
		_ = sim.Insert(s, e, rb{})
		_ = sim.Insert(s, e, components.Uniform[rb](1e6))
		_ = sim.Insert(s, e, masks)
		_ = sim.Insert(s, e, components.NewTwoLevelPopulation[rb]())
	}

	simulation, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	if err := simulation.Run(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	simulation.Close()
	if err := om.Close(); err != nil {
		t.Fatal(err)
	}

	var traj []TrajectoryRecord
	f, err := os.Open(filepath.Join(dir, "trajectory.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := gocsv.UnmarshalFile(f, &traj); err != nil {
		t.Fatal(err)
	}
	if len(traj) != 6 {
		t.Fatalf("trajectory rows = %d, want 6", len(traj))
	}
	if traj[5].Step != 1 || traj[0].Step != 0 {
		t.Errorf("steps = %d..%d, want 0..1", traj[0].Step, traj[5].Step)
	}

	var pops []PopulationStats
	pf, err := os.Open(filepath.Join(dir, "population.csv"))
	if err != nil {
		t.Fatal(err)
	}
	defer pf.Close()
	if err := gocsv.UnmarshalFile(pf, &pops); err != nil {
		t.Fatal(err)
	}
	if len(pops) != 2 {
		t.Fatalf("population rows = %d, want 2", len(pops))
	}
	want := rbExcited(2e6)
	for _, p := range pops {
		if p.Atoms != 3 || p.Computed != 3 {
			t.Errorf("atoms/computed = %d/%d, want 3/3", p.Atoms, p.Computed)
		}
		if math.Abs(p.ExcitedMean-want) > 1e-9 {
			t.Errorf("excited mean = %v, want %v", p.ExcitedMean, want)
		}
	}
}

// rbExcited is the rubidium excited fraction at total rate s.
func rbExcited(s float64) float64 {
	return systems.SteadyStateExcited(s, species.Gamma[species.Rubidium87_780D2]())
}
