package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/pthm-cable/lasercool/config"
	"github.com/pthm-cable/lasercool/species"
)

func smallConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Simulation.Steps = 25
	cfg.Atoms.Count = 50
	cfg.Telemetry.PerfWindow = 10
	cfg.Telemetry.StatsInterval = 10
	cfg.Output.Interval = 5
	return cfg
}

func TestEveryCatalogueSpeciesHasRunner(t *testing.T) {
	for _, name := range species.Names() {
		if _, ok := runners[name]; !ok {
			t.Errorf("no runner for %s", name)
		}
	}
}

func TestExecuteWritesOutput(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Output.Dir = t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	if err := execute(cfg, logger); err != nil {
		t.Fatalf("execute: %v", err)
	}
	for _, name := range []string{"config.yaml", "trajectory.csv", "population.csv", "perf.csv"} {
		info, err := os.Stat(filepath.Join(cfg.Output.Dir, name))
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", name)
		}
	}
}

func TestInitialStatesFromInput(t *testing.T) {
	cfg := smallConfig(t)
	path := filepath.Join(t.TempDir(), "atoms.csv")
	data := "px,py,pz,vx,vy,vz\n0,0,0,1,0,0\n1e-3,0,0,0,1,0\n"
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	cfg.Input.Path = path
	cfg.Input.HasHeader = true

	pos, vel, err := initialStates(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(pos) != 2 || pos[1].X != 1e-3 || vel[1].Y != 1 {
		t.Errorf("positions %v velocities %v", pos, vel)
	}
}

func TestInitialStatesSeeded(t *testing.T) {
	cfg := smallConfig(t)
	a, _, _ := initialStates(cfg)
	b, _, _ := initialStates(cfg)
	if len(a) != cfg.Atoms.Count {
		t.Fatalf("len = %d, want %d", len(a), cfg.Atoms.Count)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed gave different clouds at %d", i)
		}
	}
}

func TestExecuteUnknownProfileMode(t *testing.T) {
	cfg := smallConfig(t)
	cfg.Profile.Mode = "flame"
	if err := execute(cfg, slog.New(slog.NewTextHandler(io.Discard, nil))); err == nil {
		t.Error("expected error for unknown profile mode")
	}
}
