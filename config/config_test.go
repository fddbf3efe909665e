package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load defaults: %v", err)
	}
	if cfg.Simulation.Timestep != 1e-6 {
		t.Errorf("timestep = %v, want 1e-6", cfg.Simulation.Timestep)
	}
	if cfg.Derived.Transition.Name() != cfg.Atoms.Species {
		t.Errorf("derived transition %q, want %q", cfg.Derived.Transition.Name(), cfg.Atoms.Species)
	}
	if got := cfg.Derived.Masks.Count(); got != len(cfg.Lasers.Lanes) {
		t.Errorf("active lanes = %d, want %d", got, len(cfg.Lasers.Lanes))
	}
	if cfg.Derived.ActiveRate != 6e6 {
		t.Errorf("active rate = %v, want 6e6", cfg.Derived.ActiveRate)
	}
}

func TestLoadOverlay(t *testing.T) {
	path := writeConfig(t, `
atoms:
  species: strontium88_461
  mass: 88
lasers:
  lanes:
    - { rate: 2.0e6, active: true }
    - { rate: 5.0e6, active: false }
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Atoms.Species != "strontium88_461" || cfg.Atoms.Mass != 88 {
		t.Errorf("atoms = %+v", cfg.Atoms)
	}
	// Fields absent from the file keep their defaults.
	if cfg.Atoms.Count != 10000 || cfg.Console.Interval != 100 {
		t.Errorf("defaults lost: count=%d interval=%d", cfg.Atoms.Count, cfg.Console.Interval)
	}
	if cfg.Derived.ActiveRate != 2e6 {
		t.Errorf("active rate = %v, want 2e6", cfg.Derived.ActiveRate)
	}
	if cfg.Derived.LaneRates[1] != 5e6 || cfg.Derived.Masks.Contents[1].Filled {
		t.Errorf("lane 1 = %v/%v, want 5e6 inactive", cfg.Derived.LaneRates[1], cfg.Derived.Masks.Contents[1].Filled)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown species", "atoms:\n  species: unobtainium\n"},
		{"zero timestep", "simulation:\n  timestep: 0\n"},
		{"negative mass", "atoms:\n  mass: -1\n"},
		{"negative rate", "lasers:\n  lanes:\n    - { rate: -1, active: true }\n"},
		{"too many lanes", "lasers:\n  lanes: [{rate: 1}, {rate: 1}, {rate: 1}, {rate: 1}, {rate: 1}, {rate: 1}, {rate: 1}, {rate: 1}, {rate: 1}]\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("err = %v, want ErrNotExist", err)
	}
}

func TestWriteYAMLRoundTrip(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Atoms.Count = 123
	path := filepath.Join(t.TempDir(), "out.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		t.Fatal(err)
	}

	again, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if again.Atoms.Count != 123 {
		t.Errorf("count = %d, want 123", again.Atoms.Count)
	}
}

func TestCfgBeforeInit(t *testing.T) {
	global = nil
	defer func() {
		if recover() == nil {
			t.Error("Cfg did not panic before Init")
		}
	}()
	Cfg()
}

func TestValidateRecomputesDerived(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	cfg.Lasers.Lanes[0].Rate = 2e6
	cfg.Lasers.Lanes[1].Active = false
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.Derived.ActiveRate != 6e6 {
		t.Errorf("active rate = %v, want 6e6", cfg.Derived.ActiveRate)
	}
	if cfg.Derived.LaneRates[0] != 2e6 {
		t.Errorf("lane 0 rate = %v, want 2e6", cfg.Derived.LaneRates[0])
	}

	cfg.Lasers.Lanes[2].Rate = -1
	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}
