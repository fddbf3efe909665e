package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/lasercool/components"
	"github.com/pthm-cable/lasercool/config"
	"github.com/pthm-cable/lasercool/sim"
	"github.com/pthm-cable/lasercool/species"
	"github.com/pthm-cable/lasercool/systems"
	"github.com/pthm-cable/lasercool/telemetry"
)

// balanceWeight scales the beam-imbalance penalty. It is small enough that
// hitting the target always dominates.
const balanceWeight = 1e-3

// probeFunc builds an engine for one transition, runs a single tick over
// atoms probe atoms lit by cfg's lanes and returns their excited fractions.
type probeFunc func(cfg *config.Config, atoms int) ([]float64, error)

var probes = map[string]probeFunc{
	species.Rubidium87_780D2{}.Name(): probe[species.Rubidium87_780D2],
	species.Strontium88_461{}.Name():  probe[species.Strontium88_461],
	species.Strontium88_689{}.Name():  probe[species.Strontium88_689],
	species.Lithium7_671D2{}.Name():   probe[species.Lithium7_671D2],
	species.Erbium167_583{}.Name():    probe[species.Erbium167_583],
}

func probe[T species.Transition](cfg *config.Config, atoms int) ([]float64, error) {
	b := sim.NewBuilder(sim.Options{
		Workers:  cfg.Simulation.Workers,
		Timestep: cfg.Simulation.Timestep,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err := errors.Join(
		b.AddPlugin(systems.AtomPlugin{}),
		b.AddPlugin(systems.TwoLevelPlugin[T]{}),
	); err != nil {
		return nil, err
	}

	var rates components.RateCoefficients[T]
	for i, r := range cfg.Derived.LaneRates {
		rates.Contents[i].Rate = r
	}

	s := b.Store()
	entities := make([]sim.Entity, atoms)
	for i := range entities {
		e, err := systems.SpawnAtom(s, systems.AtomSpec{
			Position: r3.Vec{},
			Mass:     cfg.Atoms.Mass,
		})
		if err != nil {
			return nil, err
		}
		if err := errors.Join(
			sim.Insert(s, e, *new(T)),
			sim.Insert(s, e, rates),
			sim.Insert(s, e, cfg.Derived.Masks),
			sim.Insert(s, e, components.NewTwoLevelPopulation[T]()),
		); err != nil {
			return nil, err
		}
		entities[i] = e
	}

	simulation, err := b.Build()
	if err != nil {
		return nil, err
	}
	defer simulation.Close()

	if err := simulation.Step(); err != nil {
		return nil, err
	}

	excited := make([]float64, 0, atoms)
	for _, e := range entities {
		pop, ok := sim.Get[components.TwoLevelPopulation[T]](s, e)
		if !ok || !pop.Computed() {
			return nil, fmt.Errorf("atom %d has no computed population", e.ID())
		}
		excited = append(excited, pop.Excited)
	}
	return excited, nil
}

// FitnessEvaluator runs probe simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	target     float64
	atoms      int
	baseConfig *config.Config
	probe      probeFunc

	mu          sync.Mutex
	lastExcited float64 // mean excited fraction from the most recent Evaluate call
}

// NewFitnessEvaluator creates an evaluator aiming the mean excited fraction
// of atoms probe atoms at target.
func NewFitnessEvaluator(params *ParamVector, target float64, atoms int, baseCfg *config.Config) (*FitnessEvaluator, error) {
	if target <= 0 || target >= 0.5 {
		return nil, fmt.Errorf("target excited fraction %v outside (0, 0.5)", target)
	}
	p, ok := probes[baseCfg.Atoms.Species]
	if !ok {
		return nil, fmt.Errorf("no probe for species %q", baseCfg.Atoms.Species)
	}
	return &FitnessEvaluator{
		params:     params,
		target:     target,
		atoms:      max(atoms, 1),
		baseConfig: baseCfg,
		probe:      p,
	}, nil
}

// LastExcited returns the mean excited fraction from the most recent evaluation.
func (fe *FitnessEvaluator) LastExcited() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastExcited
}

// Evaluate computes fitness for a raw parameter vector (lower = better).
// A failed probe scores +Inf so CMA-ES steers away from it.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	cfg := fe.copyConfig()
	if err := fe.params.ApplyToConfig(cfg, x); err != nil {
		return math.Inf(1)
	}

	excited, err := fe.probe(cfg, fe.atoms)
	if err != nil {
		return math.Inf(1)
	}
	mean, _, _, _, _ := telemetry.Distribution(excited)

	fe.mu.Lock()
	fe.lastExcited = mean
	fe.mu.Unlock()

	return fe.computeFitness(mean, fe.params.Rates(x))
}

// computeFitness is the squared miss of the target plus a small penalty on
// the spread of lane rates, so equal-rate solutions win among equal sums.
func (fe *FitnessEvaluator) computeFitness(excited float64, rates []float64) float64 {
	miss := excited - fe.target
	spread := cv(rates)
	return miss*miss + balanceWeight*spread*spread
}

// copyConfig creates a copy of the base config with its own lane slice.
func (fe *FitnessEvaluator) copyConfig() *config.Config {
	cfg := *fe.baseConfig
	cfg.Lasers.Lanes = append([]config.LaneConfig(nil), fe.baseConfig.Lasers.Lanes...)
	return &cfg
}

// cv computes the coefficient of variation (std/mean) for a slice of values.
func cv(values []float64) float64 {
	n := float64(len(values))
	if n == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	if mean == 0 {
		return 0
	}
	var sqDiff float64
	for _, v := range values {
		d := v - mean
		sqDiff += d * d
	}
	return math.Sqrt(sqDiff/n) / mean
}

// totalRate is the summed rate across lanes in 1/s.
func totalRate(rates []float64) float64 {
	var sum float64
	for _, r := range rates {
		sum += r
	}
	return sum
}
