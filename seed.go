package main

import (
	"errors"
	"math/rand"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/lasercool/components"
	"github.com/pthm-cable/lasercool/config"
	"github.com/pthm-cable/lasercool/sim"
	"github.com/pthm-cable/lasercool/species"
	"github.com/pthm-cable/lasercool/systems"
	"github.com/pthm-cable/lasercool/trajectory"
)

// seedAtoms creates the initial atoms, from the input file if one is
// configured and from a Gaussian cloud otherwise. It returns the atom count.
func seedAtoms[T species.Transition](s *sim.Store, cfg *config.Config) (int, error) {
	positions, velocities, err := initialStates(cfg)
	if err != nil {
		return 0, err
	}

	var rates components.RateCoefficients[T]
	for i, r := range cfg.Derived.LaneRates {
		rates.Contents[i].Rate = r
	}

	var marker T
	for i := range positions {
		e, err := systems.SpawnAtom(s, systems.AtomSpec{
			Position: positions[i],
			Velocity: velocities[i],
			Mass:     cfg.Atoms.Mass,
		})
		if err != nil {
			return 0, err
		}
		err = errors.Join(
			sim.Insert(s, e, marker),
			sim.Insert(s, e, rates),
			sim.Insert(s, e, cfg.Derived.Masks),
			sim.Insert(s, e, components.NewTwoLevelPopulation[T]()),
		)
		if err == nil && cfg.Atoms.Lifetime > 0 {
			err = sim.Insert(s, e, components.Lifetime{Remaining: cfg.Atoms.Lifetime})
		}
		if err != nil {
			return 0, err
		}
	}
	return len(positions), nil
}

func initialStates(cfg *config.Config) (positions, velocities []r3.Vec, err error) {
	if cfg.Input.Path != "" {
		df, err := trajectory.ReadCSV(cfg.Input.Path, cfg.Input.HasHeader)
		if err != nil {
			return nil, nil, err
		}
		return df.Positions(), df.Velocities(), nil
	}

	rng := rand.New(rand.NewSource(cfg.Simulation.Seed))
	gauss := func(sigma float64) r3.Vec {
		return r3.Vec{X: rng.NormFloat64() * sigma, Y: rng.NormFloat64() * sigma, Z: rng.NormFloat64() * sigma}
	}
	positions = make([]r3.Vec, cfg.Atoms.Count)
	velocities = make([]r3.Vec, cfg.Atoms.Count)
	for i := range positions {
		positions[i] = gauss(cfg.Atoms.PositionSigma)
		velocities[i] = gauss(cfg.Atoms.VelocitySigma)
	}
	return positions, velocities, nil
}
