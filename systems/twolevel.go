package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/lasercool/components"
	"github.com/pthm-cable/lasercool/sim"
	"github.com/pthm-cable/lasercool/species"
)

// TwoLevelSystemName returns the name of the population system for T. It is
// also the name of the plugin that adds it.
func TwoLevelSystemName[T species.Transition]() string {
	var t T
	return "twolevel-population/" + t.Name()
}

// TwoLevelPlugin computes the steady-state two-level population of transition
// T. After lists the systems that must run first, typically the laser systems
// that fill RateCoefficients and CoolingLaserSamplerMasks.
type TwoLevelPlugin[T species.Transition] struct {
	After []string
}

func (TwoLevelPlugin[T]) Name() string   { return TwoLevelSystemName[T]() }
func (TwoLevelPlugin[T]) Deps() []string { return []string{AtomPluginName} }

func (p TwoLevelPlugin[T]) Build(b *sim.Builder) error {
	s := b.Store()
	sim.Register[T](s)
	sim.Register[components.RateCoefficients[T]](s)
	sim.Register[components.CoolingLaserSamplerMasks](s)
	sim.Register[components.TwoLevelPopulation[T]](s)
	return b.AddSystem(TwoLevelSystemName[T](), &TwoLevelPopulationSystem[T]{}, p.After...)
}

// SumActiveRates returns the total excitation rate over the filled lanes.
// Rates in unfilled lanes are ignored whatever they hold.
func SumActiveRates[T species.Transition](rates *components.RateCoefficients[T], masks *components.CoolingLaserSamplerMasks) float64 {
	sum := 0.0
	for i := range components.BeamLimit {
		if masks.Contents[i].Filled {
			sum += rates.Contents[i].Rate
		}
	}
	return sum
}

// SteadyStateExcited returns the excited-state fraction of a two-level system
// driven at total rate s with natural linewidth gamma (rad/s):
// s / (gamma + 2s). It is zero for s == 0 and approaches 1/2 as s grows.
func SteadyStateExcited(s, gamma float64) float64 {
	if s == 0 {
		return 0
	}
	return s / (gamma + 2*s)
}

type populationRow[T species.Transition] struct {
	rates *components.RateCoefficients[T]
	masks *components.CoolingLaserSamplerMasks
	pop   *components.TwoLevelPopulation[T]
}

// TwoLevelPopulationSystem writes TwoLevelPopulation[T] of every atom that
// carries T, its rate coefficients and its lane masks.
type TwoLevelPopulationSystem[T species.Transition] struct {
	filter *ecs.Filter4[T, components.RateCoefficients[T], components.CoolingLaserSamplerMasks, components.TwoLevelPopulation[T]]
	rows   []populationRow[T]
}

func (s *TwoLevelPopulationSystem[T]) Access() sim.Access {
	return sim.Access{
		Reads: sim.Types(
			sim.TypeOf[T](),
			sim.TypeOf[components.RateCoefficients[T]](),
			sim.TypeOf[components.CoolingLaserSamplerMasks](),
		),
		Writes: sim.Types(sim.TypeOf[components.TwoLevelPopulation[T]]()),
	}
}

func (s *TwoLevelPopulationSystem[T]) Setup(store *sim.Store) error {
	s.filter = ecs.NewFilter4[T, components.RateCoefficients[T], components.CoolingLaserSamplerMasks, components.TwoLevelPopulation[T]](store.World())
	return nil
}

func (s *TwoLevelPopulationSystem[T]) Run(ctx *sim.Context) error {
	gamma := species.Gamma[T]()

	s.rows = s.rows[:0]
	ctx.Store().Query(func() {
		query := s.filter.Query()
		for query.Next() {
			_, rates, masks, pop := query.Get()
			s.rows = append(s.rows, populationRow[T]{rates: rates, masks: masks, pop: pop})
		}
	})

	ctx.ParallelFor(len(s.rows), func(start, end int) {
		for i := start; i < end; i++ {
			r := s.rows[i]
			r.pop.Excited = SteadyStateExcited(SumActiveRates(r.rates, r.masks), gamma)
			r.pop.CalculateGroundState()
		}
	})
	return nil
}
