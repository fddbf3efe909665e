package telemetry

import (
	"log/slog"

	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/lasercool/components"
	"github.com/pthm-cable/lasercool/sim"
	"github.com/pthm-cable/lasercool/species"
	"github.com/pthm-cable/lasercool/systems"
)

// Plugin and system names.
const (
	TrajectoryPluginName = "trajectory-output"
	TrajectorySystemName = "trajectory-output"
)

// PopulationStatsSystemName returns the name of the stats system for T. It
// is also the name of the plugin that adds it.
func PopulationStatsSystemName[T species.Transition]() string {
	var t T
	return "population-stats/" + t.Name()
}

// TrajectoryPlugin writes every atom's position and velocity to the output
// every Interval steps.
type TrajectoryPlugin struct {
	Interval uint64
	Output   *OutputManager
}

func (TrajectoryPlugin) Name() string   { return TrajectoryPluginName }
func (TrajectoryPlugin) Deps() []string { return []string{systems.AtomPluginName} }

func (p TrajectoryPlugin) Build(b *sim.Builder) error {
	return b.AddOutputSystem(TrajectorySystemName, &TrajectorySystem{Interval: p.Interval, Output: p.Output})
}

// TrajectorySystem snapshots atom states into TrajectoryRecords.
type TrajectorySystem struct {
	Interval uint64
	Output   *OutputManager

	filter  *ecs.Filter3[components.Atom, components.Position, components.Velocity]
	records []TrajectoryRecord
}

func (s *TrajectorySystem) Access() sim.Access {
	return sim.Access{
		Reads: sim.Types(
			sim.TypeOf[components.Atom](),
			sim.TypeOf[components.Position](),
			sim.TypeOf[components.Velocity](),
		),
	}
}

func (s *TrajectorySystem) Setup(store *sim.Store) error {
	s.filter = ecs.NewFilter3[components.Atom, components.Position, components.Velocity](store.World())
	return nil
}

func (s *TrajectorySystem) Run(ctx *sim.Context) error {
	if s.Interval == 0 || ctx.Step()%s.Interval != 0 {
		return nil
	}

	step := ctx.Step()
	s.records = s.records[:0]
	ctx.Store().Query(func() {
		query := s.filter.Query()
		for query.Next() {
			_, pos, vel := query.Get()
			s.records = append(s.records, TrajectoryRecord{
				Step: step,
				Atom: query.Entity().ID(),
				PosX: pos.Pos.X, PosY: pos.Pos.Y, PosZ: pos.Pos.Z,
				VelX: vel.Vel.X, VelY: vel.Vel.Y, VelZ: vel.Vel.Z,
			})
		}
	})
	return s.Output.WriteTrajectory(s.records)
}

// PopulationStatsPlugin logs and records cloud statistics for atoms of
// transition T every Interval steps.
type PopulationStatsPlugin[T species.Transition] struct {
	Interval uint64
	Output   *OutputManager
	Logger   *slog.Logger
}

func (PopulationStatsPlugin[T]) Name() string { return PopulationStatsSystemName[T]() }

func (PopulationStatsPlugin[T]) Deps() []string {
	return []string{systems.AtomPluginName, systems.TwoLevelSystemName[T]()}
}

func (p PopulationStatsPlugin[T]) Build(b *sim.Builder) error {
	return b.AddOutputSystem(PopulationStatsSystemName[T](), &PopulationStatsSystem[T]{
		Interval: p.Interval,
		Output:   p.Output,
		Logger:   p.Logger,
	})
}

// PopulationStatsSystem gathers a PopulationSample and reduces it to
// PopulationStats.
type PopulationStatsSystem[T species.Transition] struct {
	Interval uint64
	Output   *OutputManager
	Logger   *slog.Logger

	filter     *ecs.Filter4[T, components.Position, components.Velocity, components.Mass]
	population *ecs.Map[components.TwoLevelPopulation[T]]
	sample     PopulationSample
	last       PopulationStats
}

func (s *PopulationStatsSystem[T]) Access() sim.Access {
	return sim.Access{
		Reads: sim.Types(
			sim.TypeOf[T](),
			sim.TypeOf[components.Position](),
			sim.TypeOf[components.Velocity](),
			sim.TypeOf[components.Mass](),
			sim.TypeOf[components.TwoLevelPopulation[T]](),
		),
		ResourceReads: sim.Types(sim.TypeOf[sim.Timestep]()),
	}
}

func (s *PopulationStatsSystem[T]) Setup(store *sim.Store) error {
	s.filter = ecs.NewFilter4[T, components.Position, components.Velocity, components.Mass](store.World())
	s.population = ecs.NewMap[components.TwoLevelPopulation[T]](store.World())
	return nil
}

// Last returns the most recently computed stats.
func (s *PopulationStatsSystem[T]) Last() PopulationStats {
	return s.last
}

func (s *PopulationStatsSystem[T]) Run(ctx *sim.Context) error {
	if s.Interval == 0 || ctx.Step()%s.Interval != 0 {
		return nil
	}
	ts, err := sim.Resource[sim.Timestep](ctx.Store())
	if err != nil {
		return err
	}

	s.sample.Reset()
	ctx.Store().Query(func() {
		query := s.filter.Query()
		for query.Next() {
			_, pos, vel, mass := query.Get()
			s.sample.Positions = append(s.sample.Positions, pos.Pos)
			s.sample.Velocities = append(s.sample.Velocities, vel.Vel)
			s.sample.Masses = append(s.sample.Masses, mass.Kg())

			e := query.Entity()
			if !s.population.Has(e) {
				continue
			}
			if pop := s.population.Get(e); pop.Computed() {
				s.sample.Excited = append(s.sample.Excited, pop.Excited)
			}
		}
	})

	stats := ComputePopulationStats(&s.sample)
	stats.Step = ctx.Step()
	stats.SimTime = float64(ctx.Step()+1) * ts.Delta
	s.last = stats

	logger := s.Logger
	if logger == nil {
		logger = ctx.Logger()
	}
	logger.Info("population", "stats", stats)
	return s.Output.WritePopulation(stats)
}
