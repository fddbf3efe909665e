package sim

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/lasercool/components"
)

// Names of the built-in systems. Plugins use them as predecessors to order
// themselves around the core integration.
const (
	IntegratePositionSystemName = "integrate-position"
	ClearForceSystemName        = "clear"
	IntegrateVelocitySystemName = "integrate-velocity"
	ConsoleOutputSystemName     = "console-output"
)

// Defaults for Options.
const (
	DefaultTimestep        = 1.0e-6
	DefaultConsoleInterval = 100
)

// Step counts completed ticks. It is zero after Build.
type Step struct {
	N uint64
}

// Timestep is the integration step in seconds.
type Timestep struct {
	Delta float64
}

type positionRow struct {
	pos   *components.Position
	vel   *components.Velocity
	force *components.Force
	old   *components.OldForce
	mass  *components.Mass
}

// IntegratePositionSystem advances positions by one velocity-Verlet half step
// and stores the current force for the velocity update.
type IntegratePositionSystem struct {
	filter *ecs.Filter5[components.Position, components.Velocity, components.Force, components.OldForce, components.Mass]
	rows   []positionRow
}

func (s *IntegratePositionSystem) Access() Access {
	return Access{
		Reads:         Types(TypeOf[components.Velocity](), TypeOf[components.Force](), TypeOf[components.Mass]()),
		Writes:        Types(TypeOf[components.Position](), TypeOf[components.OldForce]()),
		ResourceReads: Types(TypeOf[Timestep]()),
	}
}

func (s *IntegratePositionSystem) Setup(store *Store) error {
	s.filter = ecs.NewFilter5[components.Position, components.Velocity, components.Force, components.OldForce, components.Mass](store.World())
	return nil
}

func (s *IntegratePositionSystem) Run(ctx *Context) error {
	ts, err := Resource[Timestep](ctx.Store())
	if err != nil {
		return err
	}
	dt := ts.Delta

	s.rows = s.rows[:0]
	ctx.Store().Query(func() {
		query := s.filter.Query()
		for query.Next() {
			pos, vel, force, old, mass := query.Get()
			s.rows = append(s.rows, positionRow{pos: pos, vel: vel, force: force, old: old, mass: mass})
		}
	})

	ctx.ParallelFor(len(s.rows), func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			r := &s.rows[i]
			accel := r3.Scale(1/r.mass.Kg(), r.force.Force)
			step := r3.Add(r3.Scale(dt, r.vel.Vel), r3.Scale(0.5*dt*dt, accel))
			r.pos.Pos = r3.Add(r.pos.Pos, step)
			r.old.Force = r.force.Force
		}
	})
	return nil
}

// ClearForceSystem zeroes the force on every entity so force systems can
// accumulate into it.
type ClearForceSystem struct {
	filter *ecs.Filter1[components.Force]
	rows   []*components.Force
}

func (s *ClearForceSystem) Access() Access {
	return Access{Writes: Types(TypeOf[components.Force]())}
}

func (s *ClearForceSystem) Setup(store *Store) error {
	s.filter = ecs.NewFilter1[components.Force](store.World())
	return nil
}

func (s *ClearForceSystem) Run(ctx *Context) error {
	s.rows = s.rows[:0]
	ctx.Store().Query(func() {
		query := s.filter.Query()
		for query.Next() {
			s.rows = append(s.rows, query.Get())
		}
	})

	ctx.ParallelFor(len(s.rows), func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			s.rows[i].Force = r3.Vec{}
		}
	})
	return nil
}

type velocityRow struct {
	vel   *components.Velocity
	force *components.Force
	old   *components.OldForce
	mass  *components.Mass
}

// IntegrateVelocitySystem completes the velocity-Verlet step using the mean
// of the old and new force.
type IntegrateVelocitySystem struct {
	filter *ecs.Filter4[components.Velocity, components.Force, components.OldForce, components.Mass]
	rows   []velocityRow
}

func (s *IntegrateVelocitySystem) Access() Access {
	return Access{
		Reads:         Types(TypeOf[components.Force](), TypeOf[components.OldForce](), TypeOf[components.Mass]()),
		Writes:        Types(TypeOf[components.Velocity]()),
		ResourceReads: Types(TypeOf[Timestep]()),
	}
}

func (s *IntegrateVelocitySystem) Setup(store *Store) error {
	s.filter = ecs.NewFilter4[components.Velocity, components.Force, components.OldForce, components.Mass](store.World())
	return nil
}

func (s *IntegrateVelocitySystem) Run(ctx *Context) error {
	ts, err := Resource[Timestep](ctx.Store())
	if err != nil {
		return err
	}
	dt := ts.Delta

	s.rows = s.rows[:0]
	ctx.Store().Query(func() {
		query := s.filter.Query()
		for query.Next() {
			vel, force, old, mass := query.Get()
			s.rows = append(s.rows, velocityRow{vel: vel, force: force, old: old, mass: mass})
		}
	})

	ctx.ParallelFor(len(s.rows), func(i0, i1 int) {
		for i := i0; i < i1; i++ {
			r := &s.rows[i]
			mean := r3.Add(r.force.Force, r.old.Force)
			r.vel.Vel = r3.Add(r.vel.Vel, r3.Scale(0.5*dt/r.mass.Kg(), mean))
		}
	})
	return nil
}
