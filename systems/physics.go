package systems

import (
	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/lasercool/components"
	"github.com/pthm-cable/lasercool/sim"
)

// GravityPlugin adds a constant downward (-z) force m·g to every atom.
type GravityPlugin struct {
	// G is the gravitational acceleration in m/s^2 (0 = StandardGravity).
	G float64
}

func (GravityPlugin) Name() string   { return GravityPluginName }
func (GravityPlugin) Deps() []string { return []string{AtomPluginName} }

func (p GravityPlugin) Build(b *sim.Builder) error {
	g := p.G
	if g == 0 {
		g = components.StandardGravity
	}
	return b.AddSystem(GravitySystemName, &GravitySystem{G: g}, sim.ClearForceSystemName)
}

type gravityRow struct {
	force *components.Force
	mass  *components.Mass
}

// GravitySystem accumulates the gravitational force into Force.
type GravitySystem struct {
	G float64

	filter *ecs.Filter3[components.Atom, components.Force, components.Mass]
	rows   []gravityRow
}

func (s *GravitySystem) Access() sim.Access {
	return sim.Access{
		Reads:  sim.Types(sim.TypeOf[components.Atom](), sim.TypeOf[components.Mass]()),
		Writes: sim.Types(sim.TypeOf[components.Force]()),
	}
}

func (s *GravitySystem) Setup(store *sim.Store) error {
	s.filter = ecs.NewFilter3[components.Atom, components.Force, components.Mass](store.World())
	return nil
}

func (s *GravitySystem) Run(ctx *sim.Context) error {
	s.rows = s.rows[:0]
	ctx.Store().Query(func() {
		query := s.filter.Query()
		for query.Next() {
			_, force, mass := query.Get()
			s.rows = append(s.rows, gravityRow{force: force, mass: mass})
		}
	})

	ctx.ParallelFor(len(s.rows), func(start, end int) {
		for i := start; i < end; i++ {
			r := s.rows[i]
			r.force.Force = r3.Add(r.force.Force, r3.Vec{Z: -r.mass.Kg() * s.G})
		}
	})
	return nil
}
