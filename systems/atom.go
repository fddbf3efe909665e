// Package systems contains the physics plugins of the simulation.
package systems

import (
	"errors"

	"github.com/mlange-42/ark/ecs"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/lasercool/components"
	"github.com/pthm-cable/lasercool/sim"
)

// Plugin and system names.
const (
	AtomPluginName         = "atom"
	DeflagSystemName       = "deflag-newly-created"
	GravityPluginName      = "gravity"
	GravitySystemName      = "add-gravity"
	DestroyAtomsPluginName = "destroy-atoms"
	DestroyAtomsSystemName = "delete-to-be-destroyed"
	LifetimePluginName     = "lifetime"
	LifetimeSystemName     = "lifetime"
)

// AtomPlugin registers the atom markers and removes NewlyCreated from atoms
// at the end of their first tick.
type AtomPlugin struct{}

func (AtomPlugin) Name() string   { return AtomPluginName }
func (AtomPlugin) Deps() []string { return nil }

func (AtomPlugin) Build(b *sim.Builder) error {
	s := b.Store()
	sim.Register[components.Atom](s)
	sim.Register[components.NewlyCreated](s)
	sim.Register[components.ToBeDestroyed](s)
	return b.AddSystem(DeflagSystemName, &DeflagSystem{})
}

// DeflagSystem queues removal of NewlyCreated from every atom carrying it.
type DeflagSystem struct {
	filter   *ecs.Filter1[components.NewlyCreated]
	entities []sim.Entity
}

func (s *DeflagSystem) Access() sim.Access {
	return sim.Access{Reads: sim.Types(sim.TypeOf[components.NewlyCreated]())}
}

func (s *DeflagSystem) Setup(store *sim.Store) error {
	s.filter = ecs.NewFilter1[components.NewlyCreated](store.World())
	return nil
}

func (s *DeflagSystem) Run(ctx *sim.Context) error {
	s.entities = s.entities[:0]
	ctx.Store().Query(func() {
		query := s.filter.Query()
		for query.Next() {
			s.entities = append(s.entities, query.Entity())
		}
	})

	cmds := ctx.Commands()
	for _, e := range s.entities {
		sim.RemoveLater[components.NewlyCreated](cmds, e)
	}
	return nil
}

// AtomSpec is the initial state of a spawned atom.
type AtomSpec struct {
	Position r3.Vec
	Velocity r3.Vec
	// Mass in atomic mass units.
	Mass float64
}

// SpawnAtom creates an atom immediately. It is a setup operation; systems
// use SpawnAtomLater.
func SpawnAtom(s *sim.Store, spec AtomSpec) (sim.Entity, error) {
	e, err := s.NewEntity()
	if err != nil {
		return e, err
	}
	return e, attachAtom(s, e, spec)
}

// SpawnAtomLater queues the creation of an atom for the end-of-tick commit.
// extra, if not nil, attaches further components to the new atom.
func SpawnAtomLater(c *sim.Commands, spec AtomSpec, extra func(s *sim.Store, e sim.Entity) error) {
	c.Spawn(func(s *sim.Store, e sim.Entity) error {
		if err := attachAtom(s, e, spec); err != nil {
			return err
		}
		if extra != nil {
			return extra(s, e)
		}
		return nil
	})
}

func attachAtom(s *sim.Store, e sim.Entity, spec AtomSpec) error {
	return errors.Join(
		sim.Insert(s, e, components.Position{Pos: spec.Position}),
		sim.Insert(s, e, components.Velocity{Vel: spec.Velocity}),
		sim.Insert(s, e, components.Force{}),
		sim.Insert(s, e, components.OldForce{}),
		sim.Insert(s, e, components.Mass{Value: spec.Mass}),
		sim.Insert(s, e, components.Atom{}),
		sim.Insert(s, e, components.NewlyCreated{}),
	)
}
