package systems

import (
	"github.com/mlange-42/ark/ecs"

	"github.com/pthm-cable/lasercool/components"
	"github.com/pthm-cable/lasercool/sim"
)

// DestroyAtomsPlugin deletes every atom marked ToBeDestroyed at the end of
// the tick.
type DestroyAtomsPlugin struct{}

func (DestroyAtomsPlugin) Name() string   { return DestroyAtomsPluginName }
func (DestroyAtomsPlugin) Deps() []string { return []string{AtomPluginName} }

func (DestroyAtomsPlugin) Build(b *sim.Builder) error {
	return b.AddSystem(DestroyAtomsSystemName, &DestroyAtomsSystem{})
}

// DestroyAtomsSystem queues marked atoms for deletion.
type DestroyAtomsSystem struct {
	filter   *ecs.Filter1[components.ToBeDestroyed]
	entities []sim.Entity
}

func (s *DestroyAtomsSystem) Access() sim.Access {
	return sim.Access{Reads: sim.Types(sim.TypeOf[components.ToBeDestroyed]())}
}

func (s *DestroyAtomsSystem) Setup(store *sim.Store) error {
	s.filter = ecs.NewFilter1[components.ToBeDestroyed](store.World())
	return nil
}

func (s *DestroyAtomsSystem) Run(ctx *sim.Context) error {
	s.entities = s.entities[:0]
	ctx.Store().Query(func() {
		query := s.filter.Query()
		for query.Next() {
			s.entities = append(s.entities, query.Entity())
		}
	})

	for _, e := range s.entities {
		if err := ctx.Store().Delete(e); err != nil {
			return err
		}
	}
	return nil
}

// LifetimePlugin counts down Lifetime and deletes atoms whose time is up.
type LifetimePlugin struct{}

func (LifetimePlugin) Name() string   { return LifetimePluginName }
func (LifetimePlugin) Deps() []string { return []string{AtomPluginName} }

func (LifetimePlugin) Build(b *sim.Builder) error {
	sim.Register[components.Lifetime](b.Store())
	return b.AddSystem(LifetimeSystemName, &LifetimeSystem{})
}

type lifetimeRow struct {
	entity   sim.Entity
	lifetime *components.Lifetime
}

// LifetimeSystem decrements Lifetime by one timestep per tick.
type LifetimeSystem struct {
	filter *ecs.Filter1[components.Lifetime]
	rows   []lifetimeRow
}

func (s *LifetimeSystem) Access() sim.Access {
	return sim.Access{
		Writes:        sim.Types(sim.TypeOf[components.Lifetime]()),
		ResourceReads: sim.Types(sim.TypeOf[sim.Timestep]()),
	}
}

func (s *LifetimeSystem) Setup(store *sim.Store) error {
	s.filter = ecs.NewFilter1[components.Lifetime](store.World())
	return nil
}

func (s *LifetimeSystem) Run(ctx *sim.Context) error {
	ts, err := sim.Resource[sim.Timestep](ctx.Store())
	if err != nil {
		return err
	}

	s.rows = s.rows[:0]
	ctx.Store().Query(func() {
		query := s.filter.Query()
		for query.Next() {
			s.rows = append(s.rows, lifetimeRow{entity: query.Entity(), lifetime: query.Get()})
		}
	})

	for _, r := range s.rows {
		r.lifetime.Remaining -= ts.Delta
		if r.lifetime.Remaining > 0 {
			continue
		}
		if err := ctx.Store().Delete(r.entity); err != nil {
			return err
		}
	}
	return nil
}
