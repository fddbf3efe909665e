package sim

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/pthm-cable/lasercool/components"
)

// Options configures a Builder.
type Options struct {
	// Workers sizes the data-parallel worker pool (0 = GOMAXPROCS).
	Workers int
	// Timestep is the integration step in seconds (0 = DefaultTimestep).
	Timestep float64
	// ConsoleInterval is the number of steps between progress logs (0 = DefaultConsoleInterval).
	ConsoleInterval uint64
	// Logger receives engine and system logs (nil = slog.Default()).
	Logger *slog.Logger
	// Observer receives tick and system timings (nil = none).
	Observer Observer
}

// Builder accumulates plugins, component registrations, resources and the
// named execution graph of a simulation.
//
// The first error of any builder operation is sticky: later operations are
// ignored and Build returns it, so a misconfigured simulation never starts.
type Builder struct {
	opts  Options
	store *Store

	regions [][]*node
	nodes   map[string]*node
	outputs []*node

	plugins       []Plugin
	pluginNames   map[string]struct{}
	endFrameAdded bool
	built         bool
	err           error
}

// NewBuilder creates a builder seeded with the core atom components and the
// integrate-position and clear-force systems.
func NewBuilder(opts Options) *Builder {
	if opts.Timestep <= 0 {
		opts.Timestep = DefaultTimestep
	}
	if opts.ConsoleInterval == 0 {
		opts.ConsoleInterval = DefaultConsoleInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Observer == nil {
		opts.Observer = noopObserver{}
	}

	b := &Builder{
		opts:        opts,
		store:       NewStore(),
		regions:     [][]*node{nil},
		nodes:       make(map[string]*node),
		pluginNames: make(map[string]struct{}),
	}

	Register[components.Position](b.store)
	Register[components.Velocity](b.store)
	Register[components.Force](b.store)
	Register[components.OldForce](b.store)
	Register[components.Mass](b.store)
	InsertResource(b.store, &Timestep{Delta: opts.Timestep})

	b.AddSystem(IntegratePositionSystemName, &IntegratePositionSystem{})
	b.AddSystem(ClearForceSystemName, &ClearForceSystem{}, IntegratePositionSystemName)
	return b
}

// Store returns the store the simulation will run on. Setup code uses it to
// register components, insert resources and create the initial entities.
func (b *Builder) Store() *Store {
	return b.store
}

// Err returns the first error recorded by the builder.
func (b *Builder) Err() error {
	return b.err
}

func (b *Builder) fail(err error) error {
	if b.err == nil {
		b.err = err
	}
	return err
}

// AddPlugin checks that every dependency of p was added before and then lets
// p build into the builder.
func (b *Builder) AddPlugin(p Plugin) error {
	if b.err != nil {
		return b.err
	}
	if b.built {
		return b.fail(fmt.Errorf("add plugin %s: %w", p.Name(), ErrBuilderFrozen))
	}
	if _, ok := b.pluginNames[p.Name()]; ok {
		return b.fail(fmt.Errorf("%w: %s", ErrDuplicatePlugin, p.Name()))
	}
	for _, dep := range p.Deps() {
		if _, ok := b.pluginNames[dep]; !ok {
			return b.fail(fmt.Errorf("%w: cannot add plugin %s: it requires plugin %s, which has not yet been added",
				ErrMissingDependency, p.Name(), dep))
		}
	}

	if err := p.Build(b); err != nil {
		return b.fail(fmt.Errorf("build plugin %s: %w", p.Name(), err))
	}
	b.plugins = append(b.plugins, p)
	b.pluginNames[p.Name()] = struct{}{}
	b.opts.Logger.Debug("plugin added", "plugin", p.Name())
	return nil
}

// Plugins returns the names of the added plugins in order.
func (b *Builder) Plugins() []string {
	names := make([]string, len(b.plugins))
	for i, p := range b.plugins {
		names[i] = p.Name()
	}
	return names
}

// HasPlugin reports whether a plugin with the given name was added.
func (b *Builder) HasPlugin(name string) bool {
	_, ok := b.pluginNames[name]
	return ok
}

// AddSystem appends a named system to the current region. Every name in deps
// must refer to a system added earlier; predecessors in an earlier region are
// already ordered by the barrier between them.
func (b *Builder) AddSystem(name string, sys System, deps ...string) error {
	if b.err != nil {
		return b.err
	}
	n, err := b.newNode(name, sys, deps)
	if err != nil {
		return b.fail(err)
	}
	b.appendNode(n)
	return nil
}

// AddOutputSystem queues an I/O-bearing system for the output stage that runs
// after the end-frame barrier and the console output.
func (b *Builder) AddOutputSystem(name string, sys System, deps ...string) error {
	if b.err != nil {
		return b.err
	}
	if b.endFrameAdded {
		return b.AddSystem(name, sys, deps...)
	}
	n, err := b.newNode(name, sys, nil)
	if err != nil {
		return b.fail(err)
	}
	n.deps = deps
	b.outputs = append(b.outputs, n)
	return nil
}

// AddBarrier closes the current region.
func (b *Builder) AddBarrier() {
	if b.err != nil || b.built {
		return
	}
	b.regions = append(b.regions, nil)
}

// AddEndFrameSystems appends the barrier, velocity integration, console
// output and any queued output systems. Build calls it if it was not called.
func (b *Builder) AddEndFrameSystems() error {
	if b.err != nil {
		return b.err
	}
	if b.endFrameAdded {
		return nil
	}
	b.AddBarrier()
	if err := b.AddSystem(IntegrateVelocitySystemName, &IntegrateVelocitySystem{}); err != nil {
		return err
	}
	console := &ConsoleOutputSystem{Interval: b.opts.ConsoleInterval, Logger: b.opts.Logger}
	if err := b.AddSystem(ConsoleOutputSystemName, console, IntegrateVelocitySystemName); err != nil {
		return err
	}
	b.endFrameAdded = true

	outputs := b.outputs
	b.outputs = nil
	for _, n := range outputs {
		if err := b.checkDeps(n.name, n.deps); err != nil {
			return b.fail(err)
		}
		b.appendNode(n)
	}
	return nil
}

// Build validates the graph, prepares every system and returns the runnable
// simulation. The builder cannot be used afterwards.
func (b *Builder) Build() (*Simulation, error) {
	if b.err != nil {
		return nil, b.err
	}
	if b.built {
		return nil, ErrBuilderFrozen
	}
	if err := b.AddEndFrameSystems(); err != nil {
		return nil, err
	}

	InsertResource(b.store, &Step{})

	for _, nodes := range b.regions {
		for _, n := range nodes {
			if err := b.checkRegistered(n); err != nil {
				return nil, b.fail(err)
			}
			if s, ok := n.sys.(SetupSystem); ok {
				if err := s.Setup(b.store); err != nil {
					return nil, b.fail(fmt.Errorf("setup system %s: %w", n.name, err))
				}
			}
		}
	}

	pool := newWorkerPool(b.opts.Workers)
	dispatcher := newDispatcher(b.regions, pool, b.opts.Observer)
	b.built = true

	b.opts.Logger.Info("simulation built",
		"plugins", b.Plugins(),
		"regions", len(dispatcher.regions),
		"workers", pool.numWorkers,
	)

	return &Simulation{
		store:      b.store,
		dispatcher: dispatcher,
		pool:       pool,
		observer:   b.opts.Observer,
		logger:     b.opts.Logger,
	}, nil
}

func (b *Builder) newNode(name string, sys System, deps []string) (*node, error) {
	if b.built {
		return nil, fmt.Errorf("add system %s: %w", name, ErrBuilderFrozen)
	}
	if name == "" {
		return nil, fmt.Errorf("%w: empty system name", ErrUnknownSystem)
	}
	if b.nameTaken(name) {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateSystem, name)
	}
	if err := b.checkDeps(name, deps); err != nil {
		return nil, err
	}
	access := sys.Access()
	if err := access.validate(name); err != nil {
		return nil, err
	}
	return &node{
		name:   name,
		sys:    sys,
		access: access,
		deps:   deps,
		logger: b.opts.Logger.With("system", name),
	}, nil
}

func (b *Builder) appendNode(n *node) {
	n.region = len(b.regions) - 1
	b.regions[n.region] = append(b.regions[n.region], n)
	b.nodes[n.name] = n
}

func (b *Builder) checkDeps(name string, deps []string) error {
	for _, dep := range deps {
		if _, ok := b.nodes[dep]; !ok {
			return fmt.Errorf("%w: %s depends on %q", ErrUnknownSystem, name, dep)
		}
	}
	return nil
}

func (b *Builder) nameTaken(name string) bool {
	if _, ok := b.nodes[name]; ok {
		return true
	}
	for _, o := range b.outputs {
		if o.name == name {
			return true
		}
	}
	return false
}

func (b *Builder) checkRegistered(n *node) error {
	for _, t := range slices.Concat(n.access.Reads, n.access.Writes) {
		if !b.store.registered(t) {
			return fmt.Errorf("%w: system %s borrows %v", ErrComponentNotRegistered, n.name, t)
		}
	}
	for _, t := range slices.Concat(n.access.ResourceReads, n.access.ResourceWrites) {
		if !b.store.hasResource(t) {
			return fmt.Errorf("%w: system %s borrows %v", ErrResourceNotFound, n.name, t)
		}
	}
	return nil
}
