package sim

import (
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// Observer receives timing callbacks from the tick loop. Implementations must
// be safe for concurrent SystemCompleted calls.
type Observer interface {
	TickStarted(step uint64)
	SystemCompleted(name string, elapsed time.Duration)
	TickCompleted(step uint64, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) TickStarted(uint64)                    {}
func (noopObserver) SystemCompleted(string, time.Duration) {}
func (noopObserver) TickCompleted(uint64, time.Duration)   {}

// node is one named system in the execution graph.
type node struct {
	name   string
	sys    System
	access Access
	deps   []string
	region int
	logger *slog.Logger
}

// Dispatcher is the immutable execution graph built from a Builder.
//
// The graph is split into regions by barriers. Every system of a region
// finishes before any system of the next region starts. Inside a region the
// systems are grouped into stages: a system sits in a later stage than each of
// its predecessors, and no two systems of one stage have conflicting Access.
// Systems of one stage run concurrently.
type Dispatcher struct {
	regions  [][][]*node
	pool     *workerPool
	observer Observer
}

func newDispatcher(regions [][]*node, pool *workerPool, observer Observer) *Dispatcher {
	d := &Dispatcher{pool: pool, observer: observer}
	for _, nodes := range regions {
		d.regions = append(d.regions, assignStages(nodes))
	}
	return d
}

// assignStages places each node, in registration order, into the earliest
// stage after its same-region predecessors that holds no conflicting node.
func assignStages(nodes []*node) [][]*node {
	var stages [][]*node
	stageOf := make(map[string]int, len(nodes))

	for _, n := range nodes {
		first := 0
		for _, dep := range n.deps {
			if s, ok := stageOf[dep]; ok && s+1 > first {
				first = s + 1
			}
		}

		stage := first
		for ; stage < len(stages); stage++ {
			if !conflictsWithStage(n, stages[stage]) {
				break
			}
		}
		if stage == len(stages) {
			stages = append(stages, nil)
		}
		stages[stage] = append(stages[stage], n)
		stageOf[n.name] = stage
	}
	return stages
}

func conflictsWithStage(n *node, stage []*node) bool {
	for _, other := range stage {
		if n.access.ConflictsWith(other.access) {
			return true
		}
	}
	return false
}

// Stages returns the system names per stage per region.
func (d *Dispatcher) Stages() [][][]string {
	out := make([][][]string, len(d.regions))
	for r, stages := range d.regions {
		out[r] = make([][]string, len(stages))
		for s, nodes := range stages {
			for _, n := range nodes {
				out[r][s] = append(out[r][s], n.name)
			}
		}
	}
	return out
}

// dispatch runs every region and stage in order. The first failing system
// aborts the remaining stages; systems already running in its stage finish.
func (d *Dispatcher) dispatch(store *Store, step uint64) error {
	for _, stages := range d.regions {
		for _, stage := range stages {
			if err := d.runStage(stage, store, step); err != nil {
				return err
			}
		}
	}
	return nil
}

func (d *Dispatcher) runStage(stage []*node, store *Store, step uint64) error {
	if len(stage) == 1 {
		return d.runNode(stage[0], store, step)
	}

	var g errgroup.Group
	for _, n := range stage {
		g.Go(func() error {
			return d.runNode(n, store, step)
		})
	}
	return g.Wait()
}

func (d *Dispatcher) runNode(n *node, store *Store, step uint64) error {
	ctx := &Context{store: store, pool: d.pool, node: n, step: step}
	start := time.Now()
	err := n.sys.Run(ctx)
	d.observer.SystemCompleted(n.name, time.Since(start))
	if err != nil {
		return fmt.Errorf("system %s: %w", n.name, err)
	}
	return nil
}
