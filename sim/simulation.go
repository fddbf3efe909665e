package sim

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Simulation is a built engine: a store and the dispatcher that drives it.
type Simulation struct {
	store      *Store
	dispatcher *Dispatcher
	pool       *workerPool
	observer   Observer
	logger     *slog.Logger

	// aborted holds the failure that stopped the simulation.
	aborted error
}

// Store returns the component store.
func (s *Simulation) Store() *Store {
	return s.store
}

// Dispatcher returns the execution graph.
func (s *Simulation) Dispatcher() *Dispatcher {
	return s.dispatcher
}

// StepCount returns the number of completed ticks.
func (s *Simulation) StepCount() uint64 {
	step, err := Resource[Step](s.store)
	if err != nil {
		return 0
	}
	return step.N
}

// Step runs one tick: every system of the graph, then the deferred-mutation
// commit, then the step counter increment. A failing tick aborts the
// simulation; every later call returns ErrSimulationAborted.
func (s *Simulation) Step() error {
	if s.aborted != nil {
		return fmt.Errorf("%w: %v", ErrSimulationAborted, s.aborted)
	}

	step, err := Resource[Step](s.store)
	if err != nil {
		return err
	}
	n := step.N

	s.observer.TickStarted(n)
	start := time.Now()

	s.store.beginTick()
	err = s.dispatcher.dispatch(s.store, n)
	s.store.endTick()
	if err != nil {
		s.aborted = err
		return fmt.Errorf("step %d: %w", n, err)
	}

	if err := s.store.Maintain(); err != nil {
		s.aborted = err
		return fmt.Errorf("step %d: commit: %w", n, err)
	}

	step.N++
	s.observer.TickCompleted(n, time.Since(start))
	return nil
}

// Run executes steps ticks. The context is checked between ticks only; a
// tick that has started always runs to completion.
func (s *Simulation) Run(ctx context.Context, steps int) error {
	for i := 0; i < steps; i++ {
		if err := ctx.Err(); err != nil {
			s.logger.Info("simulation interrupted", "step", s.StepCount())
			return err
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Close stops the worker pool.
func (s *Simulation) Close() {
	s.pool.stop()
}
