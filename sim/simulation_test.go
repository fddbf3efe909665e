package sim

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/pthm-cable/lasercool/components"
)

func TestStepCounter(t *testing.T) {
	b := NewBuilder(quietOptions())
	var steps []uint64
	err := b.AddSystem("record", SystemFunc{
		Borrows: Access{ResourceReads: Types(TypeOf[Step]())},
		Fn: func(ctx *Context) error {
			steps = append(steps, ctx.Step())
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	sim, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	if sim.StepCount() != 0 {
		t.Fatalf("StepCount after build = %d", sim.StepCount())
	}
	if err := sim.Run(context.Background(), 4); err != nil {
		t.Fatal(err)
	}
	if sim.StepCount() != 4 {
		t.Errorf("StepCount = %d, want 4", sim.StepCount())
	}
	for i, s := range steps {
		if s != uint64(i) {
			t.Errorf("steps = %v, want 0..3", steps)
			break
		}
	}
}

func TestSystemErrorAbortsSimulation(t *testing.T) {
	boom := errors.New("boom")
	b := NewBuilder(quietOptions())
	err := b.AddSystem("fail", SystemFunc{Fn: func(ctx *Context) error {
		if ctx.Step() == 1 {
			return boom
		}
		return nil
	}})
	if err != nil {
		t.Fatal(err)
	}
	sim, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	if err := sim.Step(); err != nil {
		t.Fatalf("first step: %v", err)
	}
	if err := sim.Step(); !errors.Is(err, boom) {
		t.Fatalf("second step err = %v, want boom", err)
	}
	if err := sim.Step(); !errors.Is(err, ErrSimulationAborted) {
		t.Errorf("third step err = %v, want ErrSimulationAborted", err)
	}
	if sim.StepCount() != 1 {
		t.Errorf("StepCount = %d, want 1", sim.StepCount())
	}
}

func TestDeleteDuringTickCommitsAtEnd(t *testing.T) {
	b := NewBuilder(quietOptions())
	s := b.Store()
	col := Register[probe](s)
	e, _ := s.NewEntity()
	_ = col.Insert(e, probe{V: 5})

	err := b.AddSystem("delete", SystemFunc{
		Borrows: Access{Reads: Types(TypeOf[probe]())},
		Fn: func(ctx *Context) error {
			return ctx.Store().Delete(e)
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	b.AddBarrier()
	var readable bool
	err = b.AddSystem("read", SystemFunc{
		Borrows: Access{Reads: Types(TypeOf[probe]())},
		Fn: func(ctx *Context) error {
			p, ok := col.Get(e)
			readable = ok && p.V == 5
			return nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	sim, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	if err := sim.Step(); err != nil {
		t.Fatal(err)
	}
	if !readable {
		t.Error("entity not readable later in the tick that deleted it")
	}
	if s.Alive(e) {
		t.Error("entity alive after the tick")
	}
}

func TestStructuralChangeInSystemFails(t *testing.T) {
	b := NewBuilder(quietOptions())
	err := b.AddSystem("spawn", SystemFunc{Fn: func(ctx *Context) error {
		_, err := ctx.Store().NewEntity()
		return err
	}})
	if err != nil {
		t.Fatal(err)
	}
	sim, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	if err := sim.Step(); !errors.Is(err, ErrStructuralChangeInTick) {
		t.Errorf("err = %v, want ErrStructuralChangeInTick", err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	b := NewBuilder(quietOptions())
	sim, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := sim.Run(ctx, 10); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
	if sim.StepCount() != 0 {
		t.Errorf("StepCount = %d, want 0", sim.StepCount())
	}
}

type countingObserver struct {
	ticks   atomic.Int32
	systems atomic.Int32
}

func (o *countingObserver) TickStarted(uint64)                    {}
func (o *countingObserver) SystemCompleted(string, time.Duration) { o.systems.Add(1) }
func (o *countingObserver) TickCompleted(uint64, time.Duration)   { o.ticks.Add(1) }

func TestObserverCallbacks(t *testing.T) {
	obs := &countingObserver{}
	opts := quietOptions()
	opts.Observer = obs
	sim, err := NewBuilder(opts).Build()
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	if err := sim.Run(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	if obs.ticks.Load() != 2 {
		t.Errorf("ticks = %d, want 2", obs.ticks.Load())
	}
	// integrate-position, clear, integrate-velocity, console-output
	if obs.systems.Load() != 8 {
		t.Errorf("systems = %d, want 8", obs.systems.Load())
	}
}

func TestFreeFlight(t *testing.T) {
	const dt = 1e-6
	opts := quietOptions()
	opts.Timestep = dt
	b := NewBuilder(opts)
	s := b.Store()

	var atoms []Entity
	for i := 0; i < 100; i++ {
		e, _ := s.NewEntity()
		_ = Insert(s, e, components.Position{})
		_ = Insert(s, e, components.Velocity{Vel: r3.Vec{X: float64(i), Y: 1}})
		_ = Insert(s, e, components.Force{})
		_ = Insert(s, e, components.OldForce{})
		_ = Insert(s, e, components.Mass{Value: 87})
		atoms = append(atoms, e)
	}

	sim, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	const steps = 10
	if err := sim.Run(context.Background(), steps); err != nil {
		t.Fatal(err)
	}

	for i, e := range atoms {
		pos, _ := Get[components.Position](s, e)
		wantX := float64(i) * dt * steps
		if math.Abs(pos.Pos.X-wantX) > 1e-12 || math.Abs(pos.Pos.Y-dt*steps) > 1e-12 {
			t.Errorf("atom %d at %v, want (%v, %v, 0)", i, pos.Pos, wantX, dt*steps)
		}
	}
}

func TestVerletConstantForce(t *testing.T) {
	const dt = 1e-3
	opts := quietOptions()
	opts.Timestep = dt
	b := NewBuilder(opts)
	s := b.Store()

	e, _ := s.NewEntity()
	_ = Insert(s, e, components.Position{})
	_ = Insert(s, e, components.Velocity{})
	_ = Insert(s, e, components.Force{})
	_ = Insert(s, e, components.OldForce{})
	_ = Insert(s, e, components.Mass{Value: 1 / components.AMU})

	// A constant unit force on a 1 kg atom, applied after the clear.
	force := Register[components.Force](s)
	err := b.AddSystem("push", SystemFunc{
		Borrows: Access{Writes: Types(TypeOf[components.Force]())},
		Fn: func(*Context) error {
			f, _ := force.Get(e)
			f.Force.X += 1
			return nil
		},
	}, ClearForceSystemName)
	if err != nil {
		t.Fatal(err)
	}

	sim, err := b.Build()
	if err != nil {
		t.Fatal(err)
	}
	defer sim.Close()

	// Prime the force so the first position update sees it too.
	f, _ := force.Get(e)
	f.Force.X = 1

	const steps = 100
	if err := sim.Run(context.Background(), steps); err != nil {
		t.Fatal(err)
	}

	tEnd := dt * steps
	vel, _ := Get[components.Velocity](s, e)
	pos, _ := Get[components.Position](s, e)
	if math.Abs(vel.Vel.X-tEnd) > 1e-9 {
		t.Errorf("v = %v, want %v", vel.Vel.X, tEnd)
	}
	if math.Abs(pos.Pos.X-0.5*tEnd*tEnd) > 1e-9 {
		t.Errorf("x = %v, want %v", pos.Pos.X, 0.5*tEnd*tEnd)
	}
}
