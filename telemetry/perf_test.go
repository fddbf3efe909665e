package telemetry

import (
	"sync"
	"testing"
	"time"
)

func runTick(pc *PerfCollector, step uint64, phases map[string]time.Duration, total time.Duration) {
	pc.TickStarted(step)
	for name, d := range phases {
		pc.SystemCompleted(name, d)
	}
	pc.TickCompleted(step, total)
}

func TestPerfCollector_BasicTiming(t *testing.T) {
	pc := NewPerfCollector(10)

	for i := uint64(0); i < 5; i++ {
		runTick(pc, i, map[string]time.Duration{
			"clear":              100 * time.Microsecond,
			"integrate-position": 300 * time.Microsecond,
		}, time.Millisecond)
	}

	stats := pc.Stats()
	if stats.AvgTickDuration != time.Millisecond {
		t.Errorf("avg tick = %v, want 1ms", stats.AvgTickDuration)
	}
	if stats.PhaseAvg["integrate-position"] != 300*time.Microsecond {
		t.Errorf("integrate-position avg = %v", stats.PhaseAvg["integrate-position"])
	}
	if pct := stats.PhasePct["clear"]; pct < 9.99 || pct > 10.01 {
		t.Errorf("clear pct = %v, want 10", pct)
	}
	if stats.TicksPerSecond < 999 || stats.TicksPerSecond > 1001 {
		t.Errorf("ticks/s = %v, want 1000", stats.TicksPerSecond)
	}
}

func TestPerfCollector_RollingWindow(t *testing.T) {
	pc := NewPerfCollector(5)

	// Old slow ticks fall out of the window.
	for i := uint64(0); i < 5; i++ {
		runTick(pc, i, nil, 10*time.Millisecond)
	}
	for i := uint64(5); i < 10; i++ {
		runTick(pc, i, nil, time.Millisecond)
	}

	stats := pc.Stats()
	if stats.MaxTickDuration != time.Millisecond {
		t.Errorf("max tick = %v, want 1ms", stats.MaxTickDuration)
	}
	if stats.MinTickDuration != time.Millisecond {
		t.Errorf("min tick = %v, want 1ms", stats.MinTickDuration)
	}
}

func TestPerfCollector_Empty(t *testing.T) {
	stats := NewPerfCollector(0).Stats()
	if stats.AvgTickDuration != 0 || stats.PhaseAvg == nil || stats.PhasePct == nil {
		t.Errorf("empty stats = %+v", stats)
	}
}

func TestPerfCollector_ConcurrentSystems(t *testing.T) {
	pc := NewPerfCollector(4)
	pc.TickStarted(0)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pc.SystemCompleted("kernel", time.Microsecond)
		}()
	}
	wg.Wait()
	pc.TickCompleted(0, 10*time.Microsecond)

	if got := pc.Stats().PhaseAvg["kernel"]; got != 8*time.Microsecond {
		t.Errorf("kernel avg = %v, want 8µs", got)
	}
}

func TestPerfStatsToCSV(t *testing.T) {
	pc := NewPerfCollector(2)
	runTick(pc, 0, map[string]time.Duration{"b": time.Microsecond, "a": 2 * time.Microsecond}, 4*time.Microsecond)

	rows := pc.Stats().ToCSV(7)
	want := []string{PhaseTick, "a", "b"}
	if len(rows) != len(want) {
		t.Fatalf("rows = %+v", rows)
	}
	for i, r := range rows {
		if r.System != want[i] || r.Step != 7 {
			t.Errorf("row %d = %+v, want system %s step 7", i, r, want[i])
		}
	}
	if rows[1].AvgUS != 2 || rows[1].Pct != 50 {
		t.Errorf("row a = %+v", rows[1])
	}
}
