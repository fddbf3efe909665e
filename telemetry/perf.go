package telemetry

import (
	"log/slog"
	"sort"
	"sync"
	"time"
)

// PhaseTick is the pseudo-phase for the whole tick in CSV output.
const PhaseTick = "tick"

// PerfSample holds timing data for a single tick.
type PerfSample struct {
	TickDuration time.Duration
	Phases       map[string]time.Duration
}

// PerfCollector tracks per-system timings over a rolling window. It
// implements sim.Observer; systems of one stage report concurrently.
type PerfCollector struct {
	mu            sync.Mutex
	windowSize    int
	samples       []PerfSample
	writeIndex    int
	sampleCount   int
	currentPhases map[string]time.Duration
}

// NewPerfCollector creates a new performance collector.
// windowSize: number of ticks to average over.
func NewPerfCollector(windowSize int) *PerfCollector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &PerfCollector{
		windowSize:    windowSize,
		samples:       make([]PerfSample, windowSize),
		currentPhases: make(map[string]time.Duration),
	}
}

// TickStarted begins a new sample.
func (p *PerfCollector) TickStarted(uint64) {
	p.mu.Lock()
	p.currentPhases = make(map[string]time.Duration)
	p.mu.Unlock()
}

// SystemCompleted adds the run time of one system to the current sample.
func (p *PerfCollector) SystemCompleted(name string, elapsed time.Duration) {
	p.mu.Lock()
	p.currentPhases[name] += elapsed
	p.mu.Unlock()
}

// TickCompleted records the current sample.
func (p *PerfCollector) TickCompleted(_ uint64, elapsed time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.samples[p.writeIndex] = PerfSample{
		TickDuration: elapsed,
		Phases:       p.currentPhases,
	}
	p.writeIndex = (p.writeIndex + 1) % p.windowSize
	if p.sampleCount < p.windowSize {
		p.sampleCount++
	}
}

// PerfStats holds aggregated performance statistics.
type PerfStats struct {
	// Tick timing
	AvgTickDuration time.Duration
	MinTickDuration time.Duration
	MaxTickDuration time.Duration

	// Per-system average durations
	PhaseAvg map[string]time.Duration

	// Per-system share of total tick time. Systems of one stage overlap, so
	// the shares can add up to more than 100.
	PhasePct map[string]float64

	// Throughput
	TicksPerSecond float64
}

// Stats computes aggregated statistics over the current window.
func (p *PerfCollector) Stats() PerfStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.sampleCount == 0 {
		return PerfStats{
			PhaseAvg: make(map[string]time.Duration),
			PhasePct: make(map[string]float64),
		}
	}

	var totalTick time.Duration
	var minTick, maxTick time.Duration
	phaseSum := make(map[string]time.Duration)

	for i := 0; i < p.sampleCount; i++ {
		s := p.samples[i]
		totalTick += s.TickDuration

		if i == 0 || s.TickDuration < minTick {
			minTick = s.TickDuration
		}
		if s.TickDuration > maxTick {
			maxTick = s.TickDuration
		}

		for phase, dur := range s.Phases {
			phaseSum[phase] += dur
		}
	}

	avgTick := totalTick / time.Duration(p.sampleCount)

	phaseAvg := make(map[string]time.Duration)
	phasePct := make(map[string]float64)
	for phase, sum := range phaseSum {
		phaseAvg[phase] = sum / time.Duration(p.sampleCount)
		if avgTick > 0 {
			phasePct[phase] = float64(phaseAvg[phase]) / float64(avgTick) * 100
		}
	}

	var ticksPerSec float64
	if avgTick > 0 {
		ticksPerSec = float64(time.Second) / float64(avgTick)
	}

	return PerfStats{
		AvgTickDuration: avgTick,
		MinTickDuration: minTick,
		MaxTickDuration: maxTick,
		PhaseAvg:        phaseAvg,
		PhasePct:        phasePct,
		TicksPerSecond:  ticksPerSec,
	}
}

// LogValue implements slog.LogValuer for structured logging.
func (s PerfStats) LogValue() slog.Value {
	attrs := []slog.Attr{
		slog.Int64("avg_tick_us", s.AvgTickDuration.Microseconds()),
		slog.Int64("min_tick_us", s.MinTickDuration.Microseconds()),
		slog.Int64("max_tick_us", s.MaxTickDuration.Microseconds()),
		slog.Float64("ticks_per_sec", s.TicksPerSecond),
	}
	for _, phase := range s.phases() {
		if pct := s.PhasePct[phase]; pct > 0.1 {
			attrs = append(attrs, slog.Float64(phase+"_pct", pct))
		}
	}
	return slog.GroupValue(attrs...)
}

func (s PerfStats) phases() []string {
	names := make([]string, 0, len(s.PhaseAvg))
	for name := range s.PhaseAvg {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PerfStatsCSV is one row of perf.csv: the average of one system, or of the
// whole tick, over the window ending at Step.
type PerfStatsCSV struct {
	Step   uint64  `csv:"step"`
	System string  `csv:"system"`
	AvgUS  int64   `csv:"avg_us"`
	Pct    float64 `csv:"pct"`
	MinUS  int64   `csv:"min_us"`
	MaxUS  int64   `csv:"max_us"`
}

// ToCSV flattens PerfStats into rows, the tick row first and systems sorted by name.
func (s PerfStats) ToCSV(step uint64) []PerfStatsCSV {
	rows := []PerfStatsCSV{{
		Step:   step,
		System: PhaseTick,
		AvgUS:  s.AvgTickDuration.Microseconds(),
		Pct:    100,
		MinUS:  s.MinTickDuration.Microseconds(),
		MaxUS:  s.MaxTickDuration.Microseconds(),
	}}
	for _, phase := range s.phases() {
		rows = append(rows, PerfStatsCSV{
			Step:   step,
			System: phase,
			AvgUS:  s.PhaseAvg[phase].Microseconds(),
			Pct:    s.PhasePct[phase],
		})
	}
	return rows
}
