package telemetry

import (
	"log/slog"
	"math"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/lasercool/components"
)

// PopulationStats summarizes the atom cloud at one step.
type PopulationStats struct {
	Step    uint64  `csv:"step"`
	SimTime float64 `csv:"sim_time"`
	Atoms   int     `csv:"atoms"`

	// Excited-state fraction over atoms with a computed population
	Computed    int     `csv:"computed"`
	ExcitedMean float64 `csv:"excited_mean"`
	ExcitedStd  float64 `csv:"excited_std"`
	ExcitedP10  float64 `csv:"excited_p10"`
	ExcitedP50  float64 `csv:"excited_p50"`
	ExcitedP90  float64 `csv:"excited_p90"`

	// Kinetics
	SpeedMean   float64 `csv:"speed_mean"`    // m/s
	Temperature float64 `csv:"temperature"`   // K, from mean kinetic energy
	CloudX      float64 `csv:"cloud_sigma_x"` // m
	CloudY      float64 `csv:"cloud_sigma_y"` // m
	CloudZ      float64 `csv:"cloud_sigma_z"` // m
}

// PopulationSample is the raw per-atom data the stats are computed from.
// Positions, Velocities and Masses are parallel slices; Excited only holds
// computed populations.
type PopulationSample struct {
	Positions  []r3.Vec
	Velocities []r3.Vec
	Masses     []float64 // kg
	Excited    []float64
}

// Reset empties the sample, keeping its capacity.
func (p *PopulationSample) Reset() {
	p.Positions = p.Positions[:0]
	p.Velocities = p.Velocities[:0]
	p.Masses = p.Masses[:0]
	p.Excited = p.Excited[:0]
}

// ComputePopulationStats aggregates a sample. Empty inputs give zeros.
func ComputePopulationStats(sample *PopulationSample) PopulationStats {
	stats := PopulationStats{
		Atoms:    len(sample.Positions),
		Computed: len(sample.Excited),
	}
	stats.ExcitedMean, stats.ExcitedStd, stats.ExcitedP10, stats.ExcitedP50, stats.ExcitedP90 = Distribution(sample.Excited)

	n := len(sample.Velocities)
	if n == 0 {
		return stats
	}

	speeds := make([]float64, n)
	var kinetic float64
	for i, v := range sample.Velocities {
		speeds[i] = r3.Norm(v)
		kinetic += sample.Masses[i] * r3.Norm2(v)
	}
	stats.SpeedMean = stat.Mean(speeds, nil)
	stats.Temperature = kinetic / (3 * components.Boltzmann * float64(n))

	xs := make([]float64, n)
	ys := make([]float64, n)
	zs := make([]float64, n)
	for i, p := range sample.Positions {
		xs[i], ys[i], zs[i] = p.X, p.Y, p.Z
	}
	stats.CloudX = stdDev(xs)
	stats.CloudY = stdDev(ys)
	stats.CloudZ = stdDev(zs)
	return stats
}

// Distribution returns the mean, standard deviation and 10th/50th/90th
// percentiles of values. It returns zeros for an empty slice.
func Distribution(values []float64) (mean, std, p10, p50, p90 float64) {
	if len(values) == 0 {
		return 0, 0, 0, 0, 0
	}

	mean = stat.Mean(values, nil)
	std = stdDev(values)

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	p10 = stat.Quantile(0.10, stat.Empirical, sorted, nil)
	p50 = stat.Quantile(0.50, stat.Empirical, sorted, nil)
	p90 = stat.Quantile(0.90, stat.Empirical, sorted, nil)
	return mean, std, p10, p50, p90
}

// stdDev is the sample standard deviation, zero for fewer than two values.
func stdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	sd := stat.StdDev(values, nil)
	if math.IsNaN(sd) {
		return 0
	}
	return sd
}

// LogValue implements slog.LogValuer for structured logging.
func (s PopulationStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Uint64("step", s.Step),
		slog.Float64("sim_time", s.SimTime),
		slog.Int("atoms", s.Atoms),
		slog.Int("computed", s.Computed),
		slog.Float64("excited_mean", s.ExcitedMean),
		slog.Float64("excited_std", s.ExcitedStd),
		slog.Float64("excited_p10", s.ExcitedP10),
		slog.Float64("excited_p50", s.ExcitedP50),
		slog.Float64("excited_p90", s.ExcitedP90),
		slog.Float64("speed_mean", s.SpeedMean),
		slog.Float64("temperature", s.Temperature),
		slog.Float64("cloud_sigma_x", s.CloudX),
		slog.Float64("cloud_sigma_y", s.CloudY),
		slog.Float64("cloud_sigma_z", s.CloudZ),
	)
}
