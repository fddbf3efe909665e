// Package main provides CMA-ES optimization of cooling-laser lane rates.
package main

import (
	"fmt"
	"math"

	"github.com/pthm-cable/lasercool/config"
)

// Bounds of a lane rate in log10(1/s).
const (
	minLogRate = 3.0
	maxLogRate = 10.0
)

// ParamSpec defines a single optimizable parameter.
type ParamSpec struct {
	Name    string  // Human-readable name
	Path    string  // Config path for logging
	Lane    int     // Index into lasers.lanes
	Min     float64 // Lower bound
	Max     float64 // Upper bound
	Default float64 // Default value
}

// ParamVector holds the set of all optimizable parameters.
type ParamVector struct {
	Specs []ParamSpec
}

// NewParamVector creates one log10 rate parameter per active lane of cfg.
// Inactive lanes never reach the kernel and are left alone.
func NewParamVector(cfg *config.Config) *ParamVector {
	pv := &ParamVector{}
	for i, lane := range cfg.Lasers.Lanes {
		if !lane.Active {
			continue
		}
		def := minLogRate
		if lane.Rate > 0 {
			def = math.Log10(lane.Rate)
		}
		pv.Specs = append(pv.Specs, ParamSpec{
			Name:    fmt.Sprintf("lane%d_log_rate", i),
			Path:    fmt.Sprintf("lasers.lanes[%d].rate", i),
			Lane:    i,
			Min:     minLogRate,
			Max:     maxLogRate,
			Default: def,
		})
	}
	return pv
}

// Dim returns the number of parameters.
func (pv *ParamVector) Dim() int {
	return len(pv.Specs)
}

// DefaultVector returns the default values for all parameters.
func (pv *ParamVector) DefaultVector() []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		v[i] = spec.Default
	}
	return v
}

// Normalize converts raw values to the [0,1] range.
func (pv *ParamVector) Normalize(raw []float64) []float64 {
	normalized := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		normalized[i] = (raw[i] - spec.Min) / (spec.Max - spec.Min)
	}
	return normalized
}

// Denormalize converts [0,1] values back to raw parameter values.
func (pv *ParamVector) Denormalize(normalized []float64) []float64 {
	raw := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		raw[i] = spec.Min + normalized[i]*(spec.Max-spec.Min)
	}
	return raw
}

// Clamp ensures all values are within bounds.
func (pv *ParamVector) Clamp(v []float64) []float64 {
	clamped := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		clamped[i] = math.Min(math.Max(v[i], spec.Min), spec.Max)
	}
	return clamped
}

// Rates converts raw log10 values into lane rates in 1/s.
func (pv *ParamVector) Rates(values []float64) []float64 {
	clamped := pv.Clamp(values)
	rates := make([]float64, len(clamped))
	for i, v := range clamped {
		rates[i] = math.Pow(10, v)
	}
	return rates
}

// ApplyToConfig writes the lane rates for values into cfg and recomputes
// its derived values.
func (pv *ParamVector) ApplyToConfig(cfg *config.Config, values []float64) error {
	for i, rate := range pv.Rates(values) {
		cfg.Lasers.Lanes[pv.Specs[i].Lane].Rate = rate
	}
	return cfg.Validate()
}

// ExtractFromConfig extracts current parameter values from cfg.
func (pv *ParamVector) ExtractFromConfig(cfg *config.Config) []float64 {
	v := make([]float64, len(pv.Specs))
	for i, spec := range pv.Specs {
		rate := cfg.Lasers.Lanes[spec.Lane].Rate
		if rate <= 0 {
			v[i] = spec.Min
			continue
		}
		v[i] = math.Log10(rate)
	}
	return v
}
