package components

import (
	"fmt"

	"github.com/pthm-cable/lasercool/species"
)

// BeamLimit is the maximum number of laser beams ("lanes") an entity can
// interact with. Every lane-indexed component uses exactly this capacity.
const BeamLimit = 8

// LaserSamplerMask records whether a lane is filled by an active beam.
type LaserSamplerMask struct {
	Filled bool
}

// CoolingLaserSamplerMasks holds one mask per lane.
type CoolingLaserSamplerMasks struct {
	Contents [BeamLimit]LaserSamplerMask
}

// ActiveLanes returns masks with the first n lanes filled.
func ActiveLanes(n int) (CoolingLaserSamplerMasks, error) {
	if n < 0 || n > BeamLimit {
		return CoolingLaserSamplerMasks{}, fmt.Errorf("lane count %d outside [0, %d]", n, BeamLimit)
	}
	var m CoolingLaserSamplerMasks
	for i := 0; i < n; i++ {
		m.Contents[i].Filled = true
	}
	return m, nil
}

// Count returns the number of filled lanes.
func (m *CoolingLaserSamplerMasks) Count() int {
	n := 0
	for _, lane := range m.Contents {
		if lane.Filled {
			n++
		}
	}
	return n
}

// RateCoefficient is the excitation rate contributed by one beam, in 1/s.
type RateCoefficient struct {
	Rate float64
}

// RateCoefficients holds the per-lane excitation rates for transition T.
//
// Rates in lanes whose mask is not filled may be stale. Readers must consult
// CoolingLaserSamplerMasks rather than assume unused lanes are zeroed.
type RateCoefficients[T species.Transition] struct {
	Contents [BeamLimit]RateCoefficient
}

// Uniform returns rate coefficients with every lane set to rate.
func Uniform[T species.Transition](rate float64) RateCoefficients[T] {
	var rc RateCoefficients[T]
	for i := range rc.Contents {
		rc.Contents[i].Rate = rate
	}
	return rc
}
