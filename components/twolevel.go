package components

import (
	"fmt"
	"math"

	"github.com/pthm-cable/lasercool/species"
)

// TwoLevelPopulation is the steady-state occupation of the ground and excited
// state of transition T. Both values lie in [0,1] and sum to one once computed.
type TwoLevelPopulation[T species.Transition] struct {
	Ground  float64
	Excited float64
}

// NewTwoLevelPopulation returns an uncomputed population (both fields NaN).
func NewTwoLevelPopulation[T species.Transition]() TwoLevelPopulation[T] {
	return TwoLevelPopulation[T]{Ground: math.NaN(), Excited: math.NaN()}
}

// Computed reports whether the population has been written by the kernel.
func (p *TwoLevelPopulation[T]) Computed() bool {
	return !math.IsNaN(p.Ground) && !math.IsNaN(p.Excited)
}

// CalculateGroundState sets Ground from Excited.
func (p *TwoLevelPopulation[T]) CalculateGroundState() {
	p.Ground = 1 - p.Excited
}

// CalculateExcitedState sets Excited from Ground.
func (p *TwoLevelPopulation[T]) CalculateExcitedState() {
	p.Excited = 1 - p.Ground
}

func (p TwoLevelPopulation[T]) String() string {
	return fmt.Sprintf("g:%v,e:%v", p.Ground, p.Excited)
}
