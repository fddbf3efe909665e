// Package components defines the ECS components of laser-cooled atoms.
package components

import "gonum.org/v1/gonum/spatial/r3"

// Physical constants used by the integrators.
const (
	// AMU is the atomic mass unit in kg.
	AMU = 1.660_539_066_60e-27
	// StandardGravity in m/s^2.
	StandardGravity = 9.806_65
	// Boltzmann constant in J/K.
	Boltzmann = 1.380_649e-23
)

// Atom marks an entity as a simulated atom.
type Atom struct{}

// NewlyCreated marks an atom during its first tick.
type NewlyCreated struct{}

// ToBeDestroyed marks an atom for deletion at the next commit.
type ToBeDestroyed struct{}

// Position of an atom in metres.
type Position struct {
	Pos r3.Vec
}

// Velocity of an atom in m/s.
type Velocity struct {
	Vel r3.Vec
}

// Force acting on an atom this tick, in newtons. Cleared every tick and
// accumulated by force systems.
type Force struct {
	Force r3.Vec
}

// OldForce is the force from the previous half step (velocity Verlet).
type OldForce struct {
	Force r3.Vec
}

// Mass of an atom in atomic mass units.
type Mass struct {
	Value float64
}

// Kg returns the mass in kilograms.
func (m Mass) Kg() float64 {
	return m.Value * AMU
}

// Lifetime counts down simulated seconds until the atom is removed.
type Lifetime struct {
	Remaining float64
}
