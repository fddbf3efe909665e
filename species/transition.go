// Package species defines the atomic optical transitions the simulation knows about.
//
// Each transition is a zero-size marker type. Attaching the marker to an entity
// selects which transition its laser-cooling components refer to, and the
// marker's methods expose the fixed optical constants of that transition.
package species

import "math"

// Transition exposes the fixed optical constants of one atomic transition.
//
// Implementations must return a strictly positive linewidth. This is not
// checked at runtime; a non-positive value makes the steady-state population
// undefined.
type Transition interface {
	// Name is a short, stable identifier used in system names and config.
	Name() string
	// Frequency of the transition in Hz.
	Frequency() float64
	// Linewidth is the natural linewidth in Hz (not angular).
	Linewidth() float64
	// SaturationIntensity in W/m^2.
	SaturationIntensity() float64
}

// Gamma returns the natural decay rate Γ = 2π·linewidth of T in rad/s.
func Gamma[T Transition]() float64 {
	var t T
	return 2 * math.Pi * t.Linewidth()
}

// Wavelength returns the vacuum wavelength of T in metres.
func Wavelength[T Transition]() float64 {
	var t T
	return SpeedOfLight / t.Frequency()
}

// SpeedOfLight in m/s.
const SpeedOfLight = 299_792_458.0
