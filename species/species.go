package species

import (
	"fmt"
	"sort"
)

// Rubidium87_780D2 is the 5S1/2 -> 5P3/2 cooling transition of Rb-87.
type Rubidium87_780D2 struct{}

func (Rubidium87_780D2) Name() string                 { return "rubidium87_780d2" }
func (Rubidium87_780D2) Frequency() float64           { return SpeedOfLight / 780.0e-9 }
func (Rubidium87_780D2) Linewidth() float64           { return 6.065e6 }
func (Rubidium87_780D2) SaturationIntensity() float64 { return 16.69 }

// Strontium88_461 is the broad 1S0 -> 1P1 blue transition of Sr-88.
type Strontium88_461 struct{}

func (Strontium88_461) Name() string                 { return "strontium88_461" }
func (Strontium88_461) Frequency() float64           { return SpeedOfLight / 460.7e-9 }
func (Strontium88_461) Linewidth() float64           { return 32.0e6 }
func (Strontium88_461) SaturationIntensity() float64 { return 430.0 }

// Strontium88_689 is the narrow 1S0 -> 3P1 intercombination line of Sr-88.
type Strontium88_689 struct{}

func (Strontium88_689) Name() string                 { return "strontium88_689" }
func (Strontium88_689) Frequency() float64           { return SpeedOfLight / 689.0e-9 }
func (Strontium88_689) Linewidth() float64           { return 7.5e3 }
func (Strontium88_689) SaturationIntensity() float64 { return 0.03 }

// Lithium7_671D2 is the D2 line of Li-7.
type Lithium7_671D2 struct{}

func (Lithium7_671D2) Name() string                 { return "lithium7_671d2" }
func (Lithium7_671D2) Frequency() float64           { return SpeedOfLight / 670.96e-9 }
func (Lithium7_671D2) Linewidth() float64           { return 5.87e6 }
func (Lithium7_671D2) SaturationIntensity() float64 { return 25.4 }

// Erbium167_583 is the narrow 583 nm line of Er-167.
type Erbium167_583 struct{}

func (Erbium167_583) Name() string                 { return "erbium167_583" }
func (Erbium167_583) Frequency() float64           { return SpeedOfLight / 582.84e-9 }
func (Erbium167_583) Linewidth() float64           { return 190.0e3 }
func (Erbium167_583) SaturationIntensity() float64 { return 1.3 }

var catalogue = map[string]Transition{
	Rubidium87_780D2{}.Name(): Rubidium87_780D2{},
	Strontium88_461{}.Name():  Strontium88_461{},
	Strontium88_689{}.Name():  Strontium88_689{},
	Lithium7_671D2{}.Name():   Lithium7_671D2{},
	Erbium167_583{}.Name():    Erbium167_583{},
}

// Lookup returns the transition registered under name.
func Lookup(name string) (Transition, error) {
	t, ok := catalogue[name]
	if !ok {
		return nil, fmt.Errorf("unknown transition %q (known: %v)", name, Names())
	}
	return t, nil
}

// Names lists the known transition names in sorted order.
func Names() []string {
	names := make([]string, 0, len(catalogue))
	for name := range catalogue {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
