package systems

import "github.com/pthm-cable/lasercool/sim"

// NewDefaultBuilder returns a builder with the atom, gravity and atom
// destruction plugins already added. Errors are recorded in the builder and
// returned by Build.
func NewDefaultBuilder(opts sim.Options) *sim.Builder {
	b := sim.NewBuilder(opts)
	for _, p := range []sim.Plugin{AtomPlugin{}, GravityPlugin{}, DestroyAtomsPlugin{}} {
		if err := b.AddPlugin(p); err != nil {
			break
		}
	}
	return b
}
