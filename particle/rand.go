// Package particle provides the fixed-capacity particle store and the
// deterministic random source the simulation is built on.
package particle

// Rand is a seeded linear-congruential generator. It is the sole source of
// randomness in the simulation; its state is explicit so the frame cache can
// snapshot and restore it for bit-identical replay.
type Rand struct {
	state int64
}

// NewRand creates a generator seeded with the given value.
func NewRand(seed int64) *Rand {
	r := &Rand{}
	r.Seed(seed)
	return r
}

// Seed resets the generator to an explicit seed. Equivalent to a full reset.
func (r *Rand) Seed(seed int64) {
	r.state = seed & 0x7FFFFFFF
}

// State returns the internal state for snapshotting.
func (r *Rand) State() int64 {
	return r.state
}

// SetState restores a previously captured state.
func (r *Rand) SetState(s int64) {
	r.state = s
}

// Float32 returns the next value in [0, 1).
func (r *Rand) Float32() float32 {
	r.state = (r.state*1103515245 + 12345) & 0x7FFFFFFF
	return float32(r.state) / float32(0x80000000)
}

// Range draws base +/- variance, uniformly.
func (r *Rand) Range(base, variance float32) float32 {
	return base + (r.Float32()-0.5)*2*variance
}

// Uniform draws uniformly in [0, v).
func (r *Rand) Uniform(v float32) float32 {
	return r.Float32() * v
}
