package particle

// Particle is one simulated particle: 16 packed 32-bit floats (64 bytes, one
// cache line). The layout is the wire format handed to the rendering layer,
// so field order matters.
type Particle struct {
	X, Y, Z    float32 // position
	VX, VY, VZ float32 // velocity
	Age        float32 // seconds alive
	Lifetime   float32 // seconds until death; <= 0 means the slot is dead
	Mass       float32
	Size       float32
	Rotation   float32
	AngularVel float32
	R, G, B, A float32 // color
}

// Alive reports whether the particle participates in the simulation.
func (p *Particle) Alive() bool {
	return p.Lifetime > 0 && p.Age < p.Lifetime
}
