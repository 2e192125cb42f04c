package systems

import (
	"github.com/pthm-cable/plume/particle"
)

// TriggerKind selects which lifecycle event fires a sub-emitter.
type TriggerKind uint8

const (
	// TriggerDeath fires when a parent particle's age crosses its lifetime.
	TriggerDeath TriggerKind = iota
)

// AnyParent matches every emitter in a sub-emitter's parent filter.
const AnyParent = "*"

// SubEmitterConfig spawns derived particles when a parent particle dies.
// Position is always inherited; velocity, size, color, and rotation blend
// between the parent's values and fresh draws by the inherit fractions.
type SubEmitterConfig struct {
	ID           string      `yaml:"id"`
	ParentFilter string      `yaml:"parent_filter"` // emitter id or "*"
	Trigger      TriggerKind `yaml:"trigger"`
	Probability  float32     `yaml:"probability"`

	InheritVelocity float32 `yaml:"inherit_velocity"`
	InheritSize     float32 `yaml:"inherit_size"`
	InheritColor    float32 `yaml:"inherit_color"`
	InheritRotation float32 `yaml:"inherit_rotation"`

	EmitCount     int `yaml:"emit_count"`
	CountVariance int `yaml:"count_variance"`

	// Override holds the emitter parameters for the spawned children.
	Override EmitterConfig `yaml:"override"`
}

// ApplyDefaults normalizes the filter and override parameters.
func (s *SubEmitterConfig) ApplyDefaults() {
	if s.ParentFilter == "" {
		s.ParentFilter = AnyParent
	}
	if s.Probability == 0 {
		s.Probability = 1
	}
	if s.Override.Spread == 0 {
		// Full-sphere explosion cone unless the override narrows it.
		s.Override.Spread = pi
	}
	s.Override.ApplyDefaults()
}

// Matches reports whether the sub-emitter listens to deaths from the given
// parent emitter id.
func (s *SubEmitterConfig) Matches(parentID string) bool {
	return s.ParentFilter == AnyParent || s.ParentFilter == parentID
}

// ChildCount draws the number of children for one death.
func (s *SubEmitterConfig) ChildCount(rng *particle.Rand) int {
	n := s.EmitCount
	if s.CountVariance > 0 {
		n += int(rng.Range(0, float32(s.CountVariance)))
	}
	if n < 0 {
		n = 0
	}
	return n
}

// SpawnChild initializes a child particle from a dead parent's captured
// state and the sub-emitter's override parameters.
func SpawnChild(p *particle.Particle, s *SubEmitterConfig, parent *particle.Particle, rng *particle.Rand) {
	o := &s.Override

	dir := SampleDirection(o.Direction, o.Spread, rng)
	speed := rng.Range(o.Speed.Base, o.Speed.Variance)
	lifetime := rng.Range(o.Lifetime.Base, o.Lifetime.Variance)
	if lifetime < 0.01 {
		lifetime = 0.01
	}
	mass := rng.Range(o.Mass.Base, o.Mass.Variance)
	size := rng.Range(o.Size.Base, o.Size.Variance)
	freshRot := o.RotationBase + rng.Uniform(o.RotationVariance)
	angVel := rng.Range(o.AngularVel.Base, o.AngularVel.Variance)

	// Explosion-cone velocity blended with the parent's.
	vel := dir.Scale(speed)
	vel.X += parent.VX * s.InheritVelocity
	vel.Y += parent.VY * s.InheritVelocity
	vel.Z += parent.VZ * s.InheritVelocity

	if s.InheritSize > 0 {
		size *= s.InheritSize * parent.Size
	}
	rotation := freshRot*(1-s.InheritRotation) + parent.Rotation*s.InheritRotation

	p.X, p.Y, p.Z = parent.X, parent.Y, parent.Z
	p.VX, p.VY, p.VZ = vel.X, vel.Y, vel.Z
	p.Age = 0
	p.Lifetime = lifetime
	p.Mass = mass
	p.Size = size
	p.Rotation = rotation
	p.AngularVel = angVel
	p.R = o.ColorStart[0]*(1-s.InheritColor) + parent.R*s.InheritColor
	p.G = o.ColorStart[1]*(1-s.InheritColor) + parent.G*s.InheritColor
	p.B = o.ColorStart[2]*(1-s.InheritColor) + parent.B*s.InheritColor
	p.A = o.ColorStart[3]*(1-s.InheritColor) + parent.A*s.InheritColor
}
