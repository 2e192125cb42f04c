package systems

import (
	"github.com/pthm-cable/plume/particle"
)

// BoundaryBehavior selects what happens when a particle crosses a bound.
type BoundaryBehavior uint8

const (
	BoundaryNone BoundaryBehavior = iota
	BoundaryKill
	BoundaryBounce
	BoundaryWrap
	BoundaryClamp
	BoundaryStick
)

// CollisionConfig holds world bounds with per-axis-independent behaviors and
// the optional particle-particle collision parameters.
type CollisionConfig struct {
	BoundsEnabled bool `yaml:"bounds_enabled"`

	Min Vec3 `yaml:"min"`
	Max Vec3 `yaml:"max"`

	BehaviorX BoundaryBehavior `yaml:"behavior_x"`
	BehaviorY BoundaryBehavior `yaml:"behavior_y"`
	BehaviorZ BoundaryBehavior `yaml:"behavior_z"`

	Bounciness float32 `yaml:"bounciness"`

	ParticleCollisions bool    `yaml:"particle_collisions"`
	ParticleRadius     float32 `yaml:"particle_radius"`
	Restitution        float32 `yaml:"restitution"`
	Friction           float32 `yaml:"friction"`
}

// Active reports whether any collision pass needs to run.
func (c *CollisionConfig) Active() bool {
	return c.BoundsEnabled || c.ParticleCollisions
}

// ApplyBounds runs the per-axis boundary pass over every live particle.
func ApplyBounds(cfg *CollisionConfig, buf []particle.Particle) {
	if !cfg.BoundsEnabled {
		return
	}
	for i := range buf {
		p := &buf[i]
		if !p.Alive() {
			continue
		}
		resolveAxis(p, &p.X, &p.VX, cfg.Min.X, cfg.Max.X, cfg.BehaviorX, cfg.Bounciness)
		resolveAxis(p, &p.Y, &p.VY, cfg.Min.Y, cfg.Max.Y, cfg.BehaviorY, cfg.Bounciness)
		resolveAxis(p, &p.Z, &p.VZ, cfg.Min.Z, cfg.Max.Z, cfg.BehaviorZ, cfg.Bounciness)
	}
}

// resolveAxis applies one axis's boundary behavior. Each axis is independent:
// a particle can bounce on X while wrapping on Y.
func resolveAxis(p *particle.Particle, pos, vel *float32, minB, maxB float32, b BoundaryBehavior, bounciness float32) {
	if b == BoundaryNone {
		return
	}
	below := *pos < minB
	above := *pos > maxB
	if !below && !above {
		return
	}

	switch b {
	case BoundaryKill:
		// Dies at the next liveness evaluation.
		p.Age = p.Lifetime

	case BoundaryBounce:
		if below {
			*pos = minB + (minB - *pos)
		} else {
			*pos = maxB - (*pos - maxB)
		}
		*vel = -*vel * bounciness

	case BoundaryWrap:
		// Teleport to the opposite bound, preserving overshoot.
		span := maxB - minB
		if span <= 0 {
			*pos = minB
			return
		}
		if below {
			*pos += span
		} else {
			*pos -= span
		}

	case BoundaryClamp:
		if below {
			*pos = minB
		} else {
			*pos = maxB
		}
		*vel = 0

	case BoundaryStick:
		if below {
			*pos = minB
		} else {
			*pos = maxB
		}
		p.VX, p.VY, p.VZ = 0, 0, 0
	}
}

// ApplyParticleCollisions resolves pairwise contacts with a mass-weighted
// elastic impulse and positional separation, using the shared grid for
// neighbor candidates. scratch is reused across calls.
func ApplyParticleCollisions(cfg *CollisionConfig, buf []particle.Particle, grid *Grid, scratch []int32) []int32 {
	if !cfg.ParticleCollisions || cfg.ParticleRadius <= 0 {
		return scratch
	}
	diameter := 2 * cfg.ParticleRadius
	diameterSq := diameter * diameter

	for i := range buf {
		p := &buf[i]
		if !p.Alive() {
			continue
		}
		scratch = grid.Neighbors(p.X, p.Y, p.Z, scratch[:0])
		for _, j := range scratch {
			// Each unordered pair is resolved exactly once.
			if int(j) <= i {
				continue
			}
			q := &buf[j]
			if !q.Alive() {
				continue
			}
			delta := Vec3{q.X - p.X, q.Y - p.Y, q.Z - p.Z}
			distSq := delta.LenSq()
			if distSq >= diameterSq || distSq < 1e-12 {
				continue
			}
			dist := sqrtf(distSq)
			normal := delta.Scale(1 / dist)

			mi := p.Mass
			if mi < MinMass {
				mi = MinMass
			}
			mj := q.Mass
			if mj < MinMass {
				mj = MinMass
			}

			relVel := Vec3{p.VX - q.VX, p.VY - q.VY, p.VZ - q.VZ}
			closing := relVel.Dot(normal)
			if closing > 0 {
				impulse := (1 + cfg.Restitution) * closing / (mi + mj)
				p.VX -= normal.X * impulse * mj
				p.VY -= normal.Y * impulse * mj
				p.VZ -= normal.Z * impulse * mj
				q.VX += normal.X * impulse * mi
				q.VY += normal.Y * impulse * mi
				q.VZ += normal.Z * impulse * mi

				if cfg.Friction > 0 {
					tangent := relVel.Sub(normal.Scale(closing))
					p.VX -= tangent.X * cfg.Friction * mj / (mi + mj)
					p.VY -= tangent.Y * cfg.Friction * mj / (mi + mj)
					p.VZ -= tangent.Z * cfg.Friction * mj / (mi + mj)
					q.VX += tangent.X * cfg.Friction * mi / (mi + mj)
					q.VY += tangent.Y * cfg.Friction * mi / (mi + mj)
					q.VZ += tangent.Z * cfg.Friction * mi / (mi + mj)
				}
			}

			// Separate the pair by half the overlap each.
			half := (diameter - dist) * 0.5
			p.X -= normal.X * half
			p.Y -= normal.Y * half
			p.Z -= normal.Z * half
			q.X += normal.X * half
			q.Y += normal.Y * half
			q.Z += normal.Z * half
		}
	}
	return scratch
}
