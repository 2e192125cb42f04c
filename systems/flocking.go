package systems

import (
	"github.com/pthm-cable/plume/particle"
)

// FlockingConfig holds boid steering radii and weights.
type FlockingConfig struct {
	Enabled bool `yaml:"enabled"`

	SeparationRadius float32 `yaml:"separation_radius"`
	AlignmentRadius  float32 `yaml:"alignment_radius"`
	CohesionRadius   float32 `yaml:"cohesion_radius"`

	SeparationWeight float32 `yaml:"separation_weight"`
	AlignmentWeight  float32 `yaml:"alignment_weight"`
	CohesionWeight   float32 `yaml:"cohesion_weight"`

	MaxForce float32 `yaml:"max_force"`
	MaxSpeed float32 `yaml:"max_speed"`

	// PerceptionAngle culls neighbors outside a forward half-angle cone.
	// Zero disables the cull.
	PerceptionAngle float32 `yaml:"perception_angle"`
}

// ApplyFlocking steers every live particle toward separation, alignment,
// and cohesion with its grid neighbors, mutating velocities in place.
// scratch is reused across calls for neighbor queries.
func ApplyFlocking(cfg *FlockingConfig, buf []particle.Particle, grid *Grid, dt float32, scratch []int32) []int32 {
	maxR := cfg.SeparationRadius
	if cfg.AlignmentRadius > maxR {
		maxR = cfg.AlignmentRadius
	}
	if cfg.CohesionRadius > maxR {
		maxR = cfg.CohesionRadius
	}
	if maxR <= 0 {
		return scratch
	}

	cosPerception := float32(-2) // sentinel: no cull
	if cfg.PerceptionAngle > 0 {
		cosPerception = cosf(cfg.PerceptionAngle)
	}

	for i := range buf {
		p := &buf[i]
		if !p.Alive() {
			continue
		}

		pos := Vec3{p.X, p.Y, p.Z}
		vel := Vec3{p.VX, p.VY, p.VZ}
		speed := vel.Len()
		var forward Vec3
		useFOV := cosPerception > -2 && speed > 1e-4
		if useFOV {
			forward = vel.Scale(1 / speed)
		}

		scratch = grid.Neighbors(p.X, p.Y, p.Z, scratch[:0])

		var sep, align, coh Vec3
		var alignCount, cohCount int

		for _, j := range scratch {
			if int(j) == i {
				continue
			}
			q := &buf[j]
			if !q.Alive() {
				continue
			}
			delta := Vec3{q.X - p.X, q.Y - p.Y, q.Z - p.Z}
			distSq := delta.LenSq()
			if distSq < 1e-10 {
				continue
			}
			dist := sqrtf(distSq)

			// Field-of-view cull; undefined facing at ~zero speed skips it.
			if useFOV && forward.Dot(delta.Scale(1/dist)) < cosPerception {
				continue
			}

			if dist < cfg.SeparationRadius {
				// Inverse-distance weighted repulsion.
				sep = sep.Add(delta.Scale(-1 / (dist * dist)))
			}
			if dist < cfg.AlignmentRadius {
				align = align.Add(Vec3{q.VX, q.VY, q.VZ})
				alignCount++
			}
			if dist < cfg.CohesionRadius {
				coh = coh.Add(Vec3{q.X, q.Y, q.Z})
				cohCount++
			}
		}

		var force Vec3
		if sep.LenSq() > 0 {
			force = force.Add(sep.Normalized().Scale(cfg.SeparationWeight))
		}
		if alignCount > 0 {
			desired := align.Scale(1 / float32(alignCount)).Sub(vel)
			if desired.LenSq() > 0 {
				force = force.Add(desired.Normalized().Scale(cfg.AlignmentWeight))
			}
		}
		if cohCount > 0 {
			centroid := coh.Scale(1 / float32(cohCount))
			toward := centroid.Sub(pos)
			if toward.LenSq() > 0 {
				force = force.Add(toward.Normalized().Scale(cfg.CohesionWeight))
			}
		}

		force = force.ClampLen(cfg.MaxForce)
		vel = vel.Add(force.Scale(dt))
		if cfg.MaxSpeed > 0 {
			vel = vel.ClampLen(cfg.MaxSpeed)
		}
		p.VX, p.VY, p.VZ = vel.X, vel.Y, vel.Z
	}
	return scratch
}
