package systems

import (
	"github.com/pthm-cable/plume/particle"
)

// EmitterShape selects how spawn positions are sampled.
type EmitterShape uint8

const (
	ShapePoint EmitterShape = iota
	ShapeCircle
	ShapeSphere
	ShapeBox
	ShapeLine
	ShapeCone
	ShapeSpline
	ShapeImage
	ShapeDepthEdge
)

// rejection sampling budget for image and depth-edge shapes
const maxMaskPicks = 100

// ScalarRange draws base +/- variance.
type ScalarRange struct {
	Base     float32 `yaml:"base"`
	Variance float32 `yaml:"variance"`
}

// PixelMask is an opaque alpha buffer consumed by image-shaped emitters.
// Decoding is the asset layer's concern; the emitter only tests alpha.
type PixelMask struct {
	Width, Height int
	Alpha         []float32
	Threshold     float32
}

// DepthMap is an opaque depth buffer consumed by depth-edge emitters.
type DepthMap struct {
	Width, Height     int
	Depth             []float32
	GradientThreshold float32
}

// SplineFunc maps t in [0, 1] to a world position. Provided by the host for
// spline-shaped emission.
type SplineFunc func(t float32) (x, y, z float32)

// EmitterConfig describes one emitter: shape, emission rate, and the initial
// value ranges for spawned particles.
type EmitterConfig struct {
	ID      string `yaml:"id"`
	Enabled bool   `yaml:"enabled"`

	Shape    EmitterShape `yaml:"shape"`
	Position Vec3         `yaml:"position"`

	Radius       float32 `yaml:"radius"`        // circle, sphere, cone
	EdgeOnly     bool    `yaml:"edge_only"`     // circle/sphere rim or surface only
	HalfExtents  Vec3    `yaml:"half_extents"`  // box
	LineEnd      Vec3    `yaml:"line_end"`      // line
	ConeHeight   float32 `yaml:"cone_height"`   // cone
	ImageExtents Vec3    `yaml:"image_extents"` // mask plane world size; Z scales depth

	Mask   *PixelMask `yaml:"-"`
	Depth  *DepthMap  `yaml:"-"`
	Spline SplineFunc `yaml:"-"`

	Rate         float32 `yaml:"rate"` // particles per second
	RateVariance float32 `yaml:"rate_variance"`
	BurstCount   int     `yaml:"burst_count"`
	BeatBurst    bool    `yaml:"beat_burst"` // burst on external beat triggers

	Speed      ScalarRange `yaml:"speed"`
	Size       ScalarRange `yaml:"size"`
	Mass       ScalarRange `yaml:"mass"`
	Lifetime   ScalarRange `yaml:"lifetime"`
	AngularVel ScalarRange `yaml:"angular_vel"`

	RotationBase     float32 `yaml:"rotation_base"`
	RotationVariance float32 `yaml:"rotation_variance"`

	ColorStart    [4]float32 `yaml:"color_start"`
	ColorEnd      [4]float32 `yaml:"color_end"`
	ColorVariance float32    `yaml:"color_variance"`

	Direction       Vec3    `yaml:"direction"`
	Spread          float32 `yaml:"spread"` // cone half-angle, radians
	InheritVelocity float32 `yaml:"inherit_velocity"`

	SizeOverLife    *Curve `yaml:"size_over_life,omitempty"`
	OpacityOverLife *Curve `yaml:"opacity_over_life,omitempty"`
}

// ApplyDefaults fills absent optional fields with usable constants.
func (e *EmitterConfig) ApplyDefaults() {
	if (e.Direction == Vec3{}) {
		e.Direction = Vec3{Y: 1}
	}
	if e.Lifetime.Base == 0 {
		e.Lifetime.Base = 1
	}
	if e.Mass.Base == 0 {
		e.Mass.Base = 1
	}
	if e.Size.Base == 0 {
		e.Size.Base = 1
	}
	if e.ColorStart == ([4]float32{}) {
		e.ColorStart = [4]float32{1, 1, 1, 1}
	}
	if e.ColorEnd == ([4]float32{}) {
		e.ColorEnd = e.ColorStart
	}
}

// EmitterState is the runtime-only side of an emitter: the fractional spawn
// accumulator and the velocity derived from emitter movement, both of which
// the frame cache snapshots.
type EmitterState struct {
	Accumulator float32
	PrevPos     Vec3
	Velocity    Vec3
}

// Accumulate adds rate*dt to the fractional accumulator and returns how many
// whole particles to spawn this step. This keeps emission rate-correct under
// variable dt.
func Accumulate(st *EmitterState, rate, dt float32) int {
	st.Accumulator += rate * dt
	n := int(st.Accumulator)
	if n > 0 {
		st.Accumulator -= float32(n)
	}
	return n
}

// TrackMovement updates the emitter's derived velocity from its position
// change over dt.
func TrackMovement(st *EmitterState, pos Vec3, dt float32) {
	if dt > 0 {
		st.Velocity = pos.Sub(st.PrevPos).Scale(1 / dt)
	}
	st.PrevPos = pos
}

// SamplePosition draws a spawn position for the emitter's shape.
func SamplePosition(e *EmitterConfig, rng *particle.Rand) Vec3 {
	switch e.Shape {
	case ShapePoint:
		return e.Position

	case ShapeCircle:
		angle := rng.Float32() * 2 * pi
		r := e.Radius
		if !e.EdgeOnly {
			// sqrt correction for area-uniform fill
			r *= sqrtf(rng.Float32())
		}
		return e.Position.Add(Vec3{cosf(angle) * r, sinf(angle) * r, 0})

	case ShapeSphere:
		// Solid-angle uniform direction, cbrt correction for volume fill.
		zenith := acosf(1 - 2*rng.Float32())
		azimuth := rng.Float32() * 2 * pi
		r := e.Radius
		if !e.EdgeOnly {
			r *= cbrtf(rng.Float32())
		}
		sz := sinf(zenith)
		return e.Position.Add(Vec3{
			sz * cosf(azimuth) * r,
			sz * sinf(azimuth) * r,
			cosf(zenith) * r,
		})

	case ShapeBox:
		return e.Position.Add(Vec3{
			(rng.Float32()*2 - 1) * e.HalfExtents.X,
			(rng.Float32()*2 - 1) * e.HalfExtents.Y,
			(rng.Float32()*2 - 1) * e.HalfExtents.Z,
		})

	case ShapeLine:
		t := rng.Float32()
		return e.Position.Add(e.LineEnd.Sub(e.Position).Scale(t))

	case ShapeCone:
		// Radius and height scale with the same t for a filled cone.
		t := rng.Float32()
		angle := rng.Float32() * 2 * pi
		r := e.Radius * t
		axis := e.Direction.Normalized()
		t1, t2 := orthonormalBasis(axis)
		p := e.Position.Add(axis.Scale(e.ConeHeight * t))
		return p.Add(t1.Scale(cosf(angle) * r)).Add(t2.Scale(sinf(angle) * r))

	case ShapeSpline:
		if e.Spline == nil {
			return e.Position
		}
		x, y, z := e.Spline(rng.Float32())
		return Vec3{x, y, z}

	case ShapeImage:
		return sampleImage(e, rng)

	case ShapeDepthEdge:
		return sampleDepthEdge(e, rng)
	}
	return e.Position
}

// sampleImage rejection-samples pixels with alpha above the mask threshold,
// falling back to the emitter origin on exhaustion.
func sampleImage(e *EmitterConfig, rng *particle.Rand) Vec3 {
	m := e.Mask
	if m == nil || m.Width <= 0 || m.Height <= 0 {
		return e.Position
	}
	for try := 0; try < maxMaskPicks; try++ {
		px := int(rng.Float32() * float32(m.Width))
		py := int(rng.Float32() * float32(m.Height))
		if px >= m.Width {
			px = m.Width - 1
		}
		if py >= m.Height {
			py = m.Height - 1
		}
		if m.Alpha[py*m.Width+px] > m.Threshold {
			return maskToWorld(e, px, py, m.Width, m.Height, 0)
		}
	}
	return e.Position
}

// sampleDepthEdge rejection-samples pixels whose depth gradient exceeds the
// threshold, placing particles along silhouette edges of the depth buffer.
func sampleDepthEdge(e *EmitterConfig, rng *particle.Rand) Vec3 {
	d := e.Depth
	if d == nil || d.Width < 2 || d.Height < 2 {
		return e.Position
	}
	for try := 0; try < maxMaskPicks; try++ {
		px := int(rng.Float32() * float32(d.Width-1))
		py := int(rng.Float32() * float32(d.Height-1))
		here := d.Depth[py*d.Width+px]
		gx := absf(d.Depth[py*d.Width+px+1] - here)
		gy := absf(d.Depth[(py+1)*d.Width+px] - here)
		if gx+gy > d.GradientThreshold {
			return maskToWorld(e, px, py, d.Width, d.Height, here)
		}
	}
	return e.Position
}

// maskToWorld maps a pixel coordinate onto the emitter's mask plane,
// centered on the emitter origin and scaled by ImageExtents. Depth offsets
// along Z by ImageExtents.Z.
func maskToWorld(e *EmitterConfig, px, py, w, h int, depth float32) Vec3 {
	u := (float32(px)+0.5)/float32(w) - 0.5
	v := 0.5 - (float32(py)+0.5)/float32(h)
	return e.Position.Add(Vec3{
		u * e.ImageExtents.X,
		v * e.ImageExtents.Y,
		depth * e.ImageExtents.Z,
	})
}

// SampleDirection draws a direction inside the spread cone around the
// emitter's base direction, uniform over the cone's solid angle.
func SampleDirection(base Vec3, spread float32, rng *particle.Rand) Vec3 {
	dir := base.Normalized()
	if (dir == Vec3{}) {
		dir = Vec3{Y: 1}
	}
	if spread <= 0 {
		// Burn the two draws so enabling spread never shifts the stream
		// of unrelated draws within a spawn.
		rng.Float32()
		rng.Float32()
		return dir
	}
	u := rng.Float32()
	v := rng.Float32()
	zenith := acosf(1 - u*(1-cosf(spread)))
	azimuth := v * 2 * pi
	t1, t2 := orthonormalBasis(dir)
	sz := sinf(zenith)
	return dir.Scale(cosf(zenith)).
		Add(t1.Scale(sz * cosf(azimuth))).
		Add(t2.Scale(sz * sinf(azimuth)))
}

// SpawnInto initializes a freshly allocated particle from the emitter's
// initial-value ranges. Draw order is fixed; changing it changes every
// subsequent random value in the frame.
func SpawnInto(p *particle.Particle, e *EmitterConfig, st *EmitterState, rng *particle.Rand) {
	pos := SamplePosition(e, rng)
	dir := SampleDirection(e.Direction, e.Spread, rng)

	speed := rng.Range(e.Speed.Base, e.Speed.Variance)
	lifetime := rng.Range(e.Lifetime.Base, e.Lifetime.Variance)
	if lifetime < 0.01 {
		lifetime = 0.01
	}
	mass := rng.Range(e.Mass.Base, e.Mass.Variance)
	size := rng.Range(e.Size.Base, e.Size.Variance)
	rotation := e.RotationBase + rng.Uniform(e.RotationVariance)
	angVel := rng.Range(e.AngularVel.Base, e.AngularVel.Variance)
	colorMix := clamp01(rng.Uniform(e.ColorVariance))

	vel := dir.Scale(speed).Add(st.Velocity.Scale(e.InheritVelocity))

	p.X, p.Y, p.Z = pos.X, pos.Y, pos.Z
	p.VX, p.VY, p.VZ = vel.X, vel.Y, vel.Z
	p.Age = 0
	p.Lifetime = lifetime
	p.Mass = mass
	p.Size = size
	p.Rotation = rotation
	p.AngularVel = angVel
	p.R = e.ColorStart[0] + (e.ColorEnd[0]-e.ColorStart[0])*colorMix
	p.G = e.ColorStart[1] + (e.ColorEnd[1]-e.ColorStart[1])*colorMix
	p.B = e.ColorStart[2] + (e.ColorEnd[2]-e.ColorStart[2])*colorMix
	p.A = e.ColorStart[3] + (e.ColorEnd[3]-e.ColorStart[3])*colorMix
}

// orthonormalBasis returns two unit vectors perpendicular to n.
func orthonormalBasis(n Vec3) (Vec3, Vec3) {
	var up Vec3
	if absf(n.Y) < 0.99 {
		up = Vec3{Y: 1}
	} else {
		up = Vec3{X: 1}
	}
	t1 := up.Cross(n).Normalized()
	t2 := n.Cross(t1)
	return t1, t2
}

const pi = 3.1415926535897932
