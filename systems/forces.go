package systems

// FieldType identifies a force field's law.
type FieldType uint8

const (
	FieldGravity FieldType = iota
	FieldPoint
	FieldVortex
	FieldTurbulence
	FieldDrag
	FieldWind
	FieldLorenz
	FieldCurl
	FieldMagnetic
	FieldOrbit
)

// Falloff selects the strength attenuation curve over [FalloffStart, FalloffEnd].
type Falloff uint8

const (
	FalloffNone Falloff = iota
	FalloffLinear
	FalloffQuadratic
	FalloffExponential
	FalloffSmoothstep
)

// MinMass floors the divisor in force integration so near-zero mass never
// produces runaway acceleration.
const MinMass = 0.1

// FieldConfig describes one force field. A field is a pure function of
// (config, particle position/velocity/mass, simulation time); it carries no
// runtime state of its own.
type FieldConfig struct {
	ID      string `yaml:"id"`
	Enabled bool   `yaml:"enabled"`

	Type     FieldType `yaml:"type"`
	Position Vec3      `yaml:"position"`
	// Direction doubles as the vortex/orbit axis and the magnetic B vector.
	Direction Vec3    `yaml:"direction"`
	Strength  float32 `yaml:"strength"`

	Falloff      Falloff `yaml:"falloff"`
	FalloffStart float32 `yaml:"falloff_start"`
	FalloffEnd   float32 `yaml:"falloff_end"`

	// Type-specific parameters; zero values are replaced by ApplyDefaults.
	InwardPull      float32 `yaml:"inward_pull"`      // vortex
	Frequency       float32 `yaml:"frequency"`        // turbulence, curl
	Speed           float32 `yaml:"speed"`            // turbulence, curl animation
	LinearDrag      float32 `yaml:"linear_drag"`      // drag
	QuadraticDrag   float32 `yaml:"quadratic_drag"`   // drag
	GustAmplitude   float32 `yaml:"gust_amplitude"`   // wind
	GustFrequency   float32 `yaml:"gust_frequency"`   // wind
	Sigma           float32 `yaml:"sigma"`            // lorenz
	Rho             float32 `yaml:"rho"`              // lorenz
	Beta            float32 `yaml:"beta"`             // lorenz
	LorenzScale     float32 `yaml:"lorenz_scale"`     // lorenz damping for visual stability
	OrbitRadius     float32 `yaml:"orbit_radius"`     // orbit
	RadialStiffness float32 `yaml:"radial_stiffness"` // orbit
}

// ApplyDefaults fills absent (zero) optional sub-parameters with the
// documented constants instead of failing.
func (f *FieldConfig) ApplyDefaults() {
	if f.Frequency == 0 {
		f.Frequency = 1
	}
	if f.Speed == 0 {
		f.Speed = 1
	}
	if f.Sigma == 0 {
		f.Sigma = 10
	}
	if f.Rho == 0 {
		f.Rho = 28
	}
	if f.Beta == 0 {
		f.Beta = 8.0 / 3.0
	}
	if f.LorenzScale == 0 {
		f.LorenzScale = 0.01
	}
	if f.GustFrequency == 0 {
		f.GustFrequency = 1
	}
	if f.RadialStiffness == 0 {
		f.RadialStiffness = 1
	}
	if (f.Direction == Vec3{}) {
		f.Direction = Vec3{Y: -1}
	}
}

// falloffAt returns the attenuation in [0, 1] for a particle at distance
// dist from the field center.
func (f *FieldConfig) falloffAt(dist float32) float32 {
	if f.Falloff == FalloffNone {
		return 1
	}
	span := f.FalloffEnd - f.FalloffStart
	if span <= 1e-8 {
		// Degenerate interval: unit falloff rather than divide by zero.
		return 1
	}
	t := clamp01((dist - f.FalloffStart) / span)
	switch f.Falloff {
	case FalloffLinear:
		return 1 - t
	case FalloffQuadratic:
		return (1 - t) * (1 - t)
	case FalloffExponential:
		return expf(-5 * t)
	case FalloffSmoothstep:
		return 1 - smoothstep(t)
	}
	return 1
}

// EvalForce computes the instantaneous force a field exerts on a particle.
// noise supplies the curl field and may be nil for non-curl types.
func EvalForce(f *FieldConfig, noise *CurlNoise, pos, vel Vec3, mass, time float32) Vec3 {
	rel := pos.Sub(f.Position)
	eff := f.Strength * f.falloffAt(rel.Len())
	if eff == 0 {
		return Vec3{}
	}

	switch f.Type {
	case FieldGravity:
		return f.Direction.Normalized().Scale(eff)

	case FieldPoint:
		m := mass
		if m < MinMass {
			m = MinMass
		}
		return rel.Normalized().Scale(-eff / m)

	case FieldVortex:
		axis := f.Direction.Normalized()
		radial := rel.Sub(axis.Scale(rel.Dot(axis)))
		tangent := axis.Cross(radial).Normalized()
		force := tangent.Scale(eff)
		if f.InwardPull != 0 {
			force = force.Add(radial.Normalized().Scale(-eff * f.InwardPull))
		}
		return force

	case FieldTurbulence:
		// Phase-shifted trig pseudo-noise per axis, animated by time.
		fx := sinf(pos.Y*f.Frequency+time*f.Speed) * cosf(pos.Z*f.Frequency*1.3+time*f.Speed*0.7)
		fy := sinf(pos.Z*f.Frequency*1.1+time*f.Speed*1.3) * cosf(pos.X*f.Frequency*0.9+time*f.Speed)
		fz := sinf(pos.X*f.Frequency*1.2+time*f.Speed*0.8) * cosf(pos.Y*f.Frequency*1.1+time*f.Speed*1.1)
		return Vec3{fx, fy, fz}.Scale(eff)

	case FieldDrag:
		speed := vel.Len()
		if speed < 1e-8 {
			return Vec3{}
		}
		mag := f.LinearDrag*speed + f.QuadraticDrag*speed*speed
		return vel.Scale(-eff * mag / speed)

	case FieldWind:
		gust := 1 + f.GustAmplitude*sinf(time*f.GustFrequency)
		return f.Direction.Normalized().Scale(eff * gust)

	case FieldLorenz:
		// Classic three-variable attractor on the position relative to the
		// field center, scaled down for visual stability.
		dx := f.Sigma * (rel.Y - rel.X)
		dy := rel.X*(f.Rho-rel.Z) - rel.Y
		dz := rel.X*rel.Y - f.Beta*rel.Z
		return Vec3{dx, dy, dz}.Scale(eff * f.LorenzScale)

	case FieldCurl:
		if noise == nil {
			return Vec3{}
		}
		return noise.Curl(rel, f.Frequency, time*f.Speed).Scale(eff)

	case FieldMagnetic:
		return vel.Cross(f.Direction.Normalized()).Scale(eff)

	case FieldOrbit:
		axis := f.Direction.Normalized()
		radial := rel.Sub(axis.Scale(rel.Dot(axis)))
		rlen := radial.Len()
		tangent := axis.Cross(radial).Normalized().Scale(eff)
		if rlen < 1e-8 {
			return tangent
		}
		spring := radial.Scale((f.OrbitRadius - rlen) / rlen * eff * f.RadialStiffness)
		return tangent.Add(spring)
	}
	return Vec3{}
}
