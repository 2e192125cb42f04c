package systems

import (
	"github.com/pthm-cable/plume/particle"
)

// CurveKind selects the modulation curve variant.
type CurveKind uint8

const (
	CurveConstant CurveKind = iota
	CurveLinear
	CurveKeyframed
	CurveRandom
	CurveRandomBetween // random draw between two nested curves
)

// Keyframe is one control point of a keyframed curve with explicit Hermite
// tangents.
type Keyframe struct {
	Time       float32 `yaml:"time"`
	Value      float32 `yaml:"value"`
	InTangent  float32 `yaml:"in_tangent"`
	OutTangent float32 `yaml:"out_tangent"`
}

// Curve is a 0-1 parameterized modulation function. It is a tagged union:
// only the fields of the selected Kind are meaningful. RandomBetween boxes
// two nested curves and draws between their evaluated values.
type Curve struct {
	Kind CurveKind `yaml:"kind"`

	Value float32    `yaml:"value"` // constant
	Start float32    `yaml:"start"` // linear
	End   float32    `yaml:"end"`
	Keys  []Keyframe `yaml:"keys,omitempty"`
	Min   float32    `yaml:"min"` // random
	Max   float32    `yaml:"max"`
	A     *Curve     `yaml:"a,omitempty"` // random-between bounds
	B     *Curve     `yaml:"b,omitempty"`
}

// EvalCurve evaluates the curve at t in [0, 1]. Random variants draw from
// rng, so evaluation order matters for determinism.
func EvalCurve(c *Curve, t float32, rng *particle.Rand) float32 {
	if c == nil {
		return 1
	}
	switch c.Kind {
	case CurveConstant:
		return c.Value
	case CurveLinear:
		return c.Start + (c.End-c.Start)*clamp01(t)
	case CurveKeyframed:
		return evalKeyframed(c.Keys, t)
	case CurveRandom:
		return c.Min + rng.Float32()*(c.Max-c.Min)
	case CurveRandomBetween:
		lo := EvalCurve(c.A, t, rng)
		hi := EvalCurve(c.B, t, rng)
		return lo + rng.Float32()*(hi-lo)
	}
	return 1
}

// evalKeyframed interpolates between the bracketing keyframes with a cubic
// Hermite using the stored in/out tangents. Keys are assumed sorted by time.
func evalKeyframed(keys []Keyframe, t float32) float32 {
	n := len(keys)
	if n == 0 {
		return 1
	}
	if n == 1 || t <= keys[0].Time {
		return keys[0].Value
	}
	if t >= keys[n-1].Time {
		return keys[n-1].Value
	}
	hi := 1
	for hi < n-1 && keys[hi].Time < t {
		hi++
	}
	k0 := &keys[hi-1]
	k1 := &keys[hi]
	dt := k1.Time - k0.Time
	if dt <= 1e-8 {
		// Degenerate equal-time keys: average rather than divide by zero.
		return (k0.Value + k1.Value) * 0.5
	}
	u := (t - k0.Time) / dt
	u2 := u * u
	u3 := u2 * u
	h00 := 2*u3 - 3*u2 + 1
	h10 := u3 - 2*u2 + u
	h01 := -2*u3 + 3*u2
	h11 := u3 - u2
	return h00*k0.Value + h10*k0.OutTangent*dt + h01*k1.Value + h11*k1.InTangent*dt
}
