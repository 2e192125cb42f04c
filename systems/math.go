package systems

import "math"

// Vec3 is a float32 3-vector used throughout the simulation hot paths.
type Vec3 struct {
	X, Y, Z float32
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v * s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Dot returns the dot product.
func (v Vec3) Dot(o Vec3) float32 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the cross product v × o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		v.Y*o.Z - v.Z*o.Y,
		v.Z*o.X - v.X*o.Z,
		v.X*o.Y - v.Y*o.X,
	}
}

// LenSq returns the squared length.
func (v Vec3) LenSq() float32 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Len returns the length.
func (v Vec3) Len() float32 {
	return sqrtf(v.LenSq())
}

// Normalized returns v scaled to unit length, or the zero vector.
func (v Vec3) Normalized() Vec3 {
	l := v.Len()
	if l < 1e-8 {
		return Vec3{}
	}
	return v.Scale(1 / l)
}

// ClampLen limits the vector's length to maxLen.
func (v Vec3) ClampLen(maxLen float32) Vec3 {
	lsq := v.LenSq()
	if lsq <= maxLen*maxLen || lsq == 0 {
		return v
	}
	return v.Scale(maxLen / sqrtf(lsq))
}

// float32 wrappers around math; hot paths pay the float64 conversion once here.

func sqrtf(x float32) float32 {
	return float32(math.Sqrt(float64(x)))
}

func sinf(x float32) float32 {
	return float32(math.Sin(float64(x)))
}

func cosf(x float32) float32 {
	return float32(math.Cos(float64(x)))
}

func acosf(x float32) float32 {
	return float32(math.Acos(float64(x)))
}

func expf(x float32) float32 {
	return float32(math.Exp(float64(x)))
}

func cbrtf(x float32) float32 {
	return float32(math.Cbrt(float64(x)))
}

func floorf(x float32) float32 {
	return float32(math.Floor(float64(x)))
}

func absf(x float32) float32 {
	if x < 0 {
		return -x
	}
	return x
}

// clamp01 clamps a float32 value to the [0, 1] range.
func clamp01(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// smoothstep evaluates the cubic smoothstep polynomial on t in [0, 1].
func smoothstep(t float32) float32 {
	return t * t * (3 - 2*t)
}
