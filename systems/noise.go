package systems

import (
	opensimplex "github.com/ojrac/opensimplex-go"
)

// CurlNoise samples a divergence-free velocity field from the curl of a
// smooth vector potential. The potential's three channels come from one
// opensimplex generator evaluated at large fixed offsets, so a single seed
// fully determines the field.
type CurlNoise struct {
	noise opensimplex.Noise
}

// Channel offsets keep the three potential components decorrelated.
const (
	curlOffsetY = 31.416
	curlOffsetZ = 47.853
	curlEps     = 0.1
)

// NewCurlNoise creates a generator for the given seed.
func NewCurlNoise(seed int64) *CurlNoise {
	return &CurlNoise{noise: opensimplex.New(seed)}
}

// potential returns the three-channel vector potential at a scaled position.
func (c *CurlNoise) potential(x, y, z, t float64) (px, py, pz float64) {
	px = c.noise.Eval4(x, y, z, t)
	py = c.noise.Eval4(x+curlOffsetY, y+curlOffsetY, z+curlOffsetY, t)
	pz = c.noise.Eval4(x+curlOffsetZ, y+curlOffsetZ, z+curlOffsetZ, t)
	return
}

// Curl returns the curl of the potential at pos, sampled at the given
// frequency and animated by time. The result is bounded and smooth.
func (c *CurlNoise) Curl(pos Vec3, frequency, time float32) Vec3 {
	x := float64(pos.X * frequency)
	y := float64(pos.Y * frequency)
	z := float64(pos.Z * frequency)
	t := float64(time)
	const e = curlEps

	// Central differences of the potential along each axis.
	_, ay1, az1 := c.potential(x+e, y, z, t)
	_, ay2, az2 := c.potential(x-e, y, z, t)
	bx1, _, bz1 := c.potential(x, y+e, z, t)
	bx2, _, bz2 := c.potential(x, y-e, z, t)
	cx1, cy1, _ := c.potential(x, y, z+e, t)
	cx2, cy2, _ := c.potential(x, y, z-e, t)

	inv := float32(1.0 / (2 * e))
	return Vec3{
		X: (float32(bz1-bz2) - float32(cy1-cy2)) * inv,
		Y: (float32(cx1-cx2) - float32(az1-az2)) * inv,
		Z: (float32(ay1-ay2) - float32(bx1-bx2)) * inv,
	}
}
