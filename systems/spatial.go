// Package systems provides the simulation systems: spatial indexing, emitter
// sampling, force evaluation, flocking, collision, modulation curves, and
// audio-reactive bindings. Systems hold no particle state of their own; they
// receive the store for the duration of one step.
package systems

import (
	"github.com/pthm-cable/plume/particle"
)

// Grid buckets live particles into uniform 3D cells for O(1) neighbor
// queries. It is shared by reference between flocking and collision for the
// duration of one step and rebuilt at most once per step, only when one of
// those consumers is active.
type Grid struct {
	cellSize float32
	cells    map[uint64][]int32
}

// NewGrid creates a grid with the given cell edge length.
func NewGrid(cellSize float32) *Grid {
	if cellSize <= 0 {
		cellSize = 1
	}
	return &Grid{
		cellSize: cellSize,
		cells:    make(map[uint64][]int32, 256),
	}
}

// cellKey packs integer cell coordinates into a map key. 21 bits per axis;
// far-apart cells can alias, which only costs a few extra distance checks.
func cellKey(cx, cy, cz int32) uint64 {
	const mask = 0x1FFFFF
	return uint64(cx)&mask<<42 | uint64(cy)&mask<<21 | uint64(cz)&mask
}

func (g *Grid) cellCoord(v float32) int32 {
	return int32(floorf(v / g.cellSize))
}

// Rebuild clears all cells and reinserts every live particle, in slot order
// so bucket contents are deterministic.
func (g *Grid) Rebuild(buf []particle.Particle) {
	for k := range g.cells {
		g.cells[k] = g.cells[k][:0]
	}
	for i := range buf {
		p := &buf[i]
		if !p.Alive() {
			continue
		}
		key := cellKey(g.cellCoord(p.X), g.cellCoord(p.Y), g.cellCoord(p.Z))
		g.cells[key] = append(g.cells[key], int32(i))
	}
}

// Neighbors appends the indices from the 3x3x3 cell neighborhood around
// (x, y, z) to dst and returns it. Reuse dst across calls to avoid
// allocations.
func (g *Grid) Neighbors(x, y, z float32, dst []int32) []int32 {
	cx := g.cellCoord(x)
	cy := g.cellCoord(y)
	cz := g.cellCoord(z)
	for dx := int32(-1); dx <= 1; dx++ {
		for dy := int32(-1); dy <= 1; dy++ {
			for dz := int32(-1); dz <= 1; dz++ {
				if bucket, ok := g.cells[cellKey(cx+dx, cy+dy, cz+dz)]; ok {
					dst = append(dst, bucket...)
				}
			}
		}
	}
	return dst
}

// CellSize returns the cell edge length.
func (g *Grid) CellSize() float32 {
	return g.cellSize
}
