// Package telemetry aggregates per-step simulation counters into windowed
// statistics and writes them to structured logs and CSV files. It observes
// the engine but never feeds back into it.
package telemetry

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/plume/particle"
)

// FrameSample is one step's worth of counters, reported by the engine.
type FrameSample struct {
	Frame       int
	SimTime     float64
	Live        int
	Spawned     int
	SubSpawned  int
	Died        int
	Recycled    int
	GridRebuilt bool
}

// Collector accumulates frame samples into fixed-size windows.
type Collector struct {
	window int

	startFrame int
	lastSample FrameSample

	spawned      int
	subSpawned   int
	died         int
	recycled     int
	gridRebuilds int
	frames       int
}

// NewCollector creates a collector that closes a window every windowSize
// frames.
func NewCollector(windowSize int) *Collector {
	if windowSize < 1 {
		windowSize = 60
	}
	return &Collector{window: windowSize}
}

// RecordFrame folds one step's counters into the current window.
func (c *Collector) RecordFrame(s FrameSample) {
	if c.frames == 0 {
		c.startFrame = s.Frame
	}
	c.spawned += s.Spawned
	c.subSpawned += s.SubSpawned
	c.died += s.Died
	c.recycled += s.Recycled
	if s.GridRebuilt {
		c.gridRebuilds++
	}
	c.lastSample = s
	c.frames++
}

// Ready reports whether a full window has accumulated.
func (c *Collector) Ready() bool {
	return c.frames >= c.window
}

// Flush closes the current window, computing distribution stats from the
// live particles in buf, and resets the accumulators.
func (c *Collector) Flush(buf []particle.Particle, capacity int) WindowStats {
	ws := WindowStats{
		WindowStart:  c.startFrame,
		WindowEnd:    c.lastSample.Frame,
		SimTime:      c.lastSample.SimTime,
		Live:         c.lastSample.Live,
		Spawned:      c.spawned,
		SubSpawned:   c.subSpawned,
		Died:         c.died,
		Recycled:     c.recycled,
		GridRebuilds: c.gridRebuilds,
	}
	if capacity > 0 {
		ws.PoolUtilization = float64(c.lastSample.Live) / float64(capacity)
	}

	speeds := make([]float64, 0, c.lastSample.Live)
	ages := make([]float64, 0, c.lastSample.Live)
	for i := range buf {
		p := &buf[i]
		if !p.Alive() {
			continue
		}
		vx, vy, vz := float64(p.VX), float64(p.VY), float64(p.VZ)
		speeds = append(speeds, math.Sqrt(vx*vx+vy*vy+vz*vz))
		ages = append(ages, float64(p.Age))
	}

	if len(speeds) > 0 {
		ws.SpeedMean, ws.SpeedStd = stat.MeanStdDev(speeds, nil)
		sort.Float64s(speeds)
		ws.SpeedP10 = stat.Quantile(0.10, stat.Empirical, speeds, nil)
		ws.SpeedP50 = stat.Quantile(0.50, stat.Empirical, speeds, nil)
		ws.SpeedP90 = stat.Quantile(0.90, stat.Empirical, speeds, nil)
		ws.AgeMean = stat.Mean(ages, nil)
	}

	c.spawned = 0
	c.subSpawned = 0
	c.died = 0
	c.recycled = 0
	c.gridRebuilds = 0
	c.frames = 0
	return ws
}
