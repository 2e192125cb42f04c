package telemetry

import (
	"math"
	"testing"

	"github.com/pthm-cable/plume/particle"
)

func TestCollectorWindowAccumulation(t *testing.T) {
	c := NewCollector(3)
	c.RecordFrame(FrameSample{Frame: 1, Spawned: 5, Died: 1, GridRebuilt: true})
	if c.Ready() {
		t.Fatal("window ready too early")
	}
	c.RecordFrame(FrameSample{Frame: 2, Spawned: 5, Died: 2})
	c.RecordFrame(FrameSample{Frame: 3, SimTime: 0.05, Live: 7, Spawned: 5, Died: 3, Recycled: 1, GridRebuilt: true})
	if !c.Ready() {
		t.Fatal("window not ready after 3 frames")
	}

	ws := c.Flush(nil, 100)
	if ws.WindowStart != 1 || ws.WindowEnd != 3 {
		t.Fatalf("window bounds: %d..%d", ws.WindowStart, ws.WindowEnd)
	}
	if ws.Spawned != 15 || ws.Died != 6 || ws.Recycled != 1 {
		t.Fatalf("window totals: %+v", ws)
	}
	if ws.GridRebuilds != 2 {
		t.Fatalf("grid rebuilds: %d", ws.GridRebuilds)
	}
	if ws.Live != 7 || math.Abs(ws.PoolUtilization-0.07) > 1e-9 {
		t.Fatalf("end-of-window counts: live=%d util=%v", ws.Live, ws.PoolUtilization)
	}
}

func TestCollectorFlushResets(t *testing.T) {
	c := NewCollector(2)
	c.RecordFrame(FrameSample{Frame: 1, Spawned: 5})
	c.RecordFrame(FrameSample{Frame: 2, Spawned: 5})
	c.Flush(nil, 100)

	if c.Ready() {
		t.Fatal("collector still ready after flush")
	}
	c.RecordFrame(FrameSample{Frame: 3, Spawned: 1})
	c.RecordFrame(FrameSample{Frame: 4, Spawned: 1})
	ws := c.Flush(nil, 100)
	if ws.Spawned != 2 {
		t.Fatalf("counters leaked across windows: %d", ws.Spawned)
	}
	if ws.WindowStart != 3 {
		t.Fatalf("window start not reset: %d", ws.WindowStart)
	}
}

func TestCollectorSpeedDistribution(t *testing.T) {
	c := NewCollector(1)
	buf := []particle.Particle{
		{VX: 3, VY: 4, Lifetime: 1}, // speed 5
		{VX: 0, VY: 0, Lifetime: 1}, // speed 0
		{VX: 10, Lifetime: 0},       // dead, excluded
	}
	c.RecordFrame(FrameSample{Frame: 1, Live: 2})
	ws := c.Flush(buf, 100)

	if math.Abs(ws.SpeedMean-2.5) > 1e-6 {
		t.Fatalf("speed mean: got %v, want 2.5", ws.SpeedMean)
	}
	if ws.SpeedP90 > 5 || ws.SpeedP10 < 0 {
		t.Fatalf("percentiles out of range: p10=%v p90=%v", ws.SpeedP10, ws.SpeedP90)
	}
}

func TestPerfCollectorPhases(t *testing.T) {
	p := NewPerfCollector(4)
	for i := 0; i < 4; i++ {
		p.StartTick()
		p.StartPhase(PhaseEmission)
		p.StartPhase(PhasePhysics)
		p.EndTick()
	}
	stats := p.Stats()
	if stats.AvgStepDuration < 0 {
		t.Fatal("negative step duration")
	}
	if _, ok := stats.PhaseAvg[PhaseEmission]; !ok {
		t.Fatal("emission phase not recorded")
	}
	if _, ok := stats.PhaseAvg[PhasePhysics]; !ok {
		t.Fatal("physics phase not recorded")
	}
}

func TestPerfCollectorEmptyStats(t *testing.T) {
	p := NewPerfCollector(4)
	stats := p.Stats()
	if stats.AvgStepDuration != 0 || len(stats.PhaseAvg) != 0 {
		t.Fatalf("empty collector produced samples: %+v", stats)
	}
}
