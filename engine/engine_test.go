package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pthm-cable/plume/systems"
	"github.com/pthm-cable/plume/telemetry"
)

const testDT = float32(1.0 / 60.0)

func newTestEngine(t *testing.T, seed int64) *Engine {
	t.Helper()
	e := New(Options{
		Capacity:      2000,
		Seed:          seed,
		CellSize:      5,
		CacheInterval: 10,
		CacheCapacity: 16,
	})
	require.NoError(t, e.AddEmitter(systems.EmitterConfig{
		ID:       "main",
		Enabled:  true,
		Shape:    systems.ShapePoint,
		Rate:     60,
		Speed:    systems.ScalarRange{Base: 5, Variance: 1},
		Lifetime: systems.ScalarRange{Base: 10},
		Spread:   0.5,
	}))
	require.NoError(t, e.AddField(systems.FieldConfig{
		ID:        "gravity",
		Enabled:   true,
		Type:      systems.FieldGravity,
		Direction: systems.Vec3{Y: -1},
		Strength:  9.8,
	}))
	return e
}

func stepN(e *Engine, n int) {
	for i := 0; i < n; i++ {
		e.Step(testDT)
	}
}

func TestSameSeedSameTrajectory(t *testing.T) {
	a := newTestEngine(t, 42)
	b := newTestEngine(t, 42)
	stepN(a, 120)
	stepN(b, 120)
	require.Equal(t, a.Live(), b.Live())
	assert.Equal(t, a.Particles(), b.Particles())
}

func TestDifferentSeedsDiverge(t *testing.T) {
	a := newTestEngine(t, 1)
	b := newTestEngine(t, 2)
	stepN(a, 60)
	stepN(b, 60)
	assert.NotEqual(t, a.Particles(), b.Particles())
}

func TestEmissionRateOverTime(t *testing.T) {
	e := newTestEngine(t, 7)
	stepN(e, 60)
	// 60/s for one second with 10s lifetimes: everything spawned is
	// still alive.
	assert.InDelta(t, 60, e.Live(), 1)
}

func TestResetReplaysIdentically(t *testing.T) {
	e := newTestEngine(t, 42)
	stepN(e, 90)
	snapshot := e.store.Snapshot()

	e.Reset()
	require.Equal(t, 0, e.Frame())
	require.Equal(t, 0, e.Live())
	stepN(e, 90)

	assert.Equal(t, snapshot.Buf, e.Particles())
	assert.Equal(t, snapshot.Live, e.Live())
}

func TestBirthEventsMatchSpawns(t *testing.T) {
	e := newTestEngine(t, 9)
	births := 0
	unsub := e.Subscribe(func(ev Event) {
		if ev.Kind == EventBirth {
			births++
		}
	})
	stepN(e, 60)
	assert.Equal(t, e.Live(), births)

	unsub()
	before := births
	stepN(e, 10)
	assert.Equal(t, before, births, "unsubscribed listener still invoked")
}

func TestDeathEventsAndRelease(t *testing.T) {
	e := New(Options{Capacity: 100, Seed: 3, CacheInterval: 10, CacheCapacity: 4})
	require.NoError(t, e.AddEmitter(systems.EmitterConfig{
		ID:       "short",
		Enabled:  true,
		Rate:     30,
		Lifetime: systems.ScalarRange{Base: 0.1},
	}))
	deaths := 0
	e.Subscribe(func(ev Event) {
		if ev.Kind == EventDeath {
			deaths++
		}
	})
	stepN(e, 120)
	assert.Greater(t, deaths, 0)
	// Population stays bounded: ~rate * lifetime.
	assert.Less(t, e.Live(), 10)
}

func TestSubEmitterSpawnsOnDeath(t *testing.T) {
	e := New(Options{Capacity: 1000, Seed: 3, CacheInterval: 10, CacheCapacity: 4})
	require.NoError(t, e.AddEmitter(systems.EmitterConfig{
		ID:       "shell",
		Enabled:  true,
		Rate:     10,
		Lifetime: systems.ScalarRange{Base: 0.1},
	}))
	sub := systems.SubEmitterConfig{
		ID:           "burst",
		ParentFilter: "shell",
		EmitCount:    3,
	}
	sub.Override.Lifetime = systems.ScalarRange{Base: 5}
	require.NoError(t, e.AddSubEmitter(sub))

	subBirths := 0
	e.Subscribe(func(ev Event) {
		if ev.Kind == EventBirth && ev.SubEmitter {
			subBirths++
			assert.Equal(t, "burst", ev.EmitterID)
		}
	})
	stepN(e, 120)
	assert.Greater(t, subBirths, 0)
}

func TestBeatBurst(t *testing.T) {
	e := New(Options{Capacity: 1000, Seed: 3, CacheInterval: 10, CacheCapacity: 4})
	require.NoError(t, e.AddEmitter(systems.EmitterConfig{
		ID:         "pulse",
		Enabled:    true,
		Rate:       0,
		BurstCount: 10,
		BeatBurst:  true,
		Lifetime:   systems.ScalarRange{Base: 10},
	}))

	e.Step(testDT)
	require.Equal(t, 0, e.Live(), "no burst without a beat")

	e.TriggerBeat(2)
	e.Step(testDT)
	assert.Equal(t, 20, e.Live(), "burst count scales with beat multiplier")

	e.Step(testDT)
	assert.Equal(t, 20, e.Live(), "beat flag clears after one step")
}

func TestAudioBindingDrivesEmitterRate(t *testing.T) {
	e := newTestEngine(t, 5)
	require.NoError(t, e.AddBinding(systems.Binding{
		Feature:      "bass",
		Target:       systems.TargetEmitter,
		TargetID:     "main",
		EmitterParam: systems.EmitterParamRate,
		Min:          0,
		Max:          1,
		OutMin:       0,
		OutMax:       500,
	}))

	e.SetAudioFeature("bass", 0.5)
	e.Step(testDT)

	cfg, ok := e.Emitter("main")
	require.True(t, ok)
	assert.InDelta(t, 250, cfg.Rate, 1e-3)
}

func TestAudioBindingSmoothingRampsUp(t *testing.T) {
	e := newTestEngine(t, 5)
	require.NoError(t, e.AddBinding(systems.Binding{
		Feature:      "bass",
		Target:       systems.TargetEmitter,
		TargetID:     "main",
		EmitterParam: systems.EmitterParamRate,
		Smoothing:    0.9,
		Min:          0,
		Max:          1,
		OutMin:       0,
		OutMax:       100,
	}))

	e.SetAudioFeature("bass", 1)
	e.Step(testDT)
	cfg, _ := e.Emitter("main")
	first := cfg.Rate
	assert.Less(t, first, float32(50), "heavy smoothing damps the first step")

	stepN(e, 200)
	cfg, _ = e.Emitter("main")
	assert.InDelta(t, 100, cfg.Rate, 1)
}

func TestRemoveEmitterOrphansParticles(t *testing.T) {
	e := newTestEngine(t, 11)
	stepN(e, 30)
	live := e.Live()
	require.Greater(t, live, 0)

	require.NoError(t, e.RemoveEmitter("main"))
	assert.Equal(t, live, e.Live(), "orphaned particles keep living")

	stepN(e, 30)
	assert.Equal(t, live, e.Live(), "no emitter left to spawn")
}

func TestDuplicateIDsRejected(t *testing.T) {
	e := newTestEngine(t, 11)
	assert.Error(t, e.AddEmitter(systems.EmitterConfig{ID: "main"}))
	assert.Error(t, e.AddField(systems.FieldConfig{ID: "gravity"}))
	assert.Error(t, e.RemoveEmitter("missing"))
	assert.Error(t, e.UpdateField(systems.FieldConfig{ID: "missing"}))
}

func TestFlockingAndCollisionTogether(t *testing.T) {
	e := newTestEngine(t, 13)
	e.SetFlocking(systems.FlockingConfig{
		Enabled:          true,
		SeparationRadius: 1,
		AlignmentRadius:  2,
		CohesionRadius:   3,
		SeparationWeight: 1,
		AlignmentWeight:  1,
		CohesionWeight:   1,
		MaxForce:         50,
		MaxSpeed:         20,
	})
	e.SetCollision(systems.CollisionConfig{
		BoundsEnabled: true,
		Min:           systems.Vec3{X: -30, Y: -30, Z: -30},
		Max:           systems.Vec3{X: 30, Y: 30, Z: 30},
		BehaviorX:     systems.BoundaryBounce,
		BehaviorY:     systems.BoundaryBounce,
		BehaviorZ:     systems.BoundaryBounce,
		Bounciness:    0.5,
	})
	stepN(e, 120)

	for _, p := range e.Particles() {
		if !p.Alive() {
			continue
		}
		assert.GreaterOrEqual(t, p.X, float32(-30))
		assert.LessOrEqual(t, p.X, float32(30))
		speed := systems.Vec3{X: p.VX, Y: p.VY, Z: p.VZ}.Len()
		assert.LessOrEqual(t, speed, float32(20.1))
	}

	// Determinism holds with every system active.
	b := newTestEngine(t, 13)
	b.SetFlocking(e.Flocking())
	b.SetCollision(e.Collision())
	stepN(b, 120)
	assert.Equal(t, e.Particles(), b.Particles())
}

func TestScrubWithSmoothedBindingMatchesStraightRun(t *testing.T) {
	build := func() *Engine {
		e := newTestEngine(t, 31)
		require.NoError(t, e.AddBinding(systems.Binding{
			Feature:      "bass",
			Target:       systems.TargetEmitter,
			TargetID:     "main",
			EmitterParam: systems.EmitterParamRate,
			Smoothing:    0.95,
			Min:          0,
			Max:          1,
			OutMin:       0,
			OutMax:       200,
		}))
		e.SetAudioFeature("bass", 1)
		return e
	}

	a := build()
	a.SimulateToFrame(45, 60)

	b := build()
	b.SimulateToFrame(100, 60)
	b.SimulateToFrame(45, 60)

	// The seek restores the binding-written rate, not the frame-100 value.
	ca, _ := a.Emitter("main")
	cb, _ := b.Emitter("main")
	require.Equal(t, ca.Rate, cb.Rate)
	require.Equal(t, a.Particles(), b.Particles())

	// Stepping forward from the restored state stays on the trajectory.
	a.SimulateToFrame(100, 60)
	b.SimulateToFrame(100, 60)
	assert.Equal(t, a.Live(), b.Live())
	assert.Equal(t, a.Particles(), b.Particles())
}

func TestResetRestoresBindingDrivenConfig(t *testing.T) {
	e := newTestEngine(t, 33)
	base, _ := e.Emitter("main")
	require.NoError(t, e.AddBinding(systems.Binding{
		Feature:      "bass",
		Target:       systems.TargetEmitter,
		TargetID:     "main",
		EmitterParam: systems.EmitterParamRate,
		Min:          0,
		Max:          1,
		OutMin:       0,
		OutMax:       500,
	}))
	e.SetAudioFeature("bass", 1)
	stepN(e, 10)
	cfg, _ := e.Emitter("main")
	require.NotEqual(t, base.Rate, cfg.Rate)

	e.Reset()
	cfg, _ = e.Emitter("main")
	assert.Equal(t, base.Rate, cfg.Rate)
}

func TestBoundaryKillDiesOnNextStep(t *testing.T) {
	e := New(Options{Capacity: 100, Seed: 5, CacheInterval: 100, CacheCapacity: 4})
	require.NoError(t, e.AddEmitter(systems.EmitterConfig{
		ID:         "jet",
		Enabled:    true,
		BeatBurst:  true,
		BurstCount: 1,
		Direction:  systems.Vec3{X: 1},
		Speed:      systems.ScalarRange{Base: 60},
		Lifetime:   systems.ScalarRange{Base: 10},
	}))
	sub := systems.SubEmitterConfig{ID: "debris", ParentFilter: "jet", EmitCount: 3}
	sub.Override.Lifetime = systems.ScalarRange{Base: 5}
	require.NoError(t, e.AddSubEmitter(sub))
	e.SetCollision(systems.CollisionConfig{
		BoundsEnabled: true,
		Min:           systems.Vec3{X: -100, Y: -100, Z: -100},
		Max:           systems.Vec3{X: 0.5, Y: 100, Z: 100},
		BehaviorX:     systems.BoundaryKill,
	})

	deaths, subBirths := 0, 0
	e.Subscribe(func(ev Event) {
		switch {
		case ev.Kind == EventDeath:
			deaths++
		case ev.Kind == EventBirth && ev.SubEmitter:
			subBirths++
		}
	})

	// One particle spawns at the origin and crosses x=0.5 on its first
	// integration. The kill is marked during the collision phase, after
	// this step's death pass.
	e.TriggerBeat(1)
	e.Step(testDT)
	require.Equal(t, 0, deaths, "kill must not be reaped in the marking step")

	e.Step(testDT)
	require.Equal(t, 1, deaths)
	assert.Equal(t, 3, subBirths, "children spawn with the deferred death")

	// The children were born past the bound, so they were marked by the
	// same step's collision pass and die one step later. Orphans trigger
	// no further sub-emission.
	e.Step(testDT)
	assert.Equal(t, 4, deaths)
	assert.Equal(t, 3, subBirths)
}

func TestFreeListInvariantEveryStep(t *testing.T) {
	e := New(Options{Capacity: 40, Seed: 17, CacheInterval: 10, CacheCapacity: 4})
	require.NoError(t, e.AddEmitter(systems.EmitterConfig{
		ID:       "churn",
		Enabled:  true,
		Rate:     600,
		Speed:    systems.ScalarRange{Base: 5, Variance: 2},
		Lifetime: systems.ScalarRange{Base: 0.2, Variance: 0.1},
		Spread:   1,
	}))
	sub := systems.SubEmitterConfig{ID: "shards", EmitCount: 2}
	sub.Override.Lifetime = systems.ScalarRange{Base: 0.1}
	require.NoError(t, e.AddSubEmitter(sub))

	collector := telemetry.NewCollector(180)
	e.SetTelemetry(collector, nil)

	// Demand far exceeds the pool, so the run exercises deaths,
	// sub-emission, and constant oldest-particle recycling.
	for i := 0; i < 180; i++ {
		e.Step(testDT)
		require.Equal(t, e.Capacity(), e.store.FreeCount()+e.Live(),
			"frame %d: free plus live must cover the pool", e.Frame())
	}

	require.True(t, collector.Ready())
	ws := collector.Flush(e.Particles(), e.Capacity())
	assert.Greater(t, ws.Died, 0)
	assert.Greater(t, ws.SubSpawned, 0)
	assert.Greater(t, ws.Recycled, 0)
}

func TestStateSummary(t *testing.T) {
	e := newTestEngine(t, 19)
	sub := systems.SubEmitterConfig{ID: "s", EmitCount: 1}
	require.NoError(t, e.AddSubEmitter(sub))
	require.NoError(t, e.AddBinding(systems.Binding{
		Feature:      "bass",
		Target:       systems.TargetEmitter,
		TargetID:     "main",
		EmitterParam: systems.EmitterParamRate,
		Max:          1,
		OutMax:       100,
	}))
	stepN(e, 30)

	st := e.State()
	assert.Equal(t, 30, st.Frame)
	assert.InDelta(t, 0.5, st.SimTime, 1e-3)
	assert.Equal(t, e.Live(), st.Live)
	assert.Equal(t, 2000, st.Capacity)
	assert.Equal(t, 1, st.Emitters)
	assert.Equal(t, 1, st.Fields)
	assert.Equal(t, 1, st.SubEmitters)
	assert.Equal(t, 1, st.Bindings)
	assert.Equal(t, 3, st.CachedFrames)
	assert.Equal(t, int64(19), st.Seed)
}
