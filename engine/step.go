package engine

import (
	"github.com/pthm-cable/plume/particle"
	"github.com/pthm-cable/plume/systems"
	"github.com/pthm-cable/plume/telemetry"
)

// Step advances the simulation by dt seconds. Phase order is fixed:
// emission, physics, death processing, sub-emitters, grid rebuild,
// flocking, collisions, audio bindings. Changing the order changes the
// stream of random draws and therefore every subsequent frame.
func (e *Engine) Step(dt float32) {
	if dt <= 0 {
		return
	}
	if e.perf != nil {
		e.perf.StartTick()
	}

	var spawned, died, recycled, subSpawned int

	if e.perf != nil {
		e.perf.StartPhase(telemetry.PhaseEmission)
	}
	spawned, recycled = e.emit(dt)

	if e.perf != nil {
		e.perf.StartPhase(telemetry.PhasePhysics)
	}
	e.physics(dt)

	if e.perf != nil {
		e.perf.StartPhase(telemetry.PhaseCleanup)
	}
	died = e.reapDeaths()

	if len(e.deaths) > 0 && len(e.subs) > 0 {
		if e.perf != nil {
			e.perf.StartPhase(telemetry.PhaseSubEmit)
		}
		subSpawned = e.processSubEmitters()
	}
	e.deaths = e.deaths[:0]

	// The grid is built after sub-emission so freshly spawned children
	// flock and collide on their birth frame.
	gridRebuilt := false
	if e.flocking.Enabled || e.collision.ParticleCollisions {
		if e.perf != nil {
			e.perf.StartPhase(telemetry.PhaseSpatialGrid)
		}
		e.grid.Rebuild(e.store.Buf())
		gridRebuilt = true
	}

	if e.flocking.Enabled {
		if e.perf != nil {
			e.perf.StartPhase(telemetry.PhaseFlocking)
		}
		e.scratch = systems.ApplyFlocking(&e.flocking, e.store.Buf(), e.grid, dt, e.scratch)
	}

	if e.collision.Active() {
		if e.perf != nil {
			e.perf.StartPhase(telemetry.PhaseCollision)
		}
		systems.ApplyBounds(&e.collision, e.store.Buf())
		if e.collision.ParticleCollisions {
			e.scratch = systems.ApplyParticleCollisions(&e.collision, e.store.Buf(), e.grid, e.scratch)
		}
	}

	if len(e.bindings) > 0 {
		if e.perf != nil {
			e.perf.StartPhase(telemetry.PhaseAudio)
		}
		e.applyBindings()
	}

	e.beatActive = false
	e.beatMultiplier = 0

	e.events.drain()

	e.frame++
	e.simTime += dt

	if e.cache.interval > 0 && e.frame%e.cache.interval == 0 {
		if e.perf != nil {
			e.perf.StartPhase(telemetry.PhaseCache)
		}
		e.CacheNow()
	}

	if e.perf != nil {
		e.perf.EndTick()
	}
	if e.collector != nil {
		e.collector.RecordFrame(telemetry.FrameSample{
			Frame:       e.frame,
			SimTime:     float64(e.simTime),
			Live:        e.store.Live(),
			Spawned:     spawned,
			SubSpawned:  subSpawned,
			Died:        died,
			Recycled:    recycled,
			GridRebuilt: gridRebuilt,
		})
	}
}

// emit runs every enabled emitter in slot order and spawns this step's
// particles. Returns spawned and recycled counts.
func (e *Engine) emit(dt float32) (spawned, recycled int) {
	for slot := range e.emitters {
		en := &e.emitters[slot]
		cfg := &en.cfg
		systems.TrackMovement(&en.state, cfg.Position, dt)
		if !cfg.Enabled {
			continue
		}

		rate := cfg.Rate
		if cfg.RateVariance > 0 {
			rate = e.rng.Range(cfg.Rate, cfg.RateVariance)
			if rate < 0 {
				rate = 0
			}
		}
		n := systems.Accumulate(&en.state, rate, dt)
		if e.beatActive && cfg.BeatBurst && cfg.BurstCount > 0 {
			n += int(float32(cfg.BurstCount) * e.beatMultiplier)
		}

		for k := 0; k < n; k++ {
			idx, wasRecycled := e.store.Alloc()
			if wasRecycled {
				recycled++
			}
			p := &e.store.Buf()[idx]
			systems.SpawnInto(p, cfg, &en.state, e.rng)
			e.baseSize[idx] = p.Size
			e.baseAlpha[idx] = p.A
			e.store.SetEmitterOf(idx, int32(slot))
			spawned++
			e.events.push(Event{Kind: EventBirth, Slot: idx, EmitterID: cfg.ID, Frame: e.frame})
		}
	}
	return spawned, recycled
}

// physics integrates forces, ages particles, and applies lifetime
// modulation curves.
func (e *Engine) physics(dt float32) {
	buf := e.store.Buf()
	for i := range buf {
		p := &buf[i]
		if !p.Alive() {
			continue
		}

		pos := systems.Vec3{X: p.X, Y: p.Y, Z: p.Z}
		vel := systems.Vec3{X: p.VX, Y: p.VY, Z: p.VZ}

		var force systems.Vec3
		for f := range e.fields {
			fc := &e.fields[f]
			if !fc.Enabled {
				continue
			}
			force = force.Add(systems.EvalForce(fc, e.noise, pos, vel, p.Mass, e.simTime))
		}

		m := p.Mass
		if m < systems.MinMass {
			m = systems.MinMass
		}
		inv := dt / m
		p.VX += force.X * inv
		p.VY += force.Y * inv
		p.VZ += force.Z * inv
		p.X += p.VX * dt
		p.Y += p.VY * dt
		p.Z += p.VZ * dt
		p.Rotation += p.AngularVel * dt
		p.Age += dt

		slot := e.store.EmitterOf(int32(i))
		if slot >= 0 && int(slot) < len(e.emitters) {
			cfg := &e.emitters[slot].cfg
			if cfg.SizeOverLife != nil || cfg.OpacityOverLife != nil {
				lifeT := p.Age / p.Lifetime
				if lifeT > 1 {
					lifeT = 1
				}
				if cfg.SizeOverLife != nil {
					p.Size = e.baseSize[i] * systems.EvalCurve(cfg.SizeOverLife, lifeT, e.rng)
				}
				if cfg.OpacityOverLife != nil {
					p.A = e.baseAlpha[i] * systems.EvalCurve(cfg.OpacityOverLife, lifeT, e.rng)
				}
			}
		}
	}
}

// reapDeaths releases every allocated particle whose age has crossed its
// lifetime, capturing each for sub-emitter processing. Age expiry from this
// step's physics dies now; a boundary kill marked during the collision
// phase is collected on the next step's pass.
func (e *Engine) reapDeaths() int {
	buf := e.store.Buf()
	died := 0
	for i := range buf {
		p := &buf[i]
		if p.Lifetime <= 0 || p.Age < p.Lifetime {
			continue
		}
		slot := e.store.EmitterOf(int32(i))
		e.deaths = append(e.deaths, deathRecord{slot: int32(i), emitterSlot: slot, parent: *p})
		id := ""
		if slot >= 0 && int(slot) < len(e.emitters) {
			id = e.emitters[slot].cfg.ID
		}
		e.events.push(Event{Kind: EventDeath, Slot: int32(i), EmitterID: id, Frame: e.frame})
		e.store.Release(int32(i))
		died++
	}
	return died
}

// processSubEmitters spawns children for this step's deaths. Orphaned and
// sub-emitter-born particles never retrigger, so cascades stop at depth one.
func (e *Engine) processSubEmitters() int {
	spawned := 0
	for d := range e.deaths {
		rec := &e.deaths[d]
		if rec.emitterSlot < 0 || int(rec.emitterSlot) >= len(e.emitters) {
			continue
		}
		parentID := e.emitters[rec.emitterSlot].cfg.ID
		for s := range e.subs {
			sub := &e.subs[s]
			if sub.Trigger != systems.TriggerDeath || !sub.Matches(parentID) {
				continue
			}
			// Drawn even at probability 1 so toggling it never shifts
			// the stream.
			if e.rng.Float32() >= sub.Probability {
				continue
			}
			n := sub.ChildCount(e.rng)
			for k := 0; k < n; k++ {
				idx, _ := e.store.Alloc()
				p := &e.store.Buf()[idx]
				systems.SpawnChild(p, sub, &rec.parent, e.rng)
				e.baseSize[idx] = p.Size
				e.baseAlpha[idx] = p.A
				e.store.SetEmitterOf(idx, particle.NoEmitter)
				spawned++
				e.events.push(Event{Kind: EventBirth, Slot: idx, EmitterID: sub.ID, SubEmitter: true, Frame: e.frame})
			}
		}
	}
	return spawned
}

// applyBindings smooths each bound audio feature and writes the mapped
// value onto its target parameter.
func (e *Engine) applyBindings() {
	for i := range e.bindings {
		b := &e.bindings[i]
		value, ok := e.features[b.Feature]
		if !ok {
			continue
		}
		mapped := b.MapValue(b.Smooth(value))
		switch b.Target {
		case systems.TargetEmitter:
			if slot, ok := e.emitterIndex[b.TargetID]; ok {
				systems.SetEmitterParam(&e.emitters[slot].cfg, b.EmitterParam, mapped)
			}
		case systems.TargetField:
			if slot, ok := e.fieldIndex[b.TargetID]; ok {
				systems.SetFieldParam(&e.fields[slot], b.FieldParam, mapped)
			}
		}
	}
}

// SimulateToFrame brings the engine to exactly target, stepping at 1/fps,
// using the cheapest route: continue forward when the target is close,
// otherwise restore the nearest cached frame at or before it, otherwise
// replay from frame 0. Returns the number of steps executed.
func (e *Engine) SimulateToFrame(target int, fps float32) int {
	if target < 0 {
		target = 0
	}
	if fps <= 0 {
		fps = 60
	}
	dt := 1 / fps

	if target < e.frame || !e.CanContinueFrom(target) {
		best := e.FindNearestCache(target)
		switch {
		case best >= 0 && (target < e.frame || best > e.frame):
			e.RestoreFromCache(best)
		case target < e.frame:
			e.Reset()
		}
	}

	steps := 0
	for e.frame < target {
		e.Step(dt)
		steps++
	}
	return steps
}
