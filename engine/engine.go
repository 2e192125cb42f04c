// Package engine orchestrates the particle simulation: emitters, force
// fields, flocking, collisions, sub-emitters, and audio bindings advance
// together under a single seeded random stream, so any frame can be
// reproduced bit-for-bit from (seed, configuration, frame index).
package engine

import (
	"fmt"

	"github.com/pthm-cable/plume/particle"
	"github.com/pthm-cable/plume/systems"
	"github.com/pthm-cable/plume/telemetry"
)

// Options configures a new Engine.
type Options struct {
	Capacity      int     // particle pool size
	Seed          int64   // random stream seed
	CellSize      float32 // spatial grid cell size
	CacheInterval int     // frames between automatic snapshots
	CacheCapacity int     // max snapshots held
}

// emitterEntry pairs an emitter's configuration with its runtime state.
// base is the configuration as registered; cfg is the live copy that audio
// bindings write into. Configs live in a dense slice so per-frame iteration
// order is the slot order, never map order.
type emitterEntry struct {
	cfg   systems.EmitterConfig
	base  systems.EmitterConfig
	state systems.EmitterState
}

// deathRecord captures a particle at the moment of death for sub-emitter
// processing, after its slot has already been released.
type deathRecord struct {
	slot        int32
	emitterSlot int32
	parent      particle.Particle
}

// Engine is the simulation core. It is not safe for concurrent use; drive
// it from one goroutine and read particle state between steps.
type Engine struct {
	opts Options
	seed int64
	rng  *particle.Rand

	store *particle.Store
	// Spawn-time size and alpha, kept so lifetime modulation curves scale
	// the original values instead of compounding frame over frame.
	baseSize  []float32
	baseAlpha []float32

	emitters     []emitterEntry
	emitterIndex map[string]int

	fields     []systems.FieldConfig
	fieldBases []systems.FieldConfig // as registered, before binding writes
	fieldIndex map[string]int

	subs     []systems.SubEmitterConfig
	subIndex map[string]int

	bindings     []systems.Binding
	bindingIndex map[string]int

	flocking  systems.FlockingConfig
	collision systems.CollisionConfig

	grid  *systems.Grid
	noise *systems.CurlNoise

	features       map[string]float32
	beatActive     bool
	beatMultiplier float32

	frame   int
	simTime float32

	cache  *frameCache
	events eventQueue

	deaths  []deathRecord
	scratch []int32

	collector *telemetry.Collector
	perf      *telemetry.PerfCollector
}

// New builds an engine with the given options. Zero-valued options fall
// back to usable defaults.
func New(opts Options) *Engine {
	if opts.Capacity < 1 {
		opts.Capacity = 100000
	}
	if opts.CellSize <= 0 {
		opts.CellSize = 5
	}
	e := &Engine{
		opts:         opts,
		seed:         opts.Seed,
		rng:          particle.NewRand(opts.Seed),
		store:        particle.NewStore(opts.Capacity),
		baseSize:     make([]float32, opts.Capacity),
		baseAlpha:    make([]float32, opts.Capacity),
		emitterIndex: make(map[string]int),
		fieldIndex:   make(map[string]int),
		subIndex:     make(map[string]int),
		bindingIndex: make(map[string]int),
		grid:         systems.NewGrid(opts.CellSize),
		noise:        systems.NewCurlNoise(opts.Seed),
		features:     make(map[string]float32),
		cache:        newFrameCache(opts.CacheInterval, opts.CacheCapacity),
	}
	return e
}

// Frame returns the index of the last completed step.
func (e *Engine) Frame() int { return e.frame }

// SimTime returns accumulated simulation time in seconds.
func (e *Engine) SimTime() float32 { return e.simTime }

// Live returns the live particle count.
func (e *Engine) Live() int { return e.store.Live() }

// Capacity returns the particle pool size.
func (e *Engine) Capacity() int { return e.store.Capacity() }

// Particles exposes the active buffer for rendering. Treat it as
// read-only; entries where Alive() is false are pool slack.
func (e *Engine) Particles() []particle.Particle { return e.store.Buf() }

// Subscribe registers a lifecycle event listener and returns an
// unsubscribe func. Events are delivered at the end of each step.
func (e *Engine) Subscribe(fn Listener) func() { return e.events.Subscribe(fn) }

// SetTelemetry attaches optional collectors. Timing and counters never
// feed back into the simulation, so telemetry cannot perturb replay.
func (e *Engine) SetTelemetry(c *telemetry.Collector, p *telemetry.PerfCollector) {
	e.collector = c
	e.perf = p
}

// AddEmitter registers an emitter. Returns an error on duplicate id.
func (e *Engine) AddEmitter(cfg systems.EmitterConfig) error {
	if cfg.ID == "" {
		return fmt.Errorf("emitter id required")
	}
	if _, ok := e.emitterIndex[cfg.ID]; ok {
		return fmt.Errorf("emitter %q already exists", cfg.ID)
	}
	cfg.ApplyDefaults()
	e.emitterIndex[cfg.ID] = len(e.emitters)
	e.emitters = append(e.emitters, emitterEntry{cfg: cfg, base: cfg, state: systems.EmitterState{PrevPos: cfg.Position}})
	e.cache.invalidate()
	return nil
}

// UpdateEmitter replaces an emitter's configuration, preserving its
// runtime state so the fractional accumulator is not reset mid-stream.
func (e *Engine) UpdateEmitter(cfg systems.EmitterConfig) error {
	slot, ok := e.emitterIndex[cfg.ID]
	if !ok {
		return fmt.Errorf("emitter %q not found", cfg.ID)
	}
	cfg.ApplyDefaults()
	e.emitters[slot].cfg = cfg
	e.emitters[slot].base = cfg
	e.cache.invalidate()
	return nil
}

// RemoveEmitter unregisters an emitter with swap-remove. Its surviving
// particles are orphaned, not killed.
func (e *Engine) RemoveEmitter(id string) error {
	slot, ok := e.emitterIndex[id]
	if !ok {
		return fmt.Errorf("emitter %q not found", id)
	}
	last := len(e.emitters) - 1
	movedID := e.emitters[last].cfg.ID
	e.emitters[slot] = e.emitters[last]
	e.emitters = e.emitters[:last]
	delete(e.emitterIndex, id)
	if slot != last {
		e.emitterIndex[movedID] = slot
	}

	// Fix up particle ownership: orphan the removed emitter's particles
	// and retarget the moved slot's.
	buf := e.store.Buf()
	for i := range buf {
		switch e.store.EmitterOf(int32(i)) {
		case int32(slot):
			e.store.SetEmitterOf(int32(i), particle.NoEmitter)
		case int32(last):
			e.store.SetEmitterOf(int32(i), int32(slot))
		}
	}
	e.cache.invalidate()
	return nil
}

// SetEmitterSpline attaches a spline sampler to an emitter. Splines are
// runtime assets, not config, so they are attached separately.
func (e *Engine) SetEmitterSpline(id string, fn systems.SplineFunc) error {
	slot, ok := e.emitterIndex[id]
	if !ok {
		return fmt.Errorf("emitter %q not found", id)
	}
	e.emitters[slot].cfg.Spline = fn
	e.emitters[slot].base.Spline = fn
	e.cache.invalidate()
	return nil
}

// SetEmitterMask attaches a pixel mask for image-shaped emission.
func (e *Engine) SetEmitterMask(id string, m *systems.PixelMask) error {
	slot, ok := e.emitterIndex[id]
	if !ok {
		return fmt.Errorf("emitter %q not found", id)
	}
	e.emitters[slot].cfg.Mask = m
	e.emitters[slot].base.Mask = m
	e.cache.invalidate()
	return nil
}

// SetEmitterDepth attaches a depth map for depth-edge emission.
func (e *Engine) SetEmitterDepth(id string, d *systems.DepthMap) error {
	slot, ok := e.emitterIndex[id]
	if !ok {
		return fmt.Errorf("emitter %q not found", id)
	}
	e.emitters[slot].cfg.Depth = d
	e.emitters[slot].base.Depth = d
	e.cache.invalidate()
	return nil
}

// Emitter returns a copy of the named emitter's configuration.
func (e *Engine) Emitter(id string) (systems.EmitterConfig, bool) {
	slot, ok := e.emitterIndex[id]
	if !ok {
		return systems.EmitterConfig{}, false
	}
	return e.emitters[slot].cfg, true
}

// EmitterIDs returns all emitter ids in slot order.
func (e *Engine) EmitterIDs() []string {
	ids := make([]string, len(e.emitters))
	for i := range e.emitters {
		ids[i] = e.emitters[i].cfg.ID
	}
	return ids
}

// AddField registers a force field. Returns an error on duplicate id.
func (e *Engine) AddField(cfg systems.FieldConfig) error {
	if cfg.ID == "" {
		return fmt.Errorf("field id required")
	}
	if _, ok := e.fieldIndex[cfg.ID]; ok {
		return fmt.Errorf("field %q already exists", cfg.ID)
	}
	cfg.ApplyDefaults()
	e.fieldIndex[cfg.ID] = len(e.fields)
	e.fields = append(e.fields, cfg)
	e.fieldBases = append(e.fieldBases, cfg)
	e.cache.invalidate()
	return nil
}

// UpdateField replaces a force field's configuration.
func (e *Engine) UpdateField(cfg systems.FieldConfig) error {
	slot, ok := e.fieldIndex[cfg.ID]
	if !ok {
		return fmt.Errorf("field %q not found", cfg.ID)
	}
	cfg.ApplyDefaults()
	e.fields[slot] = cfg
	e.fieldBases[slot] = cfg
	e.cache.invalidate()
	return nil
}

// RemoveField unregisters a force field with swap-remove.
func (e *Engine) RemoveField(id string) error {
	slot, ok := e.fieldIndex[id]
	if !ok {
		return fmt.Errorf("field %q not found", id)
	}
	last := len(e.fields) - 1
	movedID := e.fields[last].ID
	e.fields[slot] = e.fields[last]
	e.fields = e.fields[:last]
	e.fieldBases[slot] = e.fieldBases[last]
	e.fieldBases = e.fieldBases[:last]
	delete(e.fieldIndex, id)
	if slot != last {
		e.fieldIndex[movedID] = slot
	}
	e.cache.invalidate()
	return nil
}

// Field returns a copy of the named field's configuration.
func (e *Engine) Field(id string) (systems.FieldConfig, bool) {
	slot, ok := e.fieldIndex[id]
	if !ok {
		return systems.FieldConfig{}, false
	}
	return e.fields[slot], true
}

// AddSubEmitter registers a sub-emitter.
func (e *Engine) AddSubEmitter(cfg systems.SubEmitterConfig) error {
	if cfg.ID == "" {
		return fmt.Errorf("sub-emitter id required")
	}
	if _, ok := e.subIndex[cfg.ID]; ok {
		return fmt.Errorf("sub-emitter %q already exists", cfg.ID)
	}
	cfg.ApplyDefaults()
	e.subIndex[cfg.ID] = len(e.subs)
	e.subs = append(e.subs, cfg)
	e.cache.invalidate()
	return nil
}

// RemoveSubEmitter unregisters a sub-emitter with swap-remove.
func (e *Engine) RemoveSubEmitter(id string) error {
	slot, ok := e.subIndex[id]
	if !ok {
		return fmt.Errorf("sub-emitter %q not found", id)
	}
	last := len(e.subs) - 1
	movedID := e.subs[last].ID
	e.subs[slot] = e.subs[last]
	e.subs = e.subs[:last]
	delete(e.subIndex, id)
	if slot != last {
		e.subIndex[movedID] = slot
	}
	e.cache.invalidate()
	return nil
}

// AddBinding registers an audio binding keyed by feature+target.
func (e *Engine) AddBinding(b systems.Binding) error {
	key := bindingKey(b)
	if _, ok := e.bindingIndex[key]; ok {
		return fmt.Errorf("binding %q already exists", key)
	}
	e.bindingIndex[key] = len(e.bindings)
	e.bindings = append(e.bindings, b)
	e.cache.invalidate()
	return nil
}

// RemoveBinding unregisters an audio binding with swap-remove.
func (e *Engine) RemoveBinding(b systems.Binding) error {
	key := bindingKey(b)
	slot, ok := e.bindingIndex[key]
	if !ok {
		return fmt.Errorf("binding %q not found", key)
	}
	last := len(e.bindings) - 1
	movedKey := bindingKey(e.bindings[last])
	e.bindings[slot] = e.bindings[last]
	e.bindings = e.bindings[:last]
	delete(e.bindingIndex, key)
	if slot != last {
		e.bindingIndex[movedKey] = slot
	}
	e.cache.invalidate()
	return nil
}

func bindingKey(b systems.Binding) string {
	return fmt.Sprintf("%s/%d/%s/%d/%d", b.Feature, b.Target, b.TargetID, b.EmitterParam, b.FieldParam)
}

// SetFlocking replaces the flocking configuration.
func (e *Engine) SetFlocking(cfg systems.FlockingConfig) {
	e.flocking = cfg
	e.cache.invalidate()
}

// Flocking returns the current flocking configuration.
func (e *Engine) Flocking() systems.FlockingConfig { return e.flocking }

// SetCollision replaces the collision configuration.
func (e *Engine) SetCollision(cfg systems.CollisionConfig) {
	e.collision = cfg
	e.cache.invalidate()
}

// Collision returns the current collision configuration.
func (e *Engine) Collision() systems.CollisionConfig { return e.collision }

// SetAudioFeature publishes the latest value of a named audio feature.
// Bindings read it every step until it is overwritten.
func (e *Engine) SetAudioFeature(name string, value float32) {
	e.features[name] = value
}

// TriggerBeat arms beat-burst emitters for the next step. The flag clears
// after one step.
func (e *Engine) TriggerBeat(multiplier float32) {
	if multiplier <= 0 {
		multiplier = 1
	}
	e.beatActive = true
	e.beatMultiplier = multiplier
}

// Seed returns the engine's current seed.
func (e *Engine) Seed() int64 { return e.seed }

// State is a point-in-time summary of the engine, sized for HUDs and logs.
type State struct {
	Frame        int
	SimTime      float32
	Live         int
	Capacity     int
	Emitters     int
	Fields       int
	SubEmitters  int
	Bindings     int
	CachedFrames int
	Seed         int64
}

// State returns a summary of the current simulation state.
func (e *Engine) State() State {
	return State{
		Frame:        e.frame,
		SimTime:      e.simTime,
		Live:         e.store.Live(),
		Capacity:     e.store.Capacity(),
		Emitters:     len(e.emitters),
		Fields:       len(e.fields),
		SubEmitters:  len(e.subs),
		Bindings:     len(e.bindings),
		CachedFrames: len(e.cache.entries),
		Seed:         e.seed,
	}
}

// SetSeed installs a new seed and resets. The cache is cleared rather than
// invalidated: frames from the old stream can never be replayed again.
func (e *Engine) SetSeed(seed int64) {
	e.seed = seed
	e.noise = systems.NewCurlNoise(seed)
	e.cache.clear()
	e.Reset()
}

// Reset rewinds to frame 0 with the current seed and configuration.
// Binding-driven parameter writes revert to the registered configs, so the
// replay starts from the same state a fresh engine would. Cached snapshots
// stay valid: the rebuilt timeline is identical.
func (e *Engine) Reset() {
	e.rng.Seed(e.seed)
	e.store.Reset()
	for i := range e.baseSize {
		e.baseSize[i] = 0
		e.baseAlpha[i] = 0
	}
	for i := range e.emitters {
		e.emitters[i].cfg = e.emitters[i].base
		e.emitters[i].state = systems.EmitterState{PrevPos: e.emitters[i].cfg.Position}
	}
	copy(e.fields, e.fieldBases)
	for i := range e.bindings {
		e.bindings[i].Smoothed = 0
	}
	e.beatActive = false
	e.beatMultiplier = 0
	e.frame = 0
	e.simTime = 0
	e.deaths = e.deaths[:0]
}
