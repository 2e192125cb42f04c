package engine

import (
	"github.com/pthm-cable/plume/particle"
	"github.com/pthm-cable/plume/systems"
)

// cacheEntry is an immutable deep copy of the full mutable simulation state
// at one frame, tagged with the cache version at capture time.
type cacheEntry struct {
	frame   int
	version uint64

	simTime  float32
	rngState int64

	store         particle.Snapshot
	baseSize      []float32
	baseAlpha     []float32
	emitterStates []systems.EmitterState
	emitterCfgs   []systems.EmitterConfig // live configs, binding writes included
	fieldCfgs     []systems.FieldConfig
	smoothed      []float32 // audio binding EMA history

	beatActive     bool
	beatMultiplier float32
}

// frameCache is the versioned snapshot store behind timeline scrubbing.
// Invalidation is lazy: bumping the version makes prior entries stale
// without evicting them, which keeps frequent small invalidations cheap.
type frameCache struct {
	interval int
	capacity int
	version  uint64
	entries  map[int]*cacheEntry
}

func newFrameCache(interval, capacity int) *frameCache {
	if interval < 1 {
		interval = 30
	}
	if capacity < 1 {
		capacity = 60
	}
	return &frameCache{
		interval: interval,
		capacity: capacity,
		entries:  make(map[int]*cacheEntry, capacity),
	}
}

// put stores an entry, evicting the globally-oldest cached frame once
// capacity is exceeded.
func (c *frameCache) put(e *cacheEntry) {
	e.version = c.version
	c.entries[e.frame] = e
	for len(c.entries) > c.capacity {
		oldest := -1
		for f := range c.entries {
			if oldest < 0 || f < oldest {
				oldest = f
			}
		}
		delete(c.entries, oldest)
	}
}

// get returns the entry for frame only if its version is current.
func (c *frameCache) get(frame int) (*cacheEntry, bool) {
	e, ok := c.entries[frame]
	if !ok || e.version != c.version {
		return nil, false
	}
	return e, true
}

// nearestAtOrBefore returns the highest cached frame <= target with a
// current version, or -1.
func (c *frameCache) nearestAtOrBefore(target int) int {
	best := -1
	for f, e := range c.entries {
		if f <= target && e.version == c.version && f > best {
			best = f
		}
	}
	return best
}

// invalidate bumps the version; stale entries are ignored lazily.
func (c *frameCache) invalidate() {
	c.version++
}

// clear drops every entry. Used by SetSeed, where stale state can never be
// replayed again.
func (c *frameCache) clear() {
	c.entries = make(map[int]*cacheEntry, c.capacity)
	c.version++
}

// captureCache deep-copies the engine's mutable state for the current frame.
func (e *Engine) captureCache() *cacheEntry {
	entry := &cacheEntry{
		frame:          e.frame,
		simTime:        e.simTime,
		rngState:       e.rng.State(),
		store:          e.store.Snapshot(),
		baseSize:       append([]float32(nil), e.baseSize...),
		baseAlpha:      append([]float32(nil), e.baseAlpha...),
		emitterStates:  make([]systems.EmitterState, len(e.emitters)),
		emitterCfgs:    make([]systems.EmitterConfig, len(e.emitters)),
		fieldCfgs:      append([]systems.FieldConfig(nil), e.fields...),
		smoothed:       make([]float32, len(e.bindings)),
		beatActive:     e.beatActive,
		beatMultiplier: e.beatMultiplier,
	}
	for i := range e.emitters {
		entry.emitterStates[i] = e.emitters[i].state
		entry.emitterCfgs[i] = e.emitters[i].cfg
	}
	for i := range e.bindings {
		entry.smoothed[i] = e.bindings[i].Smoothed
	}
	return entry
}

// restoreCacheEntry overwrites the engine's mutable state from an entry.
// Arena layouts must match, which the version check guarantees: any
// emitter/field/binding mutation invalidates.
func (e *Engine) restoreCacheEntry(entry *cacheEntry) {
	e.frame = entry.frame
	e.simTime = entry.simTime
	e.rng.SetState(entry.rngState)
	e.store.RestoreFrom(entry.store)
	copy(e.baseSize, entry.baseSize)
	copy(e.baseAlpha, entry.baseAlpha)
	for i := range entry.emitterStates {
		if i < len(e.emitters) {
			e.emitters[i].state = entry.emitterStates[i]
			e.emitters[i].cfg = entry.emitterCfgs[i]
		}
	}
	copy(e.fields, entry.fieldCfgs)
	for i := range entry.smoothed {
		if i < len(e.bindings) {
			e.bindings[i].Smoothed = entry.smoothed[i]
		}
	}
	e.beatActive = entry.beatActive
	e.beatMultiplier = entry.beatMultiplier
}

// CacheNow snapshots the current frame into the cache.
func (e *Engine) CacheNow() {
	e.cache.put(e.captureCache())
}

// RestoreFromCache restores the state cached at frame. A stale or missing
// entry is an ordinary miss, not an error.
func (e *Engine) RestoreFromCache(frame int) bool {
	entry, ok := e.cache.get(frame)
	if !ok {
		return false
	}
	e.restoreCacheEntry(entry)
	return true
}

// FindNearestCache returns the highest cached frame <= target with a
// current version, or -1.
func (e *Engine) FindNearestCache(target int) int {
	return e.cache.nearestAtOrBefore(target)
}

// CanContinueFrom reports whether stepping forward beats a cache seek: the
// live frame is at or before target and within 2x the cache interval.
func (e *Engine) CanContinueFrom(target int) bool {
	return target >= e.frame && target-e.frame <= 2*e.cache.interval
}

// InvalidateCache marks all cached frames stale without evicting them.
func (e *Engine) InvalidateCache() {
	e.cache.invalidate()
}

// CachedFrames returns the number of entries currently held, stale included.
func (e *Engine) CachedFrames() int {
	return len(e.cache.entries)
}
