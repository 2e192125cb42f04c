package particle

// NoEmitter marks a slot that is not owned by any emitter.
const NoEmitter int32 = -1

// Store is the fixed-capacity particle buffer. Two buffers exist so an
// accelerated update path can ping-pong between them; the CPU path mutates
// the active buffer in place. Free slots live on a stack; when it runs dry
// the globally-oldest live particle is recycled instead of failing the spawn.
type Store struct {
	capacity int
	buffers  [2][]Particle
	active   int

	free      []int32
	live      int
	emitterOf []int32 // slot -> emitter slot, NoEmitter if unowned
}

// NewStore creates a store with the given capacity.
func NewStore(capacity int) *Store {
	if capacity < 1 {
		capacity = 1
	}
	s := &Store{
		capacity:  capacity,
		free:      make([]int32, 0, capacity),
		emitterOf: make([]int32, capacity),
	}
	s.buffers[0] = make([]Particle, capacity)
	s.buffers[1] = make([]Particle, capacity)
	s.Reset()
	return s
}

// Reset kills every particle and refills the free stack.
func (s *Store) Reset() {
	for i := range s.buffers[0] {
		s.buffers[0][i] = Particle{}
		s.buffers[1][i] = Particle{}
	}
	s.free = s.free[:0]
	// Push descending so pops hand out ascending slot indices.
	for i := s.capacity - 1; i >= 0; i-- {
		s.free = append(s.free, int32(i))
	}
	for i := range s.emitterOf {
		s.emitterOf[i] = NoEmitter
	}
	s.live = 0
	s.active = 0
}

// Capacity returns the fixed slot count.
func (s *Store) Capacity() int {
	return s.capacity
}

// Live returns the live particle count.
func (s *Store) Live() int {
	return s.live
}

// FreeCount returns the number of unused slots.
func (s *Store) FreeCount() int {
	return len(s.free)
}

// Buf returns the active buffer. Callers mutate it in place during a step;
// the rendering layer must only copy from it.
func (s *Store) Buf() []Particle {
	return s.buffers[s.active]
}

// Back returns the inactive buffer for ping-pong update paths.
func (s *Store) Back() []Particle {
	return s.buffers[1-s.active]
}

// Swap flips which buffer is active. Called at most once per step.
func (s *Store) Swap() {
	s.active = 1 - s.active
}

// EmitterOf returns the emitter slot that spawned particle i.
func (s *Store) EmitterOf(i int32) int32 {
	return s.emitterOf[i]
}

// SetEmitterOf records particle ownership for sub-emitter parent matching.
func (s *Store) SetEmitterOf(i, emitterSlot int32) {
	s.emitterOf[i] = emitterSlot
}

// Alloc returns a slot for a new particle. If the free stack is empty it
// recycles the globally-oldest live particle (linear scan by age) and reports
// recycled=true; the caller overwrites the slot without touching counts.
func (s *Store) Alloc() (idx int32, recycled bool) {
	if n := len(s.free); n > 0 {
		idx = s.free[n-1]
		s.free = s.free[:n-1]
		s.live++
		return idx, false
	}
	buf := s.buffers[s.active]
	oldest := int32(0)
	oldestAge := float32(-1)
	for i := range buf {
		if buf[i].Alive() && buf[i].Age > oldestAge {
			oldestAge = buf[i].Age
			oldest = int32(i)
		}
	}
	return oldest, true
}

// Release returns a dead slot to the free stack. The slot must not already
// be on the stack.
func (s *Store) Release(idx int32) {
	buf := s.buffers[s.active]
	buf[idx].Lifetime = 0
	buf[idx].Age = 0
	s.emitterOf[idx] = NoEmitter
	s.free = append(s.free, idx)
	s.live--
}

// Snapshot is a deep copy of the store's mutable state.
type Snapshot struct {
	Buf       []Particle
	Free      []int32
	Live      int
	EmitterOf []int32
}

// Snapshot deep-copies the active buffer, free stack, and ownership map.
func (s *Store) Snapshot() Snapshot {
	snap := Snapshot{
		Buf:       make([]Particle, s.capacity),
		Free:      make([]int32, len(s.free)),
		Live:      s.live,
		EmitterOf: make([]int32, s.capacity),
	}
	copy(snap.Buf, s.buffers[s.active])
	copy(snap.Free, s.free)
	copy(snap.EmitterOf, s.emitterOf)
	return snap
}

// RestoreFrom overwrites the store's state from a snapshot.
func (s *Store) RestoreFrom(snap Snapshot) {
	copy(s.buffers[s.active], snap.Buf)
	s.free = s.free[:0]
	s.free = append(s.free, snap.Free...)
	s.live = snap.Live
	copy(s.emitterOf, snap.EmitterOf)
}
