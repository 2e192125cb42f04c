package particle

import "testing"

func spawn(s *Store, lifetime, age float32) int32 {
	idx, _ := s.Alloc()
	p := &s.Buf()[idx]
	p.Lifetime = lifetime
	p.Age = age
	return idx
}

func TestStoreAllocAscending(t *testing.T) {
	s := NewStore(4)
	for want := int32(0); want < 4; want++ {
		idx, recycled := s.Alloc()
		if recycled {
			t.Fatalf("alloc %d reported recycled with free slots remaining", want)
		}
		if idx != want {
			t.Fatalf("alloc order: got slot %d, want %d", idx, want)
		}
	}
	if s.Live() != 4 || s.FreeCount() != 0 {
		t.Fatalf("live=%d free=%d after filling", s.Live(), s.FreeCount())
	}
}

func TestStoreReleaseReuse(t *testing.T) {
	s := NewStore(4)
	for i := 0; i < 4; i++ {
		spawn(s, 1, 0)
	}
	s.Release(2)
	if s.Live() != 3 {
		t.Fatalf("live=%d after release, want 3", s.Live())
	}
	if s.Buf()[2].Lifetime != 0 {
		t.Fatal("released slot still marked alive")
	}
	idx, recycled := s.Alloc()
	if recycled || idx != 2 {
		t.Fatalf("realloc: got slot %d recycled=%v, want slot 2 fresh", idx, recycled)
	}
}

func TestStoreRecyclesOldestWhenFull(t *testing.T) {
	s := NewStore(3)
	spawn(s, 10, 1)
	spawn(s, 10, 5) // oldest
	spawn(s, 10, 3)

	idx, recycled := s.Alloc()
	if !recycled {
		t.Fatal("expected recycle with no free slots")
	}
	if idx != 1 {
		t.Fatalf("recycled slot %d, want 1 (highest age)", idx)
	}
	if s.Live() != 3 {
		t.Fatalf("live=%d after recycle, want unchanged 3", s.Live())
	}
}

func TestStoreSnapshotRestore(t *testing.T) {
	s := NewStore(4)
	a := spawn(s, 2, 0.5)
	b := spawn(s, 3, 1.0)
	s.SetEmitterOf(a, 7)
	s.SetEmitterOf(b, 9)
	snap := s.Snapshot()

	// Mutate past the snapshot.
	s.Release(a)
	spawn(s, 99, 0)
	s.Buf()[b].Age = 2.9

	s.RestoreFrom(snap)
	if s.Live() != 2 {
		t.Fatalf("live=%d after restore, want 2", s.Live())
	}
	if got := s.Buf()[a].Age; got != 0.5 {
		t.Fatalf("slot %d age=%v after restore, want 0.5", a, got)
	}
	if got := s.Buf()[b].Age; got != 1.0 {
		t.Fatalf("slot %d age=%v after restore, want 1.0", b, got)
	}
	if s.EmitterOf(a) != 7 || s.EmitterOf(b) != 9 {
		t.Fatal("emitter ownership not restored")
	}

	// The snapshot must be a deep copy: mutating the store after restore
	// must not touch it.
	s.Buf()[a].Age = 42
	if snap.Buf[a].Age != 0.5 {
		t.Fatal("snapshot aliases the live buffer")
	}
}

func TestStoreSwapFlipsBuffers(t *testing.T) {
	s := NewStore(2)
	s.Buf()[0].X = 1
	s.Back()[0].X = 2
	s.Swap()
	if s.Buf()[0].X != 2 || s.Back()[0].X != 1 {
		t.Fatalf("swap did not flip buffers: buf=%v back=%v", s.Buf()[0].X, s.Back()[0].X)
	}
}

func TestStoreResetRefillsFreeStack(t *testing.T) {
	s := NewStore(4)
	spawn(s, 1, 0)
	spawn(s, 1, 0)
	s.Reset()
	if s.Live() != 0 || s.FreeCount() != 4 {
		t.Fatalf("live=%d free=%d after reset", s.Live(), s.FreeCount())
	}
	idx, _ := s.Alloc()
	if idx != 0 {
		t.Fatalf("first alloc after reset: got %d, want 0", idx)
	}
}
