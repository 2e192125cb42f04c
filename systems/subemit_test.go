package systems

import (
	"testing"

	"github.com/pthm-cable/plume/particle"
)

func TestSubEmitterDefaults(t *testing.T) {
	s := &SubEmitterConfig{ID: "burst"}
	s.ApplyDefaults()
	if s.ParentFilter != AnyParent {
		t.Fatalf("empty filter should default to %q: %q", AnyParent, s.ParentFilter)
	}
	if s.Probability != 1 {
		t.Fatalf("probability default: %v", s.Probability)
	}
	if s.Override.Spread != pi {
		t.Fatalf("override spread should default to full sphere: %v", s.Override.Spread)
	}
}

func TestSubEmitterMatches(t *testing.T) {
	s := &SubEmitterConfig{ParentFilter: "sparks"}
	if !s.Matches("sparks") || s.Matches("smoke") {
		t.Fatal("exact filter mismatch")
	}
	any := &SubEmitterConfig{ParentFilter: AnyParent}
	if !any.Matches("sparks") || !any.Matches("smoke") {
		t.Fatal("wildcard filter should match everything")
	}
}

func TestSubEmitterChildCount(t *testing.T) {
	rng := particle.NewRand(5)
	s := &SubEmitterConfig{EmitCount: 4}
	if got := s.ChildCount(rng); got != 4 {
		t.Fatalf("fixed count: got %d", got)
	}
	s = &SubEmitterConfig{EmitCount: 4, CountVariance: 3}
	for i := 0; i < 100; i++ {
		got := s.ChildCount(rng)
		if got < 1 || got > 7 {
			t.Fatalf("count %d out of [1, 7]", got)
		}
	}
}

func TestSpawnChildInheritsPosition(t *testing.T) {
	s := &SubEmitterConfig{ID: "burst", EmitCount: 1}
	s.ApplyDefaults()
	parent := &particle.Particle{X: 3, Y: 4, Z: 5, Lifetime: 1, Age: 1}
	rng := particle.NewRand(5)
	var child particle.Particle
	SpawnChild(&child, s, parent, rng)
	if child.X != 3 || child.Y != 4 || child.Z != 5 {
		t.Fatalf("child not at parent position: %+v", child)
	}
	if child.Age != 0 {
		t.Fatalf("child age %v", child.Age)
	}
}

func TestSpawnChildVelocityInheritance(t *testing.T) {
	s := &SubEmitterConfig{ID: "burst", InheritVelocity: 1}
	s.Override.Speed = ScalarRange{} // no explosion speed of its own
	s.ApplyDefaults()
	parent := &particle.Particle{VX: 10}
	rng := particle.NewRand(5)
	var child particle.Particle
	SpawnChild(&child, s, parent, rng)
	if !almostEq(child.VX, 10, 1e-4) {
		t.Fatalf("parent velocity not inherited: vx=%v", child.VX)
	}
}

func TestSpawnChildColorBlend(t *testing.T) {
	s := &SubEmitterConfig{ID: "burst", InheritColor: 1}
	s.Override.ColorStart = [4]float32{0, 1, 0, 1}
	s.ApplyDefaults()
	parent := &particle.Particle{R: 1, G: 0, B: 0, A: 0.5}
	rng := particle.NewRand(5)
	var child particle.Particle
	SpawnChild(&child, s, parent, rng)
	if child.R != 1 || child.G != 0 || child.A != 0.5 {
		t.Fatalf("full inherit should copy parent color: %+v", child)
	}

	s2 := &SubEmitterConfig{ID: "burst"}
	s2.Override.ColorStart = [4]float32{0, 1, 0, 1}
	s2.ApplyDefaults()
	var child2 particle.Particle
	SpawnChild(&child2, s2, parent, rng)
	if child2.G != 1 || child2.R != 0 {
		t.Fatalf("zero inherit should use override color: %+v", child2)
	}
}

func TestSpawnChildSizeScaling(t *testing.T) {
	s := &SubEmitterConfig{ID: "burst", InheritSize: 0.5}
	s.Override.Size = ScalarRange{Base: 2}
	s.ApplyDefaults()
	parent := &particle.Particle{Size: 4}
	rng := particle.NewRand(5)
	var child particle.Particle
	SpawnChild(&child, s, parent, rng)
	// size = draw(2) * 0.5 * parent 4 = 4
	if !almostEq(child.Size, 4, 1e-4) {
		t.Fatalf("inherited size scaling: got %v, want 4", child.Size)
	}
}
