package voicepool

import (
	"testing"

	"github.com/fieldaudio/soundfield/backend"
	"github.com/fieldaudio/soundfield/backend/null"
)

type fakeOccupants struct {
	playing  map[string]bool
	priority map[string]bool
}

func (f fakeOccupants) IsPlaying(name string) bool  { return f.playing[name] }
func (f fakeOccupants) IsPriority(name string) bool { return f.priority[name] }

func newTestPool(numNormal int) *Pool {
	b := &null.Backend{}
	return New(numNormal, 0, b.CreateVoice)
}

func TestAllocateRebindsSameName(t *testing.T) {
	p := newTestPool(2)
	occ := fakeOccupants{playing: map[string]bool{}, priority: map[string]bool{}}

	v1, evicted := p.Allocate("A", false, occ)
	if v1 == nil || evicted != "" {
		t.Fatalf("expected A to get a voice with no eviction, got %v %q", v1, evicted)
	}
	occ.playing["A"] = true

	v2, evicted2 := p.Allocate("A", false, occ)
	if v2 != v1 || evicted2 != "" {
		t.Fatalf("expected re-bind to same voice, got %v (want %v), evicted=%q", v2, v1, evicted2)
	}
}

func TestAllocateEvictsNonPriorityWhenFull(t *testing.T) {
	p := newTestPool(1)
	occ := fakeOccupants{playing: map[string]bool{"A": true}, priority: map[string]bool{}}

	vA, _ := p.Allocate("A", false, occ)
	if vA == nil {
		t.Fatal("expected A to be allocated")
	}

	vB, evicted := p.Allocate("B", false, occ)
	if vB == nil || vB.ID != vA.ID {
		t.Fatalf("expected B to steal A's voice, got %v", vB)
	}
	if evicted != "A" {
		t.Fatalf("expected eviction of A, got %q", evicted)
	}
}

func TestAllocateRefusesToEvictPriority(t *testing.T) {
	p := newTestPool(1)
	occ := fakeOccupants{playing: map[string]bool{"A": true}, priority: map[string]bool{"A": true}}

	p.Allocate("A", false, occ)
	vB, evicted := p.Allocate("B", false, occ)
	if vB != nil || evicted != "" {
		t.Fatalf("expected allocation to fail when sole occupant is priority+playing, got %v %q", vB, evicted)
	}
}

func TestAllocateReturnsNilOnEmptyPool(t *testing.T) {
	p := newTestPool(0)
	occ := fakeOccupants{playing: map[string]bool{}, priority: map[string]bool{}}
	v, evicted := p.Allocate("A", false, occ)
	if v != nil || evicted != "" {
		t.Fatalf("expected nil allocation on empty pool, got %v %q", v, evicted)
	}
}

var _ = backend.VoiceNormal
