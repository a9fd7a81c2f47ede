package registry

import (
	"testing"

	"github.com/fieldaudio/soundfield/geometry"
)

func TestCreateGetRemove(t *testing.T) {
	r := New()
	s := NewSource("A", false, false, false, false, geometry.Vec3{}, geometry.AttenuationNone, 0, 1)
	r.Create(s)

	got, ok := r.Get("A")
	if !ok || got != s {
		t.Fatalf("expected to get back the created source")
	}

	r.Remove("A")
	if _, ok := r.Get("A"); ok {
		t.Fatal("expected source to be gone after Remove")
	}
}

func TestNotifyListenerMovedRecomputesGain(t *testing.T) {
	r := New()
	s := NewSource("A", false, false, false, false, geometry.Vec3{X: 10}, geometry.AttenuationLinear, 20, 1)
	r.Create(s)

	listener := geometry.NewListener()
	r.NotifyListenerMoved(listener, 1)

	snap := s.Snapshot()
	if snap.Distance != 10 {
		t.Fatalf("expected distance 10, got %v", snap.Distance)
	}
	want := float32(1 - 10.0/20.0)
	if snap.ComputedGain != want {
		t.Fatalf("expected gain %v, got %v", want, snap.ComputedGain)
	}
}

func TestForEachVisitsAllSources(t *testing.T) {
	r := New()
	r.Create(NewSource("A", false, false, false, false, geometry.Vec3{}, geometry.AttenuationNone, 0, 1))
	r.Create(NewSource("B", false, false, false, false, geometry.Vec3{}, geometry.AttenuationNone, 0, 1))

	seen := map[string]bool{}
	r.ForEach(func(s *Source) { seen[s.Name] = true })
	if !seen["A"] || !seen["B"] {
		t.Fatalf("expected ForEach to visit both sources, got %v", seen)
	}
}

func TestListReturnsAllNames(t *testing.T) {
	r := New()
	r.Create(NewSource("A", false, false, false, false, geometry.Vec3{}, geometry.AttenuationNone, 0, 1))
	names := r.List()
	if len(names) != 1 || names[0] != "A" {
		t.Fatalf("expected [A], got %v", names)
	}
}
