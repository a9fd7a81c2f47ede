package engine

import (
	"testing"
	"time"

	"github.com/fieldaudio/soundfield/backend/null"
	"github.com/fieldaudio/soundfield/geometry"
)

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	cfg.NumNormalVoices = 4
	cfg.NumStreamingVoices = 1
	e, err := New(cfg, nil, null.New(), nil)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(e.Shutdown)
	return e
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestNewSelectsFallbackWhenPriorityListEmpty(t *testing.T) {
	e := newTestEngine(t)
	if e.be.Name() != "null" {
		t.Fatalf("expected null fallback, got %s", e.be.Name())
	}
}

func TestNewSourceRejectsEmptyName(t *testing.T) {
	e := newTestEngine(t)
	if err := e.NewSource("", SourceOpts{}); err != ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
}

func TestQuickPlayAndListSources(t *testing.T) {
	e := newTestEngine(t)
	if err := e.QuickPlay("s1", SourceOpts{File: "a.wav"}); err != nil {
		t.Fatalf("QuickPlay: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		names := e.ListSources()
		return len(names) == 1 && names[0] == "s1"
	})
}

func TestGetVolumeUnknownSourceReturnsNotFound(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.GetVolume("missing"); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestPlayingReflectsState(t *testing.T) {
	e := newTestEngine(t)
	_ = e.NewSource("s1", SourceOpts{File: "a.wav"})
	waitFor(t, time.Second, func() bool { return len(e.ListSources()) == 1 })
	if e.Playing("s1") {
		t.Fatal("expected s1 to not be playing before Play")
	}
	e.Play("s1")
	waitFor(t, time.Second, func() bool { return e.Playing("s1") })
}

func TestSetMasterVolumeZeroDropsGainToZero(t *testing.T) {
	e := newTestEngine(t)
	none := geometry.AttenuationNone
	_ = e.NewSource("s1", SourceOpts{File: "a.wav", Position: geometry.Vec3{}, Attenuation: &none})
	waitFor(t, time.Second, func() bool { return len(e.ListSources()) == 1 })

	e.SetMasterVolume(0)
	waitFor(t, time.Second, func() bool {
		s, ok := e.reg.Get("s1")
		return ok && s.GetGain() == 0
	})
}
