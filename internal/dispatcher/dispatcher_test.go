package dispatcher

import (
	"testing"
	"time"

	"github.com/fieldaudio/soundfield/backend"
	"github.com/fieldaudio/soundfield/backend/softwaremixer"
	"github.com/fieldaudio/soundfield/clip"
	"github.com/fieldaudio/soundfield/geometry"
	"github.com/fieldaudio/soundfield/internal/registry"
	"github.com/fieldaudio/soundfield/internal/streampump"
	"github.com/fieldaudio/soundfield/internal/voicepool"
)

type fakeDecoder struct{ data []byte }

func (f fakeDecoder) Decode(path string) (clip.Format, []byte, error) {
	return clip.Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}, f.data, nil
}

func int16LEBytes(n int) []byte {
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		out[i*4] = 1
	}
	return out
}

func newTestDispatcher(t *testing.T, numNormal, numStreaming int) (*Dispatcher, backend.Backend, *registry.Registry) {
	t.Helper()
	be := softwaremixer.New()
	if err := be.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { be.Close() })

	reg := registry.New()
	pool := voicepool.New(numNormal, numStreaming, be.CreateVoice)
	pump := streampump.New(be, 2, 64, nil)
	pump.Start()
	t.Cleanup(pump.Stop)

	cache := clip.NewCache(map[string]clip.Decoder{
		".wav": fakeDecoder{data: int16LEBytes(32)},
	}, 0)

	d := New(reg, pool, pump, be, cache, 0, 1.0, nil)
	d.Start()
	t.Cleanup(d.Stop)
	return d, be, reg
}

func drain(t *testing.T, d *Dispatcher) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for {
		d.mu.Lock()
		empty := len(d.queue) == 0
		d.mu.Unlock()
		if empty {
			return
		}
		if time.Now().After(deadline) {
			t.Fatal("dispatcher did not drain queue in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestNewSourceThenPlayReachesPlayingState(t *testing.T) {
	d, _, reg := newTestDispatcher(t, 4, 2)

	d.Enqueue(Command{Kind: CmdNewSource, Source: "s1", File: "clip.wav", Gain: 1})
	drain(t, d)
	d.Enqueue(Command{Kind: CmdPlay, Source: "s1"})
	drain(t, d)
	time.Sleep(10 * time.Millisecond)

	s, ok := reg.Get("s1")
	if !ok {
		t.Fatal("expected source s1 to exist")
	}
	if got := s.GetState(); got != registry.StatePlaying {
		t.Fatalf("expected StatePlaying, got %v", got)
	}
	if s.VoiceHandle() == nil {
		t.Fatal("expected a voice to be bound")
	}
}

func TestQuickPlayStartsImmediately(t *testing.T) {
	d, _, reg := newTestDispatcher(t, 4, 2)

	d.Enqueue(Command{Kind: CmdQuickPlay, Source: "qp", File: "clip.wav", Gain: 1})
	drain(t, d)
	time.Sleep(10 * time.Millisecond)

	s, ok := reg.Get("qp")
	if !ok {
		t.Fatal("expected source qp to exist")
	}
	if got := s.GetState(); got != registry.StatePlaying {
		t.Fatalf("expected StatePlaying, got %v", got)
	}
}

func TestPauseStopRewindTransitions(t *testing.T) {
	d, _, reg := newTestDispatcher(t, 4, 2)

	d.Enqueue(Command{Kind: CmdNewSource, Source: "s1", File: "clip.wav", Gain: 1})
	d.Enqueue(Command{Kind: CmdPlay, Source: "s1"})
	drain(t, d)

	d.Enqueue(Command{Kind: CmdPause, Source: "s1"})
	drain(t, d)
	s, _ := reg.Get("s1")
	if got := s.GetState(); got != registry.StatePaused {
		t.Fatalf("expected StatePaused, got %v", got)
	}

	d.Enqueue(Command{Kind: CmdRewind, Source: "s1"})
	drain(t, d)
	if got := s.GetState(); got != registry.StateStopped {
		t.Fatalf("rewind of a paused source should land Stopped, got %v", got)
	}

	d.Enqueue(Command{Kind: CmdPlay, Source: "s1"})
	drain(t, d)
	d.Enqueue(Command{Kind: CmdStop, Source: "s1"})
	drain(t, d)
	if got := s.GetState(); got != registry.StateStopped {
		t.Fatalf("expected StateStopped after Stop, got %v", got)
	}
}

func TestCullThenActivateReinstates(t *testing.T) {
	d, _, reg := newTestDispatcher(t, 4, 2)

	d.Enqueue(Command{Kind: CmdNewSource, Source: "s1", File: "clip.wav", Looping: true, Gain: 1})
	d.Enqueue(Command{Kind: CmdPlay, Source: "s1"})
	drain(t, d)

	d.Enqueue(Command{Kind: CmdCull, Source: "s1"})
	drain(t, d)
	s, _ := reg.Get("s1")
	if got := s.GetState(); got != registry.StateCulled {
		t.Fatalf("expected StateCulled, got %v", got)
	}
	if s.VoiceHandle() != nil {
		t.Fatal("expected voice to be released on cull")
	}

	d.Enqueue(Command{Kind: CmdActivate, Source: "s1"})
	drain(t, d)
	// s1 was looping when culled, so reactivation's sourceManagement pass
	// picks up its pending_play and resumes it automatically.
	if got := s.GetState(); got != registry.StatePlaying {
		t.Fatalf("expected a looping culled source to auto-resume to StatePlaying after activate, got %v", got)
	}
}

func TestVoiceExhaustionLeavesSourceStopped(t *testing.T) {
	d, _, reg := newTestDispatcher(t, 1, 0)

	d.Enqueue(Command{Kind: CmdNewSource, Source: "a", File: "clip.wav", Priority: true, Gain: 1})
	d.Enqueue(Command{Kind: CmdPlay, Source: "a"})
	d.Enqueue(Command{Kind: CmdNewSource, Source: "b", File: "clip.wav", Priority: true, Gain: 1})
	d.Enqueue(Command{Kind: CmdPlay, Source: "b"})
	drain(t, d)
	time.Sleep(10 * time.Millisecond)

	b, _ := reg.Get("b")
	if got := b.GetState(); got != registry.StateStopped {
		t.Fatalf("expected voice-exhausted play to leave source Stopped, got %v", got)
	}
}

func TestSetMasterVolumeRecomputesGain(t *testing.T) {
	d, _, reg := newTestDispatcher(t, 2, 0)

	d.Enqueue(Command{Kind: CmdNewSource, Source: "s1", File: "clip.wav", Gain: 1,
		Pos: geometry.Vec3{}, Attenuation: geometry.AttenuationNone})
	drain(t, d)

	d.Enqueue(Command{Kind: CmdSetMasterVolume, Gain: 0})
	drain(t, d)

	s, _ := reg.Get("s1")
	if got := s.GetGain(); got != 0 {
		t.Fatalf("expected gain 0 after master volume 0, got %v", got)
	}
}

func TestRemoveSourceDropsFromRegistry(t *testing.T) {
	d, _, reg := newTestDispatcher(t, 2, 0)

	d.Enqueue(Command{Kind: CmdNewSource, Source: "s1", File: "clip.wav", Gain: 1})
	drain(t, d)
	d.Enqueue(Command{Kind: CmdRemoveSource, Source: "s1"})
	drain(t, d)

	if _, ok := reg.Get("s1"); ok {
		t.Fatal("expected s1 to be removed from the registry")
	}
}
