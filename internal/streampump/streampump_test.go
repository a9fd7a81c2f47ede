package streampump

import (
	"testing"
	"time"

	"github.com/fieldaudio/soundfield/backend"
	"github.com/fieldaudio/soundfield/backend/softwaremixer"
	"github.com/fieldaudio/soundfield/clip"
	"github.com/fieldaudio/soundfield/geometry"
	"github.com/fieldaudio/soundfield/internal/registry"
)

func int16LEBytes(n int) []byte {
	out := make([]byte, n*4)
	for i := 0; i < n; i++ {
		out[i*4] = 1
	}
	return out
}

func TestPumpDrainsNonLoopingStreamToCompletion(t *testing.T) {
	be := softwaremixer.New()
	if err := be.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer be.Close()

	v, ok := be.CreateVoice(backend.VoiceStreaming)
	if !ok {
		t.Fatal("expected voice creation to succeed")
	}

	s := registry.NewSource("S", false, true, false, false, geometry.Vec3{}, geometry.AttenuationNone, 0, 1)
	s.SetVoice(v)
	c := &clip.Clip{Format: clip.Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}, Data: int16LEBytes(8)}
	s.SetClip("x.wav", c)
	s.SetState(registry.StatePlaying)
	s.SetActive(true)
	be.Play(v)

	p := New(be, 2, 16, nil)
	p.Start()
	defer p.Stop()
	p.Watch(s, nil)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		be.Render(100)
		if s.Cursor() >= uint64(c.Len()) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if s.Cursor() < uint64(c.Len()) {
		t.Fatalf("expected stream_cursor to reach clip length %d, got %d", c.Len(), s.Cursor())
	}
}

func TestPumpUnwatchesStoppedSource(t *testing.T) {
	be := softwaremixer.New()
	_ = be.Open()
	defer be.Close()

	s := registry.NewSource("S", false, true, false, false, geometry.Vec3{}, geometry.AttenuationNone, 0, 1)
	s.SetState(registry.StateStopped)

	p := New(be, 2, 16, nil)
	p.Start()
	defer p.Stop()
	p.Watch(s, nil)

	time.Sleep(50 * time.Millisecond)
	p.mu.Lock()
	_, watched := p.set[s]
	p.mu.Unlock()
	if watched {
		t.Fatal("expected stopped source to be dropped from watch list")
	}
}
