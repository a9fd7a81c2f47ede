package softwaremixer

import (
	"bytes"
	"testing"
	"time"

	"github.com/fieldaudio/soundfield/backend"
	"github.com/fieldaudio/soundfield/clip"
)

func int16LEBytes(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		out[i*2] = byte(uint16(s))
		out[i*2+1] = byte(uint16(s) >> 8)
	}
	return out
}

func TestCreateVoiceRespectsCapacity(t *testing.T) {
	b := New()
	b.NumVoices = 1
	if _, ok := b.CreateVoice(backend.VoiceNormal); !ok {
		t.Fatal("expected first voice to be created")
	}
	if _, ok := b.CreateVoice(backend.VoiceNormal); ok {
		t.Fatal("expected second voice to be rejected at capacity")
	}
}

func TestAttachOneshotAdaptsMonoToStereo(t *testing.T) {
	b := New()
	v, _ := b.CreateVoice(backend.VoiceNormal)

	mono := int16LEBytes(100, -100, 200)
	c := &clip.Clip{Format: clip.Format{SampleRate: 44100, Channels: 1, BitsPerSample: 16}, Data: mono}
	if err := b.AttachOneshot(v, c); err != nil {
		t.Fatalf("AttachOneshot: %v", err)
	}

	vs := b.voiceState(v)
	if len(vs.data) != len(mono)*2 {
		t.Fatalf("expected upmixed stereo length %d, got %d", len(mono)*2, len(vs.data))
	}
}

func TestRenderMixesOneshotToCompletion(t *testing.T) {
	b := New()
	v, _ := b.CreateVoice(backend.VoiceNormal)
	stereo := int16LEBytes(1000, 1000, 2000, 2000)
	c := &clip.Clip{Format: clip.Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}, Data: stereo}
	if err := b.AttachOneshot(v, c); err != nil {
		t.Fatalf("AttachOneshot: %v", err)
	}
	b.SetGain(v, 1)
	b.SetPan(v, 0)
	b.Play(v)

	out := b.Render(2)
	if len(out) != 2*2*2 {
		t.Fatalf("expected 8 bytes of stereo PCM, got %d", len(out))
	}
	if !b.IsPlaying(v) {
		t.Fatal("voice should still be playing until a render runs past the end of the clip")
	}

	// Both frames are consumed; the next render finds no data and stops the voice.
	b.Render(1)
	if b.IsPlaying(v) {
		t.Fatal("expected voice to stop after exhausting one-shot data")
	}
}

func TestPreloadEmptyChunksReportsEndOfStream(t *testing.T) {
	b := New()
	v, _ := b.CreateVoice(backend.VoiceStreaming)
	err := b.Preload(v, nil)
	if err != backend.ErrEndOfStream {
		t.Fatalf("expected ErrEndOfStream, got %v", err)
	}
}

func TestBuffersProcessedCountsConsumedChunks(t *testing.T) {
	b := New()
	v, _ := b.CreateVoice(backend.VoiceStreaming)
	chunk := int16LEBytes(10, 10)
	if err := b.Preload(v, [][]byte{chunk, chunk}); err != nil {
		t.Fatalf("Preload: %v", err)
	}
	b.Play(v)
	b.Render(1)
	b.Render(1)

	n, err := b.BuffersProcessed(v)
	if err != nil {
		t.Fatalf("BuffersProcessed: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 consumed chunks, got %d", n)
	}

	n2, _ := b.BuffersProcessed(v)
	if n2 != 0 {
		t.Fatalf("expected counter to reset after read, got %d", n2)
	}
}

func TestOpenCloseWritesToOutput(t *testing.T) {
	b := New()
	var buf bytes.Buffer
	b.Output = &buf
	if err := b.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	time.Sleep(5 * callbackInterval)
	if err := b.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatal("expected the mixer callback to write PCM to Output while open")
	}
}

func TestStopClearsPlaybackCursor(t *testing.T) {
	b := New()
	v, _ := b.CreateVoice(backend.VoiceNormal)
	c := &clip.Clip{Format: clip.Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}, Data: int16LEBytes(1, 1, 2, 2)}
	_ = b.AttachOneshot(v, c)
	b.Play(v)
	b.Render(1)
	b.Stop(v)

	vs := b.voiceState(v)
	if vs.pos != 0 || vs.playing {
		t.Fatalf("expected Stop to reset position and clear playing, got pos=%d playing=%v", vs.pos, vs.playing)
	}
}
