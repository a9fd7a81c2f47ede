// Package null implements backend.Backend as a silent no-op fallback
// (spec.md §4.3): every operation succeeds, nothing actually produces
// sound. It is grounded on the teacher's NullEncoderDecoder pattern in
// pkg/encoderdecoder/nullencoderdecoder.go — an always-succeed (there, an
// always-fail) stand-in selected by the same factory idiom as the real
// implementations.
package null

import (
	"sync"

	"github.com/fieldaudio/soundfield/clip"
	"github.com/fieldaudio/soundfield/geometry"

	"github.com/fieldaudio/soundfield/backend"
)

type voiceState struct {
	playing bool
	paused  bool
}

// Backend is the silent fallback. It still honors pool-size limits (it
// caps created voices at Capacity, default unlimited) so tests can exercise
// the scheduler's "no more voices" path without a real device, and it
// tracks Play/Pause/Stop per voice so IsPlaying behaves like a real
// backend's (true from Play until an explicit Pause/Stop, never flipping
// on its own) rather than reporting every voice permanently finished.
type Backend struct {
	mu       sync.Mutex
	nextID   int
	voices   []*voiceState
	Capacity int // 0 means unlimited
}

func New() *Backend { return &Backend{} }

func (b *Backend) Name() string      { return "null" }
func (b *Backend) IsSupported() bool { return true }
func (b *Backend) Open() error       { return nil }
func (b *Backend) Close() error      { return nil }

func (b *Backend) CreateVoice(kind backend.VoiceKind) (*backend.Voice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Capacity > 0 && b.nextID >= b.Capacity {
		return nil, false
	}
	b.nextID++
	b.voices = append(b.voices, &voiceState{})
	return &backend.Voice{ID: b.nextID, Kind: kind}, true
}

func (b *Backend) voiceState(v *backend.Voice) *voiceState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v == nil || v.ID < 1 || v.ID > len(b.voices) {
		return nil
	}
	return b.voices[v.ID-1]
}

func (b *Backend) AttachOneshot(v *backend.Voice, c *clip.Clip) error { return nil }
func (b *Backend) ResetStream(v *backend.Voice, f clip.Format) error  { return nil }
func (b *Backend) Preload(v *backend.Voice, chunks [][]byte) error    { return nil }
func (b *Backend) Queue(v *backend.Voice, chunk []byte) error         { return nil }
func (b *Backend) BuffersProcessed(v *backend.Voice) (int, error)     { return 0, nil }

func (b *Backend) Play(v *backend.Voice) {
	if vs := b.voiceState(v); vs != nil {
		b.mu.Lock()
		vs.playing = true
		vs.paused = false
		b.mu.Unlock()
	}
}

func (b *Backend) Pause(v *backend.Voice) {
	if vs := b.voiceState(v); vs != nil {
		b.mu.Lock()
		vs.paused = true
		b.mu.Unlock()
	}
}

func (b *Backend) Stop(v *backend.Voice) {
	if vs := b.voiceState(v); vs != nil {
		b.mu.Lock()
		vs.playing = false
		vs.paused = false
		b.mu.Unlock()
	}
}

func (b *Backend) Rewind(v *backend.Voice)     {}
func (b *Backend) Flush(v *backend.Voice)      {}
func (b *Backend) CloseVoice(v *backend.Voice) { b.Stop(v) }

func (b *Backend) IsPlaying(v *backend.Voice) bool {
	vs := b.voiceState(v)
	if vs == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return vs.playing && !vs.paused
}

func (b *Backend) SetGain(v *backend.Voice, gain float32)                               {}
func (b *Backend) SetPan(v *backend.Voice, pan float32)                                 {}
func (b *Backend) Set3D(v *backend.Voice, pos geometry.Vec3, rolloff float32, loop bool) {}
func (b *Backend) SetListener(pos, look, up geometry.Vec3)                              {}
func (b *Backend) SetMasterGain(gain float32)                                           {}

var _ backend.Backend = (*Backend)(nil)
