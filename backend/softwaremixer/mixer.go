// Package softwaremixer implements backend.Backend without any native 3D
// audio API: the engine computes per-voice gain and pan (geometry package)
// and this backend applies them during a software mix-down, the same split
// of responsibility spec.md §4.3 assigns to "SoftwareMixer". Its simulated
// real-time thread is grounded on the teacher's RtAudioOutputDevice output
// callback (pkg/audiodevice/device/rtaudiooutputdevice.go): a ticker pulls
// queued PCM from each voice and mixes it down, the same shape as that
// callback's non-blocking drain of a frame queue.
package softwaremixer

import (
	"io"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/fieldaudio/soundfield/backend"
	"github.com/fieldaudio/soundfield/clip"
	"github.com/fieldaudio/soundfield/geometry"
)

const (
	outputSampleRate = 44100
	outputChannels   = 2
	callbackInterval = 10 * time.Millisecond
)

// Backend is the software-mixed output layer. Output, if set before Open,
// receives the interleaved 16-bit PCM bytes this backend would otherwise
// hand to a sound device; tests can point it at a bytes.Buffer to inspect
// what was actually mixed. It defaults to io.Discard.
type Backend struct {
	Output io.Writer
	Logger *slog.Logger

	MinDB, MaxDB float64 // gain-control bounds for LinearToDB; 0 picks DefaultMinDB/DefaultMaxDB
	NumVoices    int     // total CreateVoice budget; 0 means unlimited

	mu         sync.Mutex
	voices     []*voiceState
	masterGain float32
	open       bool
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func New() *Backend {
	return &Backend{masterGain: 1}
}

func (b *Backend) Name() string      { return "software_mixer" }
func (b *Backend) IsSupported() bool { return true }

func (b *Backend) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func (b *Backend) Open() error {
	b.mu.Lock()
	if b.open {
		b.mu.Unlock()
		return nil
	}
	b.open = true
	if b.Output == nil {
		b.Output = io.Discard
	}
	b.stopCh = make(chan struct{})
	b.mu.Unlock()

	b.wg.Add(1)
	go b.run()
	b.logger().Info("software mixer backend opened", "sampleRate", outputSampleRate, "channels", outputChannels)
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	if !b.open {
		b.mu.Unlock()
		return nil
	}
	b.open = false
	close(b.stopCh)
	b.mu.Unlock()
	b.wg.Wait()
	return nil
}

func (b *Backend) run() {
	defer b.wg.Done()
	ticker := time.NewTicker(callbackInterval)
	defer ticker.Stop()
	framesPerTick := int(float64(outputSampleRate) * callbackInterval.Seconds())
	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C:
			out := b.render(framesPerTick)
			if len(out) > 0 {
				_, _ = b.Output.Write(out)
			}
		}
	}
}

// render mixes nFrames stereo frames from every active, playing voice and
// advances their cursors. It is also exported via Render for deterministic
// tests that don't want to depend on wall-clock ticks.
func (b *Backend) render(nFrames int) []byte {
	mix := make([]int32, nFrames*outputChannels)

	b.mu.Lock()
	voices := append([]*voiceState(nil), b.voices...)
	master := b.masterGain
	b.mu.Unlock()

	for _, v := range voices {
		if v == nil {
			continue
		}
		v.mu.Lock()
		if v.created && v.playing && !v.paused {
			mixVoiceLocked(v, mix, nFrames, master)
		}
		v.mu.Unlock()
	}

	out := make([]byte, len(mix)*2)
	for i, s := range mix {
		if s > 32767 {
			s = 32767
		}
		if s < -32768 {
			s = -32768
		}
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// Render exposes the mix-down for tests; it performs exactly what the
// background callback performs each tick.
func (b *Backend) Render(nFrames int) []byte { return b.render(nFrames) }

func mixVoiceLocked(v *voiceState, mix []int32, nFrames int, master float32) {
	left, right := v.leftRightGain()
	left *= master
	right *= master

	for i := 0; i < nFrames; i++ {
		l, r, ok := nextFrame16(v)
		if !ok {
			v.playing = false
			break
		}
		mix[i*2] += int32(float32(l) * left)
		mix[i*2+1] += int32(float32(r) * right)
	}
}

// nextFrame16 pulls one stereo frame (already channel-adapted to stereo at
// attach/queue time) from either the one-shot buffer or the streaming
// queue, advancing position and bumping processedUnread on chunk
// boundaries.
func nextFrame16(v *voiceState) (l, r int16, ok bool) {
	if v.data != nil {
		if v.pos+4 > len(v.data) {
			return 0, 0, false
		}
		l = int16(uint16(v.data[v.pos]) | uint16(v.data[v.pos+1])<<8)
		r = int16(uint16(v.data[v.pos+2]) | uint16(v.data[v.pos+3])<<8)
		v.pos += 4
		return l, r, true
	}

	for len(v.queue) > 0 {
		chunk := v.queue[0]
		if v.chunkPos+4 > len(chunk) {
			v.queue = v.queue[1:]
			v.chunkPos = 0
			v.processedUnread++
			continue
		}
		l = int16(uint16(chunk[v.chunkPos]) | uint16(chunk[v.chunkPos+1])<<8)
		r = int16(uint16(chunk[v.chunkPos+2]) | uint16(chunk[v.chunkPos+3])<<8)
		v.chunkPos += 4
		if v.chunkPos+4 > len(chunk) {
			// Last whole frame of this chunk consumed: it counts as processed now.
			v.queue = v.queue[1:]
			v.chunkPos = 0
			v.processedUnread++
		}
		return l, r, true
	}
	// Streaming voice with nothing queued yet: stay "playing" so the pump
	// keeps feeding it, but contribute silence this tick.
	return 0, 0, true
}

func (b *Backend) CreateVoice(kind backend.VoiceKind) (*backend.Voice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.NumVoices > 0 && len(b.voices) >= b.NumVoices {
		return nil, false
	}
	id := len(b.voices) + 1
	b.voices = append(b.voices, &voiceState{created: true, gain: 1})
	return &backend.Voice{ID: id, Kind: kind}, true
}

func (b *Backend) voiceState(v *backend.Voice) *voiceState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v == nil || v.ID < 1 || v.ID > len(b.voices) {
		return nil
	}
	return b.voices[v.ID-1]
}

func (b *Backend) AttachOneshot(v *backend.Voice, c *clip.Clip) error {
	vs := b.voiceState(v)
	if vs == nil {
		return backend.NewError(backend.ErrUnsupported, "unknown voice")
	}
	if c == nil {
		return backend.NewError(backend.ErrFormatRejected, "nil clip")
	}
	data := adaptChannels(c.Data, c.Format.Channels, outputChannels, c.Format.BitsPerSample)
	vs.mu.Lock()
	vs.reset()
	vs.data = data
	vs.mu.Unlock()
	return nil
}

func (b *Backend) ResetStream(v *backend.Voice, format clip.Format) error {
	vs := b.voiceState(v)
	if vs == nil {
		return backend.NewError(backend.ErrUnsupported, "unknown voice")
	}
	vs.mu.Lock()
	vs.reset()
	vs.mu.Unlock()
	return nil
}

func (b *Backend) Preload(v *backend.Voice, chunks [][]byte) error {
	vs := b.voiceState(v)
	if vs == nil {
		return backend.NewError(backend.ErrUnsupported, "unknown voice")
	}
	if len(chunks) == 0 {
		return backend.ErrEndOfStream
	}
	vs.mu.Lock()
	vs.queue = append(vs.queue[:0], chunks...)
	vs.chunkPos = 0
	vs.mu.Unlock()
	return nil
}

func (b *Backend) Queue(v *backend.Voice, chunk []byte) error {
	vs := b.voiceState(v)
	if vs == nil {
		return backend.NewError(backend.ErrUnsupported, "unknown voice")
	}
	vs.mu.Lock()
	vs.queue = append(vs.queue, chunk)
	vs.mu.Unlock()
	return nil
}

func (b *Backend) BuffersProcessed(v *backend.Voice) (int, error) {
	vs := b.voiceState(v)
	if vs == nil {
		return 0, backend.NewError(backend.ErrUnsupported, "unknown voice")
	}
	vs.mu.Lock()
	n := vs.processedUnread
	vs.processedUnread = 0
	vs.mu.Unlock()
	return n, nil
}

func (b *Backend) Play(v *backend.Voice) {
	if vs := b.voiceState(v); vs != nil {
		vs.mu.Lock()
		vs.playing = true
		vs.paused = false
		vs.mu.Unlock()
	}
}

func (b *Backend) Pause(v *backend.Voice) {
	if vs := b.voiceState(v); vs != nil {
		vs.mu.Lock()
		vs.paused = true
		vs.mu.Unlock()
	}
}

func (b *Backend) Stop(v *backend.Voice) {
	if vs := b.voiceState(v); vs != nil {
		vs.mu.Lock()
		vs.playing = false
		vs.paused = false
		vs.pos = 0
		vs.chunkPos = 0
		vs.mu.Unlock()
	}
}

func (b *Backend) Rewind(v *backend.Voice) {
	if vs := b.voiceState(v); vs != nil {
		vs.mu.Lock()
		vs.pos = 0
		vs.chunkPos = 0
		vs.mu.Unlock()
	}
}

func (b *Backend) Flush(v *backend.Voice) {
	if vs := b.voiceState(v); vs != nil {
		vs.mu.Lock()
		vs.queue = nil
		vs.chunkPos = 0
		vs.processedUnread = 0
		vs.mu.Unlock()
	}
}

func (b *Backend) CloseVoice(v *backend.Voice) {
	b.Stop(v)
	b.Flush(v)
}

func (b *Backend) IsPlaying(v *backend.Voice) bool {
	vs := b.voiceState(v)
	if vs == nil {
		return false
	}
	vs.mu.Lock()
	defer vs.mu.Unlock()
	return vs.playing && !vs.paused
}

func (b *Backend) SetGain(v *backend.Voice, gain float32) {
	vs := b.voiceState(v)
	if vs == nil {
		return
	}
	minDB, maxDB := b.dbBounds()
	// Route through the spec's literal dB mapping, then back to linear, so
	// the same precision behavior as a real gain-control line is exercised.
	db := LinearToDB(float64(gain), minDB, maxDB)
	linear := dbToLinear(db, minDB, maxDB)
	vs.mu.Lock()
	vs.gain = float32(linear)
	vs.mu.Unlock()
}

func (b *Backend) SetPan(v *backend.Voice, pan float32) {
	vs := b.voiceState(v)
	if vs == nil {
		return
	}
	vs.mu.Lock()
	vs.pan = pan
	vs.mu.Unlock()
}

func (b *Backend) Set3D(v *backend.Voice, pos geometry.Vec3, rolloff float32, looping bool) {
	// SoftwareMixer has no native 3D; gain/pan already carry the spatial
	// effect, so this is a no-op (spec.md §4.3).
}

func (b *Backend) SetListener(pos, look, up geometry.Vec3) {
	// No-op: the engine computes pan directly from listener geometry and
	// pushes it via SetPan per-voice.
}

func (b *Backend) SetMasterGain(gain float32) {
	b.mu.Lock()
	b.masterGain = gain
	b.mu.Unlock()
}

func (b *Backend) dbBounds() (float64, float64) {
	min, max := b.MinDB, b.MaxDB
	if min == 0 && max == 0 {
		min, max = DefaultMinDB, DefaultMaxDB
	}
	return min, max
}

// dbToLinear inverts LinearToDB so SetGain can be expressed purely in terms
// of the spec's forward mapping without duplicating its derivation.
func dbToLinear(db, min, max float64) float64 {
	ampGainDB := 0.5*max - min
	c := math.Log(10) / 20
	num := math.Exp(c*(db-min)) - 1
	den := math.Exp(c*ampGainDB) - 1
	if den == 0 {
		return 0
	}
	return num / den
}

var _ backend.Backend = (*Backend)(nil)
