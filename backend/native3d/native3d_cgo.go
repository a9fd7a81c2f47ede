//go:build cgo

package native3d

/*
#cgo windows LDFLAGS: -lOpenAL32
#cgo darwin LDFLAGS: -framework OpenAL
#cgo linux freebsd LDFLAGS: -lopenal
#ifdef __APPLE__
#	include <OpenAL/al.h>
#	include <OpenAL/alc.h>
#else
#	include <AL/al.h>
#	include <AL/alc.h>
#endif
*/
import "C"

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/fieldaudio/soundfield/backend"
	"github.com/fieldaudio/soundfield/clip"
	"github.com/fieldaudio/soundfield/geometry"
)

const buffersPerVoice = 4

// alVoice is one OpenAL source plus its ring of queued buffers, the same
// shape as toy80-audio's source type.
type alVoice struct {
	source  C.ALuint
	buffers [buffersPerVoice]C.ALuint
	head    int
	queued  int

	kind     backend.VoiceKind
	format   clip.Format
	closed   bool
}

// Backend drives a single OpenAL device + context. Only one Backend should
// be opened per process; OpenAL itself owns the device.
type Backend struct {
	Logger *slog.Logger

	mu      sync.Mutex
	device  *C.ALCdevice
	context *C.ALCcontext
	voices  []*alVoice
	opened  bool
}

func New() *Backend { return &Backend{} }

func (b *Backend) Name() string      { return "native3d (OpenAL)" }
func (b *Backend) IsSupported() bool { return true }

func (b *Backend) logger() *slog.Logger {
	if b.Logger != nil {
		return b.Logger
	}
	return slog.Default()
}

func alErrorString(code C.ALenum) string {
	switch code {
	case C.AL_NO_ERROR:
		return "AL_NO_ERROR"
	case C.AL_INVALID_NAME:
		return "AL_INVALID_NAME"
	case C.AL_INVALID_ENUM:
		return "AL_INVALID_ENUM"
	case C.AL_INVALID_VALUE:
		return "AL_INVALID_VALUE"
	case C.AL_INVALID_OPERATION:
		return "AL_INVALID_OPERATION"
	case C.AL_OUT_OF_MEMORY:
		return "AL_OUT_OF_MEMORY"
	default:
		return fmt.Sprintf("unknown AL error %d", int(code))
	}
}

func (b *Backend) checkALCErr(op string) error {
	if code := C.alcGetError(b.device); code != C.ALC_NO_ERROR {
		return backend.NewError(backend.ErrUnsupported, fmt.Sprintf("%s: alc error %d", op, int(code)))
	}
	return nil
}

func (b *Backend) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.opened {
		return nil
	}

	name := C.alcGetString(nil, C.ALC_DEFAULT_DEVICE_SPECIFIER)
	if name == nil {
		var empty C.ALCchar
		b.device = C.alcOpenDevice(&empty)
	} else {
		b.device = C.alcOpenDevice((*C.ALCchar)(name))
	}
	if b.device == nil {
		return backend.NewError(backend.ErrUnsupported, "alcOpenDevice failed")
	}

	b.context = C.alcCreateContext(b.device, nil)
	if b.context == nil {
		C.alcCloseDevice(b.device)
		b.device = nil
		return backend.NewError(backend.ErrUnsupported, "alcCreateContext failed")
	}
	C.alcMakeContextCurrent(b.context)
	if err := b.checkALCErr("alcMakeContextCurrent"); err != nil {
		return err
	}

	b.opened = true
	b.logger().Info("native3d backend opened")
	return nil
}

func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.opened {
		return nil
	}
	for _, v := range b.voices {
		if v != nil && !v.closed {
			b.destroyVoiceLocked(v)
		}
	}
	if b.context != nil {
		C.alcDestroyContext(b.context)
		b.context = nil
	}
	if b.device != nil {
		C.alcCloseDevice(b.device)
		b.device = nil
	}
	b.opened = false
	return nil
}

func (b *Backend) destroyVoiceLocked(v *alVoice) {
	C.alDeleteSources(1, &v.source)
	C.alDeleteBuffers(buffersPerVoice, &v.buffers[0])
	v.closed = true
}

func (b *Backend) CreateVoice(kind backend.VoiceKind) (*backend.Voice, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.opened {
		return nil, false
	}

	v := &alVoice{kind: kind}
	C.alGenSources(1, &v.source)
	if v.source == 0 {
		b.logger().Warn("alGenSources failed", "error", alErrorString(C.alGetError()))
		return nil, false
	}
	C.alGenBuffers(buffersPerVoice, &v.buffers[0])
	if code := C.alGetError(); code != C.AL_NO_ERROR {
		b.logger().Warn("alGenBuffers failed", "error", alErrorString(code))
		C.alDeleteSources(1, &v.source)
		return nil, false
	}

	b.voices = append(b.voices, v)
	return &backend.Voice{ID: len(b.voices), Kind: kind}, true
}

func (b *Backend) voiceFor(v *backend.Voice) *alVoice {
	b.mu.Lock()
	defer b.mu.Unlock()
	if v == nil || v.ID < 1 || v.ID > len(b.voices) {
		return nil
	}
	av := b.voices[v.ID-1]
	if av == nil || av.closed {
		return nil
	}
	return av
}

func alFormat(channels, bitsPerSample int) C.ALenum {
	switch {
	case channels == 1 && bitsPerSample == 8:
		return C.AL_FORMAT_MONO8
	case channels == 1 && bitsPerSample == 16:
		return C.AL_FORMAT_MONO16
	case channels == 2 && bitsPerSample == 8:
		return C.AL_FORMAT_STEREO8
	default:
		return C.AL_FORMAT_STEREO16
	}
}

func (b *Backend) bufferData(buf C.ALuint, format clip.Format, data []byte) error {
	if len(data) == 0 {
		return nil
	}
	C.alBufferData(buf, alFormat(format.Channels, format.BitsPerSample), unsafe.Pointer(&data[0]), C.ALsizei(len(data)), C.ALsizei(format.SampleRate))
	if code := C.alGetError(); code != C.AL_NO_ERROR {
		return backend.NewError(backend.ErrFormatRejected, "alBufferData: "+alErrorString(code))
	}
	return nil
}

// AttachOneshot uploads the entire clip into this voice's first buffer and
// attaches it directly (no queue), the simplest OpenAL playback mode.
func (b *Backend) AttachOneshot(v *backend.Voice, c *clip.Clip) error {
	av := b.voiceFor(v)
	if av == nil {
		return backend.NewError(backend.ErrUnsupported, "unknown voice")
	}
	if c == nil {
		return backend.NewError(backend.ErrFormatRejected, "nil clip")
	}
	av.format = c.Format
	C.alSourceStop(av.source)
	C.alSourcei(av.source, C.AL_BUFFER, 0) // detach any queued buffers first
	if err := b.bufferData(av.buffers[0], c.Format, c.Data); err != nil {
		return err
	}
	C.alSourcei(av.source, C.AL_BUFFER, C.ALint(av.buffers[0]))
	if code := C.alGetError(); code != C.AL_NO_ERROR {
		return backend.NewError(backend.ErrFormatRejected, "alSourcei(AL_BUFFER): "+alErrorString(code))
	}
	return nil
}

func (b *Backend) ResetStream(v *backend.Voice, format clip.Format) error {
	av := b.voiceFor(v)
	if av == nil {
		return backend.NewError(backend.ErrUnsupported, "unknown voice")
	}
	av.format = format
	C.alSourceStop(av.source)
	C.alSourcei(av.source, C.AL_BUFFER, 0)
	av.head = 0
	av.queued = 0
	return nil
}

func (b *Backend) queueChunk(av *alVoice, chunk []byte) error {
	if av.queued >= buffersPerVoice {
		return backend.NewError(backend.ErrLineBusy, "voice buffer ring full")
	}
	buf := av.buffers[(av.head+av.queued)%buffersPerVoice]
	if err := b.bufferData(buf, av.format, chunk); err != nil {
		return err
	}
	C.alSourceQueueBuffers(av.source, 1, &buf)
	if code := C.alGetError(); code != C.AL_NO_ERROR {
		return backend.NewError(backend.ErrFormatRejected, "alSourceQueueBuffers: "+alErrorString(code))
	}
	av.queued++
	return nil
}

func (b *Backend) Preload(v *backend.Voice, chunks [][]byte) error {
	av := b.voiceFor(v)
	if av == nil {
		return backend.NewError(backend.ErrUnsupported, "unknown voice")
	}
	if len(chunks) == 0 {
		return backend.ErrEndOfStream
	}
	for _, c := range chunks {
		if err := b.queueChunk(av, c); err != nil {
			return err
		}
	}
	return nil
}

func (b *Backend) Queue(v *backend.Voice, chunk []byte) error {
	av := b.voiceFor(v)
	if av == nil {
		return backend.NewError(backend.ErrUnsupported, "unknown voice")
	}
	return b.queueChunk(av, chunk)
}

func (b *Backend) BuffersProcessed(v *backend.Voice) (int, error) {
	av := b.voiceFor(v)
	if av == nil {
		return 0, backend.NewError(backend.ErrUnsupported, "unknown voice")
	}
	var processed C.ALint
	C.alGetSourcei(av.source, C.AL_BUFFERS_PROCESSED, &processed)
	n := int(processed)
	for i := 0; i < n; i++ {
		var buf C.ALuint
		C.alSourceUnqueueBuffers(av.source, 1, &buf)
		av.queued--
		av.head = (av.head + 1) % buffersPerVoice
	}
	return n, nil
}

func (b *Backend) Play(v *backend.Voice) {
	if av := b.voiceFor(v); av != nil {
		C.alSourcePlay(av.source)
	}
}

func (b *Backend) Pause(v *backend.Voice) {
	if av := b.voiceFor(v); av != nil {
		C.alSourcePause(av.source)
	}
}

func (b *Backend) Stop(v *backend.Voice) {
	if av := b.voiceFor(v); av != nil {
		C.alSourceStop(av.source)
	}
}

func (b *Backend) Rewind(v *backend.Voice) {
	if av := b.voiceFor(v); av != nil {
		C.alSourceRewind(av.source)
	}
}

func (b *Backend) Flush(v *backend.Voice) {
	av := b.voiceFor(v)
	if av == nil {
		return
	}
	C.alSourceStop(av.source)
	C.alSourcei(av.source, C.AL_BUFFER, 0)
	av.head = 0
	av.queued = 0
}

func (b *Backend) CloseVoice(v *backend.Voice) {
	av := b.voiceFor(v)
	if av == nil {
		return
	}
	b.mu.Lock()
	b.destroyVoiceLocked(av)
	b.mu.Unlock()
}

func (b *Backend) IsPlaying(v *backend.Voice) bool {
	av := b.voiceFor(v)
	if av == nil {
		return false
	}
	var state C.ALint
	C.alGetSourcei(av.source, C.AL_SOURCE_STATE, &state)
	return state == C.AL_PLAYING
}

func (b *Backend) SetGain(v *backend.Voice, gain float32) {
	if av := b.voiceFor(v); av != nil {
		C.alSourcef(av.source, C.AL_GAIN, C.ALfloat(gain))
	}
}

// SetPan is a no-op on native3d: Set3D's AL_POSITION already carries the
// stereo image OpenAL computes from listener geometry, so a discrete pan
// control would fight it.
func (b *Backend) SetPan(v *backend.Voice, pan float32) {}

func (b *Backend) Set3D(v *backend.Voice, pos geometry.Vec3, rolloff float32, looping bool) {
	av := b.voiceFor(v)
	if av == nil {
		return
	}
	C.alSource3f(av.source, C.AL_POSITION, C.ALfloat(pos.X), C.ALfloat(pos.Y), C.ALfloat(pos.Z))
	C.alSourcef(av.source, C.AL_ROLLOFF_FACTOR, C.ALfloat(rolloff))
	loopVal := C.ALint(0)
	if looping {
		loopVal = 1
	}
	C.alSourcei(av.source, C.AL_LOOPING, loopVal)
}

func (b *Backend) SetListener(pos, look, up geometry.Vec3) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.opened {
		return
	}
	C.alListener3f(C.AL_POSITION, C.ALfloat(pos.X), C.ALfloat(pos.Y), C.ALfloat(pos.Z))
	orientation := [6]C.ALfloat{
		C.ALfloat(look.X), C.ALfloat(look.Y), C.ALfloat(look.Z),
		C.ALfloat(up.X), C.ALfloat(up.Y), C.ALfloat(up.Z),
	}
	C.alListenerfv(C.AL_ORIENTATION, &orientation[0])
}

func (b *Backend) SetMasterGain(gain float32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.opened {
		return
	}
	C.alListenerf(C.AL_GAIN, C.ALfloat(gain))
}

var _ backend.Backend = (*Backend)(nil)
