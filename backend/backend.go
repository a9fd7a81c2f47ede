// Package backend defines the audio backend capability contract (spec.md
// §4.3, component C3): the interchangeable output layer the engine drives
// per-voice. Concrete backends live in the null, softwaremixer and native3d
// subpackages; the engine never type-switches on a concrete backend, only
// calls through this interface.
package backend

import (
	"errors"
	"fmt"

	"github.com/fieldaudio/soundfield/clip"
	"github.com/fieldaudio/soundfield/geometry"
)

// VoiceKind selects which pool a Voice belongs to.
type VoiceKind int

const (
	VoiceNormal VoiceKind = iota
	VoiceStreaming
)

func (k VoiceKind) String() string {
	if k == VoiceStreaming {
		return "streaming"
	}
	return "normal"
}

// ErrorKind classifies a backend-reported failure (spec.md §4.3).
type ErrorKind int

const (
	ErrUnsupported ErrorKind = iota
	ErrLineBusy
	ErrFormatRejected
)

func (k ErrorKind) String() string {
	switch k {
	case ErrUnsupported:
		return "unsupported"
	case ErrLineBusy:
		return "line_busy"
	case ErrFormatRejected:
		return "format"
	default:
		return "unknown"
	}
}

// Error is the typed failure a Backend method returns for an expected,
// recoverable condition (as opposed to a Go-level programmer error).
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("backend: %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("backend: %s", e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// NewError builds an *Error, matching the teacher's sentinel-error style
// used throughout pkg/encoderdecoder.
func NewError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Err: errors.New(msg)}
}

// ErrEndOfStream is returned by Preload when it is given no chunks at all
// (spec.md §4.3's Ok|EndOfStream|Err).
var ErrEndOfStream = errors.New("backend: end of stream")

// Voice is an opaque handle to one pool slot. Concrete backends key their
// own internal state off Voice.ID; the engine never reaches past this
// struct (spec.md §9: cyclic Source↔Voice references become index-style
// handles instead of pointers back and forth).
type Voice struct {
	ID   int
	Kind VoiceKind
}

// Backend is the capability contract every audio output layer implements.
// All methods are assumed non-blocking except Preload/AttachOneshot, which
// may perform up to one driver syscall (spec.md §5); no engine lock is held
// across those two calls.
type Backend interface {
	// Name identifies the backend for logging and Init's priority list.
	Name() string

	// IsSupported reports whether this backend can run on the current
	// host, without allocating any resource.
	IsSupported() bool

	// Open acquires the backend's device/context. Close releases it.
	Open() error
	Close() error

	// CreateVoice allocates one pool slot. ok is false when the backend has
	// no more hardware voices to give, even if fewer than the requested
	// pool size have been created so far; the scheduler must tolerate
	// pools smaller than requested.
	CreateVoice(kind VoiceKind) (v *Voice, ok bool)

	AttachOneshot(v *Voice, c *clip.Clip) error
	ResetStream(v *Voice, format clip.Format) error
	// Preload submits the initial ring of chunks for a streaming voice. It
	// returns ErrEndOfStream (via errors.Is) if chunks is empty; fewer
	// chunks than the ring holds are accepted without error.
	Preload(v *Voice, chunks [][]byte) error
	Queue(v *Voice, chunk []byte) error
	BuffersProcessed(v *Voice) (int, error)

	Play(v *Voice)
	Pause(v *Voice)
	Stop(v *Voice) // rewinds
	Rewind(v *Voice)
	Flush(v *Voice) // drops queued data
	CloseVoice(v *Voice)
	IsPlaying(v *Voice) bool

	SetGain(v *Voice, gain float32)
	SetPan(v *Voice, pan float32)
	Set3D(v *Voice, pos geometry.Vec3, rolloff float32, looping bool)
	SetListener(pos, look, up geometry.Vec3)
	SetMasterGain(gain float32)
}

// Select walks priorityList, opening the first backend that reports itself
// supported, and falls back to fallback (conventionally a null.Backend) if
// none could be opened (spec.md §4.3).
func Select(priorityList []Backend, fallback Backend) (Backend, error) {
	for _, be := range priorityList {
		if !be.IsSupported() {
			continue
		}
		if err := be.Open(); err != nil {
			continue
		}
		return be, nil
	}
	if fallback == nil {
		return nil, NewError(ErrUnsupported, "no backend available and no fallback configured")
	}
	if err := fallback.Open(); err != nil {
		return nil, fmt.Errorf("backend: fallback failed to open: %w", err)
	}
	return fallback, nil
}
