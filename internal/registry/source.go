// Package registry holds the named Source map (spec.md §4.4, C4): per-source
// state, attribute setters that recompute gain/pan, and the registry-wide
// queries the command dispatcher and streaming pump both depend on.
package registry

import (
	"sync"

	"github.com/fieldaudio/soundfield/backend"
	"github.com/fieldaudio/soundfield/clip"
	"github.com/fieldaudio/soundfield/geometry"
	"github.com/google/uuid"
)

// PlaybackState replaces the source material's three independent booleans
// (active/stopped/paused accessed through a get/set action-parameter idiom)
// with a single enum plus an orthogonal active gate, per spec.md §9.
type PlaybackState int

const (
	StateStopped PlaybackState = iota
	StatePlaying
	StatePaused
	StateCulled
)

func (s PlaybackState) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateCulled:
		return "culled"
	default:
		return "unknown"
	}
}

// Source is the caller-visible unit of playback, keyed by name in Registry.
//
// Every field is guarded by mu. spec.md §3 asks only for stream_cursor and
// pending_preload to be guarded by "a per-source lightweight mutex" (the
// streaming pump's only writes), with the rest owned exclusively by the
// dispatcher worker; this implementation guards the whole struct with one
// mutex instead of splitting the locking by writer, so synchronous queries
// (Playing, Volume) never need to coordinate with the dispatcher worker's
// lock-free assumption of single-writer access — see DESIGN.md.
type Source struct {
	mu sync.Mutex

	// ID is a stable diagnostic identifier, distinct from Name (which a
	// caller may reuse after removing and recreating a source under the
	// same name). Logged alongside Name so log lines survive a
	// remove/recreate cycle without ambiguity.
	ID   string
	Name string

	Priority  bool
	Streaming bool
	Looping   bool
	Temporary bool

	Position geometry.Vec3

	Attenuation       geometry.Attenuation
	DistanceOrRolloff float32

	SourceVolume float32
	ComputedGain float32
	Distance     float32

	File     string // clip cache key, bound at creation
	ClipName string
	Clip     *clip.Clip

	Voice *backend.Voice

	StreamCursor   uint64
	PendingPreload bool
	PendingPlay    bool

	State  PlaybackState
	Active bool
}

// NewSource builds a Source in its initial Stopped/active state.
func NewSource(name string, priority, streaming, looping, temporary bool, pos geometry.Vec3, att geometry.Attenuation, distanceOrRolloff, volume float32) *Source {
	return &Source{
		ID:                uuid.NewString(),
		Name:              name,
		Priority:          priority,
		Streaming:         streaming,
		Looping:           looping,
		Temporary:         temporary,
		Position:          pos,
		Attenuation:       att,
		DistanceOrRolloff: distanceOrRolloff,
		SourceVolume:      volume,
		ComputedGain:      volume,
		State:             StateStopped,
		Active:            true,
	}
}

// WithFile sets the clip cache key a Play will resolve against; NewSource
// and QuickPlay both carry a file argument (spec.md §6).
func (s *Source) WithFile(file string) *Source {
	s.mu.Lock()
	s.File = file
	s.mu.Unlock()
	return s
}

func (s *Source) FileName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.File
}

// RecomputeGain updates Distance/ComputedGain from the current listener and
// master gain, per spec.md §4.1. Caller must not hold s.mu.
func (s *Source) RecomputeGain(listener geometry.Listener, masterGain float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Distance = geometry.Distance(s.Position, listener.Position)
	s.ComputedGain = geometry.ComputedGain(s.Attenuation, s.DistanceOrRolloff, s.Distance, s.SourceVolume, masterGain)
}

// Pan computes the stereo pan for software-mixer backends; native backends
// ignore this and receive raw position/orientation instead.
func (s *Source) Pan(listener geometry.Listener) float32 {
	s.mu.Lock()
	pos := s.Position
	s.mu.Unlock()
	return geometry.Pan(listener, pos)
}

func (s *Source) withLock(f func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f()
}

// VoiceHandle returns the currently bound backend voice, or nil.
func (s *Source) VoiceHandle() *backend.Voice {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Voice
}

// SetVoice binds or clears the voice link (the other half of the bind is
// voicepool's own slot.lastSource bookkeeping).
func (s *Source) SetVoice(v *backend.Voice) {
	s.mu.Lock()
	s.Voice = v
	s.mu.Unlock()
}

// ClipRef returns the bound clip, or nil if none is attached yet.
func (s *Source) ClipRef() *clip.Clip {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Clip
}

// SetClip attaches a decoded clip (and remembers its cache key) to the
// source, done once on first Play/QuickPlay.
func (s *Source) SetClip(name string, c *clip.Clip) {
	s.mu.Lock()
	s.ClipName = name
	s.Clip = c
	s.mu.Unlock()
}

// Cursor is stream_cursor, mutated only by the streaming pump per spec.md
// §3's invariant list.
func (s *Source) Cursor() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.StreamCursor
}

func (s *Source) SetCursor(v uint64) {
	s.mu.Lock()
	s.StreamCursor = v
	s.mu.Unlock()
}

func (s *Source) AdvanceCursor(n uint64) {
	s.mu.Lock()
	s.StreamCursor += n
	s.mu.Unlock()
}

func (s *Source) SetPendingPreload(v bool) {
	s.mu.Lock()
	s.PendingPreload = v
	s.mu.Unlock()
}

func (s *Source) SetPendingPlay(v bool) {
	s.mu.Lock()
	s.PendingPlay = v
	s.mu.Unlock()
}

// SetState transitions the playback state under lock; the dispatcher is the
// sole writer (spec.md §3), but the type is exported so other internal
// packages (notably streampump, on EOS/IOFailure) can also drive it.
func (s *Source) SetState(state PlaybackState) {
	s.mu.Lock()
	s.State = state
	s.mu.Unlock()
}

func (s *Source) SetActive(active bool) {
	s.mu.Lock()
	s.Active = active
	s.mu.Unlock()
}

func (s *Source) SetPosition(pos geometry.Vec3) {
	s.mu.Lock()
	s.Position = pos
	s.mu.Unlock()
}

func (s *Source) SetVolume(v float32) {
	s.mu.Lock()
	s.SourceVolume = v
	s.mu.Unlock()
}

func (s *Source) SetPriority(v bool) {
	s.mu.Lock()
	s.Priority = v
	s.mu.Unlock()
}

func (s *Source) SetLooping(v bool) {
	s.mu.Lock()
	s.Looping = v
	s.mu.Unlock()
}

func (s *Source) SetAttenuation(model geometry.Attenuation) {
	s.mu.Lock()
	s.Attenuation = model
	s.mu.Unlock()
}

func (s *Source) SetDistanceOrRolloff(v float32) {
	s.mu.Lock()
	s.DistanceOrRolloff = v
	s.mu.Unlock()
}

func (s *Source) SetTemporary(v bool) {
	s.mu.Lock()
	s.Temporary = v
	s.mu.Unlock()
}

func (s *Source) GetState() PlaybackState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.State
}

func (s *Source) IsPriority() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Priority
}

func (s *Source) IsStreaming() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Streaming
}

func (s *Source) IsLooping() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.Looping
}

func (s *Source) GetGain() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ComputedGain
}

func (s *Source) GetVolume() float32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.SourceVolume
}

// Snapshot is a lock-free copy of a Source's fields, safe to read after the
// mutex is released (unlike copying *Source itself, which would copy its
// embedded mutex).
type Snapshot struct {
	ID                string
	Name              string
	Priority          bool
	Streaming         bool
	Looping           bool
	Temporary         bool
	Position          geometry.Vec3
	Attenuation       geometry.Attenuation
	DistanceOrRolloff float32
	SourceVolume      float32
	ComputedGain      float32
	Distance          float32
	ClipName          string
	StreamCursor      uint64
	PendingPreload    bool
	PendingPlay       bool
	State             PlaybackState
	Active            bool
	HasVoice          bool
}

func (s *Source) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		ID:                s.ID,
		Name:              s.Name,
		Priority:          s.Priority,
		Streaming:         s.Streaming,
		Looping:           s.Looping,
		Temporary:         s.Temporary,
		Position:          s.Position,
		Attenuation:       s.Attenuation,
		DistanceOrRolloff: s.DistanceOrRolloff,
		SourceVolume:      s.SourceVolume,
		ComputedGain:      s.ComputedGain,
		Distance:          s.Distance,
		ClipName:          s.ClipName,
		StreamCursor:      s.StreamCursor,
		PendingPreload:    s.PendingPreload,
		PendingPlay:       s.PendingPlay,
		State:             s.State,
		Active:            s.Active,
		HasVoice:          s.Voice != nil,
	}
}
