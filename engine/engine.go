package engine

import (
	"errors"
	"log/slog"

	"github.com/fieldaudio/soundfield/backend"
	"github.com/fieldaudio/soundfield/clip"
	"github.com/fieldaudio/soundfield/decoder"
	"github.com/fieldaudio/soundfield/geometry"
	"github.com/fieldaudio/soundfield/internal/dispatcher"
	"github.com/fieldaudio/soundfield/internal/registry"
	"github.com/fieldaudio/soundfield/internal/streampump"
	"github.com/fieldaudio/soundfield/internal/voicepool"
)

// ErrNotFound mirrors spec.md §7's NotFound error kind, returned by the
// synchronous queries for an unknown source name.
var ErrNotFound = errors.New("engine: source not found")

// ErrEmptyName is spec.md §7's InvalidArgument case for a null sourcename.
var ErrEmptyName = errors.New("engine: source name must not be empty")

// Engine is the public facade (C8): it owns the registry, voice pool,
// streaming pump and dispatcher, and exposes the caller-facing methods of
// spec.md §4.8. Every mutating call enqueues a command and returns
// immediately; queries read the registry directly under its own lock.
type Engine struct {
	logger *slog.Logger

	cfg       Config
	reg       *registry.Registry
	pool      *voicepool.Pool
	pump      *streampump.Pump
	be        backend.Backend
	clipCache *clip.Cache
	disp      *dispatcher.Dispatcher
}

// New selects a backend from priorityList (falling back to fallback; a nil
// fallback is not replaced by backend/null.Backend, and New then returns an
// error if no backend in priorityList opens), builds
// the voice pool, streaming pump and dispatcher, and starts both background
// workers. The returned Engine is ready to accept commands.
func New(cfg Config, priorityList []backend.Backend, fallback backend.Backend, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = slog.Default()
	}
	cfg = withDefaults(cfg)

	be, err := backend.Select(priorityList, fallback)
	if err != nil {
		return nil, err
	}

	reg := registry.New()
	pool := voicepool.New(cfg.NumNormalVoices, cfg.NumStreamingVoices, be.CreateVoice)
	pump := streampump.New(be, cfg.NumStreamBuffers, cfg.StreamBufferBytes, logger)
	clipCache := clip.NewCache(decoder.DefaultRegistry(), cfg.FileChunkBytes)

	disp := dispatcher.New(reg, pool, pump, be, clipCache, cfg.MaxClipBytes, cfg.MasterGain, logger)

	e := &Engine{
		logger:    logger.With("component", "engine"),
		cfg:       cfg,
		reg:       reg,
		pool:      pool,
		pump:      pump,
		be:        be,
		clipCache: clipCache,
		disp:      disp,
	}
	pump.Start()
	disp.Start()
	e.logger.Info("engine started", "backend", be.Name())
	return e, nil
}

// Shutdown stops the dispatcher and streaming pump (each waits up to 5s for
// clean exit per spec.md §5) and closes the backend.
func (e *Engine) Shutdown() {
	e.disp.Stop()
	e.pump.Stop()
	if err := e.be.Close(); err != nil {
		e.logger.Warn("backend close failed during shutdown", "error", err)
	}
}

// LoadSound decodes file (by extension) into the clip cache, or is a no-op
// if already cached.
func (e *Engine) LoadSound(file string) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdLoadSound, File: file})
}

// UnloadSound removes file from the clip cache.
func (e *Engine) UnloadSound(file string) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdUnloadSound, File: file})
}

// SourceOpts carries the non-name NewSource/QuickPlay arguments of
// spec.md §6's command table. A nil Attenuation or zero DistanceOrRolloff
// falls back to the engine's configured default_attenuation/
// default_rolloff/default_fade_distance (spec.md §6) — Attenuation is a
// pointer rather than the bare enum so "unspecified" is distinguishable
// from the explicit, valid choice AttenuationNone.
type SourceOpts struct {
	Priority          bool
	Streaming         bool
	Looping           bool
	Temporary         bool
	File              string
	Position          geometry.Vec3
	Attenuation       *geometry.Attenuation
	DistanceOrRolloff float32
	Volume            float32
}

func (e *Engine) newSourceCommand(kind dispatcher.Kind, name string, opts SourceOpts) error {
	if name == "" {
		return ErrEmptyName
	}
	model := e.cfg.DefaultAttenuation
	if opts.Attenuation != nil {
		model = *opts.Attenuation
	}
	distOrRoll := opts.DistanceOrRolloff
	if distOrRoll == 0 {
		if model == geometry.AttenuationLinear {
			distOrRoll = e.cfg.DefaultFadeDistance
		} else {
			distOrRoll = e.cfg.DefaultRolloff
		}
	}
	volume := opts.Volume
	if volume == 0 {
		volume = 1
	}
	e.disp.Enqueue(dispatcher.Command{
		Kind:              kind,
		Source:            name,
		Priority:          opts.Priority,
		Streaming:         opts.Streaming,
		Looping:           opts.Looping,
		Temporary:         opts.Temporary,
		File:              opts.File,
		Pos:               opts.Position,
		Attenuation:       model,
		DistanceOrRolloff: distOrRoll,
		Gain:              volume,
	})
	return nil
}

// NewSource inserts a stopped source with the given attributes.
func (e *Engine) NewSource(name string, opts SourceOpts) error {
	return e.newSourceCommand(dispatcher.CmdNewSource, name, opts)
}

// QuickPlay inserts a source and immediately plays it.
func (e *Engine) QuickPlay(name string, opts SourceOpts) error {
	return e.newSourceCommand(dispatcher.CmdQuickPlay, name, opts)
}

// RemoveSource releases the named source's voice (if any) and drops it
// from the registry.
func (e *Engine) RemoveSource(name string) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdRemoveSource, Source: name})
}

func (e *Engine) SetTemporary(name string, v bool) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdSetTemporary, Source: name, Temporary: v})
}

func (e *Engine) SetPosition(name string, pos geometry.Vec3) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdSetPosition, Source: name, Pos: pos})
}

func (e *Engine) SetVolume(name string, g float32) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdSetVolume, Source: name, Gain: g})
}

func (e *Engine) SetPriority(name string, v bool) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdSetPriority, Source: name, Priority: v})
}

func (e *Engine) SetLooping(name string, v bool) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdSetLooping, Source: name, Looping: v})
}

func (e *Engine) SetAttenuation(name string, model geometry.Attenuation) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdSetAttenuation, Source: name, Attenuation: model})
}

func (e *Engine) SetDistanceOrRolloff(name string, v float32) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdSetDistOrRoll, Source: name, DistanceOrRolloff: v})
}

// SetGain is the alias of SetVolume spec.md §6 documents for some backends.
func (e *Engine) SetGain(name string, g float32) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdSetGain, Source: name, Gain: g})
}

func (e *Engine) Play(name string)     { e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdPlay, Source: name}) }
func (e *Engine) Pause(name string)    { e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdPause, Source: name}) }
func (e *Engine) Stop(name string)     { e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdStop, Source: name}) }
func (e *Engine) Rewind(name string)   { e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdRewind, Source: name}) }
func (e *Engine) Cull(name string)     { e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdCull, Source: name}) }
func (e *Engine) Activate(name string) { e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdActivate, Source: name}) }

func (e *Engine) MoveListener(delta geometry.Vec3) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdMoveListener, Pos: delta})
}

func (e *Engine) SetListenerPosition(pos geometry.Vec3) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdSetListenerPosition, Pos: pos})
}

func (e *Engine) TurnListener(deltaYaw float32) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdTurnListener, Angle: deltaYaw})
}

func (e *Engine) SetListenerAngle(yaw float32) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdSetListenerAngle, Angle: yaw})
}

func (e *Engine) SetListenerOrientation(look, up geometry.Vec3) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdSetListenerOrientation, Look: look, Up: up})
}

func (e *Engine) SetMasterVolume(g float32) {
	e.disp.Enqueue(dispatcher.Command{Kind: dispatcher.CmdSetMasterVolume, Gain: g})
}

// Playing is a synchronous query (spec.md §4.8): true iff name exists and
// is currently in PlaybackState Playing. It reads the registry directly,
// never blocking on the dispatcher worker.
func (e *Engine) Playing(name string) bool {
	s, ok := e.reg.Get(name)
	if !ok {
		return false
	}
	return s.GetState() == registry.StatePlaying
}

// GetVolume returns the named source's source_volume.
func (e *Engine) GetVolume(name string) (float32, error) {
	s, ok := e.reg.Get(name)
	if !ok {
		return 0, ErrNotFound
	}
	return s.GetVolume(), nil
}

// ListSources returns every currently-registered source name.
func (e *Engine) ListSources() []string {
	return e.reg.List()
}
