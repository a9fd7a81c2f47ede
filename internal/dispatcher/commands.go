package dispatcher

import (
	"github.com/fieldaudio/soundfield/backend"
	"github.com/fieldaudio/soundfield/clip"
	"github.com/fieldaudio/soundfield/geometry"
	"github.com/fieldaudio/soundfield/internal/registry"
)

// execute applies one command's effect to the registry and issues whatever
// backend calls it implies (spec.md §6).
func (d *Dispatcher) execute(cmd Command) {
	switch cmd.Kind {
	case CmdLoadSound:
		d.loadSound(cmd.File)
	case CmdUnloadSound:
		if d.clipCache != nil {
			if err := d.clipCache.Unload(cmd.File); err != nil {
				d.logger.Warn("unload_sound: nothing to unload", "file", cmd.File)
			}
		}
	case CmdNewSource:
		d.newSource(cmd, false)
	case CmdQuickPlay:
		d.newSource(cmd, true)
	case CmdSetPosition:
		if s, ok := d.reg.Get(cmd.Source); ok {
			s.SetPosition(cmd.Pos)
			s.RecomputeGain(d.listenerSnapshot(), d.masterGain)
			d.pushSpatial(s)
		}
	case CmdSetVolume, CmdSetGain:
		if s, ok := d.reg.Get(cmd.Source); ok {
			s.SetVolume(cmd.Gain)
			s.RecomputeGain(d.listenerSnapshot(), d.masterGain)
			d.pushGain(s)
		}
	case CmdSetPriority:
		if s, ok := d.reg.Get(cmd.Source); ok {
			s.SetPriority(cmd.Priority)
		}
	case CmdSetLooping:
		if s, ok := d.reg.Get(cmd.Source); ok {
			s.SetLooping(cmd.Looping)
		}
	case CmdSetAttenuation:
		if s, ok := d.reg.Get(cmd.Source); ok {
			s.SetAttenuation(cmd.Attenuation)
			s.RecomputeGain(d.listenerSnapshot(), d.masterGain)
			d.pushGain(s)
		}
	case CmdSetDistOrRoll:
		if s, ok := d.reg.Get(cmd.Source); ok {
			s.SetDistanceOrRolloff(cmd.DistanceOrRolloff)
			s.RecomputeGain(d.listenerSnapshot(), d.masterGain)
			d.pushGain(s)
		}
	case CmdSetTemporary:
		if s, ok := d.reg.Get(cmd.Source); ok {
			s.SetTemporary(cmd.Temporary)
		}
	case CmdPlay:
		if s, ok := d.reg.Get(cmd.Source); ok {
			d.playSource(s)
		}
	case CmdPause:
		if s, ok := d.reg.Get(cmd.Source); ok {
			d.pauseSource(s)
		}
	case CmdStop:
		if s, ok := d.reg.Get(cmd.Source); ok {
			d.stopSource(s)
		}
	case CmdRewind:
		if s, ok := d.reg.Get(cmd.Source); ok {
			d.rewindSource(s)
		}
	case CmdCull:
		if s, ok := d.reg.Get(cmd.Source); ok {
			d.cullSource(s)
		}
	case CmdActivate:
		if s, ok := d.reg.Get(cmd.Source); ok {
			d.activateSource(s)
		}
	case CmdRemoveSource:
		d.destroySource(cmd.Source)
	case CmdMoveListener:
		d.listener.Position = d.listener.Position.Add(cmd.Pos)
		d.notifyListenerMoved()
	case CmdSetListenerPosition:
		d.listener.Position = cmd.Pos
		d.notifyListenerMoved()
	case CmdTurnListener:
		d.listener.Turn(cmd.Angle)
		d.notifyListenerMoved()
	case CmdSetListenerAngle:
		d.listener.SetAngle(cmd.Angle)
		d.notifyListenerMoved()
	case CmdSetListenerOrientation:
		if err := d.listener.SetOrientation(cmd.Look, cmd.Up); err != nil {
			d.logger.Error("set_listener_orientation rejected", "error", err)
			return
		}
		d.notifyListenerMoved()
	case CmdSetMasterVolume:
		d.masterGain = clampUnit(cmd.Gain)
		d.be.SetMasterGain(d.masterGain)
		d.notifyListenerMoved()
	}
}

func clampUnit(g float32) float32 {
	if g < 0 {
		return 0
	}
	if g > 1 {
		return 1
	}
	return g
}

func (d *Dispatcher) listenerSnapshot() geometry.Listener {
	return d.listener
}

func (d *Dispatcher) notifyListenerMoved() {
	d.be.SetListener(d.listener.Position, d.listener.LookAt, d.listener.Up)
	d.reg.NotifyListenerMoved(d.listener, d.masterGain)
	d.reg.ForEach(func(s *registry.Source) {
		d.pushSpatial(s)
	})
}

// pushSpatial sends a source's current gain/pan (or raw position for native
// backends) down to its bound voice, if any.
func (d *Dispatcher) pushSpatial(s *registry.Source) {
	v := s.VoiceHandle()
	if v == nil {
		return
	}
	snap := s.Snapshot()
	d.be.Set3D(v, snap.Position, snap.DistanceOrRolloff, snap.Looping)
	d.be.SetGain(v, snap.ComputedGain)
	d.be.SetPan(v, s.Pan(d.listener))
}

func (d *Dispatcher) pushGain(s *registry.Source) {
	if v := s.VoiceHandle(); v != nil {
		d.be.SetGain(v, s.GetGain())
	}
}

func (d *Dispatcher) loadSound(file string) {
	if d.clipCache == nil || file == "" {
		return
	}
	if _, err := d.clipCache.GetOrLoad(file); err != nil {
		d.logger.Error("load_sound failed", "file", file, "error", err)
	}
}

func (d *Dispatcher) newSource(cmd Command, autoplay bool) {
	if cmd.Source == "" {
		d.logger.Error("new_source: empty sname rejected")
		return
	}
	volume := cmd.Gain
	if volume == 0 {
		volume = 1
	}
	s := registry.NewSource(cmd.Source, cmd.Priority, cmd.Streaming, cmd.Looping, cmd.Temporary, cmd.Pos, cmd.Attenuation, cmd.DistanceOrRolloff, volume).WithFile(cmd.File)
	s.RecomputeGain(d.listener, d.masterGain)
	d.reg.Create(s)
	if autoplay {
		d.playSource(s)
	}
}

func (d *Dispatcher) destroySource(name string) {
	s, ok := d.reg.Get(name)
	if !ok {
		return
	}
	if v := s.VoiceHandle(); v != nil {
		d.clickGuard(v)
		d.be.CloseVoice(v)
		d.pool.Release(s.IsStreaming(), v)
	}
	if s.IsStreaming() {
		d.pump.Unwatch(s)
	}
	d.reg.Remove(name)
}

// clickGuard ramps a voice's gain to 0 before a hard stop/close, avoiding an
// audible click (spec.md SUPPLEMENTED FEATURES, grounded on
// SourceOpenAL/ChannelOpenAL's fade-to-silence). Backends that no-op
// SetGain (e.g. Null) are unaffected.
func (d *Dispatcher) clickGuard(v *backend.Voice) {
	if d.be.Name() == "null" {
		return
	}
	d.be.SetGain(v, 0)
}

type registryOccupant struct{ reg *registry.Registry }

func (o registryOccupant) IsPlaying(name string) bool {
	s, ok := o.reg.Get(name)
	return ok && s.GetState() == registry.StatePlaying
}

func (o registryOccupant) IsPriority(name string) bool {
	s, ok := o.reg.Get(name)
	return ok && s.IsPriority()
}

// playSource implements the "play" column of spec.md §4.7's state table.
func (d *Dispatcher) playSource(s *registry.Source) {
	switch s.GetState() {
	case registry.StatePlaying:
		return
	case registry.StateCulled:
		if s.IsLooping() {
			s.SetPendingPlay(true)
		}
		return
	case registry.StatePaused:
		if v := s.VoiceHandle(); v != nil {
			d.be.Play(v)
		}
		s.SetState(registry.StatePlaying)
		return
	case registry.StateStopped:
		d.startPlayback(s)
	}
}

func (d *Dispatcher) startPlayback(s *registry.Source) {
	voice, evicted := d.pool.Allocate(s.Name, s.IsStreaming(), registryOccupant{d.reg})
	if voice == nil {
		d.logger.Warn("voice_exhausted: play failed", "source", s.Name, "source_id", s.ID)
		return
	}
	if evicted != "" {
		d.disconnectEvicted(evicted)
	}
	d.logger.Debug("voice allocated", "source", s.Name, "source_id", s.ID, "voice_id", voice.ID, "voice_kind", voice.Kind)
	s.SetVoice(voice)

	c := s.ClipRef()
	if c == nil {
		file := s.FileName()
		if file == "" || d.clipCache == nil {
			d.logger.Error("play: source has no clip bound and no file to load", "source", s.Name)
			return
		}
		loaded, err := d.clipCache.GetOrLoad(file)
		if err != nil {
			d.logger.Error("play: decode failed", "source", s.Name, "file", file, "error", err)
			return
		}
		if d.trimOneShotBytes > 0 && !s.IsStreaming() {
			loaded = clip.TrimOneShot(loaded, d.trimOneShotBytes)
		}
		s.SetClip(file, loaded)
		c = loaded
	}

	if s.IsStreaming() {
		if err := d.be.ResetStream(voice, c.Format); err != nil {
			d.logger.Error("play: reset_stream failed", "source", s.Name, "error", err)
			return
		}
		d.pump.Watch(s, d.unbindStreamingVoice)
	} else {
		if err := d.be.AttachOneshot(voice, c); err != nil {
			d.logger.Error("play: attach_oneshot failed", "source", s.Name, "error", err)
			return
		}
	}
	s.SetState(registry.StatePlaying)
	d.pushSpatial(s)
	d.be.Play(voice)
}

func (d *Dispatcher) disconnectEvicted(name string) {
	es, ok := d.reg.Get(name)
	if !ok {
		return
	}
	if v := es.VoiceHandle(); v != nil {
		d.clickGuard(v)
		d.be.CloseVoice(v)
	}
	es.SetVoice(nil)
	es.SetState(registry.StateStopped)
	if es.IsStreaming() {
		d.pump.Unwatch(es)
	}
}

// pollCompletions is the only place that notices a voice finishing on its
// own (spec.md §4.7): backends never reach back into the registry (§5), so
// every Playing source with a bound voice is checked each worker wake, and
// any voice the backend no longer reports as playing is driven to Stopped.
// A looping source gets PendingPlay set instead, exactly as a culled
// looping source does, so sourceManagement replays it on the next pass.
func (d *Dispatcher) pollCompletions() {
	var finished []*registry.Source
	d.reg.ForEach(func(s *registry.Source) {
		if s.GetState() != registry.StatePlaying {
			return
		}
		v := s.VoiceHandle()
		if v == nil || d.be.IsPlaying(v) {
			return
		}
		finished = append(finished, s)
	})
	for _, s := range finished {
		d.finishPlayback(s)
	}
}

// finishPlayback releases a voice that drained on its own and returns its
// source to Stopped. Unlike stopSource, which only stops the voice and keeps
// it bound, it closes the voice and releases it to the pool.
func (d *Dispatcher) finishPlayback(s *registry.Source) {
	if v := s.VoiceHandle(); v != nil {
		d.be.CloseVoice(v)
		d.pool.Release(s.IsStreaming(), v)
		s.SetVoice(nil)
	}
	if s.IsStreaming() {
		d.pump.Unwatch(s)
	}
	s.SetState(registry.StateStopped)
	if s.IsLooping() {
		s.SetPendingPlay(true)
	}
}

// unbindStreamingVoice is streampump's unbindOther callback: it runs when
// Watch needs to steal a voice already claimed by another watched source.
func (d *Dispatcher) unbindStreamingVoice(other *registry.Source) {
	if v := other.VoiceHandle(); v != nil {
		d.be.Stop(v)
	}
	other.SetVoice(nil)
	other.SetState(registry.StateStopped)
}

func (d *Dispatcher) pauseSource(s *registry.Source) {
	if s.GetState() != registry.StatePlaying {
		return
	}
	if v := s.VoiceHandle(); v != nil {
		d.be.Pause(v)
	}
	s.SetState(registry.StatePaused)
}

func (d *Dispatcher) stopSource(s *registry.Source) {
	switch s.GetState() {
	case registry.StatePlaying, registry.StatePaused:
		if v := s.VoiceHandle(); v != nil {
			d.clickGuard(v)
			d.be.Stop(v)
		}
		if s.IsStreaming() {
			d.pump.Unwatch(s)
		}
		s.SetState(registry.StateStopped)
	}
}

// rewindSource implements spec.md §4.7's rewind column, including §9's
// open-question resolution: rewind of a paused streaming source goes to
// Stopped, same as the one-shot branch.
func (d *Dispatcher) rewindSource(s *registry.Source) {
	switch s.GetState() {
	case registry.StatePlaying:
		if s.IsStreaming() {
			d.stopSource(s)
			d.playSource(s)
			return
		}
		if v := s.VoiceHandle(); v != nil {
			d.be.Rewind(v)
		}
	case registry.StatePaused:
		if v := s.VoiceHandle(); v != nil {
			d.be.Stop(v)
		}
		if s.IsStreaming() {
			d.pump.Unwatch(s)
		}
		s.SetState(registry.StateStopped)
	}
}

func (d *Dispatcher) cullSource(s *registry.Source) {
	if s.GetState() == registry.StateCulled {
		return
	}
	s.SetActive(false)
	if v := s.VoiceHandle(); v != nil {
		d.clickGuard(v)
		d.be.CloseVoice(v)
		d.pool.Release(s.IsStreaming(), v)
		s.SetVoice(nil)
	}
	if s.IsStreaming() {
		d.pump.Unwatch(s)
	}
	if s.IsLooping() {
		s.SetPendingPlay(true)
	}
	s.SetState(registry.StateCulled)
}

func (d *Dispatcher) activateSource(s *registry.Source) {
	if s.GetState() != registry.StateCulled {
		return
	}
	s.SetActive(true)
	s.SetState(registry.StateStopped)
}
