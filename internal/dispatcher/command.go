package dispatcher

import "github.com/fieldaudio/soundfield/geometry"

// Kind enumerates the ~26 command variants of spec.md §6. A single Command
// struct carries whichever fields a given Kind uses, the same flat
// cmd{typ, param} shape other_examples/toy80-audio__openal.go uses for its
// OpenAL source command queue.
type Kind int

const (
	CmdInit Kind = iota
	CmdLoadSound
	CmdUnloadSound
	CmdNewSource
	CmdQuickPlay
	CmdSetPosition
	CmdSetVolume
	CmdSetPriority
	CmdSetLooping
	CmdSetAttenuation
	CmdSetDistOrRoll
	CmdSetGain
	CmdPlay
	CmdPause
	CmdStop
	CmdRewind
	CmdCull
	CmdActivate
	CmdSetTemporary
	CmdRemoveSource
	CmdMoveListener
	CmdSetListenerPosition
	CmdTurnListener
	CmdSetListenerAngle
	CmdSetListenerOrientation
	CmdSetMasterVolume
)

func (k Kind) String() string {
	names := [...]string{
		"Init", "LoadSound", "UnloadSound", "NewSource", "QuickPlay",
		"SetPosition", "SetVolume", "SetPriority", "SetLooping", "SetAttenuation",
		"SetDistOrRoll", "SetGain", "Play", "Pause", "Stop", "Rewind", "Cull",
		"Activate", "SetTemporary", "RemoveSource", "MoveListener",
		"SetListenerPosition", "TurnListener", "SetListenerAngle",
		"SetListenerOrientation", "SetMasterVolume",
	}
	if int(k) < len(names) {
		return names[k]
	}
	return "Unknown"
}

// Command is a single enqueued request. Fields irrelevant to Kind are left
// zero.
type Command struct {
	Kind Kind

	Source string // sname

	Priority  bool
	Streaming bool
	Looping   bool
	Temporary bool

	File string
	Pos  geometry.Vec3

	Attenuation       geometry.Attenuation
	DistanceOrRolloff float32

	Gain float32

	Angle float32 // absolute yaw (SetListenerAngle) or delta (TurnListener)

	Look, Up geometry.Vec3
}
