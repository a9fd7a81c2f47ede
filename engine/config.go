// Package engine implements the public facade (spec.md §4.8, C8): the
// caller-facing API that enqueues commands on the dispatcher and answers
// synchronous queries directly against the source registry.
package engine

import "github.com/fieldaudio/soundfield/geometry"

// Config holds every static option from spec.md §6's Configuration options
// table. It is a plain struct with no viper dependency; cmd/soundfieldctl
// is where viper lives, per SPEC_FULL.md's ambient-stack split.
type Config struct {
	NumNormalVoices    int
	NumStreamingVoices int
	MasterGain         float32
	DefaultAttenuation geometry.Attenuation
	DefaultRolloff     float32
	DefaultFadeDistance float32
	StreamBufferBytes  int
	NumStreamBuffers   int
	MaxClipBytes       int
	FileChunkBytes     int
}

// DefaultConfig returns spec.md §6's documented defaults.
func DefaultConfig() Config {
	return Config{
		NumNormalVoices:     28,
		NumStreamingVoices:  4,
		MasterGain:          1.0,
		DefaultAttenuation:  geometry.AttenuationInverseRolloff,
		DefaultRolloff:      0.03,
		DefaultFadeDistance: 1000.0,
		StreamBufferBytes:   131072,
		NumStreamBuffers:    2,
		MaxClipBytes:        268435456,
		FileChunkBytes:      1048576,
	}
}

// withDefaults fills any zero-valued field of cfg with DefaultConfig's
// value, so callers may construct a Config{} literal and only override
// what they care about. DefaultAttenuation is the one exception: its zero
// value (AttenuationNone) is itself a valid explicit choice, so an
// unset Config{} ends up with DefaultAttenuation == None rather than
// InverseRolloff — start from DefaultConfig() to get the documented
// default instead of a bare Config{} literal.
func withDefaults(cfg Config) Config {
	d := DefaultConfig()
	if cfg.NumNormalVoices == 0 {
		cfg.NumNormalVoices = d.NumNormalVoices
	}
	if cfg.NumStreamingVoices == 0 {
		cfg.NumStreamingVoices = d.NumStreamingVoices
	}
	if cfg.MasterGain == 0 {
		cfg.MasterGain = d.MasterGain
	}
	if cfg.DefaultRolloff == 0 {
		cfg.DefaultRolloff = d.DefaultRolloff
	}
	if cfg.DefaultFadeDistance == 0 {
		cfg.DefaultFadeDistance = d.DefaultFadeDistance
	}
	if cfg.StreamBufferBytes == 0 {
		cfg.StreamBufferBytes = d.StreamBufferBytes
	}
	if cfg.NumStreamBuffers == 0 {
		cfg.NumStreamBuffers = d.NumStreamBuffers
	}
	if cfg.MaxClipBytes == 0 {
		cfg.MaxClipBytes = d.MaxClipBytes
	}
	if cfg.FileChunkBytes == 0 {
		cfg.FileChunkBytes = d.FileChunkBytes
	}
	return cfg
}
