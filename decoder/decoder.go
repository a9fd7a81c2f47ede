// Package decoder wires the concrete AudioSource collaborators (spec.md §6)
// into the extension-keyed table clip.Cache expects. Each subpackage
// (wav, vorbis, mp3) implements clip.Decoder independently; this package
// only assembles the default registry.
package decoder

import (
	"github.com/fieldaudio/soundfield/clip"
	"github.com/fieldaudio/soundfield/decoder/mp3"
	"github.com/fieldaudio/soundfield/decoder/vorbis"
	"github.com/fieldaudio/soundfield/decoder/wav"
)

// DefaultRegistry returns the built-in decoder table, keyed by file
// extension. Callers may add or override entries before passing the result
// to clip.NewCache.
func DefaultRegistry() map[string]clip.Decoder {
	return map[string]clip.Decoder{
		".wav":  wav.Decoder{},
		".ogg":  vorbis.Decoder{},
		".oga":  vorbis.Decoder{},
		".mp3":  mp3.Decoder{},
	}
}
