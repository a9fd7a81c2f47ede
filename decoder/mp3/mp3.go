// Package mp3 implements clip.Decoder for MPEG audio files using
// github.com/hajimehoshi/go-mp3, which already produces 16-bit
// little-endian stereo PCM, so no resampling is needed here.
package mp3

import (
	"fmt"
	"io"
	"os"

	"github.com/fieldaudio/soundfield/clip"
	gomp3 "github.com/hajimehoshi/go-mp3"
)

// Decoder decodes MP3 files into clip.Format + 16-bit stereo PCM. It
// satisfies clip.Decoder.
type Decoder struct{}

func (Decoder) Decode(path string) (clip.Format, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return clip.Format{}, nil, fmt.Errorf("mp3: open %s: %w", path, err)
	}
	defer f.Close()

	dec, err := gomp3.NewDecoder(f)
	if err != nil {
		return clip.Format{}, nil, fmt.Errorf("mp3: decode %s: %w", path, err)
	}

	format := clip.Format{
		SampleRate:    dec.SampleRate(),
		Channels:      2,
		BitsPerSample: 16,
	}
	if err := format.Validate(); err != nil {
		return clip.Format{}, nil, fmt.Errorf("mp3: %s: %w", path, err)
	}

	out, err := io.ReadAll(dec)
	if err != nil {
		return clip.Format{}, nil, fmt.Errorf("mp3: %s: %w", path, err)
	}
	return format, out, nil
}
