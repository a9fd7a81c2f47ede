// Package wav implements clip.Decoder for PCM .wav files using
// github.com/go-audio/wav, the same library the teacher repo uses to read
// its file-based audio source device.
package wav

import (
	"encoding/binary"
	"fmt"
	"os"

	"github.com/fieldaudio/soundfield/clip"
	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Decoder decodes RIFF/WAVE files into clip.Format + raw little-endian PCM
// bytes. It satisfies clip.Decoder.
type Decoder struct{}

// Decode reads path fully and returns its PCM payload.
func (Decoder) Decode(path string) (clip.Format, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return clip.Format{}, nil, fmt.Errorf("wav: open %s: %w", path, err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return clip.Format{}, nil, fmt.Errorf("wav: %s is not a valid WAV file: %w", path, dec.Err())
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return clip.Format{}, nil, fmt.Errorf("wav: decode %s: %w", path, err)
	}

	format := clip.Format{
		SampleRate:    int(dec.SampleRate),
		Channels:      int(dec.NumChans),
		BitsPerSample: int(dec.BitDepth),
	}
	if err := format.Validate(); err != nil {
		return clip.Format{}, nil, fmt.Errorf("wav: %s: %w", path, err)
	}

	data, err := encodePCM(buf, format.BitsPerSample)
	if err != nil {
		return clip.Format{}, nil, fmt.Errorf("wav: %s: %w", path, err)
	}
	return format, data, nil
}

// encodePCM packs an IntBuffer's samples into little-endian signed PCM, the
// canonical in-memory representation spec.md §6 requires of decoders.
func encodePCM(buf *goaudio.IntBuffer, bitsPerSample int) ([]byte, error) {
	switch bitsPerSample {
	case 16:
		out := make([]byte, len(buf.Data)*2)
		for i, sample := range buf.Data {
			binary.LittleEndian.PutUint16(out[i*2:], uint16(int16(sample)))
		}
		return out, nil
	case 8:
		out := make([]byte, len(buf.Data))
		for i, sample := range buf.Data {
			out[i] = byte(int8(sample))
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported bit depth %d", bitsPerSample)
	}
}
