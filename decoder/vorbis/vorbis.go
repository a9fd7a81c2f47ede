// Package vorbis implements clip.Decoder for OGG/Vorbis files using
// github.com/jfreymuth/oggvorbis, enriching the engine's decoder registry
// with the codec spec.md §1 names as an out-of-scope-but-pluggable format.
package vorbis

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/fieldaudio/soundfield/clip"
	"github.com/jfreymuth/oggvorbis"
)

const maxInt16 = float32(math.MaxInt16)

// Decoder decodes OGG/Vorbis files into clip.Format + 16-bit little-endian
// PCM. It satisfies clip.Decoder.
type Decoder struct{}

func (Decoder) Decode(path string) (clip.Format, []byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return clip.Format{}, nil, fmt.Errorf("vorbis: open %s: %w", path, err)
	}
	defer f.Close()

	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return clip.Format{}, nil, fmt.Errorf("vorbis: decode %s: %w", path, err)
	}

	format := clip.Format{
		SampleRate:    reader.SampleRate(),
		Channels:      reader.Channels(),
		BitsPerSample: 16,
	}
	if err := format.Validate(); err != nil {
		return clip.Format{}, nil, fmt.Errorf("vorbis: %s: %w", path, err)
	}

	var out []byte
	buf := make([]float32, 4096*format.Channels)
	for {
		n, err := reader.Read(buf)
		for i := 0; i < n; i++ {
			out = appendSample16(out, buf[i])
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return clip.Format{}, nil, fmt.Errorf("vorbis: %s: %w", path, err)
		}
		if n == 0 {
			break
		}
	}
	return format, out, nil
}

func appendSample16(out []byte, sample float32) []byte {
	v := sample * maxInt16
	if v > maxInt16 {
		v = maxInt16
	}
	if v < -maxInt16-1 {
		v = -maxInt16 - 1
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(int16(v)))
	return append(out, b[0], b[1])
}
