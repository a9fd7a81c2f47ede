// Package clip holds the decoded-PCM cache (spec.md §4.2, component C2): the
// immutable Clip payload, its Format, and a Cache keyed by the originating
// filename/URL string.
package clip

import "fmt"

// Format describes the PCM layout produced by a decoder: little-endian
// signed PCM, interleaved for stereo, 8 or 16 bits per sample.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// Validate reports whether the format satisfies spec.md §3's invariants.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("clip: sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels != 1 && f.Channels != 2 {
		return fmt.Errorf("clip: channels must be 1 or 2, got %d", f.Channels)
	}
	if f.BitsPerSample != 8 && f.BitsPerSample != 16 {
		return fmt.Errorf("clip: bits per sample must be 8 or 16, got %d", f.BitsPerSample)
	}
	return nil
}

// BytesPerFrame returns the byte size of one interleaved sample frame.
func (f Format) BytesPerFrame() int {
	return f.Channels * f.BitsPerSample / 8
}

// Clip is an immutable decoded PCM payload. It is shared by reference: the
// Cache and any Source that has bound to it may each hold a pointer, and in
// Go the runtime keeps it alive for as long as either does — there is no
// explicit refcount to manage.
type Clip struct {
	Name   string
	Format Format
	Data   []byte
}

// Len returns the total byte length of the decoded payload.
func (c *Clip) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Data)
}
