package clip

import (
	"errors"
	"testing"
)

type fakeDecoder struct {
	format Format
	data   []byte
	calls  int
	err    error
}

func (f *fakeDecoder) Decode(path string) (Format, []byte, error) {
	f.calls++
	if f.err != nil {
		return Format{}, nil, f.err
	}
	return f.format, f.data, nil
}

func newTestCache(dec Decoder) *Cache {
	return NewCache(map[string]Decoder{".wav": dec}, 0)
}

func TestGetOrLoadCachesAndIsIdempotent(t *testing.T) {
	dec := &fakeDecoder{format: Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}, data: []byte{1, 2, 3, 4}}
	c := newTestCache(dec)

	got1, err := c.GetOrLoad("a.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got2, err := c.GetOrLoad("a.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got1 != got2 {
		t.Errorf("expected same *Clip pointer on cache hit")
	}
	if dec.calls != 1 {
		t.Errorf("expected decoder to be called once, got %d", dec.calls)
	}
}

func TestGetOrLoadDecodeFailureLeavesCacheUnchanged(t *testing.T) {
	dec := &fakeDecoder{err: errors.New("bad file")}
	c := newTestCache(dec)

	if _, err := c.GetOrLoad("bad.wav"); err == nil {
		t.Fatal("expected error")
	}
	if _, ok := c.Peek("bad.wav"); ok {
		t.Error("failed decode should not populate the cache")
	}

	// A subsequent load is a fresh attempt, not blocked by the earlier failure.
	dec.err = nil
	dec.format = Format{SampleRate: 8000, Channels: 1, BitsPerSample: 8}
	dec.data = []byte{9}
	if _, err := c.GetOrLoad("bad.wav"); err != nil {
		t.Fatalf("expected reattempt to succeed, got %v", err)
	}
}

func TestUnloadRemovesEntryButExistingRefStaysValid(t *testing.T) {
	dec := &fakeDecoder{format: Format{SampleRate: 44100, Channels: 1, BitsPerSample: 16}, data: []byte{1, 2}}
	c := newTestCache(dec)

	held, err := c.GetOrLoad("a.wav")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := c.Unload("a.wav"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := c.Peek("a.wav"); ok {
		t.Error("expected cache entry to be gone after unload")
	}
	if held.Len() != 2 {
		t.Error("existing reference should remain valid after unload")
	}

	if err := c.Unload("a.wav"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTrimOneShotRoundsDownToFrame(t *testing.T) {
	c := &Clip{Format: Format{SampleRate: 44100, Channels: 2, BitsPerSample: 16}, Data: make([]byte, 100)}
	trimmed := TrimOneShot(c, 11) // 11 bytes / 4 bytes-per-frame = 2 frames = 8 bytes
	if len(trimmed.Data) != 8 {
		t.Errorf("expected trimmed length 8, got %d", len(trimmed.Data))
	}
	// Streaming clips are never trimmed by policy; TrimOneShot itself has no
	// opinion on that, it is the caller's job not to call it for streaming.
	untouched := TrimOneShot(c, 1000)
	if len(untouched.Data) != 100 {
		t.Errorf("clip smaller than cap should be returned unchanged")
	}
}

func TestNoDecoderForExtension(t *testing.T) {
	c := newTestCache(&fakeDecoder{})
	if _, err := c.GetOrLoad("a.xyz"); !errors.Is(err, ErrNoDecoder) {
		t.Errorf("expected ErrNoDecoder, got %v", err)
	}
}
