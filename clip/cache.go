package clip

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
)

// ErrDecodeFailed wraps any error returned by a Decoder, per spec.md §7's
// DecodeFailed error kind. A failed load leaves the cache unchanged.
var ErrDecodeFailed = errors.New("clip: decode failed")

// ErrNoDecoder is returned when no registered Decoder claims a file's
// extension.
var ErrNoDecoder = errors.New("clip: no decoder registered for extension")

// ErrNotFound is returned by Unload for a name absent from the cache.
var ErrNotFound = errors.New("clip: not found")

// Decoder is the AudioSource collaborator (spec.md §6): given a path or URL
// it fully decodes the referenced file into raw PCM + its Format, or
// returns an error. Decoding happens synchronously on whichever goroutine
// calls Cache.GetOrLoad — per spec.md §5 that is always the dispatcher.
type Decoder interface {
	Decode(path string) (Format, []byte, error)
}

// Cache is the C2 decoded-clip cache: get-or-load by name, with explicit
// unload. In-flight Source references to an unloaded Clip remain valid
// (ordinary Go pointers), matching spec.md §4.2's lifetime rule.
type Cache struct {
	mu       sync.RWMutex
	clips    map[string]*Clip
	decoders map[string]Decoder // keyed by lowercase extension, e.g. ".wav"

	// fileChunkBytes records the configured read granularity. It is not
	// passed to decoders (Decoder.Decode takes only a path) and does not
	// change Cache's own behavior.
	fileChunkBytes int
}

// NewCache builds a Cache from a table of decoders keyed by file extension
// (including the leading dot, e.g. ".wav"). fileChunkBytes configures the
// `file_chunk_bytes` option (spec.md §6); pass 0 for the 1 MiB default.
func NewCache(decoders map[string]Decoder, fileChunkBytes int) *Cache {
	if fileChunkBytes <= 0 {
		fileChunkBytes = 1048576
	}
	d := make(map[string]Decoder, len(decoders))
	for ext, dec := range decoders {
		d[strings.ToLower(ext)] = dec
	}
	return &Cache{
		clips:          make(map[string]*Clip),
		decoders:       d,
		fileChunkBytes: fileChunkBytes,
	}
}

// GetOrLoad returns the cached Clip for name, decoding it first on a cache
// miss. Idempotent: a second call for an already-cached name is a no-op
// lookup. A decode failure leaves the cache unchanged so a subsequent call
// may reattempt.
func (c *Cache) GetOrLoad(name string) (*Clip, error) {
	c.mu.RLock()
	if existing, ok := c.clips[name]; ok {
		c.mu.RUnlock()
		return existing, nil
	}
	c.mu.RUnlock()

	dec, ok := c.decoderFor(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNoDecoder, name)
	}

	format, data, err := dec.Decode(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, name, err)
	}
	if err := format.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrDecodeFailed, name, err)
	}

	newClip := &Clip{Name: name, Format: format, Data: data}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.clips[name]; ok {
		// Lost a decode race against a concurrent loader; keep the winner.
		return existing, nil
	}
	c.clips[name] = newClip
	return newClip, nil
}

// Unload removes name from the cache. Sources still holding the Clip
// pointer keep a valid reference; only the cache's own slot is freed.
func (c *Cache) Unload(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.clips[name]; !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	delete(c.clips, name)
	return nil
}

// Peek returns the cached Clip for name without triggering a load.
func (c *Cache) Peek(name string) (*Clip, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	clip, ok := c.clips[name]
	return clip, ok
}

func (c *Cache) decoderFor(name string) (Decoder, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	c.mu.RLock()
	defer c.mu.RUnlock()
	dec, ok := c.decoders[ext]
	return dec, ok
}

// TrimOneShot returns a copy of clip trimmed to at most maxBytes, rounded
// down to a whole frame, for backends that impose a platform clip-size
// limit on one-shot playback (spec.md §4.2's `max_clip_bytes`). Streaming
// sources must never be trimmed; callers only call this for one-shot
// attachment.
func TrimOneShot(c *Clip, maxBytes int) *Clip {
	if c == nil || maxBytes <= 0 || len(c.Data) <= maxBytes {
		return c
	}
	frame := c.Format.BytesPerFrame()
	if frame <= 0 {
		frame = 1
	}
	trimmedLen := (maxBytes / frame) * frame
	return &Clip{Name: c.Name, Format: c.Format, Data: c.Data[:trimmedLen]}
}
