// Package voicepool implements the fixed voice arrays and round-robin
// allocator of spec.md §4.5 (C5): two ordered slices (normal, streaming),
// each with its own cursor, searched in three passes per Allocate call.
package voicepool

import "github.com/fieldaudio/soundfield/backend"

// slot is one pool entry: a backend voice handle plus the name of the last
// source bound to it, so the allocator can tell an empty slot from a stale
// binding left by a source that stopped without releasing its voice.
type slot struct {
	voice      *backend.Voice
	lastSource string // "" when never bound or explicitly unbound
}

// Pool holds the normal and streaming arrays plus their round-robin
// cursors. It has no notion of Source itself; callers supply two lookups
// (is the named source playing, is it priority) so this package stays
// leaf-level per spec.md §2's dependency order.
type Pool struct {
	normal    []slot
	streaming []slot

	normalCursor    int
	streamingCursor int
}

// Occupant answers the two questions Allocate needs about whatever source
// currently occupies a slot, keyed by name.
type Occupant interface {
	IsPlaying(name string) bool
	IsPriority(name string) bool
}

func New(numNormal, numStreaming int, createVoice func(kind backend.VoiceKind) (*backend.Voice, bool)) *Pool {
	p := &Pool{
		normal:    make([]slot, 0, numNormal),
		streaming: make([]slot, 0, numStreaming),
	}
	for i := 0; i < numNormal; i++ {
		if v, ok := createVoice(backend.VoiceNormal); ok {
			p.normal = append(p.normal, slot{voice: v})
		}
	}
	for i := 0; i < numStreaming; i++ {
		if v, ok := createVoice(backend.VoiceStreaming); ok {
			p.streaming = append(p.streaming, slot{voice: v})
		}
	}
	return p
}

func (p *Pool) poolFor(streaming bool) []slot {
	if streaming {
		return p.streaming
	}
	return p.normal
}

func (p *Pool) cursorFor(streaming bool) *int {
	if streaming {
		return &p.streamingCursor
	}
	return &p.normalCursor
}

// Release clears a slot's binding without touching the backend voice
// itself, used when a source stops and gives up its voice voluntarily
// (no eviction, so no need to notify anyone).
func (p *Pool) Release(streaming bool, voice *backend.Voice) {
	pool := p.poolFor(streaming)
	for i := range pool {
		if pool[i].voice == voice {
			pool[i].lastSource = ""
			return
		}
	}
}

// Allocate runs the three passes of spec.md §4.5. evicted is the name of a
// source that was disconnected to make room for name; it is "" when no
// eviction occurred (re-bind, empty slot, or stale non-playing binding).
// voice is nil (pass 4) when the pool has no eligible slot at all.
func (p *Pool) Allocate(name string, streaming bool, occ Occupant) (voice *backend.Voice, evicted string) {
	pool := p.poolFor(streaming)
	n := len(pool)
	if n == 0 {
		return nil, ""
	}
	cursor := p.cursorFor(streaming)

	// Pass 1: already bound to this name — re-bind, no cursor movement.
	for i := range pool {
		if pool[i].lastSource == name {
			return pool[i].voice, ""
		}
	}

	// Pass 2: first slot that is empty or whose occupant isn't playing.
	for step := 0; step < n; step++ {
		i := (*cursor + step) % n
		occupant := pool[i].lastSource
		if occupant == "" || !occ.IsPlaying(occupant) {
			pool[i].lastSource = name
			*cursor = (i + 1) % n
			return pool[i].voice, ""
		}
	}

	// Pass 3: first slot whose occupant is non-priority (it's necessarily
	// playing, else pass 2 would have claimed it) — evict and bind.
	for step := 0; step < n; step++ {
		i := (*cursor + step) % n
		occupant := pool[i].lastSource
		if occupant != "" && !occ.IsPriority(occupant) {
			pool[i].lastSource = name
			*cursor = (i + 1) % n
			return pool[i].voice, occupant
		}
	}

	// Pass 4: every slot held by a playing, priority source.
	return nil, ""
}
