// Package streampump implements the streaming refill worker of spec.md
// §4.6 (C6): a single goroutine with a watch list of streaming sources,
// woken on a condition variable or a bounded poll interval, that keeps each
// watched source's backend voice fed with PCM chunks and handles
// end-of-stream/loop transitions.
package streampump

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/fieldaudio/soundfield/backend"
	"github.com/fieldaudio/soundfield/internal/registry"
)

const pollInterval = 20 * time.Millisecond

// Pump owns the watch list and the goroutine that drains it.
type Pump struct {
	logger *slog.Logger
	be     backend.Backend

	numStreamBuffers  int
	streamBufferBytes int

	mu   sync.Mutex
	cond *sync.Cond
	set  map[*registry.Source]bool

	stopCh  chan struct{}
	stopped bool
	wg      sync.WaitGroup
}

func New(be backend.Backend, numStreamBuffers, streamBufferBytes int, logger *slog.Logger) *Pump {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pump{
		logger:            logger.With("component", "streampump"),
		be:                be,
		numStreamBuffers:  numStreamBuffers,
		streamBufferBytes: streamBufferBytes,
		set:               make(map[*registry.Source]bool),
		stopCh:            make(chan struct{}),
	}
	p.cond = sync.NewCond(&p.mu)
	return p
}

func (p *Pump) Start() {
	p.wg.Add(1)
	go p.run()
}

func (p *Pump) Stop() {
	p.mu.Lock()
	p.stopped = true
	close(p.stopCh)
	p.cond.Broadcast()
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		p.logger.Warn("pump did not exit within 5s of shutdown, proceeding with best-effort release")
	}
}

// Watch inserts s into the watch list. Per spec.md §4.6, any other source
// currently bound to the same voice is stopped first (a voice is only ever
// fed by one watched source at a time). Watch only sets PendingPreload, so
// the initial fill happens on the pump's next tick rather than here, keeping
// Watch itself non-blocking.
func (p *Pump) Watch(s *registry.Source, unbindOther func(*registry.Source)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v := s.VoiceHandle(); v != nil && unbindOther != nil {
		for other := range p.set {
			if other != s {
				if ov := other.VoiceHandle(); ov != nil && ov.ID == v.ID {
					unbindOther(other)
					delete(p.set, other)
				}
			}
		}
	}
	s.SetPendingPreload(true)
	p.set[s] = true
	p.cond.Broadcast()
}

func (p *Pump) Unwatch(s *registry.Source) {
	p.mu.Lock()
	delete(p.set, s)
	p.mu.Unlock()
}

func (p *Pump) run() {
	defer p.wg.Done()
	for {
		p.mu.Lock()
		for len(p.set) == 0 && !p.stopped {
			p.cond.Wait()
		}
		if p.stopped {
			p.mu.Unlock()
			return
		}
		sources := make([]*registry.Source, 0, len(p.set))
		for s := range p.set {
			sources = append(sources, s)
		}
		p.mu.Unlock()

		select {
		case <-p.stopCh:
			return
		case <-time.After(pollInterval):
		}

		for _, s := range sources {
			p.tick(s)
		}
	}
}

// tick runs one source through the per-iteration loop of spec.md §4.6.
func (p *Pump) tick(s *registry.Source) {
	snap := s.Snapshot()
	if snap.State == registry.StateStopped {
		p.Unwatch(s)
		return
	}
	if !snap.Active {
		if snap.Looping {
			s.SetPendingPlay(true)
		}
		p.Unwatch(s)
		return
	}
	if snap.State == registry.StatePaused {
		return
	}
	if snap.PendingPreload {
		p.preload(s)
		return
	}

	voice := s.VoiceHandle()
	if voice == nil {
		return
	}
	processed, err := p.be.BuffersProcessed(voice)
	if err != nil {
		p.logger.Error("buffers_processed failed, dropping source", "source", s.Name, "error", err)
		p.stopAndUnwatch(s, voice)
		return
	}

	c := s.ClipRef()
	for i := 0; i < processed; i++ {
		cur := s.Cursor()
		if c == nil || cur >= uint64(c.Len()) {
			if snap.Looping {
				s.SetPendingPreload(true)
				break
			}
			if !p.be.IsPlaying(voice) {
				p.stopAndUnwatch(s, voice)
				break
			}
			break
		}
		remaining := uint64(c.Len()) - cur
		chunkLen := remaining
		if chunkLen > uint64(p.streamBufferBytes) {
			chunkLen = uint64(p.streamBufferBytes)
		}
		chunk := c.Data[cur : cur+chunkLen]
		if err := p.be.Queue(voice, chunk); err != nil {
			p.logger.Error("queue failed, dropping source", "source", s.Name, "error", err)
			p.stopAndUnwatch(s, voice)
			return
		}
		s.AdvanceCursor(chunkLen)
	}
}

// preload rewinds stream_cursor to 0 and submits NumStreamBuffers chunks,
// per spec.md §4.6. Called both on initial Watch and on loop wrap.
func (p *Pump) preload(s *registry.Source) {
	c := s.ClipRef()
	s.SetCursor(0)
	if c == nil || c.Len() == 0 {
		s.SetPendingPreload(false)
		p.Unwatch(s)
		return
	}

	var chunks [][]byte
	cursor := uint64(0)
	for i := 0; i < p.numStreamBuffers; i++ {
		if cursor >= uint64(c.Len()) {
			break
		}
		remaining := uint64(c.Len()) - cursor
		n := remaining
		if n > uint64(p.streamBufferBytes) {
			n = uint64(p.streamBufferBytes)
		}
		chunks = append(chunks, c.Data[cursor:cursor+n])
		cursor += n
	}

	if voice := s.VoiceHandle(); voice != nil {
		if err := p.be.Preload(voice, chunks); err != nil && !errors.Is(err, backend.ErrEndOfStream) {
			p.logger.Error("preload failed, dropping source", "source", s.Name, "error", err)
			p.stopAndUnwatch(s, voice)
			return
		}
	}
	s.SetCursor(cursor)
	s.SetPendingPreload(false)
}

func (p *Pump) stopAndUnwatch(s *registry.Source, voice *backend.Voice) {
	if voice != nil {
		p.be.Stop(voice)
	}
	s.SetState(registry.StateStopped)
	p.Unwatch(s)
}
