// Package dispatcher implements the command queue and worker of spec.md
// §4.7 (C7): the facade enqueues commands here; a single worker goroutine
// drains the queue, mutates the source registry, issues backend calls,
// polls for naturally-finished voices, and runs the temporary-source
// reaper every 10 seconds.
package dispatcher

import (
	"log/slog"
	"sync"
	"time"

	"github.com/fieldaudio/soundfield/backend"
	"github.com/fieldaudio/soundfield/clip"
	"github.com/fieldaudio/soundfield/geometry"
	"github.com/fieldaudio/soundfield/internal/registry"
	"github.com/fieldaudio/soundfield/internal/streampump"
	"github.com/fieldaudio/soundfield/internal/voicepool"
)

const reapInterval = 10 * time.Second

// completionPollInterval bounds how long a naturally-finished voice can sit
// unnoticed: spec.md §8's "within 1s playing(name) == false" scenario needs
// pollCompletions to run well under a second even with an otherwise-idle
// queue, so this ticker wakes the worker far more often than the 10s reap
// cadence (which stays gated separately inside run()).
const completionPollInterval = 200 * time.Millisecond

// Dispatcher owns the unbounded command FIFO and the worker that drains it.
type Dispatcher struct {
	logger *slog.Logger

	reg       *registry.Registry
	pool      *voicepool.Pool
	pump      *streampump.Pump
	be        backend.Backend
	clipCache *clip.Cache

	trimOneShotBytes int

	mu         sync.Mutex
	cond       *sync.Cond
	queue      []Command
	dying      bool
	woken      bool // set by the wake ticker so an empty queue still wakes run()
	listener   geometry.Listener
	masterGain float32

	stopCh   chan struct{}
	wg       sync.WaitGroup
	tickerWg sync.WaitGroup
}

func New(reg *registry.Registry, pool *voicepool.Pool, pump *streampump.Pump, be backend.Backend, clipCache *clip.Cache, trimOneShotBytes int, masterGain float32, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		logger:           logger.With("component", "dispatcher"),
		reg:              reg,
		pool:             pool,
		pump:             pump,
		be:               be,
		clipCache:        clipCache,
		trimOneShotBytes: trimOneShotBytes,
		listener:         geometry.NewListener(),
		masterGain:       masterGain,
		stopCh:           make(chan struct{}),
	}
	d.cond = sync.NewCond(&d.mu)
	return d
}

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go d.run()

	// Forces the worker to wake on a short cadence even when the command
	// queue is idle: pollCompletions needs it to catch a naturally-finished
	// voice promptly, and it also drives the (separately gated) 10s reaper
	// cadence, matching spec.md §4.7/§9's "cooperative, cap at 10 s" rule.
	d.tickerWg.Add(1)
	go func() {
		defer d.tickerWg.Done()
		ticker := time.NewTicker(completionPollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-d.stopCh:
				return
			case <-ticker.C:
				d.mu.Lock()
				d.woken = true
				d.cond.Broadcast()
				d.mu.Unlock()
			}
		}
	}()
}

// Stop sets the dying flag and waits up to 5 s for the worker to drain and
// exit, per spec.md §5's shutdown cancellation rule.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	d.dying = true
	d.cond.Broadcast()
	d.mu.Unlock()
	close(d.stopCh)

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		d.logger.Warn("worker did not exit within 5s of shutdown, proceeding with best-effort release")
	}
	d.tickerWg.Wait()
}

// Enqueue appends a command and wakes the worker. Never blocks (the queue
// is unbounded).
func (d *Dispatcher) Enqueue(cmd Command) {
	d.mu.Lock()
	d.queue = append(d.queue, cmd)
	d.cond.Broadcast()
	d.mu.Unlock()
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	var lastReap time.Time
	for {
		d.mu.Lock()
		for len(d.queue) == 0 && !d.dying && !d.woken {
			d.cond.Wait()
		}
		if d.dying && len(d.queue) == 0 {
			d.mu.Unlock()
			return
		}
		batch := d.queue
		d.queue = nil
		d.woken = false
		d.mu.Unlock()

		for _, cmd := range batch {
			d.execute(cmd)
		}

		// Runs on every wake, not just command batches: it's the only place
		// that detects a voice finishing on its own (spec.md §4.7 natural
		// completion), and a quiet queue must not starve that detection.
		d.pollCompletions()
		d.sourceManagement()

		if time.Since(lastReap) >= reapInterval {
			d.reapTemporarySources()
			lastReap = time.Now()
		}
	}
}

// sourceManagement applies pending culls/activations deferred by earlier
// commands (spec.md §4.7(a)): a Culled source whose PendingPlay was set by
// a deferred Play now reinstates once activated, and any source with
// PendingPlay set while looping-but-culled is picked up here rather than
// inside the command handler, so it survives across command batches.
func (d *Dispatcher) sourceManagement() {
	var toPlay []*registry.Source
	d.reg.ForEach(func(s *registry.Source) {
		if s.GetState() == registry.StateStopped && s.Snapshot().PendingPlay {
			toPlay = append(toPlay, s)
		}
	})
	for _, s := range toPlay {
		s.SetPendingPlay(false)
		d.playSource(s)
	}
}

// reapTemporarySources sweeps the registry for temporary sources that have
// naturally stopped and have no deferred looping-replay pending (spec.md
// §4.7(b), §9's pending_play open question). Paused and Culled sources are
// left alone — they haven't stopped, they're waiting.
func (d *Dispatcher) reapTemporarySources() {
	var toRemove []string
	d.reg.ForEach(func(s *registry.Source) {
		snap := s.Snapshot()
		if snap.Temporary && snap.State == registry.StateStopped && !snap.PendingPlay {
			toRemove = append(toRemove, snap.Name)
		}
	})
	for _, name := range toRemove {
		d.destroySource(name)
	}
}
