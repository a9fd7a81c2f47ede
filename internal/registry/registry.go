package registry

import (
	"sync"

	"github.com/fieldaudio/soundfield/geometry"
)

// Registry is the `sourcename → Source` map of spec.md §4.4. registryLock
// is read-write: the dispatcher worker takes the write lock for mutation,
// synchronous queries take the read lock.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]*Source
}

func New() *Registry {
	return &Registry{sources: make(map[string]*Source)}
}

// Create inserts a new Source, replacing any existing source of the same
// name (NewSource is specified as upsert-by-name in spec.md §6).
func (r *Registry) Create(s *Source) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[s.Name] = s
}

func (r *Registry) Get(name string) (*Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sources[name]
	return s, ok
}

func (r *Registry) Remove(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sources, name)
}

// ForEach runs f over every source under the read lock. f must not call
// back into Registry.
func (r *Registry) ForEach(f func(*Source)) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.sources {
		f(s)
	}
}

// NotifyListenerMoved recomputes distance and gain for every source, per
// spec.md §4.4 (pan is not stored; Source.Pan computes it on demand). Gain
// recompute locks each Source individually, not the registry, so
// this can run concurrently with Get/Create on unrelated names — it only
// needs the read lock to enumerate.
func (r *Registry) NotifyListenerMoved(listener geometry.Listener, masterGain float32) {
	r.mu.RLock()
	sources := make([]*Source, 0, len(r.sources))
	for _, s := range r.sources {
		sources = append(sources, s)
	}
	r.mu.RUnlock()

	for _, s := range sources {
		s.RecomputeGain(listener, masterGain)
	}
}

// List returns a snapshot of every source name in map iteration order
// (unsorted), backing the facade's list_sources query.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	return names
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sources)
}
