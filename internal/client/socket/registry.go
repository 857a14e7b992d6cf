package socket

import "sync"

// Factory builds an unstarted Manager for a channel.
type Factory func(channel string) *Manager

// Registry shares one Manager per channel between all of its consumers.
// The Manager is started on first Acquire and closed on the last release.
type Registry struct {
	factory Factory

	mu      sync.Mutex
	entries map[string]*registryEntry
}

type registryEntry struct {
	manager *Manager
	refs    int
}

func NewRegistry(factory Factory) *Registry {
	return &Registry{factory: factory, entries: make(map[string]*registryEntry)}
}

// Acquire returns the channel's shared Manager and a release func. Calling
// release more than once has no further effect.
func (r *Registry) Acquire(channel string) (*Manager, func()) {
	r.mu.Lock()
	e, ok := r.entries[channel]
	if !ok {
		e = &registryEntry{manager: r.factory(channel)}
		r.entries[channel] = e
		e.manager.Start()
	}
	e.refs++
	r.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() { r.release(channel, e) })
	}
	return e.manager, release
}

func (r *Registry) release(channel string, e *registryEntry) {
	r.mu.Lock()
	e.refs--
	last := e.refs == 0
	if last && r.entries[channel] == e {
		delete(r.entries, channel)
	}
	r.mu.Unlock()

	if last {
		e.manager.Close()
	}
}

// Refs reports how many consumers hold channel.
func (r *Registry) Refs(channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[channel]; ok {
		return e.refs
	}
	return 0
}

// Close closes every managed connection regardless of outstanding refs.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]*registryEntry)
	r.mu.Unlock()

	for _, e := range entries {
		e.manager.Close()
	}
}
