package mongostore

import (
	"sync"
	"weak"
)

// awaiterEntry is a one-shot signaling primitive: waiters read from ch and
// block until it is closed, at which point every waiter wakes.
// Signal replaces ch with a fresh one so the entry can be pulsed again.
type awaiterEntry struct {
	mu sync.Mutex
	ch chan struct{}
}

func newAwaiterEntry() *awaiterEntry {
	return &awaiterEntry{ch: make(chan struct{})}
}

func (e *awaiterEntry) wait() <-chan struct{} {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ch
}

func (e *awaiterEntry) signal() {
	e.mu.Lock()
	old := e.ch
	e.ch = make(chan struct{})
	e.mu.Unlock()
	close(old)
}

// awaiterRegistry is the in-process lock-awaiter registry: a process-
// global map keyed by resource, holding weak pointers so an entry is
// reclaimable once no holder or waiter keeps a strong reference to it —
// the language-neutral "weak map" realization spec §9 calls for.
type awaiterRegistry struct {
	mu      sync.Mutex
	entries map[string]weak.Pointer[awaiterEntry]
}

func newAwaiterRegistry() *awaiterRegistry {
	return &awaiterRegistry{entries: make(map[string]weak.Pointer[awaiterEntry])}
}

// getOrCreate returns the live entry for resource, creating one if none
// exists or the previous one has already been collected. The caller must
// keep the returned pointer alive for as long as it intends to wait or
// signal on it.
func (r *awaiterRegistry) getOrCreate(resource string) *awaiterEntry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if wp, ok := r.entries[resource]; ok {
		if e := wp.Value(); e != nil {
			return e
		}
	}

	e := newAwaiterEntry()
	r.entries[resource] = weak.Make(e)
	return e
}
