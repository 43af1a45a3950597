package services

import (
	"sync"

	"fightsync/identity"
)

// Resolver caches business-key to store-id mappings for the process
// lifetime. Stale reads are harmless (a redundant lookup at worst), so a
// plain RWMutex suffices.
type Resolver struct {
	mu       sync.RWMutex
	events   map[string]int64
	fighters map[string]int64
}

func NewResolver() *Resolver {
	return &Resolver{
		events:   make(map[string]int64),
		fighters: make(map[string]int64),
	}
}

func (r *Resolver) Event(name string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.events[identity.Key(name)]
	return id, ok
}

func (r *Resolver) PutEvent(name string, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events[identity.Key(name)] = id
}

func (r *Resolver) Fighter(name string) (int64, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.fighters[identity.Key(name)]
	return id, ok
}

func (r *Resolver) PutFighter(name string, id int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fighters[identity.Key(name)] = id
}
