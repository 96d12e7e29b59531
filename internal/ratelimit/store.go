package ratelimit

import (
	"sync"
	"time"
)

// Store counts requests per key within a fixed window. The interface exists so
// the in-memory implementation can be swapped for a shared counter (e.g.
// Redis) in a multi-instance deployment; with the in-memory store, limits are
// per process.
type Store interface {
	Increment(key string, window time.Duration) (count int, resetAt time.Time)
}

type windowCounter struct {
	count   int
	resetAt time.Time
}

// InMemoryStore implements Store with a mutex-guarded map and a background
// sweep that drops expired windows.
type InMemoryStore struct {
	mu        sync.Mutex
	windows   map[string]*windowCounter
	sweep     *time.Ticker
	stopSweep chan struct{}
}

func NewInMemoryStore() *InMemoryStore {
	store := &InMemoryStore{
		windows:   make(map[string]*windowCounter),
		sweep:     time.NewTicker(time.Minute),
		stopSweep: make(chan struct{}),
	}

	go store.sweepExpired()

	return store
}

// Stop stops the background sweep goroutine. Call this when shutting down.
func (s *InMemoryStore) Stop() {
	s.sweep.Stop()
	close(s.stopSweep)
}

func (s *InMemoryStore) Increment(key string, window time.Duration) (int, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()

	counter, exists := s.windows[key]

	if !exists || !now.Before(counter.resetAt) {
		counter = &windowCounter{resetAt: now.Add(window)}
		s.windows[key] = counter
	}

	counter.count++

	return counter.count, counter.resetAt
}

func (s *InMemoryStore) sweepExpired() {
	for {
		select {
		case <-s.sweep.C:
			s.mu.Lock()
			now := time.Now()
			for key, counter := range s.windows {
				if !now.Before(counter.resetAt) {
					delete(s.windows, key)
				}
			}
			s.mu.Unlock()
		case <-s.stopSweep:
			return
		}
	}
}
