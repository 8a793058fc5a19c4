package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// Prunes expired timestamps in place. Must be called with w.mu held.
func (w *window) pruneLocked(cutoff time.Time) {
	valid := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			valid = append(valid, ts)
		}
	}
	w.timestamps = valid
}

// MemoryStore keeps sliding windows in process memory, one ordered timestamp
// slice per key. Expired timestamps are pruned lazily on every operation and
// by a background cleanup loop that drops empty windows.
type MemoryStore struct {
	mu      sync.RWMutex
	windows map[string]*window

	cleanupInterval time.Duration
	stopCleanup     chan struct{}
	cleanupOnce     sync.Once
}

// MemoryStoreOption configures a MemoryStore.
type MemoryStoreOption func(*MemoryStore)

// WithCleanupInterval sets how often empty windows are swept.
func WithCleanupInterval(interval time.Duration) MemoryStoreOption {
	return func(s *MemoryStore) {
		if interval > 0 {
			s.cleanupInterval = interval
		}
	}
}

// NewMemoryStore creates an in-memory store with a background cleanup loop.
// Call Close to stop the loop.
func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	s := &MemoryStore{
		windows:         make(map[string]*window),
		cleanupInterval: time.Minute,
		stopCleanup:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.cleanupLoop()

	return s
}

func (s *MemoryStore) RecordIfAllowed(ctx context.Context, key string, now time.Time, windowDur time.Duration, limit int) (bool, int64, time.Time, error) {
	s.mu.Lock()
	w, ok := s.windows[key]
	if !ok {
		w = &window{}
		s.windows[key] = w
	}
	s.mu.Unlock()

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(now.Add(-windowDur))

	var oldest time.Time
	if len(w.timestamps) > 0 {
		oldest = w.timestamps[0]
	}

	if len(w.timestamps) >= limit {
		return false, int64(len(w.timestamps)), oldest, nil
	}

	w.timestamps = append(w.timestamps, now)
	if oldest.IsZero() {
		oldest = now
	}
	return true, int64(len(w.timestamps)), oldest, nil
}

func (s *MemoryStore) Count(ctx context.Context, key string, windowDur time.Duration) (int64, error) {
	s.mu.RLock()
	w, ok := s.windows[key]
	s.mu.RUnlock()
	if !ok {
		return 0, nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	w.pruneLocked(time.Now().Add(-windowDur))
	return int64(len(w.timestamps)), nil
}

func (s *MemoryStore) Reset(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.windows, key)
	return nil
}

func (s *MemoryStore) cleanupLoop() {
	ticker := time.NewTicker(s.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCleanup:
			return
		}
	}
}

func (s *MemoryStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, w := range s.windows {
		w.mu.Lock()
		if len(w.timestamps) == 0 {
			delete(s.windows, key)
		}
		w.mu.Unlock()
	}
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (s *MemoryStore) Close() error {
	s.cleanupOnce.Do(func() {
		close(s.stopCleanup)
	})
	return nil
}
