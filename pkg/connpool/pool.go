package connpool

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"
)

// ConnEntry tracks metadata for one logical destination. The pool does not
// hold sockets itself; http.Transport owns keep-alive connections, the pool
// owns accounting and capacity.
type ConnEntry struct {
	CreatedAt time.Time
	LastUsed  time.Time
	UseCount  int64
}

// Stats is a point-in-time snapshot of pool activity. Average latency is
// measured over successful requests only.
type Stats struct {
	Connections   int
	TotalRequests int64
	Successes     int64
	Failures      int64
	AvgLatency    time.Duration
}

// Pool is a bounded registry of per-destination connection metadata that
// wraps every outbound request with a timeout and collects latency and error
// statistics. Safe for concurrent use.
type Pool struct {
	mu      sync.Mutex
	client  *http.Client
	entries map[string]*ConnEntry
	order   []string // insertion order, drives FIFO eviction

	maxConnections int
	defaultTimeout time.Duration

	totalRequests int64
	successes     int64
	failures      int64
	avgLatency    time.Duration
}

// Option configures a Pool.
type Option func(*Pool)

// WithMaxConnections bounds the number of tracked destinations.
func WithMaxConnections(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.maxConnections = n
		}
	}
}

// WithDefaultTimeout sets the per-request timeout applied when the caller
// does not supply one.
func WithDefaultTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.defaultTimeout = d
		}
	}
}

// WithHTTPClient sets a custom HTTP client, mainly for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Pool) {
		if c != nil {
			p.client = c
		}
	}
}

// New creates a pool with keep-alive transport defaults tuned for a small
// number of API hosts.
func New(opts ...Option) *Pool {
	p := &Pool{
		entries:        make(map[string]*ConnEntry),
		maxConnections: 10,
		defaultTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.client == nil {
		p.client = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return p
}

// Acquire registers use of a destination key, creating its entry if absent.
// At capacity the oldest-inserted entry is evicted first. Returns a snapshot
// of the entry after the update.
func (p *Pool) Acquire(key string) ConnEntry {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	e, ok := p.entries[key]
	if !ok {
		if len(p.entries) >= p.maxConnections {
			p.evictOldestLocked()
		}
		e = &ConnEntry{CreatedAt: now}
		p.entries[key] = e
		p.order = append(p.order, key)
	}
	e.LastUsed = now
	e.UseCount++
	return *e
}

// Do executes the request through the pool's client, bounded by timeout
// (the pool default when zero), and records the outcome. The returned
// response body must be closed by the caller; closing it releases the
// timeout context.
func (p *Pool) Do(req *http.Request, timeout time.Duration) (*http.Response, error) {
	if timeout <= 0 {
		timeout = p.defaultTimeout
	}
	p.Acquire(req.URL.Host)

	ctx, cancel := context.WithTimeout(req.Context(), timeout)
	req = req.WithContext(ctx)

	start := time.Now()
	resp, err := p.client.Do(req)
	p.record(time.Since(start), err == nil)
	if err != nil {
		cancel()
		return nil, err
	}

	// Keep the timeout context alive until the caller finishes the body.
	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// Cleanup evicts entries that have not been used within maxAge and returns
// the number removed.
func (p *Pool) Cleanup(maxAge time.Duration) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for key, e := range p.entries {
		if e.LastUsed.Before(cutoff) {
			delete(p.entries, key)
			removed++
		}
	}
	return removed
}

// Entry returns a snapshot of the entry for key, if tracked.
func (p *Pool) Entry(key string) (ConnEntry, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if !ok {
		return ConnEntry{}, false
	}
	return *e, true
}

// Len returns the number of tracked destinations.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Stats returns a snapshot of pool counters.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	return Stats{
		Connections:   len(p.entries),
		TotalRequests: p.totalRequests,
		Successes:     p.successes,
		Failures:      p.failures,
		AvgLatency:    p.avgLatency,
	}
}

func (p *Pool) record(elapsed time.Duration, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.totalRequests++
	if !ok {
		p.failures++
		return
	}
	p.successes++
	// Incremental mean: avg' = (avg*(n-1) + sample) / n
	n := p.successes
	p.avgLatency = time.Duration((int64(p.avgLatency)*(n-1) + int64(elapsed)) / n)
}

// Must be called with lock held. Skips keys already removed by Cleanup.
func (p *Pool) evictOldestLocked() {
	for len(p.order) > 0 {
		key := p.order[0]
		p.order = p.order[1:]
		if _, ok := p.entries[key]; ok {
			delete(p.entries, key)
			return
		}
	}
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
