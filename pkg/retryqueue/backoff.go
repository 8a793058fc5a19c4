package retryqueue

import (
	"math"
	"math/rand"
	"time"
)

// BackoffStrategy calculates the delay before a retry attempt.
// Implementations must be safe for concurrent use.
type BackoffStrategy interface {
	// NextInterval returns the backoff duration for the given attempt.
	// Attempt starts at 1 for the first retry.
	NextInterval(attempt int) time.Duration
}

// ExponentialBackoff grows the delay geometrically with optional jitter:
// min(InitialInterval * Multiplier^(attempt-1) * (1 ± JitterFactor), MaxInterval).
type ExponentialBackoff struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	Multiplier      float64
	JitterFactor    float64
}

// NextInterval implements BackoffStrategy.
func (e ExponentialBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	initial := e.InitialInterval
	if initial == 0 {
		initial = time.Second
	}
	maxInterval := e.MaxInterval
	if maxInterval == 0 {
		maxInterval = 30 * time.Second
	}
	multiplier := e.Multiplier
	if multiplier == 0 {
		multiplier = 2
	}

	interval := float64(initial) * math.Pow(multiplier, float64(attempt-1))

	// Jitter spreads retries from concurrent items so they do not line up.
	if e.JitterFactor > 0 {
		randomJitter := (rand.Float64()*2 - 1) * e.JitterFactor
		interval = interval * (1 + randomJitter)
	}

	if interval > float64(maxInterval) {
		interval = float64(maxInterval)
	}
	return time.Duration(interval)
}

// LinearBackoff increases the delay linearly: min(Interval*attempt, MaxInterval).
type LinearBackoff struct {
	Interval    time.Duration
	MaxInterval time.Duration
}

// NextInterval implements BackoffStrategy.
func (l LinearBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}

	interval := l.Interval
	if interval == 0 {
		interval = time.Second
	}
	maxInterval := l.MaxInterval
	if maxInterval == 0 {
		maxInterval = 30 * time.Second
	}

	delay := interval * time.Duration(attempt)
	if delay > maxInterval {
		delay = maxInterval
	}
	return delay
}

// FixedBackoff waits the same interval before every retry.
type FixedBackoff struct {
	Interval time.Duration
}

// NextInterval implements BackoffStrategy.
func (f FixedBackoff) NextInterval(attempt int) time.Duration {
	if attempt <= 0 {
		return 0
	}
	return f.Interval
}
