package gateway

import "time"

// Config holds the tunables of the resilience pipeline, loaded from the
// environment.
type Config struct {
	// Rate limiting per channel.
	RateLimitWindow time.Duration `env:"GATEWAY_RATE_WINDOW" envDefault:"1s"`
	RateLimitMax    int           `env:"GATEWAY_RATE_MAX" envDefault:"5"`

	// Circuit breaker around the platform API.
	BreakerFailureThreshold int           `env:"GATEWAY_BREAKER_FAILURES" envDefault:"5"`
	BreakerSuccessThreshold int           `env:"GATEWAY_BREAKER_SUCCESSES" envDefault:"2"`
	BreakerResetTimeout     time.Duration `env:"GATEWAY_BREAKER_RESET" envDefault:"30s"`

	// Retry queue for failed sends.
	QueueMaxRetries  int           `env:"GATEWAY_QUEUE_MAX_RETRIES" envDefault:"3"`
	QueueRetryDelay  time.Duration `env:"GATEWAY_QUEUE_RETRY_DELAY" envDefault:"1s"`
	QueueConcurrency int           `env:"GATEWAY_QUEUE_CONCURRENCY" envDefault:"3"`
	QueueMaxFailed   int           `env:"GATEWAY_QUEUE_MAX_FAILED" envDefault:"1000"`

	// Connection pool for outbound API calls.
	PoolMaxConnections int           `env:"GATEWAY_POOL_MAX_CONNECTIONS" envDefault:"10"`
	PoolTimeout        time.Duration `env:"GATEWAY_POOL_TIMEOUT" envDefault:"30s"`

	// Token cache.
	TokenCacheSize int `env:"GATEWAY_TOKEN_CACHE_SIZE" envDefault:"100"`

	// Inbound dispatch.
	DispatchTimeout time.Duration `env:"GATEWAY_DISPATCH_TIMEOUT" envDefault:"30s"`

	// RedisURL, when set, switches the rate limiter to a Redis-backed window
	// shared across gateway replicas. Empty keeps the in-process store.
	RedisURL string `env:"GATEWAY_REDIS_URL"`
}
