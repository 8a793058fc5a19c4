package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"

	"github.com/relaygate/relaygate/internal/gateway"
	"github.com/relaygate/relaygate/pkg/breaker"
	"github.com/relaygate/relaygate/pkg/config"
	"github.com/relaygate/relaygate/pkg/connpool"
	"github.com/relaygate/relaygate/pkg/httpserver"
	"github.com/relaygate/relaygate/pkg/logger"
	"github.com/relaygate/relaygate/pkg/ratelimit"
	"github.com/relaygate/relaygate/pkg/redis"
	"github.com/relaygate/relaygate/pkg/requestcache"
	"github.com/relaygate/relaygate/pkg/retryqueue"
	"github.com/relaygate/relaygate/pkg/wecom"
)

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("gateway exited with error", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var gwCfg gateway.Config
	config.MustLoad(&gwCfg)

	var srvCfg httpserver.Config
	config.MustLoad(&srvCfg)

	var account wecom.AccountConfig
	config.MustLoad(&account)

	log := logger.New(logger.WithProduction("relaygate"))
	logger.SetAsDefault(log)

	// Every component is constructed here and injected explicitly; nothing
	// below relies on package-level singletons.
	pool := connpool.New(
		connpool.WithMaxConnections(gwCfg.PoolMaxConnections),
		connpool.WithDefaultTimeout(gwCfg.PoolTimeout),
	)
	tokens := requestcache.New[string](gwCfg.TokenCacheSize)
	client := wecom.NewClient(pool, tokens, wecom.WithLogger(log))

	store, probes, closeStore, err := newLimiterStore(ctx, gwCfg)
	if err != nil {
		return err
	}
	defer closeStore()

	limiter, err := ratelimit.NewSlidingWindow(store, gwCfg.RateLimitMax, gwCfg.RateLimitWindow)
	if err != nil {
		return err
	}

	cb := breaker.New(gwCfg.BreakerFailureThreshold, gwCfg.BreakerSuccessThreshold, gwCfg.BreakerResetTimeout)

	queue := retryqueue.New[gateway.OutboundMessage](
		retryqueue.WithMaxRetries(gwCfg.QueueMaxRetries),
		retryqueue.WithRetryDelay(gwCfg.QueueRetryDelay),
		retryqueue.WithConcurrency(gwCfg.QueueConcurrency),
		retryqueue.WithMaxFailed(gwCfg.QueueMaxFailed),
		retryqueue.WithLogger(log),
	)
	defer queue.Close()

	delivery := gateway.NewDelivery(client, limiter, cb, queue, log)

	// Until a real agent dispatcher is attached, echo the text back to the
	// sender so the full egress pipeline is exercised end to end.
	dispatcher := gateway.DispatcherFunc(func(ctx context.Context, msg gateway.InboundMessage) error {
		return delivery.Send(ctx, gateway.OutboundMessage{
			Channel: msg.Channel,
			Account: account,
			ToUser:  msg.FromUserID,
			Content: msg.Content,
		})
	})

	handler := gateway.NewHandler(
		gateway.StaticAccounts{"default": account},
		dispatcher,
		gwCfg.DispatchTimeout,
		log,
	)

	r := chi.NewRouter()
	r.Get("/health", httpserver.HealthCheckHandler(ctx, log, probes...))
	r.Mount("/", handler.Routes())

	srv := httpserver.NewFromConfig(srvCfg, httpserver.WithLogger(log))
	return srv.Run(ctx, r)
}

// newLimiterStore picks the rate limiter backend: Redis when configured, the
// in-process store otherwise. The Redis backend also contributes a readiness
// probe for the health endpoint.
func newLimiterStore(ctx context.Context, cfg gateway.Config) (ratelimit.Store, []func(context.Context) error, func(), error) {
	if cfg.RedisURL == "" {
		store := ratelimit.NewMemoryStore()
		return store, nil, func() { _ = store.Close() }, nil
	}

	var redisCfg redis.Config
	config.MustLoad(&redisCfg)
	redisCfg.ConnectionURL = cfg.RedisURL

	client, err := redis.Connect(ctx, redisCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	probes := []func(context.Context) error{redis.Healthcheck(client)}
	return ratelimit.NewRedisStore(client), probes, func() { _ = client.Close() }, nil
}
