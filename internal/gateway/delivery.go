package gateway

import (
	"context"
	"log/slog"

	"github.com/relaygate/relaygate/pkg/breaker"
	"github.com/relaygate/relaygate/pkg/logger"
	"github.com/relaygate/relaygate/pkg/ratelimit"
	"github.com/relaygate/relaygate/pkg/retryqueue"
	"github.com/relaygate/relaygate/pkg/wecom"
)

// OutboundMessage is one reply to deliver back through the platform API.
// It carries the account credentials so queued deliveries remain valid even
// if the live account configuration changes underneath them.
type OutboundMessage struct {
	Channel string
	Account wecom.AccountConfig
	ToUser  string
	Content string
}

// Delivery pushes replies to the platform through the full resilience
// pipeline: per-channel sliding-window rate limiting, circuit breaking
// around the API calls, and a retry queue for failed sends.
type Delivery struct {
	client  *wecom.Client
	limiter *ratelimit.SlidingWindow
	breaker *breaker.CircuitBreaker
	queue   *retryqueue.Queue[OutboundMessage]
	log     *slog.Logger
}

// NewDelivery wires the delivery service. All collaborators are required and
// injected explicitly; the service owns none of them.
func NewDelivery(
	client *wecom.Client,
	limiter *ratelimit.SlidingWindow,
	cb *breaker.CircuitBreaker,
	queue *retryqueue.Queue[OutboundMessage],
	log *slog.Logger,
) *Delivery {
	if log == nil {
		log = slog.Default()
	}
	return &Delivery{
		client:  client,
		limiter: limiter,
		breaker: cb,
		queue:   queue,
		log:     log,
	}
}

// Send delivers one text reply. The call is admitted through the rate
// limiter (waiting for a slot when the window is full), then attempted once
// through the circuit breaker. On failure the message is enqueued for
// delayed redelivery and Send returns nil: the retry queue owns the message
// from that point. Only context cancellation surfaces as an error.
func (d *Delivery) Send(ctx context.Context, msg OutboundMessage) error {
	if err := d.limiter.WaitForSlot(ctx, "send:"+msg.Channel); err != nil {
		return err
	}

	err := d.breaker.Execute(ctx, func(ctx context.Context) error {
		return d.send(ctx, msg)
	})
	if err == nil {
		return nil
	}

	if breaker.IsOpen(err) {
		d.log.Warn("send deferred, circuit open",
			logger.Channel(msg.Channel),
			slog.String("to", msg.ToUser))
	} else {
		d.log.Error("send failed, queueing for retry",
			logger.Channel(msg.Channel),
			slog.String("to", msg.ToUser),
			slog.String("content", logger.Truncate(msg.Content, 64)),
			logger.Error(err))
	}

	d.queue.Add(msg, d.deliver)
	return nil
}

// deliver is the retry queue's delivery function: the same breaker-gated
// send, so queued retries also respect the circuit state.
func (d *Delivery) deliver(ctx context.Context, msg OutboundMessage) error {
	return d.breaker.Execute(ctx, func(ctx context.Context) error {
		return d.send(ctx, msg)
	})
}

func (d *Delivery) send(ctx context.Context, msg OutboundMessage) error {
	token, err := d.client.AccessToken(ctx, msg.Account.CorpID, msg.Account.CorpSecret)
	if err != nil {
		return err
	}

	msgID, err := d.client.SendText(ctx, token, msg.Account.AgentID, msg.ToUser, msg.Content)
	if err != nil {
		return err
	}

	d.log.Info("message delivered",
		logger.Channel(msg.Channel),
		slog.String("to", msg.ToUser),
		slog.String("msg_id", msgID))
	return nil
}

// QueueStats exposes retry queue counters for diagnostics.
func (d *Delivery) QueueStats() retryqueue.Stats {
	return d.queue.Stats()
}
