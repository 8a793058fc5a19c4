package gateway

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/relaygate/relaygate/pkg/logger"
	"github.com/relaygate/relaygate/pkg/wecom"
)

// maxCallbackBody bounds the POST body read. Platform callbacks are small;
// anything bigger is not a legitimate envelope.
const maxCallbackBody = 1 << 20

// ackBody is the literal POST acknowledgment the platform expects. Anything
// else, or any non-200 status, triggers redelivery on the platform side.
const ackBody = "success"

// Handler serves the callback endpoints for all configured channels. It holds
// no per-request state; every request is verified, decrypted and dispatched
// independently.
type Handler struct {
	accounts        AccountProvider
	dispatcher      Dispatcher
	dispatchTimeout time.Duration
	log             *slog.Logger
}

// NewHandler creates the callback protocol handler.
func NewHandler(accounts AccountProvider, dispatcher Dispatcher, dispatchTimeout time.Duration, log *slog.Logger) *Handler {
	if dispatchTimeout <= 0 {
		dispatchTimeout = 30 * time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		accounts:        accounts,
		dispatcher:      dispatcher,
		dispatchTimeout: dispatchTimeout,
		log:             log,
	}
}

// Routes returns the callback routes. Unsupported methods on the webhook
// path answer 405 via chi's method router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(h.recoverPanics)
	r.Get("/webhooks/{channel}", h.handleChallenge)
	r.Post("/webhooks/{channel}", h.handleCallback)
	return r
}

// handleChallenge serves the one-time GET URL-ownership challenge. Unlike the
// POST path, failures here surface as HTTP status codes: the platform uses
// them to report misconfiguration during webhook registration.
func (h *Handler) handleChallenge(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	q := r.URL.Query()
	signature := q.Get("msg_signature")
	timestamp := q.Get("timestamp")
	nonce := q.Get("nonce")
	echostr := q.Get("echostr")

	acct, err := h.accounts.Account(channel)
	if err != nil || !acct.CallbackReady() {
		h.log.Error("callback channel not configured", logger.Channel(channel), logger.Error(err))
		http.Error(w, "callback is not configured", http.StatusInternalServerError)
		return
	}

	if !wecom.VerifySignature(acct.Token, timestamp, nonce, echostr, signature) {
		h.log.Warn("challenge signature mismatch", logger.Channel(channel))
		http.Error(w, "signature mismatch", http.StatusUnauthorized)
		return
	}

	env, err := wecom.DecryptEnvelope(acct.EncodingAESKey, echostr)
	if err != nil {
		h.log.Error("challenge decryption failed", logger.Channel(channel), logger.Error(err))
		http.Error(w, "invalid challenge", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(env.Content))
}

// handleCallback serves steady-state message delivery. Every protocol-level
// failure is absorbed with a 200 "success" acknowledgment; only the fully
// successful pipeline reaches the dispatcher, and even then the response does
// not depend on the dispatch outcome.
func (h *Handler) handleCallback(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	q := r.URL.Query()
	signature := q.Get("msg_signature")
	timestamp := q.Get("timestamp")
	nonce := q.Get("nonce")

	acct, err := h.accounts.Account(channel)
	if err != nil || !acct.CallbackReady() {
		h.log.Error("callback channel not configured", logger.Channel(channel), logger.Error(err))
		http.Error(w, "callback is not configured", http.StatusInternalServerError)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxCallbackBody))
	if err != nil {
		h.ack(w)
		return
	}

	env, err := wecom.ParseEnvelope(body)
	if err != nil {
		h.log.Warn("unparseable callback envelope", logger.Channel(channel), logger.Error(err))
		h.ack(w)
		return
	}

	if !wecom.VerifySignature(acct.Token, timestamp, nonce, env.Encrypt, signature) {
		h.log.Warn("callback signature mismatch", logger.Channel(channel))
		h.ack(w)
		return
	}

	dec, err := wecom.DecryptEnvelope(acct.EncodingAESKey, env.Encrypt)
	if err != nil {
		h.log.Error("callback decryption failed", logger.Channel(channel), logger.Error(err))
		h.ack(w)
		return
	}

	if acct.CorpID != "" && dec.ReceiverID != acct.CorpID {
		h.log.Warn("callback receiver mismatch", logger.Channel(channel))
		h.ack(w)
		return
	}

	msg, err := wecom.ParseMessage(dec.Content)
	if err != nil {
		h.log.Warn("unparseable callback message", logger.Channel(channel), logger.Error(err))
		h.ack(w)
		return
	}

	if msg.Kind() != wecom.KindText {
		h.log.Debug("ignoring unsupported message type",
			logger.Channel(channel), slog.String("msg_type", msg.MsgType))
		h.ack(w)
		return
	}

	inbound := InboundMessage{
		Channel:    channel,
		FromUserID: msg.FromUser,
		Content:    msg.Content,
		MessageID:  msg.MsgID,
		CreatedAt:  time.Unix(msg.CreateTime, 0),
	}

	// Dispatch asynchronously: the platform redelivers on slow responses, so
	// the acknowledgment must not wait for the agent.
	go h.dispatch(inbound)

	h.ack(w)
}

func (h *Handler) dispatch(msg InboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), h.dispatchTimeout)
	defer cancel()

	if err := h.dispatcher.Dispatch(ctx, msg); err != nil {
		h.log.Error("dispatch failed",
			logger.Channel(msg.Channel),
			slog.String("from", msg.FromUserID),
			slog.String("message_id", msg.MessageID),
			slog.String("content", logger.Truncate(msg.Content, 64)),
			logger.Error(err))
	}
}

func (h *Handler) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ackBody))
}

// recoverPanics turns an uncaught fault into a generic 500 so neither the
// secret nor the raw payload can leak through an error response.
func (h *Handler) recoverPanics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.log.Error("panic in callback handler", slog.Any("panic", rec))
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
