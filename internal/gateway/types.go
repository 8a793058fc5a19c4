package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/relaygate/relaygate/pkg/wecom"
)

// InboundMessage is the decrypted, validated message handed to the dispatch
// collaborator. It is owned by the request flow and discarded after dispatch.
type InboundMessage struct {
	Channel    string
	FromUserID string
	Content    string
	MessageID  string
	CreatedAt  time.Time
}

// Dispatcher is the external agent-dispatch collaborator. Dispatch is called
// once per relayed message; replies come back asynchronously through the
// Delivery service.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg InboundMessage) error
}

// DispatcherFunc adapts a function to the Dispatcher interface.
type DispatcherFunc func(ctx context.Context, msg InboundMessage) error

func (f DispatcherFunc) Dispatch(ctx context.Context, msg InboundMessage) error {
	return f(ctx, msg)
}

// AccountProvider resolves the credentials for a callback channel.
type AccountProvider interface {
	Account(channel string) (wecom.AccountConfig, error)
}

// ErrUnknownChannel is returned by account providers for channels they do
// not serve.
var ErrUnknownChannel = errors.New("unknown callback channel")

// StaticAccounts is an AccountProvider over a fixed channel-to-account map.
type StaticAccounts map[string]wecom.AccountConfig

func (s StaticAccounts) Account(channel string) (wecom.AccountConfig, error) {
	acct, ok := s[channel]
	if !ok {
		return wecom.AccountConfig{}, ErrUnknownChannel
	}
	return acct, nil
}
