package wecom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/relaygate/relaygate/pkg/connpool"
	"github.com/relaygate/relaygate/pkg/requestcache"
)

// DefaultBaseURL is the production endpoint of the platform HTTP API.
const DefaultBaseURL = "https://qyapi.weixin.qq.com/cgi-bin"

// tokenTTLMargin is subtracted from the platform-reported token lifetime so a
// cached token is refreshed well before the platform rejects it.
const tokenTTLMargin = 120 * time.Second

// Client talks to the platform HTTP API: access token acquisition and text
// message delivery. All requests go through a connection pool; token
// responses are cached per corp ID.
type Client struct {
	baseURL string
	pool    *connpool.Pool
	tokens  *requestcache.Cache[string]
	log     *slog.Logger
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the API endpoint, mainly for tests.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *slog.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a platform API client. The pool and token cache are
// required; they are shared process-wide and injected explicitly.
func NewClient(pool *connpool.Pool, tokens *requestcache.Cache[string], opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		pool:    pool,
		tokens:  tokens,
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type tokenResponse struct {
	ErrCode     int    `json:"errcode"`
	ErrMsg      string `json:"errmsg"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

// AccessToken returns a valid access token for the corp, consulting the token
// cache first. A fresh token is cached for the platform-reported lifetime
// minus a safety margin. Non-zero platform errcode surfaces as ErrAccessToken.
func (c *Client) AccessToken(ctx context.Context, corpID, corpSecret string) (string, error) {
	key := requestcache.Key(http.MethodGet, c.baseURL+"/gettoken", map[string]string{"corpid": corpID})
	if token, ok := c.tokens.Get(key); ok {
		return token, nil
	}

	u := fmt.Sprintf("%s/gettoken?corpid=%s&corpsecret=%s",
		c.baseURL, url.QueryEscape(corpID), url.QueryEscape(corpSecret))

	var tr tokenResponse
	if err := c.getJSON(ctx, u, &tr); err != nil {
		return "", fmt.Errorf("%w: %w", ErrAccessToken, err)
	}
	if tr.ErrCode != 0 {
		return "", fmt.Errorf("%w: errcode %d: %s", ErrAccessToken, tr.ErrCode, tr.ErrMsg)
	}

	if ttl := time.Duration(tr.ExpiresIn)*time.Second - tokenTTLMargin; ttl > 0 {
		c.tokens.Set(key, tr.AccessToken, ttl)
	}
	return tr.AccessToken, nil
}

// InvalidateToken drops the cached token for the corp, forcing the next
// AccessToken call to hit the API. Used after the platform reports an
// expired-token errcode.
func (c *Client) InvalidateToken(corpID string) {
	key := requestcache.Key(http.MethodGet, c.baseURL+"/gettoken", map[string]string{"corpid": corpID})
	c.tokens.Delete(key)
}

type sendTextRequest struct {
	ToUser  string `json:"touser"`
	MsgType string `json:"msgtype"`
	AgentID int64  `json:"agentid"`
	Text    struct {
		Content string `json:"content"`
	} `json:"text"`
}

type sendResponse struct {
	ErrCode int    `json:"errcode"`
	ErrMsg  string `json:"errmsg"`
	MsgID   string `json:"msgid"`
}

// SendText delivers a single text message to a user via the agent. Returns
// the platform message ID. Non-zero platform errcode surfaces as ErrSendFailed.
func (c *Client) SendText(ctx context.Context, token string, agentID int64, toUser, content string) (string, error) {
	body := sendTextRequest{
		ToUser:  toUser,
		MsgType: MsgTypeText,
		AgentID: agentID,
	}
	body.Text.Content = content

	payload, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSendFailed, err)
	}

	u := c.baseURL + "/message/send?access_token=" + url.QueryEscape(token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	req.Header.Set("Content-Type", "application/json")

	var sr sendResponse
	if err := c.do(req, &sr); err != nil {
		return "", fmt.Errorf("%w: %w", ErrSendFailed, err)
	}
	if sr.ErrCode != 0 {
		return "", fmt.Errorf("%w: errcode %d: %s", ErrSendFailed, sr.ErrCode, sr.ErrMsg)
	}
	return sr.MsgID, nil
}

func (c *Client) getJSON(ctx context.Context, u string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.pool.Do(req, 0)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
