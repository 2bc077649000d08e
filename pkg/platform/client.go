package platform

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/zerolog/log"
	"github.com/simbridge/simbridge/internal/common/httpclient"
	"github.com/simbridge/simbridge/pkg/config"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// HTTPClient implements Client over the platform's REST API.
type HTTPClient struct {
	client           httpclient.HTTPClientInterface
	transportRetries int
	retryDelay       time.Duration
}

var _ Client = &HTTPClient{}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTransportRetries sets how many times a transient advance or delete
// failure is retried. Zero disables retries.
func WithTransportRetries(n int) Option {
	return func(c *HTTPClient) {
		if n >= 0 {
			c.transportRetries = n
		}
	}
}

// WithRetryDelay sets the initial backoff between transport retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.retryDelay = d
	}
}

// NewHTTPClient returns a client for the server named in cfg.
func NewHTTPClient(cfg *config.ClientConfig, opts ...Option) *HTTPClient {
	return newClient(httpclient.NewClient(cfg), cfg, opts...)
}

// NewHandlerClient returns a client that serves every request with h in
// process, typically the emulator.
func NewHandlerClient(cfg *config.ClientConfig, h http.Handler, opts ...Option) *HTTPClient {
	return newClient(httpclient.NewHandlerClient(cfg, h), cfg, opts...)
}

func newClient(hc httpclient.HTTPClientInterface, cfg *config.ClientConfig, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		client:           hc,
		transportRetries: cfg.TransportRetries,
		retryDelay:       500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SessionsPath is the collection path for a workspace's simulator sessions.
func SessionsPath(workspace string) string {
	return path.Join("/v2/workspaces", url.PathEscape(workspace), "simulatorSessions")
}

func sessionPath(workspace, sessionID string) string {
	return path.Join(SessionsPath(workspace), url.PathEscape(sessionID))
}

// CreateSession registers a simulator. It is never retried here; a failed
// registration is the caller's decision.
func (c *HTTPClient) CreateSession(ctx context.Context, workspace string, iface SimulatorInterface) (*Session, error) {
	body, err := EncodeInterface(iface)
	if err != nil {
		return nil, err
	}

	rsp, location, err := c.client.DoRequest(ctx, httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   SessionsPath(workspace),
		Body:   body,
	})
	if err != nil {
		return nil, ErrRequestFailed.MsgErr("create session failed: "+err.Error(), err)
	}

	session := &Session{}
	if len(rsp) > 0 {
		if err := json.Unmarshal(rsp, session); err != nil {
			return nil, ErrInvalidResponse.MsgErr("unable to decode session", err)
		}
	}
	if session.SessionID == "" {
		session.SessionID = gjson.GetBytes(rsp, "id").String()
	}
	if session.SessionID == "" && location != "" {
		session.SessionID = path.Base(location)
	}
	if session.SessionID == "" {
		return nil, ErrInvalidResponse.Msg("platform returned no session id")
	}
	return session, nil
}

// AdvanceSession submits state and returns the next event.
func (c *HTTPClient) AdvanceSession(ctx context.Context, workspace, sessionID string, state SimulatorState) (*Event, error) {
	body, err := json.Marshal(state)
	if err != nil {
		return nil, ErrInvalidRequest.MsgErr("unable to encode state: "+err.Error(), err)
	}
	opts := httpclient.RequestOptions{
		Method: http.MethodPost,
		Path:   path.Join(sessionPath(workspace, sessionID), "advance"),
		Body:   body,
	}

	return retry.DoWithData(func() (*Event, error) {
		rsp, _, err := c.client.DoRequest(ctx, opts)
		if err != nil {
			return nil, ErrRequestFailed.MsgErr("advance session failed: "+err.Error(), err)
		}
		event := &Event{}
		if err := json.Unmarshal(rsp, event); err != nil {
			return nil, ErrInvalidResponse.MsgErr("unable to decode event", err)
		}
		if event.Type == "" {
			return nil, ErrInvalidResponse.Msg("event has no type")
		}
		return event, nil
	}, c.retryOptions(ctx, "advance")...)
}

// DeleteSession unregisters the session.
func (c *HTTPClient) DeleteSession(ctx context.Context, workspace, sessionID string) error {
	opts := httpclient.RequestOptions{
		Method: http.MethodDelete,
		Path:   sessionPath(workspace, sessionID),
	}
	return retry.Do(func() error {
		if _, _, err := c.client.DoRequest(ctx, opts); err != nil {
			return ErrRequestFailed.MsgErr("delete session failed: "+err.Error(), err)
		}
		return nil
	}, c.retryOptions(ctx, "delete")...)
}

func (c *HTTPClient) retryOptions(ctx context.Context, op string) []retry.Option {
	return []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(c.transportRetries) + 1),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsTransient),
		retry.OnRetry(func(n uint, err error) {
			log.Ctx(ctx).Warn().Err(err).Str("op", op).Uint("attempt", n+1).Msg("transient platform error, retrying")
		}),
	}
}

// IsTransient reports whether err is a network failure or a 502/503/504.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var httpErr *httpclient.HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Temporary()
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

var reservedKeys = map[string]bool{
	"name":             true,
	"timeout":          true,
	"description":      true,
	"capabilities":     true,
	"simulatorContext": true,
}

// EncodeInterface renders the registration body: the named fields, then every
// extra descriptor key, then the simulator context as a raw JSON object.
func EncodeInterface(iface SimulatorInterface) ([]byte, error) {
	body, err := json.Marshal(iface)
	if err != nil {
		return nil, ErrInvalidRequest.MsgErr("unable to encode interface: "+err.Error(), err)
	}

	keys := make([]string, 0, len(iface.Extra))
	for k := range iface.Extra {
		if !reservedKeys[k] {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		body, err = sjson.SetBytes(body, escapePathKey(k), iface.Extra[k])
		if err != nil {
			return nil, ErrInvalidRequest.MsgErr(fmt.Sprintf("unable to encode field %q", k), err)
		}
	}

	if iface.SimulatorContext != "" {
		if !gjson.Valid(iface.SimulatorContext) {
			return nil, ErrInvalidRequest.Msg("simulator context is not valid JSON")
		}
		body, err = sjson.SetRawBytes(body, "simulatorContext", []byte(iface.SimulatorContext))
		if err != nil {
			return nil, ErrInvalidRequest.MsgErr("unable to encode simulator context", err)
		}
	}
	return body, nil
}

var pathKeyEscaper = strings.NewReplacer(
	`\`, `\\`,
	`.`, `\.`,
	`*`, `\*`,
	`?`, `\?`,
	`|`, `\|`,
	`#`, `\#`,
	`@`, `\@`,
	`:`, `\:`,
)

func escapePathKey(k string) string {
	return pathKeyEscaper.Replace(k)
}
