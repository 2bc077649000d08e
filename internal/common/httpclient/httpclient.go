package httpclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/simbridge/simbridge/internal/common/uuid"
	"github.com/tidwall/gjson"
)

// UserAgent is sent with every request.
var UserAgent = "simbridge"

const requestIDHeader = "X-Request-ID"

// HTTPError is a response with status code >= 400.
type HTTPError struct {
	StatusCode int    // HTTP status of the response
	Message    string // message from the error body, or the raw body
}

// Error formats the status code, its text and the message.
func (e *HTTPError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Message)
}

// Temporary reports whether the status is one a well-behaved client retries.
func (e *HTTPError) Temporary() bool {
	switch e.StatusCode {
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// RequestOptions describes one request. QueryParams and Body are optional.
type RequestOptions struct {
	Method      string            // HTTP method
	Path        string            // joined onto the server URL path
	QueryParams map[string]string // added to the query string
	Body        []byte            // sent as application/json
}

// HTTPClient sends requests over the network.
type HTTPClient struct {
	config     Configurator // server URL, access key and timeout
	httpClient *http.Client // underlying transport client
}

// NewClient creates a client for the configured server. The configured
// request timeout bounds each request end to end.
func NewClient(config Configurator) *HTTPClient {
	return &HTTPClient{
		config: config,
		httpClient: &http.Client{
			Timeout: config.GetRequestTimeout(),
		},
	}
}

// DoRequest implements HTTPClientInterface.
func (c *HTTPClient) DoRequest(ctx context.Context, opts RequestOptions) ([]byte, string, error) {
	req, err := newRequest(ctx, c.config, opts)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read response body: %w", err)
	}
	return checkResponse(req, resp.StatusCode, body, resp.Header.Get("Location"))
}

// newRequest builds the request and its headers. The access key is sent as
// the Authorization header as is; every request gets a fresh request id that
// the emulator echoes in its logs.
func newRequest(ctx context.Context, config Configurator, opts RequestOptions) (*http.Request, error) {
	u, err := url.Parse(config.GetServerURL())
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	u.Path = path.Join(u.Path, opts.Path)

	q := u.Query()
	for k, v := range opts.QueryParams {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, opts.Method, u.String(), bytes.NewReader(opts.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	if key := config.GetAccessKey(); key != "" {
		req.Header.Set("Authorization", key)
	}
	if id, err := uuid.NewRandom(); err == nil {
		req.Header.Set(requestIDHeader, id.String())
	}

	log.Ctx(ctx).Debug().
		Str("method", opts.Method).
		Str("url", u.String()).
		Str("request_id", req.Header.Get(requestIDHeader)).
		Msg("platform request")
	return req, nil
}

// checkResponse turns error statuses into *HTTPError, pulling the message out
// of the platform's error body when there is one.
func checkResponse(req *http.Request, statusCode int, body []byte, location string) ([]byte, string, error) {
	if statusCode < 400 {
		return body, location, nil
	}
	msg := errorMessage(body)
	log.Ctx(req.Context()).Debug().
		Int("status", statusCode).
		Str("request_id", req.Header.Get(requestIDHeader)).
		Str("error", msg).
		Msg("platform request failed")
	return nil, "", &HTTPError{
		StatusCode: statusCode,
		Message:    msg,
	}
}

// errorMessage picks the most specific message out of an error body, falling
// back to the trimmed body text.
func errorMessage(body []byte) string {
	if gjson.ValidBytes(body) {
		for _, p := range []string{"error.message", "message", "error"} {
			if r := gjson.GetBytes(body, p); r.Exists() && r.Type == gjson.String && r.String() != "" {
				return r.String()
			}
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "empty response"
	}
	return msg
}
