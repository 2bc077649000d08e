package httpclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testConfig struct {
	url string
	key string
}

func (c testConfig) GetServerURL() string             { return c.url }
func (c testConfig) GetAccessKey() string             { return c.key }
func (c testConfig) GetRequestTimeout() time.Duration { return 5 * time.Second }

func echoHandler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v2/workspaces/ws/simulatorSessions":
			assert.Equal(t, "secret", r.Header.Get("Authorization"))
			assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
			assert.NotEmpty(t, r.Header.Get(requestIDHeader))
			body, _ := io.ReadAll(r.Body)
			w.Header().Set("Location", "/v2/workspaces/ws/simulatorSessions/abc")
			w.WriteHeader(http.StatusCreated)
			w.Write(body)
		case "/busy":
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error": {"code": "Busy", "message": "try later"}}`))
		case "/plain":
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte("bad things"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func runClientTests(t *testing.T, c HTTPClientInterface) {
	ctx := context.Background()

	t.Run("success returns body and location", func(t *testing.T) {
		body, location, err := c.DoRequest(ctx, RequestOptions{
			Method: http.MethodPost,
			Path:   "/v2/workspaces/ws/simulatorSessions",
			Body:   []byte(`{"name":"sim"}`),
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"sim"}`, string(body))
		assert.Equal(t, "/v2/workspaces/ws/simulatorSessions/abc", location)
	})

	t.Run("platform error body", func(t *testing.T) {
		_, _, err := c.DoRequest(ctx, RequestOptions{Method: http.MethodGet, Path: "/busy"})
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
		assert.Equal(t, "try later", httpErr.Message)
		assert.True(t, httpErr.Temporary())
	})

	t.Run("plain error body", func(t *testing.T) {
		_, _, err := c.DoRequest(ctx, RequestOptions{Method: http.MethodGet, Path: "/plain"})
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, "bad things", httpErr.Message)
		assert.False(t, httpErr.Temporary())
		assert.Contains(t, err.Error(), "400 Bad Request")
	})

	t.Run("empty error body", func(t *testing.T) {
		_, _, err := c.DoRequest(ctx, RequestOptions{Method: http.MethodGet, Path: "/missing"})
		var httpErr *HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusNotFound, httpErr.StatusCode)
		assert.Equal(t, "empty response", httpErr.Message)
	})
}

func TestHTTPClient(t *testing.T) {
	srv := httptest.NewServer(echoHandler(t))
	defer srv.Close()
	runClientTests(t, NewClient(testConfig{url: srv.URL, key: "secret"}))
}

func TestHandlerClient(t *testing.T) {
	runClientTests(t, NewHandlerClient(testConfig{url: "http://emulator", key: "secret"}, echoHandler(t)))

	t.Run("cancelled context", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		c := NewHandlerClient(testConfig{url: "http://emulator"}, echoHandler(t))
		_, _, err := c.DoRequest(ctx, RequestOptions{Method: http.MethodGet, Path: "/busy"})
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("invalid server url", func(t *testing.T) {
		c := NewHandlerClient(testConfig{url: "://bad"}, echoHandler(t))
		_, _, err := c.DoRequest(context.Background(), RequestOptions{Method: http.MethodGet, Path: "/"})
		assert.Error(t, err)
	})
}
