package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/simbridge/simbridge/internal/common/httpclient"
	"github.com/simbridge/simbridge/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func testConfig() *config.ClientConfig {
	cfg := config.Default()
	cfg.Workspace = "ws"
	cfg.AccessKey = "secret"
	return cfg
}

type recordedRequest struct {
	method string
	path   string
	auth   string
	body   []byte
}

// stubServer answers requests with the queued status/body pairs in order.
type stubServer struct {
	requests  []recordedRequest
	responses []stubResponse
}

type stubResponse struct {
	status   int
	body     string
	location string
}

func (s *stubServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	s.requests = append(s.requests, recordedRequest{
		method: r.Method,
		path:   r.URL.Path,
		auth:   r.Header.Get("Authorization"),
		body:   body,
	})
	rsp := stubResponse{status: http.StatusInternalServerError, body: `{"error":{"code":"stub","message":"no response queued"}}`}
	if len(s.responses) > 0 {
		rsp = s.responses[0]
		s.responses = s.responses[1:]
	}
	if rsp.location != "" {
		w.Header().Set("Location", rsp.location)
	}
	w.WriteHeader(rsp.status)
	_, _ = w.Write([]byte(rsp.body))
}

func (s *stubServer) respond(status int, body string) {
	s.responses = append(s.responses, stubResponse{status: status, body: body})
}

func newStubClient(stub *stubServer, opts ...Option) *HTTPClient {
	opts = append([]Option{WithRetryDelay(time.Millisecond)}, opts...)
	return NewHandlerClient(testConfig(), stub, opts...)
}

func TestCreateSession(t *testing.T) {
	t.Run("session id from body", func(t *testing.T) {
		stub := &stubServer{}
		stub.respond(http.StatusCreated, `{"sessionId":"abc","registrationState":"Registered"}`)
		c := newStubClient(stub)

		session, err := c.CreateSession(context.Background(), "ws", SimulatorInterface{Name: "sim", Timeout: 60})
		require.NoError(t, err)
		assert.Equal(t, "abc", session.SessionID)
		assert.Equal(t, "Registered", session.RegistrationState)

		require.Len(t, stub.requests, 1)
		req := stub.requests[0]
		assert.Equal(t, http.MethodPost, req.method)
		assert.Equal(t, "/v2/workspaces/ws/simulatorSessions", req.path)
		assert.Equal(t, "secret", req.auth)
		assert.Equal(t, "sim", gjson.GetBytes(req.body, "name").String())
		assert.Equal(t, int64(60), gjson.GetBytes(req.body, "timeout").Int())
	})

	t.Run("session id fallbacks", func(t *testing.T) {
		stub := &stubServer{}
		stub.respond(http.StatusCreated, `{"id":"from-id"}`)
		stub.responses = append(stub.responses, stubResponse{status: http.StatusCreated, location: "/v2/workspaces/ws/simulatorSessions/from-location"})
		stub.respond(http.StatusCreated, `{}`)
		c := newStubClient(stub)

		session, err := c.CreateSession(context.Background(), "ws", SimulatorInterface{Name: "sim"})
		require.NoError(t, err)
		assert.Equal(t, "from-id", session.SessionID)

		session, err = c.CreateSession(context.Background(), "ws", SimulatorInterface{Name: "sim"})
		require.NoError(t, err)
		assert.Equal(t, "from-location", session.SessionID)

		_, err = c.CreateSession(context.Background(), "ws", SimulatorInterface{Name: "sim"})
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("never retried", func(t *testing.T) {
		stub := &stubServer{}
		stub.respond(http.StatusServiceUnavailable, `{"error":{"code":"busy","message":"try later"}}`)
		c := newStubClient(stub, WithTransportRetries(3))

		_, err := c.CreateSession(context.Background(), "ws", SimulatorInterface{Name: "sim"})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrRequestFailed)
		assert.Contains(t, err.Error(), "try later")
		assert.Len(t, stub.requests, 1)

		var httpErr *httpclient.HTTPError
		require.True(t, errors.As(err, &httpErr))
		assert.Equal(t, http.StatusServiceUnavailable, httpErr.StatusCode)
	})
}

func TestAdvanceSession(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		stub := &stubServer{}
		stub.respond(http.StatusOK, `{"type":"EpisodeStart","sequenceId":2,"sessionId":"abc","episodeStart":{"config":{"a":1}}}`)
		c := newStubClient(stub)

		event, err := c.AdvanceSession(context.Background(), "ws", "abc", SimulatorState{
			SequenceID: 1,
			State:      map[string]any{"t": 20.5},
			Halted:     true,
		})
		require.NoError(t, err)
		assert.Equal(t, EventTypeEpisodeStart, event.Type)
		assert.Equal(t, 2, event.SequenceID)
		require.NotNil(t, event.EpisodeStart)
		assert.Equal(t, map[string]any{"a": float64(1)}, event.EpisodeStart.Config)

		req := stub.requests[0]
		assert.Equal(t, "/v2/workspaces/ws/simulatorSessions/abc/advance", req.path)
		assert.JSONEq(t, `{"sequenceId":1,"state":{"t":20.5},"halted":true}`, string(req.body))
	})

	t.Run("retries transient failures", func(t *testing.T) {
		stub := &stubServer{}
		stub.respond(http.StatusServiceUnavailable, `{"error":{"code":"busy","message":"try later"}}`)
		stub.respond(http.StatusBadGateway, `bad gateway`)
		stub.respond(http.StatusOK, `{"type":"Idle","sequenceId":3,"idle":{"callbackTime":1.5}}`)
		c := newStubClient(stub, WithTransportRetries(3))

		event, err := c.AdvanceSession(context.Background(), "ws", "abc", SimulatorState{SequenceID: 2, State: map[string]any{}})
		require.NoError(t, err)
		assert.Equal(t, EventTypeIdle, event.Type)
		assert.Equal(t, 1.5, event.Idle.CallbackTime)
		assert.Len(t, stub.requests, 3)
	})

	t.Run("gives up after the retry budget", func(t *testing.T) {
		stub := &stubServer{}
		for i := 0; i < 3; i++ {
			stub.respond(http.StatusServiceUnavailable, `{"error":{"code":"busy","message":"try later"}}`)
		}
		c := newStubClient(stub, WithTransportRetries(1))

		_, err := c.AdvanceSession(context.Background(), "ws", "abc", SimulatorState{SequenceID: 1})
		assert.ErrorIs(t, err, ErrRequestFailed)
		assert.Len(t, stub.requests, 2)
	})

	t.Run("client errors are not retried", func(t *testing.T) {
		stub := &stubServer{}
		stub.respond(http.StatusConflict, `{"error":{"code":"sequence","message":"expected sequenceId 4"}}`)
		c := newStubClient(stub, WithTransportRetries(3))

		_, err := c.AdvanceSession(context.Background(), "ws", "abc", SimulatorState{SequenceID: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "expected sequenceId 4")
		assert.Len(t, stub.requests, 1)
	})

	t.Run("event without type", func(t *testing.T) {
		stub := &stubServer{}
		stub.respond(http.StatusOK, `{"sequenceId":3}`)
		c := newStubClient(stub)

		_, err := c.AdvanceSession(context.Background(), "ws", "abc", SimulatorState{SequenceID: 1})
		assert.ErrorIs(t, err, ErrInvalidResponse)
	})

	t.Run("unencodable state", func(t *testing.T) {
		stub := &stubServer{}
		c := newStubClient(stub)

		_, err := c.AdvanceSession(context.Background(), "ws", "abc", SimulatorState{State: map[string]any{"c": complex(1, 1)}})
		assert.ErrorIs(t, err, ErrInvalidRequest)
		assert.Empty(t, stub.requests)
	})
}

func TestDeleteSession(t *testing.T) {
	stub := &stubServer{}
	stub.respond(http.StatusServiceUnavailable, `unavailable`)
	stub.respond(http.StatusNoContent, ``)
	c := newStubClient(stub, WithTransportRetries(2))

	require.NoError(t, c.DeleteSession(context.Background(), "ws", "abc"))
	require.Len(t, stub.requests, 2)
	assert.Equal(t, http.MethodDelete, stub.requests[1].method)
	assert.Equal(t, "/v2/workspaces/ws/simulatorSessions/abc", stub.requests[1].path)
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

func TestIsTransient(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"503", &httpclient.HTTPError{StatusCode: http.StatusServiceUnavailable}, true},
		{"504 wrapped", ErrRequestFailed.MsgErr("advance failed", &httpclient.HTTPError{StatusCode: http.StatusGatewayTimeout}), true},
		{"404", &httpclient.HTTPError{StatusCode: http.StatusNotFound}, false},
		{"network", fmt.Errorf("request failed: %w", timeoutError{}), true},
		{"canceled", fmt.Errorf("request failed: %w", context.Canceled), false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

func TestEncodeInterface(t *testing.T) {
	t.Run("extra keys and context", func(t *testing.T) {
		body, err := EncodeInterface(SimulatorInterface{
			Name:             "thermostat",
			Timeout:          60,
			Description:      map[string]any{"state": map[string]any{"category": "Struct"}},
			SimulatorContext: `{"deploymentMode":"Testing","simulatorClientId":"c1"}`,
			Extra: map[string]any{
				"template": "v1",
				"a.b":      true,
				"name":     "ignored",
			},
		})
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"name": "thermostat",
			"timeout": 60,
			"description": {"state": {"category": "Struct"}},
			"template": "v1",
			"a.b": true,
			"simulatorContext": {"deploymentMode": "Testing", "simulatorClientId": "c1"}
		}`, string(body))
	})

	t.Run("minimal", func(t *testing.T) {
		body, err := EncodeInterface(SimulatorInterface{Name: "sim", Timeout: 1})
		require.NoError(t, err)
		assert.JSONEq(t, `{"name":"sim","timeout":1}`, string(body))
	})

	t.Run("invalid context", func(t *testing.T) {
		_, err := EncodeInterface(SimulatorInterface{Name: "sim", SimulatorContext: `{not json`})
		assert.ErrorIs(t, err, ErrInvalidRequest)
	})
}
