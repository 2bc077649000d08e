package httpclient

import (
	"context"
	"net/http"
	"net/http/httptest"
)

// HandlerClient dispatches requests directly into an http.Handler without a
// network round trip. Requests are built and responses decoded exactly as
// HTTPClient does, so a handler under test sees the same headers and body it
// would see over a socket. The configured request timeout does not apply; the
// handler runs on the caller's goroutine.
type HandlerClient struct {
	config  Configurator // server URL and access key for request building
	handler http.Handler // serves every request
}

// NewHandlerClient returns a client that serves every request with handler.
func NewHandlerClient(config Configurator, handler http.Handler) *HandlerClient {
	return &HandlerClient{
		config:  config,
		handler: handler,
	}
}

// DoRequest implements HTTPClientInterface. A context that is already done
// fails the request before the handler runs.
func (c *HandlerClient) DoRequest(ctx context.Context, opts RequestOptions) ([]byte, string, error) {
	req, err := newRequest(ctx, c.config, opts)
	if err != nil {
		return nil, "", err
	}
	if err := ctx.Err(); err != nil {
		return nil, "", err
	}
	rr := httptest.NewRecorder()
	c.handler.ServeHTTP(rr, req)
	return checkResponse(req, rr.Code, rr.Body.Bytes(), rr.Header().Get("Location"))
}
