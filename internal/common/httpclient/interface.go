// Package httpclient is the authenticated JSON-over-HTTP client used to talk to
// the training platform. The same request building and error decoding backs a
// real network client and a client that dispatches straight into an
// http.Handler, which the tests use with the in-process emulator.
package httpclient

import (
	"context"
	"time"
)

// Configurator supplies server location and credentials. pkg/config's
// ClientConfig implements it.
type Configurator interface {
	GetServerURL() string             // base URL, without a trailing slash
	GetAccessKey() string             // sent as the Authorization header
	GetRequestTimeout() time.Duration // end-to-end bound for one request
}

// HTTPClientInterface is implemented by HTTPClient and HandlerClient. Callers
// depend on this interface so tests can swap the network for a handler.
type HTTPClientInterface interface {
	// DoRequest sends the request and returns the response body and the
	// Location header. Responses with status >= 400 yield an *HTTPError.
	DoRequest(ctx context.Context, opts RequestOptions) ([]byte, string, error)
}

var _ HTTPClientInterface = &HTTPClient{}
var _ HTTPClientInterface = &HandlerClient{}
