// Package middleware provides the HTTP middleware mounted on the platform
// emulator: request logging with request ids and panic recovery.
package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/simbridge/simbridge/internal/common/httpx"
	"github.com/simbridge/simbridge/internal/common/logtrace"
	"github.com/simbridge/simbridge/internal/common/uuid"
)

// RequestIDHeader is echoed back on every response. A client supplied value
// is reused so that both sides log the same id.
const RequestIDHeader = "X-Request-ID"

// RequestLogger attaches a request id and a request-scoped logger to the
// context and logs each request with its status and duration.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = newRequestId()
		}
		ctx := logtrace.WithRequestID(r.Context(), requestID)
		ctx = log.With().Str("request_id", requestID).Logger().WithContext(ctx)
		w.Header().Set(RequestIDHeader, requestID)

		rw := httpx.NewResponseWriter(w)
		log.Ctx(ctx).Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_ip", r.RemoteAddr).
			Msg("incoming request")

		next.ServeHTTP(rw, r.WithContext(ctx))

		log.Ctx(ctx).Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rw.Status()).
			Str("duration", fmt.Sprintf("%dms", time.Since(start).Milliseconds())).
			Msg("request completed")
	})
}

// newRequestId returns a UUIDv7, or a timestamp based id if the random source
// fails.
func newRequestId() string {
	u, err := uuid.NewRandom()
	if err == nil {
		return u.String()
	}
	return fmt.Sprintf("fallback-%d", time.Now().UnixNano())
}
