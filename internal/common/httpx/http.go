// Package httpx holds the small set of HTTP response helpers used by the
// platform emulator: JSON responses, platform-shaped error bodies and request
// decoding.
package httpx

import (
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/simbridge/simbridge/internal/common/apperrors"
)

// GetRequestData decodes a JSON request body into data. Only POST and PUT
// carry bodies.
func GetRequestData(r *http.Request, data any) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return &Error{Message: "request method not supported", StatusCode: http.StatusMethodNotAllowed}
	}
	if r.Body == nil {
		log.Ctx(r.Context()).Error().Msg("empty request body")
		return ErrUnableToParseReqData()
	}
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		return ErrUnableToParseReqData()
	}
	return nil
}

// Response is what a RequestHandler returns on success. A nil Response body
// with StatusNoContent sends an empty 204.
type Response struct {
	StatusCode int    // status to send
	Location   string // Location header, used on 201 only
	Response   any    // body, encoded as JSON
}

// RequestHandler handles a request and returns either a response or an error.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp adapts a RequestHandler to http.HandlerFunc. Errors are sent in
// the platform error shape: *Error as is, apperrors.Error with its status code
// and anything else as a 500.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			var httpErr *Error
			var appErr apperrors.Error
			switch {
			case errors.As(err, &httpErr):
				httpErr.Send(w)
			case errors.As(err, &appErr):
				SendError(w, appErr)
			default:
				ErrApplicationError(err.Error()).Send(w)
			}
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}
		if rsp.StatusCode == http.StatusNoContent {
			SendNoContent(w)
			return
		}
		var location []string
		if rsp.Location != "" {
			location = append(location, rsp.Location)
		}
		SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response, location...)
	})
}
