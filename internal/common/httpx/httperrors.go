package httpx

import (
	"net/http"

	"github.com/simbridge/simbridge/internal/common/apperrors"
)

// Error is an HTTP error response. It is sent as
// {"error": {"code": "...", "message": "..."}}, the shape the platform uses.
type Error struct {
	Code       string // machine readable code, the status text when empty
	Message    string // human readable detail
	StatusCode int    // HTTP status to answer with
}

// errorBody and errorRsp are the wire shape of Error.
type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorRsp struct {
	Error errorBody `json:"error"`
}

// Send writes the error response. A nil writer is ignored.
func (e *Error) Send(w http.ResponseWriter) {
	if w == nil {
		return
	}
	code := e.Code
	if code == "" {
		code = http.StatusText(e.StatusCode)
	}
	body, err := json.Marshal(&errorRsp{Error: errorBody{Code: code, Message: e.Message}})
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("unable to encode error"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	w.Write(body)
}

// Error returns the message so an *Error can travel as a Go error before it
// is sent.
func (e *Error) Error() string {
	return e.Message
}

// SendError sends an application error, defaulting to 500 when it carries no
// status code.
func SendError(w http.ResponseWriter, err apperrors.Error) {
	if err == nil {
		return
	}
	statusCode := err.StatusCode()
	if statusCode == 0 {
		statusCode = http.StatusInternalServerError
	}
	(&Error{StatusCode: statusCode, Message: err.ErrorAll()}).Send(w)
}

// ErrUnableToParseReqData returns an error when request data cannot be parsed.
func ErrUnableToParseReqData() *Error {
	return &Error{
		Message:    "unable to parse request data",
		StatusCode: http.StatusBadRequest,
	}
}

// ErrApplicationError returns an error for application-level failures.
// If no message is provided, a default message is used.
func ErrApplicationError(msg ...string) *Error {
	s := "unable to process request"
	if len(msg) > 0 {
		s = msg[0]
	}
	return &Error{
		Message:    s,
		StatusCode: http.StatusInternalServerError,
	}
}

// ErrUnAuthorized returns an error for unauthorized requests.
func ErrUnAuthorized(msg ...string) *Error {
	s := "unable to authenticate request"
	if len(msg) > 0 {
		s = msg[0]
	}
	return &Error{
		Code:       "Unauthorized",
		Message:    s,
		StatusCode: http.StatusUnauthorized,
	}
}
