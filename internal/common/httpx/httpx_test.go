package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/simbridge/simbridge/internal/common/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestSendJsonRsp(t *testing.T) {
	rr := httptest.NewRecorder()
	SendJsonRsp(context.Background(), rr, http.StatusCreated, map[string]any{"sessionId": "abc"}, "/sessions/abc")
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.Equal(t, "/sessions/abc", rr.Header().Get("Location"))
	assert.Equal(t, "abc", gjson.Get(rr.Body.String(), "sessionId").String())
}

func TestSendError(t *testing.T) {
	ErrBase := apperrors.New("emulator error")
	ErrConflict := ErrBase.New("sequence mismatch").SetStatusCode(http.StatusConflict)

	rr := httptest.NewRecorder()
	SendError(rr, ErrConflict.Err(assert.AnError))
	assert.Equal(t, http.StatusConflict, rr.Code)
	msg := gjson.Get(rr.Body.String(), "error.message").String()
	assert.True(t, strings.HasPrefix(msg, "sequence mismatch; "))
	assert.Equal(t, "Conflict", gjson.Get(rr.Body.String(), "error.code").String())

	rr = httptest.NewRecorder()
	SendError(rr, ErrBase)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
}

func TestGetRequestData(t *testing.T) {
	var data struct {
		SequenceID int `json:"sequenceId"`
	}
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sequenceId": 7}`))
	require.NoError(t, GetRequestData(req, &data))
	assert.Equal(t, 7, data.SequenceID)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`))
	assert.Error(t, GetRequestData(req, &data))

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	err := GetRequestData(req, &data)
	var httpErr *Error
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusMethodNotAllowed, httpErr.StatusCode)
}

func TestWrapHttpRsp(t *testing.T) {
	ErrNotFound := apperrors.New("session not found").SetStatusCode(http.StatusNotFound)

	tests := []struct {
		name       string
		handler    RequestHandler
		wantStatus int
		wantBody   string
	}{
		{
			name: "json",
			handler: func(*http.Request) (*Response, error) {
				return &Response{StatusCode: http.StatusCreated, Location: "/s/1", Response: map[string]string{"sessionId": "1"}}, nil
			},
			wantStatus: http.StatusCreated,
			wantBody:   `{"sessionId":"1"}`,
		},
		{
			name: "no content",
			handler: func(*http.Request) (*Response, error) {
				return &Response{StatusCode: http.StatusNoContent}, nil
			},
			wantStatus: http.StatusNoContent,
		},
		{
			name: "app error",
			handler: func(*http.Request) (*Response, error) {
				return nil, ErrNotFound.Msg("session abc not found")
			},
			wantStatus: http.StatusNotFound,
			wantBody:   `{"error":{"code":"Not Found","message":"session abc not found"}}`,
		},
		{
			name: "http error",
			handler: func(*http.Request) (*Response, error) {
				return nil, ErrUnAuthorized()
			},
			wantStatus: http.StatusUnauthorized,
			wantBody:   `{"error":{"code":"Unauthorized","message":"unable to authenticate request"}}`,
		},
		{
			name: "plain error",
			handler: func(*http.Request) (*Response, error) {
				return nil, assert.AnError
			},
			wantStatus: http.StatusInternalServerError,
		},
		{
			name: "nil response",
			handler: func(*http.Request) (*Response, error) {
				return nil, nil
			},
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			WrapHttpRsp(tt.handler)(rr, httptest.NewRequest(http.MethodPost, "/", nil))
			assert.Equal(t, tt.wantStatus, rr.Code)
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, rr.Body.String())
			}
		})
	}
}
