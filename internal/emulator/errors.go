package emulator

import (
	"net/http"

	"github.com/simbridge/simbridge/internal/common/apperrors"
)

var (
	ErrEmulator         apperrors.Error = apperrors.New("emulator error").SetStatusCode(http.StatusInternalServerError)
	ErrInvalidRequest   apperrors.Error = ErrEmulator.New("invalid request").SetStatusCode(http.StatusBadRequest)
	ErrSessionNotFound  apperrors.Error = ErrEmulator.New("simulator session not found").SetStatusCode(http.StatusNotFound)
	ErrSequenceMismatch apperrors.Error = ErrEmulator.New("sequence id mismatch").SetStatusCode(http.StatusConflict)
)
