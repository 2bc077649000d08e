package platform

import (
	"github.com/simbridge/simbridge/internal/common/apperrors"
)

var (
	// ErrPlatform is the base error for transport failures.
	ErrPlatform apperrors.Error = apperrors.New("platform error")

	// ErrRequestFailed wraps a failed create, advance or delete call.
	ErrRequestFailed apperrors.Error = ErrPlatform.New("platform request failed")

	// ErrInvalidResponse is returned when a response body cannot be decoded.
	ErrInvalidResponse apperrors.Error = ErrPlatform.New("invalid platform response")

	// ErrInvalidRequest is returned when a request body cannot be encoded.
	ErrInvalidRequest apperrors.Error = ErrPlatform.New("invalid platform request")
)
