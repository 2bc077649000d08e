package simulator

import "github.com/simbridge/simbridge/internal/common/apperrors"

var (
	ErrSimulator     apperrors.Error = apperrors.New("simulator error")
	ErrInvalidConfig apperrors.Error = ErrSimulator.New("invalid episode config")
	ErrInvalidAction apperrors.Error = ErrSimulator.New("invalid action")
)
