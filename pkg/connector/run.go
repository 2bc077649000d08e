package connector

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/simbridge/simbridge/pkg/config"
)

// CloseTimeout bounds the session delete issued when Run returns.
var CloseTimeout = 10 * time.Second

// Run registers a simulator, calls fn with the connector and closes the
// session when fn returns, panics or is interrupted. Close is called exactly
// once per successful registration.
//
// SIGINT and SIGTERM cancel the context passed to fn. The resulting
// context.Canceled is a normal shutdown and Run returns nil for it; the same
// holds when ctx itself is cancelled. If fn
// succeeds, the error from Close is returned; otherwise fn's error wins.
func Run(ctx context.Context, cfg *config.ClientConfig, descriptor map[string]any, fn func(context.Context, *Connector) error, opts ...Option) (err error) {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := New(ctx, cfg, descriptor, opts...)
	if err != nil {
		return err
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CloseTimeout)
		defer cancel()
		closeErr := conn.Close(closeCtx)
		if closeErr != nil {
			log.Error().Err(closeErr).Str("session_id", conn.SessionID()).Msg("failed to close session")
		}
		if err == nil {
			err = closeErr
		}
	}()

	err = fn(ctx, conn)
	if err != nil && errors.Is(err, context.Canceled) && ctx.Err() != nil {
		log.Info().Str("session_id", conn.SessionID()).Msg("interrupted, closing session")
		return nil
	}
	return err
}
