// Package connector registers a simulator with the training platform and
// drives its session: every Advance sends the simulator state with the
// sequence number the platform handed out last and returns the next event.
//
// A Connector is not safe for concurrent use. The protocol allows exactly one
// in-flight advance per session.
package connector

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/simbridge/simbridge/pkg/config"
	"github.com/simbridge/simbridge/pkg/platform"
	"github.com/simbridge/simbridge/pkg/siminterface"
)

// SessionState is the lifecycle state of a Connector.
type SessionState int

const (
	StateUnregistered SessionState = iota
	StateRegistered
	StateRevoked // unregistered by the platform, Register to resume
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateUnregistered:
		return "unregistered"
	case StateRegistered:
		return "registered"
	case StateRevoked:
		return "revoked"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// Connector owns one simulator session.
type Connector struct {
	client     platform.Client
	workspace  string
	iface      platform.SimulatorInterface
	retry      bool
	retryLimit int
	retryDelay time.Duration
	verbose    bool

	state      SessionState
	sessionID  string
	sequenceID int
	logger     zerolog.Logger
}

// New validates cfg, checks the descriptor against the interface schema,
// and registers the simulator. Schema violations are logged as warnings and
// never fail construction. A failed registration is returned as is; it is not
// retried.
func New(ctx context.Context, cfg *config.ClientConfig, descriptor map[string]any, opts ...Option) (*Connector, error) {
	if cfg == nil {
		return nil, ErrConnector.Msg("client configuration is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, ErrConnector.MsgErr("invalid client configuration: "+err.Error(), err)
	}

	c := &Connector{
		workspace:  cfg.Workspace,
		retry:      cfg.Retry.Enabled,
		retryLimit: cfg.Retry.Limit,
		retryDelay: cfg.GetRetryDelay(),
		verbose:    cfg.EnableLogging,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.client == nil {
		c.client = platform.NewHTTPClient(cfg)
	}
	if c.retryLimit < 1 {
		c.retryLimit = config.DefaultRetryLimit
	}
	c.logger = log.With().Str("workspace", c.workspace).Logger()

	c.checkInterface(descriptor)

	iface, err := DecodeInterface(descriptor)
	if err != nil {
		return nil, err
	}
	iface.SimulatorContext = cfg.SimulatorContext
	c.iface = iface

	if err := c.Register(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Connector) checkInterface(descriptor map[string]any) {
	report := siminterface.Check(descriptor)
	if report.Valid() {
		c.logger.Info().Msg("simulator interface validated against schema")
		return
	}
	c.logger.Warn().Msg("errors validating simulator interface schema")
	for _, w := range report.Warnings {
		c.logger.Warn().Str("warning", w).Msg("simulator interface")
	}
}

// DecodeInterface maps a descriptor onto the registration body. Keys the body
// does not name are kept in Extra and sent unchanged.
func DecodeInterface(descriptor map[string]any) (platform.SimulatorInterface, error) {
	var iface platform.SimulatorInterface
	if descriptor == nil {
		return iface, ErrInvalidDescriptor.Msg("descriptor is required")
	}
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:  &iface,
		TagName: "mapstructure",
	})
	if err != nil {
		return iface, ErrInvalidDescriptor.MsgErr("unable to create decoder", err)
	}
	if err := decoder.Decode(descriptor); err != nil {
		return iface, ErrInvalidDescriptor.MsgErr("unable to decode descriptor: "+err.Error(), err)
	}
	return iface, nil
}

// Register creates a new platform session for the simulator and resets the
// sequence number to 1. It is called by New and may be called again after the
// session was revoked. Registering a live session is a no-op.
func (c *Connector) Register(ctx context.Context) error {
	switch c.state {
	case StateClosed:
		return ErrSessionClosed
	case StateRegistered:
		return nil
	}

	session, err := c.client.CreateSession(ctx, c.workspace, c.iface)
	if err != nil {
		return ErrRegistrationFailed.MsgErr("simulator registration failed: "+err.Error(), err)
	}
	c.sessionID = session.SessionID
	c.sequenceID = 1
	c.state = StateRegistered
	c.logger = log.With().Str("workspace", c.workspace).Str("session_id", c.sessionID).Logger()
	c.logger.Info().Str("name", c.iface.Name).Msg("created session")
	return nil
}

// Advance sends state to the platform and returns the next event.
//
// state must pass ValidateState; it is rejected before any platform call
// otherwise. A boolean "halted" entry is forwarded as the halted flag.
//
// If the platform unregisters the session and retry is enabled, the simulator
// is registered again and the same state is sent on the new session, at most
// the retry limit times. Otherwise a *SessionRevokedError is returned and the
// connector stays revoked until Register succeeds.
//
// On error the sequence number is left as it was.
func (c *Connector) Advance(ctx context.Context, state map[string]any) (Event, error) {
	switch c.state {
	case StateClosed:
		return Event{}, ErrSessionClosed
	case StateUnregistered, StateRevoked:
		return Event{}, ErrSessionNotRegistered
	}
	if err := ValidateState(state); err != nil {
		return Event{}, err
	}

	halted, _ := state["halted"].(bool)

	attempts := uint(1)
	if c.retry {
		attempts += uint(c.retryLimit)
	}

	var revoked error
	event, err := retry.DoWithData(func() (Event, error) {
		if c.state == StateRevoked {
			c.logger.Info().Msg("re-registering simulator")
			if err := c.Register(ctx); err != nil {
				return Event{}, retry.Unrecoverable(err)
			}
		}
		return c.advance(ctx, state, halted)
	},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return c.retry && errors.Is(err, ErrSessionRevoked)
		}),
		retry.OnRetry(func(_ uint, err error) {
			revoked = err
		}),
	)
	// A bounded retry loop reports only the context error when ctx ends
	// during the wait, so keep the revocation that started the wait.
	if err != nil && revoked != nil && ctx.Err() != nil && errors.Is(err, ctx.Err()) && !errors.Is(err, ErrSessionRevoked) {
		err = fmt.Errorf("%w: %w", err, revoked)
	}
	return event, err
}

func (c *Connector) advance(ctx context.Context, state map[string]any, halted bool) (Event, error) {
	req := platform.SimulatorState{
		SequenceID: c.sequenceID,
		State:      state,
		Halted:     halted,
	}
	if c.verbose {
		c.logger.Debug().Int("sequence_id", req.SequenceID).Interface("state", state).Bool("halted", halted).Msg("advance")
	}

	rsp, err := c.client.AdvanceSession(ctx, c.workspace, c.sessionID, req)
	if err != nil {
		return Event{}, err
	}

	event, err := c.decode(rsp)
	if err != nil {
		return Event{}, err
	}
	c.sequenceID = rsp.SequenceID
	if c.verbose {
		c.logger.Debug().Int("sequence_id", c.sequenceID).Stringer("event", event).Msg("received event")
	}
	return event, nil
}

// decode maps a platform event onto an Event. An Unregister moves the
// connector to the revoked state and is returned as a *SessionRevokedError.
func (c *Connector) decode(rsp *platform.Event) (Event, error) {
	event := Event{SequenceID: rsp.SequenceID}

	switch rsp.Type {
	case platform.EventTypeIdle:
		c.logger.Info().Msg("idling")
		event.Kind = EventIdle
		event.Content = map[string]any{}
		if rsp.Idle != nil {
			event.CallbackTime = time.Duration(rsp.Idle.CallbackTime * float64(time.Second))
		}
	case platform.EventTypeEpisodeStart:
		c.logger.Info().Msg("episode start")
		event.Kind = EventEpisodeStart
		event.Content = map[string]any{}
		if rsp.EpisodeStart != nil && rsp.EpisodeStart.Config != nil {
			event.Content = rsp.EpisodeStart.Config
		}
	case platform.EventTypeEpisodeStep:
		c.logger.Debug().Msg("episode step")
		event.Kind = EventEpisodeStep
		event.Content = map[string]any{}
		if rsp.EpisodeStep != nil && rsp.EpisodeStep.Action != nil {
			event.Content = rsp.EpisodeStep.Action
		}
	case platform.EventTypeEpisodeFinish:
		c.logger.Info().Msg("episode finish")
		event.Kind = EventEpisodeFinish
		event.Content = ""
		if rsp.EpisodeFinish != nil {
			event.Content = rsp.EpisodeFinish.Reason
		}
	case platform.EventTypeUnregister:
		revoked := &SessionRevokedError{SessionID: c.sessionID}
		if rsp.Unregister != nil {
			revoked.Reason = rsp.Unregister.Reason
			revoked.Details = rsp.Unregister.Details
		}
		c.state = StateRevoked
		c.logger.Warn().Str("reason", revoked.Reason).Str("details", revoked.Details).Msg("simulator session unregistered by the platform")
		return Event{}, revoked
	default:
		return Event{}, ErrUnknownEvent.Msg(fmt.Sprintf("unknown event type: received %q", rsp.Type))
	}
	return event, nil
}

// Close deletes the session on the platform and marks the connector closed.
// A revoked session is already gone and is not deleted again. Calling Close
// on a closed connector returns ErrSessionClosed.
func (c *Connector) Close(ctx context.Context) error {
	prev := c.state
	if prev == StateClosed {
		return ErrSessionClosed
	}
	c.state = StateClosed
	if prev != StateRegistered {
		return nil
	}

	c.logger.Info().Msg("closing session")
	if err := c.client.DeleteSession(ctx, c.workspace, c.sessionID); err != nil {
		return err
	}
	return nil
}

// SessionID returns the id of the current or last platform session.
func (c *Connector) SessionID() string {
	return c.sessionID
}

// SequenceID returns the sequence number the next Advance will send.
func (c *Connector) SequenceID() int {
	return c.sequenceID
}

// State returns the lifecycle state.
func (c *Connector) State() SessionState {
	return c.state
}
