// Package platform is the transport collaborator the connector talks to: the
// wire types of the simulator session API and a Client that creates, advances
// and deletes sessions.
package platform

import "context"

// Event types the platform may return from an advance call.
const (
	EventTypeIdle          = "Idle"
	EventTypeEpisodeStart  = "EpisodeStart"
	EventTypeEpisodeStep   = "EpisodeStep"
	EventTypeEpisodeFinish = "EpisodeFinish"
	EventTypeUnregister    = "Unregister"
)

// Client is the session API. Implementations must be safe to call
// sequentially from one goroutine; no concurrency is required.
type Client interface {
	CreateSession(ctx context.Context, workspace string, iface SimulatorInterface) (*Session, error)
	AdvanceSession(ctx context.Context, workspace, sessionID string, state SimulatorState) (*Event, error)
	DeleteSession(ctx context.Context, workspace, sessionID string) error
}

// SimulatorInterface is the registration body. Extra holds descriptor keys the
// struct does not name; they are sent as top-level fields.
type SimulatorInterface struct {
	Name             string         `json:"name" mapstructure:"name"`
	Timeout          int            `json:"timeout" mapstructure:"timeout"`
	Description      map[string]any `json:"description,omitempty" mapstructure:"description"`
	Capabilities     map[string]any `json:"capabilities,omitempty" mapstructure:"capabilities"`
	SimulatorContext string         `json:"-" mapstructure:"-"` // raw JSON object, from config
	Extra            map[string]any `json:"-" mapstructure:",remain"`
}

// Session is the platform's answer to a registration.
type Session struct {
	SessionID         string `json:"sessionId"`
	Name              string `json:"name,omitempty"`
	RegistrationState string `json:"registrationState,omitempty"`
}

// SimulatorState is the body of an advance call.
type SimulatorState struct {
	SequenceID int            `json:"sequenceId"`
	State      map[string]any `json:"state"`
	Halted     bool           `json:"halted"`
}

// Event is the platform's directive. Exactly one of the kind-specific fields
// is set, matching Type.
type Event struct {
	Type          string           `json:"type"`
	SequenceID    int              `json:"sequenceId"`
	SessionID     string           `json:"sessionId,omitempty"`
	Idle          *IdleEvent       `json:"idle,omitempty"`
	EpisodeStart  *StartEvent      `json:"episodeStart,omitempty"`
	EpisodeStep   *StepEvent       `json:"episodeStep,omitempty"`
	EpisodeFinish *FinishEvent     `json:"episodeFinish,omitempty"`
	Unregister    *UnregisterEvent `json:"unregister,omitempty"`
}

type IdleEvent struct {
	CallbackTime float64 `json:"callbackTime"` // seconds
}

type StartEvent struct {
	Config map[string]any `json:"config"`
}

type StepEvent struct {
	Action map[string]any `json:"action"`
}

type FinishEvent struct {
	Reason string `json:"reason"`
}

type UnregisterEvent struct {
	Reason  string `json:"reason"`
	Details string `json:"details"`
}
