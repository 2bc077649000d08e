package connector

import (
	"fmt"
	"time"
)

// EventKind is the platform's directive for the next simulation step.
type EventKind int

const (
	EventIdle EventKind = iota + 1
	EventEpisodeStart
	EventEpisodeStep
	EventEpisodeFinish
)

func (k EventKind) String() string {
	switch k {
	case EventIdle:
		return "Idle"
	case EventEpisodeStart:
		return "EpisodeStart"
	case EventEpisodeStep:
		return "EpisodeStep"
	case EventEpisodeFinish:
		return "EpisodeFinish"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// MarshalText renders the kind by name.
func (k EventKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Event is what Advance returns. Content depends on Kind: an empty map for
// Idle, the episode config for EpisodeStart, the action for EpisodeStep and the
// finish reason (a string) for EpisodeFinish.
type Event struct {
	Kind       EventKind `json:"kind"`
	Content    any       `json:"content"`
	SequenceID int       `json:"sequenceId"` // sent on the next advance

	// CallbackTime is how long the platform asks an idle simulator to wait
	// before the next advance. Zero for other kinds.
	CallbackTime time.Duration `json:"callbackTime,omitempty"`
}

// Config returns the episode config of an EpisodeStart event.
func (e Event) Config() map[string]any {
	if e.Kind != EventEpisodeStart {
		return nil
	}
	m, _ := e.Content.(map[string]any)
	return m
}

// Action returns the action of an EpisodeStep event.
func (e Event) Action() map[string]any {
	if e.Kind != EventEpisodeStep {
		return nil
	}
	m, _ := e.Content.(map[string]any)
	return m
}

// Reason returns the finish reason of an EpisodeFinish event.
func (e Event) Reason() string {
	if e.Kind != EventEpisodeFinish {
		return ""
	}
	s, _ := e.Content.(string)
	return s
}

func (e Event) String() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Content)
}
