package emulator

import (
	"maps"
	"sync"

	"github.com/simbridge/simbridge/pkg/platform"
)

// Scenario decides the event answering each advance of one session. The
// emulator sets SequenceID and SessionID on the returned event.
type Scenario interface {
	Next(state platform.SimulatorState) platform.Event
}

// ScenarioFunc adapts a function to Scenario.
type ScenarioFunc func(state platform.SimulatorState) platform.Event

func (f ScenarioFunc) Next(state platform.SimulatorState) platform.Event {
	return f(state)
}

// NewScenario creates the scenario of a newly registered session.
type NewScenario func(iface platform.SimulatorInterface) Scenario

// Shared hands the same scenario to every session. Scripted tests use it to
// carry one event queue across re-registrations.
func Shared(s Scenario) NewScenario {
	return func(platform.SimulatorInterface) Scenario {
		return s
	}
}

// ActionFunc computes the action of a step from the last reported state.
type ActionFunc func(step int, state map[string]any) map[string]any

// BangBang drives output to 1 while observed is below setpoint and to 0
// otherwise. Missing or non-numeric values yield 0.5.
func BangBang(observed, setpoint, output string) ActionFunc {
	return func(_ int, state map[string]any) map[string]any {
		v, ok1 := number(state[observed])
		sp, ok2 := number(state[setpoint])
		power := 0.5
		if ok1 && ok2 {
			power = 0
			if v < sp {
				power = 1
			}
		}
		return map[string]any{output: power}
	}
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// Finish reasons sent by EpisodicScenario.
const (
	ReasonFinished = "Finished"
	ReasonHalted   = "Halted"
)

type episodePhase int

const (
	phaseIdle episodePhase = iota
	phaseStart
	phaseStepping
)

// EpisodicScenario idles once, then runs episodes forever: start, up to
// EpisodeLength steps (fewer if the simulator reports halted), finish. After
// every IdleEvery episodes it idles again.
type EpisodicScenario struct {
	EpisodeLength int
	IdleEvery     int
	CallbackTime  float64 // seconds, sent with Idle
	Config        map[string]any
	Action        ActionFunc

	phase    episodePhase
	step     int
	episodes int
}

// Episodic returns a NewScenario that gives each session a fresh copy of
// template.
func Episodic(template EpisodicScenario) NewScenario {
	return func(platform.SimulatorInterface) Scenario {
		s := template
		s.phase = phaseIdle
		s.step = 0
		s.episodes = 0
		return &s
	}
}

func (s *EpisodicScenario) Next(state platform.SimulatorState) platform.Event {
	switch s.phase {
	case phaseIdle:
		s.phase = phaseStart
		return platform.Event{
			Type: platform.EventTypeIdle,
			Idle: &platform.IdleEvent{CallbackTime: s.CallbackTime},
		}
	case phaseStart:
		s.phase = phaseStepping
		s.step = 0
		config := map[string]any{}
		maps.Copy(config, s.Config)
		return platform.Event{
			Type:         platform.EventTypeEpisodeStart,
			EpisodeStart: &platform.StartEvent{Config: config},
		}
	}

	if state.Halted || s.step >= s.EpisodeLength {
		reason := ReasonFinished
		if state.Halted {
			reason = ReasonHalted
		}
		s.episodes++
		s.phase = phaseStart
		if s.IdleEvery > 0 && s.episodes%s.IdleEvery == 0 {
			s.phase = phaseIdle
		}
		return platform.Event{
			Type:          platform.EventTypeEpisodeFinish,
			EpisodeFinish: &platform.FinishEvent{Reason: reason},
		}
	}

	s.step++
	action := map[string]any{}
	if s.Action != nil {
		action = s.Action(s.step, state.State)
	}
	return platform.Event{
		Type:        platform.EventTypeEpisodeStep,
		EpisodeStep: &platform.StepEvent{Action: action},
	}
}

// ScriptedScenario replays Events in order, then idles. It records every
// state it receives. Safe for use by several sessions.
type ScriptedScenario struct {
	mu       sync.Mutex
	events   []platform.Event
	received []platform.SimulatorState
}

// Scripted returns a scenario that answers with events in order.
func Scripted(events ...platform.Event) *ScriptedScenario {
	return &ScriptedScenario{events: events}
}

func (s *ScriptedScenario) Next(state platform.SimulatorState) platform.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.received = append(s.received, state)
	if len(s.events) == 0 {
		return platform.Event{Type: platform.EventTypeIdle, Idle: &platform.IdleEvent{}}
	}
	ev := s.events[0]
	s.events = s.events[1:]
	return ev
}

// Received returns the states seen so far.
func (s *ScriptedScenario) Received() []platform.SimulatorState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]platform.SimulatorState(nil), s.received...)
}

// RevokeAfter wraps next so that every session is unregistered by the
// platform on its n+1th advance.
func RevokeAfter(n int, details string, next NewScenario) NewScenario {
	return func(iface platform.SimulatorInterface) Scenario {
		inner := next(iface)
		count := 0
		return ScenarioFunc(func(state platform.SimulatorState) platform.Event {
			if count >= n {
				return platform.Event{
					Type:       platform.EventTypeUnregister,
					Unregister: &platform.UnregisterEvent{Reason: "Error", Details: details},
				}
			}
			count++
			return inner.Next(state)
		})
	}
}
