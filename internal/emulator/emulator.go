// Package emulator is an in-memory stand-in for the training platform's
// simulator session API. It registers sessions, enforces the sequence
// protocol and answers advances from a pluggable Scenario. Use Handler for
// in-process tests and ListenAndServe to serve it over the network.
package emulator

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/simbridge/simbridge/internal/common/httpx"
	commonmiddleware "github.com/simbridge/simbridge/internal/common/middleware"
	"github.com/simbridge/simbridge/internal/common/uuid"
	"github.com/simbridge/simbridge/pkg/platform"
)

// DefaultScenario is used when no scenario is configured.
var DefaultScenario = EpisodicScenario{
	EpisodeLength: 10,
	IdleEvery:     0,
	CallbackTime:  0.1,
}

type session struct {
	id         string
	workspace  string
	name       string
	sequenceID int // expected on the next advance
	advances   int
	scenario   Scenario
	createdAt  time.Time
	order      int
}

// SessionInfo is the public view of a registered session.
type SessionInfo struct {
	SessionID         string    `json:"sessionId"`
	Name              string    `json:"name"`
	SequenceID        int       `json:"sequenceId"`
	Advances          int       `json:"advances"`
	RegistrationState string    `json:"registrationState"`
	CreatedAt         time.Time `json:"createdAt"`
}

// Emulator holds the session table. All handlers serialize on one mutex.
type Emulator struct {
	accessKey   string
	newScenario NewScenario

	mu        sync.Mutex
	sessions  map[string]*session // keyed by workspace/id
	registers int

	router *chi.Mux
}

// Option configures an Emulator.
type Option func(*Emulator)

// WithAccessKey requires every request to carry key, either raw or as a
// bearer token, in the Authorization header.
func WithAccessKey(key string) Option {
	return func(e *Emulator) {
		e.accessKey = key
	}
}

// WithScenario sets how events are produced for new sessions.
func WithScenario(f NewScenario) Option {
	return func(e *Emulator) {
		e.newScenario = f
	}
}

// New creates an emulator with its routes mounted.
func New(opts ...Option) *Emulator {
	e := &Emulator{
		sessions: make(map[string]*session),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.newScenario == nil {
		e.newScenario = Episodic(DefaultScenario)
	}
	e.router = chi.NewRouter()
	e.mountHandlers()
	return e
}

// Handler returns the emulator's HTTP handler.
func (e *Emulator) Handler() http.Handler {
	return e.router
}

type handlerParam struct {
	Method  string
	Path    string
	Handler httpx.RequestHandler
}

func (e *Emulator) sessionHandlers() []handlerParam {
	return []handlerParam{
		{
			Method:  http.MethodPost,
			Path:    "/",
			Handler: e.createSession,
		},
		{
			Method:  http.MethodGet,
			Path:    "/",
			Handler: e.listSessions,
		},
		{
			Method:  http.MethodPost,
			Path:    "/{sessionID}/advance",
			Handler: e.advanceSession,
		},
		{
			Method:  http.MethodDelete,
			Path:    "/{sessionID}",
			Handler: e.deleteSession,
		},
	}
}

func (e *Emulator) mountHandlers() {
	e.router.Use(commonmiddleware.RequestLogger)
	e.router.Use(commonmiddleware.PanicHandler)
	e.router.Route("/v2/workspaces/{workspace}/simulatorSessions", func(r chi.Router) {
		r.Use(e.authMiddleware)
		for _, h := range e.sessionHandlers() {
			r.Method(h.Method, h.Path, httpx.WrapHttpRsp(h.Handler))
		}
	})
}

func (e *Emulator) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if e.accessKey == "" {
			next.ServeHTTP(w, r)
			return
		}
		key := strings.TrimSpace(r.Header.Get("Authorization"))
		key = strings.TrimSpace(strings.TrimPrefix(key, "Bearer "))
		if key != e.accessKey {
			log.Ctx(r.Context()).Warn().Msg("rejected request with invalid access key")
			httpx.ErrUnAuthorized("invalid access key").Send(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func sessionKey(workspace, id string) string {
	return workspace + "/" + id
}

func (e *Emulator) createSession(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	workspace := chi.URLParam(r, "workspace")

	var iface platform.SimulatorInterface
	if err := httpx.GetRequestData(r, &iface); err != nil {
		return nil, err
	}
	if iface.Name == "" {
		return nil, ErrInvalidRequest.Msg("simulator name is required")
	}
	if iface.Timeout < 0 {
		return nil, ErrInvalidRequest.Msg("timeout must not be negative")
	}

	id, err := uuid.NewRandom()
	if err != nil {
		return nil, ErrEmulator.MsgErr("unable to create session id", err)
	}
	s := &session{
		id:         id.String(),
		workspace:  workspace,
		name:       iface.Name,
		sequenceID: 1,
		scenario:   e.newScenario(iface),
		createdAt:  time.Now(),
	}

	e.mu.Lock()
	e.registers++
	s.order = e.registers
	e.sessions[sessionKey(workspace, s.id)] = s
	e.mu.Unlock()

	log.Ctx(ctx).Info().Str("workspace", workspace).Str("session_id", s.id).Str("name", s.name).Msg("simulator registered")
	return &httpx.Response{
		StatusCode: http.StatusCreated,
		Location:   platform.SessionsPath(workspace) + "/" + s.id,
		Response: platform.Session{
			SessionID:         s.id,
			Name:              s.name,
			RegistrationState: "Registered",
		},
	}, nil
}

func (e *Emulator) listSessions(r *http.Request) (*httpx.Response, error) {
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]any{"value": e.Sessions(chi.URLParam(r, "workspace"))},
	}, nil
}

func (e *Emulator) advanceSession(r *http.Request) (*httpx.Response, error) {
	ctx := r.Context()
	workspace := chi.URLParam(r, "workspace")
	sessionID := chi.URLParam(r, "sessionID")

	var state platform.SimulatorState
	if err := httpx.GetRequestData(r, &state); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s, ok := e.sessions[sessionKey(workspace, sessionID)]
	if !ok {
		return nil, ErrSessionNotFound.Msg(fmt.Sprintf("simulator session %s not found", sessionID))
	}
	if state.SequenceID != s.sequenceID {
		return nil, ErrSequenceMismatch.Msg(fmt.Sprintf("expected sequenceId %d, got %d", s.sequenceID, state.SequenceID))
	}

	event := s.scenario.Next(state)
	s.advances++
	s.sequenceID++
	event.SequenceID = s.sequenceID
	event.SessionID = s.id

	if event.Type == platform.EventTypeUnregister {
		delete(e.sessions, sessionKey(workspace, sessionID))
		log.Ctx(ctx).Info().Str("session_id", s.id).Msg("simulator session unregistered")
	} else {
		log.Ctx(ctx).Debug().Str("session_id", s.id).Str("event", event.Type).Int("sequence_id", event.SequenceID).Msg("advance")
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   event,
	}, nil
}

func (e *Emulator) deleteSession(r *http.Request) (*httpx.Response, error) {
	workspace := chi.URLParam(r, "workspace")
	sessionID := chi.URLParam(r, "sessionID")

	e.mu.Lock()
	defer e.mu.Unlock()

	key := sessionKey(workspace, sessionID)
	if _, ok := e.sessions[key]; !ok {
		return nil, ErrSessionNotFound.Msg(fmt.Sprintf("simulator session %s not found", sessionID))
	}
	delete(e.sessions, key)
	log.Ctx(r.Context()).Info().Str("session_id", sessionID).Msg("simulator session deleted")
	return &httpx.Response{StatusCode: http.StatusNoContent}, nil
}

// Sessions returns the live sessions of workspace, oldest first.
func (e *Emulator) Sessions(workspace string) []SessionInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	live := make([]*session, 0, len(e.sessions))
	for _, s := range e.sessions {
		if s.workspace == workspace {
			live = append(live, s)
		}
	}
	slices.SortFunc(live, func(a, b *session) int {
		return a.order - b.order
	})

	infos := make([]SessionInfo, 0, len(live))
	for _, s := range live {
		infos = append(infos, SessionInfo{
			SessionID:         s.id,
			Name:              s.name,
			SequenceID:        s.sequenceID,
			Advances:          s.advances,
			RegistrationState: "Registered",
			CreatedAt:         s.createdAt,
		})
	}
	return infos
}
