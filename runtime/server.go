// Package runtime serves a kernel pipeline over the agent runtime protocol
// consumed by package bridge.
//
//	POST   /apps/{app}/users/{user}/sessions        create a session
//	POST   /apps/{app}/users/{user}/sessions/{id}   create with a chosen id
//	GET    /apps/{app}/users/{user}/sessions        list sessions
//	GET    /apps/{app}/users/{user}/sessions/{id}   session and event log
//	DELETE /apps/{app}/users/{user}/sessions/{id}   delete
//	POST   /run                                     run, reply with all events
//	POST   /run_sse                                 run, stream events as produced
//	GET    /health, /metrics
//
// Run calls require the model credential in the X-API-Key header. It is
// handed to the kernel for that run only.
package runtime

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tailored-agentic-units/studyplan/bridge"
	"github.com/tailored-agentic-units/studyplan/internal/httpapi"
	"github.com/tailored-agentic-units/studyplan/kernel"
	"github.com/tailored-agentic-units/studyplan/observability"
	"github.com/tailored-agentic-units/studyplan/session"
)

const serviceName = "studyplan-runtime"

// Option configures a Server.
type Option func(*Server)

// WithAppName overrides the served app name.
func WithAppName(name string) Option {
	return func(s *Server) { s.app = name }
}

// WithObserver overrides the default slog observer.
func WithObserver(o observability.Observer) Option {
	return func(s *Server) { s.observer = o }
}

// WithGatherer serves metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithSessions shares a session registry.
func WithSessions(r *session.Registry) Option {
	return func(s *Server) { s.sessions = r }
}

// Server hosts one app backed by one kernel.
type Server struct {
	kernel   *kernel.Kernel
	sessions *session.Registry
	app      string
	observer observability.Observer
	gatherer prometheus.Gatherer
}

// New creates a Server running k.
func New(k *kernel.Kernel, opts ...Option) *Server {
	s := &Server{
		kernel:   k,
		sessions: session.NewRegistry(),
		app:      bridge.DefaultAppName,
		observer: observability.NewSlogObserver(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Sessions returns the session registry.
func (s *Server) Sessions() *session.Registry {
	return s.sessions
}

// Handler returns the HTTP handler of the server.
func (s *Server) Handler() http.Handler {
	r := httpapi.NewRouter(serviceName, s.observer)

	r.Get("/health", httpapi.Health(serviceName))
	r.Method(http.MethodGet, "/metrics", httpapi.Metrics(s.gatherer))

	r.Route("/apps/{app}/users/{user}/sessions", func(r chi.Router) {
		r.Use(s.requireApp)
		r.Post("/", s.createSession)
		r.Get("/", s.listSessions)
		r.Post("/{id}", s.createSession)
		r.Get("/{id}", s.getSession)
		r.Delete("/{id}", s.deleteSession)
	})

	r.Post("/run", s.run)
	r.Post("/run_sse", s.runSSE)

	return r
}

func (s *Server) requireApp(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app := chi.URLParam(r, "app"); app != s.app {
			httpapi.WriteErrorf(w, http.StatusNotFound, "app not found: %s", app)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func apiKey(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(bridge.APIKeyHeader))
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		httpapi.WriteError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, session.ErrExists):
		httpapi.WriteError(w, http.StatusConflict, "session already exists")
	default:
		httpapi.WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
