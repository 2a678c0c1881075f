// Package webapp is the multi-user web service. It registers and
// authenticates users, keeps each user's model credential sealed at rest,
// stores chat sessions and messages, and forwards chat messages to the
// agent runtime through package bridge.
//
// Every route lives under /api and answers errors as {"detail": "..."}.
package webapp

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/tailored-agentic-units/studyplan/auth"
	"github.com/tailored-agentic-units/studyplan/bridge"
	"github.com/tailored-agentic-units/studyplan/internal/httpapi"
	"github.com/tailored-agentic-units/studyplan/observability"
	"github.com/tailored-agentic-units/studyplan/store"
)

const serviceName = "studyplan-web"

// Runtime is the part of the agent runtime client the web service uses.
// *bridge.Client implements it.
type Runtime interface {
	Config() bridge.Config
	CreateSession(ctx context.Context, userID string) (bridge.RemoteSession, error)
	DeleteSession(ctx context.Context, rs bridge.RemoteSession) error
	Reply(ctx context.Context, rs bridge.RemoteSession, message, apiKey string) (string, error)
}

// Option configures a Server.
type Option func(*Server)

// WithLocker replaces the in-process chat lock.
func WithLocker(l Locker) Option {
	return func(s *Server) { s.locker = l }
}

// WithObserver overrides the default slog observer.
func WithObserver(o observability.Observer) Option {
	return func(s *Server) { s.observer = o }
}

// WithGatherer serves metrics from g instead of the default registry.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// Server holds the dependencies of the web handlers.
type Server struct {
	cfg      Config
	store    *store.Store
	tokens   *auth.Tokens
	cipher   *auth.Cipher
	runtime  Runtime
	locker   Locker
	observer observability.Observer
	gatherer prometheus.Gatherer
}

// New creates a Server.
func New(cfg Config, st *store.Store, tokens *auth.Tokens, cipher *auth.Cipher, rt Runtime, opts ...Option) *Server {
	full := DefaultConfig()
	full.Merge(&cfg)

	s := &Server{
		cfg:      full,
		store:    st,
		tokens:   tokens,
		cipher:   cipher,
		runtime:  rt,
		locker:   NewLocalLocker(),
		observer: observability.NewSlogObserver(nil),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP handler of the service.
func (s *Server) Handler() http.Handler {
	r := httpapi.NewRouter(serviceName, s.observer)
	r.Use(cors.Handler(corsOptions(s.cfg.CORSOrigins)))

	r.Get("/health", httpapi.Health(serviceName))
	r.Method(http.MethodGet, "/metrics", httpapi.Metrics(s.gatherer))

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", s.register)
		r.Post("/auth/login", s.login)

		r.Group(func(r chi.Router) {
			r.Use(s.authenticate)

			r.Get("/auth/me", s.me)

			r.Put("/user/api-key", s.setAPIKey)
			r.Delete("/user/api-key", s.deleteAPIKey)
			r.Put("/user/password", s.setPassword)
			r.Delete("/user/account", s.deleteAccount)

			r.Get("/chat/sessions", s.listChats)
			r.Post("/chat/sessions", s.createChat)
			r.Delete("/chat/sessions/{id}", s.deleteChat)
			r.Get("/chat/sessions/{id}/messages", s.chatMessages)
			r.Post("/chat/send", s.send)
		})
	})

	return r
}

func corsOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

type userKey struct{}

func userFrom(ctx context.Context) store.User {
	u, _ := ctx.Value(userKey{}).(store.User)
	return u
}

// authenticate resolves the bearer token to a stored user.
func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reject := func() {
			w.Header().Set("WWW-Authenticate", "Bearer")
			httpapi.WriteError(w, http.StatusUnauthorized, "Could not validate credentials")
		}

		scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
			reject()
			return
		}

		id, err := s.tokens.Verify(strings.TrimSpace(token))
		if err != nil {
			reject()
			return
		}

		u, err := s.store.UserByID(r.Context(), id)
		if err != nil {
			reject()
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey{}, u)))
	})
}
