package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tailored-agentic-units/studyplan/observability"
)

// EventRequest is emitted once per handled request.
const EventRequest observability.EventType = "http.request"

// RequestLogger reports method, route, status and duration of every request
// to observer. Server errors are reported at error level.
func RequestLogger(service string, observer observability.Observer) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			route := r.URL.Path
			if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
				route = rc.RoutePattern()
			}

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}

			level := observability.LevelInfo
			switch {
			case status >= 500:
				level = observability.LevelError
			case status >= 400:
				level = observability.LevelWarning
			}

			observer.OnEvent(r.Context(), observability.NewEvent(EventRequest, level, service, map[string]any{
				"method":                  r.Method,
				"route":                   route,
				"status":                  status,
				"bytes":                   ww.BytesWritten(),
				"request_id":              middleware.GetReqID(r.Context()),
				observability.KeyDuration: time.Since(start),
			}))
		})
	}
}

// NewRouter returns a chi router with request ids, request logging and
// panic recovery installed. Recovered panics are logged as 500s.
func NewRouter(service string, observer observability.Observer) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(service, observer))
	r.Use(middleware.Recoverer)
	return r
}

// Metrics serves the metrics gathered by g, or the default registry when g
// is nil.
func Metrics(g prometheus.Gatherer) http.Handler {
	if g == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
