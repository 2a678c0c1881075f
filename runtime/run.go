package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/studyplan/bridge"
	"github.com/tailored-agentic-units/studyplan/core/response"
	"github.com/tailored-agentic-units/studyplan/internal/httpapi"
	"github.com/tailored-agentic-units/studyplan/kernel"
	"github.com/tailored-agentic-units/studyplan/observability"
	"github.com/tailored-agentic-units/studyplan/session"
)

// EventRun is emitted once per served run.
const EventRun observability.EventType = "runtime.run"

// prepare validates a run request and locks its session. The caller must
// Unlock the returned session.
func (s *Server) prepare(w http.ResponseWriter, r *http.Request) (*session.Remote, bridge.RunRequest, string, bool) {
	var req bridge.RunRequest
	if err := httpapi.Decode(w, r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, req, "", false
	}

	key := apiKey(r)
	if key == "" {
		httpapi.WriteErrorf(w, http.StatusUnauthorized, "missing %s header", bridge.APIKeyHeader)
		return nil, req, "", false
	}

	if req.AppName != s.app {
		httpapi.WriteErrorf(w, http.StatusNotFound, "app not found: %s", req.AppName)
		return nil, req, "", false
	}

	message := strings.TrimSpace(req.NewMessage.Text())
	if message == "" {
		httpapi.WriteError(w, http.StatusBadRequest, "new_message must carry text")
		return nil, req, "", false
	}

	rs, err := s.sessions.Get(req.AppName, req.UserID, req.SessionID)
	if err != nil {
		writeSessionError(w, err)
		return nil, req, "", false
	}

	rs.Lock()
	return rs, req, key, true
}

// execute runs the pipeline for message in rs and passes every produced
// event to emit as soon as it exists.
func (s *Server) execute(ctx context.Context, rs *session.Remote, message, key string, emit func(response.Event)) error {
	invocation := "e-" + uuid.NewString()

	user := response.NewTextEvent(invocation, "user", message)
	user.Content.Role = "user"
	rs.AppendEvents(user)

	_, err := s.kernel.Run(ctx, message,
		kernel.WithAPIKey(key),
		kernel.WithSession(rs.Conversation()),
		kernel.WithStepHook(func(step kernel.StepEvent) {
			e := toEvent(invocation, step)
			rs.AppendEvents(e)
			emit(e)
		}),
	)

	data := map[string]any{
		"session":              rs.ID,
		"invocation":           invocation,
		observability.KeyError: err != nil,
	}
	level := observability.LevelInfo
	if err != nil {
		level = observability.LevelError
		data["detail"] = err.Error()
	}
	s.observer.OnEvent(ctx, observability.NewEvent(EventRun, level, "runtime.Server", data))

	return err
}

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	rs, req, key, ok := s.prepare(w, r)
	if !ok {
		return
	}
	defer rs.Unlock()

	events := []response.Event{}
	err := s.execute(r.Context(), rs, req.NewMessage.Text(), key, func(e response.Event) {
		events = append(events, e)
	})
	if err != nil {
		httpapi.WriteError(w, statusOf(err), err.Error())
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, events)
}

func (s *Server) runSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpapi.WriteError(w, http.StatusInternalServerError, "streaming is unsupported by response writer")
		return
	}

	rs, req, key, ok := s.prepare(w, r)
	if !ok {
		return
	}
	defer rs.Unlock()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	write := func(e response.Event) {
		payload, err := json.Marshal(e)
		if err != nil {
			return
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	if err := s.execute(r.Context(), rs, req.NewMessage.Text(), key, write); err != nil {
		write(response.Event{ErrorMessage: err.Error()})
	}
}

// toEvent converts a pipeline step into the runtime's event form.
func toEvent(invocation string, step kernel.StepEvent) response.Event {
	switch step.Kind {
	case kernel.StepToolCall:
		var args map[string]any
		if len(step.Call.Arguments) > 0 {
			_ = json.Unmarshal(step.Call.Arguments, &args)
		}
		return response.NewFunctionCallEvent(invocation, step.Stage, response.FunctionCall{
			ID:   step.Call.ID,
			Name: step.Call.Name,
			Args: args,
		})
	case kernel.StepToolResult:
		return response.NewFunctionResponseEvent(invocation, step.Stage, response.FunctionResponse{
			ID:   step.Call.ID,
			Name: step.Call.Name,
			Response: map[string]any{
				"result":   step.Result.Content,
				"is_error": step.Result.IsError,
			},
		})
	default:
		e := response.NewTextEvent(invocation, step.Stage, step.Text)
		if step.Err != nil {
			e.ErrorMessage = step.Err.Error()
		}
		return e
	}
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
