package bridge_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/studyplan/bridge"
	"github.com/tailored-agentic-units/studyplan/core/config"
	"github.com/tailored-agentic-units/studyplan/core/response"
	"github.com/tailored-agentic-units/studyplan/observability"
)

type fakeRuntime struct {
	t        *testing.T
	lastRun  bridge.RunRequest
	lastKey  string
	lastPath string
	handler  http.HandlerFunc
}

func newFakeRuntime(t *testing.T, run http.HandlerFunc) (*fakeRuntime, *httptest.Server) {
	f := &fakeRuntime{t: t, handler: run}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /apps/{app}/users/{user}/sessions", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"id":      "s-" + r.PathValue("user"),
			"appName": r.PathValue("app"),
			"userId":  r.PathValue("user"),
		})
	})
	mux.HandleFunc("DELETE /apps/{app}/users/{user}/sessions/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") == "gone" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})
	record := func(w http.ResponseWriter, r *http.Request) {
		f.lastPath = r.URL.Path
		f.lastKey = r.Header.Get(bridge.APIKeyHeader)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &f.lastRun))
		f.handler(w, r)
	}
	mux.HandleFunc("POST /run", record)
	mux.HandleFunc("POST /run_sse", record)

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return f, srv
}

func quietClient(cfg bridge.Config) *bridge.Client {
	return bridge.New(cfg, bridge.WithObserver(observability.NoOpObserver{}))
}

func TestCreateSession(t *testing.T) {
	_, srv := newFakeRuntime(t, nil)
	c := quietClient(bridge.Config{BaseURL: srv.URL + "/"})

	rs, err := c.CreateSession(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, bridge.RemoteSession{ID: "s-42", AppName: "study_planner", UserID: "42"}, rs)
}

func TestCreateSession_NoIdentifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"appName":"study_planner"}`))
	}))
	defer srv.Close()

	_, err := quietClient(bridge.Config{BaseURL: srv.URL}).CreateSession(context.Background(), "42")
	require.Error(t, err)
	assert.ErrorIs(t, err, bridge.ErrSessionCreate)
	assert.True(t, bridge.IsGateway(err))
	assert.Equal(t, "session_create", bridge.Kind(err))
}

func TestCreateSession_UpstreamStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "app not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := quietClient(bridge.Config{BaseURL: srv.URL}).CreateSession(context.Background(), "42")
	assert.ErrorIs(t, err, bridge.ErrSessionCreate)

	var upErr *bridge.UpstreamError
	require.ErrorAs(t, err, &upErr)
	assert.Equal(t, http.StatusNotFound, upErr.StatusCode)
	assert.Equal(t, "app not found", upErr.Body)
}

func TestSend_Aggregate(t *testing.T) {
	f, srv := newFakeRuntime(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"content":{"parts":[{"text":"Plan: Day 1..."}]}}]`))
	})
	c := quietClient(bridge.Config{BaseURL: srv.URL})
	rs := bridge.RemoteSession{ID: "s-1", AppName: "study_planner", UserID: "1"}

	raw, err := c.Send(context.Background(), rs, "cells, grade 5", "key-123")
	require.NoError(t, err)
	assert.False(t, raw.Streaming)
	assert.Equal(t, "Plan: Day 1...", response.Assemble(raw))

	assert.Equal(t, "/run", f.lastPath)
	assert.Equal(t, "key-123", f.lastKey)
	assert.Equal(t, "study_planner", f.lastRun.AppName)
	assert.Equal(t, "1", f.lastRun.UserID)
	assert.Equal(t, "s-1", f.lastRun.SessionID)
	assert.Equal(t, "user", f.lastRun.NewMessage.Role)
	assert.Equal(t, "cells, grade 5", f.lastRun.NewMessage.Text())
	assert.False(t, f.lastRun.Streaming)
}

func TestSend_Streaming(t *testing.T) {
	f, srv := newFakeRuntime(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		w.Write([]byte("data: {\"content\":{\"parts\":[{\"text\":\"Hello\"}]}}\n\n"))
		w.(http.Flusher).Flush()
		w.Write([]byte("data: {not json}\n\n"))
		w.Write([]byte("data: {\"content\":{\"parts\":[{\"text\":\"World\"}]}}\n\n"))
	})
	c := quietClient(bridge.Config{BaseURL: srv.URL, Streaming: true})

	reply, err := c.Reply(context.Background(), bridge.RemoteSession{ID: "s", UserID: "u", AppName: "a"}, "hi", "k")
	require.NoError(t, err)
	assert.Equal(t, "Hello\n\nWorld", reply)
	assert.Equal(t, "/run_sse", f.lastPath)
}

func TestSend_UpstreamError(t *testing.T) {
	_, srv := newFakeRuntime(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"detail":"model quota exhausted"}`, http.StatusInternalServerError)
	})
	c := quietClient(bridge.Config{BaseURL: srv.URL})

	_, err := c.Send(context.Background(), bridge.RemoteSession{ID: "s"}, "hi", "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, bridge.ErrUpstreamAgent)
	assert.NotErrorIs(t, err, bridge.ErrUpstreamUnreachable)
	assert.True(t, bridge.IsGateway(err))
	assert.Contains(t, err.Error(), "model quota exhausted")
	assert.Equal(t, "upstream_status", bridge.Kind(err))
}

func TestSend_ReplyTooLarge(t *testing.T) {
	reply := `[{"content":{"parts":[{"text":"` + strings.Repeat("x", 200) + `"}]}}]`
	_, srv := newFakeRuntime(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, reply)
	})

	capped := bridge.New(bridge.Config{BaseURL: srv.URL},
		bridge.WithObserver(observability.NoOpObserver{}),
		bridge.WithMaxBodyBytes(64))
	_, err := capped.Reply(context.Background(), bridge.RemoteSession{ID: "s"}, "hi", "k")
	require.Error(t, err)
	assert.ErrorIs(t, err, bridge.ErrUpstreamAgent)
	assert.NotErrorIs(t, err, bridge.ErrUpstreamUnreachable)
	assert.Contains(t, err.Error(), "exceeds 64 bytes")

	exact := bridge.New(bridge.Config{BaseURL: srv.URL},
		bridge.WithObserver(observability.NoOpObserver{}),
		bridge.WithMaxBodyBytes(int64(len(reply))))
	got, err := exact.Reply(context.Background(), bridge.RemoteSession{ID: "s"}, "hi", "k")
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 200), got)
}

func TestSend_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := quietClient(bridge.Config{BaseURL: url}).Send(context.Background(), bridge.RemoteSession{ID: "s"}, "hi", "k")
	assert.ErrorIs(t, err, bridge.ErrUpstreamUnreachable)
	assert.True(t, bridge.IsGateway(err))
	assert.Equal(t, "unreachable", bridge.Kind(err))
}

func TestSend_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := quietClient(bridge.Config{BaseURL: srv.URL, Timeout: config.Duration(50 * time.Millisecond)})
	_, err := c.Send(context.Background(), bridge.RemoteSession{ID: "s"}, "hi", "k")
	assert.ErrorIs(t, err, bridge.ErrUpstreamUnreachable)
}

func TestDeleteSession(t *testing.T) {
	_, srv := newFakeRuntime(t, nil)
	c := quietClient(bridge.Config{BaseURL: srv.URL})

	assert.NoError(t, c.DeleteSession(context.Background(), bridge.RemoteSession{ID: "s-1", UserID: "1"}))
	assert.NoError(t, c.DeleteSession(context.Background(), bridge.RemoteSession{ID: "gone", UserID: "1"}))
}

func TestConfig_Defaults(t *testing.T) {
	cfg := quietClient(bridge.Config{}).Config()
	assert.Equal(t, bridge.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, bridge.DefaultAppName, cfg.AppName)
	assert.Equal(t, bridge.DefaultTimeout, cfg.Timeout.Std())
}

func TestIsGateway_OtherErrors(t *testing.T) {
	assert.False(t, bridge.IsGateway(errors.New("bad input")))
	assert.False(t, bridge.IsGateway(nil))
	assert.Equal(t, "other", bridge.Kind(errors.New("x")))
}
