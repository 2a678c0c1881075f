package gemini_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/tailored-agentic-units/studyplan/agent"
	"github.com/tailored-agentic-units/studyplan/agent/gemini"
	"github.com/tailored-agentic-units/studyplan/core/config"
	"github.com/tailored-agentic-units/studyplan/core/protocol"
)

func serverConfig(url string) *config.AgentConfig {
	cfg := config.DefaultAgentConfig()
	cfg.Provider.Name = gemini.ProviderName
	cfg.Provider.BaseURL = url
	return &cfg
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := agent.New(serverConfig("http://localhost"))
	if !errors.Is(err, agent.ErrMissingAPIKey) {
		t.Errorf("got %v, want %v", err, agent.ErrMissingAPIKey)
	}
}

func TestAgent_Tools(t *testing.T) {
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		if got := r.Header.Get("x-goog-api-key"); got != "user-key" {
			t.Errorf("x-goog-api-key = %q", got)
		}
		raw, _ := io.ReadAll(r.Body)
		json.Unmarshal(raw, &body)

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{
			"responseId": "resp-1",
			"modelVersion": "gemini-2.5-flash-001",
			"candidates": [{"content": {"role": "model", "parts": [
				{"text": "Searching. "},
				{"functionCall": {"id": "fc-1", "name": "search_arxiv", "args": {"query": "cells"}}}
			]}}],
			"usageMetadata": {"promptTokenCount": 10, "candidatesTokenCount": 4, "totalTokenCount": 14}
		}`)
	}))
	defer srv.Close()

	a, err := agent.New(serverConfig(srv.URL), agent.WithAPIKey("user-key"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	resp, err := a.Tools(context.Background(), []protocol.Message{
		protocol.NewMessage(protocol.RoleSystem, "be helpful"),
		protocol.NewMessage(protocol.RoleUser, "photosynthesis"),
	}, []protocol.Tool{{
		Name:        "search_arxiv",
		Description: "Search arXiv",
		Parameters:  protocol.QueryParameters("topic"),
	}})
	if err != nil {
		t.Fatalf("Tools failed: %v", err)
	}

	if resp.ID != "resp-1" || resp.Model != "gemini-2.5-flash-001" {
		t.Errorf("id/model = %q/%q", resp.ID, resp.Model)
	}
	if resp.Content != "Searching. " {
		t.Errorf("content = %q", resp.Content)
	}
	if len(resp.ToolCalls) != 1 || resp.ToolCalls[0].Name != "search_arxiv" || resp.ToolCalls[0].ID != "fc-1" {
		t.Fatalf("tool calls = %+v", resp.ToolCalls)
	}
	if string(resp.ToolCalls[0].Arguments) != `{"query":"cells"}` {
		t.Errorf("args = %s", resp.ToolCalls[0].Arguments)
	}
	if resp.Usage == nil || resp.Usage.TotalTokens != 14 {
		t.Errorf("usage = %+v", resp.Usage)
	}

	if _, ok := body["systemInstruction"]; !ok {
		t.Error("request missing systemInstruction")
	}
	if _, ok := body["tools"]; !ok {
		t.Error("request missing tools")
	}
}

func TestAgent_Tools_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`)
	}))
	defer srv.Close()

	a, err := agent.New(serverConfig(srv.URL), agent.WithAPIKey("bad"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if _, err := a.Tools(context.Background(), []protocol.Message{protocol.NewMessage(protocol.RoleUser, "x")}, nil); err == nil {
		t.Error("expected error from upstream 400")
	}
}
