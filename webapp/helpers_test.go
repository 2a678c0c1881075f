package webapp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tailored-agentic-units/studyplan/agent"
	"github.com/tailored-agentic-units/studyplan/agent/mock"
	"github.com/tailored-agentic-units/studyplan/auth"
	"github.com/tailored-agentic-units/studyplan/bridge"
	"github.com/tailored-agentic-units/studyplan/core/config"
	"github.com/tailored-agentic-units/studyplan/core/protocol"
	"github.com/tailored-agentic-units/studyplan/kernel"
	"github.com/tailored-agentic-units/studyplan/observability"
	"github.com/tailored-agentic-units/studyplan/runtime"
	"github.com/tailored-agentic-units/studyplan/store"
	"github.com/tailored-agentic-units/studyplan/tools"
	"github.com/tailored-agentic-units/studyplan/webapp"
)

type env struct {
	t     *testing.T
	store *store.Store
	web   *httptest.Server
}

func noopTools(t *testing.T) *tools.Registry {
	t.Helper()
	r := tools.NewRegistry()
	for _, name := range []string{"search_arxiv", "search_videos"} {
		require.NoError(t, r.Register(protocol.Tool{Name: name, Parameters: protocol.QueryParameters("topic")},
			tools.QueryHandler(func(_ context.Context, q string) tools.Result {
				return tools.Result{Content: "result for " + q}
			})))
	}
	return r
}

// newRuntime serves the pipeline with an echo agent that refuses to be
// built without a credential.
func newRuntime(t *testing.T) (*runtime.Server, *httptest.Server) {
	t.Helper()
	providers := agent.NewRegistry()
	require.NoError(t, providers.Register("echo", func(_ *config.AgentConfig, opts agent.Options) (agent.Agent, error) {
		if opts.APIKey == "" {
			return nil, agent.ErrMissingAPIKey
		}
		return mock.New(), nil
	}))

	cfg := kernel.DefaultConfig()
	cfg.Observers = []string{"noop"}
	cfg.Agent.Provider.Name = "echo"
	k, err := kernel.New(&cfg, kernel.WithAgentRegistry(providers), kernel.WithTools(noopTools(t)))
	require.NoError(t, err)

	rt := runtime.New(k, runtime.WithObserver(observability.NoOpObserver{}))
	srv := httptest.NewServer(rt.Handler())
	t.Cleanup(srv.Close)
	return rt, srv
}

func newEnv(t *testing.T, rtURL string, opts ...webapp.Option) *env {
	t.Helper()
	st, err := store.Open(context.Background(), filepath.Join(t.TempDir(), "web.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	tokens, err := auth.NewTokens("test-secret", time.Hour)
	require.NoError(t, err)
	key, err := auth.GenerateKey()
	require.NoError(t, err)
	cipher, err := auth.NewCipher(key)
	require.NoError(t, err)

	client := bridge.New(bridge.Config{BaseURL: rtURL}, bridge.WithObserver(observability.NoOpObserver{}))

	opts = append([]webapp.Option{webapp.WithObserver(observability.NoOpObserver{})}, opts...)
	srv := webapp.New(webapp.Config{CORSOrigins: []string{"http://localhost:5173"}}, st, tokens, cipher, client, opts...)
	web := httptest.NewServer(srv.Handler())
	t.Cleanup(web.Close)

	return &env{t: t, store: st, web: web}
}

func (e *env) do(method, path, token string, body any, out any) int {
	e.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(e.t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.web.URL+path, &buf)
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(e.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

// signup registers a user and returns its token.
func (e *env) signup(email, username string) string {
	e.t.Helper()
	var tok webapp.TokenView
	status := e.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "username": username, "password": "password123",
	}, &tok)
	require.Equal(e.t, http.StatusCreated, status)
	return tok.AccessToken
}

func (e *env) setKey(token string) {
	e.t.Helper()
	status := e.do(http.MethodPut, "/api/user/api-key", token, map[string]string{"api_key": "AIza-test-key-123"}, nil)
	require.Equal(e.t, http.StatusOK, status)
}

type detail struct {
	Detail string `json:"detail"`
}
