package agent_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/tailored-agentic-units/studyplan/agent"
	"github.com/tailored-agentic-units/studyplan/core/config"
	"github.com/tailored-agentic-units/studyplan/core/protocol"
	"github.com/tailored-agentic-units/studyplan/core/response"
)

type keyedAgent struct {
	key   string
	model string
}

func (a *keyedAgent) Tools(_ context.Context, _ []protocol.Message, _ []protocol.Tool) (*response.ToolsResponse, error) {
	return &response.ToolsResponse{Model: a.model, Content: a.key}, nil
}

func keyedFactory(cfg *config.AgentConfig, opts agent.Options) (agent.Agent, error) {
	if opts.APIKey == "" {
		return nil, agent.ErrMissingAPIKey
	}
	return &keyedAgent{key: opts.APIKey, model: cfg.ModelName()}, nil
}

func providerConfig(name string) *config.AgentConfig {
	cfg := config.DefaultAgentConfig()
	cfg.Provider.Name = name
	return &cfg
}

func TestRegistry_RegisterAndNew(t *testing.T) {
	r := agent.NewRegistry()

	if err := r.Register("keyed", keyedFactory); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	a, err := r.New(providerConfig("keyed"), agent.WithAPIKey("secret-1"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	resp, err := a.Tools(context.Background(), nil, nil)
	if err != nil {
		t.Fatalf("Tools failed: %v", err)
	}
	if resp.Content != "secret-1" {
		t.Errorf("got key %q, want %q", resp.Content, "secret-1")
	}
}

func TestRegistry_New_KeysDoNotLeak(t *testing.T) {
	r := agent.NewRegistry()
	r.Register("keyed", keyedFactory)

	first, _ := r.New(providerConfig("keyed"), agent.WithAPIKey("user-a"))
	second, _ := r.New(providerConfig("keyed"), agent.WithAPIKey("user-b"))

	a, _ := first.Tools(context.Background(), nil, nil)
	b, _ := second.Tools(context.Background(), nil, nil)

	if a.Content != "user-a" || b.Content != "user-b" {
		t.Errorf("credentials crossed: %q, %q", a.Content, b.Content)
	}
}

func TestRegistry_New_FactoryError(t *testing.T) {
	r := agent.NewRegistry()
	r.Register("keyed", keyedFactory)

	_, err := r.New(providerConfig("keyed"))
	if !errors.Is(err, agent.ErrMissingAPIKey) {
		t.Errorf("got %v, want %v", err, agent.ErrMissingAPIKey)
	}
}

func TestRegistry_New_NilConfigUsesDefaultProvider(t *testing.T) {
	r := agent.NewRegistry()

	_, err := r.New(nil)
	if !errors.Is(err, agent.ErrProviderNotFound) {
		t.Errorf("got %v, want %v", err, agent.ErrProviderNotFound)
	}
}

func TestRegistry_RegisterEmptyName(t *testing.T) {
	r := agent.NewRegistry()

	if err := r.Register("", keyedFactory); !errors.Is(err, agent.ErrEmptyProviderName) {
		t.Errorf("got %v, want %v", err, agent.ErrEmptyProviderName)
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := agent.NewRegistry()
	r.Register("keyed", keyedFactory)

	if err := r.Register("keyed", keyedFactory); !errors.Is(err, agent.ErrProviderExists) {
		t.Errorf("got %v, want %v", err, agent.ErrProviderExists)
	}
}

func TestRegistry_Replace(t *testing.T) {
	r := agent.NewRegistry()
	r.Register("keyed", keyedFactory)

	replacement := func(cfg *config.AgentConfig, opts agent.Options) (agent.Agent, error) {
		return &keyedAgent{key: "replaced"}, nil
	}
	if err := r.Replace("keyed", replacement); err != nil {
		t.Fatalf("Replace failed: %v", err)
	}

	a, err := r.New(providerConfig("keyed"))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	resp, _ := a.Tools(context.Background(), nil, nil)
	if resp.Content != "replaced" {
		t.Errorf("got %q, want %q", resp.Content, "replaced")
	}
}

func TestRegistry_ReplaceErrors(t *testing.T) {
	r := agent.NewRegistry()

	if err := r.Replace("", keyedFactory); !errors.Is(err, agent.ErrEmptyProviderName) {
		t.Errorf("empty name: got %v", err)
	}
	if err := r.Replace("missing", keyedFactory); !errors.Is(err, agent.ErrProviderNotFound) {
		t.Errorf("missing: got %v", err)
	}
}

func TestRegistry_ListAndUnregister(t *testing.T) {
	r := agent.NewRegistry()
	r.Register("zeta", keyedFactory)
	r.Register("alpha", keyedFactory)

	names := r.List()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "zeta" {
		t.Errorf("got %v, want sorted [alpha zeta]", names)
	}

	if err := r.Unregister("alpha"); err != nil {
		t.Fatalf("Unregister failed: %v", err)
	}
	if err := r.Unregister("alpha"); !errors.Is(err, agent.ErrProviderNotFound) {
		t.Errorf("second Unregister: got %v", err)
	}
	if len(r.List()) != 1 {
		t.Errorf("got %d providers after unregister, want 1", len(r.List()))
	}
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	r := agent.NewRegistry()
	r.Register("keyed", keyedFactory)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			r.New(providerConfig("keyed"), agent.WithAPIKey("k"))
		}()
		go func() {
			defer wg.Done()
			r.List()
		}()
	}
	wg.Wait()
}

func TestAgentFunc(t *testing.T) {
	var a agent.Agent = agent.AgentFunc(func(_ context.Context, msgs []protocol.Message, _ []protocol.Tool) (*response.ToolsResponse, error) {
		return &response.ToolsResponse{Content: msgs[0].Content}, nil
	})

	resp, err := a.Tools(context.Background(), []protocol.Message{protocol.NewMessage(protocol.RoleUser, "ping")}, nil)
	if err != nil || resp.Content != "ping" {
		t.Errorf("got %v, %v", resp, err)
	}
}
