package tools_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/tailored-agentic-units/studyplan/core/protocol"
	"github.com/tailored-agentic-units/studyplan/tools"
)

func lookupTool(name string) protocol.Tool {
	return protocol.Tool{
		Name:        name,
		Description: "lookup: " + name,
		Parameters:  protocol.QueryParameters("topic to look up"),
	}
}

func echoHandler(_ context.Context, args json.RawMessage) (tools.Result, error) {
	return tools.Result{Content: string(args)}, nil
}

func TestRegistry_Register(t *testing.T) {
	tests := []struct {
		name    string
		tool    protocol.Tool
		wantErr error
	}{
		{name: "valid tool", tool: lookupTool("search_valid")},
		{name: "empty name", tool: protocol.Tool{}, wantErr: tools.ErrEmptyName},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tools.NewRegistry()
			err := r.Register(tt.tool, echoHandler)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRegistry_RegisterDuplicate(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(lookupTool("dup"), echoHandler)

	if err := r.Register(lookupTool("dup"), echoHandler); !errors.Is(err, tools.ErrAlreadyExists) {
		t.Errorf("second Register() error = %v, want %v", err, tools.ErrAlreadyExists)
	}
}

func TestRegistry_Replace(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(lookupTool("swap"), echoHandler)

	replaced := func(_ context.Context, _ json.RawMessage) (tools.Result, error) {
		return tools.Result{Content: "replaced"}, nil
	}
	if err := r.Replace(lookupTool("swap"), replaced); err != nil {
		t.Fatalf("Replace() failed: %v", err)
	}

	got := r.Invoke(context.Background(), "swap", nil)
	if got.Content != "replaced" {
		t.Errorf("Invoke() content = %q, want %q", got.Content, "replaced")
	}

	if err := r.Replace(lookupTool("missing"), echoHandler); !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("Replace(missing) error = %v, want %v", err, tools.ErrNotFound)
	}
	if err := r.Replace(protocol.Tool{}, echoHandler); !errors.Is(err, tools.ErrEmptyName) {
		t.Errorf("Replace(empty) error = %v, want %v", err, tools.ErrEmptyName)
	}
}

func TestRegistry_Unregister(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(lookupTool("search_arxiv"), echoHandler)

	if err := r.Unregister("search_arxiv"); err != nil {
		t.Fatalf("Unregister() error = %v", err)
	}
	if _, ok := r.Get("search_arxiv"); ok {
		t.Error("search_arxiv still registered")
	}
	if err := r.Unregister("search_arxiv"); !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("second Unregister() error = %v, want %v", err, tools.ErrNotFound)
	}
	if _, err := r.Definitions("search_arxiv"); !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("Definitions() error = %v, want %v", err, tools.ErrNotFound)
	}
}

func TestRegistry_ListSorted(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(lookupTool("search_videos"), echoHandler)
	r.Register(lookupTool("search_arxiv"), echoHandler)

	list := r.List()
	if len(list) != 2 || list[0].Name != "search_arxiv" || list[1].Name != "search_videos" {
		t.Errorf("List() = %v, want sorted", list)
	}
}

func TestRegistry_Definitions(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(lookupTool("a"), echoHandler)
	r.Register(lookupTool("b"), echoHandler)

	defs, err := r.Definitions("b", "a")
	if err != nil {
		t.Fatalf("Definitions() failed: %v", err)
	}
	if len(defs) != 2 || defs[0].Name != "b" || defs[1].Name != "a" {
		t.Errorf("Definitions() = %v, want [b a]", defs)
	}

	if _, err := r.Definitions("a", "nope"); !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("Definitions(nope) error = %v, want %v", err, tools.ErrNotFound)
	}
}

func TestRegistry_Execute(t *testing.T) {
	r := tools.NewRegistry()
	handlerErr := errors.New("handler failed")
	r.Register(lookupTool("fails"), func(_ context.Context, _ json.RawMessage) (tools.Result, error) {
		return tools.Result{}, handlerErr
	})

	if _, err := r.Execute(context.Background(), "fails", nil); !errors.Is(err, handlerErr) {
		t.Errorf("Execute() error chain does not contain handler error: %v", err)
	}
	if _, err := r.Execute(context.Background(), "unknown", nil); !errors.Is(err, tools.ErrNotFound) {
		t.Errorf("Execute(unknown) error = %v, want %v", err, tools.ErrNotFound)
	}
}

func TestRegistry_InvokeNeverFails(t *testing.T) {
	r := tools.NewRegistry()
	r.Register(lookupTool("errors"), func(_ context.Context, _ json.RawMessage) (tools.Result, error) {
		return tools.Result{}, errors.New("connection refused")
	})
	r.Register(lookupTool("panics"), func(_ context.Context, _ json.RawMessage) (tools.Result, error) {
		panic("nil map")
	})
	r.Register(lookupTool("empty"), func(_ context.Context, _ json.RawMessage) (tools.Result, error) {
		return tools.Result{Content: "  "}, nil
	})
	r.Register(lookupTool("reports"), func(_ context.Context, _ json.RawMessage) (tools.Result, error) {
		return tools.Failure("No papers found for topic: %s", "x"), nil
	})

	tests := []struct {
		name     string
		tool     string
		contains string
	}{
		{name: "unknown tool", tool: "nope", contains: "tool not found"},
		{name: "handler error", tool: "errors", contains: "connection refused"},
		{name: "handler panic", tool: "panics", contains: "nil map"},
		{name: "empty output", tool: "empty", contains: "returned no content"},
		{name: "reported failure", tool: "reports", contains: "No papers found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Invoke(context.Background(), tt.tool, json.RawMessage(`{"query":"x"}`))
			if got.Success() {
				t.Fatalf("Invoke() succeeded, want failure: %+v", got)
			}
			if !strings.Contains(got.Content, tt.contains) {
				t.Errorf("Invoke() content = %q, want it to contain %q", got.Content, tt.contains)
			}
		})
	}
}

func TestDefaultRegistry(t *testing.T) {
	tool := lookupTool("default_echo")
	if err := tools.Register(tool, echoHandler); err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	if _, ok := tools.Get("default_echo"); !ok {
		t.Error("Get() returned exists=false")
	}

	found := false
	for _, def := range tools.List() {
		if def.Name == "default_echo" {
			found = true
		}
	}
	if !found {
		t.Error("List() missing default_echo")
	}

	got := tools.Invoke(context.Background(), "default_echo", json.RawMessage(`{"query":"hi"}`))
	if !got.Success() || got.Content != `{"query":"hi"}` {
		t.Errorf("Invoke() = %+v", got)
	}
}
