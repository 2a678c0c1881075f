package kernel_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/tailored-agentic-units/studyplan/kernel"
)

func TestNewStage(t *testing.T) {
	tests := []struct {
		name    string
		cfg     kernel.StageConfig
		wantErr error
	}{
		{"valid", kernel.StageConfig{Name: "planner", Instruction: "plan"}, nil},
		{"missing name", kernel.StageConfig{Instruction: "plan"}, kernel.ErrInvalidStage},
		{"blank name", kernel.StageConfig{Name: "  ", Instruction: "plan"}, kernel.ErrInvalidStage},
		{"missing instruction", kernel.StageConfig{Name: "planner"}, kernel.ErrInvalidStage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := kernel.NewStage(tt.cfg)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestStage_ToolsDeduplicated(t *testing.T) {
	s, err := kernel.NewStage(kernel.StageConfig{
		Name:        "researcher",
		Instruction: "research",
		Tools:       []string{"search_arxiv", "", "search_arxiv", " search_videos "},
	})
	if err != nil {
		t.Fatalf("NewStage failed: %v", err)
	}

	got := s.Tools()
	if len(got) != 2 || got[0] != "search_arxiv" || got[1] != "search_videos" {
		t.Errorf("Tools() = %v", got)
	}
	if !s.Allows("search_videos") || s.Allows("google_search") {
		t.Error("Allows does not match the capability set")
	}

	got[0] = "mutated"
	if s.Tools()[0] != "search_arxiv" {
		t.Error("Tools() exposed internal slice")
	}
}

func TestNewPipeline(t *testing.T) {
	if _, err := kernel.NewPipeline(); !errors.Is(err, kernel.ErrEmptyPipeline) {
		t.Errorf("empty: got %v, want %v", err, kernel.ErrEmptyPipeline)
	}

	_, err := kernel.NewPipeline(
		kernel.StageConfig{Name: "a", Instruction: "x"},
		kernel.StageConfig{Name: "a", Instruction: "y"},
	)
	if !errors.Is(err, kernel.ErrDuplicateStage) {
		t.Errorf("duplicate: got %v, want %v", err, kernel.ErrDuplicateStage)
	}
}

func TestDefaultPipeline(t *testing.T) {
	p := kernel.DefaultPipeline()

	want := []string{"planner_agent", "researcher_agent", "academic_agent"}
	got := p.Names()
	if len(got) != len(want) {
		t.Fatalf("Names() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("stage %d = %q, want %q", i, got[i], want[i])
		}
	}

	researcher, ok := p.Stage("researcher_agent")
	if !ok {
		t.Fatal("researcher_agent missing")
	}
	if !researcher.Allows("search_arxiv") || !researcher.Allows("search_videos") {
		t.Errorf("researcher tools = %v", researcher.Tools())
	}

	planner, _ := p.Stage("planner_agent")
	if len(planner.Tools()) != 0 {
		t.Errorf("planner should not have tools, got %v", planner.Tools())
	}
}

func TestLoadPipeline(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "pipeline.yaml")
	os.WriteFile(yamlPath, []byte(`stages:
  - name: outline
    instruction: Outline the topic.
  - name: quiz
    instruction: Write three questions.
    tools: [search_arxiv]
`), 0o644)

	p, err := kernel.LoadPipeline(yamlPath)
	if err != nil {
		t.Fatalf("LoadPipeline(yaml) failed: %v", err)
	}
	if p.Len() != 2 || p.Stages()[1].Name() != "quiz" || !p.Stages()[1].Allows("search_arxiv") {
		t.Errorf("unexpected pipeline %v", p.Names())
	}

	jsonPath := filepath.Join(dir, "pipeline.json")
	os.WriteFile(jsonPath, []byte(`{"stages":[{"name":"only","instruction":"do it"}]}`), 0o644)

	p, err = kernel.LoadPipeline(jsonPath)
	if err != nil {
		t.Fatalf("LoadPipeline(json) failed: %v", err)
	}
	if p.Len() != 1 {
		t.Errorf("Len() = %d, want 1", p.Len())
	}

	if _, err := kernel.LoadPipeline(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}
