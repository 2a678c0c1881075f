package kernel

import (
	"fmt"
	"slices"
	"strings"
)

// StageConfig is the decodable definition of a pipeline stage.
type StageConfig struct {
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Instruction string   `json:"instruction" yaml:"instruction"`
	Tools       []string `json:"tools,omitempty" yaml:"tools,omitempty"`
}

// Stage is one named step of a pipeline: a role instruction and the set of
// tools it may call. A Stage is immutable once built.
type Stage struct {
	name        string
	description string
	instruction string
	tools       []string
}

// NewStage validates cfg and builds a Stage.
func NewStage(cfg StageConfig) (Stage, error) {
	name := strings.TrimSpace(cfg.Name)
	if name == "" {
		return Stage{}, fmt.Errorf("%w: name is required", ErrInvalidStage)
	}
	if strings.TrimSpace(cfg.Instruction) == "" {
		return Stage{}, fmt.Errorf("%w: %s has no instruction", ErrInvalidStage, name)
	}

	var tools []string
	for _, t := range cfg.Tools {
		t = strings.TrimSpace(t)
		if t == "" || slices.Contains(tools, t) {
			continue
		}
		tools = append(tools, t)
	}

	return Stage{
		name:        name,
		description: cfg.Description,
		instruction: strings.TrimSpace(cfg.Instruction),
		tools:       tools,
	}, nil
}

func (s Stage) Name() string        { return s.name }
func (s Stage) Description() string { return s.description }
func (s Stage) Instruction() string { return s.instruction }

// Tools returns the names of the tools this stage may call.
func (s Stage) Tools() []string {
	return slices.Clone(s.tools)
}

// Allows reports whether the stage may call the named tool.
func (s Stage) Allows(tool string) bool {
	return slices.Contains(s.tools, tool)
}

// Config returns the definition the stage was built from.
func (s Stage) Config() StageConfig {
	return StageConfig{
		Name:        s.name,
		Description: s.description,
		Instruction: s.instruction,
		Tools:       s.Tools(),
	}
}
