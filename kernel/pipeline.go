package kernel

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed pipeline.yaml
var defaultPipeline []byte

// Pipeline is an ordered list of stages. Order is execution order; stages
// never run concurrently or out of order.
type Pipeline struct {
	stages []Stage
}

// NewPipeline builds a Pipeline from stage definitions, rejecting empty
// pipelines and duplicate names.
func NewPipeline(configs ...StageConfig) (*Pipeline, error) {
	if len(configs) == 0 {
		return nil, ErrEmptyPipeline
	}

	p := &Pipeline{stages: make([]Stage, 0, len(configs))}
	seen := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		stage, err := NewStage(cfg)
		if err != nil {
			return nil, err
		}
		if seen[stage.Name()] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateStage, stage.Name())
		}
		seen[stage.Name()] = true
		p.stages = append(p.stages, stage)
	}
	return p, nil
}

// DefaultPipeline returns the study planner: planner_agent, then
// researcher_agent with paper and video lookups, then academic_agent.
func DefaultPipeline() *Pipeline {
	configs, err := DefaultStageConfigs()
	if err != nil {
		panic(err)
	}
	p, err := NewPipeline(configs...)
	if err != nil {
		panic(err)
	}
	return p
}

// DefaultStageConfigs returns the stage definitions of DefaultPipeline.
func DefaultStageConfigs() ([]StageConfig, error) {
	var doc pipelineDocument
	if err := yaml.Unmarshal(defaultPipeline, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse default pipeline: %w", err)
	}
	return doc.Stages, nil
}

type pipelineDocument struct {
	Stages []StageConfig `json:"stages" yaml:"stages"`
}

// LoadPipeline reads stage definitions from a JSON or YAML file.
func LoadPipeline(filename string) (*Pipeline, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read pipeline file: %w", err)
	}

	var doc pipelineDocument
	if err := unmarshalByExt(filename, data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse pipeline file: %w", err)
	}
	return NewPipeline(doc.Stages...)
}

// Stages returns the stages in execution order.
func (p *Pipeline) Stages() []Stage {
	return slices.Clone(p.stages)
}

// Len returns the number of stages.
func (p *Pipeline) Len() int {
	return len(p.stages)
}

// Stage returns the stage with the given name.
func (p *Pipeline) Stage(name string) (Stage, bool) {
	for _, s := range p.stages {
		if s.Name() == name {
			return s, true
		}
	}
	return Stage{}, false
}

// Names returns stage names in execution order.
func (p *Pipeline) Names() []string {
	names := make([]string, len(p.stages))
	for i, s := range p.stages {
		names[i] = s.Name()
	}
	return names
}

func unmarshalByExt(filename string, data []byte, v any) error {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(data, v)
	default:
		return json.Unmarshal(data, v)
	}
}
