// Package kernel runs the study-planning pipeline: an ordered list of
// stages, each a generation loop that may call tools, folded one after
// another over a shared conversation.
//
// The kernel initializes from configuration via New, creating all subsystems
// internally. Functional options allow test overrides of any subsystem.
//
//	k, err := kernel.New(&cfg)
//	result, err := k.Run(ctx, "Photosynthesis, grade 7", kernel.WithAPIKey(key))
//
// A stage never fails the run. Generation errors, empty output and runaway
// tool loops leave a fallback entry instead, so a pipeline of K stages
// always yields K+1 conversation entries. Only a cancelled context ends a
// run early.
package kernel

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tailored-agentic-units/studyplan/agent"
	"github.com/tailored-agentic-units/studyplan/core/config"
	"github.com/tailored-agentic-units/studyplan/core/protocol"
	"github.com/tailored-agentic-units/studyplan/memory"
	"github.com/tailored-agentic-units/studyplan/observability"
	orchestrate "github.com/tailored-agentic-units/studyplan/orchestrate/config"
	"github.com/tailored-agentic-units/studyplan/orchestrate/workflows"
	"github.com/tailored-agentic-units/studyplan/session"
	"github.com/tailored-agentic-units/studyplan/tools"
)

// Option configures a Kernel after config-driven initialization.
// Overrides replace config-created defaults.
type Option func(*Kernel)

// WithAgent uses a fixed agent for every run instead of building one per
// run from the provider registry.
func WithAgent(a agent.Agent) Option {
	return func(k *Kernel) { k.agent = a }
}

// WithAgentRegistry overrides the provider registry used to build agents.
func WithAgentRegistry(r *agent.Registry) Option {
	return func(k *Kernel) { k.providers = r }
}

// WithTools overrides the default tool registry.
func WithTools(r *tools.Registry) Option {
	return func(k *Kernel) { k.tools = r }
}

// WithPipeline overrides the configured pipeline.
func WithPipeline(p *Pipeline) Option {
	return func(k *Kernel) { k.pipeline = p }
}

// WithMemoryStore overrides the config-created memory store.
func WithMemoryStore(s memory.Store) Option {
	return func(k *Kernel) { k.store = s }
}

// WithObserver overrides the config-resolved observer.
func WithObserver(o observability.Observer) Option {
	return func(k *Kernel) { k.observer = o }
}

// Kernel executes a Pipeline. It holds no per-run state and is safe for
// concurrent runs.
type Kernel struct {
	agent     agent.Agent
	providers *agent.Registry
	agentCfg  config.AgentConfig
	pipeline  *Pipeline
	tools     *tools.Registry
	store     memory.Store
	cache     *memory.Cache
	observer  observability.Observer
	history   session.Config
	chain     orchestrate.ChainConfig

	maxToolIterations int
}

// New creates a Kernel from configuration. Options are applied after
// initialization and can override any subsystem. Every tool named by a
// stage must be present in the tool registry.
func New(cfg *Config, opts ...Option) (*Kernel, error) {
	store, err := memory.NewStore(&cfg.Memory)
	if err != nil {
		return nil, fmt.Errorf("failed to create memory store: %w", err)
	}

	observer, err := observability.Resolve(cfg.Observers...)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve observers: %w", err)
	}

	k := &Kernel{
		providers:         agent.Default(),
		agentCfg:          cfg.Agent.Clone(),
		tools:             tools.Default(),
		store:             store,
		observer:          observer,
		history:           cfg.Session,
		chain:             cfg.Chain,
		maxToolIterations: cfg.MaxToolIterations,
	}
	if k.maxToolIterations <= 0 {
		k.maxToolIterations = defaultMaxToolIterations
	}

	for _, opt := range opts {
		opt(k)
	}

	if k.pipeline == nil {
		if k.pipeline, err = cfg.Pipeline(); err != nil {
			return nil, fmt.Errorf("failed to build pipeline: %w", err)
		}
	}

	for _, stage := range k.pipeline.stages {
		if _, err := k.tools.Definitions(stage.tools...); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrUnknownTool, stage.Name(), err)
		}
	}

	if k.store != nil {
		k.cache = memory.NewCache(k.store)
	}

	return k, nil
}

// Pipeline returns the pipeline the kernel runs.
func (k *Kernel) Pipeline() *Pipeline {
	return k.pipeline
}

// Memory returns the instruction override cache, or nil when memory is
// disabled.
func (k *Kernel) Memory() *memory.Cache {
	return k.cache
}

// Run executes every stage in order for prompt and returns the assembled
// outcome. The returned Result is never nil.
func (k *Kernel) Run(ctx context.Context, prompt string, opts ...RunOption) (*Result, error) {
	var ro runOptions
	for _, opt := range opts {
		opt(&ro)
	}

	start := time.Now()
	result := &Result{}

	a, err := k.resolveAgent(ro)
	if err != nil {
		return result, err
	}

	conv := ro.session
	if conv == nil {
		conv = session.NewMemorySession()
	}

	st := &runState{
		prior:  k.history.History(conv),
		result: result,
	}
	st.append(protocol.NewMessage(protocol.RoleUser, prompt))
	conv.AddMessage(st.entries[0])

	k.loadOverrides(ctx)

	k.observer.OnEvent(ctx, observability.NewEvent(EventRunStart, observability.LevelInfo, "kernel.Run", map[string]any{
		"session":       conv.ID(),
		"prompt_length": len(prompt),
		"stages":        k.pipeline.Len(),
	}))

	chainCfg := k.chain.WithObserver(k.chainObserver())
	_, chainErr := workflows.ProcessChain(ctx, chainCfg, k.pipeline.stages, st,
		func(ctx context.Context, stage Stage, st *runState) (*runState, error) {
			outcome := k.runStage(ctx, a, stage, st, ro.emit)
			entry := protocol.NewAuthoredMessage(stage.Name(), outcome.Text)
			st.append(entry)
			st.result.Stages = append(st.result.Stages, outcome)
			conv.AddMessage(entry)
			ro.emit(StepEvent{Kind: StepStageOutput, Stage: stage.Name(), Text: outcome.Text, Err: outcome.Err})
			return st, nil
		}, nil)

	result.finish()

	k.observer.OnEvent(ctx, observability.NewEvent(EventRunComplete, observability.LevelInfo, "kernel.Run", map[string]any{
		"session":                 conv.ID(),
		"stages_completed":        len(result.Stages),
		"degraded_stages":         result.Degraded(),
		"tool_calls":              len(result.ToolCalls),
		observability.KeyError:    chainErr != nil,
		observability.KeyDuration: time.Since(start),
	}))

	if chainErr != nil {
		return result, chainErr
	}
	return result, nil
}

func (k *Kernel) resolveAgent(ro runOptions) (agent.Agent, error) {
	if k.agent != nil {
		return k.agent, nil
	}
	var opts []agent.Option
	if ro.apiKey != "" {
		opts = append(opts, agent.WithAPIKey(ro.apiKey))
	}
	a, err := k.providers.New(&k.agentCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent: %w", err)
	}
	return a, nil
}

func (k *Kernel) chainObserver() observability.Observer {
	if o, err := k.chain.ResolveObserver(); err == nil {
		return o
	}
	return k.observer
}

// loadOverrides refreshes stage instruction overrides. A store failure
// keeps whatever was cached before and is only reported.
func (k *Kernel) loadOverrides(ctx context.Context) {
	if k.cache == nil {
		return
	}
	if err := k.cache.Bootstrap(ctx, memory.NamespaceAgents+"/"); err != nil {
		k.observer.OnEvent(ctx, observability.NewEvent(EventMemoryError, observability.LevelWarning, "kernel.Run", map[string]any{
			observability.KeyError: err,
		}))
	}
}

// instruction returns the stage instruction, or its memory override.
func (k *Kernel) instruction(stage Stage) string {
	if k.cache != nil {
		if v, ok := k.cache.Get(memory.AgentKey(stage.Name())); ok {
			if text := strings.TrimSpace(string(v)); text != "" {
				return text
			}
		}
	}
	return stage.Instruction()
}
