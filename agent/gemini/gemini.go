// Package gemini implements agent.Agent over the Gemini API.
package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"google.golang.org/genai"

	"github.com/tailored-agentic-units/studyplan/agent"
	"github.com/tailored-agentic-units/studyplan/core/config"
	"github.com/tailored-agentic-units/studyplan/core/protocol"
	"github.com/tailored-agentic-units/studyplan/core/response"
)

// ProviderName is the registry name of this provider.
const ProviderName = "gemini"

func init() {
	if err := agent.Register(ProviderName, New); err != nil {
		panic(err)
	}
}

type generationOptions struct {
	Temperature     *float64 `mapstructure:"temperature"`
	TopP            *float64 `mapstructure:"top_p"`
	MaxOutputTokens int      `mapstructure:"max_output_tokens"`
}

// Agent calls Gemini models with function calling enabled.
type Agent struct {
	client *genai.Client
	model  string
	opts   generationOptions
}

// New creates an Agent bound to the credential in opts.
func New(cfg *config.AgentConfig, opts agent.Options) (agent.Agent, error) {
	if opts.APIKey == "" {
		return nil, agent.ErrMissingAPIKey
	}

	cc := &genai.ClientConfig{
		APIKey:     opts.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: opts.HTTPClient,
	}
	if cfg.Provider != nil && cfg.Provider.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.Provider.BaseURL
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout.Std()
		cc.HTTPOptions.Timeout = &timeout
	}

	var gen generationOptions
	if cfg.Model != nil && len(cfg.Model.Options) > 0 {
		if err := mapstructure.WeakDecode(cfg.Model.Options, &gen); err != nil {
			return nil, fmt.Errorf("invalid model options: %w", err)
		}
	}

	client, err := genai.NewClient(context.Background(), cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &Agent{client: client, model: cfg.ModelName(), opts: gen}, nil
}

func (a *Agent) Tools(ctx context.Context, messages []protocol.Message, tools []protocol.Tool) (*response.ToolsResponse, error) {
	system, contents := toContents(messages)

	gc := &genai.GenerateContentConfig{SystemInstruction: system}
	if len(tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:                 t.Name,
				Description:          t.Description,
				ParametersJsonSchema: t.Parameters,
			})
		}
		gc.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}
	if a.opts.Temperature != nil {
		gc.Temperature = genai.Ptr(float32(*a.opts.Temperature))
	}
	if a.opts.TopP != nil {
		gc.TopP = genai.Ptr(float32(*a.opts.TopP))
	}
	if a.opts.MaxOutputTokens > 0 {
		gc.MaxOutputTokens = int32(a.opts.MaxOutputTokens)
	}

	resp, err := a.client.Models.GenerateContent(ctx, a.model, contents, gc)
	if err != nil {
		return nil, fmt.Errorf("generate content: %w", err)
	}

	return fromResponse(a.model, resp)
}

func toContents(messages []protocol.Message) (*genai.Content, []*genai.Content) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))

	for _, m := range messages {
		switch m.Role {
		case protocol.RoleSystem:
			system = append(system, m.Content)
		case protocol.RoleAssistant:
			parts := make([]*genai.Part, 0, len(m.ToolCalls)+1)
			if m.Content != "" {
				parts = append(parts, genai.NewPartFromText(m.Content))
			}
			for _, tc := range m.ToolCalls {
				var args map[string]any
				if len(tc.Arguments) > 0 {
					_ = json.Unmarshal(tc.Arguments, &args)
				}
				part := genai.NewPartFromFunctionCall(tc.Name, args)
				part.FunctionCall.ID = tc.ID
				parts = append(parts, part)
			}
			if len(parts) > 0 {
				contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			}
		case protocol.RoleTool:
			part := genai.NewPartFromFunctionResponse(m.ToolName, map[string]any{"output": m.Content})
			part.FunctionResponse.ID = m.ToolCallID
			contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}

	if len(system) == 0 {
		return nil, contents
	}
	return genai.NewContentFromText(strings.Join(system, "\n\n"), genai.RoleUser), contents
}

func fromResponse(model string, resp *genai.GenerateContentResponse) (*response.ToolsResponse, error) {
	out := &response.ToolsResponse{ID: resp.ResponseID, Model: model}
	if resp.ModelVersion != "" {
		out.Model = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		out.Usage = &response.TokenUsage{
			PromptTokens:     int(u.PromptTokenCount),
			CompletionTokens: int(u.CandidatesTokenCount),
			TotalTokens:      int(u.TotalTokenCount),
		}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return out, nil
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		switch {
		case part.FunctionCall != nil:
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, fmt.Errorf("encode function call args: %w", err)
			}
			out.ToolCalls = append(out.ToolCalls, protocol.ToolCall{
				ID:        part.FunctionCall.ID,
				Name:      part.FunctionCall.Name,
				Arguments: args,
			})
		case part.Text != "" && !part.Thought:
			text.WriteString(part.Text)
		}
	}
	out.Content = text.String()

	return out, nil
}
