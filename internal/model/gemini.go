// Package model adapts the external reasoning oracle to the orchestrator:
// conversation history in, a decision (final text or tool calls) out.
package model

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"dealflow/internal/types"
)

// GeminiConfig configures the Gemini-backed gateway.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// DefaultGeminiConfig returns sensible defaults.
func DefaultGeminiConfig(apiKey string) GeminiConfig {
	return GeminiConfig{
		APIKey:  apiKey,
		Model:   "gemini-2.0-flash",
		Timeout: 2 * time.Minute,
	}
}

// GeminiGateway implements types.ModelGateway against the Gemini API.
type GeminiGateway struct {
	client  *genai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// NewGeminiGateway creates a gateway using the official genai client.
func NewGeminiGateway(ctx context.Context, cfg GeminiConfig, logger *zap.Logger) (*GeminiGateway, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultGeminiConfig("").Model
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultGeminiConfig("").Timeout
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiGateway{
		client:  client,
		model:   cfg.Model,
		timeout: cfg.Timeout,
		logger:  logger,
	}, nil
}

// Decide sends the bounded history plus the tool catalog to Gemini and
// parses the reply into a decision.
func (g *GeminiGateway) Decide(ctx context.Context, history []types.Turn, catalog []types.ToolDefinition) (*types.Decision, error) {
	contents := contentsFromHistory(history)
	if len(contents) == 0 {
		return nil, fmt.Errorf("%w: empty history", ErrModelProtocol)
	}

	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser),
	}
	if decls := declarationsFromCatalog(catalog); len(decls) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(callCtx, g.model, contents, config)
	if err != nil {
		g.logger.Warn("gemini request failed",
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
	}

	decision, err := decodeDecision(resp)
	if err != nil {
		return nil, err
	}

	g.logger.Debug("gemini decision",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("tool_calls", len(decision.ToolCalls)),
		zap.Int("text_len", len(decision.Text)))
	return decision, nil
}

// contentsFromHistory converts stored turns into genai contents. Tool
// requests replay as model function calls, tool results as user function
// responses, so the model can associate outcomes by call id.
func contentsFromHistory(history []types.Turn) []*genai.Content {
	contents := make([]*genai.Content, 0, len(history))
	for _, turn := range history {
		switch turn.Kind {
		case types.TurnUser:
			contents = append(contents, genai.NewContentFromText(turn.Text, genai.RoleUser))
		case types.TurnAssistant:
			contents = append(contents, genai.NewContentFromText(turn.Text, genai.RoleModel))
		case types.TurnToolRequest:
			contents = append(contents, &genai.Content{
				Role: string(genai.RoleModel),
				Parts: []*genai.Part{{
					FunctionCall: &genai.FunctionCall{
						ID:   turn.CallID,
						Name: turn.ToolName,
						Args: turn.Arguments,
					},
				}},
			})
		case types.TurnToolResult:
			response := map[string]any{
				"status": turn.Status,
			}
			if turn.StatusDetail != "" {
				response["status_detail"] = turn.StatusDetail
			}
			for k, v := range turn.Payload {
				response[k] = v
			}
			contents = append(contents, &genai.Content{
				Role: string(genai.RoleUser),
				Parts: []*genai.Part{{
					FunctionResponse: &genai.FunctionResponse{
						ID:       turn.CallID,
						Name:     turn.ToolName,
						Response: response,
					},
				}},
			})
		}
	}
	return contents
}

// decodeDecision translates a raw response into the decision variant.
func decodeDecision(resp *genai.GenerateContentResponse) (*types.Decision, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("%w: no candidates in response", ErrModelProtocol)
	}

	decision := &types.Decision{}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil {
			continue
		}
		if part.Text != "" {
			decision.Text += part.Text
		}
		if fc := part.FunctionCall; fc != nil {
			if fc.Name == "" {
				return nil, fmt.Errorf("%w: function call without a name", ErrModelProtocol)
			}
			decision.ToolCalls = append(decision.ToolCalls, types.ToolCall{
				ID:        fc.ID,
				Name:      fc.Name,
				Arguments: fc.Args,
			})
		}
	}

	if decision.Text == "" && len(decision.ToolCalls) == 0 {
		return nil, fmt.Errorf("%w: response carries neither text nor tool calls", ErrModelProtocol)
	}
	return decision, nil
}

// declarationsFromCatalog converts the tool catalog into genai function
// declarations.
func declarationsFromCatalog(catalog []types.ToolDefinition) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(catalog))
	for _, def := range catalog {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        def.Name,
			Description: def.Description,
			Parameters:  schemaFromParameters(def.Parameters),
		})
	}
	return decls
}

func schemaFromParameters(params types.ParameterSchema) *genai.Schema {
	schema := &genai.Schema{
		Type:       genai.TypeObject,
		Properties: make(map[string]*genai.Schema, len(params.Properties)),
		Required:   params.Required,
	}
	for name, spec := range params.Properties {
		schema.Properties[name] = schemaFromSpec(spec)
	}
	return schema
}

func schemaFromSpec(spec types.ParameterSpec) *genai.Schema {
	out := &genai.Schema{
		Type:        genaiType(spec.Type),
		Description: spec.Description,
		Enum:        spec.Enum,
	}
	if spec.Items != nil {
		out.Items = schemaFromSpec(*spec.Items)
	}
	return out
}

func genaiType(t string) genai.Type {
	switch t {
	case "string":
		return genai.TypeString
	case "number":
		return genai.TypeNumber
	case "integer":
		return genai.TypeInteger
	case "boolean":
		return genai.TypeBoolean
	case "array":
		return genai.TypeArray
	case "object":
		return genai.TypeObject
	default:
		return genai.TypeString
	}
}
