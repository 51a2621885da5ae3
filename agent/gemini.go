package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"soil-health-agent/tools"
)

// GeminiModel talks to the Gemini API through the genai SDK.
type GeminiModel struct {
	client *genai.Client
	model  string
	logger *slog.Logger
}

// NewGeminiModel creates a Gemini backend authenticated with apiKey.
func NewGeminiModel(ctx context.Context, apiKey, model string, logger *slog.Logger) (*GeminiModel, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating gemini client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GeminiModel{
		client: client,
		model:  model,
		logger: logger.With("component", "gemini"),
	}, nil
}

func (g *GeminiModel) Provider() string {
	return "gemini"
}

func (g *GeminiModel) Complete(ctx context.Context, messages []Message, toolset []tools.Tool) (*Message, error) {
	system, contents, err := toGeminiContents(messages)
	if err != nil {
		return nil, err
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr[float32](0),
	}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if len(toolset) > 0 {
		config.Tools = []*genai.Tool{{FunctionDeclarations: functionDeclarations(toolset)}}
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return nil, &StatusError{Provider: "gemini", Code: apiErr.Code, Body: apiErr.Message}
		}
		return nil, fmt.Errorf("calling Gemini: %w", err)
	}

	reply, err := fromGeminiResponse(resp)
	if err != nil {
		return nil, err
	}
	g.logger.Debug("response",
		"content", truncate(reply.Content, maxLoggedReply),
		"tool_calls", len(reply.ToolCalls))
	return reply, nil
}

func functionDeclarations(toolset []tools.Tool) []*genai.FunctionDeclaration {
	decls := make([]*genai.FunctionDeclaration, 0, len(toolset))
	for _, tool := range toolset {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:                 tool.Name(),
			Description:          tool.Description(),
			ParametersJsonSchema: tool.Parameters(),
		})
	}
	return decls
}

// toGeminiContents splits out the system prompt and maps the conversation to
// Gemini contents. Consecutive tool results are merged into one user turn,
// which is how Gemini expects parallel function responses.
func toGeminiContents(messages []Message) (string, []*genai.Content, error) {
	var system []string
	var contents []*genai.Content
	lastTool := false

	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system = append(system, msg.Content)
			lastTool = false

		case RoleUser:
			contents = append(contents, genai.NewContentFromText(msg.Content, genai.RoleUser))
			lastTool = false

		case RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, genai.NewPartFromText(msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				args, err := tc.Function.DecodeArguments()
				if err != nil {
					return "", nil, err
				}
				parts = append(parts, &genai.Part{FunctionCall: &genai.FunctionCall{
					ID:   tc.ID,
					Name: tc.Function.Name,
					Args: args,
				}})
			}
			contents = append(contents, genai.NewContentFromParts(parts, genai.RoleModel))
			lastTool = false

		case RoleTool:
			part := &genai.Part{FunctionResponse: &genai.FunctionResponse{
				ID:       msg.ToolCallID,
				Name:     msg.ToolName,
				Response: map[string]any{"output": msg.Content},
			}}
			if lastTool {
				last := contents[len(contents)-1]
				last.Parts = append(last.Parts, part)
			} else {
				contents = append(contents, genai.NewContentFromParts([]*genai.Part{part}, genai.RoleUser))
			}
			lastTool = true

		default:
			return "", nil, fmt.Errorf("unsupported message role %q", msg.Role)
		}
	}

	return strings.Join(system, "\n\n"), contents, nil
}

func fromGeminiResponse(resp *genai.GenerateContentResponse) (*Message, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, ErrNoCandidates
	}

	reply := &Message{Role: RoleAssistant}
	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		if part.FunctionCall != nil {
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, fmt.Errorf("encoding function call arguments: %w", err)
			}
			reply.ToolCalls = append(reply.ToolCalls, ToolCall{
				ID:       part.FunctionCall.ID,
				Type:     "function",
				Function: FunctionCall{Name: part.FunctionCall.Name, Arguments: args},
			})
			continue
		}
		text.WriteString(part.Text)
	}
	reply.Content = text.String()
	return reply, nil
}
