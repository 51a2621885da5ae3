package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"soil-health-agent/tools"
)

// Message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message represents a chat message in the conversation.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
}

// ToolCall represents a tool invocation requested by the LLM.
type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Type     string       `json:"type,omitempty"`
	Function FunctionCall `json:"function"`
}

// FunctionCall contains the function name and arguments.
type FunctionCall struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// DecodeArguments returns the call arguments as a map. Both a JSON object
// and a JSON string holding an object are accepted, since providers differ.
func (f FunctionCall) DecodeArguments() (map[string]any, error) {
	raw := bytes.TrimSpace(f.Arguments)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return map[string]any{}, nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil, fmt.Errorf("parsing tool arguments: %w", err)
		}
		raw = []byte(encoded)
	}

	args := map[string]any{}
	if err := json.Unmarshal(raw, &args); err != nil {
		return nil, fmt.Errorf("parsing tool arguments: %w", err)
	}
	return args, nil
}

// ChatModel is a language model backend able to request tool calls.
type ChatModel interface {
	// Provider names the backend for logs and metrics.
	Provider() string

	// Complete sends the conversation and the available tools and returns
	// the assistant's next message.
	Complete(ctx context.Context, messages []Message, toolset []tools.Tool) (*Message, error)
}
