package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"soil-health-agent/tools"
)

const (
	ollamaTimeout    = 120 * time.Second // LLM responses can be slow
	maxLoggedReply   = 500
	parsedToolCallID = "parsed"
)

// OllamaModel talks to Ollama's /api/chat endpoint.
type OllamaModel struct {
	model  string
	url    string
	client *http.Client
	logger *slog.Logger
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []Message        `json:"messages"`
	Tools    []map[string]any `json:"tools,omitempty"`
	Stream   bool             `json:"stream"`
	Options  map[string]any   `json:"options,omitempty"`
}

type chatResponse struct {
	Message Message `json:"message"`
}

// NewOllamaModel creates a backend for the given model and chat URL.
func NewOllamaModel(model, url string, logger *slog.Logger) *OllamaModel {
	if logger == nil {
		logger = slog.Default()
	}
	return &OllamaModel{
		model: model,
		url:   url,
		client: &http.Client{
			Timeout: ollamaTimeout,
		},
		logger: logger.With("component", "ollama"),
	}
}

func (o *OllamaModel) Provider() string {
	return "ollama"
}

func (o *OllamaModel) Complete(ctx context.Context, messages []Message, toolset []tools.Tool) (*Message, error) {
	reqBody := chatRequest{
		Model:    o.model,
		Messages: messages,
		Tools:    tools.OllamaFormat(toolset),
		Stream:   false,
		Options:  map[string]any{"temperature": 0},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling Ollama: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Provider: "ollama", Code: resp.StatusCode, Body: string(body)}
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return nil, fmt.Errorf("parsing response: %w", err)
	}

	reply := chatResp.Message
	o.logger.Debug("response",
		"role", reply.Role,
		"content", truncate(reply.Content, maxLoggedReply),
		"tool_calls", len(reply.ToolCalls))

	if len(reply.ToolCalls) == 0 {
		recoverTextToolCall(&reply)
	}
	return &reply, nil
}

// recoverTextToolCall turns an XML-style call that some local models print
// as text, e.g. <function=get_soil_npk><parameter=location>Pune</parameter>,
// into a structured tool call. Text it cannot parse is replaced with a
// notice so the markup never reaches the user.
func recoverTextToolCall(reply *Message) {
	idx := strings.Index(reply.Content, "<function=")
	if idx == -1 {
		return
	}

	name, args, ok := parseXMLToolCall(reply.Content[idx:])
	before := strings.TrimSpace(reply.Content[:idx])
	if !ok {
		if before == "" {
			before = "I tried to call a tool but encountered an issue. Please try rephrasing your request."
		}
		reply.Content = before
		return
	}

	encoded, err := json.Marshal(args)
	if err != nil {
		return
	}
	reply.Content = before
	reply.ToolCalls = []ToolCall{{
		ID:       parsedToolCallID,
		Type:     "function",
		Function: FunctionCall{Name: name, Arguments: encoded},
	}}
}

// parseXMLToolCall extracts the tool name and parameters from content that
// starts with "<function=".
func parseXMLToolCall(content string) (string, map[string]any, bool) {
	rest := strings.TrimPrefix(content, "<function=")
	nameEnd := strings.Index(rest, ">")
	if nameEnd <= 0 {
		return "", nil, false
	}
	name := rest[:nameEnd]
	rest = rest[nameEnd+1:]

	const open, closing = "<parameter=", "</parameter>"
	args := make(map[string]any)
	for {
		start := strings.Index(rest, open)
		if start == -1 {
			break
		}
		rest = rest[start+len(open):]

		keyEnd := strings.Index(rest, ">")
		if keyEnd == -1 {
			break
		}
		key := rest[:keyEnd]
		rest = rest[keyEnd+1:]

		valueEnd := strings.Index(rest, closing)
		if valueEnd == -1 {
			break
		}
		args[key] = strings.TrimSpace(rest[:valueEnd])
		rest = rest[valueEnd+len(closing):]
	}

	if len(args) == 0 {
		return "", nil, false
	}
	return name, args, true
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
