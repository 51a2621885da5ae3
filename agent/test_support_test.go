package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"soil-health-agent/tools"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// step is one scripted model answer.
type step struct {
	reply *Message
	err   error
}

// scriptedModel replays steps in order and records what it was sent.
type scriptedModel struct {
	mu    sync.Mutex
	steps []step
	calls [][]Message
	tools [][]string
}

func (s *scriptedModel) Provider() string {
	return "scripted"
}

func (s *scriptedModel) Complete(_ context.Context, messages []Message, toolset []tools.Tool) (*Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, append([]Message(nil), messages...))
	names := make([]string, len(toolset))
	for i, tool := range toolset {
		names[i] = tool.Name()
	}
	s.tools = append(s.tools, names)

	i := len(s.calls) - 1
	if i >= len(s.steps) {
		return nil, fmt.Errorf("unexpected model call %d", i+1)
	}
	if s.steps[i].err != nil {
		return nil, s.steps[i].err
	}
	reply := *s.steps[i].reply
	return &reply, nil
}

func (s *scriptedModel) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func toolCall(id, name string, args map[string]any) ToolCall {
	raw, err := json.Marshal(args)
	if err != nil {
		panic(err)
	}
	return ToolCall{ID: id, Type: "function", Function: FunctionCall{Name: name, Arguments: raw}}
}

func answer(text string) step {
	return step{reply: &Message{Role: RoleAssistant, Content: text}}
}

func callTools(calls ...ToolCall) step {
	return step{reply: &Message{Role: RoleAssistant, ToolCalls: calls}}
}
