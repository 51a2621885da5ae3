// Package agent provides the agentic loop that connects the LLM to tools.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"soil-health-agent/metrics"
	"soil-health-agent/tools"
)

const maxToolCalls = 20

// Agent handles conversations with the LLM and executes tool calls.
type Agent struct {
	model    ChatModel
	registry *tools.Registry
	logger   *slog.Logger
	metrics  *metrics.Metrics
}

// Options carries the optional collaborators of an Agent.
type Options struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

// ToolCallRecord is one tool invocation made during a run.
type ToolCallRecord struct {
	Name      string
	Arguments map[string]any
	Result    string
}

// Result is the outcome of a run.
type Result struct {
	RunID  string
	Output string
	Trace  []ToolCallRecord
}

// Called reports whether the run invoked the named tool.
func (r *Result) Called(name string) bool {
	for _, call := range r.Trace {
		if call.Name == name {
			return true
		}
	}
	return false
}

// New creates a new Agent with the given model and tool registry.
func New(model ChatModel, registry *tools.Registry, opts Options) *Agent {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{
		model:    model,
		registry: registry,
		logger:   logger.With("component", "agent"),
		metrics:  opts.Metrics,
	}
}

// Run asks the model for soil-health recommendations for location.
func (a *Agent) Run(ctx context.Context, location string) (*Result, error) {
	return a.run(ctx, InitialMessage(location))
}

// Chat sends a free-form message and handles any tool calls in a loop.
func (a *Agent) Chat(ctx context.Context, userMessage string) (string, error) {
	result, err := a.run(ctx, userMessage)
	if err != nil {
		return "", err
	}
	return result.Output, nil
}

func (a *Agent) run(ctx context.Context, input string) (*Result, error) {
	result := &Result{RunID: uuid.NewString()}
	logger := a.logger.With("run_id", result.RunID)

	messages := []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: input},
	}
	toolset := a.registry.All()

	logger.Info("run started", "provider", a.model.Provider(), "tools", a.registry.Names())

	for i := 0; i < maxToolCalls; i++ {
		reply, err := a.model.Complete(ctx, messages, toolset)
		if err != nil {
			return result, fmt.Errorf("calling %s: %w", a.model.Provider(), err)
		}

		logger.Debug("model reply",
			"content_len", len(reply.Content),
			"tool_calls", len(reply.ToolCalls))

		if len(reply.ToolCalls) == 0 {
			output := strings.TrimSpace(reply.Content)
			if output == "" {
				return result, ErrEmptyResponse
			}
			result.Output = output
			logger.Info("run finished", "iterations", i+1, "tool_calls", len(result.Trace))
			return result, nil
		}

		reply.Role = RoleAssistant
		messages = append(messages, *reply)

		for _, tc := range reply.ToolCalls {
			record := a.executeTool(ctx, logger, tc)
			result.Trace = append(result.Trace, record)

			messages = append(messages, Message{
				Role:       RoleTool,
				Content:    record.Result,
				ToolCallID: tc.ID,
				ToolName:   tc.Function.Name,
			})
		}
	}

	return result, fmt.Errorf("%w (%d)", ErrMaxToolCalls, maxToolCalls)
}

// executeTool runs one call. Every failure becomes "Error: ..." text so the
// model can reason about it.
func (a *Agent) executeTool(ctx context.Context, logger *slog.Logger, tc ToolCall) ToolCallRecord {
	record := ToolCallRecord{Name: tc.Function.Name}

	args, err := tc.Function.DecodeArguments()
	if err != nil {
		record.Result = fmt.Sprintf("Error: %v", err)
		a.metrics.ToolCall(tc.Function.Name, metrics.OutcomeError)
		return record
	}
	record.Arguments = args

	tool, ok := a.registry.Get(tc.Function.Name)
	if !ok {
		logger.Warn("model requested unknown tool", "tool", tc.Function.Name)
		record.Result = fmt.Sprintf("Error: unknown tool: %s", tc.Function.Name)
		a.metrics.ToolCall(tc.Function.Name, metrics.OutcomeError)
		return record
	}

	logger.Info("executing tool", "tool", tc.Function.Name, "args", args)

	output, err := tool.Execute(ctx, args)
	if err != nil {
		output = fmt.Sprintf("Error: %v", err)
	}
	record.Result = output

	outcome := metrics.OutcomeOK
	if strings.HasPrefix(output, "Error:") {
		outcome = metrics.OutcomeError
	}
	a.metrics.ToolCall(tc.Function.Name, outcome)
	logger.Debug("tool finished", "tool", tc.Function.Name, "outcome", outcome, "result_len", len(output))

	return record
}
