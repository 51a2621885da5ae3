// Package tools provides the tool interface and the data tools used by the soil agent.
package tools

import "context"

// Tool defines the interface that all tools must implement.
type Tool interface {
	// Name returns the unique identifier for this tool.
	Name() string

	// Description returns a human-readable description for the LLM.
	Description() string

	// Parameters returns the JSON schema for the tool's parameters.
	Parameters() map[string]any

	// Execute runs the tool with the given arguments and returns the result.
	// The context should be used for cancellation and timeouts.
	Execute(ctx context.Context, args map[string]any) (string, error)
}

// LocationFunc is a tool body that takes a place name and returns text.
// Failures are reported inside the returned text, never as a Go error.
type LocationFunc func(ctx context.Context, location string) string

// LocationTool adapts a LocationFunc to the Tool interface.
type LocationTool struct {
	name        string
	description string
	fn          LocationFunc
}

// NewLocationTool wraps fn as a tool taking a single "location" argument.
func NewLocationTool(name, description string, fn LocationFunc) *LocationTool {
	return &LocationTool{name: name, description: description, fn: fn}
}

func (t *LocationTool) Name() string {
	return t.name
}

func (t *LocationTool) Description() string {
	return t.description
}

func (t *LocationTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"location": map[string]any{
				"type":        "string",
				"description": "Name of the place, e.g. a city or district",
			},
		},
		"required": []string{"location"},
	}
}

// Execute never returns an error: a missing or non-string location is passed
// through as the empty string and the tool reports on it in its text.
func (t *LocationTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	location, _ := args["location"].(string)
	return t.fn(ctx, location), nil
}
