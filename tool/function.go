package tool

import (
	"context"

	"github.com/Jon-Arve-Ovesen/agent-zero/core"
)

// FunctionTool exposes a plain Go function as a Tool.
//
// A FunctionTool has no mutable state after construction and is safe for
// concurrent use.
type FunctionTool struct {
	name        string
	description string
	required    []string
	fn          func(ctx context.Context, params core.ContextData) (string, error)
}

// NewFunctionTool wraps fn. The returned string becomes Result.Output; a
// returned error becomes a failed Result. Return a *ToolError to choose the
// failure code.
//
// Example:
//
//	greet := NewFunctionTool("greet", "Greet a user by name", []string{"name"},
//	  func(_ context.Context, p core.ContextData) (string, error) {
//	    return "Hello, " + p["name"].String(), nil
//	  },
//	)
func NewFunctionTool(
	name, description string,
	required []string,
	fn func(ctx context.Context, params core.ContextData) (string, error),
) *FunctionTool {
	return &FunctionTool{
		name:        name,
		description: description,
		required:    append([]string(nil), required...),
		fn:          fn,
	}
}

// Name implements Tool.
func (t *FunctionTool) Name() string { return t.name }

// Description implements Tool.
func (t *FunctionTool) Description() string { return t.description }

// RequiredParameters implements Tool.
func (t *FunctionTool) RequiredParameters() []string {
	return append([]string(nil), t.required...)
}

// Execute implements Tool.
func (t *FunctionTool) Execute(ctx context.Context, params core.ContextData) (Result, error) {
	out, err := t.fn(ctx, params)
	if err != nil {
		return Result{}, err
	}
	return Success(out), nil
}
