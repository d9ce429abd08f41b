// Package tool lets agents invoke named capabilities (lookups, computations,
// side effects) with context-style parameters and a uniform result shape.
package tool

import (
	"context"
	"fmt"

	"github.com/Jon-Arve-Ovesen/agent-zero/core"
)

// Error codes stored under Result.Metadata["code"] when a call fails.
const (
	CodeNotFound   = "NOT_FOUND"
	CodeValidation = "VALIDATION_ERROR"
	CodeExecution  = "EXECUTION_ERROR"
)

// Tool is a capability an agent can call by name.
//
// Implementations must be safe for concurrent use when registered with a
// Registry shared by several agents.
type Tool interface {
	// Name returns the unique identifier for this tool (snake_case recommended).
	Name() string

	// Description tells a model when and how to use the tool.
	Description() string

	// RequiredParameters lists the parameter keys Execute cannot run without.
	RequiredParameters() []string

	// Execute runs the tool. Parameters have already been checked for the
	// required keys. A returned error is reported as a failed Result.
	Execute(ctx context.Context, params core.ContextData) (Result, error)
}

// Result is the outcome of one tool call.
type Result struct {
	Success  bool              `json:"success"`
	Output   string            `json:"output,omitempty"`
	Error    string            `json:"error,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Success builds a successful Result carrying output.
func Success(output string) Result {
	return Result{Success: true, Output: output}
}

// Failure builds a failed Result with an error code.
func Failure(code, msg string) Result {
	return Result{Error: msg, Metadata: map[string]string{"code": code}}
}

// Code returns the failure code of r, or "" for successful results.
func (r Result) Code() string {
	if r.Success {
		return ""
	}
	return r.Metadata["code"]
}

// ToolError represents errors that occur during tool execution.
type ToolError struct {
	Tool    string `json:"tool"`    // Name of the tool that failed
	Message string `json:"message"` // Error message
	Code    string `json:"code"`    // Error code for categorization
}

func (e *ToolError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("tool error [%s] in %s: %s", e.Code, e.Tool, e.Message)
	}
	return fmt.Sprintf("tool error in %s: %s", e.Tool, e.Message)
}

// NewToolError creates a new ToolError with the specified details.
func NewToolError(tool, message, code string) *ToolError {
	return &ToolError{
		Tool:    tool,
		Message: message,
		Code:    code,
	}
}
