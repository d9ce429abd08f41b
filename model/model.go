package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/Jon-Arve-Ovesen/agent-zero/core"
)

// Request captures the normalized model input produced by an agent.
type Request struct {
	AgentName    string           `json:"agent_name,omitempty"` // Name of the calling agent
	Model        string           `json:"model"`                // Model identifier the agent is bound to
	Instructions string           `json:"instructions"`         // Instructions for the model
	Context      core.ContextData `json:"context,omitempty"`    // Agent context at the time of the call
	Contents     []core.Content   `json:"contents"`             // Conversation turns, last one is the input message
	Stream       bool             `json:"stream,omitempty"`     // Ask the backend for incremental chunks
	Tools        []ToolSpec       `json:"tools,omitempty"`      // Tools the agent can run on the model's behalf
}

// ToolSpec describes a tool offered to the model.
type ToolSpec struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Required    []string `json:"required,omitempty"`
}

// Message returns the text of the last user content.
func (r Request) Message() string {
	for i := len(r.Contents) - 1; i >= 0; i-- {
		if r.Contents[i].Role == core.RoleUser {
			return r.Contents[i].Text()
		}
	}
	return ""
}

// SystemPrompt joins the instructions with a deterministic rendering of the
// context and the offered tools so that every backend receives them.
func (r Request) SystemPrompt() string {
	var sections []string
	if r.Instructions != "" {
		sections = append(sections, r.Instructions)
	}
	if len(r.Context) > 0 {
		var sb strings.Builder
		sb.WriteString("Context:")
		for _, k := range r.Context.Keys() {
			fmt.Fprintf(&sb, "\n- %s=%s", k, r.Context[k].String())
		}
		sections = append(sections, sb.String())
	}
	if len(r.Tools) > 0 {
		var sb strings.Builder
		sb.WriteString("Tools:")
		for _, t := range r.Tools {
			fmt.Fprintf(&sb, "\n- %s: %s", t.Name, t.Description)
			if len(t.Required) > 0 {
				fmt.Fprintf(&sb, " (requires: %s)", strings.Join(t.Required, ", "))
			}
		}
		sections = append(sections, sb.String())
	}
	return strings.Join(sections, "\n\n")
}

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string       `json:"id"`
	Partial      bool         `json:"partial"` // Indicates if this is a partial response
	Content      core.Content `json:"content"`
	FinishReason string       `json:"finish_reason"` // "stop", "length", etc.
	Usage        *TokenUsage  `json:"usage,omitempty"`
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "echo", ...
}

// Model is the completion capability agents call to turn a request into a
// response. Implementations emit zero or more partial chunks followed by one
// final (Partial == false) chunk, or deliver a single error on the error
// channel. Both channels are closed when generation ends.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// Collect drains the channels returned by Generate and returns the final
// response. Partial text chunks are concatenated when the backend never
// emits a final chunk carrying text.
func Collect(ctx context.Context, respCh <-chan Response, errCh <-chan error) (Response, error) {
	var (
		final    *Response
		partials strings.Builder
	)
	for respCh != nil || errCh != nil {
		select {
		case <-ctx.Done():
			return Response{}, ctx.Err()
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if r.Partial {
				partials.WriteString(r.Content.Text())
				continue
			}
			rr := r
			final = &rr
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		}
	}
	if final == nil {
		if partials.Len() == 0 {
			return Response{}, Fault(fmt.Errorf("model produced no response"))
		}
		return Response{Content: core.NewTextContent(core.RoleAssistant, partials.String()), FinishReason: "stop"}, nil
	}
	if final.Content.Text() == "" && partials.Len() > 0 {
		final.Content = core.NewTextContent(core.RoleAssistant, partials.String())
	}
	return *final, nil
}

// Emit sends r on out unless ctx ends first. It reports whether r was sent;
// producers stop when it returns false.
func Emit(ctx context.Context, out chan<- Response, r Response) bool {
	select {
	case out <- r:
		return true
	case <-ctx.Done():
		return false
	}
}

// Complete runs a single Generate call to completion.
func Complete(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)
	return Collect(ctx, respCh, errCh)
}

// MockModel is a lightweight in‑memory Model useful for tests & examples.
type MockModel struct {
	info      Info
	responses map[string]string
}

// NewMockModel constructs a MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info:      Info{Name: name, Provider: provider},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) { m.responses[prompt] = response }

// Generate implements Model; emits optional streaming char chunks then final response.
func (m *MockModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	go func() {
		defer close(respCh)
		defer close(errCh)
		if len(req.Contents) == 0 {
			errCh <- Fault(fmt.Errorf("no contents provided"))
			return
		}
		inputText := req.Message()
		full := m.responses[inputText]
		if full == "" {
			full = fmt.Sprintf("Mock response to: %s", inputText)
		}
		if req.Stream {
			for _, r := range full {
				if !Emit(ctx, respCh, Response{
					Partial: true,
					Content: core.NewTextContent(core.RoleAssistant, string(r)),
				}) {
					errCh <- ctx.Err()
					return
				}
			}
		}
		Emit(ctx, respCh, Response{
			Content:      core.NewTextContent(core.RoleAssistant, full),
			FinishReason: "stop",
		})
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
