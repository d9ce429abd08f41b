package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/Jon-Arve-Ovesen/agent-zero/core"
)

// EchoModel is a deterministic offline backend. It answers with a summary of
// the request: agent, model, message and the context it received.
type EchoModel struct {
	name string
}

// NewEchoModel returns an EchoModel reporting name in Info.
func NewEchoModel(name string) *EchoModel { return &EchoModel{name: name} }

// Generate implements Model.
func (m *EchoModel) Generate(ctx context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 1)
	errCh := make(chan error, 1)
	defer close(respCh)
	defer close(errCh)

	if err := ctx.Err(); err != nil {
		errCh <- err
		return respCh, errCh
	}

	modelName := req.Model
	if modelName == "" {
		modelName = m.name
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "Agent '%s' using model '%s' processed message: %s", req.AgentName, modelName, req.Message())
	if len(req.Context) > 0 {
		sb.WriteString(" [Context: ")
		for _, k := range req.Context.Keys() {
			fmt.Fprintf(&sb, "%s=%s ", k, req.Context[k].String())
		}
		sb.WriteString("]")
	}

	respCh <- Response{
		Content:      core.NewTextContent(core.RoleAssistant, sb.String()),
		FinishReason: "stop",
	}
	return respCh, errCh
}

// Info implements Model.
func (m *EchoModel) Info() Info { return Info{Name: m.name, Provider: "echo"} }
