package executor

import (
	"context"
	"errors"
	"fmt"

	"github.com/Jon-Arve-Ovesen/agent-zero/core"
)

// MessageProcessor is the part of an agent the executor drives.
type MessageProcessor interface {
	Name() string
	ProcessMessage(ctx context.Context, message string) (string, error)
}

// SubmitMessage queues p.ProcessMessage(message). The task output is the
// agent's response. Each agent still serializes its own operations, so
// several tasks for one agent run one after another.
func (e *Executor) SubmitMessage(p MessageProcessor, message string, prio Priority) (string, error) {
	if p == nil {
		return "", core.NewError(opSubmit, core.ErrInvalidArgument, errors.New("message processor is nil"))
	}
	desc := fmt.Sprintf("%s: %s", p.Name(), summarize(message, 40))
	return e.Submit(desc, func(ctx context.Context) (string, error) {
		return p.ProcessMessage(ctx, message)
	}, prio)
}

func summarize(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
