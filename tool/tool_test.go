package tool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/Jon-Arve-Ovesen/agent-zero/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool() *FunctionTool {
	return NewFunctionTool("echo", "Echo the text parameter", []string{"text"},
		func(_ context.Context, p core.ContextData) (string, error) {
			return p["text"].String(), nil
		},
	)
}

// reportingTool returns a Result directly instead of going through FunctionTool.
type reportingTool struct{ res Result }

func (reportingTool) Name() string                 { return "report" }
func (reportingTool) Description() string          { return "" }
func (reportingTool) RequiredParameters() []string { return nil }
func (r reportingTool) Execute(context.Context, core.ContextData) (Result, error) {
	return r.res, nil
}

func TestFunctionTool(t *testing.T) {
	required := []string{"text"}
	ft := NewFunctionTool("echo", "Echo it", required, func(context.Context, core.ContextData) (string, error) {
		return "ok", nil
	})
	required[0] = "changed"

	assert.Equal(t, "echo", ft.Name())
	assert.Equal(t, "Echo it", ft.Description())
	assert.Equal(t, []string{"text"}, ft.RequiredParameters())

	res, err := ft.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, Success("ok"), res)
	assert.Empty(t, res.Code())
}

func TestToolError(t *testing.T) {
	assert.Equal(t, "tool error [QUOTA] in search: limit reached", NewToolError("search", "limit reached", "QUOTA").Error())
	assert.Equal(t, "tool error in search: boom", NewToolError("search", "boom", "").Error())
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	r := NewRegistry()

	err := r.Register(nil)
	assert.ErrorIs(t, err, core.ErrInvalidArgument)
	err = r.Register(NewFunctionTool(" ", "blank", nil, nil))
	assert.ErrorIs(t, err, core.ErrInvalidArgument)

	require.NoError(t, r.Register(echoTool()))
	require.NoError(t, r.Register(reportingTool{}))
	assert.Equal(t, []string{"echo", "report"}, r.List())

	got, ok := r.Get("echo")
	require.True(t, ok)
	assert.Equal(t, "Echo the text parameter", got.Description())
	assert.Len(t, r.Tools(), 2)

	// re-registering replaces
	require.NoError(t, r.Register(NewFunctionTool("echo", "v2", nil, nil)))
	got, _ = r.Get("echo")
	assert.Equal(t, "v2", got.Description())

	assert.True(t, r.Unregister("echo"))
	assert.False(t, r.Unregister("echo"))
	_, ok = r.Get("echo")
	assert.False(t, ok)
	assert.Equal(t, []string{"report"}, r.List())
}

func TestRegistry_Execute(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))
	require.NoError(t, r.Register(NewFunctionTool("fail", "", nil, func(context.Context, core.ContextData) (string, error) {
		return "", errors.New("disk full")
	})))
	require.NoError(t, r.Register(NewFunctionTool("quota", "", nil, func(context.Context, core.ContextData) (string, error) {
		return "", NewToolError("quota", "limit reached", "QUOTA")
	})))
	require.NoError(t, r.Register(NewFunctionTool("panic", "", nil, func(context.Context, core.ContextData) (string, error) {
		panic("nil map write")
	})))

	tests := []struct {
		name     string
		tool     string
		params   core.ContextData
		want     Result
		wantCode string
	}{
		{
			name:   "success",
			tool:   "echo",
			params: core.ContextData{"text": core.StringValue("hi")},
			want:   Success("hi"),
		},
		{
			name:     "unknown tool",
			tool:     "missing",
			want:     Failure(CodeNotFound, "tool not found: missing"),
			wantCode: CodeNotFound,
		},
		{
			name:     "missing parameter",
			tool:     "echo",
			params:   core.ContextData{"other": core.StringValue("x")},
			want:     Failure(CodeValidation, "missing required parameters: text"),
			wantCode: CodeValidation,
		},
		{
			name:     "returned error",
			tool:     "fail",
			want:     Failure(CodeExecution, "tool execution error: disk full"),
			wantCode: CodeExecution,
		},
		{
			name:     "tool error keeps code",
			tool:     "quota",
			want:     Failure("QUOTA", "tool execution error: limit reached"),
			wantCode: "QUOTA",
		},
		{
			name:     "panic",
			tool:     "panic",
			want:     Failure(CodeExecution, "tool execution error: nil map write"),
			wantCode: CodeExecution,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Execute(context.Background(), tt.tool, tt.params)
			assert.Equal(t, tt.want, res)
			assert.Equal(t, tt.wantCode, res.Code())
		})
	}
}

func TestRegistry_ExecuteFailedResultGetsCode(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(reportingTool{res: Result{Error: "nothing found"}}))

	res := r.Execute(context.Background(), "report", nil)
	assert.False(t, res.Success)
	assert.Equal(t, "nothing found", res.Error)
	assert.Equal(t, CodeExecution, res.Code())
}

func TestRegistry_ExecuteIsolatesParams(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(NewFunctionTool("mutate", "", nil, func(_ context.Context, p core.ContextData) (string, error) {
		p["injected"] = core.BoolValue(true)
		return "", nil
	})))

	params := core.ContextData{"a": core.NumberValue(1)}
	r.Execute(context.Background(), "mutate", params)
	assert.Equal(t, []string{"a"}, params.Keys())
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoTool()))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i
		wg.Add(2)
		go func() {
			defer wg.Done()
			res := r.Execute(context.Background(), "echo", core.ContextData{"text": core.StringValue("x")})
			assert.True(t, res.Success)
		}()
		go func() {
			defer wg.Done()
			name := fmt.Sprintf("t%d", i)
			assert.NoError(t, r.Register(NewFunctionTool(name, "", nil, nil)))
			r.Unregister(name)
		}()
	}
	wg.Wait()
	assert.Equal(t, []string{"echo"}, r.List())
}
