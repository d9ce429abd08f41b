package tool

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Jon-Arve-Ovesen/agent-zero/core"
	"github.com/Jon-Arve-Ovesen/agent-zero/logging"
)

const opRegister = "register_tool"

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	// Logger receives one record per call. Defaults to NoOpLogger.
	Logger logging.Logger
}

// Registry maps tool names to tools. It is safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]Tool
	logger logging.Logger
}

// NewRegistry returns an empty registry.
func NewRegistry(optFns ...func(o *RegistryOptions)) *Registry {
	opts := RegistryOptions{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Registry{tools: make(map[string]Tool), logger: opts.Logger}
}

// Register adds t under t.Name(), replacing any tool with the same name.
// A nil tool or a blank name fails with core.ErrInvalidArgument.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return core.NewError(opRegister, core.ErrInvalidArgument, errors.New("tool is nil"))
	}
	name := t.Name()
	if strings.TrimSpace(name) == "" {
		return core.NewError(opRegister, core.ErrInvalidArgument, errors.New("tool name is empty"))
	}

	r.mu.Lock()
	r.tools[name] = t
	r.mu.Unlock()
	return nil
}

// Unregister removes the named tool and reports whether it was present.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.tools[name]
	delete(r.tools, name)
	return ok
}

// Get returns the named tool.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns the registered names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	r.mu.RUnlock()
	sort.Strings(names)
	return names
}

// Tools returns the registered tools ordered by name.
func (r *Registry) Tools() []Tool {
	names := r.List()
	out := make([]Tool, 0, len(names))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, n := range names {
		if t, ok := r.tools[n]; ok {
			out = append(out, t)
		}
	}
	return out
}

// Execute runs the named tool. It never fails with an error: an unknown
// tool, missing required parameters, an error returned by the tool and a
// panic inside it all produce a failed Result whose Metadata["code"] names
// the cause.
func (r *Registry) Execute(ctx context.Context, name string, params core.ContextData) (res Result) {
	t, ok := r.Get(name)
	if !ok {
		r.logger.Warn("tool.call.not_found", "tool", name)
		return Failure(CodeNotFound, "tool not found: "+name)
	}

	if missing := missingParams(t.RequiredParameters(), params); len(missing) > 0 {
		r.logger.Warn("tool.call.validation_failed", "tool", name, "missing", missing)
		return Failure(CodeValidation, fmt.Sprintf("missing required parameters: %s", strings.Join(missing, ", ")))
	}

	start := time.Now()
	r.logger.Debug("tool.call.start", "tool", name)

	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("tool.call.panic", "tool", name, "panic", p)
			res = Failure(CodeExecution, fmt.Sprintf("tool execution error: %v", p))
		}
	}()

	res, err := t.Execute(ctx, params.Clone())
	if err != nil {
		code := CodeExecution
		msg := err.Error()
		var te *ToolError
		if errors.As(err, &te) {
			if te.Code != "" {
				code = te.Code
			}
			msg = te.Message
		}
		r.logger.Error("tool.call.error", "tool", name, "error", msg)
		return Failure(code, "tool execution error: "+msg)
	}
	if !res.Success && res.Metadata["code"] == "" {
		if res.Metadata == nil {
			res.Metadata = make(map[string]string, 1)
		}
		res.Metadata["code"] = CodeExecution
	}

	r.logger.Info("tool.call.success", "tool", name, "success", res.Success, "duration_ms", time.Since(start).Milliseconds())
	return res
}

func missingParams(required []string, params core.ContextData) []string {
	var missing []string
	for _, k := range required {
		if _, ok := params[k]; !ok && !slices.Contains(missing, k) {
			missing = append(missing, k)
		}
	}
	return missing
}
