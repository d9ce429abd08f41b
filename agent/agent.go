package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"unicode"

	"github.com/Jon-Arve-Ovesen/agent-zero/core"
	"github.com/Jon-Arve-Ovesen/agent-zero/internal/util"
	"github.com/Jon-Arve-Ovesen/agent-zero/logging"
	"github.com/Jon-Arve-Ovesen/agent-zero/memory"
	"github.com/Jon-Arve-Ovesen/agent-zero/model"
	"github.com/Jon-Arve-Ovesen/agent-zero/tool"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	opNew        = "new_agent"
	opSetContext = "set_context"
	opProcess    = "process_message"
	opTool       = "execute_tool"
)

var errEmptyMessage = errors.New("message is empty")

// Agent is a named, model-bound entity holding a context and turning
// messages into responses through a completion backend.
//
// All SetContext and ProcessMessage calls on one Agent are serialized: a call
// waits for the previous one to finish. ProcessMessage gives up waiting when
// its context ends. Distinct agents share no state. ProcessMessage never
// changes the context; it stays exactly as last set.
type Agent struct {
	name        string
	modelID     string
	llm         model.Model
	instruction string
	logger      logging.Logger
	timeout     time.Duration
	limiter     *core.ModelLimiter
	rateLimiter *rate.Limiter
	retry       RetryOptions
	memory      memory.Store
	stream      bool
	tools       *tool.Registry

	turn  chan struct{} // one slot; held for the duration of an operation
	state atomic.Int32

	mu      sync.RWMutex // guards context
	context core.ContextData
}

// New creates an agent bound to name and modelID that reaches the
// completion backend through llm.
//
// It fails with core.ErrInvalidArgument when name or modelID is empty or
// contains control characters, when llm is nil, or when the options carry an
// invalid instruction template or initial context. No agent is returned on
// failure.
func New(name, modelID string, llm model.Model, optFns ...func(o *Options)) (*Agent, error) {
	if err := validateIdentifier("name", name); err != nil {
		return nil, err
	}
	if err := validateIdentifier("model", modelID); err != nil {
		return nil, err
	}
	if llm == nil {
		return nil, core.NewError(opNew, core.ErrInvalidArgument, errors.New("completion backend is nil"))
	}

	opts := Options{
		Instruction: fmt.Sprintf("You are %s, a helpful AI assistant.", name),
		Logger:      logging.NoOpLogger{},
		RateBurst:   1,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	initial, err := core.NewContextData(opts.InitialContext)
	if err != nil {
		return nil, core.NewError(opNew, core.ErrInvalidArgument, err)
	}
	if _, err := util.RenderTemplate(opts.Instruction, initial.ToMap()); err != nil {
		return nil, core.NewError(opNew, core.ErrInvalidArgument, fmt.Errorf("instruction template: %w", err))
	}
	if opts.Timeout < 0 || opts.MaxModelCalls < 0 || opts.Retry.MaxRetries < 0 {
		return nil, core.NewError(opNew, core.ErrInvalidArgument, errors.New("negative timeout, call budget or retry count"))
	}
	if opts.Retry.MaxRetries > 0 {
		def := DefaultRetryOptions()
		if opts.Retry.BaseDelay <= 0 {
			opts.Retry.BaseDelay = def.BaseDelay
		}
		if opts.Retry.MaxDelay <= 0 {
			opts.Retry.MaxDelay = def.MaxDelay
		}
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}
	if al, ok := logger.(*logging.AgentLogger); ok {
		logger = al.WithComponent("agent").WithAgent(name)
	}

	a := &Agent{
		name:        name,
		modelID:     modelID,
		llm:         llm,
		instruction: opts.Instruction,
		logger:      logger,
		timeout:     opts.Timeout,
		limiter:     core.NewModelLimiter(opts.MaxModelCalls),
		retry:       opts.Retry,
		memory:      opts.Memory,
		stream:      opts.Stream,
		tools:       opts.Tools,
		turn:        make(chan struct{}, 1),
		context:     initial,
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst <= 0 {
			burst = 1
		}
		a.rateLimiter = rate.NewLimiter(opts.RateLimit, burst)
	}

	a.logger.Debug("agent created", "agent", name, "model", modelID, "backend", llm.Info().Provider)
	return a, nil
}

func validateIdentifier(field, v string) error {
	if strings.TrimSpace(v) == "" {
		return core.NewError(opNew, core.ErrInvalidArgument, fmt.Errorf("%s is empty", field))
	}
	if strings.IndexFunc(v, unicode.IsControl) >= 0 {
		return core.NewError(opNew, core.ErrInvalidArgument, fmt.Errorf("%s contains control characters", field))
	}
	return nil
}

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Model returns the model identifier the agent is bound to.
func (a *Agent) Model() string { return a.modelID }

// Backend describes the completion backend.
func (a *Agent) Backend() model.Info { return a.llm.Info() }

// State returns the lifecycle state.
func (a *Agent) State() core.State { return core.State(a.state.Load()) }

// Context returns a deep copy of the current context.
func (a *Agent) Context() core.ContextData {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.context.Clone()
}

// RemainingCalls reports the backend call budget left (-1 = unlimited).
func (a *Agent) RemainingCalls() int { return a.limiter.Remaining() }

// SetContext replaces the whole context with data. Values must be strings,
// numbers, booleans or nested mappings of those. On error the previous
// context is kept unchanged. A nil map clears the context.
func (a *Agent) SetContext(data map[string]any) error {
	cd, err := core.NewContextData(data)
	if err != nil {
		return core.NewError(opSetContext, core.ErrInvalidArgument, err)
	}
	a.replaceContext(cd)
	return nil
}

// SetContextData is SetContext for already typed values.
func (a *Agent) SetContextData(data core.ContextData) error {
	if err := data.Validate(); err != nil {
		return core.NewError(opSetContext, core.ErrInvalidArgument, err)
	}
	a.replaceContext(data.Clone())
	return nil
}

func (a *Agent) replaceContext(cd core.ContextData) {
	a.turn <- struct{}{}
	defer func() { <-a.turn }()

	a.mu.Lock()
	a.context = cd
	a.mu.Unlock()

	a.logger.Debug("context replaced", "keys", len(cd))
}

// ProcessMessage sends message together with the current context to the
// completion backend and returns its output verbatim.
//
// Errors (match with errors.Is):
//   - core.ErrProcessing: message is empty or whitespace, or the call budget is spent
//   - core.ErrBackendUnavailable: the backend could not be reached
//   - core.ErrBackendError: the backend returned a fault
//   - core.ErrTimeout / core.ErrCancelled: ctx or the configured timeout ended first
//
// The context is never modified.
func (a *Agent) ProcessMessage(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", core.NewError(opProcess, core.ErrProcessing, errEmptyMessage)
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	if err := a.acquire(ctx); err != nil {
		return "", err
	}
	defer func() { <-a.turn }()

	a.state.Store(int32(core.StateProcessing))
	requestID := uuid.NewString()
	snapshot := a.Context()

	resp, err := a.process(ctx, requestID, snapshot, message)
	if err != nil {
		a.state.Store(int32(core.StateError))
		a.logger.Error("message processing failed", "request_id", requestID, "error", err)
		return "", err
	}
	a.state.Store(int32(core.StateCompleted))
	a.logger.Info("message processed", "request_id", requestID, "context_keys", len(snapshot))

	text := resp.Content.Text()
	a.remember(requestID, message, text)
	return text, nil
}

func (a *Agent) acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return core.FromContext(opProcess, err)
	}
	select {
	case a.turn <- struct{}{}:
		return nil
	case <-ctx.Done():
		return core.FromContext(opProcess, ctx.Err())
	}
}

func (a *Agent) process(ctx context.Context, requestID string, snapshot core.ContextData, message string) (model.Response, error) {
	instruction, err := util.RenderTemplate(a.instruction, snapshot.ToMap())
	if err != nil {
		return model.Response{}, core.NewError(opProcess, core.ErrProcessing, fmt.Errorf("instruction template: %w", err))
	}

	req := model.Request{
		AgentName:    a.name,
		Model:        a.modelID,
		Instructions: instruction,
		Context:      snapshot,
		Contents:     []core.Content{core.NewTextContent(core.RoleUser, message)},
		Stream:       a.stream,
		Tools:        a.toolSpecs(),
	}

	var lastErr error
	for attempt := 0; attempt <= a.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := backoffWithJitter(a.retry.BaseDelay, a.retry.MaxDelay, attempt-1)
			a.logger.Warn("retrying unavailable backend", "request_id", requestID, "attempt", attempt, "delay", delay)
			if err := sleepCtx(ctx, delay); err != nil {
				return model.Response{}, core.FromContext(opProcess, err)
			}
		}

		resp, err := a.call(ctx, req)
		if err == nil {
			return resp, nil
		}
		if !errors.Is(err, core.ErrBackendUnavailable) {
			return model.Response{}, err
		}
		lastErr = err
	}
	return model.Response{}, lastErr
}

// call performs one backend call within the budget and rate limits.
func (a *Agent) call(ctx context.Context, req model.Request) (model.Response, error) {
	if err := a.limiter.Acquire(); err != nil {
		return model.Response{}, core.NewError(opProcess, core.ErrProcessing, err)
	}
	if a.rateLimiter != nil {
		if err := a.rateLimiter.Wait(ctx); err != nil {
			a.limiter.Release()
			if cerr := core.FromContext(opProcess, ctx.Err()); cerr != nil {
				return model.Response{}, cerr
			}
			// Wait fails early when the deadline cannot be met
			return model.Response{}, core.NewError(opProcess, core.ErrTimeout, err)
		}
	}

	start := time.Now()
	resp, err := model.Complete(ctx, a.llm, req)
	err = a.classify(ctx, err)

	tokens := 0
	if resp.Usage != nil {
		tokens = resp.Usage.TotalTokens
	}
	if rec, ok := a.logger.(logging.CallRecorder); ok {
		rec.LogLLMCall(a.modelID, tokens, time.Since(start), err == nil, err)
	}
	return resp, err
}

// classify wraps backend failures with the operation while keeping their kind.
// Unclassified errors count as backend faults.
func (a *Agent) classify(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return core.FromContext(opProcess, ctx.Err())
	}
	if cerr := core.FromContext(opProcess, err); cerr != nil {
		return cerr
	}
	kind := core.KindOf(err)
	if kind == nil {
		kind = core.ErrBackendError
	}
	return core.NewError(opProcess, kind, err)
}

func (a *Agent) toolSpecs() []model.ToolSpec {
	if a.tools == nil {
		return nil
	}
	var specs []model.ToolSpec
	for _, t := range a.tools.Tools() {
		specs = append(specs, model.ToolSpec{
			Name:        t.Name(),
			Description: t.Description(),
			Required:    t.RequiredParameters(),
		})
	}
	return specs
}

// ExecuteTool runs the named tool from the agent's registry with params.
// Parameters follow the same rules as SetContext. Tool failures, including
// an unknown name, come back as a failed Result rather than an error; the
// error is reserved for a missing registry, invalid params and an ended ctx.
// The agent context is never modified.
func (a *Agent) ExecuteTool(ctx context.Context, name string, params map[string]any) (tool.Result, error) {
	if a.tools == nil {
		return tool.Result{}, core.NewError(opTool, core.ErrInvalidArgument, errors.New("agent has no tools"))
	}
	cd, err := core.NewContextData(params)
	if err != nil {
		return tool.Result{}, core.NewError(opTool, core.ErrInvalidArgument, err)
	}
	if err := ctx.Err(); err != nil {
		return tool.Result{}, core.FromContext(opTool, err)
	}

	res := a.tools.Execute(ctx, name, cd)
	if res.Success {
		a.logger.Info("tool executed", "tool", name)
	} else {
		a.logger.Warn("tool failed", "tool", name, "code", res.Code(), "error", res.Error)
	}
	return res, nil
}

func (a *Agent) remember(requestID, message, response string) {
	if a.memory == nil {
		return
	}
	content := fmt.Sprintf("%s: %s\n%s: %s", core.RoleUser, message, core.RoleAssistant, response)
	_, err := a.memory.Save(content, map[string]string{
		"category":   "exchange",
		"agent":      a.name,
		"model":      a.modelID,
		"request_id": requestID,
	})
	if err != nil {
		a.logger.Warn("failed to store exchange", "request_id", requestID, "error", err)
	}
}
