package agent

import (
	"context"
	"math/rand"
	"time"

	"github.com/Jon-Arve-Ovesen/agent-zero/logging"
	"github.com/Jon-Arve-Ovesen/agent-zero/memory"
	"github.com/Jon-Arve-Ovesen/agent-zero/tool"
	"golang.org/x/time/rate"
)

// RetryOptions controls exponential backoff retry of unavailable backends.
type RetryOptions struct {
	MaxRetries int           // max retry attempts (0 = no retry)
	BaseDelay  time.Duration // initial backoff delay
	MaxDelay   time.Duration // maximum backoff delay
}

// DefaultRetryOptions returns the retry policy used when retries are enabled
// without explicit delays.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxRetries: 2,
		BaseDelay:  500 * time.Millisecond,
		MaxDelay:   5 * time.Second,
	}
}

// Options configures an Agent instance.
//
// Use functional options with New to override defaults.
type Options struct {
	// Instruction is the system instruction. It may reference context keys
	// with text/template syntax, e.g. "You help {{.user}}".
	Instruction string
	// Logger receives lifecycle and call records. Defaults to NoOpLogger.
	Logger logging.Logger
	// Timeout bounds each ProcessMessage call, including waiting for the
	// agent and all retries. Zero means no deadline beyond the caller's.
	Timeout time.Duration
	// MaxModelCalls caps backend calls over the agent's lifetime (0 = unlimited).
	MaxModelCalls int
	// RateLimit caps backend calls per second (0 = unlimited).
	RateLimit rate.Limit
	// RateBurst is the token bucket size used with RateLimit (default 1).
	RateBurst int
	// Retry configures retries of unavailable backends.
	Retry RetryOptions
	// InitialContext is validated and installed as the starting context.
	InitialContext map[string]any
	// Memory, when set, receives every successful exchange.
	Memory memory.Store
	// Stream asks the backend for incremental output. ProcessMessage still
	// returns a single response.
	Stream bool
	// Tools, when set, are advertised to the backend with every request and
	// can be run through ExecuteTool. A registry may be shared by agents.
	Tools *tool.Registry
}

// backoffWithJitter computes delay = min(base * 2^attempt, max) + jitter(±25%).
func backoffWithJitter(base, max time.Duration, attempt int) time.Duration {
	delay := base << uint(attempt) // base * 2^attempt
	if delay > max || delay <= 0 {
		delay = max
	}

	// Jitter: ±25% of delay
	quarter := delay / 4
	if quarter > 0 {
		jitter := time.Duration(rand.Int63n(int64(quarter*2))) - quarter
		delay += jitter
	}

	return delay
}

// sleepCtx waits for d or until ctx ends.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
