// Package agent implements the agent core: a named, model-bound entity that
// holds a context and turns messages into responses through a completion
// backend (model.Model).
//
// An Agent owns three pieces of state:
//
//  1. Identity (name and model identifier), fixed at construction
//  2. Context, a flat mapping of keys to strings, numbers, booleans or nested
//     mappings, replaced wholesale by SetContext
//  3. Lifecycle state (idle, processing, completed, error)
//
// Operations on one Agent are serialized; distinct agents share nothing and
// may be used from different goroutines freely.
//
// Construction uses functional options:
//
//	a, err := agent.New("NodeAgent", "gpt-4", llm, func(o *agent.Options) {
//		o.Timeout = 30 * time.Second
//		o.Retry = agent.DefaultRetryOptions()
//	})
//
// Failures are reported as *core.Error values carrying one of the core
// sentinel kinds, so callers branch with errors.Is.
package agent
