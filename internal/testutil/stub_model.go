package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Jon-Arve-Ovesen/agent-zero/core"
	"github.com/Jon-Arve-Ovesen/agent-zero/model"
)

// Failure selects how a StubModel fails.
type Failure int

const (
	// FailNone makes the stub answer normally.
	FailNone Failure = iota
	// FailUnavailable simulates an unreachable backend.
	FailUnavailable
	// FailFault simulates a backend returning a fault.
	FailFault
	// FailRaw returns an unclassified error.
	FailRaw
)

// ErrStub is the cause attached to simulated failures.
var ErrStub = errors.New("stub failure")

// StubModel records every request and answers with a rendering of the
// message and the context it received. Failures can be scripted per call.
type StubModel struct {
	mu       sync.Mutex
	requests []model.Request
	failure  Failure
	failN    int // remaining calls to fail, <0 means until reset
	delay    time.Duration
	reply    func(model.Request) string
}

// NewStubModel returns a StubModel that echoes context.
func NewStubModel() *StubModel { return &StubModel{} }

// FailWith makes the next n calls fail (n < 0: until Recover).
func (s *StubModel) FailWith(f Failure, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failure = f
	s.failN = n
}

// Recover clears any scripted failure.
func (s *StubModel) Recover() { s.FailWith(FailNone, 0) }

// SetDelay makes every call block for d or until its context ends.
func (s *StubModel) SetDelay(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = d
}

// SetReply overrides the reply function.
func (s *StubModel) SetReply(fn func(model.Request) string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reply = fn
}

// Requests returns a copy of the recorded requests.
func (s *StubModel) Requests() []model.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.Request(nil), s.requests...)
}

// LastRequest returns the most recent request.
func (s *StubModel) LastRequest() (model.Request, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return model.Request{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// Calls returns the number of recorded requests.
func (s *StubModel) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// EchoContext renders "message | k=v k2=v2".
func EchoContext(req model.Request) string {
	return fmt.Sprintf("%s | %s", req.Message(), req.Context.String())
}

// Generate implements model.Model.
func (s *StubModel) Generate(ctx context.Context, req model.Request) (<-chan model.Response, <-chan error) {
	respCh := make(chan model.Response, 1)
	errCh := make(chan error, 1)

	s.mu.Lock()
	req.Context = req.Context.Clone()
	s.requests = append(s.requests, req)
	failure := s.failure
	if failure != FailNone && s.failN > 0 {
		s.failN--
		if s.failN == 0 {
			s.failure = FailNone
		}
	}
	delay := s.delay
	reply := s.reply
	s.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if delay > 0 {
			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case <-time.After(delay):
			}
		}

		switch failure {
		case FailUnavailable:
			errCh <- model.Unavailable(ErrStub)
			return
		case FailFault:
			errCh <- model.Fault(ErrStub)
			return
		case FailRaw:
			errCh <- ErrStub
			return
		}

		text := EchoContext(req)
		if reply != nil {
			text = reply(req)
		}
		respCh <- model.Response{
			Content:      core.NewTextContent(core.RoleAssistant, text),
			FinishReason: "stop",
			Usage:        &model.TokenUsage{TotalTokens: len(text)},
		}
	}()
	return respCh, errCh
}

// Info implements model.Model.
func (s *StubModel) Info() model.Info { return model.Info{Name: "stub", Provider: "test"} }
