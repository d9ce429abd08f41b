package core

import (
	"sync"
	"testing"
)

func TestModelLimiter_Budget(t *testing.T) {
	l := NewModelLimiter(2)
	if l.Remaining() != 2 {
		t.Fatalf("Remaining = %d, want 2", l.Remaining())
	}
	for i := 0; i < 2; i++ {
		if err := l.Acquire(); err != nil {
			t.Fatalf("Acquire %d: %v", i, err)
		}
	}
	if err := l.Acquire(); err == nil {
		t.Fatal("Acquire beyond budget should fail")
	}
	if l.Count() != 2 || l.Remaining() != 0 {
		t.Errorf("failed Acquire consumed budget: count=%d remaining=%d", l.Count(), l.Remaining())
	}

	l.Release()
	if l.Remaining() != 1 {
		t.Errorf("Release did not return budget: %d", l.Remaining())
	}
}

func TestModelLimiter_Unlimited(t *testing.T) {
	l := NewModelLimiter(0)
	for i := 0; i < 100; i++ {
		if err := l.Acquire(); err != nil {
			t.Fatal(err)
		}
	}
	if l.Remaining() != -1 || l.Count() != 100 {
		t.Errorf("unlimited limiter: remaining=%d count=%d", l.Remaining(), l.Count())
	}
	l = NewModelLimiter(0)
	l.Release()
	if l.Count() != 0 {
		t.Error("Release below zero")
	}
}

func TestModelLimiter_Concurrent(t *testing.T) {
	l := NewModelLimiter(50)
	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Acquire() == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if ok != 50 {
		t.Errorf("granted %d calls, want 50", ok)
	}
}

func TestState_String(t *testing.T) {
	cases := map[State]string{
		StateIdle:       "idle",
		StateProcessing: "processing",
		StateError:      "error",
		StateCompleted:  "completed",
		State(99):       "unknown",
	}
	for s, want := range cases {
		if s.String() != want {
			t.Errorf("%d.String() = %q, want %q", s, s.String(), want)
		}
	}
}

func TestContent_Text(t *testing.T) {
	c := Content{Role: RoleAssistant, Parts: []Part{TextPart{Text: "a"}, TextPart{Text: "b"}}}
	if c.Text() != "ab" {
		t.Errorf("Text() = %q", c.Text())
	}
	if NewTextContent(RoleUser, "hi").Role != RoleUser {
		t.Error("NewTextContent role")
	}
}
