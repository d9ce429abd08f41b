// Package executor runs agent work in the background on a bounded pool of
// workers. Pending tasks start in priority order, oldest first within one
// priority, and can be inspected, cancelled or held back with Pause.
package executor

import (
	"container/heap"
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Jon-Arve-Ovesen/agent-zero/core"
	"github.com/Jon-Arve-Ovesen/agent-zero/logging"
	"golang.org/x/sync/semaphore"
)

const (
	opSubmit   = "submit_task"
	opCancel   = "cancel_task"
	opStatus   = "task_status"
	opShutdown = "shutdown"
)

var (
	// ErrTaskNotFound is wrapped by lookups of unknown task IDs.
	ErrTaskNotFound = errors.New("task not found")
	// ErrShutdown is wrapped by Submit after Shutdown.
	ErrShutdown = errors.New("executor is shut down")
)

// Func is the unit of work. It must return when ctx ends.
type Func func(ctx context.Context) (string, error)

// Options configures an Executor.
type Options struct {
	// Workers bounds concurrently running tasks. Defaults to runtime.NumCPU().
	Workers int
	// Logger receives task lifecycle records. Defaults to NoOpLogger.
	Logger logging.Logger
}

// TaskInfo is a snapshot of a task.
type TaskInfo struct {
	ID          string
	Description string
	Priority    Priority
	Status      Status
	Output      string
	Err         error
	SubmittedAt time.Time
	StartedAt   time.Time
	FinishedAt  time.Time
}

type task struct {
	info   TaskInfo
	fn     Func
	seq    uint64
	index  int // position in the queue, -1 once removed
	cancel context.CancelFunc
	done   chan struct{}
}

// Executor is a priority worker pool. It is safe for concurrent use.
type Executor struct {
	logger logging.Logger
	sem    *semaphore.Weighted

	runCtx    context.Context // parent of every task context
	abortRuns context.CancelFunc
	stopCtx   context.Context // ends the dispatcher
	stop      context.CancelFunc
	stopped   chan struct{}

	wake    chan struct{}
	seq     atomic.Uint64
	running sync.WaitGroup

	mu     sync.Mutex
	tasks  map[string]*task
	queue  taskQueue
	paused bool
	closed bool
}

// New starts an executor. Call Shutdown to release its goroutines.
func New(optFns ...func(o *Options)) *Executor {
	opts := Options{
		Workers: runtime.NumCPU(),
		Logger:  logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	logger := opts.Logger
	if al, ok := logger.(*logging.AgentLogger); ok {
		logger = al.WithComponent("executor")
	}

	e := &Executor{
		logger:  logger,
		sem:     semaphore.NewWeighted(int64(opts.Workers)),
		stopped: make(chan struct{}),
		wake:    make(chan struct{}, 1),
		tasks:   make(map[string]*task),
	}
	e.runCtx, e.abortRuns = context.WithCancel(context.Background())
	e.stopCtx, e.stop = context.WithCancel(context.Background())

	go e.dispatch()
	return e
}

// Submit queues fn and returns its task ID ("task_1", "task_2", ...).
func (e *Executor) Submit(description string, fn Func, prio Priority) (string, error) {
	if fn == nil {
		return "", core.NewError(opSubmit, core.ErrInvalidArgument, errors.New("task function is nil"))
	}
	if !prio.valid() {
		return "", core.NewError(opSubmit, core.ErrInvalidArgument, fmt.Errorf("unknown priority %d", prio))
	}

	seq := e.seq.Add(1)
	t := &task{
		info: TaskInfo{
			ID:          fmt.Sprintf("task_%d", seq),
			Description: description,
			Priority:    prio,
			Status:      StatusPending,
			SubmittedAt: time.Now(),
		},
		fn:   fn,
		seq:  seq,
		done: make(chan struct{}),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return "", core.NewError(opSubmit, core.ErrProcessing, ErrShutdown)
	}
	e.tasks[t.info.ID] = t
	heap.Push(&e.queue, t)
	e.mu.Unlock()

	e.signal()
	e.logger.Debug("task submitted", "task", t.info.ID, "priority", prio.String())
	return t.info.ID, nil
}

// Cancel stops a task. A pending task never runs and is marked cancelled at
// once; a running task has its context cancelled and is marked cancelled
// when it returns. Finished tasks are left as they are.
func (e *Executor) Cancel(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	t, ok := e.tasks[id]
	if !ok {
		return core.NewError(opCancel, core.ErrInvalidArgument, fmt.Errorf("%w: %s", ErrTaskNotFound, id))
	}
	switch t.info.Status {
	case StatusPending:
		heap.Remove(&e.queue, t.index)
		e.finishLocked(t, StatusCancelled, "", context.Canceled)
		e.logger.Debug("pending task cancelled", "task", id)
	case StatusRunning:
		t.cancel()
		e.logger.Debug("running task cancelled", "task", id)
	}
	return nil
}

// Status reports the current status of a task.
func (e *Executor) Status(id string) (Status, error) {
	info, err := e.Task(id)
	return info.Status, err
}

// Task returns a snapshot of a task.
func (e *Executor) Task(id string) (TaskInfo, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	t, ok := e.tasks[id]
	if !ok {
		return TaskInfo{}, core.NewError(opStatus, core.ErrInvalidArgument, fmt.Errorf("%w: %s", ErrTaskNotFound, id))
	}
	return t.info, nil
}

// Wait blocks until the task has finished or ctx ends.
func (e *Executor) Wait(ctx context.Context, id string) (TaskInfo, error) {
	e.mu.Lock()
	t, ok := e.tasks[id]
	e.mu.Unlock()
	if !ok {
		return TaskInfo{}, core.NewError(opStatus, core.ErrInvalidArgument, fmt.Errorf("%w: %s", ErrTaskNotFound, id))
	}

	select {
	case <-t.done:
		return e.Task(id)
	case <-ctx.Done():
		return TaskInfo{}, core.FromContext(opStatus, ctx.Err())
	}
}

// Pending lists tasks that have not started, in the order they will start.
func (e *Executor) Pending() []TaskInfo {
	e.mu.Lock()
	queued := make([]*task, len(e.queue))
	copy(queued, e.queue)
	e.mu.Unlock()

	sort.Slice(queued, func(i, j int) bool { return queued[i].before(queued[j]) })
	out := make([]TaskInfo, len(queued))
	for i, t := range queued {
		out[i] = t.info
	}
	return out
}

// Pause stops pending tasks from starting. Running tasks are unaffected.
func (e *Executor) Pause() {
	e.mu.Lock()
	e.paused = true
	e.mu.Unlock()
	e.logger.Info("executor paused")
}

// Resume lets pending tasks start again.
func (e *Executor) Resume() {
	e.mu.Lock()
	e.paused = false
	e.mu.Unlock()
	e.signal()
	e.logger.Info("executor resumed")
}

// Paused reports whether the executor is paused.
func (e *Executor) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// Shutdown stops accepting tasks, cancels pending ones and waits for running
// tasks to finish. When ctx ends first the running tasks are cancelled and
// the context error is returned. Shutdown may be called more than once.
func (e *Executor) Shutdown(ctx context.Context) error {
	e.mu.Lock()
	if !e.closed {
		e.closed = true
		for e.queue.Len() > 0 {
			t := heap.Pop(&e.queue).(*task)
			e.finishLocked(t, StatusCancelled, "", context.Canceled)
		}
	}
	e.mu.Unlock()

	e.stop()
	<-e.stopped

	idle := make(chan struct{})
	go func() {
		e.running.Wait()
		close(idle)
	}()

	select {
	case <-idle:
		e.abortRuns()
		e.logger.Info("executor shut down")
		return nil
	case <-ctx.Done():
		e.abortRuns()
		e.logger.Warn("executor shutdown interrupted, running tasks cancelled")
		return core.FromContext(opShutdown, ctx.Err())
	}
}

func (e *Executor) signal() {
	select {
	case e.wake <- struct{}{}:
	default:
	}
}

func (e *Executor) dispatch() {
	defer close(e.stopped)
	for {
		if err := e.sem.Acquire(e.stopCtx, 1); err != nil {
			return
		}
		t, ctx := e.next()
		if t == nil {
			e.sem.Release(1)
			return
		}
		go e.run(ctx, t)
	}
}

// next blocks until a task may start and marks it running.
func (e *Executor) next() (*task, context.Context) {
	for {
		e.mu.Lock()
		if e.closed {
			e.mu.Unlock()
			return nil, nil
		}
		if !e.paused && e.queue.Len() > 0 {
			t := heap.Pop(&e.queue).(*task)
			ctx, cancel := context.WithCancel(e.runCtx)
			t.cancel = cancel
			t.info.Status = StatusRunning
			t.info.StartedAt = time.Now()
			e.running.Add(1)
			e.mu.Unlock()
			return t, ctx
		}
		e.mu.Unlock()

		select {
		case <-e.wake:
		case <-e.stopCtx.Done():
			return nil, nil
		}
	}
}

func (e *Executor) run(ctx context.Context, t *task) {
	defer e.running.Done()
	defer e.sem.Release(1)

	e.logger.Debug("task started", "task", t.info.ID)
	out, err := call(ctx, t.fn)

	status := StatusCompleted
	switch {
	case err != nil && ctx.Err() != nil:
		status = StatusCancelled
	case err != nil:
		status = StatusFailed
	}
	t.cancel()

	e.mu.Lock()
	e.finishLocked(t, status, out, err)
	e.mu.Unlock()

	if status == StatusCompleted {
		e.logger.Info("task completed", "task", t.info.ID, "duration_ms", t.info.FinishedAt.Sub(t.info.StartedAt).Milliseconds())
	} else {
		e.logger.Warn("task did not complete", "task", t.info.ID, "status", status.String(), "error", err)
	}
}

func call(ctx context.Context, fn Func) (out string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = core.NewError("execute_task", core.ErrProcessing, fmt.Errorf("panic: %v", p))
		}
	}()
	return fn(ctx)
}

func (e *Executor) finishLocked(t *task, status Status, out string, err error) {
	t.info.Status = status
	t.info.Output = out
	t.info.Err = err
	t.info.FinishedAt = time.Now()
	close(t.done)
}
