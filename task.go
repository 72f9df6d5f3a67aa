package taskflow

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Handler is the user-defined function signature for task logic.
// It receives resolved inputs and returns the outputs to publish.
type Handler func(ctx *TaskContext, in Inputs) (Values, error)

// Task is the capability the engine drives: identity, declared inputs,
// lifecycle status, accumulated outputs, retry bookkeeping and the body.
// Status transitions and outputs are owned by the engine driving the workflow.
type Task interface {
	// Metadata
	ID() string
	Name() string
	Description() string
	Inputs() []InputDecl
	Config() ExecutionConfig

	// Lifecycle
	Status() TaskStatus
	Outputs() Values
	LastError() *TaskError
	CreatedAt() time.Time
	CompletedAt() Optional[time.Time]

	// Retry bookkeeping
	RetryCount() int
	MaxRetries() int
	CanRetry() bool
	IncrementRetryCount()

	// Execution
	HasRequiredInputs(in Inputs) bool
	Execute(ctx *TaskContext, in Inputs) (Values, error)

	// Engine-driven transitions
	MarkInProgress()
	MarkCompleted(outputs Values, at time.Time)
	MarkFailed(err *TaskError, at time.Time)
	Reset()
}

// FuncTask is the closure-backed Task
type FuncTask struct {
	id          string
	name        string
	description string
	inputs      []InputDecl
	config      ExecutionConfig
	handler     Handler
	createdAt   time.Time

	mu          sync.Mutex
	status      TaskStatus
	outputs     Values
	retryCount  int
	lastErr     *TaskError
	completedAt Optional[time.Time]
}

var _ Task = (*FuncTask)(nil)

// NewTask creates a task backed by handler
func NewTask(name string, handler Handler, opts ...TaskOption) *FuncTask {
	t := &FuncTask{
		id:        uuid.New().String(),
		name:      name,
		config:    DefaultExecutionConfig,
		handler:   handler,
		createdAt: time.Now(),
		status:    TaskStatusPending,
		outputs:   Values{},
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *FuncTask) ID() string {
	return t.id
}

func (t *FuncTask) Name() string {
	return t.name
}

func (t *FuncTask) Description() string {
	return t.description
}

func (t *FuncTask) Inputs() []InputDecl {
	return append([]InputDecl(nil), t.inputs...)
}

func (t *FuncTask) Config() ExecutionConfig {
	return t.config
}

func (t *FuncTask) CreatedAt() time.Time {
	return t.createdAt
}

func (t *FuncTask) Status() TaskStatus {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Outputs returns a copy of everything the task has produced so far
func (t *FuncTask) Outputs() Values {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outputs.Clone()
}

func (t *FuncTask) LastError() *TaskError {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.lastErr
}

func (t *FuncTask) CompletedAt() Optional[time.Time] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.completedAt
}

func (t *FuncTask) RetryCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.retryCount
}

func (t *FuncTask) MaxRetries() int {
	return t.config.MaxRetries
}

// CanRetry reports whether another attempt is allowed
func (t *FuncTask) CanRetry() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.retryCount < t.config.MaxRetries
}

func (t *FuncTask) IncrementRetryCount() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.retryCount++
}

// HasRequiredInputs checks every non-optional declared input resolved to a non-null value
func (t *FuncTask) HasRequiredInputs(in Inputs) bool {
	return HasRequiredInputs(t.inputs, in)
}

// Execute runs the handler, turning a panic into a TaskError
func (t *FuncTask) Execute(ctx *TaskContext, in Inputs) (out Values, err error) {
	if ctx == nil {
		ctx = NewTaskContext(context.Background(), t.name)
	}
	if t.handler == nil {
		return nil, NewTaskError(ErrCodeInternalError, fmt.Sprintf("task %s has no handler", t.name), ctx.Attempt)
	}

	defer func() {
		if r := recover(); r != nil {
			te := NewTaskError(ErrCodePanic, fmt.Sprintf("task panicked: %v", r), ctx.Attempt)
			te.Task = t.name
			out, err = nil, te
		}
	}()

	return t.handler(ctx, in)
}

// MarkInProgress moves the task (back) to IN_PROGRESS for an attempt
func (t *FuncTask) MarkInProgress() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.status = TaskStatusInProgress
}

// MarkCompleted merges outputs and records completion
func (t *FuncTask) MarkCompleted(outputs Values, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for k, v := range outputs {
		t.outputs[k] = v
	}
	t.status = TaskStatusCompleted
	t.lastErr = nil
	t.completedAt = Some(at)
}

// MarkFailed records the terminal failure
func (t *FuncTask) MarkFailed(err *TaskError, at time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = TaskStatusFailed
	t.lastErr = err
	t.completedAt = Some(at)
}

// Reset clears status, outputs, retry count and completion timestamp
func (t *FuncTask) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.status = TaskStatusPending
	t.outputs = Values{}
	t.retryCount = 0
	t.lastErr = nil
	t.completedAt = None[time.Time]()
}

// TaskGroup is a set of tasks run concurrently as one workflow step
type TaskGroup struct {
	name  string
	tasks []Task
}

// NewGroup creates a task group
func NewGroup(name string, tasks ...Task) *TaskGroup {
	return &TaskGroup{
		name:  name,
		tasks: append([]Task(nil), tasks...),
	}
}

// Name returns the group name
func (g *TaskGroup) Name() string {
	return g.name
}

// Tasks returns the member tasks
func (g *TaskGroup) Tasks() []Task {
	return append([]Task(nil), g.tasks...)
}

// Namespace returns the store namespace for a member task
func (g *TaskGroup) Namespace(task Task) string {
	return g.name + "." + task.Name()
}
