package taskflow

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// TaskContext provides rich context to task handlers
type TaskContext struct {
	context.Context

	// Execution metadata
	WorkflowID   string
	WorkflowName string
	TaskName     string
	Group        string
	Attempt      int

	// Logger (enriched with task context)
	Logger zerolog.Logger

	// Read-only access to outputs of earlier steps
	Outputs OutputReader

	// Custom context (user-defined, set on the workflow)
	CustomContext any
}

// NewTaskContext creates a bare context for running a task outside the engine
func NewTaskContext(ctx context.Context, taskName string) *TaskContext {
	return &TaskContext{
		Context:  ctx,
		TaskName: taskName,
		Logger:   zerolog.Nop(),
		Outputs:  NewOutputStore(),
	}
}

// GetContext retrieves the custom context from the task context
func GetContext[T any](ctx *TaskContext) (T, error) {
	var zero T
	if ctx.CustomContext == nil {
		return zero, fmt.Errorf("custom context is nil")
	}

	val, ok := ctx.CustomContext.(T)
	if !ok {
		return zero, fmt.Errorf("custom context is not of type %T", zero)
	}
	return val, nil
}

// GetOutput reads an earlier step's output by store key
func (c *TaskContext) GetOutput(key string) (Value, bool) {
	if c.Outputs == nil {
		return Null(), false
	}
	return c.Outputs.Lookup(key).Get()
}
