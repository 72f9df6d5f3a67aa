package builder

import (
	"fmt"

	"github.com/sicko7947/taskflow"
)

// WorkflowBuilder provides a fluent API for building workflows
type WorkflowBuilder struct {
	name       string
	components []taskflow.Component
	options    []taskflow.WorkflowOption
}

// NewWorkflow creates a new workflow builder
func NewWorkflow(name string, opts ...WorkflowOption) *WorkflowBuilder {
	b := &WorkflowBuilder{
		name:       name,
		components: []taskflow.Component{},
	}
	ApplyOptions(b, opts...)
	return b
}

// WithDescription sets the workflow description
func (b *WorkflowBuilder) WithDescription(description string) *WorkflowBuilder {
	b.options = append(b.options, taskflow.WithWorkflowDescription(description))
	return b
}

// WithID fixes the workflow instance ID instead of generating one
func (b *WorkflowBuilder) WithID(id string) *WorkflowBuilder {
	b.options = append(b.options, taskflow.WithWorkflowID(id))
	return b
}

// WithContext sets the custom context handed to every task
func (b *WorkflowBuilder) WithContext(ctx any) *WorkflowBuilder {
	b.options = append(b.options, taskflow.WithContext(ctx))
	return b
}

// Then appends a single task step after the last added step
func (b *WorkflowBuilder) Then(task taskflow.Task) *WorkflowBuilder {
	b.components = append(b.components, taskflow.TaskComponent(task))
	return b
}

// Sequence adds multiple task steps in order
func (b *WorkflowBuilder) Sequence(tasks ...taskflow.Task) *WorkflowBuilder {
	for _, task := range tasks {
		b.Then(task)
	}
	return b
}

// Group appends one step whose tasks run concurrently. Members see only the
// outputs of earlier steps, never each other's.
func (b *WorkflowBuilder) Group(name string, tasks ...taskflow.Task) *WorkflowBuilder {
	b.components = append(b.components, taskflow.GroupComponent(taskflow.NewGroup(name, tasks...)))
	return b
}

// Build finalizes and validates the workflow
func (b *WorkflowBuilder) Build() (*taskflow.Workflow, error) {
	if err := Validate(b.name, b.components); err != nil {
		return nil, err
	}
	return taskflow.NewWorkflow(b.name, b.components, b.options...), nil
}

// MustBuild finalizes and validates the workflow, panics on error
func (b *WorkflowBuilder) MustBuild() *taskflow.Workflow {
	wf, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("failed to build workflow: %v", err))
	}
	return wf
}
