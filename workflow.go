package taskflow

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ComponentKind distinguishes plain tasks from groups
type ComponentKind int

const (
	ComponentTask ComponentKind = iota
	ComponentGroup
)

// String returns the string representation
func (k ComponentKind) String() string {
	if k == ComponentGroup {
		return "group"
	}
	return "task"
}

// Component is one workflow step: a single task or a task group
type Component struct {
	kind  ComponentKind
	task  Task
	group *TaskGroup
}

// TaskComponent wraps a task as a step
func TaskComponent(t Task) Component {
	return Component{kind: ComponentTask, task: t}
}

// GroupComponent wraps a group as a step
func GroupComponent(g *TaskGroup) Component {
	return Component{kind: ComponentGroup, group: g}
}

func (c Component) Kind() ComponentKind {
	return c.kind
}

func (c Component) Task() (Task, bool) {
	return c.task, c.kind == ComponentTask && c.task != nil
}

func (c Component) Group() (*TaskGroup, bool) {
	return c.group, c.kind == ComponentGroup && c.group != nil
}

// Name returns the task or group name
func (c Component) Name() string {
	switch c.kind {
	case ComponentGroup:
		if c.group != nil {
			return c.group.Name()
		}
	default:
		if c.task != nil {
			return c.task.Name()
		}
	}
	return ""
}

// Tasks returns the task, or every group member
func (c Component) Tasks() []Task {
	if g, ok := c.Group(); ok {
		return g.Tasks()
	}
	if t, ok := c.Task(); ok {
		return []Task{t}
	}
	return nil
}

// Workflow is one executable instance: an ordered list of components, the
// shared output store and the lifecycle state. Exactly one engine call may
// drive a given instance at a time.
type Workflow struct {
	id          string
	name        string
	description string
	components  []Component

	outputs *OutputStore
	state   WorkflowState
	index   int

	createdAt time.Time
	updatedAt time.Time

	// Custom context passed to every task
	customContext any
}

// WorkflowOption configures a workflow
type WorkflowOption func(*Workflow)

// WithWorkflowID overrides the generated ID
func WithWorkflowID(id string) WorkflowOption {
	return func(w *Workflow) {
		w.id = id
	}
}

// WithWorkflowDescription sets the description
func WithWorkflowDescription(description string) WorkflowOption {
	return func(w *Workflow) {
		w.description = description
	}
}

// WithContext sets a custom context for the workflow's tasks
func WithContext(ctx any) WorkflowOption {
	return func(w *Workflow) {
		w.customContext = ctx
	}
}

// NewWorkflow creates a workflow instance in NOT_STARTED
func NewWorkflow(name string, components []Component, opts ...WorkflowOption) *Workflow {
	now := time.Now()
	w := &Workflow{
		id:         uuid.New().String(),
		name:       name,
		components: append([]Component(nil), components...),
		outputs:    NewOutputStore(),
		state:      NotStarted(),
		createdAt:  now,
		updatedAt:  now,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

func (w *Workflow) ID() string {
	return w.id
}

func (w *Workflow) Name() string {
	return w.name
}

func (w *Workflow) Description() string {
	return w.description
}

// Components returns the ordered steps
func (w *Workflow) Components() []Component {
	return append([]Component(nil), w.components...)
}

// Component returns the step at index i
func (w *Workflow) Component(i int) (Component, bool) {
	if i < 0 || i >= len(w.components) {
		return Component{}, false
	}
	return w.components[i], true
}

// Len returns the number of steps
func (w *Workflow) Len() int {
	return len(w.components)
}

// Outputs returns the shared output store
func (w *Workflow) Outputs() *OutputStore {
	return w.outputs
}

func (w *Workflow) State() WorkflowState {
	return w.state
}

// Index returns the position of the next step to execute
func (w *Workflow) Index() int {
	return w.index
}

func (w *Workflow) IsTerminal() bool {
	return w.state.IsTerminal()
}

func (w *Workflow) CreatedAt() time.Time {
	return w.createdAt
}

// GetContext returns the custom context
func (w *Workflow) GetContext() any {
	return w.customContext
}

// SetState moves the workflow to a new state. It reports false, leaving the
// state untouched, when the transition would leave a terminal phase or go backwards.
// Engine-owned.
func (w *Workflow) SetState(s WorkflowState) bool {
	if !CanTransition(w.state.Phase, s.Phase) {
		return false
	}
	w.state = s
	w.updatedAt = s.At
	return true
}

// Advance moves to the next step. Engine-owned.
func (w *Workflow) Advance() {
	if w.index < len(w.components) {
		w.index++
	}
}

// IsLast reports whether the current step is the final one
func (w *Workflow) IsLast() bool {
	return w.index == len(w.components)-1
}

// FindTask returns a task by name, including group members
func (w *Workflow) FindTask(name string) (Task, bool) {
	for _, c := range w.components {
		for _, t := range c.Tasks() {
			if t.Name() == name {
				return t, true
			}
		}
	}
	return nil, false
}

// Reset returns the instance to NOT_STARTED with an empty store, clearing every task
func (w *Workflow) Reset() {
	w.outputs = NewOutputStore()
	w.state = NotStarted()
	w.index = 0
	w.updatedAt = time.Now()
	for _, c := range w.components {
		for _, t := range c.Tasks() {
			t.Reset()
		}
	}
}

// Snapshot captures the instance for persistence
func (w *Workflow) Snapshot() (*WorkflowSnapshot, error) {
	outputs, err := json.Marshal(w.outputs.Snapshot())
	if err != nil {
		return nil, err
	}

	snap := &WorkflowSnapshot{
		WorkflowID:      w.id,
		Name:            w.name,
		Description:     w.description,
		Phase:           w.state.Phase,
		RetryCount:      w.state.RetryCount,
		FailedComponent: w.state.FailedComponent,
		Error:           w.state.Error,
		Index:           w.index,
		Total:           len(w.components),
		Outputs:         outputs,
		CreatedAt:       w.createdAt,
		UpdatedAt:       w.updatedAt,
	}
	if !w.state.At.IsZero() {
		snap.StateAt = ToPtr(w.state.At)
	}

	for _, c := range w.components {
		group := ""
		if g, ok := c.Group(); ok {
			group = g.Name()
		}
		for _, t := range c.Tasks() {
			rec, err := taskRecord(t, group)
			if err != nil {
				return nil, err
			}
			snap.Tasks = append(snap.Tasks, rec)
		}
	}

	return snap, nil
}

func taskRecord(t Task, group string) (TaskRecord, error) {
	outputs, err := json.Marshal(t.Outputs())
	if err != nil {
		return TaskRecord{}, err
	}
	return TaskRecord{
		ID:          t.ID(),
		Name:        t.Name(),
		Group:       group,
		Status:      t.Status(),
		RetryCount:  t.RetryCount(),
		MaxRetries:  t.MaxRetries(),
		Outputs:     outputs,
		Error:       t.LastError(),
		CreatedAt:   t.CreatedAt(),
		CompletedAt: t.CompletedAt().PtrOf(),
	}, nil
}
