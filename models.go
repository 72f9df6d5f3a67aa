package taskflow

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TaskStatus represents the current state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "PENDING"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusCompleted  TaskStatus = "COMPLETED"
	TaskStatusFailed     TaskStatus = "FAILED"
)

// IsTerminal returns true if the status is a final state
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// String returns the string representation
func (s TaskStatus) String() string {
	return string(s)
}

// Phase is the workflow lifecycle position
type Phase string

const (
	PhaseNotStarted Phase = "NOT_STARTED"
	PhaseInProgress Phase = "IN_PROGRESS"
	PhaseStopped    Phase = "STOPPED"
	PhaseCompleted  Phase = "COMPLETED"
	PhaseFailed     Phase = "FAILED"
)

// ParsePhase accepts a phase name in any case
func ParsePhase(s string) (Phase, error) {
	p := Phase(strings.ToUpper(s))
	switch p {
	case PhaseNotStarted, PhaseInProgress, PhaseStopped, PhaseCompleted, PhaseFailed:
		return p, nil
	}
	return "", fmt.Errorf("unknown phase %q", s)
}

// IsTerminal returns true if the phase is absorbing
func (p Phase) IsTerminal() bool {
	return p == PhaseStopped || p == PhaseCompleted || p == PhaseFailed
}

// String returns the string representation
func (p Phase) String() string {
	return string(p)
}

// CanTransition reports whether a workflow may move from one phase to another.
// Transitions only move toward a terminal phase.
func CanTransition(from, to Phase) bool {
	switch from {
	case PhaseNotStarted:
		return to != PhaseNotStarted
	case PhaseInProgress:
		return to.IsTerminal()
	default:
		return false
	}
}

// WorkflowState is the observable outcome of a workflow.
// At is the time the phase was entered; RetryCount and FailedComponent are set for FAILED.
type WorkflowState struct {
	Phase           Phase          `json:"phase"`
	At              time.Time      `json:"at,omitempty"`
	RetryCount      int            `json:"retryCount,omitempty"`
	FailedComponent string         `json:"failedComponent,omitempty"`
	Error           *WorkflowError `json:"error,omitempty"`
}

func NotStarted() WorkflowState { return WorkflowState{Phase: PhaseNotStarted} }

func InProgress(at time.Time) WorkflowState { return WorkflowState{Phase: PhaseInProgress, At: at} }

func Stopped(at time.Time) WorkflowState { return WorkflowState{Phase: PhaseStopped, At: at} }

func Completed(at time.Time) WorkflowState { return WorkflowState{Phase: PhaseCompleted, At: at} }

// Failed records the failure timestamp, the failing task's retry count and the failing component
func Failed(at time.Time, retryCount int, component string, err *WorkflowError) WorkflowState {
	return WorkflowState{
		Phase:           PhaseFailed,
		At:              at,
		RetryCount:      retryCount,
		FailedComponent: component,
		Error:           err,
	}
}

// IsTerminal returns true if no further task execution can occur
func (s WorkflowState) IsTerminal() bool {
	return s.Phase.IsTerminal()
}

// WorkflowSnapshot is the persisted form of a workflow instance
type WorkflowSnapshot struct {
	// Identity
	WorkflowID  string `json:"workflowId" dynamodbav:"workflow_id"`
	Name        string `json:"name" dynamodbav:"name"`
	Description string `json:"description,omitempty" dynamodbav:"description,omitempty"`

	// State
	Phase           Phase          `json:"phase" dynamodbav:"phase"`
	StateAt         *time.Time     `json:"stateAt,omitempty" dynamodbav:"state_at,omitempty"`
	RetryCount      int            `json:"retryCount" dynamodbav:"retry_count"`
	FailedComponent string         `json:"failedComponent,omitempty" dynamodbav:"failed_component,omitempty"`
	Error           *WorkflowError `json:"error,omitempty" dynamodbav:"error,omitempty"`
	Index           int            `json:"index" dynamodbav:"index"`
	Total           int            `json:"total" dynamodbav:"total"`

	// Tasks and accumulated outputs (serialized as JSON bytes)
	Tasks   []TaskRecord    `json:"tasks" dynamodbav:"tasks"`
	Outputs json.RawMessage `json:"outputs,omitempty" dynamodbav:"outputs,omitempty"`

	// Timing
	CreatedAt time.Time `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" dynamodbav:"updated_at"`

	// DynamoDB TTL
	TTL int64 `json:"-" dynamodbav:"ttl,omitempty"`
}

// TaskRecord tracks one task within a snapshot
type TaskRecord struct {
	ID          string          `json:"id" dynamodbav:"id"`
	Name        string          `json:"name" dynamodbav:"name"`
	Group       string          `json:"group,omitempty" dynamodbav:"group,omitempty"`
	Status      TaskStatus      `json:"status" dynamodbav:"status"`
	RetryCount  int             `json:"retryCount" dynamodbav:"retry_count"`
	MaxRetries  int             `json:"maxRetries" dynamodbav:"max_retries"`
	Outputs     json.RawMessage `json:"outputs,omitempty" dynamodbav:"outputs,omitempty"`
	Error       *TaskError      `json:"error,omitempty" dynamodbav:"error,omitempty"`
	CreatedAt   time.Time       `json:"createdAt" dynamodbav:"created_at"`
	CompletedAt *time.Time      `json:"completedAt,omitempty" dynamodbav:"completed_at,omitempty"`
}

// DecodeOutputs decodes the snapshot's store contents
func (s *WorkflowSnapshot) DecodeOutputs() (map[string]Value, error) {
	out := make(map[string]Value)
	if len(s.Outputs) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(s.Outputs, &out); err != nil {
		return nil, err
	}
	return out, nil
}
