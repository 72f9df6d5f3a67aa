package taskflow

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Error codes
const (
	ErrCodeMissingInput      = "MISSING_INPUT"
	ErrCodeExecutionFailed   = "EXECUTION_FAILED"
	ErrCodeGroupMemberFailed = "GROUP_MEMBER_FAILED"
	ErrCodePanic             = "PANIC"
	ErrCodeInvalidDefinition = "INVALID_DEFINITION"
	ErrCodeNotFound          = "NOT_FOUND"
	ErrCodeInternalError     = "INTERNAL_ERROR"
)

var (
	// ErrMissingInput marks a task whose required inputs did not resolve; never retried
	ErrMissingInput = errors.New("missing required input")

	// ErrTaskExecution marks a failure raised by a task body
	ErrTaskExecution = errors.New("task execution failed")

	// ErrGroupMemberFailed marks a group step failed by one of its members
	ErrGroupMemberFailed = errors.New("group member failed")

	// ErrInvalidDefinition marks a workflow that failed validation
	ErrInvalidDefinition = errors.New("invalid workflow definition")

	// ErrNotFound is returned by stores for unknown IDs
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedFilter is returned by stores that cannot serve a listing filter
	ErrUnsupportedFilter = errors.New("unsupported filter")
)

var codeSentinels = map[string]error{
	ErrCodeMissingInput:      ErrMissingInput,
	ErrCodeExecutionFailed:   ErrTaskExecution,
	ErrCodePanic:             ErrTaskExecution,
	ErrCodeGroupMemberFailed: ErrGroupMemberFailed,
	ErrCodeInvalidDefinition: ErrInvalidDefinition,
	ErrCodeNotFound:          ErrNotFound,
}

// WorkflowError represents the error that ended a workflow
type WorkflowError struct {
	Message   string                 `json:"message" dynamodbav:"message"`
	Code      string                 `json:"code" dynamodbav:"code"`
	Component string                 `json:"component,omitempty" dynamodbav:"component,omitempty"`
	Timestamp time.Time              `json:"timestamp" dynamodbav:"timestamp"`
	Details   map[string]interface{} `json:"details,omitempty" dynamodbav:"details,omitempty"`
}

// Error implements the error interface
func (e *WorkflowError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("[%s] %s (component: %s)", e.Code, e.Message, e.Component)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Is matches the sentinel for the error's code
func (e *WorkflowError) Is(target error) bool {
	return codeSentinels[e.Code] == target
}

// NewWorkflowError creates a new workflow error
func NewWorkflowError(code, message string) *WorkflowError {
	return &WorkflowError{
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
	}
}

// NewWorkflowErrorWithComponent creates a new workflow error naming the failed step
func NewWorkflowErrorWithComponent(code, message, component string) *WorkflowError {
	return &WorkflowError{
		Message:   message,
		Code:      code,
		Component: component,
		Timestamp: time.Now(),
	}
}

// WithDetails adds details to the error
func (e *WorkflowError) WithDetails(details map[string]interface{}) *WorkflowError {
	e.Details = details
	return e
}

// TaskError represents an error during task execution
type TaskError struct {
	Message   string                 `json:"message" dynamodbav:"message"`
	Code      string                 `json:"code" dynamodbav:"code"`
	Task      string                 `json:"task,omitempty" dynamodbav:"task,omitempty"`
	Timestamp time.Time              `json:"timestamp" dynamodbav:"timestamp"`
	Attempt   int                    `json:"attempt" dynamodbav:"attempt"`
	Details   map[string]interface{} `json:"details,omitempty" dynamodbav:"details,omitempty"`

	cause error
}

// Error implements the error interface
func (e *TaskError) Error() string {
	return fmt.Sprintf("[%s] %s (attempt: %d)", e.Code, e.Message, e.Attempt)
}

// Unwrap returns the error raised by the task body, if any
func (e *TaskError) Unwrap() error {
	return e.cause
}

// Is matches the sentinel for the error's code
func (e *TaskError) Is(target error) bool {
	return codeSentinels[e.Code] == target
}

// NewTaskError creates a new task error
func NewTaskError(code, message string, attempt int) *TaskError {
	return &TaskError{
		Message:   message,
		Code:      code,
		Timestamp: time.Now(),
		Attempt:   attempt,
	}
}

// WithDetails adds details to the error
func (e *TaskError) WithDetails(details map[string]interface{}) *TaskError {
	e.Details = details
	return e
}

// MissingInputError reports the required keys that did not resolve
func MissingInputError(task string, keys []string) *TaskError {
	te := NewTaskError(ErrCodeMissingInput,
		fmt.Sprintf("task %s is missing required inputs: %s", task, strings.Join(keys, ", ")), 0)
	te.Task = task
	te.Details = map[string]interface{}{"missing": keys}
	return te
}

// ToTaskError converts a body error into a TaskError, keeping the original as cause
func ToTaskError(err error, task string, attempt int) *TaskError {
	if err == nil {
		return nil
	}

	var te *TaskError
	if errors.As(err, &te) {
		return te
	}

	return &TaskError{
		Message:   err.Error(),
		Code:      ErrCodeExecutionFailed,
		Task:      task,
		Timestamp: time.Now(),
		Attempt:   attempt,
		cause:     err,
	}
}

// ToWorkflowError converts an error into a WorkflowError for the failed component
func ToWorkflowError(err error, component string) *WorkflowError {
	if err == nil {
		return nil
	}

	var we *WorkflowError
	if errors.As(err, &we) {
		return we
	}

	code := ErrCodeInternalError
	var te *TaskError
	if errors.As(err, &te) {
		code = te.Code
	}

	return &WorkflowError{
		Message:   err.Error(),
		Code:      code,
		Component: component,
		Timestamp: time.Now(),
	}
}

// IsMissingInput checks if an error is a missing input failure
func IsMissingInput(err error) bool {
	return errors.Is(err, ErrMissingInput)
}
