package taskflow

import (
	"sync"
	"time"
)

// EventType names a lifecycle event
type EventType string

const (
	// Workflow-level events
	EventWorkflowStarted   EventType = "workflow_started"
	EventWorkflowStopped   EventType = "workflow_stopped"
	EventWorkflowCompleted EventType = "workflow_completed"
	EventWorkflowFailed    EventType = "workflow_failed"

	// Group-level events
	EventGroupStarted   EventType = "group_started"
	EventGroupCompleted EventType = "group_completed"
	EventGroupFailed    EventType = "group_failed"

	// Task-level events
	EventTaskStarted   EventType = "task_started"
	EventTaskRetried   EventType = "task_retried"
	EventTaskCompleted EventType = "task_completed"
	EventTaskFailed    EventType = "task_failed"
)

// Event is a structured lifecycle notification
type Event struct {
	Type         EventType     `json:"type"`
	WorkflowID   string        `json:"workflowId"`
	WorkflowName string        `json:"workflowName"`
	Task         string        `json:"task,omitempty"`
	Group        string        `json:"group,omitempty"`
	Attempt      int           `json:"attempt,omitempty"`
	RetryCount   int           `json:"retryCount,omitempty"`
	Duration     time.Duration `json:"duration,omitempty"`
	Error        error         `json:"-"`
	At           time.Time     `json:"at"`
}

// EventSink receives engine events. Implementations must be safe for
// concurrent use: members of a group emit from their own goroutines.
type EventSink interface {
	Emit(Event)
}

// SinkFunc adapts a function to EventSink
type SinkFunc func(Event)

func (f SinkFunc) Emit(e Event) {
	f(e)
}

// NopSink drops every event
type NopSink struct{}

func (NopSink) Emit(Event) {}

// MultiSink fans an event out to several sinks in order
type MultiSink []EventSink

func (m MultiSink) Emit(e Event) {
	for _, s := range m {
		if s != nil {
			s.Emit(e)
		}
	}
}

// Recorder keeps every event in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count returns how many events of the given type were recorded
func (r *Recorder) Count(t EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, e := range r.events {
		if e.Type == t {
			n++
		}
	}
	return n
}

// Types returns the recorded event types in order
func (r *Recorder) Types() []EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	types := make([]EventType, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}
