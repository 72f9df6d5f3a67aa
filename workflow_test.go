package taskflow

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorkflow() *Workflow {
	fetch := NewTask("fetch", doubleHandler)
	summarize := NewTask("summarize", doubleHandler)
	categorize := NewTask("categorize", doubleHandler)
	report := NewTask("report", doubleHandler)

	return NewWorkflow("pipeline", []Component{
		TaskComponent(fetch),
		GroupComponent(NewGroup("analyze", summarize, categorize)),
		TaskComponent(report),
	}, WithWorkflowID("wf-1"), WithWorkflowDescription("test pipeline"))
}

func TestNewWorkflow(t *testing.T) {
	wf := newTestWorkflow()

	assert.Equal(t, "wf-1", wf.ID())
	assert.Equal(t, "pipeline", wf.Name())
	assert.Equal(t, "test pipeline", wf.Description())
	assert.Equal(t, 3, wf.Len())
	assert.Equal(t, 0, wf.Index())
	assert.Equal(t, PhaseNotStarted, wf.State().Phase)
	assert.Equal(t, 0, wf.Outputs().Len())
	assert.False(t, wf.IsTerminal())
}

func TestComponent_Kinds(t *testing.T) {
	wf := newTestWorkflow()

	first, ok := wf.Component(0)
	require.True(t, ok)
	assert.Equal(t, ComponentTask, first.Kind())
	assert.Equal(t, "fetch", first.Name())
	_, isGroup := first.Group()
	assert.False(t, isGroup)

	second, _ := wf.Component(1)
	assert.Equal(t, ComponentGroup, second.Kind())
	assert.Equal(t, "analyze", second.Name())
	assert.Len(t, second.Tasks(), 2)

	_, ok = wf.Component(3)
	assert.False(t, ok)
}

func TestWorkflow_FindTask(t *testing.T) {
	wf := newTestWorkflow()

	task, ok := wf.FindTask("categorize")
	require.True(t, ok)
	assert.Equal(t, "categorize", task.Name())

	_, ok = wf.FindTask("missing")
	assert.False(t, ok)
}

func TestWorkflow_AdvanceAndIsLast(t *testing.T) {
	wf := newTestWorkflow()

	assert.False(t, wf.IsLast())
	wf.Advance()
	wf.Advance()
	assert.True(t, wf.IsLast())
	wf.Advance()
	wf.Advance()
	assert.Equal(t, 3, wf.Index())
}

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to Phase
		want     bool
	}{
		{PhaseNotStarted, PhaseInProgress, true},
		{PhaseNotStarted, PhaseStopped, true},
		{PhaseNotStarted, PhaseNotStarted, false},
		{PhaseInProgress, PhaseCompleted, true},
		{PhaseInProgress, PhaseFailed, true},
		{PhaseInProgress, PhaseStopped, true},
		{PhaseInProgress, PhaseNotStarted, false},
		{PhaseInProgress, PhaseInProgress, false},
		{PhaseCompleted, PhaseInProgress, false},
		{PhaseFailed, PhaseCompleted, false},
		{PhaseStopped, PhaseInProgress, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestWorkflow_SetStateRejectsLeavingTerminal(t *testing.T) {
	wf := newTestWorkflow()
	now := time.Now()

	require.True(t, wf.SetState(InProgress(now)))
	require.True(t, wf.SetState(Completed(now)))

	assert.False(t, wf.SetState(InProgress(now)))
	assert.Equal(t, PhaseCompleted, wf.State().Phase)
	assert.True(t, wf.IsTerminal())
}

func TestWorkflow_Reset(t *testing.T) {
	wf := newTestWorkflow()
	now := time.Now()

	wf.SetState(InProgress(now))
	wf.Outputs().Merge("fetch", Values{"x": Int(1)})
	wf.Advance()
	fetch, _ := wf.FindTask("fetch")
	fetch.MarkCompleted(Values{"x": Int(1)}, now)

	wf.Reset()

	assert.Equal(t, PhaseNotStarted, wf.State().Phase)
	assert.Equal(t, 0, wf.Index())
	assert.Equal(t, 0, wf.Outputs().Len())
	assert.Equal(t, TaskStatusPending, fetch.Status())
}

func TestWorkflow_Snapshot(t *testing.T) {
	wf := newTestWorkflow()
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	wf.SetState(InProgress(now))
	wf.Outputs().Merge("fetch", Values{"text": String("hello")})
	fetch, _ := wf.FindTask("fetch")
	fetch.MarkCompleted(Values{"text": String("hello")}, now)
	wf.Advance()

	snap, err := wf.Snapshot()
	require.NoError(t, err)

	assert.Equal(t, "wf-1", snap.WorkflowID)
	assert.Equal(t, PhaseInProgress, snap.Phase)
	require.NotNil(t, snap.StateAt)
	assert.Equal(t, now, *snap.StateAt)
	assert.Equal(t, 1, snap.Index)
	assert.Equal(t, 3, snap.Total)
	require.Len(t, snap.Tasks, 4)
	assert.Equal(t, "fetch", snap.Tasks[0].Name)
	assert.Equal(t, TaskStatusCompleted, snap.Tasks[0].Status)
	assert.Equal(t, "analyze", snap.Tasks[1].Group)
	assert.Equal(t, "", snap.Tasks[3].Group)

	outputs, err := snap.DecodeOutputs()
	require.NoError(t, err)
	assert.True(t, outputs["fetch.text"].Equal(String("hello")))

	// Snapshots are plain JSON documents
	data, err := json.Marshal(snap)
	require.NoError(t, err)
	var decoded WorkflowSnapshot
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, snap.WorkflowID, decoded.WorkflowID)
	assert.Len(t, decoded.Tasks, 4)
}

func TestWorkflowState_Failed(t *testing.T) {
	now := time.Now()
	err := NewWorkflowErrorWithComponent(ErrCodeExecutionFailed, "boom", "B")
	s := Failed(now, 3, "B", err)

	assert.Equal(t, PhaseFailed, s.Phase)
	assert.Equal(t, 3, s.RetryCount)
	assert.Equal(t, "B", s.FailedComponent)
	assert.True(t, s.IsTerminal())
	assert.False(t, InProgress(now).IsTerminal())
}

func TestParsePhase(t *testing.T) {
	p, err := ParsePhase("completed")
	require.NoError(t, err)
	assert.Equal(t, PhaseCompleted, p)

	p, err = ParsePhase("IN_PROGRESS")
	require.NoError(t, err)
	assert.Equal(t, PhaseInProgress, p)

	_, err = ParsePhase("done")
	assert.Error(t, err)
}
