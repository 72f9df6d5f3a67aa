package builder

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sicko7947/taskflow"
)

// Test handler
func testHandler(ctx *taskflow.TaskContext, in taskflow.Inputs) (taskflow.Values, error) {
	return in.Values(), nil
}

func task(name string, decls ...taskflow.InputDecl) *taskflow.FuncTask {
	return taskflow.NewTask(name, testHandler, taskflow.WithInputs(decls...))
}

func TestNewWorkflow_Empty(t *testing.T) {
	wf, err := NewWorkflow("empty").Build()

	require.NoError(t, err)
	assert.Equal(t, 0, wf.Len())
	assert.Equal(t, taskflow.PhaseNotStarted, wf.State().Phase)
}

func TestWorkflowBuilder_WithDescription(t *testing.T) {
	wf, err := NewWorkflow("test-workflow").
		WithDescription("A test workflow").
		Then(task("step1")).
		Build()

	require.NoError(t, err)
	assert.Equal(t, "A test workflow", wf.Description())
}

func TestWorkflowBuilder_Options(t *testing.T) {
	wf, err := NewWorkflow("test-workflow",
		WithID("wf-42"),
		WithDescription("described"),
		WithContext("ctx"),
	).Then(task("step1")).Build()

	require.NoError(t, err)
	assert.Equal(t, "wf-42", wf.ID())
	assert.Equal(t, "described", wf.Description())
	assert.Equal(t, "ctx", wf.GetContext())
}

func TestWorkflowBuilder_Sequence(t *testing.T) {
	wf, err := NewWorkflow("test-workflow").
		Sequence(task("step1"), task("step2"), task("step3")).
		Build()

	require.NoError(t, err)
	require.Equal(t, 3, wf.Len())
	for i, name := range []string{"step1", "step2", "step3"} {
		c, _ := wf.Component(i)
		assert.Equal(t, name, c.Name())
		assert.Equal(t, taskflow.ComponentTask, c.Kind())
	}
}

func TestWorkflowBuilder_Group(t *testing.T) {
	wf, err := NewWorkflow("pipeline").
		Then(task("fetch")).
		Group("analyze",
			task("summarize", taskflow.Required("text", taskflow.FromRef("fetch.text"))),
			task("categorize", taskflow.Required("text", taskflow.FromRef("fetch.text"))),
		).
		Then(task("report",
			taskflow.Required("summary", taskflow.FromRef("analyze.summarize.summary")),
			taskflow.Required("category", taskflow.FromRef("analyze.categorize.category")),
		)).
		Build()

	require.NoError(t, err)
	require.Equal(t, 3, wf.Len())

	group, ok := wf.Components()[1].Group()
	require.True(t, ok)
	assert.Equal(t, "analyze", group.Name())
	assert.Len(t, group.Tasks(), 2)
}

func TestWorkflowBuilder_Build_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		builder *WorkflowBuilder
		msg     string
	}{
		{
			name:    "empty name",
			builder: NewWorkflow("").Then(task("a")),
			msg:     "validation",
		},
		{
			name:    "dotted task name",
			builder: NewWorkflow("wf").Then(task("a.b")),
			msg:     "excludes",
		},
		{
			name:    "duplicate task",
			builder: NewWorkflow("wf").Then(task("a")).Then(task("a")),
			msg:     "duplicate",
		},
		{
			name:    "duplicate across group",
			builder: NewWorkflow("wf").Then(task("a")).Group("g", task("a")),
			msg:     "duplicate task name",
		},
		{
			name:    "empty group",
			builder: NewWorkflow("wf").Group("g"),
			msg:     "has no tasks",
		},
		{
			name:    "nil group member",
			builder: NewWorkflow("wf").Group("g", task("a"), nil),
			msg:     "has a nil task",
		},
		{
			name:    "nil task step",
			builder: NewWorkflow("wf").Then(task("a")).Then(nil),
			msg:     "step 1 has a nil task",
		},
		{
			name:    "malformed reference",
			builder: NewWorkflow("wf").Then(task("a", taskflow.Required("x", taskflow.FromRef("nodot")))),
			msg:     "must have the form",
		},
		{
			name: "forward reference",
			builder: NewWorkflow("wf").
				Then(task("a", taskflow.Required("y", taskflow.FromRef("b.y")))).
				Then(task("b")),
			msg: "has not run yet",
		},
		{
			name:    "self reference",
			builder: NewWorkflow("wf").Then(task("a", taskflow.Required("x", taskflow.FromRef("a.x")))),
			msg:     "has not run yet",
		},
		{
			name: "sibling reference inside group",
			builder: NewWorkflow("wf").Group("g",
				task("a"),
				task("b", taskflow.Required("x", taskflow.FromRef("g.a.x"))),
			),
			msg: "has not run yet",
		},
		{
			name: "unqualified group member reference",
			builder: NewWorkflow("wf").
				Group("g", task("a")).
				Then(task("b", taskflow.Required("x", taskflow.FromRef("a.x")))),
			msg: "must be qualified as g.a.x",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, err := tt.builder.Build()
			require.Error(t, err)
			assert.Nil(t, wf)
			assert.ErrorIs(t, err, taskflow.ErrInvalidDefinition)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestWorkflowBuilder_UnknownReferenceAllowed(t *testing.T) {
	// Unknown producers are left to fail at run time as missing inputs
	_, err := NewWorkflow("wf").
		Then(task("b", taskflow.Required("y", taskflow.FromRef("ghost.y")))).
		Build()

	assert.NoError(t, err)
}

func TestWorkflowBuilder_MustBuild_Success(t *testing.T) {
	assert.NotPanics(t, func() {
		wf := NewWorkflow("wf").Then(task("a")).MustBuild()
		assert.Equal(t, 1, wf.Len())
	})
}

func TestWorkflowBuilder_MustBuild_Panic(t *testing.T) {
	assert.Panics(t, func() {
		NewWorkflow("wf").Then(task("a")).Then(task("a")).MustBuild()
	})
}

func TestValidateWorkflow(t *testing.T) {
	wf := taskflow.NewWorkflow("wf", []taskflow.Component{
		taskflow.TaskComponent(task("a")),
		taskflow.TaskComponent(task("a")),
	})

	assert.ErrorIs(t, ValidateWorkflow(wf), taskflow.ErrInvalidDefinition)
}
