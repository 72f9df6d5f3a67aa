package taskflow

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMissingInputError(t *testing.T) {
	err := MissingInputError("B", []string{"y", "z"})

	assert.Equal(t, ErrCodeMissingInput, err.Code)
	assert.Equal(t, "B", err.Task)
	assert.Contains(t, err.Message, "y, z")
	assert.True(t, IsMissingInput(err))
	assert.ErrorIs(t, err, ErrMissingInput)
	assert.NotErrorIs(t, err, ErrTaskExecution)
}

func TestToTaskError_KeepsCause(t *testing.T) {
	cause := errors.New("upstream timeout")
	te := ToTaskError(fmt.Errorf("fetch: %w", cause), "fetch", 2)

	require.NotNil(t, te)
	assert.Equal(t, ErrCodeExecutionFailed, te.Code)
	assert.Equal(t, "fetch", te.Task)
	assert.Equal(t, 2, te.Attempt)
	assert.ErrorIs(t, te, cause)
	assert.ErrorIs(t, te, ErrTaskExecution)
	assert.Nil(t, ToTaskError(nil, "fetch", 0))
}

func TestToTaskError_PassesThroughTaskError(t *testing.T) {
	original := NewTaskError(ErrCodePanic, "boom", 1)
	assert.Same(t, original, ToTaskError(original, "x", 1))
}

func TestToWorkflowError(t *testing.T) {
	te := MissingInputError("B", []string{"y"})
	we := ToWorkflowError(te, "B")

	assert.Equal(t, ErrCodeMissingInput, we.Code)
	assert.Equal(t, "B", we.Component)
	assert.ErrorIs(t, we, ErrMissingInput)
	assert.Contains(t, we.Error(), "component: B")

	plain := ToWorkflowError(errors.New("odd"), "C")
	assert.Equal(t, ErrCodeInternalError, plain.Code)

	group := NewWorkflowErrorWithComponent(ErrCodeGroupMemberFailed, "member failed", "analyze")
	assert.Same(t, group, ToWorkflowError(group, "other"))
	assert.ErrorIs(t, group, ErrGroupMemberFailed)
	assert.Nil(t, ToWorkflowError(nil, "x"))
}

func TestWorkflowError_WithDetails(t *testing.T) {
	err := NewWorkflowError(ErrCodeNotFound, "no such workflow").
		WithDetails(map[string]interface{}{"id": "wf-1"})

	assert.Equal(t, "wf-1", err.Details["id"])
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, "[NOT_FOUND] no such workflow", err.Error())
}
