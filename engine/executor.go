package engine

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/sicko7947/taskflow"
)

// Span attribute keys
const (
	AttrWorkflowID    = "taskflow.workflow.id"
	AttrWorkflowName  = "taskflow.workflow.name"
	AttrWorkflowPhase = "taskflow.workflow.phase"
	AttrTaskName      = "taskflow.task.name"
	AttrTaskGroup     = "taskflow.task.group"
	AttrTaskAttempt   = "taskflow.task.attempt"
)

// taskResult holds the outcome of one task including its retries
type taskResult struct {
	outputs    taskflow.Values
	err        *taskflow.TaskError
	retryCount int
	attempts   int
}

// executeTask resolves inputs and runs the task, retrying on failure until
// the task succeeds or its retries are exhausted. A task whose required inputs
// do not resolve is failed without invoking its body.
// Members of a group call this from their own goroutines; only the task itself
// is mutated here, never the workflow.
func (e *Engine) executeTask(ctx context.Context, wf *taskflow.Workflow, task taskflow.Task, group string) taskResult {
	wfLogger := taskflow.WorkflowLogger(e.logger, wf.ID(), wf.Name())
	persist := group == ""

	in := taskflow.Resolve(task.Inputs(), wf.Outputs())
	if !task.HasRequiredInputs(in) {
		te := taskflow.MissingInputError(task.Name(), taskflow.MissingInputs(task.Inputs(), in))
		task.MarkFailed(te, e.now())
		if persist {
			e.persist(ctx, wf)
		}
		e.emit(wf, taskflow.Event{
			Type:       taskflow.EventTaskFailed,
			Task:       task.Name(),
			Group:      group,
			RetryCount: task.RetryCount(),
			Error:      te,
		})
		return taskResult{err: te, retryCount: task.RetryCount()}
	}

	cfg := task.Config()
	attempts := 0

	for {
		attempt := task.RetryCount()
		attempts++

		task.MarkInProgress()
		if persist {
			e.persist(ctx, wf)
		}
		e.emit(wf, taskflow.Event{
			Type:    taskflow.EventTaskStarted,
			Task:    task.Name(),
			Group:   group,
			Attempt: attempt,
		})

		spanCtx, span := e.tracer.Start(ctx, "task.execute", trace.WithAttributes(
			attribute.String(AttrWorkflowID, wf.ID()),
			attribute.String(AttrTaskName, task.Name()),
			attribute.String(AttrTaskGroup, group),
			attribute.Int(AttrTaskAttempt, attempt),
		))

		taskCtx := &taskflow.TaskContext{
			Context:       spanCtx,
			WorkflowID:    wf.ID(),
			WorkflowName:  wf.Name(),
			TaskName:      task.Name(),
			Group:         group,
			Attempt:       attempt,
			Logger:        taskflow.TaskLogger(wfLogger, task.Name(), group, attempt),
			Outputs:       wf.Outputs(),
			CustomContext: wf.GetContext(),
		}

		startTime := e.now()
		outputs, err := task.Execute(taskCtx, in)
		duration := e.now().Sub(startTime)

		if err == nil {
			span.End()
			task.MarkCompleted(outputs, e.now())
			if persist {
				e.persist(ctx, wf)
			}
			e.emit(wf, taskflow.Event{
				Type:       taskflow.EventTaskCompleted,
				Task:       task.Name(),
				Group:      group,
				Attempt:    attempt,
				RetryCount: task.RetryCount(),
				Duration:   duration,
			})
			return taskResult{outputs: outputs.Clone(), retryCount: task.RetryCount(), attempts: attempts}
		}

		te := taskflow.ToTaskError(err, task.Name(), attempt)
		span.RecordError(te)
		span.SetStatus(codes.Error, te.Message)
		span.End()

		if task.CanRetry() {
			task.IncrementRetryCount()
			if persist {
				e.persist(ctx, wf)
			}
			e.emit(wf, taskflow.Event{
				Type:       taskflow.EventTaskRetried,
				Task:       task.Name(),
				Group:      group,
				Attempt:    attempt,
				RetryCount: task.RetryCount(),
				Error:      te,
			})

			if delay := cfg.Delay(task.RetryCount()); delay > 0 {
				wfLogger.Debug().Str("task", task.Name()).Dur("delay", delay).Msg("Applying backoff delay")
				e.sleep(delay)
			}
			continue
		}

		// All retries exhausted
		task.MarkFailed(te, e.now())
		if persist {
			e.persist(ctx, wf)
		}
		e.emit(wf, taskflow.Event{
			Type:       taskflow.EventTaskFailed,
			Task:       task.Name(),
			Group:      group,
			Attempt:    attempt,
			RetryCount: task.RetryCount(),
			Error:      te,
		})
		return taskResult{err: te, retryCount: task.RetryCount(), attempts: attempts}
	}
}
