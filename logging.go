package taskflow

import (
	"github.com/rs/zerolog"
)

// LogSink writes every event as a structured zerolog line
type LogSink struct {
	logger zerolog.Logger
}

// NewLogSink creates a sink logging through logger
func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger}
}

func (s *LogSink) Emit(e Event) {
	switch e.Type {
	case EventWorkflowStarted:
		LogWorkflowStarted(s.logger, e.WorkflowID, e.WorkflowName)
	case EventWorkflowStopped:
		LogWorkflowStopped(s.logger, e.WorkflowID)
	case EventWorkflowCompleted:
		LogWorkflowCompleted(s.logger, e.WorkflowID, e)
	case EventWorkflowFailed:
		LogWorkflowFailed(s.logger, e.WorkflowID, e.Error, e.RetryCount)
	case EventGroupStarted, EventGroupCompleted:
		LogGroup(s.logger, e)
	case EventGroupFailed:
		LogGroupFailed(s.logger, e)
	case EventTaskStarted:
		LogTaskStarted(s.logger, e.WorkflowID, e.Task, e.Attempt)
	case EventTaskRetried:
		LogTaskRetried(s.logger, e.WorkflowID, e.Task, e.RetryCount, e.Error)
	case EventTaskCompleted:
		LogTaskCompleted(s.logger, e.WorkflowID, e.Task, e.Duration.Milliseconds())
	case EventTaskFailed:
		LogTaskFailed(s.logger, e.WorkflowID, e.Task, e.Error, e.RetryCount)
	default:
		s.logger.Debug().Str("event", string(e.Type)).Str("workflow_id", e.WorkflowID).Msg("Event")
	}
}

// LogWorkflowStarted logs when a workflow starts execution
func LogWorkflowStarted(logger zerolog.Logger, workflowID, name string) {
	logger.Info().
		Str("event", string(EventWorkflowStarted)).
		Str("workflow_id", workflowID).
		Str("workflow_name", name).
		Msg("Workflow started")
}

// LogWorkflowStopped logs an explicit stop
func LogWorkflowStopped(logger zerolog.Logger, workflowID string) {
	logger.Warn().
		Str("event", string(EventWorkflowStopped)).
		Str("workflow_id", workflowID).
		Msg("Workflow stopped")
}

// LogWorkflowCompleted logs successful workflow completion
func LogWorkflowCompleted(logger zerolog.Logger, workflowID string, e Event) {
	logger.Info().
		Str("event", string(EventWorkflowCompleted)).
		Str("workflow_id", workflowID).
		Dur("duration", e.Duration).
		Msg("Workflow completed")
}

// LogWorkflowFailed logs workflow failure
func LogWorkflowFailed(logger zerolog.Logger, workflowID string, err error, retryCount int) {
	logger.Error().
		Str("event", string(EventWorkflowFailed)).
		Str("workflow_id", workflowID).
		Int("retry_count", retryCount).
		Err(err).
		Msg("Workflow failed")
}

// LogGroup logs group fan-out and fan-in
func LogGroup(logger zerolog.Logger, e Event) {
	logger.Info().
		Str("event", string(e.Type)).
		Str("workflow_id", e.WorkflowID).
		Str("group", e.Group).
		Msg("Task group")
}

// LogGroupFailed logs a failed group step
func LogGroupFailed(logger zerolog.Logger, e Event) {
	logger.Error().
		Str("event", string(EventGroupFailed)).
		Str("workflow_id", e.WorkflowID).
		Str("group", e.Group).
		Str("task", e.Task).
		Err(e.Error).
		Msg("Task group failed")
}

// LogTaskStarted logs when a task attempt starts
func LogTaskStarted(logger zerolog.Logger, workflowID, task string, attempt int) {
	logger.Info().
		Str("event", string(EventTaskStarted)).
		Str("workflow_id", workflowID).
		Str("task", task).
		Int("attempt", attempt).
		Msg("Task started")
}

// LogTaskRetried logs when a task is being retried
func LogTaskRetried(logger zerolog.Logger, workflowID, task string, retryCount int, err error) {
	logger.Warn().
		Str("event", string(EventTaskRetried)).
		Str("workflow_id", workflowID).
		Str("task", task).
		Int("retry_count", retryCount).
		Err(err).
		Msg("Task retrying")
}

// LogTaskCompleted logs successful task completion
func LogTaskCompleted(logger zerolog.Logger, workflowID, task string, durationMs int64) {
	logger.Info().
		Str("event", string(EventTaskCompleted)).
		Str("workflow_id", workflowID).
		Str("task", task).
		Int64("duration_ms", durationMs).
		Msg("Task completed")
}

// LogTaskFailed logs terminal task failure
func LogTaskFailed(logger zerolog.Logger, workflowID, task string, err error, retryCount int) {
	logger.Error().
		Str("event", string(EventTaskFailed)).
		Str("workflow_id", workflowID).
		Str("task", task).
		Err(err).
		Int("retry_count", retryCount).
		Msg("Task failed")
}

// WorkflowLogger creates a logger enriched with workflow context
func WorkflowLogger(baseLogger zerolog.Logger, workflowID, name string) zerolog.Logger {
	return baseLogger.With().
		Str("workflow_id", workflowID).
		Str("workflow_name", name).
		Logger()
}

// TaskLogger creates a logger enriched with task context
func TaskLogger(workflowLogger zerolog.Logger, task, group string, attempt int) zerolog.Logger {
	ctx := workflowLogger.With().Str("task", task).Int("attempt", attempt)
	if group != "" {
		ctx = ctx.Str("group", group)
	}
	return ctx.Logger()
}
