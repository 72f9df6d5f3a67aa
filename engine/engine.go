package engine

import (
	"context"
	"os"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/sicko7947/taskflow"
)

// Engine drives workflow instances step by step
type Engine struct {
	store  taskflow.SnapshotStore
	sink   taskflow.EventSink
	logger zerolog.Logger
	tracer trace.Tracer
	config EngineConfig

	now   func() time.Time
	sleep func(time.Duration)
}

// EngineConfig holds engine configuration
type EngineConfig struct {
	// MaxGroupConcurrency caps how many members of one group run at once; 0 means no cap
	MaxGroupConcurrency int `yaml:"max_group_concurrency" validate:"gte=0"`

	// SnapshotTTL sets the TTL on persisted snapshots; 0 keeps them forever
	SnapshotTTL time.Duration `yaml:"snapshot_ttl" validate:"gte=0"`
}

// DefaultEngineConfig provides sensible defaults
var DefaultEngineConfig = EngineConfig{
	MaxGroupConcurrency: 0,
	SnapshotTTL:         0,
}

// EngineOption configures the workflow engine
type EngineOption func(*Engine)

// WithLogger sets a custom logger for the engine
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithConfig sets a custom configuration for the engine
func WithConfig(config EngineConfig) EngineOption {
	return func(e *Engine) {
		e.config = config
	}
}

// WithSink sets where lifecycle events go. Defaults to a LogSink on the engine logger.
func WithSink(sink taskflow.EventSink) EngineOption {
	return func(e *Engine) {
		e.sink = sink
	}
}

// WithStore enables snapshot persistence after every state change
func WithStore(store taskflow.SnapshotStore) EngineOption {
	return func(e *Engine) {
		e.store = store
	}
}

// WithTracer sets the tracer used for workflow and task spans
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = tracer
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) EngineOption {
	return func(e *Engine) {
		e.now = now
	}
}

// WithSleep overrides how retry backoff waits
func WithSleep(sleep func(time.Duration)) EngineOption {
	return func(e *Engine) {
		e.sleep = sleep
	}
}

// NewEngine creates a new workflow engine with optional configuration.
// If no logger is provided, a console logger at Info level is used.
func NewEngine(opts ...EngineOption) *Engine {
	defaultLogger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).
		With().
		Timestamp().
		Logger().
		Level(zerolog.InfoLevel)

	eng := &Engine{
		logger: defaultLogger,
		tracer: noop.NewTracerProvider().Tracer("taskflow"),
		config: DefaultEngineConfig,
		now:    time.Now,
		sleep:  time.Sleep,
	}

	for _, opt := range opts {
		opt(eng)
	}

	if eng.sink == nil {
		eng.sink = taskflow.NewLogSink(eng.logger)
	}

	return eng
}

// Run drives the workflow until it reaches a terminal state and returns that state.
// Task failures never surface as errors; they are recorded in the returned state.
// Running a terminal or empty workflow is a logged no-op.
func (e *Engine) Run(ctx context.Context, wf *taskflow.Workflow) taskflow.WorkflowState {
	if !e.admit(ctx, wf) {
		return wf.State()
	}

	ctx, span := e.tracer.Start(ctx, "workflow.run", trace.WithAttributes(
		attribute.String(AttrWorkflowID, wf.ID()),
		attribute.String(AttrWorkflowName, wf.Name()),
	))
	defer span.End()

	for !wf.IsTerminal() {
		e.step(ctx, wf)
	}

	state := wf.State()
	span.SetAttributes(attribute.String(AttrWorkflowPhase, state.Phase.String()))
	if state.Phase == taskflow.PhaseFailed {
		span.SetStatus(codes.Error, state.FailedComponent)
	}
	return state
}

// Step executes exactly one component, a task with all of its retries or a
// whole group, and returns the resulting state.
func (e *Engine) Step(ctx context.Context, wf *taskflow.Workflow) taskflow.WorkflowState {
	if !e.admit(ctx, wf) {
		return wf.State()
	}
	e.step(ctx, wf)
	return wf.State()
}

// Stop moves a non-terminal workflow to STOPPED. Like Run, it must not be
// called while another call is driving the same workflow.
func (e *Engine) Stop(ctx context.Context, wf *taskflow.Workflow) taskflow.WorkflowState {
	log := taskflow.WorkflowLogger(e.logger, wf.ID(), wf.Name())
	if wf.IsTerminal() {
		log.Debug().Str("phase", wf.State().Phase.String()).Msg("Workflow already terminal, stop ignored")
		return wf.State()
	}

	now := e.now()
	wf.SetState(taskflow.Stopped(now))
	e.persist(ctx, wf)
	e.emit(wf, taskflow.Event{Type: taskflow.EventWorkflowStopped})
	return wf.State()
}

// admit handles the no-op cases and the NOT_STARTED -> IN_PROGRESS transition
func (e *Engine) admit(ctx context.Context, wf *taskflow.Workflow) bool {
	log := taskflow.WorkflowLogger(e.logger, wf.ID(), wf.Name())

	if wf.IsTerminal() {
		log.Info().
			Str("phase", wf.State().Phase.String()).
			Msg("Workflow already terminal, nothing to run")
		return false
	}

	if wf.Len() == 0 {
		log.Info().Msg("Workflow has no tasks, nothing to run")
		return false
	}

	if wf.State().Phase == taskflow.PhaseNotStarted {
		wf.SetState(taskflow.InProgress(e.now()))
		e.persist(ctx, wf)
		e.emit(wf, taskflow.Event{Type: taskflow.EventWorkflowStarted})
	}

	return true
}

// step runs the component at the current index
func (e *Engine) step(ctx context.Context, wf *taskflow.Workflow) {
	comp, ok := wf.Component(wf.Index())
	if !ok {
		// Index ran past the end without completing; treat the run as finished.
		e.completeWorkflow(ctx, wf)
		return
	}

	switch comp.Kind() {
	case taskflow.ComponentTask:
		task, _ := comp.Task()
		e.runTaskStep(ctx, wf, task)
	case taskflow.ComponentGroup:
		group, _ := comp.Group()
		e.runGroupStep(ctx, wf, group)
	}
}

func (e *Engine) runTaskStep(ctx context.Context, wf *taskflow.Workflow, task taskflow.Task) {
	result := e.executeTask(ctx, wf, task, "")
	if result.err != nil {
		e.failWorkflow(ctx, wf, task.Name(), result.retryCount, result.err)
		return
	}

	wf.Outputs().Merge(task.Name(), result.outputs)
	e.advance(ctx, wf)
}

// advance completes the workflow after the last step, otherwise moves the index on
func (e *Engine) advance(ctx context.Context, wf *taskflow.Workflow) {
	if wf.IsLast() {
		e.completeWorkflow(ctx, wf)
		return
	}
	wf.Advance()
	e.persist(ctx, wf)
}

// completeWorkflow marks workflow as completed
func (e *Engine) completeWorkflow(ctx context.Context, wf *taskflow.Workflow) {
	startedAt := wf.State().At
	now := e.now()
	wf.SetState(taskflow.Completed(now))
	e.persist(ctx, wf)
	e.emit(wf, taskflow.Event{Type: taskflow.EventWorkflowCompleted, Duration: now.Sub(startedAt)})
}

// failWorkflow marks workflow as failed with the failing component's retry count
func (e *Engine) failWorkflow(ctx context.Context, wf *taskflow.Workflow, component string, retryCount int, err error) {
	now := e.now()
	wfErr := taskflow.ToWorkflowError(err, component)
	wfErr.Timestamp = now
	wf.SetState(taskflow.Failed(now, retryCount, component, wfErr))
	e.persist(ctx, wf)
	e.emit(wf, taskflow.Event{
		Type:       taskflow.EventWorkflowFailed,
		Task:       component,
		RetryCount: retryCount,
		Error:      wfErr,
	})
}

// persist saves a snapshot; failures are logged and never change the outcome
func (e *Engine) persist(ctx context.Context, wf *taskflow.Workflow) {
	if e.store == nil {
		return
	}

	snap, err := wf.Snapshot()
	if err == nil {
		if e.config.SnapshotTTL > 0 {
			snap.TTL = e.now().Add(e.config.SnapshotTTL).Unix()
		}
		err = e.store.SaveWorkflow(ctx, snap)
	}
	if err != nil {
		e.logger.Error().
			Str("event", "persistence_error").
			Str("workflow_id", wf.ID()).
			Err(err).
			Msg("Failed to persist workflow snapshot")
	}
}

func (e *Engine) emit(wf *taskflow.Workflow, ev taskflow.Event) {
	ev.WorkflowID = wf.ID()
	ev.WorkflowName = wf.Name()
	if ev.At.IsZero() {
		ev.At = e.now()
	}
	e.sink.Emit(ev)
}
