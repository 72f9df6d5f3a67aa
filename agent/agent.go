// Package agent accepts requests, runs one fresh workflow per request and keeps
// an ordered history of everything it handled.
package agent

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sicko7947/taskflow"
	"github.com/sicko7947/taskflow/mailbox"
)

var (
	// ErrInvalidRequest is returned for requests that fail validation; they are not recorded
	ErrInvalidRequest = errors.New("invalid request")

	// ErrWorkflowFailed is returned when the request's workflow did not complete
	ErrWorkflowFailed = errors.New("workflow did not complete")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Request is one unit of work submitted to the agent
type Request struct {
	ID     string            `json:"id,omitempty" validate:"omitempty,max=128"`
	Prompt string            `json:"prompt" validate:"required"`
	Params map[string]string `json:"params,omitempty"`
}

// Response describes how the request's workflow ended
type Response struct {
	RequestID       string                    `json:"requestId"`
	WorkflowID      string                    `json:"workflowId,omitempty"`
	Phase           taskflow.Phase            `json:"phase"`
	Outputs         map[string]taskflow.Value `json:"outputs,omitempty"`
	RetryCount      int                       `json:"retryCount,omitempty"`
	FailedComponent string                    `json:"failedComponent,omitempty"`
	Error           *taskflow.WorkflowError   `json:"error,omitempty"`
}

// WorkflowFactory builds a new workflow instance for a request.
// Instances are never reused across requests.
type WorkflowFactory func(req Request) (*taskflow.Workflow, error)

// Runner drives a workflow to a terminal state. *engine.Engine satisfies it.
type Runner interface {
	Run(ctx context.Context, wf *taskflow.Workflow) taskflow.WorkflowState
}

// History is the agent's ordered request log
type History = []mailbox.Entry[Request, Response]

// Agent runs workflows concurrently while recording them in submission order
type Agent struct {
	factory WorkflowFactory
	runner  Runner
	logger  zerolog.Logger
	log     mailbox.HistoryLog[Request, Response]
	mailbox *mailbox.Mailbox[Request, Response]
}

// Option configures an Agent
type Option func(*Agent)

// WithLogger sets the agent logger
func WithLogger(logger zerolog.Logger) Option {
	return func(a *Agent) {
		a.logger = logger
	}
}

// WithHistoryLog sets where the request history is kept. Defaults to memory.
func WithHistoryLog(log mailbox.HistoryLog[Request, Response]) Option {
	return func(a *Agent) {
		a.log = log
	}
}

// New creates an agent running factory-built workflows on runner
func New(factory WorkflowFactory, runner Runner, opts ...Option) *Agent {
	a := &Agent{
		factory: factory,
		runner:  runner,
		logger:  zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(a)
	}

	mbOpts := []mailbox.Option[Request, Response]{
		mailbox.WithLogger[Request, Response](a.logger),
	}
	if a.log != nil {
		mbOpts = append(mbOpts, mailbox.WithLog(a.log))
	}
	a.mailbox = mailbox.New(a.process, mbOpts...)

	return a
}

// Handle validates req, runs its workflow and returns once the outcome is recorded.
// A workflow that ends in any phase other than COMPLETED yields ErrWorkflowFailed
// together with a fully populated Response.
func (a *Agent) Handle(ctx context.Context, req Request) (Response, error) {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}

	if err := validate.Struct(req); err != nil {
		return Response{RequestID: req.ID}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	return a.mailbox.Submit(ctx, req)
}

// History returns the handled requests in submission order
func (a *Agent) History(ctx context.Context) (History, error) {
	return a.mailbox.History(ctx)
}

func (a *Agent) process(ctx context.Context, req Request) (Response, error) {
	resp := Response{RequestID: req.ID}

	wf, err := a.factory(req)
	if err != nil {
		resp.Phase = taskflow.PhaseNotStarted
		return resp, fmt.Errorf("failed to build workflow: %w", err)
	}

	logger := a.logger.With().
		Str("request_id", req.ID).
		Str("workflow_id", wf.ID()).
		Logger()
	logger.Info().
		Str("workflow_name", wf.Name()).
		Msg("Handling request")

	state := a.runner.Run(ctx, wf)

	resp.WorkflowID = wf.ID()
	resp.Phase = state.Phase
	resp.Outputs = wf.Outputs().Snapshot()
	resp.RetryCount = state.RetryCount
	resp.FailedComponent = state.FailedComponent
	resp.Error = state.Error

	if state.Phase != taskflow.PhaseCompleted {
		logger.Warn().
			Str("phase", string(state.Phase)).
			Str("failed_component", state.FailedComponent).
			Msg("Request workflow did not complete")

		if state.Error != nil {
			return resp, fmt.Errorf("%w: %w", ErrWorkflowFailed, state.Error)
		}
		return resp, fmt.Errorf("%w: ended in phase %s", ErrWorkflowFailed, state.Phase)
	}

	logger.Info().
		Int("outputs", len(resp.Outputs)).
		Msg("Request completed")
	return resp, nil
}
