package pipeline

import (
	"fmt"

	"github.com/sicko7947/taskflow"
	"github.com/sicko7947/taskflow/agent"
	"github.com/sicko7947/taskflow/builder"
)

// Name is the workflow name used for every pipeline instance
const Name = "pipeline"

// New builds a fresh pipeline workflow for req:
// fetch -> analyze{summarize, categorize} -> report
func New(req agent.Request) (*taskflow.Workflow, error) {
	wf, err := builder.NewWorkflow(Name).
		WithDescription("Summarize and categorize a prompt").
		WithContext(req).
		Then(NewFetchTask(req.Prompt)).
		Group(GroupAnalyze,
			NewSummarizeTask(),
			NewCategorizeTask(),
		).
		Then(NewReportTask(req.Params[ParamTitle])).
		Build()

	if err != nil {
		return nil, fmt.Errorf("failed to build workflow: %w", err)
	}

	return wf, nil
}
