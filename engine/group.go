package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/sicko7947/taskflow"
)

// runGroupStep fans the group's members out concurrently and fans them back in.
// Every member resolves its inputs against the store as it stood when the group
// started, since nothing is committed until all members are done. Outputs are
// committed in one batch only when every member succeeded; otherwise nothing
// the group produced becomes visible and the workflow fails.
func (e *Engine) runGroupStep(ctx context.Context, wf *taskflow.Workflow, group *taskflow.TaskGroup) {
	members := group.Tasks()
	e.emit(wf, taskflow.Event{Type: taskflow.EventGroupStarted, Group: group.Name()})

	results := make([]taskResult, len(members))

	var eg errgroup.Group
	if e.config.MaxGroupConcurrency > 0 {
		eg.SetLimit(e.config.MaxGroupConcurrency)
	}

	for i, task := range members {
		eg.Go(func() error {
			results[i] = e.executeTask(ctx, wf, task, group.Name())
			if results[i].err != nil {
				return results[i].err
			}
			return nil
		})
	}

	// Members never cancel each other; Wait only tells us whether any failed.
	if err := eg.Wait(); err != nil {
		for i, task := range members {
			if results[i].err == nil {
				continue
			}
			groupErr := groupMemberError(group.Name(), task.Name(), results[i].err)
			e.emit(wf, taskflow.Event{
				Type:       taskflow.EventGroupFailed,
				Group:      group.Name(),
				Task:       task.Name(),
				RetryCount: results[i].retryCount,
				Error:      groupErr,
			})
			e.failWorkflow(ctx, wf, group.Name(), results[i].retryCount, groupErr)
			return
		}
	}

	batch := make(map[string]taskflow.Values, len(members))
	for i, task := range members {
		batch[group.Namespace(task)] = results[i].outputs
	}
	wf.Outputs().Commit(batch)

	e.emit(wf, taskflow.Event{Type: taskflow.EventGroupCompleted, Group: group.Name()})
	e.advance(ctx, wf)
}

// groupMemberError wraps the first failing member (in declaration order)
func groupMemberError(group, member string, cause *taskflow.TaskError) *taskflow.WorkflowError {
	return taskflow.NewWorkflowErrorWithComponent(
		taskflow.ErrCodeGroupMemberFailed,
		fmt.Sprintf("group %s: member %s failed: %s", group, member, cause.Message),
		group,
	).WithDetails(map[string]interface{}{
		"member":     member,
		"cause_code": cause.Code,
	})
}
