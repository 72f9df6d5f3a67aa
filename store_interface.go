package taskflow

import "context"

// SnapshotStore defines the persistence interface for workflow instances
type SnapshotStore interface {
	SaveWorkflow(ctx context.Context, snap *WorkflowSnapshot) error
	LoadWorkflow(ctx context.Context, workflowID string) (*WorkflowSnapshot, error)
	ListWorkflows(ctx context.Context, filter SnapshotFilter) ([]*WorkflowSnapshot, error)
	DeleteWorkflow(ctx context.Context, workflowID string) error
}

// SnapshotFilter defines filtering criteria for stored workflows
type SnapshotFilter struct {
	Name  string
	Phase *Phase
	Limit int
}

// Matches reports whether the snapshot passes the filter (limit aside)
func (f SnapshotFilter) Matches(s *WorkflowSnapshot) bool {
	if f.Name != "" && s.Name != f.Name {
		return false
	}
	if f.Phase != nil && s.Phase != *f.Phase {
		return false
	}
	return true
}
