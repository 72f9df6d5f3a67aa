// Package store provides persistence implementations for workflow snapshots.
// The SnapshotStore interface is defined in the root taskflow package
// (../store_interface.go) so the engine can persist without importing this package.
//
// This package contains concrete implementations:
//   - DynamoDBStore: AWS DynamoDB backend
//   - MemoryStore: In-memory backend for tests and single-process use
//
// Schema design follows single-table patterns defined in schema.go.
package store

import "github.com/sicko7947/taskflow"

// copySnapshot deep-copies a snapshot so callers never share mutable state with a store
func copySnapshot(s *taskflow.WorkflowSnapshot) *taskflow.WorkflowSnapshot {
	cp := *s

	if s.StateAt != nil {
		cp.StateAt = taskflow.ToPtr(*s.StateAt)
	}
	if s.Error != nil {
		errCopy := *s.Error
		cp.Error = &errCopy
	}
	cp.Outputs = append([]byte(nil), s.Outputs...)

	cp.Tasks = make([]taskflow.TaskRecord, len(s.Tasks))
	for i, rec := range s.Tasks {
		recCopy := rec
		recCopy.Outputs = append([]byte(nil), rec.Outputs...)
		if rec.CompletedAt != nil {
			recCopy.CompletedAt = taskflow.ToPtr(*rec.CompletedAt)
		}
		if rec.Error != nil {
			errCopy := *rec.Error
			recCopy.Error = &errCopy
		}
		cp.Tasks[i] = recCopy
	}

	return &cp
}
