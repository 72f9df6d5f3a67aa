package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/sicko7947/taskflow"
)

// MemoryStore implements taskflow.SnapshotStore using in-memory storage
type MemoryStore struct {
	workflows map[string]*taskflow.WorkflowSnapshot
	mu        sync.RWMutex
}

// NewMemoryStore creates a new in-memory snapshot store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		workflows: make(map[string]*taskflow.WorkflowSnapshot),
	}
}

var _ taskflow.SnapshotStore = (*MemoryStore)(nil)

// SaveWorkflow stores the latest snapshot, replacing any earlier one
func (s *MemoryStore) SaveWorkflow(ctx context.Context, snap *taskflow.WorkflowSnapshot) error {
	if snap == nil || snap.WorkflowID == "" {
		return fmt.Errorf("snapshot must have a workflow ID")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.workflows[snap.WorkflowID] = copySnapshot(snap)
	return nil
}

func (s *MemoryStore) LoadWorkflow(ctx context.Context, workflowID string) (*taskflow.WorkflowSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap, exists := s.workflows[workflowID]
	if !exists {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, taskflow.ErrNotFound)
	}

	return copySnapshot(snap), nil
}

// ListWorkflows returns matching snapshots, newest first
func (s *MemoryStore) ListWorkflows(ctx context.Context, filter taskflow.SnapshotFilter) ([]*taskflow.WorkflowSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var snaps []*taskflow.WorkflowSnapshot
	for _, snap := range s.workflows {
		if !filter.Matches(snap) {
			continue
		}
		snaps = append(snaps, copySnapshot(snap))
	}

	sort.Slice(snaps, func(i, j int) bool {
		if snaps[i].CreatedAt.Equal(snaps[j].CreatedAt) {
			return snaps[i].WorkflowID < snaps[j].WorkflowID
		}
		return snaps[i].CreatedAt.After(snaps[j].CreatedAt)
	})

	// Apply limit
	if filter.Limit > 0 && len(snaps) > filter.Limit {
		snaps = snaps[:filter.Limit]
	}

	return snaps, nil
}

func (s *MemoryStore) DeleteWorkflow(ctx context.Context, workflowID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.workflows[workflowID]; !exists {
		return fmt.Errorf("workflow %s: %w", workflowID, taskflow.ErrNotFound)
	}

	delete(s.workflows, workflowID)
	return nil
}
