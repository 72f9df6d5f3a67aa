//go:build integration

package store

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sicko7947/taskflow"
)

// deleteTestTable deletes the temporary DynamoDB table
func deleteTestTable(ctx context.Context, client *dynamodb.Client, tableName string) error {
	_, err := client.DeleteTable(ctx, &dynamodb.DeleteTableInput{
		TableName: aws.String(tableName),
	})
	return err
}

// setupIntegrationTest creates a test table and returns a store instance
func setupIntegrationTest(t *testing.T) (*DynamoDBStore, func()) {
	ctx := context.Background()

	// Load AWS config
	cfg, err := config.LoadDefaultConfig(ctx)
	require.NoError(t, err, "Failed to load AWS config")

	client := dynamodb.NewFromConfig(cfg)

	// Create unique table name with timestamp
	tableName := fmt.Sprintf("taskflow-integration-test-%d", time.Now().Unix())

	err = CreateTable(ctx, client, tableName, 2*time.Minute)
	require.NoError(t, err, "Failed to create test table")

	t.Logf("Created test table: %s", tableName)

	cleanup := func() {
		err := deleteTestTable(context.Background(), client, tableName)
		if err != nil {
			t.Logf("Warning: Failed to delete test table %s: %v", tableName, err)
		} else {
			t.Logf("Deleted test table: %s", tableName)
		}
	}

	return NewDynamoDBStore(client, tableName), cleanup
}

func TestIntegration_SaveLoadListDelete(t *testing.T) {
	store, cleanup := setupIntegrationTest(t)
	defer cleanup()

	ctx := context.Background()
	now := time.Now().UTC()

	for i, phase := range []taskflow.Phase{taskflow.PhaseCompleted, taskflow.PhaseFailed, taskflow.PhaseCompleted} {
		snap := &taskflow.WorkflowSnapshot{
			WorkflowID: fmt.Sprintf("wf-%d", i),
			Name:       "pipeline",
			Phase:      phase,
			Outputs:    []byte(`{}`),
			CreatedAt:  now.Add(time.Duration(i) * time.Second),
			UpdatedAt:  now,
		}
		require.NoError(t, store.SaveWorkflow(ctx, snap))
	}

	loaded, err := store.LoadWorkflow(ctx, "wf-1")
	require.NoError(t, err)
	assert.Equal(t, taskflow.PhaseFailed, loaded.Phase)

	completed := taskflow.PhaseCompleted
	snaps, err := store.ListWorkflows(ctx, taskflow.SnapshotFilter{Name: "pipeline", Phase: &completed})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, "wf-2", snaps[0].WorkflowID)

	require.NoError(t, store.DeleteWorkflow(ctx, "wf-0"))
	_, err = store.LoadWorkflow(ctx, "wf-0")
	assert.ErrorIs(t, err, taskflow.ErrNotFound)
}
