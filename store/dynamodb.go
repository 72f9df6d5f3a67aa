package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sicko7947/taskflow"
)

// DynamoDBStore implements taskflow.SnapshotStore using AWS DynamoDB
type DynamoDBStore struct {
	client    DynamoDBClient
	tableName string
}

// NewDynamoDBStore creates a new DynamoDB-backed snapshot store
func NewDynamoDBStore(client DynamoDBClient, tableName string) *DynamoDBStore {
	return &DynamoDBStore{
		client:    client,
		tableName: tableName,
	}
}

var _ taskflow.SnapshotStore = (*DynamoDBStore)(nil)

// SaveWorkflow writes the snapshot as a single item, replacing the previous one
func (s *DynamoDBStore) SaveWorkflow(ctx context.Context, snap *taskflow.WorkflowSnapshot) error {
	if snap == nil || snap.WorkflowID == "" {
		return fmt.Errorf("snapshot must have a workflow ID")
	}

	// Marshal the snapshot
	item, err := attributevalue.MarshalMap(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal workflow snapshot: %w", err)
	}

	// Add keys
	item[AttrPK] = &types.AttributeValueMemberS{Value: workflowPK(snap.WorkflowID)}
	item[AttrSK] = &types.AttributeValueMemberS{Value: workflowSK()}
	item[AttrEntityType] = &types.AttributeValueMemberS{Value: EntityTypeWorkflow}

	// Add GSI keys (phase may have changed)
	item[AttrGSI1PK] = &types.AttributeValueMemberS{Value: workflowGSI1PK(snap.Name)}
	item[AttrGSI1SK] = &types.AttributeValueMemberS{Value: workflowGSI1SK(snap.Phase, snap.CreatedAt)}

	// Put item
	_, err = s.client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(s.tableName),
		Item:      item,
	})
	if err != nil {
		return fmt.Errorf("failed to save workflow snapshot: %w", err)
	}

	return nil
}

func (s *DynamoDBStore) LoadWorkflow(ctx context.Context, workflowID string) (*taskflow.WorkflowSnapshot, error) {
	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: workflowPK(workflowID)},
			AttrSK: &types.AttributeValueMemberS{Value: workflowSK()},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get workflow snapshot: %w", err)
	}

	if result.Item == nil {
		return nil, fmt.Errorf("workflow %s: %w", workflowID, taskflow.ErrNotFound)
	}

	var snap taskflow.WorkflowSnapshot
	if err := attributevalue.UnmarshalMap(result.Item, &snap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal workflow snapshot: %w", err)
	}

	return &snap, nil
}

// ListWorkflows queries GSI1 by workflow name, optionally narrowed to a phase.
// Results come back newest first. A name is required: the table is never scanned.
func (s *DynamoDBStore) ListWorkflows(ctx context.Context, filter taskflow.SnapshotFilter) ([]*taskflow.WorkflowSnapshot, error) {
	if filter.Name == "" {
		return nil, fmt.Errorf("%w: listing workflows requires a name", taskflow.ErrUnsupportedFilter)
	}

	keyCondition := "GSI1PK = :pk"
	values := map[string]types.AttributeValue{
		":pk": &types.AttributeValueMemberS{Value: workflowGSI1PK(filter.Name)},
	}
	if filter.Phase != nil {
		keyCondition += " AND begins_with(GSI1SK, :sk)"
		values[":sk"] = &types.AttributeValueMemberS{Value: phasePrefix(*filter.Phase)}
	}

	queryInput := &dynamodb.QueryInput{
		TableName:                 aws.String(s.tableName),
		IndexName:                 aws.String(IndexNameIndex),
		KeyConditionExpression:    aws.String(keyCondition),
		ExpressionAttributeValues: values,
		ScanIndexForward:          aws.Bool(false),
	}
	if filter.Limit > 0 {
		queryInput.Limit = aws.Int32(int32(filter.Limit))
	}

	var snaps []*taskflow.WorkflowSnapshot
	pages := dynamodb.NewQueryPaginator(s.client, queryInput)
	for pages.HasMorePages() {
		result, err := pages.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query workflow snapshots: %w", err)
		}

		for _, item := range result.Items {
			var snap taskflow.WorkflowSnapshot
			if err := attributevalue.UnmarshalMap(item, &snap); err != nil {
				return nil, fmt.Errorf("failed to unmarshal workflow snapshot: %w", err)
			}
			snaps = append(snaps, &snap)
		}

		if filter.Limit > 0 && len(snaps) >= filter.Limit {
			return snaps[:filter.Limit], nil
		}
	}

	return snaps, nil
}

func (s *DynamoDBStore) DeleteWorkflow(ctx context.Context, workflowID string) error {
	result, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName: aws.String(s.tableName),
		Key: map[string]types.AttributeValue{
			AttrPK: &types.AttributeValueMemberS{Value: workflowPK(workflowID)},
			AttrSK: &types.AttributeValueMemberS{Value: workflowSK()},
		},
		ReturnValues: types.ReturnValueAllOld,
	})
	if err != nil {
		return fmt.Errorf("failed to delete workflow snapshot: %w", err)
	}

	if len(result.Attributes) == 0 {
		return fmt.Errorf("workflow %s: %w", workflowID, taskflow.ErrNotFound)
	}

	return nil
}
