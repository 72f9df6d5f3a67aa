package store

import (
	"fmt"
	"time"

	"github.com/sicko7947/taskflow"
)

// DynamoDB schema constants for single-table design
const (
	// Table attributes
	AttrPK         = "PK"
	AttrSK         = "SK"
	AttrGSI1PK     = "GSI1PK"
	AttrGSI1SK     = "GSI1SK"
	AttrEntityType = "entity_type"
	AttrTTL        = "ttl"

	// Entity types
	EntityTypeWorkflow = "Workflow"

	// Index names
	IndexNameIndex = "GSI1"
)

// Key builders for single-table design

// Workflow keys: PK=WF#{workflowID}, SK=META
func workflowPK(workflowID string) string {
	return fmt.Sprintf("WF#%s", workflowID)
}

func workflowSK() string {
	return "META"
}

// GSI1 groups instances by workflow name: GSI1PK=NAME#{name}
func workflowGSI1PK(name string) string {
	return fmt.Sprintf("NAME#%s", name)
}

// GSI1SK=PHASE#{phase}#{createdAt}, so a phase filter is a begins_with query
func workflowGSI1SK(phase taskflow.Phase, createdAt time.Time) string {
	return fmt.Sprintf("%s%s", phasePrefix(phase), createdAt.UTC().Format(time.RFC3339Nano))
}

// Prefix for range queries
func phasePrefix(phase taskflow.Phase) string {
	return fmt.Sprintf("PHASE#%s#", phase)
}
