package v1

import (
	"encoding/json"
	"time"
)

// Envelope is the canonical, versioned event envelope shared by every
// Tessera context outbox. This package is contract-only and must stay
// backward compatible; consumers key on EventType + SchemaVersion.
//
// Event types currently emitted:
//   - registry.bound, registry.rebound
//   - policy.created
//   - payment.received, distribution.completed
//   - goal.completed, goal.cancelled
//   - fees.overdue
type Envelope struct {
	EventID          string          `json:"event_id"`
	EventType        string          `json:"event_type"`
	OccurredAt       time.Time       `json:"occurred_at"`
	SourceService    string          `json:"source_service"`
	TraceID          string          `json:"trace_id"`
	SchemaVersion    int             `json:"schema_version"`
	PartitionKeyPath string          `json:"partition_key_path"`
	PartitionKey     string          `json:"partition_key"`
	Data             json.RawMessage `json:"data"`
}
