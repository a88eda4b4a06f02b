package outbox

import "time"

// Message is an outbox row persisted alongside the state change that
// produced it. The worker relay reads pending rows in CreatedAt order and
// publishes them to the message bus, marking each published exactly once.
type Message struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

const (
	StatusPending   = "pending"
	StatusPublished = "published"
)
