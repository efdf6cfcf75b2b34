package outbox

import "time"

type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in_progress"
	StatusSent       Status = "sent"
	StatusFailed     Status = "failed"
)

// Message is what a producer appends inside its business transaction.
type Message struct {
	AggregateType string
	AggregateID   string
	Type          string
	Payload       []byte
	Headers       map[string]string
	Traceparent   string
}

// Event is a stored message together with its delivery state.
type Event struct {
	Message

	ID         int64
	CreatedAt  time.Time
	Status     Status
	RelayID    string
	RetryCount int
	LastError  *string
}
