package domain

import "time"

// Event types
const (
	EventTypeTransferCompleted = "transfer.completed"
)

// Aggregate types
const (
	AggregateTypeTransfer = "transfer"
)

// OutboxEvent represents an event to be published
type OutboxEvent struct {
	ID            string
	AggregateID   string
	AggregateType string
	EventType     string
	Payload       map[string]any
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Published     bool
}

// TransferCompletedEvent payload
type TransferCompletedEvent struct {
	TransferID    string `json:"transfer_id"`
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        string `json:"amount"`
	EventAt       string `json:"event_at"`
}

// Map converts the payload to the generic outbox payload form.
func (e TransferCompletedEvent) Map() map[string]any {
	return map[string]any{
		"transfer_id":     e.TransferID,
		"from_account_id": e.FromAccountID,
		"to_account_id":   e.ToAccountID,
		"amount":          e.Amount,
		"event_at":        e.EventAt,
	}
}
