package usecase

import "time"

const (
	// DefaultTransactionTimeout bounds the commit phase of a transfer, which no
	// longer follows the caller's cancellation.
	DefaultTransactionTimeout = 10 * time.Second

	// IdempotencyKeyTTL is how long idempotency keys are cached
	IdempotencyKeyTTL = 24 * time.Hour
	// IdempotencyPending is the value of a key whose first request is still
	// in flight.
	IdempotencyPending = "processing"

	// DefaultRecentEntries is the history size shown in chat.
	DefaultRecentEntries = 10
	// MaxRecentEntries caps RecentEntries.
	MaxRecentEntries = 100
)
