package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryKind classifies a ledger entry.
type EntryKind string

const (
	EntryKindTransferOut EntryKind = "TRANSFER_OUT"
	EntryKindTransferIn  EntryKind = "TRANSFER_IN"
	EntryKindDeposit     EntryKind = "DEPOSIT"
	EntryKindWithdrawal  EntryKind = "WITHDRAWAL"
)

// LedgerEntry is one immutable, signed balance change on a single account.
// Negative amounts are debit legs, positive amounts are credit legs.
type LedgerEntry struct {
	CreatedAt    time.Time
	ID           string
	AccountID    string
	TransferID   string
	Kind         EntryKind
	Amount       decimal.Decimal
	BalanceAfter decimal.Decimal
}

// IsDebit reports whether the entry takes money out of the account.
func (e *LedgerEntry) IsDebit() bool {
	return e.Amount.IsNegative()
}
