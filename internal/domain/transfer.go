package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is a completed money movement between two accounts together with
// its paired ledger legs.
type Transfer struct {
	CreatedAt          time.Time
	ID                 string
	FromAccountID      string
	ToAccountID        string
	Amount             decimal.Decimal
	SourceBalance      decimal.Decimal
	DestinationBalance decimal.Decimal
	Debit              *LedgerEntry
	Credit             *LedgerEntry
}

// Validate checks the request shape of a transfer in the order the engine
// enforces it: amount, identifiers, then distinct endpoints.
func (t *Transfer) Validate() error {
	if err := ValidateAmount(t.Amount); err != nil {
		return err
	}

	if err := ValidateIdentifier(t.FromAccountID); err != nil {
		return err
	}

	if err := ValidateIdentifier(t.ToAccountID); err != nil {
		return err
	}

	if t.FromAccountID == t.ToAccountID {
		return ErrSameAccount
	}

	return nil
}
