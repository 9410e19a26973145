package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountStatus is the lifecycle state of an account.
type AccountStatus string

const (
	AccountStatusActive  AccountStatus = "ACTIVE"
	AccountStatusBlocked AccountStatus = "BLOCKED"
)

// Account is a customer account addressed by its IBAN.
type Account struct {
	ID         string // IBAN
	CustomerID string
	Balance    decimal.Decimal
	Status     AccountStatus
	Version    int64
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsActive reports whether the account may take part in a transfer.
func (a *Account) IsActive() bool {
	return a.Status == AccountStatusActive
}

// ValidateDebit checks if account can be debited by amount without going negative.
func (a *Account) ValidateDebit(amount decimal.Decimal) error {
	if a.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	return nil
}

// ApplyDebit returns new balance after debit.
func (a *Account) ApplyDebit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Sub(amount)
}

// ApplyCredit returns new balance after credit.
func (a *Account) ApplyCredit(amount decimal.Decimal) decimal.Decimal {
	return a.Balance.Add(amount)
}
