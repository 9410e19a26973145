package dto

import (
	"time"

	"github.com/iho/ledgerbot/internal/domain"
)

// AccountResponse represents an account in API responses.
type AccountResponse struct {
	IBAN       string    `json:"iban"`
	CustomerID string    `json:"customer_id"`
	Balance    string    `json:"balance"`
	Status     string    `json:"status"`
	Version    int64     `json:"version"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// AccountFromDomain converts domain account to response.
func AccountFromDomain(a *domain.Account) *AccountResponse {
	return &AccountResponse{
		IBAN:       a.ID,
		CustomerID: a.CustomerID,
		Balance:    a.Balance.StringFixed(2),
		Status:     string(a.Status),
		Version:    a.Version,
		CreatedAt:  a.CreatedAt,
		UpdatedAt:  a.UpdatedAt,
	}
}

// AccountsFromDomain converts domain accounts to responses.
func AccountsFromDomain(accounts []*domain.Account) []*AccountResponse {
	result := make([]*AccountResponse, len(accounts))
	for i, a := range accounts {
		result[i] = AccountFromDomain(a)
	}
	return result
}

// CustomerResponse represents a customer in API responses.
type CustomerResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// CustomerFromDomain converts domain customer to response.
func CustomerFromDomain(c *domain.Customer) *CustomerResponse {
	return &CustomerResponse{
		ID:        c.ID,
		Name:      c.FullName(),
		Email:     c.Email,
		CreatedAt: c.CreatedAt,
	}
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID           string    `json:"id"`
	AccountID    string    `json:"account_id"`
	TransferID   string    `json:"transfer_id,omitempty"`
	Kind         string    `json:"kind"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balance_after"`
	CreatedAt    time.Time `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.LedgerEntry) *EntryResponse {
	return &EntryResponse{
		ID:           e.ID,
		AccountID:    e.AccountID,
		TransferID:   e.TransferID,
		Kind:         string(e.Kind),
		Amount:       e.Amount.StringFixed(2),
		BalanceAfter: e.BalanceAfter.StringFixed(2),
		CreatedAt:    e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.LedgerEntry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// ListEntriesResponse is one page of account history.
type ListEntriesResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Limit   int              `json:"limit,omitempty"`
	Offset  int              `json:"offset,omitempty"`
}

// TransferResponse represents a transfer in API responses.
type TransferResponse struct {
	ID            string           `json:"id"`
	FromAccountID string           `json:"from_account_id"`
	ToAccountID   string           `json:"to_account_id"`
	Amount        string           `json:"amount"`
	CreatedAt     time.Time        `json:"created_at"`
	Entries       []*EntryResponse `json:"entries,omitempty"`
}

// TransferFromDomain converts domain transfer to response.
func TransferFromDomain(t *domain.Transfer) *TransferResponse {
	resp := &TransferResponse{
		ID:            t.ID,
		FromAccountID: t.FromAccountID,
		ToAccountID:   t.ToAccountID,
		Amount:        t.Amount.StringFixed(2),
		CreatedAt:     t.CreatedAt,
	}
	for _, leg := range []*domain.LedgerEntry{t.Debit, t.Credit} {
		if leg != nil {
			resp.Entries = append(resp.Entries, EntryFromDomain(leg))
		}
	}
	return resp
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
