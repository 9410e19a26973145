package dto

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgerbot/internal/usecase"
)

// ChatRequest is the envelope a chat client sends. Sender holds the acting
// account identifier.
type ChatRequest struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
	Type    string `json:"type,omitempty"`
}

// Blank reports whether the request carries no message text.
func (r *ChatRequest) Blank() bool {
	return strings.TrimSpace(r.Content) == ""
}

// ToUseCaseInput converts to use case input.
func (r *ChatRequest) ToUseCaseInput() usecase.ChatInput {
	return usecase.ChatInput{
		Sender:  strings.TrimSpace(r.Sender),
		Content: r.Content,
	}
}

// CreateTransferRequest represents a request to create a transfer.
type CreateTransferRequest struct {
	FromAccountID string `json:"from_account_id"`
	ToAccountID   string `json:"to_account_id"`
	Amount        string `json:"amount"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateTransferRequest) ToUseCaseInput() (usecase.TransferInput, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(r.Amount))
	if err != nil {
		return usecase.TransferInput{}, fmt.Errorf("invalid amount %q: %w", r.Amount, err)
	}

	return usecase.TransferInput{
		SourceID:      strings.TrimSpace(r.FromAccountID),
		DestinationID: strings.TrimSpace(r.ToAccountID),
		Amount:        amount,
	}, nil
}
