package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestCustomer_Validate(t *testing.T) {
	tests := []struct {
		name     string
		customer Customer
		wantErr  error
	}{
		{"valid", Customer{ID: "cus-1", Email: "a@bank.test"}, nil},
		{"bad email", Customer{ID: "cus-1", Email: "a@"}, ErrInvalidEmail},
		{"missing email", Customer{ID: "cus-1"}, ErrInvalidEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.customer.Validate()
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}

	if err := (&Customer{Email: "a@bank.test"}).Validate(); err == nil {
		t.Fatal("expected missing id to fail")
	}
}

func TestCustomer_FullName(t *testing.T) {
	tests := []struct {
		first, last, want string
	}{
		{"Ada", "Lovelace", "Ada Lovelace"},
		{"Ada", "", "Ada"},
		{"", "Lovelace", "Lovelace"},
	}

	for _, tt := range tests {
		c := Customer{FirstName: tt.first, LastName: tt.last}
		if got := c.FullName(); got != tt.want {
			t.Errorf("FullName(%q, %q) = %q, want %q", tt.first, tt.last, got, tt.want)
		}
	}
}

func TestLedgerEntry_IsDebit(t *testing.T) {
	if !(&LedgerEntry{Amount: decimal.NewFromInt(-5)}).IsDebit() {
		t.Error("negative amount must be a debit")
	}
	if (&LedgerEntry{Amount: decimal.NewFromInt(5)}).IsDebit() {
		t.Error("positive amount must not be a debit")
	}
}
