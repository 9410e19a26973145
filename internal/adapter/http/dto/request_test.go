package dto

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestChatRequest(t *testing.T) {
	req := &ChatRequest{Sender: " TR120006200000000000000001 ", Content: "bakiye", Type: "CHAT"}

	if req.Blank() {
		t.Fatalf("expected non-blank request")
	}

	in := req.ToUseCaseInput()
	if in.Sender != "TR120006200000000000000001" || in.Content != "bakiye" {
		t.Fatalf("unexpected input: %+v", in)
	}

	if !(&ChatRequest{Content: " \t\n"}).Blank() {
		t.Fatalf("expected whitespace content to be blank")
	}
}

func TestCreateTransferRequest_ToUseCaseInput(t *testing.T) {
	tests := []struct {
		name        string
		request     *CreateTransferRequest
		wantAmount  decimal.Decimal
		expectError bool
	}{
		{
			name:       "valid amount",
			request:    &CreateTransferRequest{FromAccountID: "from", ToAccountID: "to", Amount: "12.34"},
			wantAmount: decimal.RequireFromString("12.34"),
		},
		{
			name:       "surrounding spaces",
			request:    &CreateTransferRequest{FromAccountID: " from ", ToAccountID: "to", Amount: " 5 "},
			wantAmount: decimal.NewFromInt(5),
		},
		{
			name:        "invalid amount",
			request:     &CreateTransferRequest{FromAccountID: "from", ToAccountID: "to", Amount: "abc"},
			expectError: true,
		},
		{
			name:        "empty amount",
			request:     &CreateTransferRequest{FromAccountID: "from", ToAccountID: "to"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.request.ToUseCaseInput()
			if tt.expectError {
				if err == nil {
					t.Fatalf("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.SourceID != "from" || got.DestinationID != "to" || !got.Amount.Equal(tt.wantAmount) {
				t.Fatalf("ToUseCaseInput() = %+v", got)
			}
		})
	}
}
