package memory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgerbot/internal/domain"
)

// Demo account identifiers loaded by SeedDemo.
const (
	DemoCustomerID = "cus-demo"
	DemoAccountA   = "TR120006200000000000000001"
	DemoAccountB   = "TR120006200000000000000002"
	DemoAccountC   = "TR120006200000000000000003"
)

// SeedDemo loads one customer with two active accounts and a blocked one.
func SeedDemo(s *Store, now time.Time) error {
	err := s.AddCustomer(&domain.Customer{
		ID:        DemoCustomerID,
		Email:     "demo@ledgerbot.local",
		FirstName: "Demo",
		LastName:  "Customer",
		CreatedAt: now,
	})
	if err != nil {
		return err
	}

	for _, acc := range []struct {
		id      string
		balance int64
		status  domain.AccountStatus
	}{
		{DemoAccountA, 1000, domain.AccountStatusActive},
		{DemoAccountB, 500, domain.AccountStatusActive},
		{DemoAccountC, 0, domain.AccountStatusBlocked},
	} {
		s.AddAccount(&domain.Account{
			ID:         acc.id,
			CustomerID: DemoCustomerID,
			Balance:    decimal.NewFromInt(acc.balance),
			Status:     acc.status,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}
	return nil
}
