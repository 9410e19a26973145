package domain

import (
	"fmt"
	"time"
)

// Customer owns one or more accounts. Accounts point back by CustomerID.
type Customer struct {
	ID        string
	Email     string
	FirstName string
	LastName  string
	CreatedAt time.Time
}

// FullName returns the display name of the customer.
func (c *Customer) FullName() string {
	switch {
	case c.FirstName == "":
		return c.LastName
	case c.LastName == "":
		return c.FirstName
	default:
		return c.FirstName + " " + c.LastName
	}
}

// Validate checks the fields a customer must carry before it is stored.
func (c *Customer) Validate() error {
	if c.ID == "" {
		return fmt.Errorf("customer id is required")
	}
	if err := ValidateEmail(c.Email); err != nil {
		return fmt.Errorf("customer %s: %w", c.ID, err)
	}
	return nil
}
