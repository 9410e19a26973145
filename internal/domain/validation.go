package domain

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Validation errors
var (
	ErrAmountTooLarge = errors.New("amount exceeds maximum allowed")
	ErrAmountTooSmall = errors.New("amount below minimum allowed")
	ErrInvalidEmail   = errors.New("invalid email format")
)

// Validation constants
const (
	IdentifierLength  = 26
	MaxTransferAmount = "1000000000" // 1 billion
	MinTransferAmount = "0.01"
	DefaultPageSize   = 50
	MaxPageSize       = 1000
)

var (
	// Two-letter country prefix followed by 24 digits, nothing else.
	identifierRegex = regexp.MustCompile(`^[A-Z]{2}[0-9]{24}$`)
	emailRegex      = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

// IsValidIdentifier reports whether id is a well-formed account identifier.
// The check is exact: no trimming and no case folding.
func IsValidIdentifier(id string) bool {
	return len(id) == IdentifierLength && identifierRegex.MatchString(id)
}

// ValidateIdentifier validates an account identifier.
func ValidateIdentifier(id string) error {
	if !IsValidIdentifier(id) {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	return nil
}

// ValidateAmount validates a transfer amount. Every failure matches ErrInvalidAmount
// under errors.Is; the bound errors are wrapped alongside it.
func ValidateAmount(amount decimal.Decimal) error {
	if amount.LessThanOrEqual(decimal.Zero) {
		return ErrInvalidAmount
	}

	minAmount := decimal.RequireFromString(MinTransferAmount)
	if amount.LessThan(minAmount) {
		return fmt.Errorf("%w: %w: minimum amount is %s", ErrInvalidAmount, ErrAmountTooSmall, MinTransferAmount)
	}

	maxAmount := decimal.RequireFromString(MaxTransferAmount)
	if amount.GreaterThan(maxAmount) {
		return fmt.Errorf("%w: %w: maximum amount is %s", ErrInvalidAmount, ErrAmountTooLarge, MaxTransferAmount)
	}

	return nil
}

// ValidateEmail validates email format
func ValidateEmail(email string) error {
	email = strings.TrimSpace(strings.ToLower(email))

	if !emailRegex.MatchString(email) {
		return ErrInvalidEmail
	}

	return nil
}

// ValidatePagination validates and limits pagination parameters
func ValidatePagination(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = DefaultPageSize
	}

	if limit > MaxPageSize {
		limit = MaxPageSize
	}

	if offset < 0 {
		offset = 0
	}

	return limit, offset
}
