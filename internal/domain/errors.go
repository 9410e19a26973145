package domain

import "errors"

var (
	// Account errors
	ErrAccountNotFound     = errors.New("account not found")
	ErrInactiveAccount     = errors.New("account is not active")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrCustomerNotFound    = errors.New("customer not found")

	// Transfer errors
	ErrSameAccount       = errors.New("cannot transfer to same account")
	ErrInvalidAmount     = errors.New("amount must be positive")
	ErrInvalidIdentifier = errors.New("invalid account identifier")
	ErrTransferNotFound  = errors.New("transfer not found")

	// Auth errors
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token expired")
)
