package usecase

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgerbot/internal/domain"
)

// AccountUseCase handles account queries.
type AccountUseCase struct {
	accountRepo  AccountRepository
	entryRepo    EntryRepository
	customerRepo CustomerRepository
}

// NewAccountUseCase creates a new AccountUseCase.
func NewAccountUseCase(accountRepo AccountRepository, entryRepo EntryRepository, customerRepo CustomerRepository) *AccountUseCase {
	return &AccountUseCase{
		accountRepo:  accountRepo,
		entryRepo:    entryRepo,
		customerRepo: customerRepo,
	}
}

// GetAccount retrieves an account by identifier.
func (uc *AccountUseCase) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	if err := domain.ValidateIdentifier(id); err != nil {
		return nil, err
	}
	return uc.accountRepo.GetByID(ctx, id)
}

// GetBalance returns the current balance of an account.
func (uc *AccountUseCase) GetBalance(ctx context.Context, id string) (decimal.Decimal, error) {
	account, err := uc.GetAccount(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return account.Balance, nil
}

// RecentEntries returns the latest entries of an account, most recent first.
// limit is clamped to [1, MaxRecentEntries]; zero or less means
// DefaultRecentEntries.
func (uc *AccountUseCase) RecentEntries(ctx context.Context, id string, limit int) ([]*domain.LedgerEntry, error) {
	if err := domain.ValidateIdentifier(id); err != nil {
		return nil, err
	}

	if limit <= 0 {
		limit = DefaultRecentEntries
	}
	if limit > MaxRecentEntries {
		limit = MaxRecentEntries
	}

	return uc.entryRepo.ListRecent(ctx, id, limit)
}

// ListEntriesInput represents input for paging through account history.
type ListEntriesInput struct {
	AccountID string
	Limit     int
	Offset    int
}

// ListEntries pages through the full history of an existing account.
func (uc *AccountUseCase) ListEntries(ctx context.Context, input ListEntriesInput) ([]*domain.LedgerEntry, error) {
	if _, err := uc.GetAccount(ctx, input.AccountID); err != nil {
		return nil, err
	}

	limit, offset := domain.ValidatePagination(input.Limit, input.Offset)

	return uc.entryRepo.ListByAccount(ctx, input.AccountID, limit, offset)
}

// GetCustomer retrieves a customer by ID.
func (uc *AccountUseCase) GetCustomer(ctx context.Context, id string) (*domain.Customer, error) {
	return uc.customerRepo.GetByID(ctx, id)
}

// ListCustomerAccounts returns every account owned by a customer.
func (uc *AccountUseCase) ListCustomerAccounts(ctx context.Context, customerID string) ([]*domain.Account, error) {
	if _, err := uc.customerRepo.GetByID(ctx, customerID); err != nil {
		return nil, err
	}
	return uc.accountRepo.ListByCustomer(ctx, customerID)
}
