package postgres

import (
	"context"

	"github.com/iho/ledgerbot/internal/domain"
	"github.com/iho/ledgerbot/internal/infrastructure/postgres/generated"
	"github.com/iho/ledgerbot/internal/usecase"
)

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	queries *generated.Queries
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(db generated.DBTX) *EntryRepository {
	return &EntryRepository{queries: generated.New(db)}
}

// Create appends an entry within tx.
func (r *EntryRepository) Create(ctx context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	queries, err := txQueries(tx)
	if err != nil {
		return err
	}

	return queries.CreateEntry(ctx, generated.CreateEntryParams{
		ID:           entry.ID,
		AccountID:    entry.AccountID,
		TransferID:   entry.TransferID,
		Kind:         string(entry.Kind),
		Amount:       decimalToNumeric(entry.Amount),
		BalanceAfter: decimalToNumeric(entry.BalanceAfter),
		CreatedAt:    timeToPgTimestamptz(entry.CreatedAt),
	})
}

// GetByTransfer retrieves both legs of a transfer.
func (r *EntryRepository) GetByTransfer(ctx context.Context, transferID string) ([]*domain.LedgerEntry, error) {
	rows, err := r.queries.GetEntriesByTransfer(ctx, transferID)
	if err != nil {
		return nil, err
	}

	return rowsToEntries(rows), nil
}

// ListRecent returns the newest entries of an account.
func (r *EntryRepository) ListRecent(ctx context.Context, accountID string, limit int) ([]*domain.LedgerEntry, error) {
	return r.ListByAccount(ctx, accountID, limit, 0)
}

// ListByAccount pages through an account's entries, newest first.
func (r *EntryRepository) ListByAccount(ctx context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	rows, err := r.queries.GetEntriesByAccount(ctx, generated.GetEntriesByAccountParams{
		AccountID: accountID,
		Limit:     int32(limit),
		Offset:    int32(offset),
	})
	if err != nil {
		return nil, err
	}

	return rowsToEntries(rows), nil
}

func rowsToEntries(rows []generated.Entry) []*domain.LedgerEntry {
	entries := make([]*domain.LedgerEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, &domain.LedgerEntry{
			ID:           row.ID,
			AccountID:    row.AccountID,
			TransferID:   row.TransferID,
			Kind:         domain.EntryKind(row.Kind),
			Amount:       numericToDecimal(row.Amount),
			BalanceAfter: numericToDecimal(row.BalanceAfter),
			CreatedAt:    row.CreatedAt.Time,
		})
	}
	return entries
}
