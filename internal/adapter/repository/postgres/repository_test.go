package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/shopspring/decimal"

	"github.com/iho/ledgerbot/internal/domain"
	"github.com/iho/ledgerbot/internal/usecase"
)

const testIBAN = "TR120006200000000000000001"

type foreignTx struct{}

func (foreignTx) Commit(context.Context) error   { return nil }
func (foreignTx) Rollback(context.Context) error { return nil }

func beginTx(t *testing.T, pool pgxmock.PgxPoolIface) usecase.Transaction {
	t.Helper()
	pool.ExpectBegin()
	tx, err := NewTxManager(pool).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return tx
}

func TestAccountRepositoryUpdateBalance(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	repo := NewAccountRepository(pool)

	pool.ExpectExec("UPDATE accounts SET balance").
		WithArgs(testIBAN, pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	pool.ExpectExec("UPDATE accounts SET balance").
		WithArgs("TR000000000000000000000000", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdateBalance(context.Background(), tx, testIBAN, decimal.NewFromInt(90), time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := repo.UpdateBalance(context.Background(), tx, "TR000000000000000000000000", decimal.NewFromInt(1), time.Now())
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	assertExpectations(t, pool)
}

func TestAccountRepositoryGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	repo := NewAccountRepository(pool)

	pool.ExpectQuery("SELECT (.+) FROM accounts WHERE id = \\$1").
		WithArgs(testIBAN).
		WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), testIBAN); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}

	assertExpectations(t, pool)
}

func TestCustomerRepositoryGetByIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	repo := NewCustomerRepository(pool)

	pool.ExpectQuery("FROM customers").WithArgs("cus-x").WillReturnError(pgx.ErrNoRows)

	if _, err := repo.GetByID(context.Background(), "cus-x"); !errors.Is(err, domain.ErrCustomerNotFound) {
		t.Fatalf("expected ErrCustomerNotFound, got %v", err)
	}
}

func TestEntryRepositoryCreate(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	repo := NewEntryRepository(pool)

	pool.ExpectExec("INSERT INTO entries").
		WithArgs("e1", testIBAN, "t1", "TRANSFER_OUT", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), tx, &domain.LedgerEntry{
		ID:           "e1",
		AccountID:    testIBAN,
		TransferID:   "t1",
		Kind:         domain.EntryKindTransferOut,
		Amount:       decimal.NewFromInt(-10),
		BalanceAfter: decimal.NewFromInt(90),
		CreatedAt:    time.Now(),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	assertExpectations(t, pool)
}

func TestOutboxRepositoryCreateAndMark(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	repo := NewOutboxRepository(pool)

	pool.ExpectExec("INSERT INTO outbox_events").
		WithArgs("ev1", "t1", domain.AggregateTypeTransfer, domain.EventTypeTransferCompleted,
			pgxmock.AnyArg(), pgxmock.AnyArg(), false).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectExec("UPDATE outbox_events SET published = true").
		WithArgs("ev1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.Create(context.Background(), tx, &domain.OutboxEvent{
		ID:            "ev1",
		AggregateID:   "t1",
		AggregateType: domain.AggregateTypeTransfer,
		EventType:     domain.EventTypeTransferCompleted,
		Payload:       map[string]any{"transfer_id": "t1"},
		CreatedAt:     time.Now(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := repo.MarkPublished(context.Background(), "ev1", time.Now()); err != nil {
		t.Fatalf("mark published: %v", err)
	}

	assertExpectations(t, pool)
}

func TestRepositoriesRejectForeignTransaction(t *testing.T) {
	pool := newMockPool(t)
	ctx := context.Background()

	if err := NewAccountRepository(pool).UpdateBalance(ctx, foreignTx{}, testIBAN, decimal.Zero, time.Now()); !errors.Is(err, errForeignTx) {
		t.Fatalf("expected errForeignTx, got %v", err)
	}
	if _, err := NewAccountRepository(pool).GetByIDsForUpdate(ctx, foreignTx{}, []string{testIBAN}); !errors.Is(err, errForeignTx) {
		t.Fatalf("expected errForeignTx, got %v", err)
	}
	if err := NewEntryRepository(pool).Create(ctx, foreignTx{}, &domain.LedgerEntry{}); !errors.Is(err, errForeignTx) {
		t.Fatalf("expected errForeignTx, got %v", err)
	}
}

func TestDecimalNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "100", "-42.5", "1234567.89", "0.01"} {
		d := decimal.RequireFromString(s)
		if got := numericToDecimal(decimalToNumeric(d)); !got.Equal(d) {
			t.Errorf("round trip of %s gave %s", s, got)
		}
	}
}
