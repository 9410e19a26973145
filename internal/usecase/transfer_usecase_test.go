package usecase_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/mock/gomock"

	"github.com/iho/ledgerbot/internal/domain"
	"github.com/iho/ledgerbot/internal/usecase"
	"github.com/iho/ledgerbot/internal/usecase/mocks"
)

const (
	srcID = "TR120006200000000000000001"
	dstID = "TR120006200000000000000002"
)

type decimalMatcher struct{ want decimal.Decimal }

func (m decimalMatcher) Matches(x any) bool {
	d, ok := x.(decimal.Decimal)
	return ok && d.Equal(m.want)
}

func (m decimalMatcher) String() string { return "decimal equal to " + m.want.String() }

func decEq(v int64) gomock.Matcher { return decimalMatcher{want: decimal.NewFromInt(v)} }

type transferDeps struct {
	txMgr    *mocks.MockTransactionManager
	tx       *mocks.MockTransaction
	accounts *mocks.MockAccountRepository
	entries  *mocks.MockEntryRepository
	outbox   *mocks.MockOutboxRepository
	idGen    *mocks.MockIDGenerator
}

func newTransferDeps(t *testing.T) (*transferDeps, *usecase.TransferUseCase) {
	t.Helper()

	ctrl := gomock.NewController(t)
	d := &transferDeps{
		txMgr:    mocks.NewMockTransactionManager(ctrl),
		tx:       mocks.NewMockTransaction(ctrl),
		accounts: mocks.NewMockAccountRepository(ctrl),
		entries:  mocks.NewMockEntryRepository(ctrl),
		outbox:   mocks.NewMockOutboxRepository(ctrl),
		idGen:    mocks.NewMockIDGenerator(ctrl),
	}

	seq := 0
	d.idGen.EXPECT().Generate().DoAndReturn(func() string {
		seq++
		return fmt.Sprintf("id-%d", seq)
	}).AnyTimes()

	uc := usecase.NewTransferUseCase(d.txMgr, d.accounts, d.entries, d.outbox, d.idGen, nil, nil)
	return d, uc
}

func account(id string, balance int64, status domain.AccountStatus) *domain.Account {
	return &domain.Account{ID: id, Balance: decimal.NewFromInt(balance), Status: status}
}

// expectLockedRead sets up Begin, the row lock read and a rollback.
func (d *transferDeps) expectLockedRead(accounts ...*domain.Account) {
	d.txMgr.EXPECT().Begin(gomock.Any()).Return(d.tx, nil)
	d.accounts.EXPECT().GetByIDsForUpdate(gomock.Any(), d.tx, []string{srcID, dstID}).Return(accounts, nil)
	d.tx.EXPECT().Rollback(gomock.Any()).Return(nil)
}

func TestTransferUseCase_Transfer_Success(t *testing.T) {
	d, uc := newTransferDeps(t)

	d.expectLockedRead(
		account(srcID, 500, domain.AccountStatusActive),
		account(dstID, 20, domain.AccountStatusActive),
	)
	d.accounts.EXPECT().UpdateBalance(gomock.Any(), d.tx, srcID, decEq(400), gomock.Any()).Return(nil)
	d.accounts.EXPECT().UpdateBalance(gomock.Any(), d.tx, dstID, decEq(120), gomock.Any()).Return(nil)

	var written []*domain.LedgerEntry
	d.entries.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ usecase.Transaction, e *domain.LedgerEntry) error {
			written = append(written, e)
			return nil
		}).Times(2)

	var event *domain.OutboxEvent
	d.outbox.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ usecase.Transaction, e *domain.OutboxEvent) error {
			event = e
			return nil
		})
	d.tx.EXPECT().Commit(gomock.Any()).Return(nil)

	result, err := uc.Transfer(context.Background(), usecase.TransferInput{
		SourceID:      srcID,
		DestinationID: dstID,
		Amount:        decimal.NewFromInt(100),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !result.SourceBalance.Equal(decimal.NewFromInt(400)) {
		t.Errorf("expected source balance 400, got %s", result.SourceBalance)
	}
	if !result.DestinationBalance.Equal(decimal.NewFromInt(120)) {
		t.Errorf("expected destination balance 120, got %s", result.DestinationBalance)
	}

	before := decimal.NewFromInt(520)
	if after := result.SourceBalance.Add(result.DestinationBalance); !after.Equal(before) {
		t.Errorf("money not conserved: before %s after %s", before, after)
	}

	if len(written) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(written))
	}
	debit, credit := written[0], written[1]
	if debit.Kind != domain.EntryKindTransferOut || credit.Kind != domain.EntryKindTransferIn {
		t.Errorf("unexpected kinds %s/%s", debit.Kind, credit.Kind)
	}
	if !debit.Amount.Equal(credit.Amount.Neg()) {
		t.Errorf("legs are not paired: %s vs %s", debit.Amount, credit.Amount)
	}
	if debit.TransferID != result.ID || credit.TransferID != result.ID {
		t.Errorf("entries do not reference transfer %s", result.ID)
	}
	if !debit.CreatedAt.Equal(credit.CreatedAt) {
		t.Errorf("legs have different timestamps")
	}

	if event == nil || event.EventType != domain.EventTypeTransferCompleted || event.AggregateID != result.ID {
		t.Errorf("unexpected outbox event %+v", event)
	}
}

func TestTransferUseCase_Transfer_RejectedBeforeStorage(t *testing.T) {
	tests := []struct {
		name        string
		input       usecase.TransferInput
		expectError error
	}{
		{
			name:        "zero amount",
			input:       usecase.TransferInput{SourceID: srcID, DestinationID: dstID, Amount: decimal.Zero},
			expectError: domain.ErrInvalidAmount,
		},
		{
			name:        "negative amount with bad identifiers",
			input:       usecase.TransferInput{SourceID: "x", DestinationID: "y", Amount: decimal.NewFromInt(-1)},
			expectError: domain.ErrInvalidAmount,
		},
		{
			name:        "malformed destination",
			input:       usecase.TransferInput{SourceID: srcID, DestinationID: "12345", Amount: decimal.NewFromInt(50)},
			expectError: domain.ErrInvalidIdentifier,
		},
		{
			name:        "lower case source",
			input:       usecase.TransferInput{SourceID: "tr120006200000000000000001", DestinationID: dstID, Amount: decimal.NewFromInt(50)},
			expectError: domain.ErrInvalidIdentifier,
		},
		{
			name:        "same account",
			input:       usecase.TransferInput{SourceID: srcID, DestinationID: srcID, Amount: decimal.NewFromInt(50)},
			expectError: domain.ErrSameAccount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// No expectations: any storage call fails the test.
			_, uc := newTransferDeps(t)

			_, err := uc.Transfer(context.Background(), tt.input)
			if !errors.Is(err, tt.expectError) {
				t.Errorf("expected error %v, got %v", tt.expectError, err)
			}
		})
	}
}

func TestTransferUseCase_Transfer_RejectedAfterRead(t *testing.T) {
	tests := []struct {
		name        string
		accounts    []*domain.Account
		amount      int64
		expectError error
	}{
		{
			name:        "destination missing",
			accounts:    []*domain.Account{account(srcID, 500, domain.AccountStatusActive)},
			amount:      100,
			expectError: domain.ErrAccountNotFound,
		},
		{
			name:        "both missing",
			accounts:    nil,
			amount:      100,
			expectError: domain.ErrAccountNotFound,
		},
		{
			name: "blocked destination",
			accounts: []*domain.Account{
				account(srcID, 500, domain.AccountStatusActive),
				account(dstID, 0, domain.AccountStatusBlocked),
			},
			amount:      100,
			expectError: domain.ErrInactiveAccount,
		},
		{
			name: "blocked source checked before balance",
			accounts: []*domain.Account{
				account(srcID, 10, domain.AccountStatusBlocked),
				account(dstID, 0, domain.AccountStatusActive),
			},
			amount:      100,
			expectError: domain.ErrInactiveAccount,
		},
		{
			name: "insufficient balance",
			accounts: []*domain.Account{
				account(srcID, 50, domain.AccountStatusActive),
				account(dstID, 0, domain.AccountStatusActive),
			},
			amount:      100,
			expectError: domain.ErrInsufficientBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, uc := newTransferDeps(t)
			d.expectLockedRead(tt.accounts...)

			_, err := uc.Transfer(context.Background(), usecase.TransferInput{
				SourceID:      srcID,
				DestinationID: dstID,
				Amount:        decimal.NewFromInt(tt.amount),
			})
			if !errors.Is(err, tt.expectError) {
				t.Errorf("expected error %v, got %v", tt.expectError, err)
			}
		})
	}
}

func TestTransferUseCase_Transfer_WriteFailureRollsBack(t *testing.T) {
	d, uc := newTransferDeps(t)

	d.expectLockedRead(
		account(srcID, 500, domain.AccountStatusActive),
		account(dstID, 0, domain.AccountStatusActive),
	)
	d.accounts.EXPECT().UpdateBalance(gomock.Any(), d.tx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)

	storageErr := errors.New("disk full")
	d.entries.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).Return(storageErr)

	_, err := uc.Transfer(context.Background(), usecase.TransferInput{
		SourceID:      srcID,
		DestinationID: dstID,
		Amount:        decimal.NewFromInt(100),
	})
	if !errors.Is(err, storageErr) {
		t.Fatalf("expected storage error, got %v", err)
	}
	if usecase.IsBusinessError(err) {
		t.Errorf("storage failure must not be reported as a business error")
	}
}

func TestTransferUseCase_Transfer_CancelledBeforeCommit(t *testing.T) {
	d, uc := newTransferDeps(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.txMgr.EXPECT().Begin(gomock.Any()).Return(d.tx, nil)
	d.accounts.EXPECT().GetByIDsForUpdate(gomock.Any(), d.tx, gomock.Any()).
		DoAndReturn(func(context.Context, usecase.Transaction, []string) ([]*domain.Account, error) {
			cancel()
			return []*domain.Account{
				account(srcID, 500, domain.AccountStatusActive),
				account(dstID, 0, domain.AccountStatusActive),
			}, nil
		})
	d.tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	_, err := uc.Transfer(ctx, usecase.TransferInput{
		SourceID:      srcID,
		DestinationID: dstID,
		Amount:        decimal.NewFromInt(100),
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestTransferUseCase_Transfer_CommitIgnoresLateCancellation(t *testing.T) {
	d, uc := newTransferDeps(t)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.expectLockedRead(
		account(srcID, 500, domain.AccountStatusActive),
		account(dstID, 0, domain.AccountStatusActive),
	)
	first := d.accounts.EXPECT().UpdateBalance(gomock.Any(), d.tx, srcID, gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, usecase.Transaction, string, decimal.Decimal, time.Time) error {
			cancel()
			return nil
		})
	d.accounts.EXPECT().UpdateBalance(gomock.Any(), d.tx, dstID, gomock.Any(), gomock.Any()).Return(nil).After(first)
	d.entries.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).Return(nil).Times(2)
	d.outbox.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).Return(nil)
	d.tx.EXPECT().Commit(gomock.Any()).DoAndReturn(func(commitCtx context.Context) error {
		if commitCtx.Err() != nil {
			t.Errorf("commit context was cancelled: %v", commitCtx.Err())
		}
		return nil
	})

	if _, err := uc.Transfer(ctx, usecase.TransferInput{
		SourceID:      srcID,
		DestinationID: dstID,
		Amount:        decimal.NewFromInt(100),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransferUseCase_Transfer_RetriesWholeUnit(t *testing.T) {
	ctrl := gomock.NewController(t)
	d, _ := newTransferDeps(t)
	retrier := mocks.NewMockRetrier(ctrl)

	retrier.EXPECT().Retry(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, op func() error) error {
			if err := op(); err == nil {
				return nil
			}
			return op()
		})

	conflict := errors.New("serialization failure")
	gomock.InOrder(
		d.txMgr.EXPECT().Begin(gomock.Any()).Return(nil, conflict),
		d.txMgr.EXPECT().Begin(gomock.Any()).Return(d.tx, nil),
	)
	d.accounts.EXPECT().GetByIDsForUpdate(gomock.Any(), d.tx, gomock.Any()).Return([]*domain.Account{
		account(srcID, 500, domain.AccountStatusActive),
		account(dstID, 0, domain.AccountStatusActive),
	}, nil)
	d.accounts.EXPECT().UpdateBalance(gomock.Any(), d.tx, gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).Times(2)
	d.entries.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).Return(nil).Times(2)
	d.outbox.EXPECT().Create(gomock.Any(), d.tx, gomock.Any()).Return(nil)
	d.tx.EXPECT().Commit(gomock.Any()).Return(nil)
	d.tx.EXPECT().Rollback(gomock.Any()).Return(nil)

	uc := usecase.NewTransferUseCase(d.txMgr, d.accounts, d.entries, d.outbox, d.idGen, nil, retrier)
	if _, err := uc.Transfer(context.Background(), usecase.TransferInput{
		SourceID:      srcID,
		DestinationID: dstID,
		Amount:        decimal.NewFromInt(100),
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTransferUseCase_Transfer_RecordsMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	d, _ := newTransferDeps(t)
	recorder := mocks.NewMockMetricsRecorder(ctrl)

	recorder.EXPECT().RecordTransfer("rejected", gomock.Any())

	uc := usecase.NewTransferUseCase(d.txMgr, d.accounts, d.entries, d.outbox, d.idGen, nil, nil).
		WithMetrics(recorder)

	_, err := uc.Transfer(context.Background(), usecase.TransferInput{
		SourceID:      srcID,
		DestinationID: srcID,
		Amount:        decimal.NewFromInt(1),
	})
	if !errors.Is(err, domain.ErrSameAccount) {
		t.Fatalf("expected ErrSameAccount, got %v", err)
	}
}

func TestTransferUseCase_GetTransfer(t *testing.T) {
	d, uc := newTransferDeps(t)

	d.entries.EXPECT().GetByTransfer(gomock.Any(), "tr-1").Return([]*domain.LedgerEntry{
		{ID: "e1", AccountID: srcID, TransferID: "tr-1", Kind: domain.EntryKindTransferOut, Amount: decimal.NewFromInt(-70), BalanceAfter: decimal.NewFromInt(30)},
		{ID: "e2", AccountID: dstID, TransferID: "tr-1", Kind: domain.EntryKindTransferIn, Amount: decimal.NewFromInt(70), BalanceAfter: decimal.NewFromInt(70)},
	}, nil)
	d.entries.EXPECT().GetByTransfer(gomock.Any(), "missing").Return(nil, nil)

	transfer, err := uc.GetTransfer(context.Background(), "tr-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if transfer.FromAccountID != srcID || transfer.ToAccountID != dstID {
		t.Errorf("unexpected endpoints %s -> %s", transfer.FromAccountID, transfer.ToAccountID)
	}
	if !transfer.Amount.Equal(decimal.NewFromInt(70)) {
		t.Errorf("expected amount 70, got %s", transfer.Amount)
	}

	if _, err := uc.GetTransfer(context.Background(), "missing"); !errors.Is(err, domain.ErrTransferNotFound) {
		t.Errorf("expected ErrTransferNotFound, got %v", err)
	}
}
