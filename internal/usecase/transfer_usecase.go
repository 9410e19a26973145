package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgerbot/internal/domain"
)

// TransferUseCase moves money between two accounts.
type TransferUseCase struct {
	txManager   TransactionManager
	accountRepo AccountRepository
	entryRepo   EntryRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	locker      AccountLocker
	retrier     Retrier
	metrics     MetricsRecorder
	now         func() time.Time
}

// NewTransferUseCase creates a new TransferUseCase. A nil locker defaults to
// an in-process KeyedLocker; a nil retrier runs each transfer once.
func NewTransferUseCase(
	txManager TransactionManager,
	accountRepo AccountRepository,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	locker AccountLocker,
	retrier Retrier,
) *TransferUseCase {
	if locker == nil {
		locker = NewKeyedLocker()
	}

	return &TransferUseCase{
		txManager:   txManager,
		accountRepo: accountRepo,
		entryRepo:   entryRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		locker:      locker,
		retrier:     retrier,
		now:         time.Now,
	}
}

// WithMetrics makes the use case record transfer outcomes.
func (uc *TransferUseCase) WithMetrics(m MetricsRecorder) *TransferUseCase {
	uc.metrics = m
	return uc
}

// TransferInput represents input for a transfer.
type TransferInput struct {
	SourceID      string
	DestinationID string
	Amount        decimal.Decimal
}

// Transfer validates and executes a transfer. Failures are reported with the
// domain sentinels, checked in this order: ErrInvalidAmount,
// ErrInvalidIdentifier, ErrSameAccount, ErrAccountNotFound,
// ErrInactiveAccount, ErrInsufficientBalance. On failure nothing is written.
func (uc *TransferUseCase) Transfer(ctx context.Context, input TransferInput) (*domain.Transfer, error) {
	start := time.Now()

	transfer, err := uc.transfer(ctx, input)
	if uc.metrics != nil {
		uc.metrics.RecordTransfer(transferStatus(err), time.Since(start))
	}

	return transfer, err
}

func (uc *TransferUseCase) transfer(ctx context.Context, input TransferInput) (*domain.Transfer, error) {
	transfer := &domain.Transfer{
		FromAccountID: input.SourceID,
		ToAccountID:   input.DestinationID,
		Amount:        input.Amount,
	}

	if err := transfer.Validate(); err != nil {
		return nil, err
	}

	// Fixed global order prevents deadlocks between opposite-direction transfers.
	accountIDs := SortedUnique([]string{transfer.FromAccountID, transfer.ToAccountID})

	unlock, err := uc.locker.Lock(ctx, accountIDs)
	if err != nil {
		return nil, fmt.Errorf("lock accounts: %w", err)
	}
	defer unlock()

	run := func() error {
		return uc.execute(ctx, transfer, accountIDs)
	}

	if uc.retrier == nil {
		err = run()
	} else {
		err = uc.retrier.Retry(ctx, run)
	}
	if err != nil {
		return nil, err
	}

	return transfer, nil
}

func (uc *TransferUseCase) execute(ctx context.Context, transfer *domain.Transfer, accountIDs []string) error {
	tx, err := uc.txManager.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	accounts, err := uc.accountRepo.GetByIDsForUpdate(ctx, tx, accountIDs)
	if err != nil {
		return fmt.Errorf("lock account rows: %w", err)
	}

	accountMap := make(map[string]*domain.Account, len(accounts))
	for _, acc := range accounts {
		accountMap[acc.ID] = acc
	}

	from := accountMap[transfer.FromAccountID]
	to := accountMap[transfer.ToAccountID]
	if from == nil || to == nil {
		return domain.ErrAccountNotFound
	}

	if !from.IsActive() || !to.IsActive() {
		return domain.ErrInactiveAccount
	}

	if err := from.ValidateDebit(transfer.Amount); err != nil {
		return err
	}

	// Last point at which the caller may abandon the transfer.
	if err := ctx.Err(); err != nil {
		return err
	}

	commitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), DefaultTransactionTimeout)
	defer cancel()

	now := uc.now().UTC()
	transfer.ID = uc.idGen.Generate()
	transfer.CreatedAt = now
	transfer.SourceBalance = from.ApplyDebit(transfer.Amount)
	transfer.DestinationBalance = to.ApplyCredit(transfer.Amount)

	if err := uc.accountRepo.UpdateBalance(commitCtx, tx, from.ID, transfer.SourceBalance, now); err != nil {
		return fmt.Errorf("update source balance: %w", err)
	}
	if err := uc.accountRepo.UpdateBalance(commitCtx, tx, to.ID, transfer.DestinationBalance, now); err != nil {
		return fmt.Errorf("update destination balance: %w", err)
	}

	transfer.Debit = &domain.LedgerEntry{
		ID:           uc.idGen.Generate(),
		AccountID:    from.ID,
		TransferID:   transfer.ID,
		Kind:         domain.EntryKindTransferOut,
		Amount:       transfer.Amount.Neg(),
		BalanceAfter: transfer.SourceBalance,
		CreatedAt:    now,
	}
	if err := uc.entryRepo.Create(commitCtx, tx, transfer.Debit); err != nil {
		return fmt.Errorf("append debit entry: %w", err)
	}

	transfer.Credit = &domain.LedgerEntry{
		ID:           uc.idGen.Generate(),
		AccountID:    to.ID,
		TransferID:   transfer.ID,
		Kind:         domain.EntryKindTransferIn,
		Amount:       transfer.Amount,
		BalanceAfter: transfer.DestinationBalance,
		CreatedAt:    now,
	}
	if err := uc.entryRepo.Create(commitCtx, tx, transfer.Credit); err != nil {
		return fmt.Errorf("append credit entry: %w", err)
	}

	if uc.outboxRepo != nil {
		event := &domain.OutboxEvent{
			ID:            uc.idGen.Generate(),
			AggregateID:   transfer.ID,
			AggregateType: domain.AggregateTypeTransfer,
			EventType:     domain.EventTypeTransferCompleted,
			Payload: domain.TransferCompletedEvent{
				TransferID:    transfer.ID,
				FromAccountID: from.ID,
				ToAccountID:   to.ID,
				Amount:        transfer.Amount.String(),
				EventAt:       now.Format(time.RFC3339Nano),
			}.Map(),
			CreatedAt: now,
		}
		if err := uc.outboxRepo.Create(commitCtx, tx, event); err != nil {
			return fmt.Errorf("stage outbox event: %w", err)
		}
	}

	if err := tx.Commit(commitCtx); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}

	return nil
}

// GetTransfer rebuilds a completed transfer from its two ledger legs.
func (uc *TransferUseCase) GetTransfer(ctx context.Context, id string) (*domain.Transfer, error) {
	entries, err := uc.entryRepo.GetByTransfer(ctx, id)
	if err != nil {
		return nil, err
	}

	transfer := &domain.Transfer{ID: id}
	for _, e := range entries {
		switch e.Kind {
		case domain.EntryKindTransferOut:
			transfer.Debit = e
		case domain.EntryKindTransferIn:
			transfer.Credit = e
		}
	}

	if transfer.Debit == nil || transfer.Credit == nil {
		return nil, domain.ErrTransferNotFound
	}

	transfer.FromAccountID = transfer.Debit.AccountID
	transfer.ToAccountID = transfer.Credit.AccountID
	transfer.Amount = transfer.Credit.Amount
	transfer.SourceBalance = transfer.Debit.BalanceAfter
	transfer.DestinationBalance = transfer.Credit.BalanceAfter
	transfer.CreatedAt = transfer.Credit.CreatedAt

	return transfer, nil
}

func transferStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case IsBusinessError(err):
		return "rejected"
	default:
		return "error"
	}
}

// IsBusinessError reports whether err is a rule violation rather than an
// infrastructure failure.
func IsBusinessError(err error) bool {
	for _, target := range []error{
		domain.ErrInvalidAmount,
		domain.ErrInvalidIdentifier,
		domain.ErrSameAccount,
		domain.ErrAccountNotFound,
		domain.ErrInactiveAccount,
		domain.ErrInsufficientBalance,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
