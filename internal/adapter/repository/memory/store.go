// Package memory keeps accounts, customers, ledger entries and outbox events
// in process memory. Writes made inside a transaction are buffered and only
// become visible on Commit, so a failed transfer leaves no trace.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgerbot/internal/domain"
	"github.com/iho/ledgerbot/internal/usecase"
)

// ErrTxDone is returned when a finished transaction is used again.
var ErrTxDone = errors.New("memory: transaction already finished")

// Op names a store operation that can be made to fail.
type Op string

const (
	OpUpdateBalance Op = "update_balance"
	OpCreateEntry   Op = "create_entry"
	OpCreateOutbox  Op = "create_outbox"
	OpCommit        Op = "commit"
)

// Store is the backing state shared by the memory repositories.
type Store struct {
	mu        sync.RWMutex
	accounts  map[string]*domain.Account
	customers map[string]*domain.Customer
	entries   []*domain.LedgerEntry
	outbox    []*domain.OutboxEvent
	faults    map[Op]error
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		accounts:  make(map[string]*domain.Account),
		customers: make(map[string]*domain.Customer),
		faults:    make(map[Op]error),
	}
}

// AddCustomer inserts or replaces a customer after validating it.
func (s *Store) AddCustomer(c *domain.Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *c
	s.customers[c.ID] = &cp
	return nil
}

// AddAccount inserts or replaces an account.
func (s *Store) AddAccount(a *domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *a
	s.accounts[a.ID] = &cp
}

// FailOn makes every later call of op return err. A nil err clears the fault.
func (s *Store) FailOn(op Op, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		delete(s.faults, op)
		return
	}
	s.faults[op] = err
}

// TotalBalance sums the balance of every account.
func (s *Store) TotalBalance() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()

	total := decimal.Zero
	for _, a := range s.accounts {
		total = total.Add(a.Balance)
	}
	return total
}

// Entries returns a snapshot of every ledger entry in insertion order.
func (s *Store) Entries() []*domain.LedgerEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.LedgerEntry, 0, len(s.entries))
	for _, e := range s.entries {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

func (s *Store) fault(op Op) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.faults[op]
}

// Tx buffers writes until Commit.
type Tx struct {
	store    *Store
	mu       sync.Mutex
	done     bool
	balances map[string]balanceWrite
	entries  []*domain.LedgerEntry
	outbox   []*domain.OutboxEvent
}

type balanceWrite struct {
	balance   decimal.Decimal
	updatedAt time.Time
}

// Commit applies the buffered writes atomically.
func (t *Tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return ErrTxDone
	}
	if err := t.store.fault(OpCommit); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	for id := range t.balances {
		if _, ok := s.accounts[id]; !ok {
			return fmt.Errorf("commit balance of %s: %w", id, domain.ErrAccountNotFound)
		}
	}
	for id, w := range t.balances {
		acc := s.accounts[id]
		acc.Balance = w.balance
		acc.UpdatedAt = w.updatedAt
		acc.Version++
	}
	s.entries = append(s.entries, t.entries...)
	s.outbox = append(s.outbox, t.outbox...)

	t.done = true
	return nil
}

// Rollback discards the buffered writes. Rolling back a finished transaction
// is a no-op.
func (t *Tx) Rollback(context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.done = true
	t.balances = nil
	t.entries = nil
	t.outbox = nil
	return nil
}

func (t *Tx) stage(fn func()) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.done {
		return ErrTxDone
	}
	fn()
	return nil
}

func asTx(tx usecase.Transaction) (*Tx, error) {
	mtx, ok := tx.(*Tx)
	if !ok {
		return nil, fmt.Errorf("memory: unexpected transaction type %T", tx)
	}
	return mtx, nil
}

// TxManager implements usecase.TransactionManager.
type TxManager struct {
	store *Store
}

// NewTxManager creates a new TxManager.
func NewTxManager(store *Store) *TxManager {
	return &TxManager{store: store}
}

// Begin starts a new buffered transaction.
func (m *TxManager) Begin(ctx context.Context) (usecase.Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &Tx{store: m.store, balances: make(map[string]balanceWrite)}, nil
}

// AccountRepository implements usecase.AccountRepository.
type AccountRepository struct {
	store *Store
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(store *Store) *AccountRepository {
	return &AccountRepository{store: store}
}

// GetByID retrieves an account by IBAN.
func (r *AccountRepository) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	acc, ok := r.store.accounts[id]
	if !ok {
		return nil, domain.ErrAccountNotFound
	}
	cp := *acc
	return &cp, nil
}

// GetByIDsForUpdate returns the accounts found among ids, ordered by id.
// Balances already staged in tx are reflected in the result.
func (r *AccountRepository) GetByIDsForUpdate(ctx context.Context, tx usecase.Transaction, ids []string) ([]*domain.Account, error) {
	mtx, err := asTx(tx)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mtx.mu.Lock()
	defer mtx.mu.Unlock()

	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	accounts := make([]*domain.Account, 0, len(ids))
	for _, id := range usecase.SortedUnique(ids) {
		acc, ok := r.store.accounts[id]
		if !ok {
			continue
		}
		cp := *acc
		if w, staged := mtx.balances[id]; staged {
			cp.Balance = w.balance
		}
		accounts = append(accounts, &cp)
	}
	return accounts, nil
}

// UpdateBalance stages a new balance in tx.
func (r *AccountRepository) UpdateBalance(_ context.Context, tx usecase.Transaction, id string, balance decimal.Decimal, updatedAt time.Time) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := r.store.fault(OpUpdateBalance); err != nil {
		return err
	}
	return mtx.stage(func() {
		mtx.balances[id] = balanceWrite{balance: balance, updatedAt: updatedAt}
	})
}

// ListByCustomer lists a customer's accounts ordered by IBAN.
func (r *AccountRepository) ListByCustomer(_ context.Context, customerID string) ([]*domain.Account, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var out []*domain.Account
	for _, acc := range r.store.accounts {
		if acc.CustomerID == customerID {
			cp := *acc
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// EntryRepository implements usecase.EntryRepository.
type EntryRepository struct {
	store *Store
}

// NewEntryRepository creates a new EntryRepository.
func NewEntryRepository(store *Store) *EntryRepository {
	return &EntryRepository{store: store}
}

// Create stages an entry in tx.
func (r *EntryRepository) Create(_ context.Context, tx usecase.Transaction, entry *domain.LedgerEntry) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := r.store.fault(OpCreateEntry); err != nil {
		return err
	}
	cp := *entry
	return mtx.stage(func() {
		mtx.entries = append(mtx.entries, &cp)
	})
}

// GetByTransfer returns both legs of a transfer in insertion order.
func (r *EntryRepository) GetByTransfer(_ context.Context, transferID string) ([]*domain.LedgerEntry, error) {
	return r.filter(func(e *domain.LedgerEntry) bool { return e.TransferID == transferID }, false), nil
}

// ListRecent returns up to limit entries of the account, most recent first.
func (r *EntryRepository) ListRecent(_ context.Context, accountID string, limit int) ([]*domain.LedgerEntry, error) {
	entries := r.filter(func(e *domain.LedgerEntry) bool { return e.AccountID == accountID }, true)
	if limit >= 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// ListByAccount pages through the account's entries, most recent first.
func (r *EntryRepository) ListByAccount(_ context.Context, accountID string, limit, offset int) ([]*domain.LedgerEntry, error) {
	entries := r.filter(func(e *domain.LedgerEntry) bool { return e.AccountID == accountID }, true)
	if offset >= len(entries) {
		return []*domain.LedgerEntry{}, nil
	}
	entries = entries[offset:]
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *EntryRepository) filter(keep func(*domain.LedgerEntry) bool, newestFirst bool) []*domain.LedgerEntry {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.LedgerEntry, 0)
	for _, e := range r.store.entries {
		if keep(e) {
			cp := *e
			out = append(out, &cp)
		}
	}
	if newestFirst {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

// CustomerRepository implements usecase.CustomerRepository.
type CustomerRepository struct {
	store *Store
}

// NewCustomerRepository creates a new CustomerRepository.
func NewCustomerRepository(store *Store) *CustomerRepository {
	return &CustomerRepository{store: store}
}

// GetByID retrieves a customer by ID.
func (r *CustomerRepository) GetByID(_ context.Context, id string) (*domain.Customer, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	c, ok := r.store.customers[id]
	if !ok {
		return nil, domain.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

// OutboxRepository implements usecase.OutboxRepository.
type OutboxRepository struct {
	store *Store
}

// NewOutboxRepository creates a new OutboxRepository.
func NewOutboxRepository(store *Store) *OutboxRepository {
	return &OutboxRepository{store: store}
}

// Create stages an event in tx.
func (r *OutboxRepository) Create(_ context.Context, tx usecase.Transaction, event *domain.OutboxEvent) error {
	mtx, err := asTx(tx)
	if err != nil {
		return err
	}
	if err := r.store.fault(OpCreateOutbox); err != nil {
		return err
	}
	cp := *event
	return mtx.stage(func() {
		mtx.outbox = append(mtx.outbox, &cp)
	})
}

// GetUnpublished returns up to limit unpublished events, oldest first.
func (r *OutboxRepository) GetUnpublished(_ context.Context, limit int) ([]*domain.OutboxEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	out := make([]*domain.OutboxEvent, 0)
	for _, e := range r.store.outbox {
		if len(out) == limit {
			break
		}
		if !e.Published {
			cp := *e
			out = append(out, &cp)
		}
	}
	return out, nil
}

// MarkPublished flags an event as delivered.
func (r *OutboxRepository) MarkPublished(_ context.Context, id string, publishedAt time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, e := range r.store.outbox {
		if e.ID == id {
			at := publishedAt
			e.Published = true
			e.PublishedAt = &at
			return nil
		}
	}
	return fmt.Errorf("outbox event %s not found", id)
}
