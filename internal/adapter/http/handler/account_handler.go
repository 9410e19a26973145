package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/iho/ledgerbot/internal/adapter/http/dto"
	"github.com/iho/ledgerbot/internal/adapter/http/middleware"
	"github.com/iho/ledgerbot/internal/domain"
	"github.com/iho/ledgerbot/internal/usecase"
)

// AccountService defines the behavior needed by AccountHandler.
type AccountService interface {
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	RecentEntries(ctx context.Context, id string, limit int) ([]*domain.LedgerEntry, error)
	ListEntries(ctx context.Context, input usecase.ListEntriesInput) ([]*domain.LedgerEntry, error)
	GetCustomer(ctx context.Context, id string) (*domain.Customer, error)
	ListCustomerAccounts(ctx context.Context, customerID string) ([]*domain.Account, error)
}

// AccountHandler handles account-related HTTP requests.
type AccountHandler struct {
	accountUC AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountUC AccountService) *AccountHandler {
	return &AccountHandler{accountUC: accountUC}
}

// accountParam reads the {iban} segment. Writes the error response and
// returns false when the caller may not see the account.
func accountParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	iban := strings.ToUpper(strings.TrimSpace(chi.URLParam(r, "iban")))
	if iban == "" {
		writeError(w, http.StatusBadRequest, "missing account IBAN", "")
		return "", false
	}
	if !canAccessAccount(r, iban) {
		writeError(w, http.StatusForbidden, "account belongs to another caller", "")
		return "", false
	}
	return iban, true
}

// Get retrieves an account by IBAN.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	iban, ok := accountParam(w, r)
	if !ok {
		return
	}

	account, err := h.accountUC.GetAccount(r.Context(), iban)
	if err != nil {
		writeDomainError(w, r, err, "failed to get account")
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountFromDomain(account))
}

// ListEntries pages through the account history, most recent first.
func (h *AccountHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	iban, ok := accountParam(w, r)
	if !ok {
		return
	}

	limit := parseIntQuery(r, "limit", 20)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.accountUC.ListEntries(r.Context(), usecase.ListEntriesInput{
		AccountID: iban,
		Limit:     limit,
		Offset:    offset,
	})
	if err != nil {
		writeDomainError(w, r, err, "failed to list entries")
		return
	}

	limit, offset = domain.ValidatePagination(limit, offset)
	writeJSON(w, http.StatusOK, dto.ListEntriesResponse{
		Entries: dto.EntriesFromDomain(entries),
		Limit:   limit,
		Offset:  offset,
	})
}

// RecentEntries returns the latest entries of the account.
func (h *AccountHandler) RecentEntries(w http.ResponseWriter, r *http.Request) {
	iban, ok := accountParam(w, r)
	if !ok {
		return
	}

	if _, err := h.accountUC.GetAccount(r.Context(), iban); err != nil {
		writeDomainError(w, r, err, "failed to get account")
		return
	}

	entries, err := h.accountUC.RecentEntries(r.Context(), iban, parseIntQuery(r, "limit", usecase.DefaultRecentEntries))
	if err != nil {
		writeDomainError(w, r, err, "failed to list entries")
		return
	}

	writeJSON(w, http.StatusOK, dto.ListEntriesResponse{Entries: dto.EntriesFromDomain(entries)})
}

// customerParam reads the {id} segment. Writes the error response and
// returns false when the caller may not see the customer.
func customerParam(w http.ResponseWriter, r *http.Request) (string, bool) {
	customerID := chi.URLParam(r, "id")
	if customerID == "" {
		writeError(w, http.StatusBadRequest, "missing customer ID", "")
		return "", false
	}
	if p, ok := middleware.PrincipalFromContext(r.Context()); ok && p.CustomerID != customerID {
		writeError(w, http.StatusForbidden, "customer belongs to another caller", "")
		return "", false
	}
	return customerID, true
}

// GetCustomer returns a customer profile.
func (h *AccountHandler) GetCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerParam(w, r)
	if !ok {
		return
	}

	customer, err := h.accountUC.GetCustomer(r.Context(), customerID)
	if err != nil {
		writeDomainError(w, r, err, "failed to get customer")
		return
	}

	writeJSON(w, http.StatusOK, dto.CustomerFromDomain(customer))
}

// ListByCustomer lists the accounts of a customer.
func (h *AccountHandler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, ok := customerParam(w, r)
	if !ok {
		return
	}

	accounts, err := h.accountUC.ListCustomerAccounts(r.Context(), customerID)
	if err != nil {
		writeDomainError(w, r, err, "failed to list accounts")
		return
	}

	writeJSON(w, http.StatusOK, dto.AccountsFromDomain(accounts))
}
