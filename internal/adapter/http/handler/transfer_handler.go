package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/ledgerbot/internal/adapter/http/dto"
	"github.com/iho/ledgerbot/internal/adapter/http/middleware"
	"github.com/iho/ledgerbot/internal/domain"
	"github.com/iho/ledgerbot/internal/usecase"
)

// TransferService defines the behavior needed by TransferHandler.
type TransferService interface {
	Transfer(ctx context.Context, input usecase.TransferInput) (*domain.Transfer, error)
	GetTransfer(ctx context.Context, id string) (*domain.Transfer, error)
}

// TransferHandler handles transfer-related HTTP requests.
type TransferHandler struct {
	transferUC TransferService
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(transferUC TransferService) *TransferHandler {
	return &TransferHandler{transferUC: transferUC}
}

// Create executes a transfer. An authenticated caller may only debit its own
// account; the source defaults to it.
func (h *TransferHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err.Error())
		return
	}

	if p, ok := middleware.PrincipalFromContext(r.Context()); ok {
		if input.SourceID == "" {
			input.SourceID = p.Subject
		}
		if input.SourceID != p.Subject {
			writeError(w, http.StatusForbidden, "source account belongs to another caller", "")
			return
		}
	}

	transfer, err := h.transferUC.Transfer(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err, "failed to create transfer")
		return
	}

	writeJSON(w, http.StatusCreated, dto.TransferFromDomain(transfer))
}

// Get retrieves a transfer by ID.
func (h *TransferHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing transfer ID", "")
		return
	}

	transfer, err := h.transferUC.GetTransfer(r.Context(), id)
	if err != nil {
		writeDomainError(w, r, err, "failed to get transfer")
		return
	}

	if !canAccessAccount(r, transfer.FromAccountID) && !canAccessAccount(r, transfer.ToAccountID) {
		writeError(w, http.StatusNotFound, "failed to get transfer", domain.ErrTransferNotFound.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.TransferFromDomain(transfer))
}
