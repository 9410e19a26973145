package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/iho/ledgerbot/internal/adapter/http/dto"
	"github.com/iho/ledgerbot/internal/adapter/http/middleware"
	"github.com/iho/ledgerbot/internal/domain"
)

const (
	ibanA = "TR120006200000000000000001"
	ibanB = "TR120006200000000000000002"
)

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func asCaller(req *http.Request, subject, customerID string) *http.Request {
	return req.WithContext(middleware.WithPrincipal(req.Context(), middleware.Principal{
		Subject:    subject,
		CustomerID: customerID,
	}))
}

func TestParseIntQuery(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/entries?limit=50", nil)
	if got := parseIntQuery(req, "limit", 10); got != 50 {
		t.Fatalf("expected limit=50, got %d", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/entries?limit=invalid", nil)
	if got := parseIntQuery(req, "limit", 10); got != 10 {
		t.Fatalf("expected fallback to default, got %d", got)
	}

	req.URL = &url.URL{RawQuery: ""}
	if got := parseIntQuery(req, "limit", 25); got != 25 {
		t.Fatalf("expected default when missing, got %d", got)
	}
}

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrAccountNotFound, http.StatusNotFound},
		{domain.ErrCustomerNotFound, http.StatusNotFound},
		{fmt.Errorf("get: %w", domain.ErrTransferNotFound), http.StatusNotFound},
		{domain.ErrInvalidIdentifier, http.StatusBadRequest},
		{domain.ErrInvalidAmount, http.StatusBadRequest},
		{domain.ErrSameAccount, http.StatusBadRequest},
		{domain.ErrInsufficientBalance, http.StatusUnprocessableEntity},
		{domain.ErrInactiveAccount, http.StatusUnprocessableEntity},
		{domain.ErrExpiredToken, http.StatusUnauthorized},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := mapDomainError(tt.err); got != tt.want {
			t.Fatalf("mapDomainError(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteDomainErrorHidesInternalDetails(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := httptest.NewRecorder()
	writeDomainError(rec, req, errors.New("pq: connection refused"), "failed")
	var resp dto.ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec.Code != http.StatusInternalServerError || resp.Message != "" {
		t.Fatalf("expected hidden details, got %d %+v", rec.Code, resp)
	}

	rec = httptest.NewRecorder()
	writeDomainError(rec, req, domain.ErrInsufficientBalance, "failed")
	resp = dto.ErrorResponse{}
	_ = json.NewDecoder(rec.Body).Decode(&resp)
	if resp.Message != domain.ErrInsufficientBalance.Error() {
		t.Fatalf("expected domain message, got %+v", resp)
	}
}
