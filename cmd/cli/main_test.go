package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/ledgerbot/internal/adapter/http/dto"
	"github.com/iho/ledgerbot/internal/domain"
	"github.com/iho/ledgerbot/internal/infrastructure/auth"
)

const testIBAN = "TR120006200000000000000001"

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(""))
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Fatalf("expected short unchanged, got %q", got)
	}

	if got := truncate("longerstring", 6); got != "lon..." {
		t.Fatalf("expected lon..., got %q", got)
	}
}

func TestPrintJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := printJSON(&buf, struct {
		A int `json:"a"`
	}{A: 1}); err != nil {
		t.Fatalf("printJSON: %v", err)
	}

	expected := "{\n  \"a\": 1\n}\n"
	if buf.String() != expected {
		t.Fatalf("unexpected json output:\n%s", buf.String())
	}
}

func TestChatCmd(t *testing.T) {
	var got dto.ChatRequest
	var gotKey, gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/chat" || r.Method != http.MethodPost {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		gotKey = r.Header.Get("Idempotency-Key")
		gotAuth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(domain.NewBotMessage("Güncel bakiyeniz: 1000 TL."))
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "--token", "tkn", "chat", "--sender", testIBAN, "--idempotency-key", "k1", "Bakiyem", "ne", "kadar?")
	if err != nil {
		t.Fatalf("chat failed: %v", err)
	}

	if got.Sender != testIBAN || got.Content != "Bakiyem ne kadar?" {
		t.Fatalf("unexpected request body: %+v", got)
	}
	if gotKey != "k1" || gotAuth != "Bearer tkn" {
		t.Fatalf("unexpected headers key=%q auth=%q", gotKey, gotAuth)
	}
	if strings.TrimSpace(out) != "BANK-BOT: Güncel bakiyeniz: 1000 TL." {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestBalanceCmd_ReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: "account not found"})
	}))
	defer srv.Close()

	_, err := execute(t, "--url", srv.URL, "--token", "", "balance", testIBAN)
	if err == nil || !strings.Contains(err.Error(), "account not found (status 404)") {
		t.Fatalf("expected api error, got %v", err)
	}
}

func TestHistoryCmd(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("limit") != "3" {
			t.Errorf("expected limit=3, got %q", r.URL.RawQuery)
		}
		_ = json.NewEncoder(w).Encode(dto.ListEntriesResponse{Entries: []*dto.EntryResponse{{
			ID:           "e1",
			AccountID:    testIBAN,
			TransferID:   "01HZXTRANSFERIDVALUE",
			Kind:         "TRANSFER_OUT",
			Amount:       "-100.00",
			BalanceAfter: "900.00",
			CreatedAt:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		}}})
	}))
	defer srv.Close()

	out, err := execute(t, "--url", srv.URL, "--token", "", "history", testIBAN, "--limit", "3")
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	for _, want := range []string{"2026-01-02 03:04:05", "TRANSFER_OUT", "-100.00", "900.00", "01HZXTRAN..."} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestTokenCmd(t *testing.T) {
	out, err := execute(t, "token", "--secret", "s3cret", "--customer", "cus-1", strings.ToLower(testIBAN))
	if err != nil {
		t.Fatalf("token failed: %v", err)
	}

	claims, err := auth.NewJWTManager("s3cret", time.Hour).Verify(strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != testIBAN || claims.CustomerID != "cus-1" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	if _, err := execute(t, "token", testIBAN); err == nil {
		t.Fatal("expected missing secret to fail")
	}
}

func TestMigrateCmd(t *testing.T) {
	origUp, origDown := migrateUp, migrateDown
	defer func() { migrateUp, migrateDown = origUp, origDown }()

	var calls []string
	migrateUp = func(url, path string, _ zerolog.Logger) error {
		calls = append(calls, "up "+url+" "+path)
		return nil
	}
	migrateDown = func(string, string, zerolog.Logger) error {
		return errors.New("dirty database")
	}

	if _, err := execute(t, "migrate", "up", "--database-url", "postgres://x", "--path", "file://m"); err != nil {
		t.Fatalf("migrate up: %v", err)
	}
	if len(calls) != 1 || calls[0] != "up postgres://x file://m" {
		t.Fatalf("unexpected calls: %v", calls)
	}

	if _, err := execute(t, "migrate", "down"); err == nil || err.Error() != "dirty database" {
		t.Fatalf("expected down error, got %v", err)
	}
}
