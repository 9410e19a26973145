package assistant

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/ledgerbot/internal/domain"
)

func TestCompose_Balance(t *testing.T) {
	t.Parallel()

	o := Outcome{Kind: OutcomeBalance, Balance: decimal.RequireFromString("1000.00")}

	assert.Equal(t, "Güncel bakiyeniz: 1000 TL.", Compose(LangTR, o))
	assert.Equal(t, "Your current balance is: 1000 TL.", Compose(LangEN, o))
}

func TestCompose_EveryKindHasBothLanguages(t *testing.T) {
	t.Parallel()

	for _, kind := range OutcomeKinds() {
		_, ok := templates[kind]
		require.True(t, ok, "missing template for %s", kind)

		o := Outcome{Kind: kind, Entries: []*domain.LedgerEntry{}}
		assert.NotEmpty(t, Compose(LangTR, o), "tr %s", kind)
		assert.NotEmpty(t, Compose(LangEN, o), "en %s", kind)
	}
	assert.Len(t, templates, len(OutcomeKinds()))
}

func TestCompose_UnknownKind(t *testing.T) {
	t.Parallel()

	got := Compose(LangEN, Outcome{Kind: "nope"})
	assert.Equal(t, Compose(LangEN, Outcome{Kind: OutcomeServiceError}), got)
}

func TestCompose_History(t *testing.T) {
	t.Parallel()

	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	entries := []*domain.LedgerEntry{
		{Kind: domain.EntryKindTransferOut, Amount: decimal.NewFromInt(-100), CreatedAt: at},
		{Kind: domain.EntryKindTransferIn, Amount: decimal.RequireFromString("25.5"), CreatedAt: at.Add(-time.Hour)},
	}

	got := Compose(LangEN, Outcome{Kind: OutcomeHistory, Entries: entries})

	lines := strings.Split(got, "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Your recent transactions:", lines[0])
	assert.Equal(t, "1) TRANSFER_OUT -100 TL 2026-03-14 09:30", lines[1])
	assert.Equal(t, "2) TRANSFER_IN +25.50 TL 2026-03-14 08:30", lines[2])
}

func TestCompose_TransferSuccess(t *testing.T) {
	t.Parallel()

	o := Outcome{
		Kind:        OutcomeTransferSuccess,
		Amount:      decimal.NewFromInt(100),
		Balance:     decimal.NewFromInt(400),
		Destination: "TR120006200000000000000001",
	}

	assert.Equal(t,
		"Transfer successful: 100 TL sent to TR120006200000000000000001. Your current balance is: 400 TL.",
		Compose(LangEN, o))
	assert.Contains(t, Compose(LangTR, o), "Transfer başarılı: 100 TL")
}

func TestFormatMoney(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "1000", want: "1000"},
		{in: "1000.00", want: "1000"},
		{in: "12.5", want: "12.50"},
		{in: "0.01", want: "0.01"},
		{in: "-100", want: "-100"},
		{in: "0", want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatMoney(decimal.RequireFromString(tt.in)))
		})
	}
}
