package assistant

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/iho/ledgerbot/internal/domain"
)

// OutcomeKind names the result of a chat turn that has a fixed reply.
type OutcomeKind string

const (
	OutcomeEmpty               OutcomeKind = "empty"
	OutcomeMissingSender       OutcomeKind = "missing_sender"
	OutcomeGreeting            OutcomeKind = "greeting"
	OutcomeOutOfScope          OutcomeKind = "out_of_scope"
	OutcomeFormatHelp          OutcomeKind = "format_help"
	OutcomeTransferHowTo       OutcomeKind = "transfer_how_to"
	OutcomeBalance             OutcomeKind = "balance"
	OutcomeHistory             OutcomeKind = "history"
	OutcomeHistoryEmpty        OutcomeKind = "history_empty"
	OutcomeMissingAmount       OutcomeKind = "missing_amount"
	OutcomeMissingDestination  OutcomeKind = "missing_destination"
	OutcomeInvalidIdentifier   OutcomeKind = "invalid_identifier"
	OutcomeSameAccount         OutcomeKind = "same_account"
	OutcomeAccountNotFound     OutcomeKind = "account_not_found"
	OutcomeInactiveAccount     OutcomeKind = "inactive_account"
	OutcomeInsufficientBalance OutcomeKind = "insufficient_balance"
	OutcomeTransferSuccess     OutcomeKind = "transfer_success"
	OutcomeServiceError        OutcomeKind = "service_error"
	OutcomeFallbackApology     OutcomeKind = "fallback_apology"
)

// HistoryTimeLayout is the timestamp layout used in history replies.
const HistoryTimeLayout = "2006-01-02 15:04"

// Outcome carries what a template needs to render. Only the fields relevant
// to Kind are read.
type Outcome struct {
	Kind        OutcomeKind
	Balance     decimal.Decimal
	Amount      decimal.Decimal
	Destination string
	Entries     []*domain.LedgerEntry
}

type localized struct {
	tr func(Outcome) string
	en func(Outcome) string
}

func fixed(tr, en string) localized {
	return localized{
		tr: func(Outcome) string { return tr },
		en: func(Outcome) string { return en },
	}
}

var templates = map[OutcomeKind]localized{
	OutcomeEmpty: fixed(
		"Lütfen bir mesaj yazın.",
		"Please type a message."),
	OutcomeMissingSender: fixed(
		"Lütfen IBAN bilgisini girin.",
		"Please provide your IBAN."),
	OutcomeGreeting: fixed(
		"Merhaba! Bankacılıkla ilgili nasıl yardımcı olabilirim? (Bakiye, IBAN, havale/EFT, güvenlik vb.)",
		"Hi! How can I help you with banking today? (balance, IBAN, transfers, security, etc.)"),
	OutcomeOutOfScope: fixed(
		"Ben yalnızca bankacılık konularında yardımcı olabilirim. IBAN, bakiye, transfer veya güvenlik hakkında sorabilir misiniz?",
		"I can only help with banking topics. Could you ask about IBAN, balance, transfers, or security?"),
	OutcomeFormatHelp: fixed(
		"IBAN, uluslararası banka hesap numarasıdır. Format: 2 harfli ülke kodu + 24 rakam (toplam 26 karakter). Örn: TR120006200000000000000001",
		"IBAN is an International Bank Account Number. Format: 2-letter country code + 24 digits (26 chars total). Example: TR120006200000000000000001"),
	OutcomeTransferHowTo: fixed(
		"Transfer yapmak için alıcı IBAN ve tutarı belirtin. Örn: 'TRxxxxxxxxxxxxxxxxxxxxxxxx 100 TL gönder'.",
		"To make a transfer, provide recipient IBAN and amount. Example: 'Send 100 TL to TRxxxxxxxxxxxxxxxxxxxxxxxx'."),
	OutcomeBalance: {
		tr: func(o Outcome) string { return "Güncel bakiyeniz: " + FormatMoney(o.Balance) + " TL." },
		en: func(o Outcome) string { return "Your current balance is: " + FormatMoney(o.Balance) + " TL." },
	},
	OutcomeHistory: {
		tr: func(o Outcome) string { return "Son işlemleriniz:\n" + formatEntries(o.Entries) },
		en: func(o Outcome) string { return "Your recent transactions:\n" + formatEntries(o.Entries) },
	},
	OutcomeHistoryEmpty: fixed(
		"Yakın zamanda işlem bulunamadı.",
		"No recent transactions found."),
	OutcomeMissingAmount: fixed(
		"Gönderilecek tutarı yazın. Örn: '100 TL gönder'.",
		"Please specify the amount. Example: 'Send 100 TL'."),
	OutcomeMissingDestination: fixed(
		"Alıcı IBAN'ı yazın. Örn: 'TR... 100 TL gönder'.",
		"Please provide the recipient IBAN. Example: 'TR... send 100 TL'."),
	OutcomeInvalidIdentifier: fixed(
		"IBAN formatı hatalı. Ülke kodu ve 24 rakamdan oluşan 26 karakterlik IBAN girin.",
		"Invalid IBAN format. Provide a 26-character IBAN: country code followed by 24 digits."),
	OutcomeSameAccount: fixed(
		"Kendi hesabınıza transfer yapamazsınız.",
		"You cannot transfer to the same account."),
	OutcomeAccountNotFound: fixed(
		"Hesap bulunamadı.",
		"Account not found."),
	OutcomeInactiveAccount: fixed(
		"Hesap aktif olmadığı için transfer yapılamaz.",
		"The transfer cannot be made because an account is not active."),
	OutcomeInsufficientBalance: fixed(
		"Bu transfer için bakiyeniz yetersiz.",
		"Your balance is insufficient for this transfer."),
	OutcomeTransferSuccess: {
		tr: func(o Outcome) string {
			return fmt.Sprintf("Transfer başarılı: %s TL, %s IBAN'ına gönderildi. Güncel bakiyeniz: %s TL.",
				FormatMoney(o.Amount), o.Destination, FormatMoney(o.Balance))
		},
		en: func(o Outcome) string {
			return fmt.Sprintf("Transfer successful: %s TL sent to %s. Your current balance is: %s TL.",
				FormatMoney(o.Amount), o.Destination, FormatMoney(o.Balance))
		},
	},
	OutcomeServiceError: fixed(
		"Şu anda işleminizi gerçekleştiremiyoruz. Lütfen daha sonra tekrar deneyin.",
		"We cannot process your request right now. Please try again later."),
	OutcomeFallbackApology: fixed(
		"Üzgünüz, asistana şu anda ulaşılamıyor. Lütfen daha sonra tekrar deneyin.",
		"Sorry, the assistant is not reachable right now. Please try again later."),
}

// OutcomeKinds lists every kind that has a template.
func OutcomeKinds() []OutcomeKind {
	return []OutcomeKind{
		OutcomeEmpty, OutcomeMissingSender, OutcomeGreeting, OutcomeOutOfScope,
		OutcomeFormatHelp, OutcomeTransferHowTo, OutcomeBalance, OutcomeHistory,
		OutcomeHistoryEmpty, OutcomeMissingAmount, OutcomeMissingDestination,
		OutcomeInvalidIdentifier, OutcomeSameAccount, OutcomeAccountNotFound,
		OutcomeInactiveAccount, OutcomeInsufficientBalance, OutcomeTransferSuccess,
		OutcomeServiceError, OutcomeFallbackApology,
	}
}

// Compose renders the reply for o in lang. Unknown kinds render the service
// error template.
func Compose(lang Language, o Outcome) string {
	t, ok := templates[o.Kind]
	if !ok {
		t = templates[OutcomeServiceError]
	}
	if lang == LangEN {
		return t.en(o)
	}
	return t.tr(o)
}

// FormatMoney renders integral amounts without a decimal point and anything
// else with exactly two decimals.
func FormatMoney(d decimal.Decimal) string {
	if d.Equal(d.Truncate(0)) {
		return d.Truncate(0).String()
	}
	return d.StringFixed(2)
}

func formatSigned(e *domain.LedgerEntry) string {
	if e.IsDebit() {
		return FormatMoney(e.Amount)
	}
	return "+" + FormatMoney(e.Amount)
}

// formatEntries numbers entries from 1 in the order given.
func formatEntries(entries []*domain.LedgerEntry) string {
	var b strings.Builder
	for i, e := range entries {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d) %s %s TL %s", i+1, e.Kind, formatSigned(e), e.CreatedAt.Format(HistoryTimeLayout))
	}
	return b.String()
}
