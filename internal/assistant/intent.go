package assistant

import (
	"regexp"
	"strings"
)

// Intent is the classified purpose of a chat message.
type Intent string

const (
	IntentEmpty         Intent = "empty"
	IntentGreeting      Intent = "greeting"
	IntentOutOfScope    Intent = "out_of_scope"
	IntentFormatHelp    Intent = "format_help"
	IntentTransferHowTo Intent = "transfer_how_to"
	IntentBalance       Intent = "balance"
	IntentHistory       Intent = "history"
	IntentTransfer      Intent = "transfer"
	IntentFallback      Intent = "fallback"
)

// Rule maps a predicate over normalized text to an intent. A rule matches
// when any keyword is contained in the text or any pattern matches it.
type Rule struct {
	Intent   Intent
	Keywords []string
	Patterns []*regexp.Regexp
}

// Matches reports whether the rule fires for normalized text.
func (r Rule) Matches(text string) bool {
	for _, kw := range r.Keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	for _, p := range r.Patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// rules is evaluated top to bottom and the first match wins. Keyword sets
// overlap ("transfer" is both a how-to and an execute word), so the order is
// part of the contract.
var rules = []Rule{
	{
		Intent:   IntentEmpty,
		Patterns: []*regexp.Regexp{regexp.MustCompile(`^$`)},
	},
	{
		Intent:   IntentGreeting,
		Patterns: []*regexp.Regexp{regexp.MustCompile(`^(merhaba|selam|salam|hey|hi|hello|sa|slm)[\s!.]*$`)},
	},
	{
		Intent:   IntentOutOfScope,
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\b(python|java|react|spring|code|compile)\b`)},
	},
	{
		Intent: IntentFormatHelp,
		Keywords: []string{
			"iban format", "iban nasıl", "iban nasil", "iban formatı", "iban formati",
			"what is iban", "what is an iban",
		},
	},
	{
		Intent: IntentTransferHowTo,
		Keywords: []string{
			"transfer nasıl yapılır", "transfer nasil yapilir", "how to transfer",
			"how do i transfer", "how can i transfer", "nasıl transfer", "nasil transfer",
		},
	},
	{
		Intent:   IntentBalance,
		Keywords: []string{"bakiye", "balance"},
	},
	{
		Intent: IntentHistory,
		Keywords: []string{
			"son 10 işlem", "son 10 islem", "son işlemler", "son islemler",
			"last 10 transactions", "recent transactions", "transaction history",
			"hesap hareketleri",
		},
	},
	{
		Intent:   IntentTransfer,
		Keywords: []string{"transfer", "gönder", "gonder", "send", "havale"},
		Patterns: []*regexp.Regexp{regexp.MustCompile(`\beft\b`)},
	},
}

// Rules returns a copy of the rule table in evaluation order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	copy(out, rules)
	return out
}

// Classify returns the intent of the first rule that matches normalized, or
// IntentFallback when none does.
func Classify(normalized string) Intent {
	for _, r := range rules {
		if r.Matches(normalized) {
			return r.Intent
		}
	}
	return IntentFallback
}
