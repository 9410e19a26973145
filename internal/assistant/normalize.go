// Package assistant holds the pure text pipeline of the chat bot: normalization,
// language detection, entity extraction, intent classification and reply
// rendering. Nothing here performs I/O.
package assistant

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Normalize lower-cases raw with locale-independent folding, trims it and
// collapses inner whitespace runs to a single space. Diacritics are kept.
func Normalize(raw string) string {
	if raw == "" {
		return ""
	}

	// A Caser carries state, so one is built per call.
	lowered := cases.Lower(language.Und).String(raw)

	return strings.Join(strings.Fields(lowered), " ")
}
