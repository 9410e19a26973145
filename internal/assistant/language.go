package assistant

import (
	"strings"
	"unicode"
)

// Language is a reply language.
type Language string

const (
	LangTR Language = "tr"
	LangEN Language = "en"
)

const turkishDiacritics = "şŞçÇıİğĞöÖüÜ"

var (
	turkishHints = []string{
		"bakiye", "bakiyem", "gönder", "gonder", "havale", "eft", "işlem", "islem",
		"son", "yardım", "yardim", "nasıl", "nasil", "merhaba", "selam",
	}
	englishHints = []string{
		"balance", "send", "transfer", "how", "last", "transactions", "help",
		"format", "hello",
	}
	// Matched as whole words only: as substrings they hide inside Turkish
	// words ("hisse", "şehir").
	englishGreetings = []string{"hi", "hey"}
)

// DetectLanguage picks the reply language for raw. Turkish diacritics win,
// then Turkish hint words, then English hint words. Anything inconclusive is
// Turkish.
func DetectLanguage(raw string) Language {
	if strings.ContainsAny(raw, turkishDiacritics) {
		return LangTR
	}

	text := Normalize(raw)
	if text == "" {
		return LangTR
	}

	if containsAny(text, turkishHints) {
		return LangTR
	}
	if containsAny(text, englishHints) || containsWord(text, englishGreetings) {
		return LangEN
	}

	return LangTR
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

func containsWord(text string, words []string) bool {
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, f := range fields {
		for _, w := range words {
			if f == w {
				return true
			}
		}
	}
	return false
}

// pick returns the variant for lang.
func pick(lang Language, tr, en string) string {
	if lang == LangEN {
		return en
	}
	return tr
}
