package assistant

import (
	"regexp"
	"strings"
	"unicode"
)

// MaxReplySentences bounds general-purpose model replies.
const MaxReplySentences = 3

// Go's \b is ASCII-only, so boundaries are spelled out to work next to ı.
var stepByStepPattern = regexp.MustCompile(`(?i)(?:^|[^\pL\pN])(?:adım adım|step by step|detaylı anlat|how to|nasıl yapılır)(?:$|[^\pL\pN])`)

// WantsStepByStep reports whether the user explicitly asked for detailed
// instructions.
func WantsStepByStep(message string) bool {
	return stepByStepPattern.MatchString(message)
}

// TrimReply removes code fences from a model reply and, unless stepByStep is
// set, keeps at most MaxReplySentences sentences.
func TrimReply(text string, stepByStep bool) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "```", ""))
	if stepByStep {
		return text
	}
	return keepSentences(text, MaxReplySentences)
}

// keepSentences cuts text after the n-th sentence terminator that is followed
// by whitespace.
func keepSentences(text string, n int) string {
	runes := []rune(text)
	count := 0
	for i, r := range runes {
		if r != '.' && r != '!' && r != '?' {
			continue
		}
		if i+1 < len(runes) && !unicode.IsSpace(runes[i+1]) {
			continue
		}
		count++
		if count == n {
			return strings.TrimSpace(string(runes[:i+1]))
		}
	}
	return text
}
