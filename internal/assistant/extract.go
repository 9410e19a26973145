package assistant

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var (
	// Identifiers may be typed in groups, e.g. "TR12 0006 2000 ...". The
	// trailing group catches a digit right after the 24th: such a run is
	// longer than an identifier and must not be cut down to one.
	identifierPattern     = regexp.MustCompile(`(?i)\b([a-z]{2}(?:\s*\d){24})(\d)?`)
	prefixedDigitsPattern = regexp.MustCompile(`(?i)\b[a-z]{2}\d`)
	numberPattern         = regexp.MustCompile(`\d+(?:[.,]\d+)*`)
)

// ExtractIdentifier returns the first account identifier candidate in raw,
// upper-cased and with grouping whitespace removed. It reports false when
// there is none or when the candidate's digit run continues past 24 digits.
func ExtractIdentifier(raw string) (string, bool) {
	m := identifierPattern.FindStringSubmatch(raw)
	if m == nil || m[2] != "" {
		return "", false
	}

	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, m[1])

	return strings.ToUpper(compact), true
}

// MaskIdentifiers blanks out every well-formed identifier in raw so that its
// digits cannot be picked up as an amount. Over-long runs are left in place.
func MaskIdentifiers(raw string) string {
	var b strings.Builder
	last := 0
	for _, loc := range identifierPattern.FindAllStringSubmatchIndex(raw, -1) {
		if loc[4] >= 0 {
			continue
		}
		b.WriteString(raw[last:loc[0]])
		b.WriteByte(' ')
		last = loc[1]
	}
	b.WriteString(raw[last:])
	return b.String()
}

// ExtractAmount returns the first number in raw that is not preceded by a
// digit. A comma is accepted as the decimal separator. A token with more than
// one separator, such as "1.000,50", is malformed and yields no amount.
func ExtractAmount(raw string) (decimal.Decimal, bool) {
	for i := 0; i < len(raw); i++ {
		if !isDigit(raw[i]) {
			continue
		}

		end, separators := i, 0
		for end < len(raw) {
			c := raw[end]
			if isDigit(c) {
				end++
				continue
			}
			if (c == '.' || c == ',') && end+1 < len(raw) && isDigit(raw[end+1]) {
				separators++
				end++
				continue
			}
			break
		}

		if separators > 1 {
			return decimal.Zero, false
		}

		amount, err := decimal.NewFromString(strings.ReplaceAll(raw[i:end], ",", "."))
		if err != nil {
			return decimal.Zero, false
		}
		return amount, true
	}

	return decimal.Zero, false
}

// HasMalformedIdentifier reports whether raw carries something that was
// meant as a destination but is not a valid identifier: a prefixed digit run
// or a second number next to the amount.
func HasMalformedIdentifier(raw string) bool {
	masked := MaskIdentifiers(raw)
	if prefixedDigitsPattern.MatchString(masked) {
		return true
	}
	return len(numberPattern.FindAllString(masked, 2)) > 1
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
