package quickentry

import (
	"regexp"
	"strings"
)

// symbolPattern is the allowed ticker grammar: a letter followed by up
// to nine letters, digits, or dots.
var symbolPattern = regexp.MustCompile(`^[A-Z][A-Z0-9.]{0,9}$`)

func parseSymbol(res *RowResult, raw string) string {
	symbol := strings.ToUpper(strings.TrimSpace(raw))
	if !symbolPattern.MatchString(symbol) {
		res.fail("symbol", "invalid ticker symbol "+raw)
		return ""
	}
	return symbol
}

// normalizeDecimal converts European decimal notation to standard form.
// "0,8" → "0.8", "1.234,56" → "1234.56"; dot-only input is unchanged.
func normalizeDecimal(s string) string {
	hasComma := strings.Contains(s, ",")
	hasDot := strings.Contains(s, ".")

	if hasComma && hasDot {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	} else if hasComma {
		s = strings.Replace(s, ",", ".", 1)
	}
	return s
}
