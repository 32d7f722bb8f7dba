package handoff

import (
	"regexp"
	"strings"
)

// operatorPatterns matches visitor messages asking for a human operator.
// The widget ships on Azerbaijani, English, Russian, Turkish and Spanish
// pages; suffix-heavy languages (az "operatora", tr "operatöre") are
// matched without a trailing word boundary.
var operatorPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)operat[oö]r`),
	regexp.MustCompile(`(?i)оператор`),
	regexp.MustCompile(`(?i)canlı\s+dəstək`),
	regexp.MustCompile(`(?i)canli\s+destek`),
	regexp.MustCompile(`(?i)\bhuman\b`),
	regexp.MustCompile(`(?i)\bhumano?\b`),
	regexp.MustCompile(`(?i)человек`),
	regexp.MustCompile(`(?i)живой\s+чат`),
	regexp.MustCompile(`(?i)real\s+person`),
	regexp.MustCompile(`(?i)\bsupport\b`),
	regexp.MustCompile(`(?i)dəstək\s+xidməti`),
	regexp.MustCompile(`(?i)\bcall\s+me\b`),
	regexp.MustCompile(`(?i)zəng\s+ed`),
	regexp.MustCompile(`(?i)\boperadora?\b`),
}

// OperatorIntent reports whether outgoing text asks for a human
// operator. The whatsapp+yaz pair is a combination signal: either word
// alone is too common on these pages to count.
func OperatorIntent(text string) bool {
	text = strings.TrimSpace(text)
	if text == "" {
		return false
	}
	for _, pat := range operatorPatterns {
		if pat.MatchString(text) {
			return true
		}
	}
	lower := strings.ToLower(text)
	if strings.Contains(lower, "whatsapp") && strings.Contains(lower, "yaz") {
		return true
	}
	return false
}
