package policy

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phonePattern = regexp.MustCompile(`\+?[0-9][0-9\-() ]{7,}[0-9]`)
	cardPattern  = regexp.MustCompile(`\b(?:\d[ -]*?){13,19}\b`)
)

// RedactPII masks email, card and phone patterns before a message is archived
// or forwarded to a human agent.
func RedactPII(input string) (redacted string, changed bool) {
	out := emailPattern.ReplaceAllString(input, "[REDACTED_EMAIL]")
	// Cards first, otherwise a card number reads as a phone number.
	out = cardPattern.ReplaceAllString(out, "[REDACTED_CARD]")
	out = phonePattern.ReplaceAllString(out, "[REDACTED_PHONE]")
	return out, out != input
}

// SanitizeInput trims surrounding quotes and whitespace, drops control
// characters and caps the message at maxLen runes. It is applied to every
// inbound message before any other component sees it.
func SanitizeInput(raw string, maxLen int) string {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x20 && r != '\n' && r != '\t' {
			continue
		}
		b.WriteRune(r)
	}
	s = b.String()

	if maxLen > 0 {
		runes := []rune(s)
		if len(runes) > maxLen {
			s = string(runes[:maxLen])
		}
	}
	return strings.TrimSpace(s)
}
