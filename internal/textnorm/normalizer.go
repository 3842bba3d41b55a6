package textnorm

import (
	"strings"
	"unicode"
)

// NormalizedText is the shared tokenization every downstream component
// consumes, so the classifier, escalation engine and retrieval engine all
// agree on what a "word" is.
type NormalizedText struct {
	Raw      string
	Lowered  string
	Tokens   []string
	Filtered []string
}

var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "can": {}, "do": {}, "for": {}, "from": {}, "has": {},
	"have": {}, "i": {}, "in": {}, "is": {}, "it": {}, "me": {}, "my": {},
	"of": {}, "on": {}, "or": {}, "our": {}, "so": {}, "that": {}, "the": {},
	"their": {}, "this": {}, "to": {}, "was": {}, "we": {}, "what": {},
	"will": {}, "with": {}, "you": {}, "your": {},
}

// Normalize lowercases, strips punctuation and tokenizes raw input. It is a
// pure function and never fails; empty input yields an empty token list.
func Normalize(raw string) NormalizedText {
	lowered := strings.ToLower(strings.TrimSpace(raw))

	var b strings.Builder
	b.Grow(len(lowered))
	for _, r := range lowered {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '\'':
			// Keep apostrophes so contractions stay single tokens.
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	tokens := strings.Fields(b.String())
	filtered := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, skip := stopwords[tok]; skip {
			continue
		}
		filtered = append(filtered, tok)
	}

	return NormalizedText{
		Raw:      raw,
		Lowered:  lowered,
		Tokens:   tokens,
		Filtered: filtered,
	}
}

// IsEmpty reports whether normalization produced no usable tokens.
func (n NormalizedText) IsEmpty() bool {
	return len(n.Tokens) == 0
}
