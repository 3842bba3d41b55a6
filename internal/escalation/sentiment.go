package escalation

import (
	"strings"
	"unicode"
)

// Scorer rates the negativity of a message in [0,1]. The lexicon
// implementation below is the default; anything smarter can be swapped in
// without touching the engine.
type Scorer interface {
	Score(text string) float64
}

// LexiconScorer combines negative-marker hits, exclamation density and a
// caps ratio into a single frustration score.
type LexiconScorer struct {
	markers []string
}

func NewLexiconScorer() *LexiconScorer {
	return &LexiconScorer{markers: []string{
		"frustrated", "angry", "annoyed", "upset", "disappointed",
		"terrible", "awful", "horrible", "ridiculous", "useless",
		"stupid", "waste of time", "not helpful", "not helping",
		"fed up", "had enough", "give up", "not working", "isn't working",
		"doesn't work", "still broken", "sick of", "damn", "wtf",
	}}
}

func (s *LexiconScorer) Score(text string) float64 {
	lower := strings.ToLower(text)
	score := 0.0

	for _, marker := range s.markers {
		if strings.Contains(lower, marker) {
			score += 0.3
		}
	}

	if strings.Count(text, "!") >= 2 {
		score += 0.4
	}

	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	if letters > 10 && float64(upper)/float64(letters) > 0.5 {
		score += 0.5
	}

	if score > 1 {
		score = 1
	}
	return score
}
