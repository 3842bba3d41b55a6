package intent

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/cob-labs/carebot/internal/textnorm"
)

const defaultMinConfidence = 0.3

var (
	bareNumber = regexp.MustCompile(`^[1-6]$`)
	yesNoWord  = regexp.MustCompile(`^(yes|yeah|yep|yup|no|nope|nah)$`)
)

// Classifier maps normalized text plus conversation context to an intent via
// ordered rule evaluation. It holds no mutable state and is safe for
// concurrent use.
type Classifier struct {
	rules         []Rule
	minConfidence float64
}

func NewClassifier(rules []Rule, minConfidence float64) *Classifier {
	if len(rules) == 0 {
		rules = DefaultRules()
	}
	if minConfidence <= 0 {
		minConfidence = defaultMinConfidence
	}
	return &Classifier{rules: rules, minConfidence: minConfidence}
}

// Classify never fails; when no rule clears the confidence floor it returns
// Unknown with confidence 0.
func (c *Classifier) Classify(n textnorm.NormalizedText, ctx Context) Result {
	if n.IsEmpty() {
		return Result{Intent: Unknown, Confidence: 0}
	}

	trimmed := strings.TrimRight(n.Lowered, " !?.")

	// Continuation bias: while a flow waits on a menu choice or a yes/no,
	// bare selections are that flow's answer rather than a fresh intent.
	if ctx.AwaitingConfirmation && len(n.Tokens) <= 2 && yesNoWord.MatchString(n.Tokens[0]) {
		return Result{Intent: Confirmation, Confidence: 0.95, Signal: "context:confirming"}
	}
	if ctx.FlowActive && bareNumber.MatchString(trimmed) {
		return Result{Intent: MenuSelection, Confidence: 0.95, Signal: "context:menu"}
	}

	best := Result{Intent: Unknown, Confidence: 0}
	for _, rule := range c.rules {
		r, ok := c.match(rule, n, trimmed)
		if !ok {
			continue
		}
		// First match at or above the floor wins; the table is ordered by
		// specificity so later rules never override an earlier hit.
		if r.Confidence >= c.minConfidence {
			return r
		}
		if r.Confidence > best.Confidence {
			best = r
		}
	}

	if best.Confidence >= c.minConfidence {
		return best
	}
	return Result{Intent: Unknown, Confidence: 0}
}

func (c *Classifier) match(rule Rule, n textnorm.NormalizedText, trimmed string) (Result, bool) {
	switch rule.Kind {
	case KindPhrase:
		for _, p := range rule.Phrases {
			if trimmed == p {
				return Result{Intent: rule.Intent, Confidence: rule.Weight, Signal: "phrase:" + p}, true
			}
		}
		// Longer phrases also count when embedded in a bigger message.
		for _, p := range rule.Phrases {
			if strings.Contains(p, " ") && strings.Contains(n.Lowered, p) {
				return Result{Intent: rule.Intent, Confidence: rule.Weight, Signal: "phrase:" + p}, true
			}
		}
	case KindRegex:
		if rule.Pattern != nil && rule.Pattern.MatchString(n.Lowered) {
			return Result{Intent: rule.Intent, Confidence: rule.Weight, Signal: "regex:" + rule.Pattern.String()}, true
		}
	case KindKeyword:
		hits := 0
		var first string
		for _, kw := range rule.Keywords {
			if containsToken(n.Tokens, kw) {
				if first == "" {
					first = kw
				}
				hits++
			}
		}
		min := rule.MinHits
		if min <= 0 {
			min = 1
		}
		if hits >= min {
			strength := float64(hits) / float64(min+1)
			if strength > 1 {
				strength = 1
			}
			conf := rule.Weight * strength
			return Result{
				Intent:     rule.Intent,
				Confidence: conf,
				Signal:     fmt.Sprintf("keyword:%s(%d)", first, hits),
			}, true
		}
	}
	return Result{}, false
}

func containsToken(tokens []string, word string) bool {
	for _, t := range tokens {
		if t == word {
			return true
		}
	}
	return false
}
