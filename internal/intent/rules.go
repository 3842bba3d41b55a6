package intent

import "regexp"

// RuleKind tags how a rule matches.
type RuleKind string

const (
	KindPhrase  RuleKind = "phrase"
	KindRegex   RuleKind = "regex"
	KindKeyword RuleKind = "keyword"
)

// Rule is one entry of the ordered rule table. Rules are evaluated top to
// bottom and the first sufficiently strong match wins, so the table must be
// ordered by specificity: exact phrases, then regexes, then keyword sets.
type Rule struct {
	Kind    RuleKind
	Intent  Intent
	Weight  float64
	Phrases []string
	Pattern *regexp.Regexp
	// Keywords with MinHits sets how many distinct keywords must appear.
	Keywords []string
	MinHits  int
}

// DefaultRules returns the built-in rule table, loaded once at startup and
// shared read-only across sessions.
func DefaultRules() []Rule {
	return []Rule{
		{
			Kind:   KindPhrase,
			Intent: EscalationRequest,
			Weight: 1.0,
			Phrases: []string{
				"talk to a human", "speak to a person", "speak to a human",
				"human agent", "live agent", "real person", "agent please",
				"connect me with someone", "get me a human", "get me a person",
				"customer service representative", "talk to an agent",
			},
		},
		{
			Kind:    KindRegex,
			Intent:  EscalationRequest,
			Weight:  0.9,
			Pattern: regexp.MustCompile(`\b(talk|speak|connect|transfer)\b.*\b(human|person|agent|representative|manager|supervisor)\b`),
		},
		{
			Kind:    KindRegex,
			Intent:  CancelAppointment,
			Weight:  0.95,
			Pattern: regexp.MustCompile(`\bcancel\b.*\b(appointment|booking|meeting|demo|consultation|session|it)\b`),
		},
		{
			Kind:    KindRegex,
			Intent:  ModifyAppointment,
			Weight:  0.9,
			Pattern: regexp.MustCompile(`\b(change|reschedule|modify|move)\b.*\b(appointment|booking|meeting|demo|consultation|time)\b`),
		},
		{
			Kind:    KindRegex,
			Intent:  ScheduleAppointment,
			Weight:  0.95,
			Pattern: regexp.MustCompile(`\b(schedule|book|make|set up|arrange|reserve)\b.*\b(an?\s+)?(appointment|meeting|call|demo|consultation|session)\b`),
		},
		{
			Kind:    KindRegex,
			Intent:  ScheduleAppointment,
			Weight:  0.85,
			Pattern: regexp.MustCompile(`\b(want|need|would like)\s+to\s+(schedule|book|set up|arrange)\b`),
		},
		{
			Kind:   KindPhrase,
			Intent: Greeting,
			Weight: 1.0,
			Phrases: []string{
				"hi", "hello", "hey", "hi there", "hello there", "greetings",
				"good morning", "good afternoon", "good evening",
			},
		},
		{
			Kind:   KindPhrase,
			Intent: Goodbye,
			Weight: 1.0,
			Phrases: []string{
				"bye", "goodbye", "see you", "thanks", "thank you",
				"that's all", "no more questions", "i'm done", "all set",
				"nothing else",
			},
		},
		{
			Kind:    KindRegex,
			Intent:  Confirmation,
			Weight:  0.9,
			Pattern: regexp.MustCompile(`^(yes|yeah|yep|yup|sure|confirm|correct|no|nope|nah)[\s!.]*$`),
		},
		{
			Kind:    KindRegex,
			Intent:  MenuSelection,
			Weight:  0.85,
			Pattern: regexp.MustCompile(`^(option\s+)?[1-6][\s!.]*$`),
		},
		{
			Kind:   KindKeyword,
			Intent: FAQQuery,
			Weight: 0.8,
			Keywords: []string{
				"hours", "pricing", "price", "cost", "plan", "product",
				"products", "service", "services", "feature", "features",
				"support", "return", "policy", "contact", "offer", "catalog",
				"platform", "analytics", "cloud", "enterprise", "crm",
			},
			MinHits: 1,
		},
		{
			Kind:   KindKeyword,
			Intent: FAQQuery,
			Weight: 0.6,
			Keywords: []string{
				"how", "what", "tell", "explain", "describe", "information",
				"details", "question", "help", "problem", "issue", "broken",
				"error", "fix", "troubleshoot", "working",
			},
			MinHits: 2,
		},
	}
}
