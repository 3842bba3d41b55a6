package escalation

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/cob-labs/carebot/internal/policy"
	"github.com/cob-labs/carebot/internal/session"
	"github.com/cob-labs/carebot/internal/textnorm"
)

// Options tunes the engine. Zero values fall back to the documented defaults.
type Options struct {
	// FrustrationThreshold is the scorer value at which frustration triggers.
	FrustrationThreshold float64
	// FailureWindow is the number of consecutive failed turns that triggers
	// repeated_failure.
	FailureWindow int
}

// Engine evaluates every turn against the escalation triggers. It runs
// independently of intent classification and can override any routing
// decision. Evaluation never fails; a missing or degenerate session history
// simply counts as zero failures.
type Engine struct {
	scorer    Scorer
	threshold float64
	window    int

	mu    sync.RWMutex
	queue []Ticket
}

var explicitPhrases = []string{
	"talk to a human", "speak to a person", "speak to a human",
	"speak with a human", "human agent", "live agent", "real person",
	"agent please", "connect me with someone", "get me a human",
	"get me a person", "customer service representative",
	"talk to an agent", "transfer me", "speak to a manager",
	"talk to a manager", "speak to a supervisor",
}

var sensitiveKeywords = []string{
	"legal", "lawsuit", "attorney", "lawyer", "sue",
	"cancel service", "terminate my account", "breach", "privacy",
	"data breach", "compensation", "refund", "complaint",
	"formal complaint", "chargeback", "billing dispute", "disputed charge",
	"regulatory", "compliance", "unsafe", "injury",
}

func NewEngine(scorer Scorer, opts Options) *Engine {
	if scorer == nil {
		scorer = NewLexiconScorer()
	}
	if opts.FrustrationThreshold <= 0 {
		opts.FrustrationThreshold = 0.6
	}
	if opts.FailureWindow <= 0 {
		opts.FailureWindow = 3
	}
	return &Engine{
		scorer:    scorer,
		threshold: opts.FrustrationThreshold,
		window:    opts.FailureWindow,
	}
}

// Evaluate runs the message-level triggers: explicit request, frustration
// and sensitive topic. The repeated-failure trigger needs the current turn's
// routing outcome, so the dialog manager invokes EvaluateFailure separately
// once that outcome is known. The highest-priority true trigger wins; among
// equal priorities the declaration order decides.
func (e *Engine) Evaluate(message string, n textnorm.NormalizedText, sess *session.Session) Verdict {
	var verdicts []Verdict

	if phrase := matchAny(n.Lowered, explicitPhrases); phrase != "" {
		verdicts = append(verdicts, Verdict{
			Triggered: true,
			Reason:    ReasonExplicitRequest,
			Priority:  PriorityNormal,
			Signal:    "phrase:" + phrase,
		})
	}

	if score := e.scorer.Score(message); score >= e.threshold {
		verdicts = append(verdicts, Verdict{
			Triggered: true,
			Reason:    ReasonFrustration,
			Priority:  PriorityNormal,
			Signal:    fmt.Sprintf("sentiment:%.2f", score),
		})
	}

	if kw := matchKeyword(n, sensitiveKeywords); kw != "" {
		verdicts = append(verdicts, Verdict{
			Triggered: true,
			Reason:    ReasonSensitiveTopic,
			Priority:  PriorityHigh,
			Signal:    "keyword:" + kw,
		})
	}

	return pick(verdicts)
}

// TurnSignal describes the outcome of the turn in progress, so the
// repeated-failure window can include it before it lands in history.
type TurnSignal struct {
	UnknownIntent bool
	FailedSlot    string
}

// intentUnknown mirrors the classifier's unknown label without importing the
// intent package.
const intentUnknown = "unknown"

// EvaluateFailure checks the repeated-failure trigger: the current turn plus
// the trailing history form a streak of length >= FailureWindow where every
// turn either classified unknown or failed validation on the same slot.
func (e *Engine) EvaluateFailure(sess *session.Session, sig TurnSignal) Verdict {
	none := Verdict{Reason: ReasonNone, Priority: PriorityNormal}
	if !sig.UnknownIntent && sig.FailedSlot == "" {
		return none
	}

	count := 1
	refSlot := sig.FailedSlot
	if sess != nil {
	streak:
		for i := len(sess.Turns) - 1; i >= 0; i-- {
			t := sess.Turns[i]
			switch {
			case t.FailedSlot != "" && (refSlot == "" || t.FailedSlot == refSlot):
				refSlot = t.FailedSlot
				count++
			case t.FailedSlot == "" && t.Intent == intentUnknown:
				count++
			default:
				break streak
			}
		}
	}

	if count >= e.window {
		return Verdict{
			Triggered: true,
			Reason:    ReasonRepeatedFailure,
			Priority:  PriorityNormal,
			Signal:    fmt.Sprintf("failures:%d", count),
		}
	}
	return none
}

// OpenTicket issues a handoff ticket and enqueues it for agent pickup. The
// summary is built from the session's recent turns with PII masked.
func (e *Engine) OpenTicket(sess *session.Session, v Verdict) Ticket {
	wait := "5-10 minutes"
	if v.Priority == PriorityHigh {
		wait = "2-3 minutes"
	}
	t := Ticket{
		ID:            "ESC-" + strings.ToUpper(uuid.NewString()[:8]),
		Reason:        v.Reason,
		Priority:      v.Priority,
		EstimatedWait: wait,
		CreatedAt:     time.Now().UTC(),
	}
	if sess != nil {
		t.UserID = sess.UserID
		t.SessionID = sess.ID
		t.Summary = summarize(sess)
	}

	e.mu.Lock()
	e.queue = append(e.queue, t)
	e.mu.Unlock()
	return t
}

// Queue returns pending tickets, oldest first.
func (e *Engine) Queue() []Ticket {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Ticket(nil), e.queue...)
}

func summarize(sess *session.Session) string {
	var b strings.Builder
	fmt.Fprintf(&b, "User: %s\n", sess.UserID)
	for _, turn := range sess.RecentTurns(5) {
		user, _ := policy.RedactPII(turn.UserText)
		bot, _ := policy.RedactPII(turn.BotText)
		fmt.Fprintf(&b, "  User: %s\n  Bot: %s\n", clip(user, 100), clip(bot, 100))
	}
	return strings.TrimRight(b.String(), "\n")
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func matchAny(lowered string, phrases []string) string {
	for _, p := range phrases {
		if strings.Contains(lowered, p) {
			return p
		}
	}
	return ""
}

// matchKeyword matches multi-word keywords as substrings but single words
// only as whole tokens, so "issue" never trips the "sue" trigger.
func matchKeyword(n textnorm.NormalizedText, keywords []string) string {
	for _, kw := range keywords {
		if strings.Contains(kw, " ") {
			if strings.Contains(n.Lowered, kw) {
				return kw
			}
			continue
		}
		for _, tok := range n.Tokens {
			if tok == kw {
				return kw
			}
		}
	}
	return ""
}

// pick returns the winning verdict: high priority first, then declaration
// order. No triggers means an untriggered verdict with reason none.
func pick(verdicts []Verdict) Verdict {
	for _, v := range verdicts {
		if v.Priority == PriorityHigh {
			return v
		}
	}
	if len(verdicts) > 0 {
		return verdicts[0]
	}
	return Verdict{Reason: ReasonNone, Priority: PriorityNormal}
}
