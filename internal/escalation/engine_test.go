package escalation

import (
	"strings"
	"testing"
	"time"

	"github.com/cob-labs/carebot/internal/session"
	"github.com/cob-labs/carebot/internal/textnorm"
)

func evaluate(t *testing.T, msg string, sess *session.Session) Verdict {
	t.Helper()
	e := NewEngine(nil, Options{})
	return e.Evaluate(msg, textnorm.Normalize(msg), sess)
}

func TestExplicitRequestTriggersInAnyState(t *testing.T) {
	sessions := []*session.Session{
		nil,
		session.New("s1", "u1"),
	}
	inFlow := session.New("s2", "u1")
	inFlow.ActiveFlow = "appointment"
	inFlow.State = session.State("date")
	sessions = append(sessions, inFlow)

	for _, sess := range sessions {
		v := evaluate(t, "I want to talk to a human", sess)
		if !v.Triggered || v.Reason != ReasonExplicitRequest {
			t.Fatalf("verdict = %+v, want explicit_request", v)
		}
	}
}

func TestFrustrationTrigger(t *testing.T) {
	v := evaluate(t, "This isn't working! I've asked three times!", nil)
	if !v.Triggered || v.Reason != ReasonFrustration {
		t.Fatalf("verdict = %+v, want frustration", v)
	}
	if v.Priority != PriorityNormal {
		t.Fatalf("priority = %q, want normal", v.Priority)
	}
}

func TestSensitiveTopicIsHighPriorityAndWins(t *testing.T) {
	// Frustration and sensitive both fire; high priority must win.
	v := evaluate(t, "This is ridiculous!! I want a refund and I will sue", nil)
	if !v.Triggered || v.Reason != ReasonSensitiveTopic {
		t.Fatalf("verdict = %+v, want sensitive_topic", v)
	}
	if v.Priority != PriorityHigh {
		t.Fatalf("priority = %q, want high", v.Priority)
	}
}

func TestCalmMessageDoesNotTrigger(t *testing.T) {
	v := evaluate(t, "what are your business hours", session.New("s1", "u1"))
	if v.Triggered || v.Reason != ReasonNone {
		t.Fatalf("verdict = %+v, want none", v)
	}
}

func TestRepeatedFailureAfterThreeUnknowns(t *testing.T) {
	e := NewEngine(nil, Options{FailureWindow: 3})
	sess := session.New("s1", "u1")
	for i := 0; i < 2; i++ {
		sess.AppendTurn(session.Turn{UserText: "gibberish", Intent: "unknown", At: time.Now()}, 10)
	}

	// Third consecutive unknown turn completes the window.
	v := e.EvaluateFailure(sess, TurnSignal{UnknownIntent: true})
	if !v.Triggered || v.Reason != ReasonRepeatedFailure {
		t.Fatalf("verdict = %+v, want repeated_failure", v)
	}
}

func TestRepeatedFailureSameSlot(t *testing.T) {
	e := NewEngine(nil, Options{FailureWindow: 3})
	sess := session.New("s1", "u1")
	sess.AppendTurn(session.Turn{UserText: "banana", Intent: "menu_selection", FailedSlot: "date", At: time.Now()}, 10)
	sess.AppendTurn(session.Turn{UserText: "pear", Intent: "unknown", FailedSlot: "date", At: time.Now()}, 10)

	v := e.EvaluateFailure(sess, TurnSignal{FailedSlot: "date"})
	if !v.Triggered || v.Reason != ReasonRepeatedFailure {
		t.Fatalf("verdict = %+v, want repeated_failure", v)
	}
}

func TestFailureStreakBrokenByResolvedTurn(t *testing.T) {
	e := NewEngine(nil, Options{FailureWindow: 3})
	sess := session.New("s1", "u1")
	sess.AppendTurn(session.Turn{UserText: "gibberish", Intent: "unknown", At: time.Now()}, 10)
	sess.AppendTurn(session.Turn{UserText: "what are your hours", Intent: "faq_query", At: time.Now()}, 10)
	sess.AppendTurn(session.Turn{UserText: "gibberish", Intent: "unknown", At: time.Now()}, 10)

	v := e.EvaluateFailure(sess, TurnSignal{UnknownIntent: true})
	if v.Triggered {
		t.Fatalf("verdict = %+v, want untriggered (streak broken)", v)
	}
}

func TestNilHistoryCountsAsZeroFailures(t *testing.T) {
	e := NewEngine(nil, Options{})
	v := e.EvaluateFailure(nil, TurnSignal{UnknownIntent: true})
	if v.Triggered {
		t.Fatalf("verdict = %+v, want untriggered", v)
	}
}

func TestOpenTicketRedactsSummary(t *testing.T) {
	e := NewEngine(nil, Options{})
	sess := session.New("s1", "u1")
	sess.AppendTurn(session.Turn{UserText: "my email is jane@example.com", BotText: "noted", At: time.Now()}, 10)

	ticket := e.OpenTicket(sess, Verdict{Triggered: true, Reason: ReasonSensitiveTopic, Priority: PriorityHigh})
	if !strings.HasPrefix(ticket.ID, "ESC-") {
		t.Fatalf("ticket id = %q", ticket.ID)
	}
	if strings.Contains(ticket.Summary, "jane@example.com") {
		t.Fatalf("summary leaked PII: %q", ticket.Summary)
	}
	if !strings.Contains(ticket.Summary, "[REDACTED_EMAIL]") {
		t.Fatalf("summary missing redaction marker: %q", ticket.Summary)
	}
	if ticket.EstimatedWait != "2-3 minutes" {
		t.Fatalf("wait = %q, want high-priority wait", ticket.EstimatedWait)
	}

	if got := e.Queue(); len(got) != 1 || got[0].ID != ticket.ID {
		t.Fatalf("queue = %+v", got)
	}
}
