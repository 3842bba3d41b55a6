package dialog

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/cob-labs/carebot/internal/booking"
	"github.com/cob-labs/carebot/internal/escalation"
	"github.com/cob-labs/carebot/internal/intent"
	"github.com/cob-labs/carebot/internal/knowledge"
	"github.com/cob-labs/carebot/internal/retrieval"
	"github.com/cob-labs/carebot/internal/session"
	"github.com/cob-labs/carebot/internal/transcript"
)

// Wednesday, so "tomorrow" is Thursday 2026-09-03.
var testNow = time.Date(2026, time.September, 2, 10, 0, 0, 0, time.UTC)

func newTestManager(t *testing.T, booker booking.Service) (*Manager, *escalation.Engine) {
	t.Helper()

	embedder := retrieval.NewHashingEmbedder(256)
	index := retrieval.NewMemoryIndex()
	passages := []knowledge.Passage{
		{ID: "p1", Source: "faq.md", Title: "FAQ", Category: "support",
			Text: "Our business hours are Monday through Friday, 2:00 PM to 10:00 PM."},
		{ID: "p2", Source: "pricing.md", Title: "Pricing", Category: "pricing",
			Text: "The Starter plan costs $49 per month and the Business plan costs $199 per month."},
	}
	ctx := context.Background()
	for _, p := range passages {
		vec, err := embedder.Embed(ctx, p.Text)
		if err != nil {
			t.Fatalf("Embed() error = %v", err)
		}
		if err := index.Upsert(ctx, p, vec); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
	}

	if booker == nil {
		booker = booking.NewMockService()
	}
	escalator := escalation.NewEngine(nil, escalation.Options{})
	m := NewManager(
		session.NewManager(session.NewMemoryStore(), 30*time.Minute),
		intent.NewClassifier(nil, 0),
		escalator,
		retrieval.NewEngine(embedder, index, retrieval.Options{TopK: 3, ScoreThreshold: 0.05}),
		booker,
		transcript.NewInMemoryStore(),
		nil,
		Options{Now: func() time.Time { return testNow }},
	)
	return m, escalator
}

func turn(t *testing.T, m *Manager, sessionID, message string) TurnResult {
	t.Helper()
	res, err := m.HandleTurn(context.Background(), "u1", sessionID, message)
	if err != nil {
		t.Fatalf("HandleTurn(%q) error = %v", message, err)
	}
	return res
}

func loadSession(t *testing.T, m *Manager, id string) *session.Session {
	t.Helper()
	sess, created, err := m.sessions.GetOrCreate(context.Background(), "u1", id)
	if err != nil {
		t.Fatalf("load session: %v", err)
	}
	if created {
		t.Fatalf("session %s did not exist", id)
	}
	return sess
}

func TestGreetingStartsSession(t *testing.T) {
	m, _ := newTestManager(t, nil)

	res := turn(t, m, "", "Hello")
	if !res.Created || res.SessionID == "" {
		t.Fatalf("expected new session, got %+v", res)
	}
	if res.Intent != intent.Greeting {
		t.Fatalf("intent = %s, want greeting", res.Intent)
	}
	if len(res.Suggestions) == 0 {
		t.Fatal("expected suggestions with the greeting")
	}
}

func TestFAQQueryAnswersFromKnowledgeBase(t *testing.T) {
	m, _ := newTestManager(t, nil)

	res := turn(t, m, "", "What are your business hours?")
	if res.Intent != intent.FAQQuery {
		t.Fatalf("intent = %s, want faq_query", res.Intent)
	}
	if !strings.Contains(res.Response, "business hours") {
		t.Fatalf("response missing answer: %q", res.Response)
	}
	if res.NeedsEscalation {
		t.Fatal("FAQ answer should not escalate")
	}
}

func TestFullAppointmentFlow(t *testing.T) {
	mock := booking.NewMockService()
	m, _ := newTestManager(t, mock)

	res := turn(t, m, "", "I want to schedule an appointment")
	sid := res.SessionID
	if res.Intent != intent.ScheduleAppointment {
		t.Fatalf("intent = %s, want schedule_appointment", res.Intent)
	}
	if !strings.Contains(res.Response, "1. Consultation") {
		t.Fatalf("expected service menu, got %q", res.Response)
	}

	steps := []struct {
		message string
		expect  string
	}{
		{"2", "date"},
		{"tomorrow", "time"},
		{"3:30 PM", "name"},
		{"Alex Chen", "email"},
		{"Alex.Chen@Example.com", "Shall I book it?"},
	}
	for _, step := range steps {
		res = turn(t, m, sid, step.message)
		if !strings.Contains(strings.ToLower(res.Response), strings.ToLower(step.expect)) {
			t.Fatalf("after %q: response %q missing %q", step.message, res.Response, step.expect)
		}
	}

	res = turn(t, m, sid, "yes")
	if !strings.Contains(res.Response, "APT-") {
		t.Fatalf("expected confirmation number, got %q", res.Response)
	}

	booked := mock.Booked()
	if len(booked) != 1 {
		t.Fatalf("booked = %d, want 1", len(booked))
	}
	req := booked[0]
	if req.ServiceType != "Product demo" {
		t.Errorf("ServiceType = %q", req.ServiceType)
	}
	if req.Date != "2026-09-03" {
		t.Errorf("Date = %q", req.Date)
	}
	if req.Time != "3:30 PM" {
		t.Errorf("Time = %q", req.Time)
	}
	if req.Email != "alex.chen@example.com" {
		t.Errorf("Email = %q", req.Email)
	}

	sess := loadSession(t, m, sid)
	if sess.InFlow() || sess.State != session.StateIdle || sess.Slots != nil {
		t.Fatalf("flow state not cleared: %+v", sess)
	}
}

func TestSlotValidationRepromptsAndRecovers(t *testing.T) {
	m, _ := newTestManager(t, nil)

	res := turn(t, m, "", "book an appointment")
	sid := res.SessionID
	turn(t, m, sid, "1")

	res = turn(t, m, sid, "blorp")
	if !strings.Contains(res.Response, "date") {
		t.Fatalf("expected date reprompt, got %q", res.Response)
	}
	sess := loadSession(t, m, sid)
	if !sess.InFlow() {
		t.Fatal("validation failure must keep the flow active")
	}

	res = turn(t, m, sid, "next friday")
	if !strings.Contains(strings.ToLower(res.Response), "time") {
		t.Fatalf("expected time prompt, got %q", res.Response)
	}
}

func TestTimeOutsideBusinessHoursRejected(t *testing.T) {
	m, _ := newTestManager(t, nil)

	res := turn(t, m, "", "book an appointment")
	sid := res.SessionID
	turn(t, m, sid, "1")
	turn(t, m, sid, "tomorrow")

	res = turn(t, m, sid, "9 AM")
	if !strings.Contains(res.Response, "2:00 PM") {
		t.Fatalf("expected business hours reprompt, got %q", res.Response)
	}

	res = turn(t, m, sid, "4 PM")
	if !strings.Contains(strings.ToLower(res.Response), "name") {
		t.Fatalf("expected name prompt, got %q", res.Response)
	}
}

func TestCancelPhraseAbortsFlow(t *testing.T) {
	m, _ := newTestManager(t, nil)

	res := turn(t, m, "", "schedule a demo")
	sid := res.SessionID
	turn(t, m, sid, "2")

	res = turn(t, m, sid, "never mind")
	if res.Response != msgFlowCancelled {
		t.Fatalf("response = %q, want cancel message", res.Response)
	}
	sess := loadSession(t, m, sid)
	if sess.InFlow() || sess.Slots != nil {
		t.Fatalf("flow state not cleared: %+v", sess)
	}
}

func TestConfirmationNoCancels(t *testing.T) {
	m, _ := newTestManager(t, nil)

	res := turn(t, m, "", "book an appointment")
	sid := res.SessionID
	for _, msg := range []string{"1", "tomorrow", "4 PM", "Alex Chen", "alex@example.com"} {
		turn(t, m, sid, msg)
	}

	res = turn(t, m, sid, "no")
	if res.Response != msgFlowCancelled {
		t.Fatalf("response = %q, want cancel message", res.Response)
	}
	if loadSession(t, m, sid).InFlow() {
		t.Fatal("flow should be cleared after declining")
	}
}

func TestBookingFailureKeepsSlots(t *testing.T) {
	mock := booking.NewMockService()
	m, _ := newTestManager(t, mock)

	res := turn(t, m, "", "book an appointment")
	sid := res.SessionID
	for _, msg := range []string{"1", "tomorrow", "4 PM", "Alex Chen", "alex@example.com"} {
		turn(t, m, sid, msg)
	}

	mock.FailNext = true
	res = turn(t, m, sid, "yes")
	if res.Response != msgBookingFailed {
		t.Fatalf("response = %q, want booking failure message", res.Response)
	}
	sess := loadSession(t, m, sid)
	if sess.State != session.StateConfirming || sess.Slots["name"] != "Alex Chen" {
		t.Fatalf("slots lost after booking failure: %+v", sess)
	}

	res = turn(t, m, sid, "yes")
	if !strings.Contains(res.Response, "APT-") {
		t.Fatalf("retry should book, got %q", res.Response)
	}
}

func TestExplicitEscalation(t *testing.T) {
	m, escalator := newTestManager(t, nil)

	res := turn(t, m, "", "I want to talk to a human")
	if !res.NeedsEscalation {
		t.Fatal("expected escalation")
	}
	if !strings.Contains(res.Response, "ESC-") {
		t.Fatalf("response missing ticket reference: %q", res.Response)
	}

	queue := escalator.Queue()
	if len(queue) != 1 || queue[0].Reason != escalation.ReasonExplicitRequest {
		t.Fatalf("queue = %+v", queue)
	}
}

func TestEscalationShortCircuitsFlow(t *testing.T) {
	m, _ := newTestManager(t, nil)

	res := turn(t, m, "", "book an appointment")
	sid := res.SessionID
	turn(t, m, sid, "1")

	res = turn(t, m, sid, "just get me a human")
	if !res.NeedsEscalation {
		t.Fatal("expected escalation mid-flow")
	}
	sess := loadSession(t, m, sid)
	if sess.InFlow() || !sess.Escalated {
		t.Fatalf("expected cleared flow and escalated flag: %+v", sess)
	}
}

func TestSensitiveTopicEscalatesHighPriority(t *testing.T) {
	m, escalator := newTestManager(t, nil)

	res := turn(t, m, "", "I am going to sue over this data breach")
	if !res.NeedsEscalation {
		t.Fatal("expected escalation")
	}
	queue := escalator.Queue()
	if len(queue) != 1 || queue[0].Priority != escalation.PriorityHigh {
		t.Fatalf("queue = %+v, want high priority", queue)
	}
	if queue[0].EstimatedWait != "2-3 minutes" {
		t.Fatalf("wait = %q", queue[0].EstimatedWait)
	}
}

func TestRepeatedUnknownTurnsEscalate(t *testing.T) {
	m, escalator := newTestManager(t, nil)

	res := turn(t, m, "", "zork mindy grue")
	sid := res.SessionID
	if res.NeedsEscalation {
		t.Fatal("first unknown should not escalate")
	}
	res = turn(t, m, sid, "flibber jabber wock")
	if res.NeedsEscalation {
		t.Fatal("second unknown should not escalate")
	}

	res = turn(t, m, sid, "gorp snarf blatt")
	if !res.NeedsEscalation {
		t.Fatal("third consecutive unknown should escalate")
	}
	queue := escalator.Queue()
	if len(queue) != 1 || queue[0].Reason != escalation.ReasonRepeatedFailure {
		t.Fatalf("queue = %+v, want repeated_failure", queue)
	}
}

func TestEmptyMessageRepromptsWithoutFailure(t *testing.T) {
	m, escalator := newTestManager(t, nil)

	res := turn(t, m, "", "   ")
	if res.Response != msgEmpty {
		t.Fatalf("response = %q, want empty reprompt", res.Response)
	}
	sid := res.SessionID

	// Blank turns never build toward repeated-failure escalation.
	for i := 0; i < 4; i++ {
		res = turn(t, m, sid, "!!!")
		if res.NeedsEscalation {
			t.Fatal("blank input must not escalate")
		}
	}
	if len(escalator.Queue()) != 0 {
		t.Fatalf("queue = %+v, want empty", escalator.Queue())
	}
}

func TestEndSession(t *testing.T) {
	m, _ := newTestManager(t, nil)

	res := turn(t, m, "", "hello")
	sid := res.SessionID
	if err := m.EndSession(context.Background(), sid); err != nil {
		t.Fatalf("EndSession() error = %v", err)
	}

	res = turn(t, m, sid, "hello again")
	if !res.Created {
		t.Fatal("expected a fresh session after end")
	}
}

func TestGoodbye(t *testing.T) {
	m, _ := newTestManager(t, nil)

	res := turn(t, m, "", "thanks")
	if res.Intent != intent.Goodbye {
		t.Fatalf("intent = %s, want goodbye", res.Intent)
	}
	if res.Response != msgGoodbye {
		t.Fatalf("response = %q", res.Response)
	}
}
