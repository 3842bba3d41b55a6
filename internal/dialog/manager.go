// Package dialog is the orchestration core: it owns the per-turn pipeline
// (sanitize, normalize, escalation check, classify, route) and the guided
// appointment flow state machine.
package dialog

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cob-labs/carebot/internal/booking"
	"github.com/cob-labs/carebot/internal/escalation"
	"github.com/cob-labs/carebot/internal/intent"
	"github.com/cob-labs/carebot/internal/observability"
	"github.com/cob-labs/carebot/internal/policy"
	"github.com/cob-labs/carebot/internal/retrieval"
	"github.com/cob-labs/carebot/internal/session"
	"github.com/cob-labs/carebot/internal/textnorm"
	"github.com/cob-labs/carebot/internal/transcript"
)

// Options tunes the manager. Zero values fall back to defaults.
type Options struct {
	HistoryLimit     int
	MaxMessageLength int
	ArchiveTimeout   time.Duration
	// Now overrides the clock, for tests.
	Now func() time.Time
}

// TurnResult is the answer to one user message.
type TurnResult struct {
	SessionID       string        `json:"session_id"`
	Created         bool          `json:"created"`
	Response        string        `json:"response"`
	Intent          intent.Intent `json:"intent"`
	Confidence      float64       `json:"confidence"`
	NeedsEscalation bool          `json:"needs_escalation"`
	Suggestions     []string      `json:"suggestions,omitempty"`
}

// Manager coordinates the collaborators for each turn. Identical session state
// and message always produce the same routing decision; only ticket and
// appointment identifiers vary.
type Manager struct {
	sessions   *session.Manager
	classifier *intent.Classifier
	escalator  *escalation.Engine
	retriever  *retrieval.Engine
	booker     booking.Service
	archive    transcript.Store
	metrics    *observability.Metrics
	opts       Options
}

func NewManager(
	sessions *session.Manager,
	classifier *intent.Classifier,
	escalator *escalation.Engine,
	retriever *retrieval.Engine,
	booker booking.Service,
	archive transcript.Store,
	metrics *observability.Metrics,
	opts Options,
) *Manager {
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 10
	}
	if opts.MaxMessageLength <= 0 {
		opts.MaxMessageLength = 1000
	}
	if opts.ArchiveTimeout <= 0 {
		opts.ArchiveTimeout = 2 * time.Second
	}
	return &Manager{
		sessions:   sessions,
		classifier: classifier,
		escalator:  escalator,
		retriever:  retriever,
		booker:     booker,
		archive:    archive,
		metrics:    metrics,
		opts:       opts,
	}
}

// outcome is the routing result for one turn before it is recorded.
type outcome struct {
	response    string
	suggestions []string
	failedSlot  string
	unknown     bool
	escalated   bool
	reason      escalation.Reason
}

// HandleTurn processes one user message and returns the bot reply. An empty
// sessionID starts a new session.
func (m *Manager) HandleTurn(ctx context.Context, userID, sessionID, message string) (TurnResult, error) {
	start := m.now()
	text := policy.SanitizeInput(message, m.opts.MaxMessageLength)

	if sessionID != "" {
		unlock := m.sessions.Lock(sessionID)
		defer unlock()
	}
	sess, created, err := m.sessions.GetOrCreate(ctx, userID, sessionID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("load session: %w", err)
	}
	if sessionID == "" {
		unlock := m.sessions.Lock(sess.ID)
		defer unlock()
	}
	if created && m.metrics != nil {
		m.metrics.ActiveSessions.Inc()
	}

	n := textnorm.Normalize(text)
	if n.IsEmpty() {
		// Blank input is a reprompt, not a failed turn.
		sess.AppendTurn(session.Turn{UserText: text, BotText: msgEmpty, At: m.now()}, m.opts.HistoryLimit)
		if err := m.sessions.Save(ctx, sess); err != nil {
			log.Error().Err(err).Str("session", sess.ID).Msg("save session failed")
		}
		return TurnResult{
			SessionID: sess.ID,
			Created:   created,
			Response:  msgEmpty,
			Intent:    intent.Unknown,
		}, nil
	}

	res := m.classifier.Classify(n, intent.Context{
		FlowActive:            sess.InFlow(),
		AwaitingConfirmation:  sess.State == session.StateConfirming,
		AwaitingMenuSelection: sess.InFlow() && sess.State == session.State("service_type"),
	})

	var out outcome
	if !sess.Escalated {
		if v := m.escalator.Evaluate(text, n, sess); v.Triggered {
			out = outcome{response: m.escalate(sess, v), escalated: true, reason: v.Reason}
		}
	}
	if !out.escalated {
		switch {
		case sess.State == session.StateConfirming:
			out = m.handleConfirmation(ctx, sess, n, res)
		case sess.InFlow():
			out = m.handleSlotTurn(sess, text, n, res)
		default:
			out = m.route(ctx, sess, text, n, res)
		}
	}

	// The repeated-failure trigger needs this turn's outcome, so it runs after
	// routing and may override the reply.
	if !out.escalated && !sess.Escalated && (out.unknown || out.failedSlot != "") {
		sig := escalation.TurnSignal{UnknownIntent: out.unknown, FailedSlot: out.failedSlot}
		if v := m.escalator.EvaluateFailure(sess, sig); v.Triggered {
			out.response = m.escalate(sess, v)
			out.escalated = true
			out.reason = v.Reason
			out.suggestions = nil
			out.failedSlot = ""
		}
	}

	recordIntent := string(res.Intent)
	if out.unknown {
		recordIntent = string(intent.Unknown)
	}
	sess.AppendTurn(session.Turn{
		UserText:   text,
		BotText:    out.response,
		Intent:     recordIntent,
		Confidence: res.Confidence,
		FailedSlot: out.failedSlot,
		At:         m.now(),
	}, m.opts.HistoryLimit)
	if err := m.sessions.Save(ctx, sess); err != nil {
		log.Error().Err(err).Str("session", sess.ID).Msg("save session failed")
	}

	if m.metrics != nil {
		m.metrics.Turns.WithLabelValues(string(res.Intent)).Inc()
		if out.failedSlot != "" {
			m.metrics.SlotFailures.WithLabelValues(out.failedSlot).Inc()
		}
		if out.escalated {
			m.metrics.Escalations.WithLabelValues(string(out.reason)).Inc()
		}
		m.metrics.ObserveTurnLatency(m.now().Sub(start))
	}

	m.archiveTurn(sess, text, out.response, recordIntent, res.Confidence)

	return TurnResult{
		SessionID:       sess.ID,
		Created:         created,
		Response:        out.response,
		Intent:          res.Intent,
		Confidence:      res.Confidence,
		NeedsEscalation: out.escalated,
		Suggestions:     out.suggestions,
	}, nil
}

// EndSession deletes the session immediately.
func (m *Manager) EndSession(ctx context.Context, sessionID string) error {
	unlock := m.sessions.Lock(sessionID)
	defer unlock()
	if err := m.sessions.End(ctx, sessionID); err != nil {
		return err
	}
	if m.metrics != nil {
		m.metrics.ActiveSessions.Dec()
	}
	return nil
}

func (m *Manager) escalate(sess *session.Session, v escalation.Verdict) string {
	ticket := m.escalator.OpenTicket(sess, v)
	sess.Escalated = true
	sess.ResetFlow()
	log.Info().
		Str("ticket", ticket.ID).
		Str("reason", string(v.Reason)).
		Str("session", sess.ID).
		Msg("escalated to human agent")
	return escalationResponse(ticket)
}

func (m *Manager) route(ctx context.Context, sess *session.Session, text string, n textnorm.NormalizedText, res intent.Result) outcome {
	switch res.Intent {
	case intent.Greeting:
		return outcome{response: msgGreeting, suggestions: greetingSuggestions}
	case intent.Goodbye:
		return outcome{response: msgGoodbye}
	case intent.ScheduleAppointment:
		return outcome{response: m.startAppointmentFlow(sess)}
	case intent.CancelAppointment, intent.ModifyAppointment:
		return outcome{response: msgModify, suggestions: fallbackSuggestions}
	case intent.EscalationRequest:
		v := escalation.Verdict{
			Triggered: true,
			Reason:    escalation.ReasonExplicitRequest,
			Priority:  escalation.PriorityNormal,
			Signal:    "intent:escalation_request",
		}
		return outcome{response: m.escalate(sess, v), escalated: true, reason: v.Reason}
	case intent.FAQQuery:
		r := m.retriever.Answer(ctx, n)
		if r.Confidence == 0 {
			if m.metrics != nil {
				m.metrics.RetrievalFallbacks.Inc()
			}
			return outcome{response: r.Text, suggestions: fallbackSuggestions, unknown: true}
		}
		return outcome{response: r.Text}
	default:
		// Unknown, or a continuation intent with no flow to continue.
		return outcome{response: msgClarify, suggestions: fallbackSuggestions, unknown: true}
	}
}

func (m *Manager) startAppointmentFlow(sess *session.Session) string {
	sess.ResetFlow()
	sess.ActiveFlow = flowAppointment
	sess.State = session.State(appointmentSlots[0].Name)
	return appointmentSlots[0].Prompt()
}

func (m *Manager) handleSlotTurn(sess *session.Session, text string, n textnorm.NormalizedText, res intent.Result) outcome {
	if wantsFlowCancel(n) || res.Intent == intent.CancelAppointment {
		sess.ResetFlow()
		return outcome{response: msgFlowCancelled}
	}

	slot, idx, ok := slotByName(string(sess.State))
	if !ok {
		// Unrecognized flow position, likely from an old serialized session.
		// Restart the flow rather than guessing.
		return outcome{response: m.startAppointmentFlow(sess)}
	}

	value, err := slot.Validate(text, n, m.now())
	if err != nil {
		failures := sess.RecordSlotFailure(slot.Name)
		return outcome{response: reprompt(slot, err.Error(), failures), failedSlot: slot.Name}
	}

	sess.SetSlot(slot.Name, value)
	if idx+1 < len(appointmentSlots) {
		next := appointmentSlots[idx+1]
		sess.State = session.State(next.Name)
		return outcome{response: next.Prompt()}
	}
	sess.State = session.StateConfirming
	return outcome{response: confirmSummary(sess)}
}

func (m *Manager) handleConfirmation(ctx context.Context, sess *session.Session, n textnorm.NormalizedText, res intent.Result) outcome {
	switch {
	// Negatives first: with the confirmation bias active, "no" classifies as
	// a confirmation intent too.
	case wantsFlowCancel(n) || isNegative(n) || res.Intent == intent.CancelAppointment:
		sess.ResetFlow()
		return outcome{response: msgFlowCancelled}

	case isAffirmative(n):
		req := booking.Request{
			UserID:      sess.UserID,
			SessionID:   sess.ID,
			ServiceType: sess.Slots["service_type"],
			Date:        sess.Slots["date"],
			Time:        sess.Slots["time"],
			Name:        sess.Slots["name"],
			Email:       sess.Slots["email"],
		}
		conf, err := m.booker.Book(ctx, req)
		if err != nil {
			if m.metrics != nil {
				m.metrics.BookingOutcomes.WithLabelValues("failed").Inc()
			}
			log.Warn().Err(err).Str("session", sess.ID).Msg("booking attempt failed")
			// Collected slots survive; the user can retry or bail.
			return outcome{response: msgBookingFailed}
		}
		if m.metrics != nil {
			m.metrics.BookingOutcomes.WithLabelValues("confirmed").Inc()
		}
		response := bookingConfirmed(conf, sess)
		sess.ResetFlow()
		return outcome{response: response}

	default:
		failures := sess.RecordSlotFailure("confirmation")
		msg := "Sorry, I just need a yes or no. " + confirmSummary(sess)
		if failures >= 2 {
			msg = "Please reply \"yes\" to book or \"no\" to cancel."
		}
		return outcome{response: msg, failedSlot: "confirmation"}
	}
}

// archiveTurn writes both sides of the exchange to the transcript store with
// PII masked. It is fire-and-forget with a bounded timeout; archive failures
// never affect the reply.
func (m *Manager) archiveTurn(sess *session.Session, userText, botText, intentLabel string, confidence float64) {
	if m.archive == nil {
		return
	}
	userID := sess.UserID
	sessionID := sess.ID
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.opts.ArchiveTimeout)
		defer cancel()

		redactedUser, changedUser := policy.RedactPII(userText)
		if err := m.archive.SaveTurn(ctx, transcript.TurnRecord{
			UserID:     userID,
			SessionID:  sessionID,
			Role:       "user",
			Content:    redactedUser,
			Intent:     intentLabel,
			Confidence: confidence,
			Redacted:   changedUser,
		}); err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("archive user turn failed")
		}

		redactedBot, changedBot := policy.RedactPII(botText)
		if err := m.archive.SaveTurn(ctx, transcript.TurnRecord{
			UserID:    userID,
			SessionID: sessionID,
			Role:      "bot",
			Content:   redactedBot,
			Redacted:  changedBot,
		}); err != nil {
			log.Warn().Err(err).Str("session", sessionID).Msg("archive bot turn failed")
		}
	}()
}

func (m *Manager) now() time.Time {
	if m.opts.Now != nil {
		return m.opts.Now()
	}
	return time.Now().UTC()
}
