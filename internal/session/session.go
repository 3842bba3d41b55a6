package session

import "time"

// State names the dialog position of a session: idle, a slot name while a
// guided flow collects input, or confirming while waiting on yes/no.
type State string

const (
	StateIdle       State = "idle"
	StateConfirming State = "confirming"
)

// Turn is one user/bot exchange kept in the session's rolling history.
type Turn struct {
	UserText   string    `json:"user_text"`
	BotText    string    `json:"bot_text"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	// FailedSlot is set when the turn ended in a slot validation error.
	FailedSlot string    `json:"failed_slot,omitempty"`
	At         time.Time `json:"at"`
}

// Session is one conversation. It is owned by the dialog manager and must
// only be mutated while the manager holds the per-session lock.
type Session struct {
	ID             string            `json:"id"`
	UserID         string            `json:"user_id"`
	State          State             `json:"state"`
	ActiveFlow     string            `json:"active_flow,omitempty"`
	Slots          map[string]string `json:"slots,omitempty"`
	SlotFailures   map[string]int    `json:"slot_failures,omitempty"`
	Escalated      bool              `json:"escalated"`
	Turns          []Turn            `json:"turns"`
	CreatedAt      time.Time         `json:"created_at"`
	LastActivityAt time.Time         `json:"last_activity_at"`
}

func New(id, userID string) *Session {
	now := time.Now().UTC()
	return &Session{
		ID:             id,
		UserID:         userID,
		State:          StateIdle,
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// InFlow reports whether a guided flow is active.
func (s *Session) InFlow() bool { return s.ActiveFlow != "" }

// SetSlot records a collected slot value for the active flow.
func (s *Session) SetSlot(name, value string) {
	if s.Slots == nil {
		s.Slots = make(map[string]string)
	}
	s.Slots[name] = value
}

// RecordSlotFailure bumps the per-slot validation failure counter and
// returns the new count.
func (s *Session) RecordSlotFailure(name string) int {
	if s.SlotFailures == nil {
		s.SlotFailures = make(map[string]int)
	}
	s.SlotFailures[name]++
	return s.SlotFailures[name]
}

// ResetFlow drops all flow state. Slot values only exist while their owning
// flow is active, so every terminal transition and escalation comes through
// here.
func (s *Session) ResetFlow() {
	s.ActiveFlow = ""
	s.State = StateIdle
	s.Slots = nil
	s.SlotFailures = nil
}

// AppendTurn adds a turn to the rolling history, trimming to limit.
func (s *Session) AppendTurn(t Turn, limit int) {
	s.Turns = append(s.Turns, t)
	if limit > 0 && len(s.Turns) > limit {
		s.Turns = s.Turns[len(s.Turns)-limit:]
	}
	s.LastActivityAt = time.Now().UTC()
}

// RecentTurns returns up to n most recent turns, oldest first.
func (s *Session) RecentTurns(n int) []Turn {
	if n <= 0 || n >= len(s.Turns) {
		return s.Turns
	}
	return s.Turns[len(s.Turns)-n:]
}

// Clone returns a deep copy safe to hand outside the session lock.
func (s *Session) Clone() *Session {
	c := *s
	if s.Slots != nil {
		c.Slots = make(map[string]string, len(s.Slots))
		for k, v := range s.Slots {
			c.Slots[k] = v
		}
	}
	if s.SlotFailures != nil {
		c.SlotFailures = make(map[string]int, len(s.SlotFailures))
		for k, v := range s.SlotFailures {
			c.SlotFailures[k] = v
		}
	}
	c.Turns = append([]Turn(nil), s.Turns...)
	return &c
}
