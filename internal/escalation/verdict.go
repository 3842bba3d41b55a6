package escalation

import "time"

// Reason enumerates why a conversation is handed to a human.
type Reason string

const (
	ReasonNone            Reason = "none"
	ReasonExplicitRequest Reason = "explicit_request"
	ReasonFrustration     Reason = "frustration"
	ReasonSensitiveTopic  Reason = "sensitive_topic"
	ReasonRepeatedFailure Reason = "repeated_failure"
)

// Priority of the handoff.
type Priority string

const (
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// Verdict is the per-turn escalation decision. It is computed fresh each
// turn and not persisted beyond setting the session's escalated flag.
type Verdict struct {
	Triggered bool     `json:"triggered"`
	Reason    Reason   `json:"reason"`
	Priority  Priority `json:"priority"`
	// Signal names the pattern or score that fired, for explainability.
	Signal string `json:"signal,omitempty"`
}

// Ticket references a pending human handoff.
type Ticket struct {
	ID            string    `json:"ticket_id"`
	UserID        string    `json:"user_id"`
	SessionID     string    `json:"session_id"`
	Reason        Reason    `json:"reason"`
	Priority      Priority  `json:"priority"`
	EstimatedWait string    `json:"estimated_wait"`
	Summary       string    `json:"summary"`
	CreatedAt     time.Time `json:"created_at"`
}
