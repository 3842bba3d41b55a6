package intent

// Intent is the classified purpose of a user message. The set is closed:
// routing logic switches exhaustively over these labels.
type Intent string

const (
	Greeting            Intent = "greeting"
	Goodbye             Intent = "goodbye"
	FAQQuery            Intent = "faq_query"
	ScheduleAppointment Intent = "schedule_appointment"
	CancelAppointment   Intent = "cancel_appointment"
	ModifyAppointment   Intent = "modify_appointment"
	MenuSelection       Intent = "menu_selection"
	Confirmation        Intent = "confirmation"
	EscalationRequest   Intent = "escalation_request"
	Unknown             Intent = "unknown"
)

// Result is the immutable classifier output for one turn.
type Result struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
	// Signal names the rule or pattern that matched, for explainability.
	Signal string `json:"signal,omitempty"`
}

// Context carries the slice of session state the classifier is allowed to
// consult. It only biases continuation intents while a guided flow is active;
// stateless classification stays deterministic for identical input.
type Context struct {
	FlowActive            bool
	AwaitingConfirmation  bool
	AwaitingMenuSelection bool
}
