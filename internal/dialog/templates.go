package dialog

import (
	"fmt"
	"strings"

	"github.com/cob-labs/carebot/internal/booking"
	"github.com/cob-labs/carebot/internal/escalation"
	"github.com/cob-labs/carebot/internal/session"
)

const (
	msgGreeting = "Hi! I'm the COB support assistant. I can answer questions about our products " +
		"and services, or help you schedule an appointment. What can I do for you?"
	msgGoodbye = "Thanks for chatting with us. Have a great day!"
	msgEmpty   = "I didn't catch that. Could you type your question again?"
	msgClarify = "I'm not sure I understood that. You can ask me about our products, pricing or " +
		"business hours, or say \"schedule an appointment\" to book a time with us."
	msgFlowCancelled = "No problem, I've cancelled that request. Is there anything else I can help with?"
	msgAskDate       = "What date works for you? You can say things like \"tomorrow\", \"next Tuesday\" or \"December 15\"."
	msgAskTime       = "What time would you like? We're open from 2:00 PM to 10:00 PM."
	msgAskName       = "Can I get your name for the booking?"
	msgAskEmail      = "And your email address, so we can send the confirmation?"
	msgModify        = "I can't change existing appointments myself yet. Reply \"talk to an agent\" and " +
		"someone from the team will sort it out, or book a new time and mention the change in the notes."
	msgBookingFailed = "I'm sorry, I couldn't reach our booking system just now. Your details are saved. " +
		"Say \"yes\" to try again, or \"no\" to cancel."
)

var greetingSuggestions = []string{
	"What are your business hours?",
	"Tell me about pricing",
	"Schedule an appointment",
}

var fallbackSuggestions = []string{
	"Schedule an appointment",
	"Talk to an agent",
}

func promptServiceType() string {
	var b strings.Builder
	b.WriteString("Happy to set that up! Which service do you need?\n")
	for i, svc := range serviceTypes {
		fmt.Fprintf(&b, "%d. %s\n", i+1, svc)
	}
	b.WriteString("Reply with a number or the service name.")
	return b.String()
}

func repromptServiceType(failures int) string {
	if failures >= 2 {
		return "Sorry, I still didn't get that. Please reply with just a number from 1 to " +
			fmt.Sprintf("%d", len(serviceTypes)) + "."
	}
	return "Sorry, I didn't recognize that service. Please pick a number from the list or type the service name."
}

func repromptDate(failures int) string {
	if failures >= 2 {
		return "Let's try a specific format: you can type a date like \"2026-09-15\" or \"September 15\"."
	}
	return "I couldn't work out that date. Try something like \"tomorrow\", \"next Friday\" or \"December 15\"."
}

func repromptTime(failures int) string {
	if failures >= 2 {
		return "Please give me a time between 2:00 PM and 10:00 PM, for example \"3:30 PM\" or \"15:00\"."
	}
	return "I couldn't work out that time. We're open 2:00 PM to 10:00 PM; try something like \"4 PM\"."
}

func repromptName(failures int) string {
	if failures >= 2 {
		return "Just your first and last name is fine, for example \"Alex Chen\"."
	}
	return "Sorry, I didn't catch your name. What should I put on the booking?"
}

func repromptEmail(failures int) string {
	if failures >= 2 {
		return "Please type a full email address, like \"name@example.com\"."
	}
	return "That email doesn't look right. Could you re-type it?"
}

func reprompt(slot slotDef, reason string, failures int) string {
	base := slot.Reprompt(failures)
	// Reasons phrased in first person ("I couldn't...") would double up with
	// the reprompt text.
	if reason != "" && failures < 2 && !strings.HasPrefix(reason, "I ") {
		return upperFirst(reason) + ". " + base
	}
	return base
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func confirmSummary(sess *session.Session) string {
	return fmt.Sprintf(
		"Here's what I have:\n- Service: %s\n- Date: %s\n- Time: %s\n- Name: %s\n- Email: %s\nShall I book it? (yes/no)",
		sess.Slots["service_type"],
		sess.Slots["date"],
		sess.Slots["time"],
		sess.Slots["name"],
		sess.Slots["email"],
	)
}

func bookingConfirmed(conf booking.Confirmation, sess *session.Session) string {
	msg := fmt.Sprintf(
		"You're all set! Your %s is booked for %s at %s. Your confirmation number is %s and a confirmation email is on its way to %s.",
		strings.ToLower(sess.Slots["service_type"]),
		sess.Slots["date"],
		sess.Slots["time"],
		conf.AppointmentID,
		sess.Slots["email"],
	)
	if conf.Message != "" {
		msg += " " + conf.Message
	}
	return msg
}

func escalationResponse(ticket escalation.Ticket) string {
	switch ticket.Reason {
	case escalation.ReasonSensitiveTopic:
		return fmt.Sprintf(
			"This sounds like something our team should handle directly. I've flagged it as priority; "+
				"an agent will be with you in about %s. Your reference number is %s.",
			ticket.EstimatedWait, ticket.ID)
	case escalation.ReasonFrustration, escalation.ReasonRepeatedFailure:
		return fmt.Sprintf(
			"I'm sorry this hasn't been going smoothly. Let me connect you with a human agent; "+
				"the estimated wait is %s. Your reference number is %s.",
			ticket.EstimatedWait, ticket.ID)
	default:
		return fmt.Sprintf(
			"Of course. I'm connecting you with a human agent now; the estimated wait is %s. "+
				"Your reference number is %s.",
			ticket.EstimatedWait, ticket.ID)
	}
}
