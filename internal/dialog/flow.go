package dialog

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cob-labs/carebot/internal/dateparse"
	"github.com/cob-labs/carebot/internal/textnorm"
)

// Business hours for appointment starts, minutes from midnight.
const (
	openMinutes  = 14 * 60
	closeMinutes = 22 * 60
)

const flowAppointment = "appointment"

// serviceTypes is the booking menu, in display order. Menu replies ("2") are
// resolved by position.
var serviceTypes = []string{
	"Consultation",
	"Product demo",
	"Technical support",
	"Installation",
	"Account review",
	"Training session",
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// slotDef is one step of a guided flow. Validate returns the canonical value
// to store, or an error whose message is safe to show the user.
type slotDef struct {
	Name     string
	Prompt   func() string
	Reprompt func(failures int) string
	Validate func(raw string, n textnorm.NormalizedText, now time.Time) (string, error)
}

// appointmentSlots is the appointment flow in collection order.
var appointmentSlots = []slotDef{
	{
		Name:     "service_type",
		Prompt:   promptServiceType,
		Reprompt: repromptServiceType,
		Validate: validateServiceType,
	},
	{
		Name:     "date",
		Prompt:   func() string { return msgAskDate },
		Reprompt: repromptDate,
		Validate: validateDate,
	},
	{
		Name:     "time",
		Prompt:   func() string { return msgAskTime },
		Reprompt: repromptTime,
		Validate: validateTime,
	},
	{
		Name:     "name",
		Prompt:   func() string { return msgAskName },
		Reprompt: repromptName,
		Validate: validateName,
	},
	{
		Name:     "email",
		Prompt:   func() string { return msgAskEmail },
		Reprompt: repromptEmail,
		Validate: validateEmail,
	},
}

func slotByName(name string) (slotDef, int, bool) {
	for i, s := range appointmentSlots {
		if s.Name == name {
			return s, i, true
		}
	}
	return slotDef{}, 0, false
}

func validateServiceType(raw string, n textnorm.NormalizedText, _ time.Time) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if idx, err := strconv.Atoi(trimmed); err == nil {
		if idx < 1 || idx > len(serviceTypes) {
			return "", fmt.Errorf("please pick a number between 1 and %d", len(serviceTypes))
		}
		return serviceTypes[idx-1], nil
	}

	lower := n.Lowered
	for _, svc := range serviceTypes {
		if strings.Contains(lower, strings.ToLower(svc)) {
			return svc, nil
		}
	}
	// Loose keyword match on the distinctive word of each service.
	for _, svc := range serviceTypes {
		words := strings.Fields(strings.ToLower(svc))
		if strings.Contains(lower, words[len(words)-1]) {
			return svc, nil
		}
	}
	return "", errors.New("I didn't recognize that service")
}

func validateDate(raw string, _ textnorm.NormalizedText, now time.Time) (string, error) {
	d, err := dateparse.ParseDate(raw, now)
	if err != nil {
		if errors.Is(err, dateparse.ErrPastDate) {
			return "", errors.New("that date has already passed")
		}
		return "", errors.New("I couldn't understand that date")
	}
	return d.Format("2006-01-02"), nil
}

func validateTime(raw string, _ textnorm.NormalizedText, _ time.Time) (string, error) {
	t, err := dateparse.ParseTime(raw)
	if err != nil {
		return "", errors.New("I couldn't understand that time")
	}
	if t.Minutes() < openMinutes || t.Minutes() >= closeMinutes {
		return "", fmt.Errorf("we take appointments between %s and %s", formatMinutes(openMinutes), formatMinutes(closeMinutes))
	}
	return t.Format(), nil
}

func validateName(raw string, _ textnorm.NormalizedText, _ time.Time) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if len([]rune(trimmed)) < 2 {
		return "", errors.New("that name looks too short")
	}
	// A lone date or time word is almost certainly a stale answer to an
	// earlier question.
	lower := strings.ToLower(trimmed)
	if _, err := dateparse.ParseTime(lower); err == nil {
		return "", errors.New("that looks like a time, not a name")
	}
	for _, w := range []string{"today", "tomorrow", "monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"} {
		if lower == w {
			return "", errors.New("that looks like a date, not a name")
		}
	}
	for _, r := range trimmed {
		if !isNameRune(r) {
			return "", errors.New("names can only contain letters, spaces, hyphens and apostrophes")
		}
	}
	return trimmed, nil
}

func isNameRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		return true
	case r == ' ' || r == '-' || r == '\'' || r == '.':
		return true
	case r >= 0x80: // accented letters
		return true
	}
	return false
}

func validateEmail(raw string, _ textnorm.NormalizedText, _ time.Time) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if !emailPattern.MatchString(trimmed) {
		return "", errors.New("that doesn't look like a valid email address")
	}
	return strings.ToLower(trimmed), nil
}

func formatMinutes(m int) string {
	t := dateparse.TimeOfDay{Hour: m / 60, Minute: m % 60}
	return t.Format()
}

// cancelPhrases abort an active flow regardless of the classified intent.
var cancelPhrases = []string{
	"cancel", "never mind", "nevermind", "forget it", "stop", "quit", "abort",
	"start over",
}

func wantsFlowCancel(n textnorm.NormalizedText) bool {
	lower := strings.TrimSpace(n.Lowered)
	for _, p := range cancelPhrases {
		if lower == p || strings.HasPrefix(lower, p+" ") {
			return true
		}
	}
	return false
}

// yesWords and noWords resolve the confirming state.
var yesWords = map[string]bool{
	"yes": true, "yeah": true, "yep": true, "yup": true, "sure": true,
	"correct": true, "right": true, "confirm": true, "ok": true, "okay": true,
	"y": true, "absolutely": true,
}

var noWords = map[string]bool{
	"no": true, "nope": true, "nah": true, "n": true, "cancel": true,
	"wrong": true, "incorrect": true,
}

func isAffirmative(n textnorm.NormalizedText) bool {
	for _, tok := range n.Tokens {
		if yesWords[tok] {
			return true
		}
		if noWords[tok] {
			return false
		}
	}
	return false
}

func isNegative(n textnorm.NormalizedText) bool {
	for _, tok := range n.Tokens {
		if noWords[tok] {
			return true
		}
		if yesWords[tok] {
			return false
		}
	}
	return false
}
