// Package booking talks to the appointment booking collaborator. The dialog
// manager hands it a fully collected slot set and expects either a confirmed
// appointment or an error it can apologize for without losing the user's
// answers.
package booking

import (
	"context"
	"errors"
)

// Request carries the collected appointment slots.
type Request struct {
	UserID      string `json:"user_id"`
	SessionID   string `json:"session_id"`
	ServiceType string `json:"service_type"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Notes       string `json:"notes,omitempty"`
}

// Confirmation is the collaborator's answer for a successful booking.
type Confirmation struct {
	AppointmentID string `json:"appointment_id"`
	Message       string `json:"message,omitempty"`
}

// ErrUnavailable means the collaborator rejected or could not take the
// booking. Callers keep the collected slots and let the user retry.
var ErrUnavailable = errors.New("booking service unavailable")

// Service books appointments.
type Service interface {
	Book(ctx context.Context, req Request) (Confirmation, error)
}
