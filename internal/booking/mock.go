package booking

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MockService confirms every booking in-process. It is the default when no
// booking service URL is configured.
type MockService struct {
	mu     sync.Mutex
	booked []Request

	// FailNext forces the next Book call to return ErrUnavailable.
	FailNext bool
}

func NewMockService() *MockService {
	return &MockService{}
}

func (m *MockService) Book(_ context.Context, req Request) (Confirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailNext {
		m.FailNext = false
		return Confirmation{}, ErrUnavailable
	}

	m.booked = append(m.booked, req)
	id := "APT-" + strings.ToUpper(uuid.NewString()[:8])
	return Confirmation{AppointmentID: id}, nil
}

// Booked returns a copy of the accepted requests, for tests.
func (m *MockService) Booked() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.booked))
	copy(out, m.booked)
	return out
}
