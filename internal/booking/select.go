package booking

import (
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// NewService picks a booking backend. Mode "http" requires a URL; mode
// "auto" uses HTTP when a URL is configured and the mock otherwise.
func NewService(mode, baseURL string, timeout time.Duration) Service {
	mode = strings.ToLower(strings.TrimSpace(mode))
	hasURL := strings.TrimSpace(baseURL) != ""

	switch mode {
	case "http":
		if !hasURL {
			log.Warn().Msg("booking mode is http but no URL configured, falling back to mock")
			return NewMockService()
		}
		return NewClient(baseURL, timeout)
	case "mock":
		return NewMockService()
	default:
		if hasURL {
			return NewClient(baseURL, timeout)
		}
		return NewMockService()
	}
}
