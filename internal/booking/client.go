package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/cob-labs/carebot/internal/reliability"
)

// Client is an HTTP booking service client with retries on transient
// failures.
type Client struct {
	baseURL    string
	httpClient *http.Client
	attempts   int
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		attempts:   3,
	}
}

func (c *Client) Book(ctx context.Context, req Request) (Confirmation, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return Confirmation{}, fmt.Errorf("marshal booking request: %w", err)
	}

	var conf Confirmation
	err = reliability.Retry(ctx, c.attempts, 200*time.Millisecond, 2*time.Second, func(ctx context.Context) (bool, error) {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/appointments", bytes.NewReader(payload))
		if err != nil {
			return false, err
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return true, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			err := fmt.Errorf("booking service returned %d: %s", resp.StatusCode, string(body))
			return reliability.IsRetryableHTTPStatus(resp.StatusCode), err
		}

		if err := json.NewDecoder(resp.Body).Decode(&conf); err != nil {
			return false, fmt.Errorf("decode booking response: %w", err)
		}
		return false, nil
	})
	if err != nil {
		log.Warn().Err(err).Str("service_type", req.ServiceType).Msg("booking call failed")
		return Confirmation{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if conf.AppointmentID == "" {
		return Confirmation{}, fmt.Errorf("%w: empty appointment id", ErrUnavailable)
	}
	return conf, nil
}
