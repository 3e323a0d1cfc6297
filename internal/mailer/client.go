package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/salarypath/backend/internal/config"
	"github.com/salarypath/backend/pkg/logger"
)

// Client sends mail through a Resend-compatible HTTP API. Construct it once
// at startup and share the instance; it holds no mutable state beyond the
// underlying http.Client connection pool.
type Client struct {
	cfg        config.EmailConfig
	HTTPClient *http.Client
}

func NewClient(cfg config.EmailConfig) *Client {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	return &Client{
		cfg: cfg,
		HTTPClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// DeliveryError reports a failed provider call. The status code stays inside
// the service layer; clients only ever see a generic delivery failure.
type DeliveryError struct {
	StatusCode int
	Transient  bool
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("email delivery failed (provider status %d)", e.StatusCode)
}

func transientStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

// Send posts the message to the provider, retrying transient failures with
// exponential backoff. The idempotency key keeps provider-side retries from
// duplicating delivery.
func (c *Client) Send(ctx context.Context, msg Message) error {
	payload, err := json.Marshal(sendRequest{
		From:    c.cfg.FromAddress,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return err
	}

	backoff := c.cfg.RetryBase
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(backoff)
			backoff *= 2
		}

		status, err := c.post(ctx, payload, msg.IdempotencyKey)
		if err != nil {
			// network-level failure, worth another attempt
			lastErr = err
			logger.Warn("email_send_attempt_failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}

		if status >= 200 && status < 300 {
			return nil
		}

		deliveryErr := &DeliveryError{StatusCode: status, Transient: transientStatus(status)}
		logger.Warn("email_send_attempt_rejected", map[string]interface{}{
			"attempt": attempt,
			"status":  status,
		})
		if !deliveryErr.Transient {
			return deliveryErr
		}
		lastErr = deliveryErr
	}

	return lastErr
}

func (c *Client) post(ctx context.Context, payload []byte, idempotencyKey string) (int, error) {
	url := strings.TrimRight(c.cfg.APIURL, "/") + "/emails"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	return resp.StatusCode, nil
}
