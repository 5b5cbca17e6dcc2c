package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ResendMailer sends email through the Resend API.
type ResendMailer struct {
	client  *http.Client
	baseURL string
	apiKey  string
	from    string
}

// ResendOption configures a ResendMailer.
type ResendOption func(*ResendMailer)

// WithResendBaseURL sets a custom API base URL.
func WithResendBaseURL(url string) ResendOption {
	return func(m *ResendMailer) { m.baseURL = url }
}

// NewResend creates a Resend API mailer sending from the given address.
func NewResend(apiKey, from string, opts ...ResendOption) *ResendMailer {
	m := &ResendMailer{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: "https://api.resend.com",
		apiKey:  apiKey,
		from:    from,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *ResendMailer) Send(ctx context.Context, to, subject, body string) (string, error) {
	payload, err := json.Marshal(resendRequest{
		From:    m.from,
		To:      []string{to},
		Subject: subject,
		Text:    body,
	})
	if err != nil {
		return "", fmt.Errorf("mailer: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("mailer: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("mailer: http request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("mailer: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("mailer: api error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var rr resendResponse
	if err := json.Unmarshal(respBody, &rr); err != nil {
		return "", fmt.Errorf("mailer: unmarshal response: %w", err)
	}
	if rr.ID == "" {
		return "", fmt.Errorf("mailer: response carried no message id")
	}
	return rr.ID, nil
}

// --- wire format ---

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

type resendResponse struct {
	ID string `json:"id"`
}
