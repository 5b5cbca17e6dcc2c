package mailer

import (
	"context"
	"fmt"

	"github.com/quotedesk-io/quotedesk/internal/ticket"
)

// Outbox records messages instead of delivering them.
type Outbox interface {
	RecordSentEmail(m ticket.SentEmail) (int64, error)
}

// MockMailer stores emails in the development outbox instead of sending
// them, so the whole pipeline can be exercised without a transport.
type MockMailer struct {
	outbox Outbox
	from   string
}

// NewMock creates a development-mode mailer writing to the given outbox.
func NewMock(outbox Outbox, from string) *MockMailer {
	if from == "" {
		from = "sales@localhost.dev"
	}
	return &MockMailer{outbox: outbox, from: from}
}

func (m *MockMailer) Send(_ context.Context, to, subject, body string) (string, error) {
	id, err := m.outbox.RecordSentEmail(ticket.SentEmail{
		To:      to,
		From:    m.from,
		Subject: subject,
		Body:    body,
	})
	if err != nil {
		return "", fmt.Errorf("mailer: record mock email: %w", err)
	}
	return fmt.Sprintf("mock-%d", id), nil
}
