package mailer

import "context"

// Mailer delivers outbound emails. Send returns the transport-assigned
// message id, which later threads inbound replies back to their ticket.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) (messageID string, err error)
}
