package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/quotedesk-io/quotedesk/internal/ticket"
	"github.com/quotedesk-io/quotedesk/pkg/protocol"
)

// ErrInvalidPatch reports a manual edit that names an unknown status.
var ErrInvalidPatch = errors.New("engine: invalid patch")

// Patch is a manual edit from the dashboard. Nil pointers leave the
// corresponding attribute unchanged. Status and fields are written
// verbatim: manual edits bypass the missing-fields computation and the
// monotonic merge.
type Patch struct {
	CustomerName  *string
	CustomerEmail *string
	Status        *protocol.TicketStatus
	Fields        *protocol.FieldSet
}

// UpdateTicket applies a manual patch. Returns ticket.ErrNotFound for
// unknown ids with no state mutated.
func (e *Engine) UpdateTicket(ctx context.Context, id string, p Patch) (*protocol.Ticket, error) {
	if p.Status != nil && !p.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidPatch, *p.Status)
	}

	unlock := e.locks.lock(id)
	defer unlock()

	t, err := e.store.Get(id)
	if err != nil {
		return nil, err
	}

	if p.CustomerName != nil {
		t.CustomerName = *p.CustomerName
	}
	if p.CustomerEmail != nil {
		t.CustomerEmail = *p.CustomerEmail
	}
	if p.Status != nil {
		t.Status = *p.Status
	}
	t.UpdatedAt = time.Now().UTC()

	if err := e.store.Save(t); err != nil {
		return nil, fmt.Errorf("engine: save ticket: %w", err)
	}
	if p.Fields != nil {
		if err := e.store.SaveFields(id, *p.Fields); err != nil {
			return nil, fmt.Errorf("engine: save fields: %w", err)
		}
	}

	e.logger.Info("ticket manually updated", "ticket", t.Code)
	return e.store.Get(id)
}

// SendManualFollowup sends a dashboard-composed email for a ticket and
// appends it to the thread. The thread records the attempt even when the
// transport fails; the send error is still reported to the caller.
func (e *Engine) SendManualFollowup(ctx context.Context, id, subject, body string) (string, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	t, err := e.store.Get(id)
	if err != nil {
		return "", err
	}

	ref, sendErr := e.mailer.Send(ctx, t.CustomerEmail, subject, body)
	if sendErr != nil {
		e.logger.Error("manual send failed", "ticket", t.Code, "error", sendErr)
		ref = "unsent-" + newID()
	}

	if err := e.store.AppendMessage(protocol.EmailMessage{
		ID:         newID(),
		TicketID:   t.ID,
		Subject:    subject,
		Body:       body,
		Direction:  protocol.Outbound,
		MessageRef: ref,
	}); err != nil {
		return "", fmt.Errorf("engine: append manual followup: %w", err)
	}

	if sendErr != nil {
		return ref, fmt.Errorf("engine: manual send: %w", sendErr)
	}
	return ref, nil
}

// GetTicket returns one ticket with fields and thread.
func (e *Engine) GetTicket(id string) (*protocol.Ticket, error) {
	return e.store.Get(id)
}

// ListTickets returns tickets matching the filter.
func (e *Engine) ListTickets(f ticket.Filter) ([]*protocol.Ticket, error) {
	return e.store.List(f)
}

// SentEmails returns the development-mode outbox, newest first.
func (e *Engine) SentEmails(limit int) ([]ticket.SentEmail, error) {
	return e.store.ListSentEmails(limit)
}

// ClearSentEmails empties the development-mode outbox.
func (e *Engine) ClearSentEmails() error {
	return e.store.ClearSentEmails()
}
