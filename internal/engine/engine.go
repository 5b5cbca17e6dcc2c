// Package engine drives inbound customer emails through conversation
// matching, field extraction, record merging, status transitions, and
// automated follow-up.
package engine

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/quotedesk-io/quotedesk/internal/extractor"
	"github.com/quotedesk-io/quotedesk/internal/mailer"
	"github.com/quotedesk-io/quotedesk/internal/metrics"
	"github.com/quotedesk-io/quotedesk/internal/ticket"
	"github.com/quotedesk-io/quotedesk/pkg/protocol"
)

// inboundSeparator joins inbound bodies for re-extraction so the model
// sees message boundaries.
const inboundSeparator = "\n\n---\n\n"

// codeAttempts bounds ticket-code collision retries before the operation
// is reported as failed.
const codeAttempts = 5

// Notifier receives ticket lifecycle events. Implementations must not
// block; delivery failures are theirs to log.
type Notifier interface {
	TicketReady(t *protocol.Ticket)
}

// Engine is the single entry point for "a message arrived" and for manual
// dashboard edits. It is the only writer of ticket state.
type Engine struct {
	store       ticket.Store
	extractor   extractor.Extractor
	composer    extractor.Composer
	mailer      mailer.Mailer
	notifier    Notifier
	logger      *slog.Logger
	locks       *ticketLocks
	matchWindow time.Duration
}

// Option configures an Engine.
type Option func(*Engine)

// WithMatchWindow overrides the trailing window for the sender-recency
// matching rule. Default is 7 days.
func WithMatchWindow(d time.Duration) Option {
	return func(e *Engine) { e.matchWindow = d }
}

// WithNotifier attaches a lifecycle notifier.
func WithNotifier(n Notifier) Option {
	return func(e *Engine) { e.notifier = n }
}

// New creates an Engine. logger may be nil.
func New(store ticket.Store, ex extractor.Extractor, comp extractor.Composer, m mailer.Mailer, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:       store,
		extractor:   ex,
		composer:    comp,
		mailer:      m,
		logger:      logger,
		locks:       newTicketLocks(),
		matchWindow: 7 * 24 * time.Hour,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// InboundEmail carries one decoded inbound email.
type InboundEmail struct {
	From      string
	Subject   string
	Body      string
	MessageID string
	InReplyTo string
}

// Receipt reports the outcome of handling one inbound email.
type Receipt struct {
	TicketID  string                `json:"ticket_id"`
	Code      string                `json:"ticket_code"`
	Status    protocol.TicketStatus `json:"status"`
	NewTicket bool                  `json:"new_ticket"`
}

// HandleInboundMessage resolves an inbound email to a ticket (creating one
// when no rule matches) and applies the full reply or creation pipeline as
// one logical operation.
func (e *Engine) HandleInboundMessage(ctx context.Context, in InboundEmail) (*Receipt, error) {
	metrics.InboundEmails.Inc()

	id, err := e.resolveTicket(signals{
		inReplyTo: in.InReplyTo,
		subject:   in.Subject,
		sender:    in.From,
	})
	if err != nil {
		return nil, err
	}
	if id != "" {
		return e.handleReply(ctx, id, in)
	}
	return e.createFromEmail(ctx, in)
}

// handleReply appends the reply to the matched ticket's thread,
// re-extracts over the full inbound conversation, merges, transitions, and
// follows up if fields are still missing.
func (e *Engine) handleReply(ctx context.Context, id string, in InboundEmail) (*Receipt, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	t, err := e.store.Get(id)
	if err != nil {
		return nil, fmt.Errorf("engine: load ticket: %w", err)
	}

	if err := e.store.AppendMessage(protocol.EmailMessage{
		ID:         newID(),
		TicketID:   t.ID,
		Subject:    in.Subject,
		Body:       in.Body,
		Direction:  protocol.Inbound,
		MessageRef: in.MessageID,
		InReplyTo:  in.InReplyTo,
	}); err != nil {
		return nil, fmt.Errorf("engine: append reply: %w", err)
	}

	// Re-extract over every inbound message so the stateless extraction
	// call always sees full context.
	ext := e.extract(ctx, in.Subject, combinedInbound(t.Messages, in.Body))

	merged := protocol.Merge(t.Fields, ext.Fields)
	missing := merged.MissingRequired()

	t.CustomerName = protocol.PreferNonEmpty(t.CustomerName, ext.CustomerName)
	t.CustomerEmail = protocol.PreferNonEmpty(t.CustomerEmail, ext.CustomerEmail)
	t.Status = protocol.StatusForMissing(missing)
	t.UpdatedAt = time.Now().UTC()
	t.Fields = merged

	if err := e.store.SaveFields(t.ID, merged); err != nil {
		return nil, fmt.Errorf("engine: save fields: %w", err)
	}
	if err := e.store.Save(t); err != nil {
		return nil, fmt.Errorf("engine: save ticket: %w", err)
	}

	if len(missing) > 0 {
		if err := e.sendFollowup(ctx, t, missing); err != nil {
			return nil, err
		}
	} else if e.notifier != nil {
		e.notifier.TicketReady(t)
	}

	e.logger.Info("reply processed",
		"ticket", t.Code, "status", t.Status, "missing", len(missing))

	return &Receipt{TicketID: t.ID, Code: t.Code, Status: t.Status}, nil
}

// createFromEmail builds a new ticket from an unmatched inbound email.
func (e *Engine) createFromEmail(ctx context.Context, in InboundEmail) (*Receipt, error) {
	ext := e.extract(ctx, in.Subject, in.Body)

	missing := ext.Fields.MissingRequired()
	now := time.Now().UTC()
	t := &protocol.Ticket{
		ID:            newID(),
		CustomerName:  ext.CustomerName,
		CustomerEmail: protocol.PreferNonEmpty(in.From, ext.CustomerEmail),
		Status:        protocol.StatusForMissing(missing),
		CreatedAt:     now,
		UpdatedAt:     now,
		Fields:        ext.Fields,
	}

	// The code's uniqueness is enforced by the store; collide and retry.
	var saved bool
	for range codeAttempts {
		t.Code = ticket.GenerateCode()
		err := e.store.Save(t)
		if err == nil {
			saved = true
			break
		}
		if !errors.Is(err, ticket.ErrDuplicateCode) {
			return nil, fmt.Errorf("engine: create ticket: %w", err)
		}
	}
	if !saved {
		return nil, fmt.Errorf("engine: ticket code collisions exhausted %d attempts", codeAttempts)
	}

	unlock := e.locks.lock(t.ID)
	defer unlock()

	if err := e.store.SaveFields(t.ID, ext.Fields); err != nil {
		return nil, fmt.Errorf("engine: save fields: %w", err)
	}
	if err := e.store.AppendMessage(protocol.EmailMessage{
		ID:         newID(),
		TicketID:   t.ID,
		Subject:    in.Subject,
		Body:       in.Body,
		Direction:  protocol.Inbound,
		MessageRef: in.MessageID,
		InReplyTo:  in.InReplyTo,
	}); err != nil {
		return nil, fmt.Errorf("engine: append message: %w", err)
	}

	metrics.TicketsCreated.Inc()

	if len(missing) > 0 {
		if err := e.sendFollowup(ctx, t, missing); err != nil {
			return nil, err
		}
	} else if e.notifier != nil {
		e.notifier.TicketReady(t)
	}

	e.logger.Info("ticket created",
		"ticket", t.Code, "status", t.Status, "from", in.From, "missing", len(missing))

	return &Receipt{TicketID: t.ID, Code: t.Code, Status: t.Status, NewTicket: true}, nil
}

// extract calls the extraction collaborator, degrading to an empty result
// on failure: a ticket is always created or updated even when extraction
// is down.
func (e *Engine) extract(ctx context.Context, subject, body string) extractor.Extraction {
	ext, err := e.extractor.Extract(ctx, subject, body)
	if err != nil {
		metrics.ExtractionFailures.Inc()
		e.logger.Warn("extraction failed, continuing with empty fields", "error", err)
		return extractor.Extraction{}
	}
	return ext
}

// sendFollowup generates and sends one follow-up for the given missing
// fields, then appends the outbound message to the thread. Generation and
// transport failures degrade (template fallback, placeholder message id);
// only storage failures propagate.
func (e *Engine) sendFollowup(ctx context.Context, t *protocol.Ticket, missing []protocol.FieldKey) error {
	subject, body, err := e.composer.Followup(ctx, t.CustomerName, missing, t.Fields)
	if err != nil {
		e.logger.Warn("followup generation failed, using template", "ticket", t.Code, "error", err)
		subject, body = extractor.FallbackFollowup(t.CustomerName, missing)
	}

	ref, err := e.mailer.Send(ctx, t.CustomerEmail, subject, body)
	if err != nil {
		// The thread still records what was attempted.
		metrics.SendFailures.Inc()
		e.logger.Error("followup send failed", "ticket", t.Code, "to", t.CustomerEmail, "error", err)
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
		return fmt.Errorf("engine: append followup: %w", err)
	}

	metrics.FollowupsSent.Inc()
	return nil
}

// combinedInbound joins the bodies of all inbound messages in conversation
// order, ending with the newly arrived body.
func combinedInbound(msgs []protocol.EmailMessage, latest string) string {
	var bodies []string
	for _, m := range msgs {
		if m.Direction == protocol.Inbound {
			bodies = append(bodies, m.Body)
		}
	}
	bodies = append(bodies, latest)
	return strings.Join(bodies, inboundSeparator)
}

// newID creates a short random hex ID.
func newID() string {
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("%x", b)
}
