package ticket

import (
	"errors"
	"time"

	"github.com/quotedesk-io/quotedesk/pkg/protocol"
)

var (
	// ErrNotFound is returned when a ticket id does not exist.
	ErrNotFound = errors.New("ticket not found")
	// ErrDuplicateCode is returned when a new ticket's code collides with
	// an existing one. Callers regenerate and retry.
	ErrDuplicateCode = errors.New("ticket code already exists")
)

// Store is the persistence interface for tickets, their field records, and
// their email threads.
type Store interface {
	// Save creates or updates a ticket row (not its fields or messages).
	// Inserting a ticket whose code already exists returns ErrDuplicateCode.
	Save(t *protocol.Ticket) error
	// Get retrieves a ticket by id with its fields and ordered thread.
	Get(id string) (*protocol.Ticket, error)
	// List returns tickets matching the filter, newest first, with fields
	// but without message threads.
	List(filter Filter) ([]*protocol.Ticket, error)
	// SaveFields writes the cumulative field record for a ticket.
	SaveFields(ticketID string, f protocol.FieldSet) error
	// AppendMessage adds one email to a ticket's thread.
	AppendMessage(msg protocol.EmailMessage) error

	// Matcher read paths.
	FindTicketByMessageRef(ref string) (string, error)
	FindTicketByCode(code string) (string, error)
	FindRecentTicketByEmail(email string, within time.Duration) (string, error)

	// ListStale returns tickets in the given status whose last mutation is
	// older than before, oldest first. Used by the reminder sweep.
	ListStale(status protocol.TicketStatus, before time.Time) ([]*protocol.Ticket, error)

	// Development-mode outbox.
	RecordSentEmail(m SentEmail) (int64, error)
	ListSentEmails(limit int) ([]SentEmail, error)
	ClearSentEmails() error
}

// Filter constrains ticket list queries.
type Filter struct {
	Status *protocol.TicketStatus
	Email  string // exact match on customer email
	Limit  int    // 0 = no limit
}

// SentEmail is one entry in the development-mode outbox, recorded instead
// of delivering through the transport.
type SentEmail struct {
	ID        int64     `json:"id"`
	To        string    `json:"to"`
	From      string    `json:"from"`
	Subject   string    `json:"subject,omitempty"`
	Body      string    `json:"body"`
	Timestamp time.Time `json:"timestamp"`
}
