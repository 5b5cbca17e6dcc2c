package protocol

import "time"

// TicketStatus represents the lifecycle state of a ticket.
type TicketStatus string

const (
	// TicketNew is the pre-extraction default; the automated path always
	// computes WAITING_ON_CUSTOMER or READY at creation, so NEW is only
	// seen on manually entered tickets.
	TicketNew               TicketStatus = "NEW"
	TicketWaitingOnCustomer TicketStatus = "WAITING_ON_CUSTOMER"
	TicketReady             TicketStatus = "READY"
)

// Valid reports whether s is a known status value. Manual updates arrive
// as free-form strings and must be checked before being written verbatim.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketNew, TicketWaitingOnCustomer, TicketReady:
		return true
	}
	return false
}

// StatusForMissing returns the status implied by the current
// missing-required-fields set. Automated transitions are driven purely by
// this function, never by the previous status.
func StatusForMissing(missing []FieldKey) TicketStatus {
	if len(missing) == 0 {
		return TicketReady
	}
	return TicketWaitingOnCustomer
}

// Direction of an email within a ticket's thread.
type Direction string

const (
	Inbound  Direction = "inbound"
	Outbound Direction = "outbound"
)

// EmailMessage is one email in a ticket's thread, inbound or outbound.
// Messages are append-only and totally ordered by timestamp.
type EmailMessage struct {
	ID         string    `json:"id"`
	TicketID   string    `json:"ticket_id"`
	Subject    string    `json:"subject,omitempty"`
	Body       string    `json:"body"`
	Direction  Direction `json:"direction"`
	MessageRef string    `json:"message_ref,omitempty"` // transport message id
	InReplyTo  string    `json:"in_reply_to,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Ticket is one customer quote request.
type Ticket struct {
	ID            string         `json:"id"`
	Code          string         `json:"code"` // human-facing, e.g. TKT-4F2A91BC
	CustomerName  string         `json:"customer_name,omitempty"`
	CustomerEmail string         `json:"customer_email,omitempty"`
	Status        TicketStatus   `json:"status"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
	Fields        FieldSet       `json:"fields"`
	Messages      []EmailMessage `json:"messages,omitempty"`
}
