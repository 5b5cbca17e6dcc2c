package ticket

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/quotedesk-io/quotedesk/pkg/protocol"
)

// timeFormat is RFC 3339 with a fixed-width nanosecond fraction so that
// stored timestamps compare correctly as strings. Sub-second precision is
// needed to keep the arrival order of near-simultaneous replies.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database and runs migrations.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("ticket store: open: %w", err)
	}

	// Enable WAL mode for better concurrent reads
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("ticket store: wal: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS tickets (
			id             TEXT PRIMARY KEY,
			code           TEXT NOT NULL UNIQUE,
			customer_name  TEXT NOT NULL DEFAULT '',
			customer_email TEXT NOT NULL DEFAULT '',
			status         TEXT NOT NULL DEFAULT 'NEW',
			created_at     TEXT NOT NULL,
			updated_at     TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS quote_fields (
			ticket_id         TEXT PRIMARY KEY REFERENCES tickets(id),
			laptop_model      TEXT NOT NULL DEFAULT '',
			ram               TEXT NOT NULL DEFAULT '',
			storage           TEXT NOT NULL DEFAULT '',
			screen_size       TEXT NOT NULL DEFAULT '',
			warranty          TEXT NOT NULL DEFAULT '',
			quantity          TEXT NOT NULL DEFAULT '',
			delivery_location TEXT NOT NULL DEFAULT '',
			delivery_timeline TEXT NOT NULL DEFAULT '',
			budget            TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS email_messages (
			id          TEXT PRIMARY KEY,
			ticket_id   TEXT NOT NULL REFERENCES tickets(id),
			subject     TEXT NOT NULL DEFAULT '',
			body        TEXT NOT NULL,
			direction   TEXT NOT NULL,
			message_ref TEXT NOT NULL DEFAULT '',
			in_reply_to TEXT NOT NULL DEFAULT '',
			timestamp   TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS sent_emails (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			to_email   TEXT NOT NULL,
			from_email TEXT NOT NULL,
			subject    TEXT NOT NULL DEFAULT '',
			body       TEXT NOT NULL,
			timestamp  TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_tickets_status ON tickets(status);
		CREATE INDEX IF NOT EXISTS idx_tickets_email ON tickets(customer_email, created_at);
		CREATE INDEX IF NOT EXISTS idx_messages_ticket ON email_messages(ticket_id);
		CREATE INDEX IF NOT EXISTS idx_messages_ref ON email_messages(message_ref);
	`)
	if err != nil {
		return fmt.Errorf("ticket store: migrate: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Save(t *protocol.Ticket) error {
	updated := t.UpdatedAt
	if updated.IsZero() {
		updated = time.Now().UTC()
	}

	_, err := s.db.Exec(`
		INSERT INTO tickets (id, code, customer_name, customer_email, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			customer_name=excluded.customer_name, customer_email=excluded.customer_email,
			status=excluded.status, updated_at=excluded.updated_at
	`, t.ID, t.Code, t.CustomerName, t.CustomerEmail, string(t.Status),
		t.CreatedAt.UTC().Format(timeFormat), updated.UTC().Format(timeFormat))
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed: tickets.code") {
			return ErrDuplicateCode
		}
		return fmt.Errorf("ticket store: save: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(id string) (*protocol.Ticket, error) {
	row := s.db.QueryRow(`SELECT id, code, customer_name, customer_email, status, created_at, updated_at FROM tickets WHERE id = ?`, id)

	t, err := scanTicket(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ticket store: get: %w", err)
	}

	if err := s.loadFields(t); err != nil {
		return nil, err
	}
	msgs, err := s.loadMessages(id)
	if err != nil {
		return nil, err
	}
	t.Messages = msgs
	return t, nil
}

func (s *SQLiteStore) List(filter Filter) ([]*protocol.Ticket, error) {
	query := "SELECT id, code, customer_name, customer_email, status, created_at, updated_at FROM tickets WHERE 1=1"
	var args []any

	if filter.Status != nil {
		query += " AND status = ?"
		args = append(args, string(*filter.Status))
	}
	if filter.Email != "" {
		query += " AND customer_email = ?"
		args = append(args, filter.Email)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("ticket store: list: %w", err)
	}
	defer rows.Close()

	var tickets []*protocol.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("ticket store: list scan: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, t := range tickets {
		if err := s.loadFields(t); err != nil {
			return nil, err
		}
	}
	return tickets, nil
}

func (s *SQLiteStore) SaveFields(ticketID string, f protocol.FieldSet) error {
	_, err := s.db.Exec(`
		INSERT INTO quote_fields (ticket_id, laptop_model, ram, storage, screen_size, warranty, quantity, delivery_location, delivery_timeline, budget)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(ticket_id) DO UPDATE SET
			laptop_model=excluded.laptop_model, ram=excluded.ram, storage=excluded.storage,
			screen_size=excluded.screen_size, warranty=excluded.warranty, quantity=excluded.quantity,
			delivery_location=excluded.delivery_location, delivery_timeline=excluded.delivery_timeline,
			budget=excluded.budget
	`, ticketID, f.LaptopModel, f.RAM, f.Storage, f.ScreenSize, f.Warranty,
		f.Quantity, f.DeliveryLocation, f.DeliveryTimeline, f.Budget)
	if err != nil {
		return fmt.Errorf("ticket store: save fields: %w", err)
	}
	return s.touch(ticketID)
}

func (s *SQLiteStore) AppendMessage(msg protocol.EmailMessage) error {
	ts := msg.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO email_messages (id, ticket_id, subject, body, direction, message_ref, in_reply_to, timestamp)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.TicketID, msg.Subject, msg.Body, string(msg.Direction),
		msg.MessageRef, msg.InReplyTo, ts.UTC().Format(timeFormat))
	if err != nil {
		return fmt.Errorf("ticket store: append message: %w", err)
	}
	return s.touch(msg.TicketID)
}

// FindTicketByMessageRef returns the owning ticket of the most recent
// message whose transport message id equals ref, or "" when no message
// carries that ref.
func (s *SQLiteStore) FindTicketByMessageRef(ref string) (string, error) {
	var id string
	err := s.db.QueryRow(`
		SELECT ticket_id FROM email_messages
		WHERE message_ref = ? AND message_ref != ''
		ORDER BY timestamp DESC LIMIT 1
	`, ref).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ticket store: find by message ref: %w", err)
	}
	return id, nil
}

// FindTicketByCode returns the ticket with the given human-facing code, or
// "" when none exists.
func (s *SQLiteStore) FindTicketByCode(code string) (string, error) {
	var id string
	err := s.db.QueryRow(`SELECT id FROM tickets WHERE code = ? LIMIT 1`, code).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ticket store: find by code: %w", err)
	}
	return id, nil
}

// FindRecentTicketByEmail returns the most recently created ticket for a
// sender within the trailing window, or "" when none qualifies.
func (s *SQLiteStore) FindRecentTicketByEmail(email string, within time.Duration) (string, error) {
	cutoff := time.Now().UTC().Add(-within).Format(timeFormat)
	var id string
	err := s.db.QueryRow(`
		SELECT id FROM tickets
		WHERE customer_email = ? AND created_at > ?
		ORDER BY created_at DESC LIMIT 1
	`, email, cutoff).Scan(&id)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("ticket store: find recent by email: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) ListStale(status protocol.TicketStatus, before time.Time) ([]*protocol.Ticket, error) {
	rows, err := s.db.Query(`
		SELECT id, code, customer_name, customer_email, status, created_at, updated_at
		FROM tickets WHERE status = ? AND updated_at < ?
		ORDER BY updated_at ASC
	`, string(status), before.UTC().Format(timeFormat))
	if err != nil {
		return nil, fmt.Errorf("ticket store: list stale: %w", err)
	}
	defer rows.Close()

	var tickets []*protocol.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("ticket store: stale scan: %w", err)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for _, t := range tickets {
		if err := s.loadFields(t); err != nil {
			return nil, err
		}
	}
	return tickets, nil
}

func (s *SQLiteStore) RecordSentEmail(m SentEmail) (int64, error) {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	res, err := s.db.Exec(`
		INSERT INTO sent_emails (to_email, from_email, subject, body, timestamp)
		VALUES (?, ?, ?, ?, ?)
	`, m.To, m.From, m.Subject, m.Body, ts.UTC().Format(timeFormat))
	if err != nil {
		return 0, fmt.Errorf("ticket store: record sent email: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("ticket store: record sent email: %w", err)
	}
	return id, nil
}

func (s *SQLiteStore) ListSentEmails(limit int) ([]SentEmail, error) {
	query := `SELECT id, to_email, from_email, subject, body, timestamp FROM sent_emails ORDER BY timestamp DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := s.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("ticket store: list sent emails: %w", err)
	}
	defer rows.Close()

	var emails []SentEmail
	for rows.Next() {
		var m SentEmail
		var ts string
		if err := rows.Scan(&m.ID, &m.To, &m.From, &m.Subject, &m.Body, &ts); err != nil {
			return nil, fmt.Errorf("ticket store: sent email scan: %w", err)
		}
		m.Timestamp, _ = time.Parse(timeFormat, ts)
		emails = append(emails, m)
	}
	return emails, rows.Err()
}

func (s *SQLiteStore) ClearSentEmails() error {
	if _, err := s.db.Exec(`DELETE FROM sent_emails`); err != nil {
		return fmt.Errorf("ticket store: clear sent emails: %w", err)
	}
	return nil
}

// DB returns the underlying database connection (for testing or direct access).
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// --- helpers ---

// touch refreshes a ticket's last-update timestamp; every mutation of a
// ticket's fields or thread counts as a ticket mutation.
func (s *SQLiteStore) touch(ticketID string) error {
	_, err := s.db.Exec(`UPDATE tickets SET updated_at = ? WHERE id = ?`,
		time.Now().UTC().Format(timeFormat), ticketID)
	if err != nil {
		return fmt.Errorf("ticket store: touch: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadFields(t *protocol.Ticket) error {
	err := s.db.QueryRow(`
		SELECT laptop_model, ram, storage, screen_size, warranty, quantity, delivery_location, delivery_timeline, budget
		FROM quote_fields WHERE ticket_id = ?
	`, t.ID).Scan(&t.Fields.LaptopModel, &t.Fields.RAM, &t.Fields.Storage,
		&t.Fields.ScreenSize, &t.Fields.Warranty, &t.Fields.Quantity,
		&t.Fields.DeliveryLocation, &t.Fields.DeliveryTimeline, &t.Fields.Budget)
	if err == sql.ErrNoRows {
		return nil // ticket created before its fields were written
	}
	if err != nil {
		return fmt.Errorf("ticket store: load fields: %w", err)
	}
	return nil
}

func (s *SQLiteStore) loadMessages(ticketID string) ([]protocol.EmailMessage, error) {
	rows, err := s.db.Query(`
		SELECT id, subject, body, direction, message_ref, in_reply_to, timestamp
		FROM email_messages WHERE ticket_id = ? ORDER BY timestamp
	`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("ticket store: load messages: %w", err)
	}
	defer rows.Close()

	var msgs []protocol.EmailMessage
	for rows.Next() {
		var m protocol.EmailMessage
		var direction, ts string
		if err := rows.Scan(&m.ID, &m.Subject, &m.Body, &direction, &m.MessageRef, &m.InReplyTo, &ts); err != nil {
			return nil, fmt.Errorf("ticket store: scan message: %w", err)
		}
		m.Direction = protocol.Direction(direction)
		m.Timestamp, _ = time.Parse(timeFormat, ts)
		m.TicketID = ticketID
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanTicket(row scannable) (*protocol.Ticket, error) {
	var t protocol.Ticket
	var status, createdAt, updatedAt string

	err := row.Scan(&t.ID, &t.Code, &t.CustomerName, &t.CustomerEmail, &status, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}

	t.Status = protocol.TicketStatus(status)
	t.CreatedAt, _ = time.Parse(timeFormat, createdAt)
	t.UpdatedAt, _ = time.Parse(timeFormat, updatedAt)
	return &t, nil
}
