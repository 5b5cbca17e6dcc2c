package ticket

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/quotedesk-io/quotedesk/pkg/protocol"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.DB().Close() })
	return s
}

func saveTicket(t *testing.T, s *SQLiteStore, id, code, email string, createdAt time.Time) *protocol.Ticket {
	t.Helper()
	tk := &protocol.Ticket{
		ID:            id,
		Code:          code,
		CustomerEmail: email,
		Status:        protocol.TicketWaitingOnCustomer,
		CreatedAt:     createdAt,
		UpdatedAt:     createdAt,
	}
	if err := s.Save(tk); err != nil {
		t.Fatalf("save %s: %v", id, err)
	}
	return tk
}

func TestSaveAndGet(t *testing.T) {
	s := newTestStore(t)

	tk := &protocol.Ticket{
		ID:            "t-001",
		Code:          "TKT-AB12CD34",
		CustomerName:  "Dana Reyes",
		CustomerEmail: "dana@corp.example",
		Status:        protocol.TicketWaitingOnCustomer,
		CreatedAt:     time.Now(),
	}
	if err := s.Save(tk); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := s.SaveFields("t-001", protocol.FieldSet{LaptopModel: "XPS 13", Quantity: "10"}); err != nil {
		t.Fatalf("save fields: %v", err)
	}

	got, err := s.Get("t-001")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Code != "TKT-AB12CD34" {
		t.Errorf("code = %q", got.Code)
	}
	if got.Status != protocol.TicketWaitingOnCustomer {
		t.Errorf("status = %q", got.Status)
	}
	if got.Fields.LaptopModel != "XPS 13" || got.Fields.Quantity != "10" {
		t.Errorf("fields = %+v", got.Fields)
	}
}

func TestSave_Upsert(t *testing.T) {
	s := newTestStore(t)
	tk := saveTicket(t, s, "t-002", "TKT-00000002", "a@x.com", time.Now())

	tk.Status = protocol.TicketReady
	tk.CustomerName = "Alex"
	if err := s.Save(tk); err != nil {
		t.Fatalf("resave: %v", err)
	}

	got, _ := s.Get("t-002")
	if got.Status != protocol.TicketReady || got.CustomerName != "Alex" {
		t.Errorf("got status=%q name=%q", got.Status, got.CustomerName)
	}
}

func TestSave_DuplicateCode(t *testing.T) {
	s := newTestStore(t)
	saveTicket(t, s, "t-003", "TKT-SAME", "a@x.com", time.Now())

	err := s.Save(&protocol.Ticket{
		ID: "t-004", Code: "TKT-SAME", Status: protocol.TicketNew, CreatedAt: time.Now(),
	})
	if !errors.Is(err, ErrDuplicateCode) {
		t.Fatalf("expected ErrDuplicateCode, got %v", err)
	}
}

func TestGet_NotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get("nonexistent")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAppendMessage_OrderedThread(t *testing.T) {
	s := newTestStore(t)
	saveTicket(t, s, "t-005", "TKT-00000005", "a@x.com", time.Now())

	base := time.Now()
	for i, body := range []string{"first", "second", "third"} {
		err := s.AppendMessage(protocol.EmailMessage{
			ID:        fmt.Sprintf("m-%d", i),
			TicketID:  "t-005",
			Body:      body,
			Direction: protocol.Inbound,
			Timestamp: base.Add(time.Duration(i) * time.Millisecond),
		})
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}

	got, _ := s.Get("t-005")
	if len(got.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got.Messages))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got.Messages[i].Body != want {
			t.Errorf("message %d = %q, want %q", i, got.Messages[i].Body, want)
		}
	}
}

func TestAppendMessage_TouchesTicket(t *testing.T) {
	s := newTestStore(t)
	old := time.Now().Add(-time.Hour)
	saveTicket(t, s, "t-006", "TKT-00000006", "a@x.com", old)

	s.AppendMessage(protocol.EmailMessage{
		ID: "m-1", TicketID: "t-006", Body: "hi", Direction: protocol.Inbound,
	})

	got, _ := s.Get("t-006")
	if !got.UpdatedAt.After(old.Add(30 * time.Minute)) {
		t.Errorf("updated_at not refreshed: %v", got.UpdatedAt)
	}
}

func TestFindTicketByMessageRef(t *testing.T) {
	s := newTestStore(t)
	saveTicket(t, s, "t-007", "TKT-00000007", "a@x.com", time.Now())
	s.AppendMessage(protocol.EmailMessage{
		ID: "m-1", TicketID: "t-007", Body: "hello", Direction: protocol.Outbound,
		MessageRef: "<msg-123@mail>",
	})

	id, err := s.FindTicketByMessageRef("<msg-123@mail>")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if id != "t-007" {
		t.Errorf("id = %q", id)
	}

	id, err = s.FindTicketByMessageRef("<unknown@mail>")
	if err != nil || id != "" {
		t.Errorf("expected no match, got id=%q err=%v", id, err)
	}
}

func TestFindTicketByCode(t *testing.T) {
	s := newTestStore(t)
	saveTicket(t, s, "t-008", "TKT-DEADBEEF", "a@x.com", time.Now())

	id, err := s.FindTicketByCode("TKT-DEADBEEF")
	if err != nil || id != "t-008" {
		t.Errorf("id = %q, err = %v", id, err)
	}
	id, _ = s.FindTicketByCode("TKT-00000000")
	if id != "" {
		t.Errorf("expected no match, got %q", id)
	}
}

func TestFindRecentTicketByEmail_Window(t *testing.T) {
	s := newTestStore(t)
	week := 7 * 24 * time.Hour

	// 8 days old: outside the window.
	saveTicket(t, s, "t-old", "TKT-0000000A", "a@x.com", time.Now().Add(-8*24*time.Hour))

	id, err := s.FindRecentTicketByEmail("a@x.com", week)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if id != "" {
		t.Errorf("8-day-old ticket matched: %q", id)
	}

	// 1 day old: inside the window and newer than the old one.
	saveTicket(t, s, "t-new", "TKT-0000000B", "a@x.com", time.Now().Add(-24*time.Hour))

	id, _ = s.FindRecentTicketByEmail("a@x.com", week)
	if id != "t-new" {
		t.Errorf("id = %q, want t-new", id)
	}

	id, _ = s.FindRecentTicketByEmail("other@x.com", week)
	if id != "" {
		t.Errorf("other sender matched: %q", id)
	}
}

func TestList_FilterByStatus(t *testing.T) {
	s := newTestStore(t)
	saveTicket(t, s, "t-w", "TKT-000000AA", "a@x.com", time.Now())
	ready := saveTicket(t, s, "t-r", "TKT-000000AB", "b@x.com", time.Now())
	ready.Status = protocol.TicketReady
	s.Save(ready)

	st := protocol.TicketReady
	tickets, err := s.List(Filter{Status: &st})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tickets) != 1 || tickets[0].ID != "t-r" {
		t.Errorf("tickets = %v", tickets)
	}
}

func TestList_Limit(t *testing.T) {
	s := newTestStore(t)
	for i := range 5 {
		saveTicket(t, s, fmt.Sprintf("t-%d", i), fmt.Sprintf("TKT-%08X", i), "a@x.com",
			time.Now().Add(time.Duration(-i)*time.Minute))
	}
	tickets, _ := s.List(Filter{Limit: 2})
	if len(tickets) != 2 {
		t.Errorf("expected 2 tickets, got %d", len(tickets))
	}
	// Newest first.
	if tickets[0].ID != "t-0" {
		t.Errorf("first = %q", tickets[0].ID)
	}
}

func TestListStale(t *testing.T) {
	s := newTestStore(t)
	saveTicket(t, s, "t-stale", "TKT-000000B1", "a@x.com", time.Now().Add(-48*time.Hour))
	saveTicket(t, s, "t-fresh", "TKT-000000B2", "b@x.com", time.Now())

	stale, err := s.ListStale(protocol.TicketWaitingOnCustomer, time.Now().Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("list stale: %v", err)
	}
	if len(stale) != 1 || stale[0].ID != "t-stale" {
		t.Errorf("stale = %+v", stale)
	}
}

func TestSentEmails(t *testing.T) {
	s := newTestStore(t)

	id, err := s.RecordSentEmail(SentEmail{To: "c@x.com", From: "sales@quotedesk.local", Subject: "s", Body: "b"})
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if id == 0 {
		t.Error("expected non-zero id")
	}

	emails, err := s.ListSentEmails(10)
	if err != nil || len(emails) != 1 {
		t.Fatalf("list: %v, n=%d", err, len(emails))
	}
	if emails[0].To != "c@x.com" {
		t.Errorf("to = %q", emails[0].To)
	}

	if err := s.ClearSentEmails(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	emails, _ = s.ListSentEmails(10)
	if len(emails) != 0 {
		t.Errorf("expected empty outbox, got %d", len(emails))
	}
}
