package mailer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/quotedesk-io/quotedesk/internal/ticket"
)

func TestResendSend(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Error("missing auth header")
		}
		var req resendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req.From != "sales@quotedesk.example" {
			t.Errorf("from = %q", req.From)
		}
		if len(req.To) != 1 || req.To[0] != "dana@corp.example" {
			t.Errorf("to = %v", req.To)
		}
		json.NewEncoder(w).Encode(resendResponse{ID: "re_123"})
	}))
	defer srv.Close()

	m := NewResend("test-key", "sales@quotedesk.example", WithResendBaseURL(srv.URL))
	id, err := m.Send(context.Background(), "dana@corp.example", "Your quote", "Hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "re_123" {
		t.Errorf("message id = %q", id)
	}
}

func TestResendSend_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"message":"invalid from"}`, http.StatusUnprocessableEntity)
	}))
	defer srv.Close()

	m := NewResend("test-key", "bad", WithResendBaseURL(srv.URL))
	if _, err := m.Send(context.Background(), "x@y.com", "s", "b"); err == nil {
		t.Fatal("expected error")
	}
}

func TestMockMailer(t *testing.T) {
	store, err := ticket.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	defer store.DB().Close()

	m := NewMock(store, "sales@quotedesk.example")
	id, err := m.Send(context.Background(), "dana@corp.example", "Your quote", "Hello")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if id != "mock-1" {
		t.Errorf("message id = %q", id)
	}

	emails, _ := store.ListSentEmails(10)
	if len(emails) != 1 || emails[0].To != "dana@corp.example" {
		t.Errorf("outbox = %+v", emails)
	}
}
