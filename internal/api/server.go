package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/quotedesk-io/quotedesk/internal/engine"
	"github.com/quotedesk-io/quotedesk/internal/inbound"
	"github.com/quotedesk-io/quotedesk/internal/logbuf"
	"github.com/quotedesk-io/quotedesk/internal/ticket"
	"github.com/quotedesk-io/quotedesk/pkg/protocol"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// LogQuerier abstracts log entry querying to avoid coupling to logbuf
// directly.
type LogQuerier interface {
	Query(since time.Time, minLevel slog.Level, limit int) []logbuf.Entry
}

// Service is the interface the API server needs from the engine.
type Service interface {
	HandleInboundMessage(ctx context.Context, in engine.InboundEmail) (*engine.Receipt, error)
	GetTicket(id string) (*protocol.Ticket, error)
	ListTickets(f ticket.Filter) ([]*protocol.Ticket, error)
	UpdateTicket(ctx context.Context, id string, p engine.Patch) (*protocol.Ticket, error)
	SendManualFollowup(ctx context.Context, id, subject, body string) (string, error)
	SentEmails(limit int) ([]ticket.SentEmail, error)
	ClearSentEmails() error
}

// Config holds API server configuration.
type Config struct {
	Host string
	Port int
	Key  string // API key for Bearer auth

	// Dev exposes the simulated-inbound and outbox endpoints and skips
	// webhook signature checks.
	Dev           bool
	WebhookSecret string
}

// Server is the quotedesk REST API server.
type Server struct {
	svc     Service
	cfg     Config
	logger  *slog.Logger
	logs    LogQuerier
	limiter *rate.Limiter
	srv     *http.Server
}

// NewServer creates the API server. logs may be nil.
func NewServer(svc Service, cfg Config, logger *slog.Logger, logs LogQuerier) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		svc:     svc,
		cfg:     cfg,
		logger:  logger,
		logs:    logs,
		limiter: rate.NewLimiter(rate.Limit(10), 30),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("POST /api/webhooks/resend", s.handleWebhook)
	mux.HandleFunc("GET /api/tickets", s.requireAuth(s.handleListTickets))
	mux.HandleFunc("GET /api/tickets/{id}", s.requireAuth(s.handleGetTicket))
	mux.HandleFunc("PATCH /api/tickets/{id}", s.requireAuth(s.handleUpdateTicket))
	mux.HandleFunc("POST /api/tickets/{id}/send-email", s.requireAuth(s.handleSendEmail))
	mux.HandleFunc("GET /api/logs", s.requireAuth(s.handleGetLogs))
	mux.Handle("GET /metrics", promhttp.Handler())
	if cfg.Dev {
		mux.HandleFunc("POST /api/dev/receive-email", s.requireAuth(s.handleDevReceive))
		mux.HandleFunc("GET /api/dev/sent-emails", s.requireAuth(s.handleDevSentEmails))
		mux.HandleFunc("DELETE /api/dev/sent-emails", s.requireAuth(s.handleDevClearSentEmails))
	}

	s.srv = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:           s.corsMiddleware(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Start begins listening. Blocks until context is cancelled.
func (s *Server) Start(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.srv.Shutdown(shutCtx)
	}()

	s.logger.Info("api server starting", "addr", s.srv.Addr, "dev", s.cfg.Dev)
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server: %w", err)
	}
	return nil
}

// Handler returns the underlying http.Handler for testing.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// --- Middleware ---

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Authorization, Content-Type")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Key == "" {
			next(w, r)
			return
		}
		auth := r.Header.Get("Authorization")
		if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != s.cfg.Key {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next(w, r)
	}
}

// --- Handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		writeJSON(w, http.StatusTooManyRequests, map[string]string{"error": "rate limited"})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unreadable body"})
		return
	}

	if !s.cfg.Dev {
		sig := r.Header.Get("X-Webhook-Signature")
		if !inbound.VerifySignature(body, s.cfg.WebhookSecret, sig) {
			s.logger.Warn("webhook signature rejected", "remote", r.RemoteAddr)
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid signature"})
			return
		}
	}

	email, err := inbound.Decode(body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.processInbound(w, r, email)
}

type devReceiveRequest struct {
	From      string `json:"from"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	MessageID string `json:"message_id"`
	InReplyTo string `json:"in_reply_to"`
}

func (s *Server) handleDevReceive(w http.ResponseWriter, r *http.Request) {
	var req devReceiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.From == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "from is required"})
		return
	}
	s.processInbound(w, r, inbound.Email{
		From:      req.From,
		Subject:   req.Subject,
		Body:      req.Body,
		MessageID: req.MessageID,
		InReplyTo: req.InReplyTo,
	})
}

// processInbound runs a decoded email through the engine; the webhook and
// the dev simulator share this path so both exercise the same matcher.
func (s *Server) processInbound(w http.ResponseWriter, r *http.Request, email inbound.Email) {
	receipt, err := s.svc.HandleInboundMessage(r.Context(), engine.InboundEmail{
		From:      email.From,
		Subject:   email.Subject,
		Body:      email.Body,
		MessageID: email.MessageID,
		InReplyTo: email.InReplyTo,
	})
	if err != nil {
		s.logger.Error("inbound processing failed", "from", email.From, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, receipt)
}

func (s *Server) handleListTickets(w http.ResponseWriter, r *http.Request) {
	filter := ticket.Filter{}
	if status := r.URL.Query().Get("status"); status != "" {
		ts := protocol.TicketStatus(status)
		if !ts.Valid() {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "unknown status"})
			return
		}
		filter.Status = &ts
	}
	if email := r.URL.Query().Get("email"); email != "" {
		filter.Email = email
	}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = n
		}
	}

	tickets, err := s.svc.ListTickets(filter)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if tickets == nil {
		tickets = []*protocol.Ticket{}
	}
	writeJSON(w, http.StatusOK, tickets)
}

func (s *Server) handleGetTicket(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.GetTicket(r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ticket.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ticket not found"})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type updateTicketRequest struct {
	CustomerName  *string            `json:"customer_name"`
	CustomerEmail *string            `json:"customer_email"`
	Status        *string            `json:"status"`
	Fields        *protocol.FieldSet `json:"fields"`
}

func (s *Server) handleUpdateTicket(w http.ResponseWriter, r *http.Request) {
	var req updateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}

	patch := engine.Patch{
		CustomerName:  req.CustomerName,
		CustomerEmail: req.CustomerEmail,
		Fields:        req.Fields,
	}
	if req.Status != nil {
		ts := protocol.TicketStatus(*req.Status)
		patch.Status = &ts
	}

	t, err := s.svc.UpdateTicket(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		switch {
		case errors.Is(err, ticket.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ticket not found"})
		case errors.Is(err, engine.ErrInvalidPatch):
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		default:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		}
		return
	}
	writeJSON(w, http.StatusOK, t)
}

type sendEmailRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

func (s *Server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req sendEmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON"})
		return
	}
	if req.Subject == "" || req.Body == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "subject and body are required"})
		return
	}

	ref, err := s.svc.SendManualFollowup(r.Context(), r.PathValue("id"), req.Subject, req.Body)
	if err != nil {
		if errors.Is(err, ticket.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "ticket not found"})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent", "message_ref": ref})
}

func (s *Server) handleDevSentEmails(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}
	emails, err := s.svc.SentEmails(limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if emails == nil {
		emails = []ticket.SentEmail{}
	}
	writeJSON(w, http.StatusOK, emails)
}

func (s *Server) handleDevClearSentEmails(w http.ResponseWriter, _ *http.Request) {
	if err := s.svc.ClearSentEmails(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}

func (s *Server) handleGetLogs(w http.ResponseWriter, r *http.Request) {
	if s.logs == nil {
		writeJSON(w, http.StatusOK, []logbuf.Entry{})
		return
	}

	limit := 200
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = n
		}
	}

	minLevel := slog.LevelDebug
	switch strings.ToLower(r.URL.Query().Get("level")) {
	case "info":
		minLevel = slog.LevelInfo
	case "warn":
		minLevel = slog.LevelWarn
	case "error":
		minLevel = slog.LevelError
	}

	var since time.Time
	if v := r.URL.Query().Get("since"); v != "" {
		if ms, err := strconv.ParseInt(v, 10, 64); err == nil {
			since = time.UnixMilli(ms)
		}
	}

	entries := s.logs.Query(since, minLevel, limit)
	if entries == nil {
		entries = []logbuf.Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// --- Helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
