// Package metrics exposes Prometheus counters for the ticket engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	InboundEmails = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotedesk_inbound_emails_total",
		Help: "Inbound emails handled by the engine.",
	})
	TicketsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotedesk_tickets_created_total",
		Help: "Tickets created from inbound emails.",
	})
	FollowupsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotedesk_followups_sent_total",
		Help: "Automated follow-up emails appended to ticket threads.",
	})
	ExtractionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotedesk_extraction_failures_total",
		Help: "Extraction calls that failed and degraded to an empty field set.",
	})
	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotedesk_send_failures_total",
		Help: "Outbound sends that failed; the thread still records the attempt.",
	})
)
