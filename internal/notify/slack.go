// Package notify posts operator-facing alerts when tickets become ready
// for quoting.
package notify

import (
	"fmt"
	"log/slog"

	"github.com/slack-go/slack"

	"github.com/quotedesk-io/quotedesk/pkg/protocol"
)

// SlackNotifier announces READY tickets in a Slack channel. Delivery is
// best-effort: failures are logged, never surfaced to the email pipeline.
type SlackNotifier struct {
	api     *slack.Client
	channel string
	logger  *slog.Logger
}

// NewSlack creates a notifier posting to the given channel. Extra options
// are passed through to the Slack client.
func NewSlack(token, channel string, logger *slog.Logger, opts ...slack.Option) (*SlackNotifier, error) {
	if token == "" {
		return nil, fmt.Errorf("slack: token is required")
	}
	if channel == "" {
		return nil, fmt.Errorf("slack: channel is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &SlackNotifier{
		api:     slack.New(token, opts...),
		channel: channel,
		logger:  logger,
	}, nil
}

// TicketReady posts a summary of a fully-specified ticket.
func (n *SlackNotifier) TicketReady(t *protocol.Ticket) {
	text := fmt.Sprintf(":tada: *%s* is ready for quoting\n>%s <%s>\n>%s, qty %s",
		t.Code, t.CustomerName, t.CustomerEmail, t.Fields.LaptopModel, t.Fields.Quantity)

	_, _, err := n.api.PostMessage(n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		n.logger.Warn("slack notify failed", "ticket", t.Code, "error", err)
		return
	}
	n.logger.Info("slack notified", "ticket", t.Code, "channel", n.channel)
}
