package engine

import (
	"fmt"

	"github.com/quotedesk-io/quotedesk/internal/ticket"
)

// signals are the three matching inputs carried by one inbound email, in
// decreasing order of reliability: the threading reference set by the
// transport, the ticket code surviving in the subject, and the bare sender
// address.
type signals struct {
	inReplyTo string
	subject   string
	sender    string
}

// resolveTicket returns the id of the ticket an inbound email belongs to,
// or "" when a new ticket must be created. Rules run in priority order and
// the first hit wins; a rule whose signal is absent or whose lookup comes
// up empty yields to the next rule.
func (e *Engine) resolveTicket(sig signals) (string, error) {
	if sig.inReplyTo != "" {
		id, err := e.store.FindTicketByMessageRef(sig.inReplyTo)
		if err != nil {
			return "", fmt.Errorf("engine: thread match: %w", err)
		}
		if id != "" {
			return id, nil
		}
	}

	if sig.subject != "" {
		if code := ticket.FindCode(sig.subject); code != "" {
			id, err := e.store.FindTicketByCode(code)
			if err != nil {
				return "", fmt.Errorf("engine: code match: %w", err)
			}
			if id != "" {
				return id, nil
			}
		}
	}

	if sig.sender != "" {
		id, err := e.store.FindRecentTicketByEmail(sig.sender, e.matchWindow)
		if err != nil {
			return "", fmt.Errorf("engine: sender match: %w", err)
		}
		if id != "" {
			return id, nil
		}
	}

	return "", nil
}
