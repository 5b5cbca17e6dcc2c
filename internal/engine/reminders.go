package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/quotedesk-io/quotedesk/pkg/protocol"
)

// SweepReminders re-sends the follow-up for every WAITING_ON_CUSTOMER
// ticket whose last activity is older than idle. Returns the number of
// reminders sent. Individual ticket failures are logged and skipped so one
// bad ticket cannot stall the sweep.
func (e *Engine) SweepReminders(ctx context.Context, idle time.Duration) (int, error) {
	cutoff := time.Now().Add(-idle)
	stale, err := e.store.ListStale(protocol.TicketWaitingOnCustomer, cutoff)
	if err != nil {
		return 0, fmt.Errorf("engine: list stale tickets: %w", err)
	}

	sent := 0
	for _, candidate := range stale {
		ok, err := e.remind(ctx, candidate.ID, cutoff)
		if err != nil {
			e.logger.Error("reminder failed", "ticket", candidate.Code, "error", err)
			continue
		}
		if ok {
			sent++
		}
	}
	if sent > 0 {
		e.logger.Info("reminder sweep complete", "sent", sent, "candidates", len(stale))
	}
	return sent, nil
}

func (e *Engine) remind(ctx context.Context, id string, cutoff time.Time) (bool, error) {
	unlock := e.locks.lock(id)
	defer unlock()

	// Re-check under the lock: a reply or manual edit may have raced the
	// sweep and already advanced the ticket.
	t, err := e.store.Get(id)
	if err != nil {
		return false, err
	}
	if t.Status != protocol.TicketWaitingOnCustomer || t.UpdatedAt.After(cutoff) {
		return false, nil
	}

	missing := t.Fields.MissingRequired()
	if len(missing) == 0 {
		return false, nil
	}
	if err := e.sendFollowup(ctx, t, missing); err != nil {
		return false, err
	}
	return true, nil
}
