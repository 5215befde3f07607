// Package notify delivers assignment offers to responders. Delivery is
// fire-and-forget from the engine's perspective: a failed notification
// never rolls back the assignment.
package notify

import (
	"log/slog"

	"github.com/example/respondr-dispatch/internal/models"
)

// Notifier pushes an offer to one responder.
type Notifier interface {
	Offer(responderID string, offer models.AssignmentOffer) error
}

// Fanout tries each transport in order and stops at the first success.
// Typical wiring is WS first (app in foreground) with FCM as fallback.
type Fanout struct {
	Transports []Notifier
	Logger     *slog.Logger
}

func (f *Fanout) Offer(responderID string, offer models.AssignmentOffer) error {
	var last error
	for _, t := range f.Transports {
		if err := t.Offer(responderID, offer); err != nil {
			last = err
			continue
		}
		return nil
	}
	if last != nil && f.Logger != nil {
		f.Logger.Warn("offer delivery failed on all transports",
			"responder_id", responderID, "assignment_id", offer.AssignmentID, "error", last)
	}
	return last
}
