// Package tracker records arrival and completion on open dispatch records
// and returns responders to the available pool.
package tracker

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/respondr-dispatch/internal/models"
	"github.com/example/respondr-dispatch/internal/observability"
	"github.com/example/respondr-dispatch/internal/storage"
)

// Payments captures the fare hold once a booking completes.
type Payments interface {
	Capture(ctx context.Context, ref string) error
}

type Tracker struct {
	Store    storage.Store
	Payments Payments
	Logger   *slog.Logger
}

// MarkArrived stamps arrival on an open dispatch record. NotFound when no
// open record matches.
func (t *Tracker) MarkArrived(ctx context.Context, dispatchID string, at time.Time) error {
	if err := t.Store.MarkArrived(ctx, dispatchID, at); err != nil {
		return err
	}
	t.Logger.Info("responder arrived", "dispatch_id", dispatchID)
	return nil
}

// MarkCompleted closes the open dispatch record for the request, frees the
// responder (location retained) and completes the request, all in one
// store transaction. The fare capture that follows is best-effort.
func (t *Tracker) MarkCompleted(ctx context.Context, requestID string, arrivedAt, completedAt time.Time) (*models.DispatchRecord, error) {
	rec, err := t.Store.CompleteDispatch(ctx, requestID, arrivedAt, completedAt)
	if err != nil {
		return nil, err
	}
	observability.DispatchesCompleted.Inc()
	t.Logger.Info("dispatch completed",
		"dispatch_id", rec.ID, "request_id", requestID, "responder_id", rec.ResponderID)

	if t.Payments != nil {
		if req, err := t.Store.GetRequest(ctx, requestID); err == nil && req.PaymentRef != "" {
			if err := t.Payments.Capture(ctx, req.PaymentRef); err != nil {
				t.Logger.Warn("fare capture failed", "request_id", requestID, "error", err)
			}
		}
	}
	return rec, nil
}
