package assignment

import (
	"context"
	"log/slog"

	"github.com/example/respondr-dispatch/internal/errs"
	"github.com/example/respondr-dispatch/internal/matcher"
	"github.com/example/respondr-dispatch/internal/models"
	"github.com/example/respondr-dispatch/internal/observability"
	"github.com/example/respondr-dispatch/internal/storage"
)

// DefaultBound is the maximum number of assignment attempts per request
// before it is abandoned. The bound keeps an empty or saturated pool from
// producing an unbounded retry storm.
const DefaultBound = 3

// Reassigner reacts to a cancelled assignment: either offers the request
// to the next nearest responder or, once the attempt bound is reached,
// terminally cancels it.
type Reassigner struct {
	Store  storage.Store
	Match  *matcher.Engine
	Mgr    *Manager
	Bound  int
	Logger *slog.Logger
}

func (r *Reassigner) bound() int {
	if r.Bound > 0 {
		return r.Bound
	}
	return DefaultBound
}

// Reassign counts every assignment ever created for the request. At or
// past the bound it cancels the request and reports ResourceExhausted; no
// further assignment row is created. Otherwise it matches again and
// returns the new Pending assignment.
func (r *Reassigner) Reassign(ctx context.Context, requestID string) (*models.Assignment, error) {
	req, err := r.Store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.RequestPending {
		return nil, errs.Newf(errs.Conflict, "request is %s, not pending", req.Status)
	}

	count, err := r.Store.CountAssignments(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if count >= r.bound() {
		if err := r.Store.UpdateRequestStatus(ctx, requestID, models.RequestPending, models.RequestCancelled); err != nil {
			return nil, err
		}
		r.Mgr.releaseHold(ctx, req)
		observability.RequestsExhausted.Inc()
		r.Logger.Warn("request unassignable, retry bound reached",
			"request_id", requestID, "attempts", count)
		return nil, errs.Newf(errs.ResourceExhausted, "request abandoned after %d attempts", count)
	}

	match, err := r.Match.SelectBest(ctx, req.Location)
	if err != nil {
		return nil, err
	}
	observability.ReassignmentsTotal.Inc()
	a, _, err := r.Mgr.Create(ctx, req, match)
	if err != nil {
		return nil, err
	}
	r.Logger.Info("request reassigned",
		"request_id", requestID, "assignment_id", a.ID, "attempt", count+1)
	return a, nil
}
