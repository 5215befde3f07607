// Package assignment owns the offer lifecycle: creating Pending
// assignments, committing the accept transaction, and the bounded
// reassignment loop that runs after a cancellation.
package assignment

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/example/respondr-dispatch/internal/directory"
	"github.com/example/respondr-dispatch/internal/errs"
	"github.com/example/respondr-dispatch/internal/eta"
	"github.com/example/respondr-dispatch/internal/matcher"
	"github.com/example/respondr-dispatch/internal/models"
	"github.com/example/respondr-dispatch/internal/observability"
	"github.com/example/respondr-dispatch/internal/storage"
)

// Notifier pushes an offer to a responder. Delivery failures are logged,
// never propagated: the assignment stands regardless.
type Notifier interface {
	Offer(responderID string, offer models.AssignmentOffer) error
}

// Payments is the optional fare collaborator. A hold is placed at booking
// intake and released when the request terminates unfulfilled.
type Payments interface {
	Hold(ctx context.Context, amount int64, currency, customerID string) (string, error)
	Release(ctx context.Context, ref string) error
}

// Manager drives the Pending -> Accepted / Pending -> Cancelled machine
// for assignments. All state lives in the store; the manager itself keeps
// no mutable state and is safe for concurrent use.
type Manager struct {
	Store      storage.Store
	Match      *matcher.Engine
	Notify     Notifier
	ETA        *eta.Estimator
	Payments   Payments
	Reassigner *Reassigner
	Logger     *slog.Logger

	BookingFareCents int64
	FareCurrency     string

	// Now is overridable for tests; defaults to time.Now.
	Now func() time.Time
}

func (m *Manager) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// SubmitParams is the validated-at-the-edge intake payload.
type SubmitParams struct {
	UserID      string
	Kind        string
	Location    models.Coord
	Description string
	Destination string
	PhotoURL    string
}

// SubmitResult reports the persisted request and, when the pool was not
// empty, the assignment that was offered.
type SubmitResult struct {
	Request    models.Request
	Assignment *models.Assignment
	Offer      *models.AssignmentOffer
	Matched    bool
}

// Submit validates and persists a new request, then runs the matching
// path. An empty responder pool is not fatal to intake: the request stays
// Pending and the result reports Matched=false.
func (m *Manager) Submit(ctx context.Context, p SubmitParams) (*SubmitResult, error) {
	kind, err := models.ParseRequestKind(p.Kind)
	if err != nil {
		return nil, errs.Wrap(errs.Validation, "invalid request kind", err)
	}
	if err := directory.ValidateCoord(p.Location); err != nil {
		return nil, err
	}
	if kind == models.KindBooking && strings.TrimSpace(p.Destination) == "" {
		return nil, errs.New(errs.Validation, "destination required for booking")
	}

	req := models.Request{
		ID:          uuid.NewString(),
		UserID:      p.UserID,
		Kind:        kind,
		Location:    p.Location,
		Description: p.Description,
		Destination: p.Destination,
		PhotoURL:    p.PhotoURL,
		Status:      models.RequestPending,
		CreatedAt:   m.now(),
	}
	if err := m.Store.CreateRequest(ctx, &req); err != nil {
		return nil, err
	}
	observability.RequestsTotal.WithLabelValues(string(kind)).Inc()
	m.Logger.Info("request created", "request_id", req.ID, "kind", kind)

	if kind == models.KindBooking && m.Payments != nil {
		ref, err := m.Payments.Hold(ctx, m.BookingFareCents, m.FareCurrency, p.UserID)
		if err != nil {
			// Fare holds are best-effort; dispatch never waits on the
			// payment provider.
			m.Logger.Warn("fare hold failed", "request_id", req.ID, "error", err)
		} else if err := m.Store.SetRequestPaymentRef(ctx, req.ID, ref); err != nil {
			m.Logger.Warn("persist fare hold ref failed", "request_id", req.ID, "error", err)
		} else {
			req.PaymentRef = ref
		}
	}

	match, err := m.Match.SelectBest(ctx, req.Location)
	if err != nil {
		if errs.Is(err, errs.NoResponderAvailable) {
			m.Logger.Warn("no responder available at intake", "request_id", req.ID)
			return &SubmitResult{Request: req, Matched: false}, nil
		}
		return nil, err
	}
	a, offer, err := m.Create(ctx, &req, match)
	if err != nil {
		return nil, err
	}
	return &SubmitResult{Request: req, Assignment: a, Offer: &offer, Matched: true}, nil
}

// Create records a Pending assignment for the matched responder and emits
// the offer notification.
func (m *Manager) Create(ctx context.Context, req *models.Request, match matcher.Match) (*models.Assignment, models.AssignmentOffer, error) {
	a := models.Assignment{
		ID:          uuid.NewString(),
		RequestID:   req.ID,
		ResponderID: match.Responder.ID,
		Status:      models.AssignmentPending,
		CreatedAt:   m.now(),
	}
	if err := m.Store.CreateAssignment(ctx, &a); err != nil {
		return nil, models.AssignmentOffer{}, err
	}
	observability.AssignmentsCreated.Inc()

	offer := models.AssignmentOffer{
		AssignmentID: a.ID,
		RequestID:    req.ID,
		Kind:         req.Kind,
		Location:     req.Location,
		Description:  req.Description,
		PhotoURL:     req.PhotoURL,
		DistanceM:    match.DistanceM,
	}
	if m.ETA != nil && match.Responder.Location != nil {
		offer.ETASeconds = m.ETA.Estimate(*match.Responder.Location, req.Location)
	}
	if m.Notify != nil {
		if err := m.Notify.Offer(a.ResponderID, offer); err != nil {
			m.Logger.Warn("offer notification failed",
				"assignment_id", a.ID, "responder_id", a.ResponderID, "error", err)
		}
	}
	m.Logger.Info("assignment created",
		"assignment_id", a.ID, "request_id", req.ID, "responder_id", a.ResponderID,
		"distance_m", match.DistanceM)
	return &a, offer, nil
}

// Accept commits the accept transaction: assignment Accepted, request
// Assigned, vehicle resolved, dispatch record opened, responder Busy. The
// store enforces the conditional Pending check, so of two concurrent
// accepts exactly one wins and the other gets Conflict.
func (m *Manager) Accept(ctx context.Context, assignmentID, responderID string) (*models.DispatchRecord, error) {
	rec, err := m.Store.AcceptAssignment(ctx, storage.AcceptParams{
		AssignmentID: assignmentID,
		ResponderID:  responderID,
		Now:          m.now(),
	})
	if err != nil {
		return nil, err
	}
	observability.AssignmentsAccepted.Inc()
	m.Logger.Info("assignment accepted",
		"assignment_id", assignmentID, "responder_id", responderID, "dispatch_id", rec.ID)
	return rec, nil
}

// Cancel marks a Pending assignment Cancelled and hands the request to the
// reassignment controller. A second cancel of the same assignment fails
// with Conflict.
func (m *Manager) Cancel(ctx context.Context, assignmentID, responderID string) (*models.Assignment, error) {
	a, err := m.Store.GetAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.ResponderID != responderID {
		return nil, errs.New(errs.Conflict, "assignment belongs to another responder")
	}
	if err := m.Store.CancelAssignment(ctx, assignmentID, m.now()); err != nil {
		return nil, err
	}
	observability.AssignmentsCancelled.Inc()
	m.Logger.Info("assignment cancelled", "assignment_id", assignmentID, "request_id", a.RequestID)

	return m.Reassigner.Reassign(ctx, a.RequestID)
}

// Reject terminally cancels a request without consulting the reassignment
// controller. Kept deliberately separate from Cancel: this is an explicit
// responder refusal, not a retryable system cancellation.
func (m *Manager) Reject(ctx context.Context, requestID string) error {
	req, err := m.Store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if err := m.Store.TerminateRequest(ctx, requestID); err != nil {
		return err
	}
	m.releaseHold(ctx, req)
	observability.AssignmentsCancelled.Inc()
	m.Logger.Info("request rejected", "request_id", requestID)
	return nil
}

// ForceAssign is the administrative path that marks a responder Busy while
// moving the request Pending -> Assigned, bypassing matching.
func (m *Manager) ForceAssign(ctx context.Context, responderID, requestID string) error {
	if err := m.Store.ForceAssign(ctx, responderID, requestID); err != nil {
		return err
	}
	m.Logger.Info("request force-assigned", "request_id", requestID, "responder_id", responderID)
	return nil
}

func (m *Manager) releaseHold(ctx context.Context, req *models.Request) {
	if m.Payments == nil || req == nil || req.PaymentRef == "" {
		return
	}
	if err := m.Payments.Release(ctx, req.PaymentRef); err != nil {
		m.Logger.Warn("fare hold release failed", "request_id", req.ID, "error", err)
	}
}
