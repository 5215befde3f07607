package storage

import (
	"context"
	"time"

	"github.com/example/respondr-dispatch/internal/models"
)

// AcceptParams names the inputs of the accept transaction.
type AcceptParams struct {
	AssignmentID string
	ResponderID  string
	Now          time.Time
}

// PendingJob is a pending assignment joined with the request it offers.
type PendingJob struct {
	Assignment models.Assignment `json:"assignment"`
	Request    models.Request    `json:"request"`
}

// Alert is an SOS request joined with submitter contact details for the
// admin feed.
type Alert struct {
	Request models.Request `json:"request"`
	UserID  string         `json:"user_id"`
}

// Store is the transactional backing store for the dispatch engine. All
// multi-step mutations (AcceptAssignment, CompleteDispatch, ForceAssign,
// SetResponderStatus with location changes) execute as single atomic
// transactions: a failure at any step leaves no partial state behind.
//
// Conditional updates return errs.Conflict when the guarded row exists in
// the wrong state and errs.NotFound when it does not exist at all, so two
// concurrent accepts of the same assignment resolve to one winner.
type Store interface {
	CreateRequest(ctx context.Context, r *models.Request) error
	GetRequest(ctx context.Context, id string) (*models.Request, error)
	// UpdateRequestStatus transitions id from `from` to `to`; Conflict if
	// the request is no longer in `from`.
	UpdateRequestStatus(ctx context.Context, id string, from, to models.RequestStatus) error
	// TerminateRequest cancels a request from any non-terminal status.
	TerminateRequest(ctx context.Context, id string) error
	SetRequestPaymentRef(ctx context.Context, id, ref string) error
	ListAlerts(ctx context.Context) ([]Alert, error)

	GetResponder(ctx context.Context, id string) (*models.Responder, error)
	GetResponderByUser(ctx context.Context, userID string) (*models.Responder, error)
	ListAvailableResponders(ctx context.Context) ([]models.Responder, error)
	SetResponderStatus(ctx context.Context, id string, status models.ResponderStatus, loc *models.Coord) error
	// RefreshResponderLocation updates coordinates without touching
	// status; it is a no-op unless the responder is Available.
	RefreshResponderLocation(ctx context.Context, id string, loc models.Coord) error

	CreateAssignment(ctx context.Context, a *models.Assignment) error
	GetAssignment(ctx context.Context, id string) (*models.Assignment, error)
	// CountAssignments counts every assignment ever created for the
	// request, regardless of status.
	CountAssignments(ctx context.Context, requestID string) (int, error)
	// CancelAssignment transitions Pending -> Cancelled; Conflict when the
	// assignment already left Pending.
	CancelAssignment(ctx context.Context, id string, now time.Time) error
	// AcceptAssignment runs the full accept transaction: assignment
	// accepted, request assigned, vehicle resolved, dispatch record
	// created, responder busy. All or nothing.
	AcceptAssignment(ctx context.Context, p AcceptParams) (*models.DispatchRecord, error)
	ListPendingForResponder(ctx context.Context, responderID string) ([]PendingJob, error)

	GetVehicleByResponder(ctx context.Context, responderID string) (*models.Vehicle, error)

	// MarkArrived stamps arrival on an open dispatch record.
	MarkArrived(ctx context.Context, dispatchID string, at time.Time) error
	// CompleteDispatch closes the open dispatch record for the request,
	// returns the responder to Available (location retained) and marks
	// the request Completed, atomically.
	CompleteDispatch(ctx context.Context, requestID string, arrivedAt, completedAt time.Time) (*models.DispatchRecord, error)

	// ForceAssign marks the responder Busy while moving the request
	// Pending -> Assigned, atomically. Administrative path that bypasses
	// matching.
	ForceAssign(ctx context.Context, responderID, requestID string) error
}
