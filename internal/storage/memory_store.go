package storage

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/respondr-dispatch/internal/errs"
	"github.com/example/respondr-dispatch/internal/models"
)

// MemoryStore is a mutex-guarded Store used for local runs and tests. It
// mirrors the conditional-update semantics of the Postgres store so the
// engine behaves identically against either.
type MemoryStore struct {
	mu         sync.RWMutex
	requests   map[string]*models.Request
	responders map[string]*models.Responder
	assigns    map[string]*models.Assignment
	vehicles   map[string]*models.Vehicle // keyed by responder id
	dispatches map[string]*models.DispatchRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		requests:   make(map[string]*models.Request),
		responders: make(map[string]*models.Responder),
		assigns:    make(map[string]*models.Assignment),
		vehicles:   make(map[string]*models.Vehicle),
		dispatches: make(map[string]*models.DispatchRecord),
	}
}

// PutResponder seeds a responder profile.
func (m *MemoryStore) PutResponder(r models.Responder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := r
	m.responders[r.ID] = &cp
}

// PutVehicle seeds a vehicle for a responder.
func (m *MemoryStore) PutVehicle(v models.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := v
	m.vehicles[v.ResponderID] = &cp
}

func (m *MemoryStore) CreateRequest(ctx context.Context, r *models.Request) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *r
	m.requests[r.ID] = &cp
	return nil
}

func (m *MemoryStore) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	if !ok {
		return nil, errs.New(errs.NotFound, "request not found")
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) UpdateRequestStatus(ctx context.Context, id string, from, to models.RequestStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return errs.New(errs.NotFound, "request not found")
	}
	if r.Status != from {
		return errs.New(errs.Conflict, "request not in an eligible status")
	}
	r.Status = to
	return nil
}

func (m *MemoryStore) TerminateRequest(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return errs.New(errs.NotFound, "request not found")
	}
	if r.Status.Terminal() {
		return errs.New(errs.Conflict, "request not in an eligible status")
	}
	r.Status = models.RequestCancelled
	return nil
}

func (m *MemoryStore) SetRequestPaymentRef(ctx context.Context, id, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok {
		return errs.New(errs.NotFound, "request not found")
	}
	r.PaymentRef = ref
	return nil
}

func (m *MemoryStore) ListAlerts(ctx context.Context) ([]Alert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Alert
	for _, r := range m.requests {
		if r.Kind == models.KindSOS {
			out = append(out, Alert{Request: *r, UserID: r.UserID})
		}
	}
	return out, nil
}

func (m *MemoryStore) GetResponder(ctx context.Context, id string) (*models.Responder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.responders[id]
	if !ok {
		return nil, errs.New(errs.NotFound, "responder not found")
	}
	cp := *r
	return &cp, nil
}

func (m *MemoryStore) GetResponderByUser(ctx context.Context, userID string) (*models.Responder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.responders {
		if r.UserID == userID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, errs.New(errs.NotFound, "responder not found")
}

func (m *MemoryStore) ListAvailableResponders(ctx context.Context) ([]models.Responder, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []models.Responder
	for _, r := range m.responders {
		if r.Status == models.ResponderAvailable && r.Location != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *MemoryStore) SetResponderStatus(ctx context.Context, id string, status models.ResponderStatus, loc *models.Coord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.responders[id]
	if !ok {
		return errs.New(errs.NotFound, "responder not found")
	}
	r.Status = status
	if loc != nil {
		cp := *loc
		r.Location = &cp
	} else if status == models.ResponderOffline {
		r.Location = nil
	}
	return nil
}

func (m *MemoryStore) RefreshResponderLocation(ctx context.Context, id string, loc models.Coord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.responders[id]
	if !ok || r.Status != models.ResponderAvailable {
		return nil
	}
	cp := loc
	r.Location = &cp
	return nil
}

func (m *MemoryStore) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *a
	m.assigns[a.ID] = &cp
	return nil
}

func (m *MemoryStore) GetAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.assigns[id]
	if !ok {
		return nil, errs.New(errs.NotFound, "assignment not found")
	}
	cp := *a
	return &cp, nil
}

func (m *MemoryStore) CountAssignments(ctx context.Context, requestID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.assigns {
		if a.RequestID == requestID {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) CancelAssignment(ctx context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.assigns[id]
	if !ok {
		return errs.New(errs.NotFound, "assignment not found")
	}
	if a.Status != models.AssignmentPending {
		return errs.New(errs.Conflict, "assignment is not pending")
	}
	a.Status = models.AssignmentCancelled
	t := now
	a.RespondedAt = &t
	return nil
}

func (m *MemoryStore) AcceptAssignment(ctx context.Context, p AcceptParams) (*models.DispatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	a, ok := m.assigns[p.AssignmentID]
	if !ok {
		return nil, errs.New(errs.NotFound, "assignment not found")
	}
	if a.Status != models.AssignmentPending || a.ResponderID != p.ResponderID {
		return nil, errs.New(errs.Conflict, "assignment is not pending or belongs to another responder")
	}
	req, ok := m.requests[a.RequestID]
	if !ok || req.Status != models.RequestPending {
		return nil, errs.New(errs.Conflict, "request is no longer pending")
	}
	v, ok := m.vehicles[p.ResponderID]
	if !ok {
		return nil, errs.New(errs.DependencyMissing, "no vehicle registered for responder")
	}
	resp, ok := m.responders[p.ResponderID]
	if !ok {
		return nil, errs.New(errs.NotFound, "responder not found")
	}

	// All checks passed; apply the five state changes together under the
	// lock so no partial accept is ever observable.
	a.Status = models.AssignmentAccepted
	t := p.Now
	a.RespondedAt = &t
	req.Status = models.RequestAssigned
	resp.Status = models.ResponderBusy
	rec := &models.DispatchRecord{
		ID:           uuid.NewString(),
		ResponderID:  p.ResponderID,
		VehicleID:    v.ID,
		RequestID:    a.RequestID,
		AssignmentID: a.ID,
		Status:       models.DispatchDispatched,
		DispatchedAt: p.Now,
	}
	m.dispatches[rec.ID] = rec
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) ListPendingForResponder(ctx context.Context, responderID string) ([]PendingJob, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []PendingJob
	for _, a := range m.assigns {
		if a.ResponderID != responderID || a.Status != models.AssignmentPending {
			continue
		}
		r, ok := m.requests[a.RequestID]
		if !ok || r.Status != models.RequestPending {
			continue
		}
		out = append(out, PendingJob{Assignment: *a, Request: *r})
	}
	return out, nil
}

func (m *MemoryStore) GetVehicleByResponder(ctx context.Context, responderID string) (*models.Vehicle, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.vehicles[responderID]
	if !ok {
		return nil, errs.New(errs.NotFound, "vehicle not found")
	}
	cp := *v
	return &cp, nil
}

func (m *MemoryStore) MarkArrived(ctx context.Context, dispatchID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dispatches[dispatchID]
	if !ok || d.Status != models.DispatchDispatched {
		return errs.New(errs.NotFound, "no open dispatch record")
	}
	t := at
	d.ArrivedAt = &t
	return nil
}

func (m *MemoryStore) CompleteDispatch(ctx context.Context, requestID string, arrivedAt, completedAt time.Time) (*models.DispatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var rec *models.DispatchRecord
	for _, d := range m.dispatches {
		if d.RequestID == requestID && d.Status == models.DispatchDispatched {
			rec = d
			break
		}
	}
	if rec == nil {
		return nil, errs.New(errs.NotFound, "no open dispatch record for request")
	}
	if rec.ArrivedAt == nil {
		t := arrivedAt
		rec.ArrivedAt = &t
	}
	t := completedAt
	rec.CompletedAt = &t
	rec.Status = models.DispatchCompleted
	if resp, ok := m.responders[rec.ResponderID]; ok {
		resp.Status = models.ResponderAvailable
	}
	if req, ok := m.requests[requestID]; ok {
		req.Status = models.RequestCompleted
	}
	cp := *rec
	return &cp, nil
}

func (m *MemoryStore) ForceAssign(ctx context.Context, responderID, requestID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	resp, ok := m.responders[responderID]
	if !ok {
		return errs.New(errs.NotFound, "responder not found")
	}
	req, ok := m.requests[requestID]
	if !ok {
		return errs.New(errs.NotFound, "request not found")
	}
	if req.Status != models.RequestPending {
		return errs.New(errs.Conflict, "request is not pending")
	}
	resp.Status = models.ResponderBusy
	req.Status = models.RequestAssigned
	return nil
}

// PendingAssignments counts Pending assignments for a request. Test
// helper.
func (m *MemoryStore) PendingAssignments(requestID string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, a := range m.assigns {
		if a.RequestID == requestID && a.Status == models.AssignmentPending {
			n++
		}
	}
	return n
}

// OpenDispatchFor returns the open dispatch record for a responder, if
// any. Test helper.
func (m *MemoryStore) OpenDispatchFor(responderID string) (*models.DispatchRecord, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, d := range m.dispatches {
		if d.ResponderID == responderID && d.Status == models.DispatchDispatched {
			cp := *d
			return &cp, true
		}
	}
	return nil, false
}
