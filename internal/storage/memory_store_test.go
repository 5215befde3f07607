package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/example/respondr-dispatch/internal/errs"
	"github.com/example/respondr-dispatch/internal/models"
)

func seedAccepted(t *testing.T, m *MemoryStore) (requestID, assignmentID string) {
	t.Helper()
	ctx := context.Background()
	m.PutResponder(models.Responder{ID: "r1", UserID: "u1", Status: models.ResponderAvailable,
		Location: &models.Coord{Lat: 1, Lon: 1}})
	m.PutVehicle(models.Vehicle{ID: "v1", ResponderID: "r1"})
	req := models.Request{ID: "req-1", UserID: "caller", Kind: models.KindSOS,
		Location: models.Coord{Lat: 1, Lon: 1}, Status: models.RequestPending, CreatedAt: time.Now()}
	if err := m.CreateRequest(ctx, &req); err != nil {
		t.Fatalf("create request: %v", err)
	}
	a := models.Assignment{ID: "asg-1", RequestID: req.ID, ResponderID: "r1",
		Status: models.AssignmentPending, CreatedAt: time.Now()}
	if err := m.CreateAssignment(ctx, &a); err != nil {
		t.Fatalf("create assignment: %v", err)
	}
	return req.ID, a.ID
}

func TestUpdateRequestStatusIsConditional(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	req := models.Request{ID: "req-1", Status: models.RequestPending}
	if err := m.CreateRequest(ctx, &req); err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := m.UpdateRequestStatus(ctx, "req-1", models.RequestPending, models.RequestCancelled); err != nil {
		t.Fatalf("transition: %v", err)
	}
	// The precondition no longer holds.
	err := m.UpdateRequestStatus(ctx, "req-1", models.RequestPending, models.RequestAssigned)
	if !errs.Is(err, errs.Conflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
	if err := m.UpdateRequestStatus(ctx, "ghost", models.RequestPending, models.RequestAssigned); !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestCancelAssignmentOnlyWhenPending(t *testing.T) {
	m := NewMemoryStore()
	_, asgID := seedAccepted(t, m)
	ctx := context.Background()

	if err := m.CancelAssignment(ctx, asgID, time.Now()); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := m.CancelAssignment(ctx, asgID, time.Now()); !errs.Is(err, errs.Conflict) {
		t.Fatalf("expected Conflict, got %v", err)
	}
}

func TestAcceptAssignmentConcurrentOneWinner(t *testing.T) {
	m := NewMemoryStore()
	_, asgID := seedAccepted(t, m)
	ctx := context.Background()

	const n = 16
	results := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.AcceptAssignment(ctx, AcceptParams{
				AssignmentID: asgID, ResponderID: "r1", Now: time.Now(),
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	var wins, conflicts int
	for err := range results {
		switch {
		case err == nil:
			wins++
		case errs.Is(err, errs.Conflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 || conflicts != n-1 {
		t.Fatalf("expected 1 winner and %d conflicts, got %d/%d", n-1, wins, conflicts)
	}
	// Exactly one dispatch record exists.
	if _, ok := m.OpenDispatchFor("r1"); !ok {
		t.Fatal("expected one open dispatch record")
	}
}

func TestRefreshResponderLocationOnlyWhenAvailable(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	m.PutResponder(models.Responder{ID: "r1", UserID: "u1", Status: models.ResponderBusy,
		Location: &models.Coord{Lat: 1, Lon: 1}})

	if err := m.RefreshResponderLocation(ctx, "r1", models.Coord{Lat: 9, Lon: 9}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	r, _ := m.GetResponder(ctx, "r1")
	if r.Location.Lat != 1 {
		t.Fatal("busy responder location must not be refreshed")
	}

	m.PutResponder(models.Responder{ID: "r2", UserID: "u2", Status: models.ResponderAvailable,
		Location: &models.Coord{Lat: 1, Lon: 1}})
	if err := m.RefreshResponderLocation(ctx, "r2", models.Coord{Lat: 9, Lon: 9}); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	r, _ = m.GetResponder(ctx, "r2")
	if r.Location.Lat != 9 {
		t.Fatal("available responder location must be refreshed")
	}
}

func TestListAlertsReturnsOnlySOS(t *testing.T) {
	m := NewMemoryStore()
	ctx := context.Background()
	_ = m.CreateRequest(ctx, &models.Request{ID: "sos-1", UserID: "u1", Kind: models.KindSOS,
		Status: models.RequestPending})
	_ = m.CreateRequest(ctx, &models.Request{ID: "book-1", UserID: "u2", Kind: models.KindBooking,
		Status: models.RequestPending})

	alerts, err := m.ListAlerts(ctx)
	if err != nil {
		t.Fatalf("alerts: %v", err)
	}
	if len(alerts) != 1 || alerts[0].Request.ID != "sos-1" {
		t.Fatalf("expected only the SOS request, got %v", alerts)
	}
}
