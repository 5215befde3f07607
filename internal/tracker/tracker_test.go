package tracker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/respondr-dispatch/internal/errs"
	"github.com/example/respondr-dispatch/internal/models"
	"github.com/example/respondr-dispatch/internal/storage"
)

type fakePayments struct {
	captured []string
	fail     bool
}

func (f *fakePayments) Capture(ctx context.Context, ref string) error {
	f.captured = append(f.captured, ref)
	if f.fail {
		return errs.New(errs.StoreFailure, "provider down")
	}
	return nil
}

func seedOpenDispatch(t *testing.T, store *storage.MemoryStore, paymentRef string) (requestID string) {
	t.Helper()
	ctx := context.Background()
	store.PutResponder(models.Responder{
		ID: "r1", UserID: "user-r1",
		Status:   models.ResponderAvailable,
		Location: &models.Coord{Lat: 12.98, Lon: 77.60},
	})
	store.PutVehicle(models.Vehicle{ID: "veh-1", ResponderID: "r1"})
	req := models.Request{
		ID: "req-1", UserID: "caller", Kind: models.KindSOS,
		Location: models.Coord{Lat: 12.97, Lon: 77.59},
		Status:   models.RequestPending, PaymentRef: paymentRef,
		CreatedAt: time.Now(),
	}
	if err := store.CreateRequest(ctx, &req); err != nil {
		t.Fatalf("seed request: %v", err)
	}
	a := models.Assignment{
		ID: "asg-1", RequestID: req.ID, ResponderID: "r1",
		Status: models.AssignmentPending, CreatedAt: time.Now(),
	}
	if err := store.CreateAssignment(ctx, &a); err != nil {
		t.Fatalf("seed assignment: %v", err)
	}
	if _, err := store.AcceptAssignment(ctx, storage.AcceptParams{
		AssignmentID: a.ID, ResponderID: "r1", Now: time.Now(),
	}); err != nil {
		t.Fatalf("accept: %v", err)
	}
	return req.ID
}

func newTracker(store storage.Store, pay Payments) *Tracker {
	return &Tracker{
		Store:    store,
		Payments: pay,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestMarkCompletedClosesDispatchAndFreesResponder(t *testing.T) {
	store := storage.NewMemoryStore()
	reqID := seedOpenDispatch(t, store, "")
	tr := newTracker(store, nil)

	ctx := context.Background()
	arrived := time.Now().Add(-10 * time.Minute)
	completed := time.Now()
	rec, err := tr.MarkCompleted(ctx, reqID, arrived, completed)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if rec.Status != models.DispatchCompleted || rec.CompletedAt == nil {
		t.Fatalf("record not completed: %+v", rec)
	}
	if rec.ArrivedAt == nil {
		t.Fatal("arrival must be backfilled on completion")
	}
	resp, _ := store.GetResponder(ctx, "r1")
	if resp.Status != models.ResponderAvailable {
		t.Fatalf("expected responder Available, got %s", resp.Status)
	}
	if resp.Location == nil {
		t.Fatal("completion must not clear the responder location")
	}
	req, _ := store.GetRequest(ctx, reqID)
	if req.Status != models.RequestCompleted {
		t.Fatalf("expected request Completed, got %s", req.Status)
	}
	if _, ok := store.OpenDispatchFor("r1"); ok {
		t.Fatal("no open dispatch record may remain")
	}
}

func TestMarkCompletedNoOpenRecord(t *testing.T) {
	store := storage.NewMemoryStore()
	tr := newTracker(store, nil)
	_, err := tr.MarkCompleted(context.Background(), "unknown", time.Now(), time.Now())
	if !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestMarkCompletedTwiceNotFound(t *testing.T) {
	store := storage.NewMemoryStore()
	reqID := seedOpenDispatch(t, store, "")
	tr := newTracker(store, nil)

	ctx := context.Background()
	if _, err := tr.MarkCompleted(ctx, reqID, time.Now(), time.Now()); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	_, err := tr.MarkCompleted(ctx, reqID, time.Now(), time.Now())
	if !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound on second complete, got %v", err)
	}
}

func TestMarkCompletedCapturesFareHold(t *testing.T) {
	store := storage.NewMemoryStore()
	reqID := seedOpenDispatch(t, store, "pi_hold")
	pay := &fakePayments{}
	tr := newTracker(store, pay)

	if _, err := tr.MarkCompleted(context.Background(), reqID, time.Now(), time.Now()); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if len(pay.captured) != 1 || pay.captured[0] != "pi_hold" {
		t.Fatalf("expected one capture of pi_hold, got %v", pay.captured)
	}
}

func TestMarkCompletedCaptureFailureIsNotFatal(t *testing.T) {
	store := storage.NewMemoryStore()
	reqID := seedOpenDispatch(t, store, "pi_hold")
	tr := newTracker(store, &fakePayments{fail: true})

	if _, err := tr.MarkCompleted(context.Background(), reqID, time.Now(), time.Now()); err != nil {
		t.Fatalf("capture failure must not fail completion: %v", err)
	}
}

func TestMarkArrived(t *testing.T) {
	store := storage.NewMemoryStore()
	seedOpenDispatch(t, store, "")
	tr := newTracker(store, nil)

	ctx := context.Background()
	rec, ok := store.OpenDispatchFor("r1")
	if !ok {
		t.Fatal("expected open dispatch")
	}
	if err := tr.MarkArrived(ctx, rec.ID, time.Now()); err != nil {
		t.Fatalf("arrive: %v", err)
	}
	rec, _ = store.OpenDispatchFor("r1")
	if rec.ArrivedAt == nil {
		t.Fatal("arrival not recorded")
	}

	if err := tr.MarkArrived(ctx, "missing", time.Now()); !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}
