package directory

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/example/respondr-dispatch/internal/errs"
	"github.com/example/respondr-dispatch/internal/models"
	"github.com/example/respondr-dispatch/internal/storage"
)

func newDirectory(store storage.Store) *Directory {
	return New(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestGoOnlineSetsLocationAndStatus(t *testing.T) {
	store := storage.NewMemoryStore()
	store.PutResponder(models.Responder{ID: "r1", UserID: "u1", Status: models.ResponderOffline})
	d := newDirectory(store)

	ctx := context.Background()
	if err := d.GoOnline(ctx, "r1", models.Coord{Lat: 12.97, Lon: 77.59}); err != nil {
		t.Fatalf("go online: %v", err)
	}
	r, _ := store.GetResponder(ctx, "r1")
	if r.Status != models.ResponderAvailable {
		t.Fatalf("expected Available, got %s", r.Status)
	}
	if r.Location == nil || r.Location.Lat != 12.97 {
		t.Fatalf("location not recorded: %+v", r.Location)
	}
	list, _ := d.ListAvailable(ctx)
	if len(list) != 1 || list[0].ID != "r1" {
		t.Fatalf("expected r1 in pool, got %v", list)
	}
}

func TestGoOnlineRejectsBadCoordinates(t *testing.T) {
	store := storage.NewMemoryStore()
	store.PutResponder(models.Responder{ID: "r1", UserID: "u1"})
	d := newDirectory(store)

	ctx := context.Background()
	if err := d.GoOnline(ctx, "r1", models.Coord{Lat: 95, Lon: 0}); !errs.Is(err, errs.Validation) {
		t.Fatalf("expected Validation, got %v", err)
	}
	if err := d.GoOnline(ctx, "r1", models.Coord{Lat: 0, Lon: 181}); !errs.Is(err, errs.Validation) {
		t.Fatalf("expected Validation, got %v", err)
	}
	// The failed transition must not have touched the record.
	r, _ := store.GetResponder(ctx, "r1")
	if r.Status == models.ResponderAvailable {
		t.Fatal("responder must not be Available after rejected transition")
	}
}

func TestGoOfflineClearsLocation(t *testing.T) {
	store := storage.NewMemoryStore()
	store.PutResponder(models.Responder{
		ID: "r1", UserID: "u1",
		Status:   models.ResponderAvailable,
		Location: &models.Coord{Lat: 12.97, Lon: 77.59},
	})
	d := newDirectory(store)

	ctx := context.Background()
	if err := d.GoOffline(ctx, "r1"); err != nil {
		t.Fatalf("go offline: %v", err)
	}
	r, _ := store.GetResponder(ctx, "r1")
	if r.Status != models.ResponderOffline {
		t.Fatalf("expected Offline, got %s", r.Status)
	}
	if r.Location != nil {
		t.Fatal("going offline must clear the stored location")
	}
	list, _ := d.ListAvailable(ctx)
	if len(list) != 0 {
		t.Fatalf("offline responder still in pool: %v", list)
	}
}

func TestUnknownResponderNotFound(t *testing.T) {
	d := newDirectory(storage.NewMemoryStore())
	ctx := context.Background()
	if err := d.GoOnline(ctx, "ghost", models.Coord{Lat: 1, Lon: 1}); !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if err := d.GoOffline(ctx, "ghost"); !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
	if _, err := d.ByUser(ctx, "nobody"); !errs.Is(err, errs.NotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestByUserResolvesProfile(t *testing.T) {
	store := storage.NewMemoryStore()
	store.PutResponder(models.Responder{ID: "r1", UserID: "u1", Status: models.ResponderOffline})
	d := newDirectory(store)

	r, err := d.ByUser(context.Background(), "u1")
	if err != nil {
		t.Fatalf("by user: %v", err)
	}
	if r.ID != "r1" {
		t.Fatalf("expected r1, got %s", r.ID)
	}
}
