package matcher

import (
	"context"
	"testing"

	"github.com/example/respondr-dispatch/internal/errs"
	"github.com/example/respondr-dispatch/internal/models"
)

type fakeDirectory struct{ responders []models.Responder }

func (f *fakeDirectory) ListAvailable(ctx context.Context) ([]models.Responder, error) {
	return f.responders, nil
}

func loc(lat, lon float64) *models.Coord { return &models.Coord{Lat: lat, Lon: lon} }

func TestSelectBestPicksNearest(t *testing.T) {
	// Request in central Bangalore; one responder ~2km away, one ~9km.
	d := &fakeDirectory{responders: []models.Responder{
		{ID: "far", Status: models.ResponderAvailable, Location: loc(13.0450, 77.6200)},
		{ID: "near", Status: models.ResponderAvailable, Location: loc(12.9850, 77.6000)},
	}}
	e := &Engine{Directory: d}
	m, err := e.SelectBest(context.Background(), models.Coord{Lat: 12.97, Lon: 77.59})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Responder.ID != "near" {
		t.Fatalf("expected near, got %s", m.Responder.ID)
	}
	if m.DistanceM <= 0 || m.DistanceM > 3000 {
		t.Fatalf("unexpected distance %f", m.DistanceM)
	}
}

func TestSelectBestEmptyPool(t *testing.T) {
	e := &Engine{Directory: &fakeDirectory{}}
	_, err := e.SelectBest(context.Background(), models.Coord{Lat: 12.97, Lon: 77.59})
	if !errs.Is(err, errs.NoResponderAvailable) {
		t.Fatalf("expected NoResponderAvailable, got %v", err)
	}
}

func TestSelectBestSkipsMissingLocation(t *testing.T) {
	d := &fakeDirectory{responders: []models.Responder{
		{ID: "nowhere", Status: models.ResponderAvailable},
	}}
	e := &Engine{Directory: d}
	_, err := e.SelectBest(context.Background(), models.Coord{Lat: 12.97, Lon: 77.59})
	if !errs.Is(err, errs.NoResponderAvailable) {
		t.Fatalf("expected NoResponderAvailable, got %v", err)
	}
}

func TestSelectBestTieBreaksByID(t *testing.T) {
	same := loc(12.98, 77.60)
	d := &fakeDirectory{responders: []models.Responder{
		{ID: "b", Status: models.ResponderAvailable, Location: same},
		{ID: "a", Status: models.ResponderAvailable, Location: same},
	}}
	e := &Engine{Directory: d}
	m, err := e.SelectBest(context.Background(), models.Coord{Lat: 12.97, Lon: 77.59})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m.Responder.ID != "a" {
		t.Fatalf("expected a, got %s", m.Responder.ID)
	}
}
