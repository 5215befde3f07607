// Package directory is the authoritative availability and location state
// for responders. Every call reads or writes the backing store directly;
// there is deliberately no in-memory cache, so the matcher never sees a
// stale availability set.
package directory

import (
	"context"
	"log/slog"

	"github.com/example/respondr-dispatch/internal/errs"
	"github.com/example/respondr-dispatch/internal/models"
	"github.com/example/respondr-dispatch/internal/observability"
	"github.com/example/respondr-dispatch/internal/storage"
)

type Directory struct {
	store  storage.Store
	logger *slog.Logger
}

func New(store storage.Store, logger *slog.Logger) *Directory {
	return &Directory{store: store, logger: logger}
}

// ListAvailable returns every responder that is Available with a known
// location.
func (d *Directory) ListAvailable(ctx context.Context) ([]models.Responder, error) {
	return d.store.ListAvailableResponders(ctx)
}

// ByUser resolves the responder profile behind a verified subject id.
func (d *Directory) ByUser(ctx context.Context, userID string) (*models.Responder, error) {
	return d.store.GetResponderByUser(ctx, userID)
}

// GoOnline marks a responder Available at the given position. A location
// is mandatory for this transition.
func (d *Directory) GoOnline(ctx context.Context, responderID string, loc models.Coord) error {
	if err := ValidateCoord(loc); err != nil {
		return err
	}
	if err := d.store.SetResponderStatus(ctx, responderID, models.ResponderAvailable, &loc); err != nil {
		return err
	}
	observability.RespondersOnline.Inc()
	d.logger.Info("responder online", "responder_id", responderID)
	return nil
}

// GoOffline takes a responder out of the pool and clears its position.
func (d *Directory) GoOffline(ctx context.Context, responderID string) error {
	if err := d.store.SetResponderStatus(ctx, responderID, models.ResponderOffline, nil); err != nil {
		return err
	}
	observability.RespondersOnline.Dec()
	d.logger.Info("responder offline", "responder_id", responderID)
	return nil
}

// SetBusy is invoked only by the lifecycle manager and the force-assign
// path, never by responders directly.
func (d *Directory) SetBusy(ctx context.Context, responderID string) error {
	return d.store.SetResponderStatus(ctx, responderID, models.ResponderBusy, nil)
}

// ValidateCoord rejects out-of-range coordinates before any mutation.
func ValidateCoord(c models.Coord) error {
	if c.Lat < -90 || c.Lat > 90 {
		return errs.Newf(errs.Validation, "latitude %.4f out of range", c.Lat)
	}
	if c.Lon < -180 || c.Lon > 180 {
		return errs.Newf(errs.Validation, "longitude %.4f out of range", c.Lon)
	}
	return nil
}
