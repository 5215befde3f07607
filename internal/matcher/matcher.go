// Package matcher selects the best responder for a request location.
package matcher

import (
	"context"
	"time"

	"github.com/example/respondr-dispatch/internal/errs"
	"github.com/example/respondr-dispatch/internal/geo"
	"github.com/example/respondr-dispatch/internal/models"
	"github.com/example/respondr-dispatch/internal/observability"
)

// Directory is the availability source the engine matches over.
type Directory interface {
	ListAvailable(ctx context.Context) ([]models.Responder, error)
}

// Engine picks the Available responder with the smallest great-circle
// distance to the request. Linear scan; fine at ambulance-fleet scale. A
// spatial index can replace the scan behind the same SelectBest contract.
type Engine struct {
	Directory Directory
}

// Match is a selected responder together with its distance to the scene.
type Match struct {
	Responder models.Responder
	DistanceM float64
}

// SelectBest returns the nearest Available responder that has a known
// location. Ties break toward the lexically smaller responder id so
// repeated runs over the same pool are deterministic.
func (e *Engine) SelectBest(ctx context.Context, loc models.Coord) (Match, error) {
	start := time.Now()
	cands, err := e.Directory.ListAvailable(ctx)
	if err != nil {
		return Match{}, err
	}
	var (
		best  *models.Responder
		bestD float64
	)
	for i := range cands {
		c := &cands[i]
		if c.Location == nil {
			continue
		}
		d := geo.Haversine(loc.Lat, loc.Lon, c.Location.Lat, c.Location.Lon)
		if best == nil || d < bestD || (d == bestD && c.ID < best.ID) {
			best = c
			bestD = d
		}
	}
	if best == nil {
		return Match{}, errs.New(errs.NoResponderAvailable, "no available responder with location data")
	}
	observability.MatchLatency.Observe(time.Since(start).Seconds())
	observability.MatchesTotal.Inc()
	return Match{Responder: *best, DistanceM: bestD}, nil
}
