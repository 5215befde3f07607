package geo

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/respondr-dispatch/internal/models"
)

// Telemetry is the advisory live-location index fed by the ingest
// pipeline. It backs ops queries only; the matcher always reads the
// authoritative directory instead.
type Telemetry struct {
	client *redis.Client
	key    string
}

func NewTelemetry(addr, password, key string) *Telemetry {
	c := redis.NewClient(&redis.Options{Addr: addr, Password: password})
	return &Telemetry{client: c, key: key}
}

// NewTelemetryWithClient is used by the consumer, which owns its client.
func NewTelemetryWithClient(c *redis.Client, key string) *Telemetry {
	return &Telemetry{client: c, key: key}
}

// Record stores the latest known position of a responder.
func (t *Telemetry) Record(ctx context.Context, ping models.LocationPing) error {
	if err := t.client.GeoAdd(ctx, t.key, &redis.GeoLocation{
		Longitude: ping.Loc.Lon,
		Latitude:  ping.Loc.Lat,
		Name:      ping.ResponderID,
	}).Err(); err != nil {
		return err
	}
	return t.client.HSet(ctx, metaKey(ping.ResponderID), map[string]interface{}{
		"recorded_at": ping.RecordedAt.Format(time.RFC3339),
	}).Err()
}

// Nearby lists responders last seen within radiusM meters of a point,
// closest first.
func (t *Telemetry) Nearby(ctx context.Context, lat, lon, radiusM float64, limit int) ([]models.LocationPing, error) {
	res, err := t.client.GeoRadius(ctx, t.key, lon, lat, &redis.GeoRadiusQuery{
		Radius: radiusM, Unit: "m", WithCoord: true, WithDist: true, Count: limit, Sort: "ASC",
	}).Result()
	if err != nil {
		return nil, err
	}
	out := make([]models.LocationPing, 0, len(res))
	for _, g := range res {
		p := models.LocationPing{ResponderID: g.Name}
		p.Loc.Lat = g.Latitude
		p.Loc.Lon = g.Longitude
		if m, err := t.client.HGetAll(ctx, metaKey(g.Name)).Result(); err == nil {
			if v, ok := m["recorded_at"]; ok {
				if ts, err := time.Parse(time.RFC3339, v); err == nil {
					p.RecordedAt = ts
				}
			}
		}
		out = append(out, p)
	}
	return out, nil
}

// Ping checks connectivity for readiness probes.
func (t *Telemetry) Ping(ctx context.Context) error {
	return t.client.Ping(ctx).Err()
}

func (t *Telemetry) Close() error { return t.client.Close() }

func metaKey(id string) string { return "responder:meta:" + id }
