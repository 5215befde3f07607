package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/respondr-dispatch/internal/models"
)

// fakeSink implements pingSink for tests
type fakeSink struct {
	fail  int // number of times to fail before succeeding
	calls int
}

func (f *fakeSink) Record(ctx context.Context, p models.LocationPing) error {
	f.calls++
	if f.calls <= f.fail {
		return errors.New("index fail")
	}
	return nil
}

func TestRecordWithRetry_SucceedsAfterRetries(t *testing.T) {
	f := &fakeSink{fail: 2}
	p := models.LocationPing{ResponderID: "r1", Loc: models.Coord{Lat: 1, Lon: 2}}
	start := time.Now()
	if err := recordWithRetry(context.Background(), f, p, 3, 10*time.Millisecond); err != nil {
		t.Fatalf("expected success, got err=%v", err)
	}
	if f.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", f.calls)
	}
	if time.Since(start) < 10*time.Millisecond {
		t.Fatalf("expected at least one backoff")
	}
}

func TestRecordWithRetry_FailsWhenExhausted(t *testing.T) {
	f := &fakeSink{fail: 5}
	p := models.LocationPing{ResponderID: "r1", Loc: models.Coord{Lat: 1, Lon: 2}}
	if err := recordWithRetry(context.Background(), f, p, 3, 5*time.Millisecond); err == nil {
		t.Fatalf("expected error after retries")
	}
}
