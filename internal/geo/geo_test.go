package geo

import "testing"

func TestHaversineZero(t *testing.T) {
	d := Haversine(12.97, 77.59, 12.97, 77.59)
	if d != 0 {
		t.Fatalf("expected 0, got %f", d)
	}
}

func TestHaversineKnownDistance(t *testing.T) {
	// Bangalore city center to Whitefield, roughly 15.5 km.
	d := Haversine(12.9716, 77.5946, 12.9698, 77.7500)
	if d < 15000 || d > 18000 {
		t.Fatalf("expected ~16km, got %f", d)
	}
}
