package models

import (
	"fmt"
	"strings"
	"time"
)

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// RequestKind distinguishes a raw emergency alert from a scheduled
// ambulance booking. Bookings carry a destination, SOS requests do not.
type RequestKind string

const (
	KindSOS     RequestKind = "SOS"
	KindBooking RequestKind = "Booking"
)

type RequestStatus string

const (
	RequestPending   RequestStatus = "Pending"
	RequestAssigned  RequestStatus = "Assigned"
	RequestCancelled RequestStatus = "Cancelled"
	RequestCompleted RequestStatus = "Completed"
)

// Terminal reports whether no further transition may leave the status.
func (s RequestStatus) Terminal() bool {
	return s == RequestCancelled || s == RequestCompleted
}

type ResponderStatus string

const (
	ResponderOffline   ResponderStatus = "Offline"
	ResponderAvailable ResponderStatus = "Available"
	ResponderBusy      ResponderStatus = "Busy"
)

type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "Pending"
	AssignmentAccepted  AssignmentStatus = "Accepted"
	AssignmentCancelled AssignmentStatus = "Cancelled"
)

type DispatchStatus string

const (
	DispatchDispatched DispatchStatus = "Dispatched"
	DispatchCompleted  DispatchStatus = "Completed"
)

// Request is a submitted emergency or booking job waiting for a responder.
type Request struct {
	ID          string        `json:"id"`
	UserID      string        `json:"user_id"`
	Kind        RequestKind   `json:"kind"`
	Location    Coord         `json:"location"`
	Description string        `json:"description,omitempty"`
	Destination string        `json:"destination,omitempty"`
	PhotoURL    string        `json:"photo_url,omitempty"`
	Status      RequestStatus `json:"status"`
	PaymentRef  string        `json:"-"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Responder is a mobile unit that can be matched to a Request. Location is
// meaningful only while Available; going offline clears it.
type Responder struct {
	ID       string          `json:"id"`
	UserID   string          `json:"user_id"`
	Status   ResponderStatus `json:"status"`
	Location *Coord          `json:"location,omitempty"`
}

// Assignment is one offer of a Request to a specific Responder. A Request
// accumulates one Assignment per matching attempt; at most one may be
// Pending at any instant.
type Assignment struct {
	ID          string           `json:"id"`
	RequestID   string           `json:"request_id"`
	ResponderID string           `json:"responder_id"`
	Status      AssignmentStatus `json:"status"`
	CreatedAt   time.Time        `json:"created_at"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`
}

// Vehicle is the unit a responder operates. Accepting an assignment
// resolves the responder's vehicle; a responder without one cannot accept.
type Vehicle struct {
	ID          string `json:"id"`
	ResponderID string `json:"responder_id"`
	Callsign    string `json:"callsign"`
}

// DispatchRecord tracks an accepted Assignment through dispatch, arrival
// and completion. Exactly one exists per Accepted Assignment.
type DispatchRecord struct {
	ID           string         `json:"id"`
	ResponderID  string         `json:"responder_id"`
	VehicleID    string         `json:"vehicle_id"`
	RequestID    string         `json:"request_id"`
	AssignmentID string         `json:"assignment_id"`
	Status       DispatchStatus `json:"status"`
	DispatchedAt time.Time      `json:"dispatched_at"`
	ArrivedAt    *time.Time     `json:"arrived_at,omitempty"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
}

// AssignmentOffer is what gets pushed to a responder when an assignment is
// created for them.
type AssignmentOffer struct {
	AssignmentID string      `json:"assignment_id"`
	RequestID    string      `json:"request_id"`
	Kind         RequestKind `json:"kind"`
	Location     Coord       `json:"location"`
	Description  string      `json:"description,omitempty"`
	PhotoURL     string      `json:"photo_url,omitempty"`
	DistanceM    float64     `json:"distance_m"`
	ETASeconds   float64     `json:"eta_seconds"`
}

// LocationPing is high-frequency responder telemetry flowing through the
// ingest pipeline. It feeds the advisory geo index, never the matcher.
type LocationPing struct {
	ResponderID string    `json:"responder_id"`
	Loc         Coord     `json:"loc"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// ParseResponderStatus normalizes a stored status value. Rows written by
// earlier revisions of the system carry lowercase values ("available"),
// so parsing is case-insensitive.
func ParseResponderStatus(v string) (ResponderStatus, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "offline":
		return ResponderOffline, nil
	case "available":
		return ResponderAvailable, nil
	case "busy":
		return ResponderBusy, nil
	}
	return "", fmt.Errorf("unknown responder status %q", v)
}

// ParseRequestKind validates an inbound request kind.
func ParseRequestKind(v string) (RequestKind, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "sos":
		return KindSOS, nil
	case "booking":
		return KindBooking, nil
	}
	return "", fmt.Errorf("unknown request kind %q", v)
}
