package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/respondr-dispatch/internal/assignment"
	"github.com/example/respondr-dispatch/internal/directory"
	"github.com/example/respondr-dispatch/internal/errs"
	"github.com/example/respondr-dispatch/internal/geo"
	"github.com/example/respondr-dispatch/internal/ingest"
	"github.com/example/respondr-dispatch/internal/models"
	"github.com/example/respondr-dispatch/internal/notify"
	"github.com/example/respondr-dispatch/internal/storage"
	"github.com/example/respondr-dispatch/internal/tracker"
)

// Server wires the dispatch engine behind HTTP. Identity arrives
// pre-verified from the gateway as X-User-ID / X-Role headers; the core
// never re-derives it.
type Server struct {
	Store     storage.Store
	Directory *directory.Directory
	Lifecycle *assignment.Manager
	Tracker   *tracker.Tracker
	Telemetry *geo.Telemetry
	Kafka     *ingest.KafkaProducer
	WSReg     *notify.WSRegistry

	NearbyRadiusM float64

	logger *slog.Logger
	mux    *mux.Router
}

type Options struct {
	Store         storage.Store
	Directory     *directory.Directory
	Lifecycle     *assignment.Manager
	Tracker       *tracker.Tracker
	Telemetry     *geo.Telemetry
	Kafka         *ingest.KafkaProducer
	WSReg         *notify.WSRegistry
	NearbyRadiusM float64
	Logger        *slog.Logger
}

func NewServer(o Options) *Server {
	s := &Server{
		Store:         o.Store,
		Directory:     o.Directory,
		Lifecycle:     o.Lifecycle,
		Tracker:       o.Tracker,
		Telemetry:     o.Telemetry,
		Kafka:         o.Kafka,
		WSReg:         o.WSReg,
		NearbyRadiusM: o.NearbyRadiusM,
		logger:        o.Logger,
		mux:           mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.mux.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/requests", s.requireRole(RolePublic, s.handleCreateRequest)).Methods("POST")
	api.HandleFunc("/requests/{id}", s.requireRole(RolePublic, s.handleRequestStatus)).Methods("GET")
	api.HandleFunc("/requests/{id}/cancel", s.requireRole(RolePublic, s.handleCancelRequest)).Methods("POST")
	api.HandleFunc("/requests/{id}/reject", s.requireRole(RoleResponder, s.handleRejectJob)).Methods("POST")

	api.HandleFunc("/assignments/{id}/accept", s.requireRole(RoleResponder, s.handleAccept)).Methods("POST")
	api.HandleFunc("/assignments/{id}/cancel", s.requireRole(RoleResponder, s.handleCancelAssignment)).Methods("POST")

	api.HandleFunc("/responder/pending", s.requireRole(RoleResponder, s.handleListPending)).Methods("GET")
	api.HandleFunc("/responder/online", s.requireRole(RoleResponder, s.handleGoOnline)).Methods("POST")
	api.HandleFunc("/responder/offline", s.requireRole(RoleResponder, s.handleGoOffline)).Methods("POST")
	api.HandleFunc("/responder/busy", s.requireRole(RoleResponder, s.handleMarkBusy)).Methods("POST")

	api.HandleFunc("/dispatch/{id}/arrived", s.requireRole(RoleResponder, s.handleMarkArrived)).Methods("POST")
	api.HandleFunc("/dispatch/complete", s.requireRole(RoleResponder, s.handleMarkCompleted)).Methods("POST")

	api.HandleFunc("/alerts", s.requireRole(RoleAdmin, s.handleAlerts)).Methods("GET")
	api.HandleFunc("/responders/nearby", s.requireRole(RoleAdmin, s.handleNearby)).Methods("GET")

	s.mux.HandleFunc("/internal/responder/locations", s.handleLocationPing).Methods("POST")
	s.mux.HandleFunc("/ws/{responder_id}", s.handleWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

type createRequestBody struct {
	Kind        string  `json:"kind"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Description string  `json:"description"`
	Destination string  `json:"destination"`
	PhotoURL    string  `json:"photo_url"`
}

func (s *Server) handleCreateRequest(w http.ResponseWriter, r *http.Request) {
	var body createRequestBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, errs.Wrap(errs.Validation, "malformed request body", err))
		return
	}
	res, err := s.Lifecycle.Submit(r.Context(), assignment.SubmitParams{
		UserID:      subjectID(r.Context()),
		Kind:        body.Kind,
		Location:    models.Coord{Lat: body.Latitude, Lon: body.Longitude},
		Description: body.Description,
		Destination: body.Destination,
		PhotoURL:    body.PhotoURL,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if !res.Matched {
		// The request is persisted and stays Pending; surface the empty
		// pool so the caller knows no offer is in flight.
		s.writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"error":      errs.NoResponderAvailable.String(),
			"message":    "no responder available, request queued",
			"request_id": res.Request.ID,
		})
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]any{
		"request_id":    res.Request.ID,
		"assignment_id": res.Assignment.ID,
		"offer":         res.Offer,
	})
}

func (s *Server) handleRequestStatus(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	req, err := s.Store.GetRequest(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	// Public callers only see their own requests.
	if roleFromContext(r.Context()) == RolePublic && req.UserID != subjectID(r.Context()) {
		s.writeError(w, r, errs.New(errs.NotFound, "request not found"))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"request_id": req.ID, "status": req.Status})
}

func (s *Server) handleCancelRequest(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	req, err := s.Store.GetRequest(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.UserID != subjectID(r.Context()) {
		s.writeError(w, r, errs.New(errs.NotFound, "request not found"))
		return
	}
	if err := s.Store.UpdateRequestStatus(r.Context(), id, models.RequestPending, models.RequestCancelled); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"message": "request cancelled"})
}

func (s *Server) handleRejectJob(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.Lifecycle.Reject(r.Context(), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"message": "job rejected"})
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	resp, err := s.responderForSubject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	rec, err := s.Lifecycle.Accept(r.Context(), mux.Vars(r)["id"], resp.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"message": "assignment accepted", "dispatch": rec})
}

func (s *Server) handleCancelAssignment(w http.ResponseWriter, r *http.Request) {
	resp, err := s.responderForSubject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	next, err := s.Lifecycle.Cancel(r.Context(), mux.Vars(r)["id"], resp.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	out := map[string]any{"message": "assignment cancelled, request reassigned"}
	if next != nil {
		out["next_assignment_id"] = next.ID
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	resp, err := s.responderForSubject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	jobs, err := s.Store.ListPendingForResponder(r.Context(), resp.ID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if jobs == nil {
		jobs = []storage.PendingJob{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

type locationBody struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

func (s *Server) handleGoOnline(w http.ResponseWriter, r *http.Request) {
	var body locationBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, errs.Wrap(errs.Validation, "malformed request body", err))
		return
	}
	resp, err := s.responderForSubject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Directory.GoOnline(r.Context(), resp.ID, models.Coord{Lat: body.Latitude, Lon: body.Longitude}); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"message": "responder available"})
}

func (s *Server) handleGoOffline(w http.ResponseWriter, r *http.Request) {
	resp, err := s.responderForSubject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Directory.GoOffline(r.Context(), resp.ID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"message": "responder offline"})
}

func (s *Server) handleMarkBusy(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequestID string `json:"request_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RequestID == "" {
		s.writeError(w, r, errs.New(errs.Validation, "request_id required"))
		return
	}
	resp, err := s.responderForSubject(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.Lifecycle.ForceAssign(r.Context(), resp.ID, body.RequestID); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"message": "responder busy, request assigned"})
}

func (s *Server) handleMarkArrived(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ArrivedAt time.Time `json:"arrived_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.writeError(w, r, errs.Wrap(errs.Validation, "malformed request body", err))
		return
	}
	if body.ArrivedAt.IsZero() {
		body.ArrivedAt = time.Now()
	}
	if err := s.Tracker.MarkArrived(r.Context(), mux.Vars(r)["id"], body.ArrivedAt); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"message": "arrival recorded"})
}

func (s *Server) handleMarkCompleted(w http.ResponseWriter, r *http.Request) {
	var body struct {
		RequestID   string    `json:"request_id"`
		ArrivedAt   time.Time `json:"arrived_at"`
		CompletedAt time.Time `json:"completed_at"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.RequestID == "" {
		s.writeError(w, r, errs.New(errs.Validation, "request_id required"))
		return
	}
	now := time.Now()
	if body.ArrivedAt.IsZero() {
		body.ArrivedAt = now
	}
	if body.CompletedAt.IsZero() {
		body.CompletedAt = now
	}
	rec, err := s.Tracker.MarkCompleted(r.Context(), body.RequestID, body.ArrivedAt, body.CompletedAt)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"message": "dispatch completed", "dispatch": rec})
}

func (s *Server) handleAlerts(w http.ResponseWriter, r *http.Request) {
	alerts, err := s.Store.ListAlerts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if alerts == nil {
		alerts = []storage.Alert{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"notifications": alerts})
}

func (s *Server) handleNearby(w http.ResponseWriter, r *http.Request) {
	if s.Telemetry == nil {
		s.writeError(w, r, errs.New(errs.DependencyMissing, "telemetry index not configured"))
		return
	}
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err1 != nil || err2 != nil {
		s.writeError(w, r, errs.New(errs.Validation, "lat and lon query params required"))
		return
	}
	pings, err := s.Telemetry.Nearby(r.Context(), lat, lon, s.NearbyRadiusM, 20)
	if err != nil {
		s.writeError(w, r, errs.Wrap(errs.StoreFailure, "telemetry query failed", err))
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"responders": pings})
}

func (s *Server) handleLocationPing(w http.ResponseWriter, r *http.Request) {
	var p models.LocationPing
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil || p.ResponderID == "" {
		s.writeError(w, r, errs.New(errs.Validation, "responder_id required"))
		return
	}
	if err := directory.ValidateCoord(p.Loc); err != nil {
		s.writeError(w, r, err)
		return
	}
	if p.RecordedAt.IsZero() {
		p.RecordedAt = time.Now()
	}
	if s.Kafka != nil {
		if err := s.Kafka.PublishPing(p); err != nil {
			s.logger.Warn("location ping publish failed", "responder_id", p.ResponderID, "error", err)
		}
	} else if s.Telemetry != nil {
		// No broker configured: write the index directly.
		if err := s.Telemetry.Record(r.Context(), p); err != nil {
			s.logger.Warn("telemetry record failed", "responder_id", p.ResponderID, "error", err)
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["responder_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.WSReg.Add(id, conn)
}

// responderForSubject resolves the responder profile behind the verified
// subject id on the request.
func (s *Server) responderForSubject(r *http.Request) (*models.Responder, error) {
	return s.Directory.ByUser(r.Context(), subjectID(r.Context()))
}
