package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/example/respondr-dispatch/internal/assignment"
	"github.com/example/respondr-dispatch/internal/directory"
	"github.com/example/respondr-dispatch/internal/matcher"
	"github.com/example/respondr-dispatch/internal/models"
	"github.com/example/respondr-dispatch/internal/notify"
	"github.com/example/respondr-dispatch/internal/storage"
	"github.com/example/respondr-dispatch/internal/tracker"
)

type testEnv struct {
	store  *storage.MemoryStore
	server *Server
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := storage.NewMemoryStore()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	dir := directory.New(store, logger)
	engine := &matcher.Engine{Directory: dir}
	mgr := &assignment.Manager{Store: store, Match: engine, Logger: logger}
	mgr.Reassigner = &assignment.Reassigner{Store: store, Match: engine, Mgr: mgr, Bound: 3, Logger: logger}
	srv := NewServer(Options{
		Store:     store,
		Directory: dir,
		Lifecycle: mgr,
		Tracker:   &tracker.Tracker{Store: store, Logger: logger},
		WSReg:     notify.NewWSRegistry(),
		Logger:    logger,
	})
	return &testEnv{store: store, server: srv}
}

func (e *testEnv) addResponder(id string) {
	e.store.PutResponder(models.Responder{
		ID: id, UserID: "user-" + id,
		Status:   models.ResponderAvailable,
		Location: &models.Coord{Lat: 12.98, Lon: 77.60},
	})
	e.store.PutVehicle(models.Vehicle{ID: "veh-" + id, ResponderID: id})
}

func (e *testEnv) do(t *testing.T, method, path, userID, role string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	if role != "" {
		req.Header.Set("X-Role", role)
	}
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestIdentityGating(t *testing.T) {
	env := newTestEnv(t)

	if rr := env.do(t, "POST", "/api/v1/requests", "", "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("missing identity: expected 401, got %d", rr.Code)
	}
	if rr := env.do(t, "GET", "/api/v1/alerts", "u1", "Public", nil); rr.Code != http.StatusForbidden {
		t.Fatalf("public on admin route: expected 403, got %d", rr.Code)
	}
	if rr := env.do(t, "GET", "/api/v1/responder/pending", "u1", "Public", nil); rr.Code != http.StatusForbidden {
		t.Fatalf("public on responder route: expected 403, got %d", rr.Code)
	}
	// Admin passes every gate.
	if rr := env.do(t, "GET", "/api/v1/alerts", "admin", "Admin", nil); rr.Code != http.StatusOK {
		t.Fatalf("admin on admin route: expected 200, got %d", rr.Code)
	}
}

func TestCreateRequestMatched(t *testing.T) {
	env := newTestEnv(t)
	env.addResponder("r1")

	rr := env.do(t, "POST", "/api/v1/requests", "caller", "Public", map[string]any{
		"kind": "SOS", "latitude": 12.97, "longitude": 77.59,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rr.Code, rr.Body.String())
	}
	out := decode(t, rr)
	if out["request_id"] == "" || out["assignment_id"] == "" {
		t.Fatalf("missing ids in response: %v", out)
	}
	if out["offer"] == nil {
		t.Fatal("expected offer in response")
	}
}

func TestCreateRequestValidation(t *testing.T) {
	env := newTestEnv(t)
	env.addResponder("r1")

	rr := env.do(t, "POST", "/api/v1/requests", "caller", "Public", map[string]any{
		"kind": "Taxi", "latitude": 12.97, "longitude": 77.59,
	})
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	if out := decode(t, rr); out["error"] != "validation" {
		t.Fatalf("expected validation kind, got %v", out["error"])
	}
}

func TestCreateRequestEmptyPoolQueues(t *testing.T) {
	env := newTestEnv(t)

	rr := env.do(t, "POST", "/api/v1/requests", "caller", "Public", map[string]any{
		"kind": "SOS", "latitude": 12.97, "longitude": 77.59,
	})
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rr.Code)
	}
	out := decode(t, rr)
	id, _ := out["request_id"].(string)
	if id == "" {
		t.Fatalf("queued request must still report its id: %v", out)
	}
	// The request is persisted and visible to its owner.
	status := env.do(t, "GET", "/api/v1/requests/"+id, "caller", "Public", nil)
	if status.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", status.Code)
	}
	if out := decode(t, status); out["status"] != "Pending" {
		t.Fatalf("expected Pending, got %v", out["status"])
	}
}

func TestRequestStatusHiddenFromOtherUsers(t *testing.T) {
	env := newTestEnv(t)
	env.addResponder("r1")
	rr := env.do(t, "POST", "/api/v1/requests", "caller", "Public", map[string]any{
		"kind": "SOS", "latitude": 12.97, "longitude": 77.59,
	})
	id := decode(t, rr)["request_id"].(string)

	if got := env.do(t, "GET", "/api/v1/requests/"+id, "stranger", "Public", nil); got.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other user, got %d", got.Code)
	}
	// Admin may inspect any request.
	if got := env.do(t, "GET", "/api/v1/requests/"+id, "admin", "Admin", nil); got.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", got.Code)
	}
}

func TestAcceptFlow(t *testing.T) {
	env := newTestEnv(t)
	env.addResponder("r1")
	rr := env.do(t, "POST", "/api/v1/requests", "caller", "Public", map[string]any{
		"kind": "SOS", "latitude": 12.97, "longitude": 77.59,
	})
	asgID := decode(t, rr)["assignment_id"].(string)

	accept := env.do(t, "POST", "/api/v1/assignments/"+asgID+"/accept", "user-r1", "Responder", nil)
	if accept.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", accept.Code, accept.Body.String())
	}
	// Double accept conflicts.
	again := env.do(t, "POST", "/api/v1/assignments/"+asgID+"/accept", "user-r1", "Responder", nil)
	if again.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", again.Code)
	}
	// Unknown assignment.
	missing := env.do(t, "POST", "/api/v1/assignments/nope/accept", "user-r1", "Responder", nil)
	if missing.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", missing.Code)
	}
}

func TestResponderOnlineOfflineCycle(t *testing.T) {
	env := newTestEnv(t)
	env.store.PutResponder(models.Responder{ID: "r1", UserID: "user-r1", Status: models.ResponderOffline})

	on := env.do(t, "POST", "/api/v1/responder/online", "user-r1", "Responder", map[string]any{
		"latitude": 12.98, "longitude": 77.60,
	})
	if on.Code != http.StatusOK {
		t.Fatalf("online: expected 200, got %d: %s", on.Code, on.Body.String())
	}
	bad := env.do(t, "POST", "/api/v1/responder/online", "user-r1", "Responder", map[string]any{
		"latitude": 95.0, "longitude": 77.60,
	})
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("bad coords: expected 400, got %d", bad.Code)
	}
	off := env.do(t, "POST", "/api/v1/responder/offline", "user-r1", "Responder", nil)
	if off.Code != http.StatusOK {
		t.Fatalf("offline: expected 200, got %d", off.Code)
	}
}

func TestDispatchCompleteFlow(t *testing.T) {
	env := newTestEnv(t)
	env.addResponder("r1")
	rr := env.do(t, "POST", "/api/v1/requests", "caller", "Public", map[string]any{
		"kind": "SOS", "latitude": 12.97, "longitude": 77.59,
	})
	out := decode(t, rr)
	asgID := out["assignment_id"].(string)
	reqID := out["request_id"].(string)

	if accept := env.do(t, "POST", "/api/v1/assignments/"+asgID+"/accept", "user-r1", "Responder", nil); accept.Code != http.StatusOK {
		t.Fatalf("accept: expected 200, got %d", accept.Code)
	}
	done := env.do(t, "POST", "/api/v1/dispatch/complete", "user-r1", "Responder", map[string]any{
		"request_id": reqID,
	})
	if done.Code != http.StatusOK {
		t.Fatalf("complete: expected 200, got %d: %s", done.Code, done.Body.String())
	}
	status := env.do(t, "GET", "/api/v1/requests/"+reqID, "caller", "Public", nil)
	if out := decode(t, status); out["status"] != "Completed" {
		t.Fatalf("expected Completed, got %v", out["status"])
	}
	// Completing again finds no open record.
	again := env.do(t, "POST", "/api/v1/dispatch/complete", "user-r1", "Responder", map[string]any{
		"request_id": reqID,
	})
	if again.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", again.Code)
	}
}

func TestPendingJobsForResponder(t *testing.T) {
	env := newTestEnv(t)
	env.addResponder("r1")
	env.do(t, "POST", "/api/v1/requests", "caller", "Public", map[string]any{
		"kind": "SOS", "latitude": 12.97, "longitude": 77.59,
	})

	rr := env.do(t, "GET", "/api/v1/responder/pending", "user-r1", "Responder", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	out := decode(t, rr)
	jobs, ok := out["jobs"].([]any)
	if !ok || len(jobs) != 1 {
		t.Fatalf("expected 1 pending job, got %v", out["jobs"])
	}
}

func TestCancelRequestByOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "POST", "/api/v1/requests", "caller", "Public", map[string]any{
		"kind": "SOS", "latitude": 12.97, "longitude": 77.59,
	})
	id := decode(t, rr)["request_id"].(string)

	if got := env.do(t, "POST", "/api/v1/requests/"+id+"/cancel", "stranger", "Public", nil); got.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for other user, got %d", got.Code)
	}
	if got := env.do(t, "POST", "/api/v1/requests/"+id+"/cancel", "caller", "Public", nil); got.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", got.Code)
	}
	// A second cancel is a conflict: the request is already terminal.
	if got := env.do(t, "POST", "/api/v1/requests/"+id+"/cancel", "caller", "Public", nil); got.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", got.Code)
	}
}

func TestLocationPingWithoutBrokerOrIndex(t *testing.T) {
	env := newTestEnv(t)
	rr := env.do(t, "POST", "/internal/responder/locations", "", "", map[string]any{
		"responder_id": "r1",
		"loc":          map[string]any{"lat": 12.98, "lon": 77.60},
	})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rr.Code, rr.Body.String())
	}
	bad := env.do(t, "POST", "/internal/responder/locations", "", "", map[string]any{})
	if bad.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", bad.Code)
	}
}
