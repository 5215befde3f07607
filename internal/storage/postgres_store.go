package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/example/respondr-dispatch/internal/errs"
	"github.com/example/respondr-dispatch/internal/models"
)

// PostgresStore implements Store over database/sql with lib/pq. Every
// query is parameterized; multi-step mutations run inside a single
// transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing handle; the caller keeps
// ownership of the connection pool.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (p *PostgresStore) Close() error { return p.db.Close() }

func (p *PostgresStore) CreateRequest(ctx context.Context, r *models.Request) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO requests(request_id, user_id, kind, latitude, longitude, description, destination, photo_url, status, payment_ref, created_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		r.ID, r.UserID, string(r.Kind), r.Location.Lat, r.Location.Lon,
		nullIfEmpty(r.Description), nullIfEmpty(r.Destination), nullIfEmpty(r.PhotoURL),
		string(r.Status), nullIfEmpty(r.PaymentRef), r.CreatedAt)
	if err != nil {
		return errs.Wrap(errs.StoreFailure, "insert request", err)
	}
	return nil
}

func (p *PostgresStore) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	row := p.db.QueryRowContext(ctx,
		`SELECT request_id, user_id, kind, latitude, longitude, description, destination, photo_url, status, payment_ref, created_at
		 FROM requests WHERE request_id=$1`, id)
	return scanRequest(row)
}

func (p *PostgresStore) UpdateRequestStatus(ctx context.Context, id string, from, to models.RequestStatus) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE requests SET status=$1 WHERE request_id=$2 AND status=$3`,
		string(to), id, string(from))
	if err != nil {
		return errs.Wrap(errs.StoreFailure, "update request status", err)
	}
	return p.guardRequestRow(ctx, res, id)
}

func (p *PostgresStore) TerminateRequest(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE requests SET status=$1 WHERE request_id=$2 AND status NOT IN ($3,$4)`,
		string(models.RequestCancelled), id,
		string(models.RequestCancelled), string(models.RequestCompleted))
	if err != nil {
		return errs.Wrap(errs.StoreFailure, "terminate request", err)
	}
	return p.guardRequestRow(ctx, res, id)
}

// guardRequestRow distinguishes "no such request" from "request in the
// wrong state" after a conditional update touched zero rows.
func (p *PostgresStore) guardRequestRow(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.StoreFailure, "rows affected", err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM requests WHERE request_id=$1)`, id).Scan(&exists); err != nil {
		return errs.Wrap(errs.StoreFailure, "check request", err)
	}
	if !exists {
		return errs.New(errs.NotFound, "request not found")
	}
	return errs.New(errs.Conflict, "request not in an eligible status")
}

func (p *PostgresStore) SetRequestPaymentRef(ctx context.Context, id, ref string) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE requests SET payment_ref=$1 WHERE request_id=$2`, ref, id)
	if err != nil {
		return errs.Wrap(errs.StoreFailure, "set payment ref", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.New(errs.NotFound, "request not found")
	}
	return nil
}

func (p *PostgresStore) ListAlerts(ctx context.Context) ([]Alert, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT request_id, user_id, kind, latitude, longitude, description, destination, photo_url, status, payment_ref, created_at
		 FROM requests WHERE kind=$1 ORDER BY created_at DESC`, string(models.KindSOS))
	if err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "list alerts", err)
	}
	defer rows.Close()
	var out []Alert
	for rows.Next() {
		r, err := scanRequestRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, Alert{Request: *r, UserID: r.UserID})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "list alerts", err)
	}
	return out, nil
}

func (p *PostgresStore) GetResponder(ctx context.Context, id string) (*models.Responder, error) {
	return scanResponder(p.db.QueryRowContext(ctx,
		`SELECT responder_id, user_id, status, latitude, longitude FROM responders WHERE responder_id=$1`, id))
}

func (p *PostgresStore) GetResponderByUser(ctx context.Context, userID string) (*models.Responder, error) {
	return scanResponder(p.db.QueryRowContext(ctx,
		`SELECT responder_id, user_id, status, latitude, longitude FROM responders WHERE user_id=$1`, userID))
}

func (p *PostgresStore) ListAvailableResponders(ctx context.Context) ([]models.Responder, error) {
	// Case-insensitive status match: rows written by earlier revisions
	// carry lowercase values.
	rows, err := p.db.QueryContext(ctx,
		`SELECT responder_id, user_id, status, latitude, longitude
		 FROM responders
		 WHERE LOWER(status)=LOWER($1) AND latitude IS NOT NULL AND longitude IS NOT NULL`,
		string(models.ResponderAvailable))
	if err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "list available responders", err)
	}
	defer rows.Close()
	var out []models.Responder
	for rows.Next() {
		r, err := scanResponderRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "list available responders", err)
	}
	return out, nil
}

func (p *PostgresStore) SetResponderStatus(ctx context.Context, id string, status models.ResponderStatus, loc *models.Coord) error {
	var res sql.Result
	var err error
	if loc != nil {
		res, err = p.db.ExecContext(ctx,
			`UPDATE responders SET status=$1, latitude=$2, longitude=$3 WHERE responder_id=$4`,
			string(status), loc.Lat, loc.Lon, id)
	} else if status == models.ResponderOffline {
		// Going offline clears the last known position in the same
		// statement so no stale location survives the transition.
		res, err = p.db.ExecContext(ctx,
			`UPDATE responders SET status=$1, latitude=NULL, longitude=NULL WHERE responder_id=$2`,
			string(status), id)
	} else {
		res, err = p.db.ExecContext(ctx,
			`UPDATE responders SET status=$1 WHERE responder_id=$2`, string(status), id)
	}
	if err != nil {
		return errs.Wrap(errs.StoreFailure, "set responder status", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.New(errs.NotFound, "responder not found")
	}
	return nil
}

func (p *PostgresStore) RefreshResponderLocation(ctx context.Context, id string, loc models.Coord) error {
	_, err := p.db.ExecContext(ctx,
		`UPDATE responders SET latitude=$1, longitude=$2 WHERE responder_id=$3 AND LOWER(status)=LOWER($4)`,
		loc.Lat, loc.Lon, id, string(models.ResponderAvailable))
	if err != nil {
		return errs.Wrap(errs.StoreFailure, "refresh responder location", err)
	}
	return nil
}

func (p *PostgresStore) CreateAssignment(ctx context.Context, a *models.Assignment) error {
	_, err := p.db.ExecContext(ctx,
		`INSERT INTO assignments(assignment_id, request_id, responder_id, status, created_at)
		 VALUES($1,$2,$3,$4,$5)`,
		a.ID, a.RequestID, a.ResponderID, string(a.Status), a.CreatedAt)
	if err != nil {
		return errs.Wrap(errs.StoreFailure, "insert assignment", err)
	}
	return nil
}

func (p *PostgresStore) GetAssignment(ctx context.Context, id string) (*models.Assignment, error) {
	return scanAssignment(p.db.QueryRowContext(ctx,
		`SELECT assignment_id, request_id, responder_id, status, created_at, responded_at
		 FROM assignments WHERE assignment_id=$1`, id))
}

func (p *PostgresStore) CountAssignments(ctx context.Context, requestID string) (int, error) {
	var n int
	if err := p.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assignments WHERE request_id=$1`, requestID).Scan(&n); err != nil {
		return 0, errs.Wrap(errs.StoreFailure, "count assignments", err)
	}
	return n, nil
}

func (p *PostgresStore) CancelAssignment(ctx context.Context, id string, now time.Time) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE assignments SET status=$1, responded_at=$2 WHERE assignment_id=$3 AND status=$4`,
		string(models.AssignmentCancelled), now, id, string(models.AssignmentPending))
	if err != nil {
		return errs.Wrap(errs.StoreFailure, "cancel assignment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.StoreFailure, "rows affected", err)
	}
	if n > 0 {
		return nil
	}
	var exists bool
	if err := p.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM assignments WHERE assignment_id=$1)`, id).Scan(&exists); err != nil {
		return errs.Wrap(errs.StoreFailure, "check assignment", err)
	}
	if !exists {
		return errs.New(errs.NotFound, "assignment not found")
	}
	return errs.New(errs.Conflict, "assignment is not pending")
}

func (p *PostgresStore) AcceptAssignment(ctx context.Context, params AcceptParams) (*models.DispatchRecord, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "begin accept", err)
	}
	defer tx.Rollback()

	// Conditional transition: only one of two concurrent accepts can move
	// the row out of Pending; the loser sees zero rows and gets Conflict.
	res, err := tx.ExecContext(ctx,
		`UPDATE assignments SET status=$1, responded_at=$2
		 WHERE assignment_id=$3 AND responder_id=$4 AND status=$5`,
		string(models.AssignmentAccepted), params.Now,
		params.AssignmentID, params.ResponderID, string(models.AssignmentPending))
	if err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "accept assignment", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "rows affected", err)
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM assignments WHERE assignment_id=$1)`, params.AssignmentID).Scan(&exists); err != nil {
			return nil, errs.Wrap(errs.StoreFailure, "check assignment", err)
		}
		if !exists {
			return nil, errs.New(errs.NotFound, "assignment not found")
		}
		return nil, errs.New(errs.Conflict, "assignment is not pending or belongs to another responder")
	}

	var requestID string
	if err := tx.QueryRowContext(ctx,
		`SELECT request_id FROM assignments WHERE assignment_id=$1`, params.AssignmentID).Scan(&requestID); err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "load assignment request", err)
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE requests SET status=$1 WHERE request_id=$2 AND status=$3`,
		string(models.RequestAssigned), requestID, string(models.RequestPending))
	if err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "assign request", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errs.New(errs.Conflict, "request is no longer pending")
	}

	var vehicleID string
	err = tx.QueryRowContext(ctx,
		`SELECT vehicle_id FROM vehicles WHERE responder_id=$1`, params.ResponderID).Scan(&vehicleID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.DependencyMissing, "no vehicle registered for responder")
	}
	if err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "resolve vehicle", err)
	}

	rec := &models.DispatchRecord{
		ID:           uuid.NewString(),
		ResponderID:  params.ResponderID,
		VehicleID:    vehicleID,
		RequestID:    requestID,
		AssignmentID: params.AssignmentID,
		Status:       models.DispatchDispatched,
		DispatchedAt: params.Now,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO dispatch_records(dispatch_id, responder_id, vehicle_id, request_id, assignment_id, status, dispatched_at)
		 VALUES($1,$2,$3,$4,$5,$6,$7)`,
		rec.ID, rec.ResponderID, rec.VehicleID, rec.RequestID, rec.AssignmentID,
		string(rec.Status), rec.DispatchedAt); err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "insert dispatch record", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE responders SET status=$1 WHERE responder_id=$2`,
		string(models.ResponderBusy), params.ResponderID); err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "mark responder busy", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "commit accept", err)
	}
	return rec, nil
}

func (p *PostgresStore) ListPendingForResponder(ctx context.Context, responderID string) ([]PendingJob, error) {
	rows, err := p.db.QueryContext(ctx,
		`SELECT a.assignment_id, a.request_id, a.responder_id, a.status, a.created_at, a.responded_at,
		        r.request_id, r.user_id, r.kind, r.latitude, r.longitude, r.description, r.destination, r.photo_url, r.status, r.payment_ref, r.created_at
		 FROM assignments a
		 JOIN requests r ON r.request_id = a.request_id
		 WHERE a.responder_id=$1 AND a.status=$2 AND r.status=$3
		 ORDER BY a.created_at DESC`,
		responderID, string(models.AssignmentPending), string(models.RequestPending))
	if err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "list pending jobs", err)
	}
	defer rows.Close()
	var out []PendingJob
	for rows.Next() {
		var (
			a                            models.Assignment
			r                            models.Request
			aStatus, rKind, rStatus      string
			respondedAt                  sql.NullTime
			desc, dest, photoURL, payRef sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.RequestID, &a.ResponderID, &aStatus, &a.CreatedAt, &respondedAt,
			&r.ID, &r.UserID, &rKind, &r.Location.Lat, &r.Location.Lon, &desc, &dest, &photoURL, &rStatus, &payRef, &r.CreatedAt); err != nil {
			return nil, errs.Wrap(errs.StoreFailure, "scan pending job", err)
		}
		a.Status = models.AssignmentStatus(aStatus)
		if respondedAt.Valid {
			t := respondedAt.Time
			a.RespondedAt = &t
		}
		r.Kind = models.RequestKind(rKind)
		r.Status = models.RequestStatus(rStatus)
		r.Description = desc.String
		r.Destination = dest.String
		r.PhotoURL = photoURL.String
		r.PaymentRef = payRef.String
		out = append(out, PendingJob{Assignment: a, Request: r})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "list pending jobs", err)
	}
	return out, nil
}

func (p *PostgresStore) GetVehicleByResponder(ctx context.Context, responderID string) (*models.Vehicle, error) {
	var v models.Vehicle
	err := p.db.QueryRowContext(ctx,
		`SELECT vehicle_id, responder_id, callsign FROM vehicles WHERE responder_id=$1`, responderID).
		Scan(&v.ID, &v.ResponderID, &v.Callsign)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "vehicle not found")
	}
	if err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "get vehicle", err)
	}
	return &v, nil
}

func (p *PostgresStore) MarkArrived(ctx context.Context, dispatchID string, at time.Time) error {
	res, err := p.db.ExecContext(ctx,
		`UPDATE dispatch_records SET arrived_at=$1 WHERE dispatch_id=$2 AND status=$3`,
		at, dispatchID, string(models.DispatchDispatched))
	if err != nil {
		return errs.Wrap(errs.StoreFailure, "mark arrived", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.New(errs.NotFound, "no open dispatch record")
	}
	return nil
}

func (p *PostgresStore) CompleteDispatch(ctx context.Context, requestID string, arrivedAt, completedAt time.Time) (*models.DispatchRecord, error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "begin complete", err)
	}
	defer tx.Rollback()

	rec := &models.DispatchRecord{}
	var status string
	var arr, comp sql.NullTime
	err = tx.QueryRowContext(ctx,
		`UPDATE dispatch_records SET arrived_at=COALESCE(arrived_at,$1), completed_at=$2, status=$3
		 WHERE request_id=$4 AND status=$5
		 RETURNING dispatch_id, responder_id, vehicle_id, request_id, assignment_id, status, dispatched_at, arrived_at, completed_at`,
		arrivedAt, completedAt, string(models.DispatchCompleted),
		requestID, string(models.DispatchDispatched)).
		Scan(&rec.ID, &rec.ResponderID, &rec.VehicleID, &rec.RequestID, &rec.AssignmentID,
			&status, &rec.DispatchedAt, &arr, &comp)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "no open dispatch record for request")
	}
	if err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "close dispatch record", err)
	}
	rec.Status = models.DispatchStatus(status)
	if arr.Valid {
		t := arr.Time
		rec.ArrivedAt = &t
	}
	if comp.Valid {
		t := comp.Time
		rec.CompletedAt = &t
	}

	// Location is retained on return to the pool so the responder is
	// immediately matchable again.
	if _, err := tx.ExecContext(ctx,
		`UPDATE responders SET status=$1 WHERE responder_id=$2`,
		string(models.ResponderAvailable), rec.ResponderID); err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "free responder", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE requests SET status=$1 WHERE request_id=$2`,
		string(models.RequestCompleted), requestID); err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "complete request", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "commit complete", err)
	}
	return rec, nil
}

func (p *PostgresStore) ForceAssign(ctx context.Context, responderID, requestID string) error {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return errs.Wrap(errs.StoreFailure, "begin force assign", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE responders SET status=$1 WHERE responder_id=$2`,
		string(models.ResponderBusy), responderID)
	if err != nil {
		return errs.Wrap(errs.StoreFailure, "mark responder busy", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errs.New(errs.NotFound, "responder not found")
	}

	res, err = tx.ExecContext(ctx,
		`UPDATE requests SET status=$1 WHERE request_id=$2 AND status=$3`,
		string(models.RequestAssigned), requestID, string(models.RequestPending))
	if err != nil {
		return errs.Wrap(errs.StoreFailure, "assign request", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errs.Wrap(errs.StoreFailure, "rows affected", err)
	}
	if n == 0 {
		var exists bool
		if err := tx.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM requests WHERE request_id=$1)`, requestID).Scan(&exists); err != nil {
			return errs.Wrap(errs.StoreFailure, "check request", err)
		}
		if !exists {
			return errs.New(errs.NotFound, "request not found")
		}
		return errs.New(errs.Conflict, "request is not pending")
	}

	if err := tx.Commit(); err != nil {
		return errs.Wrap(errs.StoreFailure, "commit force assign", err)
	}
	return nil
}

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row *sql.Row) (*models.Request, error) {
	r, err := scanRequestFrom(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "request not found")
	}
	return r, err
}

func scanRequestRows(rows *sql.Rows) (*models.Request, error) {
	return scanRequestFrom(rows)
}

func scanRequestFrom(s rowScanner) (*models.Request, error) {
	var (
		r                            models.Request
		kind, status                 string
		desc, dest, photoURL, payRef sql.NullString
	)
	if err := s.Scan(&r.ID, &r.UserID, &kind, &r.Location.Lat, &r.Location.Lon,
		&desc, &dest, &photoURL, &status, &payRef, &r.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errs.Wrap(errs.StoreFailure, "scan request", err)
	}
	r.Kind = models.RequestKind(kind)
	r.Status = models.RequestStatus(status)
	r.Description = desc.String
	r.Destination = dest.String
	r.PhotoURL = photoURL.String
	r.PaymentRef = payRef.String
	return &r, nil
}

func scanResponder(row *sql.Row) (*models.Responder, error) {
	var (
		r        models.Responder
		status   string
		lat, lon sql.NullFloat64
	)
	err := row.Scan(&r.ID, &r.UserID, &status, &lat, &lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "responder not found")
	}
	if err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "scan responder", err)
	}
	st, err := models.ParseResponderStatus(status)
	if err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "parse responder status", err)
	}
	r.Status = st
	if lat.Valid && lon.Valid {
		r.Location = &models.Coord{Lat: lat.Float64, Lon: lon.Float64}
	}
	return &r, nil
}

func scanResponderRows(rows *sql.Rows) (*models.Responder, error) {
	var (
		r        models.Responder
		status   string
		lat, lon sql.NullFloat64
	)
	if err := rows.Scan(&r.ID, &r.UserID, &status, &lat, &lon); err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "scan responder", err)
	}
	st, err := models.ParseResponderStatus(status)
	if err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "parse responder status", err)
	}
	r.Status = st
	if lat.Valid && lon.Valid {
		r.Location = &models.Coord{Lat: lat.Float64, Lon: lon.Float64}
	}
	return &r, nil
}

func scanAssignment(row *sql.Row) (*models.Assignment, error) {
	var (
		a           models.Assignment
		status      string
		respondedAt sql.NullTime
	)
	err := row.Scan(&a.ID, &a.RequestID, &a.ResponderID, &status, &a.CreatedAt, &respondedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.NotFound, "assignment not found")
	}
	if err != nil {
		return nil, errs.Wrap(errs.StoreFailure, "scan assignment", err)
	}
	a.Status = models.AssignmentStatus(status)
	if respondedAt.Valid {
		t := respondedAt.Time
		a.RespondedAt = &t
	}
	return &a, nil
}
