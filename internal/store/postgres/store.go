package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kartikeysoni19/application-tracker/internal/domain"
)

// Store persists job applications in PostgreSQL.
// All single-record operations are atomic at the row level; concurrent
// updates to the same application are last-write-wins.
type Store struct {
	db        *sql.DB
	opTimeout time.Duration
}

// New creates a store over the given connection pool. opTimeout bounds each
// database operation; zero disables the per-op deadline.
func New(db *sql.DB, opTimeout time.Duration) *Store {
	return &Store{db: db, opTimeout: opTimeout}
}

func (s *Store) opCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

// CreateApplication inserts a new application row.
func (s *Store) CreateApplication(ctx context.Context, app domain.Application) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, queryInsertApplication,
		app.ID,
		app.OwnerID,
		app.Company,
		app.Role,
		string(app.Status),
		app.AppliedDate,
		app.Notes,
		app.CreatedAt,
		app.UpdatedAt,
	)
	return err
}

// GetApplication returns the application with the given id regardless of
// owner. Returns sql.ErrNoRows when no such row exists; ownership is the
// caller's concern so that a missing record and a foreign record stay
// distinguishable.
func (s *Store) GetApplication(ctx context.Context, id uuid.UUID) (domain.Application, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var app domain.Application
	var status string

	err := s.db.QueryRowContext(ctx, queryGetApplication, id).Scan(
		&app.ID,
		&app.OwnerID,
		&app.Company,
		&app.Role,
		&status,
		&app.AppliedDate,
		&app.Notes,
		&app.CreatedAt,
		&app.UpdatedAt,
	)
	if err != nil {
		return domain.Application{}, err
	}
	app.Status = domain.Status(status)
	return app, nil
}

// UpdateApplication overwrites the mutable fields of an existing row.
// Returns sql.ErrNoRows if the row vanished between the caller's ownership
// check and the write.
func (s *Store) UpdateApplication(ctx context.Context, app domain.Application) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	result, err := s.db.ExecContext(ctx, queryUpdateApplication,
		app.Company,
		app.Role,
		string(app.Status),
		app.AppliedDate,
		app.Notes,
		app.UpdatedAt,
		app.ID,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteApplication removes the application permanently.
// Returns sql.ErrNoRows if no row with the given id exists.
func (s *Store) DeleteApplication(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var deletedID uuid.UUID
	return s.db.QueryRowContext(ctx, queryDeleteApplication, id).Scan(&deletedID)
}

// ListApplications returns the owner's applications matching the filter,
// newest applied date first, insertion order as tiebreak.
func (s *Store) ListApplications(ctx context.Context, ownerID uuid.UUID, filter domain.Filter) ([]domain.Application, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	status := ""
	if filter.FiltersByStatus() {
		status = filter.Status
	}

	search := ""
	if filter.Search != "" {
		search = "%" + escapeLike(filter.Search) + "%"
	}

	rows, err := s.db.QueryContext(ctx, queryListApplications, ownerID, status, search)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Application
	for rows.Next() {
		var app domain.Application
		var st string

		err := rows.Scan(
			&app.ID,
			&app.OwnerID,
			&app.Company,
			&app.Role,
			&st,
			&app.AppliedDate,
			&app.Notes,
			&app.CreatedAt,
			&app.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		app.Status = domain.Status(st)
		result = append(result, app)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// CountByStatus returns the owner's per-status counts, zero-filled.
func (s *Store) CountByStatus(ctx context.Context, ownerID uuid.UUID) (domain.StatusCounts, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryCountByStatus, ownerID)
	if err != nil {
		return domain.StatusCounts{}, err
	}
	defer rows.Close()

	var counts domain.StatusCounts
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return domain.StatusCounts{}, err
		}
		counts.Add(domain.Status(status), n)
	}

	if err := rows.Err(); err != nil {
		return domain.StatusCounts{}, err
	}

	return counts, nil
}

// ListOwners returns the distinct owner ids that have at least one
// application. Used by the stats snapshot cycle.
func (s *Store) ListOwners(ctx context.Context) ([]uuid.UUID, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryListOwners)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var owners []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owners = append(owners, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return owners, nil
}

// InsertStatsSnapshot records one owner's counts for trend history.
func (s *Store) InsertStatsSnapshot(ctx context.Context, snap domain.StatsSnapshot) error {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	_, err := s.db.ExecContext(ctx, queryInsertStatsSnapshot,
		snap.ID,
		snap.OwnerID,
		snap.Counts.Total,
		snap.Counts.Applied,
		snap.Counts.Interview,
		snap.Counts.Offer,
		snap.Counts.Rejected,
		snap.CapturedAt,
	)
	return err
}

// ListStatsSnapshots returns the owner's most recent snapshots, newest first.
func (s *Store) ListStatsSnapshots(ctx context.Context, ownerID uuid.UUID, limit int) ([]domain.StatsSnapshot, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, queryListStatsSnapshots, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StatsSnapshot
	for rows.Next() {
		var snap domain.StatsSnapshot
		err := rows.Scan(
			&snap.ID,
			&snap.OwnerID,
			&snap.Counts.Total,
			&snap.Counts.Applied,
			&snap.Counts.Interview,
			&snap.Counts.Offer,
			&snap.Counts.Rejected,
			&snap.CapturedAt,
		)
		if err != nil {
			return nil, err
		}
		result = append(result, snap)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}

// ResolveToken maps a sha256 token digest (hex) to the owning user id.
// Returns sql.ErrNoRows for unknown tokens.
func (s *Store) ResolveToken(ctx context.Context, tokenHash string) (uuid.UUID, error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	var userID uuid.UUID
	err := s.db.QueryRowContext(ctx, queryResolveToken, tokenHash).Scan(&userID)
	if err != nil {
		return uuid.Nil, err
	}
	return userID, nil
}

// sessionLock holds an advisory lock on the dedicated connection that
// acquired it. Advisory locks are session-scoped: unlocking through the
// pool would hit an arbitrary session and fail without an error.
type sessionLock struct {
	conn      *sql.Conn
	key       int64
	opTimeout time.Duration
}

// TryAdvisoryLock attempts a session advisory lock without blocking.
// The snapshot cycle uses it so only one instance captures per schedule.
// On success the returned release func unlocks on the acquiring session
// and returns the connection to the pool; the caller must invoke it
// exactly once. acquired is false when another session holds the key.
func (s *Store) TryAdvisoryLock(ctx context.Context, key int64) (release func(context.Context) error, acquired bool, err error) {
	ctx, cancel := s.opCtx(ctx)
	defer cancel()

	// Advisory lock is session-scoped: must use a dedicated connection.
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, false, err
	}

	if err := conn.QueryRowContext(ctx, queryTryAdvisoryLock, key).Scan(&acquired); err != nil {
		conn.Close()
		return nil, false, err
	}
	if !acquired {
		conn.Close()
		return nil, false, nil
	}

	lock := &sessionLock{conn: conn, key: key, opTimeout: s.opTimeout}
	return lock.release, true, nil
}

func (l *sessionLock) release(ctx context.Context) error {
	defer l.conn.Close()

	if l.opTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.opTimeout)
		defer cancel()
	}

	var released bool
	if err := l.conn.QueryRowContext(ctx, queryReleaseAdvisoryLock, l.key).Scan(&released); err != nil {
		return err
	}
	if !released {
		return fmt.Errorf("advisory lock %d was not held by the acquiring session", l.key)
	}
	return nil
}

// escapeLike escapes LIKE metacharacters so user input matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
