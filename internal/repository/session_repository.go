package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/PouryDev/session-booking/internal/model"
)

const sessionColumns = `id, title, price_cents, max_participants, current_participants, pending_participants, status, starts_at, ends_at, created_at, updated_at`

// SessionRepo provides data access to the sessions table.  Sessions are
// created by the scheduling subsystem; this repository only reads them
// and adjusts their occupancy counters.  Every counter mutator takes an
// open transaction and assumes the caller already holds the session's
// row lock obtained via GetForUpdateTx.  The mutators are building
// blocks, not independently transactional.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo returns a new SessionRepo bound to the given database.
func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span multiple repositories.
func (r *SessionRepo) DB() *sql.DB { return r.db }

// GetByID returns a session by primary key without locking.  It returns
// ErrSessionNotFound when no row exists.  Use this for read-only paths
// such as availability display.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ?`
	return r.scanSession(r.db.QueryRowContext(ctx, q, id))
}

// GetForUpdateTx loads a session inside the given transaction and takes
// an exclusive row lock on it (SELECT ... FOR UPDATE).  Concurrent
// create/cancel/confirm/sweep calls for the same session block here
// until the holder commits or rolls back; calls for other sessions are
// unaffected.  It returns ErrSessionNotFound when no row exists.
func (r *SessionRepo) GetForUpdateTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id = ? FOR UPDATE`
	return r.scanSession(tx.QueryRowContext(ctx, q, id))
}

// ReserveHoldTx increments pending_participants by n.  The caller must
// hold the session's row lock and must have verified capacity within
// the same transaction.
func (r *SessionRepo) ReserveHoldTx(ctx context.Context, tx *sql.Tx, id uint64, n uint32) error {
	const q = `UPDATE sessions SET pending_participants = pending_participants + ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, n, id)
	return err
}

// PromoteHoldToConfirmedTx atomically moves n seats from the pending
// counter to the confirmed counter.  Both columns change in a single
// statement so the occupancy total is conserved at every point.
func (r *SessionRepo) PromoteHoldToConfirmedTx(ctx context.Context, tx *sql.Tx, id uint64, n uint32) error {
	const q = `UPDATE sessions SET pending_participants = pending_participants - ?, current_participants = current_participants + ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, n, n, id)
	return err
}

// ReleaseHoldTx decrements pending_participants by n.  Used when an
// unpaid hold is cancelled explicitly or expires.
func (r *SessionRepo) ReleaseHoldTx(ctx context.Context, tx *sql.Tx, id uint64, n uint32) error {
	const q = `UPDATE sessions SET pending_participants = pending_participants - ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, n, id)
	return err
}

// ReleaseConfirmedTx decrements current_participants by n.  Used when a
// paid reservation is cancelled.
func (r *SessionRepo) ReleaseConfirmedTx(ctx context.Context, tx *sql.Tx, id uint64, n uint32) error {
	const q = `UPDATE sessions SET current_participants = current_participants - ?, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, n, id)
	return err
}

// IDsWithExpiredHolds returns the ids of sessions that currently have at
// least one timed-out unpaid hold.  The periodic sweeper uses this to
// decide which sessions are worth locking; the sweep itself re-checks
// under the row lock, so a stale answer here is harmless.
func (r *SessionRepo) IDsWithExpiredHolds(ctx context.Context) ([]uint64, error) {
	const q = `SELECT DISTINCT session_id FROM reservations
	           WHERE payment_status = 'PENDING' AND cancelled_at IS NULL
	             AND expires_at IS NOT NULL AND expires_at <= UTC_TIMESTAMP()`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// rowScanner covers both *sql.Row and rows from QueryContext.
type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SessionRepo) scanSession(row rowScanner) (*model.Session, error) {
	var s model.Session
	var status string
	err := row.Scan(
		&s.ID, &s.Title, &s.PriceCents, &s.MaxParticipants,
		&s.CurrentParticipants, &s.PendingParticipants, &status,
		&s.StartsAt, &s.EndsAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}
	s.Status = model.SessionStatus(status)
	return &s, nil
}
