package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/PouryDev/session-booking/internal/model"
)

const reservationColumns = `id, user_id, session_id, number_of_people, payment_status, expires_at, validated_at, validated_by, cancelled_at, created_at, updated_at`

// ReservationRepo provides data access to the reservations table.  A
// reservation row is only ever mutated by its single logical owner flow
// (create, then exactly one of pay/cancel/expire), so no cross-row
// locking is needed here; serialization happens on the session row.
// All timestamps are stored in UTC.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a new ReservationRepo bound to the given database.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

// DB exposes the underlying handle so callers can open transactions that
// span multiple repositories.
func (r *ReservationRepo) DB() *sql.DB { return r.db }

// CreateTx inserts a new reservation within the scope of an existing
// transaction and populates the generated id and timestamps on the
// provided value.  The caller must commit or roll back the transaction.
func (r *ReservationRepo) CreateTx(ctx context.Context, tx *sql.Tx, res *model.Reservation) error {
	const q = `INSERT INTO reservations (user_id, session_id, number_of_people, payment_status, expires_at) VALUES (?, ?, ?, ?, ?)`
	var expires any
	if res.ExpiresAt != nil {
		expires = res.ExpiresAt.UTC()
	}
	result, err := tx.ExecContext(ctx, q, res.UserID, res.SessionID, res.NumberOfPeople, string(res.PaymentStatus), expires)
	if err != nil {
		return err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	res.ID = uint64(id)
	// Query back the full row to populate timestamps and defaults.
	const sel = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	loaded, err := scanReservation(tx.QueryRowContext(ctx, sel, res.ID))
	if err != nil {
		return err
	}
	*res = *loaded
	return nil
}

// GetByID returns a reservation by primary key without locking.  It
// returns ErrReservationNotFound when no row exists.
func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	return scanReservation(r.db.QueryRowContext(ctx, q, id))
}

// GetTx re-reads a reservation inside the given transaction.  The
// payment confirmation coordinator uses this to guard against acting on
// stale data carried in from outside the transaction.
func (r *ReservationRepo) GetTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE id = ?`
	return scanReservation(tx.QueryRowContext(ctx, q, id))
}

// ExpiredForSessionTx returns every reservation of the session whose
// hold has timed out at the given instant: unpaid, not cancelled, and
// with a deadline at or before now.  A reservation cancelled by a
// previous sweep no longer matches, which makes the sweep idempotent
// per reservation.
func (r *ReservationRepo) ExpiredForSessionTx(ctx context.Context, tx *sql.Tx, sessionID uint64, now time.Time) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations
	           WHERE session_id = ? AND payment_status = 'PENDING'
	             AND cancelled_at IS NULL AND expires_at IS NOT NULL AND expires_at <= ?`
	rows, err := tx.QueryContext(ctx, q, sessionID, now.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// CancelTx sets the terminal cancellation marker on a single reservation.
func (r *ReservationRepo) CancelTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
	const q = `UPDATE reservations SET cancelled_at = ?, updated_at = UTC_TIMESTAMP() WHERE id = ? AND cancelled_at IS NULL`
	_, err := tx.ExecContext(ctx, q, at.UTC(), id)
	return err
}

// CancelManyTx sets the terminal cancellation marker on a batch of
// reservations in one statement.  Passing an empty slice is a no-op.
func (r *ReservationRepo) CancelManyTx(ctx context.Context, tx *sql.Tx, ids []uint64, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(ids))
	args := make([]any, 0, len(ids)+1)
	args = append(args, at.UTC())
	for _, id := range ids {
		placeholders = append(placeholders, "?")
		args = append(args, id)
	}
	q := `UPDATE reservations SET cancelled_at = ?, updated_at = UTC_TIMESTAMP() WHERE cancelled_at IS NULL AND id IN (` + strings.Join(placeholders, ",") + `)`
	_, err := tx.ExecContext(ctx, q, args...)
	return err
}

// ClearHoldAndValidateTx finalizes payment confirmation on the
// reservation row: the hold deadline is cleared and the validation
// stamp is written with a NULL validator, meaning the system validated
// it automatically.  payment_status itself is written by the payment
// subsystem before the coordinator runs, so it is not touched here.
func (r *ReservationRepo) ClearHoldAndValidateTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
	const q = `UPDATE reservations SET expires_at = NULL, validated_at = ?, validated_by = NULL, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, at.UTC(), id)
	return err
}

// ValidateTx writes only the validation stamp.  Used for reservations
// that were created already paid and therefore never carried a hold.
func (r *ReservationRepo) ValidateTx(ctx context.Context, tx *sql.Tx, id uint64, at time.Time) error {
	const q = `UPDATE reservations SET validated_at = ?, validated_by = NULL, updated_at = UTC_TIMESTAMP() WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, at.UTC(), id)
	return err
}

// ListByUser returns all reservations created by the given user, newest
// first.  When none exist an empty slice is returned.
func (r *ReservationRepo) ListByUser(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	const q = `SELECT ` + reservationColumns + ` FROM reservations WHERE user_id = ? ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var res model.Reservation
	var status string
	var expiresAt, validatedAt, cancelledAt sql.NullTime
	var validatedBy sql.NullInt64
	err := row.Scan(
		&res.ID, &res.UserID, &res.SessionID, &res.NumberOfPeople, &status,
		&expiresAt, &validatedAt, &validatedBy, &cancelledAt,
		&res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}
	res.PaymentStatus = model.PaymentStatus(status)
	if expiresAt.Valid {
		t := expiresAt.Time
		res.ExpiresAt = &t
	}
	if validatedAt.Valid {
		t := validatedAt.Time
		res.ValidatedAt = &t
	}
	if validatedBy.Valid {
		id := uint64(validatedBy.Int64)
		res.ValidatedBy = &id
	}
	if cancelledAt.Valid {
		t := cancelledAt.Time
		res.CancelledAt = &t
	}
	return &res, nil
}
