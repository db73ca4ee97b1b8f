package booking

import (
	"context"
	"database/sql"
	"time"

	"github.com/PouryDev/session-booking/internal/model"
)

// expireUnpaidTx cancels every timed-out unpaid hold for the session
// and releases the held seats.  It runs inside the caller's transaction,
// which must already hold the session's row lock.  The pending counter
// is decremented once for the aggregate headcount, not per reservation,
// so the occupancy invariant never passes through an intermediate
// violation and the lock is held no longer than necessary.  The
// in-memory session counters are updated to match so the caller's
// subsequent capacity check sees the released seats.
//
// It returns the number of reservations expired.  A reservation
// cancelled here is excluded from the next sweep's selection, which
// makes the sweep idempotent per reservation.
func (m *Manager) expireUnpaidTx(ctx context.Context, tx *sql.Tx, sess *model.Session, now time.Time) (int, error) {
	expired, err := m.reservations.ExpiredForSessionTx(ctx, tx, sess.ID, now)
	if err != nil {
		return 0, err
	}
	if len(expired) == 0 {
		return 0, nil
	}

	ids := make([]uint64, 0, len(expired))
	var totalPeople uint32
	for _, res := range expired {
		ids = append(ids, res.ID)
		totalPeople += res.NumberOfPeople
	}
	if err := m.reservations.CancelManyTx(ctx, tx, ids, now); err != nil {
		return 0, err
	}
	for _, id := range ids {
		if err := m.orders.CancelOrdersForTx(ctx, tx, id); err != nil {
			return 0, err
		}
	}
	if err := m.sessions.ReleaseHoldTx(ctx, tx, sess.ID, totalPeople); err != nil {
		return 0, err
	}
	if totalPeople > sess.PendingParticipants {
		sess.PendingParticipants = 0
	} else {
		sess.PendingParticipants -= totalPeople
	}
	return len(expired), nil
}

// SweepSession runs the expiration sweep for a single session in its
// own transaction: lock, sweep, commit.  It is the entry point for the
// periodic trigger; the booking path runs the same sweep inline inside
// its own transaction instead.
func (m *Manager) SweepSession(ctx context.Context, sessionID uint64) (int, error) {
	now := m.now()
	tx, err := m.sessions.DB().BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sess, err := m.sessions.GetForUpdateTx(ctx, tx, sessionID)
	if err != nil {
		return 0, err
	}
	count, err := m.expireUnpaidTx(ctx, tx, sess, now)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		// Nothing was written; rolling back avoids an empty commit.
		return 0, nil
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	committed = true
	m.availability.Invalidate(ctx, sessionID)
	return count, nil
}

// SweepExpired finds every session with at least one timed-out hold and
// sweeps each in its own transaction, so one slow session cannot hold
// locks for the others.  It returns the total number of reservations
// expired.
func (m *Manager) SweepExpired(ctx context.Context) (int, error) {
	ids, err := m.sessions.IDsWithExpiredHolds(ctx)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, id := range ids {
		n, err := m.SweepSession(ctx, id)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}
