package booking

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PouryDev/session-booking/internal/queue"
	"github.com/PouryDev/session-booking/internal/repository"
)

// Walks one session through a full lifecycle: a hold fills most of the
// capacity, a second booking bounces, the hold times out and is swept,
// the second booking then fits, gets paid and confirmed, and is finally
// cancelled, freeing confirmed seats.
func TestReservationLifecycle(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sessions := repository.NewSessionRepo(db)
	reservations := repository.NewReservationRepo(db)

	clock := testNow
	m := NewManager(sessions, reservations, NoopOrderService{}, nil, 15*time.Minute)
	m.now = func() time.Time { return clock }

	var published []queue.ReservationConfirmedEvent
	c := NewCoordinator(sessions, reservations, nil, func(ctx context.Context, ev queue.ReservationConfirmedEvent) error {
		published = append(published, ev)
		return nil
	})
	c.now = func() time.Time { return clock }

	ctx := context.Background()

	// User 1 holds 6 of 10 seats.
	holdDeadline := clock.Add(15 * time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE id = \? FOR UPDATE`).
		WithArgs(7).WillReturnRows(sessionRow(7, 10, 0, 0))
	mock.ExpectQuery(`SELECT (.+) FROM reservations WHERE session_id = \?`).
		WithArgs(7, clock).WillReturnRows(sqlmock.NewRows(reservationCols))
	mock.ExpectExec(`INSERT INTO reservations`).
		WithArgs(1, 7, 6, "PENDING", holdDeadline).
		WillReturnResult(sqlmock.NewResult(101, 1))
	mock.ExpectQuery(`SELECT (.+) FROM reservations WHERE id = \?`).
		WithArgs(101).
		WillReturnRows(sqlmock.NewRows(reservationCols).
			AddRow(101, 1, 7, 6, "PENDING", holdDeadline, nil, nil, nil, clock, clock))
	mock.ExpectExec(`UPDATE sessions SET pending_participants = pending_participants \+ \?`).
		WithArgs(6, 7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	first, err := m.CreateReservation(ctx, 1, 7, 6)
	require.NoError(t, err)
	assert.Equal(t, uint64(101), first.ID)

	// User 2 wants 5; only 4 remain while the hold is live.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE id = \? FOR UPDATE`).
		WithArgs(7).WillReturnRows(sessionRow(7, 10, 0, 6))
	mock.ExpectQuery(`SELECT (.+) FROM reservations WHERE session_id = \?`).
		WithArgs(7, clock).WillReturnRows(sqlmock.NewRows(reservationCols))
	mock.ExpectRollback()

	_, err = m.CreateReservation(ctx, 2, 7, 5)
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	// The hold times out. User 2 retries and the inline sweep releases
	// the stale 6 seats before the capacity check.
	clock = clock.Add(20 * time.Minute)
	retryDeadline := clock.Add(15 * time.Minute)
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE id = \? FOR UPDATE`).
		WithArgs(7).WillReturnRows(sessionRow(7, 10, 0, 6))
	mock.ExpectQuery(`SELECT (.+) FROM reservations WHERE session_id = \?`).
		WithArgs(7, clock).
		WillReturnRows(sqlmock.NewRows(reservationCols).
			AddRow(101, 1, 7, 6, "PENDING", holdDeadline, nil, nil, nil, testNow, testNow))
	mock.ExpectExec(`UPDATE reservations SET cancelled_at = \?, updated_at = UTC_TIMESTAMP\(\) WHERE cancelled_at IS NULL AND id IN \(\?\)`).
		WithArgs(clock, 101).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sessions SET pending_participants = pending_participants - \?`).
		WithArgs(6, 7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO reservations`).
		WithArgs(2, 7, 5, "PENDING", retryDeadline).
		WillReturnResult(sqlmock.NewResult(102, 1))
	mock.ExpectQuery(`SELECT (.+) FROM reservations WHERE id = \?`).
		WithArgs(102).
		WillReturnRows(sqlmock.NewRows(reservationCols).
			AddRow(102, 2, 7, 5, "PENDING", retryDeadline, nil, nil, nil, clock, clock))
	mock.ExpectExec(`UPDATE sessions SET pending_participants = pending_participants \+ \?`).
		WithArgs(5, 7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	second, err := m.CreateReservation(ctx, 2, 7, 5)
	require.NoError(t, err)
	assert.Equal(t, uint64(102), second.ID)

	// The payment subsystem marks the reservation paid, then the broker
	// delivers payment.succeeded and the coordinator promotes the hold.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM reservations WHERE id = \?`).
		WithArgs(102).
		WillReturnRows(sqlmock.NewRows(reservationCols).
			AddRow(102, 2, 7, 5, "PAID", retryDeadline, nil, nil, nil, clock, clock))
	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE id = \? FOR UPDATE`).
		WithArgs(7).WillReturnRows(sessionRow(7, 10, 0, 5))
	mock.ExpectQuery(`SELECT (.+) FROM reservations WHERE id = \?`).
		WithArgs(102).
		WillReturnRows(sqlmock.NewRows(reservationCols).
			AddRow(102, 2, 7, 5, "PAID", retryDeadline, nil, nil, nil, clock, clock))
	mock.ExpectExec(`UPDATE sessions SET pending_participants = pending_participants - \?, current_participants = current_participants \+ \?`).
		WithArgs(5, 5, 7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE reservations SET expires_at = NULL, validated_at = \?, validated_by = NULL`).
		WithArgs(clock, 102).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, c.ConfirmPayment(ctx, 102))
	require.Len(t, published, 1)
	assert.Equal(t, uint64(102), published[0].ReservationID)

	// A redelivered confirmation is a harmless no-op.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM reservations WHERE id = \?`).
		WithArgs(102).
		WillReturnRows(sqlmock.NewRows(reservationCols).
			AddRow(102, 2, 7, 5, "PAID", nil, clock, nil, nil, clock, clock))
	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE id = \? FOR UPDATE`).
		WithArgs(7).WillReturnRows(sessionRow(7, 10, 5, 0))
	mock.ExpectQuery(`SELECT (.+) FROM reservations WHERE id = \?`).
		WithArgs(102).
		WillReturnRows(sqlmock.NewRows(reservationCols).
			AddRow(102, 2, 7, 5, "PAID", nil, clock, nil, nil, clock, clock))
	mock.ExpectRollback()

	require.NoError(t, c.ConfirmPayment(ctx, 102))
	assert.Len(t, published, 1)

	// Cancelling the paid reservation frees confirmed seats.
	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM reservations WHERE id = \?`).
		WithArgs(102).
		WillReturnRows(sqlmock.NewRows(reservationCols).
			AddRow(102, 2, 7, 5, "PAID", nil, clock, nil, nil, clock, clock))
	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE id = \? FOR UPDATE`).
		WithArgs(7).WillReturnRows(sessionRow(7, 10, 5, 0))
	mock.ExpectQuery(`SELECT (.+) FROM reservations WHERE id = \?`).
		WithArgs(102).
		WillReturnRows(sqlmock.NewRows(reservationCols).
			AddRow(102, 2, 7, 5, "PAID", nil, clock, nil, nil, clock, clock))
	mock.ExpectExec(`UPDATE reservations SET cancelled_at = \?`).
		WithArgs(clock, 102).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sessions SET current_participants = current_participants - \?`).
		WithArgs(5, 7).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	ok, err := m.CancelReservation(ctx, 102)
	require.NoError(t, err)
	assert.True(t, ok)

	assert.NoError(t, mock.ExpectationsWereMet())
}
