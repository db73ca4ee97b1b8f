package repository

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PouryDev/session-booking/internal/model"
)

var sessionCols = []string{
	"id", "title", "price_cents", "max_participants", "current_participants",
	"pending_participants", "status", "starts_at", "ends_at", "created_at", "updated_at",
}

func sessionRow(id uint64, max, current, pending uint32) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows(sessionCols).AddRow(
		id, "VR Arena", 2500, max, current, pending, "UPCOMING",
		now.Add(time.Hour), now.Add(2*time.Hour), now, now,
	)
}

func TestSessionGetForUpdateLocksRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE id = \? FOR UPDATE`).
		WithArgs(7).
		WillReturnRows(sessionRow(7, 10, 2, 3))
	mock.ExpectRollback()

	repo := NewSessionRepo(db)
	tx, err := db.Begin()
	require.NoError(t, err)

	sess, err := repo.GetForUpdateTx(context.Background(), tx, 7)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), sess.ID)
	assert.Equal(t, uint32(10), sess.MaxParticipants)
	assert.Equal(t, uint32(2), sess.CurrentParticipants)
	assert.Equal(t, uint32(3), sess.PendingParticipants)
	assert.Equal(t, model.SessionUpcoming, sess.Status)

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT (.+) FROM sessions WHERE id = \?`).
		WithArgs(99).
		WillReturnRows(sqlmock.NewRows(sessionCols))

	_, err = NewSessionRepo(db).GetByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionCounterMutators(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE sessions SET pending_participants = pending_participants \+ \?`).
		WithArgs(4, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sessions SET pending_participants = pending_participants - \?, current_participants = current_participants \+ \?`).
		WithArgs(4, 4, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sessions SET pending_participants = pending_participants - \?`).
		WithArgs(2, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE sessions SET current_participants = current_participants - \?`).
		WithArgs(4, 7).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	repo := NewSessionRepo(db)
	tx, err := db.Begin()
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, repo.ReserveHoldTx(ctx, tx, 7, 4))
	require.NoError(t, repo.PromoteHoldToConfirmedTx(ctx, tx, 7, 4))
	require.NoError(t, repo.ReleaseHoldTx(ctx, tx, 7, 2))
	require.NoError(t, repo.ReleaseConfirmedTx(ctx, tx, 7, 4))
	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIDsWithExpiredHolds(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery(`SELECT DISTINCT session_id FROM reservations`).
		WillReturnRows(sqlmock.NewRows([]string{"session_id"}).AddRow(3).AddRow(11))

	ids, err := NewSessionRepo(db).IDsWithExpiredHolds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []uint64{3, 11}, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
