package booking

import (
	"context"
	"time"

	"github.com/PouryDev/session-booking/internal/cache"
	"github.com/PouryDev/session-booking/internal/model"
	"github.com/PouryDev/session-booking/internal/repository"
)

// DefaultHoldTTL is how long an unpaid reservation keeps its seats
// before the sweep may release them.
const DefaultHoldTTL = 15 * time.Minute

// Manager orchestrates the reservation lifecycle: creation, explicit
// cancellation and the expiration sweep.  Every capacity decision is
// made inside a transaction that holds the target session's row lock,
// and the sweep always runs before the capacity check so stale holds
// cannot block a booking.
type Manager struct {
	sessions     *repository.SessionRepo
	reservations *repository.ReservationRepo
	orders       OrderService
	availability *cache.Availability
	holdTTL      time.Duration
	now          func() time.Time
}

// NewManager constructs a Manager.  availability may be nil to disable
// caching; holdTTL <= 0 falls back to DefaultHoldTTL.
func NewManager(sessions *repository.SessionRepo, reservations *repository.ReservationRepo, orders OrderService, availability *cache.Availability, holdTTL time.Duration) *Manager {
	if sessions == nil || reservations == nil {
		panic("nil repository passed to NewManager")
	}
	if orders == nil {
		orders = NoopOrderService{}
	}
	if holdTTL <= 0 {
		holdTTL = DefaultHoldTTL
	}
	return &Manager{
		sessions:     sessions,
		reservations: reservations,
		orders:       orders,
		availability: availability,
		holdTTL:      holdTTL,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// CreateReservation books numberOfPeople seats in the session for the
// user.  It locks the session row, sweeps timed-out holds, checks the
// remaining capacity and, if it suffices, creates a PENDING reservation
// whose seats are held for the configured TTL.  It returns
// ErrCapacityExceeded when the seats do not fit; in that case nothing
// is written.
func (m *Manager) CreateReservation(ctx context.Context, userID, sessionID uint64, numberOfPeople uint32) (*model.Reservation, error) {
	if numberOfPeople == 0 {
		return nil, ErrInvalidPartySize
	}
	now := m.now()
	tx, err := m.sessions.DB().BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	sess, err := m.sessions.GetForUpdateTx(ctx, tx, sessionID)
	if err != nil {
		return nil, err
	}
	// Release stale holds before deciding whether the booking fits.
	if _, err := m.expireUnpaidTx(ctx, tx, sess, now); err != nil {
		return nil, err
	}
	if !sess.HasEnoughSpots(numberOfPeople) {
		return nil, ErrCapacityExceeded
	}

	expiresAt := now.Add(m.holdTTL)
	res := &model.Reservation{
		UserID:         userID,
		SessionID:      sessionID,
		NumberOfPeople: numberOfPeople,
		PaymentStatus:  model.PaymentPending,
		ExpiresAt:      &expiresAt,
	}
	if err := m.reservations.CreateTx(ctx, tx, res); err != nil {
		return nil, err
	}
	if err := m.sessions.ReserveHoldTx(ctx, tx, sessionID, numberOfPeople); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	committed = true
	m.availability.Invalidate(ctx, sessionID)
	return res, nil
}

// CancelReservation cancels a reservation and releases its seats from
// whichever counter currently holds them.  Cancelling an already
// cancelled reservation returns false without touching any counter;
// this is a safe state, not an error.
func (m *Manager) CancelReservation(ctx context.Context, reservationID uint64) (bool, error) {
	now := m.now()
	tx, err := m.reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return false, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := m.reservations.GetTx(ctx, tx, reservationID)
	if err != nil {
		return false, err
	}
	if res.Cancelled() {
		return false, nil
	}
	// Lock the session before mutating anything so cancellation
	// serializes with concurrent bookings, confirmations and sweeps.
	if _, err := m.sessions.GetForUpdateTx(ctx, tx, res.SessionID); err != nil {
		return false, err
	}
	// The first read may have raced against whoever held the lock (the
	// sweep cancelling this very hold, or the coordinator promoting it),
	// so re-read and decide from the row as it is now.
	res, err = m.reservations.GetTx(ctx, tx, reservationID)
	if err != nil {
		return false, err
	}
	if res.Cancelled() {
		return false, nil
	}
	if err := m.reservations.CancelTx(ctx, tx, res.ID, now); err != nil {
		return false, err
	}
	if res.PaymentStatus == model.PaymentPaid {
		err = m.sessions.ReleaseConfirmedTx(ctx, tx, res.SessionID, res.NumberOfPeople)
	} else {
		err = m.sessions.ReleaseHoldTx(ctx, tx, res.SessionID, res.NumberOfPeople)
	}
	if err != nil {
		return false, err
	}
	if err := m.orders.CancelOrdersForTx(ctx, tx, res.ID); err != nil {
		return false, err
	}
	if err := tx.Commit(); err != nil {
		return false, err
	}
	committed = true
	m.availability.Invalidate(ctx, res.SessionID)
	return true, nil
}

// AvailableSpots returns how many seats can still be booked in the
// session.  Reads go through the availability cache when one is
// configured; the value reflects the counters as of the last committed
// transaction and may include holds that have timed out but have not
// been swept yet.
func (m *Manager) AvailableSpots(ctx context.Context, sessionID uint64) (uint32, error) {
	if spots, ok := m.availability.Get(ctx, sessionID); ok {
		return spots, nil
	}
	sess, err := m.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	spots := sess.AvailableSpots()
	m.availability.Set(ctx, sessionID, spots)
	return spots, nil
}

// TotalAmountCents returns the amount the payment subsystem should
// charge for the reservation: session price per participant plus the
// reservation's order total from the cafe collaborator.  The result is
// 64-bit because price times party size can exceed the 32-bit range.
func (m *Manager) TotalAmountCents(ctx context.Context, reservationID uint64) (uint64, error) {
	res, err := m.reservations.GetByID(ctx, reservationID)
	if err != nil {
		return 0, err
	}
	sess, err := m.sessions.GetByID(ctx, res.SessionID)
	if err != nil {
		return 0, err
	}
	orderTotal, err := m.orders.TotalOrderAmountCents(ctx, res.ID)
	if err != nil {
		return 0, err
	}
	return uint64(sess.PriceCents)*uint64(res.NumberOfPeople) + uint64(orderTotal), nil
}

// ListReservations returns all reservations created by the given user,
// newest first.
func (m *Manager) ListReservations(ctx context.Context, userID uint64) ([]model.Reservation, error) {
	return m.reservations.ListByUser(ctx, userID)
}
