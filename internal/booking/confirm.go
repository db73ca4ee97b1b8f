package booking

import (
	"context"
	"log"
	"time"

	"github.com/PouryDev/session-booking/internal/cache"
	"github.com/PouryDev/session-booking/internal/model"
	"github.com/PouryDev/session-booking/internal/queue"
	"github.com/PouryDev/session-booking/internal/repository"
)

// PublishFunc delivers a reservation.confirmed event to the message
// broker.  Publication is best effort: a failure is logged, never
// propagated, because the capacity transition has already committed.
type PublishFunc func(ctx context.Context, ev queue.ReservationConfirmedEvent) error

// Coordinator reacts to a payment reaching its terminal paid state and
// moves the reservation's seats from held to confirmed, exactly once.
// The payment subsystem writes payment_status = PAID before the
// coordinator runs; the coordinator re-reads the reservation inside a
// fresh transaction and bases every guard on that row's own state, so
// replayed gateway notifications are harmless no-ops.
type Coordinator struct {
	sessions     *repository.SessionRepo
	reservations *repository.ReservationRepo
	availability *cache.Availability
	publish      PublishFunc
	now          func() time.Time
}

// NewCoordinator constructs a Coordinator.  availability and publish
// may be nil to disable caching and event publication.
func NewCoordinator(sessions *repository.SessionRepo, reservations *repository.ReservationRepo, availability *cache.Availability, publish PublishFunc) *Coordinator {
	if sessions == nil || reservations == nil {
		panic("nil repository passed to NewCoordinator")
	}
	return &Coordinator{
		sessions:     sessions,
		reservations: reservations,
		availability: availability,
		publish:      publish,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// ConfirmPayment promotes the reservation's held seats into confirmed
// seats and stamps the reservation as system-validated.  It is invoked
// after the payment subsystem marked the reservation paid.
//
// Guards, in order:
//   - reservation not paid, or already cancelled: do nothing.  Paying
//     for a cancelled hold and duplicate notifications both land here.
//   - hold still present (expires_at non-nil): promote pending seats to
//     confirmed, clear the hold, auto-validate.
//   - hold absent but not yet validated: the reservation was created
//     already paid and never held seats, so only the validation stamp
//     is written; the counters were never touched for it.
//   - hold absent and validated: already processed, nothing to do.
func (c *Coordinator) ConfirmPayment(ctx context.Context, reservationID uint64) error {
	now := c.now()
	tx, err := c.reservations.DB().BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	res, err := c.reservations.GetTx(ctx, tx, reservationID)
	if err != nil {
		return err
	}
	if res.PaymentStatus != model.PaymentPaid || res.Cancelled() {
		return nil
	}
	if _, err := c.sessions.GetForUpdateTx(ctx, tx, res.SessionID); err != nil {
		return err
	}
	// The first read may be stale: the sweep can cancel the hold and
	// release its seats while we wait for the session lock.  Re-read and
	// re-apply the guards so the promotion matches the row as it is now.
	res, err = c.reservations.GetTx(ctx, tx, reservationID)
	if err != nil {
		return err
	}
	if res.PaymentStatus != model.PaymentPaid || res.Cancelled() {
		return nil
	}

	promoted := false
	switch {
	case res.ExpiresAt != nil:
		if err := c.sessions.PromoteHoldToConfirmedTx(ctx, tx, res.SessionID, res.NumberOfPeople); err != nil {
			return err
		}
		if err := c.reservations.ClearHoldAndValidateTx(ctx, tx, res.ID, now); err != nil {
			return err
		}
		promoted = true
	case res.ValidatedAt == nil:
		if err := c.reservations.ValidateTx(ctx, tx, res.ID, now); err != nil {
			return err
		}
	default:
		// Already processed; commit nothing.
		return nil
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true

	if promoted {
		c.availability.Invalidate(ctx, res.SessionID)
		c.publishConfirmed(ctx, res, now)
	}
	return nil
}

func (c *Coordinator) publishConfirmed(ctx context.Context, res *model.Reservation, at time.Time) {
	if c.publish == nil {
		return
	}
	ev := queue.ReservationConfirmedEvent{
		ReservationID:  res.ID,
		UserID:         res.UserID,
		SessionID:      res.SessionID,
		NumberOfPeople: res.NumberOfPeople,
		ConfirmedAt:    at.Format(time.RFC3339),
	}
	if err := c.publish(ctx, ev); err != nil {
		log.Printf("confirm: publish reservation.confirmed failed: %v", err)
	}
}
