package model

import "time"

// PaymentStatus is the payment state of a reservation.  The reservation
// engine never writes PAID itself; that transition belongs to the payment
// subsystem, and the engine reacts to it.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "PENDING"
	PaymentPaid    PaymentStatus = "PAID"
	PaymentFailed  PaymentStatus = "FAILED"
)

// Valid reports whether p is one of the known payment states.
func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentPending, PaymentPaid, PaymentFailed:
		return true
	}
	return false
}

// Reservation is a customer's claim on seats in a session.
//
// State rules:
//   - CancelledAt is set at most once and is terminal.
//   - ExpiresAt is non-nil only while PaymentStatus is PENDING and the
//     reservation's seats are still counted in the session's
//     pending_participants; it becomes nil exactly when the reservation
//     is confirmed as paid.
//   - ValidatedBy is nil when ValidatedAt is set by the system itself
//     (automatic validation on payment confirmation); an operator
//     validation carries the operator's user id.
//
// Fields:
//
//	ID             – primary key identifier.
//	UserID         – owning user.
//	SessionID      – session being reserved.
//	NumberOfPeople – seats claimed by this reservation.
//	PaymentStatus  – payment state (see PaymentStatus).
//	ExpiresAt      – hold deadline, nil once paid or never held.
//	ValidatedAt    – when the paid reservation was validated.
//	ValidatedBy    – validating operator id, nil for system validation.
//	CancelledAt    – terminal cancellation marker.
//	CreatedAt      – creation timestamp.
//	UpdatedAt      – last update timestamp.
type Reservation struct {
	ID             uint64        // reservations.id
	UserID         uint64        // reservations.user_id
	SessionID      uint64        // reservations.session_id
	NumberOfPeople uint32        // reservations.number_of_people
	PaymentStatus  PaymentStatus // reservations.payment_status
	ExpiresAt      *time.Time    // reservations.expires_at (nullable)
	ValidatedAt    *time.Time    // reservations.validated_at (nullable)
	ValidatedBy    *uint64       // reservations.validated_by (nullable)
	CancelledAt    *time.Time    // reservations.cancelled_at (nullable)
	CreatedAt      time.Time     // reservations.created_at
	UpdatedAt      time.Time     // reservations.updated_at
}

// Cancelled reports whether the reservation reached its terminal state.
func (r *Reservation) Cancelled() bool {
	return r.CancelledAt != nil
}

// Held reports whether the reservation's seats are currently counted in
// the session's pending_participants: unpaid, not cancelled, and
// carrying a hold deadline.
func (r *Reservation) Held() bool {
	return r.PaymentStatus == PaymentPending && r.CancelledAt == nil && r.ExpiresAt != nil
}

// Expired reports whether the hold deadline has passed at the given
// instant.  A reservation without a deadline never expires.
func (r *Reservation) Expired(now time.Time) bool {
	return r.Held() && !r.ExpiresAt.After(now)
}

// Validated reports whether the reservation carries a validation stamp.
func (r *Reservation) Validated() bool {
	return r.ValidatedAt != nil
}

// ValidatedBySystem reports whether the validation stamp was written by
// the engine itself rather than an operator.
func (r *Reservation) ValidatedBySystem() bool {
	return r.ValidatedAt != nil && r.ValidatedBy == nil
}
