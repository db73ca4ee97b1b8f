package model

import "time"

// SessionStatus is the lifecycle tag of a session.  It is set by the
// scheduling subsystem and is read-only to the reservation engine.
type SessionStatus string

const (
	SessionUpcoming  SessionStatus = "UPCOMING"
	SessionOngoing   SessionStatus = "ONGOING"
	SessionCompleted SessionStatus = "COMPLETED"
	SessionCancelled SessionStatus = "CANCELLED"
)

// Valid reports whether s is one of the known lifecycle tags.
func (s SessionStatus) Valid() bool {
	switch s {
	case SessionUpcoming, SessionOngoing, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

// Session represents a capacity-limited, time-boxed activity slot.
// Occupancy is tracked with two counters: CurrentParticipants counts
// confirmed (paid) seats and PendingParticipants counts seats held by
// unpaid reservations that have not expired yet.
//
// Invariant at every transaction boundary:
//
//	CurrentParticipants + PendingParticipants <= MaxParticipants
//
// Fields:
//
//	ID                  – primary key identifier.
//	Title               – human readable session name.
//	PriceCents          – price per participant in cents.
//	MaxParticipants     – capacity ceiling, immutable after creation.
//	CurrentParticipants – confirmed occupancy.
//	PendingParticipants – held-but-unpaid occupancy.
//	Status              – lifecycle tag (see SessionStatus).
//	StartsAt            – when the session begins.
//	EndsAt              – when the session ends.
//	CreatedAt           – creation timestamp.
//	UpdatedAt           – last update timestamp.
type Session struct {
	ID                  uint64        // sessions.id
	Title               string        // sessions.title
	PriceCents          uint32        // sessions.price_cents
	MaxParticipants     uint32        // sessions.max_participants
	CurrentParticipants uint32        // sessions.current_participants
	PendingParticipants uint32        // sessions.pending_participants
	Status              SessionStatus // sessions.status
	StartsAt            time.Time     // sessions.starts_at
	EndsAt              time.Time     // sessions.ends_at
	CreatedAt           time.Time     // sessions.created_at
	UpdatedAt           time.Time     // sessions.updated_at
}

// AvailableSpots returns the number of seats that can still be booked:
// MaxParticipants minus both occupancy counters, clamped at zero.  The
// stored counters themselves are never allowed to exceed the maximum;
// the clamp only protects display paths from transient bad data.
func (s *Session) AvailableSpots() uint32 {
	used := s.CurrentParticipants + s.PendingParticipants
	if used >= s.MaxParticipants {
		return 0
	}
	return s.MaxParticipants - used
}

// HasEnoughSpots reports whether n more participants fit in the session.
func (s *Session) HasEnoughSpots(n uint32) bool {
	return s.AvailableSpots() >= n
}
