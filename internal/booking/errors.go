// Package booking implements the session capacity and reservation
// lifecycle engine: creating holds, expiring them, cancelling, and
// promoting a held seat into a confirmed one when payment arrives.
// All capacity mutations for a session run under that session's row
// lock, so the occupancy invariant holds at every commit point, not
// just eventually.
package booking

import "errors"

// ErrCapacityExceeded is returned when a booking requests more seats
// than the session has available after stale holds were swept.  No
// partial state is written.  Handlers should translate this into an
// HTTP 409 response.
var ErrCapacityExceeded = errors.New("not enough available spots")

// ErrInvalidPartySize is returned when a booking requests zero seats.
var ErrInvalidPartySize = errors.New("number of people must be positive")
