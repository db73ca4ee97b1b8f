// Package repository defines error types that are reused across multiple
// repositories.  These sentinel values allow higher layers such as the
// booking manager and handlers to distinguish between different failure
// scenarios without string matching.
package repository

import "errors"

// ErrSessionNotFound is returned when the referenced session does not
// exist.  Handlers should translate this into an HTTP 404 response.
var ErrSessionNotFound = errors.New("session not found")

// ErrReservationNotFound is returned when the referenced reservation
// does not exist.  Handlers should translate this into an HTTP 404
// response.
var ErrReservationNotFound = errors.New("reservation not found")
