// Package queue defines message payloads exchanged over the message
// broker and the consumer that reacts to payment gateway outcomes.
package queue

// PaymentSucceededEvent is published by the payment subsystem when a
// transaction for a reservation reaches its terminal paid status.  The
// reservation engine consumes it to promote the held seats; the
// reservation row already carries payment_status = PAID by the time
// this event is delivered.
type PaymentSucceededEvent struct {
	EventID        string `json:"event_id"`
	ReservationID  uint64 `json:"reservation_id"`
	TransactionRef string `json:"transaction_ref"`
	AmountCents    uint32 `json:"amount_cents"`
	PaidAt         string `json:"paid_at"`
}

// ReservationConfirmedEvent is published when a reservation's seats
// move from held to confirmed.  It contains enough information for
// downstream consumers to log, notify, or trigger analytics without
// querying the primary database.
type ReservationConfirmedEvent struct {
	EventID        string `json:"event_id"`
	ReservationID  uint64 `json:"reservation_id"`
	UserID         uint64 `json:"user_id"`
	SessionID      uint64 `json:"session_id"`
	NumberOfPeople uint32 `json:"number_of_people"`
	ConfirmedAt    string `json:"confirmed_at"`
}
