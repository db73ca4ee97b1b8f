package booking

import (
	"context"
	"database/sql"
)

// OrderService is the cafe/order collaborator consumed by the engine.
// Cancelling a reservation (explicitly or by expiration) also cancels
// and removes its food orders as part of the same logical operation,
// and the reservation's total amount includes the order total.  The
// ordering subsystem itself lives outside this engine.
type OrderService interface {
	// CancelOrdersForTx cancels and removes every order attached to the
	// reservation inside the caller's transaction.
	CancelOrdersForTx(ctx context.Context, tx *sql.Tx, reservationID uint64) error
	// TotalOrderAmountCents returns the combined price of the
	// reservation's orders in cents.
	TotalOrderAmountCents(ctx context.Context, reservationID uint64) (uint32, error)
}

// NoopOrderService satisfies OrderService for deployments that run the
// engine without the cafe module.
type NoopOrderService struct{}

func (NoopOrderService) CancelOrdersForTx(ctx context.Context, tx *sql.Tx, reservationID uint64) error {
	return nil
}

func (NoopOrderService) TotalOrderAmountCents(ctx context.Context, reservationID uint64) (uint32, error) {
	return 0, nil
}
