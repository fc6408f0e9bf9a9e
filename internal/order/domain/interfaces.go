package domain

import (
	"context"
	"time"
)

// OrderRepository persists orders. Each transition method performs the
// status check and the mutation in a single atomic step and writes the
// audit log row in the same transaction, returning the updated order.
// A transition attempted from the wrong status fails with
// apperrors.ErrInvalidTransition; a lost row-lock race with
// apperrors.ErrConflict.
type OrderRepository interface {
	Create(ctx context.Context, o *Order, changedBy string) error
	GetByID(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, filter ListFilter) ([]*Order, error)
	StatusHistory(ctx context.Context, orderID string) ([]*StatusLog, error)

	Assign(ctx context.Context, orderID, driverID, carID, changedBy string) (*Order, error)
	Start(ctx context.Context, orderID string, at time.Time, changedBy string) (*Order, error)
	Complete(ctx context.Context, orderID string, distanceKm *float64, price float64, at time.Time, changedBy string) (*Order, error)
	Cancel(ctx context.Context, orderID, reason string, at time.Time, changedBy string) (*Order, error)
}

// ShiftChecker answers whether a driver currently holds an ACTIVE
// shift. Used only when the cross-link policy is enabled.
type ShiftChecker interface {
	HasActiveShift(ctx context.Context, driverID string) (bool, error)
}

// EventPublisher fans order transitions out to the dispatch board and
// any other listeners.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}
