package domain

import (
	"context"
	"time"
)

// ShiftRepository persists shifts. Open relies on the storage-level
// one-active-shift-per-driver guarantee (apperrors.ErrDriverBusy on
// violation). Close locks the shift row, validates mileage, aggregates
// revenue and finishes the shift atomically.
type ShiftRepository interface {
	Open(ctx context.Context, s *Shift) error
	GetByID(ctx context.Context, id string) (*Shift, error)
	List(ctx context.Context, filter ListFilter) ([]*Shift, error)

	Close(ctx context.Context, shiftID string, finalMileage, earnings float64, notes string, at time.Time) (*Shift, error)
	Cancel(ctx context.Context, shiftID, reason string, at time.Time) (*Shift, error)
	Delete(ctx context.Context, shiftID string) error

	HasActiveShift(ctx context.Context, driverID string) (bool, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload interface{}) error
}
