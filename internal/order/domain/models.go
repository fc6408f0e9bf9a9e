package domain

import (
	"errors"
	"time"
)

type Status string

const (
	StatusNew        Status = "NEW"
	StatusAssigned   Status = "ASSIGNED"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusCancelled  Status = "CANCELLED"
)

// The order lifecycle moves forward only; terminal states admit nothing.
var transitions = map[Status][]Status{
	StatusNew:        {StatusAssigned, StatusCancelled},
	StatusAssigned:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {},
	StatusCancelled:  {},
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func ValidStatus(s Status) bool {
	_, ok := transitions[s]
	return ok
}

// ErrNoCar: assignment was requested without a car and the driver has
// no bound car to fall back on.
var ErrNoCar = errors.New("driver has no bound car and no car was specified")

type Order struct {
	ID                 string     `json:"id"`
	Number             string     `json:"number"`
	Status             Status     `json:"status"`
	CustomerName       string     `json:"customer_name"`
	CustomerPhone      string     `json:"customer_phone"`
	PickupAddress      string     `json:"pickup_address"`
	DestinationAddress string     `json:"destination_address"`
	DriverID           *string    `json:"driver_id,omitempty"`
	CarID              *string    `json:"car_id,omitempty"`
	DistanceKm         *float64   `json:"distance_km,omitempty"`
	Price              *float64   `json:"price,omitempty"`
	Notes              string     `json:"notes"`
	CreatedAt          time.Time  `json:"created_at"`
	PlannedPickupAt    *time.Time `json:"planned_pickup_at,omitempty"`
	ActualPickupAt     *time.Time `json:"actual_pickup_at,omitempty"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// StatusLog is one row of the append-only order audit trail.
type StatusLog struct {
	ID        int       `json:"id"`
	OrderID   string    `json:"order_id"`
	Status    Status    `json:"status"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
	Notes     *string   `json:"notes,omitempty"`
}

type CreateOrderInput struct {
	CustomerName       string
	CustomerPhone      string
	PickupAddress      string
	DestinationAddress string
	PlannedPickupAt    *time.Time
	Notes              string
}

type AssignInput struct {
	DriverID string
	// CarID optional; defaults to the driver's currently bound car.
	CarID *string
}

type CompleteInput struct {
	// DistanceKm stays optional: a completion without distance is
	// accepted and leaves the field unset. Price is mandatory; nil
	// means the caller never supplied one.
	DistanceKm *float64
	Price      *float64
}

type ListFilter struct {
	Status   *Status
	DriverID *string
	From     *time.Time
	To       *time.Time
}
