package api

import (
	"time"

	"taxi-fleet/internal/order/domain"
)

type createOrderRequest struct {
	CustomerName       string     `json:"customer_name"`
	CustomerPhone      string     `json:"customer_phone"`
	PickupAddress      string     `json:"pickup_address"`
	DestinationAddress string     `json:"destination_address"`
	PlannedPickupAt    *time.Time `json:"planned_pickup_at"`
	Notes              string     `json:"notes"`
}

type assignRequest struct {
	DriverID string  `json:"driver_id"`
	CarID    *string `json:"car_id"`
}

type completeRequest struct {
	DistanceKm *float64 `json:"distance_km"`
	Price      *float64 `json:"price"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type historyResponse struct {
	OrderID string              `json:"order_id"`
	History []*domain.StatusLog `json:"history"`
}
