package domain

import "time"

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Shift (waybill) brackets one driver's working period with a fixed
// driver/car pair. Opened ACTIVE, closed exactly once.
type Shift struct {
	ID             string     `json:"id"`
	Status         Status     `json:"status"`
	DriverID       string     `json:"driver_id"`
	CarID          string     `json:"car_id"`
	TechnicianID   string     `json:"technician_id"`
	StartedAt      time.Time  `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at,omitempty"`
	InitialMileage float64    `json:"initial_mileage"`
	FinalMileage   *float64   `json:"final_mileage,omitempty"`
	TotalEarnings  *float64   `json:"total_earnings,omitempty"`
	TotalRevenue   *float64   `json:"total_revenue,omitempty"`
	Notes          string     `json:"notes"`
}

// Mileage returns the driven distance for a closed shift.
func (s *Shift) Mileage() float64 {
	if s.FinalMileage == nil {
		return 0
	}
	return *s.FinalMileage - s.InitialMileage
}

type OpenInput struct {
	DriverID       string
	InitialMileage float64
	Notes          string
}

type CloseInput struct {
	FinalMileage float64
	Earnings     float64
	Notes        string
}

type ListFilter struct {
	DriverID *string
	Status   *Status
}

type Summary struct {
	DurationHours float64 `json:"duration_hours"`
	MileageKm     float64 `json:"mileage_km"`
	Earnings      float64 `json:"earnings"`
	Revenue       float64 `json:"revenue"`
}
