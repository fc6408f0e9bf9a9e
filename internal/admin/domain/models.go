package domain

import "context"

// Overview is the dispatcher wallboard snapshot: today's order and
// revenue picture plus the current fleet readiness.
type Overview struct {
	OrdersToday     map[string]int `json:"orders_today"`
	RevenueToday    float64        `json:"revenue_today"`
	ActiveShifts    int            `json:"active_shifts"`
	DriversByStatus map[string]int `json:"drivers_by_medical_status"`
	OperationalCars int            `json:"operational_cars"`
	TotalCars       int            `json:"total_cars"`
}

type OverviewRepository interface {
	Overview(ctx context.Context) (*Overview, error)
}
