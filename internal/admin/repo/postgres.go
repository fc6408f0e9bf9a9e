package repo

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"taxi-fleet/internal/admin/domain"
)

type OverviewRepo struct {
	db *pgxpool.Pool
}

func NewOverviewRepo(pool *pgxpool.Pool) *OverviewRepo {
	return &OverviewRepo{db: pool}
}

// Overview gathers the wallboard aggregates in one round per table.
// "Today" is the server's current date.
func (r *OverviewRepo) Overview(ctx context.Context) (*domain.Overview, error) {
	out := &domain.Overview{
		OrdersToday:     make(map[string]int),
		DriversByStatus: make(map[string]int),
	}

	rows, err := r.db.Query(ctx, `
		SELECT status, COUNT(*)
		FROM orders
		WHERE created_at::date = CURRENT_DATE
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("orders today: %w", err)
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		out.OrdersToday[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRow(ctx, `
		SELECT COALESCE(SUM(price), 0)
		FROM orders
		WHERE status = 'COMPLETED' AND completed_at::date = CURRENT_DATE
	`).Scan(&out.RevenueToday)
	if err != nil {
		return nil, fmt.Errorf("revenue today: %w", err)
	}

	err = r.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM shifts WHERE status = 'ACTIVE'`).Scan(&out.ActiveShifts)
	if err != nil {
		return nil, fmt.Errorf("active shifts: %w", err)
	}

	rows, err = r.db.Query(ctx, `
		SELECT medical_status, COUNT(*)
		FROM drivers
		WHERE active
		GROUP BY medical_status
	`)
	if err != nil {
		return nil, fmt.Errorf("drivers by medical status: %w", err)
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			rows.Close()
			return nil, err
		}
		out.DriversByStatus[status] = n
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	err = r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE active AND NOT in_repair AND technical_status = 'OK'),
			COUNT(*)
		FROM cars
	`).Scan(&out.OperationalCars, &out.TotalCars)
	if err != nil {
		return nil, fmt.Errorf("car counts: %w", err)
	}

	return out, nil
}
