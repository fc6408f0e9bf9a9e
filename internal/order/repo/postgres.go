package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taxi-fleet/internal/order/domain"
	"taxi-fleet/internal/shared/apperrors"
)

type OrderRepo struct {
	db *pgxpool.Pool
}

func NewOrderRepo(pool *pgxpool.Pool) *OrderRepo {
	return &OrderRepo{db: pool}
}

const orderColumns = `id, number, status, customer_name, customer_phone, pickup_address,
	destination_address, driver_id, car_id, distance_km, price, notes,
	created_at, planned_pickup_at, actual_pickup_at, completed_at`

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var o domain.Order
	err := row.Scan(&o.ID, &o.Number, &o.Status, &o.CustomerName, &o.CustomerPhone,
		&o.PickupAddress, &o.DestinationAddress, &o.DriverID, &o.CarID,
		&o.DistanceKm, &o.Price, &o.Notes,
		&o.CreatedAt, &o.PlannedPickupAt, &o.ActualPickupAt, &o.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("order: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrderRepo) Create(ctx context.Context, o *domain.Order, changedBy string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO orders (id, number, status, customer_name, customer_phone,
			pickup_address, destination_address, notes, created_at, planned_pickup_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, o.ID, o.Number, o.Status, o.CustomerName, o.CustomerPhone,
		o.PickupAddress, o.DestinationAddress, o.Notes, o.CreatedAt, o.PlannedPickupAt)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	if err := logStatus(ctx, tx, o.ID, o.Status, changedBy, nil); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (r *OrderRepo) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return scanOrder(r.db.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, id))
}

func (r *OrderRepo) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE 1=1`
	args := []interface{}{}

	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.DriverID != nil {
		args = append(args, *filter.DriverID)
		query += fmt.Sprintf(" AND driver_id = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		query += fmt.Sprintf(" AND created_at < $%d", len(args))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (r *OrderRepo) StatusHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, order_id, status, changed_by, changed_at, notes
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("query status history: %w", err)
	}
	defer rows.Close()

	var logs []*domain.StatusLog
	for rows.Next() {
		var l domain.StatusLog
		if err := rows.Scan(&l.ID, &l.OrderID, &l.Status, &l.ChangedBy, &l.ChangedAt, &l.Notes); err != nil {
			return nil, err
		}
		logs = append(logs, &l)
	}
	return logs, rows.Err()
}

// Assign is a compare-and-set: the UPDATE only fires while the order is
// still NEW, so of two concurrent assigns exactly one wins and the
// other sees the transition refused.
func (r *OrderRepo) Assign(ctx context.Context, orderID, driverID, carID, changedBy string) (*domain.Order, error) {
	return r.transition(ctx, orderID, domain.StatusAssigned, changedBy, nil, `
		UPDATE orders
		SET status = 'ASSIGNED', driver_id = $2, car_id = $3
		WHERE id = $1 AND status = 'NEW'
	`, orderID, driverID, carID)
}

func (r *OrderRepo) Start(ctx context.Context, orderID string, at time.Time, changedBy string) (*domain.Order, error) {
	return r.transition(ctx, orderID, domain.StatusInProgress, changedBy, nil, `
		UPDATE orders
		SET status = 'IN_PROGRESS', actual_pickup_at = $2
		WHERE id = $1 AND status = 'ASSIGNED'
	`, orderID, at)
}

func (r *OrderRepo) Complete(ctx context.Context, orderID string, distanceKm *float64, price float64, at time.Time, changedBy string) (*domain.Order, error) {
	return r.transition(ctx, orderID, domain.StatusCompleted, changedBy, nil, `
		UPDATE orders
		SET status = 'COMPLETED', distance_km = $2, price = $3, completed_at = $4
		WHERE id = $1 AND status = 'IN_PROGRESS'
	`, orderID, distanceKm, price, at)
}

func (r *OrderRepo) Cancel(ctx context.Context, orderID, reason string, at time.Time, changedBy string) (*domain.Order, error) {
	return r.transition(ctx, orderID, domain.StatusCancelled, changedBy, &reason, `
		UPDATE orders
		SET status = 'CANCELLED',
		    notes = CASE WHEN notes = '' THEN $2 ELSE notes || E'\n' || $2 END
		WHERE id = $1 AND status IN ('NEW', 'ASSIGNED', 'IN_PROGRESS')
	`, orderID, reason)
}

func (r *OrderRepo) transition(ctx context.Context, orderID string, to domain.Status, changedBy string, note *string, query string, args ...interface{}) (*domain.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	cmd, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("transition to %s: %w", to, err)
	}
	if cmd.RowsAffected() == 0 {
		// Distinguish a missing order from a refused transition.
		var current domain.Status
		err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id = $1`, orderID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order: %w", apperrors.ErrNotFound)
		}
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("order is %s, cannot move to %s: %w",
			current, to, apperrors.ErrInvalidTransition)
	}

	if err := logStatus(ctx, tx, orderID, to, changedBy, note); err != nil {
		return nil, err
	}

	order, err := scanOrder(tx.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id = $1`, orderID))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return order, nil
}

func logStatus(ctx context.Context, tx pgx.Tx, orderID string, status domain.Status, changedBy string, notes *string) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO order_status_log (order_id, status, changed_by, changed_at, notes)
		VALUES ($1, $2, $3, $4, $5)
	`, orderID, status, changedBy, time.Now(), notes)
	if err != nil {
		return fmt.Errorf("log status: %w", err)
	}
	return nil
}
