package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	fleetdomain "taxi-fleet/internal/fleet/domain"
	"taxi-fleet/internal/shared/apperrors"
	"taxi-fleet/internal/shared/db"
	"taxi-fleet/internal/shift/domain"
)

type ShiftRepo struct {
	db *pgxpool.Pool
}

func NewShiftRepo(pool *pgxpool.Pool) *ShiftRepo {
	return &ShiftRepo{db: pool}
}

const shiftColumns = `id, status, driver_id, car_id, technician_id, started_at, ended_at,
	initial_mileage, final_mileage, total_earnings, total_revenue, notes`

func scanShift(row pgx.Row) (*domain.Shift, error) {
	var s domain.Shift
	err := row.Scan(&s.ID, &s.Status, &s.DriverID, &s.CarID, &s.TechnicianID,
		&s.StartedAt, &s.EndedAt, &s.InitialMileage, &s.FinalMileage,
		&s.TotalEarnings, &s.TotalRevenue, &s.Notes)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("shift: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Open admits the shift in one transaction: driver and car rows are
// locked (driver first, same order as the bind path), eligibility is
// re-validated under the locks, then the row is inserted. The service
// pre-checks may be stale by the time the insert runs; these are the
// ones that count. The partial unique index on ACTIVE shifts per driver
// turns a lost open/open race into ErrDriverBusy.
func (r *ShiftRepo) Open(ctx context.Context, s *domain.Shift) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var driver fleetdomain.Driver
	err = tx.QueryRow(ctx,
		`SELECT id, active, medical_status FROM drivers WHERE id = $1 FOR UPDATE NOWAIT`,
		s.DriverID).Scan(&driver.ID, &driver.Active, &driver.Medical)
	if db.IsLockNotAvailable(err) {
		return fmt.Errorf("driver %s: %w", s.DriverID, apperrors.ErrConflict)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("driver %s: %w", s.DriverID, apperrors.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock driver: %w", err)
	}
	if !driver.Active || driver.Medical != fleetdomain.MedicalPassed {
		return fmt.Errorf("driver %s medical status %s: %w",
			driver.ID, driver.Medical, apperrors.ErrDriverIneligible)
	}

	var car fleetdomain.Car
	err = tx.QueryRow(ctx,
		`SELECT id, active, in_repair, technical_status FROM cars WHERE id = $1 FOR UPDATE NOWAIT`,
		s.CarID).Scan(&car.ID, &car.Active, &car.InRepair, &car.Technical)
	if db.IsLockNotAvailable(err) {
		return fmt.Errorf("car %s: %w", s.CarID, apperrors.ErrConflict)
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("car %s: %w", s.CarID, apperrors.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("lock car: %w", err)
	}
	if !car.Operational() {
		return fmt.Errorf("car %s is not operational: %w", car.ID, apperrors.ErrCarUnavailable)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO shifts (id, status, driver_id, car_id, technician_id,
			started_at, initial_mileage, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, s.ID, s.Status, s.DriverID, s.CarID, s.TechnicianID,
		s.StartedAt, s.InitialMileage, s.Notes)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("driver %s: %w", s.DriverID, apperrors.ErrDriverBusy)
	}
	if err != nil {
		return fmt.Errorf("insert shift: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *ShiftRepo) GetByID(ctx context.Context, id string) (*domain.Shift, error) {
	return scanShift(r.db.QueryRow(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE id = $1`, id))
}

func (r *ShiftRepo) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Shift, error) {
	query := `SELECT ` + shiftColumns + ` FROM shifts WHERE 1=1`
	args := []interface{}{}

	if filter.DriverID != nil {
		args = append(args, *filter.DriverID)
		query += fmt.Sprintf(" AND driver_id = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	query += ` ORDER BY started_at DESC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	defer rows.Close()

	var shifts []*domain.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, s)
	}
	return shifts, rows.Err()
}

// Close finishes an ACTIVE shift. The shift row is locked for the whole
// transaction, so the revenue aggregate reads a consistent "as of close
// time" snapshot: completions committing after the aggregate carry a
// completed_at outside the closed window.
func (r *ShiftRepo) Close(ctx context.Context, shiftID string, finalMileage, earnings float64, notes string, at time.Time) (*domain.Shift, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	shift, err := scanShift(tx.QueryRow(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE id = $1 FOR UPDATE NOWAIT`, shiftID))
	if db.IsLockNotAvailable(err) {
		return nil, fmt.Errorf("shift %s: %w", shiftID, apperrors.ErrConflict)
	}
	if err != nil {
		return nil, err
	}

	if shift.Status != domain.StatusActive {
		return nil, fmt.Errorf("shift is %s: %w", shift.Status, apperrors.ErrInvalidTransition)
	}
	if finalMileage <= shift.InitialMileage {
		return nil, apperrors.Validationf("final mileage %.1f must exceed initial %.1f",
			finalMileage, shift.InitialMileage)
	}

	var revenue float64
	err = tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(price), 0)
		FROM orders
		WHERE driver_id = $1
		  AND status = 'COMPLETED'
		  AND completed_at >= $2 AND completed_at <= $3
	`, shift.DriverID, shift.StartedAt, at).Scan(&revenue)
	if err != nil {
		return nil, fmt.Errorf("aggregate revenue: %w", err)
	}

	updated, err := scanShift(tx.QueryRow(ctx, `
		UPDATE shifts
		SET status = 'COMPLETED',
		    ended_at = $2,
		    final_mileage = $3,
		    total_earnings = $4,
		    total_revenue = $5,
		    notes = CASE WHEN $6 = '' THEN notes
		                 WHEN notes = '' THEN $6
		                 ELSE notes || E'\n' || $6 END
		WHERE id = $1
		RETURNING `+shiftColumns,
		shiftID, at, finalMileage, earnings, revenue, notes))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *ShiftRepo) Cancel(ctx context.Context, shiftID, reason string, at time.Time) (*domain.Shift, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	shift, err := scanShift(tx.QueryRow(ctx,
		`SELECT `+shiftColumns+` FROM shifts WHERE id = $1 FOR UPDATE NOWAIT`, shiftID))
	if db.IsLockNotAvailable(err) {
		return nil, fmt.Errorf("shift %s: %w", shiftID, apperrors.ErrConflict)
	}
	if err != nil {
		return nil, err
	}
	if shift.Status != domain.StatusActive {
		return nil, fmt.Errorf("shift is %s: %w", shift.Status, apperrors.ErrInvalidTransition)
	}

	updated, err := scanShift(tx.QueryRow(ctx, `
		UPDATE shifts
		SET status = 'CANCELLED',
		    ended_at = $2,
		    notes = CASE WHEN notes = '' THEN $3 ELSE notes || E'\n' || $3 END
		WHERE id = $1
		RETURNING `+shiftColumns,
		shiftID, at, reason))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a non-ACTIVE shift. A live shift cannot be deleted.
func (r *ShiftRepo) Delete(ctx context.Context, shiftID string) error {
	cmd, err := r.db.Exec(ctx,
		`DELETE FROM shifts WHERE id = $1 AND status <> 'ACTIVE'`, shiftID)
	if err != nil {
		return fmt.Errorf("delete shift: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		var status domain.Status
		err := r.db.QueryRow(ctx, `SELECT status FROM shifts WHERE id = $1`, shiftID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("shift: %w", apperrors.ErrNotFound)
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("cannot delete an ACTIVE shift: %w", apperrors.ErrInvalidTransition)
	}
	return nil
}

func (r *ShiftRepo) HasActiveShift(ctx context.Context, driverID string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM shifts WHERE driver_id = $1 AND status = 'ACTIVE')
	`, driverID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active shift: %w", err)
	}
	return exists, nil
}
