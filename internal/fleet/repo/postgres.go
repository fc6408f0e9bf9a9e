package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taxi-fleet/internal/fleet/domain"
	"taxi-fleet/internal/shared/apperrors"
	"taxi-fleet/internal/shared/db"
)

type FleetRepo struct {
	db *pgxpool.Pool
}

func NewFleetRepo(pool *pgxpool.Pool) *FleetRepo {
	return &FleetRepo{db: pool}
}

const driverColumns = `id, name, license_number, phone, medical_status, active, car_id, created_at, updated_at`

func scanDriver(row pgx.Row) (*domain.Driver, error) {
	var d domain.Driver
	err := row.Scan(&d.ID, &d.Name, &d.LicenseNumber, &d.Phone, &d.Medical,
		&d.Active, &d.CarID, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("driver: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

const carColumns = `id, plate_number, vin, active, in_repair, technical_status, driver_id, created_at, updated_at`

func scanCar(row pgx.Row) (*domain.Car, error) {
	var c domain.Car
	err := row.Scan(&c.ID, &c.PlateNumber, &c.VIN, &c.Active, &c.InRepair,
		&c.Technical, &c.DriverID, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("car: %w", apperrors.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *FleetRepo) CreateDriver(ctx context.Context, d *domain.Driver) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO drivers (id, name, license_number, phone, medical_status, active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, d.ID, d.Name, d.LicenseNumber, d.Phone, d.Medical, d.Active, d.CreatedAt, d.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return apperrors.Validationf("license number %s already registered", d.LicenseNumber)
	}
	if err != nil {
		return fmt.Errorf("insert driver: %w", err)
	}
	return nil
}

func (r *FleetRepo) GetDriver(ctx context.Context, id string) (*domain.Driver, error) {
	return scanDriver(r.db.QueryRow(ctx,
		`SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id))
}

func (r *FleetRepo) ListDrivers(ctx context.Context) ([]*domain.Driver, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+driverColumns+` FROM drivers ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list drivers: %w", err)
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, d)
	}
	return drivers, rows.Err()
}

func (r *FleetRepo) SetDriverActive(ctx context.Context, id string, active bool) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE drivers SET active = $2, updated_at = NOW() WHERE id = $1`, id, active)
	if err != nil {
		return fmt.Errorf("update driver active: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("driver: %w", apperrors.ErrNotFound)
	}
	return nil
}

func (r *FleetRepo) SetMedicalStatus(ctx context.Context, id string, status domain.MedicalStatus) error {
	cmd, err := r.db.Exec(ctx,
		`UPDATE drivers SET medical_status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("update medical status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("driver: %w", apperrors.ErrNotFound)
	}
	return nil
}

func (r *FleetRepo) CreateCar(ctx context.Context, c *domain.Car) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO cars (id, plate_number, vin, active, in_repair, technical_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, c.ID, c.PlateNumber, c.VIN, c.Active, c.InRepair, c.Technical, c.CreatedAt, c.UpdatedAt)
	if db.IsUniqueViolation(err) {
		return apperrors.Validationf("plate number %s already registered", c.PlateNumber)
	}
	if err != nil {
		return fmt.Errorf("insert car: %w", err)
	}
	return nil
}

func (r *FleetRepo) GetCar(ctx context.Context, id string) (*domain.Car, error) {
	return scanCar(r.db.QueryRow(ctx,
		`SELECT `+carColumns+` FROM cars WHERE id = $1`, id))
}

func (r *FleetRepo) ListCars(ctx context.Context) ([]*domain.Car, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+carColumns+` FROM cars ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("list cars: %w", err)
	}
	defer rows.Close()

	var cars []*domain.Car
	for rows.Next() {
		c, err := scanCar(rows)
		if err != nil {
			return nil, err
		}
		cars = append(cars, c)
	}
	return cars, rows.Err()
}

func (r *FleetRepo) SetTechnicalStatus(ctx context.Context, id string, status domain.TechnicalStatus, inRepair bool) error {
	cmd, err := r.db.Exec(ctx, `
		UPDATE cars SET technical_status = $2, in_repair = $3, updated_at = NOW() WHERE id = $1
	`, id, status, inRepair)
	if err != nil {
		return fmt.Errorf("update technical status: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("car: %w", apperrors.ErrNotFound)
	}
	return nil
}

// Bind locks the driver row first and the car row second, always in
// that order, so concurrent binds on the same pair cannot deadlock.
// NOWAIT turns a held lock into an immediate retryable conflict.
func (r *FleetRepo) Bind(ctx context.Context, driverID, carID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	driver, err := scanDriver(tx.QueryRow(ctx,
		`SELECT `+driverColumns+` FROM drivers WHERE id = $1 FOR UPDATE NOWAIT`, driverID))
	if db.IsLockNotAvailable(err) {
		return fmt.Errorf("bind driver %s: %w", driverID, apperrors.ErrConflict)
	}
	if err != nil {
		return err
	}

	car, err := scanCar(tx.QueryRow(ctx,
		`SELECT `+carColumns+` FROM cars WHERE id = $1 FOR UPDATE NOWAIT`, carID))
	if db.IsLockNotAvailable(err) {
		return fmt.Errorf("bind car %s: %w", carID, apperrors.ErrConflict)
	}
	if err != nil {
		return err
	}

	if !car.Operational() {
		return fmt.Errorf("car %s is not operational: %w", carID, apperrors.ErrCarUnavailable)
	}
	if car.DriverID != nil && *car.DriverID != driverID {
		return fmt.Errorf("car %s already bound to another driver: %w", carID, apperrors.ErrCarUnavailable)
	}
	if !driver.Active {
		return fmt.Errorf("driver %s is inactive: %w", driverID, apperrors.ErrDriverIneligible)
	}

	// Release the driver's previous car, if different.
	if driver.CarID != nil && *driver.CarID != carID {
		if _, err := tx.Exec(ctx,
			`UPDATE cars SET driver_id = NULL, updated_at = NOW() WHERE id = $1`, *driver.CarID); err != nil {
			return fmt.Errorf("release previous car: %w", err)
		}
	}

	if _, err := tx.Exec(ctx,
		`UPDATE drivers SET car_id = $2, updated_at = NOW() WHERE id = $1`, driverID, carID); err != nil {
		return fmt.Errorf("set driver car: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`UPDATE cars SET driver_id = $2, updated_at = NOW() WHERE id = $1`, carID, driverID); err != nil {
		return fmt.Errorf("set car driver: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *FleetRepo) Unbind(ctx context.Context, driverID string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	driver, err := scanDriver(tx.QueryRow(ctx,
		`SELECT `+driverColumns+` FROM drivers WHERE id = $1 FOR UPDATE NOWAIT`, driverID))
	if db.IsLockNotAvailable(err) {
		return fmt.Errorf("unbind driver %s: %w", driverID, apperrors.ErrConflict)
	}
	if err != nil {
		return err
	}

	if driver.CarID != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE cars SET driver_id = NULL, updated_at = NOW() WHERE id = $1`, *driver.CarID); err != nil {
			return fmt.Errorf("clear car driver: %w", err)
		}
	}
	if _, err := tx.Exec(ctx,
		`UPDATE drivers SET car_id = NULL, updated_at = NOW() WHERE id = $1`, driverID); err != nil {
		return fmt.Errorf("clear driver car: %w", err)
	}

	return tx.Commit(ctx)
}

func (r *FleetRepo) DriverWithCar(ctx context.Context, driverID string) (*domain.Driver, *domain.Car, error) {
	driver, err := r.GetDriver(ctx, driverID)
	if err != nil {
		return nil, nil, err
	}
	if driver.CarID == nil {
		return driver, nil, nil
	}
	car, err := r.GetCar(ctx, *driver.CarID)
	if err != nil {
		return nil, nil, err
	}
	return driver, car, nil
}
