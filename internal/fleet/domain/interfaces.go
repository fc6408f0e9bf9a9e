package domain

import "context"

type FleetRepository interface {
	CreateDriver(ctx context.Context, d *Driver) error
	GetDriver(ctx context.Context, id string) (*Driver, error)
	ListDrivers(ctx context.Context) ([]*Driver, error)
	SetDriverActive(ctx context.Context, id string, active bool) error
	SetMedicalStatus(ctx context.Context, id string, status MedicalStatus) error

	CreateCar(ctx context.Context, c *Car) error
	GetCar(ctx context.Context, id string) (*Car, error)
	ListCars(ctx context.Context) ([]*Car, error)
	SetTechnicalStatus(ctx context.Context, id string, status TechnicalStatus, inRepair bool) error

	// Bind pairs driver and car exclusively, both ways, in one
	// transaction with both rows locked. The car must be operational
	// and not bound to a different driver.
	Bind(ctx context.Context, driverID, carID string) error
	// Unbind clears the pairing unconditionally.
	Unbind(ctx context.Context, driverID string) error

	// DriverWithCar loads the driver together with its bound car, if any.
	DriverWithCar(ctx context.Context, driverID string) (*Driver, *Car, error)
}

// Registry is the slice of the fleet service the dispatch state
// machines depend on.
type Registry interface {
	DriverWithCar(ctx context.Context, driverID string) (*Driver, *Car, error)
	GetCar(ctx context.Context, carID string) (*Car, error)
	IsEligibleForShift(ctx context.Context, driverID string) (bool, error)
}
