package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taxi-fleet/internal/fleet/domain"
	"taxi-fleet/internal/shared/apperrors"
	"taxi-fleet/internal/shared/permissions"
	"taxi-fleet/internal/shared/util"
)

// FleetService is the resource registry: it owns driver and car
// records and the exclusive binding between them.
type FleetService struct {
	repo   domain.FleetRepository
	logger *util.Logger
}

func NewFleetService(repo domain.FleetRepository, logger *util.Logger) *FleetService {
	return &FleetService{repo: repo, logger: logger}
}

func (s *FleetService) CreateDriver(ctx context.Context, actor permissions.Actor, input domain.CreateDriverInput) (*domain.Driver, error) {
	if !permissions.Allowed(actor.Role, permissions.ActionManageFleet) {
		return nil, apperrors.ErrPermissionDenied
	}
	if strings.TrimSpace(input.Name) == "" {
		return nil, apperrors.Validationf("driver name is required")
	}
	if strings.TrimSpace(input.LicenseNumber) == "" {
		return nil, apperrors.Validationf("license number is required")
	}

	now := time.Now()
	driver := &domain.Driver{
		ID:            uuid.NewString(),
		Name:          input.Name,
		LicenseNumber: input.LicenseNumber,
		Phone:         input.Phone,
		Medical:       domain.MedicalPending,
		Active:        true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.repo.CreateDriver(ctx, driver); err != nil {
		return nil, err
	}

	s.logger.OK("FleetService.CreateDriver", "driver registered: "+driver.ID)
	return driver, nil
}

func (s *FleetService) CreateCar(ctx context.Context, actor permissions.Actor, input domain.CreateCarInput) (*domain.Car, error) {
	if !permissions.Allowed(actor.Role, permissions.ActionManageFleet) {
		return nil, apperrors.ErrPermissionDenied
	}
	if strings.TrimSpace(input.PlateNumber) == "" {
		return nil, apperrors.Validationf("plate number is required")
	}

	now := time.Now()
	car := &domain.Car{
		ID:          uuid.NewString(),
		PlateNumber: input.PlateNumber,
		VIN:         input.VIN,
		Active:      true,
		Technical:   domain.TechnicalUnknown,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateCar(ctx, car); err != nil {
		return nil, err
	}

	s.logger.OK("FleetService.CreateCar", "car registered: "+car.ID)
	return car, nil
}

func (s *FleetService) GetDriver(ctx context.Context, id string) (*domain.Driver, error) {
	return s.repo.GetDriver(ctx, id)
}

func (s *FleetService) GetCar(ctx context.Context, id string) (*domain.Car, error) {
	return s.repo.GetCar(ctx, id)
}

func (s *FleetService) ListDrivers(ctx context.Context) ([]*domain.Driver, error) {
	return s.repo.ListDrivers(ctx)
}

func (s *FleetService) ListCars(ctx context.Context) ([]*domain.Car, error) {
	return s.repo.ListCars(ctx)
}

// SetMedicalStatus records a medical check result for the driver.
func (s *FleetService) SetMedicalStatus(ctx context.Context, actor permissions.Actor, driverID string, status domain.MedicalStatus) error {
	if !permissions.Allowed(actor.Role, permissions.ActionSetMedical) {
		return apperrors.ErrPermissionDenied
	}
	if !domain.ValidMedicalStatus(status) {
		return apperrors.Validationf("unknown medical status %q", status)
	}
	if err := s.repo.SetMedicalStatus(ctx, driverID, status); err != nil {
		return err
	}
	s.logger.Info("FleetService.SetMedicalStatus",
		fmt.Sprintf("driver %s medical status -> %s", driverID, status))
	return nil
}

// SetTechnicalStatus records a technical inspection result for the car.
func (s *FleetService) SetTechnicalStatus(ctx context.Context, actor permissions.Actor, carID string, status domain.TechnicalStatus, inRepair bool) error {
	if !permissions.Allowed(actor.Role, permissions.ActionSetTechnical) {
		return apperrors.ErrPermissionDenied
	}
	if !domain.ValidTechnicalStatus(status) {
		return apperrors.Validationf("unknown technical status %q", status)
	}
	if err := s.repo.SetTechnicalStatus(ctx, carID, status, inRepair); err != nil {
		return err
	}
	s.logger.Info("FleetService.SetTechnicalStatus",
		fmt.Sprintf("car %s technical status -> %s (in_repair=%v)", carID, status, inRepair))
	return nil
}

func (s *FleetService) SetDriverActive(ctx context.Context, actor permissions.Actor, driverID string, active bool) error {
	if !permissions.Allowed(actor.Role, permissions.ActionManageFleet) {
		return apperrors.ErrPermissionDenied
	}
	if err := s.repo.SetDriverActive(ctx, driverID, active); err != nil {
		return err
	}
	if !active {
		// a deactivated driver keeps no car
		return s.repo.Unbind(ctx, driverID)
	}
	return nil
}

// Bind pairs the driver with the car. The repo enforces exclusivity and
// operational checks atomically; failures arrive as ErrCarUnavailable,
// ErrDriverIneligible or ErrConflict.
func (s *FleetService) Bind(ctx context.Context, actor permissions.Actor, driverID, carID string) error {
	if !permissions.Allowed(actor.Role, permissions.ActionManageFleet) {
		return apperrors.ErrPermissionDenied
	}
	if err := s.repo.Bind(ctx, driverID, carID); err != nil {
		return err
	}
	s.logger.OK("FleetService.Bind",
		fmt.Sprintf("driver %s bound to car %s", driverID, carID))
	return nil
}

func (s *FleetService) Unbind(ctx context.Context, actor permissions.Actor, driverID string) error {
	if !permissions.Allowed(actor.Role, permissions.ActionManageFleet) {
		return apperrors.ErrPermissionDenied
	}
	if err := s.repo.Unbind(ctx, driverID); err != nil {
		return err
	}
	s.logger.Info("FleetService.Unbind", "driver unbound: "+driverID)
	return nil
}

func (s *FleetService) DriverWithCar(ctx context.Context, driverID string) (*domain.Driver, *domain.Car, error) {
	return s.repo.DriverWithCar(ctx, driverID)
}

// IsEligibleForShift: medical check PASSED and the bound car operational.
func (s *FleetService) IsEligibleForShift(ctx context.Context, driverID string) (bool, error) {
	driver, car, err := s.repo.DriverWithCar(ctx, driverID)
	if err != nil {
		return false, err
	}
	return driver.EligibleForShift(car), nil
}
