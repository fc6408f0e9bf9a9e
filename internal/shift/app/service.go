package app

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	fleetdomain "taxi-fleet/internal/fleet/domain"
	"taxi-fleet/internal/shared/apperrors"
	"taxi-fleet/internal/shared/permissions"
	"taxi-fleet/internal/shared/util"
	"taxi-fleet/internal/shift/domain"
)

// ShiftService is the waybill ledger: it opens shifts for eligible
// driver/car pairs and closes them with computed aggregates.
type ShiftService struct {
	repo   domain.ShiftRepository
	fleet  fleetdomain.Registry
	pub    domain.EventPublisher
	logger *util.Logger
}

func NewShiftService(repo domain.ShiftRepository, fleet fleetdomain.Registry, pub domain.EventPublisher, logger *util.Logger) *ShiftService {
	return &ShiftService{repo: repo, fleet: fleet, pub: pub, logger: logger}
}

// Open starts a shift for the driver's currently bound car. The
// pre-checks here give precise errors early; the repository repeats the
// eligibility and uniqueness checks under row locks, so a status change
// racing this call cannot slip an ineligible driver through.
func (s *ShiftService) Open(ctx context.Context, actor permissions.Actor, input domain.OpenInput) (*domain.Shift, error) {
	instance := "ShiftService.Open"

	if !permissions.Allowed(actor.Role, permissions.ActionOpenShift) {
		return nil, apperrors.ErrPermissionDenied
	}
	if input.InitialMileage < 0 {
		return nil, apperrors.Validationf("initial mileage must be >= 0, got %.1f", input.InitialMileage)
	}

	driver, car, err := s.fleet.DriverWithCar(ctx, input.DriverID)
	if err != nil {
		return nil, err
	}
	if !driver.Active || driver.Medical != fleetdomain.MedicalPassed {
		return nil, fmt.Errorf("driver %s medical status %s: %w",
			driver.ID, driver.Medical, apperrors.ErrDriverIneligible)
	}
	if !car.Operational() {
		return nil, fmt.Errorf("driver %s has no operational car: %w",
			driver.ID, apperrors.ErrCarUnavailable)
	}

	if busy, err := s.repo.HasActiveShift(ctx, driver.ID); err != nil {
		return nil, err
	} else if busy {
		return nil, fmt.Errorf("driver %s: %w", driver.ID, apperrors.ErrDriverBusy)
	}

	shift := &domain.Shift{
		ID:             uuid.NewString(),
		Status:         domain.StatusActive,
		DriverID:       driver.ID,
		CarID:          car.ID,
		TechnicianID:   actor.ID,
		StartedAt:      time.Now(),
		InitialMileage: input.InitialMileage,
		Notes:          input.Notes,
	}

	if err := s.repo.Open(ctx, shift); err != nil {
		s.logger.Warn(instance, fmt.Sprintf("open refused for driver %s: %v", driver.ID, err))
		return nil, err
	}

	s.publish(ctx, "shift.opened", shift)
	s.logger.OK(instance, fmt.Sprintf("shift %s opened for driver %s / car %s",
		shift.ID, driver.ID, car.ID))
	return shift, nil
}

func (s *ShiftService) Close(ctx context.Context, actor permissions.Actor, shiftID string, input domain.CloseInput) (*domain.Shift, error) {
	instance := "ShiftService.Close"

	if !permissions.Allowed(actor.Role, permissions.ActionCloseShift) {
		return nil, apperrors.ErrPermissionDenied
	}
	if input.Earnings < 0 {
		return nil, apperrors.Validationf("earnings must be >= 0, got %.2f", input.Earnings)
	}

	shift, err := s.repo.Close(ctx, shiftID, input.FinalMileage, input.Earnings, input.Notes, time.Now())
	if err != nil {
		s.logger.Warn(instance, fmt.Sprintf("close refused for shift %s: %v", shiftID, err))
		return nil, err
	}

	s.publish(ctx, "shift.closed", shift)
	s.logger.OK(instance, fmt.Sprintf("shift %s closed, mileage %.1f km, revenue %.2f",
		shift.ID, shift.Mileage(), deref(shift.TotalRevenue)))
	return shift, nil
}

func (s *ShiftService) Cancel(ctx context.Context, actor permissions.Actor, shiftID, reason string) (*domain.Shift, error) {
	if !permissions.Allowed(actor.Role, permissions.ActionCancelShift) {
		return nil, apperrors.ErrPermissionDenied
	}
	if reason == "" {
		return nil, apperrors.Validationf("cancellation reason is required")
	}

	shift, err := s.repo.Cancel(ctx, shiftID, reason, time.Now())
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "shift.cancelled", shift)
	return shift, nil
}

func (s *ShiftService) Delete(ctx context.Context, actor permissions.Actor, shiftID string) error {
	if !permissions.Allowed(actor.Role, permissions.ActionDeleteShift) {
		return apperrors.ErrPermissionDenied
	}
	return s.repo.Delete(ctx, shiftID)
}

func (s *ShiftService) Get(ctx context.Context, id string) (*domain.Shift, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *ShiftService) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Shift, error) {
	return s.repo.List(ctx, filter)
}

// Summary reports the aggregates of a closed shift.
func (s *ShiftService) Summary(ctx context.Context, id string) (*domain.Summary, error) {
	shift, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if shift.EndedAt == nil {
		return nil, fmt.Errorf("shift %s is still open: %w", id, apperrors.ErrInvalidTransition)
	}
	return &domain.Summary{
		DurationHours: shift.EndedAt.Sub(shift.StartedAt).Hours(),
		MileageKm:     shift.Mileage(),
		Earnings:      deref(shift.TotalEarnings),
		Revenue:       deref(shift.TotalRevenue),
	}, nil
}

func (s *ShiftService) publish(ctx context.Context, key string, shift *domain.Shift) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, key, shift); err != nil {
		s.logger.Warn("ShiftService.publish", fmt.Sprintf("event %s not published: %v", key, err))
	}
}

func deref(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}
