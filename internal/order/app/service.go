package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	fleetdomain "taxi-fleet/internal/fleet/domain"
	"taxi-fleet/internal/order/domain"
	"taxi-fleet/internal/shared/apperrors"
	"taxi-fleet/internal/shared/permissions"
	"taxi-fleet/internal/shared/util"
)

// OrderService drives the order lifecycle. Every transition runs the
// permission gate first, then resource checks, then the atomic
// repository transition; a refused step leaves the order untouched.
type OrderService struct {
	repo   domain.OrderRepository
	fleet  fleetdomain.Registry
	shifts domain.ShiftChecker
	pub    domain.EventPublisher
	logger *util.Logger

	// requireActiveShift enables the optional cross-link policy: trips
	// may only start or complete while the driver holds an ACTIVE shift.
	requireActiveShift bool
}

func NewOrderService(
	repo domain.OrderRepository,
	fleet fleetdomain.Registry,
	shifts domain.ShiftChecker,
	pub domain.EventPublisher,
	logger *util.Logger,
	requireActiveShift bool,
) *OrderService {
	return &OrderService{
		repo:               repo,
		fleet:              fleet,
		shifts:             shifts,
		pub:                pub,
		logger:             logger,
		requireActiveShift: requireActiveShift,
	}
}

func orderNumber(now time.Time) string {
	return fmt.Sprintf("ORD_%s_%s_%03d",
		now.Format("20060102"),
		now.Format("150405"),
		now.Nanosecond()/1e6%1000,
	)
}

func (s *OrderService) Create(ctx context.Context, actor permissions.Actor, input domain.CreateOrderInput) (*domain.Order, error) {
	instance := "OrderService.Create"

	if !permissions.Allowed(actor.Role, permissions.ActionCreateOrder) {
		return nil, apperrors.ErrPermissionDenied
	}
	if strings.TrimSpace(input.PickupAddress) == "" {
		return nil, apperrors.Validationf("pickup address is required")
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return nil, apperrors.Validationf("customer name is required")
	}

	now := time.Now()
	order := &domain.Order{
		ID:                 uuid.NewString(),
		Number:             orderNumber(now),
		Status:             domain.StatusNew,
		CustomerName:       input.CustomerName,
		CustomerPhone:      input.CustomerPhone,
		PickupAddress:      input.PickupAddress,
		DestinationAddress: input.DestinationAddress,
		Notes:              input.Notes,
		CreatedAt:          now,
		PlannedPickupAt:    input.PlannedPickupAt,
	}

	if err := s.repo.Create(ctx, order, actor.ID); err != nil {
		s.logger.Error(instance, err)
		return nil, err
	}

	s.publish(ctx, "order.created", order)
	s.logger.OK(instance, "order created: "+order.Number)
	return order, nil
}

// Assign references an existing driver/car binding; it never rebinds.
// The chosen car must be operational and either unbound or bound to
// this same driver.
func (s *OrderService) Assign(ctx context.Context, actor permissions.Actor, orderID string, input domain.AssignInput) (*domain.Order, error) {
	instance := "OrderService.Assign"

	if !permissions.Allowed(actor.Role, permissions.ActionAssignDriver) {
		return nil, apperrors.ErrPermissionDenied
	}

	driver, boundCar, err := s.fleet.DriverWithCar(ctx, input.DriverID)
	if err != nil {
		return nil, err
	}
	if !driver.Active {
		return nil, fmt.Errorf("driver %s is inactive: %w", driver.ID, apperrors.ErrDriverIneligible)
	}

	var car *fleetdomain.Car
	switch {
	case input.CarID != nil:
		car, err = s.fleet.GetCar(ctx, *input.CarID)
		if err != nil {
			return nil, err
		}
	case boundCar != nil:
		car = boundCar
	default:
		return nil, fmt.Errorf("%w", domain.ErrNoCar)
	}

	if !car.Operational() {
		return nil, fmt.Errorf("car %s is not operational: %w", car.ID, apperrors.ErrCarUnavailable)
	}
	if car.DriverID != nil && *car.DriverID != driver.ID {
		return nil, fmt.Errorf("car %s is bound to another driver: %w", car.ID, apperrors.ErrCarUnavailable)
	}

	order, err := s.repo.Assign(ctx, orderID, driver.ID, car.ID, actor.ID)
	if err != nil {
		s.logger.Warn(instance, fmt.Sprintf("assign refused for order %s: %v", orderID, err))
		return nil, err
	}

	s.publish(ctx, "order.assigned", order)
	s.logger.OK(instance, fmt.Sprintf("order %s assigned to driver %s", order.Number, driver.ID))
	return order, nil
}

func (s *OrderService) Start(ctx context.Context, actor permissions.Actor, orderID string) (*domain.Order, error) {
	instance := "OrderService.Start"

	if !permissions.Allowed(actor.Role, permissions.ActionStartTrip) {
		return nil, apperrors.ErrPermissionDenied
	}

	current, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !permissions.OwnsOrder(actor, current.DriverID) {
		return nil, fmt.Errorf("order %s is not assigned to you: %w", orderID, apperrors.ErrPermissionDenied)
	}
	if err := s.checkShiftPolicy(ctx, current.DriverID); err != nil {
		return nil, err
	}

	order, err := s.repo.Start(ctx, orderID, time.Now(), actor.ID)
	if err != nil {
		s.logger.Warn(instance, fmt.Sprintf("start refused for order %s: %v", orderID, err))
		return nil, err
	}

	s.publish(ctx, "order.started", order)
	s.logger.OK(instance, "trip started: "+order.Number)
	return order, nil
}

func (s *OrderService) Complete(ctx context.Context, actor permissions.Actor, orderID string, input domain.CompleteInput) (*domain.Order, error) {
	instance := "OrderService.Complete"

	if !permissions.Allowed(actor.Role, permissions.ActionCompleteOrder) {
		return nil, apperrors.ErrPermissionDenied
	}
	if input.Price == nil {
		return nil, apperrors.Validationf("price is required")
	}
	if *input.Price < 0 {
		return nil, apperrors.Validationf("price must be >= 0, got %.2f", *input.Price)
	}
	if input.DistanceKm != nil && *input.DistanceKm < 0 {
		return nil, apperrors.Validationf("distance must be >= 0, got %.2f", *input.DistanceKm)
	}

	current, err := s.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if !permissions.OwnsOrder(actor, current.DriverID) {
		return nil, fmt.Errorf("order %s is not assigned to you: %w", orderID, apperrors.ErrPermissionDenied)
	}
	if err := s.checkShiftPolicy(ctx, current.DriverID); err != nil {
		return nil, err
	}

	order, err := s.repo.Complete(ctx, orderID, input.DistanceKm, *input.Price, time.Now(), actor.ID)
	if err != nil {
		s.logger.Warn(instance, fmt.Sprintf("complete refused for order %s: %v", orderID, err))
		return nil, err
	}

	s.publish(ctx, "order.completed", order)
	s.logger.OK(instance, "order completed: "+order.Number)
	return order, nil
}

func (s *OrderService) Cancel(ctx context.Context, actor permissions.Actor, orderID, reason string) (*domain.Order, error) {
	instance := "OrderService.Cancel"

	if !permissions.Allowed(actor.Role, permissions.ActionCancelOrder) {
		return nil, apperrors.ErrPermissionDenied
	}
	if strings.TrimSpace(reason) == "" {
		return nil, apperrors.Validationf("cancellation reason is required")
	}

	order, err := s.repo.Cancel(ctx, orderID, reason, time.Now(), actor.ID)
	if err != nil {
		s.logger.Warn(instance, fmt.Sprintf("cancel refused for order %s: %v", orderID, err))
		return nil, err
	}

	s.publish(ctx, "order.cancelled", order)
	s.logger.OK(instance, "order cancelled: "+order.Number)
	return order, nil
}

func (s *OrderService) Get(ctx context.Context, id string) (*domain.Order, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *OrderService) List(ctx context.Context, filter domain.ListFilter) ([]*domain.Order, error) {
	return s.repo.List(ctx, filter)
}

func (s *OrderService) StatusHistory(ctx context.Context, orderID string) ([]*domain.StatusLog, error) {
	return s.repo.StatusHistory(ctx, orderID)
}

func (s *OrderService) checkShiftPolicy(ctx context.Context, driverID *string) error {
	if !s.requireActiveShift || driverID == nil {
		return nil
	}
	active, err := s.shifts.HasActiveShift(ctx, *driverID)
	if err != nil {
		return err
	}
	if !active {
		return fmt.Errorf("driver %s has no active shift: %w", *driverID, apperrors.ErrDriverIneligible)
	}
	return nil
}

func (s *OrderService) publish(ctx context.Context, key string, order *domain.Order) {
	if s.pub == nil {
		return
	}
	if err := s.pub.Publish(ctx, key, order); err != nil {
		s.logger.Warn("OrderService.publish", fmt.Sprintf("event %s not published: %v", key, err))
	}
}
