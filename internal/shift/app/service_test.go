package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	fleetdomain "taxi-fleet/internal/fleet/domain"
	"taxi-fleet/internal/shared/apperrors"
	"taxi-fleet/internal/shared/permissions"
	"taxi-fleet/internal/shared/util"
	"taxi-fleet/internal/shift/domain"
)

type completedOrder struct {
	driverID    string
	price       float64
	completedAt time.Time
}

// fakeShiftRepo upholds the postgres repo contract: one ACTIVE shift
// per driver, open re-validates eligibility at admission time, close
// validates mileage and aggregates revenue, all under a single mutex.
type fakeShiftRepo struct {
	mu     sync.Mutex
	shifts map[string]*domain.Shift
	orders []completedOrder

	// admit mirrors the row-locked re-check Open runs in its
	// transaction; beforeAdmit lets a test hold Open at that point.
	admit       func(driverID, carID string) error
	beforeAdmit func()
}

func newFakeShiftRepo() *fakeShiftRepo {
	return &fakeShiftRepo{shifts: make(map[string]*domain.Shift)}
}

func (f *fakeShiftRepo) Open(_ context.Context, s *domain.Shift) error {
	if f.beforeAdmit != nil {
		f.beforeAdmit()
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.admit != nil {
		if err := f.admit(s.DriverID, s.CarID); err != nil {
			return err
		}
	}
	for _, other := range f.shifts {
		if other.DriverID == s.DriverID && other.Status == domain.StatusActive {
			return fmt.Errorf("driver %s: %w", s.DriverID, apperrors.ErrDriverBusy)
		}
	}
	cp := *s
	f.shifts[s.ID] = &cp
	return nil
}

func (f *fakeShiftRepo) GetByID(_ context.Context, id string) (*domain.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shifts[id]
	if !ok {
		return nil, fmt.Errorf("shift: %w", apperrors.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (f *fakeShiftRepo) List(_ context.Context, filter domain.ListFilter) ([]*domain.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Shift
	for _, s := range f.shifts {
		if filter.DriverID != nil && s.DriverID != *filter.DriverID {
			continue
		}
		if filter.Status != nil && s.Status != *filter.Status {
			continue
		}
		cp := *s
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeShiftRepo) Close(_ context.Context, shiftID string, finalMileage, earnings float64, notes string, at time.Time) (*domain.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	s, ok := f.shifts[shiftID]
	if !ok {
		return nil, fmt.Errorf("shift: %w", apperrors.ErrNotFound)
	}
	if s.Status != domain.StatusActive {
		return nil, fmt.Errorf("shift is %s: %w", s.Status, apperrors.ErrInvalidTransition)
	}
	if finalMileage <= s.InitialMileage {
		return nil, apperrors.Validationf("final mileage %.1f must exceed initial %.1f",
			finalMileage, s.InitialMileage)
	}

	var revenue float64
	for _, o := range f.orders {
		if o.driverID == s.DriverID && !o.completedAt.Before(s.StartedAt) && !o.completedAt.After(at) {
			revenue += o.price
		}
	}

	s.Status = domain.StatusCompleted
	s.EndedAt = &at
	s.FinalMileage = &finalMileage
	s.TotalEarnings = &earnings
	s.TotalRevenue = &revenue
	if notes != "" {
		if s.Notes == "" {
			s.Notes = notes
		} else {
			s.Notes = s.Notes + "\n" + notes
		}
	}
	cp := *s
	return &cp, nil
}

func (f *fakeShiftRepo) Cancel(_ context.Context, shiftID, reason string, at time.Time) (*domain.Shift, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shifts[shiftID]
	if !ok {
		return nil, fmt.Errorf("shift: %w", apperrors.ErrNotFound)
	}
	if s.Status != domain.StatusActive {
		return nil, fmt.Errorf("shift is %s: %w", s.Status, apperrors.ErrInvalidTransition)
	}
	s.Status = domain.StatusCancelled
	s.EndedAt = &at
	cp := *s
	return &cp, nil
}

func (f *fakeShiftRepo) Delete(_ context.Context, shiftID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.shifts[shiftID]
	if !ok {
		return fmt.Errorf("shift: %w", apperrors.ErrNotFound)
	}
	if s.Status == domain.StatusActive {
		return fmt.Errorf("cannot delete an ACTIVE shift: %w", apperrors.ErrInvalidTransition)
	}
	delete(f.shifts, shiftID)
	return nil
}

func (f *fakeShiftRepo) HasActiveShift(_ context.Context, driverID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.shifts {
		if s.DriverID == driverID && s.Status == domain.StatusActive {
			return true, nil
		}
	}
	return false, nil
}

type fakeRegistry struct {
	drivers map[string]*fleetdomain.Driver
	cars    map[string]*fleetdomain.Car
}

func (f *fakeRegistry) DriverWithCar(_ context.Context, driverID string) (*fleetdomain.Driver, *fleetdomain.Car, error) {
	d, ok := f.drivers[driverID]
	if !ok {
		return nil, nil, fmt.Errorf("driver: %w", apperrors.ErrNotFound)
	}
	if d.CarID == nil {
		return d, nil, nil
	}
	return d, f.cars[*d.CarID], nil
}

func (f *fakeRegistry) GetCar(_ context.Context, carID string) (*fleetdomain.Car, error) {
	c, ok := f.cars[carID]
	if !ok {
		return nil, fmt.Errorf("car: %w", apperrors.ErrNotFound)
	}
	return c, nil
}

func (f *fakeRegistry) IsEligibleForShift(ctx context.Context, driverID string) (bool, error) {
	d, c, err := f.DriverWithCar(ctx, driverID)
	if err != nil {
		return false, err
	}
	return d.EligibleForShift(c), nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, interface{}) error { return nil }

var (
	mechanic = permissions.Actor{ID: "mech-1", Role: permissions.RoleMechanic}
	operator = permissions.Actor{ID: "op-1", Role: permissions.RoleOperator}
	admin    = permissions.Actor{ID: "admin-1", Role: permissions.RoleAdmin}
)

func registryWith(medical fleetdomain.MedicalStatus, technical fleetdomain.TechnicalStatus) *fakeRegistry {
	c1 := "c1"
	d1 := "d1"
	return &fakeRegistry{
		drivers: map[string]*fleetdomain.Driver{
			"d1": {ID: "d1", Active: true, Medical: medical, CarID: &c1},
			"d2": {ID: "d2", Active: true, Medical: fleetdomain.MedicalPassed},
		},
		cars: map[string]*fleetdomain.Car{
			"c1": {ID: "c1", Active: true, Technical: technical, DriverID: &d1},
		},
	}
}

func newService(reg *fakeRegistry) (*ShiftService, *fakeShiftRepo) {
	repo := newFakeShiftRepo()
	return NewShiftService(repo, reg, nopPublisher{}, util.NewLogger()), repo
}

// Scenario D: open for eligible driver, second open refused.
func TestOpenShiftAndDriverBusy(t *testing.T) {
	svc, _ := newService(registryWith(fleetdomain.MedicalPassed, fleetdomain.TechnicalOK))
	ctx := context.Background()

	shift, err := svc.Open(ctx, mechanic, domain.OpenInput{DriverID: "d1", InitialMileage: 1000})
	if err != nil {
		t.Fatal(err)
	}
	if shift.Status != domain.StatusActive {
		t.Fatalf("status = %s, want ACTIVE", shift.Status)
	}
	if shift.CarID != "c1" || shift.DriverID != "d1" {
		t.Error("shift not bound to the driver's car")
	}

	_, err = svc.Open(ctx, mechanic, domain.OpenInput{DriverID: "d1", InitialMileage: 1000})
	if !errors.Is(err, apperrors.ErrDriverBusy) {
		t.Fatalf("second open: got %v, want ErrDriverBusy", err)
	}
}

func TestOpenShiftEligibility(t *testing.T) {
	ctx := context.Background()

	svc, _ := newService(registryWith(fleetdomain.MedicalExpired, fleetdomain.TechnicalOK))
	_, err := svc.Open(ctx, mechanic, domain.OpenInput{DriverID: "d1", InitialMileage: 0})
	if !errors.Is(err, apperrors.ErrDriverIneligible) {
		t.Errorf("expired medical: got %v, want ErrDriverIneligible", err)
	}

	svc, _ = newService(registryWith(fleetdomain.MedicalPassed, fleetdomain.TechnicalNeedsRepair))
	_, err = svc.Open(ctx, mechanic, domain.OpenInput{DriverID: "d1", InitialMileage: 0})
	if !errors.Is(err, apperrors.ErrCarUnavailable) {
		t.Errorf("car in need of repair: got %v, want ErrCarUnavailable", err)
	}

	// d2 has no bound car at all
	svc, _ = newService(registryWith(fleetdomain.MedicalPassed, fleetdomain.TechnicalOK))
	_, err = svc.Open(ctx, mechanic, domain.OpenInput{DriverID: "d2", InitialMileage: 0})
	if !errors.Is(err, apperrors.ErrCarUnavailable) {
		t.Errorf("no bound car: got %v, want ErrCarUnavailable", err)
	}
}

func TestOpenShiftPermissionsAndValidation(t *testing.T) {
	svc, _ := newService(registryWith(fleetdomain.MedicalPassed, fleetdomain.TechnicalOK))
	ctx := context.Background()

	_, err := svc.Open(ctx, operator, domain.OpenInput{DriverID: "d1", InitialMileage: 0})
	if !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("operator opening shift: got %v, want ErrPermissionDenied", err)
	}

	_, err = svc.Open(ctx, mechanic, domain.OpenInput{DriverID: "d1", InitialMileage: -5})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("negative mileage: got %v, want ErrValidation", err)
	}
}

// Scenario E: closing with final mileage below initial is refused and
// the shift stays ACTIVE.
func TestCloseRejectsBadMileage(t *testing.T) {
	svc, repo := newService(registryWith(fleetdomain.MedicalPassed, fleetdomain.TechnicalOK))
	ctx := context.Background()

	shift, err := svc.Open(ctx, mechanic, domain.OpenInput{DriverID: "d1", InitialMileage: 1000})
	if err != nil {
		t.Fatal(err)
	}

	_, err = svc.Close(ctx, mechanic, shift.ID, domain.CloseInput{FinalMileage: 950, Earnings: 100})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Fatalf("got %v, want ErrValidation", err)
	}

	after, err := repo.GetByID(ctx, shift.ID)
	if err != nil {
		t.Fatal(err)
	}
	if after.Status != domain.StatusActive {
		t.Fatalf("status after refused close = %s, want ACTIVE", after.Status)
	}
}

func TestCloseComputesAggregates(t *testing.T) {
	svc, repo := newService(registryWith(fleetdomain.MedicalPassed, fleetdomain.TechnicalOK))
	ctx := context.Background()

	shift, err := svc.Open(ctx, mechanic, domain.OpenInput{DriverID: "d1", InitialMileage: 1000})
	if err != nil {
		t.Fatal(err)
	}

	// two completed orders inside the shift window, one by another driver
	now := time.Now()
	repo.orders = []completedOrder{
		{driverID: "d1", price: 300, completedAt: now},
		{driverID: "d1", price: 450, completedAt: now},
		{driverID: "d2", price: 999, completedAt: now},
		{driverID: "d1", price: 100, completedAt: shift.StartedAt.Add(-time.Hour)},
	}

	closed, err := svc.Close(ctx, mechanic, shift.ID, domain.CloseInput{FinalMileage: 1180, Earnings: 500})
	if err != nil {
		t.Fatal(err)
	}

	if closed.Status != domain.StatusCompleted || closed.EndedAt == nil {
		t.Fatal("shift not completed")
	}
	if got := closed.Mileage(); got != 180 {
		t.Errorf("mileage = %.1f, want 180", got)
	}
	if closed.TotalRevenue == nil || *closed.TotalRevenue != 750 {
		t.Errorf("revenue = %v, want 750", closed.TotalRevenue)
	}
	if closed.TotalEarnings == nil || *closed.TotalEarnings != 500 {
		t.Errorf("earnings = %v, want 500", closed.TotalEarnings)
	}

	// no reopening: closing again must be refused
	_, err = svc.Close(ctx, mechanic, shift.ID, domain.CloseInput{FinalMileage: 1200, Earnings: 0})
	if !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Fatalf("second close: got %v, want ErrInvalidTransition", err)
	}
}

// A medical downgrade landing between the service pre-check and the
// insert must still be caught: admission re-reads driver state the way
// the postgres repo does under its row lock.
func TestOpenRechecksEligibilityAtAdmission(t *testing.T) {
	reg := registryWith(fleetdomain.MedicalPassed, fleetdomain.TechnicalOK)
	repo := newFakeShiftRepo()
	repo.admit = func(driverID, carID string) error {
		d, c, err := reg.DriverWithCar(context.Background(), driverID)
		if err != nil {
			return err
		}
		if !d.Active || d.Medical != fleetdomain.MedicalPassed {
			return fmt.Errorf("driver %s medical status %s: %w",
				d.ID, d.Medical, apperrors.ErrDriverIneligible)
		}
		if !c.Operational() {
			return fmt.Errorf("car %s is not operational: %w", carID, apperrors.ErrCarUnavailable)
		}
		return nil
	}

	entered := make(chan struct{})
	release := make(chan struct{})
	repo.beforeAdmit = func() {
		close(entered)
		<-release
	}

	svc := NewShiftService(repo, reg, nopPublisher{}, util.NewLogger())

	errCh := make(chan error, 1)
	go func() {
		_, err := svc.Open(context.Background(), mechanic,
			domain.OpenInput{DriverID: "d1", InitialMileage: 1000})
		errCh <- err
	}()

	// the service pre-check has passed; fail the medical before the
	// repo admits the shift
	<-entered
	reg.drivers["d1"].Medical = fleetdomain.MedicalFailed
	close(release)

	if err := <-errCh; !errors.Is(err, apperrors.ErrDriverIneligible) {
		t.Fatalf("got %v, want ErrDriverIneligible", err)
	}
	busy, err := repo.HasActiveShift(context.Background(), "d1")
	if err != nil {
		t.Fatal(err)
	}
	if busy {
		t.Fatal("shift opened for a driver who failed the medical mid-open")
	}
}

func TestConcurrentOpenSameDriver(t *testing.T) {
	svc, _ := newService(registryWith(fleetdomain.MedicalPassed, fleetdomain.TechnicalOK))
	ctx := context.Background()

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Open(ctx, mechanic, domain.OpenInput{DriverID: "d1", InitialMileage: 1000})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, apperrors.ErrDriverBusy) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("%d shifts opened concurrently, want exactly 1", wins)
	}
}

func TestDeleteRules(t *testing.T) {
	svc, _ := newService(registryWith(fleetdomain.MedicalPassed, fleetdomain.TechnicalOK))
	ctx := context.Background()

	shift, err := svc.Open(ctx, mechanic, domain.OpenInput{DriverID: "d1", InitialMileage: 100})
	if err != nil {
		t.Fatal(err)
	}

	if err := svc.Delete(ctx, mechanic, shift.ID); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("mechanic deleting shift: got %v, want ErrPermissionDenied", err)
	}
	if err := svc.Delete(ctx, admin, shift.ID); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("deleting ACTIVE shift: got %v, want ErrInvalidTransition", err)
	}

	if _, err := svc.Cancel(ctx, mechanic, shift.ID, "opened by mistake"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Delete(ctx, admin, shift.ID); err != nil {
		t.Fatalf("deleting cancelled shift: %v", err)
	}
	if _, err := svc.Get(ctx, shift.ID); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("deleted shift still readable: %v", err)
	}
}

func TestSummary(t *testing.T) {
	svc, _ := newService(registryWith(fleetdomain.MedicalPassed, fleetdomain.TechnicalOK))
	ctx := context.Background()

	shift, err := svc.Open(ctx, mechanic, domain.OpenInput{DriverID: "d1", InitialMileage: 1000})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Summary(ctx, shift.ID); !errors.Is(err, apperrors.ErrInvalidTransition) {
		t.Errorf("summary of open shift: got %v, want ErrInvalidTransition", err)
	}

	if _, err := svc.Close(ctx, mechanic, shift.ID, domain.CloseInput{FinalMileage: 1150, Earnings: 400}); err != nil {
		t.Fatal(err)
	}

	sum, err := svc.Summary(ctx, shift.ID)
	if err != nil {
		t.Fatal(err)
	}
	if sum.MileageKm != 150 || sum.Earnings != 400 {
		t.Errorf("summary = %+v", sum)
	}
}
