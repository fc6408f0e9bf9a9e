package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"taxi-fleet/internal/fleet/domain"
	"taxi-fleet/internal/shared/apperrors"
	"taxi-fleet/internal/shared/permissions"
	"taxi-fleet/internal/shared/util"
)

// fakeFleetRepo is an in-memory registry upholding the same contract as
// the postgres repo: exclusive symmetric binding, checked atomically.
type fakeFleetRepo struct {
	mu      sync.Mutex
	drivers map[string]*domain.Driver
	cars    map[string]*domain.Car
}

func newFakeFleetRepo() *fakeFleetRepo {
	return &fakeFleetRepo{
		drivers: make(map[string]*domain.Driver),
		cars:    make(map[string]*domain.Car),
	}
}

func (f *fakeFleetRepo) CreateDriver(_ context.Context, d *domain.Driver) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, other := range f.drivers {
		if other.LicenseNumber == d.LicenseNumber {
			return apperrors.Validationf("license number %s already registered", d.LicenseNumber)
		}
	}
	cp := *d
	f.drivers[d.ID] = &cp
	return nil
}

func (f *fakeFleetRepo) GetDriver(_ context.Context, id string) (*domain.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drivers[id]
	if !ok {
		return nil, fmt.Errorf("driver: %w", apperrors.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (f *fakeFleetRepo) ListDrivers(_ context.Context) ([]*domain.Driver, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Driver
	for _, d := range f.drivers {
		cp := *d
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeFleetRepo) SetDriverActive(_ context.Context, id string, active bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drivers[id]
	if !ok {
		return fmt.Errorf("driver: %w", apperrors.ErrNotFound)
	}
	d.Active = active
	return nil
}

func (f *fakeFleetRepo) SetMedicalStatus(_ context.Context, id string, status domain.MedicalStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drivers[id]
	if !ok {
		return fmt.Errorf("driver: %w", apperrors.ErrNotFound)
	}
	d.Medical = status
	return nil
}

func (f *fakeFleetRepo) CreateCar(_ context.Context, c *domain.Car) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *c
	f.cars[c.ID] = &cp
	return nil
}

func (f *fakeFleetRepo) GetCar(_ context.Context, id string) (*domain.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cars[id]
	if !ok {
		return nil, fmt.Errorf("car: %w", apperrors.ErrNotFound)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeFleetRepo) ListCars(_ context.Context) ([]*domain.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*domain.Car
	for _, c := range f.cars {
		cp := *c
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeFleetRepo) SetTechnicalStatus(_ context.Context, id string, status domain.TechnicalStatus, inRepair bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cars[id]
	if !ok {
		return fmt.Errorf("car: %w", apperrors.ErrNotFound)
	}
	c.Technical = status
	c.InRepair = inRepair
	return nil
}

func (f *fakeFleetRepo) Bind(_ context.Context, driverID, carID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.drivers[driverID]
	if !ok {
		return fmt.Errorf("driver: %w", apperrors.ErrNotFound)
	}
	c, ok := f.cars[carID]
	if !ok {
		return fmt.Errorf("car: %w", apperrors.ErrNotFound)
	}

	if !c.Operational() {
		return fmt.Errorf("car %s is not operational: %w", carID, apperrors.ErrCarUnavailable)
	}
	if c.DriverID != nil && *c.DriverID != driverID {
		return fmt.Errorf("car %s already bound: %w", carID, apperrors.ErrCarUnavailable)
	}
	if !d.Active {
		return fmt.Errorf("driver %s inactive: %w", driverID, apperrors.ErrDriverIneligible)
	}

	if d.CarID != nil && *d.CarID != carID {
		if prev, ok := f.cars[*d.CarID]; ok {
			prev.DriverID = nil
		}
	}
	d.CarID = &carID
	c.DriverID = &driverID
	return nil
}

func (f *fakeFleetRepo) Unbind(_ context.Context, driverID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.drivers[driverID]
	if !ok {
		return fmt.Errorf("driver: %w", apperrors.ErrNotFound)
	}
	if d.CarID != nil {
		if c, ok := f.cars[*d.CarID]; ok {
			c.DriverID = nil
		}
	}
	d.CarID = nil
	return nil
}

func (f *fakeFleetRepo) DriverWithCar(ctx context.Context, driverID string) (*domain.Driver, *domain.Car, error) {
	d, err := f.GetDriver(ctx, driverID)
	if err != nil {
		return nil, nil, err
	}
	if d.CarID == nil {
		return d, nil, nil
	}
	c, err := f.GetCar(ctx, *d.CarID)
	if err != nil {
		return nil, nil, err
	}
	return d, c, nil
}

var (
	admin    = permissions.Actor{ID: "admin-1", Role: permissions.RoleAdmin}
	mechanic = permissions.Actor{ID: "mech-1", Role: permissions.RoleMechanic}
	doctor   = permissions.Actor{ID: "doc-1", Role: permissions.RoleDoctor}
	operator = permissions.Actor{ID: "op-1", Role: permissions.RoleOperator}
)

func newFleetService(t *testing.T) (*FleetService, *fakeFleetRepo) {
	t.Helper()
	repo := newFakeFleetRepo()
	return NewFleetService(repo, util.NewLogger()), repo
}

func seedDriver(t *testing.T, repo *fakeFleetRepo, id string, medical domain.MedicalStatus) {
	t.Helper()
	err := repo.CreateDriver(context.Background(), &domain.Driver{
		ID: id, Name: "Driver " + id, LicenseNumber: "LIC-" + id,
		Medical: medical, Active: true, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func seedCar(t *testing.T, repo *fakeFleetRepo, id string, technical domain.TechnicalStatus) {
	t.Helper()
	err := repo.CreateCar(context.Background(), &domain.Car{
		ID: id, PlateNumber: "KZ-" + id, Active: true,
		Technical: technical, CreatedAt: time.Now(), UpdatedAt: time.Now(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func TestCreateDriverValidation(t *testing.T) {
	svc, _ := newFleetService(t)
	ctx := context.Background()

	_, err := svc.CreateDriver(ctx, admin, domain.CreateDriverInput{Name: "", LicenseNumber: "L1"})
	if !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("empty name: got %v, want ErrValidation", err)
	}

	_, err = svc.CreateDriver(ctx, operator, domain.CreateDriverInput{Name: "A", LicenseNumber: "L1"})
	if !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("operator creating driver: got %v, want ErrPermissionDenied", err)
	}

	d, err := svc.CreateDriver(ctx, mechanic, domain.CreateDriverInput{Name: "A", LicenseNumber: "L1"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Medical != domain.MedicalPending {
		t.Errorf("new driver medical = %s, want PENDING", d.Medical)
	}
}

func TestBindExclusivity(t *testing.T) {
	svc, repo := newFleetService(t)
	ctx := context.Background()

	seedDriver(t, repo, "d1", domain.MedicalPassed)
	seedDriver(t, repo, "d2", domain.MedicalPassed)
	seedCar(t, repo, "c1", domain.TechnicalOK)

	if err := svc.Bind(ctx, mechanic, "d1", "c1"); err != nil {
		t.Fatalf("first bind: %v", err)
	}

	err := svc.Bind(ctx, mechanic, "d2", "c1")
	if !errors.Is(err, apperrors.ErrCarUnavailable) {
		t.Fatalf("second driver on same car: got %v, want ErrCarUnavailable", err)
	}

	// rebinding the same pair is a no-op, not an error
	if err := svc.Bind(ctx, mechanic, "d1", "c1"); err != nil {
		t.Fatalf("rebind same pair: %v", err)
	}

	if err := svc.Unbind(ctx, mechanic, "d1"); err != nil {
		t.Fatal(err)
	}
	if err := svc.Bind(ctx, mechanic, "d2", "c1"); err != nil {
		t.Fatalf("bind after unbind: %v", err)
	}

	d2, car, err := svc.DriverWithCar(ctx, "d2")
	if err != nil {
		t.Fatal(err)
	}
	if d2.CarID == nil || *d2.CarID != "c1" || car == nil || car.DriverID == nil || *car.DriverID != "d2" {
		t.Error("binding back-references not symmetric")
	}
}

func TestBindRejectsNonOperationalCar(t *testing.T) {
	svc, repo := newFleetService(t)
	ctx := context.Background()

	seedDriver(t, repo, "d1", domain.MedicalPassed)
	seedCar(t, repo, "c1", domain.TechnicalNeedsRepair)

	err := svc.Bind(ctx, mechanic, "d1", "c1")
	if !errors.Is(err, apperrors.ErrCarUnavailable) {
		t.Fatalf("needs-repair car: got %v, want ErrCarUnavailable", err)
	}

	if err := repo.SetTechnicalStatus(ctx, "c1", domain.TechnicalOK, true); err != nil {
		t.Fatal(err)
	}
	err = svc.Bind(ctx, mechanic, "d1", "c1")
	if !errors.Is(err, apperrors.ErrCarUnavailable) {
		t.Fatalf("in-repair car: got %v, want ErrCarUnavailable", err)
	}
}

func TestConcurrentBindSameCar(t *testing.T) {
	svc, repo := newFleetService(t)
	ctx := context.Background()

	seedCar(t, repo, "c1", domain.TechnicalOK)
	const n = 8
	for i := 0; i < n; i++ {
		seedDriver(t, repo, fmt.Sprintf("d%d", i), domain.MedicalPassed)
	}

	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = svc.Bind(ctx, mechanic, fmt.Sprintf("d%d", i), "c1")
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else if !errors.Is(err, apperrors.ErrCarUnavailable) {
			t.Errorf("unexpected bind error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("%d drivers bound to one car, want exactly 1", wins)
	}
}

func TestIsEligibleForShift(t *testing.T) {
	svc, repo := newFleetService(t)
	ctx := context.Background()

	seedDriver(t, repo, "d1", domain.MedicalPassed)
	seedCar(t, repo, "c1", domain.TechnicalOK)

	eligible, err := svc.IsEligibleForShift(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if eligible {
		t.Error("driver without a car must not be eligible")
	}

	if err := svc.Bind(ctx, mechanic, "d1", "c1"); err != nil {
		t.Fatal(err)
	}
	eligible, err = svc.IsEligibleForShift(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	if !eligible {
		t.Error("passed medical + operational car must be eligible")
	}

	if err := svc.SetMedicalStatus(ctx, doctor, "d1", domain.MedicalExpired); err != nil {
		t.Fatal(err)
	}
	eligible, _ = svc.IsEligibleForShift(ctx, "d1")
	if eligible {
		t.Error("expired medical must not be eligible")
	}
}

func TestMedicalStatusPermissions(t *testing.T) {
	svc, repo := newFleetService(t)
	ctx := context.Background()
	seedDriver(t, repo, "d1", domain.MedicalPending)

	if err := svc.SetMedicalStatus(ctx, mechanic, "d1", domain.MedicalPassed); !errors.Is(err, apperrors.ErrPermissionDenied) {
		t.Errorf("mechanic setting medical: got %v, want ErrPermissionDenied", err)
	}
	if err := svc.SetMedicalStatus(ctx, doctor, "d1", "GREAT"); !errors.Is(err, apperrors.ErrValidation) {
		t.Errorf("bogus status: got %v, want ErrValidation", err)
	}
	if err := svc.SetMedicalStatus(ctx, doctor, "d1", domain.MedicalPassed); err != nil {
		t.Fatal(err)
	}
}
