package domain

import "time"

type MedicalStatus string

const (
	MedicalPending MedicalStatus = "PENDING"
	MedicalPassed  MedicalStatus = "PASSED"
	MedicalFailed  MedicalStatus = "FAILED"
	MedicalExpired MedicalStatus = "EXPIRED"
)

func ValidMedicalStatus(s MedicalStatus) bool {
	switch s {
	case MedicalPending, MedicalPassed, MedicalFailed, MedicalExpired:
		return true
	}
	return false
}

type TechnicalStatus string

const (
	TechnicalOK              TechnicalStatus = "OK"
	TechnicalNeedsInspection TechnicalStatus = "NEEDS_INSPECTION"
	TechnicalNeedsRepair     TechnicalStatus = "NEEDS_REPAIR"
	TechnicalUnknown         TechnicalStatus = "UNKNOWN"
)

func ValidTechnicalStatus(s TechnicalStatus) bool {
	switch s {
	case TechnicalOK, TechnicalNeedsInspection, TechnicalNeedsRepair, TechnicalUnknown:
		return true
	}
	return false
}

type Driver struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	LicenseNumber string        `json:"license_number"`
	Phone         string        `json:"phone"`
	Medical       MedicalStatus `json:"medical_status"`
	Active        bool          `json:"active"`
	CarID         *string       `json:"car_id,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

type Car struct {
	ID          string          `json:"id"`
	PlateNumber string          `json:"plate_number"`
	VIN         string          `json:"vin"`
	Active      bool            `json:"active"`
	InRepair    bool            `json:"in_repair"`
	Technical   TechnicalStatus `json:"technical_status"`
	DriverID    *string         `json:"driver_id,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// Operational means the car may be put on the road: active, not in the
// workshop, and technically sound.
func (c *Car) Operational() bool {
	return c != nil && c.Active && !c.InRepair && c.Technical == TechnicalOK
}

// EligibleForShift: the driver may open a shift with the given car.
func (d *Driver) EligibleForShift(car *Car) bool {
	return d != nil && d.Active && d.Medical == MedicalPassed && car.Operational()
}

type CreateDriverInput struct {
	Name          string
	LicenseNumber string
	Phone         string
}

type CreateCarInput struct {
	PlateNumber string
	VIN         string
}
