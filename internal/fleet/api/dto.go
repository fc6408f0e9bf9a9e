package api

type createDriverRequest struct {
	Name          string `json:"name"`
	LicenseNumber string `json:"license_number"`
	Phone         string `json:"phone"`
}

type createCarRequest struct {
	PlateNumber string `json:"plate_number"`
	VIN         string `json:"vin"`
}

type medicalStatusRequest struct {
	Status string `json:"status"`
}

type technicalStatusRequest struct {
	Status   string `json:"status"`
	InRepair bool   `json:"in_repair"`
}

type driverActiveRequest struct {
	Active bool `json:"active"`
}

type bindRequest struct {
	CarID string `json:"car_id"`
}
