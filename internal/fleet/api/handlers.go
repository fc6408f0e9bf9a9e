package api

import (
	"encoding/json"
	"net/http"
	"time"

	"taxi-fleet/internal/fleet/app"
	"taxi-fleet/internal/fleet/domain"
	"taxi-fleet/internal/shared/middleware"
	"taxi-fleet/internal/shared/util"
)

type Handler struct {
	service *app.FleetService
	logger  *util.Logger
}

func NewHandler(service *app.FleetService, logger *util.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) CreateDriverHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createDriverRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("CreateDriverHandler", err)
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	driver, err := h.service.CreateDriver(ctx, actor, domain.CreateDriverInput{
		Name:          req.Name,
		LicenseNumber: req.LicenseNumber,
		Phone:         req.Phone,
	})
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}

	util.ResponseInJSON(w, http.StatusCreated, driver)
	h.logger.HTTP(http.StatusCreated, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) CreateCarHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createCarRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("CreateCarHandler", err)
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	car, err := h.service.CreateCar(ctx, actor, domain.CreateCarInput{
		PlateNumber: req.PlateNumber,
		VIN:         req.VIN,
	})
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}

	util.ResponseInJSON(w, http.StatusCreated, car)
	h.logger.HTTP(http.StatusCreated, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) GetDriverHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeoutCtx(r)
	defer cancel()

	driver, err := h.service.GetDriver(ctx, r.PathValue("id"))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, driver)
}

func (h *Handler) GetCarHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeoutCtx(r)
	defer cancel()

	car, err := h.service.GetCar(ctx, r.PathValue("id"))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, car)
}

func (h *Handler) ListDriversHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeoutCtx(r)
	defer cancel()

	drivers, err := h.service.ListDrivers(ctx)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, drivers)
}

func (h *Handler) ListCarsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeoutCtx(r)
	defer cancel()

	cars, err := h.service.ListCars(ctx)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, cars)
}

func (h *Handler) SetMedicalStatusHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req medicalStatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("SetMedicalStatusHandler", err)
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	status := domain.MedicalStatus(req.Status)
	if !domain.ValidMedicalStatus(status) {
		util.WriteJSONError(w, "unknown medical status", http.StatusBadRequest)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	if err := h.service.SetMedicalStatus(ctx, actor, r.PathValue("id"), status); err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetTechnicalStatusHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req technicalStatusRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("SetTechnicalStatusHandler", err)
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	status := domain.TechnicalStatus(req.Status)
	if !domain.ValidTechnicalStatus(status) {
		util.WriteJSONError(w, "unknown technical status", http.StatusBadRequest)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	if err := h.service.SetTechnicalStatus(ctx, actor, r.PathValue("id"), status, req.InRepair); err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) SetDriverActiveHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req driverActiveRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("SetDriverActiveHandler", err)
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	if err := h.service.SetDriverActive(ctx, actor, r.PathValue("id"), req.Active); err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) BindCarHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req bindRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("BindCarHandler", err)
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.CarID == "" {
		util.WriteJSONError(w, "car_id is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	if err := h.service.Bind(ctx, actor, r.PathValue("id"), req.CarID); err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
	h.logger.HTTP(http.StatusNoContent, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) UnbindCarHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	if err := h.service.Unbind(ctx, actor, r.PathValue("id")); err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
