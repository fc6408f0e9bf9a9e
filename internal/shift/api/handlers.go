package api

import (
	"encoding/json"
	"net/http"
	"time"

	"taxi-fleet/internal/shared/middleware"
	"taxi-fleet/internal/shared/util"
	"taxi-fleet/internal/shift/app"
	"taxi-fleet/internal/shift/domain"
)

type Handler struct {
	service *app.ShiftService
	logger  *util.Logger
}

func NewHandler(service *app.ShiftService, logger *util.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type openShiftRequest struct {
	DriverID       string  `json:"driver_id"`
	InitialMileage float64 `json:"initial_mileage"`
	Notes          string  `json:"notes"`
}

type closeShiftRequest struct {
	FinalMileage float64 `json:"final_mileage"`
	Earnings     float64 `json:"earnings"`
	Notes        string  `json:"notes"`
}

type cancelShiftRequest struct {
	Reason string `json:"reason"`
}

func (h *Handler) OpenShiftHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req openShiftRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("OpenShiftHandler", err)
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.DriverID == "" {
		util.WriteJSONError(w, "driver_id is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	shift, err := h.service.Open(ctx, actor, domain.OpenInput{
		DriverID:       req.DriverID,
		InitialMileage: req.InitialMileage,
		Notes:          req.Notes,
	})
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}

	util.ResponseInJSON(w, http.StatusCreated, shift)
	h.logger.HTTP(http.StatusCreated, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) CloseShiftHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req closeShiftRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("CloseShiftHandler", err)
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	shift, err := h.service.Close(ctx, actor, r.PathValue("id"), domain.CloseInput{
		FinalMileage: req.FinalMileage,
		Earnings:     req.Earnings,
		Notes:        req.Notes,
	})
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}

	util.ResponseInJSON(w, http.StatusOK, shift)
	h.logger.HTTP(http.StatusOK, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) CancelShiftHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req cancelShiftRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("CancelShiftHandler", err)
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	shift, err := h.service.Cancel(ctx, actor, r.PathValue("id"), req.Reason)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, shift)
}

func (h *Handler) DeleteShiftHandler(w http.ResponseWriter, r *http.Request) {
	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	if err := h.service.Delete(ctx, actor, r.PathValue("id")); err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) GetShiftHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeoutCtx(r)
	defer cancel()

	shift, err := h.service.Get(ctx, r.PathValue("id"))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, shift)
}

func (h *Handler) ListShiftsHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeoutCtx(r)
	defer cancel()

	var filter domain.ListFilter
	q := r.URL.Query()
	if d := q.Get("driver_id"); d != "" {
		filter.DriverID = &d
	}
	if s := q.Get("status"); s != "" {
		status := domain.Status(s)
		filter.Status = &status
	}

	shifts, err := h.service.List(ctx, filter)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, shifts)
}

func (h *Handler) ShiftSummaryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeoutCtx(r)
	defer cancel()

	summary, err := h.service.Summary(ctx, r.PathValue("id"))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, summary)
}
