package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"taxi-fleet/internal/order/app"
	"taxi-fleet/internal/order/domain"
	"taxi-fleet/internal/shared/middleware"
	"taxi-fleet/internal/shared/util"
)

type Handler struct {
	service *app.OrderService
	logger  *util.Logger
}

func NewHandler(service *app.OrderService, logger *util.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) CreateOrderHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("CreateOrderHandler", err)
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	order, err := h.service.Create(ctx, actor, domain.CreateOrderInput{
		CustomerName:       req.CustomerName,
		CustomerPhone:      req.CustomerPhone,
		PickupAddress:      req.PickupAddress,
		DestinationAddress: req.DestinationAddress,
		PlannedPickupAt:    req.PlannedPickupAt,
		Notes:              req.Notes,
	})
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}

	util.ResponseInJSON(w, http.StatusCreated, order)
	h.logger.HTTP(http.StatusCreated, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) GetOrderHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeoutCtx(r)
	defer cancel()

	order, err := h.service.Get(ctx, r.PathValue("id"))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, order)
}

func (h *Handler) ListOrdersHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeoutCtx(r)
	defer cancel()

	filter, err := parseListFilter(r)
	if err != nil {
		util.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	orders, err := h.service.List(ctx, filter)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, orders)
}

func (h *Handler) AssignOrderHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req assignRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("AssignOrderHandler", err)
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.DriverID == "" {
		util.WriteJSONError(w, "driver_id is required", http.StatusBadRequest)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	order, err := h.service.Assign(ctx, actor, r.PathValue("id"), domain.AssignInput{
		DriverID: req.DriverID,
		CarID:    req.CarID,
	})
	if err != nil {
		if errors.Is(err, domain.ErrNoCar) {
			util.WriteJSONError(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		util.ErrResponseInJSON(w, err)
		return
	}

	util.ResponseInJSON(w, http.StatusOK, order)
	h.logger.HTTP(http.StatusOK, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) StartOrderHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	order, err := h.service.Start(ctx, actor, r.PathValue("id"))
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}

	util.ResponseInJSON(w, http.StatusOK, order)
	h.logger.HTTP(http.StatusOK, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) CompleteOrderHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req completeRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("CompleteOrderHandler", err)
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	order, err := h.service.Complete(ctx, actor, r.PathValue("id"), domain.CompleteInput{
		DistanceKm: req.DistanceKm,
		Price:      req.Price,
	})
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}

	util.ResponseInJSON(w, http.StatusOK, order)
	h.logger.HTTP(http.StatusOK, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) CancelOrderHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req cancelRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("CancelOrderHandler", err)
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := timeoutCtx(r)
	defer cancel()

	order, err := h.service.Cancel(ctx, actor, r.PathValue("id"), req.Reason)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}

	util.ResponseInJSON(w, http.StatusOK, order)
	h.logger.HTTP(http.StatusOK, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) OrderHistoryHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := timeoutCtx(r)
	defer cancel()

	orderID := r.PathValue("id")
	history, err := h.service.StatusHistory(ctx, orderID)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}
	util.ResponseInJSON(w, http.StatusOK, historyResponse{OrderID: orderID, History: history})
}
