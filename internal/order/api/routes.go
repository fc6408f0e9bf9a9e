package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"taxi-fleet/internal/order/domain"
)

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.CreateOrderHandler)
	mux.HandleFunc("GET /orders", h.ListOrdersHandler)
	mux.HandleFunc("GET /orders/{id}", h.GetOrderHandler)
	mux.HandleFunc("GET /orders/{id}/history", h.OrderHistoryHandler)
	mux.HandleFunc("POST /orders/{id}/assign", h.AssignOrderHandler)
	mux.HandleFunc("POST /orders/{id}/start", h.StartOrderHandler)
	mux.HandleFunc("POST /orders/{id}/complete", h.CompleteOrderHandler)
	mux.HandleFunc("POST /orders/{id}/cancel", h.CancelOrderHandler)
}

func timeoutCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}

func parseListFilter(r *http.Request) (domain.ListFilter, error) {
	var filter domain.ListFilter
	q := r.URL.Query()

	if s := q.Get("status"); s != "" {
		status := domain.Status(s)
		if !domain.ValidStatus(status) {
			return filter, fmt.Errorf("unknown status %q", s)
		}
		filter.Status = &status
	}
	if d := q.Get("driver_id"); d != "" {
		filter.DriverID = &d
	}
	if f := q.Get("from"); f != "" {
		t, err := time.Parse(time.RFC3339, f)
		if err != nil {
			return filter, fmt.Errorf("invalid from timestamp: %v", err)
		}
		filter.From = &t
	}
	if to := q.Get("to"); to != "" {
		t, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return filter, fmt.Errorf("invalid to timestamp: %v", err)
		}
		filter.To = &t
	}
	return filter, nil
}
