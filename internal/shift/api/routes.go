package api

import (
	"context"
	"net/http"
	"time"
)

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /shifts", h.OpenShiftHandler)
	mux.HandleFunc("GET /shifts", h.ListShiftsHandler)
	mux.HandleFunc("GET /shifts/{id}", h.GetShiftHandler)
	mux.HandleFunc("GET /shifts/{id}/summary", h.ShiftSummaryHandler)
	mux.HandleFunc("POST /shifts/{id}/close", h.CloseShiftHandler)
	mux.HandleFunc("POST /shifts/{id}/cancel", h.CancelShiftHandler)
	mux.HandleFunc("DELETE /shifts/{id}", h.DeleteShiftHandler)
}

func timeoutCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}
