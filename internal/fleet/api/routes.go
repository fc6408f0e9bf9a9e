package api

import (
	"context"
	"net/http"
	"time"
)

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /fleet/drivers", h.CreateDriverHandler)
	mux.HandleFunc("GET /fleet/drivers", h.ListDriversHandler)
	mux.HandleFunc("GET /fleet/drivers/{id}", h.GetDriverHandler)
	mux.HandleFunc("POST /fleet/drivers/{id}/medical", h.SetMedicalStatusHandler)
	mux.HandleFunc("POST /fleet/drivers/{id}/active", h.SetDriverActiveHandler)
	mux.HandleFunc("POST /fleet/drivers/{id}/bind", h.BindCarHandler)
	mux.HandleFunc("POST /fleet/drivers/{id}/unbind", h.UnbindCarHandler)

	mux.HandleFunc("POST /fleet/cars", h.CreateCarHandler)
	mux.HandleFunc("GET /fleet/cars", h.ListCarsHandler)
	mux.HandleFunc("GET /fleet/cars/{id}", h.GetCarHandler)
	mux.HandleFunc("POST /fleet/cars/{id}/technical", h.SetTechnicalStatusHandler)
}

func timeoutCtx(r *http.Request) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), 5*time.Second)
}
