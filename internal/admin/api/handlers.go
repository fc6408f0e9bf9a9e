package api

import (
	"context"
	"net/http"
	"time"

	"taxi-fleet/internal/admin/app"
	"taxi-fleet/internal/shared/middleware"
	"taxi-fleet/internal/shared/util"
)

type Handler struct {
	service *app.AdminService
	logger  *util.Logger
}

func NewHandler(service *app.AdminService, logger *util.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) OverviewHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	overview, err := h.service.Overview(ctx, actor)
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}

	util.ResponseInJSON(w, http.StatusOK, overview)
	h.logger.HTTP(http.StatusOK, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /admin/overview", h.OverviewHandler)
}
