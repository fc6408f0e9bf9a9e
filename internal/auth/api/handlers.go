package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"taxi-fleet/internal/auth/app"
	"taxi-fleet/internal/auth/domain"
	"taxi-fleet/internal/shared/middleware"
	"taxi-fleet/internal/shared/util"
)

type Handler struct {
	service *app.AuthService
	logger  *util.Logger
}

func NewHandler(service *app.AuthService, logger *util.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *Handler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req loginRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("LoginHandler", err)
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" {
		util.WriteJSONError(w, "email and password are required", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	token, user, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		// credential failures come back 401, not 403
		util.WriteJSONError(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	util.ResponseInJSON(w, http.StatusOK, loginResponse{Token: token, User: user})
	h.logger.HTTP(http.StatusOK, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}

func (h *Handler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	actor, ok := middleware.ActorFrom(r.Context())
	if !ok {
		util.WriteJSONError(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req registerRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		h.logger.Error("RegisterHandler", err)
		util.WriteJSONError(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	user, err := h.service.Register(ctx, actor, domain.RegisterInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		util.ErrResponseInJSON(w, err)
		return
	}

	util.ResponseInJSON(w, http.StatusCreated, user)
	h.logger.HTTP(http.StatusCreated, time.Since(start), r.RemoteAddr, r.Method, r.URL.Path)
}
