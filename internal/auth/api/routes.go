package api

import "net/http"

// RegisterRoutes wires login publicly and registration behind the
// bearer-token middleware.
func (h *Handler) RegisterRoutes(mux *http.ServeMux, auth func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /auth/login", h.LoginHandler)
	mux.Handle("POST /auth/register", auth(http.HandlerFunc(h.RegisterHandler)))
}
