package middleware

import (
	"context"
	"net/http"
	"strings"

	"taxi-fleet/internal/shared/jwt"
	"taxi-fleet/internal/shared/permissions"
	"taxi-fleet/internal/shared/util"
)

const actorKey contextKey = "actor"

// Auth validates the bearer token and injects the acting identity into
// the request context for the permission gate downstream.
func Auth(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				util.WriteJSONError(w, "missing Authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				util.WriteJSONError(w, "invalid Authorization format", http.StatusUnauthorized)
				return
			}

			claims, err := jwt.Parse(secret, parts[1])
			if err != nil {
				util.WriteJSONError(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}
			if !permissions.ValidRole(claims.Role) {
				util.WriteJSONError(w, "unknown role", http.StatusUnauthorized)
				return
			}

			actor := permissions.Actor{
				ID:   claims.UserID,
				Role: permissions.Role(claims.Role),
			}
			ctx := context.WithValue(r.Context(), actorKey, actor)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFrom returns the authenticated actor stored by Auth.
func ActorFrom(ctx context.Context) (permissions.Actor, bool) {
	actor, ok := ctx.Value(actorKey).(permissions.Actor)
	return actor, ok
}
