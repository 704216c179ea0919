package middleware

import (
	"encoding/json"
	"net/http"
	"strings"

	"diversifia/ordersync/internal/constants"
	reqctx "diversifia/ordersync/internal/context"
	"diversifia/ordersync/internal/logging"
	"diversifia/ordersync/internal/models/dtos"

	"github.com/golang-jwt/jwt/v5"
)

// BearerAuth requires an HS256 token signed with secret on every request except
// CORS preflights. An empty secret disables the check.
func BearerAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if secret == "" {
			return next
		}
		key := []byte(secret)

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeError(w, http.StatusUnauthorized, constants.MsgUnauthorized)
				return
			}

			claims := &jwt.RegisteredClaims{}
			_, err := jwt.ParseWithClaims(strings.TrimPrefix(authHeader, "Bearer "), claims,
				func(t *jwt.Token) (interface{}, error) { return key, nil },
				jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
				jwt.WithExpirationRequired(),
			)
			if err != nil {
				logging.Warn("Rejected sync trigger token",
					"request_id", reqctx.GetRequestID(r.Context()),
					"error", err,
				)
				writeError(w, http.StatusUnauthorized, constants.MsgUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(reqctx.SetCaller(r.Context(), claims.Subject)))
		})
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(dtos.ErrorResponse{Error: message})
}
