package middleware

import (
	"context"
	"net/http"
	"strings"

	"ppobmart/internal/app/apperr"
	"ppobmart/internal/app/handler"
	"ppobmart/internal/app/logger"
	"ppobmart/internal/app/session"
)

// Auth admits requests carrying a valid operator bearer token.
func Auth(sessions session.Reader) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := logger.Get(r.Context(), "Middleware.Auth")

			reqHeader := r.Header.Get("Authorization")
			splitToken := strings.Split(reqHeader, "Bearer ")
			if len(splitToken) != 2 || splitToken[1] == "" {
				log.Debug().Msg("Missing bearer token")
				handler.WriteError(w, apperr.ErrUnauthorized, http.StatusUnauthorized)
				return
			}

			op, err := sessions.Read(r.Context(), splitToken[1])
			if err != nil {
				log.Debug().Err(err).Msg("Token validation failed")
				handler.WriteError(w, apperr.ErrUnauthorized, http.StatusUnauthorized)
				return
			}

			log.Debug().Str("operator", op.Name).Msg("Operator authorized")
			r = r.WithContext(context.WithValue(r.Context(), handler.ContextKeyOperator{}, op))
			next.ServeHTTP(w, r)
		})
	}
}
