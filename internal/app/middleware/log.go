package middleware

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/hlog"
	"ppobmart/internal/app/logger"
)

// Log attaches l to every request context and writes an access line per request.
func Log(l logger.Logger) func(next http.Handler) http.Handler {
	chain := []func(http.Handler) http.Handler{
		hlog.NewHandler(l.Logger),
		hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
			hlog.FromRequest(r).Info().
				Str("method", r.Method).
				Stringer("url", r.URL).
				Int("status", status).
				Int("size", size).
				Dur("duration", duration).
				Msg("Request")
		}),
		hlog.RemoteAddrHandler("ip"),
		hlog.RequestIDHandler("req_id", "X-Request-Id"),
	}

	return func(next http.Handler) http.Handler {
		for i := len(chain) - 1; i >= 0; i-- {
			next = chain[i](next)
		}
		return next
	}
}

// NoCache marks responses as not cacheable.
func NoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
