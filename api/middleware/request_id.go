package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/stockflowhq/stockflow-backend/pkg/logger"
)

const requestIDHeader = "X-Request-Id"

// RequestID honors a caller-supplied request id, minting one otherwise, and
// threads it through the response header and the logging context.
func RequestID(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(requestIDHeader))
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			ctx := r.Context()
			if logg != nil {
				ctx = logg.WithRequestID(ctx, id)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
