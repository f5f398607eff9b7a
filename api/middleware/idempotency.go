package middleware

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/stockflowhq/stockflow-backend/api/responses"
	pkgerrors "github.com/stockflowhq/stockflow-backend/pkg/errors"
	"github.com/stockflowhq/stockflow-backend/pkg/logger"
	pkgredis "github.com/stockflowhq/stockflow-backend/pkg/redis"
)

// Event recorders are the money paths; a retried POST or DELETE must not
// double-apply a stock movement. A week covers any sane client retry window.
const eventIdempotencyTTL = 7 * 24 * time.Hour

// routeTTL reports whether the matched chi pattern is guarded and with what
// TTL. Only the four stock-mutating event endpoints are.
func routeTTL(method, pattern string) (time.Duration, bool) {
	switch method {
	case http.MethodPost:
		if pattern == "/api/v1/purchases" || pattern == "/api/v1/sales" {
			return eventIdempotencyTTL, true
		}
	case http.MethodDelete:
		if strings.HasPrefix(pattern, "/api/v1/purchases/") || strings.HasPrefix(pattern, "/api/v1/sales/") {
			return eventIdempotencyTTL, true
		}
	}
	return 0, false
}

// storedResponse is what gets parked in redis under the idempotency key.
// The body is base64 so the record survives any response encoding.
type storedResponse struct {
	Status      int    `json:"status"`
	Body        string `json:"body"`
	ContentType string `json:"content_type,omitempty"`
	RequestHash string `json:"request_hash"`
}

// Idempotency guards the event-recording endpoints. The first request under
// a key runs the handler and parks the response; retries with the same key
// and body replay it, and the same key with a different body is rejected as
// a client bug rather than a retry.
func Idempotency(store pkgredis.IdempotencyStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ttl, guarded := routeTTL(r.Method, routePattern(r))
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}

			clientKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
			if clientKey == "" {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "Idempotency-Key header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			sum := sha256.Sum256(body)
			requestHash := hex.EncodeToString(sum[:])
			scope := r.Method + "|" + r.URL.Path
			key := store.IdempotencyKey(scope, clientKey)

			prior, err := store.Get(r.Context(), key)
			switch {
			case err != nil && !errors.Is(err, redis.Nil):
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
				return
			case prior != "":
				replayStored(r, w, logg, prior, requestHash)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			record := storedResponse{
				Status:      capture.statusOr(http.StatusOK),
				Body:        base64.StdEncoding.EncodeToString(capture.body.Bytes()),
				ContentType: capture.Header().Get("Content-Type"),
				RequestHash: requestHash,
			}
			payload, err := json.Marshal(record)
			if err == nil {
				_, err = store.SetNX(r.Context(), key, string(payload), ttl)
			}
			if err != nil && logg != nil {
				logg.Error(r.Context(), "persist idempotency record", err)
			}
		})
	}
}

func replayStored(r *http.Request, w http.ResponseWriter, logg *logger.Logger, prior, requestHash string) {
	var record storedResponse
	if err := json.Unmarshal([]byte(prior), &record); err != nil {
		responses.WriteError(r.Context(), logg, w,
			pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	if record.RequestHash != requestHash {
		responses.WriteError(r.Context(), logg, w,
			pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
		return
	}
	if record.ContentType != "" {
		w.Header().Set("Content-Type", record.ContentType)
	}
	w.WriteHeader(record.Status)
	if decoded, err := base64.StdEncoding.DecodeString(record.Body); err == nil {
		_, _ = w.Write(decoded)
	}
}

func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// responseCapture tees the downstream response so it can be parked.
type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) WriteHeader(code int) {
	c.status = code
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}

func (c *responseCapture) statusOr(fallback int) int {
	if c.status == 0 {
		return fallback
	}
	return c.status
}
