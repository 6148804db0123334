package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/usecase"
)

const (
	// IdempotencyKeyHeader is the header name for idempotency keys.
	IdempotencyKeyHeader = "Idempotency-Key"
	// IdempotencyReplayHeader marks a response served from the store.
	IdempotencyReplayHeader = "X-Idempotency-Replay"

	pendingMarker = "processing"
	maxKeyLength  = 128
)

type storedResponse struct {
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body"`
}

// IdempotencyMiddleware replays the first successful response for a repeated Idempotency-Key.
type IdempotencyMiddleware struct {
	store usecase.IdempotencyStore
	ttl   time.Duration
}

// NewIdempotencyMiddleware creates a new IdempotencyMiddleware. A non-positive ttl uses usecase.IdempotencyKeyTTL.
func NewIdempotencyMiddleware(store usecase.IdempotencyStore, ttl time.Duration) *IdempotencyMiddleware {
	if ttl <= 0 {
		ttl = usecase.IdempotencyKeyTTL
	}
	return &IdempotencyMiddleware{store: store, ttl: ttl}
}

// Wrap wraps an http.Handler with idempotency checking.
func (m *IdempotencyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Only apply to mutating requests
		if r.Method != http.MethodPost && r.Method != http.MethodPut {
			next.ServeHTTP(w, r)
			return
		}

		key := r.Header.Get(IdempotencyKeyHeader)
		if key == "" {
			next.ServeHTTP(w, r)
			return
		}
		if len(key) > maxKeyLength {
			writeError(w, http.StatusBadRequest, "invalid_idempotency_key", "idempotency key too long")
			return
		}

		scoped := scopeKey(r, key)

		exists, cached, err := m.store.CheckAndSet(r.Context(), scoped, nil, m.ttl)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "idempotency_unavailable", "idempotency check failed")
			return
		}

		if exists {
			if len(cached) == 0 || string(cached) == pendingMarker {
				writeError(w, http.StatusConflict, "request_in_progress", "a request with this idempotency key is still running")
				return
			}
			replay(w, cached)
			return
		}

		recorder := &responseRecorder{
			ResponseWriter: w,
			body:           &bytes.Buffer{},
			statusCode:     http.StatusOK,
		}

		// The handler may have run past the client's cancellation; the key must still settle.
		ctx := context.WithoutCancel(r.Context())
		logger := zerolog.Ctx(r.Context())

		// A panicking handler never stores a response, so free the key before
		// Recovery turns the panic into a 500.
		finished := false
		defer func() {
			if !finished {
				m.release(ctx, logger, scoped)
			}
		}()

		next.ServeHTTP(recorder, r)
		finished = true

		if recorder.statusCode < 200 || recorder.statusCode >= 300 {
			m.release(ctx, logger, scoped)
			return
		}

		payload, err := json.Marshal(storedResponse{Status: recorder.statusCode, Body: recorder.body.Bytes()})
		if err != nil {
			logger.Warn().Err(err).Msg("failed to encode idempotent response")
			m.release(ctx, logger, scoped)
			return
		}
		if err := m.store.Update(ctx, scoped, payload, m.ttl); err != nil {
			logger.Warn().Err(err).Msg("failed to store idempotent response")
		}
	})
}

func (m *IdempotencyMiddleware) release(ctx context.Context, logger *zerolog.Logger, key string) {
	if err := m.store.Release(ctx, key); err != nil {
		logger.Warn().Err(err).Msg("failed to release idempotency key")
	}
}

func replay(w http.ResponseWriter, cached []byte) {
	var stored storedResponse
	if err := json.Unmarshal(cached, &stored); err != nil || stored.Status == 0 {
		stored = storedResponse{Status: http.StatusOK, Body: cached}
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(IdempotencyReplayHeader, "true")
	w.WriteHeader(stored.Status)
	w.Write(stored.Body)
}

// scopeKey binds a client key to the caller and the route so two users cannot collide.
func scopeKey(r *http.Request, key string) string {
	owner := "anonymous"
	if user, ok := domain.UserFromContext(r.Context()); ok {
		owner = user.ID
	}
	return owner + ":" + r.Method + ":" + r.URL.Path + ":" + key
}

type responseRecorder struct {
	http.ResponseWriter
	statusCode int
	body       *bytes.Buffer
}

func (r *responseRecorder) Write(b []byte) (int, error) {
	r.body.Write(b)
	return r.ResponseWriter.Write(b)
}

func (r *responseRecorder) WriteHeader(statusCode int) {
	r.statusCode = statusCode
	r.ResponseWriter.WriteHeader(statusCode)
}
