package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/usecase/mocks"
)

type fakeIdempotencyStore struct {
	mu            sync.Mutex
	values        map[string][]byte
	checkAndSetFn func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error)
	released      []string
}

func newFakeIdempotencyStore() *fakeIdempotencyStore {
	return &fakeIdempotencyStore{values: map[string][]byte{}}
}

func (f *fakeIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	if f.checkAndSetFn != nil {
		return f.checkAndSetFn(ctx, key, response, ttl)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.values[key]; ok {
		return true, v, nil
	}
	f.values[key] = []byte(pendingMarker)
	return false, nil, nil
}

func (f *fakeIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.values[key] = response
	return nil
}

func (f *fakeIdempotencyStore) Release(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.values, key)
	f.released = append(f.released, key)
	return nil
}

func TestIdempotencyMiddleware_StoreErrorFailsRequest(t *testing.T) {
	var called bool
	store := newFakeIdempotencyStore()
	store.checkAndSetFn = func(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
		return false, nil, context.DeadlineExceeded
	}
	mw := NewIdempotencyMiddleware(store, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", bytes.NewBufferString(`{}`))
	req.Header.Set(IdempotencyKeyHeader, "key-err")
	rr := httptest.NewRecorder()

	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	})).ServeHTTP(rr, req)

	if called {
		t.Fatalf("handler should not be called when store errors")
	}

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", rr.Code)
	}
}

func TestIdempotencyMiddleware_ReleasesFailedResponses(t *testing.T) {
	store := newFakeIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, time.Hour)

	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", bytes.NewBufferString(`{}`))
		req.Header.Set(IdempotencyKeyHeader, "key-fail")
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}

	if calls != 2 {
		t.Fatalf("expected failed request to be retryable, handler ran %d times", calls)
	}
	if len(store.released) != 2 {
		t.Fatalf("expected key released after each failure, got %v", store.released)
	}
}

func TestIdempotencyMiddleware_ReleasesKeyWhenHandlerPanics(t *testing.T) {
	store := newFakeIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, time.Hour)

	calls := 0
	handler := Recovery(mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			panic("nil ticket row")
		}
		w.WriteHeader(http.StatusCreated)
	})))

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", bytes.NewBufferString(`{}`))
		req.Header.Set(IdempotencyKeyHeader, "key-panic")
		rr := httptest.NewRecorder()
		handler.ServeHTTP(rr, req)
		codes = append(codes, rr.Code)
	}

	if codes[0] != http.StatusInternalServerError || codes[1] != http.StatusCreated {
		t.Fatalf("expected 500 then 201 on retry, got %v", codes)
	}
	if calls != 2 {
		t.Fatalf("expected retry to reach the handler, handler ran %d times", calls)
	}
	if len(store.released) != 1 {
		t.Fatalf("expected the key released once after the panic, got %v", store.released)
	}
}

func TestIdempotencyMiddleware_ReplaysSuccessWithStatus(t *testing.T) {
	store := newFakeIdempotencyStore()
	mw := NewIdempotencyMiddleware(store, time.Hour)

	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"p1"}`))
	}))

	var last *httptest.ResponseRecorder
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", bytes.NewBufferString(`{}`))
		req.Header.Set(IdempotencyKeyHeader, "key-ok")
		last = httptest.NewRecorder()
		handler.ServeHTTP(last, req)
	}

	if calls != 1 {
		t.Fatalf("expected handler to run once, ran %d times", calls)
	}
	if last.Code != http.StatusCreated {
		t.Fatalf("expected replayed status 201, got %d", last.Code)
	}
	if last.Header().Get(IdempotencyReplayHeader) != "true" {
		t.Fatalf("expected replay header")
	}

	var body map[string]string
	if err := json.Unmarshal(last.Body.Bytes(), &body); err != nil || body["id"] != "p1" {
		t.Fatalf("expected replayed body, got %q (%v)", last.Body.String(), err)
	}
}

func TestIdempotencyMiddleware_PendingKeyConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIdempotencyStore(ctrl)
	store.EXPECT().
		CheckAndSet(gomock.Any(), "u1:POST:/api/v1/purchases:key-1", gomock.Nil(), time.Hour).
		Return(true, []byte(pendingMarker), nil)

	mw := NewIdempotencyMiddleware(store, time.Hour)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", nil)
	req = req.WithContext(domain.ContextWithUser(req.Context(), &domain.User{ID: "u1"}))
	req.Header.Set(IdempotencyKeyHeader, "key-1")
	rr := httptest.NewRecorder()

	mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run while the first request is pending")
	})).ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rr.Code)
	}
}

func TestIdempotencyMiddleware_IgnoresReadsAndMissingKey(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockIdempotencyStore(ctrl)
	mw := NewIdempotencyMiddleware(store, 0)

	calls := 0
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))

	get := httptest.NewRequest(http.MethodGet, "/api/v1/tickets", nil)
	get.Header.Set(IdempotencyKeyHeader, "key")
	handler.ServeHTTP(httptest.NewRecorder(), get)

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/v1/purchases", nil))

	if calls != 2 {
		t.Fatalf("expected both requests to pass through, got %d", calls)
	}
}
