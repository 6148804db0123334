package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/adapter/http/handler"
	apimiddleware "github.com/iho/boxoffice/internal/adapter/http/middleware"
	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/usecase"
)

func TestNewRouter_HealthEndpointAvailable(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected /health to return 200, got %d", rec.Code)
	}
}

func TestNewRouter_RateLimiterBlocksExcessRequests(t *testing.T) {
	rl := apimiddleware.NewRateLimiter(1, 1)
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.RateLimiter = rl
	}))

	send := func() int {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/wallet", nil)
		req.RemoteAddr = "1.2.3.4:1234"
		req.Header.Set(apimiddleware.UserIDHeader, "u1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	if code := send(); code != http.StatusOK {
		t.Fatalf("expected first request to succeed, got %d", code)
	}
	if code := send(); code != http.StatusTooManyRequests {
		t.Fatalf("expected second request to be throttled, got %d", code)
	}
}

func TestNewRouter_APIRequiresIdentity(t *testing.T) {
	router := NewRouter(newRouterConfig())

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/tickets", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without identity, got %d", rec.Code)
	}
}

func TestNewRouter_NilAuthenticatorIgnoresIdentityHeaders(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.Authenticator = nil
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/reconciliation", nil)
	req.Header.Set(apimiddleware.UserIDHeader, "u1")
	req.Header.Set(apimiddleware.UserRoleHeader, string(domain.RoleAdmin))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without a configured authenticator, got %d", rec.Code)
	}
}

func TestNewRouter_RoleGuards(t *testing.T) {
	router := NewRouter(newRouterConfig())

	tests := []struct {
		method string
		path   string
		role   domain.Role
		want   int
	}{
		{http.MethodGet, "/api/v1/admin/reconciliation", domain.RoleCustomer, http.StatusForbidden},
		{http.MethodGet, "/api/v1/admin/reconciliation", domain.RoleStaff, http.StatusForbidden},
		{http.MethodGet, "/api/v1/admin/reconciliation", domain.RoleAdmin, http.StatusOK},
		{http.MethodPost, "/api/v1/venue/redeem", domain.RoleCustomer, http.StatusForbidden},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, strings.NewReader(`{"qr_code":"abc"}`))
		req.Header.Set(apimiddleware.UserIDHeader, "u1")
		req.Header.Set(apimiddleware.UserRoleHeader, string(tt.role))
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != tt.want {
			t.Fatalf("%s %s as %s: expected %d, got %d", tt.method, tt.path, tt.role, tt.want, rec.Code)
		}
	}
}

func TestNewRouter_WebhookSkipsUserAuth(t *testing.T) {
	payments := &stubPaymentService{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.InvoiceHandler = handler.NewInvoiceHandler(payments, nil)
	}))

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(`{"order_id":"o1","status":"paid"}`))
	req.Header.Set(handler.SignatureHeader, "abc")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected webhook to return 200, got %d", rec.Code)
	}
	if payments.signature != "abc" {
		t.Fatalf("expected signature to reach the service, got %q", payments.signature)
	}
}

func TestNewRouter_IdempotencyMiddlewareInvokesStore(t *testing.T) {
	store := &stubIdempotencyStore{}
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.IdempotencyStore = store
	}))

	body := `{"currency":"MXN"}`
	req := httptest.NewRequest(http.MethodPut, "/api/v1/wallet/preferred-currency", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apimiddleware.UserIDHeader, "u1")
	req.Header.Set(apimiddleware.IdempotencyKeyHeader, "key-123")
	rec := httptest.NewRecorder()

	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.HasPrefix(store.key, "u1:PUT:/api/v1/wallet/preferred-currency:") {
		t.Fatalf("expected key scoped to caller and route, got %q", store.key)
	}
	if !store.updated {
		t.Fatalf("expected successful response to be stored")
	}
}

func TestNewRouter_RegistersKeyRoutes(t *testing.T) {
	router := NewRouter(newRouterConfig(func(cfg *RouterConfig) {
		cfg.MetricsHandler = http.NotFoundHandler()
	}))

	chiRoutes, ok := router.(chi.Router)
	if !ok {
		t.Fatal("router does not implement chi.Routes")
	}

	seen := map[string]bool{}
	if err := chi.Walk(chiRoutes, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		seen[method+" "+route] = true
		return nil
	}); err != nil {
		t.Fatalf("walk failed: %v", err)
	}

	expected := []string{
		"GET /health",
		"GET /ready",
		"GET /metrics",
		"GET /api/v1/wallet/",
		"GET /api/v1/wallet/summary",
		"GET /api/v1/wallet/history",
		"PUT /api/v1/wallet/preferred-currency",
		"POST /api/v1/wallet/transfers",
		"POST /api/v1/purchases",
		"GET /api/v1/purchases/{id}",
		"GET /api/v1/tickets/",
		"GET /api/v1/tickets/{id}",
		"POST /api/v1/tickets/{id}/transfer",
		"POST /api/v1/venue/redeem",
		"POST /api/v1/invoices",
		"GET /api/v1/invoices/{orderId}",
		"POST /webhooks/payments",
		"GET /api/v1/admin/reconciliation/",
		"GET /api/v1/admin/reconciliation/{userId}",
	}

	for _, route := range expected {
		if !seen[route] {
			t.Fatalf("expected route %s to be registered", route)
		}
	}
}

func newRouterConfig(opts ...func(*RouterConfig)) RouterConfig {
	cfg := RouterConfig{
		HealthHandler:         handler.NewHealthHandlerWithChecks(nil),
		WalletHandler:         handler.NewWalletHandler(stubWalletService{}, nil, nil),
		PurchaseHandler:       handler.NewPurchaseHandler(nil, decimal.Zero, nil),
		TicketHandler:         handler.NewTicketHandler(stubTicketService{}, nil),
		InvoiceHandler:        handler.NewInvoiceHandler(&stubPaymentService{}, nil),
		ReconciliationHandler: handler.NewReconciliationHandler(stubReconciliationService{}, nil),
		Authenticator:         apimiddleware.NewHeaderAuthenticator(nil, zerolog.Nop()),
		Logger:                zerolog.Nop(),
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	return cfg
}

type stubWalletService struct{}

func (stubWalletService) GetBalance(ctx context.Context, userID string) (*domain.UserBalance, error) {
	return domain.NewUserBalance(userID, domain.USD, time.Now()), nil
}

func (stubWalletService) Summary(ctx context.Context, userID string, target domain.Currency) (*usecase.BalanceSummary, error) {
	return nil, domain.ErrBalanceNotFound
}

func (stubWalletService) GetHistory(ctx context.Context, userID string, limit, offset int) ([]*domain.Entry, error) {
	return nil, nil
}

func (stubWalletService) UpdatePreferredCurrency(ctx context.Context, userID string, currency domain.Currency) (*domain.UserBalance, error) {
	return domain.NewUserBalance(userID, currency, time.Now()), nil
}

func (stubWalletService) TransferInternal(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error) {
	return nil, domain.ErrInsufficientFunds
}

type stubTicketService struct{}

func (stubTicketService) ListByOwner(ctx context.Context, userID string, status *domain.TicketStatus) ([]*domain.Ticket, error) {
	return nil, nil
}

func (stubTicketService) GetTicket(ctx context.Context, userID, ticketID string) (*domain.Ticket, error) {
	return nil, domain.ErrTicketNotFound
}

func (stubTicketService) Transfer(ctx context.Context, input usecase.TransferTicketInput) (*domain.Ticket, error) {
	return nil, domain.ErrNotOwner
}

func (stubTicketService) ValidateAndRedeem(ctx context.Context, qrCode string) (*domain.Ticket, error) {
	return &domain.Ticket{ID: "t1", QRCode: qrCode, Status: domain.TicketStatusUsed}, nil
}

type stubPaymentService struct {
	signature string
}

func (s *stubPaymentService) CreateInvoice(ctx context.Context, input usecase.CreateInvoiceInput) (*domain.Invoice, error) {
	return nil, domain.ErrUpstream
}

func (s *stubPaymentService) GetInvoice(ctx context.Context, userID, orderID string) (*domain.Invoice, error) {
	return nil, domain.ErrInvoiceNotFound
}

func (s *stubPaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*domain.Invoice, error) {
	s.signature = signature
	return &domain.Invoice{OrderID: "o1", Status: domain.InvoiceStatusPaid, Currency: domain.USD}, nil
}

type stubReconciliationService struct{}

func (stubReconciliationService) GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error) {
	return &usecase.ReconciliationReport{LedgerConsistent: true}, nil
}

func (stubReconciliationService) ReconcileUser(ctx context.Context, userID string) (*usecase.ReconciliationResult, error) {
	return &usecase.ReconciliationResult{UserID: userID, IsReconciled: true}, nil
}

type stubIdempotencyStore struct {
	key     string
	updated bool
}

func (s *stubIdempotencyStore) CheckAndSet(ctx context.Context, key string, response []byte, ttl time.Duration) (bool, []byte, error) {
	s.key = key
	return false, nil, nil
}

func (s *stubIdempotencyStore) Update(ctx context.Context, key string, response []byte, ttl time.Duration) error {
	s.updated = true
	return nil
}

func (s *stubIdempotencyStore) Release(ctx context.Context, key string) error {
	return nil
}
