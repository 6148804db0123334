package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/infrastructure/metrics"
	"github.com/iho/boxoffice/internal/usecase"
)

type paymentServiceStub struct {
	createErr error
	input     usecase.CreateInvoiceInput
	body      []byte
	signature string
	webhookFn func(body []byte, sig string) (*domain.Invoice, error)
}

func (s *paymentServiceStub) CreateInvoice(ctx context.Context, input usecase.CreateInvoiceInput) (*domain.Invoice, error) {
	s.input = input
	if s.createErr != nil {
		return nil, s.createErr
	}
	return &domain.Invoice{
		OrderID:      "order-1",
		UserID:       input.UserID,
		Amount:       input.Amount,
		Currency:     input.Currency,
		TargetCrypto: input.TargetCrypto,
		PaymentURL:   "https://pay.example.com/order-1",
		Status:       domain.InvoiceStatusCreated,
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (s *paymentServiceStub) GetInvoice(ctx context.Context, userID, orderID string) (*domain.Invoice, error) {
	if orderID != "order-1" {
		return nil, domain.ErrInvoiceNotFound
	}
	return &domain.Invoice{OrderID: orderID, UserID: userID, Status: domain.InvoiceStatusExpired}, nil
}

func (s *paymentServiceStub) HandleWebhook(ctx context.Context, body []byte, signature string) (*domain.Invoice, error) {
	s.body = body
	s.signature = signature
	return s.webhookFn(body, signature)
}

func TestInvoiceHandler_Create(t *testing.T) {
	stub := &paymentServiceStub{}
	m := metrics.New(prometheus.NewRegistry())
	h := NewInvoiceHandler(stub, m)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", strings.NewReader(`{"amount":"50","currency":"MXN","target_crypto":"usdt"}`))
	h.Create(rec, withUser(req, "u1", domain.RoleCustomer))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, domain.MXN, stub.input.Currency)
	assert.True(t, stub.input.Amount.Equal(decimal.NewFromInt(50)))
	assert.Contains(t, rec.Body.String(), `"payment_url":"https://pay.example.com/order-1"`)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.InvoicesCreated.WithLabelValues("created")))
}

func TestInvoiceHandler_CreateUpstreamFailure(t *testing.T) {
	stub := &paymentServiceStub{createErr: fmt.Errorf("%w: state 1", domain.ErrUpstream)}
	m := metrics.New(prometheus.NewRegistry())
	h := NewInvoiceHandler(stub, m)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/invoices", strings.NewReader(`{"amount":"50","currency":"USD","target_crypto":"BTC"}`))
	h.Create(rec, withUser(req, "u1", domain.RoleCustomer))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.InvoicesCreated.WithLabelValues("upstream_error")))
}

func TestInvoiceHandler_GetShowsPassiveExpiry(t *testing.T) {
	h := NewInvoiceHandler(&paymentServiceStub{}, nil)

	rec := httptest.NewRecorder()
	req := withURLParam(withUser(httptest.NewRequest(http.MethodGet, "/api/v1/invoices/order-1", nil), "u1", domain.RoleCustomer), "orderId", "order-1")
	h.Get(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"expired"`)
}

func TestInvoiceHandler_WebhookPassesRawBody(t *testing.T) {
	raw := `{"order_id":"order-1","status":"paid","amount":"50.00"}`
	stub := &paymentServiceStub{webhookFn: func(body []byte, sig string) (*domain.Invoice, error) {
		return &domain.Invoice{OrderID: "order-1", Status: domain.InvoiceStatusPaid, Currency: domain.USD}, nil
	}}
	m := metrics.New(prometheus.NewRegistry())
	h := NewInvoiceHandler(stub, m)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(raw))
	req.Header.Set(SignatureHeader, "deadbeef")
	rec := httptest.NewRecorder()
	h.Webhook(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, raw, string(stub.body))
	assert.Equal(t, "deadbeef", stub.signature)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.Webhooks.WithLabelValues("paid")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.WalletPostings.WithLabelValues("deposit", "USD")))
}

func TestInvoiceHandler_WebhookRejections(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		result string
	}{
		{name: "bad signature", err: domain.ErrInvalidSignature, status: http.StatusUnauthorized, result: "invalid_signature"},
		{name: "unknown order", err: domain.ErrUnknownOrder, status: http.StatusNotFound, result: "unknown_order"},
		{name: "database down", err: fmt.Errorf("begin: connection refused"), status: http.StatusInternalServerError, result: "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New(prometheus.NewRegistry())
			h := NewInvoiceHandler(&paymentServiceStub{webhookFn: func([]byte, string) (*domain.Invoice, error) {
				return nil, tt.err
			}}, m)

			rec := httptest.NewRecorder()
			h.Webhook(rec, httptest.NewRequest(http.MethodPost, "/webhooks/payments", strings.NewReader(`{}`)))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, float64(1), testutil.ToFloat64(m.Webhooks.WithLabelValues(tt.result)))
		})
	}
}
