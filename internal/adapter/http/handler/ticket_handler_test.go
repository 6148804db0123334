package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/infrastructure/metrics"
	"github.com/iho/boxoffice/internal/usecase"
)

type ticketServiceStub struct {
	status   *domain.TicketStatus
	transfer usecase.TransferTicketInput
	redeemFn func(qr string) (*domain.Ticket, error)
}

func (s *ticketServiceStub) ListByOwner(ctx context.Context, userID string, status *domain.TicketStatus) ([]*domain.Ticket, error) {
	s.status = status
	return []*domain.Ticket{{ID: "t1", OwnerUserID: userID, Status: domain.TicketStatusActive}}, nil
}

func (s *ticketServiceStub) GetTicket(ctx context.Context, userID, ticketID string) (*domain.Ticket, error) {
	if ticketID != "t1" {
		return nil, domain.ErrTicketNotFound
	}
	return &domain.Ticket{ID: "t1", OwnerUserID: userID}, nil
}

func (s *ticketServiceStub) Transfer(ctx context.Context, input usecase.TransferTicketInput) (*domain.Ticket, error) {
	s.transfer = input
	if input.TicketID != "t1" {
		return nil, domain.ErrNotOwner
	}
	from := input.TicketID
	return &domain.Ticket{ID: "t2", OwnerUserID: "u2", TransferredFrom: &from, Status: domain.TicketStatusActive}, nil
}

func (s *ticketServiceStub) ValidateAndRedeem(ctx context.Context, qrCode string) (*domain.Ticket, error) {
	return s.redeemFn(qrCode)
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestTicketHandler_ListFiltersStatus(t *testing.T) {
	stub := &ticketServiceStub{}
	h := NewTicketHandler(stub, nil)

	rec := httptest.NewRecorder()
	h.List(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/tickets?status=active", nil), "u1", domain.RoleCustomer))
	assert.Equal(t, http.StatusOK, rec.Code)
	if assert.NotNil(t, stub.status) {
		assert.Equal(t, domain.TicketStatusActive, *stub.status)
	}

	rec = httptest.NewRecorder()
	h.List(rec, withUser(httptest.NewRequest(http.MethodGet, "/api/v1/tickets?status=lost", nil), "u1", domain.RoleCustomer))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTicketHandler_GetNotFound(t *testing.T) {
	h := NewTicketHandler(&ticketServiceStub{}, nil)

	rec := httptest.NewRecorder()
	req := withURLParam(withUser(httptest.NewRequest(http.MethodGet, "/api/v1/tickets/zzz", nil), "u1", domain.RoleCustomer), "id", "zzz")
	h.Get(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestTicketHandler_Transfer(t *testing.T) {
	stub := &ticketServiceStub{}
	m := metrics.New(prometheus.NewRegistry())
	h := NewTicketHandler(stub, m)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tickets/t1/transfer", strings.NewReader(`{"recipient":"pal@example.com","attendee_name":"Pal"}`))
	h.Transfer(rec, withURLParam(withUser(req, "u1", domain.RoleCustomer), "id", "t1"))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "pal@example.com", stub.transfer.Recipient)
	assert.Equal(t, "u1", stub.transfer.FromUserID)
	assert.Contains(t, rec.Body.String(), `"transferred_from":"t1"`)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TicketTransfers))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/tickets/t9/transfer", strings.NewReader(`{"recipient":"pal@example.com"}`))
	h.Transfer(rec, withURLParam(withUser(req, "u1", domain.RoleCustomer), "id", "t9"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTicketHandler_Redeem(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		result string
	}{
		{name: "first scan", status: http.StatusOK, result: "redeemed"},
		{name: "second scan", err: domain.ErrAlreadyUsed, status: http.StatusConflict, result: "already_used"},
		{name: "unknown code", err: domain.ErrTicketNotFound, status: http.StatusNotFound, result: "not_found"},
		{name: "transferred", err: domain.ErrInvalidState, status: http.StatusConflict, result: "invalid_state"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := metrics.New(prometheus.NewRegistry())
			h := NewTicketHandler(&ticketServiceStub{redeemFn: func(qr string) (*domain.Ticket, error) {
				if tt.err != nil {
					return nil, tt.err
				}
				return &domain.Ticket{ID: "t1", QRCode: qr, Status: domain.TicketStatusUsed}, nil
			}}, m)

			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/venue/redeem", strings.NewReader(`{"qr_code":"abc"}`))
			h.Redeem(rec, withUser(req, "staff-1", domain.RoleStaff))

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, float64(1), testutil.ToFloat64(m.TicketRedemptions.WithLabelValues(tt.result)))
		})
	}
}
