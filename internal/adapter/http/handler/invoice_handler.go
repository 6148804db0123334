package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/boxoffice/internal/adapter/http/dto"
	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/infrastructure/metrics"
	"github.com/iho/boxoffice/internal/usecase"
)

// SignatureHeader carries the processor's signature of the raw webhook body.
const SignatureHeader = "sign"

const maxWebhookBytes = 64 << 10

// PaymentService defines the behavior needed by InvoiceHandler.
type PaymentService interface {
	CreateInvoice(ctx context.Context, input usecase.CreateInvoiceInput) (*domain.Invoice, error)
	GetInvoice(ctx context.Context, userID, orderID string) (*domain.Invoice, error)
	HandleWebhook(ctx context.Context, body []byte, signature string) (*domain.Invoice, error)
}

// InvoiceHandler handles crypto top-ups and the processor's callbacks.
type InvoiceHandler struct {
	payments PaymentService
	metrics  *metrics.Metrics
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(payments PaymentService, m *metrics.Metrics) *InvoiceHandler {
	return &InvoiceHandler{payments: payments, metrics: m}
}

// Create opens a top-up invoice for the caller.
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.CreateInvoiceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(user.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	invoice, err := h.payments.CreateInvoice(r.Context(), input)
	if err != nil {
		if errors.Is(err, domain.ErrUpstream) {
			h.metrics.ObserveInvoice("upstream_error")
		} else {
			h.metrics.ObserveInvoice("rejected")
		}
		writeDomainError(w, r, err)
		return
	}

	h.metrics.ObserveInvoice("created")

	writeJSON(w, http.StatusCreated, dto.InvoiceFromDomain(invoice))
}

// Get returns one of the caller's invoices.
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	invoice, err := h.payments.GetInvoice(r.Context(), user.ID, chi.URLParam(r, "orderId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.InvoiceFromDomain(invoice))
}

// Webhook applies a processor callback. The raw body is passed through untouched
// because the signature covers its exact bytes.
func (h *InvoiceHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBytes))
	if err != nil {
		h.metrics.ObserveWebhook("invalid_body")
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	invoice, err := h.payments.HandleWebhook(r.Context(), body, r.Header.Get(SignatureHeader))
	if err != nil {
		h.metrics.ObserveWebhook(webhookResult(err))
		writeDomainError(w, r, err)
		return
	}

	h.metrics.ObserveWebhook(string(invoice.Status))
	if invoice.Status == domain.InvoiceStatusPaid {
		h.metrics.ObservePosting(string(domain.EntryTypeDeposit), string(invoice.Currency))
	}

	writeJSON(w, http.StatusOK, dto.WebhookAckResponse{
		OrderID: invoice.OrderID,
		Status:  string(invoice.Status),
	})
}

func webhookResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrInvalidSignature):
		return "invalid_signature"
	case errors.Is(err, domain.ErrUnknownOrder):
		return "unknown_order"
	default:
		return "error"
	}
}
