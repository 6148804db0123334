package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/adapter/http/dto"
	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/infrastructure/metrics"
	"github.com/iho/boxoffice/internal/usecase"
)

// PurchaseService defines the behavior needed by PurchaseHandler.
type PurchaseService interface {
	Purchase(ctx context.Context, input usecase.PurchaseInput) (*usecase.PurchaseResult, error)
	GetPurchase(ctx context.Context, userID, purchaseID string) (*domain.Purchase, error)
}

// PurchaseHandler handles checkout requests.
type PurchaseHandler struct {
	purchases PurchaseService
	fee       decimal.Decimal
	metrics   *metrics.Metrics
}

// NewPurchaseHandler creates a new PurchaseHandler. fee is added once to every purchase.
func NewPurchaseHandler(purchases PurchaseService, fee decimal.Decimal, m *metrics.Metrics) *PurchaseHandler {
	return &PurchaseHandler{purchases: purchases, fee: fee, metrics: m}
}

// Create buys tickets with the caller's balance.
func (h *PurchaseHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.PurchaseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	input, err := req.ToUseCaseInput(user.ID, h.fee)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := h.purchases.Purchase(r.Context(), input)
	if err != nil {
		if status, _ := mapDomainError(err); status < http.StatusInternalServerError {
			h.metrics.ObservePurchase("rejected", 0)
		} else {
			h.metrics.ObservePurchase("failed", 0)
		}
		writeDomainError(w, r, err)
		return
	}

	h.metrics.ObservePurchase("completed", len(result.Tickets))
	h.metrics.ObservePosting(string(domain.EntryTypePurchase), string(result.Purchase.Currency))

	writeJSON(w, http.StatusCreated, dto.PurchaseFromUseCase(result))
}

// Get returns one of the caller's purchases.
func (h *PurchaseHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	purchase, err := h.purchases.GetPurchase(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.PurchaseFromUseCase(&usecase.PurchaseResult{Purchase: purchase}))
}
