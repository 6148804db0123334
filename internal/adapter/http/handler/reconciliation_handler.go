package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/boxoffice/internal/adapter/http/dto"
	"github.com/iho/boxoffice/internal/infrastructure/metrics"
	"github.com/iho/boxoffice/internal/usecase"
)

// ReconciliationService defines the behavior needed by ReconciliationHandler.
type ReconciliationService interface {
	GenerateReconciliationReport(ctx context.Context) (*usecase.ReconciliationReport, error)
	ReconcileUser(ctx context.Context, userID string) (*usecase.ReconciliationResult, error)
}

// ReconciliationHandler exposes ledger checks to administrators.
type ReconciliationHandler struct {
	recon   ReconciliationService
	metrics *metrics.Metrics
}

// NewReconciliationHandler creates a new ReconciliationHandler.
func NewReconciliationHandler(recon ReconciliationService, m *metrics.Metrics) *ReconciliationHandler {
	return &ReconciliationHandler{recon: recon, metrics: m}
}

// Report reconciles every wallet and checks ledger-wide totals.
func (h *ReconciliationHandler) Report(w http.ResponseWriter, r *http.Request) {
	report, err := h.recon.GenerateReconciliationReport(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.metrics.SetDiscrepancies(len(report.Discrepancies))

	writeJSON(w, http.StatusOK, dto.ReportFromUseCase(report))
}

// User reconciles one wallet.
func (h *ReconciliationHandler) User(w http.ResponseWriter, r *http.Request) {
	result, err := h.recon.ReconcileUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ReconciliationFromUseCase(result))
}
