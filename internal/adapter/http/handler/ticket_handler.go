package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/iho/boxoffice/internal/adapter/http/dto"
	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/infrastructure/metrics"
	"github.com/iho/boxoffice/internal/usecase"
)

// TicketService defines the behavior needed by TicketHandler.
type TicketService interface {
	ListByOwner(ctx context.Context, userID string, status *domain.TicketStatus) ([]*domain.Ticket, error)
	GetTicket(ctx context.Context, userID, ticketID string) (*domain.Ticket, error)
	Transfer(ctx context.Context, input usecase.TransferTicketInput) (*domain.Ticket, error)
	ValidateAndRedeem(ctx context.Context, qrCode string) (*domain.Ticket, error)
}

// TicketHandler handles ticket ownership and venue scans.
type TicketHandler struct {
	tickets TicketService
	metrics *metrics.Metrics
}

// NewTicketHandler creates a new TicketHandler.
func NewTicketHandler(tickets TicketService, m *metrics.Metrics) *TicketHandler {
	return &TicketHandler{tickets: tickets, metrics: m}
}

// List lists the caller's tickets, optionally filtered by ?status=.
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var status *domain.TicketStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		s := domain.TicketStatus(raw)
		if !s.IsValid() {
			writeError(w, http.StatusBadRequest, "invalid_status", "unknown ticket status "+raw)
			return
		}
		status = &s
	}

	tickets, err := h.tickets.ListByOwner(r.Context(), user.ID, status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TicketsFromDomain(tickets))
}

// Get returns one of the caller's tickets.
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	ticket, err := h.tickets.GetTicket(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.TicketFromDomain(ticket))
}

// Transfer hands a ticket to another user and returns the recipient's new ticket.
func (h *TicketHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.TicketTransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	ticket, err := h.tickets.Transfer(r.Context(), req.ToUseCaseInput(chi.URLParam(r, "id"), user.ID))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.metrics.ObserveTransfer()

	writeJSON(w, http.StatusCreated, dto.TicketFromDomain(ticket))
}

// Redeem validates a scanned code at the venue door.
func (h *TicketHandler) Redeem(w http.ResponseWriter, r *http.Request) {
	var req dto.RedeemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	ticket, err := h.tickets.ValidateAndRedeem(r.Context(), req.QRCode)
	if err != nil {
		h.metrics.ObserveRedemption(redeemResult(err))
		writeDomainError(w, r, err)
		return
	}

	h.metrics.ObserveRedemption("redeemed")

	writeJSON(w, http.StatusOK, dto.TicketFromDomain(ticket))
}

func redeemResult(err error) string {
	switch {
	case errors.Is(err, domain.ErrAlreadyUsed):
		return "already_used"
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrInvalidState):
		return "invalid_state"
	default:
		return "error"
	}
}
