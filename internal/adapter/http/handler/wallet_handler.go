package handler

import (
	"context"
	"net/http"

	"github.com/iho/boxoffice/internal/adapter/http/dto"
	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/infrastructure/metrics"
	"github.com/iho/boxoffice/internal/usecase"
)

// WalletService defines the behavior needed by WalletHandler.
type WalletService interface {
	GetBalance(ctx context.Context, userID string) (*domain.UserBalance, error)
	Summary(ctx context.Context, userID string, target domain.Currency) (*usecase.BalanceSummary, error)
	GetHistory(ctx context.Context, userID string, limit, offset int) ([]*domain.Entry, error)
	UpdatePreferredCurrency(ctx context.Context, userID string, currency domain.Currency) (*domain.UserBalance, error)
	TransferInternal(ctx context.Context, input usecase.TransferInput) (*usecase.TransferResult, error)
}

// RecipientResolver maps an email or user id to a user id.
type RecipientResolver interface {
	ResolveUserID(ctx context.Context, emailOrID string) (string, error)
}

// WalletHandler handles wallet HTTP requests for the caller's own wallet.
type WalletHandler struct {
	wallet  WalletService
	users   RecipientResolver
	metrics *metrics.Metrics
}

// NewWalletHandler creates a new WalletHandler. m may be nil.
func NewWalletHandler(wallet WalletService, users RecipientResolver, m *metrics.Metrics) *WalletHandler {
	return &WalletHandler{wallet: wallet, users: users, metrics: m}
}

// Get returns every currency bucket of the caller's wallet.
func (h *WalletHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	balance, err := h.wallet.GetBalance(r.Context(), user.ID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(balance))
}

// Summary returns the wallet with its total in ?currency= or the preferred currency.
func (h *WalletHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var target domain.Currency
	if raw := r.URL.Query().Get("currency"); raw != "" {
		c, err := domain.ParseCurrency(raw)
		if err != nil {
			writeDomainError(w, r, err)
			return
		}
		target = c
	}

	summary, err := h.wallet.Summary(r.Context(), user.ID, target)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.SummaryFromUseCase(summary))
}

// History lists the caller's ledger entries, newest first.
func (h *WalletHandler) History(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	limit := parseIntQuery(r, "limit", usecase.DefaultHistoryLimit)
	offset := parseIntQuery(r, "offset", 0)

	entries, err := h.wallet.GetHistory(r.Context(), user.ID, limit, offset)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.HistoryResponse{
		Entries: dto.EntriesFromDomain(entries),
		Limit:   limit,
		Offset:  offset,
	})
}

// UpdatePreferredCurrency changes the caller's preferred currency.
func (h *WalletHandler) UpdatePreferredCurrency(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.PreferredCurrencyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	currency, err := domain.ParseCurrency(req.Currency)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	balance, err := h.wallet.UpdatePreferredCurrency(r.Context(), user.ID, currency)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.BalanceFromDomain(balance))
}

// Transfer moves funds from the caller to another user.
func (h *WalletHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req dto.WalletTransferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", err.Error())
		return
	}

	recipientID, err := h.users.ResolveUserID(r.Context(), req.Recipient)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	input, err := req.ToUseCaseInput(user.ID, recipientID)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	result, err := h.wallet.TransferInternal(r.Context(), input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	h.metrics.ObservePosting(string(domain.EntryTypeTransferOut), string(input.Currency))
	h.metrics.ObservePosting(string(domain.EntryTypeTransferIn), string(input.Currency))

	writeJSON(w, http.StatusCreated, dto.WalletTransferFromUseCase(result))
}
