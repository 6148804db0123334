package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/iho/boxoffice/internal/adapter/http/dto"
	"github.com/iho/boxoffice/internal/domain"
)

const maxBodyBytes = 1 << 20

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes an error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   http.StatusText(status),
		Code:    code,
		Message: message,
	})
}

// writeDomainError maps err to a response. Unmapped errors are logged and hidden from the client.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status, code := mapDomainError(err)
	if status >= http.StatusInternalServerError {
		zerolog.Ctx(r.Context()).Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
		if status == http.StatusInternalServerError {
			writeError(w, status, code, "internal server error")
			return
		}
	}
	writeError(w, status, code, err.Error())
}

type errorMapping struct {
	err    error
	status int
	code   string
}

// Specific errors come before the families they belong to.
var errorMappings = []errorMapping{
	{domain.ErrTicketNotFound, http.StatusNotFound, "ticket_not_found"},
	{domain.ErrPurchaseNotFound, http.StatusNotFound, "purchase_not_found"},
	{domain.ErrInvoiceNotFound, http.StatusNotFound, "invoice_not_found"},
	{domain.ErrUserNotFound, http.StatusNotFound, "user_not_found"},
	{domain.ErrBalanceNotFound, http.StatusNotFound, "balance_not_found"},
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},

	{domain.ErrInsufficientFunds, http.StatusUnprocessableEntity, "insufficient_funds"},
	{domain.ErrInvalidAmount, http.StatusBadRequest, "invalid_amount"},
	{domain.ErrInvalidCurrency, http.StatusBadRequest, "invalid_currency"},
	{domain.ErrInvalidQuantity, http.StatusBadRequest, "invalid_quantity"},
	{domain.ErrMissingAttendee, http.StatusBadRequest, "missing_attendee"},
	{domain.ErrInvalidEvent, http.StatusBadRequest, "invalid_event"},
	{domain.ErrInvalidCryptoTarget, http.StatusBadRequest, "invalid_crypto_target"},
	{domain.ErrInvalidDescription, http.StatusBadRequest, "invalid_description"},
	{domain.ErrInvalidEmail, http.StatusBadRequest, "invalid_email"},
	{domain.ErrSameUser, http.StatusBadRequest, "same_user"},

	{domain.ErrNotOwner, http.StatusForbidden, "not_owner"},
	{domain.ErrAlreadyUsed, http.StatusConflict, "already_used"},
	{domain.ErrInvalidState, http.StatusConflict, "invalid_state"},

	{domain.ErrInvalidSignature, http.StatusUnauthorized, "invalid_signature"},
	{domain.ErrUnknownOrder, http.StatusNotFound, "unknown_order"},
	{domain.ErrUpstream, http.StatusBadGateway, "upstream_error"},

	{domain.ErrExpiredToken, http.StatusUnauthorized, "expired_token"},
	{domain.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domain.ErrInsufficientRole, http.StatusForbidden, "forbidden"},

	{context.DeadlineExceeded, http.StatusGatewayTimeout, "timeout"},
}

// mapDomainError maps domain errors to HTTP status codes and machine-readable codes.
func mapDomainError(err error) (int, string) {
	for _, m := range errorMappings {
		if errors.Is(err, m.err) {
			return m.status, m.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("invalid request body: trailing data")
	}
	return nil
}

// currentUser returns the authenticated caller, writing 401 when there is none.
func currentUser(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	user, ok := domain.UserFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", domain.ErrUnauthorized.Error())
		return nil, false
	}
	return user, true
}

// parseIntQuery parses an integer query parameter with a default value.
func parseIntQuery(r *http.Request, key string, defaultValue int) int {
	val := r.URL.Query().Get(key)
	if val == "" {
		return defaultValue
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		return defaultValue
	}
	return i
}
