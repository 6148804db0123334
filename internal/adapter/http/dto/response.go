package dto

import (
	"time"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/usecase"
	"github.com/shopspring/decimal"
)

func money(d decimal.Decimal) string {
	return d.StringFixed(domain.MoneyScale)
}

// BalanceResponse represents a wallet in API responses.
type BalanceResponse struct {
	UserID            string            `json:"user_id"`
	Balances          map[string]string `json:"balances"`
	PreferredCurrency string            `json:"preferred_currency"`
	Version           int64             `json:"version"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// BalanceFromDomain converts a domain wallet to response.
func BalanceFromDomain(b *domain.UserBalance) *BalanceResponse {
	balances := make(map[string]string, len(domain.SupportedCurrencies))
	for _, c := range domain.SupportedCurrencies {
		balances[string(c)] = money(b.Amount(c))
	}

	return &BalanceResponse{
		UserID:            b.UserID,
		Balances:          balances,
		PreferredCurrency: string(b.PreferredCurrency),
		Version:           b.Version,
		UpdatedAt:         b.UpdatedAt,
	}
}

// SummaryResponse is a wallet with its converted total.
type SummaryResponse struct {
	*BalanceResponse
	TotalCurrency string `json:"total_currency"`
	Total         string `json:"total"`
}

// SummaryFromUseCase converts a balance summary to response.
func SummaryFromUseCase(s *usecase.BalanceSummary) *SummaryResponse {
	return &SummaryResponse{
		BalanceResponse: BalanceFromDomain(s.Balance),
		TotalCurrency:   string(s.TotalCurrency),
		Total:           money(s.Total),
	}
}

// EntryResponse represents a ledger entry in API responses.
type EntryResponse struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Currency     string    `json:"currency"`
	Amount       string    `json:"amount"`
	BalanceAfter string    `json:"balance_after"`
	Description  string    `json:"description"`
	Reference    string    `json:"reference,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// EntryFromDomain converts domain entry to response.
func EntryFromDomain(e *domain.Entry) *EntryResponse {
	return &EntryResponse{
		ID:           e.ID,
		Type:         string(e.Type),
		Currency:     string(e.Currency),
		Amount:       money(e.Amount),
		BalanceAfter: money(e.BalanceAfter),
		Description:  e.Description,
		Reference:    e.Reference,
		CreatedAt:    e.CreatedAt,
	}
}

// EntriesFromDomain converts domain entries to responses.
func EntriesFromDomain(entries []*domain.Entry) []*EntryResponse {
	result := make([]*EntryResponse, len(entries))
	for i, e := range entries {
		result[i] = EntryFromDomain(e)
	}
	return result
}

// HistoryResponse is a page of wallet history.
type HistoryResponse struct {
	Entries []*EntryResponse `json:"entries"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// WalletTransferResponse is the sender's view of a wallet transfer.
type WalletTransferResponse struct {
	Balance  *BalanceResponse `json:"balance"`
	OutEntry *EntryResponse   `json:"entry"`
}

// WalletTransferFromUseCase converts a transfer result to response.
func WalletTransferFromUseCase(r *usecase.TransferResult) *WalletTransferResponse {
	return &WalletTransferResponse{
		Balance:  BalanceFromDomain(r.FromBalance),
		OutEntry: EntryFromDomain(r.OutEntry),
	}
}

// EventResponse is the event snapshot printed on a ticket.
type EventResponse struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Location string    `json:"location,omitempty"`
	ImageURL string    `json:"image_url,omitempty"`
}

// TicketResponse represents a ticket in API responses.
type TicketResponse struct {
	ID              string        `json:"id"`
	Event           EventResponse `json:"event"`
	OwnerUserID     string        `json:"owner_user_id"`
	PurchaseID      string        `json:"purchase_id"`
	QRCode          string        `json:"qr_code,omitempty"`
	SeatNumber      string        `json:"seat_number"`
	AttendeeName    string        `json:"attendee_name"`
	Status          string        `json:"status"`
	Price           string        `json:"price"`
	Currency        string        `json:"currency"`
	PurchaseDate    time.Time     `json:"purchase_date"`
	TransferDate    *time.Time    `json:"transfer_date,omitempty"`
	UsedAt          *time.Time    `json:"used_at,omitempty"`
	TransferredFrom *string       `json:"transferred_from,omitempty"`
}

// TicketFromDomain converts a domain ticket to response. The QR code is only shown
// while the ticket can still be used.
func TicketFromDomain(t *domain.Ticket) *TicketResponse {
	resp := &TicketResponse{
		ID: t.ID,
		Event: EventResponse{
			ID:       t.Event.EventID,
			Title:    t.Event.Title,
			Date:     t.Event.Date,
			Location: t.Event.Location,
			ImageURL: t.Event.ImageURL,
		},
		OwnerUserID:     t.OwnerUserID,
		PurchaseID:      t.PurchaseID,
		SeatNumber:      t.SeatNumber,
		AttendeeName:    t.AttendeeName,
		Status:          string(t.Status),
		Price:           money(t.Price),
		Currency:        string(t.Currency),
		PurchaseDate:    t.PurchaseDate,
		TransferDate:    t.TransferDate,
		UsedAt:          t.UsedAt,
		TransferredFrom: t.TransferredFrom,
	}
	if t.Status == domain.TicketStatusActive {
		resp.QRCode = t.QRCode
	}
	return resp
}

// TicketsFromDomain converts domain tickets to responses.
func TicketsFromDomain(tickets []*domain.Ticket) []*TicketResponse {
	result := make([]*TicketResponse, len(tickets))
	for i, t := range tickets {
		result[i] = TicketFromDomain(t)
	}
	return result
}

// PurchaseResponse is a completed checkout.
type PurchaseResponse struct {
	ID        string            `json:"id"`
	EventID   string            `json:"event_id"`
	Status    string            `json:"status"`
	Quantity  int               `json:"quantity"`
	UnitPrice string            `json:"unit_price"`
	Fee       string            `json:"fee"`
	Total     string            `json:"total"`
	Currency  string            `json:"currency"`
	CreatedAt time.Time         `json:"created_at"`
	Tickets   []*TicketResponse `json:"tickets"`
	Balance   *BalanceResponse  `json:"balance,omitempty"`
}

// PurchaseFromUseCase converts a purchase result to response.
func PurchaseFromUseCase(r *usecase.PurchaseResult) *PurchaseResponse {
	p := r.Purchase
	resp := &PurchaseResponse{
		ID:        p.ID,
		EventID:   p.EventID,
		Status:    string(p.Status),
		Quantity:  p.Quantity,
		UnitPrice: money(p.UnitPrice),
		Fee:       money(p.Fee),
		Total:     money(p.Total),
		Currency:  string(p.Currency),
		CreatedAt: p.CreatedAt,
		Tickets:   TicketsFromDomain(r.Tickets),
	}
	if r.Balance != nil {
		resp.Balance = BalanceFromDomain(r.Balance)
	}
	return resp
}

// InvoiceResponse represents a crypto top-up invoice in API responses.
type InvoiceResponse struct {
	OrderID      string     `json:"order_id"`
	Status       string     `json:"status"`
	Amount       string     `json:"amount"`
	Currency     string     `json:"currency"`
	TargetCrypto string     `json:"target_crypto"`
	PaymentURL   string     `json:"payment_url"`
	ExpiresAt    time.Time  `json:"expires_at"`
	PaidAt       *time.Time `json:"paid_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// InvoiceFromDomain converts a domain invoice to response.
func InvoiceFromDomain(i *domain.Invoice) *InvoiceResponse {
	return &InvoiceResponse{
		OrderID:      i.OrderID,
		Status:       string(i.Status),
		Amount:       money(i.Amount),
		Currency:     string(i.Currency),
		TargetCrypto: i.TargetCrypto,
		PaymentURL:   i.PaymentURL,
		ExpiresAt:    i.ExpiresAt,
		PaidAt:       i.PaidAt,
		CreatedAt:    i.CreatedAt,
	}
}

// WebhookAckResponse acknowledges a processor callback.
type WebhookAckResponse struct {
	OrderID string `json:"order_id"`
	Status  string `json:"status"`
}

// CurrencyDiffResponse compares one bucket with its entries.
type CurrencyDiffResponse struct {
	Currency   string `json:"currency"`
	Recorded   string `json:"recorded"`
	Calculated string `json:"calculated"`
	Difference string `json:"difference"`
}

// ReconciliationResponse is one user's reconciliation.
type ReconciliationResponse struct {
	UserID       string                 `json:"user_id"`
	IsReconciled bool                   `json:"is_reconciled"`
	Currencies   []CurrencyDiffResponse `json:"currencies"`
	CheckedAt    time.Time              `json:"checked_at"`
}

// ReconciliationFromUseCase converts a reconciliation result to response.
func ReconciliationFromUseCase(r *usecase.ReconciliationResult) *ReconciliationResponse {
	diffs := make([]CurrencyDiffResponse, len(r.Currencies))
	for i, d := range r.Currencies {
		diffs[i] = CurrencyDiffResponse{
			Currency:   string(d.Currency),
			Recorded:   money(d.Recorded),
			Calculated: money(d.Calculated),
			Difference: money(d.Difference),
		}
	}

	return &ReconciliationResponse{
		UserID:       r.UserID,
		IsReconciled: r.IsReconciled,
		Currencies:   diffs,
		CheckedAt:    r.LastChecked,
	}
}

// ReportResponse is a ledger-wide reconciliation report.
type ReportResponse struct {
	TotalUsers       int                       `json:"total_users"`
	ReconciledUsers  int                       `json:"reconciled_users"`
	LedgerConsistent bool                      `json:"ledger_consistent"`
	LedgerError      string                    `json:"ledger_error,omitempty"`
	Discrepancies    []*ReconciliationResponse `json:"discrepancies"`
	CheckedAt        time.Time                 `json:"checked_at"`
}

// ReportFromUseCase converts a reconciliation report to response.
func ReportFromUseCase(r *usecase.ReconciliationReport) *ReportResponse {
	discrepancies := make([]*ReconciliationResponse, len(r.Discrepancies))
	for i, d := range r.Discrepancies {
		discrepancies[i] = ReconciliationFromUseCase(d)
	}

	return &ReportResponse{
		TotalUsers:       r.TotalUsers,
		ReconciledUsers:  r.ReconciledUsers,
		LedgerConsistent: r.LedgerConsistent,
		LedgerError:      r.LedgerError,
		Discrepancies:    discrepancies,
		CheckedAt:        r.CheckedAt,
	}
}

// ErrorResponse represents an error in API responses.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
}
