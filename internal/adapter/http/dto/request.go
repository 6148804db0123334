package dto

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/usecase"
)

// PreferredCurrencyRequest changes the wallet's display currency.
type PreferredCurrencyRequest struct {
	Currency string `json:"currency"`
}

// WalletTransferRequest moves funds to another user, addressed by id or email.
type WalletTransferRequest struct {
	Recipient   string          `json:"recipient"`
	Amount      decimal.Decimal `json:"amount"`
	Currency    string          `json:"currency"`
	Description string          `json:"description,omitempty"`
}

// ToUseCaseInput converts to use case input. recipientID is the resolved recipient.
func (r *WalletTransferRequest) ToUseCaseInput(fromUserID, recipientID string) (usecase.TransferInput, error) {
	currency, err := domain.ParseCurrency(r.Currency)
	if err != nil {
		return usecase.TransferInput{}, err
	}

	return usecase.TransferInput{
		FromUserID:  fromUserID,
		ToUserID:    recipientID,
		Amount:      r.Amount,
		Currency:    currency,
		Description: strings.TrimSpace(r.Description),
	}, nil
}

// EventRequest is the catalog snapshot a purchase is made against.
type EventRequest struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Date     time.Time `json:"date"`
	Location string    `json:"location,omitempty"`
	ImageURL string    `json:"image_url,omitempty"`
	// Remaining is the number of seats left, when the catalog knows it.
	Remaining int `json:"remaining,omitempty"`
}

// BuyerRequest is the contact data captured at checkout.
type BuyerRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

// PurchaseRequest is a checkout paid from the internal balance.
type PurchaseRequest struct {
	Event     EventRequest    `json:"event"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Currency  string          `json:"currency"`
	Buyer     BuyerRequest    `json:"buyer"`
	Attendees []string        `json:"attendees"`
	Seats     []string        `json:"seats,omitempty"`
}

// ToUseCaseInput converts to use case input. fee is the resolved per-purchase fee.
func (r *PurchaseRequest) ToUseCaseInput(userID string, fee decimal.Decimal) (usecase.PurchaseInput, error) {
	currency, err := domain.ParseCurrency(r.Currency)
	if err != nil {
		return usecase.PurchaseInput{}, err
	}

	return usecase.PurchaseInput{
		UserID: userID,
		Event: domain.EventSnapshot{
			EventID:  strings.TrimSpace(r.Event.ID),
			Title:    strings.TrimSpace(r.Event.Title),
			Date:     r.Event.Date,
			Location: r.Event.Location,
			ImageURL: r.Event.ImageURL,
		},
		Price:    r.Price,
		Quantity: r.Quantity,
		Currency: currency,
		Buyer: domain.BuyerInfo{
			Name:  strings.TrimSpace(r.Buyer.Name),
			Email: strings.TrimSpace(r.Buyer.Email),
			Phone: strings.TrimSpace(r.Buyer.Phone),
		},
		Attendees:      r.Attendees,
		Seats:          r.Seats,
		Fee:            fee,
		EventRemaining: r.Event.Remaining,
	}, nil
}

// TicketTransferRequest hands a ticket to another user.
type TicketTransferRequest struct {
	Recipient    string `json:"recipient"`
	AttendeeName string `json:"attendee_name,omitempty"`
}

// ToUseCaseInput converts to use case input.
func (r *TicketTransferRequest) ToUseCaseInput(ticketID, fromUserID string) usecase.TransferTicketInput {
	return usecase.TransferTicketInput{
		TicketID:     ticketID,
		FromUserID:   fromUserID,
		Recipient:    strings.TrimSpace(r.Recipient),
		AttendeeName: strings.TrimSpace(r.AttendeeName),
	}
}

// RedeemRequest is a venue scan.
type RedeemRequest struct {
	QRCode string `json:"qr_code"`
}

// CreateInvoiceRequest asks for a crypto top-up invoice.
type CreateInvoiceRequest struct {
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	TargetCrypto string          `json:"target_crypto"`
}

// ToUseCaseInput converts to use case input.
func (r *CreateInvoiceRequest) ToUseCaseInput(userID string) (usecase.CreateInvoiceInput, error) {
	currency, err := domain.ParseCurrency(r.Currency)
	if err != nil {
		return usecase.CreateInvoiceInput{}, err
	}

	return usecase.CreateInvoiceInput{
		UserID:       userID,
		Amount:       r.Amount,
		Currency:     currency,
		TargetCrypto: r.TargetCrypto,
	}, nil
}
