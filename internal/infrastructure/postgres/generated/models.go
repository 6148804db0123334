package generated

import (
	"github.com/jackc/pgx/v5/pgtype"
)

type Invoice struct {
	OrderID           string             `json:"order_id"`
	UserID            string             `json:"user_id"`
	Amount            pgtype.Numeric     `json:"amount"`
	Currency          string             `json:"currency"`
	TargetCrypto      string             `json:"target_crypto"`
	Status            string             `json:"status"`
	ExternalInvoiceID string             `json:"external_invoice_id"`
	PaymentUrl        string             `json:"payment_url"`
	ExpiresAt         pgtype.Timestamptz `json:"expires_at"`
	PaidAt            pgtype.Timestamptz `json:"paid_at"`
	CreatedAt         pgtype.Timestamptz `json:"created_at"`
	UpdatedAt         pgtype.Timestamptz `json:"updated_at"`
}

type LedgerEntry struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	Type         string             `json:"type"`
	Amount       pgtype.Numeric     `json:"amount"`
	Currency     string             `json:"currency"`
	BalanceAfter pgtype.Numeric     `json:"balance_after"`
	Description  string             `json:"description"`
	Reference    string             `json:"reference"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
}

type OutboxEvent struct {
	ID            string             `json:"id"`
	AggregateID   string             `json:"aggregate_id"`
	AggregateType string             `json:"aggregate_type"`
	EventType     string             `json:"event_type"`
	Payload       []byte             `json:"payload"`
	CreatedAt     pgtype.Timestamptz `json:"created_at"`
	PublishedAt   pgtype.Timestamptz `json:"published_at"`
	Published     bool               `json:"published"`
}

type Purchase struct {
	ID           string             `json:"id"`
	UserID       string             `json:"user_id"`
	EventID      string             `json:"event_id"`
	Quantity     int32              `json:"quantity"`
	UnitPrice    pgtype.Numeric     `json:"unit_price"`
	Fee          pgtype.Numeric     `json:"fee"`
	Total        pgtype.Numeric     `json:"total"`
	Currency     string             `json:"currency"`
	Status       string             `json:"status"`
	DebitEntryID string             `json:"debit_entry_id"`
	FailureCause string             `json:"failure_cause"`
	BuyerName    string             `json:"buyer_name"`
	BuyerEmail   string             `json:"buyer_email"`
	BuyerPhone   string             `json:"buyer_phone"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}

type Ticket struct {
	ID              string             `json:"id"`
	OwnerUserID     string             `json:"owner_user_id"`
	PurchaseID      string             `json:"purchase_id"`
	EventID         string             `json:"event_id"`
	EventTitle      string             `json:"event_title"`
	EventDate       pgtype.Timestamptz `json:"event_date"`
	EventLocation   string             `json:"event_location"`
	EventImageUrl   string             `json:"event_image_url"`
	QrCode          string             `json:"qr_code"`
	Price           pgtype.Numeric     `json:"price"`
	Currency        string             `json:"currency"`
	SeatNumber      string             `json:"seat_number"`
	AttendeeName    string             `json:"attendee_name"`
	Status          string             `json:"status"`
	PurchaseDate    pgtype.Timestamptz `json:"purchase_date"`
	TransferredFrom pgtype.Text        `json:"transferred_from"`
	TransferDate    pgtype.Timestamptz `json:"transfer_date"`
	UsedAt          pgtype.Timestamptz `json:"used_at"`
}

type User struct {
	ID        string             `json:"id"`
	Email     string             `json:"email"`
	Name      string             `json:"name"`
	Role      string             `json:"role"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}

type UserBalance struct {
	UserID            string             `json:"user_id"`
	Usd               pgtype.Numeric     `json:"usd"`
	Mxn               pgtype.Numeric     `json:"mxn"`
	Brl               pgtype.Numeric     `json:"brl"`
	Eur               pgtype.Numeric     `json:"eur"`
	PreferredCurrency string             `json:"preferred_currency"`
	LegacyBalance     pgtype.Numeric     `json:"legacy_balance"`
	Version           int64              `json:"version"`
	CreatedAt         pgtype.Timestamptz `json:"created_at"`
	UpdatedAt         pgtype.Timestamptz `json:"updated_at"`
}
