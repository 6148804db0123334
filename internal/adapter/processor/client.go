package processor

import (
	"bytes"
	"context"
	"crypto/md5"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/usecase"
)

// maxResponseBytes bounds how much of a processor reply is read.
const maxResponseBytes = 1 << 20

// Config holds the merchant credentials and endpoints of the crypto processor.
type Config struct {
	BaseURL     string
	MerchantID  string
	APIKey      string
	CallbackURL string
	ReturnURL   string
	Timeout     time.Duration
}

// Client implements usecase.PaymentProcessor against the processor's JSON API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new processor client.
func NewClient(cfg Config, logger zerolog.Logger) (*Client, error) {
	if cfg.BaseURL == "" || cfg.MerchantID == "" || cfg.APIKey == "" {
		return nil, errors.New("processor: base URL, merchant id and API key are required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     logger.With().Str("component", "processor").Logger(),
	}, nil
}

type createInvoiceRequest struct {
	Amount      string `json:"amount"`
	Currency    string `json:"currency"`
	OrderID     string `json:"order_id"`
	ToCurrency  string `json:"to_currency"`
	URLCallback string `json:"url_callback,omitempty"`
	URLReturn   string `json:"url_return,omitempty"`
	Lifetime    int64  `json:"lifetime,omitempty"`
}

type createInvoiceResponse struct {
	State   int    `json:"state"`
	Message string `json:"message"`
	Result  struct {
		UUID      string `json:"uuid"`
		URL       string `json:"url"`
		ExpiredAt int64  `json:"expired_at"`
	} `json:"result"`
}

// CreateInvoice opens a hosted crypto invoice. Any transport failure or non-zero state is
// reported as domain.ErrUpstream.
func (c *Client) CreateInvoice(ctx context.Context, req usecase.ProcessorInvoiceRequest) (*usecase.ProcessorInvoice, error) {
	payload, err := json.Marshal(createInvoiceRequest{
		Amount:      req.Amount.StringFixed(domain.MoneyScale),
		Currency:    string(req.Currency),
		OrderID:     req.OrderID,
		ToCurrency:  req.TargetCrypto,
		URLCallback: c.cfg.CallbackURL,
		URLReturn:   c.cfg.ReturnURL,
		Lifetime:    int64(req.Lifetime / time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("marshal invoice request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/payment", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("merchant", c.cfg.MerchantID)
	httpReq.Header.Set("sign", Sign(payload, c.cfg.APIKey))

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error().Err(err).Str("order_id", req.OrderID).Msg("processor request failed")
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %w", domain.ErrUpstream, err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error().
			Int("status_code", resp.StatusCode).
			Str("order_id", req.OrderID).
			Str("response", string(body)).
			Msg("processor returned non-OK status")
		return nil, fmt.Errorf("%w: status %d", domain.ErrUpstream, resp.StatusCode)
	}

	var out createInvoiceResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrUpstream, err)
	}
	if out.State != 0 || out.Result.UUID == "" || out.Result.URL == "" {
		return nil, fmt.Errorf("%w: state %d %s", domain.ErrUpstream, out.State, out.Message)
	}

	invoice := &usecase.ProcessorInvoice{
		ExternalID: out.Result.UUID,
		PaymentURL: out.Result.URL,
	}
	if out.Result.ExpiredAt > 0 {
		t := time.Unix(out.Result.ExpiredAt, 0).UTC()
		invoice.ExpiresAt = &t
	}

	c.logger.Info().
		Str("order_id", req.OrderID).
		Str("external_id", invoice.ExternalID).
		Msg("processor invoice created")

	return invoice, nil
}

type webhookPayload struct {
	OrderID  string `json:"order_id"`
	UUID     string `json:"uuid"`
	Status   string `json:"status"`
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// ParseWebhook checks signature over the raw body before decoding anything in it.
func (c *Client) ParseWebhook(body []byte, signature string) (*usecase.WebhookNotification, error) {
	if !Verify(body, signature, c.cfg.APIKey) {
		return nil, domain.ErrInvalidSignature
	}

	var p webhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode webhook: %w", err)
	}

	note := &usecase.WebhookNotification{
		OrderID:    p.OrderID,
		ExternalID: p.UUID,
		Status:     MapStatus(p.Status),
		RawStatus:  p.Status,
		Currency:   p.Currency,
	}
	if p.Amount != "" {
		amount, err := decimal.NewFromString(p.Amount)
		if err != nil {
			return nil, fmt.Errorf("decode webhook amount: %w", err)
		}
		note.Amount = amount
	}

	return note, nil
}

// Sign computes the processor signature: hex md5 of the base64 body followed by the key.
func Sign(body []byte, apiKey string) string {
	sum := md5.Sum([]byte(base64.StdEncoding.EncodeToString(body) + apiKey))
	return hex.EncodeToString(sum[:])
}

// Verify compares signature with the expected one in constant time.
func Verify(body []byte, signature, apiKey string) bool {
	if signature == "" {
		return false
	}
	expected := Sign(body, apiKey)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.ToLower(signature))) == 1
}

// MapStatus translates a processor payment status. Unknown values map to "".
func MapStatus(raw string) domain.InvoiceStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paid", "paid_over":
		return domain.InvoiceStatusPaid
	case "check", "confirm_check", "process":
		return domain.InvoiceStatusConfirming
	case "cancel":
		return domain.InvoiceStatusExpired
	case "fail", "wrong_amount", "system_fail":
		return domain.InvoiceStatusFailed
	}
	return ""
}
