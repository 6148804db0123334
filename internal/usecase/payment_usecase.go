package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
)

// PaymentUseCase creates crypto top-up invoices and applies processor callbacks.
type PaymentUseCase struct {
	txManager      TransactionManager
	invoiceRepo    InvoiceRepository
	outboxRepo     OutboxRepository
	wallet         *WalletUseCase
	processor      PaymentProcessor
	orderIDs       IDGenerator
	idGen          IDGenerator
	retrier        Retrier
	clock          Clock
	lifetime       time.Duration
	requestTimeout time.Duration
	logger         zerolog.Logger
}

// NewPaymentUseCase creates a new PaymentUseCase. orderIDs mints invoice order ids.
func NewPaymentUseCase(
	txManager TransactionManager,
	invoiceRepo InvoiceRepository,
	outboxRepo OutboxRepository,
	wallet *WalletUseCase,
	processor PaymentProcessor,
	orderIDs IDGenerator,
	idGen IDGenerator,
	retrier Retrier,
	logger zerolog.Logger,
) *PaymentUseCase {
	if retrier == nil {
		retrier = noRetry{}
	}

	return &PaymentUseCase{
		txManager:      txManager,
		invoiceRepo:    invoiceRepo,
		outboxRepo:     outboxRepo,
		wallet:         wallet,
		processor:      processor,
		orderIDs:       orderIDs,
		idGen:          idGen,
		retrier:        retrier,
		clock:          SystemClock,
		lifetime:       domain.InvoiceLifetime,
		requestTimeout: DefaultInvoiceTimeout,
		logger:         logger.With().Str("component", "payments").Logger(),
	}
}

// WithClock replaces the wall clock, for tests.
func (uc *PaymentUseCase) WithClock(c Clock) *PaymentUseCase {
	uc.clock = c
	return uc
}

// WithLimits overrides invoice lifetime and the processor call timeout. Zero keeps the default.
func (uc *PaymentUseCase) WithLimits(lifetime, requestTimeout time.Duration) *PaymentUseCase {
	if lifetime > 0 {
		uc.lifetime = lifetime
	}
	if requestTimeout > 0 {
		uc.requestTimeout = requestTimeout
	}
	return uc
}

// CreateInvoiceInput represents a top-up request.
type CreateInvoiceInput struct {
	UserID       string
	Amount       decimal.Decimal
	Currency     domain.Currency
	TargetCrypto string
}

// CreateInvoice opens an invoice with the processor and stores it only once accepted.
func (uc *PaymentUseCase) CreateInvoice(ctx context.Context, input CreateInvoiceInput) (*domain.Invoice, error) {
	if err := domain.ValidateAmount(input.Amount); err != nil {
		return nil, err
	}
	if !input.Currency.IsValid() {
		return nil, domain.ErrInvalidCurrency
	}

	target, err := domain.ValidateCryptoTarget(input.TargetCrypto)
	if err != nil {
		return nil, err
	}

	orderID := uc.orderIDs.Generate()

	callCtx, cancel := context.WithTimeout(ctx, uc.requestTimeout)
	accepted, err := uc.processor.CreateInvoice(callCtx, ProcessorInvoiceRequest{
		OrderID:      orderID,
		Amount:       input.Amount,
		Currency:     input.Currency,
		TargetCrypto: target,
		Lifetime:     uc.lifetime,
	})
	cancel()
	if err != nil {
		uc.logger.Error().Err(err).Str("order_id", orderID).Msg("processor rejected invoice")
		if errors.Is(err, domain.ErrUpstream) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}

	now := uc.clock.Now()
	expiresAt := now.Add(uc.lifetime)
	if accepted.ExpiresAt != nil && accepted.ExpiresAt.Before(expiresAt) {
		expiresAt = accepted.ExpiresAt.UTC()
	}

	invoice := &domain.Invoice{
		OrderID:           orderID,
		UserID:            input.UserID,
		Amount:            input.Amount,
		Currency:          input.Currency,
		TargetCrypto:      target,
		ExternalInvoiceID: accepted.ExternalID,
		PaymentURL:        accepted.PaymentURL,
		Status:            domain.InvoiceStatusCreated,
		CreatedAt:         now,
		UpdatedAt:         now,
		ExpiresAt:         expiresAt,
	}

	err = runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		return uc.invoiceRepo.Create(ctx, tx, invoice)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("order_id", orderID).
		Str("user_id", input.UserID).
		Str("amount", input.Amount.StringFixed(domain.MoneyScale)).
		Str("currency", string(input.Currency)).
		Str("target", target).
		Msg("invoice created")

	return invoice, nil
}

// HandleWebhook authenticates a processor callback and applies it. A paid callback
// credits the stored invoice amount exactly once; repeats are acknowledged without effect.
func (uc *PaymentUseCase) HandleWebhook(ctx context.Context, body []byte, signature string) (*domain.Invoice, error) {
	note, err := uc.processor.ParseWebhook(body, signature)
	if err != nil {
		uc.logger.Warn().Err(err).Msg("webhook rejected")
		return nil, err
	}

	orderID := strings.TrimSpace(note.OrderID)
	if orderID == "" {
		return nil, domain.ErrUnknownOrder
	}

	var (
		invoice  *domain.Invoice
		credited bool
	)

	err = runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		credited = false

		inv, err := uc.invoiceRepo.GetByOrderIDForUpdate(ctx, tx, orderID)
		if errors.Is(err, domain.ErrInvoiceNotFound) {
			return domain.ErrUnknownOrder
		}
		if err != nil {
			return err
		}
		invoice = inv

		if inv.Status == domain.InvoiceStatusPaid || inv.Status == domain.InvoiceStatusFailed {
			return nil
		}

		now := uc.clock.Now()

		if inv.IsExpiredAt(now) {
			if inv.Status == domain.InvoiceStatusExpired {
				return nil
			}
			inv.Status = domain.InvoiceStatusExpired
			inv.UpdatedAt = now
			return uc.invoiceRepo.UpdateStatus(ctx, tx, inv)
		}

		if note.ExternalID != "" && inv.ExternalInvoiceID == "" {
			inv.ExternalInvoiceID = note.ExternalID
		}

		if note.Status != domain.InvoiceStatusPaid {
			if note.Status == inv.Status || !note.Status.IsValidTransitionFrom(inv.Status) {
				return nil
			}
			inv.Status = note.Status
			inv.UpdatedAt = now
			return uc.invoiceRepo.UpdateStatus(ctx, tx, inv)
		}

		uc.warnOnSettlementMismatch(inv, note)

		paidAt := now
		inv.Status = domain.InvoiceStatusPaid
		inv.PaidAt = &paidAt
		inv.UpdatedAt = now
		if err := uc.invoiceRepo.UpdateStatus(ctx, tx, inv); err != nil {
			return err
		}

		_, _, err = uc.wallet.CreditTx(ctx, tx, Posting{
			UserID:      inv.UserID,
			Amount:      inv.Amount,
			Currency:    inv.Currency,
			Type:        domain.EntryTypeDeposit,
			Description: "Crypto top-up via " + inv.TargetCrypto,
			Reference:   inv.OrderID,
		})
		if err != nil {
			return err
		}

		credited = true

		return writeEvent(ctx, tx, uc.outboxRepo, uc.idGen, domain.AggregateTypeInvoice, inv.OrderID, domain.EventTypeInvoicePaid, map[string]any{
			"order_id": inv.OrderID,
			"user_id":  inv.UserID,
			"amount":   inv.Amount.StringFixed(domain.MoneyScale),
			"currency": string(inv.Currency),
			"crypto":   inv.TargetCrypto,
		}, now)
	})
	if errors.Is(err, domain.ErrUnknownOrder) {
		uc.logger.Warn().Str("order_id", orderID).Msg("webhook for unknown order")
		return nil, err
	}
	if err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("order_id", orderID).
		Str("status", string(invoice.Status)).
		Str("callback_status", note.RawStatus).
		Bool("credited", credited).
		Msg("webhook applied")

	return invoice, nil
}

// warnOnSettlementMismatch logs when the processor reports a different amount or
// currency than the stored invoice. The stored invoice is what gets credited.
func (uc *PaymentUseCase) warnOnSettlementMismatch(inv *domain.Invoice, note *WebhookNotification) {
	amountDiffers := !note.Amount.IsZero() && !note.Amount.Equal(inv.Amount)
	currencyDiffers := note.Currency != "" && !strings.EqualFold(note.Currency, string(inv.Currency))
	if !amountDiffers && !currencyDiffers {
		return
	}

	uc.logger.Warn().
		Str("order_id", inv.OrderID).
		Str("invoice_amount", inv.Amount.StringFixed(domain.MoneyScale)).
		Str("invoice_currency", string(inv.Currency)).
		Str("callback_amount", note.Amount.String()).
		Str("callback_currency", note.Currency).
		Msg("webhook settlement differs from invoice")
}

// GetInvoice returns an invoice owned by userID, reporting it expired once its lifetime passed.
func (uc *PaymentUseCase) GetInvoice(ctx context.Context, userID, orderID string) (*domain.Invoice, error) {
	inv, err := uc.invoiceRepo.GetByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if userID != "" && inv.UserID != userID {
		return nil, domain.ErrInvoiceNotFound
	}

	if inv.Status != domain.InvoiceStatusExpired && inv.IsExpiredAt(uc.clock.Now()) {
		inv.Status = domain.InvoiceStatusExpired
	}

	return inv, nil
}
