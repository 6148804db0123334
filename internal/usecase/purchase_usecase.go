package usecase

import (
	"context"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
)

// DefaultSeat is assigned when a purchase does not name seats.
const DefaultSeat = "GA"

// PurchaseUseCase coordinates the wallet debit and ticket issuance of one checkout.
type PurchaseUseCase struct {
	txManager    TransactionManager
	purchaseRepo PurchaseRepository
	ticketRepo   TicketRepository
	outboxRepo   OutboxRepository
	wallet       *WalletUseCase
	tickets      *TicketUseCase
	idGen        IDGenerator
	retrier      Retrier
	clock        Clock
	logger       zerolog.Logger
}

// NewPurchaseUseCase creates a new PurchaseUseCase.
func NewPurchaseUseCase(
	txManager TransactionManager,
	purchaseRepo PurchaseRepository,
	ticketRepo TicketRepository,
	outboxRepo OutboxRepository,
	wallet *WalletUseCase,
	tickets *TicketUseCase,
	idGen IDGenerator,
	retrier Retrier,
	logger zerolog.Logger,
) *PurchaseUseCase {
	if retrier == nil {
		retrier = noRetry{}
	}

	return &PurchaseUseCase{
		txManager:    txManager,
		purchaseRepo: purchaseRepo,
		ticketRepo:   ticketRepo,
		outboxRepo:   outboxRepo,
		wallet:       wallet,
		tickets:      tickets,
		idGen:        idGen,
		retrier:      retrier,
		clock:        SystemClock,
		logger:       logger.With().Str("component", "purchases").Logger(),
	}
}

// WithClock replaces the wall clock, for tests.
func (uc *PurchaseUseCase) WithClock(c Clock) *PurchaseUseCase {
	uc.clock = c
	return uc
}

// PurchaseInput represents a checkout paid from the internal balance.
type PurchaseInput struct {
	UserID    string
	Event     domain.EventSnapshot
	Price     decimal.Decimal
	Quantity  int
	Currency  domain.Currency
	Buyer     domain.BuyerInfo
	Attendees []string
	Seats     []string
	// Fee is resolved by the caller and added once per purchase.
	Fee decimal.Decimal
	// EventRemaining caps quantity when positive.
	EventRemaining int
}

// PurchaseResult is a completed checkout.
type PurchaseResult struct {
	Purchase *domain.Purchase
	Tickets  []*domain.Ticket
	Balance  *domain.UserBalance
}

func (in PurchaseInput) validate() error {
	if err := domain.ValidateQuantity(in.Quantity, in.EventRemaining); err != nil {
		return err
	}
	if err := domain.ValidateAttendees(in.Attendees, in.Quantity); err != nil {
		return err
	}
	if err := domain.ValidateEventSnapshot(in.Event); err != nil {
		return err
	}
	if !in.Currency.IsValid() {
		return domain.ErrInvalidCurrency
	}
	if err := domain.ValidateAmount(in.Price); err != nil {
		return err
	}
	if in.Fee.IsNegative() || !domain.HasMoneyScale(in.Fee) {
		return domain.ErrInvalidAmount
	}
	if len(in.Seats) > 0 && len(in.Seats) != in.Quantity {
		return domain.ErrInvalidQuantity
	}
	return nil
}

// Purchase debits price*quantity+fee and issues quantity tickets. Either the tickets
// exist and the debit stands, or the debit is refunded.
func (uc *PurchaseUseCase) Purchase(ctx context.Context, input PurchaseInput) (*PurchaseResult, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	purchase, balance, err := uc.debit(ctx, input)
	if err != nil {
		return nil, err
	}

	tickets, err := uc.issue(ctx, purchase, input)
	if err != nil {
		uc.logger.Error().Err(err).
			Str("purchase_id", purchase.ID).
			Str("user_id", purchase.UserID).
			Msg("ticket issuance failed, compensating")

		compCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), CompensationTimeout)
		defer cancel()

		if _, cerr := uc.Compensate(compCtx, purchase.ID, err.Error()); cerr != nil {
			uc.logger.Error().Err(cerr).
				Str("purchase_id", purchase.ID).
				Msg("compensation failed, left for recovery")
		}

		return nil, fmt.Errorf("issue tickets: %w", err)
	}

	purchase.Status = domain.PurchaseStatusCompleted

	uc.logger.Info().
		Str("purchase_id", purchase.ID).
		Str("user_id", purchase.UserID).
		Int("quantity", purchase.Quantity).
		Str("total", purchase.Total.StringFixed(domain.MoneyScale)).
		Str("currency", string(purchase.Currency)).
		Msg("purchase completed")

	return &PurchaseResult{Purchase: purchase, Tickets: tickets, Balance: balance}, nil
}

func (uc *PurchaseUseCase) debit(ctx context.Context, input PurchaseInput) (*domain.Purchase, *domain.UserBalance, error) {
	total := domain.PurchaseTotal(input.Price, input.Quantity, input.Fee)
	purchaseID := uc.idGen.Generate()

	var (
		purchase *domain.Purchase
		balance  *domain.UserBalance
	)

	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		b, entry, err := uc.wallet.DebitTx(ctx, tx, Posting{
			UserID:      input.UserID,
			Amount:      total,
			Currency:    input.Currency,
			Type:        domain.EntryTypePurchase,
			Description: purchaseDescription(input.Event.Title, input.Quantity),
			Reference:   purchaseID,
		})
		if err != nil {
			return err
		}

		now := uc.clock.Now()
		p := &domain.Purchase{
			ID:           purchaseID,
			UserID:       input.UserID,
			EventID:      input.Event.EventID,
			Quantity:     input.Quantity,
			UnitPrice:    input.Price,
			Fee:          input.Fee,
			Total:        total,
			Currency:     input.Currency,
			Buyer:        input.Buyer,
			Status:       domain.PurchaseStatusDebited,
			DebitEntryID: entry.ID,
			CreatedAt:    now,
			UpdatedAt:    now,
		}

		if err := uc.purchaseRepo.Create(ctx, tx, p); err != nil {
			return err
		}

		purchase, balance = p, b
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	return purchase, balance, nil
}

func (uc *PurchaseUseCase) issue(ctx context.Context, purchase *domain.Purchase, input PurchaseInput) ([]*domain.Ticket, error) {
	var tickets []*domain.Ticket

	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		tickets = make([]*domain.Ticket, 0, input.Quantity)

		p, err := uc.purchaseRepo.GetByIDForUpdate(ctx, tx, purchase.ID)
		if err != nil {
			return err
		}
		if p.Status != domain.PurchaseStatusDebited {
			return domain.ErrInvalidState
		}

		for i := 0; i < input.Quantity; i++ {
			seat := DefaultSeat
			if len(input.Seats) > 0 {
				seat = input.Seats[i]
			}

			t, err := uc.tickets.IssueTx(ctx, tx, IssueInput{
				OwnerUserID:  input.UserID,
				PurchaseID:   purchase.ID,
				Event:        input.Event,
				Price:        input.Price,
				Currency:     input.Currency,
				SeatNumber:   seat,
				AttendeeName: input.Attendees[i],
			})
			if err != nil {
				return err
			}
			tickets = append(tickets, t)
		}

		return uc.finish(ctx, tx, purchase, domain.PurchaseStatusCompleted, "")
	})
	if err != nil {
		return nil, err
	}

	return tickets, nil
}

// Compensate refunds a debited purchase and marks it compensated. Purchases already
// completed or compensated are returned unchanged.
func (uc *PurchaseUseCase) Compensate(ctx context.Context, purchaseID, cause string) (*domain.Purchase, error) {
	var purchase *domain.Purchase

	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		p, err := uc.purchaseRepo.GetByIDForUpdate(ctx, tx, purchaseID)
		if err != nil {
			return err
		}

		purchase = p
		if p.Status != domain.PurchaseStatusDebited {
			return nil
		}

		_, _, err = uc.wallet.CreditTx(ctx, tx, Posting{
			UserID:      p.UserID,
			Amount:      p.Total,
			Currency:    p.Currency,
			Type:        domain.EntryTypePurchase,
			Description: "Refund for purchase " + p.ID,
			Reference:   p.ID,
		})
		if err != nil {
			return err
		}

		return uc.finish(ctx, tx, p, domain.PurchaseStatusCompensated, truncate(cause, domain.MaxDescriptionLength))
	})
	if err != nil {
		return nil, err
	}

	return purchase, nil
}

func (uc *PurchaseUseCase) finish(ctx context.Context, tx Transaction, p *domain.Purchase, status domain.PurchaseStatus, cause string) error {
	now := uc.clock.Now()

	if err := uc.purchaseRepo.UpdateStatus(ctx, tx, p.ID, status, cause, now); err != nil {
		return err
	}

	p.Status = status
	p.FailureCause = cause
	p.UpdatedAt = now

	eventType := domain.EventTypePurchaseCompleted
	if status == domain.PurchaseStatusCompensated {
		eventType = domain.EventTypePurchaseCompensated
	}

	return writeEvent(ctx, tx, uc.outboxRepo, uc.idGen, domain.AggregateTypePurchase, p.ID, eventType, map[string]any{
		"purchase_id": p.ID,
		"user_id":     p.UserID,
		"event_id":    p.EventID,
		"quantity":    p.Quantity,
		"total":       p.Total.StringFixed(domain.MoneyScale),
		"currency":    string(p.Currency),
		"buyer_email": p.Buyer.Email,
	}, now)
}

// RecoveryStats summarizes one sweep over stuck purchases.
type RecoveryStats struct {
	Scanned     int
	Completed   int
	Compensated int
	Skipped     int
}

// RecoverStale resolves purchases left debited for longer than grace: those whose
// tickets were committed are completed, the rest are refunded.
func (uc *PurchaseUseCase) RecoverStale(ctx context.Context, grace time.Duration, limit int) (RecoveryStats, error) {
	var stats RecoveryStats

	stale, err := uc.purchaseRepo.ListStale(ctx, domain.PurchaseStatusDebited, uc.clock.Now().Add(-grace), limit)
	if err != nil {
		return stats, err
	}

	for _, p := range stale {
		stats.Scanned++

		tickets, err := uc.ticketRepo.ListByPurchase(ctx, p.ID)
		if err != nil {
			return stats, err
		}

		switch {
		case len(tickets) == 0:
			if _, err := uc.Compensate(ctx, p.ID, "recovered: no tickets issued"); err != nil {
				return stats, err
			}
			stats.Compensated++
		case len(tickets) == p.Quantity:
			if err := uc.complete(ctx, p.ID); err != nil {
				return stats, err
			}
			stats.Completed++
		default:
			uc.logger.Error().
				Str("purchase_id", p.ID).
				Int("tickets", len(tickets)).
				Int("quantity", p.Quantity).
				Msg("purchase has partial tickets, manual review required")
			stats.Skipped++
		}
	}

	return stats, nil
}

func (uc *PurchaseUseCase) complete(ctx context.Context, purchaseID string) error {
	return runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		p, err := uc.purchaseRepo.GetByIDForUpdate(ctx, tx, purchaseID)
		if err != nil {
			return err
		}
		if p.Status != domain.PurchaseStatusDebited {
			return nil
		}
		return uc.finish(ctx, tx, p, domain.PurchaseStatusCompleted, "")
	})
}

// GetPurchase returns a purchase owned by userID.
func (uc *PurchaseUseCase) GetPurchase(ctx context.Context, userID, purchaseID string) (*domain.Purchase, error) {
	p, err := uc.purchaseRepo.GetByID(ctx, purchaseID)
	if err != nil {
		return nil, err
	}
	if p.UserID != userID {
		return nil, domain.ErrPurchaseNotFound
	}
	return p, nil
}

func purchaseDescription(title string, quantity int) string {
	return truncate(fmt.Sprintf("Ticket purchase: %s x%d", title, quantity), domain.MaxDescriptionLength)
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
