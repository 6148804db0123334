package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
)

// TicketUseCase handles ticket issuance, transfer and venue redemption.
type TicketUseCase struct {
	txManager  TransactionManager
	ticketRepo TicketRepository
	userRepo   UserRepository
	outboxRepo OutboxRepository
	idGen      IDGenerator
	tokens     TokenGenerator
	retrier    Retrier
	clock      Clock
	logger     zerolog.Logger
}

// NewTicketUseCase creates a new TicketUseCase.
func NewTicketUseCase(
	txManager TransactionManager,
	ticketRepo TicketRepository,
	userRepo UserRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	tokens TokenGenerator,
	retrier Retrier,
	logger zerolog.Logger,
) *TicketUseCase {
	if retrier == nil {
		retrier = noRetry{}
	}

	return &TicketUseCase{
		txManager:  txManager,
		ticketRepo: ticketRepo,
		userRepo:   userRepo,
		outboxRepo: outboxRepo,
		idGen:      idGen,
		tokens:     tokens,
		retrier:    retrier,
		clock:      SystemClock,
		logger:     logger.With().Str("component", "tickets").Logger(),
	}
}

// WithClock replaces the wall clock, for tests.
func (uc *TicketUseCase) WithClock(c Clock) *TicketUseCase {
	uc.clock = c
	return uc
}

// IssueInput represents one ticket to issue.
type IssueInput struct {
	OwnerUserID  string
	PurchaseID   string
	Event        domain.EventSnapshot
	Price        decimal.Decimal
	Currency     domain.Currency
	SeatNumber   string
	AttendeeName string
}

// Issue creates an active ticket with a fresh QR code.
func (uc *TicketUseCase) Issue(ctx context.Context, input IssueInput) (*domain.Ticket, error) {
	var ticket *domain.Ticket

	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		ticket, err = uc.IssueTx(ctx, tx, input)
		return err
	})
	if err != nil {
		return nil, err
	}

	return ticket, nil
}

// IssueTx issues a ticket inside a caller-owned transaction.
func (uc *TicketUseCase) IssueTx(ctx context.Context, tx Transaction, input IssueInput) (*domain.Ticket, error) {
	if err := domain.ValidateEventSnapshot(input.Event); err != nil {
		return nil, err
	}
	if !input.Currency.IsValid() {
		return nil, domain.ErrInvalidCurrency
	}
	if input.Price.IsNegative() {
		return nil, domain.ErrInvalidAmount
	}

	qr, err := uc.tokens.Generate()
	if err != nil {
		return nil, err
	}

	now := uc.clock.Now()
	ticket := &domain.Ticket{
		ID:           uc.idGen.Generate(),
		OwnerUserID:  input.OwnerUserID,
		PurchaseID:   input.PurchaseID,
		Event:        input.Event,
		QRCode:       qr,
		Price:        input.Price,
		Currency:     input.Currency,
		SeatNumber:   input.SeatNumber,
		AttendeeName: strings.TrimSpace(input.AttendeeName),
		Status:       domain.TicketStatusActive,
		PurchaseDate: now,
	}

	if err := uc.ticketRepo.Create(ctx, tx, ticket); err != nil {
		return nil, err
	}

	err = writeEvent(ctx, tx, uc.outboxRepo, uc.idGen, domain.AggregateTypeTicket, ticket.ID, domain.EventTypeTicketIssued, map[string]any{
		"ticket_id":   ticket.ID,
		"owner_id":    ticket.OwnerUserID,
		"purchase_id": ticket.PurchaseID,
		"event_id":    ticket.Event.EventID,
	}, now)
	if err != nil {
		return nil, err
	}

	return ticket, nil
}

// TransferTicketInput represents a ticket hand-over.
type TransferTicketInput struct {
	TicketID     string
	FromUserID   string
	Recipient    string
	AttendeeName string
}

// Transfer retires the ticket and issues a new one with a new QR code to the recipient,
// given by user id or email.
func (uc *TicketUseCase) Transfer(ctx context.Context, input TransferTicketInput) (*domain.Ticket, error) {
	recipientID, err := resolveUserID(ctx, uc.userRepo, input.Recipient)
	if err != nil {
		return nil, err
	}

	if recipientID == input.FromUserID {
		return nil, domain.ErrSameUser
	}

	var issued *domain.Ticket

	err = runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		original, err := uc.ticketRepo.GetByIDForUpdate(ctx, tx, input.TicketID)
		if err != nil {
			return err
		}

		if err := original.ValidateTransfer(input.FromUserID); err != nil {
			return err
		}

		now := uc.clock.Now()
		if err := uc.ticketRepo.MarkTransferred(ctx, tx, original.ID, now); err != nil {
			return err
		}

		qr, err := uc.tokens.Generate()
		if err != nil {
			return err
		}

		attendee := strings.TrimSpace(input.AttendeeName)
		if attendee == "" {
			attendee = original.AttendeeName
		}

		from := original.OwnerUserID
		transferDate := now
		issued = &domain.Ticket{
			ID:              uc.idGen.Generate(),
			OwnerUserID:     recipientID,
			PurchaseID:      original.PurchaseID,
			Event:           original.Event,
			QRCode:          qr,
			Price:           original.Price,
			Currency:        original.Currency,
			SeatNumber:      original.SeatNumber,
			AttendeeName:    attendee,
			Status:          domain.TicketStatusActive,
			PurchaseDate:    original.PurchaseDate,
			TransferredFrom: &from,
			TransferDate:    &transferDate,
		}

		if err := uc.ticketRepo.Create(ctx, tx, issued); err != nil {
			return err
		}

		return writeEvent(ctx, tx, uc.outboxRepo, uc.idGen, domain.AggregateTypeTicket, original.ID, domain.EventTypeTicketTransferred, map[string]any{
			"ticket_id":     original.ID,
			"new_ticket_id": issued.ID,
			"from_user_id":  from,
			"to_user_id":    recipientID,
		}, now)
	})
	if err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("ticket_id", input.TicketID).
		Str("new_ticket_id", issued.ID).
		Str("to_user_id", recipientID).
		Msg("ticket transferred")

	return issued, nil
}

// ValidateAndRedeem marks the ticket carrying qrCode as used. Exactly one concurrent caller succeeds.
func (uc *TicketUseCase) ValidateAndRedeem(ctx context.Context, qrCode string) (*domain.Ticket, error) {
	qrCode = strings.TrimSpace(qrCode)
	if qrCode == "" {
		return nil, domain.ErrTicketNotFound
	}

	var ticket *domain.Ticket

	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		now := uc.clock.Now()

		var err error
		ticket, err = uc.ticketRepo.MarkUsed(ctx, tx, qrCode, now)
		if err != nil {
			return err
		}

		return writeEvent(ctx, tx, uc.outboxRepo, uc.idGen, domain.AggregateTypeTicket, ticket.ID, domain.EventTypeTicketRedeemed, map[string]any{
			"ticket_id": ticket.ID,
			"owner_id":  ticket.OwnerUserID,
			"event_id":  ticket.Event.EventID,
		}, now)
	})
	if errors.Is(err, domain.ErrTicketNotFound) {
		return nil, uc.explainRedeemFailure(ctx, qrCode)
	}
	if err != nil {
		return nil, err
	}

	return ticket, nil
}

func (uc *TicketUseCase) explainRedeemFailure(ctx context.Context, qrCode string) error {
	ticket, err := uc.ticketRepo.GetByQRCode(ctx, qrCode)
	if err != nil {
		return err
	}

	if err := ticket.RedeemError(); err != nil {
		return err
	}

	return domain.ErrInvalidState
}

// GetTicket returns a ticket owned by userID.
func (uc *TicketUseCase) GetTicket(ctx context.Context, userID, ticketID string) (*domain.Ticket, error) {
	ticket, err := uc.ticketRepo.GetByID(ctx, ticketID)
	if err != nil {
		return nil, err
	}

	if ticket.OwnerUserID != userID {
		return nil, domain.ErrTicketNotFound
	}

	return ticket, nil
}

// ListByOwner lists a user's tickets, optionally filtered by status.
func (uc *TicketUseCase) ListByOwner(ctx context.Context, userID string, status *domain.TicketStatus) ([]*domain.Ticket, error) {
	if status != nil && !status.IsValid() {
		return nil, domain.ErrInvalidState
	}

	return uc.ticketRepo.ListByOwner(ctx, userID, status)
}
