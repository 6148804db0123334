package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/fx"
)

// WalletUseCase owns per-user multi-currency balances and their history.
type WalletUseCase struct {
	txManager   TransactionManager
	balanceRepo BalanceRepository
	entryRepo   EntryRepository
	outboxRepo  OutboxRepository
	idGen       IDGenerator
	retrier     Retrier
	converter   *fx.Converter
	clock       Clock
	logger      zerolog.Logger
}

// NewWalletUseCase creates a new WalletUseCase.
func NewWalletUseCase(
	txManager TransactionManager,
	balanceRepo BalanceRepository,
	entryRepo EntryRepository,
	outboxRepo OutboxRepository,
	idGen IDGenerator,
	retrier Retrier,
	converter *fx.Converter,
	logger zerolog.Logger,
) *WalletUseCase {
	if retrier == nil {
		retrier = noRetry{}
	}

	return &WalletUseCase{
		txManager:   txManager,
		balanceRepo: balanceRepo,
		entryRepo:   entryRepo,
		outboxRepo:  outboxRepo,
		idGen:       idGen,
		retrier:     retrier,
		converter:   converter,
		clock:       SystemClock,
		logger:      logger.With().Str("component", "wallet").Logger(),
	}
}

// WithClock replaces the wall clock, for tests.
func (uc *WalletUseCase) WithClock(c Clock) *WalletUseCase {
	uc.clock = c
	return uc
}

// Posting is one signed change to one currency bucket.
type Posting struct {
	UserID      string
	Amount      decimal.Decimal
	Currency    domain.Currency
	Type        domain.EntryType
	Description string
	Reference   string
}

func (p Posting) validate() error {
	if err := domain.ValidateAmount(p.Amount); err != nil {
		return err
	}
	if !p.Currency.IsValid() {
		return domain.ErrInvalidCurrency
	}
	if !p.Type.IsValid() {
		return domain.ErrInvalidState
	}
	return domain.ValidateDescription(p.Description)
}

// Credit adds a positive amount to one bucket.
func (uc *WalletUseCase) Credit(ctx context.Context, p Posting) (*domain.UserBalance, *domain.Entry, error) {
	if err := p.validate(); err != nil {
		return nil, nil, err
	}

	var (
		balance *domain.UserBalance
		entry   *domain.Entry
	)

	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		balance, entry, err = uc.CreditTx(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return balance, entry, nil
}

// Debit removes a positive amount from one bucket. The bucket never goes negative.
func (uc *WalletUseCase) Debit(ctx context.Context, p Posting) (*domain.UserBalance, *domain.Entry, error) {
	if err := p.validate(); err != nil {
		return nil, nil, err
	}

	var (
		balance *domain.UserBalance
		entry   *domain.Entry
	)

	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		balance, entry, err = uc.DebitTx(ctx, tx, p)
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	return balance, entry, nil
}

// CreditTx credits inside a caller-owned transaction.
func (uc *WalletUseCase) CreditTx(ctx context.Context, tx Transaction, p Posting) (*domain.UserBalance, *domain.Entry, error) {
	return uc.apply(ctx, tx, p, false)
}

// DebitTx debits inside a caller-owned transaction.
func (uc *WalletUseCase) DebitTx(ctx context.Context, tx Transaction, p Posting) (*domain.UserBalance, *domain.Entry, error) {
	return uc.apply(ctx, tx, p, true)
}

func (uc *WalletUseCase) apply(ctx context.Context, tx Transaction, p Posting, debit bool) (*domain.UserBalance, *domain.Entry, error) {
	if err := p.validate(); err != nil {
		return nil, nil, err
	}

	now := uc.clock.Now()

	balance, err := uc.lock(ctx, tx, p.UserID, now)
	if err != nil {
		return nil, nil, err
	}

	amount := p.Amount
	eventType := domain.EventTypeWalletCredited

	var next decimal.Decimal
	if debit {
		if err := balance.ValidateDebit(p.Amount, p.Currency); err != nil {
			return nil, nil, err
		}
		next = balance.ApplyDebit(p.Amount, p.Currency)
		amount = p.Amount.Neg()
		eventType = domain.EventTypeWalletDebited
	} else {
		next = balance.ApplyCredit(p.Amount, p.Currency)
	}

	balance.Amounts[p.Currency] = next
	balance.Version++
	balance.UpdatedAt = now

	if err := uc.balanceRepo.Save(ctx, tx, balance); err != nil {
		return nil, nil, err
	}

	entry := &domain.Entry{
		ID:           uc.idGen.Generate(),
		UserID:       p.UserID,
		Type:         p.Type,
		Currency:     p.Currency,
		Description:  p.Description,
		Reference:    p.Reference,
		Amount:       amount,
		BalanceAfter: next,
		CreatedAt:    now,
	}

	if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
		return nil, nil, err
	}

	err = writeEvent(ctx, tx, uc.outboxRepo, uc.idGen, domain.AggregateTypeWallet, p.UserID, eventType, map[string]any{
		"user_id":       p.UserID,
		"entry_id":      entry.ID,
		"type":          string(p.Type),
		"amount":        amount.StringFixed(domain.MoneyScale),
		"currency":      string(p.Currency),
		"balance_after": next.StringFixed(domain.MoneyScale),
		"reference":     p.Reference,
	}, now)
	if err != nil {
		return nil, nil, err
	}

	return balance.Clone(), entry, nil
}

// lock takes the wallet row lock and folds any legacy balance into the preferred bucket.
func (uc *WalletUseCase) lock(ctx context.Context, tx Transaction, userID string, now time.Time) (*domain.UserBalance, error) {
	balance, legacy, err := uc.balanceRepo.GetForUpdate(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	balance.Normalize()

	if legacy == nil || !legacy.Amount.IsPositive() {
		return balance, nil
	}

	currency := balance.PreferredCurrency
	amount := domain.RoundMoney(legacy.Amount)
	next := balance.ApplyCredit(amount, currency)
	balance.Amounts[currency] = next
	balance.Version++
	balance.UpdatedAt = now

	if err := uc.balanceRepo.Save(ctx, tx, balance); err != nil {
		return nil, err
	}

	entry := &domain.Entry{
		ID:           uc.idGen.Generate(),
		UserID:       userID,
		Type:         domain.EntryTypeDeposit,
		Currency:     currency,
		Description:  domain.LegacyMigrationDescription,
		Amount:       amount,
		BalanceAfter: next,
		CreatedAt:    now,
	}
	if err := uc.entryRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}

	uc.logger.Info().
		Str("user_id", userID).
		Str("amount", amount.String()).
		Str("currency", string(currency)).
		Msg("migrated legacy balance")

	err = writeEvent(ctx, tx, uc.outboxRepo, uc.idGen, domain.AggregateTypeWallet, userID, domain.EventTypeLegacyBalanceMigrated, map[string]any{
		"user_id":  userID,
		"entry_id": entry.ID,
		"amount":   amount.StringFixed(domain.MoneyScale),
		"currency": string(currency),
	}, now)
	if err != nil {
		return nil, err
	}

	return balance, nil
}

// TransferInput represents a wallet-to-wallet transfer.
type TransferInput struct {
	FromUserID  string
	ToUserID    string
	Amount      decimal.Decimal
	Currency    domain.Currency
	Description string
}

// TransferResult holds both sides of a transfer.
type TransferResult struct {
	FromBalance *domain.UserBalance
	OutEntry    *domain.Entry
	InEntry     *domain.Entry
}

// TransferInternal moves funds between two wallets in one transaction, same currency only.
func (uc *WalletUseCase) TransferInternal(ctx context.Context, input TransferInput) (*TransferResult, error) {
	if input.FromUserID == input.ToUserID {
		return nil, domain.ErrSameUser
	}

	if input.Description == "" {
		input.Description = "wallet transfer"
	}

	out := Posting{
		UserID:      input.FromUserID,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Type:        domain.EntryTypeTransferOut,
		Description: input.Description,
		Reference:   input.ToUserID,
	}
	in := Posting{
		UserID:      input.ToUserID,
		Amount:      input.Amount,
		Currency:    input.Currency,
		Type:        domain.EntryTypeTransferIn,
		Description: input.Description,
		Reference:   input.FromUserID,
	}

	if err := out.validate(); err != nil {
		return nil, err
	}

	// Sorted lock order prevents deadlocks between opposite transfers.
	ids := []string{input.FromUserID, input.ToUserID}
	sort.Strings(ids)

	var result TransferResult

	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		now := uc.clock.Now()
		for _, id := range ids {
			if _, err := uc.lock(ctx, tx, id, now); err != nil {
				return err
			}
		}

		balance, outEntry, err := uc.DebitTx(ctx, tx, out)
		if err != nil {
			return err
		}

		_, inEntry, err := uc.CreditTx(ctx, tx, in)
		if err != nil {
			return err
		}

		result = TransferResult{FromBalance: balance, OutEntry: outEntry, InEntry: inEntry}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// GetBalance returns the wallet, creating it on first activity.
func (uc *WalletUseCase) GetBalance(ctx context.Context, userID string) (*domain.UserBalance, error) {
	balance, legacy, err := uc.balanceRepo.Get(ctx, userID)
	switch {
	case err == nil && (legacy == nil || !legacy.Amount.IsPositive()):
		balance.Normalize()
		return balance, nil
	case err != nil && !errors.Is(err, domain.ErrBalanceNotFound):
		return nil, err
	}

	err = runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		var err error
		balance, err = uc.lock(ctx, tx, userID, uc.clock.Now())
		return err
	})
	if err != nil {
		return nil, err
	}

	return balance, nil
}

// GetHistory returns entries most recent first.
func (uc *WalletUseCase) GetHistory(ctx context.Context, userID string, limit, offset int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}
	if offset < 0 {
		offset = 0
	}

	return uc.entryRepo.ListByUser(ctx, userID, limit, offset)
}

// UpdatePreferredCurrency changes the currency used for summaries and legacy migration.
func (uc *WalletUseCase) UpdatePreferredCurrency(ctx context.Context, userID string, currency domain.Currency) (*domain.UserBalance, error) {
	if !currency.IsValid() {
		return nil, domain.ErrInvalidCurrency
	}

	var balance *domain.UserBalance

	err := runInTx(ctx, uc.txManager, uc.retrier, func(ctx context.Context, tx Transaction) error {
		now := uc.clock.Now()

		b, err := uc.lock(ctx, tx, userID, now)
		if err != nil {
			return err
		}

		b.PreferredCurrency = currency
		b.Version++
		b.UpdatedAt = now

		if err := uc.balanceRepo.Save(ctx, tx, b); err != nil {
			return err
		}

		balance = b.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	return balance, nil
}

// BalanceSummary is the wallet plus its value in the preferred currency.
type BalanceSummary struct {
	Balance       *domain.UserBalance
	TotalCurrency domain.Currency
	Total         decimal.Decimal
}

// Summary returns the wallet and its total converted to target, or to the preferred currency when target is empty.
func (uc *WalletUseCase) Summary(ctx context.Context, userID string, target domain.Currency) (*BalanceSummary, error) {
	balance, err := uc.GetBalance(ctx, userID)
	if err != nil {
		return nil, err
	}

	if target == "" {
		target = balance.PreferredCurrency
	}

	total, err := uc.converter.TotalIn(balance.Amounts, target)
	if err != nil {
		return nil, err
	}

	return &BalanceSummary{Balance: balance, TotalCurrency: target, Total: total}, nil
}
