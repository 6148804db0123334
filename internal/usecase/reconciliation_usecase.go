package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
)

// ReconciliationUseCase handles balance reconciliation operations
type ReconciliationUseCase struct {
	balanceRepo BalanceRepository
	entryRepo   EntryRepository
	ledgerRepo  LedgerRepository
	clock       Clock
}

// NewReconciliationUseCase creates a new reconciliation use case
func NewReconciliationUseCase(
	balanceRepo BalanceRepository,
	entryRepo EntryRepository,
	ledgerRepo LedgerRepository,
) *ReconciliationUseCase {
	return &ReconciliationUseCase{
		balanceRepo: balanceRepo,
		entryRepo:   entryRepo,
		ledgerRepo:  ledgerRepo,
		clock:       SystemClock,
	}
}

// CurrencyDiff compares one bucket against the sum of its entries.
type CurrencyDiff struct {
	Currency   domain.Currency
	Recorded   decimal.Decimal
	Calculated decimal.Decimal
	Difference decimal.Decimal
}

// ReconciliationResult represents the result of a reconciliation check
type ReconciliationResult struct {
	UserID       string
	Currencies   []CurrencyDiff
	IsReconciled bool
	LastChecked  time.Time
}

// ReconcileUser compares every bucket of a wallet with the sum of that user's entries.
// A pending legacy balance counts as recorded in the preferred currency.
func (uc *ReconciliationUseCase) ReconcileUser(ctx context.Context, userID string) (*ReconciliationResult, error) {
	balance, legacy, err := uc.balanceRepo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	balance.Normalize()

	sums, err := uc.entryRepo.SumByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	result := &ReconciliationResult{
		UserID:       userID,
		IsReconciled: true,
		LastChecked:  uc.clock.Now(),
	}

	for _, c := range domain.SupportedCurrencies {
		recorded := balance.Amount(c)
		calculated := sums[c]
		if legacy != nil && c == balance.PreferredCurrency {
			calculated = calculated.Add(legacy.Amount)
			recorded = recorded.Add(legacy.Amount)
		}

		diff := recorded.Sub(calculated)
		if !diff.IsZero() {
			result.IsReconciled = false
		}

		result.Currencies = append(result.Currencies, CurrencyDiff{
			Currency:   c,
			Recorded:   recorded,
			Calculated: calculated,
			Difference: diff,
		})
	}

	return result, nil
}

// ReconcileAllUsers reconciles every wallet in pages of pageSize.
func (uc *ReconciliationUseCase) ReconcileAllUsers(ctx context.Context, pageSize int) ([]*ReconciliationResult, error) {
	limit, offset, _ := domain.ValidatePagination(pageSize, 0)

	var results []*ReconciliationResult
	for {
		ids, err := uc.balanceRepo.ListUserIDs(ctx, limit, offset)
		if err != nil {
			return nil, err
		}

		for _, id := range ids {
			result, err := uc.ReconcileUser(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("failed to reconcile user %s: %w", id, err)
			}
			results = append(results, result)
		}

		if len(ids) < limit {
			return results, nil
		}
		offset += limit
	}
}

// CheckLedgerConsistency verifies that total wallet holdings equal total entries per currency.
func (uc *ReconciliationUseCase) CheckLedgerConsistency(ctx context.Context) error {
	balances, entries, err := uc.ledgerRepo.CheckConsistency(ctx)
	if err != nil {
		return err
	}

	for _, c := range domain.SupportedCurrencies {
		if !balances[c].Equal(entries[c]) {
			return fmt.Errorf(
				"ledger inconsistency detected in %s: balances=%s entries=%s difference=%s",
				c,
				balances[c].String(),
				entries[c].String(),
				balances[c].Sub(entries[c]).String(),
			)
		}
	}

	return nil
}

// ReconciliationReport represents a full reconciliation report
type ReconciliationReport struct {
	TotalUsers       int
	ReconciledUsers  int
	Discrepancies    []*ReconciliationResult
	LedgerConsistent bool
	LedgerError      string
	CheckedAt        time.Time
}

// GenerateReconciliationReport generates a comprehensive reconciliation report
func (uc *ReconciliationUseCase) GenerateReconciliationReport(ctx context.Context) (*ReconciliationReport, error) {
	results, err := uc.ReconcileAllUsers(ctx, 500)
	if err != nil {
		return nil, err
	}

	ledgerErr := uc.CheckLedgerConsistency(ctx)

	report := &ReconciliationReport{
		TotalUsers:       len(results),
		Discrepancies:    make([]*ReconciliationResult, 0),
		LedgerConsistent: ledgerErr == nil,
		CheckedAt:        uc.clock.Now(),
	}
	if ledgerErr != nil {
		report.LedgerError = ledgerErr.Error()
	}

	for _, result := range results {
		if result.IsReconciled {
			report.ReconciledUsers++
		} else {
			report.Discrepancies = append(report.Discrepancies, result)
		}
	}

	return report, nil
}
