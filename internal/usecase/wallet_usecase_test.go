package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/usecase"
)

func TestWalletUseCase_Credit(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	balance, entry, err := h.wallet.Credit(ctx, usecase.Posting{
		UserID:      "user-1",
		Amount:      dec("25.50"),
		Currency:    domain.MXN,
		Type:        domain.EntryTypeDeposit,
		Description: "top-up",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !balance.Amount(domain.MXN).Equal(dec("25.50")) {
		t.Errorf("expected MXN 25.50, got %s", balance.Amount(domain.MXN))
	}
	for _, c := range domain.SupportedCurrencies {
		if _, ok := balance.Amounts[c]; !ok {
			t.Errorf("expected bucket %s to be present", c)
		}
	}
	if !entry.Amount.Equal(dec("25.50")) || !entry.BalanceAfter.Equal(dec("25.50")) {
		t.Errorf("unexpected entry %+v", entry)
	}
	if !entry.CreatedAt.Equal(testNow) {
		t.Errorf("expected entry timestamp from clock, got %s", entry.CreatedAt)
	}

	events := h.db.OutboxEvents()
	if len(events) != 1 || events[0].EventType != domain.EventTypeWalletCredited {
		t.Fatalf("expected one wallet.credited event, got %+v", events)
	}

	assertConsistent(t, h)
}

func TestWalletUseCase_Credit_Validation(t *testing.T) {
	tests := []struct {
		name     string
		amount   decimal.Decimal
		currency domain.Currency
		wantErr  error
	}{
		{"zero", decimal.Zero, domain.USD, domain.ErrInvalidAmount},
		{"negative", dec("-1"), domain.USD, domain.ErrInvalidAmount},
		{"sub-cent", dec("0.001"), domain.USD, domain.ErrInvalidAmount},
		{"unknown currency", dec("1"), "GBP", domain.ErrInvalidCurrency},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			_, _, err := h.wallet.Credit(context.Background(), usecase.Posting{
				UserID:   "user-1",
				Amount:   tt.amount,
				Currency: tt.currency,
				Type:     domain.EntryTypeDeposit,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if len(h.db.Entries()) != 0 {
				t.Fatal("expected no entries after rejected credit")
			}
		})
	}
}

func TestWalletUseCase_Debit_InsufficientFunds(t *testing.T) {
	h := newHarness(t)
	h.db.SeedBalance("user-1", usd("100"))

	_, _, err := h.wallet.Debit(context.Background(), usecase.Posting{
		UserID:   "user-1",
		Amount:   dec("100.01"),
		Currency: domain.USD,
		Type:     domain.EntryTypePurchase,
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	assertBalance(t, h, "user-1", domain.USD, "100")
	if len(h.db.Entries()) != 0 {
		t.Fatal("expected no entries")
	}
}

func TestWalletUseCase_Debit_NoImplicitConversion(t *testing.T) {
	h := newHarness(t)
	h.db.SeedBalance("user-1", usd("100"))

	_, _, err := h.wallet.Debit(context.Background(), usecase.Posting{
		UserID:   "user-1",
		Amount:   dec("10"),
		Currency: domain.EUR,
		Type:     domain.EntryTypePurchase,
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds for empty EUR bucket, got %v", err)
	}
}

func TestWalletUseCase_ConcurrentDebits_NoOverdraft(t *testing.T) {
	h := newHarness(t)
	h.db.SeedBalance("user-1", usd("100"))

	const workers = 25

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int32
		rejected  atomic.Int32
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := h.wallet.Debit(context.Background(), usecase.Posting{
				UserID:   "user-1",
				Amount:   dec("10"),
				Currency: domain.USD,
				Type:     domain.EntryTypePurchase,
			})
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, domain.ErrInsufficientFunds):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded.Load() != 10 {
		t.Fatalf("expected exactly 10 successful debits, got %d", succeeded.Load())
	}
	if rejected.Load() != workers-10 {
		t.Fatalf("expected %d rejections, got %d", workers-10, rejected.Load())
	}

	assertBalance(t, h, "user-1", domain.USD, "0")
	assertConsistent(t, h)
}

func TestWalletUseCase_TransferInternal(t *testing.T) {
	h := newHarness(t)
	h.db.SeedBalance("alice", usd("50"))
	h.db.SeedBalance("bob", nil)

	result, err := h.wallet.TransferInternal(context.Background(), usecase.TransferInput{
		FromUserID: "alice",
		ToUserID:   "bob",
		Amount:     dec("20"),
		Currency:   domain.USD,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.OutEntry.Type != domain.EntryTypeTransferOut || !result.OutEntry.Amount.Equal(dec("-20")) {
		t.Errorf("unexpected out entry %+v", result.OutEntry)
	}
	if result.InEntry.Type != domain.EntryTypeTransferIn || !result.InEntry.Amount.Equal(dec("20")) {
		t.Errorf("unexpected in entry %+v", result.InEntry)
	}

	assertBalance(t, h, "alice", domain.USD, "30")
	assertBalance(t, h, "bob", domain.USD, "20")
}

func TestWalletUseCase_TransferInternal_Errors(t *testing.T) {
	h := newHarness(t)
	h.db.SeedBalance("alice", usd("5"))

	_, err := h.wallet.TransferInternal(context.Background(), usecase.TransferInput{
		FromUserID: "alice", ToUserID: "alice", Amount: dec("1"), Currency: domain.USD,
	})
	if !errors.Is(err, domain.ErrSameUser) {
		t.Fatalf("expected ErrSameUser, got %v", err)
	}

	_, err = h.wallet.TransferInternal(context.Background(), usecase.TransferInput{
		FromUserID: "alice", ToUserID: "bob", Amount: dec("6"), Currency: domain.USD,
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	assertBalance(t, h, "alice", domain.USD, "5")
	assertBalance(t, h, "bob", domain.USD, "0")
	if len(h.db.Entries()) != 0 {
		t.Fatal("expected rolled back transfer to leave no entries")
	}
}

func TestWalletUseCase_OppositeTransfers_NoDeadlock(t *testing.T) {
	h := newHarness(t)
	h.db.SeedBalance("alice", usd("1000"))
	h.db.SeedBalance("bob", usd("1000"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		from, to := "alice", "bob"
		if i%2 == 1 {
			from, to = to, from
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.wallet.TransferInternal(ctx, usecase.TransferInput{
				FromUserID: from, ToUserID: to, Amount: dec("1"), Currency: domain.USD,
			})
			if err != nil {
				t.Errorf("transfer %s->%s: %v", from, to, err)
			}
		}()
	}
	wg.Wait()

	assertBalance(t, h, "alice", domain.USD, "1000")
	assertBalance(t, h, "bob", domain.USD, "1000")
	assertConsistent(t, h)
}

func TestWalletUseCase_LegacyBalanceMigration(t *testing.T) {
	h := newHarness(t)
	h.db.SeedLegacyBalance("legacy-user", domain.MXN, dec("150"))

	balance, err := h.wallet.GetBalance(context.Background(), "legacy-user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !balance.Amount(domain.MXN).Equal(dec("150")) {
		t.Fatalf("expected legacy amount in MXN bucket, got %s", balance.Amount(domain.MXN))
	}

	entries := h.db.Entries()
	if len(entries) != 1 || entries[0].Description != domain.LegacyMigrationDescription || entries[0].Type != domain.EntryTypeDeposit {
		t.Fatalf("expected one migration deposit entry, got %+v", entries)
	}

	// A second read must not migrate again.
	if _, err := h.wallet.GetBalance(context.Background(), "legacy-user"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(h.db.Entries()) != 1 {
		t.Fatal("legacy balance migrated twice")
	}

	result, err := h.reconcile.ReconcileUser(context.Background(), "legacy-user")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsReconciled {
		t.Fatalf("expected reconciled wallet after migration, got %+v", result.Currencies)
	}
}

func TestWalletUseCase_GetBalance_NewUser(t *testing.T) {
	h := newHarness(t)

	balance, err := h.wallet.GetBalance(context.Background(), "fresh")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if balance.PreferredCurrency != domain.USD {
		t.Errorf("expected USD preference, got %s", balance.PreferredCurrency)
	}
	for _, c := range domain.SupportedCurrencies {
		if !balance.Amount(c).IsZero() {
			t.Errorf("expected zero %s", c)
		}
	}
}

func TestWalletUseCase_Summary(t *testing.T) {
	h := newHarness(t)
	h.db.SeedBalance("user-1", map[domain.Currency]decimal.Decimal{
		domain.USD: dec("10"),
		domain.MXN: dec("35"),
		domain.BRL: dec("5"),
	})

	summary, err := h.wallet.Summary(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalCurrency != domain.USD || !summary.Total.Equal(dec("13")) {
		t.Fatalf("expected 13 USD, got %s %s", summary.Total, summary.TotalCurrency)
	}

	if _, err := h.wallet.UpdatePreferredCurrency(context.Background(), "user-1", domain.MXN); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary, err = h.wallet.Summary(context.Background(), "user-1", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary.TotalCurrency != domain.MXN || !summary.Total.Equal(dec("227.5")) {
		t.Fatalf("expected 227.50 MXN, got %s %s", summary.Total, summary.TotalCurrency)
	}
}

func TestWalletUseCase_UpdatePreferredCurrency_Invalid(t *testing.T) {
	h := newHarness(t)

	if _, err := h.wallet.UpdatePreferredCurrency(context.Background(), "user-1", "JPY"); !errors.Is(err, domain.ErrInvalidCurrency) {
		t.Fatalf("expected ErrInvalidCurrency, got %v", err)
	}
}

func TestWalletUseCase_GetHistory_MostRecentFirst(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	for _, amount := range []string{"1", "2", "3"} {
		if _, _, err := h.wallet.Credit(ctx, usecase.Posting{
			UserID: "user-1", Amount: dec(amount), Currency: domain.USD, Type: domain.EntryTypeDeposit,
		}); err != nil {
			t.Fatalf("credit: %v", err)
		}
		h.clock.Advance(time.Minute)
	}

	history, err := h.wallet.GetHistory(ctx, "user-1", 2, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(history) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(history))
	}
	if !history[0].Amount.Equal(dec("3")) || !history[1].Amount.Equal(dec("2")) {
		t.Fatalf("expected newest first, got %s, %s", history[0].Amount, history[1].Amount)
	}
}
