package usecase_test

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/fx"
	"github.com/iho/boxoffice/internal/usecase"
	"github.com/iho/boxoffice/internal/usecase/mocks"
)

var testNow = time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

type harness struct {
	db         *mocks.MemoryDB
	clock      *mocks.MockClock
	txManager  *mocks.MockTransactionManager
	balances   *mocks.MockBalanceRepository
	entries    *mocks.MockEntryRepository
	ticketRepo *mocks.MockTicketRepository
	invoices   *mocks.MockInvoiceRepository
	purchases  *mocks.MockPurchaseRepository
	users      *mocks.MockUserRepository
	outbox     *mocks.MockOutboxRepository
	idGen      *mocks.MockIDGenerator

	wallet    *usecase.WalletUseCase
	tickets   *usecase.TicketUseCase
	purchase  *usecase.PurchaseUseCase
	reconcile *usecase.ReconciliationUseCase
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	converter, err := fx.NewConverter(fx.DefaultRates())
	if err != nil {
		t.Fatalf("converter: %v", err)
	}

	db := mocks.NewMemoryDB()
	h := &harness{
		db:         db,
		clock:      mocks.NewMockClock(testNow),
		txManager:  mocks.NewMockTransactionManager(db),
		balances:   mocks.NewMockBalanceRepository(db),
		entries:    mocks.NewMockEntryRepository(db),
		ticketRepo: mocks.NewMockTicketRepository(db),
		invoices:   mocks.NewMockInvoiceRepository(db),
		purchases:  mocks.NewMockPurchaseRepository(db),
		users:      mocks.NewMockUserRepository(db),
		outbox:     mocks.NewMockOutboxRepository(db),
		idGen:      mocks.NewMockIDGenerator(),
	}

	// Directory entries for the parties the ticket tests hand tickets between.
	db.SeedUser(&domain.User{ID: "alice", Email: "alice@example.com", Role: domain.RoleCustomer})
	db.SeedUser(&domain.User{ID: "bob", Email: "bob@example.com", Role: domain.RoleCustomer})

	logger := zerolog.Nop()

	h.wallet = usecase.NewWalletUseCase(h.txManager, h.balances, h.entries, h.outbox, h.idGen, nil, converter, logger).
		WithClock(h.clock)
	h.tickets = usecase.NewTicketUseCase(h.txManager, h.ticketRepo, h.users, h.outbox, h.idGen, mocks.NewMockTokenGenerator(), nil, logger).
		WithClock(h.clock)
	h.purchase = usecase.NewPurchaseUseCase(h.txManager, h.purchases, h.ticketRepo, h.outbox, h.wallet, h.tickets, h.idGen, nil, logger).
		WithClock(h.clock)
	h.reconcile = usecase.NewReconciliationUseCase(h.balances, h.entries, mocks.NewMockLedgerRepository(db))

	return h
}

func usd(s string) map[domain.Currency]decimal.Decimal {
	return map[domain.Currency]decimal.Decimal{domain.USD: decimal.RequireFromString(s)}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertBalance(t *testing.T, h *harness, userID string, c domain.Currency, want string) {
	t.Helper()
	got := h.db.Balance(userID, c)
	if !got.Equal(dec(want)) {
		t.Fatalf("expected %s balance %s, got %s", c, want, got)
	}
}

func assertConsistent(t *testing.T, h *harness) {
	t.Helper()
	if err := h.reconcile.CheckLedgerConsistency(context.Background()); err != nil {
		t.Fatalf("ledger not consistent: %v", err)
	}
}

var testEvent = domain.EventSnapshot{
	EventID:  "evt-rock-night",
	Title:    "Rock Night",
	Date:     testNow.Add(30 * 24 * time.Hour),
	Location: "Arena CDMX",
}
