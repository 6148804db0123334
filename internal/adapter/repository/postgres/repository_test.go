package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/usecase"
)

func beginTx(t *testing.T, pool pgxmock.PgxPoolIface) usecase.Transaction {
	t.Helper()
	pool.ExpectBegin()
	tx, err := newTxManagerWithPool(pool).Begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	return tx
}

func TestBalanceRepositoryGetNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM user_balances").WithArgs("u1").WillReturnError(pgx.ErrNoRows)

	_, _, err := NewBalanceRepository(pool).Get(context.Background(), "u1")
	if !errors.Is(err, domain.ErrBalanceNotFound) {
		t.Fatalf("expected ErrBalanceNotFound, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestBalanceRepositoryGetForUpdateCreatesRowFirst(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)

	lockErr := errors.New("lock timeout")
	pool.ExpectExec("INSERT INTO user_balances").
		WithArgs("u1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	pool.ExpectQuery("FOR UPDATE").WithArgs("u1").WillReturnError(lockErr)

	_, _, err := NewBalanceRepository(pool).GetForUpdate(context.Background(), tx, "u1")
	if !errors.Is(err, lockErr) {
		t.Fatalf("expected lock error, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestBalanceRepositoryListUserIDs(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("SELECT user_id FROM user_balances").
		WithArgs(int32(2), int32(4)).
		WillReturnRows(pgxmock.NewRows([]string{"user_id"}).AddRow("a").AddRow("b"))

	ids, err := NewBalanceRepository(pool).ListUserIDs(context.Background(), 2, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ids) != 2 || ids[0] != "a" || ids[1] != "b" {
		t.Fatalf("unexpected ids %v", ids)
	}
	assertExpectations(t, pool)
}

func TestTicketRepositoryMarkUsedNoActiveTicket(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectQuery("SET status = 'used'").
		WithArgs("qr-1", pgxmock.AnyArg()).
		WillReturnError(pgx.ErrNoRows)

	_, err := NewTicketRepository(pool).MarkUsed(context.Background(), tx, "qr-1", time.Now())
	if !errors.Is(err, domain.ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestTicketRepositoryMarkTransferredInactive(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectExec("SET status = 'transferred'").
		WithArgs("t1", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := NewTicketRepository(pool).MarkTransferred(context.Background(), tx, "t1", time.Now())
	if !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestInvoiceRepositoryUpdateStatusMissing(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectExec("UPDATE invoices").
		WithArgs("order-1", "paid", "ext-1", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	now := time.Now()
	err := NewInvoiceRepository(pool).UpdateStatus(context.Background(), tx, &domain.Invoice{
		OrderID:           "order-1",
		Status:            domain.InvoiceStatusPaid,
		ExternalInvoiceID: "ext-1",
		PaidAt:            &now,
		UpdatedAt:         now,
	})
	if !errors.Is(err, domain.ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
	assertExpectations(t, pool)
}

func TestInvoiceRepositoryGetByOrderIDNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("FROM invoices").WithArgs("missing").WillReturnError(pgx.ErrNoRows)

	_, err := NewInvoiceRepository(pool).GetByOrderID(context.Background(), "missing")
	if !errors.Is(err, domain.ErrInvoiceNotFound) {
		t.Fatalf("expected ErrInvoiceNotFound, got %v", err)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not-found family, got %v", err)
	}
}

func TestPurchaseRepositoryUpdateStatus(t *testing.T) {
	pool := newMockPool(t)
	tx := beginTx(t, pool)
	pool.ExpectExec("UPDATE purchases").
		WithArgs("p1", "compensated", "issue failed", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := NewPurchaseRepository(pool).UpdateStatus(context.Background(), tx, "p1", domain.PurchaseStatusCompensated, "issue failed", time.Now())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertExpectations(t, pool)
}

func TestUserRepositoryGetByID(t *testing.T) {
	pool := newMockPool(t)
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	pool.ExpectQuery("FROM users").
		WithArgs("u1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "email", "name", "role", "created_at", "updated_at"}).
			AddRow("u1", "ana@example.com", "Ana", "staff", created, created))

	user, err := NewUserRepository(pool).GetByID(context.Background(), "u1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user.Email != "ana@example.com" || user.Role != domain.RoleStaff {
		t.Fatalf("unexpected user %+v", user)
	}
	if !user.CreatedAt.Equal(created) {
		t.Fatalf("expected created_at %v, got %v", created, user.CreatedAt)
	}
}

func TestUserRepositoryGetByEmailNotFound(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectQuery("lower\\(email\\)").WithArgs("ghost@example.com").WillReturnError(pgx.ErrNoRows)

	_, err := NewUserRepository(pool).GetByEmail(context.Background(), "ghost@example.com")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUserRepositoryUpsert(t *testing.T) {
	pool := newMockPool(t)
	pool.ExpectExec("ON CONFLICT \\(id\\) DO UPDATE").
		WithArgs("u1", "ana@example.com", "Ana", "customer", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	now := time.Now()
	err := NewUserRepository(pool).Upsert(context.Background(), &domain.User{
		ID: "u1", Email: "ana@example.com", Name: "Ana", Role: domain.RoleCustomer,
		CreatedAt: now, UpdatedAt: now,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertExpectations(t, pool)
}

func TestDecodeOutboxPayload(t *testing.T) {
	payload := decodePayload([]byte(`{"quantity":3,"amount":"120.50"}`))
	if payload["quantity"] != json.Number("3") {
		t.Fatalf("expected json.Number quantity, got %#v", payload["quantity"])
	}
	if payload["amount"] != "120.50" {
		t.Fatalf("expected amount string, got %#v", payload["amount"])
	}

	broken := decodePayload([]byte(`{"quantity":`))
	if broken["raw"] != `{"quantity":` {
		t.Fatalf("expected raw fallback, got %#v", broken)
	}

	if decodePayload(nil) != nil {
		t.Fatalf("expected nil payload for empty column")
	}
}

func TestOutboxRepositoryGetUnpublishedZeroLimit(t *testing.T) {
	pool := newMockPool(t)

	events, err := NewOutboxRepository(pool).GetUnpublished(context.Background(), 0)
	if err != nil || events != nil {
		t.Fatalf("expected no query and no events, got %v, %v", events, err)
	}
	assertExpectations(t, pool)
}
