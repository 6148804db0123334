package integration

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/usecase"
	"github.com/iho/boxoffice/tests/testutil"
)

func TestWebhookCreditsOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	svc := testutil.NewServices(t, testDB)
	user := testDB.CreateUser(ctx, "topup@example.com", domain.RoleCustomer)

	invoice, err := svc.Payments.CreateInvoice(ctx, usecase.CreateInvoiceInput{
		UserID:       user.ID,
		Amount:       decimal.RequireFromString("42.00"),
		Currency:     domain.USD,
		TargetCrypto: "USDT",
	})
	if err != nil {
		t.Fatalf("create invoice failed: %v", err)
	}
	if invoice.PaymentURL == "" || invoice.Status != domain.InvoiceStatusCreated {
		t.Fatalf("unexpected invoice: %+v", invoice)
	}

	// The processor retries callbacks; replays and concurrent deliveries must credit once.
	body, sig := testutil.SignedWebhook(invoice.OrderID, "paid", "9999.00")

	var wg sync.WaitGroup
	wg.Add(5)
	for range 5 {
		go func() {
			defer wg.Done()
			if _, err := svc.Payments.HandleWebhook(ctx, body, sig); err != nil {
				t.Errorf("webhook failed: %v", err)
			}
		}()
	}
	wg.Wait()

	balance, err := svc.Wallet.GetBalance(ctx, user.ID)
	if err != nil {
		t.Fatalf("failed to load balance: %v", err)
	}
	// The stored invoice amount is credited, never the callback's.
	if got := balance.Amount(domain.USD); !got.Equal(decimal.RequireFromString("42.00")) {
		t.Errorf("expected 42.00 USD, got %s", got)
	}
	if n := testDB.CountOutbox(ctx, domain.EventTypeInvoicePaid); n != 1 {
		t.Errorf("expected one invoice.paid event, got %d", n)
	}

	got, err := svc.Payments.GetInvoice(ctx, user.ID, invoice.OrderID)
	if err != nil {
		t.Fatalf("get invoice failed: %v", err)
	}
	if got.Status != domain.InvoiceStatusPaid || got.PaidAt == nil {
		t.Errorf("expected paid invoice, got %s", got.Status)
	}
}

func TestWebhookRejections(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	testDB := testutil.NewTestDB(t)
	defer testDB.Cleanup()
	testDB.TruncateAll(ctx)

	svc := testutil.NewServices(t, testDB)

	body, _ := testutil.SignedWebhook("missing-order", "paid", "1.00")
	if _, err := svc.Payments.HandleWebhook(ctx, body, "0000"); !errors.Is(err, domain.ErrInvalidSignature) {
		t.Errorf("expected ErrInvalidSignature, got %v", err)
	}

	body, sig := testutil.SignedWebhook("missing-order", "paid", "1.00")
	if _, err := svc.Payments.HandleWebhook(ctx, body, sig); !errors.Is(err, domain.ErrUnknownOrder) {
		t.Errorf("expected ErrUnknownOrder, got %v", err)
	}
}
