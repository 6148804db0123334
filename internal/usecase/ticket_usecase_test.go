package usecase_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/iho/boxoffice/internal/domain"
	"github.com/iho/boxoffice/internal/usecase"
)

func issueTicket(t *testing.T, h *harness, owner string) *domain.Ticket {
	t.Helper()
	ticket, err := h.tickets.Issue(context.Background(), usecase.IssueInput{
		OwnerUserID:  owner,
		PurchaseID:   "purchase-1",
		Event:        testEvent,
		Price:        dec("40"),
		Currency:     domain.USD,
		SeatNumber:   "A-12",
		AttendeeName: "Ana",
	})
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return ticket
}

func TestTicketUseCase_Issue(t *testing.T) {
	h := newHarness(t)

	a := issueTicket(t, h, "alice")
	b := issueTicket(t, h, "alice")

	if a.Status != domain.TicketStatusActive {
		t.Errorf("expected active ticket, got %s", a.Status)
	}
	if a.QRCode == "" || a.QRCode == b.QRCode {
		t.Errorf("expected distinct QR codes, got %q and %q", a.QRCode, b.QRCode)
	}
	if a.Event.Title != testEvent.Title {
		t.Errorf("expected event snapshot to be copied")
	}
}

func TestTicketUseCase_Issue_InvalidEvent(t *testing.T) {
	h := newHarness(t)

	_, err := h.tickets.Issue(context.Background(), usecase.IssueInput{
		OwnerUserID: "alice",
		Event:       domain.EventSnapshot{Title: "no id"},
		Price:       dec("1"),
		Currency:    domain.USD,
	})
	if !errors.Is(err, domain.ErrInvalidEvent) {
		t.Fatalf("expected ErrInvalidEvent, got %v", err)
	}
}

func TestTicketUseCase_Transfer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	original := issueTicket(t, h, "alice")

	moved, err := h.tickets.Transfer(ctx, usecase.TransferTicketInput{
		TicketID:   original.ID,
		FromUserID: "alice",
		Recipient:  "bob",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if moved.ID == original.ID || moved.QRCode == original.QRCode {
		t.Fatal("expected a new row with a new QR code")
	}
	if moved.OwnerUserID != "bob" || moved.Status != domain.TicketStatusActive {
		t.Errorf("unexpected recipient ticket %+v", moved)
	}
	if moved.TransferredFrom == nil || *moved.TransferredFrom != "alice" || moved.TransferDate == nil {
		t.Errorf("expected transfer provenance on new ticket")
	}

	old, err := h.ticketRepo.GetByID(ctx, original.ID)
	if err != nil {
		t.Fatalf("get original: %v", err)
	}
	if old.Status != domain.TicketStatusTransferred || old.OwnerUserID != "alice" {
		t.Errorf("expected original to stay with alice as transferred, got %+v", old)
	}

	// The old code no longer admits anyone.
	if _, err := h.tickets.ValidateAndRedeem(ctx, original.QRCode); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for transferred code, got %v", err)
	}
	if _, err := h.tickets.ValidateAndRedeem(ctx, moved.QRCode); err != nil {
		t.Fatalf("expected new code to redeem, got %v", err)
	}
}

func TestTicketUseCase_Transfer_Errors(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(t *testing.T, h *harness, ticket *domain.Ticket)
		caller  string
		to      string
		wantErr error
	}{
		{
			name:    "not owner",
			caller:  "mallory",
			to:      "bob",
			wantErr: domain.ErrNotOwner,
		},
		{
			name: "already used",
			setup: func(t *testing.T, h *harness, ticket *domain.Ticket) {
				if _, err := h.tickets.ValidateAndRedeem(context.Background(), ticket.QRCode); err != nil {
					t.Fatalf("redeem: %v", err)
				}
			},
			caller:  "alice",
			to:      "bob",
			wantErr: domain.ErrInvalidState,
		},
		{
			name:    "to self",
			caller:  "alice",
			to:      "alice",
			wantErr: domain.ErrSameUser,
		},
		{
			name:    "unknown email",
			caller:  "alice",
			to:      "nobody@example.com",
			wantErr: domain.ErrUserNotFound,
		},
		{
			name:    "unknown user id",
			caller:  "alice",
			to:      "bobb-typo-never-seen",
			wantErr: domain.ErrUserNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ticket := issueTicket(t, h, "alice")
			if tt.setup != nil {
				tt.setup(t, h, ticket)
			}

			_, err := h.tickets.Transfer(context.Background(), usecase.TransferTicketInput{
				TicketID:   ticket.ID,
				FromUserID: tt.caller,
				Recipient:  tt.to,
			})
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			if tt.wantErr == domain.ErrUserNotFound {
				stored, err := h.ticketRepo.GetByID(context.Background(), ticket.ID)
				if err != nil || stored.Status != domain.TicketStatusActive {
					t.Fatalf("expected ticket to stay active with its owner, got %+v (%v)", stored, err)
				}
			}
		})
	}
}

func TestTicketUseCase_Transfer_ByEmail(t *testing.T) {
	h := newHarness(t)
	h.db.SeedUser(&domain.User{ID: "bob", Email: "bob@example.com", Role: domain.RoleCustomer})
	ticket := issueTicket(t, h, "alice")

	moved, err := h.tickets.Transfer(context.Background(), usecase.TransferTicketInput{
		TicketID:     ticket.ID,
		FromUserID:   "alice",
		Recipient:    "Bob@Example.com",
		AttendeeName: "Roberto",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if moved.OwnerUserID != "bob" || moved.AttendeeName != "Roberto" {
		t.Fatalf("unexpected ticket %+v", moved)
	}
}

func TestTicketUseCase_Transfer_ConcurrentDoubleSubmit(t *testing.T) {
	h := newHarness(t)
	ticket := issueTicket(t, h, "alice")

	var (
		wg      sync.WaitGroup
		success atomic.Int32
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.tickets.Transfer(context.Background(), usecase.TransferTicketInput{
				TicketID: ticket.ID, FromUserID: "alice", Recipient: "bob",
			})
			if err == nil {
				success.Add(1)
			} else if !errors.Is(err, domain.ErrInvalidState) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if success.Load() != 1 {
		t.Fatalf("expected exactly one transfer, got %d", success.Load())
	}

	active := domain.TicketStatusActive
	bobs, _ := h.tickets.ListByOwner(context.Background(), "bob", &active)
	if len(bobs) != 1 {
		t.Fatalf("expected bob to hold one ticket, got %d", len(bobs))
	}
}

func TestTicketUseCase_ValidateAndRedeem(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	ticket := issueTicket(t, h, "alice")

	redeemed, err := h.tickets.ValidateAndRedeem(ctx, ticket.QRCode)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if redeemed.Status != domain.TicketStatusUsed || redeemed.UsedAt == nil {
		t.Fatalf("expected used ticket with timestamp, got %+v", redeemed)
	}

	if _, err := h.tickets.ValidateAndRedeem(ctx, ticket.QRCode); !errors.Is(err, domain.ErrAlreadyUsed) {
		t.Fatalf("expected ErrAlreadyUsed, got %v", err)
	}

	if _, err := h.tickets.ValidateAndRedeem(ctx, "no-such-code"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestTicketUseCase_ValidateAndRedeem_Exclusive(t *testing.T) {
	h := newHarness(t)
	ticket := issueTicket(t, h, "alice")

	const scanners = 16

	var (
		wg      sync.WaitGroup
		success atomic.Int32
		used    atomic.Int32
	)
	for i := 0; i < scanners; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.tickets.ValidateAndRedeem(context.Background(), ticket.QRCode)
			switch {
			case err == nil:
				success.Add(1)
			case errors.Is(err, domain.ErrAlreadyUsed):
				used.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if success.Load() != 1 || used.Load() != scanners-1 {
		t.Fatalf("expected 1 success and %d already-used, got %d and %d", scanners-1, success.Load(), used.Load())
	}
}

func TestTicketUseCase_ListByOwner(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := issueTicket(t, h, "alice")
	issueTicket(t, h, "alice")
	issueTicket(t, h, "bob")

	if _, err := h.tickets.ValidateAndRedeem(ctx, first.QRCode); err != nil {
		t.Fatalf("redeem: %v", err)
	}

	all, err := h.tickets.ListByOwner(ctx, "alice", nil)
	if err != nil || len(all) != 2 {
		t.Fatalf("expected 2 tickets for alice, got %d (%v)", len(all), err)
	}

	used := domain.TicketStatusUsed
	filtered, err := h.tickets.ListByOwner(ctx, "alice", &used)
	if err != nil || len(filtered) != 1 || filtered[0].ID != first.ID {
		t.Fatalf("expected only the used ticket, got %+v (%v)", filtered, err)
	}

	bogus := domain.TicketStatus("lost")
	if _, err := h.tickets.ListByOwner(ctx, "alice", &bogus); !errors.Is(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState for unknown status filter, got %v", err)
	}
}

func TestTicketUseCase_GetTicket_HidesOthers(t *testing.T) {
	h := newHarness(t)
	ticket := issueTicket(t, h, "alice")

	if _, err := h.tickets.GetTicket(context.Background(), "bob", ticket.ID); !errors.Is(err, domain.ErrTicketNotFound) {
		t.Fatalf("expected ErrTicketNotFound, got %v", err)
	}
}
