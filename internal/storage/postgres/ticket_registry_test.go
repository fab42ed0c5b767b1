package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cimillas/ticket-ledger/internal/domain"
	"github.com/cimillas/ticket-ledger/internal/testutil"
)

func TestTicketRegistry(t *testing.T) {
	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	registry := NewTicketRegistry(pool)
	eventID := testutil.InsertEvent(t, ctx, pool, "Warehouse Night", "org-1", time.Now().UTC().Add(48*time.Hour), 100, 10)
	otherEventID := testutil.InsertEvent(t, ctx, pool, "Second Night", "org-1", time.Now().UTC().Add(72*time.Hour), 50, 5)

	purchasedAt := time.Now().UTC().Truncate(time.Microsecond)

	id, err := registry.CreateTicket(ctx, domain.Ticket{
		EventID:     eventID,
		Owner:       "alice",
		PurchasedAt: purchasedAt,
	})
	if err != nil {
		t.Fatalf("create ticket: %v", err)
	}

	t.Run("ids are global across events", func(t *testing.T) {
		id2, err := registry.CreateTicket(ctx, domain.Ticket{
			EventID:     otherEventID,
			Owner:       "alice",
			PurchasedAt: purchasedAt,
		})
		if err != nil {
			t.Fatalf("create ticket: %v", err)
		}
		if id2 != id+1 {
			t.Fatalf("expected shared sequence, got %d after %d", id2, id)
		}
	})

	t.Run("round trips fields", func(t *testing.T) {
		ticket, err := registry.GetTicket(ctx, id)
		if err != nil {
			t.Fatalf("get ticket: %v", err)
		}
		if ticket.EventID != eventID || ticket.Owner != "alice" || ticket.Used {
			t.Fatalf("unexpected ticket: %+v", ticket)
		}
		if !ticket.PurchasedAt.Equal(purchasedAt) {
			t.Fatalf("expected purchased_at %v, got %v", purchasedAt, ticket.PurchasedAt)
		}
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := registry.GetTicket(ctx, 9999)
		if !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not-found, got %v", err)
		}
	})

	t.Run("set owner", func(t *testing.T) {
		if err := registry.SetOwner(ctx, id, "bob"); err != nil {
			t.Fatalf("set owner: %v", err)
		}
		ticket, _ := registry.GetTicket(ctx, id)
		if ticket.Owner != "bob" {
			t.Fatalf("expected owner bob, got %s", ticket.Owner)
		}
	})

	t.Run("mark used", func(t *testing.T) {
		if err := registry.MarkUsed(ctx, id); err != nil {
			t.Fatalf("mark used: %v", err)
		}
		ticket, _ := registry.GetTicket(ctx, id)
		if !ticket.Used {
			t.Fatalf("expected used ticket")
		}
	})

	t.Run("counts per event and owner", func(t *testing.T) {
		count, err := registry.CountByEventAndOwner(ctx, eventID, "bob")
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected 1 ticket for bob, got %d", count)
		}

		// Tickets for another event do not leak into the count.
		count, err = registry.CountByEventAndOwner(ctx, eventID, "alice")
		if err != nil {
			t.Fatalf("count: %v", err)
		}
		if count != 0 {
			t.Fatalf("expected 0 tickets for alice on event %d, got %d", eventID, count)
		}

		// Unknown pairs are zero, not an error.
		count, err = registry.CountByEventAndOwner(ctx, 9999, "nobody")
		if err != nil || count != 0 {
			t.Fatalf("expected zero count, got %d, %v", count, err)
		}
	})
}
