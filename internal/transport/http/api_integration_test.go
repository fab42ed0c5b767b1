package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cimillas/ticket-ledger/internal/app"
	"github.com/cimillas/ticket-ledger/internal/clock"
	"github.com/cimillas/ticket-ledger/internal/domain"
	"github.com/cimillas/ticket-ledger/internal/payment"
	"github.com/cimillas/ticket-ledger/internal/storage/postgres"
	"github.com/cimillas/ticket-ledger/internal/testutil"
)

type discardNotifier struct{}

func (discardNotifier) Publish(context.Context, domain.Notification) error { return nil }

func newIntegrationHandler(t *testing.T, now time.Time, secret []byte) http.Handler {
	t.Helper()

	pool := testutil.NewTestPool(t)
	ctx := context.Background()
	testutil.ApplyMigrations(t, ctx, pool)
	testutil.TruncateAll(t, ctx, pool)

	svc := app.NewTicketingService(
		postgres.NewEventRegistry(pool),
		postgres.NewTicketRegistry(pool),
		payment.NewStaticRelay(),
		discardNotifier{},
		clock.NewFixed(now),
	)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", HealthHandler)
	mux.Handle("/events", HandleEvents(svc))
	mux.Handle("/events/", HandleEventSubtree(svc))
	mux.Handle("/tickets/", HandleTicketSubtree(svc))
	mux.Handle("/", NotFoundHandler())

	return Authenticate(secret, mux)
}

func doJSON(t *testing.T, handler http.Handler, method, path, token, body string) (*httptest.ResponseRecorder, []byte) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, rec.Body.Bytes()
}

func TestTicketLifecycle_HTTPIntegration(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	secret := []byte("integration-secret")
	handler := newIntegrationHandler(t, now, secret)

	organizer := signToken(t, secret, "org-1")
	alice := signToken(t, secret, "alice")

	// Organizer registers an event.
	rec, body := doJSON(t, handler, http.MethodPost, "/events", organizer,
		`{"name":"Warehouse Night","starts_at":"2025-06-03T12:00:00Z","price":100,"total":10}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create event: expected 201, got %d: %s", rec.Code, body)
	}
	var event eventResponse
	if err := json.Unmarshal(body, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if event.Available != 10 || !event.Active {
		t.Fatalf("unexpected event: %+v", event)
	}

	// Buy 3 for exactly 300.
	rec, body = doJSON(t, handler, http.MethodPost, "/events/1/tickets", alice,
		`{"quantity":3,"paid_amount":300}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("buy: expected 201, got %d: %s", rec.Code, body)
	}
	var tickets []ticketResponse
	if err := json.Unmarshal(body, &tickets); err != nil {
		t.Fatalf("decode tickets: %v", err)
	}
	if len(tickets) != 3 {
		t.Fatalf("expected 3 tickets, got %d", len(tickets))
	}

	rec, body = doJSON(t, handler, http.MethodGet, "/events/1/availability", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(string(body), `"available":7`) {
		t.Fatalf("availability: expected 7, got %d: %s", rec.Code, body)
	}
	rec, body = doJSON(t, handler, http.MethodGet, "/events/1/holders/alice", "", "")
	if rec.Code != http.StatusOK || !strings.Contains(string(body), `"count":3`) {
		t.Fatalf("holder count: expected 3, got %d: %s", rec.Code, body)
	}

	// Inexact payment mints nothing.
	rec, body = doJSON(t, handler, http.MethodPost, "/events/1/tickets", alice,
		`{"quantity":3,"paid_amount":250}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("mismatched payment: expected 422, got %d: %s", rec.Code, body)
	}
	rec, body = doJSON(t, handler, http.MethodGet, "/events/1/availability", "", "")
	if !strings.Contains(string(body), `"available":7`) {
		t.Fatalf("availability changed on failed purchase: %s", body)
	}

	// Transfer one ticket to bob.
	rec, body = doJSON(t, handler, http.MethodPost, "/tickets/1/transfer", alice, `{"to":"bob"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("transfer: expected 200, got %d: %s", rec.Code, body)
	}
	rec, body = doJSON(t, handler, http.MethodGet, "/tickets/1", "", "")
	if !strings.Contains(string(body), `"owner":"bob"`) {
		t.Fatalf("expected bob as owner: %s", body)
	}

	// Only the organizer redeems, and only once.
	rec, body = doJSON(t, handler, http.MethodPost, "/tickets/1/use", alice, "")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-organizer use: expected 403, got %d: %s", rec.Code, body)
	}
	rec, body = doJSON(t, handler, http.MethodPost, "/tickets/1/use", organizer, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("use: expected 200, got %d: %s", rec.Code, body)
	}
	rec, body = doJSON(t, handler, http.MethodPost, "/tickets/1/use", organizer, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second use: expected 409, got %d: %s", rec.Code, body)
	}

	// Used tickets cannot move.
	rec, body = doJSON(t, handler, http.MethodPost, "/tickets/1/transfer", signToken(t, secret, "bob"), `{"to":"carol"}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("transfer used: expected 409, got %d: %s", rec.Code, body)
	}

	// Cancellation closes the event for good.
	rec, body = doJSON(t, handler, http.MethodPost, "/events/1/cancel", organizer, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("cancel: expected 204, got %d: %s", rec.Code, body)
	}
	rec, body = doJSON(t, handler, http.MethodPost, "/events/1/tickets", alice,
		`{"quantity":1,"paid_amount":100}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("buy after cancel: expected 409, got %d: %s", rec.Code, body)
	}
	rec, body = doJSON(t, handler, http.MethodPost, "/events/1/cancel", organizer, "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("second cancel: expected 409, got %d: %s", rec.Code, body)
	}
}

func TestPerUserCap_HTTPIntegration(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	secret := []byte("integration-secret")
	handler := newIntegrationHandler(t, now, secret)

	organizer := signToken(t, secret, "org-1")
	alice := signToken(t, secret, "alice")
	bob := signToken(t, secret, "bob")

	rec, body := doJSON(t, handler, http.MethodPost, "/events", organizer,
		`{"name":"Warehouse Night","starts_at":"2025-06-03T12:00:00Z","price":100,"total":20}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create event: expected 201, got %d: %s", rec.Code, body)
	}

	// Alice reaches the cap through purchase.
	rec, body = doJSON(t, handler, http.MethodPost, "/events/1/tickets", alice,
		`{"quantity":5,"paid_amount":500}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("buy 5: expected 201, got %d: %s", rec.Code, body)
	}
	rec, body = doJSON(t, handler, http.MethodPost, "/events/1/tickets", alice,
		`{"quantity":1,"paid_amount":100}`)
	if rec.Code != http.StatusConflict || !strings.Contains(string(body), codeCapacityExceeded) {
		t.Fatalf("6th unit: expected capacity conflict, got %d: %s", rec.Code, body)
	}

	// A transfer cannot push the recipient past the cap either.
	rec, body = doJSON(t, handler, http.MethodPost, "/events/1/tickets", bob,
		`{"quantity":1,"paid_amount":100}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("bob buys 1: expected 201, got %d: %s", rec.Code, body)
	}
	var bobTickets []ticketResponse
	if err := json.Unmarshal(body, &bobTickets); err != nil {
		t.Fatalf("decode tickets: %v", err)
	}

	rec, body = doJSON(t, handler, http.MethodPost, "/tickets/6/transfer", bob, `{"to":"alice"}`)
	if rec.Code != http.StatusConflict || !strings.Contains(string(body), codeCapacityExceeded) {
		t.Fatalf("transfer into cap: expected capacity conflict, got %d: %s", rec.Code, body)
	}

	// Self-transfer is rejected outright.
	rec, body = doJSON(t, handler, http.MethodPost, "/tickets/6/transfer", bob, `{"to":"bob"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("self transfer: expected 400, got %d: %s", rec.Code, body)
	}
}
