package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cimillas/ticket-ledger/internal/app"
	"github.com/cimillas/ticket-ledger/internal/domain"
)

// EventService is the slice of the engine the event endpoints need.
type EventService interface {
	CreateEvent(ctx context.Context, in app.CreateEventInput) (domain.Event, error)
	ListEvents(ctx context.Context) ([]domain.Event, error)
	GetEvent(ctx context.Context, id int64) (domain.Event, error)
	CancelEvent(ctx context.Context, id int64, caller string) error
	BuyTickets(ctx context.Context, in app.BuyTicketsInput) ([]domain.Ticket, error)
	AvailableTickets(ctx context.Context, id int64) (int, error)
	UserTicketCount(ctx context.Context, id int64, user string) (int, error)
}

// HandleEvents serves the /events collection: POST creates, GET lists.
func HandleEvents(svc EventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			events, err := svc.ListEvents(r.Context())
			if err != nil {
				writeDomainError(w, err)
				return
			}
			resp := make([]eventResponse, 0, len(events))
			for _, event := range events {
				resp = append(resp, newEventResponse(event))
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(resp)
		case http.MethodPost:
			caller, ok := requireCaller(w, r)
			if !ok {
				return
			}

			var req createEventRequest
			dec := json.NewDecoder(r.Body)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&req); err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
				return
			}

			startsAt, err := time.Parse(time.RFC3339, req.StartsAt)
			if err != nil {
				writeError(w, http.StatusBadRequest, codeInvalidStartsAt, "invalid starts_at format")
				return
			}

			event, err := svc.CreateEvent(r.Context(), app.CreateEventInput{
				Name:     req.Name,
				StartsAt: startsAt,
				Price:    req.Price,
				Total:    req.Total,
				Caller:   caller,
			})
			if err != nil {
				writeDomainError(w, err)
				return
			}

			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(newEventResponse(event))
		default:
			writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		}
	}
}

// HandleEventSubtree serves everything under /events/{id}: detail, cancel,
// ticket purchase, availability, and per-holder counts.
func HandleEventSubtree(svc EventService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) < 2 || parts[0] != "events" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		eventID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			writeError(w, http.StatusNotFound, codeInvalidID, "invalid event id")
			return
		}

		switch {
		case len(parts) == 2:
			handleEventDetail(w, r, svc, eventID)
		case len(parts) == 3 && parts[2] == "cancel":
			handleCancelEvent(w, r, svc, eventID)
		case len(parts) == 3 && parts[2] == "tickets":
			handleBuyTickets(w, r, svc, eventID)
		case len(parts) == 3 && parts[2] == "availability":
			handleAvailability(w, r, svc, eventID)
		case len(parts) == 4 && parts[2] == "holders":
			handleHolderCount(w, r, svc, eventID, parts[3])
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func handleEventDetail(w http.ResponseWriter, r *http.Request, svc EventService, eventID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	event, err := svc.GetEvent(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(newEventResponse(event))
}

func handleCancelEvent(w http.ResponseWriter, r *http.Request, svc EventService, eventID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}
	if err := svc.CancelEvent(r.Context(), eventID, caller); err != nil {
		writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleBuyTickets(w http.ResponseWriter, r *http.Request, svc EventService, eventID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req buyTicketsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	tickets, err := svc.BuyTickets(r.Context(), app.BuyTicketsInput{
		EventID:    eventID,
		Quantity:   req.Quantity,
		Caller:     caller,
		PaidAmount: req.PaidAmount,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	resp := make([]ticketResponse, 0, len(tickets))
	for _, ticket := range tickets {
		resp = append(resp, newTicketResponse(ticket))
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)
}

func handleAvailability(w http.ResponseWriter, r *http.Request, svc EventService, eventID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	available, err := svc.AvailableTickets(r.Context(), eventID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(availabilityResponse{EventID: eventID, Available: available})
}

func handleHolderCount(w http.ResponseWriter, r *http.Request, svc EventService, eventID int64, user string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	count, err := svc.UserTicketCount(r.Context(), eventID, user)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(holderCountResponse{EventID: eventID, User: user, Count: count})
}

type createEventRequest struct {
	Name     string `json:"name"`
	StartsAt string `json:"starts_at"`
	Price    int64  `json:"price"`
	Total    int    `json:"total"`
}

type buyTicketsRequest struct {
	Quantity   int   `json:"quantity"`
	PaidAmount int64 `json:"paid_amount"`
}

type eventResponse struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	StartsAt  time.Time `json:"starts_at"`
	Price     int64     `json:"price"`
	Total     int       `json:"total"`
	Available int       `json:"available"`
	Organizer string    `json:"organizer"`
	Active    bool      `json:"active"`
}

func newEventResponse(event domain.Event) eventResponse {
	return eventResponse{
		ID:        event.ID,
		Name:      event.Name,
		StartsAt:  event.StartsAt,
		Price:     event.Price,
		Total:     event.Total,
		Available: event.Available,
		Organizer: event.Organizer,
		Active:    event.Active,
	}
}

type availabilityResponse struct {
	EventID   int64 `json:"event_id"`
	Available int   `json:"available"`
}

type holderCountResponse struct {
	EventID int64  `json:"event_id"`
	User    string `json:"user"`
	Count   int    `json:"count"`
}
