package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cimillas/ticket-ledger/internal/domain"
)

// TicketService is the slice of the engine the ticket endpoints need.
type TicketService interface {
	GetTicket(ctx context.Context, id int64) (domain.Ticket, error)
	TransferTicket(ctx context.Context, id int64, to, caller string) (domain.Ticket, error)
	UseTicket(ctx context.Context, id int64, caller string) (domain.Ticket, error)
}

// HandleTicketSubtree serves /tickets/{id}, /tickets/{id}/transfer, and
// /tickets/{id}/use.
func HandleTicketSubtree(svc TicketService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		if len(parts) < 2 || parts[0] != "tickets" {
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
			return
		}

		ticketID, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			writeError(w, http.StatusNotFound, codeInvalidID, "invalid ticket id")
			return
		}

		switch {
		case len(parts) == 2:
			handleTicketDetail(w, r, svc, ticketID)
		case len(parts) == 3 && parts[2] == "transfer":
			handleTransferTicket(w, r, svc, ticketID)
		case len(parts) == 3 && parts[2] == "use":
			handleUseTicket(w, r, svc, ticketID)
		default:
			writeError(w, http.StatusNotFound, codeNotFound, "not found")
		}
	}
}

func handleTicketDetail(w http.ResponseWriter, r *http.Request, svc TicketService, ticketID int64) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	ticket, err := svc.GetTicket(r.Context(), ticketID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(newTicketResponse(ticket))
}

func handleTransferTicket(w http.ResponseWriter, r *http.Request, svc TicketService, ticketID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	var req transferTicketRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeInvalidRequestBody, "invalid request body")
		return
	}

	ticket, err := svc.TransferTicket(r.Context(), ticketID, req.To, caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(newTicketResponse(ticket))
}

func handleUseTicket(w http.ResponseWriter, r *http.Request, svc TicketService, ticketID int64) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, codeMethodNotAllowed, "method not allowed")
		return
	}
	caller, ok := requireCaller(w, r)
	if !ok {
		return
	}

	ticket, err := svc.UseTicket(r.Context(), ticketID, caller)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(newTicketResponse(ticket))
}

type transferTicketRequest struct {
	To string `json:"to"`
}

type ticketResponse struct {
	ID          int64     `json:"id"`
	EventID     int64     `json:"event_id"`
	Owner       string    `json:"owner"`
	Used        bool      `json:"used"`
	PurchasedAt time.Time `json:"purchased_at"`
}

func newTicketResponse(ticket domain.Ticket) ticketResponse {
	return ticketResponse{
		ID:          ticket.ID,
		EventID:     ticket.EventID,
		Owner:       ticket.Owner,
		Used:        ticket.Used,
		PurchasedAt: ticket.PurchasedAt,
	}
}
