package domain

import "time"

// Notification is a domain event emitted after a state change commits. Each
// payload carries enough fields for an external indexer to rebuild state
// without reading the registries back. Kind is the stable wire name of the
// notification.
type Notification interface {
	Kind() string
}

type EventCreated struct {
	EventID   int64     `json:"event_id"`
	Name      string    `json:"name"`
	Organizer string    `json:"organizer"`
	StartsAt  time.Time `json:"starts_at"`
	Price     int64     `json:"price"`
	Total     int       `json:"total"`
}

func (EventCreated) Kind() string { return "ticketing.event_created" }

// TicketsPurchased is emitted once per purchase, batched across the whole
// quantity rather than once per unit.
type TicketsPurchased struct {
	EventID    int64   `json:"event_id"`
	Buyer      string  `json:"buyer"`
	Quantity   int     `json:"quantity"`
	TicketIDs  []int64 `json:"ticket_ids"`
	UnitPrice  int64   `json:"unit_price"`
	PaidAmount int64   `json:"paid_amount"`
}

func (TicketsPurchased) Kind() string { return "ticketing.tickets_purchased" }

type TicketTransferred struct {
	TicketID int64  `json:"ticket_id"`
	EventID  int64  `json:"event_id"`
	From     string `json:"from"`
	To       string `json:"to"`
}

func (TicketTransferred) Kind() string { return "ticketing.ticket_transferred" }

type TicketUsed struct {
	TicketID int64 `json:"ticket_id"`
	EventID  int64 `json:"event_id"`
}

func (TicketUsed) Kind() string { return "ticketing.ticket_used" }

type EventCancelled struct {
	EventID   int64  `json:"event_id"`
	Organizer string `json:"organizer"`
}

func (EventCancelled) Kind() string { return "ticketing.event_cancelled" }
