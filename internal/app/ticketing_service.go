package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cimillas/ticket-ledger/internal/clock"
	"github.com/cimillas/ticket-ledger/internal/domain"
)

// EventRegistry is the authoritative store for events. All business-rule
// checking happens in the service; the registry only persists.
type EventRegistry interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	CreateEvent(ctx context.Context, event domain.Event) (int64, error)
	GetEvent(ctx context.Context, id int64) (domain.Event, error)
	GetEventForUpdate(ctx context.Context, id int64) (domain.Event, error)
	DecrementAvailable(ctx context.Context, id int64, n int) error
	Deactivate(ctx context.Context, id int64) error
	ListEvents(ctx context.Context) ([]domain.Event, error)
	CountEvents(ctx context.Context) (int64, error)
	EventExists(ctx context.Context, id int64) (bool, error)
}

// TicketRegistry is the authoritative store for tickets. CountByEventAndOwner
// is the per-user cap counter; it is derived from the tickets rows themselves
// so it can never drift from ownership.
type TicketRegistry interface {
	CreateTicket(ctx context.Context, ticket domain.Ticket) (int64, error)
	GetTicket(ctx context.Context, id int64) (domain.Ticket, error)
	GetTicketForUpdate(ctx context.Context, id int64) (domain.Ticket, error)
	SetOwner(ctx context.Context, id int64, owner string) error
	MarkUsed(ctx context.Context, id int64) error
	CountByEventAndOwner(ctx context.Context, eventID int64, owner string) (int, error)
}

// PaymentRelay moves funds from a buyer to an organizer. It is invoked inside
// the purchase transaction; a relay error aborts the whole purchase.
type PaymentRelay interface {
	Transfer(ctx context.Context, from, to string, amount int64) error
}

// Notifier receives domain events after the owning transaction has committed.
type Notifier interface {
	Publish(ctx context.Context, n domain.Notification) error
}

const defaultMaxPerUser = 5

// TicketingService is the engine behind every mutating and read operation.
// Each mutating call runs as one registry transaction spanning validation,
// the payment relay call, and all writes.
type TicketingService struct {
	events     EventRegistry
	tickets    TicketRegistry
	relay      PaymentRelay
	notifier   Notifier
	clock      clock.Clock
	maxPerUser int
}

func NewTicketingService(events EventRegistry, tickets TicketRegistry, relay PaymentRelay, notifier Notifier, clk clock.Clock, opts ...TicketingServiceOption) *TicketingService {
	svc := &TicketingService{
		events:     events,
		tickets:    tickets,
		relay:      relay,
		notifier:   notifier,
		clock:      clk,
		maxPerUser: defaultMaxPerUser,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type TicketingServiceOption func(*TicketingService)

// WithMaxPerUser overrides the per-user per-event ticket cap.
func WithMaxPerUser(n int) TicketingServiceOption {
	return func(s *TicketingService) {
		if n > 0 {
			s.maxPerUser = n
		}
	}
}

type CreateEventInput struct {
	Name     string
	StartsAt time.Time
	Price    int64
	Total    int
	Caller   string
}

func (s *TicketingService) CreateEvent(ctx context.Context, in CreateEventInput) (domain.Event, error) {
	now := s.clock.Now()

	if strings.TrimSpace(in.Name) == "" {
		return domain.Event{}, domain.ErrEventNameRequired
	}
	if !in.StartsAt.After(now) {
		return domain.Event{}, domain.ErrDateNotFuture
	}
	if in.Price <= 0 {
		return domain.Event{}, domain.ErrInvalidPrice
	}
	if in.Total <= 0 {
		return domain.Event{}, domain.ErrInvalidTotal
	}
	if in.Caller == "" {
		return domain.Event{}, domain.ErrInvalidIdentity
	}

	event := domain.Event{
		Name:      in.Name,
		StartsAt:  in.StartsAt,
		Price:     in.Price,
		Total:     in.Total,
		Available: in.Total,
		Organizer: in.Caller,
		Active:    true,
		CreatedAt: now,
	}

	id, err := s.events.CreateEvent(ctx, event)
	if err != nil {
		return domain.Event{}, err
	}
	event.ID = id

	s.publish(ctx, domain.EventCreated{
		EventID:   event.ID,
		Name:      event.Name,
		Organizer: event.Organizer,
		StartsAt:  event.StartsAt,
		Price:     event.Price,
		Total:     event.Total,
	})
	return event, nil
}

type BuyTicketsInput struct {
	EventID    int64
	Quantity   int
	Caller     string
	PaidAmount int64
}

func (s *TicketingService) BuyTickets(ctx context.Context, in BuyTicketsInput) ([]domain.Ticket, error) {
	if in.Quantity < 1 {
		return nil, domain.ErrInvalidQuantity
	}
	if in.Caller == "" {
		return nil, domain.ErrInvalidIdentity
	}

	now := s.clock.Now()
	var minted []domain.Ticket

	err := s.events.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.events.GetEventForUpdate(txCtx, in.EventID)
		if err != nil {
			return err
		}
		if !event.Active {
			return domain.ErrEventInactive
		}
		if !now.Before(event.StartsAt) {
			return domain.ErrEventStarted
		}
		if in.Quantity > event.Available {
			return domain.ErrSoldOut
		}

		held, err := s.tickets.CountByEventAndOwner(txCtx, in.EventID, in.Caller)
		if err != nil {
			return err
		}
		if held+in.Quantity > s.maxPerUser {
			return domain.ErrPerUserCap
		}

		required := event.Price * int64(in.Quantity)
		if in.PaidAmount != required {
			return fmt.Errorf("%w: paid %d, need %d", domain.ErrPaymentMismatch, in.PaidAmount, required)
		}

		// The relay call rides inside the transaction: if it fails nothing
		// below it runs, and the rollback discards nothing but reads.
		if err := s.relay.Transfer(txCtx, in.Caller, event.Organizer, in.PaidAmount); err != nil {
			return fmt.Errorf("%w: %v", domain.ErrPaymentFailed, err)
		}

		for i := 0; i < in.Quantity; i++ {
			ticket := domain.Ticket{
				EventID:     in.EventID,
				Owner:       in.Caller,
				PurchasedAt: now,
			}
			id, err := s.tickets.CreateTicket(txCtx, ticket)
			if err != nil {
				return err
			}
			ticket.ID = id
			minted = append(minted, ticket)
		}

		return s.events.DecrementAvailable(txCtx, in.EventID, in.Quantity)
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(minted))
	for _, t := range minted {
		ids = append(ids, t.ID)
	}
	s.publish(ctx, domain.TicketsPurchased{
		EventID:    in.EventID,
		Buyer:      in.Caller,
		Quantity:   in.Quantity,
		TicketIDs:  ids,
		UnitPrice:  in.PaidAmount / int64(in.Quantity),
		PaidAmount: in.PaidAmount,
	})
	return minted, nil
}

func (s *TicketingService) TransferTicket(ctx context.Context, ticketID int64, to, caller string) (domain.Ticket, error) {
	to = strings.TrimSpace(to)
	if to == "" || caller == "" {
		return domain.Ticket{}, domain.ErrInvalidIdentity
	}
	if to == caller {
		return domain.Ticket{}, domain.ErrSelfTransfer
	}

	now := s.clock.Now()
	var result domain.Ticket

	err := s.events.WithTx(ctx, func(txCtx context.Context) error {
		ticket, err := s.tickets.GetTicketForUpdate(txCtx, ticketID)
		if err != nil {
			return err
		}
		if ticket.Owner != caller {
			return domain.ErrNotTicketOwner
		}
		if ticket.Used {
			return domain.ErrTicketUsed
		}

		// Lock the event row so the recipient's count and the active flag
		// cannot move under a concurrent transfer, purchase, or cancel.
		event, err := s.events.GetEventForUpdate(txCtx, ticket.EventID)
		if err != nil {
			return err
		}
		if !event.Active {
			return domain.ErrEventInactive
		}
		if !now.Before(event.StartsAt) {
			return domain.ErrEventStarted
		}

		held, err := s.tickets.CountByEventAndOwner(txCtx, ticket.EventID, to)
		if err != nil {
			return err
		}
		if held >= s.maxPerUser {
			return domain.ErrPerUserCap
		}

		if err := s.tickets.SetOwner(txCtx, ticketID, to); err != nil {
			return err
		}
		ticket.Owner = to
		result = ticket
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}

	s.publish(ctx, domain.TicketTransferred{
		TicketID: result.ID,
		EventID:  result.EventID,
		From:     caller,
		To:       to,
	})
	return result, nil
}

// UseTicket is the organizer-only check-in action. Marking a ticket used is
// irreversible.
func (s *TicketingService) UseTicket(ctx context.Context, ticketID int64, caller string) (domain.Ticket, error) {
	if caller == "" {
		return domain.Ticket{}, domain.ErrInvalidIdentity
	}

	var result domain.Ticket

	err := s.events.WithTx(ctx, func(txCtx context.Context) error {
		ticket, err := s.tickets.GetTicketForUpdate(txCtx, ticketID)
		if err != nil {
			return err
		}
		event, err := s.events.GetEventForUpdate(txCtx, ticket.EventID)
		if err != nil {
			return err
		}
		if event.Organizer != caller {
			return domain.ErrNotOrganizer
		}
		if ticket.Used {
			return domain.ErrTicketUsed
		}
		if !event.Active {
			return domain.ErrEventInactive
		}

		if err := s.tickets.MarkUsed(txCtx, ticketID); err != nil {
			return err
		}
		ticket.Used = true
		result = ticket
		return nil
	})
	if err != nil {
		return domain.Ticket{}, err
	}

	s.publish(ctx, domain.TicketUsed{
		TicketID: result.ID,
		EventID:  result.EventID,
	})
	return result, nil
}

// CancelEvent deactivates an event before its date. Refunding already-sold
// tickets is deliberately not part of this operation; see the package doc.
func (s *TicketingService) CancelEvent(ctx context.Context, eventID int64, caller string) error {
	if caller == "" {
		return domain.ErrInvalidIdentity
	}

	now := s.clock.Now()

	err := s.events.WithTx(ctx, func(txCtx context.Context) error {
		event, err := s.events.GetEventForUpdate(txCtx, eventID)
		if err != nil {
			return err
		}
		if event.Organizer != caller {
			return domain.ErrNotOrganizer
		}
		if !event.Active {
			return domain.ErrEventInactive
		}
		if !now.Before(event.StartsAt) {
			return domain.ErrEventStarted
		}
		return s.events.Deactivate(txCtx, eventID)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, domain.EventCancelled{EventID: eventID, Organizer: caller})
	return nil
}

func (s *TicketingService) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	return s.events.GetEvent(ctx, id)
}

func (s *TicketingService) ListEvents(ctx context.Context) ([]domain.Event, error) {
	return s.events.ListEvents(ctx)
}

func (s *TicketingService) GetTicket(ctx context.Context, id int64) (domain.Ticket, error) {
	return s.tickets.GetTicket(ctx, id)
}

// UserTicketCount reports how many tickets user currently holds for the
// event. Unknown (event, user) pairs yield zero rather than an error.
func (s *TicketingService) UserTicketCount(ctx context.Context, eventID int64, user string) (int, error) {
	return s.tickets.CountByEventAndOwner(ctx, eventID, user)
}

func (s *TicketingService) AvailableTickets(ctx context.Context, eventID int64) (int, error) {
	event, err := s.events.GetEvent(ctx, eventID)
	if err != nil {
		return 0, err
	}
	return event.Available, nil
}

func (s *TicketingService) TotalEvents(ctx context.Context) (int64, error) {
	return s.events.CountEvents(ctx)
}

func (s *TicketingService) EventExists(ctx context.Context, id int64) (bool, error) {
	return s.events.EventExists(ctx, id)
}

// publish runs after the state change has committed. Notifications are
// observational; a publish failure must not unwind a committed operation.
func (s *TicketingService) publish(ctx context.Context, n domain.Notification) {
	_ = s.notifier.Publish(ctx, n)
}
