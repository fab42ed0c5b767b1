package postgres

import (
	"context"
	"fmt"

	"github.com/cimillas/ticket-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TicketRegistry stores tickets. Rows are append-only apart from the owner
// and used columns; nothing is ever deleted.
type TicketRegistry struct {
	pool *pgxpool.Pool
}

func NewTicketRegistry(pool *pgxpool.Pool) *TicketRegistry {
	return &TicketRegistry{pool: pool}
}

func (r *TicketRegistry) CreateTicket(ctx context.Context, ticket domain.Ticket) (int64, error) {
	const stmt = `
INSERT INTO tickets (event_id, owner_id, used, purchased_at)
VALUES ($1, $2, $3, $4)
RETURNING id`

	var id int64
	err := r.queryRow(ctx, stmt, ticket.EventID, ticket.Owner, ticket.Used, ticket.PurchasedAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create ticket: %w", err)
	}
	return id, nil
}

func (r *TicketRegistry) GetTicket(ctx context.Context, id int64) (domain.Ticket, error) {
	return r.getTicket(ctx, id, false)
}

func (r *TicketRegistry) GetTicketForUpdate(ctx context.Context, id int64) (domain.Ticket, error) {
	return r.getTicket(ctx, id, true)
}

func (r *TicketRegistry) getTicket(ctx context.Context, id int64, forUpdate bool) (domain.Ticket, error) {
	query := `SELECT id, event_id, owner_id, used, purchased_at FROM tickets WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var t domain.Ticket
	err := r.queryRow(ctx, query, id).Scan(&t.ID, &t.EventID, &t.Owner, &t.Used, &t.PurchasedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Ticket{}, domain.ErrTicketNotFound
		}
		return domain.Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return t, nil
}

func (r *TicketRegistry) SetOwner(ctx context.Context, id int64, owner string) error {
	const stmt = `UPDATE tickets SET owner_id = $2 WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id, owner)
	if err != nil {
		return fmt.Errorf("set ticket owner: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

func (r *TicketRegistry) MarkUsed(ctx context.Context, id int64) error {
	const stmt = `UPDATE tickets SET used = TRUE WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("mark ticket used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrTicketNotFound
	}
	return nil
}

// CountByEventAndOwner derives the per-user cap counter straight from the
// tickets rows, so it reconciles with ownership by construction. Unknown
// (event, owner) pairs count as zero.
func (r *TicketRegistry) CountByEventAndOwner(ctx context.Context, eventID int64, owner string) (int, error) {
	const query = `SELECT COUNT(*) FROM tickets WHERE event_id = $1 AND owner_id = $2`

	var count int
	if err := r.queryRow(ctx, query, eventID, owner).Scan(&count); err != nil {
		return 0, fmt.Errorf("count tickets by owner: %w", err)
	}
	return count, nil
}

func (r *TicketRegistry) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *TicketRegistry) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
