package postgres

import (
	"context"
	"fmt"

	"github.com/cimillas/ticket-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventRegistry stores events. IDs come from the table's identity sequence,
// so they are assigned only on successful insert and never reused.
type EventRegistry struct {
	pool *pgxpool.Pool
}

func NewEventRegistry(pool *pgxpool.Pool) *EventRegistry {
	return &EventRegistry{pool: pool}
}

func (r *EventRegistry) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return withTx(ctx, r.pool, fn)
}

const eventColumns = `id, name, starts_at, price, total, available, organizer, active, created_at`

func (r *EventRegistry) CreateEvent(ctx context.Context, event domain.Event) (int64, error) {
	const stmt = `
INSERT INTO events (name, starts_at, price, total, available, organizer, active, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id`

	var id int64
	err := r.queryRow(ctx, stmt,
		event.Name,
		event.StartsAt,
		event.Price,
		event.Total,
		event.Available,
		event.Organizer,
		event.Active,
		event.CreatedAt,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create event: %w", err)
	}
	return id, nil
}

func (r *EventRegistry) GetEvent(ctx context.Context, id int64) (domain.Event, error) {
	return r.getEvent(ctx, id, false)
}

func (r *EventRegistry) GetEventForUpdate(ctx context.Context, id int64) (domain.Event, error) {
	return r.getEvent(ctx, id, true)
}

func (r *EventRegistry) getEvent(ctx context.Context, id int64, forUpdate bool) (domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var e domain.Event
	err := r.queryRow(ctx, query, id).
		Scan(&e.ID, &e.Name, &e.StartsAt, &e.Price, &e.Total, &e.Available, &e.Organizer, &e.Active, &e.CreatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Event{}, domain.ErrEventNotFound
		}
		return domain.Event{}, fmt.Errorf("get event: %w", err)
	}
	return e, nil
}

// DecrementAvailable relies on the caller having checked n <= available under
// a row lock; the guard in the WHERE clause is the backstop for that contract.
func (r *EventRegistry) DecrementAvailable(ctx context.Context, id int64, n int) error {
	const stmt = `UPDATE events SET available = available - $2 WHERE id = $1 AND available >= $2`

	tag, err := r.exec(ctx, stmt, id, n)
	if err != nil {
		return fmt.Errorf("decrement available: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrSoldOut
	}
	return nil
}

func (r *EventRegistry) Deactivate(ctx context.Context, id int64) error {
	const stmt = `UPDATE events SET active = FALSE WHERE id = $1`

	tag, err := r.exec(ctx, stmt, id)
	if err != nil {
		return fmt.Errorf("deactivate event: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrEventNotFound
	}
	return nil
}

func (r *EventRegistry) ListEvents(ctx context.Context) ([]domain.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY id`

	rows, err := r.query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.Name, &e.StartsAt, &e.Price, &e.Total, &e.Available, &e.Organizer, &e.Active, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

func (r *EventRegistry) CountEvents(ctx context.Context) (int64, error) {
	var count int64
	if err := r.queryRow(ctx, `SELECT COUNT(*) FROM events`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

func (r *EventRegistry) EventExists(ctx context.Context, id int64) (bool, error) {
	var exists bool
	if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, fmt.Errorf("event exists: %w", err)
	}
	return exists, nil
}

func (r *EventRegistry) exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Exec(ctx, sql, args...)
	}
	return r.pool.Exec(ctx, sql, args...)
}

func (r *EventRegistry) query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if tx := txFromContext(ctx); tx != nil {
		return tx.Query(ctx, sql, args...)
	}
	return r.pool.Query(ctx, sql, args...)
}

func (r *EventRegistry) queryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if tx := txFromContext(ctx); tx != nil {
		return tx.QueryRow(ctx, sql, args...)
	}
	return r.pool.QueryRow(ctx, sql, args...)
}
