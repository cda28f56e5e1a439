package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"raffle/database"
	"raffle/domain/entities"

	"github.com/jackc/pgx/v5"
)

// TicketRepository implements ticket ledger data access
type TicketRepository struct {
	q Queryable
}

// NewTicketRepository creates a new ticket repository
func NewTicketRepository(db *database.DB) *TicketRepository {
	return &TicketRepository{q: db.Pool}
}

// newTicketRepository creates a new ticket repository with a transaction
func newTicketRepository(tx Queryable) *TicketRepository {
	return &TicketRepository{q: tx}
}

// CreateBatch issues quantity tickets in one statement. Callers hold the stats row
// lock, so the serials of one batch are contiguous.
func (r *TicketRepository) CreateBatch(ctx context.Context, ownerID int64, quantity int) ([]*entities.Ticket, error) {
	if quantity <= 0 {
		return nil, nil
	}

	query := `
		INSERT INTO tickets (owner_id)
		SELECT $1::bigint FROM generate_series(1, $2::int)
		RETURNING id, owner_id, issued_at
	`

	rows, err := r.q.Query(ctx, query, ownerID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to batch create tickets for account %d: %w", ownerID, err)
	}
	defer rows.Close()

	tickets := make([]*entities.Ticket, 0, quantity)
	for rows.Next() {
		var ticket entities.Ticket
		if err := rows.Scan(&ticket.ID, &ticket.OwnerID, &ticket.IssuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket result: %w", err)
		}
		tickets = append(tickets, &ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to batch create tickets for account %d: %w", ownerID, err)
	}

	// RETURNING order is not guaranteed
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].ID < tickets[j].ID })
	return tickets, nil
}

// Count returns the number of live tickets
func (r *TicketRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count tickets: %w", err)
	}
	return count, nil
}

// GetByOffset returns the ticket at a zero-based position in serial order
func (r *TicketRepository) GetByOffset(ctx context.Context, offset int64) (*entities.Ticket, error) {
	query := `
		SELECT id, owner_id, issued_at
		FROM tickets
		ORDER BY id
		OFFSET $1
		LIMIT 1
	`

	var ticket entities.Ticket
	err := r.q.QueryRow(ctx, query, offset).Scan(&ticket.ID, &ticket.OwnerID, &ticket.IssuedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticket at offset %d: %w", offset, err)
	}
	return &ticket, nil
}

// ListByOwner returns an owner's live tickets, newest first
func (r *TicketRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*entities.Ticket, error) {
	query := `
		SELECT id, owner_id, issued_at
		FROM tickets
		WHERE owner_id = $1
		ORDER BY id DESC
	`

	rows, err := r.q.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get tickets for account %d: %w", ownerID, err)
	}
	defer rows.Close()

	var tickets []*entities.Ticket
	for rows.Next() {
		var ticket entities.Ticket
		if err := rows.Scan(&ticket.ID, &ticket.OwnerID, &ticket.IssuedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %w", err)
		}
		tickets = append(tickets, &ticket)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate tickets: %w", err)
	}
	return tickets, nil
}

// DeleteAll removes every live ticket. The serial sequence is left untouched so
// serials are never reused across cycles.
func (r *TicketRepository) DeleteAll(ctx context.Context) (int64, error) {
	tag, err := r.q.Exec(ctx, `DELETE FROM tickets`)
	if err != nil {
		return 0, fmt.Errorf("failed to delete tickets: %w", err)
	}
	return tag.RowsAffected(), nil
}
