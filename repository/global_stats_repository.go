package repository

import (
	"context"
	"fmt"
	"time"

	"raffle/database"
	"raffle/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// statsID is the fixed key of the singleton row seeded by the migrations
const statsID = 1

// drawLockKey identifies the advisory lock that serializes draws
const drawLockKey int64 = 0x72616666 // "raff"

const statsColumns = `
	total_sold, ticket_price,
	winner1_name, winner1_ticket, winner1_prize,
	winner2_name, winner2_ticket, winner2_prize,
	winner3_name, winner3_ticket, winner3_prize,
	auto_draw_days, next_draw_time, last_draw_at, updated_at`

// GlobalStatsRepository implements access to the singleton raffle state
type GlobalStatsRepository struct {
	q Queryable
}

// NewGlobalStatsRepository creates a new global stats repository
func NewGlobalStatsRepository(db *database.DB) *GlobalStatsRepository {
	return &GlobalStatsRepository{q: db.Pool}
}

// newGlobalStatsRepository creates a new global stats repository with a transaction
func newGlobalStatsRepository(tx Queryable) *GlobalStatsRepository {
	return &GlobalStatsRepository{q: tx}
}

func scanStats(row pgx.Row) (*entities.GlobalStats, error) {
	var stats entities.GlobalStats
	w := &stats.Winners
	err := row.Scan(
		&stats.TotalSold,
		&stats.TicketPrice,
		&w[0].Name, &w[0].TicketID, &w[0].Prize,
		&w[1].Name, &w[1].TicketID, &w[1].Prize,
		&w[2].Name, &w[2].TicketID, &w[2].Prize,
		&stats.AutoDrawDays,
		&stats.NextDrawTime,
		&stats.LastDrawAt,
		&stats.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// Get reads the current stats
func (r *GlobalStatsRepository) Get(ctx context.Context) (*entities.GlobalStats, error) {
	query := `SELECT ` + statsColumns + ` FROM global_stats WHERE id = $1`

	stats, err := scanStats(r.q.QueryRow(ctx, query, statsID))
	if err != nil {
		return nil, fmt.Errorf("failed to get global stats: %w", err)
	}
	return stats, nil
}

// GetForUpdate reads the stats and locks the row until the transaction ends
func (r *GlobalStatsRepository) GetForUpdate(ctx context.Context) (*entities.GlobalStats, error) {
	query := `SELECT ` + statsColumns + ` FROM global_stats WHERE id = $1 FOR UPDATE`

	stats, err := scanStats(r.q.QueryRow(ctx, query, statsID))
	if err != nil {
		return nil, fmt.Errorf("failed to lock global stats: %w", err)
	}
	return stats, nil
}

// AcquireDrawLock takes a transaction-scoped advisory lock, released on commit or rollback
func (r *GlobalStatsRepository) AcquireDrawLock(ctx context.Context) error {
	if _, err := r.q.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, drawLockKey); err != nil {
		return fmt.Errorf("failed to acquire draw lock: %w", err)
	}
	return nil
}

// IncrementTotalSold adds quantity to the cycle's sold count and returns the new total
func (r *GlobalStatsRepository) IncrementTotalSold(ctx context.Context, quantity int) (int64, error) {
	query := `
		UPDATE global_stats
		SET total_sold = total_sold + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING total_sold
	`

	var total int64
	if err := r.q.QueryRow(ctx, query, statsID, quantity).Scan(&total); err != nil {
		return 0, fmt.Errorf("failed to increment total sold: %w", err)
	}
	return total, nil
}

// RecordDraw overwrites the winner slots and starts a new cycle
func (r *GlobalStatsRepository) RecordDraw(ctx context.Context, winners [entities.WinnerSlots]entities.WinnerSlot, drawnAt time.Time) error {
	query := `
		UPDATE global_stats
		SET winner1_name = $2, winner1_ticket = $3, winner1_prize = $4,
		    winner2_name = $5, winner2_ticket = $6, winner2_prize = $7,
		    winner3_name = $8, winner3_ticket = $9, winner3_prize = $10,
		    total_sold = 0,
		    last_draw_at = $11,
		    updated_at = NOW()
		WHERE id = $1
	`

	args := []any{statsID}
	for _, w := range winners {
		prize := w.Prize
		if !w.IsAwarded() {
			prize = decimal.Zero
		}
		args = append(args, w.Name, w.TicketID, prize)
	}
	args = append(args, drawnAt)

	if _, err := r.q.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to record draw: %w", err)
	}
	return nil
}

// SetTicketPrice changes the ticket price
func (r *GlobalStatsRepository) SetTicketPrice(ctx context.Context, price decimal.Decimal) error {
	query := `UPDATE global_stats SET ticket_price = $2, updated_at = NOW() WHERE id = $1`

	if _, err := r.q.Exec(ctx, query, statsID, price); err != nil {
		return fmt.Errorf("failed to set ticket price: %w", err)
	}
	return nil
}

// SetAutoDrawSchedule stores the interval and next deadline; a nil deadline clears it
func (r *GlobalStatsRepository) SetAutoDrawSchedule(ctx context.Context, days int, nextDrawTime *time.Time) error {
	query := `UPDATE global_stats SET auto_draw_days = $2, next_draw_time = $3, updated_at = NOW() WHERE id = $1`

	if _, err := r.q.Exec(ctx, query, statsID, days, nextDrawTime); err != nil {
		return fmt.Errorf("failed to set auto draw schedule: %w", err)
	}
	return nil
}
