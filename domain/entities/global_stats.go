package entities

import (
	"time"

	"github.com/shopspring/decimal"
)

// WinnerSlots is the number of ranked prizes per draw
const WinnerSlots = 3

// WinnerSlot records one ranked winner of the last completed draw.
// Name and TicketID are nil when the rank was not awarded.
type WinnerSlot struct {
	Name     *string
	TicketID *int64
	Prize    decimal.Decimal
}

// IsAwarded returns true if a ticket won this rank
func (w WinnerSlot) IsAwarded() bool {
	return w.TicketID != nil
}

// GlobalStats is the singleton raffle state
type GlobalStats struct {
	TotalSold    int64                   `db:"total_sold"`
	TicketPrice  decimal.Decimal         `db:"ticket_price"`
	Winners      [WinnerSlots]WinnerSlot `db:"-"`
	AutoDrawDays int                     `db:"auto_draw_days"`
	NextDrawTime *time.Time              `db:"next_draw_time"`
	LastDrawAt   *time.Time              `db:"last_draw_at"`
	UpdatedAt    time.Time               `db:"updated_at"`
}

// GrossPool is the ticket money collected in the current cycle
func (s *GlobalStats) GrossPool() decimal.Decimal {
	return s.TicketPrice.Mul(decimal.NewFromInt(s.TotalSold))
}

// TicketCost returns the price of quantity tickets at the current price
func (s *GlobalStats) TicketCost(quantity int) decimal.Decimal {
	return s.TicketPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// AutoDrawEnabled returns true if a recurring draw is configured
func (s *GlobalStats) AutoDrawEnabled() bool {
	return s.AutoDrawDays > 0
}

// AutoDrawDue returns true once the scheduled deadline has passed
func (s *GlobalStats) AutoDrawDue(now time.Time) bool {
	if !s.AutoDrawEnabled() || s.NextDrawTime == nil {
		return false
	}
	return !now.Before(*s.NextDrawTime)
}

// NextDeadline computes the deadline that follows now for the configured interval
func (s *GlobalStats) NextDeadline(now time.Time) *time.Time {
	if !s.AutoDrawEnabled() {
		return nil
	}
	next := now.Add(time.Duration(s.AutoDrawDays) * 24 * time.Hour).UTC()
	return &next
}
