package events

import (
	"time"

	"raffle/domain/entities"

	"github.com/shopspring/decimal"
)

// EventType represents different types of events in the system
type EventType string

const (
	EventTypeBalanceChange        EventType = "balance_change"
	EventTypeTicketsPurchased     EventType = "tickets_purchased"
	EventTypeTransactionRequested EventType = "transaction_requested"
	EventTypeTransactionDecided   EventType = "transaction_decided"
	EventTypeDrawCompleted        EventType = "draw_completed"
	EventTypeDrawScheduleChanged  EventType = "draw_schedule_changed"
)

// Event is the base interface for all events
type Event interface {
	Type() EventType
}

// BalanceChangeEvent represents a movement of one balance bucket
type BalanceChangeEvent struct {
	AccountID       int64                    `json:"account_id"`
	Bucket          entities.BalanceBucket   `json:"bucket"`
	OldBalance      decimal.Decimal          `json:"old_balance"`
	NewBalance      decimal.Decimal          `json:"new_balance"`
	ChangeAmount    decimal.Decimal          `json:"change_amount"`
	TransactionType entities.TransactionType `json:"transaction_type"`
}

func (e BalanceChangeEvent) Type() EventType {
	return EventTypeBalanceChange
}

// TicketsPurchasedEvent is emitted once per successful purchase
type TicketsPurchasedEvent struct {
	AccountID   int64           `json:"account_id"`
	Quantity    int             `json:"quantity"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	FirstSerial int64           `json:"first_serial"`
	LastSerial  int64           `json:"last_serial"`
	TotalSold   int64           `json:"total_sold"`
}

func (e TicketsPurchasedEvent) Type() EventType {
	return EventTypeTicketsPurchased
}

// TransactionRequestedEvent is emitted when a deposit or withdrawal is filed
type TransactionRequestedEvent struct {
	TransactionID int64                    `json:"transaction_id"`
	AccountID     int64                    `json:"account_id"`
	Kind          entities.TransactionKind `json:"kind"`
	Amount        decimal.Decimal          `json:"amount"`
	Method        string                   `json:"method"`
}

func (e TransactionRequestedEvent) Type() EventType {
	return EventTypeTransactionRequested
}

// TransactionDecidedEvent is emitted when an admin approves or rejects a transaction
type TransactionDecidedEvent struct {
	TransactionID int64                      `json:"transaction_id"`
	AccountID     int64                      `json:"account_id"`
	Kind          entities.TransactionKind   `json:"kind"`
	Amount        decimal.Decimal            `json:"amount"`
	Status        entities.TransactionStatus `json:"status"`
	Adjusted      bool                       `json:"adjusted"`
}

func (e TransactionDecidedEvent) Type() EventType {
	return EventTypeTransactionDecided
}

// DrawWinner is one ranked winner inside a DrawCompletedEvent
type DrawWinner struct {
	Rank      int             `json:"rank"`
	AccountID int64           `json:"account_id"`
	TicketID  int64           `json:"ticket_id"`
	Name      string          `json:"name"`
	Prize     decimal.Decimal `json:"prize"`
}

// DrawCompletedEvent is emitted after a draw has paid out and reset the cycle
type DrawCompletedEvent struct {
	TicketsSold int64           `json:"tickets_sold"`
	GrossPool   decimal.Decimal `json:"gross_pool"`
	HouseFee    decimal.Decimal `json:"house_fee"`
	Unclaimed   decimal.Decimal `json:"unclaimed"`
	Winners     []DrawWinner    `json:"winners"`
	Scheduled   bool            `json:"scheduled"`
	DrawnAt     time.Time       `json:"drawn_at"`
}

func (e DrawCompletedEvent) Type() EventType {
	return EventTypeDrawCompleted
}

// DrawScheduleChangedEvent is emitted when the auto-draw schedule is reconfigured or advanced
type DrawScheduleChangedEvent struct {
	AutoDrawDays int        `json:"auto_draw_days"`
	NextDrawTime *time.Time `json:"next_draw_time,omitempty"`
}

func (e DrawScheduleChangedEvent) Type() EventType {
	return EventTypeDrawScheduleChanged
}
