package interfaces

import (
	"context"
	"time"

	"raffle/domain/entities"
	"raffle/domain/events"

	"github.com/shopspring/decimal"
)

// AccountRepository defines the interface for account data access
type AccountRepository interface {
	// GetByID retrieves an account, returning nil when it does not exist
	GetByID(ctx context.Context, id int64) (*entities.Account, error)

	// GetByIDForUpdate retrieves an account and row-locks it until the transaction ends
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Account, error)

	// GetByIDs retrieves several accounts keyed by ID; missing IDs are absent from the map
	GetByIDs(ctx context.Context, ids []int64) (map[int64]*entities.Account, error)

	// Create creates a new account with zero balances
	Create(ctx context.Context, username string, displayName *string, role entities.Role) (*entities.Account, error)

	// ApplyDelta adds delta to the account in one conditional update.
	// Returns an InsufficientFunds error when any bucket would go negative.
	ApplyDelta(ctx context.Context, id int64, delta entities.AccountDelta) (*entities.Account, error)

	// ResetTicketsOwned sets tickets_owned to zero on every account
	ResetTicketsOwned(ctx context.Context) (int64, error)

	// UpdateDisplayName changes the display name and returns the updated account
	UpdateDisplayName(ctx context.Context, id int64, displayName string) (*entities.Account, error)

	// List returns all accounts ordered by ID
	List(ctx context.Context) ([]*entities.Account, error)
}

// TicketRepository defines the interface for the ticket ledger
type TicketRepository interface {
	// CreateBatch issues quantity new serials to one owner in a single insert
	CreateBatch(ctx context.Context, ownerID int64, quantity int) ([]*entities.Ticket, error)

	// Count returns the number of live tickets
	Count(ctx context.Context) (int64, error)

	// GetByOffset returns the ticket at a zero-based offset in serial order
	GetByOffset(ctx context.Context, offset int64) (*entities.Ticket, error)

	// ListByOwner returns an owner's live tickets, newest first
	ListByOwner(ctx context.Context, ownerID int64) ([]*entities.Ticket, error)

	// DeleteAll removes every live ticket without restarting the serial sequence
	DeleteAll(ctx context.Context) (int64, error)
}

// TransactionRepository defines the interface for the deposit/withdrawal ledger
type TransactionRepository interface {
	// Create inserts a new transaction and fills in its ID and timestamps
	Create(ctx context.Context, tx *entities.Transaction) error

	// GetByID retrieves a transaction, returning nil when it does not exist
	GetByID(ctx context.Context, id int64) (*entities.Transaction, error)

	// GetByIDForUpdate retrieves and row-locks a transaction
	GetByIDForUpdate(ctx context.Context, id int64) (*entities.Transaction, error)

	// UpdateAmount changes the amount of a pending transaction
	UpdateAmount(ctx context.Context, id int64, amount decimal.Decimal) error

	// UpdateStatus moves a pending transaction to a terminal status
	UpdateStatus(ctx context.Context, id int64, status entities.TransactionStatus) error

	// List returns the newest transactions across all accounts with owner names
	List(ctx context.Context, limit int) ([]*entities.Transaction, error)

	// ListByUser returns one account's newest transactions
	ListByUser(ctx context.Context, userID int64, limit int) ([]*entities.Transaction, error)

	// Delete removes a transaction and returns it, or nil when it did not exist
	Delete(ctx context.Context, id int64) (*entities.Transaction, error)
}

// GlobalStatsRepository defines the interface for the singleton raffle state
type GlobalStatsRepository interface {
	// Get reads the current stats
	Get(ctx context.Context) (*entities.GlobalStats, error)

	// GetForUpdate reads and row-locks the stats row
	GetForUpdate(ctx context.Context) (*entities.GlobalStats, error)

	// AcquireDrawLock takes the transaction-scoped lock that serializes draws
	AcquireDrawLock(ctx context.Context) error

	// IncrementTotalSold adds quantity to the cycle's sold count and returns the new total
	IncrementTotalSold(ctx context.Context, quantity int) (int64, error)

	// RecordDraw overwrites the winner slots and resets total_sold
	RecordDraw(ctx context.Context, winners [entities.WinnerSlots]entities.WinnerSlot, drawnAt time.Time) error

	// SetTicketPrice changes the price of future tickets
	SetTicketPrice(ctx context.Context, price decimal.Decimal) error

	// SetAutoDrawSchedule stores the auto-draw interval and next deadline
	SetAutoDrawSchedule(ctx context.Context, days int, nextDrawTime *time.Time) error
}

// BalanceHistoryRepository defines the interface for balance history tracking
type BalanceHistoryRepository interface {
	// Record creates a new balance history entry
	Record(ctx context.Context, history *entities.BalanceHistory) error

	// GetByAccount returns balance history for an account, newest first
	GetByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.BalanceHistory, error)
}

// EventPublisher defines the interface for publishing events
type EventPublisher interface {
	Publish(event events.Event) error
}

// TransactionalEventPublisher buffers events until the surrounding transaction finishes
type TransactionalEventPublisher interface {
	EventPublisher

	// Flush publishes buffered events; called after commit
	Flush(ctx context.Context) error

	// Discard drops buffered events; called on rollback
	Discard()
}
