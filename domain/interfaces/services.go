package interfaces

import (
	"context"
	"time"

	"raffle/domain/entities"

	"github.com/shopspring/decimal"
)

// PurchaseResult is the outcome of a ticket purchase
type PurchaseResult struct {
	Quantity      int
	TotalCost     decimal.Decimal
	Debit         entities.Debit
	NewBalance    decimal.Decimal
	NewWonBalance decimal.Decimal
	TotalSold     int64
	FirstSerial   int64
	LastSerial    int64
	Tickets       []*entities.Ticket
}

// PurchaseService defines the interface for buying tickets
type PurchaseService interface {
	// BuyTickets charges the buyer at the current price and issues quantity serials
	BuyTickets(ctx context.Context, userID int64, quantity int) (*PurchaseResult, error)
}

// DepositRequest describes a deposit awaiting approval
type DepositRequest struct {
	UserID   int64
	Amount   decimal.Decimal
	Method   string
	Note     string
	ProofRef *string
}

// WithdrawalRequest describes a withdrawal awaiting approval
type WithdrawalRequest struct {
	UserID int64
	Amount decimal.Decimal
	Method string
	Note   string
	Payout entities.WithdrawalPayout
}

// DecisionResult is the outcome of approving or rejecting a transaction
type DecisionResult struct {
	Transaction *entities.Transaction
	Account     *entities.Account
}

// TransactionService defines the interface for the approval workflow
type TransactionService interface {
	// RequestDeposit files a pending deposit
	RequestDeposit(ctx context.Context, req DepositRequest) (*entities.Transaction, error)

	// RequestWithdrawal files a pending withdrawal after checking combined funds
	RequestWithdrawal(ctx context.Context, req WithdrawalRequest) (*entities.Transaction, error)

	// ApproveOrReject decides a pending transaction, optionally correcting its amount first
	ApproveOrReject(ctx context.Context, txID int64, action entities.DecisionAction, adjustedAmount *decimal.Decimal) (*DecisionResult, error)

	// DeleteTransaction removes a transaction record without touching balances
	DeleteTransaction(ctx context.Context, txID int64) (*entities.Transaction, error)

	// ListTransactions returns the newest transactions for admin review
	ListTransactions(ctx context.Context, limit int) ([]*entities.Transaction, error)

	// ListUserTransactions returns one account's newest transactions
	ListUserTransactions(ctx context.Context, userID int64, limit int) ([]*entities.Transaction, error)
}

// DrawWinner is one ranked winner of a draw
type DrawWinner struct {
	Rank      int
	TicketID  int64
	AccountID int64
	Name      string
	Prize     decimal.Decimal
}

// DrawResult is the outcome of a completed draw
type DrawResult struct {
	TicketsSold int64
	Split       entities.PrizeSplit
	Unclaimed   decimal.Decimal
	Winners     []DrawWinner
	DrawnAt     time.Time
}

// ScheduledDrawResult is the outcome of one scheduler check
type ScheduledDrawResult struct {
	Due          bool        // The deadline had passed and was advanced
	NextDrawTime *time.Time  // Deadline after this check
	Draw         *DrawResult // Nil when nothing was due or no tickets were sold
}

// DrawService defines the interface for running draws
type DrawService interface {
	// DrawWinners samples up to three tickets, pays out and resets the cycle
	DrawWinners(ctx context.Context) (*DrawResult, error)

	// RunScheduledDraw advances a passed deadline and draws in the same unit
	RunScheduledDraw(ctx context.Context, now time.Time) (*ScheduledDrawResult, error)
}

// StatsService defines the interface for reading and configuring GlobalStats
type StatsService interface {
	// GetStats reads GlobalStats fresh from storage
	GetStats(ctx context.Context) (*entities.GlobalStats, error)

	// SetTicketPrice changes the ticket price
	SetTicketPrice(ctx context.Context, price decimal.Decimal) (*entities.GlobalStats, error)

	// SetAutoDrawSchedule sets the recurring draw interval in days; zero disables it
	SetAutoDrawSchedule(ctx context.Context, days int, now time.Time) (*entities.GlobalStats, error)
}

// AdjustDirection says whether an admin adjustment adds to or subtracts from a balance
type AdjustDirection string

const (
	AdjustAdd      AdjustDirection = "add"
	AdjustSubtract AdjustDirection = "subtract"
)

// AccountService defines the interface for per-account operations
type AccountService interface {
	// GetProfile returns an account by ID
	GetProfile(ctx context.Context, userID int64) (*entities.Account, error)

	// UpdateDisplayName changes an account's display name
	UpdateDisplayName(ctx context.Context, userID int64, name string) (*entities.Account, error)

	// ListAccounts returns every account
	ListAccounts(ctx context.Context) ([]*entities.Account, error)

	// ListTickets returns an account's live tickets
	ListTickets(ctx context.Context, userID int64) ([]*entities.Ticket, error)

	// AdjustBalance directly credits or debits the spendable balance
	AdjustBalance(ctx context.Context, userID int64, amount decimal.Decimal, direction AdjustDirection) (*entities.Account, error)

	// ClaimCommission moves an admin's whole commission balance into their spendable balance
	ClaimCommission(ctx context.Context, userID int64) (*entities.Account, decimal.Decimal, error)
}

// TicketSampler picks k distinct offsets uniformly from [0, n)
type TicketSampler interface {
	Sample(n int64, k int) ([]int64, error)
}
