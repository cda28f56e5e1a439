package api

import (
	"context"

	"raffle/application"
	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/shopspring/decimal"
)

// Ledger is the subset of application.WalletLedger the HTTP layer calls
type Ledger interface {
	GetStats(ctx context.Context) (*entities.GlobalStats, error)
	SetTicketPrice(ctx context.Context, price decimal.Decimal) (*entities.GlobalStats, error)
	SetAutoDrawSchedule(ctx context.Context, days int) (*entities.GlobalStats, error)

	BuyTickets(ctx context.Context, userID int64, quantity int) (*interfaces.PurchaseResult, error)
	DrawWinners(ctx context.Context) (*interfaces.DrawResult, error)

	RequestDeposit(ctx context.Context, req interfaces.DepositRequest) (*entities.Transaction, error)
	RequestWithdrawal(ctx context.Context, req interfaces.WithdrawalRequest) (*entities.Transaction, error)
	ApproveOrReject(ctx context.Context, txID int64, action entities.DecisionAction, adjustedAmount *decimal.Decimal) (*interfaces.DecisionResult, error)
	DeleteTransaction(ctx context.Context, txID int64) (*entities.Transaction, error)
	ListTransactions(ctx context.Context, limit int) ([]*entities.Transaction, error)
	ListUserTransactions(ctx context.Context, userID int64, limit int) ([]*entities.Transaction, error)
	CreatePaymentToken(ctx context.Context, userID int64, amount decimal.Decimal) (*application.PaymentTokenResult, error)

	GetProfile(ctx context.Context, userID int64) (*entities.Account, error)
	UpdateDisplayName(ctx context.Context, userID int64, name string) (*entities.Account, error)
	ListAccounts(ctx context.Context) ([]*entities.Account, error)
	ListUserTickets(ctx context.Context, userID int64) ([]*entities.Ticket, error)
	ListBalanceHistory(ctx context.Context, userID int64, limit int) ([]*entities.BalanceHistory, error)
	AdjustBalance(ctx context.Context, userID int64, amount decimal.Decimal, direction interfaces.AdjustDirection) (*entities.Account, error)
	ClaimCommission(ctx context.Context, userID int64) (*entities.Account, decimal.Decimal, error)
}

var _ Ledger = (*application.WalletLedger)(nil)
