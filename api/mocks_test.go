package api

import (
	"context"

	"raffle/application"
	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockLedger is a mock implementation of Ledger
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) GetStats(ctx context.Context) (*entities.GlobalStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GlobalStats), args.Error(1)
}

func (m *MockLedger) SetTicketPrice(ctx context.Context, price decimal.Decimal) (*entities.GlobalStats, error) {
	args := m.Called(ctx, price)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GlobalStats), args.Error(1)
}

func (m *MockLedger) SetAutoDrawSchedule(ctx context.Context, days int) (*entities.GlobalStats, error) {
	args := m.Called(ctx, days)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GlobalStats), args.Error(1)
}

func (m *MockLedger) BuyTickets(ctx context.Context, userID int64, quantity int) (*interfaces.PurchaseResult, error) {
	args := m.Called(ctx, userID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.PurchaseResult), args.Error(1)
}

func (m *MockLedger) DrawWinners(ctx context.Context) (*interfaces.DrawResult, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.DrawResult), args.Error(1)
}

func (m *MockLedger) RequestDeposit(ctx context.Context, req interfaces.DepositRequest) (*entities.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockLedger) RequestWithdrawal(ctx context.Context, req interfaces.WithdrawalRequest) (*entities.Transaction, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockLedger) ApproveOrReject(ctx context.Context, txID int64, action entities.DecisionAction, adjustedAmount *decimal.Decimal) (*interfaces.DecisionResult, error) {
	args := m.Called(ctx, txID, action, adjustedAmount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.DecisionResult), args.Error(1)
}

func (m *MockLedger) DeleteTransaction(ctx context.Context, txID int64) (*entities.Transaction, error) {
	args := m.Called(ctx, txID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockLedger) ListTransactions(ctx context.Context, limit int) ([]*entities.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockLedger) ListUserTransactions(ctx context.Context, userID int64, limit int) ([]*entities.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockLedger) CreatePaymentToken(ctx context.Context, userID int64, amount decimal.Decimal) (*application.PaymentTokenResult, error) {
	args := m.Called(ctx, userID, amount)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*application.PaymentTokenResult), args.Error(1)
}

func (m *MockLedger) GetProfile(ctx context.Context, userID int64) (*entities.Account, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockLedger) UpdateDisplayName(ctx context.Context, userID int64, name string) (*entities.Account, error) {
	args := m.Called(ctx, userID, name)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockLedger) ListAccounts(ctx context.Context) ([]*entities.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Account), args.Error(1)
}

func (m *MockLedger) ListUserTickets(ctx context.Context, userID int64) ([]*entities.Ticket, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Ticket), args.Error(1)
}

func (m *MockLedger) ListBalanceHistory(ctx context.Context, userID int64, limit int) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

func (m *MockLedger) AdjustBalance(ctx context.Context, userID int64, amount decimal.Decimal, direction interfaces.AdjustDirection) (*entities.Account, error) {
	args := m.Called(ctx, userID, amount, direction)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockLedger) ClaimCommission(ctx context.Context, userID int64) (*entities.Account, decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, decimal.Zero, args.Error(2)
	}
	return args.Get(0).(*entities.Account), args.Get(1).(decimal.Decimal), args.Error(2)
}
