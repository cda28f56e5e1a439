package testhelpers

import (
	"context"
	"time"

	"raffle/domain/entities"
	"raffle/domain/events"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// MockAccountRepository is a mock implementation of AccountRepository
type MockAccountRepository struct {
	mock.Mock
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id int64) (*entities.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Account, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*entities.Account, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[int64]*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) Create(ctx context.Context, username string, displayName *string, role entities.Role) (*entities.Account, error) {
	args := m.Called(ctx, username, displayName, role)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) ApplyDelta(ctx context.Context, id int64, delta entities.AccountDelta) (*entities.Account, error) {
	args := m.Called(ctx, id, delta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) ResetTicketsOwned(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockAccountRepository) UpdateDisplayName(ctx context.Context, id int64, displayName string) (*entities.Account, error) {
	args := m.Called(ctx, id, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Account), args.Error(1)
}

func (m *MockAccountRepository) List(ctx context.Context) ([]*entities.Account, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Account), args.Error(1)
}

// MockTicketRepository is a mock implementation of TicketRepository
type MockTicketRepository struct {
	mock.Mock
}

func (m *MockTicketRepository) CreateBatch(ctx context.Context, ownerID int64, quantity int) ([]*entities.Ticket, error) {
	args := m.Called(ctx, ownerID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Ticket), args.Error(1)
}

func (m *MockTicketRepository) Count(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTicketRepository) GetByOffset(ctx context.Context, offset int64) (*entities.Ticket, error) {
	args := m.Called(ctx, offset)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Ticket), args.Error(1)
}

func (m *MockTicketRepository) ListByOwner(ctx context.Context, ownerID int64) ([]*entities.Ticket, error) {
	args := m.Called(ctx, ownerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Ticket), args.Error(1)
}

func (m *MockTicketRepository) DeleteAll(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

// MockTransactionRepository is a mock implementation of TransactionRepository
type MockTransactionRepository struct {
	mock.Mock
}

func (m *MockTransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockTransactionRepository) GetByID(ctx context.Context, id int64) (*entities.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) UpdateAmount(ctx context.Context, id int64, amount decimal.Decimal) error {
	args := m.Called(ctx, id, amount)
	return args.Error(0)
}

func (m *MockTransactionRepository) UpdateStatus(ctx context.Context, id int64, status entities.TransactionStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockTransactionRepository) List(ctx context.Context, limit int) ([]*entities.Transaction, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*entities.Transaction, error) {
	args := m.Called(ctx, userID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.Transaction), args.Error(1)
}

func (m *MockTransactionRepository) Delete(ctx context.Context, id int64) (*entities.Transaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.Transaction), args.Error(1)
}

// MockGlobalStatsRepository is a mock implementation of GlobalStatsRepository
type MockGlobalStatsRepository struct {
	mock.Mock
}

func (m *MockGlobalStatsRepository) Get(ctx context.Context) (*entities.GlobalStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GlobalStats), args.Error(1)
}

func (m *MockGlobalStatsRepository) GetForUpdate(ctx context.Context) (*entities.GlobalStats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.GlobalStats), args.Error(1)
}

func (m *MockGlobalStatsRepository) AcquireDrawLock(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockGlobalStatsRepository) IncrementTotalSold(ctx context.Context, quantity int) (int64, error) {
	args := m.Called(ctx, quantity)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockGlobalStatsRepository) RecordDraw(ctx context.Context, winners [entities.WinnerSlots]entities.WinnerSlot, drawnAt time.Time) error {
	args := m.Called(ctx, winners, drawnAt)
	return args.Error(0)
}

func (m *MockGlobalStatsRepository) SetTicketPrice(ctx context.Context, price decimal.Decimal) error {
	args := m.Called(ctx, price)
	return args.Error(0)
}

func (m *MockGlobalStatsRepository) SetAutoDrawSchedule(ctx context.Context, days int, nextDrawTime *time.Time) error {
	args := m.Called(ctx, days, nextDrawTime)
	return args.Error(0)
}

// MockBalanceHistoryRepository is a mock implementation of BalanceHistoryRepository
type MockBalanceHistoryRepository struct {
	mock.Mock
}

func (m *MockBalanceHistoryRepository) Record(ctx context.Context, history *entities.BalanceHistory) error {
	args := m.Called(ctx, history)
	return args.Error(0)
}

func (m *MockBalanceHistoryRepository) GetByAccount(ctx context.Context, accountID int64, limit int) ([]*entities.BalanceHistory, error) {
	args := m.Called(ctx, accountID, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.BalanceHistory), args.Error(1)
}

// MockEventPublisher is a mock implementation of EventPublisher
type MockEventPublisher struct {
	mock.Mock
}

func (m *MockEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

// MockTicketSampler is a mock implementation of TicketSampler
type MockTicketSampler struct {
	mock.Mock
}

func (m *MockTicketSampler) Sample(n int64, k int) ([]int64, error) {
	args := m.Called(n, k)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

// MockTransactionalEventPublisher is a mock implementation of TransactionalEventPublisher
type MockTransactionalEventPublisher struct {
	mock.Mock
}

func (m *MockTransactionalEventPublisher) Publish(event events.Event) error {
	args := m.Called(event)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Flush(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockTransactionalEventPublisher) Discard() {
	m.Called()
}
