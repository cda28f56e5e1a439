package services

import (
	"testing"
	"time"

	"raffle/domain/entities"
	"raffle/domain/testhelpers"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// Test constants for consistent test data
const (
	TestHouseID = int64(1)
	TestUser1ID = int64(100)
	TestUser2ID = int64(200)
	TestUser3ID = int64(300)
)

// TestMocks aggregates all repository mocks for testing
type TestMocks struct {
	AccountRepo        *testhelpers.MockAccountRepository
	TicketRepo         *testhelpers.MockTicketRepository
	TransactionRepo    *testhelpers.MockTransactionRepository
	StatsRepo          *testhelpers.MockGlobalStatsRepository
	BalanceHistoryRepo *testhelpers.MockBalanceHistoryRepository
	EventPublisher     *testhelpers.MockEventPublisher
	Sampler            *testhelpers.MockTicketSampler
}

// NewTestMocks creates a new set of mocks. Balance history and events are
// accepted by default since most tests assert on balances instead.
func NewTestMocks() *TestMocks {
	m := &TestMocks{
		AccountRepo:        &testhelpers.MockAccountRepository{},
		TicketRepo:         &testhelpers.MockTicketRepository{},
		TransactionRepo:    &testhelpers.MockTransactionRepository{},
		StatsRepo:          &testhelpers.MockGlobalStatsRepository{},
		BalanceHistoryRepo: &testhelpers.MockBalanceHistoryRepository{},
		EventPublisher:     &testhelpers.MockEventPublisher{},
		Sampler:            &testhelpers.MockTicketSampler{},
	}
	m.BalanceHistoryRepo.On("Record", mock.Anything, mock.Anything).Return(nil).Maybe()
	m.EventPublisher.On("Publish", mock.Anything).Return(nil).Maybe()
	return m
}

// AssertAllExpectations verifies all mock expectations were met
func (m *TestMocks) AssertAllExpectations(t *testing.T) {
	m.AccountRepo.AssertExpectations(t)
	m.TicketRepo.AssertExpectations(t)
	m.TransactionRepo.AssertExpectations(t)
	m.StatsRepo.AssertExpectations(t)
	m.BalanceHistoryRepo.AssertExpectations(t)
	m.EventPublisher.AssertExpectations(t)
	m.Sampler.AssertExpectations(t)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testAccount(id int64, balance, won string) *entities.Account {
	name := "user"
	return &entities.Account{
		ID:                id,
		Username:          "user",
		DisplayName:       &name,
		Role:              entities.RoleUser,
		Balance:           dec(balance),
		WonBalance:        dec(won),
		CommissionBalance: decimal.Zero,
		CreatedAt:         time.Now(),
		UpdatedAt:         time.Now(),
	}
}

func testStats(totalSold int64, price string) *entities.GlobalStats {
	return &entities.GlobalStats{
		TotalSold:   totalSold,
		TicketPrice: dec(price),
	}
}

// deltaEq matches an AccountDelta by decimal value rather than representation
func deltaEq(expected entities.AccountDelta) interface{} {
	return mock.MatchedBy(func(d entities.AccountDelta) bool {
		return d.Balance.Equal(expected.Balance) &&
			d.WonBalance.Equal(expected.WonBalance) &&
			d.CommissionBalance.Equal(expected.CommissionBalance) &&
			d.TicketsOwned == expected.TicketsOwned
	})
}

// decEq matches a decimal argument by value
func decEq(expected string) interface{} {
	want := dec(expected)
	return mock.MatchedBy(func(d decimal.Decimal) bool {
		return d.Equal(want)
	})
}

func tickets(ownerID int64, first int64, n int) []*entities.Ticket {
	out := make([]*entities.Ticket, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &entities.Ticket{ID: first + int64(i), OwnerID: ownerID, IssuedAt: time.Now()})
	}
	return out
}
