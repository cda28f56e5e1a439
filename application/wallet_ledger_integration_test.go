package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"raffle/application"
	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/infrastructure"
	"raffle/repository/testutil"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type ledgerTestContext struct {
	testDB *testutil.TestDatabase
	ledger *application.WalletLedger
	clock  *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func setupLedgerIntegrationTest(t *testing.T) *ledgerTestContext {
	testDB := testutil.SetupTestDatabase(t)
	clock := &testClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}

	factory := infrastructure.NewUnitOfWorkFactory(testDB.DB, infrastructure.NewNoopEventPublisher())
	ledger := application.NewWalletLedger(factory, application.LedgerOptions{
		HouseAccountID: testutil.HouseAccountID,
		MaxRetries:     5,
		RetryBackoff:   10 * time.Millisecond,
		Clock:          clock.Now,
	})

	return &ledgerTestContext{testDB: testDB, ledger: ledger, clock: clock}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestWalletLedger_DrawPaysRanksAndResetsCycle(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := setupLedgerIntegrationTest(t)
	ctx := context.Background()

	buyer := testutil.CreateTestAccount(t, tc.testDB.DB, "buyer", "100000.00", "0")
	before := testutil.TotalMoney(t, tc.testDB.DB)

	purchase, err := tc.ledger.BuyTickets(ctx, buyer.ID, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), purchase.TotalSold)
	assert.True(t, purchase.TotalCost.Equal(dec("100000")))
	assert.True(t, purchase.NewBalance.IsZero())

	// Purchase money sits in the pool, outside any balance bucket
	assert.True(t, testutil.TotalMoney(t, tc.testDB.DB).Equal(before.Sub(dec("100000"))))

	result, err := tc.ledger.DrawWinners(ctx)
	require.NoError(t, err)
	require.Len(t, result.Winners, 3)
	assert.True(t, result.Split.HouseFee.Equal(dec("10000")))
	assert.True(t, result.Winners[0].Prize.Equal(dec("45000")))
	assert.True(t, result.Winners[1].Prize.Equal(dec("27000")))
	assert.True(t, result.Winners[2].Prize.Equal(dec("18000")))

	seen := map[int64]bool{}
	for _, w := range result.Winners {
		assert.Equal(t, buyer.ID, w.AccountID)
		assert.False(t, seen[w.TicketID], "ticket %d won twice", w.TicketID)
		seen[w.TicketID] = true
	}

	profile, err := tc.ledger.GetProfile(ctx, buyer.ID)
	require.NoError(t, err)
	assert.True(t, profile.WonBalance.Equal(dec("90000")))
	assert.Equal(t, int64(0), profile.TicketsOwned)

	house, err := tc.ledger.GetProfile(ctx, testutil.HouseAccountID)
	require.NoError(t, err)
	assert.True(t, house.CommissionBalance.Equal(dec("10000")))

	stats, err := tc.ledger.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalSold)
	for rank := 0; rank < entities.WinnerSlots; rank++ {
		assert.True(t, stats.Winners[rank].IsAwarded())
	}

	tickets, err := tc.ledger.ListUserTickets(ctx, buyer.ID)
	require.NoError(t, err)
	assert.Empty(t, tickets)

	// The whole pool went back into balances
	assert.True(t, testutil.TotalMoney(t, tc.testDB.DB).Equal(before))
}

func TestWalletLedger_DrawWithFewerTicketsThanRanks(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := setupLedgerIntegrationTest(t)
	ctx := context.Background()

	buyer := testutil.CreateTestAccount(t, tc.testDB.DB, "lonely", "1000.00", "0")
	_, err := tc.ledger.BuyTickets(ctx, buyer.ID, 1)
	require.NoError(t, err)

	result, err := tc.ledger.DrawWinners(ctx)
	require.NoError(t, err)
	require.Len(t, result.Winners, 1)
	assert.True(t, result.Winners[0].Prize.Equal(dec("450")))
	assert.True(t, result.Unclaimed.Equal(dec("450")))

	house, err := tc.ledger.GetProfile(ctx, testutil.HouseAccountID)
	require.NoError(t, err)
	assert.True(t, house.CommissionBalance.Equal(dec("550")))

	stats, err := tc.ledger.GetStats(ctx)
	require.NoError(t, err)
	assert.True(t, stats.Winners[0].IsAwarded())
	assert.False(t, stats.Winners[1].IsAwarded())
	assert.False(t, stats.Winners[2].IsAwarded())
}

func TestWalletLedger_DrawWithNoTickets(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := setupLedgerIntegrationTest(t)

	_, err := tc.ledger.DrawWinners(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrNoTicketsSold))
}

func TestWalletLedger_SerialsKeepGrowingAcrossCycles(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := setupLedgerIntegrationTest(t)
	ctx := context.Background()

	buyer := testutil.CreateTestAccount(t, tc.testDB.DB, "repeat", "10000.00", "0")

	first, err := tc.ledger.BuyTickets(ctx, buyer.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, first.FirstSerial+2, first.LastSerial)

	_, err = tc.ledger.DrawWinners(ctx)
	require.NoError(t, err)

	second, err := tc.ledger.BuyTickets(ctx, buyer.ID, 2)
	require.NoError(t, err)
	assert.Greater(t, second.FirstSerial, first.LastSerial)
	assert.Equal(t, int64(2), second.TotalSold)
}

// failingTicketFactory hands out units whose ticket insert always fails
type failingTicketFactory struct {
	inner application.UnitOfWorkFactory
}

func (f *failingTicketFactory) Create() application.UnitOfWork {
	return &failingTicketUnit{UnitOfWork: f.inner.Create()}
}

type failingTicketUnit struct {
	application.UnitOfWork
}

func (u *failingTicketUnit) TicketRepository() interfaces.TicketRepository {
	return &failingTicketRepo{TicketRepository: u.UnitOfWork.TicketRepository()}
}

type failingTicketRepo struct {
	interfaces.TicketRepository
}

func (r *failingTicketRepo) CreateBatch(ctx context.Context, ownerID int64, quantity int) ([]*entities.Ticket, error) {
	return nil, errors.New("disk full")
}

func TestWalletLedger_FailedPurchaseLeavesNoTrace(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := setupLedgerIntegrationTest(t)
	ctx := context.Background()

	buyer := testutil.CreateTestAccount(t, tc.testDB.DB, "unlucky", "5000.00", "0")

	factory := &failingTicketFactory{
		inner: infrastructure.NewUnitOfWorkFactory(tc.testDB.DB, infrastructure.NewNoopEventPublisher()),
	}
	broken := application.NewWalletLedger(factory, application.LedgerOptions{HouseAccountID: testutil.HouseAccountID})

	_, err := broken.BuyTickets(ctx, buyer.ID, 2)
	require.Error(t, err)
	assert.Equal(t, entities.KindStorageFailure, entities.KindOf(err))

	profile, err := tc.ledger.GetProfile(ctx, buyer.ID)
	require.NoError(t, err)
	assert.True(t, profile.Balance.Equal(dec("5000")))
	assert.Equal(t, int64(0), profile.TicketsOwned)

	stats, err := tc.ledger.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalSold)
}

func TestWalletLedger_ConcurrentPurchasesNeverOverspend(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := setupLedgerIntegrationTest(t)
	ctx := context.Background()

	buyer := testutil.CreateTestAccount(t, tc.testDB.DB, "racer", "5000.00", "0")

	const attempts = 10
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = tc.ledger.BuyTickets(ctx, buyer.ID, 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, entities.ErrInsufficientFunds), "unexpected error: %v", err)
	}
	assert.Equal(t, 5, succeeded)

	profile, err := tc.ledger.GetProfile(ctx, buyer.ID)
	require.NoError(t, err)
	assert.True(t, profile.Balance.IsZero())
	assert.Equal(t, int64(5), profile.TicketsOwned)

	stats, err := tc.ledger.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), stats.TotalSold)
}

func TestWalletLedger_DepositApprovalIsIdempotent(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := setupLedgerIntegrationTest(t)
	ctx := context.Background()

	account := testutil.CreateTestAccount(t, tc.testDB.DB, "depositor", "0", "0")

	tx, err := tc.ledger.RequestDeposit(ctx, interfaces.DepositRequest{
		UserID: account.ID,
		Amount: dec("500.00"),
		Method: entities.MethodManual,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusPending, tx.Status)

	decided, err := tc.ledger.ApproveOrReject(ctx, tx.ID, entities.DecisionApprove, nil)
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusApproved, decided.Transaction.Status)
	assert.True(t, decided.Account.Balance.Equal(dec("500")))

	_, err = tc.ledger.ApproveOrReject(ctx, tx.ID, entities.DecisionApprove, nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrAlreadyProcessed))

	profile, err := tc.ledger.GetProfile(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, profile.Balance.Equal(dec("500")))
}

func TestWalletLedger_ApprovalUsesAdjustedAmount(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := setupLedgerIntegrationTest(t)
	ctx := context.Background()

	account := testutil.CreateTestAccount(t, tc.testDB.DB, "typo", "0", "0")
	tx, err := tc.ledger.RequestDeposit(ctx, interfaces.DepositRequest{
		UserID: account.ID,
		Amount: dec("5000.00"),
		Method: entities.MethodManual,
	})
	require.NoError(t, err)

	adjusted := dec("500.00")
	decided, err := tc.ledger.ApproveOrReject(ctx, tx.ID, entities.DecisionApprove, &adjusted)
	require.NoError(t, err)
	assert.True(t, decided.Transaction.Amount.Equal(adjusted))
	assert.True(t, decided.Account.Balance.Equal(adjusted))
}

func TestWalletLedger_RejectLeavesBalanceUnchanged(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := setupLedgerIntegrationTest(t)
	ctx := context.Background()

	account := testutil.CreateTestAccount(t, tc.testDB.DB, "declined", "300.00", "0")
	tx, err := tc.ledger.RequestDeposit(ctx, interfaces.DepositRequest{
		UserID: account.ID,
		Amount: dec("5000.00"),
		Method: entities.MethodManual,
	})
	require.NoError(t, err)

	decided, err := tc.ledger.ApproveOrReject(ctx, tx.ID, entities.DecisionReject, nil)
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusRejected, decided.Transaction.Status)

	profile, err := tc.ledger.GetProfile(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, profile.Balance.Equal(dec("300.00")))

	history, err := tc.ledger.ListBalanceHistory(ctx, account.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, history)

	_, err = tc.ledger.ApproveOrReject(ctx, tx.ID, entities.DecisionApprove, nil)
	assert.True(t, errors.Is(err, entities.ErrAlreadyProcessed))
}

func TestWalletLedger_WithdrawalDrainsWinningsFirst(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := setupLedgerIntegrationTest(t)
	ctx := context.Background()

	account := testutil.CreateTestAccount(t, tc.testDB.DB, "cashout", "300.00", "900.00")

	_, err := tc.ledger.RequestWithdrawal(ctx, interfaces.WithdrawalRequest{
		UserID: account.ID,
		Amount: dec("1500.00"),
		Payout: entities.WithdrawalPayout{Name: "Aye", Phone: "0912345"},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrInsufficientFunds))

	tx, err := tc.ledger.RequestWithdrawal(ctx, interfaces.WithdrawalRequest{
		UserID: account.ID,
		Amount: dec("1000.00"),
		Payout: entities.WithdrawalPayout{Name: "Aye", Phone: "0912345"},
	})
	require.NoError(t, err)

	decided, err := tc.ledger.ApproveOrReject(ctx, tx.ID, entities.DecisionApprove, nil)
	require.NoError(t, err)
	assert.True(t, decided.Account.WonBalance.IsZero())
	assert.True(t, decided.Account.Balance.Equal(dec("200")))
}

func TestWalletLedger_ScheduledDraw(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := setupLedgerIntegrationTest(t)
	ctx := context.Background()

	stats, err := tc.ledger.SetAutoDrawSchedule(ctx, 2)
	require.NoError(t, err)
	require.NotNil(t, stats.NextDrawTime)
	firstDeadline := *stats.NextDrawTime
	assert.True(t, firstDeadline.Equal(tc.clock.Now().Add(48*time.Hour)))

	t.Run("not yet due", func(t *testing.T) {
		result, err := tc.ledger.RunScheduledDraw(ctx)
		require.NoError(t, err)
		assert.False(t, result.Due)
		assert.Nil(t, result.Draw)
	})

	t.Run("due with no tickets advances deadline", func(t *testing.T) {
		tc.clock.Advance(49 * time.Hour)

		result, err := tc.ledger.RunScheduledDraw(ctx)
		require.NoError(t, err)
		assert.True(t, result.Due)
		assert.Nil(t, result.Draw)
		require.NotNil(t, result.NextDrawTime)
		assert.True(t, result.NextDrawTime.After(firstDeadline))

		stored, err := tc.ledger.GetStats(ctx)
		require.NoError(t, err)
		assert.True(t, stored.NextDrawTime.Equal(*result.NextDrawTime))
	})

	t.Run("due with tickets draws", func(t *testing.T) {
		buyer := testutil.CreateTestAccount(t, tc.testDB.DB, "scheduled", "3000.00", "0")
		_, err := tc.ledger.BuyTickets(ctx, buyer.ID, 3)
		require.NoError(t, err)

		tc.clock.Advance(49 * time.Hour)

		result, err := tc.ledger.RunScheduledDraw(ctx)
		require.NoError(t, err)
		assert.True(t, result.Due)
		require.NotNil(t, result.Draw)
		assert.Len(t, result.Draw.Winners, 3)

		stored, err := tc.ledger.GetStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), stored.TotalSold)
		require.NotNil(t, stored.LastDrawAt)
	})
}

func TestWalletLedger_TicketPriceLockedMidCycle(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := setupLedgerIntegrationTest(t)
	ctx := context.Background()

	stats, err := tc.ledger.SetTicketPrice(ctx, dec("2500.00"))
	require.NoError(t, err)
	assert.True(t, stats.TicketPrice.Equal(dec("2500")))

	buyer := testutil.CreateTestAccount(t, tc.testDB.DB, "pricey", "5000.00", "0")
	_, err = tc.ledger.BuyTickets(ctx, buyer.ID, 1)
	require.NoError(t, err)

	_, err = tc.ledger.SetTicketPrice(ctx, dec("100.00"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, entities.ErrInvalidInput))
}

func TestWalletLedger_ClaimCommission(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := setupLedgerIntegrationTest(t)
	ctx := context.Background()

	buyer := testutil.CreateTestAccount(t, tc.testDB.DB, "feeder", "10000.00", "0")
	_, err := tc.ledger.BuyTickets(ctx, buyer.ID, 10)
	require.NoError(t, err)
	_, err = tc.ledger.DrawWinners(ctx)
	require.NoError(t, err)

	house, claimed, err := tc.ledger.ClaimCommission(ctx, testutil.HouseAccountID)
	require.NoError(t, err)
	assert.True(t, claimed.Equal(dec("1000")))
	assert.True(t, house.CommissionBalance.IsZero())
	assert.True(t, house.Balance.Equal(dec("1000")))

	_, _, err = tc.ledger.ClaimCommission(ctx, testutil.HouseAccountID)
	assert.True(t, errors.Is(err, entities.ErrInvalidInput))

	_, _, err = tc.ledger.ClaimCommission(ctx, buyer.ID)
	assert.True(t, errors.Is(err, entities.ErrInvalidInput))
}

func TestWalletLedger_ListBalanceHistory(t *testing.T) {
	t.Parallel()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	tc := setupLedgerIntegrationTest(t)
	ctx := context.Background()

	buyer := testutil.CreateTestAccount(t, tc.testDB.DB, "historian", "500.00", "1000.00")
	_, err := tc.ledger.BuyTickets(ctx, buyer.ID, 1)
	require.NoError(t, err)

	history, err := tc.ledger.ListBalanceHistory(ctx, buyer.ID, 0)
	require.NoError(t, err)
	require.Len(t, history, 2)

	byBucket := make(map[entities.BalanceBucket]*entities.BalanceHistory)
	for _, h := range history {
		assert.Equal(t, entities.TransactionTypeTicketPurchase, h.TransactionType)
		byBucket[h.Bucket] = h
	}
	require.Contains(t, byBucket, entities.BucketBalance)
	require.Contains(t, byBucket, entities.BucketWon)
	assert.True(t, byBucket[entities.BucketBalance].ChangeAmount.Equal(dec("-500")))
	assert.True(t, byBucket[entities.BucketBalance].BalanceAfter.IsZero())
	assert.True(t, byBucket[entities.BucketWon].ChangeAmount.Equal(dec("-500")))
	assert.True(t, byBucket[entities.BucketWon].BalanceAfter.Equal(dec("500")))
}
