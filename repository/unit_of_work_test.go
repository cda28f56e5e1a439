package repository

import (
	"context"
	"testing"

	"raffle/domain/entities"
	"raffle/domain/testhelpers"
	"raffle/repository/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestUnitOfWork_CommitFlushesEvents(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	account := testutil.CreateTestAccount(t, testDB.DB, "committer", "100", "0")

	publisher := new(testhelpers.MockTransactionalEventPublisher)
	publisher.On("Flush", mock.Anything).Return(nil).Once()

	uow := CreateTestUnitOfWork(testDB.DB, publisher)
	require.NoError(t, uow.Begin(ctx))

	_, err := uow.AccountRepository().ApplyDelta(ctx, account.ID, entities.AccountDelta{Balance: dec("50")})
	require.NoError(t, err)
	require.NoError(t, uow.Commit())

	reloaded, err := NewAccountRepository(testDB.DB).GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, dec("150").Equal(reloaded.Balance))
	publisher.AssertExpectations(t)
}

func TestUnitOfWork_RollbackDiscardsWork(t *testing.T) {
	t.Parallel()
	testDB := testutil.SetupTestDatabase(t)
	ctx := context.Background()
	account := testutil.CreateTestAccount(t, testDB.DB, "rollbacker", "100", "0")

	publisher := new(testhelpers.MockTransactionalEventPublisher)
	publisher.On("Discard").Return().Once()

	uow := CreateTestUnitOfWork(testDB.DB, publisher)
	require.NoError(t, uow.Begin(ctx))

	_, err := uow.AccountRepository().ApplyDelta(ctx, account.ID, entities.AccountDelta{Balance: dec("-100")})
	require.NoError(t, err)
	_, err = uow.TicketRepository().CreateBatch(ctx, account.ID, 2)
	require.NoError(t, err)
	require.NoError(t, uow.Rollback())

	// Rolling back twice is harmless
	require.NoError(t, uow.Rollback())

	reloaded, err := NewAccountRepository(testDB.DB).GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.True(t, dec("100").Equal(reloaded.Balance))

	count, err := NewTicketRepository(testDB.DB).Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	publisher.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Flush", mock.Anything)
}

func TestUnitOfWork_GettersRequireBegin(t *testing.T) {
	t.Parallel()

	uow := NewUnitOfWorkFactory(nil).CreateWithPublisher(nil)
	assert.Panics(t, func() { uow.AccountRepository() })
	assert.Panics(t, func() { uow.GlobalStatsRepository() })
	assert.Error(t, uow.Commit())
	assert.NoError(t, uow.Rollback())
}
