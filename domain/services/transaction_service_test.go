package services

import (
	"context"
	"errors"
	"testing"

	"raffle/domain/entities"
	"raffle/domain/interfaces"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTransactionService(m *TestMocks) *transactionService {
	return NewTransactionService(m.AccountRepo, m.TransactionRepo, m.BalanceHistoryRepo, m.EventPublisher).(*transactionService)
}

func pendingTx(id int64, kind entities.TransactionKind, amount string) *entities.Transaction {
	return &entities.Transaction{
		ID:     id,
		UserID: TestUser1ID,
		Kind:   kind,
		Amount: dec(amount),
		Status: entities.TransactionStatusPending,
		Method: entities.MethodManual,
	}
}

func TestRequestDeposit(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	service := newTransactionService(m)

	proof := "uploads/proof-1.png"
	m.AccountRepo.On("GetByID", ctx, TestUser1ID).Return(testAccount(TestUser1ID, "0", "0"), nil)
	m.TransactionRepo.On("Create", ctx, mock.MatchedBy(func(tx *entities.Transaction) bool {
		return tx.Kind == entities.TransactionKindDeposit &&
			tx.Status == entities.TransactionStatusPending &&
			tx.Method == entities.MethodManual &&
			tx.ProofRef != nil && *tx.ProofRef == proof &&
			tx.Amount.Equal(dec("5000"))
	})).Run(func(args mock.Arguments) {
		args.Get(1).(*entities.Transaction).ID = 77
	}).Return(nil)

	tx, err := service.RequestDeposit(ctx, interfaces.DepositRequest{
		UserID:   TestUser1ID,
		Amount:   dec("5000"),
		ProofRef: &proof,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(77), tx.ID)
	m.AssertAllExpectations(t)
}

func TestRequestDeposit_InvalidAmount(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	service := newTransactionService(m)

	for _, amount := range []string{"0", "-10", "1.005"} {
		_, err := service.RequestDeposit(ctx, interfaces.DepositRequest{UserID: TestUser1ID, Amount: dec(amount)})
		assert.True(t, errors.Is(err, entities.ErrInvalidInput), "amount %s", amount)
	}
	m.TransactionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestRequestWithdrawal(t *testing.T) {
	t.Run("payout details become the note", func(t *testing.T) {
		ctx := context.Background()
		m := NewTestMocks()
		service := newTransactionService(m)

		m.AccountRepo.On("GetByID", ctx, TestUser1ID).Return(testAccount(TestUser1ID, "1000", "2000"), nil)
		m.TransactionRepo.On("Create", ctx, mock.MatchedBy(func(tx *entities.Transaction) bool {
			return tx.Kind == entities.TransactionKindWithdrawal &&
				tx.Note != nil && *tx.Note == "KPay: Aung (09123456)"
		})).Return(nil)

		_, err := service.RequestWithdrawal(ctx, interfaces.WithdrawalRequest{
			UserID: TestUser1ID,
			Amount: dec("3000"),
			Payout: entities.WithdrawalPayout{Name: "Aung", Phone: "09123456"},
		})
		require.NoError(t, err)
		m.AssertAllExpectations(t)
	})

	t.Run("combined funds are pre-checked", func(t *testing.T) {
		ctx := context.Background()
		m := NewTestMocks()
		service := newTransactionService(m)

		m.AccountRepo.On("GetByID", ctx, TestUser1ID).Return(testAccount(TestUser1ID, "1000", "2000"), nil)

		_, err := service.RequestWithdrawal(ctx, interfaces.WithdrawalRequest{UserID: TestUser1ID, Amount: dec("3000.01")})
		assert.True(t, errors.Is(err, entities.ErrInsufficientFunds))
		m.TransactionRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestApproveOrReject_Deposit(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	service := newTransactionService(m)

	m.TransactionRepo.On("GetByIDForUpdate", ctx, int64(1)).Return(pendingTx(1, entities.TransactionKindDeposit, "5000"), nil)
	m.AccountRepo.On("GetByIDForUpdate", ctx, TestUser1ID).Return(testAccount(TestUser1ID, "100", "0"), nil)
	m.AccountRepo.On("ApplyDelta", ctx, TestUser1ID, deltaEq(entities.AccountDelta{Balance: dec("5000")})).
		Return(testAccount(TestUser1ID, "5100", "0"), nil)
	m.TransactionRepo.On("UpdateStatus", ctx, int64(1), entities.TransactionStatusApproved).Return(nil)

	result, err := service.ApproveOrReject(ctx, 1, entities.DecisionApprove, nil)
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusApproved, result.Transaction.Status)
	assert.True(t, result.Account.Balance.Equal(dec("5100")))
	m.TransactionRepo.AssertNotCalled(t, "UpdateAmount", mock.Anything, mock.Anything, mock.Anything)
	m.AssertAllExpectations(t)
}

func TestApproveOrReject_WithdrawalTakesWinningsFirst(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	service := newTransactionService(m)

	m.TransactionRepo.On("GetByIDForUpdate", ctx, int64(2)).Return(pendingTx(2, entities.TransactionKindWithdrawal, "1500"), nil)
	m.AccountRepo.On("GetByIDForUpdate", ctx, TestUser1ID).Return(testAccount(TestUser1ID, "1000", "1000"), nil)
	m.AccountRepo.On("ApplyDelta", ctx, TestUser1ID, deltaEq(entities.AccountDelta{
		Balance:    dec("-500"),
		WonBalance: dec("-1000"),
	})).Return(testAccount(TestUser1ID, "500", "0"), nil)
	m.TransactionRepo.On("UpdateStatus", ctx, int64(2), entities.TransactionStatusApproved).Return(nil)

	result, err := service.ApproveOrReject(ctx, 2, entities.DecisionApprove, nil)
	require.NoError(t, err)
	assert.True(t, result.Account.WonBalance.IsZero())
	m.AssertAllExpectations(t)
}

// Funds spent between request and approval leave the withdrawal pending
func TestApproveOrReject_WithdrawalRevalidatesFunds(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	service := newTransactionService(m)

	m.TransactionRepo.On("GetByIDForUpdate", ctx, int64(3)).Return(pendingTx(3, entities.TransactionKindWithdrawal, "1500"), nil)
	m.AccountRepo.On("GetByIDForUpdate", ctx, TestUser1ID).Return(testAccount(TestUser1ID, "1000", "0"), nil)

	_, err := service.ApproveOrReject(ctx, 3, entities.DecisionApprove, nil)
	assert.True(t, errors.Is(err, entities.ErrInsufficientFunds))
	m.AccountRepo.AssertNotCalled(t, "ApplyDelta", mock.Anything, mock.Anything, mock.Anything)
	m.TransactionRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
}

func TestApproveOrReject_AdjustedAmount(t *testing.T) {
	tests := []struct {
		name         string
		adjusted     *decimal.Decimal
		expectUpdate bool
		credit       string
	}{
		{name: "no adjustment", adjusted: nil, expectUpdate: false, credit: "5000"},
		{name: "same amount", adjusted: decPtr("5000.00"), expectUpdate: false, credit: "5000"},
		{name: "one cent correction", adjusted: decPtr("5000.01"), expectUpdate: true, credit: "5000.01"},
		{name: "lower amount", adjusted: decPtr("4500"), expectUpdate: true, credit: "4500"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			m := NewTestMocks()
			service := newTransactionService(m)

			m.TransactionRepo.On("GetByIDForUpdate", ctx, int64(5)).Return(pendingTx(5, entities.TransactionKindDeposit, "5000"), nil)
			if tt.expectUpdate {
				m.TransactionRepo.On("UpdateAmount", ctx, int64(5), decEq(tt.credit)).Return(nil)
			}
			m.AccountRepo.On("GetByIDForUpdate", ctx, TestUser1ID).Return(testAccount(TestUser1ID, "0", "0"), nil)
			m.AccountRepo.On("ApplyDelta", ctx, TestUser1ID, deltaEq(entities.AccountDelta{Balance: dec(tt.credit)})).
				Return(testAccount(TestUser1ID, tt.credit, "0"), nil)
			m.TransactionRepo.On("UpdateStatus", ctx, int64(5), entities.TransactionStatusApproved).Return(nil)

			result, err := service.ApproveOrReject(ctx, 5, entities.DecisionApprove, tt.adjusted)
			require.NoError(t, err)
			assert.True(t, result.Transaction.Amount.Equal(dec(tt.credit)))
			if !tt.expectUpdate {
				m.TransactionRepo.AssertNotCalled(t, "UpdateAmount", mock.Anything, mock.Anything, mock.Anything)
			}
			m.AssertAllExpectations(t)
		})
	}
}

func TestApproveOrReject_Reject(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	service := newTransactionService(m)

	m.TransactionRepo.On("GetByIDForUpdate", ctx, int64(6)).Return(pendingTx(6, entities.TransactionKindDeposit, "5000"), nil)
	m.TransactionRepo.On("UpdateStatus", ctx, int64(6), entities.TransactionStatusRejected).Return(nil)

	result, err := service.ApproveOrReject(ctx, 6, entities.DecisionReject, decPtr("1"))
	require.NoError(t, err)
	assert.Equal(t, entities.TransactionStatusRejected, result.Transaction.Status)
	assert.Nil(t, result.Account)
	m.AccountRepo.AssertNotCalled(t, "ApplyDelta", mock.Anything, mock.Anything, mock.Anything)
	m.TransactionRepo.AssertNotCalled(t, "UpdateAmount", mock.Anything, mock.Anything, mock.Anything)
}

func TestApproveOrReject_Idempotent(t *testing.T) {
	for _, status := range []entities.TransactionStatus{entities.TransactionStatusApproved, entities.TransactionStatusRejected} {
		for _, action := range []entities.DecisionAction{entities.DecisionApprove, entities.DecisionReject} {
			t.Run(string(status)+"/"+string(action), func(t *testing.T) {
				ctx := context.Background()
				m := NewTestMocks()
				service := newTransactionService(m)

				decided := pendingTx(7, entities.TransactionKindDeposit, "5000")
				decided.Status = status
				m.TransactionRepo.On("GetByIDForUpdate", ctx, int64(7)).Return(decided, nil)

				_, err := service.ApproveOrReject(ctx, 7, action, nil)
				assert.True(t, errors.Is(err, entities.ErrAlreadyProcessed))
				m.AccountRepo.AssertNotCalled(t, "ApplyDelta", mock.Anything, mock.Anything, mock.Anything)
				m.TransactionRepo.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything)
			})
		}
	}
}

func TestApproveOrReject_NotFound(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	service := newTransactionService(m)

	m.TransactionRepo.On("GetByIDForUpdate", ctx, int64(404)).Return(nil, nil)

	_, err := service.ApproveOrReject(ctx, 404, entities.DecisionApprove, nil)
	assert.True(t, errors.Is(err, entities.ErrNotFound))
}

func TestDeleteTransaction(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	service := newTransactionService(m)

	m.TransactionRepo.On("Delete", ctx, int64(8)).Return(pendingTx(8, entities.TransactionKindDeposit, "10"), nil)
	m.TransactionRepo.On("Delete", ctx, int64(9)).Return(nil, nil)

	tx, err := service.DeleteTransaction(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, int64(8), tx.ID)

	_, err = service.DeleteTransaction(ctx, 9)
	assert.True(t, errors.Is(err, entities.ErrNotFound))
}

func TestListTransactions_NormalizesLimit(t *testing.T) {
	ctx := context.Background()
	m := NewTestMocks()
	service := newTransactionService(m)

	m.TransactionRepo.On("List", ctx, DefaultListLimit).Return([]*entities.Transaction{}, nil).Twice()
	m.TransactionRepo.On("ListByUser", ctx, TestUser1ID, 10).Return([]*entities.Transaction{}, nil)

	_, err := service.ListTransactions(ctx, 0)
	require.NoError(t, err)
	_, err = service.ListTransactions(ctx, DefaultListLimit*5)
	require.NoError(t, err)
	_, err = service.ListUserTransactions(ctx, TestUser1ID, 10)
	require.NoError(t, err)
	m.AssertAllExpectations(t)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}
