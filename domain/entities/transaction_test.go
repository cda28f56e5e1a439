package entities

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransaction_Resolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  TransactionStatus
		action  DecisionAction
		want    TransactionStatus
		wantErr error
	}{
		{name: "approve pending", status: TransactionStatusPending, action: DecisionApprove, want: TransactionStatusApproved},
		{name: "reject pending", status: TransactionStatusPending, action: DecisionReject, want: TransactionStatusRejected},
		{name: "already approved", status: TransactionStatusApproved, action: DecisionApprove, wantErr: ErrAlreadyProcessed},
		{name: "already rejected", status: TransactionStatusRejected, action: DecisionApprove, wantErr: ErrAlreadyProcessed},
		{name: "unknown action", status: TransactionStatusPending, action: "hold", wantErr: ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tx := &Transaction{ID: 1, Status: tt.status}
			got, err := tx.Resolve(tt.action)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTransaction_NeedsAmountAdjustment(t *testing.T) {
	t.Parallel()

	tx := &Transaction{Amount: decimal.RequireFromString("1000.00")}

	same := decimal.RequireFromString("1000")
	cent := decimal.RequireFromString("1000.01")
	lower := decimal.RequireFromString("900")

	assert.False(t, tx.NeedsAmountAdjustment(nil))
	assert.False(t, tx.NeedsAmountAdjustment(&same))
	assert.True(t, tx.NeedsAmountAdjustment(&cent))
	assert.True(t, tx.NeedsAmountAdjustment(&lower))
}

func TestParseDecisionAction(t *testing.T) {
	t.Parallel()

	action, err := ParseDecisionAction("approved")
	require.NoError(t, err)
	assert.Equal(t, DecisionApprove, action)

	action, err = ParseDecisionAction("reject")
	require.NoError(t, err)
	assert.Equal(t, DecisionReject, action)

	_, err = ParseDecisionAction("maybe")
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestWithdrawalPayout_Note(t *testing.T) {
	t.Parallel()

	payout := WithdrawalPayout{Name: "Aung", Phone: "09123456"}
	assert.Equal(t, "KPay: Aung (09123456)", payout.Note())
	assert.True(t, WithdrawalPayout{}.IsEmpty())
}

func TestErrorKinds(t *testing.T) {
	t.Parallel()

	err := NewNotFoundError("account %d not found", 42)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, "account 42 not found", err.Error())

	wrapped := NewStorageFailureError("failed to commit", assert.AnError)
	assert.ErrorIs(t, wrapped, ErrStorageFailure)
	assert.ErrorIs(t, wrapped, assert.AnError)
	assert.Equal(t, ErrorKind(""), KindOf(assert.AnError))
}
