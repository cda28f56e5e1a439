package entities

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// BalanceBucket names which of the three account balances moved
type BalanceBucket string

const (
	BucketBalance    BalanceBucket = "balance"
	BucketWon        BalanceBucket = "won_balance"
	BucketCommission BalanceBucket = "commission_balance"
)

// TransactionType classifies a balance movement
type TransactionType string

const (
	TransactionTypeDeposit         TransactionType = "deposit"
	TransactionTypeWithdrawal      TransactionType = "withdrawal"
	TransactionTypeTicketPurchase  TransactionType = "ticket_purchase"
	TransactionTypeDrawPrize       TransactionType = "draw_prize"
	TransactionTypeDrawCommission  TransactionType = "draw_commission"
	TransactionTypeAdminAdjustment TransactionType = "admin_adjustment"
	TransactionTypeCommissionClaim TransactionType = "commission_claim"
)

// IsDrawRelated returns true for movements produced by a draw
func (t TransactionType) IsDrawRelated() bool {
	return t == TransactionTypeDrawPrize || t == TransactionTypeDrawCommission
}

// BalanceHistory is one audited movement of one balance bucket
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	AccountID           int64           `db:"account_id"`
	Bucket              BalanceBucket   `db:"bucket"`
	ChangeAmount        decimal.Decimal `db:"change_amount"`
	BalanceAfter        decimal.Decimal `db:"balance_after"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	CreatedAt           time.Time       `db:"created_at"`
}

// BalanceBefore derives the bucket value prior to the change
func (bh *BalanceHistory) BalanceBefore() decimal.Decimal {
	return bh.BalanceAfter.Sub(bh.ChangeAmount)
}

// Validate performs basic validation on the entry
func (bh *BalanceHistory) Validate() error {
	if bh.ChangeAmount.IsZero() {
		return errors.New("change amount cannot be zero")
	}
	if bh.BalanceAfter.IsNegative() {
		return errors.New("balance after change cannot be negative")
	}
	return nil
}

// BalanceHistoryFor builds history entries for every non-zero bucket of a delta
func BalanceHistoryFor(account *Account, delta AccountDelta, txType TransactionType, metadata map[string]any) []*BalanceHistory {
	var entries []*BalanceHistory
	add := func(bucket BalanceBucket, change, after decimal.Decimal) {
		if change.IsZero() {
			return
		}
		entries = append(entries, &BalanceHistory{
			AccountID:           account.ID,
			Bucket:              bucket,
			ChangeAmount:        change,
			BalanceAfter:        after,
			TransactionType:     txType,
			TransactionMetadata: metadata,
		})
	}
	add(BucketBalance, delta.Balance, account.Balance)
	add(BucketWon, delta.WonBalance, account.WonBalance)
	add(BucketCommission, delta.CommissionBalance, account.CommissionBalance)
	return entries
}
