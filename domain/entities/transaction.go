package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// TransactionKind distinguishes money coming in from money going out
type TransactionKind string

const (
	TransactionKindDeposit    TransactionKind = "deposit"
	TransactionKindWithdrawal TransactionKind = "withdrawal"
)

// IsValid returns true for known kinds
func (k TransactionKind) IsValid() bool {
	return k == TransactionKindDeposit || k == TransactionKindWithdrawal
}

// TransactionStatus is the approval state of a transaction
type TransactionStatus string

const (
	TransactionStatusPending  TransactionStatus = "pending"
	TransactionStatusApproved TransactionStatus = "approved"
	TransactionStatusRejected TransactionStatus = "rejected"
)

// DecisionAction is an admin's verdict on a pending transaction
type DecisionAction string

const (
	DecisionApprove DecisionAction = "approve"
	DecisionReject  DecisionAction = "reject"
)

// ParseDecisionAction accepts both verb and past-tense forms
func ParseDecisionAction(s string) (DecisionAction, error) {
	switch s {
	case "approve", "approved":
		return DecisionApprove, nil
	case "reject", "rejected":
		return DecisionReject, nil
	default:
		return "", NewInvalidInputError("unknown action %q", s)
	}
}

// Default transaction methods
const (
	MethodManual = "manual"
	MethodKBZPay = "kbzpay"
)

// Transaction is a deposit or withdrawal request awaiting or past admin review
type Transaction struct {
	ID        int64             `db:"id"`
	UserID    int64             `db:"user_id"`
	Kind      TransactionKind   `db:"kind"`
	Amount    decimal.Decimal   `db:"amount"`
	Status    TransactionStatus `db:"status"`
	Method    string            `db:"method"`
	Note      *string           `db:"note"`
	ProofRef  *string           `db:"proof_ref"` // Opaque reference to an uploaded proof
	CreatedAt time.Time         `db:"created_at"`
	UpdatedAt time.Time         `db:"updated_at"`

	// Populated by admin listings only
	Username    *string `db:"username"`
	DisplayName *string `db:"display_name"`
}

// IsPending returns true while the transaction can still be decided
func (t *Transaction) IsPending() bool {
	return t.Status == TransactionStatusPending
}

// Resolve maps an action to the terminal status, refusing already-decided transactions
func (t *Transaction) Resolve(action DecisionAction) (TransactionStatus, error) {
	if !t.IsPending() {
		return "", NewAlreadyProcessedError("transaction %d is already %s", t.ID, t.Status)
	}
	switch action {
	case DecisionApprove:
		return TransactionStatusApproved, nil
	case DecisionReject:
		return TransactionStatusRejected, nil
	default:
		return "", NewInvalidInputError("unknown action %q", action)
	}
}

// NeedsAmountAdjustment reports whether an admin-supplied amount differs from the
// recorded one. A one-cent correction counts.
func (t *Transaction) NeedsAmountAdjustment(adjusted *decimal.Decimal) bool {
	if adjusted == nil {
		return false
	}
	return !adjusted.Equal(t.Amount)
}

// WithdrawalPayout identifies where an approved withdrawal is paid
type WithdrawalPayout struct {
	Name  string
	Phone string
}

// Note renders payout details into the transaction note
func (p WithdrawalPayout) Note() string {
	return fmt.Sprintf("KPay: %s (%s)", p.Name, p.Phone)
}

// IsEmpty returns true if no payout details were given
func (p WithdrawalPayout) IsEmpty() bool {
	return p.Name == "" && p.Phone == ""
}
