package entities

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Role is the authorization role of an account
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// UnknownWinnerName is recorded for winners without a display name
const UnknownWinnerName = "Unknown"

// MinDisplayNameLength is the shortest display name an account may choose
const MinDisplayNameLength = 2

// Account holds the three balance buckets of one user
type Account struct {
	ID                int64           `db:"id"`
	Username          string          `db:"username"`
	DisplayName       *string         `db:"display_name"`
	Role              Role            `db:"role"`
	Balance           decimal.Decimal `db:"balance"`            // Spendable deposited funds
	WonBalance        decimal.Decimal `db:"won_balance"`        // Prize winnings
	CommissionBalance decimal.Decimal `db:"commission_balance"` // House fee, claimable by admins
	TicketsOwned      int64           `db:"tickets_owned"`      // Tickets held in the current cycle
	CreatedAt         time.Time       `db:"created_at"`
	UpdatedAt         time.Time       `db:"updated_at"`
}

// IsAdmin returns true if the account may perform admin operations
func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// SpendableTotal is the combined amount usable for purchases and withdrawals
func (a *Account) SpendableTotal() decimal.Decimal {
	return a.Balance.Add(a.WonBalance)
}

// WinnerName returns the name recorded against a winning ticket
func (a *Account) WinnerName() string {
	if a.DisplayName != nil && strings.TrimSpace(*a.DisplayName) != "" {
		return *a.DisplayName
	}
	return UnknownWinnerName
}

// Debit describes how an amount is split across the balance and winnings buckets
type Debit struct {
	FromBalance decimal.Decimal
	FromWon     decimal.Decimal
}

// Total returns the full debited amount
func (d Debit) Total() decimal.Decimal {
	return d.FromBalance.Add(d.FromWon)
}

// Delta returns the account mutation that applies this debit
func (d Debit) Delta() AccountDelta {
	return AccountDelta{
		Balance:    d.FromBalance.Neg(),
		WonBalance: d.FromWon.Neg(),
	}
}

// PlanPurchaseDebit spends deposited balance first and only then winnings
func (a *Account) PlanPurchaseDebit(cost decimal.Decimal) (Debit, error) {
	if a.SpendableTotal().LessThan(cost) {
		return Debit{}, NewInsufficientFundsError("insufficient funds: have %s, need %s", a.SpendableTotal().StringFixed(MoneyPlaces), cost.StringFixed(MoneyPlaces))
	}
	fromBalance := decimal.Min(a.Balance, cost)
	return Debit{
		FromBalance: fromBalance,
		FromWon:     cost.Sub(fromBalance),
	}, nil
}

// PlanWithdrawalDebit pays out winnings first and only then deposited balance
func (a *Account) PlanWithdrawalDebit(amount decimal.Decimal) (Debit, error) {
	if a.SpendableTotal().LessThan(amount) {
		return Debit{}, NewInsufficientFundsError("insufficient funds for withdrawal: have %s, need %s", a.SpendableTotal().StringFixed(MoneyPlaces), amount.StringFixed(MoneyPlaces))
	}
	fromWon := decimal.Min(a.WonBalance, amount)
	return Debit{
		FromBalance: amount.Sub(fromWon),
		FromWon:     fromWon,
	}, nil
}

// AccountDelta is a relative change applied to an account in a single conditional update
type AccountDelta struct {
	Balance           decimal.Decimal
	WonBalance        decimal.Decimal
	CommissionBalance decimal.Decimal
	TicketsOwned      int64
}

// IsZero returns true if applying the delta would change nothing
func (d AccountDelta) IsZero() bool {
	return d.Balance.IsZero() && d.WonBalance.IsZero() && d.CommissionBalance.IsZero() && d.TicketsOwned == 0
}

// ValidateDisplayName trims and checks a requested display name
func ValidateDisplayName(name string) (string, error) {
	trimmed := strings.TrimSpace(name)
	if len([]rune(trimmed)) < MinDisplayNameLength {
		return "", NewInvalidInputError("display name must be at least %d characters", MinDisplayNameLength)
	}
	if len([]rune(trimmed)) > 255 {
		return "", NewInvalidInputError("display name cannot exceed 255 characters")
	}
	return trimmed, nil
}
