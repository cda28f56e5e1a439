package testutil

import (
	"context"
	"fmt"
	"testing"

	"raffle/database"
	"raffle/domain/entities"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// HouseAccountID is the admin account seeded by the migrations
const HouseAccountID int64 = 1

// CreateTestAccount inserts an account and funds it directly, bypassing the ledger
func CreateTestAccount(t *testing.T, db *database.DB, username string, balance, wonBalance string) *entities.Account {
	t.Helper()
	ctx := context.Background()

	name := fmt.Sprintf("%s display", username)
	var account entities.Account
	err := db.QueryRow(ctx, `
		INSERT INTO accounts (username, display_name, role, balance, won_balance)
		VALUES ($1, $2, 'user', $3, $4)
		RETURNING id, username, display_name, role, balance, won_balance, commission_balance, tickets_owned, created_at, updated_at
	`, username, name, decimal.RequireFromString(balance), decimal.RequireFromString(wonBalance)).Scan(
		&account.ID,
		&account.Username,
		&account.DisplayName,
		&account.Role,
		&account.Balance,
		&account.WonBalance,
		&account.CommissionBalance,
		&account.TicketsOwned,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
	require.NoError(t, err)
	return &account
}

// TotalMoney sums every balance bucket across all accounts
func TotalMoney(t *testing.T, db *database.DB) decimal.Decimal {
	t.Helper()
	var total decimal.Decimal
	err := db.QueryRow(context.Background(), `
		SELECT COALESCE(SUM(balance + won_balance + commission_balance), 0) FROM accounts
	`).Scan(&total)
	require.NoError(t, err)
	return total
}

// SetTicketPrice overwrites the ticket price without the mid-cycle guard
func SetTicketPrice(t *testing.T, db *database.DB, price string) {
	t.Helper()
	_, err := db.Exec(context.Background(), `UPDATE global_stats SET ticket_price = $1 WHERE id = 1`, decimal.RequireFromString(price))
	require.NoError(t, err)
}

// CreateTestTransaction builds an unsaved pending transaction
func CreateTestTransaction(userID int64, kind entities.TransactionKind, amount string) *entities.Transaction {
	return &entities.Transaction{
		UserID: userID,
		Kind:   kind,
		Amount: decimal.RequireFromString(amount),
		Status: entities.TransactionStatusPending,
		Method: entities.MethodManual,
	}
}
