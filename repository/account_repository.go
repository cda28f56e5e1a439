package repository

import (
	"context"
	"errors"
	"fmt"

	"raffle/database"
	"raffle/domain/entities"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, username, display_name, role, balance, won_balance, commission_balance, tickets_owned, created_at, updated_at`

// AccountRepository implements the AccountRepository interface
type AccountRepository struct {
	q Queryable
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *database.DB) *AccountRepository {
	return &AccountRepository{q: db.Pool}
}

// newAccountRepository creates a new account repository with a transaction
func newAccountRepository(tx Queryable) *AccountRepository {
	return &AccountRepository{q: tx}
}

func scanAccount(row pgx.Row) (*entities.Account, error) {
	var account entities.Account
	err := row.Scan(
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
	if err != nil {
		return nil, err
	}
	return &account, nil
}

// GetByID retrieves an account by ID
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	account, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account %d: %w", id, err)
	}
	return account, nil
}

// GetByIDForUpdate retrieves an account and locks its row until the transaction ends
func (r *AccountRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`

	account, err := scanAccount(r.q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock account %d: %w", id, err)
	}
	return account, nil
}

// GetByIDs retrieves several accounts keyed by ID
func (r *AccountRepository) GetByIDs(ctx context.Context, ids []int64) (map[int64]*entities.Account, error) {
	accounts := make(map[int64]*entities.Account, len(ids))
	if len(ids) == 0 {
		return accounts, nil
	}

	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = ANY($1)`

	rows, err := r.q.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get accounts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts[account.ID] = account
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}

// Create creates a new account with zero balances
func (r *AccountRepository) Create(ctx context.Context, username string, displayName *string, role entities.Role) (*entities.Account, error) {
	query := `
		INSERT INTO accounts (username, display_name, role)
		VALUES ($1, $2, $3)
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, username, displayName, role))
	if err != nil {
		return nil, fmt.Errorf("failed to create account %s: %w", username, err)
	}
	return account, nil
}

// ApplyDelta adds the delta to every bucket in a single statement. The WHERE clause
// refuses the update if any bucket would go negative, so concurrent debits cannot overspend.
func (r *AccountRepository) ApplyDelta(ctx context.Context, id int64, delta entities.AccountDelta) (*entities.Account, error) {
	query := `
		UPDATE accounts
		SET balance = balance + $2,
		    won_balance = won_balance + $3,
		    commission_balance = commission_balance + $4,
		    tickets_owned = tickets_owned + $5,
		    updated_at = NOW()
		WHERE id = $1
		  AND balance + $2 >= 0
		  AND won_balance + $3 >= 0
		  AND commission_balance + $4 >= 0
		  AND tickets_owned + $5 >= 0
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query,
		id,
		delta.Balance,
		delta.WonBalance,
		delta.CommissionBalance,
		delta.TicketsOwned,
	))
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to update account %d: %w", id, err)
	}

	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, fmt.Errorf("failed to check account %d: %w", id, err)
	}
	if !exists {
		return nil, entities.NewNotFoundError("account %d not found", id)
	}
	return nil, entities.NewInsufficientFundsError("insufficient funds in account %d", id)
}

// ResetTicketsOwned zeroes every account's ticket count
func (r *AccountRepository) ResetTicketsOwned(ctx context.Context) (int64, error) {
	tag, err := r.q.Exec(ctx, `UPDATE accounts SET tickets_owned = 0, updated_at = NOW() WHERE tickets_owned <> 0`)
	if err != nil {
		return 0, fmt.Errorf("failed to reset tickets owned: %w", err)
	}
	return tag.RowsAffected(), nil
}

// UpdateDisplayName changes an account's display name
func (r *AccountRepository) UpdateDisplayName(ctx context.Context, id int64, displayName string) (*entities.Account, error) {
	query := `
		UPDATE accounts
		SET display_name = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns

	account, err := scanAccount(r.q.QueryRow(ctx, query, id, displayName))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update display name for account %d: %w", id, err)
	}
	return account, nil
}

// List returns all accounts ordered by ID
func (r *AccountRepository) List(ctx context.Context) ([]*entities.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts ORDER BY id`

	rows, err := r.q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*entities.Account
	for rows.Next() {
		account, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate accounts: %w", err)
	}
	return accounts, nil
}
