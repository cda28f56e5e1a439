package repository

import (
	"context"
	"errors"
	"fmt"

	"raffle/database"
	"raffle/domain/entities"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const transactionColumns = `t.id, t.user_id, t.kind, t.amount, t.status, t.method, t.note, t.proof_ref, t.created_at, t.updated_at`

// TransactionRepository implements deposit and withdrawal data access
type TransactionRepository struct {
	q Queryable
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *database.DB) *TransactionRepository {
	return &TransactionRepository{q: db.Pool}
}

// newTransactionRepository creates a new transaction repository with a transaction
func newTransactionRepository(tx Queryable) *TransactionRepository {
	return &TransactionRepository{q: tx}
}

func scanTransaction(row pgx.Row, withOwner bool) (*entities.Transaction, error) {
	var tx entities.Transaction
	dest := []any{
		&tx.ID,
		&tx.UserID,
		&tx.Kind,
		&tx.Amount,
		&tx.Status,
		&tx.Method,
		&tx.Note,
		&tx.ProofRef,
		&tx.CreatedAt,
		&tx.UpdatedAt,
	}
	if withOwner {
		dest = append(dest, &tx.Username, &tx.DisplayName)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	return &tx, nil
}

// Create inserts a transaction and fills in its ID and timestamps
func (r *TransactionRepository) Create(ctx context.Context, tx *entities.Transaction) error {
	query := `
		INSERT INTO transactions (user_id, kind, amount, status, method, note, proof_ref)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`

	if tx.Status == "" {
		tx.Status = entities.TransactionStatusPending
	}
	err := r.q.QueryRow(ctx, query,
		tx.UserID,
		tx.Kind,
		tx.Amount,
		tx.Status,
		tx.Method,
		tx.Note,
		tx.ProofRef,
	).Scan(&tx.ID, &tx.CreatedAt, &tx.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create %s for account %d: %w", tx.Kind, tx.UserID, err)
	}
	return nil
}

// GetByID retrieves a transaction by ID
func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*entities.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions t WHERE t.id = $1`

	tx, err := scanTransaction(r.q.QueryRow(ctx, query, id), false)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction %d: %w", id, err)
	}
	return tx, nil
}

// GetByIDForUpdate retrieves a transaction and locks its row
func (r *TransactionRepository) GetByIDForUpdate(ctx context.Context, id int64) (*entities.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions t WHERE t.id = $1 FOR UPDATE`

	tx, err := scanTransaction(r.q.QueryRow(ctx, query, id), false)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock transaction %d: %w", id, err)
	}
	return tx, nil
}

// UpdateAmount changes the amount while the transaction is still pending
func (r *TransactionRepository) UpdateAmount(ctx context.Context, id int64, amount decimal.Decimal) error {
	query := `
		UPDATE transactions
		SET amount = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.q.Exec(ctx, query, id, amount)
	if err != nil {
		return fmt.Errorf("failed to update amount of transaction %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return entities.NewAlreadyProcessedError("transaction %d is no longer pending", id)
	}
	return nil
}

// UpdateStatus moves a pending transaction to a terminal status
func (r *TransactionRepository) UpdateStatus(ctx context.Context, id int64, status entities.TransactionStatus) error {
	query := `
		UPDATE transactions
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`

	tag, err := r.q.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to update status of transaction %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return entities.NewAlreadyProcessedError("transaction %d is no longer pending", id)
	}
	return nil
}

// List returns the newest transactions with their owners' names
func (r *TransactionRepository) List(ctx context.Context, limit int) ([]*entities.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `, a.username, a.display_name
		FROM transactions t
		JOIN accounts a ON a.id = t.user_id
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $1
	`

	rows, err := r.q.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []*entities.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows, true)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

// ListByUser returns one account's newest transactions
func (r *TransactionRepository) ListByUser(ctx context.Context, userID int64, limit int) ([]*entities.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions t
		WHERE t.user_id = $1
		ORDER BY t.created_at DESC, t.id DESC
		LIMIT $2
	`

	rows, err := r.q.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions for account %d: %w", userID, err)
	}
	defer rows.Close()

	var txs []*entities.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}
	return txs, nil
}

// Delete removes a transaction and returns it, or nil if it did not exist
func (r *TransactionRepository) Delete(ctx context.Context, id int64) (*entities.Transaction, error) {
	query := `DELETE FROM transactions t WHERE t.id = $1 RETURNING ` + transactionColumns

	tx, err := scanTransaction(r.q.QueryRow(ctx, query, id), false)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete transaction %d: %w", id, err)
	}
	return tx, nil
}
