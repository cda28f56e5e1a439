package services

import (
	"context"
	"fmt"
	"strings"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"
	"raffle/domain/utils"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// DefaultListLimit caps transaction listings when no limit is given
const DefaultListLimit = 200

type transactionService struct {
	accountRepo        interfaces.AccountRepository
	transactionRepo    interfaces.TransactionRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
}

// NewTransactionService creates a new approval workflow service
func NewTransactionService(
	accountRepo interfaces.AccountRepository,
	transactionRepo interfaces.TransactionRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.TransactionService {
	return &transactionService{
		accountRepo:        accountRepo,
		transactionRepo:    transactionRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
	}
}

func (s *transactionService) RequestDeposit(ctx context.Context, req interfaces.DepositRequest) (*entities.Transaction, error) {
	if err := entities.ValidateAmount("amount", req.Amount); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, entities.NewNotFoundError("account %d not found", req.UserID)
	}

	tx := &entities.Transaction{
		UserID:   req.UserID,
		Kind:     entities.TransactionKindDeposit,
		Amount:   req.Amount,
		Status:   entities.TransactionStatusPending,
		Method:   methodOrDefault(req.Method),
		Note:     optionalString(req.Note),
		ProofRef: req.ProofRef,
	}
	return s.create(ctx, tx)
}

func (s *transactionService) RequestWithdrawal(ctx context.Context, req interfaces.WithdrawalRequest) (*entities.Transaction, error) {
	if err := entities.ValidateAmount("amount", req.Amount); err != nil {
		return nil, err
	}

	account, err := s.accountRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, entities.NewNotFoundError("account %d not found", req.UserID)
	}
	if _, err := account.PlanWithdrawalDebit(req.Amount); err != nil {
		return nil, err
	}

	note := req.Note
	if !req.Payout.IsEmpty() {
		note = req.Payout.Note()
	}

	tx := &entities.Transaction{
		UserID: req.UserID,
		Kind:   entities.TransactionKindWithdrawal,
		Amount: req.Amount,
		Status: entities.TransactionStatusPending,
		Method: methodOrDefault(req.Method),
		Note:   optionalString(note),
	}
	return s.create(ctx, tx)
}

func (s *transactionService) create(ctx context.Context, tx *entities.Transaction) (*entities.Transaction, error) {
	if err := s.transactionRepo.Create(ctx, tx); err != nil {
		return nil, fmt.Errorf("failed to create transaction: %w", err)
	}

	if err := s.eventPublisher.Publish(events.TransactionRequestedEvent{
		TransactionID: tx.ID,
		AccountID:     tx.UserID,
		Kind:          tx.Kind,
		Amount:        tx.Amount,
		Method:        tx.Method,
	}); err != nil {
		log.WithError(err).Error("Failed to publish transaction requested event")
	}

	log.WithFields(log.Fields{
		"transactionID": tx.ID,
		"userID":        tx.UserID,
		"kind":          tx.Kind,
		"amount":        tx.Amount.String(),
		"method":        tx.Method,
	}).Info("Transaction requested")

	return tx, nil
}

// ApproveOrReject applies the balance effect of a pending transaction exactly once.
// The transaction row is locked before the account row.
func (s *transactionService) ApproveOrReject(ctx context.Context, txID int64, action entities.DecisionAction, adjustedAmount *decimal.Decimal) (*interfaces.DecisionResult, error) {
	tx, err := s.transactionRepo.GetByIDForUpdate(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to get transaction: %w", err)
	}
	if tx == nil {
		return nil, entities.NewNotFoundError("transaction %d not found", txID)
	}

	status, err := tx.Resolve(action)
	if err != nil {
		return nil, err
	}

	if status == entities.TransactionStatusRejected {
		if err := s.transactionRepo.UpdateStatus(ctx, txID, status); err != nil {
			return nil, fmt.Errorf("failed to update transaction status: %w", err)
		}
		tx.Status = status
		s.publishDecision(tx, false)
		return &interfaces.DecisionResult{Transaction: tx}, nil
	}

	adjusted := tx.NeedsAmountAdjustment(adjustedAmount)
	if adjusted {
		if err := entities.ValidateAmount("adjusted amount", *adjustedAmount); err != nil {
			return nil, err
		}
		if err := s.transactionRepo.UpdateAmount(ctx, txID, *adjustedAmount); err != nil {
			return nil, fmt.Errorf("failed to update transaction amount: %w", err)
		}
		log.WithFields(log.Fields{
			"transactionID": txID,
			"oldAmount":     tx.Amount.String(),
			"newAmount":     adjustedAmount.String(),
		}).Info("Transaction amount adjusted before approval")
		tx.Amount = *adjustedAmount
	}

	account, err := s.accountRepo.GetByIDForUpdate(ctx, tx.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, entities.NewNotFoundError("account %d not found", tx.UserID)
	}

	var delta entities.AccountDelta
	var txType entities.TransactionType
	switch tx.Kind {
	case entities.TransactionKindDeposit:
		delta = entities.AccountDelta{Balance: tx.Amount}
		txType = entities.TransactionTypeDeposit
	case entities.TransactionKindWithdrawal:
		// Funds may have been spent since the request was filed
		debit, err := account.PlanWithdrawalDebit(tx.Amount)
		if err != nil {
			return nil, err
		}
		delta = debit.Delta()
		txType = entities.TransactionTypeWithdrawal
	default:
		return nil, entities.NewInvalidInputError("unknown transaction kind %q", tx.Kind)
	}

	updated, err := s.accountRepo.ApplyDelta(ctx, tx.UserID, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to apply %s: %w", tx.Kind, err)
	}

	if err := s.transactionRepo.UpdateStatus(ctx, txID, status); err != nil {
		return nil, fmt.Errorf("failed to update transaction status: %w", err)
	}
	tx.Status = status

	metadata := map[string]any{
		"transaction_id": tx.ID,
		"method":         tx.Method,
	}
	if err := utils.RecordAccountDelta(ctx, s.balanceHistoryRepo, s.eventPublisher, updated, delta, txType, metadata); err != nil {
		return nil, err
	}

	s.publishDecision(tx, adjusted)

	log.WithFields(log.Fields{
		"transactionID": tx.ID,
		"userID":        tx.UserID,
		"kind":          tx.Kind,
		"amount":        tx.Amount.String(),
		"newBalance":    updated.Balance.String(),
		"newWonBalance": updated.WonBalance.String(),
	}).Info("Transaction approved")

	return &interfaces.DecisionResult{Transaction: tx, Account: updated}, nil
}

func (s *transactionService) publishDecision(tx *entities.Transaction, adjusted bool) {
	if err := s.eventPublisher.Publish(events.TransactionDecidedEvent{
		TransactionID: tx.ID,
		AccountID:     tx.UserID,
		Kind:          tx.Kind,
		Amount:        tx.Amount,
		Status:        tx.Status,
		Adjusted:      adjusted,
	}); err != nil {
		log.WithError(err).Error("Failed to publish transaction decided event")
	}
}

func (s *transactionService) DeleteTransaction(ctx context.Context, txID int64) (*entities.Transaction, error) {
	tx, err := s.transactionRepo.Delete(ctx, txID)
	if err != nil {
		return nil, fmt.Errorf("failed to delete transaction: %w", err)
	}
	if tx == nil {
		return nil, entities.NewNotFoundError("transaction %d not found", txID)
	}

	log.WithFields(log.Fields{
		"transactionID": tx.ID,
		"status":        tx.Status,
	}).Warn("Transaction deleted")

	return tx, nil
}

func (s *transactionService) ListTransactions(ctx context.Context, limit int) ([]*entities.Transaction, error) {
	txs, err := s.transactionRepo.List(ctx, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txs, nil
}

func (s *transactionService) ListUserTransactions(ctx context.Context, userID int64, limit int) ([]*entities.Transaction, error) {
	txs, err := s.transactionRepo.ListByUser(ctx, userID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to list user transactions: %w", err)
	}
	return txs, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 || limit > DefaultListLimit {
		return DefaultListLimit
	}
	return limit
}

func methodOrDefault(method string) string {
	if m := strings.TrimSpace(method); m != "" {
		return m
	}
	return entities.MethodManual
}

func optionalString(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
