package services

import (
	"context"
	"fmt"

	"raffle/domain/entities"
	"raffle/domain/interfaces"
	"raffle/domain/utils"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type accountService struct {
	accountRepo        interfaces.AccountRepository
	ticketRepo         interfaces.TicketRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
}

// NewAccountService creates a new account service
func NewAccountService(
	accountRepo interfaces.AccountRepository,
	ticketRepo interfaces.TicketRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.AccountService {
	return &accountService{
		accountRepo:        accountRepo,
		ticketRepo:         ticketRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
	}
}

func (s *accountService) GetProfile(ctx context.Context, userID int64) (*entities.Account, error) {
	account, err := s.accountRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, entities.NewNotFoundError("account %d not found", userID)
	}
	return account, nil
}

func (s *accountService) UpdateDisplayName(ctx context.Context, userID int64, name string) (*entities.Account, error) {
	trimmed, err := entities.ValidateDisplayName(name)
	if err != nil {
		return nil, err
	}

	account, err := s.accountRepo.UpdateDisplayName(ctx, userID, trimmed)
	if err != nil {
		return nil, fmt.Errorf("failed to update display name: %w", err)
	}
	if account == nil {
		return nil, entities.NewNotFoundError("account %d not found", userID)
	}
	return account, nil
}

func (s *accountService) ListAccounts(ctx context.Context) ([]*entities.Account, error) {
	accounts, err := s.accountRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (s *accountService) ListTickets(ctx context.Context, userID int64) ([]*entities.Ticket, error) {
	tickets, err := s.ticketRepo.ListByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return tickets, nil
}

// AdjustBalance mutates the spendable balance directly, bypassing the approval workflow
func (s *accountService) AdjustBalance(ctx context.Context, userID int64, amount decimal.Decimal, direction interfaces.AdjustDirection) (*entities.Account, error) {
	if err := entities.ValidateAmount("amount", amount); err != nil {
		return nil, err
	}

	var delta entities.AccountDelta
	switch direction {
	case interfaces.AdjustAdd:
		delta.Balance = amount
	case interfaces.AdjustSubtract:
		delta.Balance = amount.Neg()
	default:
		return nil, entities.NewInvalidInputError("direction must be %q or %q", interfaces.AdjustAdd, interfaces.AdjustSubtract)
	}

	updated, err := s.accountRepo.ApplyDelta(ctx, userID, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust balance: %w", err)
	}

	metadata := map[string]any{"direction": string(direction)}
	if err := utils.RecordAccountDelta(ctx, s.balanceHistoryRepo, s.eventPublisher, updated, delta, entities.TransactionTypeAdminAdjustment, metadata); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"userID":     userID,
		"direction":  direction,
		"amount":     amount.String(),
		"newBalance": updated.Balance.String(),
	}).Info("Balance adjusted")

	return updated, nil
}

// ClaimCommission moves the whole commission balance into the spendable balance
func (s *accountService) ClaimCommission(ctx context.Context, userID int64) (*entities.Account, decimal.Decimal, error) {
	account, err := s.accountRepo.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, decimal.Zero, entities.NewNotFoundError("account %d not found", userID)
	}
	if !account.IsAdmin() {
		return nil, decimal.Zero, entities.NewInvalidInputError("only admin accounts hold commission")
	}
	claimed := account.CommissionBalance
	if !claimed.IsPositive() {
		return nil, decimal.Zero, entities.NewInvalidInputError("no commission to claim")
	}

	delta := entities.AccountDelta{
		Balance:           claimed,
		CommissionBalance: claimed.Neg(),
	}
	updated, err := s.accountRepo.ApplyDelta(ctx, userID, delta)
	if err != nil {
		return nil, decimal.Zero, fmt.Errorf("failed to claim commission: %w", err)
	}

	if err := utils.RecordAccountDelta(ctx, s.balanceHistoryRepo, s.eventPublisher, updated, delta, entities.TransactionTypeCommissionClaim, nil); err != nil {
		return nil, decimal.Zero, err
	}

	log.WithFields(log.Fields{
		"userID":  userID,
		"claimed": claimed.String(),
	}).Info("Commission claimed")

	return updated, claimed, nil
}
