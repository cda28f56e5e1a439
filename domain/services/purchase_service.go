package services

import (
	"context"
	"fmt"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"
	"raffle/domain/utils"

	log "github.com/sirupsen/logrus"
)

// MaxTicketsPerPurchase bounds a single bulk purchase
const MaxTicketsPerPurchase = 10000

type purchaseService struct {
	accountRepo        interfaces.AccountRepository
	ticketRepo         interfaces.TicketRepository
	statsRepo          interfaces.GlobalStatsRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
}

// NewPurchaseService creates a new purchase service
func NewPurchaseService(
	accountRepo interfaces.AccountRepository,
	ticketRepo interfaces.TicketRepository,
	statsRepo interfaces.GlobalStatsRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
) interfaces.PurchaseService {
	return &purchaseService{
		accountRepo:        accountRepo,
		ticketRepo:         ticketRepo,
		statsRepo:          statsRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
	}
}

// BuyTickets must run inside a single transaction. The stats row is locked first,
// which also keeps the purchase from interleaving with a draw.
func (s *purchaseService) BuyTickets(ctx context.Context, userID int64, quantity int) (*interfaces.PurchaseResult, error) {
	if quantity <= 0 {
		return nil, entities.NewInvalidInputError("quantity must be positive")
	}
	if quantity > MaxTicketsPerPurchase {
		return nil, entities.NewInvalidInputError("quantity cannot exceed %d", MaxTicketsPerPurchase)
	}

	stats, err := s.statsRepo.GetForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get global stats: %w", err)
	}
	totalCost := stats.TicketCost(quantity)

	account, err := s.accountRepo.GetByIDForUpdate(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if account == nil {
		return nil, entities.NewNotFoundError("account %d not found", userID)
	}

	debit, err := account.PlanPurchaseDebit(totalCost)
	if err != nil {
		return nil, err
	}

	delta := debit.Delta()
	delta.TicketsOwned = int64(quantity)
	updated, err := s.accountRepo.ApplyDelta(ctx, userID, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to debit account: %w", err)
	}

	tickets, err := s.ticketRepo.CreateBatch(ctx, userID, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to issue tickets: %w", err)
	}
	if len(tickets) != quantity {
		return nil, fmt.Errorf("issued %d tickets, expected %d", len(tickets), quantity)
	}

	totalSold, err := s.statsRepo.IncrementTotalSold(ctx, quantity)
	if err != nil {
		return nil, fmt.Errorf("failed to update total sold: %w", err)
	}

	first, last := entities.SerialRange(tickets)
	metadata := map[string]any{
		"quantity":     quantity,
		"ticket_price": stats.TicketPrice.String(),
		"first_serial": first,
		"last_serial":  last,
	}
	if err := utils.RecordAccountDelta(ctx, s.balanceHistoryRepo, s.eventPublisher, updated, delta, entities.TransactionTypeTicketPurchase, metadata); err != nil {
		return nil, err
	}

	if err := s.eventPublisher.Publish(events.TicketsPurchasedEvent{
		AccountID:   userID,
		Quantity:    quantity,
		TotalCost:   totalCost,
		FirstSerial: first,
		LastSerial:  last,
		TotalSold:   totalSold,
	}); err != nil {
		log.WithError(err).Error("Failed to publish tickets purchased event")
	}

	log.WithFields(log.Fields{
		"userID":      userID,
		"quantity":    quantity,
		"totalCost":   totalCost.String(),
		"fromBalance": debit.FromBalance.String(),
		"fromWon":     debit.FromWon.String(),
		"firstSerial": first,
		"lastSerial":  last,
	}).Info("Tickets purchased")

	return &interfaces.PurchaseResult{
		Quantity:      quantity,
		TotalCost:     totalCost,
		Debit:         debit,
		NewBalance:    updated.Balance,
		NewWonBalance: updated.WonBalance,
		TotalSold:     totalSold,
		FirstSerial:   first,
		LastSerial:    last,
		Tickets:       tickets,
	}, nil
}
