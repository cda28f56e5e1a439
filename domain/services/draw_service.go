package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"
	"raffle/domain/utils"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

type drawService struct {
	accountRepo        interfaces.AccountRepository
	ticketRepo         interfaces.TicketRepository
	statsRepo          interfaces.GlobalStatsRepository
	balanceHistoryRepo interfaces.BalanceHistoryRepository
	eventPublisher     interfaces.EventPublisher
	sampler            interfaces.TicketSampler
	houseAccountID     int64
}

// NewDrawService creates a new draw service. The commission is credited to houseAccountID.
func NewDrawService(
	accountRepo interfaces.AccountRepository,
	ticketRepo interfaces.TicketRepository,
	statsRepo interfaces.GlobalStatsRepository,
	balanceHistoryRepo interfaces.BalanceHistoryRepository,
	eventPublisher interfaces.EventPublisher,
	sampler interfaces.TicketSampler,
	houseAccountID int64,
) interfaces.DrawService {
	return &drawService{
		accountRepo:        accountRepo,
		ticketRepo:         ticketRepo,
		statsRepo:          statsRepo,
		balanceHistoryRepo: balanceHistoryRepo,
		eventPublisher:     eventPublisher,
		sampler:            sampler,
		houseAccountID:     houseAccountID,
	}
}

func (s *drawService) DrawWinners(ctx context.Context) (*interfaces.DrawResult, error) {
	stats, err := s.lockStats(ctx)
	if err != nil {
		return nil, err
	}
	return s.draw(ctx, stats, time.Now().UTC(), false)
}

// RunScheduledDraw persists the advanced deadline in the same transaction as the draw.
// A cycle with no tickets still advances the deadline.
func (s *drawService) RunScheduledDraw(ctx context.Context, now time.Time) (*interfaces.ScheduledDrawResult, error) {
	stats, err := s.lockStats(ctx)
	if err != nil {
		return nil, err
	}

	if !stats.AutoDrawDue(now) {
		return &interfaces.ScheduledDrawResult{NextDrawTime: stats.NextDrawTime}, nil
	}

	next := stats.NextDeadline(now)
	if err := s.statsRepo.SetAutoDrawSchedule(ctx, stats.AutoDrawDays, next); err != nil {
		return nil, fmt.Errorf("failed to advance draw deadline: %w", err)
	}
	stats.NextDrawTime = next

	if err := s.eventPublisher.Publish(events.DrawScheduleChangedEvent{
		AutoDrawDays: stats.AutoDrawDays,
		NextDrawTime: next,
	}); err != nil {
		log.WithError(err).Error("Failed to publish draw schedule changed event")
	}

	result := &interfaces.ScheduledDrawResult{Due: true, NextDrawTime: next}
	draw, err := s.draw(ctx, stats, now.UTC(), true)
	if errors.Is(err, entities.ErrNoTicketsSold) {
		log.WithField("nextDrawTime", next).Info("Scheduled draw skipped, no tickets sold")
		return result, nil
	}
	if err != nil {
		return nil, err
	}
	result.Draw = draw
	return result, nil
}

// lockStats takes the draw lock before the stats row so every draw path locks in the same order
func (s *drawService) lockStats(ctx context.Context) (*entities.GlobalStats, error) {
	if err := s.statsRepo.AcquireDrawLock(ctx); err != nil {
		return nil, fmt.Errorf("failed to acquire draw lock: %w", err)
	}
	stats, err := s.statsRepo.GetForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get global stats: %w", err)
	}
	return stats, nil
}

func (s *drawService) draw(ctx context.Context, stats *entities.GlobalStats, drawnAt time.Time, scheduled bool) (*interfaces.DrawResult, error) {
	count, err := s.ticketRepo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count tickets: %w", err)
	}
	if count == 0 {
		return nil, entities.NewNoTicketsSoldError("no tickets sold in the current cycle")
	}

	split := entities.CalculatePrizeSplit(stats.GrossPool())

	offsets, err := s.sampler.Sample(count, entities.WinnerSlots)
	if err != nil {
		return nil, fmt.Errorf("failed to sample tickets: %w", err)
	}

	tickets := make([]*entities.Ticket, 0, len(offsets))
	ownerIDs := make([]int64, 0, len(offsets))
	for _, offset := range offsets {
		ticket, err := s.ticketRepo.GetByOffset(ctx, offset)
		if err != nil {
			return nil, fmt.Errorf("failed to get ticket at offset %d: %w", offset, err)
		}
		if ticket == nil {
			return nil, entities.NewNotFoundError("no ticket at offset %d", offset)
		}
		tickets = append(tickets, ticket)
		ownerIDs = append(ownerIDs, ticket.OwnerID)
	}

	owners, err := s.accountRepo.GetByIDs(ctx, ownerIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to get winners: %w", err)
	}

	var slots [entities.WinnerSlots]entities.WinnerSlot
	winners := make([]interfaces.DrawWinner, 0, len(tickets))
	credits := map[int64]entities.AccountDelta{}
	for rank, ticket := range tickets {
		owner, ok := owners[ticket.OwnerID]
		if !ok {
			return nil, entities.NewNotFoundError("owner %d of ticket %d not found", ticket.OwnerID, ticket.ID)
		}
		name := owner.WinnerName()
		ticketID := ticket.ID
		prize := split.Prizes[rank]

		slots[rank] = entities.WinnerSlot{Name: &name, TicketID: &ticketID, Prize: prize}
		winners = append(winners, interfaces.DrawWinner{
			Rank:      rank + 1,
			TicketID:  ticket.ID,
			AccountID: ticket.OwnerID,
			Name:      name,
			Prize:     prize,
		})

		delta := credits[ticket.OwnerID]
		delta.WonBalance = delta.WonBalance.Add(prize)
		credits[ticket.OwnerID] = delta
	}
	for rank := len(tickets); rank < entities.WinnerSlots; rank++ {
		slots[rank] = entities.WinnerSlot{Prize: decimal.Zero}
	}

	unclaimed := split.Unclaimed(len(tickets))
	houseDelta := credits[s.houseAccountID]
	houseDelta.CommissionBalance = houseDelta.CommissionBalance.Add(split.HouseFee).Add(unclaimed)
	credits[s.houseAccountID] = houseDelta

	if err := s.applyCredits(ctx, credits, stats.TotalSold); err != nil {
		return nil, err
	}

	if err := s.statsRepo.RecordDraw(ctx, slots, drawnAt); err != nil {
		return nil, fmt.Errorf("failed to record draw: %w", err)
	}
	if _, err := s.ticketRepo.DeleteAll(ctx); err != nil {
		return nil, fmt.Errorf("failed to clear tickets: %w", err)
	}
	if _, err := s.accountRepo.ResetTicketsOwned(ctx); err != nil {
		return nil, fmt.Errorf("failed to reset ticket counts: %w", err)
	}

	result := &interfaces.DrawResult{
		TicketsSold: stats.TotalSold,
		Split:       split,
		Unclaimed:   unclaimed,
		Winners:     winners,
		DrawnAt:     drawnAt,
	}
	s.publishDraw(result, scheduled)

	log.WithFields(log.Fields{
		"ticketsSold": stats.TotalSold,
		"grossPool":   split.Gross.String(),
		"houseFee":    split.HouseFee.String(),
		"unclaimed":   unclaimed.String(),
		"winners":     len(winners),
		"scheduled":   scheduled,
	}).Info("Draw completed")

	return result, nil
}

// applyCredits updates accounts in ascending ID order
func (s *drawService) applyCredits(ctx context.Context, credits map[int64]entities.AccountDelta, ticketsSold int64) error {
	ids := make([]int64, 0, len(credits))
	for id := range credits {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	metadata := map[string]any{"tickets_sold": ticketsSold}
	for _, id := range ids {
		delta := credits[id]
		updated, err := s.accountRepo.ApplyDelta(ctx, id, delta)
		if err != nil {
			return fmt.Errorf("failed to credit account %d: %w", id, err)
		}
		prize := entities.AccountDelta{WonBalance: delta.WonBalance}
		if err := utils.RecordAccountDelta(ctx, s.balanceHistoryRepo, s.eventPublisher, updated, prize, entities.TransactionTypeDrawPrize, metadata); err != nil {
			return err
		}
		commission := entities.AccountDelta{CommissionBalance: delta.CommissionBalance}
		if err := utils.RecordAccountDelta(ctx, s.balanceHistoryRepo, s.eventPublisher, updated, commission, entities.TransactionTypeDrawCommission, metadata); err != nil {
			return err
		}
	}
	return nil
}

func (s *drawService) publishDraw(result *interfaces.DrawResult, scheduled bool) {
	winners := make([]events.DrawWinner, 0, len(result.Winners))
	for _, w := range result.Winners {
		winners = append(winners, events.DrawWinner{
			Rank:      w.Rank,
			AccountID: w.AccountID,
			TicketID:  w.TicketID,
			Name:      w.Name,
			Prize:     w.Prize,
		})
	}
	if err := s.eventPublisher.Publish(events.DrawCompletedEvent{
		TicketsSold: result.TicketsSold,
		GrossPool:   result.Split.Gross,
		HouseFee:    result.Split.HouseFee,
		Unclaimed:   result.Unclaimed,
		Winners:     winners,
		Scheduled:   scheduled,
		DrawnAt:     result.DrawnAt,
	}); err != nil {
		log.WithError(err).Error("Failed to publish draw completed event")
	}
}
