package services

import (
	"context"
	"fmt"
	"time"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// MaxAutoDrawDays bounds the auto-draw interval
const MaxAutoDrawDays = 365

type statsService struct {
	statsRepo      interfaces.GlobalStatsRepository
	eventPublisher interfaces.EventPublisher
}

// NewStatsService creates a new stats service
func NewStatsService(statsRepo interfaces.GlobalStatsRepository, eventPublisher interfaces.EventPublisher) interfaces.StatsService {
	return &statsService{
		statsRepo:      statsRepo,
		eventPublisher: eventPublisher,
	}
}

func (s *statsService) GetStats(ctx context.Context) (*entities.GlobalStats, error) {
	stats, err := s.statsRepo.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get global stats: %w", err)
	}
	return stats, nil
}

// SetTicketPrice is refused mid-cycle: the gross pool is total_sold * ticket_price,
// so a price change with tickets outstanding would no longer match the money collected.
func (s *statsService) SetTicketPrice(ctx context.Context, price decimal.Decimal) (*entities.GlobalStats, error) {
	if err := entities.ValidateAmount("ticket price", price); err != nil {
		return nil, err
	}

	stats, err := s.statsRepo.GetForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get global stats: %w", err)
	}
	if stats.TotalSold > 0 {
		return nil, entities.NewInvalidInputError("ticket price cannot change while %d tickets are outstanding", stats.TotalSold)
	}

	if err := s.statsRepo.SetTicketPrice(ctx, price); err != nil {
		return nil, fmt.Errorf("failed to set ticket price: %w", err)
	}

	log.WithFields(log.Fields{
		"oldPrice": stats.TicketPrice.String(),
		"newPrice": price.String(),
	}).Info("Ticket price updated")

	stats.TicketPrice = price
	return stats, nil
}

// SetAutoDrawSchedule sets the interval and restarts the deadline from now. Zero days disables it.
func (s *statsService) SetAutoDrawSchedule(ctx context.Context, days int, now time.Time) (*entities.GlobalStats, error) {
	if days < 0 {
		return nil, entities.NewInvalidInputError("auto draw days cannot be negative")
	}
	if days > MaxAutoDrawDays {
		return nil, entities.NewInvalidInputError("auto draw days cannot exceed %d", MaxAutoDrawDays)
	}

	stats, err := s.statsRepo.GetForUpdate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get global stats: %w", err)
	}

	stats.AutoDrawDays = days
	next := stats.NextDeadline(now)
	if err := s.statsRepo.SetAutoDrawSchedule(ctx, days, next); err != nil {
		return nil, fmt.Errorf("failed to set auto draw schedule: %w", err)
	}
	stats.NextDrawTime = next

	if err := s.eventPublisher.Publish(events.DrawScheduleChangedEvent{
		AutoDrawDays: days,
		NextDrawTime: next,
	}); err != nil {
		log.WithError(err).Error("Failed to publish draw schedule changed event")
	}

	log.WithFields(log.Fields{
		"autoDrawDays": days,
		"nextDrawTime": next,
	}).Info("Auto draw schedule updated")

	return stats, nil
}
