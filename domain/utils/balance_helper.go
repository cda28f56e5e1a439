package utils

import (
	"context"
	"fmt"

	"raffle/domain/entities"
	"raffle/domain/events"
	"raffle/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// RecordBalanceChange records a balance history entry and emits a balance change event.
// This is the single entry point for auditing balance movements.
func RecordBalanceChange(ctx context.Context, balanceHistoryRepo interfaces.BalanceHistoryRepository, eventPublisher interfaces.EventPublisher, history *entities.BalanceHistory) error {
	if err := balanceHistoryRepo.Record(ctx, history); err != nil {
		return fmt.Errorf("failed to record balance history: %w", err)
	}

	event := events.BalanceChangeEvent{
		AccountID:       history.AccountID,
		Bucket:          history.Bucket,
		OldBalance:      history.BalanceBefore(),
		NewBalance:      history.BalanceAfter,
		ChangeAmount:    history.ChangeAmount,
		TransactionType: history.TransactionType,
	}
	log.WithFields(log.Fields{
		"accountID":       event.AccountID,
		"bucket":          event.Bucket,
		"oldBalance":      event.OldBalance.String(),
		"newBalance":      event.NewBalance.String(),
		"transactionType": event.TransactionType,
		"changeAmount":    event.ChangeAmount.String(),
	}).Debug("Publishing BalanceChangeEvent")
	if err := eventPublisher.Publish(event); err != nil {
		log.WithError(err).Error("Failed to publish balance change event")
	}

	return nil
}

// RecordAccountDelta audits every bucket a delta moved on an already-updated account
func RecordAccountDelta(ctx context.Context, balanceHistoryRepo interfaces.BalanceHistoryRepository, eventPublisher interfaces.EventPublisher, account *entities.Account, delta entities.AccountDelta, txType entities.TransactionType, metadata map[string]any) error {
	for _, history := range entities.BalanceHistoryFor(account, delta, txType, metadata) {
		if err := RecordBalanceChange(ctx, balanceHistoryRepo, eventPublisher, history); err != nil {
			return err
		}
	}
	return nil
}
