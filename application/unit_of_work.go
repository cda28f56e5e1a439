package application

import (
	"context"

	"raffle/domain/interfaces"
)

// UnitOfWork defines the interface for transactional repository operations
type UnitOfWork interface {
	// Begin starts a new transaction
	Begin(ctx context.Context) error

	// Commit commits the transaction and flushes buffered events
	Commit() error

	// Rollback rolls back the transaction and discards buffered events
	Rollback() error

	// Repository getters
	AccountRepository() interfaces.AccountRepository
	TicketRepository() interfaces.TicketRepository
	TransactionRepository() interfaces.TransactionRepository
	GlobalStatsRepository() interfaces.GlobalStatsRepository
	BalanceHistoryRepository() interfaces.BalanceHistoryRepository
	EventBus() interfaces.EventPublisher
}

// UnitOfWorkFactory defines the interface for creating UnitOfWork instances
type UnitOfWorkFactory interface {
	// Create returns a fresh, unstarted UnitOfWork
	Create() UnitOfWork
}
