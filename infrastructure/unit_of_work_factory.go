package infrastructure

import (
	"raffle/application"
	"raffle/database"
	"raffle/domain/interfaces"
	"raffle/repository"
)

// UnitOfWorkFactory implements application.UnitOfWorkFactory.
// Every unit gets its own transactional publisher, flushed on commit.
type UnitOfWorkFactory struct {
	repoFactory interface {
		CreateWithPublisher(transactionalPublisher interfaces.TransactionalEventPublisher) application.UnitOfWork
	}
	eventPublisher interfaces.EventPublisher
}

// NewUnitOfWorkFactory creates a new UnitOfWorkFactory
func NewUnitOfWorkFactory(db *database.DB, eventPublisher interfaces.EventPublisher) *UnitOfWorkFactory {
	return &UnitOfWorkFactory{
		repoFactory:    repository.NewUnitOfWorkFactory(db),
		eventPublisher: eventPublisher,
	}
}

// Create creates a new UnitOfWork with a transactional event publisher
func (f *UnitOfWorkFactory) Create() application.UnitOfWork {
	return f.repoFactory.CreateWithPublisher(NewNATSTransactionalPublisher(f.eventPublisher))
}
