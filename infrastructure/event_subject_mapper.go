package infrastructure

import (
	"fmt"

	"raffle/domain/events"
)

// EventSubjectMapper handles mapping between domain events and NATS subjects
type EventSubjectMapper struct{}

// NewEventSubjectMapper creates a new event subject mapper
func NewEventSubjectMapper() *EventSubjectMapper {
	return &EventSubjectMapper{}
}

var eventSubjects = map[events.EventType]string{
	events.EventTypeBalanceChange:        "raffle.accounts.balance_changed",
	events.EventTypeTicketsPurchased:     "raffle.tickets.purchased",
	events.EventTypeTransactionRequested: "raffle.transactions.requested",
	events.EventTypeTransactionDecided:   "raffle.transactions.decided",
	events.EventTypeDrawCompleted:        "raffle.draws.completed",
	events.EventTypeDrawScheduleChanged:  "raffle.draws.schedule_changed",
}

// MapEventToSubject converts a domain event to its corresponding NATS subject
func (m *EventSubjectMapper) MapEventToSubject(event events.Event) string {
	if subject, ok := eventSubjects[event.Type()]; ok {
		return subject
	}
	return fmt.Sprintf("raffle.unknown.%s", event.Type())
}

// MapSubjectToEventType converts a NATS subject back to an event type
func (m *EventSubjectMapper) MapSubjectToEventType(subject string) events.EventType {
	for eventType, s := range eventSubjects {
		if s == subject {
			return eventType
		}
	}
	return events.EventType(subject)
}

// GetAllSubjects returns the subjects bound to the event stream
func (m *EventSubjectMapper) GetAllSubjects() []string {
	return []string{"raffle.>"}
}
