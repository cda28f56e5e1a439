package observability

// Metric name prefixes
const (
	MetricPrefix = "raffle"
)

// Metric names
const (
	// Ledger metrics
	TicketsSoldTotal          = MetricPrefix + ".tickets.sold_total"
	DrawsTotal                = MetricPrefix + ".draws.total"
	TransactionDecisionsTotal = MetricPrefix + ".transactions.decisions_total"
	BalanceMovementsTotal     = MetricPrefix + ".balance.movements_total"

	// NATS metrics
	NATSMessagesPublishedTotal = MetricPrefix + ".nats.messages_published_total"

	// Unit of work metrics
	UnitRetriesTotal = MetricPrefix + ".database.unit_retries_total"
	UnitDuration     = MetricPrefix + ".database.unit_duration"
)

// Label keys
const (
	LabelType      = "type"
	LabelEventType = "event_type"
	LabelKind      = "kind"
	LabelStatus    = "status"
	LabelScheduled = "scheduled"
	LabelOperation = "operation"
)
