package observability

import (
	"context"
	"fmt"
	"sync"
	"time"

	"raffle/config"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.34.0"
)

// MetricsProvider manages OpenTelemetry metrics for the raffle service.
// Every Record method is a no-op until Initialize has set up an exporter.
type MetricsProvider struct {
	config        *config.Config
	meterProvider *sdkmetric.MeterProvider
	meter         metric.Meter
	initialized   bool
	enabled       bool
	mu            sync.RWMutex

	// Metric instruments
	ticketsSoldCounter           metric.Int64Counter
	drawsCounter                 metric.Int64Counter
	transactionDecisionsCounter  metric.Int64Counter
	balanceMovementsCounter      metric.Int64Counter
	natsMessagesPublishedCounter metric.Int64Counter
	unitRetriesCounter           metric.Int64Counter
	unitDurationHist             metric.Float64Histogram
}

// NewMetricsProvider creates a new metrics provider
func NewMetricsProvider(cfg *config.Config) *MetricsProvider {
	return &MetricsProvider{
		config: cfg,
	}
}

// Initialize sets up the OpenTelemetry metrics provider
func (mp *MetricsProvider) Initialize(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.initialized {
		log.Info("Metrics provider already initialized")
		return nil
	}

	if !mp.config.OTelEnabled {
		log.Info("OpenTelemetry metrics disabled")
		mp.initialized = true
		return nil
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(mp.config.OTelServiceName),
			attribute.String("environment", mp.config.Environment),
		),
	)
	if err != nil {
		return fmt.Errorf("failed to create resource: %w", err)
	}

	var exporter sdkmetric.Exporter
	switch mp.config.OTelExporterType {
	case "console":
		exporter, err = stdoutmetric.New()
		if err != nil {
			return fmt.Errorf("failed to create console exporter: %w", err)
		}
		log.Info("Using console metric exporter")

	case "otlp":
		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		exporter, err = otlpmetricgrpc.New(ctx,
			otlpmetricgrpc.WithEndpoint(mp.config.OTelOTLPEndpoint),
			otlpmetricgrpc.WithInsecure(),
		)
		if err != nil {
			return fmt.Errorf("failed to create OTLP exporter: %w", err)
		}
		log.WithField("endpoint", mp.config.OTelOTLPEndpoint).Info("Using OTLP metric exporter")

	case "none":
		log.Info("Metrics export disabled (exporter_type='none')")
		mp.initialized = true
		return nil

	default:
		return fmt.Errorf("unknown exporter type: %s", mp.config.OTelExporterType)
	}

	interval := time.Duration(mp.config.OTelExportIntervalMillis) * time.Millisecond
	if interval <= 0 {
		interval = time.Minute
	}

	mp.meterProvider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp.meterProvider)
	mp.meter = mp.meterProvider.Meter("raffle")

	if err := mp.createInstruments(); err != nil {
		return fmt.Errorf("failed to create instruments: %w", err)
	}

	mp.initialized = true
	mp.enabled = true
	log.Info("Metrics provider initialized successfully")
	return nil
}

// createInstruments creates all metric instruments
func (mp *MetricsProvider) createInstruments() error {
	var err error

	counters := []struct {
		target      *metric.Int64Counter
		name        string
		description string
	}{
		{&mp.ticketsSoldCounter, TicketsSoldTotal, "Total number of raffle tickets sold"},
		{&mp.drawsCounter, DrawsTotal, "Total number of completed draws"},
		{&mp.transactionDecisionsCounter, TransactionDecisionsTotal, "Total number of approved or rejected transactions"},
		{&mp.balanceMovementsCounter, BalanceMovementsTotal, "Total number of balance bucket movements"},
		{&mp.natsMessagesPublishedCounter, NATSMessagesPublishedTotal, "Total number of NATS messages published"},
		{&mp.unitRetriesCounter, UnitRetriesTotal, "Total number of retried units of work"},
	}
	for _, c := range counters {
		*c.target, err = mp.meter.Int64Counter(c.name, metric.WithDescription(c.description), metric.WithUnit("1"))
		if err != nil {
			return fmt.Errorf("failed to create counter %s: %w", c.name, err)
		}
	}

	mp.unitDurationHist, err = mp.meter.Float64Histogram(
		UnitDuration,
		metric.WithDescription("Duration of ledger units of work in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0),
	)
	if err != nil {
		return fmt.Errorf("failed to create unit duration histogram: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the metrics provider
func (mp *MetricsProvider) Shutdown(ctx context.Context) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.meterProvider != nil {
		return mp.meterProvider.Shutdown(ctx)
	}
	return nil
}

// RecordTicketsSold counts tickets issued by one purchase
func (mp *MetricsProvider) RecordTicketsSold(quantity int) {
	if !mp.isEnabled() {
		return
	}
	mp.ticketsSoldCounter.Add(context.Background(), int64(quantity))
}

// RecordDraw counts a completed draw
func (mp *MetricsProvider) RecordDraw(scheduled bool, winners int) {
	if !mp.isEnabled() {
		return
	}
	mp.drawsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.Bool(LabelScheduled, scheduled),
			attribute.Int("winners", winners),
		),
	)
}

// RecordTransactionDecision counts an approval or rejection
func (mp *MetricsProvider) RecordTransactionDecision(kind, status string) {
	if !mp.isEnabled() {
		return
	}
	mp.transactionDecisionsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelKind, kind),
			attribute.String(LabelStatus, status),
		),
	)
}

// RecordBalanceMovement counts one balance bucket movement
func (mp *MetricsProvider) RecordBalanceMovement(transactionType string) {
	if !mp.isEnabled() {
		return
	}
	mp.balanceMovementsCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelType, transactionType),
		),
	)
}

// RecordNATSMessagePublished records a NATS message being published
func (mp *MetricsProvider) RecordNATSMessagePublished(eventType string) {
	if !mp.isEnabled() {
		return
	}
	mp.natsMessagesPublishedCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelEventType, eventType),
		),
	)
}

// RecordUnitRetry counts a unit of work retried after a storage conflict
func (mp *MetricsProvider) RecordUnitRetry(operation string) {
	if !mp.isEnabled() {
		return
	}
	mp.unitRetriesCounter.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String(LabelOperation, operation),
		),
	)
}

// MeasureUnit returns a function that records the unit's duration
// Usage:
//
//	defer mp.MeasureUnit("buy_tickets")()
func (mp *MetricsProvider) MeasureUnit(operation string) func() {
	start := time.Now()
	return func() {
		if !mp.isEnabled() {
			return
		}
		mp.unitDurationHist.Record(context.Background(), time.Since(start).Seconds(),
			metric.WithAttributes(
				attribute.String(LabelOperation, operation),
			),
		)
	}
}

// isEnabled checks if metrics are enabled and initialized
func (mp *MetricsProvider) isEnabled() bool {
	if mp == nil {
		return false
	}
	mp.mu.RLock()
	defer mp.mu.RUnlock()
	return mp.initialized && mp.enabled
}
