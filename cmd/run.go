package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"raffle/api"
	"raffle/application"
	"raffle/config"
	"raffle/database"
	"raffle/domain/events"
	"raffle/domain/interfaces"
	"raffle/infrastructure"
	"raffle/infrastructure/observability"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// ConfigureLogging applies LOG_LEVEL and LOG_FORMAT to the global logger
func ConfigureLogging(cfg *config.Config) {
	log.SetOutput(os.Stdout)

	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.LogFormat == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// services holds every long-lived dependency of the process
type services struct {
	db          *database.DB
	natsClient  *infrastructure.NATSClient
	redisClient *redis.Client
	metrics     *observability.MetricsProvider
	ledger      *application.WalletLedger
}

func newServices(ctx context.Context, cfg *config.Config) (*services, error) {
	s := &services{}

	log.Info("Connecting to database...")
	db, err := database.NewConnectionWithOptions(ctx, cfg.GetDatabaseURL(), cfg.ConnectionOptions())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	s.db = db
	log.Info("Database connection established successfully")

	s.metrics = observability.NewMetricsProvider(cfg)
	if err := s.metrics.Initialize(ctx); err != nil {
		s.close()
		return nil, fmt.Errorf("failed to initialize metrics: %w", err)
	}

	eventPublisher, err := s.newEventPublisher(ctx, cfg)
	if err != nil {
		s.close()
		return nil, err
	}

	opts := application.LedgerOptionsFromConfig(cfg)
	opts.Metrics = s.metrics
	opts.PaymentGateway = infrastructure.NewStubPaymentGateway(cfg.PaymentTokenPrefix, cfg.PaymentMerchantID)

	if cfg.DrawLockBackend == "redis" {
		log.WithField("addr", cfg.RedisAddr).Info("Connecting to Redis for the draw lock...")
		client, err := infrastructure.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			s.close()
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		s.redisClient = client
		opts.DrawLock = infrastructure.NewRedisDrawLock(client, cfg.DrawLockTTL)
	}

	uowFactory := infrastructure.NewUnitOfWorkFactory(db, eventPublisher)
	s.ledger = application.NewWalletLedger(uowFactory, opts)

	return s, nil
}

// newEventPublisher publishes to JetStream when NATS_SERVERS is set. Local
// handlers feed metrics either way.
func (s *services) newEventPublisher(ctx context.Context, cfg *config.Config) (interfaces.EventPublisher, error) {
	var publisher *infrastructure.NATSEventPublisher
	mapper := infrastructure.NewEventSubjectMapper()

	if cfg.NATSServers != "" {
		log.Info("Connecting to NATS...")
		client := infrastructure.NewNATSClient(cfg.NATSServers)
		if err := client.Connect(ctx); err != nil {
			return nil, err
		}
		s.natsClient = client

		publisher = infrastructure.NewNATSEventPublisher(client, mapper)
		if err := publisher.EnsureEventStream(client); err != nil {
			return nil, fmt.Errorf("failed to ensure event stream: %w", err)
		}
	} else {
		log.Info("NATS_SERVERS not set, events stay in-process")
		publisher = infrastructure.NewNATSEventPublisher(nil, mapper)
	}

	metrics := s.metrics
	publisher.OnPublished(func(eventType events.EventType) {
		metrics.RecordNATSMessagePublished(string(eventType))
	})
	publisher.RegisterLocalHandler(events.EventTypeBalanceChange, func(ctx context.Context, event events.Event) error {
		if change, ok := event.(events.BalanceChangeEvent); ok {
			metrics.RecordBalanceMovement(string(change.TransactionType))
		}
		return nil
	})

	return publisher, nil
}

func (s *services) close() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.metrics != nil {
		if err := s.metrics.Shutdown(shutdownCtx); err != nil {
			log.Errorf("Error shutting down metrics: %v", err)
		}
	}
	if s.natsClient != nil {
		if err := s.natsClient.Close(); err != nil {
			log.Errorf("Error closing NATS connection: %v", err)
		}
	}
	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("Error closing Redis connection: %v", err)
		}
	}
	if s.db != nil {
		log.Info("Closing database connection...")
		s.db.Close()
	}
}

// Run serves the HTTP API and the auto-draw worker until ctx is cancelled
func Run(ctx context.Context) error {
	log.Info("Starting raffle service...")

	cfg := config.Get()

	s, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	worker := application.NewAutoDrawWorker(s.ledger, cfg.AutoDrawCheckInterval)
	stopWorker := worker.Start(ctx)

	router := api.NewRouter(s.ledger, api.RouterOptions{
		JWTSecret:      cfg.JWTSecret,
		AllowedOrigins: cfg.AllowedOrigins,
	})
	server := api.NewServer(cfg.HTTPAddr, router)
	server.Start()

	log.Infof("Raffle service is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	log.Info("Shutting down raffle service...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Error shutting down HTTP API: %v", err)
	}

	// Waits for an in-flight scheduled draw to commit
	stopWorker()

	log.Info("Shutdown completed")
	return nil
}

// RunDraw performs a single manual draw and logs the winners
func RunDraw(ctx context.Context) error {
	cfg := config.Get()

	s, err := newServices(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.close()

	result, err := s.ledger.DrawWinners(ctx)
	if err != nil {
		return fmt.Errorf("draw failed: %w", err)
	}

	for _, w := range result.Winners {
		log.WithFields(log.Fields{
			"rank":     w.Rank,
			"ticketID": w.TicketID,
			"winner":   w.Name,
			"prize":    w.Prize.String(),
		}).Info("Winner drawn")
	}
	return nil
}
