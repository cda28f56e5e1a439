package application

import (
	"context"
	"sync"
	"time"

	"raffle/domain/entities"
	"raffle/domain/interfaces"

	log "github.com/sirupsen/logrus"
)

// ScheduledDrawRunner performs one scheduler check
type ScheduledDrawRunner interface {
	RunScheduledDraw(ctx context.Context) (*interfaces.ScheduledDrawResult, error)
}

// AutoDrawWorker periodically checks whether the auto-draw deadline has passed
type AutoDrawWorker struct {
	runner   ScheduledDrawRunner
	interval time.Duration
}

// NewAutoDrawWorker creates a new auto-draw worker
func NewAutoDrawWorker(runner ScheduledDrawRunner, interval time.Duration) *AutoDrawWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &AutoDrawWorker{
		runner:   runner,
		interval: interval,
	}
}

// Start begins the auto-draw worker
func (w *AutoDrawWorker) Start(ctx context.Context) func() {
	stopChan := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		log.WithField("interval", w.interval).Info("Auto-draw worker started")

		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		// Catch up on a deadline that passed while the service was down
		w.check(ctx)

		for {
			select {
			case <-ctx.Done():
				log.Info("Auto-draw worker shutting down (context cancelled)...")
				return
			case <-stopChan:
				log.Info("Auto-draw worker shutting down (stop requested)...")
				return
			case <-ticker.C:
				w.check(ctx)
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() { close(stopChan) })
		<-done
	}
}

func (w *AutoDrawWorker) check(ctx context.Context) {
	result, err := w.runner.RunScheduledDraw(ctx)
	if err != nil {
		log.Errorf("Auto-draw check failed: %v", err)
		return
	}
	if !result.Due {
		return
	}

	fields := log.Fields{}
	if result.NextDrawTime != nil {
		fields["next_draw_time"] = result.NextDrawTime.Format(time.RFC3339)
	}
	if result.Draw == nil {
		log.WithFields(fields).Info("Auto-draw deadline passed with no tickets sold")
		return
	}

	fields["tickets_sold"] = result.Draw.TicketsSold
	fields["winners"] = len(result.Draw.Winners)
	fields["gross_pool"] = result.Draw.Split.Gross.StringFixed(entities.MoneyPlaces)
	log.WithFields(fields).Info("Auto-draw completed")
}

