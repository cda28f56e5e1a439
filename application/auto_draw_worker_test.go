package application

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"raffle/domain/interfaces"

	"github.com/stretchr/testify/assert"
)

type countingRunner struct {
	calls  atomic.Int32
	result *interfaces.ScheduledDrawResult
	err    error
}

func (r *countingRunner) RunScheduledDraw(ctx context.Context) (*interfaces.ScheduledDrawResult, error) {
	r.calls.Add(1)
	return r.result, r.err
}

func TestAutoDrawWorker_ChecksOnEveryTick(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{result: &interfaces.ScheduledDrawResult{}}
	worker := NewAutoDrawWorker(runner, 10*time.Millisecond)

	stop := worker.Start(context.Background())
	assert.Eventually(t, func() bool {
		return runner.calls.Load() >= 3
	}, time.Second, 5*time.Millisecond)

	stop()
	stopped := runner.calls.Load()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, stopped, runner.calls.Load(), "no checks after stop")

	// Stopping twice is safe
	stop()
}

func TestAutoDrawWorker_SurvivesFailures(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{err: errors.New("database unavailable")}
	worker := NewAutoDrawWorker(runner, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	stop := worker.Start(ctx)
	defer stop()

	assert.Eventually(t, func() bool {
		return runner.calls.Load() >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
}

func TestAutoDrawWorker_ChecksImmediatelyOnStart(t *testing.T) {
	t.Parallel()

	runner := &countingRunner{result: &interfaces.ScheduledDrawResult{Due: true}}
	worker := NewAutoDrawWorker(runner, time.Hour)

	stop := worker.Start(context.Background())
	defer stop()

	assert.Eventually(t, func() bool {
		return runner.calls.Load() == 1
	}, time.Second, 5*time.Millisecond)
}
