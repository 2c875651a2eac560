package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Runner repeats a check on a fixed interval. Runs never overlap: if a
// check is still in flight when the next tick fires, the tick is skipped.
type Runner struct {
	check    func(ctx context.Context)
	cron     *cron.Cron
	logger   *logrus.Logger
	interval time.Duration

	mu      sync.Mutex
	running bool
}

func NewRunner(check func(ctx context.Context), interval time.Duration, logger *logrus.Logger) *Runner {
	return &Runner{
		check:    check,
		cron:     cron.New(cron.WithSeconds()),
		logger:   logger,
		interval: interval,
	}
}

func (r *Runner) Start(ctx context.Context) error {
	r.logger.WithField("interval", r.interval).Info("Starting check scheduler")

	spec := fmt.Sprintf("@every %s", r.interval)
	_, err := r.cron.AddFunc(spec, func() {
		r.runOnce(ctx)
	})
	if err != nil {
		return err
	}

	r.cron.Start()

	// Run initial check immediately
	go r.runOnce(ctx)

	return nil
}

func (r *Runner) Stop() {
	r.logger.Info("Stopping check scheduler")
	r.cron.Stop()
}

func (r *Runner) runOnce(ctx context.Context) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.logger.Warn("Previous check still running, skipping tick")
		return
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	r.check(ctx)
}
