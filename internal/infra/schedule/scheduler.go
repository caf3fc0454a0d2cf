// Package schedule runs periodic maintenance commands through the command
// bus so they pass the same middleware as API calls.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"stagerent/internal/app/commands"
	"stagerent/internal/app/handlers/orders"
	"stagerent/internal/app/principal"
)

const jobTimeout = time.Minute

type Scheduler struct {
	cron   *cron.Cron
	bus    commands.Bus
	logger *slog.Logger
}

// New parses expireUnpaid as a six-field cron expression (seconds first) in UTC.
func New(bus commands.Bus, expireUnpaid string, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := cron.New(
		cron.WithLocation(time.UTC),
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	s := &Scheduler{cron: c, bus: bus, logger: logger}
	if _, err := c.AddFunc(expireUnpaid, func() { s.ExpireUnpaid(context.Background()) }); err != nil {
		return nil, fmt.Errorf("schedule expire unpaid %q: %w", expireUnpaid, err)
	}
	return s, nil
}

// ExpireUnpaid runs one expiry sweep as the system principal.
func (s *Scheduler) ExpireUnpaid(ctx context.Context) {
	ctx, cancel := context.WithTimeout(principal.System(ctx, "expire-unpaid"), jobTimeout)
	defer cancel()
	res, err := s.bus.Dispatch(ctx, orders.ExpireUnpaidCommand{})
	if err != nil {
		s.logger.Error("expire unpaid orders failed", slog.Any("err", err))
		return
	}
	if r, ok := res.(orders.ExpireUnpaidResult); ok && len(r.Expired) > 0 {
		s.logger.Info("expire unpaid sweep", slog.Int("expired", len(r.Expired)))
	}
}

// Run starts the cron loop and blocks until ctx is done, then waits for
// running jobs.
func (s *Scheduler) Run(ctx context.Context) error {
	s.cron.Start()
	s.logger.Info("scheduler started", slog.Int("jobs", len(s.cron.Entries())))
	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
	return nil
}
