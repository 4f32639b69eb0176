// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

type Cron struct {
	c      *cron.Cron
	logger *zap.Logger
}

func NewCron(loc *time.Location, logger *zap.Logger) *Cron {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Cron{c: c, logger: logger}
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop waits for running jobs to finish.
func (cr *Cron) Stop() {
	ctx := cr.c.Stop()
	<-ctx.Done()
}

// AddJob schedules fn under name. Each run gets its own timeout context.
func (cr *Cron) AddJob(name, spec string, timeout time.Duration, fn func(ctx context.Context) error) (cron.EntryID, error) {
	id, err := cr.c.AddFunc(spec, func() {
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		start := time.Now()
		if err := fn(ctx); err != nil {
			cr.logger.Error("Scheduled job failed", zap.String("job", name), zap.Error(err))
			return
		}
		cr.logger.Debug("Scheduled job finished", zap.String("job", name), zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return 0, fmt.Errorf("failed to schedule %s: %w", name, err)
	}
	return id, nil
}

func (cr *Cron) Entries() []cron.Entry { return cr.c.Entries() }
