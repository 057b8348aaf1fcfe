package scheduler

import (
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Scheduler runs the daily screening task on a weekday cron schedule when
// the screener operates in daemon mode.
type Scheduler struct {
	cron *cron.Cron
}

// New registers task on the given cron spec (with a seconds field).
func New(dailyCron string, task func()) (*Scheduler, error) {
	c := cron.New(cron.WithSeconds())
	if _, err := c.AddFunc(dailyCron, task); err != nil {
		return nil, fmt.Errorf("register daily task: %w", err)
	}
	return &Scheduler{cron: c}, nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler gracefully.
func (s *Scheduler) Stop() {
	s.cron.Stop()
	log.Info().Msg("scheduler stopped")
}
