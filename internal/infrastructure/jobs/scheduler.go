package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultSweepSchedule runs at the top of every hour.
const DefaultSweepSchedule = "0 0 * * * *"

const sweepTimeout = time.Minute

// Sweeper marks events whose date has passed as inactive.
type Sweeper interface {
	DeactivatePastEvents(ctx context.Context) (int64, error)
}

type Scheduler struct {
	cron    *cron.Cron
	sweeper Sweeper
	spec    string
	log     zerolog.Logger
}

// NewScheduler builds a seconds-resolution scheduler. An empty spec selects
// DefaultSweepSchedule.
func NewScheduler(sweeper Sweeper, spec string, log zerolog.Logger) *Scheduler {
	if spec == "" {
		spec = DefaultSweepSchedule
	}
	return &Scheduler{
		cron:    cron.New(cron.WithSeconds()),
		sweeper: sweeper,
		spec:    spec,
		log:     log,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.sweep); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", s.spec, err)
	}
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and returns a context that is done once any
// running sweep has finished.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.sweeper.DeactivatePastEvents(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("past event sweep failed")
		return
	}
	s.log.Debug().Int64("deactivated", n).Msg("sweep finished")
}
