package worker

import (
	"context"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/jkorhonen/carrier/internal/config"
)

// Sweeper runs the periodic enrichment and send sweeps on cron schedules.
// Sweeps are the safety net under the trigger queue: any message a lost or
// failed trigger left behind is picked up on the next tick.
type Sweeper struct {
	orchestrator Orchestrator
	cfg          config.WorkerConfig
	log          zerolog.Logger
	c            *cron.Cron
}

// NewSweeper creates a Sweeper with the configured schedules.
func NewSweeper(orchestrator Orchestrator, cfg config.WorkerConfig, log zerolog.Logger) *Sweeper {
	return &Sweeper{
		orchestrator: orchestrator,
		cfg:          cfg,
		log:          log,
	}
}

// Start registers the sweep jobs and starts the cron scheduler.
func (s *Sweeper) Start(ctx context.Context) error {
	s.c = cron.New()

	if _, err := s.c.AddFunc(s.cfg.EnrichSchedule, func() {
		if err := s.orchestrator.SweepEnrich(ctx); err != nil {
			s.log.Error().Err(err).Msg("enrichment sweep failed")
		}
	}); err != nil {
		return err
	}

	if _, err := s.c.AddFunc(s.cfg.SendSchedule, func() {
		if err := s.orchestrator.SweepSend(ctx); err != nil {
			s.log.Error().Err(err).Msg("send sweep failed")
		}
	}); err != nil {
		return err
	}

	s.c.Start()
	s.log.Info().
		Str("enrich_schedule", s.cfg.EnrichSchedule).
		Str("send_schedule", s.cfg.SendSchedule).
		Msg("sweeper started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Sweeper) Stop() {
	stopCtx := s.c.Stop()
	<-stopCtx.Done()
	s.log.Info().Msg("sweeper stopped")
}
