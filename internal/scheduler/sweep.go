// Package scheduler runs the nightly catalog-wide anomaly sweep on a
// cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"github.com/rxforecaster/backend-go/internal/config"
	"github.com/rxforecaster/backend-go/internal/service"
)

// Sweeper schedules bulk anomaly detection over the whole catalog. Each
// run persists one summary row per successfully analyzed item.
type Sweeper struct {
	anomalies *service.AnomalyService
	cfg       config.SweepConfig
	cron      *cron.Cron
}

func NewSweeper(anomalies *service.AnomalyService, cfg config.SweepConfig) *Sweeper {
	return &Sweeper{
		anomalies: anomalies,
		cfg:       cfg,
		cron:      cron.New(),
	}
}

// Start registers the sweep job and starts the cron runner. It is a
// no-op when the sweep is disabled.
func (s *Sweeper) Start() error {
	if !s.cfg.Enabled {
		log.Info().Msg("anomaly sweep disabled")
		return nil
	}

	_, err := s.cron.AddFunc(s.cfg.CronSpec, s.runSweep)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.cfg.CronSpec, err)
	}

	s.cron.Start()
	log.Info().Str("schedule", s.cfg.CronSpec).Msg("anomaly sweep scheduled")
	return nil
}

// Stop halts the cron runner and waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
}

func (s *Sweeper) runSweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	started := time.Now()
	results, err := s.anomalies.BulkDetect(ctx, nil, 0)
	if err != nil {
		log.Error().Err(err).Msg("anomaly sweep failed")
		return
	}

	analyzed, failed := 0, 0
	for _, item := range results {
		if item.Err != nil {
			failed++
			continue
		}
		analyzed++
	}
	log.Info().
		Int("analyzed", analyzed).
		Int("failed", failed).
		Dur("elapsed", time.Since(started)).
		Msg("anomaly sweep complete")
}
