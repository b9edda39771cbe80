// Package scheduler runs the weekly cadence: three cron entries that move
// the bot through collecting, voting, and announcing the winner.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/filmnight/bot/internal/config"
	"github.com/filmnight/bot/internal/domain"
	"github.com/filmnight/bot/internal/observability"
	"github.com/filmnight/bot/internal/services"
)

// Scheduler owns the cron runner. Transition failures are logged and
// counted but never stop the schedule; the next tick gets another try.
type Scheduler struct {
	cron   *cron.Cron
	phases *services.PhaseService
	log    zerolog.Logger
}

// New builds a scheduler with the three phase transitions registered on
// the configured cron expressions. Expressions use six fields, seconds
// first.
func New(cfg config.ScheduleConfig, phases *services.PhaseService, log zerolog.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		phases: phases,
		log:    log.With().Str("component", "scheduler").Logger(),
	}
	entries := []struct {
		spec  string
		phase domain.Phase
		run   func(context.Context) error
	}{
		{cfg.CollectingCron, domain.PhaseCollecting, phases.BeginCollecting},
		{cfg.VotingCron, domain.PhaseVoting, phases.BeginVoting},
		{cfg.PublishingCron, domain.PhaseReady, phases.BeginPublishing},
	}
	for _, e := range entries {
		e := e
		if _, err := s.cron.AddFunc(e.spec, func() { s.transition(e.phase, e.run) }); err != nil {
			return nil, fmt.Errorf("cron %q for phase %s: %w", e.spec, e.phase, err)
		}
	}
	return s, nil
}

// Start begins firing the registered entries in their own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("weekly schedule started")
}

// Stop halts the schedule and waits for any in-flight transition.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.log.Info().Msg("weekly schedule stopped")
}

func (s *Scheduler) transition(phase domain.Phase, run func(context.Context) error) {
	s.log.Info().Str("phase", string(phase)).Msg("phase transition firing")
	if err := run(context.Background()); err != nil {
		// A missed transition desyncs the whole week; treat it as an
		// operational alert rather than retrying mid-cycle.
		s.log.Error().Err(err).Str("phase", string(phase)).Msg("phase transition failed")
		return
	}
	observability.PhaseTransitions.WithLabelValues(string(phase)).Inc()
}
