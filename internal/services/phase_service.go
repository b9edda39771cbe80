// Package services – PhaseService
//
// This file implements the phase state machine driving the weekly cycle:
// COLLECTING → VOTING → READY, each transition fired by the scheduler at its
// configured time. Transitions are deliberately permissive: none of them
// checks which phase is currently active, each simply performs its own
// effects. The scheduler owns the ordering.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/filmnight/bot/internal/domain"
	"github.com/filmnight/bot/internal/repo"
	"github.com/filmnight/bot/internal/session"
)

// PhaseService owns the global phase transitions.
type PhaseService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// State is the key/value state store.
	State StateStore
	// Sessions is the per-user interaction tracker, wiped on a new epoch.
	Sessions *session.Tracker
	// Ballots publishes and closes the ballot on the voting transitions.
	Ballots *BallotService
	// Notifier announces the opening of nominations.
	Notifier Notifier
	// BotUsername is mentioned in the opening announcement so members know
	// whom to message.
	BotUsername string
	// Now is the clock; defaults to time.Now when nil.
	Now func() time.Time
}

// BeginCollecting mints a new epoch, switches the phase to COLLECTING, wipes
// all pending per-user interaction state, and announces the opening.
//
// The epoch is derived from the current time in unix milliseconds and bumped
// past the stored epoch if the clock did not move forward, so epoch ids are
// strictly increasing across cycles.
func (s *PhaseService) BeginCollecting(ctx context.Context) error {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	epoch := now().UnixMilli()

	prev, err := s.State.CurrentEpoch(ctx, s.DB)
	switch {
	case errors.Is(err, repo.ErrStateMissing):
		// first cycle ever
	case err != nil:
		return fmt.Errorf("read previous epoch: %w", err)
	case epoch <= prev:
		epoch = prev + 1
	}

	if err := s.State.SetCurrentEpoch(ctx, s.DB, epoch); err != nil {
		return fmt.Errorf("store new epoch: %w", err)
	}
	if err := s.State.SetCurrentPhase(ctx, s.DB, domain.PhaseCollecting); err != nil {
		return fmt.Errorf("switch phase: %w", err)
	}
	s.Sessions.Reset()

	_, err = s.Notifier.SendToChannel(ctx, fmt.Sprintf(
		"Movie night nominations #%d are open.\nMessage @%s and send /start to nominate a movie.",
		epoch, s.BotUsername))
	return err
}

// BeginVoting switches the phase to VOTING and publishes the ballot. With no
// nominations the ballot announces the skip but the phase still switches.
func (s *PhaseService) BeginVoting(ctx context.Context) error {
	if err := s.State.SetCurrentPhase(ctx, s.DB, domain.PhaseVoting); err != nil {
		return fmt.Errorf("switch phase: %w", err)
	}
	return s.Ballots.Publish(ctx, s.epochOrZero(ctx))
}

// BeginPublishing switches the phase to READY, closes the polls, and
// announces the result.
func (s *PhaseService) BeginPublishing(ctx context.Context) error {
	if err := s.State.SetCurrentPhase(ctx, s.DB, domain.PhaseReady); err != nil {
		return fmt.Errorf("switch phase: %w", err)
	}
	return s.Ballots.CloseAndAnnounce(ctx, s.epochOrZero(ctx))
}

// epochOrZero resolves the current epoch; before the first collecting phase
// it returns 0, an epoch no nomination row can carry, so downstream reads
// see an empty cycle.
func (s *PhaseService) epochOrZero(ctx context.Context) int64 {
	epoch, err := s.State.CurrentEpoch(ctx, s.DB)
	if err != nil {
		return 0
	}
	return epoch
}
