// Package services – NominationService
//
// This file implements the nomination manager: capacity enforcement, the
// one-slot-per-user rule, and note attachment. It is the layer behind the
// bot's collecting-phase interactions.
//
// Every operation resolves the current epoch first; nominations from earlier
// cycles are invisible without deletion because reads filter by epoch.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/filmnight/bot/internal/domain"
	"github.com/filmnight/bot/internal/repo"
)

// DefaultCapacity is the number of filled nomination slots per cycle.
const DefaultCapacity = 10

// NominationService enforces the nomination rules for the current epoch.
type NominationService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the nomination store.
	Repo NominationStore
	// State is the key/value state store (epoch lookup).
	State StateStore
	// Capacity caps the number of filled slots per epoch.
	Capacity int
}

// NewNominationService constructs a NominationService with the default cap.
func NewNominationService(db *gorm.DB, r NominationStore, st StateStore) *NominationService {
	return &NominationService{DB: db, Repo: r, State: st, Capacity: DefaultCapacity}
}

// Claim reserves a nomination slot for the user in the current epoch.
// It returns false when the epoch already has Capacity filled slots; the
// caller should present that as a polite rejection, not a failure.
func (s *NominationService) Claim(ctx context.Context, userID int64) (bool, error) {
	epoch, err := s.epoch(ctx)
	if err != nil {
		return false, err
	}
	return s.Repo.ClaimSlot(ctx, s.DB, userID, epoch, s.Capacity)
}

// SetItem records the user's nominated title on their claimed slot.
func (s *NominationService) SetItem(ctx context.Context, userID int64, item string) error {
	item = strings.TrimSpace(item)
	if item == "" {
		return ErrEmptyItem
	}
	return s.Repo.SetItem(ctx, s.DB, userID, item)
}

// SetNote records the user's recommendation note on their slot. The slot
// must hold a title: a note without a nomination returns ErrNotNominated.
func (s *NominationService) SetNote(ctx context.Context, userID int64, note string) error {
	note = strings.TrimSpace(note)
	if note == "" {
		return ErrEmptyNote
	}
	row, err := s.UserNomination(ctx, userID)
	if err != nil {
		return err
	}
	if row == nil || row.Item == nil {
		return ErrNotNominated
	}
	return s.Repo.SetNote(ctx, s.DB, userID, note)
}

// Cancel withdraws the user's nomination, freeing their slot entirely.
func (s *NominationService) Cancel(ctx context.Context, userID int64) error {
	return s.Repo.Delete(ctx, s.DB, userID)
}

// UserNomination returns the user's slot in the current epoch, or nil when
// the user has no slot this cycle.
func (s *NominationService) UserNomination(ctx context.Context, userID int64) (*domain.Nomination, error) {
	epoch, err := s.epoch(ctx)
	if err != nil {
		return nil, err
	}
	row, err := s.Repo.Get(ctx, s.DB, userID, epoch)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return row, nil
}

// Items lists the nominated titles of the current epoch (filled slots only).
func (s *NominationService) Items(ctx context.Context) ([]string, error) {
	epoch, err := s.epoch(ctx)
	if err != nil {
		return nil, err
	}
	return s.Repo.ListItems(ctx, s.DB, epoch)
}

// Entries returns the ballot input of the current epoch.
func (s *NominationService) Entries(ctx context.Context) ([]domain.BallotEntry, error) {
	epoch, err := s.epoch(ctx)
	if err != nil {
		return nil, err
	}
	return s.Repo.ListEntries(ctx, s.DB, epoch)
}

// FilledCount returns how many slots of the current epoch hold a title.
func (s *NominationService) FilledCount(ctx context.Context) (int64, error) {
	epoch, err := s.epoch(ctx)
	if err != nil {
		return 0, err
	}
	return s.Repo.CountFilled(ctx, s.DB, epoch)
}

func (s *NominationService) epoch(ctx context.Context) (int64, error) {
	epoch, err := s.State.CurrentEpoch(ctx, s.DB)
	if errors.Is(err, repo.ErrStateMissing) {
		return 0, ErrNoEpoch
	}
	if err != nil {
		return 0, fmt.Errorf("resolve current epoch: %w", err)
	}
	return epoch, nil
}
