// Package services – ports
//
// This file defines the contracts the services need from the outside world:
// the two persistent stores and the chat-platform notifier. Implementations
// live in internal/repo (stores) and internal/bot (notifier); tests provide
// in-memory fakes.
package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/filmnight/bot/internal/domain"
)

// StateStore is the flat key/value state contract: global phase, current
// epoch, and the message/poll ids needed to close the ballot later.
type StateStore interface {
	// CurrentPhase returns the persisted phase, PhaseReady on a fresh DB.
	CurrentPhase(ctx context.Context, db *gorm.DB) (domain.Phase, error)

	// SetCurrentPhase persists the global phase.
	SetCurrentPhase(ctx context.Context, db *gorm.DB, p domain.Phase) error

	// CurrentEpoch returns the epoch of the cycle in progress, or
	// repo.ErrStateMissing before the first cycle.
	CurrentEpoch(ctx context.Context, db *gorm.DB) (int64, error)

	// SetCurrentEpoch persists the current epoch id.
	SetCurrentEpoch(ctx context.Context, db *gorm.DB, epoch int64) error

	// RefMessageID returns the ballot reference message id.
	RefMessageID(ctx context.Context, db *gorm.DB) (int, error)

	// SetRefMessageID persists the ballot reference message id.
	SetRefMessageID(ctx context.Context, db *gorm.DB, messageID int) error

	// PollMessageID returns the message id of the poll for a rank.
	PollMessageID(ctx context.Context, db *gorm.DB, rank int) (int, error)

	// SetPollMessageID persists the message id of the poll for a rank.
	SetPollMessageID(ctx context.Context, db *gorm.DB, rank, messageID int) error
}

// NominationStore is the per-epoch nomination record contract.
type NominationStore interface {
	// ClaimSlot reserves a slot for the user under the capacity cap,
	// atomically. Returns false when the epoch is full.
	ClaimSlot(ctx context.Context, db *gorm.DB, userID, epoch int64, capacity int) (bool, error)

	// SetItem sets the nominated title on the user's row.
	SetItem(ctx context.Context, db *gorm.DB, userID int64, item string) error

	// SetNote sets the recommendation note on the user's row.
	SetNote(ctx context.Context, db *gorm.DB, userID int64, note string) error

	// Delete removes the user's row entirely.
	Delete(ctx context.Context, db *gorm.DB, userID int64) error

	// Get fetches the user's row for the epoch, repo.ErrNotFound if absent.
	Get(ctx context.Context, db *gorm.DB, userID, epoch int64) (*domain.Nomination, error)

	// CountFilled counts filled slots (item set) in the epoch.
	CountFilled(ctx context.Context, db *gorm.DB, epoch int64) (int64, error)

	// ListItems returns the nominated titles of the epoch, filled only.
	ListItems(ctx context.Context, db *gorm.DB, epoch int64) ([]string, error)

	// ListEntries returns the ballot input of the epoch, filled only.
	ListEntries(ctx context.Context, db *gorm.DB, epoch int64) ([]domain.BallotEntry, error)
}

// Notifier is the chat-platform capability the services call out through.
// The production implementation talks to Telegram; it is expected to apply
// its own throttling on channel sends and to treat throttle failures as
// best-effort (proceed without the delay).
type Notifier interface {
	// SendToChannel posts text to the group channel and returns the
	// resulting message id.
	SendToChannel(ctx context.Context, text string) (int, error)

	// SendToUser sends a direct message to a user.
	SendToUser(ctx context.Context, userID int64, text string) error

	// SendPoll publishes a single-answer anonymous poll to the channel
	// and returns the resulting message id.
	SendPoll(ctx context.Context, question string, options []string) (int, error)

	// ClosePoll stops a previously published poll and returns the final
	// per-option vote counts.
	ClosePoll(ctx context.Context, messageID int) ([]domain.VoteCount, error)

	// MemberName resolves a channel member's display name.
	MemberName(ctx context.Context, userID int64) (string, error)

	// IsChannelMember reports whether the user currently belongs to the
	// channel (owner, admin, or member).
	IsChannelMember(ctx context.Context, userID int64) (bool, error)
}
