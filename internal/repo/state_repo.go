// Package repo implements the data persistence layer for the nomination and
// state tables, backed by GORM. This file provides the flat string-keyed
// state store and its typed accessors: the current phase, the current epoch,
// and the message/poll ids the voting engine needs to close polls later.
//
// All functions are context-aware and accept a *gorm.DB handle, making them
// safe for use within transactions or connection-scoped operations. Writes
// are single-row upserts; concurrent callers are serialized by SQLite.
//
// Error semantics:
//   - GetValue returns ("", nil) when the key was never written.
//   - Typed getters return ErrStateMissing when the underlying key is absent
//     or unparseable, except CurrentPhase which defaults to PhaseReady for a
//     fresh database.
package repo

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/filmnight/bot/internal/domain"
)

// ErrNotFound is returned when a requested record does not exist.
// It aliases gorm.ErrRecordNotFound for convenience and consistency
// across the service layer.
var ErrNotFound = gorm.ErrRecordNotFound

// ErrStateMissing is returned by typed state getters when the backing
// key/value entry has never been written (or cannot be parsed).
var ErrStateMissing = errors.New("state entry missing")

// State keys. The layout is flat on purpose: one row per fact, so every
// write is a single-row upsert.
const (
	keyCurrentPhase  = "app.current-phase"
	keyCurrentEpoch  = "app.collecting.epoch"
	keyRefMessageID  = "app.vote.messageId"
	keyPollMessageID = "app.vote.poll_%d.messageId"
)

// GetValue returns the raw value stored under key, or "" if the key was
// never written. On DB error, it returns the error.
func GetValue(ctx context.Context, db *gorm.DB, key string) (string, error) {
	var row domain.KeyValue
	err := db.WithContext(ctx).First(&row, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return row.Value, nil
}

// SetValue inserts or overwrites the value stored under key. The upsert is a
// single statement, so concurrent writers cannot produce duplicate rows.
func SetValue(ctx context.Context, db *gorm.DB, key, value string) error {
	return db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&domain.KeyValue{Key: key, Value: value}).Error
}

// CurrentPhase returns the persisted global phase. A fresh database (no phase
// ever written, or a blank value) reports PhaseReady.
func CurrentPhase(ctx context.Context, db *gorm.DB) (domain.Phase, error) {
	raw, err := GetValue(ctx, db, keyCurrentPhase)
	if err != nil {
		return "", err
	}
	if raw == "" {
		return domain.PhaseReady, nil
	}
	p := domain.Phase(raw)
	if !p.Valid() {
		return "", fmt.Errorf("%w: unknown phase %q", ErrStateMissing, raw)
	}
	return p, nil
}

// SetCurrentPhase persists the global phase.
func SetCurrentPhase(ctx context.Context, db *gorm.DB, p domain.Phase) error {
	return SetValue(ctx, db, keyCurrentPhase, string(p))
}

// CurrentEpoch returns the epoch of the collection cycle currently in
// progress. Before the first ever collecting phase it returns ErrStateMissing.
func CurrentEpoch(ctx context.Context, db *gorm.DB) (int64, error) {
	return getInt64(ctx, db, keyCurrentEpoch)
}

// SetCurrentEpoch persists the current epoch id.
func SetCurrentEpoch(ctx context.Context, db *gorm.DB, epoch int64) error {
	return SetValue(ctx, db, keyCurrentEpoch, strconv.FormatInt(epoch, 10))
}

// RefMessageID returns the channel message id of the ballot's reference
// message, used to link voters back to the nomination round-up.
func RefMessageID(ctx context.Context, db *gorm.DB) (int, error) {
	v, err := getInt64(ctx, db, keyRefMessageID)
	return int(v), err
}

// SetRefMessageID persists the ballot reference message id.
func SetRefMessageID(ctx context.Context, db *gorm.DB, messageID int) error {
	return SetValue(ctx, db, keyRefMessageID, strconv.Itoa(messageID))
}

// PollMessageID returns the channel message id of the poll for the given
// rank (1-based), as stored when the ballot was published.
func PollMessageID(ctx context.Context, db *gorm.DB, rank int) (int, error) {
	v, err := getInt64(ctx, db, fmt.Sprintf(keyPollMessageID, rank))
	return int(v), err
}

// SetPollMessageID persists the message id of the poll for the given rank.
func SetPollMessageID(ctx context.Context, db *gorm.DB, rank, messageID int) error {
	return SetValue(ctx, db, fmt.Sprintf(keyPollMessageID, rank), strconv.Itoa(messageID))
}

func getInt64(ctx context.Context, db *gorm.DB, key string) (int64, error) {
	raw, err := GetValue(ctx, db, key)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 0, fmt.Errorf("%w: %s", ErrStateMissing, key)
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s holds %q", ErrStateMissing, key, raw)
	}
	return v, nil
}
