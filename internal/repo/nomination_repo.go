// Package repo implements the data persistence layer for the nomination and
// state tables, backed by GORM. This file provides repository functions for
// the Nomination model.
//
// The table holds at most one row per user, ever: claiming a slot in a new
// epoch retargets the user's existing row instead of inserting a second one.
// Reads always filter by the epoch passed in, so rows left behind by earlier
// cycles are invisible without needing a cleanup pass.
//
// Error semantics:
//   - When a nomination is not found, functions return ErrNotFound
//     (gorm.ErrRecordNotFound).
//   - On DB errors the raw gorm error is propagated.
package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/filmnight/bot/internal/domain"
)

// ClaimSlot reserves a nomination slot for userID in the given epoch,
// honoring the capacity cap. It returns false when the epoch already has
// capacity filled slots (rows whose item is set).
//
// The capacity check and the row upsert run inside one transaction, so
// concurrent claims cannot push the number of filled slots past the cap.
//
// A row already targeting the current epoch is left untouched (the user's
// submitted item survives a repeated claim); a row from an earlier epoch is
// retargeted with item and note cleared.
func ClaimSlot(ctx context.Context, db *gorm.DB, userID, epoch int64, capacity int) (bool, error) {
	claimed := false
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var filled int64
		if err := tx.Model(&domain.Nomination{}).
			Where("epoch = ? AND item IS NOT NULL", epoch).
			Count(&filled).Error; err != nil {
			return err
		}
		if filled >= int64(capacity) {
			return nil
		}

		var row domain.Nomination
		err := tx.First(&row, "user_id = ?", userID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := tx.Create(&domain.Nomination{UserID: userID, Epoch: epoch}).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		case row.Epoch != epoch:
			if err := tx.Model(&domain.Nomination{}).
				Where("user_id = ?", userID).
				Updates(map[string]any{"epoch": epoch, "item": nil, "note": nil}).Error; err != nil {
				return err
			}
		}
		claimed = true
		return nil
	})
	return claimed, err
}

// SetItem sets the nominated title on the user's row.
func SetItem(ctx context.Context, db *gorm.DB, userID int64, item string) error {
	return db.WithContext(ctx).
		Model(&domain.Nomination{}).
		Where("user_id = ?", userID).
		Update("item", item).Error
}

// SetNote sets the recommendation note on the user's row.
func SetNote(ctx context.Context, db *gorm.DB, userID int64, note string) error {
	return db.WithContext(ctx).
		Model(&domain.Nomination{}).
		Where("user_id = ?", userID).
		Update("note", note).Error
}

// DeleteNomination removes the user's row entirely (withdrawal).
func DeleteNomination(ctx context.Context, db *gorm.DB, userID int64) error {
	return db.WithContext(ctx).Delete(&domain.Nomination{}, "user_id = ?", userID).Error
}

// GetNomination fetches the user's row for the given epoch, or ErrNotFound
// if the user has no row in that epoch.
func GetNomination(ctx context.Context, db *gorm.DB, userID, epoch int64) (*domain.Nomination, error) {
	var row domain.Nomination
	err := db.WithContext(ctx).
		First(&row, "user_id = ? AND epoch = ?", userID, epoch).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// CountFilled returns the number of filled slots (item set) in the epoch.
func CountFilled(ctx context.Context, db *gorm.DB, epoch int64) (int64, error) {
	var n int64
	err := db.WithContext(ctx).
		Model(&domain.Nomination{}).
		Where("epoch = ? AND item IS NOT NULL", epoch).
		Count(&n).Error
	return n, err
}

// ListItems returns the nominated titles of the epoch, filled slots only,
// in primary-key order. Duplicate titles across users are kept.
func ListItems(ctx context.Context, db *gorm.DB, epoch int64) ([]string, error) {
	var items []string
	err := db.WithContext(ctx).
		Model(&domain.Nomination{}).
		Where("epoch = ? AND item IS NOT NULL", epoch).
		Order("user_id").
		Pluck("item", &items).Error
	return items, err
}

// ListEntries returns the ballot input for the epoch: every filled slot as
// (title, note, recommender), in primary-key order.
func ListEntries(ctx context.Context, db *gorm.DB, epoch int64) ([]domain.BallotEntry, error) {
	var rows []domain.Nomination
	err := db.WithContext(ctx).
		Where("epoch = ? AND item IS NOT NULL", epoch).
		Order("user_id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	entries := make([]domain.BallotEntry, 0, len(rows))
	for _, r := range rows {
		entries = append(entries, domain.BallotEntry{Item: *r.Item, Note: r.Note, UserID: r.UserID})
	}
	return entries, nil
}
