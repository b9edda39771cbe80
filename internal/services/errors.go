// Package services defines the business logic of the weekly cycle: the phase
// state machine, the nomination manager, and the ballot/scoring engine.
// This file centralizes common service-level error values so that they can be
// consistently returned by service methods and checked by callers.
//
// Translation into user-facing notices is performed at the bot adapter layer.
package services

import "errors"

var (
	// ErrNoEpoch is returned when a nomination operation runs before the
	// first collecting phase ever minted an epoch.
	ErrNoEpoch = errors.New("no nomination cycle has started")

	// ErrEmptyItem is returned when a submitted movie title is blank.
	ErrEmptyItem = errors.New("movie title is empty")

	// ErrEmptyNote is returned when a submitted recommendation note is blank.
	ErrEmptyNote = errors.New("recommendation note is empty")

	// ErrNotNominated is returned when an operation requires the user to
	// have a submitted nomination and they have none in the current epoch.
	ErrNotNominated = errors.New("user has not nominated a movie this cycle")
)
