// Package session tracks what the bot is waiting for from each user during
// the collecting phase: the movie title or the recommendation note. The state
// is process-local and deliberately not persisted; after a restart the user
// simply starts their flow again from the status command.
package session

import "sync"

// Kind is the input the bot expects next from a user.
type Kind string

const (
	// AwaitingName means the user's next message is the movie title.
	AwaitingName Kind = "name"
	// AwaitingNote means the user's next message is the recommendation note.
	AwaitingNote Kind = "note"
)

// Tracker is a concurrent-safe map of user id to awaited input. The zero
// value is not usable; construct with NewTracker.
type Tracker struct {
	mu       sync.Mutex
	awaiting map[int64]Kind
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{awaiting: make(map[int64]Kind)}
}

// Set records that the user's next message should be interpreted as k,
// replacing any previous expectation.
func (t *Tracker) Set(userID int64, k Kind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.awaiting[userID] = k
}

// Consume returns the awaited input for the user and removes it. The second
// return is false when nothing was awaited, in which case the message is
// out of context and should be rejected.
func (t *Tracker) Consume(userID int64) (Kind, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	k, ok := t.awaiting[userID]
	if ok {
		delete(t.awaiting, userID)
	}
	return k, ok
}

// Clear drops any pending expectation for the user (status command, cancel).
func (t *Tracker) Clear(userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.awaiting, userID)
}

// Reset drops every pending expectation. Called when a new epoch begins so
// that no user's half-finished flow leaks across cycles.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.awaiting = make(map[int64]Kind)
}
