// Package domain defines the persistence models and core value types for the
// weekly movie-night cycle: the global phase, the nomination rows collected
// each epoch, and the ballot/tally shapes produced by the voting engine.
// Persistent types are mapped with GORM.
package domain

// Phase is the global stage of the weekly cycle. Exactly one phase is active
// at any moment; it is persisted in the key/value store and survives restarts.
type Phase string

const (
	// PhaseCollecting means the bot is accepting nominations via DM.
	PhaseCollecting Phase = "COLLECTING"
	// PhaseVoting means the ballot has been published and polls are open.
	PhaseVoting Phase = "VOTING"
	// PhaseReady means the result has been announced (or nothing is running).
	// It is also the implicit phase before the first cycle ever starts.
	PhaseReady Phase = "READY"
)

// Valid reports whether p is one of the three known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseCollecting, PhaseVoting, PhaseReady:
		return true
	}
	return false
}

// KeyValue is a flat string-keyed state row. It backs the phase, the current
// epoch, and the transient message/poll ids needed to close polls later.
type KeyValue struct {
	Key   string `gorm:"type:varchar(255);primaryKey"`
	Value string `gorm:"type:text;not null"`
}

// TableName returns the database table name for KeyValue.
func (KeyValue) TableName() string { return "key_values" }

// Nomination is one user's nomination slot. There is at most one row per
// user globally; the row is retargeted to the current epoch when the user
// claims a slot again in a later cycle, not duplicated.
//
// Item is nullable on purpose: a nil Item is a reserved-but-empty slot
// (claimed, name not submitted yet) and does not count toward capacity.
type Nomination struct {
	UserID int64   `gorm:"primaryKey"`
	Epoch  int64   `gorm:"not null;index:idx_nominations_epoch"`
	Item   *string `gorm:"type:text"`
	Note   *string `gorm:"type:text"`
}

// TableName returns the database table name for Nomination.
func (Nomination) TableName() string { return "nominations" }

// BallotEntry is one nominated movie as fed to the ballot builder:
// the title, the optional recommendation note, and the recommender.
type BallotEntry struct {
	Item   string
	Note   *string
	UserID int64
}

// VoteCount is the per-option result of one closed poll.
type VoteCount struct {
	Option string
	Votes  int
}

// Score is one line of the final leaderboard.
type Score struct {
	Item   string
	Points float64
}
