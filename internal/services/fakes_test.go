package services

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/filmnight/bot/internal/domain"
	"github.com/filmnight/bot/internal/repo"
)

// fakeState is an in-memory StateStore. The zero value is a fresh database:
// no phase written (reads as READY), no epoch minted.
type fakeState struct {
	phase    domain.Phase
	phaseLog []domain.Phase
	epoch    int64
	hasEpoch bool
	refID    int
	hasRef   bool
	polls    map[int]int

	epochErr error // forced error on CurrentEpoch when set
}

func (f *fakeState) CurrentPhase(ctx context.Context, db *gorm.DB) (domain.Phase, error) {
	if f.phase == "" {
		return domain.PhaseReady, nil
	}
	return f.phase, nil
}

func (f *fakeState) SetCurrentPhase(ctx context.Context, db *gorm.DB, p domain.Phase) error {
	f.phase = p
	f.phaseLog = append(f.phaseLog, p)
	return nil
}

func (f *fakeState) CurrentEpoch(ctx context.Context, db *gorm.DB) (int64, error) {
	if f.epochErr != nil {
		return 0, f.epochErr
	}
	if !f.hasEpoch {
		return 0, fmt.Errorf("%w: epoch", repo.ErrStateMissing)
	}
	return f.epoch, nil
}

func (f *fakeState) SetCurrentEpoch(ctx context.Context, db *gorm.DB, epoch int64) error {
	f.epoch, f.hasEpoch = epoch, true
	return nil
}

func (f *fakeState) RefMessageID(ctx context.Context, db *gorm.DB) (int, error) {
	if !f.hasRef {
		return 0, fmt.Errorf("%w: ref message", repo.ErrStateMissing)
	}
	return f.refID, nil
}

func (f *fakeState) SetRefMessageID(ctx context.Context, db *gorm.DB, id int) error {
	f.refID, f.hasRef = id, true
	return nil
}

func (f *fakeState) PollMessageID(ctx context.Context, db *gorm.DB, rank int) (int, error) {
	id, ok := f.polls[rank]
	if !ok {
		return 0, fmt.Errorf("%w: poll %d", repo.ErrStateMissing, rank)
	}
	return id, nil
}

func (f *fakeState) SetPollMessageID(ctx context.Context, db *gorm.DB, rank, id int) error {
	if f.polls == nil {
		f.polls = make(map[int]int)
	}
	f.polls[rank] = id
	return nil
}

// fakeNoms is an in-memory NominationStore mirroring the repository's
// one-row-per-user semantics.
type fakeNoms struct {
	rows map[int64]*domain.Nomination
}

func newFakeNoms() *fakeNoms { return &fakeNoms{rows: make(map[int64]*domain.Nomination)} }

func (f *fakeNoms) ClaimSlot(ctx context.Context, db *gorm.DB, userID, epoch int64, capacity int) (bool, error) {
	filled := 0
	for _, r := range f.rows {
		if r.Epoch == epoch && r.Item != nil {
			filled++
		}
	}
	if filled >= capacity {
		return false, nil
	}
	if row, ok := f.rows[userID]; ok {
		if row.Epoch != epoch {
			f.rows[userID] = &domain.Nomination{UserID: userID, Epoch: epoch}
		}
		return true, nil
	}
	f.rows[userID] = &domain.Nomination{UserID: userID, Epoch: epoch}
	return true, nil
}

func (f *fakeNoms) SetItem(ctx context.Context, db *gorm.DB, userID int64, item string) error {
	if row, ok := f.rows[userID]; ok {
		row.Item = &item
	}
	return nil
}

func (f *fakeNoms) SetNote(ctx context.Context, db *gorm.DB, userID int64, note string) error {
	if row, ok := f.rows[userID]; ok {
		row.Note = &note
	}
	return nil
}

func (f *fakeNoms) Delete(ctx context.Context, db *gorm.DB, userID int64) error {
	delete(f.rows, userID)
	return nil
}

func (f *fakeNoms) Get(ctx context.Context, db *gorm.DB, userID, epoch int64) (*domain.Nomination, error) {
	if row, ok := f.rows[userID]; ok && row.Epoch == epoch {
		return row, nil
	}
	return nil, repo.ErrNotFound
}

func (f *fakeNoms) CountFilled(ctx context.Context, db *gorm.DB, epoch int64) (int64, error) {
	var n int64
	for _, r := range f.rows {
		if r.Epoch == epoch && r.Item != nil {
			n++
		}
	}
	return n, nil
}

func (f *fakeNoms) ListItems(ctx context.Context, db *gorm.DB, epoch int64) ([]string, error) {
	entries, _ := f.ListEntries(ctx, db, epoch)
	items := make([]string, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.Item)
	}
	return items, nil
}

func (f *fakeNoms) ListEntries(ctx context.Context, db *gorm.DB, epoch int64) ([]domain.BallotEntry, error) {
	var entries []domain.BallotEntry
	// user-id order, like the repository
	for uid := int64(0); uid < 1000; uid++ {
		if r, ok := f.rows[uid]; ok && r.Epoch == epoch && r.Item != nil {
			entries = append(entries, domain.BallotEntry{Item: *r.Item, Note: r.Note, UserID: uid})
		}
	}
	return entries, nil
}

// sentPoll records one SendPoll call.
type sentPoll struct {
	question string
	options  []string
	id       int
}

// fakeNotifier records outgoing traffic and serves canned poll results.
type fakeNotifier struct {
	messages []string
	direct   map[int64][]string
	polls    []sentPoll
	closed   []int
	results  map[int][]domain.VoteCount
	names    map[int64]string
	members  map[int64]bool

	nextID  int
	sendErr error // forced error on SendToChannel when set
}

func (f *fakeNotifier) SendToChannel(ctx context.Context, text string) (int, error) {
	if f.sendErr != nil {
		return 0, f.sendErr
	}
	f.nextID++
	f.messages = append(f.messages, text)
	return f.nextID, nil
}

func (f *fakeNotifier) SendToUser(ctx context.Context, userID int64, text string) error {
	if f.direct == nil {
		f.direct = make(map[int64][]string)
	}
	f.direct[userID] = append(f.direct[userID], text)
	return nil
}

func (f *fakeNotifier) SendPoll(ctx context.Context, question string, options []string) (int, error) {
	f.nextID++
	f.polls = append(f.polls, sentPoll{question: question, options: options, id: f.nextID})
	return f.nextID, nil
}

func (f *fakeNotifier) ClosePoll(ctx context.Context, messageID int) ([]domain.VoteCount, error) {
	f.closed = append(f.closed, messageID)
	return f.results[messageID], nil
}

func (f *fakeNotifier) MemberName(ctx context.Context, userID int64) (string, error) {
	if name, ok := f.names[userID]; ok {
		return name, nil
	}
	return fmt.Sprintf("user %d", userID), nil
}

func (f *fakeNotifier) IsChannelMember(ctx context.Context, userID int64) (bool, error) {
	if f.members == nil {
		return true, nil
	}
	return f.members[userID], nil
}
