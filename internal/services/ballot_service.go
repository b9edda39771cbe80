// Package services – BallotService
//
// This file implements the voting engine: publishing the ranked ballot when
// voting opens, and closing the polls, tallying the weighted scores, and
// announcing the winner(s) when the cycle ends.
//
// Scoring rule: each rank poll carries a weight (rank 1 → 2.5, rank 2 → 2.0,
// rank 3 → 1.0) and an option accumulates votes × weight across every rank.
// The winner set is every item whose accumulated score equals the maximum
// exactly; ties are preserved, not broken. Exact floating-point equality is
// the established scoring rule here, so do not "fix" it to an epsilon
// comparison.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"gorm.io/gorm"

	"github.com/filmnight/bot/internal/domain"
)

// MaxRanks is the number of ranked polls a ballot can carry.
const MaxRanks = 3

// BallotService builds, publishes, closes, and tallies the weekly ballot.
type BallotService struct {
	// DB is the GORM handle used for persistence.
	DB *gorm.DB
	// Repo is the nomination store feeding the ballot.
	Repo NominationStore
	// State is the key/value store holding message and poll ids.
	State StateStore
	// Notifier is the channel used for announcements and polls.
	Notifier Notifier
}

// NewBallotService constructs a BallotService.
func NewBallotService(db *gorm.DB, r NominationStore, st StateStore, n Notifier) *BallotService {
	return &BallotService{DB: db, Repo: r, State: st, Notifier: n}
}

// Publish announces the nominated movies and opens the ranked polls.
//
// With no nominations it announces that voting is skipped. With a single
// distinct title it announces the automatic selection and opens no polls.
// Otherwise it publishes one introduction message per nomination, then one
// single-answer anonymous poll per rank (up to MaxRanks), persisting each
// poll's message id so the polls can be closed later.
func (s *BallotService) Publish(ctx context.Context, epoch int64) error {
	entries, err := s.Repo.ListEntries(ctx, s.DB, epoch)
	if err != nil {
		return fmt.Errorf("list ballot entries: %w", err)
	}
	if len(entries) == 0 {
		_, err := s.Notifier.SendToChannel(ctx, "No movies were nominated this week, so the voting round is skipped.")
		return err
	}

	refID, err := s.Notifier.SendToChannel(ctx, fmt.Sprintf(
		"%d movie(s) were nominated this week. Each one is introduced below; "+
			"the polls at the end pick the ones you most want to watch.", len(entries)))
	if err != nil {
		return fmt.Errorf("send reference message: %w", err)
	}
	if err := s.State.SetRefMessageID(ctx, s.DB, refID); err != nil {
		return err
	}

	for _, e := range entries {
		name, err := s.Notifier.MemberName(ctx, e.UserID)
		if err != nil {
			return fmt.Errorf("resolve recommender %d: %w", e.UserID, err)
		}
		text := e.Item + "\nRecommended by " + name + "."
		if e.Note != nil {
			text += "\n\nWhy: " + *e.Note
		}
		if _, err := s.Notifier.SendToChannel(ctx, text); err != nil {
			return fmt.Errorf("send introduction for %q: %w", e.Item, err)
		}
	}

	options := distinctItems(entries)
	if len(options) == 1 {
		_, err := s.Notifier.SendToChannel(ctx,
			"Only one movie is in the running, so the vote is skipped and it is selected automatically.")
		return err
	}

	for rank := 1; rank <= min(len(options), MaxRanks); rank++ {
		pollID, err := s.Notifier.SendPoll(ctx,
			fmt.Sprintf("Which movie is your #%d pick?", rank), options)
		if err != nil {
			return fmt.Errorf("open rank %d poll: %w", rank, err)
		}
		if err := s.State.SetPollMessageID(ctx, s.DB, rank, pollID); err != nil {
			return err
		}
	}
	return nil
}

// CloseAndAnnounce stops the open polls, tallies the weighted scores, and
// announces the leaderboard and the winning movie(s).
func (s *BallotService) CloseAndAnnounce(ctx context.Context, epoch int64) error {
	items, err := s.Repo.ListItems(ctx, s.DB, epoch)
	if err != nil {
		return fmt.Errorf("list nominated items: %w", err)
	}
	options := dedup(items)

	switch len(options) {
	case 0:
		_, err := s.Notifier.SendToChannel(ctx, "No movie was nominated this week, so nothing is selected.")
		return err
	case 1:
		_, err := s.Notifier.SendToChannel(ctx,
			"Only one movie was nominated, so it is selected automatically: "+options[0])
		return err
	}

	scores := make(map[string]float64, len(options))
	for rank := 1; rank <= min(len(options), MaxRanks); rank++ {
		pollID, err := s.State.PollMessageID(ctx, s.DB, rank)
		if err != nil {
			return fmt.Errorf("lookup rank %d poll: %w", rank, err)
		}
		counts, err := s.Notifier.ClosePoll(ctx, pollID)
		if err != nil {
			return fmt.Errorf("close rank %d poll: %w", rank, err)
		}
		for _, c := range counts {
			scores[c.Option] += float64(c.Votes) * RankWeight(rank)
		}
	}

	top, winners := Winners(scores)

	var b strings.Builder
	b.WriteString("The votes are in:\n\n")
	for _, line := range Leaderboard(scores) {
		fmt.Fprintf(&b, "%s: %.1f\n", line.Item, line.Points)
	}
	fmt.Fprintf(&b, "\nTop score is %.1f. Selected movie(s):\n", top)
	b.WriteString(strings.Join(winners, "\n"))

	_, err = s.Notifier.SendToChannel(ctx, b.String())
	return err
}

// RankWeight returns the score multiplier for votes cast in the poll of the
// given 1-based rank.
func RankWeight(rank int) float64 {
	switch rank {
	case 1:
		return 2.5
	case 2:
		return 2.0
	default:
		return 1.0
	}
}

// Winners returns the maximum accumulated score and every item matching it
// exactly. Equal winners come back in name order.
func Winners(scores map[string]float64) (float64, []string) {
	var top float64
	first := true
	for _, v := range scores {
		if first || v > top {
			top, first = v, false
		}
	}
	var winners []string
	for item, v := range scores {
		if v == top {
			winners = append(winners, item)
		}
	}
	sort.Strings(winners)
	return top, winners
}

// Leaderboard flattens a score map into display order: points descending,
// name ascending on equal points.
func Leaderboard(scores map[string]float64) []domain.Score {
	out := make([]domain.Score, 0, len(scores))
	for item, v := range scores {
		out = append(out, domain.Score{Item: item, Points: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].Item < out[j].Item
	})
	return out
}

func distinctItems(entries []domain.BallotEntry) []string {
	items := make([]string, 0, len(entries))
	for _, e := range entries {
		items = append(items, e.Item)
	}
	return dedup(items)
}

// dedup keeps first occurrences, preserving order.
func dedup(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := seen[it]; ok {
			continue
		}
		seen[it] = struct{}{}
		out = append(out, it)
	}
	return out
}
