// Package bot is the Telegram adapter: it implements the services.Notifier
// port on top of the Bot API, dispatches inbound updates (status command,
// free-text nominations, inline-button callbacks) into the services, and
// provides the chat-id helper variant used during first-time setup.
package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/filmnight/bot/internal/domain"
	"github.com/filmnight/bot/internal/observability"
	"github.com/filmnight/bot/internal/sysutil"
)

// memberStatuses a user may hold while counting as part of the channel.
var memberStatuses = map[string]bool{
	"creator":       true,
	"administrator": true,
	"member":        true,
}

// ChannelNotifier implements services.Notifier against one Telegram channel.
//
// Channel sends go through a token-bucket limiter so a burst of ballot
// introductions cannot trip Telegram's throughput limits. A failed wait on
// the limiter is swallowed: the send proceeds immediately, best effort.
type ChannelNotifier struct {
	api       *tgbotapi.BotAPI
	channelID int64
	limiter   *rate.Limiter
	log       zerolog.Logger
}

// NewChannelNotifier builds a notifier for the given channel. interval is the
// minimum spacing between channel sends; zero disables throttling.
func NewChannelNotifier(api *tgbotapi.BotAPI, channelID int64, interval time.Duration, log zerolog.Logger) *ChannelNotifier {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &ChannelNotifier{
		api:       api,
		channelID: channelID,
		limiter:   rate.NewLimiter(limit, 1),
		log:       log.With().Str("component", "notifier").Logger(),
	}
}

// SendToChannel posts text to the channel and returns the message id.
func (n *ChannelNotifier) SendToChannel(ctx context.Context, text string) (int, error) {
	n.throttle(ctx)
	sent, err := n.api.Send(tgbotapi.NewMessage(n.channelID, text))
	if err != nil {
		observability.ChannelSendFailures.Inc()
		return 0, fmt.Errorf("send to channel: %w", err)
	}
	return sent.MessageID, nil
}

// SendToUser sends a direct message. For private chats the chat id is the
// user id, so no extra resolution is needed.
func (n *ChannelNotifier) SendToUser(ctx context.Context, userID int64, text string) error {
	if _, err := n.api.Send(tgbotapi.NewMessage(userID, text)); err != nil {
		return fmt.Errorf("send to user %d: %w", userID, err)
	}
	return nil
}

// SendPoll publishes a single-answer anonymous poll to the channel and
// returns the message id.
func (n *ChannelNotifier) SendPoll(ctx context.Context, question string, options []string) (int, error) {
	n.throttle(ctx)
	poll := tgbotapi.NewPoll(n.channelID, question, options...)
	poll.IsAnonymous = true
	poll.AllowsMultipleAnswers = false
	sent, err := n.api.Send(poll)
	if err != nil {
		observability.ChannelSendFailures.Inc()
		return 0, fmt.Errorf("send poll: %w", err)
	}
	observability.PollsOpened.Inc()
	return sent.MessageID, nil
}

// ClosePoll stops a poll and returns the final per-option vote counts.
func (n *ChannelNotifier) ClosePoll(ctx context.Context, messageID int) ([]domain.VoteCount, error) {
	poll, err := n.api.StopPoll(tgbotapi.NewStopPoll(n.channelID, messageID))
	if err != nil {
		return nil, fmt.Errorf("stop poll %d: %w", messageID, err)
	}
	observability.PollsClosed.Inc()
	counts := make([]domain.VoteCount, 0, len(poll.Options))
	for _, opt := range poll.Options {
		counts = append(counts, domain.VoteCount{Option: opt.Text, Votes: opt.VoterCount})
	}
	return counts, nil
}

// MemberName resolves a channel member's display name.
func (n *ChannelNotifier) MemberName(ctx context.Context, userID int64) (string, error) {
	member, err := n.member(userID)
	if err != nil {
		return "", err
	}
	full := strings.TrimSpace(member.User.FirstName + " " + member.User.LastName)
	return sysutil.FirstNonEmpty(full, member.User.UserName), nil
}

// IsChannelMember reports whether the user is the channel's owner, an admin,
// or a member.
func (n *ChannelNotifier) IsChannelMember(ctx context.Context, userID int64) (bool, error) {
	member, err := n.member(userID)
	if err != nil {
		return false, err
	}
	return memberStatuses[member.Status], nil
}

func (n *ChannelNotifier) member(userID int64) (tgbotapi.ChatMember, error) {
	member, err := n.api.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			ChatID: n.channelID,
			UserID: userID,
		},
	})
	if err != nil {
		return tgbotapi.ChatMember{}, fmt.Errorf("get chat member %d: %w", userID, err)
	}
	return member, nil
}

func (n *ChannelNotifier) throttle(ctx context.Context) {
	// Throttle failures (cancelled context, mostly) degrade to an
	// immediate send rather than a lost message.
	if err := n.limiter.Wait(ctx); err != nil {
		n.log.Debug().Err(err).Msg("send throttle interrupted, proceeding")
	}
}
