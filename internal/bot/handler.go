package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/filmnight/bot/internal/domain"
	"github.com/filmnight/bot/internal/observability"
	"github.com/filmnight/bot/internal/repo"
	"github.com/filmnight/bot/internal/services"
	"github.com/filmnight/bot/internal/session"
)

// Service is a runnable bot variant. Which variant runs is decided at
// startup from configuration: a configured channel id selects the full
// nomination handler, its absence selects the chat-id helper.
type Service interface {
	Run(ctx context.Context) error
}

// API is the slice of the Telegram client the update handlers need.
// *tgbotapi.BotAPI satisfies it; tests substitute a recording fake.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

const updateTimeout = 30 // long-poll timeout, seconds

// callbackAction is the trailing field of an inline-button payload.
const (
	actionName   = "name"
	actionNote   = "note"
	actionCancel = "cancel"
)

// invalidNotice is the catch-all reply for stale buttons, wrong-phase
// messages, and any interaction the bot cannot place.
const invalidNotice = "That action is not valid right now. Send /start to see where things stand."

// Handler is the full nomination bot. It consumes long-poll updates and
// routes them by kind: the /start command renders a phase-aware status
// message, free text feeds the per-user nomination dialogue, and callback
// queries come from the inline buttons attached to the status message.
//
// Plain-text replies go out through the Notifier port; only messages that
// need Telegram-specific dressing (inline keyboards, HTML links) are built
// against the API directly.
type Handler struct {
	api      API
	db       *gorm.DB
	state    services.StateStore
	noms     *services.NominationService
	sessions *session.Tracker
	notifier services.Notifier
	channel  int64
	log      zerolog.Logger
}

// NewHandler wires the nomination bot.
func NewHandler(api API, db *gorm.DB, state services.StateStore, noms *services.NominationService, sessions *session.Tracker, notifier services.Notifier, channelID int64, log zerolog.Logger) *Handler {
	return &Handler{
		api:      api,
		db:       db,
		state:    state,
		noms:     noms,
		sessions: sessions,
		notifier: notifier,
		channel:  channelID,
		log:      log.With().Str("component", "bot").Logger(),
	}
}

// Run consumes updates until the context is cancelled. It always returns
// nil after a clean shutdown; individual update failures are logged and
// counted, never fatal.
func (h *Handler) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = updateTimeout
	updates := h.api.GetUpdatesChan(cfg)
	h.log.Info().Msg("bot update loop started")
	for {
		select {
		case <-ctx.Done():
			h.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			h.handleUpdate(ctx, update)
		}
	}
}

// handleUpdate dispatches one update. A panic or error in a single update
// must not take the loop down, so both are contained here.
func (h *Handler) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			observability.UpdatesTotal.WithLabelValues("panic").Inc()
			h.log.Error().Interface("panic", r).Int("update_id", update.UpdateID).Msg("panic handling update")
		}
	}()
	var err error
	switch {
	case update.CallbackQuery != nil:
		err = h.handleCallback(ctx, update.CallbackQuery)
	case update.Message != nil:
		err = h.handleMessage(ctx, update.Message)
	default:
		observability.UpdatesTotal.WithLabelValues("ignored").Inc()
		return
	}
	if err != nil {
		observability.UpdatesTotal.WithLabelValues("failed").Inc()
		h.log.Error().Err(err).Int("update_id", update.UpdateID).Msg("update failed")
		return
	}
	observability.UpdatesTotal.WithLabelValues("ok").Inc()
}

func (h *Handler) handleMessage(ctx context.Context, m *tgbotapi.Message) error {
	if m.Chat == nil || !m.Chat.IsPrivate() {
		return nil
	}
	if m.From == nil {
		return h.reply(ctx, m.Chat.ID, "I could not read your user id, so I cannot take your nomination.")
	}
	userID := m.From.ID
	member, err := h.notifier.IsChannelMember(ctx, userID)
	if err != nil {
		return fmt.Errorf("membership check for %d: %w", userID, err)
	}
	if !member {
		return h.reply(ctx, m.Chat.ID, "This bot only serves members of the movie night channel.")
	}
	if m.IsCommand() && m.Command() == "start" {
		return h.sendStatus(ctx, m.Chat.ID, userID)
	}
	return h.handleText(ctx, m, userID)
}

// handleText feeds free text into the nomination dialogue. Text is only
// meaningful while collecting and while the user has a pending prompt.
func (h *Handler) handleText(ctx context.Context, m *tgbotapi.Message, userID int64) error {
	phase, err := h.state.CurrentPhase(ctx, h.db)
	if err != nil {
		return err
	}
	if phase != domain.PhaseCollecting {
		return h.reply(ctx, m.Chat.ID, invalidNotice)
	}
	kind, ok := h.sessions.Consume(userID)
	if !ok {
		return h.reply(ctx, m.Chat.ID, invalidNotice)
	}
	text := strings.TrimSpace(m.Text)
	if text == "" {
		// Keep the prompt alive so the user can retry with real text.
		h.sessions.Set(userID, kind)
		return h.reply(ctx, m.Chat.ID, "That message has no text. Please try again.")
	}
	switch kind {
	case session.AwaitingName:
		return h.submitTitle(ctx, m.Chat.ID, userID, text)
	case session.AwaitingNote:
		if err := h.noms.SetNote(ctx, userID, text); err != nil {
			if errors.Is(err, services.ErrNoEpoch) || errors.Is(err, services.ErrNotNominated) {
				return h.reply(ctx, m.Chat.ID, invalidNotice)
			}
			return err
		}
		return h.reply(ctx, m.Chat.ID, "Note saved. Send /start to review your nomination.")
	default:
		return h.reply(ctx, m.Chat.ID, invalidNotice)
	}
}

func (h *Handler) submitTitle(ctx context.Context, chatID, userID int64, title string) error {
	granted, err := h.noms.Claim(ctx, userID)
	if err != nil {
		if errors.Is(err, services.ErrNoEpoch) {
			return h.reply(ctx, chatID, invalidNotice)
		}
		return err
	}
	if !granted {
		observability.NominationsTotal.WithLabelValues("rejected_full").Inc()
		return h.reply(ctx, chatID, "All nomination slots are taken this week. Better luck next time!")
	}
	if err := h.noms.SetItem(ctx, userID, title); err != nil {
		return err
	}
	observability.NominationsTotal.WithLabelValues("submitted").Inc()
	return h.reply(ctx, chatID, fmt.Sprintf("%s is in! Send /start if you want to add a note or withdraw.", title))
}

// handleCallback validates an inline-button press against the user, the
// phase, and the nomination round it was issued for, then runs the action.
func (h *Handler) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) error {
	// Ack first so the client stops its spinner, whatever happens next.
	if _, err := h.api.Request(tgbotapi.NewCallback(cq.ID, "")); err != nil {
		h.log.Warn().Err(err).Msg("callback ack failed")
	}
	if cq.Message == nil || cq.Message.Chat == nil || cq.From == nil {
		return nil
	}
	chatID := cq.Message.Chat.ID
	payload, err := parseCallback(cq.Data)
	if err != nil {
		h.log.Warn().Err(err).Str("data", cq.Data).Msg("malformed callback payload")
		return h.reply(ctx, chatID, invalidNotice)
	}
	if payload.UserID != cq.From.ID {
		return h.reply(ctx, chatID, invalidNotice)
	}
	phase, err := h.state.CurrentPhase(ctx, h.db)
	if err != nil {
		return err
	}
	if phase != domain.PhaseCollecting {
		return h.reply(ctx, chatID, invalidNotice)
	}
	epoch, err := h.state.CurrentEpoch(ctx, h.db)
	if err != nil || epoch != payload.Epoch {
		return h.reply(ctx, chatID, invalidNotice)
	}
	mine, err := h.noms.UserNomination(ctx, payload.UserID)
	if err != nil && !errors.Is(err, services.ErrNoEpoch) {
		return err
	}
	switch payload.Action {
	case actionName:
		if mine != nil && mine.Item != nil {
			return h.reply(ctx, chatID, "You already nominated a movie this week.")
		}
		h.sessions.Set(payload.UserID, session.AwaitingName)
		return h.reply(ctx, chatID, "Send me the movie title.")
	case actionNote:
		if mine == nil || mine.Item == nil {
			return h.reply(ctx, chatID, "Nominate a movie first, then add a note.")
		}
		h.sessions.Set(payload.UserID, session.AwaitingNote)
		return h.reply(ctx, chatID, "Send me your note. Why this movie?")
	case actionCancel:
		if mine == nil {
			return h.reply(ctx, chatID, "You have no nomination to withdraw.")
		}
		h.sessions.Clear(payload.UserID)
		if err := h.noms.Cancel(ctx, payload.UserID); err != nil {
			return err
		}
		observability.NominationsTotal.WithLabelValues("withdrawn").Inc()
		return h.reply(ctx, chatID, "Your nomination is withdrawn.")
	default:
		return h.reply(ctx, chatID, invalidNotice)
	}
}

// sendStatus renders the phase-aware /start reply.
func (h *Handler) sendStatus(ctx context.Context, chatID, userID int64) error {
	phase, err := h.state.CurrentPhase(ctx, h.db)
	if err != nil {
		return err
	}
	switch phase {
	case domain.PhaseCollecting:
		return h.sendCollectingStatus(ctx, chatID, userID)
	case domain.PhaseVoting:
		ref, err := h.state.RefMessageID(ctx, h.db)
		if err != nil {
			if errors.Is(err, repo.ErrStateMissing) {
				return h.reply(ctx, chatID, "Voting is open in the channel.")
			}
			return err
		}
		msg := tgbotapi.NewMessage(chatID, fmt.Sprintf(`Voting is open! <a href="%s">Cast your votes in the channel.</a>`, channelLink(h.channel, ref)))
		msg.ParseMode = tgbotapi.ModeHTML
		_, err = h.api.Send(msg)
		return err
	default:
		return h.reply(ctx, chatID, "Nothing to do right now. Nominations open at the start of the week.")
	}
}

func (h *Handler) sendCollectingStatus(ctx context.Context, chatID, userID int64) error {
	// A fresh /start abandons any half-finished prompt.
	h.sessions.Clear(userID)
	epoch, err := h.state.CurrentEpoch(ctx, h.db)
	if err != nil {
		return err
	}
	mine, err := h.noms.UserNomination(ctx, userID)
	if err != nil {
		return err
	}
	items, err := h.noms.Items(ctx)
	if err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(chatID, statusText(items, mine, h.noms.Capacity))
	if rows := statusButtons(userID, epoch, items, mine, h.noms.Capacity); len(rows) > 0 {
		msg.ReplyMarkup = tgbotapi.NewInlineKeyboardMarkup(rows...)
	}
	_, err = h.api.Send(msg)
	return err
}

// reply sends a plain-text direct message through the Notifier port. The
// handler only serves private chats, where the chat id is the user id.
func (h *Handler) reply(ctx context.Context, chatID int64, text string) error {
	return h.notifier.SendToUser(ctx, chatID, text)
}

// callbackPayload is the parsed form of an inline-button payload,
// "<userID>,collect,<epoch>,<action>". The user id and round pin a button
// to the person and week it was issued for, so stale or forwarded
// keyboards fail validation instead of mutating someone else's slot.
type callbackPayload struct {
	UserID int64
	Epoch  int64
	Action string
}

func parseCallback(data string) (callbackPayload, error) {
	parts := strings.Split(data, ",")
	if len(parts) != 4 || parts[1] != "collect" {
		return callbackPayload{}, fmt.Errorf("payload %q: want <user>,collect,<epoch>,<action>", data)
	}
	userID, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return callbackPayload{}, fmt.Errorf("payload user id %q: %w", parts[0], err)
	}
	epoch, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return callbackPayload{}, fmt.Errorf("payload epoch %q: %w", parts[2], err)
	}
	return callbackPayload{UserID: userID, Epoch: epoch, Action: parts[3]}, nil
}

func formatCallback(userID, epoch int64, action string) string {
	return fmt.Sprintf("%d,collect,%d,%s", userID, epoch, action)
}

// statusText builds the collecting-phase status message.
func statusText(items []string, mine *domain.Nomination, capacity int) string {
	var b strings.Builder
	if len(items) == 0 {
		b.WriteString("Nominations are open! No movies yet this week.")
	} else {
		fmt.Fprintf(&b, "Nominations are open! %d of %d slots taken:\n", len(items), capacity)
		for _, item := range items {
			fmt.Fprintf(&b, "• %s\n", item)
		}
	}
	switch {
	case mine != nil && mine.Item != nil && mine.Note != nil:
		fmt.Fprintf(&b, "\nYour nomination: %s\nYour note: %s", *mine.Item, *mine.Note)
	case mine != nil && mine.Item != nil:
		fmt.Fprintf(&b, "\nYour nomination: %s", *mine.Item)
	default:
		b.WriteString("\nYou have not nominated anything yet.")
	}
	return b.String()
}

// statusButtons builds the inline keyboard matching the status message:
// nominate while a slot is free and the user holds none, add-a-note once
// they do, withdraw whenever a nomination exists.
func statusButtons(userID, epoch int64, items []string, mine *domain.Nomination, capacity int) [][]tgbotapi.InlineKeyboardButton {
	var rows [][]tgbotapi.InlineKeyboardButton
	hasItem := mine != nil && mine.Item != nil
	if !hasItem && len(items) < capacity {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Nominate a movie", formatCallback(userID, epoch, actionName)),
		))
	}
	if hasItem {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Add a note", formatCallback(userID, epoch, actionNote)),
		))
	}
	if mine != nil {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Withdraw", formatCallback(userID, epoch, actionCancel)),
		))
	}
	return rows
}

// channelLink builds a t.me deep link to a message in a private channel.
// Telegram channel ids carry a -100 prefix that the link format omits.
func channelLink(channelID int64, messageID int) string {
	id := strconv.FormatInt(channelID, 10)
	id = strings.TrimPrefix(id, "-100")
	id = strings.TrimPrefix(id, "-")
	return fmt.Sprintf("https://t.me/c/%s/%d", id, messageID)
}
