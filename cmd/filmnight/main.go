// Command filmnight runs the movie-night Telegram bot: weekly nomination
// collection, ranked channel voting, and the winner announcement, plus a
// small ops HTTP endpoint for health and metrics.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/filmnight/bot/internal/bot"
	"github.com/filmnight/bot/internal/config"
	"github.com/filmnight/bot/internal/domain"
	"github.com/filmnight/bot/internal/httpops"
	"github.com/filmnight/bot/internal/repo"
	"github.com/filmnight/bot/internal/scheduler"
	"github.com/filmnight/bot/internal/services"
	"github.com/filmnight/bot/internal/session"
	"github.com/filmnight/bot/internal/sysutil"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()
	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.LogPretty {
		log = log.Output(zerolog.ConsoleWriter{Out: os.Stdout})
	}
	gin.SetMode(cfg.GinMode)

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	if err := repo.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("migrate database")
	}

	api, err := tgbotapi.NewBotAPI(cfg.Telegram.Token)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram authentication")
	}
	log.Info().Str("bot", api.Self.UserName).Bool("channel_configured", cfg.HasChannel()).Msg("telegram bot authorized")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		svc  bot.Service
		sch  *scheduler.Scheduler
		ops  *http.Server
		errc = make(chan error, 1)
	)

	if cfg.HasChannel() {
		notifier := bot.NewChannelNotifier(api, cfg.Telegram.ChannelChatID, cfg.SendInterval, log)
		sessions := session.NewTracker()
		state := stateRepo{}
		noms := services.NewNominationService(db, nominationRepo{}, state)
		noms.Capacity = cfg.NominationCapacity
		ballots := services.NewBallotService(db, nominationRepo{}, state, notifier)
		phases := &services.PhaseService{
			DB:          db,
			State:       state,
			Sessions:    sessions,
			Ballots:     ballots,
			Notifier:    notifier,
			BotUsername: cfg.Telegram.Username,
		}
		sch, err = scheduler.New(cfg.Schedule, phases, log)
		if err != nil {
			log.Fatal().Err(err).Msg("build schedule")
		}
		sch.Start()
		svc = bot.NewHandler(api, db, state, noms, sessions, notifier, cfg.Telegram.ChannelChatID, log)
	} else {
		log.Warn().Msg("TELEGRAM_CHANNEL_CHAT_ID not set, running the chat-id helper")
		svc = bot.NewGetIDBot(api, log)
	}

	if cfg.OpsPort != "" {
		ops = &http.Server{Addr: ":" + cfg.OpsPort, Handler: httpops.NewRouter(db)}
		go func() {
			log.Info().Str("addr", ops.Addr).Msg("ops endpoint listening")
			if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errc <- err
			}
		}()
	}

	go func() { errc <- svc.Run(ctx) }()

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errc:
		if err != nil {
			log.Error().Err(err).Msg("runtime failure, shutting down")
		}
	}
	stop()

	if sch != nil {
		sch.Stop()
	}
	if ops != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := ops.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("ops endpoint shutdown")
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Info().Msg("bye")
}

// stateRepo adapts the free functions of internal/repo to the StateStore
// port. It carries no state of its own; the *gorm.DB travels per call.
type stateRepo struct{}

func (stateRepo) CurrentPhase(ctx context.Context, db *gorm.DB) (domain.Phase, error) {
	return repo.CurrentPhase(ctx, db)
}

func (stateRepo) SetCurrentPhase(ctx context.Context, db *gorm.DB, p domain.Phase) error {
	return repo.SetCurrentPhase(ctx, db, p)
}

func (stateRepo) CurrentEpoch(ctx context.Context, db *gorm.DB) (int64, error) {
	return repo.CurrentEpoch(ctx, db)
}

func (stateRepo) SetCurrentEpoch(ctx context.Context, db *gorm.DB, epoch int64) error {
	return repo.SetCurrentEpoch(ctx, db, epoch)
}

func (stateRepo) RefMessageID(ctx context.Context, db *gorm.DB) (int, error) {
	return repo.RefMessageID(ctx, db)
}

func (stateRepo) SetRefMessageID(ctx context.Context, db *gorm.DB, messageID int) error {
	return repo.SetRefMessageID(ctx, db, messageID)
}

func (stateRepo) PollMessageID(ctx context.Context, db *gorm.DB, rank int) (int, error) {
	return repo.PollMessageID(ctx, db, rank)
}

func (stateRepo) SetPollMessageID(ctx context.Context, db *gorm.DB, rank, messageID int) error {
	return repo.SetPollMessageID(ctx, db, rank, messageID)
}

// nominationRepo adapts the nomination free functions to the
// NominationStore port.
type nominationRepo struct{}

func (nominationRepo) ClaimSlot(ctx context.Context, db *gorm.DB, userID, epoch int64, capacity int) (bool, error) {
	return repo.ClaimSlot(ctx, db, userID, epoch, capacity)
}

func (nominationRepo) SetItem(ctx context.Context, db *gorm.DB, userID int64, item string) error {
	return repo.SetItem(ctx, db, userID, item)
}

func (nominationRepo) SetNote(ctx context.Context, db *gorm.DB, userID int64, note string) error {
	return repo.SetNote(ctx, db, userID, note)
}

func (nominationRepo) Delete(ctx context.Context, db *gorm.DB, userID int64) error {
	return repo.DeleteNomination(ctx, db, userID)
}

func (nominationRepo) Get(ctx context.Context, db *gorm.DB, userID, epoch int64) (*domain.Nomination, error) {
	return repo.GetNomination(ctx, db, userID, epoch)
}

func (nominationRepo) CountFilled(ctx context.Context, db *gorm.DB, epoch int64) (int64, error) {
	return repo.CountFilled(ctx, db, epoch)
}

func (nominationRepo) ListItems(ctx context.Context, db *gorm.DB, epoch int64) ([]string, error) {
	return repo.ListItems(ctx, db, epoch)
}

func (nominationRepo) ListEntries(ctx context.Context, db *gorm.DB, epoch int64) ([]domain.BallotEntry, error) {
	return repo.ListEntries(ctx, db, epoch)
}
