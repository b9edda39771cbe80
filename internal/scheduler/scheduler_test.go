package scheduler

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/filmnight/bot/internal/config"
	"github.com/filmnight/bot/internal/services"
)

func TestNew_RegistersDefaultSchedule(t *testing.T) {
	cfg := config.ScheduleConfig{
		CollectingCron: "30 0 0 * * MON",
		VotingCron:     "0 0 18 * * THU",
		PublishingCron: "0 30 21 * * FRI",
	}
	s, err := New(cfg, &services.PhaseService{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if got := len(s.cron.Entries()); got != 3 {
		t.Fatalf("registered entries = %d, want 3", got)
	}
}

func TestNew_RejectsBadExpression(t *testing.T) {
	cfg := config.ScheduleConfig{
		CollectingCron: "not a cron",
		VotingCron:     "0 0 18 * * THU",
		PublishingCron: "0 30 21 * * FRI",
	}
	if _, err := New(cfg, &services.PhaseService{}, zerolog.Nop()); err == nil {
		t.Fatal("New: want error for malformed expression, got nil")
	}
}

func TestNew_RejectsFiveFieldExpression(t *testing.T) {
	// The schedule is seconds-first; a classic five-field cron line
	// must be rejected rather than silently misread.
	cfg := config.ScheduleConfig{
		CollectingCron: "30 0 0 * * MON",
		VotingCron:     "0 18 * * THU",
		PublishingCron: "0 30 21 * * FRI",
	}
	if _, err := New(cfg, &services.PhaseService{}, zerolog.Nop()); err == nil {
		t.Fatal("New: want error for five-field expression, got nil")
	}
}
