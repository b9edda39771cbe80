// Package observability exposes Prometheus instrumentation for the bot. The
// collectors cover the traffic that matters operationally: inbound Telegram
// updates and their outcomes, nomination activity, phase transitions, and the
// poll lifecycle. Label sets are kept small and closed to bound cardinality.
// All collectors are safe for concurrent use.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// UpdatesTotal counts inbound Telegram updates by handling outcome:
	// handled, rejected (non-member / invalid), or failed.
	UpdatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_updates_total",
			Help: "Total number of inbound Telegram updates by outcome.",
		},
		[]string{"outcome"},
	)

	// NominationsTotal counts nomination actions by result.
	NominationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_nominations_total",
			Help: "Total number of nomination actions by result.",
		},
		[]string{"result"}, // submitted | rejected_full | withdrawn
	)

	// PhaseTransitions counts scheduled phase transitions by target phase.
	PhaseTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bot_phase_transitions_total",
			Help: "Total number of phase transitions by target phase.",
		},
		[]string{"phase"},
	)

	// PollsOpened counts ranked polls published to the channel.
	PollsOpened = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_polls_opened_total",
			Help: "Total number of ranked polls opened.",
		},
	)

	// PollsClosed counts ranked polls stopped at publishing time.
	PollsClosed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_polls_closed_total",
			Help: "Total number of ranked polls closed.",
		},
	)

	// ChannelSendFailures counts failed channel sends, the bot's main
	// external failure mode.
	ChannelSendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "bot_channel_send_failures_total",
			Help: "Total number of failed sends to the channel.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		UpdatesTotal,
		NominationsTotal,
		PhaseTransitions,
		PollsOpened,
		PollsClosed,
		ChannelSendFailures,
	)
}
