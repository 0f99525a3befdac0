package notification

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	jobsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifyd_jobs_processed_total",
		Help: "Notification jobs processed, by terminal status.",
	}, []string{"status"})

	channelSends = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifyd_channel_sends_total",
		Help: "Per-channel send outcomes.",
	}, []string{"channel", "status"})

	emailProviderAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "notifyd_email_provider_attempts_total",
		Help: "Email provider attempts within the fallback chain.",
	}, []string{"provider", "status"})
)
