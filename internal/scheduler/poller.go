// Package scheduler runs the notification poller: a fixed-interval tick that
// claims due jobs in batches and hands them to the dispatcher one at a time.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/rentaro/notifyd/internal/config"
	"github.com/rentaro/notifyd/internal/notification"
	"github.com/rentaro/notifyd/internal/storage"
)

const (
	defaultPollInterval = 15 * time.Second
	defaultBatchSize    = 50
)

// Config holds the poller configuration.
type Config struct {
	Jobs       storage.JobStore
	Dispatcher *notification.Dispatcher
	Settings   *config.SettingsManager
	Logger     *slog.Logger
	// PollInterval is the tick period. Defaults to 15s.
	PollInterval time.Duration
	// BatchSize caps the number of jobs claimed per tick. Defaults to 50.
	BatchSize int
}

// Poller claims due notification jobs on a fixed interval and dispatches them
// sequentially. Throughput is bounded by batch size and interval; there is no
// intra-batch concurrency, which keeps provider rate limits and job logs easy
// to reason about.
type Poller struct {
	cron     gocron.Scheduler
	cfg      Config
	interval time.Duration
	batch    int
	logger   *slog.Logger
}

// New creates a Poller.
func New(cfg Config) (*Poller, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("creating gocron scheduler: %w", err)
	}

	interval := cfg.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	batch := cfg.BatchSize
	if batch <= 0 {
		batch = defaultBatchSize
	}

	return &Poller{
		cron:     cron,
		cfg:      cfg,
		interval: interval,
		batch:    batch,
		logger:   cfg.Logger,
	}, nil
}

// Start schedules the recurring tick and starts the scheduler. Singleton mode
// guarantees a slow batch never overlaps with the next tick.
func (p *Poller) Start(_ context.Context) error {
	_, err := p.cron.NewJob(
		gocron.DurationJob(p.interval),
		gocron.NewTask(func() {
			if _, err := p.RunOnce(context.Background()); err != nil {
				p.logger.Error("poll tick failed", "error", err)
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("scheduling poll job: %w", err)
	}

	p.cron.Start()
	p.logger.Info("notification poller started",
		"interval", p.interval.String(), "batch_size", p.batch)
	return nil
}

// Stop shuts down the scheduler, waiting for an in-flight tick to finish.
func (p *Poller) Stop() error {
	return p.cron.Shutdown()
}

// RunOnce executes a single poll pass: reload settings, claim due jobs,
// dispatch them in claim order. It returns the number of jobs processed.
// Dispatch outcomes never abort the pass; only a store failure does.
func (p *Poller) RunOnce(ctx context.Context) (int, error) {
	if err := p.cfg.Settings.Reload(); err != nil {
		// Keep delivering with the previous snapshot.
		p.logger.Warn("settings reload failed, keeping previous settings", "error", err)
	}
	settings := p.cfg.Settings.Snapshot()

	jobs, err := p.cfg.Jobs.ClaimDueJobs(ctx, p.batch, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("claiming due jobs: %w", err)
	}
	if len(jobs) == 0 {
		return 0, nil
	}

	p.logger.Info("processing notification batch", "claimed", len(jobs))
	for _, job := range jobs {
		status := p.cfg.Dispatcher.Process(ctx, job, settings)
		p.logger.Debug("job processed", "job_id", job.ID, "status", string(status))
	}
	return len(jobs), nil
}
