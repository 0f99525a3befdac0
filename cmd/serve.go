package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rentaro/notifyd/internal/api"
	"github.com/rentaro/notifyd/internal/build"
	"github.com/rentaro/notifyd/internal/config"
	"github.com/rentaro/notifyd/internal/eventbus"
	"github.com/rentaro/notifyd/internal/logger"
	"github.com/rentaro/notifyd/internal/notification"
	"github.com/rentaro/notifyd/internal/scheduler"
	"github.com/rentaro/notifyd/internal/server"
	"github.com/rentaro/notifyd/internal/service"
	"github.com/rentaro/notifyd/internal/storage"
)

// NewServeCmd returns the "serve" subcommand that starts the dispatch service.
func NewServeCmd(cfg *config.AppConfig) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the notification dispatch service",
		Long: "Start the HTTP API and the background poller that claims due\n" +
			"notification jobs and delivers them through the configured channels.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			// CLI flags override env config.
			if cmd.Flags().Changed("port") {
				cfg.Port = port
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().IntVar(&port, "port", cfg.Port, "HTTP server port (overrides PORT env var)")

	return cmd
}

func runServe(cfg *config.AppConfig) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	for _, dir := range []string{cfg.DataDir, cfg.LogDir()} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	sysLogger, err := logger.NewSystemLogger(cfg.LogDir(), cfg.SlogLevel())
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	sysLogger.Info("notifyd starting",
		slog.Int("port", cfg.Port),
		slog.String("data_dir", cfg.DataDir),
		slog.String("version", build.Version),
		slog.String("commit", build.CommitSHA),
	)

	db, created, err := storage.NewSQLiteDB(cfg.DBPath())
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()
	if created {
		sysLogger.Info("created new database", "path", cfg.DBPath())
	}

	jobStore := storage.NewSQLiteJobStore(db)
	inboxStore := storage.NewSQLiteInboxStore(db)
	directory := storage.NewSQLiteDirectory(db)

	settingsMgr, err := config.NewSettingsManager(cfg.SettingsFile)
	if err != nil {
		return fmt.Errorf("loading notification settings: %w", err)
	}

	emailChain, err := buildEmailChain(ctx, cfg, sysLogger)
	if err != nil {
		return err
	}
	sysLogger.Info("email provider chain configured", "providers", emailChain.Providers())

	// The interface stays nil when WhatsApp is not configured; assigning a nil
	// concrete pointer would defeat the dispatcher's nil check.
	var chatSender notification.TextSender
	if wa := notification.NewWhatsAppSender(notification.WhatsAppConfig{
		Token:   cfg.WhatsAppToken,
		PhoneID: cfg.WhatsAppPhoneID,
	}); wa != nil {
		chatSender = wa
	} else {
		sysLogger.Warn("whatsapp credentials missing, chat-messaging channel disabled")
	}

	bus := eventbus.New(0, sysLogger)
	defer bus.Close()
	bus.Subscribe(func(e eventbus.Event) {
		sysLogger.Debug("event published", "event_type", e.Type, "payload", e.Payload)
	})

	templates := notification.NewTemplateRegistry()
	contacts := notification.NewContactResolver(directory, directory, sysLogger)

	dispatcher := notification.NewDispatcher(notification.DispatcherConfig{
		Jobs:      jobStore,
		Inbox:     inboxStore,
		Contacts:  contacts,
		Email:     emailChain,
		Chat:      chatSender,
		SMS:       notification.NewSMSStubSender(sysLogger),
		Push:      notification.NewPushStubSender(sysLogger),
		Templates: templates,
		Logger:    sysLogger,
		Events:    bus,
	})

	poller, err := scheduler.New(scheduler.Config{
		Jobs:         jobStore,
		Dispatcher:   dispatcher,
		Settings:     settingsMgr,
		Logger:       sysLogger,
		PollInterval: cfg.PollInterval,
		BatchSize:    cfg.BatchSize,
	})
	if err != nil {
		return fmt.Errorf("creating poller: %w", err)
	}
	if err := poller.Start(ctx); err != nil {
		return fmt.Errorf("starting poller: %w", err)
	}
	defer func() {
		if err := poller.Stop(); err != nil {
			sysLogger.Warn("poller shutdown failed", "error", err)
		}
	}()

	notificationSvc := service.NewNotificationService(
		jobStore, inboxStore, emailChain, templates, bus, sysLogger)

	apiSrv := api.New(notificationSvc, directory, directory, sysLogger)
	srv := server.New(apiSrv, cfg.Port, sysLogger)

	sysLogger.Info("server ready", "url", fmt.Sprintf("http://localhost:%d", cfg.Port))
	fmt.Fprintf(os.Stderr, "notifyd %s listening on http://localhost:%d\n", build.Version, cfg.Port)
	fmt.Fprintf(os.Stderr, "Logs: %s\n", cfg.LogDir())

	return srv.Run(ctx)
}

// buildEmailChain assembles the ordered provider fallback from configuration.
// Providers with missing credentials are left out; SMTP is always present so
// the chain is never empty.
func buildEmailChain(ctx context.Context, cfg *config.AppConfig, sysLogger *slog.Logger) (*notification.Chain, error) {
	var providers []notification.EmailProvider

	if p := notification.NewSendGridProvider(notification.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.FromEmail,
		FromName:  cfg.FromName,
	}); p != nil {
		providers = append(providers, p)
	}

	if p := notification.NewMailgunProvider(notification.MailgunConfig{
		Domain:    cfg.MailgunDomain,
		APIKey:    cfg.MailgunAPIKey,
		FromEmail: cfg.FromEmail,
		FromName:  cfg.FromName,
	}); p != nil {
		providers = append(providers, p)
	}

	ses, err := notification.NewSESProvider(ctx, notification.SESConfig{
		Region:          cfg.SESRegion,
		AccessKeyID:     cfg.SESAccessKeyID,
		SecretAccessKey: cfg.SESSecretAccessKey,
		FromEmail:       cfg.FromEmail,
		FromName:        cfg.FromName,
	})
	if err != nil {
		return nil, fmt.Errorf("configuring SES provider: %w", err)
	}
	if ses != nil {
		providers = append(providers, ses)
	}

	providers = append(providers, notification.NewSMTPProvider(notification.SMTPConfig{
		Host:       cfg.SMTPHost,
		Port:       cfg.SMTPPort,
		Username:   cfg.SMTPUsername,
		Password:   cfg.SMTPPassword,
		FromEmail:  cfg.FromEmail,
		FromName:   cfg.FromName,
		Encryption: cfg.SMTPEncryption,
	}))

	return notification.NewChain(sysLogger, providers...), nil
}
