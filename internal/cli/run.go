package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/uplift-crm/upliftsync/internal/activity"
	"github.com/uplift-crm/upliftsync/internal/config"
	"github.com/uplift-crm/upliftsync/internal/feed"
	"github.com/uplift-crm/upliftsync/internal/httpapi"
	"github.com/uplift-crm/upliftsync/internal/insight"
	"github.com/uplift-crm/upliftsync/internal/mailbox"
	"github.com/uplift-crm/upliftsync/internal/notify"
	"github.com/uplift-crm/upliftsync/internal/session"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the sync session until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctrl, cleanup, err := buildSession(cfg)
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := ctrl.Start(ctx); err != nil {
			return err
		}
		defer ctrl.Close()

		<-ctx.Done()
		slog.Info("Shutting down")
		return nil
	},
}

// buildSession wires the collaborators from config. The returned cleanup
// closes whatever was opened regardless of how far wiring got.
func buildSession(cfg *config.Config) (*session.Controller, func(), error) {
	signer := httpapi.BearerSigner{Token: func() string { return cfg.Backend.Token }}

	var publisher feed.Publisher
	if cfg.Feed.Brokers != "" {
		publisher = feed.NewKafkaPublisher(cfg.Feed.Brokers, cfg.Feed.Topic)
	}

	activityClient := activity.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, signer)
	store := activity.NewStore(activityClient, publisher)

	mailClient := mailbox.NewClient(cfg.Mail.BaseURL, cfg.Mail.UserEmail, cfg.Mail.Timeout, signer)
	cache := mailbox.NewCapabilityCache(func(ctx context.Context, identity string) error {
		return mailClient.Status(ctx)
	}, cfg.Mail.StatusTTL)

	insightClient := insight.NewClient(cfg.Insights.BaseURL, cfg.Insights.Timeout, signer)
	orchestrator := insight.NewOrchestrator(insightClient, store, cfg.Insights.Timeout)

	notifier := notify.Notifier(notify.LogNotifier{})
	if cfg.Notify.SlackToken != "" && cfg.Notify.SlackChannel != "" {
		notifier = notify.Multi(notify.LogNotifier{},
			notify.NewSlackNotifier(cfg.Notify.SlackToken, cfg.Notify.SlackChannel, ""))
	}

	ctrl := session.New(session.Options{
		Store:           store,
		Insights:        orchestrator,
		Mail:            mailClient,
		Cache:           cache,
		Notifier:        notifier,
		UserEmail:       cfg.Mail.UserEmail,
		UnreadInterval:  cfg.Mail.UnreadInterval,
		InsightInterval: cfg.Insights.RefreshInterval,
		Scope:           insight.Scope{Days: cfg.Insights.Days},
	})

	cleanup := func() {
		if publisher != nil {
			if err := publisher.Close(); err != nil {
				slog.Warn("Feed close failed", "error", err)
			}
		}
	}
	return ctrl, cleanup, nil
}
