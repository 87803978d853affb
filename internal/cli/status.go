package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/uplift-crm/upliftsync/internal/config"
	"github.com/uplift-crm/upliftsync/internal/httpapi"
	"github.com/uplift-crm/upliftsync/internal/insight"
	"github.com/uplift-crm/upliftsync/internal/mailbox"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Probe each collaborator and report availability",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		signer := httpapi.BearerSigner{Token: func() string { return cfg.Backend.Token }}

		fmt.Printf("backend   %s\n", cfg.Backend.BaseURL)
		fmt.Printf("mail      %s (user %s)\n", cfg.Mail.BaseURL, cfg.Mail.UserEmail)
		fmt.Printf("insights  %s\n", cfg.Insights.BaseURL)
		fmt.Println()

		mailClient := mailbox.NewClient(cfg.Mail.BaseURL, cfg.Mail.UserEmail, cfg.Mail.Timeout, signer)
		printCheck("mailbox integration", mailClient.Status(ctx))

		insightClient := insight.NewClient(cfg.Insights.BaseURL, cfg.Insights.Timeout, signer)
		printCheck("ai insight service", insightClient.Ping(ctx))
		return nil
	},
}

func printCheck(name string, err error) {
	switch {
	case err == nil:
		fmt.Printf("%-22s %s\n", name, color.GreenString("ok"))
	case httpapi.IsDenied(err):
		fmt.Printf("%-22s %s (%v)\n", name, color.YellowString("unavailable"), err)
	default:
		fmt.Printf("%-22s %s (%v)\n", name, color.RedString("unreachable"), err)
	}
}
