package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uplift-crm/upliftsync/internal/config"
	"github.com/uplift-crm/upliftsync/internal/draft"
	"github.com/uplift-crm/upliftsync/internal/httpapi"
	"github.com/uplift-crm/upliftsync/internal/mailbox"
)

var draftsCmd = &cobra.Command{
	Use:   "drafts",
	Short: "Inspect staged message drafts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDrafts()
		if err != nil {
			return err
		}
		defer store.Close()

		drafts, err := store.List()
		if err != nil {
			return err
		}
		if len(drafts) == 0 {
			fmt.Println("no drafts staged")
			return nil
		}
		for _, d := range drafts {
			body := d.Body
			if len(body) > 60 {
				body = body[:57] + "..."
			}
			fmt.Printf("%-20s %s  %q\n", d.EntityID, d.UpdatedAt.Format("2006-01-02 15:04"), body)
		}
		return nil
	},
}

var draftsClearCmd = &cobra.Command{
	Use:   "clear <entity-id>",
	Short: "Discard the staged draft for an entity",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDrafts()
		if err != nil {
			return err
		}
		defer store.Close()
		return store.Clear(args[0])
	},
}

var draftsStageCmd = &cobra.Command{
	Use:   "stage <entity-id> <body>",
	Short: "Stage (or replace) the draft for an entity",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openDrafts()
		if err != nil {
			return err
		}
		defer store.Close()
		return draft.NewComposer(store, nil).Edit(args[0], args[1])
	},
}

var (
	sendTo      string
	sendSubject string
)

var draftsSendCmd = &cobra.Command{
	Use:   "send <entity-id>",
	Short: "Send the staged draft and clear it on success",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		store, err := draft.NewStore(cfg.Drafts.Path)
		if err != nil {
			return err
		}
		defer store.Close()

		signer := httpapi.BearerSigner{Token: func() string { return cfg.Backend.Token }}
		mail := mailbox.NewClient(cfg.Mail.BaseURL, cfg.Mail.UserEmail, cfg.Mail.Timeout, signer)
		composer := draft.NewComposer(store, mail)

		entityID := args[0]
		body, err := composer.Open(entityID)
		if err != nil {
			return err
		}
		if body == "" {
			return fmt.Errorf("no draft staged for %s", entityID)
		}
		return composer.Send(cmd.Context(), entityID, mailbox.SendRequest{
			To:      sendTo,
			Subject: sendSubject,
			Body:    body,
		})
	},
}

func openDrafts() (*draft.Store, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return draft.NewStore(cfg.Drafts.Path)
}

func init() {
	draftsSendCmd.Flags().StringVar(&sendTo, "to", "", "recipient address")
	draftsSendCmd.Flags().StringVar(&sendSubject, "subject", "", "message subject")
	draftsSendCmd.MarkFlagRequired("to")
	draftsCmd.AddCommand(draftsClearCmd, draftsStageCmd, draftsSendCmd)
}
