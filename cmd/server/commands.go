package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/phrazzld/sheetdesk/internal/config"
	"github.com/phrazzld/sheetdesk/internal/events"
	"github.com/phrazzld/sheetdesk/internal/platform/logger"
	"github.com/phrazzld/sheetdesk/internal/platform/telegram"
	"github.com/phrazzld/sheetdesk/internal/redact"
	"github.com/phrazzld/sheetdesk/internal/service"
	"github.com/spf13/cobra"
)

// cli carries state shared by every subcommand.
type cli struct {
	configFile string
	cfg        *config.Config
	logger     *slog.Logger
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:   "sheetdesk",
		Short: "Request desk backed by a Google Sheets worksheet",
		Long: `sheetdesk serves the desk dashboard API, the legacy action endpoint
and the Telegram bot webhook, storing every record as a row of one
spreadsheet.

Configuration is read from an optional config.yaml and SHEETDESK_*
environment variables.`,
		SilenceUsage:      true,
		PersistentPreRunE: c.load,
	}
	root.PersistentFlags().StringVar(&c.configFile, "config", "", "path to a config file (default: ./config.yaml if present)")

	root.AddCommand(
		c.serveCmd(),
		c.sheetCmd(),
		c.statsCmd(),
		c.webhookCmd(),
	)
	return root
}

func (c *cli) load(cmd *cobra.Command, _ []string) error {
	var err error
	if c.configFile != "" {
		c.cfg, err = config.LoadFile(c.configFile)
	} else {
		c.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	c.logger, err = logger.Setup(c.cfg.Server)
	if err != nil {
		return fmt.Errorf("failed to set up logger: %w", err)
	}
	c.logger.Debug("configuration loaded",
		slog.String("command", cmd.CommandPath()),
		slog.Int("port", c.cfg.Server.Port),
		slog.String("sheet", c.cfg.Sheets.SheetName),
		slog.Bool("bot_enabled", c.cfg.Bot.Enabled))
	return nil
}

func (c *cli) serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := newApplication(cmd.Context(), c.cfg, c.logger)
			if err != nil {
				return err
			}
			if err := app.store.EnsureHeader(cmd.Context()); err != nil {
				app.cleanup()
				return fmt.Errorf("sheet %q is not usable: %w", c.cfg.Sheets.SheetName, err)
			}
			return app.Run(cmd.Context())
		},
	}
}

func (c *cli) sheetCmd() *cobra.Command {
	sheet := &cobra.Command{
		Use:   "sheet",
		Short: "Spreadsheet maintenance",
	}
	sheet.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write the header row to an empty sheet, or verify an existing one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := newSheetStore(cmd.Context(), c.cfg, nil, c.logger)
			if err != nil {
				return err
			}
			if err := store.EnsureHeader(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sheet %q is ready\n", c.cfg.Sheets.SheetName)
			return nil
		},
	})
	return sheet
}

func (c *cli) statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print desk statistics as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tf, err := timeFormat(c.cfg)
			if err != nil {
				return err
			}
			store, err := newSheetStore(cmd.Context(), c.cfg, nil, c.logger)
			if err != nil {
				return err
			}
			records, err := service.NewRecordService(store, events.NewInMemoryEventEmitter(c.logger), tf.Location, c.logger)
			if err != nil {
				return err
			}
			stats, err := records.Stats(cmd.Context())
			if err != nil {
				return errors.New(redact.Error(err))
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		},
	}
}

func (c *cli) webhookCmd() *cobra.Command {
	webhook := &cobra.Command{
		Use:   "webhook",
		Short: "Manage the Telegram bot webhook",
	}

	var url string
	set := &cobra.Command{
		Use:   "set",
		Short: "Point the bot at this server's /webhook/telegram endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if c.cfg.Bot.WebhookSecret == "" {
				return errors.New("bot.webhook_secret must be configured before registering a webhook")
			}
			client, err := c.botClient()
			if err != nil {
				return err
			}
			if err := client.SetWebhook(cmd.Context(), url, c.cfg.Bot.WebhookSecret); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "webhook for @%s set to %s\n", client.Username(), url)
			return nil
		},
	}
	set.Flags().StringVar(&url, "url", "", "public HTTPS URL of /webhook/telegram")
	_ = set.MarkFlagRequired("url")

	del := &cobra.Command{
		Use:   "delete",
		Short: "Remove the webhook registration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := c.botClient()
			if err != nil {
				return err
			}
			if err := client.DeleteWebhook(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "webhook for @%s deleted\n", client.Username())
			return nil
		},
	}

	webhook.AddCommand(set, del)
	return webhook
}

func (c *cli) botClient() (*telegram.Client, error) {
	if c.cfg.Bot.Token == "" {
		return nil, errors.New("bot.token is not configured")
	}
	return telegram.NewClient(c.cfg.Bot, nil, c.logger)
}
